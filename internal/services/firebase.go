package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

const pushTimeout = 10 * time.Second

// Pusher sends FCM topic notifications for newly posted rides. A nil Pusher
// or one without a messaging client does nothing.
type Pusher struct {
	client *messaging.Client
	topic  string
}

// InitFirebase builds a Pusher from a service account file. An empty path
// disables push notifications.
func InitFirebase(ctx context.Context, serviceAccountPath, topic string) (*Pusher, error) {
	if serviceAccountPath == "" {
		logrus.Warn("FIREBASE_SERVICE_ACCOUNT_PATH not set. Push notifications will be disabled.")
		return nil, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	logrus.WithField("topic", topic).Info("Firebase Cloud Messaging initialized")
	return &Pusher{client: client, topic: topic}, nil
}

// Notify pushes ride_created events to the rides topic in the background.
func (p *Pusher) Notify(_ context.Context, event RideEvent) {
	if p == nil || p.client == nil || event.Type != EventRideCreated {
		return
	}

	message := buildRideMessage(p.topic, event)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()

		id, err := p.client.Send(ctx, message)
		if err != nil {
			logrus.WithError(err).WithField("rideId", event.RideID).Warn("Failed to send new ride notification")
			return
		}
		logrus.WithFields(logrus.Fields{"rideId": event.RideID, "messageId": id}).Debug("New ride notification sent")
	}()
}

func buildRideMessage(topic string, event RideEvent) *messaging.Message {
	return &messaging.Message{
		Topic: topic,
		Notification: &messaging.Notification{
			Title: "New ride available",
			Body: fmt.Sprintf("%s to %s on %s, %d seat(s) left",
				event.Departure, event.Destination,
				event.DepartureTime.Format("Mon 2 Jan 15:04"), event.AvailableSeats),
		},
		Data: map[string]string{
			"type":           string(event.Type),
			"rideId":         strconv.FormatUint(uint64(event.RideID), 10),
			"departure":      event.Departure,
			"destination":    event.Destination,
			"departureTime":  event.DepartureTime.Format(time.RFC3339),
			"availableSeats": strconv.Itoa(event.AvailableSeats),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID:    "unipool_rides",
				DefaultSound: true,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}
}
