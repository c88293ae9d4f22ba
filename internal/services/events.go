package services

import (
	"context"
	"time"
)

type EventType string

const (
	EventRideCreated      EventType = "ride_created"
	EventBookingCreated   EventType = "booking_created"
	EventBookingCancelled EventType = "booking_cancelled"
	EventRideCompleted    EventType = "ride_completed"
	EventRideRemoved      EventType = "ride_removed"
)

// RideEvent describes a change users may want to see live. An empty
// Recipients list means every connected user.
type RideEvent struct {
	Type           EventType `json:"type"`
	RideID         uint      `json:"rideId"`
	Departure      string    `json:"departure"`
	Destination    string    `json:"destination"`
	DepartureTime  time.Time `json:"departureTime"`
	AvailableSeats int       `json:"availableSeats"`
	Message        string    `json:"message"`
	Recipients     []uint    `json:"recipients,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// Notifier delivers ride events. Delivery is best effort: failures are logged
// by the implementation and never fail the operation that raised the event.
type Notifier interface {
	Notify(ctx context.Context, event RideEvent)
}

// Notifiers fans an event out to several notifiers.
type Notifiers []Notifier

func (n Notifiers) Notify(ctx context.Context, event RideEvent) {
	for _, notifier := range n {
		if notifier != nil {
			notifier.Notify(ctx, event)
		}
	}
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, RideEvent) {}

func orNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
