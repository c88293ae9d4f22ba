package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chachabrian/unipool-backend/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RideUpdatesChannel carries every RideEvent between API instances.
const RideUpdatesChannel = "ride:updates"

var ErrSessionNotFound = errors.New("session not found or expired")

// InitRedis connects to redisURL and verifies the connection.
func InitRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Session is the server-side half of a login. The client only holds its ID.
type Session struct {
	ID        string      `json:"id"`
	UserID    uint        `json:"userId"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      models.Role `json:"role"`
	CSRFToken string      `json:"csrfToken"`
	CreatedAt time.Time   `json:"createdAt"`
}

// SessionStore keeps sessions in redis with a sliding idle timeout.
type SessionStore struct {
	client      *redis.Client
	idleTimeout time.Duration
}

func NewSessionStore(client *redis.Client, idleTimeout time.Duration) *SessionStore {
	return &SessionStore{client: client, idleTimeout: idleTimeout}
}

func sessionKey(id string) string {
	return "session:" + id
}

func userSessionsKey(userID uint) string {
	return fmt.Sprintf("user:sessions:%d", userID)
}

func (s *SessionStore) IdleTimeout() time.Duration {
	return s.idleTimeout
}

func (s *SessionStore) Create(ctx context.Context, user *models.User) (*Session, error) {
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.DisplayName(),
		Role:      user.Role,
		CSRFToken: uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.ID), data, s.idleTimeout)
	pipe.SAdd(ctx, userSessionsKey(user.ID), session.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return session, nil
}

// Get loads a session and restarts its idle timer.
func (s *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}

	data, err := s.client.GetEx(ctx, sessionKey(id), s.idleTimeout).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

func (s *SessionStore) Delete(ctx context.Context, session *Session) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(session.ID))
	pipe.SRem(ctx, userSessionsKey(session.UserID), session.ID)
	_, err := pipe.Exec(ctx)
	return err
}

// DeleteForUser ends every session of the user, e.g. after account removal.
func (s *SessionStore) DeleteForUser(ctx context.Context, userID uint) error {
	ids, err := s.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userSessionsKey(userID))
	return s.client.Del(ctx, keys...).Err()
}

// RedisPublisher forwards ride events to the shared pub/sub channel so every
// API instance can relay them to its websocket clients.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Notify(ctx context.Context, event RideEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).Error("Failed to encode ride event")
		return
	}
	if err := p.client.Publish(ctx, RideUpdatesChannel, data).Err(); err != nil {
		logrus.WithError(err).WithField("type", event.Type).Warn("Failed to publish ride event")
	}
}
