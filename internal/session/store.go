package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// SessionPrefix is the Redis key prefix for all presence hashes.
	SessionPrefix = "session:"

	// SessionTTL is the time-to-live for presence keys in Redis.
	SessionTTL = 1 * time.Hour

	// Presence status values.
	StatusLoggedOut = "logged_out"
	StatusLoggedIn  = "logged_in"
)

// Presence is the Redis view of one connected session. It carries no
// messages.
type Presence struct {
	ID         string `redis:"id"`
	Status     string `redis:"status"`      // logged_out | logged_in
	Username   string `redis:"username"`    // empty while logged out
	IdentityID string `redis:"identity_id"` // empty while logged out
	Server     string `redis:"server"`      // which WS server instance
	CreatedAt  int64  `redis:"created_at"`  // unix timestamp
	LastActive int64  `redis:"last_active"` // unix timestamp
}

// Store manages presence hashes in Redis.
type Store struct {
	client     *redis.Client
	serverName string // identifier for this WS server instance
}

// NewStore creates a presence store connected to Redis.
func NewStore(redisAddr string, serverName string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("session: redis connection failed: %w", err)
	}

	return &Store{client: client, serverName: serverName}, nil
}

// Create stores a logged-out presence for sessionID with a 1h TTL.
func (s *Store) Create(ctx context.Context, sessionID string) error {
	key := SessionPrefix + sessionID
	now := time.Now().Unix()

	presence := map[string]interface{}{
		"id":          sessionID,
		"status":      StatusLoggedOut,
		"username":    "",
		"identity_id": "",
		"server":      s.serverName,
		"created_at":  now,
		"last_active": now,
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, presence)
	pipe.Expire(ctx, key, SessionTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Get retrieves a presence from Redis. Returns nil if not found.
func (s *Store) Get(ctx context.Context, sessionID string) (*Presence, error) {
	key := SessionPrefix + sessionID
	var p Presence
	if err := s.client.HGetAll(ctx, key).Scan(&p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, nil
	}
	return &p, nil
}

// MarkLoggedIn records the identity of sessionID and refreshes the TTL.
func (s *Store) MarkLoggedIn(ctx context.Context, sessionID string, id Identity) error {
	return s.update(ctx, sessionID, StatusLoggedIn, id.Username, id.ID)
}

// MarkLoggedOut clears the identity of sessionID and refreshes the TTL.
func (s *Store) MarkLoggedOut(ctx context.Context, sessionID string) error {
	return s.update(ctx, sessionID, StatusLoggedOut, "", "")
}

// Touch refreshes last_active and the TTL.
func (s *Store) Touch(ctx context.Context, sessionID string) error {
	key := SessionPrefix + sessionID
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, "last_active", time.Now().Unix())
	pipe.Expire(ctx, key, SessionTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Delete removes a presence from Redis.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	key := SessionPrefix + sessionID
	return s.client.Del(ctx, key).Err()
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Client returns the underlying Redis client for use by other packages.
func (s *Store) Client() *redis.Client {
	return s.client
}

func (s *Store) update(ctx context.Context, sessionID, status, username, identityID string) error {
	key := SessionPrefix + sessionID
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key,
		"status", status,
		"username", username,
		"identity_id", identityID,
		"last_active", time.Now().Unix(),
	)
	pipe.Expire(ctx, key, SessionTTL)
	_, err := pipe.Exec(ctx)
	return err
}
