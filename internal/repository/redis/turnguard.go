package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	turnGuardPrefix = "widget:turn:"
)

// releaseScript deletes the lock only while it still holds the caller's
// token, so an expired lock taken over by another replica is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TurnGuard records which sessions have a chat turn in flight so a
// session cannot run two exchanges at once, even across server replicas.
type TurnGuard struct {
	client *Client
	ttl    time.Duration
}

// NewTurnGuard creates a turn guard whose locks expire after ttl
func NewTurnGuard(client *Client, ttl time.Duration) *TurnGuard {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &TurnGuard{client: client, ttl: ttl}
}

// Acquire marks the session busy and returns the token that releases it.
// ok is false if a turn is already in flight for the same session.
func (g *TurnGuard) Acquire(ctx context.Context, sessionID string) (token string, ok bool, err error) {
	token = uuid.NewString()
	ok, err = g.client.rdb.SetNX(ctx, turnGuardPrefix+sessionID, token, g.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire turn lock: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release clears the busy mark for the session if it is still held by token
func (g *TurnGuard) Release(ctx context.Context, sessionID, token string) error {
	if err := releaseScript.Run(ctx, g.client.rdb, []string{turnGuardPrefix + sessionID}, token).Err(); err != nil {
		return fmt.Errorf("failed to release turn lock: %w", err)
	}
	return nil
}
