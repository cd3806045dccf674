package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTicketNotArchived is returned when a ticket is absent from the archive.
var ErrTicketNotArchived = errors.New("review: ticket not archived")

// Archive receives tickets once they reach a terminal state, so the bounded
// in-memory queue can evict freely. Durable persistence beyond the archive
// retention window is the embedding application's concern.
type Archive interface {
	Store(ctx context.Context, t Ticket) error
}

const defaultArchiveRetention = 30 * 24 * time.Hour

// RedisArchive keeps decided tickets in Redis under a per-ticket key with a
// retention TTL.
type RedisArchive struct {
	client    *redis.Client
	keyPrefix string
	retention time.Duration
}

// RedisArchiveConfig controls archive keys and retention.
type RedisArchiveConfig struct {
	KeyPrefix string        // defaults to "childguard:review:"
	Retention time.Duration // defaults to 30 days
}

// NewRedisArchive creates a Redis-backed ticket archive.
func NewRedisArchive(client *redis.Client, cfg RedisArchiveConfig) *RedisArchive {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "childguard:review:"
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultArchiveRetention
	}
	return &RedisArchive{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		retention: cfg.Retention,
	}
}

// Store writes the ticket as JSON.
func (a *RedisArchive) Store(ctx context.Context, t Ticket) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("review: marshal ticket %s: %w", t.ID, err)
	}
	if err := a.client.Set(ctx, a.keyPrefix+t.ID, payload, a.retention).Err(); err != nil {
		return fmt.Errorf("review: archive ticket %s: %w", t.ID, err)
	}
	return nil
}

// Load reads an archived ticket back by ID.
func (a *RedisArchive) Load(ctx context.Context, ticketID string) (Ticket, error) {
	payload, err := a.client.Get(ctx, a.keyPrefix+ticketID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Ticket{}, ErrTicketNotArchived
	}
	if err != nil {
		return Ticket{}, fmt.Errorf("review: load ticket %s: %w", ticketID, err)
	}
	var t Ticket
	if err := json.Unmarshal(payload, &t); err != nil {
		return Ticket{}, fmt.Errorf("review: decode ticket %s: %w", ticketID, err)
	}
	return t, nil
}

var _ Archive = (*RedisArchive)(nil)
