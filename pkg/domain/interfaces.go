package domain

import (
	"context"
	"time"
)

// Message is a single outbound email handed to the transport.
type Message struct {
	ToEmail   string
	ToName    string
	FromEmail string
	FromName  string
	Subject   string
	HTML      string
	Text      string
}

// Mailer is the external mail transport. Implementations must honor the
// context deadline; a slow provider must not be able to stall the worker
// pool indefinitely.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Clock abstracts time for components with retry/backoff behavior so the
// schedule can be tested without real time passing.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return ClockFunc(time.Now) }

// CacheRepository defines the shared cache operations the gate relies on.
// The counter is externally owned so multiple instances see the same view.
type CacheRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	// IncrWithTTL atomically increments a counter, attaching the TTL on
	// first increment, and returns the new value.
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
