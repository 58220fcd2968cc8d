package ports

import (
	"context"
	"errors"
)

// StoredResponse contains the response data to replay for a reused key.
type StoredResponse struct {
	StatusCode int    `json:"status_code"`
	Body       []byte `json:"body"`
	OrderID    int64  `json:"order_id"`
}

// IdempotencyStore ensures create operations can be retried safely.
// Get returns nil, nil for an unknown or expired key. Save keeps the first
// response stored for a key.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*StoredResponse, error)
	Save(ctx context.Context, key string, response StoredResponse) error
}

// KeyLocker serializes requests that share an idempotency key.
type KeyLocker interface {
	// Lock returns ErrKeyLocked when another request holds key.
	Lock(ctx context.Context, key string) (unlock func(context.Context) error, err error)
}

// ErrKeyLocked is returned while a request with the same key is in flight.
var ErrKeyLocked = errors.New("idempotency key is being processed")
