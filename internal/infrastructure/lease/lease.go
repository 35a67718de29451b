// Package lease provides expiring, token-guarded mutual exclusion keyed by
// name. Redis backs it when configured; process memory otherwise.
package lease

import (
	"context"
	"errors"
	"time"
)

// ErrHeld is returned by Acquire when another holder owns the key.
var ErrHeld = errors.New("lease is held by another owner")

// Lease is an acquired key. Release only deletes the key while it still
// carries this lease's token, so an expired lease never frees a newer one.
type Lease interface {
	Key() string
	Release(ctx context.Context) error
}

// Manager hands out leases.
type Manager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}
