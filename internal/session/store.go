// Package session keeps the per-browser session record on the server. The
// cookie carries a signed session id; the record itself is sealed and kept in
// a Store (memory, Redis or Postgres).
package session

import (
	"context"
	"time"
)

// Store persists sealed session records by id.
type Store interface {
	// Get returns the record, or found=false when it is absent or expired.
	Get(ctx context.Context, id string) (data []byte, found bool, err error)
	Set(ctx context.Context, id string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}
