// Package session stores active training sessions between requests.
package session

import (
	"context"
	"errors"

	"pharmaflow-tutor/pkg"
)

// Common errors for session store operations.
var (
	ErrNotFound        = errors.New("session not found")
	ErrVersionConflict = errors.New("session version conflict")
)

// Store keeps live sessions keyed by ID.  The memory driver is the default;
// the redis driver lets sessions survive restarts in multi-replica
// deployments.  Updates use the session's Version for optimistic locking:
// within one session the interaction cycle is strictly sequential, so a
// conflict only signals a duplicated client request.
type Store interface {
	// Create stores a new session with Version set to 1.
	Create(ctx context.Context, s *pkg.Session) error

	// Get retrieves a session by ID.  Returns nil when not found.
	Get(ctx context.Context, id string) (*pkg.Session, error)

	// Update persists an existing session.  It verifies the stored Version
	// matches, then increments it.  Returns ErrNotFound or
	// ErrVersionConflict accordingly.
	Update(ctx context.Context, s *pkg.Session) error

	// Delete removes a session by ID.
	Delete(ctx context.Context, id string) error

	// Close releases the store's resources.
	Close() error
}
