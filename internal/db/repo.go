package db

import (
	"context"
	"errors"

	"pharmaflow-tutor/pkg"
)

// ErrDuplicateUser is returned by CreateUser when the username is taken.
var ErrDuplicateUser = errors.New("username already exists")

// Repository persists user accounts and the performance ledger.  Usernames
// are matched case-sensitively.  The ledger is append-only: rows are never
// updated or deleted, and ListLedger returns them in append order.
type Repository interface {
	CreateUser(ctx context.Context, u *pkg.UserAccount) error
	// GetUser returns nil, nil when the username is not registered.
	GetUser(ctx context.Context, username string) (*pkg.UserAccount, error)

	AppendLedger(ctx context.Context, row *pkg.LedgerRow) error
	ListLedger(ctx context.Context) ([]pkg.LedgerRow, error)

	Ping(ctx context.Context) error
}
