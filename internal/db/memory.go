package db

import (
	"context"
	"sync"

	"pharmaflow-tutor/pkg"
)

// MemoryRepository implements Repository with mutex-guarded maps.  It backs
// tests and database-less development runs; writes are serialized so the
// lost-update race of a shared flat file cannot occur.
type MemoryRepository struct {
	mu     sync.RWMutex
	users  map[string]pkg.UserAccount
	ledger []pkg.LedgerRow
	nextID int64
}

// NewMemoryRepository constructs an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]pkg.UserAccount), nextID: 1}
}

// CreateUser implements Repository.
func (r *MemoryRepository) CreateUser(ctx context.Context, u *pkg.UserAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[u.Username]; exists {
		return ErrDuplicateUser
	}
	r.users[u.Username] = *u
	return nil
}

// GetUser implements Repository.
func (r *MemoryRepository) GetUser(ctx context.Context, username string) (*pkg.UserAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, exists := r.users[username]
	if !exists {
		return nil, nil
	}
	return &u, nil
}

// AppendLedger implements Repository.
func (r *MemoryRepository) AppendLedger(ctx context.Context, row *pkg.LedgerRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row.ID = r.nextID
	r.nextID++
	r.ledger = append(r.ledger, *row)
	return nil
}

// ListLedger implements Repository.
func (r *MemoryRepository) ListLedger(ctx context.Context) ([]pkg.LedgerRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]pkg.LedgerRow, len(r.ledger))
	copy(out, r.ledger)
	return out, nil
}

// Ping implements Repository.
func (r *MemoryRepository) Ping(ctx context.Context) error { return nil }
