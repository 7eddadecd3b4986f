package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"pharmaflow-tutor/pkg"
)

// PostgresRepository implements Repository over a Postgres database.  The
// caller is responsible for managing the DB connection lifecycle.
type PostgresRepository struct {
	DB *sql.DB
}

// NewPostgresRepository constructs a repository from an existing sql.DB.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{DB: db}
}

// CreateUser inserts a new account.  A unique-key violation maps to
// ErrDuplicateUser so callers can report the conflict without leaking
// driver details.
func (r *PostgresRepository) CreateUser(ctx context.Context, u *pkg.UserAccount) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, display_name, gender, avatar, created_at)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		u.Username, u.PasswordHash, u.DisplayName, u.Gender, u.Avatar, u.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicateUser
	}
	return err
}

// GetUser retrieves an account by exact username.
func (r *PostgresRepository) GetUser(ctx context.Context, username string) (*pkg.UserAccount, error) {
	var u pkg.UserAccount
	err := r.DB.QueryRowContext(ctx,
		`SELECT username, password_hash, display_name, gender, avatar, created_at
         FROM users
         WHERE username = $1`,
		username,
	).Scan(&u.Username, &u.PasswordHash, &u.DisplayName, &u.Gender, &u.Avatar, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// AppendLedger inserts one judged-session row and fills in its ID.
func (r *PostgresRepository) AppendLedger(ctx context.Context, row *pkg.LedgerRow) error {
	return r.DB.QueryRowContext(ctx,
		`INSERT INTO ledger (ts, username, scenario, total, revenue)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id`,
		row.Timestamp, row.Username, row.Scenario, row.Total, row.Revenue,
	).Scan(&row.ID)
}

// ListLedger returns every row ever appended, in append order.
func (r *PostgresRepository) ListLedger(ctx context.Context) ([]pkg.LedgerRow, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, ts, username, scenario, total, revenue
         FROM ledger
         ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pkg.LedgerRow
	for rows.Next() {
		var row pkg.LedgerRow
		if err := rows.Scan(&row.ID, &row.Timestamp, &row.Username, &row.Scenario, &row.Total, &row.Revenue); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Ping verifies the database connection.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}
