// Package auth registers and authenticates trainees against the repository.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pharmaflow-tutor/internal/db"
	"pharmaflow-tutor/pkg"
)

var (
	// ErrUsernameTaken is a registration conflict; nothing is written.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrAuthFailed covers both unknown user and wrong password, so the
	// response discloses nothing about which field was wrong.
	ErrAuthFailed = errors.New("invalid username or password")
	// ErrInvalidInput rejects blank usernames or passwords.
	ErrInvalidInput = errors.New("username and password are required")
)

// Service implements registration and login.
type Service struct {
	Repo db.Repository
}

// NewService constructs an auth service over the given repository.
func NewService(repo db.Repository) *Service {
	return &Service{Repo: repo}
}

// Register creates a new account.  The password is stored only as a bcrypt
// hash; the avatar glyph is derived from the gender tag.
func (s *Service) Register(ctx context.Context, req pkg.RegisterRequest) (*pkg.UserAccount, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account := &pkg.UserAccount{
		Username:     username,
		PasswordHash: string(hash),
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Gender:       req.Gender,
		Avatar:       avatarFor(req.Gender),
		CreatedAt:    time.Now(),
	}
	if account.DisplayName == "" {
		account.DisplayName = username
	}

	if err := s.Repo.CreateUser(ctx, account); err != nil {
		if errors.Is(err, db.ErrDuplicateUser) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return account, nil
}

// Authenticate returns the account iff the username exists and the password
// matches the stored hash.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*pkg.UserAccount, error) {
	u, err := s.Repo.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrAuthFailed
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrAuthFailed
	}
	return u, nil
}

func avatarFor(gender string) string {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "female", "f":
		return "👩‍⚕️"
	case "male", "m":
		return "👨‍⚕️"
	default:
		return "🧑‍⚕️"
	}
}
