package auth

import (
	"context"
	"errors"
	"testing"

	"pharmaflow-tutor/internal/db"
	"pharmaflow-tutor/pkg"
)

func testService(t *testing.T) *Service {
	t.Helper()
	return NewService(db.NewMemoryRepository())
}

func TestRegisterAndAuthenticate(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	account, err := s.Register(ctx, pkg.RegisterRequest{
		Username:    "anna",
		Password:    "s3cret-pass",
		DisplayName: "Anna",
		Gender:      "female",
	})
	if err != nil {
		t.Fatal(err)
	}
	if account.PasswordHash == "s3cret-pass" {
		t.Fatal("password must not be stored in the clear")
	}
	if account.Avatar != "👩‍⚕️" {
		t.Errorf("unexpected avatar %q", account.Avatar)
	}

	got, err := s.Authenticate(ctx, "anna", "s3cret-pass")
	if err != nil {
		t.Fatal(err)
	}
	if got.Username != "anna" || got.DisplayName != "Anna" {
		t.Errorf("unexpected account %+v", got)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	if _, err := s.Register(ctx, pkg.RegisterRequest{Username: "anna", Password: "one"}); err != nil {
		t.Fatal(err)
	}
	// Same username with a different password and name still conflicts.
	_, err := s.Register(ctx, pkg.RegisterRequest{Username: "anna", Password: "two", DisplayName: "Other"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	if _, err := s.Register(ctx, pkg.RegisterRequest{Username: "anna", Password: "s3cret-pass"}); err != nil {
		t.Fatal(err)
	}

	// Any single-character change must flip the result to failure.
	for _, pw := range []string{"s3cret-pasz", "S3cret-pass", "s3cret-pas", ""} {
		if _, err := s.Authenticate(ctx, "anna", pw); !errors.Is(err, ErrAuthFailed) {
			t.Errorf("password %q: expected ErrAuthFailed, got %v", pw, err)
		}
	}
}

func TestAuthenticateUnknownUser(t *testing.T) {
	s := testService(t)
	if _, err := s.Authenticate(context.Background(), "ghost", "whatever"); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}

func TestRegisterRejectsBlankInput(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	cases := []pkg.RegisterRequest{
		{Username: "", Password: "pw"},
		{Username: "   ", Password: "pw"},
		{Username: "anna", Password: ""},
	}
	for _, req := range cases {
		if _, err := s.Register(ctx, req); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("register %+v: expected ErrInvalidInput, got %v", req, err)
		}
	}
}

func TestAvatarDerivation(t *testing.T) {
	cases := map[string]string{
		"female": "👩‍⚕️",
		"M":      "👨‍⚕️",
		"other":  "🧑‍⚕️",
		"":       "🧑‍⚕️",
	}
	for gender, want := range cases {
		if got := avatarFor(gender); got != want {
			t.Errorf("avatarFor(%q) = %q, want %q", gender, got, want)
		}
	}
}
