// Package session performs the best-effort sign-in that unlocks the
// authenticated surface before the audit starts. Total failure is not an
// error: the audit degrades to the unauthenticated surface.
package session

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Credentials holds the audit account.
type Credentials struct {
	Email    string
	Password string
}

// Authenticator is the browser-side half of the bootstrap: it drives the
// login and signup forms.
type Authenticator interface {
	SignIn(ctx context.Context, creds Credentials) error
	SignUp(ctx context.Context, creds Credentials) error
}

// FromEnv loads credentials from DASHAUDIT_EMAIL / DASHAUDIT_PASSWORD,
// reading a .env file first if one is present.
func FromEnv() Credentials {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
	return Credentials{
		Email:    os.Getenv("DASHAUDIT_EMAIL"),
		Password: os.Getenv("DASHAUDIT_PASSWORD"),
	}
}

// Disposable generates throwaway signup credentials.
func Disposable() Credentials {
	id := uuid.NewString()[:8]
	return Credentials{
		Email:    "audit-" + id + "@example.test",
		Password: "Audit-" + uuid.NewString(),
	}
}

// Bootstrap attempts sign-in with creds, falls back to a disposable
// signup, and reports whether the audit runs authenticated. Informational
// only; it never gates the rest of the run.
func Bootstrap(ctx context.Context, auth Authenticator, creds Credentials, logger *log.Logger) bool {
	if creds.Email != "" && creds.Password != "" {
		err := auth.SignIn(ctx, creds)
		if err == nil {
			logger.Info("session bootstrap", "mode", "sign-in", "account", creds.Email)
			return true
		}
		logger.Warn("sign-in failed, trying disposable signup", "err", err)
	}

	disposable := Disposable()
	if err := auth.SignUp(ctx, disposable); err != nil {
		logger.Warn("session bootstrap failed, auditing unauthenticated", "err", err)
		return false
	}
	logger.Info("session bootstrap", "mode", "signup", "account", disposable.Email)
	return true
}
