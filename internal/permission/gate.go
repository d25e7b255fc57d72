// Package permission implements the gate in front of every catalog
// mutation. An actor may mutate when the remote store's admin directory
// recognises its elevated claim, or when it presents the local fallback
// admin token and that fallback is enabled.
package permission

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// RoleAdmin is the elevated role claim forwarded by the gateway.
const RoleAdmin = "admin"

// FallbackActor is recorded as the author of writes made with the
// fallback token.
const FallbackActor = "fallback-admin"

// Session is the capability context of one caller.
type Session struct {
	UserID     string
	Role       string
	AdminToken string
}

type sessionKey struct{}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session attached to ctx.
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// AdminDirectory is the remote store's view of who holds the admin claim.
type AdminDirectory interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// Gate implements catalog.Gate.
type Gate struct {
	admins          AdminDirectory
	fallbackEnabled bool
	tokenHash       []byte
	logger          *slog.Logger
}

// NewGate returns a Gate. tokenHash is a bcrypt hash of the fallback token;
// the fallback is unusable while it is empty.
func NewGate(admins AdminDirectory, fallbackEnabled bool, tokenHash string, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		admins:          admins,
		fallbackEnabled: fallbackEnabled,
		tokenHash:       []byte(tokenHash),
		logger:          logger,
	}
}

// CanMutate checks the elevated claim first, then the fallback token.
func (g *Gate) CanMutate(ctx context.Context) bool {
	s, ok := SessionFrom(ctx)
	if !ok {
		return false
	}
	return g.elevated(ctx, s) || g.fallback(s)
}

// Actor names the caller for CreatedBy / LastUpdatedBy.
func (g *Gate) Actor(ctx context.Context) string {
	s, _ := SessionFrom(ctx)
	switch {
	case s.UserID != "":
		return s.UserID
	case s.AdminToken != "":
		return FallbackActor
	}
	return "anonymous"
}

func (g *Gate) elevated(ctx context.Context, s Session) bool {
	if s.UserID == "" || s.Role != RoleAdmin || g.admins == nil {
		return false
	}
	ok, err := g.admins.IsAdmin(ctx, s.UserID)
	if err != nil {
		g.logger.Warn("admin lookup failed", "userId", s.UserID, "err", err)
		return false
	}
	return ok
}

func (g *Gate) fallback(s Session) bool {
	if !g.fallbackEnabled || len(g.tokenHash) == 0 || s.AdminToken == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(g.tokenHash, []byte(s.AdminToken)) == nil
}

// HashToken returns the bcrypt hash to configure as the fallback token hash.
func HashToken(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("token must not be empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(h), nil
}
