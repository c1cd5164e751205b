// Package authz answers one question: is this identity an administrator.
package authz

import (
	"context"
	"log/slog"
)

// MembershipStore looks up administrator membership for an identity.
type MembershipStore interface {
	IsMember(ctx context.Context, uid string) (bool, error)
}

type Checker struct {
	store  MembershipStore
	logger *slog.Logger
}

func NewChecker(store MembershipStore, logger *slog.Logger) *Checker {
	return &Checker{store: store, logger: logger}
}

// IsAdministrator returns true iff uid has an admin membership record.
// A failed lookup denies: returning false on storage errors keeps the
// permission check fail-closed instead of surfacing an internal error.
func (c *Checker) IsAdministrator(ctx context.Context, uid string) bool {
	if uid == "" {
		return false
	}
	ok, err := c.store.IsMember(ctx, uid)
	if err != nil {
		c.logger.Warn("admin membership lookup failed, denying", "err", err, "uid", uid)
		return false
	}
	return ok
}
