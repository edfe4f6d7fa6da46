package rbac

import (
	"context"
	"errors"

	"github.com/sopami/sopami/internal/shared"
)

// GrantReader is the slice of the store the guard needs.
type GrantReader interface {
	Grants(ctx context.Context, userID int64) (Grant, error)
}

// Guard decides allow/deny for an (identity, permission name) pair. It has
// no side effects and holds no cache: every check re-reads the current
// role and permission membership, so assignment changes take effect on the
// very next decision.
type Guard struct {
	store GrantReader
}

// NewGuard constructs a Guard over the given store.
func NewGuard(store GrantReader) *Guard {
	return &Guard{store: store}
}

// HasPermission returns nil when the user holds the named permission.
// Unknown identities deny with ErrUnauthenticated; verified identities
// without the permission deny with ErrForbidden. Superadmins are allowed
// unconditionally.
func (g *Guard) HasPermission(ctx context.Context, userID int64, name string) error {
	grant, err := g.store.Grants(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrUnauthenticated
		}
		return err
	}
	if grant.IsSuperadmin {
		return nil
	}
	// Linear scan over roles x permissions; per-user sets are small and
	// skipping a cache keeps demotions effective immediately.
	for _, role := range grant.Roles {
		for _, perm := range role.Permissions {
			if perm.Name == name {
				return nil
			}
		}
	}
	return shared.ErrForbidden
}

// EffectivePermissions returns the deduplicated permission names reachable
// from the user's roles. Superadmins report every core scope.
func (g *Guard) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	grant, err := g.store.Grants(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUnauthenticated
		}
		return nil, err
	}
	if grant.IsSuperadmin {
		return shared.CoreScopes(), nil
	}
	seen := make(map[string]struct{})
	var names []string
	for _, role := range grant.Roles {
		for _, perm := range role.Permissions {
			if _, ok := seen[perm.Name]; ok {
				continue
			}
			seen[perm.Name] = struct{}{}
			names = append(names, perm.Name)
		}
	}
	return names, nil
}
