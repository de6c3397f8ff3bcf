// Package gate authorizes operators in two steps: the user's profile must
// grant "resource:action", then the policy registered for the resource type,
// if any, may still refuse for the specific record.
package gate

import (
	"context"
	"fmt"
)

type Gate[U comparable] struct {
	resolver ProfileResolver[U]
	policies map[string]Policy[U]
}

func NewGate[U comparable](resolver ProfileResolver[U]) *Gate[U] {
	return &Gate[U]{resolver: resolver, policies: make(map[string]Policy[U])}
}

// Register sets the policy of a resource type, replacing any previous one.
func (g *Gate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// Authorize returns ErrUnauthenticated for the zero user, ErrForbidden when
// the profile lacks the permission, or the policy's error for resource.
// A nil resource skips the policy.
func (g *Gate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	if err := g.checkProfile(ctx, user, NewPermission(resourceType, action)); err != nil {
		return err
	}
	if resource == nil {
		return nil
	}
	if p, ok := g.policies[resourceType]; ok {
		return p.Check(ctx, user, action, resource)
	}
	return nil
}

// Can is Authorize without a resource, as a bool.
func (g *Gate[U]) Can(ctx context.Context, user U, action Action, resourceType string) bool {
	return g.Authorize(ctx, user, action, resourceType, nil) == nil
}

// IsAdmin reports whether the user holds "*:*".
func (g *Gate[U]) IsAdmin(ctx context.Context, user U) bool {
	return g.checkProfile(ctx, user, PermissionSuperAdmin) == nil
}

func (g *Gate[U]) checkProfile(ctx context.Context, user U, perm Permission) error {
	var zero U
	if user == zero {
		return ErrUnauthenticated
	}
	profile, err := g.resolver.Resolve(ctx, user)
	if err != nil {
		return fmt.Errorf("resolve profile: %w", err)
	}
	if profile == nil || !profile.HasPermission(perm) {
		return fmt.Errorf("%s: %w", perm, ErrForbidden)
	}
	return nil
}
