package gate

import (
	"context"
	"sort"
)

// Profile is a named set of permissions assigned to operators.
type Profile interface {
	ID() uint
	Name() string
	HasPermission(Permission) bool
	Permissions() []Permission
}

// ProfileResolver finds the profile of a user. A nil profile with a nil error means none is assigned.
type ProfileResolver[U comparable] interface {
	Resolve(ctx context.Context, user U) (Profile, error)
}

// StaticProfile is an in-memory Profile.
type StaticProfile struct {
	id          uint
	name        string
	permissions map[Permission]struct{}
}

func NewStaticProfile(id uint, name string, perms ...Permission) *StaticProfile {
	p := &StaticProfile{id: id, name: name, permissions: make(map[Permission]struct{}, len(perms))}
	for _, perm := range perms {
		p.permissions[perm] = struct{}{}
	}
	return p
}

func (p *StaticProfile) ID() uint     { return p.id }
func (p *StaticProfile) Name() string { return p.name }

// Permissions returns the granted permissions sorted.
func (p *StaticProfile) Permissions() []Permission {
	out := make([]Permission, 0, len(p.permissions))
	for perm := range p.permissions {
		out = append(out, perm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (p *StaticProfile) HasPermission(requested Permission) bool {
	return AnyMatches(p.Permissions(), requested)
}

// AnyMatches reports whether one of granted matches requested.
func AnyMatches(granted []Permission, requested Permission) bool {
	for _, g := range granted {
		if g.Matches(requested) {
			return true
		}
	}
	return false
}

// StaticResolver maps users to fixed profiles. Used by tests and the offline CLI.
type StaticResolver[U comparable] struct {
	profiles map[U]Profile
}

func NewStaticResolver[U comparable]() *StaticResolver[U] {
	return &StaticResolver[U]{profiles: make(map[U]Profile)}
}

func (r *StaticResolver[U]) Set(user U, p Profile) { r.profiles[user] = p }

func (r *StaticResolver[U]) Resolve(_ context.Context, user U) (Profile, error) {
	return r.profiles[user], nil
}
