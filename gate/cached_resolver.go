package gate

import (
	"context"
	"sync"
	"time"
)

// Membership reports the profile a user holds right now, 0 for none.
type Membership[U comparable] func(ctx context.Context, user U) (uint, error)

// CachedResolver keeps resolved profiles for ttl so permission checks do not
// load permissions from the database on every request.
//
// With a Membership the cache is keyed by profile ID: every lookup asks which
// profile the user holds, and only the permission set is cached. Reassigning a
// user then takes effect on the next request without any invalidation.
type CachedResolver[U comparable] struct {
	inner  ProfileResolver[U]
	member Membership[U]
	ttl    time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	users    map[U]cacheEntry
	profiles map[uint]cacheEntry
}

type cacheEntry struct {
	profile   Profile
	expiresAt time.Time
}

func NewCachedResolver[U comparable](inner ProfileResolver[U], ttl time.Duration) *CachedResolver[U] {
	return &CachedResolver[U]{
		inner:    inner,
		ttl:      ttl,
		now:      time.Now,
		users:    make(map[U]cacheEntry),
		profiles: make(map[uint]cacheEntry),
	}
}

// WithMembership switches the cache to profile keys.
func (r *CachedResolver[U]) WithMembership(m Membership[U]) *CachedResolver[U] {
	r.member = m
	return r
}

func (r *CachedResolver[U]) Resolve(ctx context.Context, user U) (Profile, error) {
	if r.member != nil {
		return r.resolveByProfile(ctx, user)
	}

	r.mu.RLock()
	e, ok := r.users[user]
	r.mu.RUnlock()
	if ok && r.now().Before(e.expiresAt) {
		return e.profile, nil
	}

	p, err := r.inner.Resolve(ctx, user)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.users[user] = cacheEntry{profile: p, expiresAt: r.now().Add(r.ttl)}
	r.mu.Unlock()
	return p, nil
}

func (r *CachedResolver[U]) resolveByProfile(ctx context.Context, user U) (Profile, error) {
	id, err := r.member(ctx, user)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, nil
	}

	r.mu.RLock()
	e, ok := r.profiles[id]
	r.mu.RUnlock()
	if ok && r.now().Before(e.expiresAt) {
		return e.profile, nil
	}

	p, err := r.inner.Resolve(ctx, user)
	if err != nil || p == nil {
		return p, err
	}
	// The user may have moved between the two reads; file under what was loaded.
	r.mu.Lock()
	r.profiles[p.ID()] = cacheEntry{profile: p, expiresAt: r.now().Add(r.ttl)}
	r.mu.Unlock()
	return p, nil
}

// Invalidate drops one user from the user-keyed cache.
func (r *CachedResolver[U]) Invalidate(user U) {
	r.mu.Lock()
	delete(r.users, user)
	r.mu.Unlock()
}

// InvalidateProfile drops one profile, after its permissions changed.
func (r *CachedResolver[U]) InvalidateProfile(id uint) {
	r.mu.Lock()
	delete(r.profiles, id)
	r.mu.Unlock()
}

// InvalidateAll drops every entry.
func (r *CachedResolver[U]) InvalidateAll() {
	r.mu.Lock()
	r.users = make(map[U]cacheEntry)
	r.profiles = make(map[uint]cacheEntry)
	r.mu.Unlock()
}
