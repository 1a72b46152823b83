// Package profile resolves the acting actor's display metadata for
// denormalized comment-author fields.
package profile

import (
	"context"
	"sync"
)

// Profile is the actor's display metadata. The zero value means unresolved;
// comments then record empty display fields and the UI falls back to the
// raw identifier.
type Profile struct {
	DisplayName string
	AvatarURL   string
}

// Resolver produces the current actor's profile.
type Resolver interface {
	ResolveCurrentActor(ctx context.Context) (Profile, error)
}

// Static is a Resolver for a fixed profile.
type Static Profile

func (s Static) ResolveCurrentActor(context.Context) (Profile, error) {
	return Profile(s), nil
}

// CachedResolver memoizes the first successful resolve from a fetch
// function. A failed fetch yields the zero Profile without an error so a
// comment can still be recorded; the next call retries.
type CachedResolver struct {
	mu       sync.Mutex
	fetch    func(ctx context.Context) (Profile, error)
	resolved bool
	profile  Profile
}

// NewCachedResolver wraps fetch with memoization.
func NewCachedResolver(fetch func(ctx context.Context) (Profile, error)) *CachedResolver {
	return &CachedResolver{fetch: fetch}
}

func (r *CachedResolver) ResolveCurrentActor(ctx context.Context) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved {
		return r.profile, nil
	}
	p, err := r.fetch(ctx)
	if err != nil {
		return Profile{}, nil
	}
	r.profile = p
	r.resolved = true
	return p, nil
}
