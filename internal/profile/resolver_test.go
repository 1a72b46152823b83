package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedResolver_MemoizesFirstSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	r := NewCachedResolver(func(context.Context) (Profile, error) {
		calls++
		return Profile{DisplayName: "User A", AvatarURL: "https://cdn/a.png"}, nil
	})

	p, err := r.ResolveCurrentActor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "User A", p.DisplayName)

	_, err = r.ResolveCurrentActor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestCachedResolver_FailureYieldsZeroAndRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	r := NewCachedResolver(func(context.Context) (Profile, error) {
		calls++
		if calls == 1 {
			return Profile{}, errors.New("profile service down")
		}
		return Profile{DisplayName: "User A"}, nil
	})

	p, err := r.ResolveCurrentActor(context.Background())
	require.NoError(t, err, "a failed resolve is not fatal to the caller")
	assert.Empty(t, p.DisplayName)

	p, err = r.ResolveCurrentActor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "User A", p.DisplayName)
	assert.Equal(t, 2, calls)
}

func TestStatic(t *testing.T) {
	t.Parallel()

	p, err := Static{DisplayName: "Fixed"}.ResolveCurrentActor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Fixed", p.DisplayName)
}
