package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/krishkalaria12/snap-edit/apperrors"
	"github.com/krishkalaria12/snap-edit/assets/assetstest"
	"github.com/krishkalaria12/snap-edit/logger"
	"github.com/krishkalaria12/snap-edit/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_GetChecksOwner(t *testing.T) {
	f := newFixture(t, nil)
	owner := storetest.SeedUser(t, f.db, "user_owner", 5)
	ctx := context.Background()

	s, err := f.sessions.Start(ctx, StartParams{Type: "restore", AuthorID: owner.ID})
	require.NoError(t, err)

	got, err := f.sessions.Get(s.ID(), owner.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = f.sessions.Get(s.ID(), "someone-else")
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = f.sessions.Get("missing", owner.ID)
	assert.True(t, apperrors.IsNotFound(err))

	f.sessions.Finish(s.ID())
	_, err = f.sessions.Get(s.ID(), owner.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSessions_StartValidates(t *testing.T) {
	f := newFixture(t, nil)
	owner := storetest.SeedUser(t, f.db, "user_owner", 5)
	other := storetest.SeedUser(t, f.db, "user_other", 5)
	image := storetest.SeedImages(t, f.db, owner.ID, 1)[0]
	ctx := context.Background()

	_, err := f.sessions.Start(ctx, StartParams{Type: "blur", AuthorID: owner.ID})
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.sessions.Start(ctx, StartParams{Type: "restore", ImageID: image.ID, AuthorID: other.ID})
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = f.sessions.Start(ctx, StartParams{Type: "recolor", ImageID: image.ID, AuthorID: owner.ID})
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.sessions.Start(ctx, StartParams{Type: "restore", ImageID: "missing", AuthorID: owner.ID})
	assert.True(t, apperrors.IsNotFound(err))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSessions_SweepDropsIdleSessions(t *testing.T) {
	repo, db := storetest.NewRepository(t)
	user := storetest.SeedUser(t, db, "user_idle", 5)
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	sessions := NewSessions(Deps{
		Repo:          repo,
		Assets:        assetstest.New(),
		Log:           logger.Discard(),
		DebounceDelay: time.Millisecond,
		Clock:         clock.Now,
	}, 30*time.Minute)
	ctx := context.Background()

	stale, err := sessions.Start(ctx, StartParams{Type: "restore", AuthorID: user.ID})
	require.NoError(t, err)
	clock.Advance(20 * time.Minute)
	active, err := sessions.Start(ctx, StartParams{Type: "restore", AuthorID: user.ID})
	require.NoError(t, err)

	clock.Advance(15 * time.Minute)
	assert.Equal(t, 1, sessions.Sweep())
	assert.Equal(t, 1, sessions.Len())

	_, err = sessions.Get(stale.ID(), user.ID)
	assert.True(t, apperrors.IsNotFound(err))

	clock.Advance(10 * time.Minute)
	require.NoError(t, active.SetTitle("still here"))
	clock.Advance(25 * time.Minute)
	assert.Zero(t, sessions.Sweep())
}
