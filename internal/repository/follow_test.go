package repository

import (
	"context"
	"testing"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowRepository_FollowImpliesBothDirections(t *testing.T) {
	db := setupSQLite(t)
	repo := NewFollowRepository(db, cache.NewStore(nil))
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	created, err := repo.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)

	following, err := repo.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	followedBy, err := repo.IsFollowedBy(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, followedBy)

	// The edge is directed
	reverse, err := repo.IsFollowing(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, reverse)
}

func TestFollowRepository_FollowIsIdempotent(t *testing.T) {
	db := setupSQLite(t)
	repo := NewFollowRepository(db, cache.NewStore(nil))
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	created, err := repo.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, created)

	var edges int64
	require.NoError(t, db.Model(&models.Follow{}).Where("follower_id = ? AND followed_id = ?", alice.ID, bob.ID).Count(&edges).Error)
	assert.Equal(t, int64(1), edges)

	assert.Equal(t, 1, reloadUser(t, db, alice.ID).NumFollowing)
	assert.Equal(t, 1, reloadUser(t, db, bob.ID).NumFollowers)
}

func TestFollowRepository_UnfollowWithoutEdgeIsNoop(t *testing.T) {
	db := setupSQLite(t)
	repo := NewFollowRepository(db, cache.NewStore(nil))
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	removed, err := repo.Unfollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	following, err := repo.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)
	assert.Equal(t, 0, reloadUser(t, db, alice.ID).NumFollowing)
	assert.Equal(t, 0, reloadUser(t, db, bob.ID).NumFollowers)
}

func TestFollowRepository_UnfollowRemovesEdgeAndCounters(t *testing.T) {
	db := setupSQLite(t)
	repo := NewFollowRepository(db, cache.NewStore(nil))
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	_, err := repo.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	removed, err := repo.Unfollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	following, err := repo.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)
	assert.Equal(t, 0, reloadUser(t, db, alice.ID).NumFollowing)
	assert.Equal(t, 0, reloadUser(t, db, bob.ID).NumFollowers)
}

func TestFollowRepository_SelfLoopAllowed(t *testing.T) {
	db := setupSQLite(t)
	repo := NewFollowRepository(db, cache.NewStore(nil))
	ctx := context.Background()
	alice := createUser(t, db, "alice")

	created, err := repo.Follow(ctx, alice.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, created)

	self, err := repo.IsFollowing(ctx, alice.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, self)
}

func TestFollowRepository_FollowedIDsAndLists(t *testing.T) {
	db := setupSQLite(t)
	repo := NewFollowRepository(db, cache.NewStore(nil))
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")

	_, err := repo.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = repo.Follow(ctx, alice.ID, carol.ID)
	require.NoError(t, err)
	_, err = repo.Follow(ctx, carol.ID, bob.ID)
	require.NoError(t, err)

	ids, err := repo.FollowedIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{bob.ID, carol.ID}, ids)

	none, err := repo.FollowedIDs(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, none)

	followers, err := repo.Followers(ctx, bob.ID, models.NewPageRequest(1, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(2), followers.Total)
	names := []string{followers.Items[0].Username, followers.Items[1].Username}
	assert.ElementsMatch(t, []string{"alice", "carol"}, names)

	following, err := repo.Following(ctx, alice.ID, models.NewPageRequest(1, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), following.Total)
	assert.Len(t, following.Items, 1)
	assert.True(t, following.HasNext)
}

func TestFollowRepository_InvalidatesCachedCounters(t *testing.T) {
	db := setupSQLite(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := cache.NewStore(rdb)

	users := NewUserRepository(db, store)
	follows := NewFollowRepository(db, store)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	cached, err := users.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, cached.NumFollowers)
	assert.True(t, mr.Exists(cache.UserKey(bob.ID)))

	_, err = follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.UserKey(bob.ID)))

	fresh, err := users.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.NumFollowers)
}
