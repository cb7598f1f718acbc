package repository

import (
	"context"
	"regexp"
	"strconv"
	"testing"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateUniqueViolationPostgres(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		want       string
	}{
		{"email", "idx_users_email", MsgEmailTaken},
		{"username", "idx_users_username", MsgUsernameTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewUserRepository(db, cache.NewStore(nil))

			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})
			mock.ExpectRollback()

			err := repo.Create(context.Background(), &models.User{Username: "alice", Email: "a@example.com", Password: "x"})
			require.Error(t, err)
			assert.True(t, models.IsCode(err, models.CodeValidation))
			assert.Equal(t, tt.want, err.Error())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByEmailNotFoundPostgres(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db, cache.NewStore(nil))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1 AND "users"."deleted_at" IS NULL`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	user, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateDuplicateSQLite(t *testing.T) {
	db := setupSQLite(t)
	repo := NewUserRepository(db, cache.NewStore(nil))
	ctx := context.Background()
	createUser(t, db, "alice")

	err := repo.Create(ctx, &models.User{Username: "alice", Email: "other@example.com", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, MsgUsernameTaken, err.Error())

	err = repo.Create(ctx, &models.User{Username: "alice2", Email: "alice@example.com", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, MsgEmailTaken, err.Error())
}

func TestUserRepository_DefaultsAndLookups(t *testing.T) {
	db := setupSQLite(t)
	repo := NewUserRepository(db, cache.NewStore(nil))
	ctx := context.Background()
	alice := createUser(t, db, "alice")

	assert.Equal(t, models.DefaultImageFile, alice.ImageFile)

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, alice.ID, byName.ID)

	missing, err := repo.GetByUsername(ctx, "nobody")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.GetByID(ctx, 999)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestUserRepository_UpdateProfileAndPassword(t *testing.T) {
	db := setupSQLite(t)
	repo := NewUserRepository(db, cache.NewStore(nil))
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	createUser(t, db, "bob")

	alice.Username = "alicia"
	alice.ImageFile = "0123456789abcdef.png"
	require.NoError(t, repo.UpdateProfile(ctx, alice))

	got := reloadUser(t, db, alice.ID)
	assert.Equal(t, "alicia", got.Username)
	assert.Equal(t, "0123456789abcdef.png", got.ImageFile)
	assert.Equal(t, "hash", got.Password)

	alice.Email = "bob@example.com"
	err := repo.UpdateProfile(ctx, alice)
	assert.Equal(t, MsgEmailTaken, err.Error())

	require.NoError(t, repo.UpdatePassword(ctx, alice.ID, "newhash"))
	assert.Equal(t, "newhash", reloadUser(t, db, alice.ID).Password)

	err = repo.UpdatePassword(ctx, 999, "x")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestUserRepository_Search(t *testing.T) {
	db := setupSQLite(t)
	repo := NewUserRepository(db, cache.NewStore(nil))
	ctx := context.Background()
	createUser(t, db, "alice")
	createUser(t, db, "malice")
	createUser(t, db, "bob")
	createUser(t, db, "a_b")

	users, err := repo.Search(ctx, "LIC", 10)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "malice", users[1].Username)

	// LIKE wildcards in the query are literal
	users, err = repo.Search(ctx, "_", 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "a_b", users[0].Username)
}

func TestUserRepository_DeleteAccount(t *testing.T) {
	db := setupSQLite(t)
	users := NewUserRepository(db, cache.NewStore(nil))
	follows := NewFollowRepository(db, cache.NewStore(nil))
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")

	_, err := follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = follows.Follow(ctx, carol.ID, alice.ID)
	require.NoError(t, err)
	_, err = follows.Follow(ctx, carol.ID, bob.ID)
	require.NoError(t, err)
	post := createPost(t, db, alice, "bye", time.Now())
	require.NoError(t, NewCommentRepository(db).Create(ctx, &models.Comment{Content: "hi", UserID: alice.ID, PostID: post.ID}))

	require.NoError(t, users.DeleteAccount(ctx, alice.ID))

	_, err = users.GetByID(ctx, alice.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	var edges int64
	require.NoError(t, db.Model(&models.Follow{}).Where("follower_id = ? OR followed_id = ?", alice.ID, alice.ID).Count(&edges).Error)
	assert.Zero(t, edges)

	assert.Equal(t, 1, reloadUser(t, db, bob.ID).NumFollowers)
	assert.Equal(t, 1, reloadUser(t, db, carol.ID).NumFollowing)

	_, err = NewPostRepository(db).GetByID(ctx, post.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	// Comments are left in place
	var comments int64
	require.NoError(t, db.Model(&models.Comment{}).Where("user_id = ?", alice.ID).Count(&comments).Error)
	assert.Equal(t, int64(1), comments)

	err = users.DeleteAccount(ctx, alice.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	var gone models.User
	require.NoError(t, db.Unscoped().First(&gone, alice.ID).Error)
	assert.Equal(t, "~"+strconv.FormatUint(uint64(alice.ID), 10), gone.Username)
	assert.NotEqual(t, "alice@example.com", gone.Email)
	assert.True(t, gone.DeletedAt.Valid)
}
