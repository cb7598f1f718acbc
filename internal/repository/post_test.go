package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_CreatePostgres(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	post := &models.Post{Title: "Test Post", Content: "Content", UserID: 1}
	require.NoError(t, repo.Create(context.Background(), post))
	assert.Equal(t, uint(1), post.ID)
	assert.Equal(t, models.DefaultImageFile, post.ImageFile)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListByAuthorsOrderingAndPaging(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	createPost(t, db, bob, "b1", base)
	createPost(t, db, carol, "c1", base.Add(time.Hour))
	createPost(t, db, alice, "a1", base.Add(2*time.Hour))
	createPost(t, db, bob, "b2", base.Add(3*time.Hour))

	page, err := repo.ListByAuthors(ctx, []uint{bob.ID, carol.ID}, models.NewPageRequest(1, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.Pages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "b2", page.Items[0].Title)
	assert.Equal(t, "c1", page.Items[1].Title)
	assert.Equal(t, "carol", page.Items[1].Author.Username)

	page, err = repo.ListByAuthors(ctx, []uint{bob.ID, carol.ID}, models.NewPageRequest(2, 2))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "b1", page.Items[0].Title)

	empty, err := repo.ListByAuthors(ctx, nil, models.NewPageRequest(1, 20))
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Zero(t, empty.Total)
}

func TestPostRepository_UpdateDeleteAndCount(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	post := createPost(t, db, alice, "draft", time.Now())

	post.Title = "final"
	post.Content = "edited"
	require.NoError(t, repo.Update(ctx, post))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Title)
	assert.Equal(t, "edited", got.Content)
	assert.Equal(t, alice.ID, got.Author.ID)

	n, err := repo.CountByAuthor(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.Delete(ctx, post.ID))
	_, err = repo.GetByID(ctx, post.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	assert.True(t, models.IsCode(repo.Delete(ctx, post.ID), models.CodeNotFound))
	assert.True(t, models.IsCode(repo.Update(ctx, &models.Post{ID: 999, Title: "x"}), models.CodeNotFound))
}
