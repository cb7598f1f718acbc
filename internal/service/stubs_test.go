package service

import (
	"context"
	"sync"
	"testing"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/database"
	"inkwell/internal/featureflags"
	"inkwell/internal/imaging"
	"inkwell/internal/mailer"
	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "service-test-secret-key-0123456789"

type userRepoStub struct {
	getByIDFn        func(context.Context, uint) (*models.User, error)
	getByEmailFn     func(context.Context, string) (*models.User, error)
	getByUsernameFn  func(context.Context, string) (*models.User, error)
	createFn         func(context.Context, *models.User) error
	updateProfileFn  func(context.Context, *models.User) error
	updatePasswordFn func(context.Context, uint, string) error
	searchFn         func(context.Context, string, int) ([]models.User, error)
	deleteAccountFn  func(context.Context, uint) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	if s.getByIDFn == nil {
		return nil, models.NewNotFoundError("User", id)
	}
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.getByEmailFn == nil {
		return nil, nil
	}
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if s.getByUsernameFn == nil {
		return nil, nil
	}
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateProfile(ctx context.Context, user *models.User) error {
	if s.updateProfileFn == nil {
		return nil
	}
	return s.updateProfileFn(ctx, user)
}
func (s *userRepoStub) UpdatePassword(ctx context.Context, id uint, hash string) error {
	if s.updatePasswordFn == nil {
		return nil
	}
	return s.updatePasswordFn(ctx, id, hash)
}
func (s *userRepoStub) Search(ctx context.Context, q string, limit int) ([]models.User, error) {
	if s.searchFn == nil {
		return nil, nil
	}
	return s.searchFn(ctx, q, limit)
}
func (s *userRepoStub) DeleteAccount(ctx context.Context, id uint) error {
	if s.deleteAccountFn == nil {
		return nil
	}
	return s.deleteAccountFn(ctx, id)
}

type postRepoStub struct {
	repository.PostRepository
	getByIDFn func(context.Context, uint) (*models.Post, error)
	updateFn  func(context.Context, *models.Post) error
	deleteFn  func(context.Context, uint) error
}

func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) Update(ctx context.Context, p *models.Post) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, p)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id)
}

type likeRepoStub struct {
	hasLikedFn func(context.Context, uint, uint) (bool, error)

	mu   sync.Mutex
	rows []models.Like
}

func (s *likeRepoStub) HasLiked(ctx context.Context, userID, postID uint) (bool, error) {
	if s.hasLikedFn != nil {
		return s.hasLikedFn(ctx, userID, postID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.rows {
		if l.UserID == userID && l.PostID == postID {
			return true, nil
		}
	}
	return false, nil
}
func (s *likeRepoStub) Create(_ context.Context, userID, postID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, models.Like{UserID: userID, PostID: postID})
	return nil
}
func (s *likeRepoStub) CountForPost(_ context.Context, postID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, l := range s.rows {
		if l.PostID == postID {
			n++
		}
	}
	return n, nil
}

type imageStoreStub struct {
	saved   []string
	removed []string
	err     error
}

func (s *imageStoreStub) SaveAvatar(imaging.Upload, imaging.Options) (string, error) {
	return s.save("avatar.png")
}
func (s *imageStoreStub) SavePostImage(_ imaging.Upload, opts imaging.Options) (string, error) {
	if opts.WebP {
		return s.save("post.webp")
	}
	return s.save("post.png")
}
func (s *imageStoreStub) save(name string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.saved = append(s.saved, name)
	return name, nil
}
func (s *imageStoreStub) Remove(_ string, name string) {
	s.removed = append(s.removed, name)
}

type mailRecorder struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *mailRecorder) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLiteMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type testRepos struct {
	users    repository.UserRepository
	follows  repository.FollowRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	likes    repository.LikeRepository
}

func newRepos(db *gorm.DB) testRepos {
	store := cache.NewStore(nil)
	return testRepos{
		users:    repository.NewUserRepository(db, store),
		follows:  repository.NewFollowRepository(db, store),
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		likes:    repository.NewLikeRepository(db),
	}
}

func newAuthService(users repository.UserRepository, tokens *auth.TokenManager, revoked *cache.RevocationList, mail mailer.Mailer, flags string) *AuthService {
	return NewAuthService(users, auth.NewPasswordHasher(4), tokens, revoked, mail, featureflags.NewManager(flags), AuthSettings{
		PublicBaseURL: "http://localhost:8375/",
	})
}

func mustRegister(t *testing.T, svc *AuthService, username string) *models.User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{
		Username:        username,
		Email:           username + "@example.com",
		Password:        "password-" + username,
		ConfirmPassword: "password-" + username,
	})
	require.NoError(t, err)
	return u
}
