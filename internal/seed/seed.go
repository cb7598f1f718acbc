package seed

import (
	"context"
	"fmt"

	"inkwell/internal/cache"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"

	"gorm.io/gorm"
)

// Options sizes a random seed run.
type Options struct {
	NumUsers        int
	PostsPerUser    int
	FollowsPerUser  int
	CommentsPerPost int
	LikesPerPost    int
	MaxDays         int
	RandSeed        int64
	BcryptCost      int
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Posts    int
	Follows  int
	Comments int
	Likes    int
}

// Seeder writes through the repositories so counters stay consistent.
type Seeder struct {
	db       *gorm.DB
	users    repository.UserRepository
	follows  repository.FollowRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	likes    repository.LikeRepository
	factory  *Factory
}

// NewSeeder returns a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	store := cache.NewStore(nil)
	return &Seeder{
		db:       db,
		users:    repository.NewUserRepository(db, store),
		follows:  repository.NewFollowRepository(db, store),
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		likes:    repository.NewLikeRepository(db),
		factory:  NewFactory(opts.RandSeed, opts.BcryptCost, opts.MaxDays),
	}
}

// ClearAll hard-deletes every row of the domain tables.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tables := []any{&models.Like{}, &models.Comment{}, &models.Follow{}, &models.Post{}, &models.User{}}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range tables {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(t).Error; err != nil {
				return fmt.Errorf("clear %T: %w", t, err)
			}
		}
		return nil
	})
}

// Random creates a social mesh of fake users with posts, follows, comments and likes.
func (s *Seeder) Random(ctx context.Context, opts Options) (*Summary, error) {
	sum := &Summary{}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := s.factory.BuildUser()
		if err != nil {
			return sum, err
		}
		if err := s.users.Create(ctx, u); err != nil {
			// Random names can collide; skip the duplicate and carry on
			if models.IsCode(err, models.CodeValidation) {
				continue
			}
			return sum, err
		}
		users = append(users, u)
	}
	sum.Users = len(users)

	for _, u := range users {
		for _, target := range s.factory.Pick(users, opts.FollowsPerUser, u.ID) {
			created, err := s.follows.Follow(ctx, u.ID, target.ID)
			if err != nil {
				return sum, err
			}
			if created {
				sum.Follows++
			}
		}
	}

	for _, u := range users {
		for i := 0; i < opts.PostsPerUser; i++ {
			post := s.factory.BuildPost(u)
			if err := s.posts.Create(ctx, post); err != nil {
				return sum, err
			}
			sum.Posts++

			for _, c := range s.factory.Pick(users, s.factory.Intn(0, opts.CommentsPerPost), 0) {
				if err := s.comments.Create(ctx, s.factory.BuildComment(c, post)); err != nil {
					return sum, err
				}
				sum.Comments++
			}
			for _, l := range s.factory.Pick(users, s.factory.Intn(0, opts.LikesPerPost), 0) {
				if err := s.likes.Create(ctx, l.ID, post.ID); err != nil {
					return sum, err
				}
				sum.Likes++
			}
		}
	}

	middleware.Logger.InfoContext(ctx, "random seed complete",
		"users", sum.Users, "posts", sum.Posts, "follows", sum.Follows,
		"comments", sum.Comments, "likes", sum.Likes)
	return sum, nil
}
