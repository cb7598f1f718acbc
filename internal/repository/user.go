package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// Messages returned when a registration or profile update collides with an existing account.
const (
	MsgUsernameTaken = "That username is taken. Please choose a different one."
	MsgEmailTaken    = "That email is taken. Please choose a different one."
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id uint, passwordHash string) error
	Search(ctx context.Context, query string, limit int) ([]models.User, error)
	DeleteAccount(ctx context.Context, id uint) error
}

type userRepository struct {
	db    *gorm.DB
	cache *cache.Store
}

// NewUserRepository returns a new UserRepository implementation. store may wrap a nil client.
func NewUserRepository(db *gorm.DB, store *cache.Store) UserRepository {
	return &userRepository{db: db, cache: store}
}

// GetByID is cache-aside; the cached copy never carries the password hash.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.cache.Aside(ctx, "user", cache.UserKey(id), &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail returns (nil, nil) when no user has the email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

// GetByUsername returns (nil, nil) when no user has the username.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *userRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return mapUserWriteError(err)
	}
	return nil
}

// UpdateProfile persists username, email and image_file.
func (r *userRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Model(&models.User{ID: user.ID}).
		Select("username", "email", "image_file").
		Updates(map[string]any{
			"username":   user.Username,
			"email":      user.Email,
			"image_file": user.ImageFile,
		}).Error
	if err != nil {
		return mapUserWriteError(err)
	}
	_ = r.cache.Delete(ctx, cache.UserKey(user.ID))
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	res := r.db.WithContext(ctx).Model(&models.User{ID: id}).Update("password", passwordHash)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

// Search is a case-insensitive substring match on username, ordered by username.
func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	var users []models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(username) LIKE ? ESCAPE '\\'", pattern).
		Order("username ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// DeleteAccount removes every follow edge touching the user (adjusting the
// counterparties' counters), soft-deletes the user's posts and then the user.
// The username and email are rewritten to tombstone values that registration
// can never produce, so both are free to be claimed again.
// Comments and likes authored by the user are left in place.
func (r *userRepository) DeleteAccount(ctx context.Context, id uint) error {
	var touched []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return err
		}

		var followed, followers []uint
		if err := tx.Model(&models.Follow{}).Where("follower_id = ? AND followed_id <> ?", id, id).
			Pluck("followed_id", &followed).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Follow{}).Where("followed_id = ? AND follower_id <> ?", id, id).
			Pluck("follower_id", &followers).Error; err != nil {
			return err
		}

		if len(followed) > 0 {
			if err := tx.Model(&models.User{}).Where("id IN ? AND num_followers > 0", followed).
				UpdateColumn("num_followers", gorm.Expr("num_followers - 1")).Error; err != nil {
				return err
			}
		}
		if len(followers) > 0 {
			if err := tx.Model(&models.User{}).Where("id IN ? AND num_following > 0", followers).
				UpdateColumn("num_following", gorm.Expr("num_following - 1")).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("follower_id = ? OR followed_id = ?", id, id).Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&user).UpdateColumns(map[string]any{
			"username": tombstoneUsername(id),
			"email":    tombstoneEmail(id),
		}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&user).Error; err != nil {
			return err
		}

		touched = append(append(followed, followers...), id)
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return models.NewInternalError(err)
	}

	keys := make([]string, 0, len(touched))
	for _, uid := range touched {
		keys = append(keys, cache.UserKey(uid))
	}
	_ = r.cache.Delete(ctx, keys...)
	return nil
}

// Tombstones fall outside the username and email patterns accepted at signup.
func tombstoneUsername(id uint) string { return "~" + strconv.FormatUint(uint64(id), 10) }

func tombstoneEmail(id uint) string { return "deleted-" + strconv.FormatUint(uint64(id), 10) + "@invalid" }

func mapUserWriteError(err error) error {
	if dup, detail := uniqueViolation(err); dup {
		detail = strings.ToLower(detail)
		switch {
		case strings.Contains(detail, "email"):
			return models.NewValidationError(MsgEmailTaken)
		case strings.Contains(detail, "username"):
			return models.NewValidationError(MsgUsernameTaken)
		default:
			return models.NewValidationError("Username or email already in use")
		}
	}
	return models.NewInternalError(err)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
