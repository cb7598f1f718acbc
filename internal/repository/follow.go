package repository

import (
	"context"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository is the social graph: directed follower -> followed edges
// plus the denormalized follower/following counters on users.
//
// The repository does not reject self-loops; callers that want to forbid
// following oneself must check before calling Follow.
type FollowRepository interface {
	// Follow creates the edge if absent. created is false when it already existed.
	Follow(ctx context.Context, followerID, followedID uint) (created bool, err error)
	// Unfollow removes the edge if present. removed is false when there was none.
	Unfollow(ctx context.Context, followerID, followedID uint) (removed bool, err error)
	// IsFollowing reports whether actor -> target exists.
	IsFollowing(ctx context.Context, actorID, targetID uint) (bool, error)
	// IsFollowedBy reports whether target -> actor exists.
	IsFollowedBy(ctx context.Context, actorID, targetID uint) (bool, error)
	// FollowedIDs lists everyone actor follows.
	FollowedIDs(ctx context.Context, actorID uint) ([]uint, error)
	Followers(ctx context.Context, userID uint, page models.PageRequest) (models.Page[models.User], error)
	Following(ctx context.Context, userID uint, page models.PageRequest) (models.Page[models.User], error)
}

type followRepository struct {
	db    *gorm.DB
	cache *cache.Store
}

// NewFollowRepository returns a new FollowRepository implementation.
func NewFollowRepository(db *gorm.DB, store *cache.Store) FollowRepository {
	return &followRepository{db: db, cache: store}
}

func (r *followRepository) Follow(ctx context.Context, followerID, followedID uint) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Follow{FollowerID: followerID, FollowedID: followedID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		return adjustCounters(tx, followerID, followedID, "+")
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if created {
		r.invalidate(ctx, followerID, followedID)
	}
	return created, nil
}

func (r *followRepository) Unfollow(ctx context.Context, followerID, followedID uint) (bool, error) {
	removed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("follower_id = ? AND followed_id = ?", followerID, followedID).
			Delete(&models.Follow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return adjustCounters(tx, followerID, followedID, "-")
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if removed {
		r.invalidate(ctx, followerID, followedID)
	}
	return removed, nil
}

func adjustCounters(tx *gorm.DB, followerID, followedID uint, op string) error {
	following := tx.Model(&models.User{}).Where("id = ?", followerID)
	followers := tx.Model(&models.User{}).Where("id = ?", followedID)
	if op == "-" {
		following = following.Where("num_following > 0")
		followers = followers.Where("num_followers > 0")
	}
	if err := following.UpdateColumn("num_following", gorm.Expr("num_following "+op+" 1")).Error; err != nil {
		return err
	}
	return followers.UpdateColumn("num_followers", gorm.Expr("num_followers "+op+" 1")).Error
}

func (r *followRepository) invalidate(ctx context.Context, ids ...uint) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, cache.UserKey(id))
	}
	_ = r.cache.Delete(ctx, keys...)
}

func (r *followRepository) IsFollowing(ctx context.Context, actorID, targetID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", actorID, targetID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *followRepository) IsFollowedBy(ctx context.Context, actorID, targetID uint) (bool, error) {
	return r.IsFollowing(ctx, targetID, actorID)
}

func (r *followRepository) FollowedIDs(ctx context.Context, actorID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", actorID).
		Order("followed_id ASC").
		Pluck("followed_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *followRepository) Followers(ctx context.Context, userID uint, page models.PageRequest) (models.Page[models.User], error) {
	return r.listUsers(ctx, "follows.follower_id = users.id", "follows.followed_id = ?", userID, page)
}

func (r *followRepository) Following(ctx context.Context, userID uint, page models.PageRequest) (models.Page[models.User], error) {
	return r.listUsers(ctx, "follows.followed_id = users.id", "follows.follower_id = ?", userID, page)
}

// listUsers returns the users on the other end of userID's edges, most recent edge first.
func (r *followRepository) listUsers(ctx context.Context, join, where string, userID uint, page models.PageRequest) (models.Page[models.User], error) {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.User{}).
			Joins("JOIN follows ON "+join).
			Where(where, userID)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return models.Page[models.User]{}, models.NewInternalError(err)
	}

	var users []models.User
	err := base().
		Order("follows.created_at DESC").
		Order("users.id DESC").
		Offset(page.Offset()).
		Limit(page.PerPage).
		Find(&users).Error
	if err != nil {
		return models.Page[models.User]{}, models.NewInternalError(err)
	}
	return models.NewPage(users, page.Page, page.PerPage, total), nil
}
