package repository

import (
	"context"
	"errors"

	"inkwell/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	ListByAuthor(ctx context.Context, userID uint, page models.PageRequest) (models.Page[models.Post], error)
	ListByAuthors(ctx context.Context, userIDs []uint, page models.PageRequest) (models.Page[models.Post], error)
	CountByAuthor(ctx context.Context, userID uint) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// Update persists title, content and image_file.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	res := r.db.WithContext(ctx).Model(&models.Post{ID: post.ID}).
		Select("title", "content", "image_file").
		Updates(map[string]any{
			"title":      post.Title,
			"content":    post.Content,
			"image_file": post.ImageFile,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, userID uint, page models.PageRequest) (models.Page[models.Post], error) {
	return r.listWhere(ctx, page, "user_id = ?", userID)
}

// ListByAuthors pages through the posts of the given authors, newest first.
// An empty author set yields an empty page without touching the database.
func (r *postRepository) ListByAuthors(ctx context.Context, userIDs []uint, page models.PageRequest) (models.Page[models.Post], error) {
	if len(userIDs) == 0 {
		return models.NewPage[models.Post](nil, page.Page, page.PerPage, 0), nil
	}
	return r.listWhere(ctx, page, "user_id IN ?", userIDs)
}

func (r *postRepository) listWhere(ctx context.Context, page models.PageRequest, query string, args ...any) (models.Page[models.Post], error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where(query, args...).Count(&total).Error; err != nil {
		return models.Page[models.Post]{}, models.NewInternalError(err)
	}

	var posts []models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where(query, args...).
		Order("created_at DESC").
		Order("id DESC").
		Offset(page.Offset()).
		Limit(page.PerPage).
		Find(&posts).Error
	if err != nil {
		return models.Page[models.Post]{}, models.NewInternalError(err)
	}
	return models.NewPage(posts, page.Page, page.PerPage, total), nil
}

func (r *postRepository) CountByAuthor(ctx context.Context, userID uint) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return total, nil
}
