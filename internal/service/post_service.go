package service

import (
	"context"
	"strings"

	"inkwell/internal/featureflags"
	"inkwell/internal/imaging"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

// PostService handles post authoring and the per-author listings.
type PostService struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	users    repository.UserRepository
	images   ImageStore
	flags    *featureflags.Manager
	perPage  int
}

// NewPostService returns a new PostService.
func NewPostService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	users repository.UserRepository,
	images ImageStore,
	flags *featureflags.Manager,
	perPage int,
) *PostService {
	if perPage <= 0 {
		perPage = models.DefaultPerPage
	}
	return &PostService{posts: posts, comments: comments, users: users, images: images, flags: flags, perPage: perPage}
}

// CreatePostInput is the new-post form.
type CreatePostInput struct {
	UserID  uint
	Title   string
	Content string
	Picture *imaging.Upload
}

// UpdatePostInput is the edit-post form. A nil Picture keeps the current image.
type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Title   string
	Content string
	Picture *imaging.Upload
}

// CreatePost stores a post authored by in.UserID.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	title := strings.TrimSpace(in.Title)
	if err := validation.ValidatePost(title, in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post := &models.Post{Title: title, Content: in.Content, UserID: in.UserID}
	if in.Picture != nil {
		name, err := s.savePicture(in.UserID, *in.Picture)
		if err != nil {
			return nil, err
		}
		post.ImageFile = name
	}

	if err := s.posts.Create(ctx, post); err != nil {
		if in.Picture != nil {
			s.images.Remove(imaging.PostImagesDir, post.ImageFile)
		}
		return nil, err
	}
	return post, nil
}

// PostDetail is a post with its comments, oldest first.
type PostDetail struct {
	Post     *models.Post     `json:"post"`
	Comments []models.Comment `json:"comments"`
}

// GetPost loads a post and its comments.
func (s *PostService) GetPost(ctx context.Context, id uint) (*PostDetail, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return &PostDetail{Post: post, Comments: comments}, nil
}

// GetOwnedPost loads a post that userID authored. Other users get FORBIDDEN.
func (s *PostService) GetOwnedPost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, models.NewForbiddenError("You are not the author of this post")
	}
	return post, nil
}

// UpdatePost edits a post owned by in.UserID.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.GetOwnedPost(ctx, in.UserID, in.PostID)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if err := validation.ValidatePost(title, in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	previous := post.ImageFile
	post.Title = title
	post.Content = in.Content
	if in.Picture != nil {
		name, err := s.savePicture(in.UserID, *in.Picture)
		if err != nil {
			return nil, err
		}
		post.ImageFile = name
	}

	if err := s.posts.Update(ctx, post); err != nil {
		if in.Picture != nil {
			s.images.Remove(imaging.PostImagesDir, post.ImageFile)
		}
		return nil, err
	}
	if in.Picture != nil {
		s.images.Remove(imaging.PostImagesDir, previous)
	}
	return post, nil
}

// DeletePost removes a post owned by userID.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	if _, err := s.GetOwnedPost(ctx, userID, postID); err != nil {
		return err
	}
	return s.posts.Delete(ctx, postID)
}

// ListOwnPosts pages through userID's posts, newest first.
func (s *PostService) ListOwnPosts(ctx context.Context, userID uint, page int) (models.Page[models.Post], error) {
	req := pageRequest(page, s.perPage)
	posts, err := s.posts.ListByAuthor(ctx, userID, req)
	if err != nil {
		return models.Page[models.Post]{}, err
	}
	if req.OutOfRange(len(posts.Items)) {
		return models.Page[models.Post]{}, models.NewNotFoundError("Page", req.Page)
	}
	return posts, nil
}

// UserBlogs pages through the posts of the user named username.
func (s *PostService) UserBlogs(ctx context.Context, username string, page int) (*models.User, models.Page[models.Post], error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, models.Page[models.Post]{}, err
	}
	if user == nil {
		return nil, models.Page[models.Post]{}, models.NewNotFoundError("User", username)
	}
	posts, err := s.ListOwnPosts(ctx, user.ID, page)
	if err != nil {
		return nil, models.Page[models.Post]{}, err
	}
	return user, posts, nil
}

func (s *PostService) savePicture(userID uint, pic imaging.Upload) (string, error) {
	return s.images.SavePostImage(pic, imaging.Options{WebP: s.flags.Enabled(featureflags.WebPImages, userID)})
}
