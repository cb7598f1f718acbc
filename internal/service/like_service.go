package service

import (
	"context"

	"inkwell/internal/observability"
	"inkwell/internal/repository"
)

// LikeService records likes.
type LikeService struct {
	likes repository.LikeRepository
	posts repository.PostRepository
}

// NewLikeService returns a new LikeService.
func NewLikeService(likes repository.LikeRepository, posts repository.PostRepository) *LikeService {
	return &LikeService{likes: likes, posts: posts}
}

// LikePost records that userID likes postID. It reports alreadyLiked without
// inserting when a like is already visible. The check and the insert are not
// atomic and there is no unique index, so concurrent requests can both insert.
func (s *LikeService) LikePost(ctx context.Context, userID, postID uint) (alreadyLiked bool, err error) {
	defer func() {
		result := outcome(err)
		if err == nil && alreadyLiked {
			result = "duplicate"
		}
		observability.LikeEvents.WithLabelValues(result).Inc()
	}()

	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return false, err
	}
	liked, err := s.likes.HasLiked(ctx, userID, postID)
	if err != nil {
		return false, err
	}
	if liked {
		return true, nil
	}
	if err := s.likes.Create(ctx, userID, postID); err != nil {
		return false, err
	}
	return false, nil
}
