package service

import (
	"context"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
)

// SocialService applies the caller-side rules of the follow graph and builds
// the followed feed.
type SocialService struct {
	follows repository.FollowRepository
	users   repository.UserRepository
	posts   repository.PostRepository
	perPage int
}

// NewSocialService returns a new SocialService. perPage <= 0 uses models.DefaultPerPage.
func NewSocialService(follows repository.FollowRepository, users repository.UserRepository, posts repository.PostRepository, perPage int) *SocialService {
	if perPage <= 0 {
		perPage = models.DefaultPerPage
	}
	return &SocialService{follows: follows, users: users, posts: posts, perPage: perPage}
}

// FollowResult reports the target of a follow or unfollow and whether the
// graph changed. Changed is false for "already following" and "not following".
type FollowResult struct {
	Target  *models.User
	Changed bool
}

// Follow makes actor follow the user named username.
func (s *SocialService) Follow(ctx context.Context, actorID uint, username string) (res *FollowResult, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "social", "Follow")
	defer func() {
		finish(err)
		observability.SocialGraphOps.WithLabelValues("follow", graphOutcome(res, err)).Inc()
	}()

	target, err := s.resolveTarget(ctx, actorID, username, "You cannot follow yourself!")
	if err != nil {
		return nil, err
	}
	created, err := s.follows.Follow(ctx, actorID, target.ID)
	if err != nil {
		return nil, err
	}
	return &FollowResult{Target: target, Changed: created}, nil
}

// Unfollow removes the actor -> username edge if it exists.
func (s *SocialService) Unfollow(ctx context.Context, actorID uint, username string) (res *FollowResult, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "social", "Unfollow")
	defer func() {
		finish(err)
		observability.SocialGraphOps.WithLabelValues("unfollow", graphOutcome(res, err)).Inc()
	}()

	target, err := s.resolveTarget(ctx, actorID, username, "You cannot unfollow yourself!")
	if err != nil {
		return nil, err
	}
	removed, err := s.follows.Unfollow(ctx, actorID, target.ID)
	if err != nil {
		return nil, err
	}
	return &FollowResult{Target: target, Changed: removed}, nil
}

func (s *SocialService) resolveTarget(ctx context.Context, actorID uint, username, selfMsg string) (*models.User, error) {
	target, err := s.userByName(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == actorID {
		return nil, models.NewValidationError(selfMsg)
	}
	return target, nil
}

func (s *SocialService) userByName(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	return user, nil
}

// FollowedFeed pages through the posts of everyone actor follows, newest
// first. Pages past the last non-empty one are NOT_FOUND.
func (s *SocialService) FollowedFeed(ctx context.Context, actorID uint, page int) (models.Page[models.Post], error) {
	ids, err := s.follows.FollowedIDs(ctx, actorID)
	if err != nil {
		return models.Page[models.Post]{}, err
	}
	req := pageRequest(page, s.perPage)
	feed, err := s.posts.ListByAuthors(ctx, ids, req)
	if err != nil {
		return models.Page[models.Post]{}, err
	}
	if req.OutOfRange(len(feed.Items)) {
		return models.Page[models.Post]{}, models.NewNotFoundError("Page", req.Page)
	}
	return feed, nil
}

// Followers lists who follows username.
func (s *SocialService) Followers(ctx context.Context, username string, page int) (*models.User, models.Page[models.User], error) {
	return s.listEdges(ctx, username, page, s.follows.Followers)
}

// Following lists whom username follows.
func (s *SocialService) Following(ctx context.Context, username string, page int) (*models.User, models.Page[models.User], error) {
	return s.listEdges(ctx, username, page, s.follows.Following)
}

type edgeLister func(ctx context.Context, userID uint, page models.PageRequest) (models.Page[models.User], error)

func (s *SocialService) listEdges(ctx context.Context, username string, page int, list edgeLister) (*models.User, models.Page[models.User], error) {
	user, err := s.userByName(ctx, username)
	if err != nil {
		return nil, models.Page[models.User]{}, err
	}
	req := pageRequest(page, s.perPage)
	users, err := list(ctx, user.ID, req)
	if err != nil {
		return nil, models.Page[models.User]{}, err
	}
	if req.OutOfRange(len(users.Items)) {
		return nil, models.Page[models.User]{}, models.NewNotFoundError("Page", req.Page)
	}
	return user, users, nil
}

// Profile is a user page as seen by a viewer.
type Profile struct {
	User         *models.User `json:"user"`
	IsSelf       bool         `json:"is_self"`
	IsFollowing  bool         `json:"is_following"`
	IsFollowedBy bool         `json:"is_followed_by"`
	BlogCount    int64        `json:"blog_count"`
}

// Profile loads username with its follow state relative to viewerID, which is 0 for anonymous viewers.
func (s *SocialService) Profile(ctx context.Context, viewerID uint, username string) (*Profile, error) {
	user, err := s.userByName(ctx, username)
	if err != nil {
		return nil, err
	}
	count, err := s.posts.CountByAuthor(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	p := &Profile{User: user, BlogCount: count, IsSelf: viewerID != 0 && viewerID == user.ID}
	if viewerID == 0 || p.IsSelf {
		return p, nil
	}
	if p.IsFollowing, err = s.follows.IsFollowing(ctx, viewerID, user.ID); err != nil {
		return nil, err
	}
	if p.IsFollowedBy, err = s.follows.IsFollowedBy(ctx, viewerID, user.ID); err != nil {
		return nil, err
	}
	return p, nil
}

func graphOutcome(res *FollowResult, err error) string {
	switch {
	case err != nil:
		return "error"
	case res != nil && !res.Changed:
		return "noop"
	default:
		return "ok"
	}
}
