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

// SearchLimit caps the number of users returned by a search.
const SearchLimit = 50

// UserService covers account settings, user search and account deletion.
type UserService struct {
	users  repository.UserRepository
	images ImageStore
	flags  *featureflags.Manager
}

// NewUserService returns a new UserService.
func NewUserService(users repository.UserRepository, images ImageStore, flags *featureflags.Manager) *UserService {
	return &UserService{users: users, images: images, flags: flags}
}

// UpdateAccountInput is the account form. A nil Picture keeps the current avatar.
type UpdateAccountInput struct {
	UserID   uint
	Username string
	Email    string
	Picture  *imaging.Upload
}

// GetAccount returns the user behind a session.
func (s *UserService) GetAccount(ctx context.Context, userID uint) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateAccount changes username, email and optionally the avatar. Uniqueness
// is re-checked only for values that actually change.
func (s *UserService) UpdateAccount(ctx context.Context, in UpdateAccountInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if username != user.Username {
		if taken, err := s.users.GetByUsername(ctx, username); err != nil {
			return nil, err
		} else if taken != nil && taken.ID != user.ID {
			return nil, models.NewValidationError(repository.MsgUsernameTaken)
		}
	}
	if email != user.Email {
		if taken, err := s.users.GetByEmail(ctx, email); err != nil {
			return nil, err
		} else if taken != nil && taken.ID != user.ID {
			return nil, models.NewValidationError(repository.MsgEmailTaken)
		}
	}

	previous := user.ImageFile
	updated := *user
	updated.Username = username
	updated.Email = email
	if in.Picture != nil {
		name, err := s.images.SaveAvatar(*in.Picture, imaging.Options{WebP: s.flags.Enabled(featureflags.WebPImages, user.ID)})
		if err != nil {
			return nil, err
		}
		updated.ImageFile = name
	}

	if err := s.users.UpdateProfile(ctx, &updated); err != nil {
		if in.Picture != nil {
			s.images.Remove(imaging.ProfilePicsDir, updated.ImageFile)
		}
		return nil, err
	}
	if in.Picture != nil {
		s.images.Remove(imaging.ProfilePicsDir, previous)
	}
	return &updated, nil
}

// SearchUsers returns users whose username contains query, case-insensitively.
func (s *UserService) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if err := validation.ValidateSearchQuery(query); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	users, err := s.users.Search(ctx, query, SearchLimit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// DeleteAccount removes userID's account once the deletion is confirmed.
func (s *UserService) DeleteAccount(ctx context.Context, userID uint, confirm bool) error {
	if !confirm {
		return models.NewValidationError("Please confirm that you want to delete your account")
	}
	return s.users.DeleteAccount(ctx, userID)
}
