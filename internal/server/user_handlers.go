package server

import (
	"fmt"
	"net/url"

	"inkwell/internal/imaging"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type accountForm struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
}

type deleteAccountForm struct {
	Confirm string `json:"confirm" form:"confirm"`
}

type searchForm struct {
	Search string `json:"search" form:"search"`
}

func userPath(username string) string {
	return "/user/" + url.PathEscape(username)
}

func avatarURL(name string) string {
	return imaging.URL(imaging.ProfilePicsDir, name)
}

// Account returns the current user's profile form.
func (s *Server) Account(c *fiber.Ctx) error {
	user := currentUser(c)
	return formPage(c, "Account", []string{"username", "email", "picture"}, fiber.Map{
		"user":      user,
		"image_url": avatarURL(user.ImageFile),
	})
}

// UpdateAccount changes username, email and avatar.
func (s *Server) UpdateAccount(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	var req accountForm
	if err := parseForm(c, &req); err != nil {
		return respondError(c, err)
	}
	picture, err := readUpload(c, "picture", s.config.MaxUploadBytes())
	if err != nil {
		return respondError(c, err)
	}

	user, err := s.userService.UpdateAccount(c.UserContext(), service.UpdateAccountInput{
		UserID:   userID,
		Username: req.Username,
		Email:    req.Email,
		Picture:  picture,
	})
	if err != nil {
		return respondError(c, err)
	}
	return flashRedirect(c, fiber.StatusOK, "success", "Your account has been updated!", "/account", fiber.Map{
		"user":      user,
		"image_url": avatarURL(user.ImageFile),
	})
}

// DeleteAccountForm describes the deletion confirmation.
func (s *Server) DeleteAccountForm(c *fiber.Ctx) error {
	return formPage(c, "Delete Account", []string{"confirm"})
}

// DeleteAccount removes the current account and ends the session.
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	var req deleteAccountForm
	if err := parseForm(c, &req); err != nil {
		return respondError(c, err)
	}
	if err := s.userService.DeleteAccount(c.UserContext(), userID, formBool(req.Confirm)); err != nil {
		return respondError(c, err)
	}

	_ = s.authService.Logout(c.UserContext(), currentSession(c))
	s.clearSessionCookie(c)
	return flashRedirect(c, fiber.StatusOK, "success", "Your account has been deleted.", "/home")
}

// Follow subscribes the current user to :username.
func (s *Server) Follow(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	username := c.Params("username")
	res, err := s.socialService.Follow(c.UserContext(), userID, username)
	if err != nil {
		return s.graphError(c, username, err)
	}
	if !res.Changed {
		return flashRedirect(c, fiber.StatusOK, "info",
			fmt.Sprintf("You are already following %s!", res.Target.Username), userPath(res.Target.Username))
	}
	return flashRedirect(c, fiber.StatusOK, "success",
		fmt.Sprintf("You are following %s!", res.Target.Username), userPath(res.Target.Username))
}

// Unfollow removes the current user's subscription to :username.
func (s *Server) Unfollow(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	username := c.Params("username")
	res, err := s.socialService.Unfollow(c.UserContext(), userID, username)
	if err != nil {
		return s.graphError(c, username, err)
	}
	if !res.Changed {
		return flashRedirect(c, fiber.StatusOK, "info",
			fmt.Sprintf("You are not following %s!", res.Target.Username), userPath(res.Target.Username))
	}
	return flashRedirect(c, fiber.StatusOK, "success",
		fmt.Sprintf("You are not following %s.", res.Target.Username), userPath(res.Target.Username))
}

// graphError turns follow failures into the flash the profile page expects.
func (s *Server) graphError(c *fiber.Ctx, username string, err error) error {
	switch {
	case models.IsCode(err, models.CodeNotFound):
		return flashRedirect(c, fiber.StatusNotFound, "warning",
			fmt.Sprintf("User %s not found.", username), "/home")
	case models.IsCode(err, models.CodeValidation):
		return flashRedirect(c, fiber.StatusBadRequest, "warning", appMessage(err), userPath(username))
	default:
		return respondError(c, err)
	}
}

// SearchForm describes the user search box.
func (s *Server) SearchForm(c *fiber.Ctx) error {
	return formPage(c, "Search", []string{"search"})
}

// Search validates the query and points at the results page.
func (s *Server) Search(c *fiber.Ctx) error {
	var req searchForm
	if err := parseForm(c, &req); err != nil {
		return respondError(c, err)
	}
	if _, err := s.userService.SearchUsers(c.UserContext(), req.Search); err != nil {
		return respondError(c, err)
	}
	return redirectTo(c, "/search-results?username="+url.QueryEscape(req.Search))
}

// SearchResults lists users whose name contains ?username=.
func (s *Server) SearchResults(c *fiber.Ctx) error {
	query := c.Query("username")
	results, err := s.userService.SearchUsers(c.UserContext(), query)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"query": query, "results": results})
}

// UserProfile shows a user with the viewer's follow state.
func (s *Server) UserProfile(c *fiber.Ctx) error {
	viewerID, _ := currentUserID(c)
	profile, err := s.socialService.Profile(c.UserContext(), viewerID, c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"profile":   profile,
		"image_url": avatarURL(profile.User.ImageFile),
	})
}

// UserBlogs pages through a user's posts.
func (s *Server) UserBlogs(c *fiber.Ctx) error {
	user, posts, err := s.postService.UserBlogs(c.UserContext(), c.Params("username"), pageParam(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": user, "blog_count": posts.Total, "posts": posts})
}

// Followers pages through the users following :username.
func (s *Server) Followers(c *fiber.Ctx) error {
	user, users, err := s.socialService.Followers(c.UserContext(), c.Params("username"), pageParam(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": user, "followers": users})
}

// Following pages through the users :username follows.
func (s *Server) Following(c *fiber.Ctx) error {
	user, users, err := s.socialService.Following(c.UserContext(), c.Params("username"), pageParam(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": user, "following": users})
}
