package server

import (
	"fmt"

	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type postForm struct {
	Title   string `json:"title" form:"title"`
	Content string `json:"content" form:"content"`
}

type commentForm struct {
	Content string `json:"content" form:"content"`
}

func postPath(id uint) string {
	return fmt.Sprintf("/post/%d", id)
}

// Home serves the followed feed of the current user.
func (s *Server) Home(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	posts, err := s.socialService.FollowedFeed(c.UserContext(), userID, pageParam(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}

// About lists the current user's own posts.
func (s *Server) About(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	posts, err := s.postService.ListOwnPosts(c.UserContext(), userID, pageParam(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"title": "About", "user": currentUser(c), "posts": posts})
}

// NewPostForm describes the post editor.
func (s *Server) NewPostForm(c *fiber.Ctx) error {
	return formPage(c, "New Post", []string{"title", "content", "picture"}, fiber.Map{"legend": "New Post"})
}

// CreatePost publishes a post with an optional picture.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	var req postForm
	if err := parseForm(c, &req); err != nil {
		return respondError(c, err)
	}
	picture, err := readUpload(c, "picture", s.config.MaxUploadBytes())
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:  userID,
		Title:   req.Title,
		Content: req.Content,
		Picture: picture,
	})
	if err != nil {
		return respondError(c, err)
	}
	return flashRedirect(c, fiber.StatusCreated, "success", "Your post has been created!", "/about",
		fiber.Map{"post": post})
}

// GetPost shows a post and its comments.
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	detail, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"title": detail.Post.Title, "post": detail.Post, "comments": detail.Comments})
}

// UpdatePostForm returns the editor prefilled with the author's post.
func (s *Server) UpdatePostForm(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	post, err := s.postService.GetOwnedPost(c.UserContext(), userID, id)
	if err != nil {
		return respondError(c, err)
	}
	return formPage(c, "Update Post", []string{"title", "content", "picture"}, fiber.Map{
		"legend": "Update Post",
		"post":   post,
	})
}

// UpdatePost edits a post owned by the current user.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req postForm
	if err := parseForm(c, &req); err != nil {
		return respondError(c, err)
	}
	picture, err := readUpload(c, "picture", s.config.MaxUploadBytes())
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID:  userID,
		PostID:  id,
		Title:   req.Title,
		Content: req.Content,
		Picture: picture,
	})
	if err != nil {
		return respondError(c, err)
	}
	return flashRedirect(c, fiber.StatusOK, "success", "Your post has been updated!", postPath(post.ID),
		fiber.Map{"post": post})
}

// DeletePost removes a post owned by the current user.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := s.postService.DeletePost(c.UserContext(), userID, id); err != nil {
		return respondError(c, err)
	}
	return flashRedirect(c, fiber.StatusOK, "success", "Your post has been deleted!", "/home")
}

// LikePost records a like. A repeat like is reported, not stored.
func (s *Server) LikePost(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	alreadyLiked, err := s.likeService.LikePost(c.UserContext(), userID, id)
	if err != nil {
		return respondError(c, err)
	}
	if alreadyLiked {
		return flashRedirect(c, fiber.StatusOK, "danger", "You have already liked this post", postPath(id))
	}
	return redirectTo(c, postPath(id))
}

// CommentForm describes the comment form along with the existing thread.
func (s *Server) CommentForm(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	comments, err := s.commentService.ListComments(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return formPage(c, "Comment", []string{"content"}, fiber.Map{"post_id": id, "comments": comments})
}

// CreateComment adds a comment by the current user.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req commentForm
	if err := parseForm(c, &req); err != nil {
		return respondError(c, err)
	}
	comment, err := s.commentService.AddComment(c.UserContext(), userID, id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"comment": comment, "redirect": postPath(id)})
}
