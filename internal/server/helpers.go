package server

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"inkwell/internal/imaging"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers return nil when they see it.
var errResponseWritten = errors.New("response already written")

type flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// flashRedirect is the JSON stand-in for "flash a message, then redirect".
func flashRedirect(c *fiber.Ctx, status int, category, message, target string, extra ...fiber.Map) error {
	body := fiber.Map{
		"flash":    flash{Category: category, Message: message},
		"redirect": target,
	}
	for _, m := range extra {
		for k, v := range m {
			body[k] = v
		}
	}
	return c.Status(status).JSON(body)
}

func redirectTo(c *fiber.Ctx, target string) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"redirect": target})
}

// formPage describes a form for GET requests.
func formPage(c *fiber.Ctx, title string, fields []string, extra ...fiber.Map) error {
	body := fiber.Map{"title": title, "fields": fields}
	for _, m := range extra {
		for k, v := range m {
			body[k] = v
		}
	}
	return c.JSON(body)
}

// parseID extracts a route parameter as a positive uint. On failure it writes
// a 404 and returns errResponseWritten, matching int-typed route converters.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Page", c.Params(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// pageParam reads ?page= leniently: anything that is not a positive integer is 1.
// Huge values collapse to MaxPage, which lists nothing and so answers 404.
func pageParam(c *fiber.Ctx) int {
	page := c.QueryInt("page", 1)
	if page < 1 {
		return 1
	}
	return min(page, models.MaxPage)
}

// formBool accepts the usual checkbox encodings.
func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "y", "yes":
		return true
	default:
		return false
	}
}

// readUpload returns the multipart file in field, or nil when none was sent.
func readUpload(c *fiber.Ctx, field string, maxBytes int64) (*imaging.Upload, error) {
	if maxBytes <= 0 {
		maxBytes = imaging.DefaultMaxUploadBytes
	}
	fh, err := c.FormFile(field)
	if err != nil || fh == nil || fh.Size == 0 {
		return nil, nil
	}
	if fh.Size > maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", maxBytes>>20))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, models.NewValidationError("Could not read uploaded file")
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, models.NewValidationError("Could not read uploaded file")
	}
	return &imaging.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}, nil
}

// parseForm decodes a urlencoded, multipart or JSON body into dst.
func parseForm(c *fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 && !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return nil
	}
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

func respondError(c *fiber.Ctx, err error) error {
	if errors.Is(err, errResponseWritten) {
		return nil
	}
	return models.RespondWithAppError(c, err)
}

// appMessage is the user-facing message of an AppError.
func appMessage(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
