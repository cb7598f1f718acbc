// Package imaging validates, resizes and stores uploaded pictures under the
// static upload root.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	"image/png"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"inkwell/internal/models"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Subdirectories of the upload root, served under /static.
const (
	ProfilePicsDir = "profile_pics"
	PostImagesDir  = "post_images"
)

const (
	AvatarSize       = 125
	PostImageMaxSize = 1080
	JPEGQuality      = 85
	WebPQuality      = 75

	DefaultMaxUploadBytes = 10 << 20

	// MaxPixels caps the declared width x height of an upload before it is decoded.
	MaxPixels = 40_000_000
)

// Upload is a picture received from a multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Options control how one upload is stored.
type Options struct {
	// WebP re-encodes the picture as WebP regardless of the source format.
	WebP bool
}

// Store writes processed images below root.
type Store struct {
	root     string
	maxBytes int64
}

// NewStore returns a Store rooted at root. maxBytes <= 0 selects DefaultMaxUploadBytes.
func NewStore(root string, maxBytes int64) *Store {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Store{root: root, maxBytes: maxBytes}
}

// Root is the directory served as /static.
func (s *Store) Root() string { return s.root }

// SaveAvatar thumbnails the upload to fit 125x125 and stores it in profile_pics.
// It returns the stored file name.
func (s *Store) SaveAvatar(in Upload, opts Options) (string, error) {
	return s.save(in, opts, ProfilePicsDir, AvatarSize)
}

// SavePostImage bounds the upload to 1080 px on its longer side and stores it
// in post_images. It returns the stored file name.
func (s *Store) SavePostImage(in Upload, opts Options) (string, error) {
	return s.save(in, opts, PostImagesDir, PostImageMaxSize)
}

// Path returns the absolute location of a stored file.
func (s *Store) Path(dir, name string) string {
	return filepath.Join(s.root, dir, filepath.Base(name))
}

// Remove deletes a stored file. Missing files and the default picture are ignored.
func (s *Store) Remove(dir, name string) {
	if name == "" || name == models.DefaultImageFile {
		return
	}
	_ = os.Remove(s.Path(dir, name))
}

// URL is the public path of a stored file.
func URL(dir, name string) string {
	return "/static/" + dir + "/" + name
}

func (s *Store) save(in Upload, opts Options, dir string, maxSize int) (string, error) {
	if len(in.Content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes>>20))
	}
	if !isAllowedImageMIME(http.DetectContentType(in.Content)) {
		return "", models.NewValidationError("File does not have an approved extension: jpg, png, gif, webp")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(in.Content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return "", models.NewValidationError(fmt.Sprintf("Image dimensions too large (max %d megapixels)", MaxPixels/1_000_000))
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}

	resized := Fit(decoded, maxSize, maxSize)

	ext := extensionFor(format)
	if opts.WebP {
		ext = ".webp"
	}
	data, err := encode(resized, ext)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	name := RandomName(ext)
	if err := writeBytesToFile(s.Path(dir, name), data); err != nil {
		return "", models.NewInternalError(err)
	}
	return name, nil
}

// Fit scales src down to fit within maxWidth x maxHeight keeping its aspect
// ratio. Images already inside the box are returned unchanged.
func Fit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

// RandomName returns 16 random hex characters followed by ext.
func RandomName(ext string) string {
	id := uuid.New()
	return fmt.Sprintf("%x%s", id[:8], ext)
}

func extensionFor(format string) string {
	switch format {
	case "jpeg":
		return ".jpg"
	case "webp":
		return ".webp"
	default:
		return ".png"
	}
}

func encode(img image.Image, ext string) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	var err error
	switch ext {
	case ".jpg":
		err = jpeg.Encode(buf, img, &jpeg.Options{Quality: JPEGQuality})
	case ".webp":
		err = webp.Encode(buf, img, &webp.Options{Quality: float32(WebPQuality)})
	default:
		err = png.Encode(buf, img)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch strings.ToLower(mediaType) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
