package imaging

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xwebp "golang.org/x/image/webp"
)

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 90, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(w, h)))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(w, h), nil))
	return buf.Bytes()
}

func decodeFile(t *testing.T, path string) (image.Image, string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, format, err := image.Decode(f)
	require.NoError(t, err)
	return img, format
}

var nameRe = regexp.MustCompile(`^[0-9a-f]{16}\.(png|jpg|webp)$`)

func TestSaveAvatar_Thumbnail(t *testing.T) {
	s := NewStore(t.TempDir(), 0)

	name, err := s.SaveAvatar(Upload{Filename: "me.png", Content: pngBytes(t, 300, 150)}, Options{})
	require.NoError(t, err)
	assert.Regexp(t, nameRe, name)
	assert.Equal(t, ".png", filepath.Ext(name))

	img, format := decodeFile(t, s.Path(ProfilePicsDir, name))
	assert.Equal(t, "png", format)
	assert.Equal(t, 125, img.Bounds().Dx())
	assert.Equal(t, 62, img.Bounds().Dy())
}

func TestSaveAvatar_SmallImageNotUpscaled(t *testing.T) {
	s := NewStore(t.TempDir(), 0)

	name, err := s.SaveAvatar(Upload{Content: jpegBytes(t, 40, 30)}, Options{})
	require.NoError(t, err)
	assert.Equal(t, ".jpg", filepath.Ext(name))

	img, format := decodeFile(t, s.Path(ProfilePicsDir, name))
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, image.Rect(0, 0, 40, 30), img.Bounds())
}

func TestSavePostImage_WebP(t *testing.T) {
	s := NewStore(t.TempDir(), 0)

	name, err := s.SavePostImage(Upload{Content: pngBytes(t, 2000, 1000)}, Options{WebP: true})
	require.NoError(t, err)
	assert.Equal(t, ".webp", filepath.Ext(name))

	f, err := os.Open(s.Path(PostImagesDir, name))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := xwebp.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 1080, cfg.Width)
	assert.Equal(t, 540, cfg.Height)
}

func TestSave_Rejections(t *testing.T) {
	s := NewStore(t.TempDir(), 1024)

	tests := []struct {
		name    string
		content []byte
	}{
		{"empty", nil},
		{"not an image", []byte("%PDF-1.4 definitely not a picture")},
		{"too large", bytes.Repeat([]byte{0xff}, 2048)},
		{"truncated png", pngBytes(t, 4, 4)[:40]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SaveAvatar(Upload{Content: tt.content}, Options{})
			require.Error(t, err)
			assert.True(t, models.IsCode(err, models.CodeValidation), err.Error())
		})
	}
}

// pngDeclaring encodes a 1x1 grayscale PNG and rewrites its IHDR so the
// header claims w x h pixels.
func pngDeclaring(t *testing.T, w, h uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	b := buf.Bytes()
	require.Equal(t, "IHDR", string(b[12:16]))
	binary.BigEndian.PutUint32(b[16:20], w)
	binary.BigEndian.PutUint32(b[20:24], h)
	binary.BigEndian.PutUint32(b[29:33], crc32.ChecksumIEEE(b[12:29]))
	return b
}

func TestSave_RejectsOversizedDimensions(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root, 0)

	content := pngDeclaring(t, 12000, 12000)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
	require.NoError(t, err)
	require.Equal(t, 12000, cfg.Width)

	_, err = s.SaveAvatar(Upload{Filename: "huge.png", Content: content}, Options{})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeValidation), err.Error())
	assert.Contains(t, err.Error(), "Image dimensions too large")

	_, err = s.SavePostImage(Upload{Filename: "wide.png", Content: pngDeclaring(t, MaxPixels, 2)}, Options{WebP: true})
	assert.True(t, models.IsCode(err, models.CodeValidation))

	entries, _ := os.ReadDir(filepath.Join(root, ProfilePicsDir))
	assert.Empty(t, entries)
}

func TestRemove(t *testing.T) {
	s := NewStore(t.TempDir(), 0)
	name, err := s.SaveAvatar(Upload{Content: pngBytes(t, 10, 10)}, Options{})
	require.NoError(t, err)

	s.Remove(ProfilePicsDir, models.DefaultImageFile)
	s.Remove(ProfilePicsDir, name)
	_, err = os.Stat(s.Path(ProfilePicsDir, name))
	assert.True(t, os.IsNotExist(err))
}

func TestRandomNameAndURL(t *testing.T) {
	a, b := RandomName(".png"), RandomName(".png")
	assert.NotEqual(t, a, b)
	assert.Regexp(t, nameRe, a)
	assert.Equal(t, "/static/profile_pics/x.png", URL(ProfilePicsDir, "x.png"))
}
