// Package seed fills a database with demo data, either random or from a
// YAML scenario. It is meant for development and tests only.
package seed

import (
	"fmt"
	"strings"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/models"
	"inkwell/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
)

// DefaultPassword is the password of every generated user.
const DefaultPassword = "password123"

// Factory builds users, posts and comments with fake content.
type Factory struct {
	faker   *gofakeit.Faker
	hasher  *auth.PasswordHasher
	maxDays int
	now     func() time.Time

	// hash of DefaultPassword, computed once
	defaultHash string
}

// NewFactory returns a Factory. A zero randSeed picks a random one.
func NewFactory(randSeed int64, bcryptCost, maxDays int) *Factory {
	if maxDays <= 0 {
		maxDays = 90
	}
	return &Factory{
		faker:   gofakeit.New(randSeed),
		hasher:  auth.NewPasswordHasher(bcryptCost),
		maxDays: maxDays,
		now:     time.Now,
	}
}

// HashPassword hashes pw, reusing the cached hash for DefaultPassword.
func (f *Factory) HashPassword(pw string) (string, error) {
	if pw != DefaultPassword {
		return f.hasher.Hash(pw)
	}
	if f.defaultHash == "" {
		h, err := f.hasher.Hash(DefaultPassword)
		if err != nil {
			return "", err
		}
		f.defaultHash = h
	}
	return f.defaultHash, nil
}

// Username returns a random name that passes username validation.
func (f *Factory) Username() string {
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, f.faker.Username())
	if len(base) > validation.UsernameMaxLen-4 {
		base = base[:validation.UsernameMaxLen-4]
	}
	if base == "" {
		base = "user"
	}
	return fmt.Sprintf("%s%d", base, f.faker.Number(100, 999))
}

// BuildUser returns an unsaved user with DefaultPassword.
func (f *Factory) BuildUser(overrides ...func(*models.User)) (*models.User, error) {
	username := f.Username()
	hash, err := f.HashPassword(DefaultPassword)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username: username,
		Email:    strings.ToLower(username) + "@" + f.faker.DomainName(),
		Password: hash,
	}
	for _, override := range overrides {
		override(user)
	}
	return user, nil
}

// BuildPost returns an unsaved post by author dated somewhere in the last maxDays.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	title := f.faker.Sentence(5)
	if len(title) > validation.TitleMaxLen {
		title = title[:validation.TitleMaxLen]
	}
	back := time.Duration(f.faker.Number(0, f.maxDays*24*60)) * time.Minute
	post := &models.Post{
		Title:     title,
		Content:   f.faker.Paragraph(1, 3, 8, "\n"),
		UserID:    author.ID,
		CreatedAt: f.now().Add(-back),
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// BuildComment returns an unsaved comment by author on post.
func (f *Factory) BuildComment(author *models.User, post *models.Post) *models.Comment {
	return &models.Comment{
		Content: f.faker.Sentence(f.faker.Number(3, 15)),
		UserID:  author.ID,
		PostID:  post.ID,
	}
}

// Pick returns up to n distinct users from pool other than skip.
func (f *Factory) Pick(pool []*models.User, n int, skip uint) []*models.User {
	picked := make([]*models.User, 0, n)
	order := indexes(len(pool))
	f.faker.ShuffleInts(order)
	for _, i := range order {
		if len(picked) == n {
			break
		}
		if pool[i].ID == skip {
			continue
		}
		picked = append(picked, pool[i])
	}
	return picked
}

// Intn returns a number in [lo, hi].
func (f *Factory) Intn(lo, hi int) int {
	return f.faker.Number(lo, hi)
}

func indexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
