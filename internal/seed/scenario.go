package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/validation"

	"gopkg.in/yaml.v3"
)

// Scenario is a hand-written data set, typically loaded from YAML:
//
//	users:
//	  - username: alice
//	    follows: [bob]
//	  - username: bob
//	posts:
//	  - author: bob
//	    title: Hello
//	    content: First post
//	    likes: [alice]
//	    comments:
//	      - author: alice
//	        content: Welcome!
type Scenario struct {
	Users []ScenarioUser `yaml:"users"`
	Posts []ScenarioPost `yaml:"posts"`
}

// ScenarioUser is one account. Email defaults to <username>@example.com and
// Password to DefaultPassword.
type ScenarioUser struct {
	Username string   `yaml:"username"`
	Email    string   `yaml:"email"`
	Password string   `yaml:"password"`
	Follows  []string `yaml:"follows"`
}

// ScenarioPost is one post with its reactions.
type ScenarioPost struct {
	Author   string            `yaml:"author"`
	Title    string            `yaml:"title"`
	Content  string            `yaml:"content"`
	Likes    []string          `yaml:"likes"`
	Comments []ScenarioComment `yaml:"comments"`
}

// ScenarioComment is one comment on a ScenarioPost.
type ScenarioComment struct {
	Author  string `yaml:"author"`
	Content string `yaml:"content"`
}

// LoadScenario decodes and validates a YAML scenario.
func LoadScenario(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadScenarioFile reads a scenario from path.
func LoadScenarioFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return LoadScenario(f)
}

// Validate checks names, references and field formats.
func (sc *Scenario) Validate() error {
	known := make(map[string]bool, len(sc.Users))
	for i := range sc.Users {
		u := &sc.Users[i]
		if err := validation.ValidateUsername(u.Username); err != nil {
			return fmt.Errorf("user %d: %w", i, err)
		}
		if known[u.Username] {
			return fmt.Errorf("user %q defined twice", u.Username)
		}
		known[u.Username] = true
		if u.Email == "" {
			u.Email = strings.ToLower(u.Username) + "@example.com"
		}
		if err := validation.ValidateEmail(u.Email); err != nil {
			return fmt.Errorf("user %q: %w", u.Username, err)
		}
		if u.Password == "" {
			u.Password = DefaultPassword
		}
	}

	ref := func(where, name string) error {
		if !known[name] {
			return fmt.Errorf("%s: unknown user %q", where, name)
		}
		return nil
	}
	for _, u := range sc.Users {
		for _, f := range u.Follows {
			if err := ref("follows of "+u.Username, f); err != nil {
				return err
			}
		}
	}
	for i, p := range sc.Posts {
		where := fmt.Sprintf("post %d", i)
		if err := ref(where, p.Author); err != nil {
			return err
		}
		if err := validation.ValidatePost(p.Title, p.Content); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		for _, l := range p.Likes {
			if err := ref(where+" likes", l); err != nil {
				return err
			}
		}
		for _, c := range p.Comments {
			if err := ref(where+" comments", c.Author); err != nil {
				return err
			}
			if err := validation.ValidateComment(c.Content); err != nil {
				return fmt.Errorf("%s: %w", where, err)
			}
		}
	}
	return nil
}

// Apply writes sc. Users are created in order, then follows, then posts with
// their likes and comments.
func (s *Seeder) Apply(ctx context.Context, sc *Scenario) (*Summary, error) {
	sum := &Summary{}
	byName := make(map[string]*models.User, len(sc.Users))

	for _, su := range sc.Users {
		hash, err := s.factory.HashPassword(su.Password)
		if err != nil {
			return sum, err
		}
		u := &models.User{Username: su.Username, Email: su.Email, Password: hash}
		if err := s.users.Create(ctx, u); err != nil {
			return sum, fmt.Errorf("create user %q: %w", su.Username, err)
		}
		byName[u.Username] = u
		sum.Users++
	}

	for _, su := range sc.Users {
		for _, name := range su.Follows {
			if name == su.Username {
				return sum, fmt.Errorf("user %q cannot follow themselves", name)
			}
			created, err := s.follows.Follow(ctx, byName[su.Username].ID, byName[name].ID)
			if err != nil {
				return sum, err
			}
			if created {
				sum.Follows++
			}
		}
	}

	for _, sp := range sc.Posts {
		post := &models.Post{Title: strings.TrimSpace(sp.Title), Content: sp.Content, UserID: byName[sp.Author].ID}
		if err := s.posts.Create(ctx, post); err != nil {
			return sum, err
		}
		sum.Posts++
		for _, name := range sp.Likes {
			if err := s.likes.Create(ctx, byName[name].ID, post.ID); err != nil {
				return sum, err
			}
			sum.Likes++
		}
		for _, cm := range sp.Comments {
			c := &models.Comment{Content: cm.Content, UserID: byName[cm.Author].ID, PostID: post.ID}
			if err := s.comments.Create(ctx, c); err != nil {
				return sum, err
			}
			sum.Comments++
		}
	}

	middleware.Logger.InfoContext(ctx, "scenario applied",
		"users", sum.Users, "posts", sum.Posts, "follows", sum.Follows)
	return sum, nil
}
