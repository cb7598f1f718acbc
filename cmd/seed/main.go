// Command seed fills the configured database with demo data.
package main

import (
	"context"
	"flag"
	"log"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/seed"

	"gorm.io/gorm"
)

func main() {
	numUsers := flag.Int("users", 30, "Number of random users to create")
	postsPerUser := flag.Int("posts", 5, "Posts per random user")
	followsPerUser := flag.Int("follows", 5, "Follows per random user")
	comments := flag.Int("comments", 3, "Maximum comments per post")
	likes := flag.Int("likes", 5, "Maximum likes per post")
	scenario := flag.String("scenario", "", "Apply a YAML scenario file instead of random data")
	shouldClean := flag.Bool("clean", false, "Delete all existing rows before seeding")
	dryRun := flag.Bool("dry-run", false, "Seed a throwaway in-memory database")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	var db *gorm.DB
	if *dryRun {
		db, err = database.OpenSQLiteMemory()
	} else {
		db, err = database.Connect(cfg)
		if err == nil {
			err = database.ApplySchema(ctx, db, cfg)
		}
	}
	if err != nil {
		log.Fatalf("Failed to prepare database: %v", err)
	}

	opts := seed.Options{
		NumUsers:        *numUsers,
		PostsPerUser:    *postsPerUser,
		FollowsPerUser:  *followsPerUser,
		CommentsPerPost: *comments,
		LikesPerPost:    *likes,
		RandSeed:        *randSeed,
		BcryptCost:      cfg.BcryptCost,
	}
	s := seed.NewSeeder(db, opts)

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	var sum *seed.Summary
	if *scenario != "" {
		sc, err := seed.LoadScenarioFile(*scenario)
		if err != nil {
			log.Fatalf("Invalid scenario: %v", err)
		}
		sum, err = s.Apply(ctx, sc)
		if err != nil {
			log.Fatalf("Scenario seeding failed: %v", err)
		}
	} else {
		sum, err = s.Random(ctx, opts)
		if err != nil {
			log.Fatalf("Random seeding failed: %v", err)
		}
	}

	log.Printf("Seeded users=%d posts=%d follows=%d comments=%d likes=%d",
		sum.Users, sum.Posts, sum.Follows, sum.Comments, sum.Likes)
	if *scenario == "" {
		log.Printf("All random users have the password: %s", seed.DefaultPassword)
	}
}
