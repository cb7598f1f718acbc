// Package server contains the HTTP handlers, route table and session guards.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/featureflags"
	"inkwell/internal/imaging"
	"inkwell/internal/mailer"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	limiter        *middleware.Limiter
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	featureFlags   *featureflags.Manager
	images         *imaging.Store
	mail           mailer.Mailer

	userRepo    repository.UserRepository
	followRepo  repository.FollowRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	likeRepo    repository.LikeRepository

	authService    *service.AuthService
	socialService  *service.SocialService
	postService    *service.PostService
	commentService *service.CommentService
	likeService    *service.LikeService
	userService    *service.UserService
}

// NewServer connects to the database and Redis, applies the schema and builds the server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return nil, fmt.Errorf("schema setup failed: %w", err)
	}

	// A nil client turns the Redis-backed features into no-ops
	redisClient := cache.Connect(ctx, cfg.RedisURL)

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("config and database are required")
	}
	store := cache.NewStore(redisClient)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		limiter:        middleware.NewLimiter(redisClient, cfg.Env),
		promMiddleware: middleware.InitMetrics("inkwell"),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		images:         imaging.NewStore(cfg.UploadDir, cfg.MaxUploadBytes()),
		mail:           mailer.New(cfg, middleware.Logger),
		userRepo:       repository.NewUserRepository(db, store),
		followRepo:     repository.NewFollowRepository(db, store),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		likeRepo:       repository.NewLikeRepository(db),
	}
	s.initServices()
	return s, nil
}

func (s *Server) initServices() {
	s.authService = service.NewAuthService(
		s.userRepo,
		auth.NewPasswordHasher(s.config.BcryptCost),
		auth.NewTokenManager(s.config.SecretKey),
		cache.NewRevocationList(s.redis),
		s.mail,
		s.featureFlags,
		service.AuthSettings{
			ResetTokenTTL: s.config.ResetTokenTTL(),
			SessionTTL:    s.config.SessionTTL(),
			RememberTTL:   s.config.RememberTTL(),
			PublicBaseURL: s.config.PublicBaseURL,
		},
	)
	s.socialService = service.NewSocialService(s.followRepo, s.userRepo, s.postRepo, s.config.FeedPageSize)
	s.postService = service.NewPostService(s.postRepo, s.commentRepo, s.userRepo, s.images, s.featureFlags, s.config.FeedPageSize)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo)
	s.likeService = service.NewLikeService(s.likeRepo, s.postRepo)
	s.userService = service.NewUserService(s.userRepo, s.images, s.featureFlags)
}

// NewApp builds the fiber app with middleware and routes mounted.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Inkwell",
		BodyLimit: int(s.config.MaxUploadBytes()) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestTracing())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Resolve the session for every request; guards decide what to do with it
	app.Use(s.Identify())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Static("/static", s.images.Root())

	authed := s.AuthRequired()
	anon := s.AnonymousOnly()

	// Feed
	app.Get("/", authed, s.Home)
	app.Get("/home", authed, s.Home)
	app.Get("/about", authed, s.About)

	// Session lifecycle
	app.Get("/register", anon, s.RegisterForm)
	app.Post("/register", anon, s.limiter.Handler(middleware.Rule{Name: "register", Limit: 5, Window: 10 * time.Minute}), s.Register)
	app.Get("/login", anon, s.LoginForm)
	app.Post("/login", anon, s.Login)
	app.Get("/logout", s.Logout)
	app.Get("/reset_password", anon, s.ResetRequestForm)
	app.Post("/reset_password", anon, s.limiter.Handler(middleware.Rule{Name: "reset_password", Limit: 3, Window: 10 * time.Minute}), s.ResetRequest)
	app.Get("/reset_password/:token", anon, s.ResetTokenForm)
	app.Post("/reset_password/:token", anon, s.ResetToken)

	// Account
	app.Get("/account", authed, s.Account)
	app.Post("/account", authed, s.UpdateAccount)
	app.Get("/delete_account", authed, s.DeleteAccountForm)
	app.Post("/delete_account", authed, s.DeleteAccount)

	// Posts
	app.Get("/post/new", authed, s.NewPostForm)
	app.Post("/post/new", authed, s.CreatePost)
	app.Get("/post/:id", s.GetPost)
	app.Get("/post/:id/update", authed, s.UpdatePostForm)
	app.Post("/post/:id/update", authed, s.UpdatePost)
	app.Post("/post/:id/delete", authed, s.DeletePost)
	app.Post("/post/:id/like", authed, s.LikePost)
	app.Get("/post/:id/comment", authed, s.CommentForm)
	app.Post("/post/:id/comment", authed, s.CreateComment)

	// Social graph
	app.Post("/follow/:username", authed, s.Follow)
	app.Post("/unfollow/:username", authed, s.Unfollow)

	// Search and profiles
	searchLimit := s.limiter.Handler(middleware.Rule{Name: "search", Limit: 30, Window: time.Minute})
	app.Get("/search", s.SearchForm)
	app.Post("/search", searchLimit, s.Search)
	app.Get("/search-results", searchLimit, s.SearchResults)
	app.Get("/user/:username", s.UserProfile)
	app.Get("/user/:username/blogs", s.UserBlogs)
	app.Get("/user/:username/followers", s.Followers)
	app.Get("/user/:username/following", s.Following)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so only
// the database decides readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus != "healthy" {
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	s.app = s.NewApp()
	middleware.Logger.Info("server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully stops the HTTP server and closes the database and Redis.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
