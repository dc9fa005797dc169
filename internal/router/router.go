package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/student-registry/internal/config"
	"github.com/stemsi/student-registry/internal/handler"
	"github.com/stemsi/student-registry/internal/middleware"
	"github.com/stemsi/student-registry/internal/model"
	"github.com/stemsi/student-registry/internal/response"
	"github.com/stemsi/student-registry/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Student *handler.StudentHandler
	WS      *handler.WSHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background goroutines owned by the router, such as the rate limiter cleanup.
func SetupRouter(
	ctx context.Context,
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))

	router.GET("/health", handlers.System.Health)

	loadSession := middleware.LoadSession(authService, log)
	requireAdmin := middleware.RequireRole(authService, model.RoleAdmin)

	loginLimiter := middleware.NewRateLimiter(ctx, cfg.LoginRateLimit, time.Minute)
	registerLimiter := middleware.NewRateLimiter(ctx, cfg.RegisterRateLimit, time.Minute)

	// ─── 1. Auth + Public API ──────────────────────────────────────────
	api := router.Group("/api")
	api.Use(loadSession)
	{
		api.POST("/login", loginLimiter.Middleware(), handlers.Auth.Login)
		api.POST("/logout", handlers.Auth.Logout)
		api.GET("/user", middleware.RequireSession(), middleware.NoStore(), handlers.Auth.CurrentUser)
		api.POST("/register", registerLimiter.Middleware(), handlers.Auth.Register)
		api.POST("/accounts", requireAdmin, handlers.Auth.CreateAccount)

		api.POST("/students", handlers.Student.CreateStudent)
	}

	// ─── 2. Admin student views ────────────────────────────────────────
	// Authorization runs before any store access.
	adminStudents := api.Group("/students")
	adminStudents.Use(
		requireAdmin,
		middleware.NoStore(),
		middleware.BrotliWithConfig(middleware.BrotliConfig{MinLength: cfg.CompressionMinBytes}),
	)
	{
		adminStudents.GET("", handlers.Student.ListStudents)
		adminStudents.GET("/query", handlers.Student.QueryStudents)
		adminStudents.GET("/:id", handlers.Student.GetStudent)
	}

	// ─── 3. WebSocket live feed ────────────────────────────────────────
	ws := router.Group("/ws")
	ws.Use(loadSession, requireAdmin)
	{
		ws.GET("/students", handlers.WS.StudentFeed)
	}

	return router
}
