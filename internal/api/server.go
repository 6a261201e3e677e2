package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/leadscout/backend/internal/api/handlers"
	"github.com/leadscout/backend/internal/config"
	"github.com/leadscout/backend/internal/health"
	"github.com/leadscout/backend/internal/middleware"
	"github.com/leadscout/backend/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Dependencies are the services the HTTP layer is built from.
type Dependencies struct {
	Config         *config.Config
	Logger         *logrus.Logger
	AuthService    *services.AuthService
	SearchService  *services.SearchService
	WebhookService *services.WebhookService
	HealthChecker  *health.HealthChecker
}

// Server owns the gin engine and the per-route rate limiters.
type Server struct {
	cfg      *config.Config
	logger   *logrus.Logger
	router   *gin.Engine
	limiters []*middleware.RateLimiter

	auth    *handlers.AuthHandler
	search  *handlers.SearchHandler
	webhook *handlers.WebhookHandler
	health  *handlers.HealthHandler
}

func NewServer(deps Dependencies) *Server {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.New(corsConfig(deps.Config.Server.FrontendOrigins)))
	r.Use(middleware.BodyLimit(middleware.MaxBodyBytes))

	s := &Server{
		cfg:     deps.Config,
		logger:  deps.Logger,
		router:  r,
		auth:    handlers.NewAuthHandler(deps.AuthService, deps.Config.IsProduction(), deps.Logger),
		search:  handlers.NewSearchHandler(deps.SearchService, deps.Logger),
		webhook: handlers.NewWebhookHandler(deps.WebhookService, deps.Logger),
		health:  handlers.NewHealthHandler(deps.HealthChecker),
	}
	s.registerRoutes(deps.AuthService)
	return s
}

// corsConfig allows credentials for the configured front end origins. With
// no origins configured every origin is reflected, which suits development.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-API-Key", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (s *Server) limiter(perMinute int) gin.HandlerFunc {
	rl := middleware.NewRateLimiter(perMinute)
	s.limiters = append(s.limiters, rl)
	return rl.RateLimit()
}

func (s *Server) registerRoutes(authenticator middleware.Authenticator) {
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/health", s.health.Health)
	s.router.GET("/health/detailed", s.health.Detailed)

	authRoutes := s.router.Group("/api/auth")
	authRoutes.GET("/session", s.auth.Session)
	authRoutes.POST("/logout", s.auth.Logout)
	limited := authRoutes.Group("", s.limiter(s.cfg.RateLimit.AuthPerMinute))
	limited.POST("/signup", s.auth.Signup)
	limited.POST("/login", s.auth.Login)

	search := s.router.Group("/api/search", middleware.RequireAuth(authenticator))
	search.POST("", s.search.CreateSearch)
	search.GET("", s.search.ListSearches)
	search.GET("/stats", s.search.GetStats)
	search.GET("/:id", s.search.GetSearch)
	search.GET("/:id/conversations", s.search.GetConversations)
	search.DELETE("/:id", s.search.DeleteSearch)

	s.router.POST("/api/webhook/n8n",
		middleware.WebhookAuth(s.cfg.N8N.WebhookSecret),
		s.limiter(s.cfg.RateLimit.WebhookPerMinute),
		s.webhook.HandleN8N,
	)
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close stops the rate limiter janitors.
func (s *Server) Close() {
	for _, rl := range s.limiters {
		rl.Stop()
	}
}
