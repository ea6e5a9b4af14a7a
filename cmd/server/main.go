package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/recap-org/backend/internal/config"
	"github.com/recap-org/backend/internal/generator"
	"github.com/recap-org/backend/internal/gitcmd"
	"github.com/recap-org/backend/internal/github"
	"github.com/recap-org/backend/internal/handlers"
	"github.com/recap-org/backend/internal/middleware"
	"github.com/recap-org/backend/internal/oauthstate"
	"github.com/recap-org/backend/internal/provisioner"
	"github.com/recap-org/backend/internal/session"
	"github.com/recap-org/backend/internal/templates"
)

func main() {
	// Initialize logger with stdout sync
	zapConfig := zap.NewProductionConfig()
	zapConfig.OutputPaths = []string{"stdout"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}
	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg := config.Load()

	logger.Info("Recap Template API starting...",
		zap.String("environment", cfg.Environment),
		zap.String("templates_path", cfg.TemplatesPath),
	)

	// Core components
	registry := templates.NewRegistry(cfg.TemplatesPath)
	engine := generator.NewTemplateEngine()
	gen := generator.New(registry, engine, logger)
	ghClient := github.NewClient(cfg.GitHubAPIURL, cfg.GitHubTokenURL)
	gitRunner := gitcmd.NewExecRunner()
	prov := provisioner.New(gen, ghClient, gitRunner, cfg.GitHubDefaultOrg, logger)
	signer := oauthstate.NewSigner(cfg.SessionSecret)
	metrics := middleware.NewMetrics()

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.RequestID())
	router.Use(metrics.Handler())

	// Signed cookie sessions for the OAuth flow
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.SessionHTTPSOnly,
		SameSite: sameSiteMode(cfg.SessionSameSite),
	})
	router.Use(sessions.Sessions(cfg.SessionCookieName, store))

	// Handlers
	healthHandler := handlers.NewHealthHandler(cfg.TemplatesPath)
	templateHandler := handlers.NewTemplateHandler(
		registry, gen, prov, session.FromContext, cfg.GitHubToken, metrics, logger)
	authHandler := handlers.NewAuthHandler(handlers.AuthConfig{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURI:  cfg.GitHubRedirectURI,
		AuthorizeURL: cfg.GitHubAuthorizeURL,
		SuccessURL:   cfg.OAuthSuccessURL,
	}, ghClient, signer, session.FromContext, logger)

	router.GET("/", healthHandler.Root)
	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", metrics.Exposition())

	router.GET("/cookiecutter", templateHandler.List)
	router.GET("/cookiecutter/:name", templateHandler.GetSchema)
	router.POST("/cookiecutter/:name/download", templateHandler.Download)
	router.POST("/cookiecutter/:name/github", templateHandler.CreateRepo)

	auth := router.Group("/auth/github")
	{
		auth.GET("/login", authHandler.Login)
		auth.GET("/callback", authHandler.Callback)
		auth.GET("/me", authHandler.Me)
		auth.GET("/logout", authHandler.Logout)
	}

	// Create HTTP server. Rendering plus the initial push can take a
	// while, so the write timeout is generous.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited gracefully")
}

func sameSiteMode(value string) http.SameSite {
	switch value {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
