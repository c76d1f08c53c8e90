package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"excursion/assistant"
	"excursion/audit"
	"excursion/auth"
	"excursion/config"
	"excursion/gallery"
	"excursion/handlers"
	"excursion/middleware"
	"excursion/session"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting Senegal Excursion API",
		zap.String("environment", cfg.Server.Environment),
		zap.String("addr", cfg.Addr()))

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize backend", zap.Error(err))
		return err
	}
	defer be.close()

	sink := audit.NewAsyncSink(be.store, audit.NewHTTPIPLookup(cfg.Audit.IPLookupURL), cfg.Audit.BufferSize, logger.Named("audit"))
	repo := gallery.NewRepository(be.store, be.media, sink, logger.Named("gallery"))

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshTokenExpiration)
	limiter := auth.NewAttemptLimiter(cfg.Login.MaxAttempts, cfg.Login.Lockout)
	gateway := auth.NewGateway(be.store, jwtManager, limiter, logger.Named("auth"))
	sessions := session.NewManager(gateway, logger.Named("session"))
	defer sessions.Close()

	// The manager reports Loading until the persisted session is restored.
	if err := gateway.Restore(ctx); err != nil {
		logger.Warn("admin session restore failed", zap.Error(err))
	}

	proxy, err := newAssistant(ctx, cfg, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      newRouter(cfg, logger, repo, sessions, proxy),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sink.Run()
		return nil
	})
	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server forced to shutdown", zap.Error(err))
		}
		sessions.Close()
		if err := sink.Close(shutdownCtx); err != nil {
			logger.Warn("audit sink did not drain", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server failed", zap.Error(err))
		return err
	}
	logger.Info("server stopped gracefully")
	return nil
}

func newAssistant(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*assistant.Proxy, error) {
	gen, err := assistant.NewGeminiGenerator(ctx, cfg.Assistant.APIKey, cfg.Assistant.Model, cfg.Assistant.Temperature)
	if err != nil {
		logger.Error("failed to initialize Gemini client", zap.Error(err))
		return nil, err
	}
	if gen == nil {
		logger.Warn("GEMINI_API_KEY not set, assistant answers with the not-configured reply")
		return assistant.NewProxy(nil, logger.Named("assistant")), nil
	}
	return assistant.NewProxy(gen, logger.Named("assistant")), nil
}

func newRouter(cfg *config.Config, logger *zap.Logger, repo *gallery.Repository, sessions *session.Manager, proxy *assistant.Proxy) http.Handler {
	galleryHandler := handlers.NewGalleryHandler(repo, cfg.Gallery.MaxUploadBytes, logger.Named("handlers"))
	authHandler := handlers.NewAuthHandler(sessions, cfg.IsProduction(), logger.Named("handlers"))
	chatHandler := handlers.NewChatHandler(proxy)
	contactHandler := handlers.NewContactHandler(cfg.Contact.Phone, cfg.Contact.Email)
	site := handlers.NewSiteHandler(cfg.Server.StaticDir)

	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("/health", handlers.Health)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/gallery", galleryHandler.List)
	mux.HandleFunc("/api/gallery/categories", galleryHandler.Categories)
	mux.HandleFunc("/api/chat", chatHandler.Ask)
	mux.HandleFunc("/api/contact", contactHandler.Get)
	mux.HandleFunc("/api/admin/login", authHandler.Login)
	mux.HandleFunc("/api/admin/refresh", authHandler.RefreshToken)
	mux.HandleFunc("/api/admin/session", authHandler.Session)

	// Admin routes behind the route guard
	guard := middleware.RequireSession(sessions, logger.Named("guard"))
	mux.Handle("/api/admin/logout", guard(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("/api/admin/gallery", guard(http.HandlerFunc(galleryHandler.AdminList)))
	mux.Handle("/api/admin/gallery/create", guard(http.HandlerFunc(galleryHandler.Create)))
	mux.Handle("/api/admin/gallery/update", guard(http.HandlerFunc(galleryHandler.Update)))
	mux.Handle("/api/admin/gallery/delete", guard(http.HandlerFunc(galleryHandler.Delete)))
	mux.Handle("/api/admin/gallery/export", guard(http.HandlerFunc(galleryHandler.Export)))
	mux.Handle("/admin", guard(site))
	mux.Handle("/admin/", guard(site))

	// Browser routes
	mux.Handle("/", site)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)

	return middleware.Chain(mux,
		middleware.AccessLog(logger.Named("http")),
		middleware.Metrics(func(r *http.Request) string {
			_, pattern := mux.Handler(r)
			return pattern
		}),
		middleware.CORSMiddleware(cfg.CORS.AllowedOrigins),
		rateLimiter.Middleware(),
		middleware.ClientIPMiddleware,
	)
}
