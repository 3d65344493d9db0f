// Package server wires the application together: it builds the dependency
// chain (store → services → handlers), mounts all routes with their
// middleware, and owns startup and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riskinn/riskinn-api/internal/auth"
	"github.com/riskinn/riskinn-api/internal/config"
	"github.com/riskinn/riskinn-api/internal/email"
	"github.com/riskinn/riskinn-api/internal/handler"
	"github.com/riskinn/riskinn-api/internal/middleware"
	"github.com/riskinn/riskinn-api/internal/model"
	sqliteRepo "github.com/riskinn/riskinn-api/internal/repository/sqlite"
	"github.com/riskinn/riskinn-api/internal/service"
	"github.com/riskinn/riskinn-api/internal/storage"
)

// Server owns the router and the resources that must be released on
// shutdown (the database connection).
type Server struct {
	router *chi.Mux
	cfg    config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain from config. Optional
// integrations degrade instead of failing boot: without SMTP settings mail
// is logged, without OAuth settings the Google routes return a
// configuration error, without a bucket the upload route does the same.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.cfg.JWTSecret, s.cfg.JWTExpiry)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService(s.cfg.BcryptCost)

	notifier, err := s.buildNotifier()
	if err != nil {
		return err
	}

	var google service.GoogleExchanger
	if s.cfg.GoogleConfigured() {
		google = auth.NewGoogleProvider(
			s.cfg.GoogleClientID, s.cfg.GoogleClientSecret, s.cfg.GoogleCallbackURL)
	} else {
		s.logger.Warn("Google OAuth not configured, /auth/google routes disabled")
	}

	store, err := s.buildObjectStore()
	if err != nil {
		return err
	}

	authService := service.NewAuthService(s.db, tokens, passwords, notifier, google,
		service.AuthOptions{
			OTPLength:         s.cfg.OTPLength,
			OTPExpiry:         s.cfg.OTPExpiry,
			PasswordMinLength: s.cfg.PasswordMinLength,
			ResetTokenExpiry:  s.cfg.ResetTokenExpiry,
			FrontendURL:       s.cfg.FrontendURL,
		}, s.logger)
	userService := service.NewUserService(s.db, passwords, s.cfg.PasswordMinLength, s.logger)
	catalogService := service.NewCatalogService(s.db, s.logger)
	leadService := service.NewLeadService(s.db, notifier, s.logger)
	uploadService := service.NewUploadService(store, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.cfg.FrontendLoginURL, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	catalogHandler := handler.NewCatalogHandler(catalogService, s.logger)
	leadHandler := handler.NewLeadHandler(leadService, s.logger)
	uploadHandler := handler.NewUploadHandler(uploadService, s.logger)

	requireAuth := auth.RequireAuth(tokens, s.db)
	optionalAuth := auth.OptionalAuth(tokens, s.db)

	// Global middleware, in execution order.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics(func(r *http.Request) string {
		// Read the matched pattern after routing so per-ID paths share
		// one metric label.
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				return p
			}
		}
		return "unmatched"
	}))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			// The credential endpoints get a tighter rate limit than the
			// rest of the API: they are the brute-force surface.
			r.Group(func(r chi.Router) {
				r.Use(httprate.LimitByIP(20, time.Minute))
				r.Post("/register", authHandler.HandleRegister)
				r.Post("/verify-otp", authHandler.HandleVerifyOTP)
				r.Post("/login", authHandler.HandleLogin)
				r.Post("/forgot-password", authHandler.HandleForgotPassword)
				r.Get("/verify-reset-token/{token}", authHandler.HandleVerifyResetToken)
				r.Post("/reset-password", authHandler.HandleResetPassword)
			})

			r.Get("/google", authHandler.HandleGoogleLogin)
			r.Get("/google/callback", authHandler.HandleGoogleCallback)
			r.Post("/logout", authHandler.HandleLogout)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", authHandler.HandleMe)
			})
		})

		r.Route("/courses", func(r chi.Router) {
			r.Use(httprate.LimitByIP(120, time.Minute))
			r.Get("/", catalogHandler.HandleList)
			r.Get("/{idOrSlug}", catalogHandler.HandleGet)
		})

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(30, time.Minute))
			r.Use(optionalAuth)
			r.Post("/contact", leadHandler.HandleContact)
			r.Post("/course-inquiries", leadHandler.HandleSubmitInquiry)
		})

		r.Get("/course-contact/{courseId}", leadHandler.HandleGetCourseContact)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(auth.RequireRole(model.RoleAdmin, model.RoleSuperAdmin))
			r.Post("/course-contact", leadHandler.HandleCreateCourseContact)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/upload", uploadHandler.HandleUpload)
			r.Get("/users/me/profile", userHandler.HandleGetProfile)
			r.Put("/users/me/profile", userHandler.HandleUpdateProfile)
		})
	})

	return nil
}

// buildNotifier returns the SMTP sender when a host is configured, a
// log-only sender otherwise.
func (s *Server) buildNotifier() (email.Notifier, error) {
	if s.cfg.EmailHost == "" {
		s.logger.Warn("SMTP not configured, transactional mail will be logged only")
		return &email.LogSender{Logger: s.logger}, nil
	}
	sender, err := email.NewSMTPSender(email.Config{
		Host:        s.cfg.EmailHost,
		Port:        s.cfg.EmailPort,
		Username:    s.cfg.EmailUser,
		Password:    s.cfg.EmailPassword,
		FromName:    s.cfg.EmailFromName,
		FromAddress: s.cfg.EmailFromAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("creating SMTP sender: %w", err)
	}
	return sender, nil
}

// buildObjectStore returns the S3 client when a bucket is configured, nil
// otherwise (the upload service then reports itself disabled).
func (s *Server) buildObjectStore() (storage.ObjectStore, error) {
	if s.cfg.S3Bucket == "" {
		s.logger.Warn("object storage not configured, /upload disabled")
		return nil, nil
	}
	client, err := storage.New(context.Background(), storage.Config{
		Endpoint:  s.cfg.S3Endpoint,
		Region:    s.cfg.S3Region,
		Bucket:    s.cfg.S3Bucket,
		AccessKey: s.cfg.S3AccessKey,
		SecretKey: s.cfg.S3SecretKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store: %w", err)
	}
	return client, nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests, close
// the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", s.cfg.Addr),
			slog.String("database", s.cfg.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
