// Package server is the HTTP surface of adminauthd: the admin dashboard's
// login, refresh, logout and session endpoints on a chi router.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/account"
	authmw "github.com/MrEthical07/adminauth/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Config holds the HTTP server configuration.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MaxBodyBytes    int64

	// Per-IP request budgets per minute. Zero disables the limiter.
	LoginPerMinute   int
	RefreshPerMinute int

	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites them; otherwise
	// clients pick their own rate limit key.
	TrustProxy bool
}

func DefaultConfig() Config {
	return Config{
		Addr:             ":8080",
		ShutdownTimeout:  15 * time.Second,
		CORSOrigins:      []string{"http://localhost:3000"},
		MaxBodyBytes:     64 << 10,
		LoginPerMinute:   10,
		RefreshPerMinute: 30,
	}
}

// Auth is the engine surface the handlers use. *adminauth.Engine
// implements it.
type Auth interface {
	Login(ctx context.Context, email, password string) (*adminauth.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*adminauth.TokenResult, error)
	Authorize(ctx context.Context, accessToken string) (*adminauth.Claims, error)
	Logout(ctx context.Context, accountID, refreshToken string) error
	BlacklistToken(ctx context.Context, accessToken string) error
	LogoutAll(ctx context.Context, accountID string) error
	Account(ctx context.Context, accountID string) (*account.Public, error)
	ChangePassword(ctx context.Context, accountID, current, next string) error
}

type Server struct {
	cfg     Config
	auth    Auth
	metrics http.Handler
	logger  *slog.Logger
	router  chi.Router
}

// New wires routes and middleware. metrics may be nil, in which case
// /metrics is not mounted.
func New(cfg Config, auth Auth, metrics http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		auth:    auth,
		metrics: metrics,
		logger:  logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	if s.cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(requestID)
	r.Use(requestLogger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Health and metrics ---
	r.Get("/healthz", s.handleHealthz)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	// --- Admin auth ---
	r.Route("/api/admin/auth", func(r chi.Router) {
		r.Use(limitBody(s.cfg.MaxBodyBytes))

		r.With(rateLimit(s.cfg.LoginPerMinute)).Post("/login", s.handleLogin)
		r.With(rateLimit(s.cfg.RefreshPerMinute)).Post("/refresh", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(authmw.Guard(s.auth))
			r.Post("/logout", s.handleLogout)
			r.Post("/logout-all", s.handleLogoutAll)
			r.Get("/me", s.handleMe)
			r.Post("/password", s.handleChangePassword)
		})
	})

	s.router = r
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is done, then drains in-flight requests
// for up to ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server listen: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}
