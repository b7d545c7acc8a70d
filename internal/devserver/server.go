// Package devserver is a reference HackDojo backend for local development and
// integration tests. Accounts, progress and activity live in memory and are
// lost when the process exits.
package devserver

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/curriculum"
	"github.com/hackdojo/hackdojo/internal/llm"
	"github.com/hackdojo/hackdojo/internal/metrics"
)

// DemoPassword is the password of every seeded demo account.
const DemoPassword = "Dojo1234"

// Config configures a Server. Zero values get usable defaults.
type Config struct {
	// Secret signs access tokens. A random secret is generated when empty,
	// which invalidates every token on restart.
	Secret   []byte
	TokenTTL time.Duration

	// Curriculum defaults to the embedded curriculum.
	Curriculum *curriculum.Document

	// Executor runs submitted code. Defaults to python3 with a 5s limit.
	Executor Executor

	// Assistant answers Sensei questions. Nil answers from lesson hints.
	Assistant llm.Provider

	Logger   *slog.Logger
	Registry *prometheus.Registry

	// HashCost is the bcrypt cost; tests use bcrypt.MinCost.
	HashCost int

	// SeedDemo creates the demo student, parent and admin accounts.
	SeedDemo bool

	Now func() time.Time
}

// Server is the reference backend. It implements http.Handler.
type Server struct {
	doc       *curriculum.Document
	exec      Executor
	assistant llm.Provider
	log       *slog.Logger
	metrics   *metrics.Collector
	tokens    tokenIssuer
	dir       *directory
	hashCost  int
	now       func() time.Time

	handler http.Handler
}

// New builds a Server from cfg.
func New(cfg Config) (*Server, error) {
	if cfg.Curriculum == nil {
		doc, err := curriculum.Default()
		if err != nil {
			return nil, fmt.Errorf("load curriculum: %w", err)
		}
		cfg.Curriculum = doc
	}
	if len(cfg.Secret) == 0 {
		cfg.Secret = make([]byte, 32)
		if _, err := rand.Read(cfg.Secret); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.Executor == nil {
		cfg.Executor = PythonExecutor{Python: "python3", Timeout: 5 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Server{
		doc:       cfg.Curriculum,
		exec:      cfg.Executor,
		assistant: cfg.Assistant,
		log:       cfg.Logger,
		metrics:   metrics.NewCollector(cfg.Registry),
		tokens:    tokenIssuer{secret: cfg.Secret, ttl: cfg.TokenTTL, now: cfg.Now},
		dir:       newDirectory(),
		hashCost:  cfg.HashCost,
		now:       cfg.Now,
	}
	if cfg.SeedDemo {
		if err := s.seedDemo(); err != nil {
			return nil, err
		}
	}
	s.handler = s.routes(cfg.Registry)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.accessLog)
	r.Use(s.metrics.Middleware)

	r.Handle("/metrics", metrics.Handler(gatherer))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/register", s.handleRegister)
		r.Get("/curriculum", s.handleCurriculum)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/auth/profile", s.handleProfile)
			r.Get("/lesson/{day}", s.handleLesson)
			r.Get("/progress", s.handleGetProgress)
			r.Post("/progress/init", s.handleInitProgress)
			r.Post("/progress", s.handleUpdateProgress)
			r.Post("/run", s.handleRun)
			r.Post("/sensei/ask", s.handleSensei)

			r.Group(func(r chi.Router) {
				r.Use(requireRole(api.RoleParent, "Parent access required"))
				r.Post("/auth/child", s.handleAddChild)
				r.Get("/parent/children", s.handleChildren)
				r.Get("/parent/child/{id}/progress", s.handleChildProgress)
				r.Get("/parent/child/{id}/recent-activity", s.handleChildActivity)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireRole(api.RoleAdmin, "Admin access required"))
				r.Get("/admin/users", s.handleUsers)
				r.Put("/admin/users/{id}/role", s.handleSetRole)
				r.Get("/admin/analytics", s.handleAnalytics)
			})
		})
	})
	return r
}

// accessLog writes one structured line per request, at warn for 4xx and
// error for 5xx.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		attrs := []any{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
		}
		if p, ok := principalFrom(r.Context()); ok {
			attrs = append(attrs, slog.Int("user_id", p.id))
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		s.log.Log(r.Context(), level, "http_request", attrs...)
	})
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", slog.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) seedDemo() error {
	demo := []struct {
		email, name string
		role        api.Role
	}{
		{"student@hackdojo.dev", "Sam", api.RoleStudent},
		{"parent@hackdojo.dev", "Pat", api.RoleParent},
		{"admin@hackdojo.dev", "Ada", api.RoleAdmin},
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}
	ids := make(map[api.Role]int, len(demo))
	for _, d := range demo {
		a, err := s.dir.create(account{email: d.email, name: d.name, role: d.role, hash: hash})
		if err != nil {
			return fmt.Errorf("seed %s: %w", d.email, err)
		}
		ids[d.role] = a.id
	}
	return s.dir.update(ids[api.RoleStudent], func(a *account) error {
		a.parentID = ids[api.RoleParent]
		a.age = 12
		return nil
	})
}
