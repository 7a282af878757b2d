package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/legalaid-center/platform/internal/adapters/registry"
	"github.com/legalaid-center/platform/internal/authz"
	"github.com/legalaid-center/platform/internal/beneficiary"
	caseapi "github.com/legalaid-center/platform/internal/case/api"
	caseinfra "github.com/legalaid-center/platform/internal/case/infrastructure"
	"github.com/legalaid-center/platform/internal/document"
	"github.com/legalaid-center/platform/internal/identity"
	"github.com/legalaid-center/platform/internal/judicial"
	"github.com/legalaid-center/platform/internal/notification"
	"github.com/legalaid-center/platform/internal/shared/config"
	"github.com/legalaid-center/platform/internal/shared/database"
	"github.com/legalaid-center/platform/internal/shared/events"
	"github.com/legalaid-center/platform/internal/shared/metrics"
	secmiddleware "github.com/legalaid-center/platform/internal/shared/middleware"
	"github.com/legalaid-center/platform/internal/task"
)

// App holds all application dependencies
type App struct {
	Config   *config.Config
	DB       *database.DB
	Bus      *events.Bus
	Registry registry.Adapter
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	app := &App{Config: cfg}

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	app.DB = db
	defer db.Close()

	if err := database.Migrate(ctx, db.Pool); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	// Event streaming is optional: the workflow is authoritative in Postgres
	// and the stream is a best-effort mirror.
	if cfg.Events.Enabled {
		bus, err := events.NewBus(ctx, cfg.Events)
		if err != nil {
			fmt.Printf("Warning: event store not available: %v\n", err)
		} else {
			app.Bus = bus
			defer bus.Close()
			fmt.Println("Event bus initialized")
		}
	}

	// The legacy court registry is optional; judicial services work without
	// it, the filing lookup endpoint just reports unavailable.
	if cfg.Registry.Enabled {
		reg := registry.NewMSSQL(cfg.Registry)
		if err := reg.Start(ctx); err != nil {
			fmt.Printf("Warning: court registry not available: %v\n", err)
		} else {
			app.Registry = reg
			defer reg.Stop(context.Background())
			fmt.Println("Court registry adapter connected")
		}
	}

	// Repositories
	directory := identity.NewPostgresDirectory(db.Pool)
	caseRepo := caseinfra.NewPostgresRepository(db.Pool)
	judicialRepo := judicial.NewPostgresRepository(db.Pool)
	taskRepo := task.NewPostgresRepository(db.Pool)
	documentRepo := document.NewPostgresRepository(db.Pool)
	beneficiaryRepo := beneficiary.NewPostgresRepository(db.Pool)
	notificationRepo := notification.NewPostgresRepository(db.Pool)

	var bus events.EventBus
	if app.Bus != nil {
		bus = app.Bus
	}
	fanout := notification.NewFanout(notificationRepo, beneficiaryRepo, bus)

	resolver := identity.NewResolver(cfg.Auth, directory)
	ipLimiter := secmiddleware.NewIPRateLimiter(20, 40)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(metrics.Middleware)
	r.Use(ipLimiter.Middleware)

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())
	r.Get("/", infoHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(resolver.Middleware)

		caseHandler := caseapi.NewHandler(caseRepo, directory, documentRepo, fanout)
		r.Mount("/cases", caseHandler.Routes())

		judicialHandler := judicial.NewHandler(
			judicialRepo, directory, documentRepo, fanout,
			func(p identity.Principal, s *judicial.Service, action string) error {
				return authz.JudicialService(p, s, authz.Action(action))
			},
			app.Registry,
		)
		r.Mount("/judicial-services", judicialHandler.Routes())

		taskHandler := task.NewHandler(
			taskRepo, documentRepo, fanout,
			func(p identity.Principal, t *task.Task, action string) error {
				return authz.Task(p, t, authz.Action(action))
			},
		)
		r.Mount("/tasks", taskHandler.Routes())

		beneficiaryHandler := beneficiary.NewHandler(beneficiaryRepo)
		r.Mount("/beneficiaries", beneficiaryHandler.Routes())

		notificationHandler := notification.NewHandler(notificationRepo)
		r.Mount("/notifications", notificationHandler.Routes())
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		fmt.Println("\nShutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			fmt.Printf("Server shutdown error: %v\n", err)
		}
		close(done)
	}()

	fmt.Println("============================================")
	fmt.Println("Legal Aid Center Platform")
	fmt.Println("============================================")
	fmt.Printf("Environment: %s\n", cfg.Server.Env)
	fmt.Printf("Server:      http://localhost:%d\n", cfg.Server.Port)
	fmt.Printf("API:         http://localhost:%d/api/v1\n", cfg.Server.Port)
	fmt.Printf("Health:      http://localhost:%d/health\n", cfg.Server.Port)
	fmt.Println("============================================")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}

	<-done
	fmt.Println("Server stopped")
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "Legal Aid Center Platform",
		"version": "0.1.0",
		"docs":    "/api/v1",
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"server": "ready"}

		if err := app.DB.Health(r.Context()); err != nil {
			checks["database"] = "not ready: " + err.Error()
		} else {
			checks["database"] = "ready"
		}

		if app.Registry != nil {
			if err := app.Registry.Health(r.Context()); err != nil {
				checks["court_registry"] = "not ready: " + err.Error()
			} else {
				checks["court_registry"] = "ready"
			}
		} else {
			checks["court_registry"] = "not configured"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}
