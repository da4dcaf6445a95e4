package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shoplist/server/internal/config"
	"github.com/shoplist/server/internal/handlers"
	custommw "github.com/shoplist/server/internal/middleware"
	"github.com/shoplist/server/internal/observability"
	"github.com/shoplist/server/internal/repository"
	"github.com/shoplist/server/internal/services"
)

const serviceVersion = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize telemetry
	ctx := context.Background()
	telemetry, err := observability.Setup(ctx, "shoplist-server", serviceVersion)
	if err != nil {
		log.Printf("Telemetry init failed, continuing without: %v", err)
	}

	// Initialize database and repositories
	var itemRepo repository.ItemRepo
	var sessionRepo repository.SessionRepo
	var settingsRepo repository.SettingsRepo
	if cfg.UsePostgres() {
		log.Println("Using PostgreSQL database")
		db, err := repository.NewPostgresDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
		}
		defer db.Close()
		itemRepo = repository.NewItemRepositoryPostgres(db)
		sessionRepo = repository.NewSessionRepository(db)
		settingsRepo = repository.NewSettingsRepository(db)
	} else {
		log.Println("Using SQLite database")
		db, err := repository.NewSQLiteDB(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite database: %v", err)
		}
		defer db.Close()
		itemRepo = repository.NewItemRepository(db)
		sessionRepo = repository.NewSessionRepository(db)
		settingsRepo = repository.NewSettingsRepository(db)
	}

	// Initialize services
	sessionDuration := time.Duration(cfg.Security.SessionDurationDays) * 24 * time.Hour
	authService := services.NewAuthService(settingsRepo, sessionRepo, sessionDuration)
	hub := services.NewWebSocketHub()
	go hub.Run()

	// Expired sessions are deleted on validation; this sweep catches
	// tokens that never come back.
	go func() {
		ticker := time.NewTicker(12 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := sessionRepo.DeleteExpired(context.Background()); err != nil {
				log.Printf("Session cleanup error: %v", err)
			} else if n > 0 {
				log.Printf("Removed %d expired sessions", n)
			}
		}
	}()

	// Initialize handlers
	itemHandler := handlers.NewItemHandler(itemRepo, hub)
	syncHandler := handlers.NewSyncHandler(itemRepo, hub)
	authHandler := handlers.NewAuthHandler(authService)
	healthHandler := handlers.NewHealthHandler()
	wsHandler := handlers.NewWebSocketHandler(hub)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TracingMiddleware("shoplist-server"))
	if httpMetrics, err := observability.NewHTTPMetrics(); err == nil {
		r.Use(observability.MetricsMiddleware(httpMetrics))
	}
	r.Use(custommw.SessionAuth(authService, []string{
		"/api/health",
		"/api/auth/*",
	}))

	// Routes
	r.Get("/health", healthHandler.HealthCheck)
	r.Get("/api/health", healthHandler.HealthCheck)
	r.Get("/ws", wsHandler.HandleConnection)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/setup", authHandler.Setup)
		r.Post("/verify", authHandler.Verify)
		r.Get("/check", authHandler.Check)
		r.Post("/logout", authHandler.Logout)
	})

	r.Route("/api/items", func(r chi.Router) {
		r.Get("/", itemHandler.List)
		r.Post("/", itemHandler.Create)
		r.Post("/sync", syncHandler.Sync)
		r.Patch("/{id}", itemHandler.Update)
		r.Delete("/{id}", itemHandler.Delete)
	})

	// Create server
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Shopping list server starting on %s", cfg.ServerAddress)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			log.Printf("Telemetry shutdown error: %v", err)
		}
	}

	log.Println("Server stopped")
}
