// Binary listkeeper serves a personal to-do list API. It wires the
// configuration, the persistence backend, the background runner and the
// HTTP surface together, then runs until interrupted.
//
// @title ListKeeper API
// @version 1.0
// @description Personal to-do list server with token-authenticated accounts.
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type 'Bearer YOUR_JWT_TOKEN' to authorize
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/user/listkeeper/apperror"
	"github.com/user/listkeeper/auth"
	"github.com/user/listkeeper/background"
	"github.com/user/listkeeper/config"
	_ "github.com/user/listkeeper/docs" // Generated Swagger docs
	"github.com/user/listkeeper/store"
	"github.com/user/listkeeper/todo"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading it: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	st, err := openStore(cfg.Store)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()
	log.Printf("Using %s store backend", cfg.Store.Backend)

	runner := background.NewRunner(16)

	r := newRouter(cfg, st, runner)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	// Drain queued work (password rehashes) before closing the store.
	runner.Stop()
	log.Println("Server stopped gracefully")
}

// openStore picks the persistence backend named by the configuration.
func openStore(cfg *config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		return store.NewPostgresStore(cfg.Postgres, cfg.RunMigrations, cfg.MigrationsPath)
	case config.BackendFile:
		return store.NewFileStore(cfg.DataDir)
	default:
		return nil, apperror.NewConfigError(fmt.Sprintf("unknown store backend %q", cfg.Backend), nil)
	}
}

// newRouter assembles the HTTP surface: global middleware, CORS, the
// rate-limited auth endpoints, the JWT-protected todo endpoints and the
// Swagger UI.
func newRouter(cfg *config.AppConfig, st store.Store, runner *background.Runner) chi.Router {
	authHandlers := auth.NewHandlers(auth.NewService(st, cfg.Auth, runner))
	todoHandlers := todo.NewHandlers(todo.NewService(todo.NewRepository(st)))

	r := chi.NewRouter()

	// Chi requires all middleware to be registered before any routes.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(panicRecovery)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	limiter := authRateLimiter(cfg.RateLimit)
	r.Route("/api/auth", func(api chi.Router) {
		authHandlers.RegisterRoutes(api, limiter)
	})
	r.Route("/api/todos", func(api chi.Router) {
		api.Use(auth.JWTMiddleware(cfg.Auth))
		todoHandlers.RegisterRoutes(api)
	})

	return r
}

// authRateLimiter throttles credential endpoints per client IP and
// endpoint, answering over-limit requests with the standard error body.
func authRateLimiter(cfg *config.RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.Attempts,
		cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, apperror.NewRateLimitedError("too many attempts, try again later", nil))
		}),
	)
}

// panicRecovery converts handler panics into the standard 500 response.
func panicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			if rvr := recover(); rvr != nil {
				log.Printf("Panic: %+v", rvr)
				writeError(ww, apperror.NewInternalError("internal server error", nil))
			}
		}()
		next.ServeHTTP(ww, r)
	})
}

// writeError is a local helper for middleware that runs before the
// feature handlers and their error plumbing.
func writeError(w http.ResponseWriter, appErr *apperror.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())
	if err := json.NewEncoder(w).Encode(appErr.ToResponse()); err != nil {
		http.Error(w, `{"error":"failed to encode error response"}`, http.StatusInternalServerError)
	}
}
