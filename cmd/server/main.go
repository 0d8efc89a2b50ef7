package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/itu-devops/whoknows/internal/auth"
	"github.com/itu-devops/whoknows/internal/config"
	"github.com/itu-devops/whoknows/internal/middleware"
	"github.com/itu-devops/whoknows/internal/search"
	"github.com/itu-devops/whoknows/internal/store"
	"github.com/itu-devops/whoknows/internal/weather"
	"github.com/itu-devops/whoknows/internal/web"
)

const openWeatherURL = "https://api.openweathermap.org"

func main() {
	cfg := config.Load()
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// ── PostgreSQL ────────────────────────────────────────────
	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("postgres connect", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := store.Migrate(ctx, cfg.DatabaseURL); err != nil {
		logger.Error("postgres migrate", "error", err)
		os.Exit(1)
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		logger.Error("redis connect", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	sessions := auth.NewSessionManager(auth.NewRedisSessions(rdb), cfg.SecretKey)

	// ── Rendering & handlers ─────────────────────────────────
	renderer, err := web.NewRenderer(logger)
	if err != nil {
		logger.Error("parse templates", "error", err)
		os.Exit(1)
	}
	authHandler := auth.NewHandler(sessions, renderer, logger)
	searchHandler := search.NewHandler(sessions, renderer, logger)
	weatherClient := weather.NewClient(openWeatherURL, cfg.WeatherAPIKey, cfg.WeatherCity, logger)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestContext(pool, sessions, logger))

	r.Get("/", searchHandler.Home)
	r.Get("/about", searchHandler.About)
	r.Get("/login", authHandler.LoginPage)
	r.Get("/register", authHandler.RegisterPage)
	r.Get("/logout", authHandler.Logout)

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", searchHandler.API)
		r.Get("/weather", weatherClient.Handler)
		r.Post("/login", authHandler.APILogin)
		r.Post("/register", authHandler.APIRegister)
		r.Post("/change-password", authHandler.ChangePassword)
	})

	r.NotFound(renderer.NotFound)

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
