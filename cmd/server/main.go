package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pellston/hexhammer/internal/auth"
	"github.com/pellston/hexhammer/internal/config"
	"github.com/pellston/hexhammer/internal/handler"
	"github.com/pellston/hexhammer/internal/logger"
	"github.com/pellston/hexhammer/internal/middleware"
	"github.com/pellston/hexhammer/internal/repository/postgres"
	redisrepo "github.com/pellston/hexhammer/internal/repository/redis"
	"github.com/pellston/hexhammer/internal/service"
)

func main() {
	logger.Init()
	cfg := config.Load()
	log.Info().Str("databaseURL", cfg.DatabaseURL).Msg("Config loaded")

	// Database
	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	// Redis
	redisClient, err := redisrepo.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	// Enable Redis keyspace notifications for turn timer expiry events.
	if err := redisClient.Underlying().ConfigSet(context.Background(), "notify-keyspace-events", "Ex").Err(); err != nil {
		log.Warn().Err(err).Msg("Failed to set Redis keyspace notifications (turn deadlines may not fire)")
	}

	// Repos
	userRepo := postgres.NewUserRepo(db)
	matchRepo := postgres.NewMatchRepo(db)
	eventRepo := postgres.NewEventRepo(db)

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)
	googleOAuth := auth.NewGoogleOAuth(
		os.Getenv("GOOGLE_CLIENT_ID"),
		os.Getenv("GOOGLE_CLIENT_SECRET"),
		os.Getenv("GOOGLE_REDIRECT_URL"),
	)

	// WebSocket hub
	wsHub := handler.NewHub()

	// Services
	matchSvc := service.NewMatchService(matchRepo, userRepo, redisClient, cfg.DefaultBoard, cfg.MaxTurnsLimit)
	actionSvc := service.NewActionService(matchRepo, eventRepo, redisClient, wsHub, cfg.PolicyModel, cfg.TurnTimeout)

	// Timer listener (auto-skip stalled activations on deadline expiry)
	timerListener := service.NewTimerListener(redisClient.Underlying(), actionSvc)

	// Handlers
	authHandler := handler.NewAuthHandler(googleOAuth, jwtMgr, userRepo)
	userHandler := handler.NewUserHandler(userRepo)
	matchHandler := handler.NewMatchHandler(matchSvc, actionSvc, wsHub)
	actionHandler := handler.NewActionHandler(matchSvc, actionSvc)
	queryHandler := handler.NewQueryHandler(matchSvc, actionSvc)
	wsHandler := handler.NewWSHandler(wsHub, jwtMgr)

	// Router
	mux := http.NewServeMux()
	authMw := auth.Middleware(jwtMgr)

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth (public)
	mux.HandleFunc("GET /auth/google/login", authHandler.GoogleLogin)
	mux.HandleFunc("GET /auth/google/callback", authHandler.GoogleCallback)
	mux.HandleFunc("POST /auth/refresh", authHandler.RefreshToken)
	mux.HandleFunc("GET /auth/dev", authHandler.DevLogin)

	// Protected API routes
	api := http.NewServeMux()
	api.HandleFunc("GET /users/me", userHandler.GetMe)
	api.HandleFunc("PATCH /users/me", userHandler.UpdateMe)
	api.HandleFunc("GET /users/{id}", userHandler.GetUser)
	api.HandleFunc("GET /scenarios", matchHandler.ListScenarios)
	api.HandleFunc("POST /matches", matchHandler.CreateMatch)
	api.HandleFunc("GET /matches", matchHandler.ListMatches)
	api.HandleFunc("GET /matches/{id}", matchHandler.GetMatch)
	api.HandleFunc("POST /matches/{id}/join", matchHandler.JoinMatch)
	api.HandleFunc("POST /matches/{id}/start", matchHandler.StartMatch)
	api.HandleFunc("POST /matches/{id}/ready", matchHandler.MarkReady)
	api.HandleFunc("DELETE /matches/{id}/ready", matchHandler.UnmarkReady)
	api.HandleFunc("DELETE /matches/{id}", matchHandler.DeleteMatch)
	api.HandleFunc("POST /matches/{id}/stop", matchHandler.StopMatch)
	api.HandleFunc("POST /matches/{id}/actions", actionHandler.SubmitAction)
	api.HandleFunc("GET /matches/{id}/state", queryHandler.GetState)
	api.HandleFunc("GET /matches/{id}/eligible", queryHandler.EligibleUnits)
	api.HandleFunc("GET /matches/{id}/units/{unitId}/moves", queryHandler.MoveDestinations)
	api.HandleFunc("GET /matches/{id}/units/{unitId}/charges", queryHandler.ChargeDestinations)
	api.HandleFunc("GET /matches/{id}/units/{unitId}/visible", queryHandler.VisibleEnemies)
	api.HandleFunc("GET /matches/{id}/events", queryHandler.Events)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", authMw(api)))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Logger, middleware.CORS("*"), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Rebuild live sessions from cached snapshots after a restart.
	if err := actionSvc.RecoverActiveMatches(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to recover active matches (non-fatal)")
	}

	// Start timer listener
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go timerListener.Start(ctx)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}
