package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/NotYourBr0/GTD-backend/config"
	"github.com/NotYourBr0/GTD-backend/game"
	"github.com/NotYourBr0/GTD-backend/logger"
	"github.com/NotYourBr0/GTD-backend/migrations"
	"github.com/NotYourBr0/GTD-backend/notify"
	"github.com/NotYourBr0/GTD-backend/storage"
	"github.com/NotYourBr0/GTD-backend/words"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func CreateServer(allowedOrigins []string, environment string) *gin.Engine {
	startedAt := time.Now()

	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware())
	r.SetTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":      "OK",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"uptime":      time.Since(startedAt).Seconds(),
			"environment": environment,
		})
	})

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		if slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Authorization",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

func RegisterGameRoutes(r *gin.Engine, h *game.GameHandler) {
	api := r.Group("/api")
	api.GET("/rooms", h.ListRoomsHandler)
	api.POST("/rooms", h.CreateRoomHandler)

	r.GET("/ws", h.WebsocketHandler)
}

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	logger.Setup(os.Stdout, cfg.LogLevel, !cfg.Production())
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	catalog := words.NewCatalog(cfg.WordDifficulty, cfg.WordCategory)
	log.Info().Str("difficulty", string(cfg.WordDifficulty)).Str("category", cfg.WordCategory).Int("words", catalog.Size()).Msg("word catalog loaded")
	var wordSource game.WordSource = catalog
	var opts []game.RegistryOption

	if cfg.PostgresURL != "" {
		if err := migrations.Migrate(cfg.PostgresURL); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
		pgRepo, err := storage.NewPostgresRepo(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer pgRepo.Close()
		if err := pgRepo.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to reach postgres")
		}

		prefetch := words.NewPrefetcher(words.WithFallback(pgRepo, catalog), catalog, 32)
		g.Go(func() error { return prefetch.Run(gctx) })
		wordSource = prefetch
		opts = append(opts, game.WithRecorder(pgRepo, 5*time.Second))
		log.Info().Msg("postgres word source and result archive enabled")
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to reach redis")
		}

		publisher := notify.NewRedisPublisher(rdb, cfg.RedisChannel, 1024)
		opts = append(opts, game.WithNotifier(publisher))
		g.Go(func() error { return publisher.Run(gctx) })
		log.Info().Str("channel", cfg.RedisChannel).Msg("redis room events enabled")
	}

	sessionConfig := game.DefaultSessionConfig()
	sessionConfig.RoundTime = cfg.RoundTime
	sessionConfig.IdleTTL = cfg.RoomIdleTTL

	registry := game.NewRegistry(sessionConfig, game.SessionDeps{Words: wordSource}, opts...)
	gateway := game.NewGateway(registry)
	gameHandler := game.NewGameHandler(registry, gateway)

	r := CreateServer(cfg.AllowedOrigins, cfg.Environment)
	RegisterGameRoutes(r, gameHandler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("environment", cfg.Environment).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down, closing rooms")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		registry.Shutdown()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return
	}
	log.Info().Msg("bye")
}
