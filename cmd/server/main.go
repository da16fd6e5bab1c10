package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"inkroom/internal/channel"
	"inkroom/internal/chat"
	"inkroom/internal/config"
	"inkroom/internal/db"
	"inkroom/internal/digest"
	"inkroom/internal/generation"
	authmw "inkroom/internal/middleware"
	"inkroom/internal/user"
	"inkroom/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "err", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Platform layer.
	database, err := db.NewDatabase(cfg.DBDSN)
	if err != nil {
		log.Error("connecting to database", "err", err)
		os.Exit(1)
	}
	if err := database.AutoMigrate(); err != nil {
		log.Error("running migrations", "err", err)
		os.Exit(1)
	}
	log.Info("database ready")

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			log.Error("connecting to redis", "err", err)
			os.Exit(1)
		}
		log.Info("redis bridge enabled", "addr", cfg.RedisAddr)
	}

	// Live update broadcaster.
	hub := ws.NewHub(log, redisClient)
	go hub.Run(ctx)
	if redisClient != nil {
		go hub.SubscribeToRedis(ctx)
	}

	// Features.
	userRepo := user.NewRepository(database.Conn)
	userService := user.NewService(userRepo, hub, cfg.JWTSecret)
	userHandler := user.NewHandler(userService)

	channelRepo := channel.NewRepository(database.Conn)
	channelService := channel.NewService(channelRepo)
	channelHandler := channel.NewHandler(channelService)

	chatRepo := chat.NewRepository(database.Conn)
	chatService := chat.NewService(chatRepo, hub)
	chatHandler := chat.NewHandler(chatService)

	wsHandler := ws.NewHandler(hub, chatService, channelService, cfg.DigestChannel, log)

	// Aggregation pipeline.
	generator := generation.NewClient(cfg.OllamaHost, cfg.TextModel, cfg.ImageModel, cfg.GenerationTimeout, log)
	scheduler := digest.NewScheduler(digest.Config{
		Period:      cfg.DigestPeriod,
		ChannelName: cfg.DigestChannel,
	}, chatService, channelService, userRepo, generator, log)
	go scheduler.Run(ctx)
	digestHandler := digest.NewHandler(scheduler, cfg.DigestSecret)

	authMiddleware := authmw.NewAuthMiddleware(userService)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Public routes.
	r.Post("/register", userHandler.Register)
	r.Post("/login", userHandler.Login)
	r.Post("/api/digest/run", digestHandler.Run)

	// Protected routes.
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)

		r.Get("/ws", wsHandler.ServeWs)

		r.Get("/api/profile", userHandler.GetProfile)
		r.Patch("/api/profile", userHandler.UpdateProfile)

		r.Post("/api/channels", channelHandler.Create)
		r.Get("/api/channels", channelHandler.List)
		r.Post("/api/channels/join", channelHandler.Join)
		r.Get("/api/channels/members", channelHandler.Members)

		r.Post("/api/messages", chatHandler.PostMessage)
		r.Get("/api/messages", chatHandler.ListMessages)

		r.Post("/api/reactions", chatHandler.AddReaction)
		r.Delete("/api/reactions", chatHandler.RemoveReaction)
	})

	server := &http.Server{Addr: cfg.Addr, Handler: r}
	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	log.Info("server starting", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
