package main

import (
	"context"

	socketio "github.com/googollee/go-socket.io"

	"github.com/pacheco20222/DogMatch-backend-sub000/internal/app"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/auth"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/cache"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/config"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/db"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/logger"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/realtime"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/server"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/service/chat"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/service/ledger"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, log, cfg)
	verifier := auth.NewJWTVerifier(cfg)

	// Realtime plumbing: registry and broadcaster are constructed here,
	// once, and handed to every component that needs them.
	registry := realtime.NewRegistry()
	socketSrv := socketio.NewServer(nil)
	broadcaster := realtime.NewSocketBroadcaster(socketSrv)

	ledgerSvc := ledger.NewService(appCtx)
	chatSvc := chat.NewService(appCtx, ledgerSvc, registry, broadcaster)

	server.RegisterSocketHandlers(socketSrv, appCtx, verifier, registry, ledgerSvc, chatSvc)

	go func() {
		if err := socketSrv.Serve(); err != nil {
			log.Error("socket server stopped", "err", err)
		}
	}()
	defer socketSrv.Close()

	// Background sweep of matches stuck in pending
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ledger.NewSweeper(ledgerSvc).Run(ctx)

	router := server.NewRouter(appCtx, verifier, ledgerSvc, chatSvc, socketSrv)

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", "addr", addr)

	if err := server.StartHTTPServer(cfg, router); err != nil {
		log.Error("failed to start HTTP server", "err", err)
	}
}
