package main

import (
	"context"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/park285/webchess/internal/chessbuilder"
	appcfg "github.com/park285/webchess/internal/config"
	"github.com/park285/webchess/internal/httpapi"
	"github.com/park285/webchess/internal/obslog"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := chessbuilder.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("chess init error: %v", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("shutdown cleanup incomplete", zap.Error(err))
		}
	}()

	api, err := httpapi.New(httpapi.Config{
		Service:           deps.Service,
		Logs:              deps.Results,
		Messages:          deps.Messages,
		DefaultDifficulty: cfg.DefaultDifficulty,
		Logger:            logger,
	})
	if err != nil {
		log.Fatalf("http init error: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return api.ListenAndServe(gctx, cfg.HTTPAddr) })
	if addr := strings.TrimSpace(cfg.WSAddr); addr != "" {
		g.Go(func() error { return deps.Hub.ListenAndServe(gctx, addr) })
	} else {
		deps.Service.SetNotifier(nil)
	}

	logger.Info("webchess started",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("ws_addr", cfg.WSAddr),
		zap.String("engine", deps.Service.EngineName()),
	)
	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return
	}
	logger.Info("webchess stopped")
}
