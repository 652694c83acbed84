package chessbuilder

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	corechess "github.com/park285/webchess/internal/chess"
	"github.com/park285/webchess/internal/config"
	"github.com/park285/webchess/internal/events"
	"github.com/park285/webchess/internal/msgcat"
	"github.com/park285/webchess/internal/results"
	svcchess "github.com/park285/webchess/internal/service/chess"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deps struct {
	Service  *svcchess.Service
	Engine   *corechess.Engine
	Policy   *corechess.Policy
	Results  *results.FileSink
	Postgres *results.PostgresSink
	Redis    *redis.Client
	Hub      *events.Hub
	Messages *msgcat.Catalog
}

// New wires the session coordinator. A missing engine binary degrades to
// random replies; Redis and Postgres are used only when configured.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := &Deps{}

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	deps.Messages = msgs

	// Engine (optional)
	var primary corechess.MoveSource
	engine, err := corechess.NewEngine(corechess.EngineConfig{
		BinaryPath:  cfg.StockfishPath,
		PerTierSize: cfg.EnginePoolSize,
		Logger:      logger,
	})
	if err != nil {
		logger.Warn("chess engine unavailable, using random replies",
			zap.String("stockfish_path", cfg.StockfishPath),
			zap.Error(err),
		)
	} else {
		deps.Engine = engine
		primary = engine
	}
	deps.Policy = corechess.NewPolicy(ctx, primary, corechess.NewRandomSource(), logger)

	// Result sinks: file first, Postgres when configured
	deps.Results = results.NewFileSink(cfg.ResultsPath)
	sink := results.Multi{deps.Results}
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		pg, err := results.NewPostgresSink(ctx, cfg.DatabaseURL)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("init postgres sink: %w", err)
		}
		deps.Postgres = pg
		sink = append(sink, pg)
	}

	// Session store (Redis optional)
	var store svcchess.SessionStore
	if strings.TrimSpace(cfg.RedisURL) != "" {
		opts, err := parseRedisURL(cfg.RedisURL)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			deps.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		deps.Redis = rdb
		store = svcchess.NewRedisStore(rdb, svcchess.DefaultSessionKey, cfg.SessionTTL)
	} else {
		store = svcchess.NewMemoryStore()
	}

	deps.Hub = events.NewHub(logger)

	service, err := svcchess.NewService(svcchess.Config{
		Policy:   deps.Policy,
		Sink:     sink,
		Store:    store,
		Renderer: svcchess.NewBoardRenderer(),
		Notifier: deps.Hub,
		Logger:   logger,
	})
	if err != nil {
		deps.Close()
		return nil, err
	}
	if err := service.Restore(ctx); err != nil {
		logger.Warn("saved chess session discarded", zap.Error(err))
	}
	deps.Service = service

	logger.Info("chess dependencies ready",
		zap.String("engine", service.EngineName()),
		zap.String("results_path", deps.Results.Path()),
		zap.Bool("redis", deps.Redis != nil),
		zap.Bool("postgres", deps.Postgres != nil),
	)
	return deps, nil
}

// Close releases engine processes and external connections.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.Hub != nil {
		d.Hub.Close()
	}
	if d.Engine != nil {
		errs = append(errs, d.Engine.Close())
	}
	if d.Postgres != nil {
		errs = append(errs, d.Postgres.Close())
	}
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}
	return errors.Join(errs...)
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	portStr := u.Port()
	if portStr == "" {
		portStr = "6379"
	}
	if _, err := strconv.Atoi(portStr); err != nil {
		return nil, err
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q", p)
		}
		db = n
	}
	pass, _ := u.User.Password()
	opts := &redis.Options{
		Addr:     host + ":" + portStr,
		Username: u.User.Username(),
		Password: pass,
		DB:       db,
	}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
	}
	return opts, nil
}
