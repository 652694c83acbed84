// Package httpapi exposes the chess session over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/park285/webchess/internal/adapter/chesspresenter"
	"github.com/park285/webchess/internal/msgcat"
	"github.com/park285/webchess/internal/results"
	svc "github.com/park285/webchess/internal/service/chess"
	"github.com/park285/webchess/pkg/chessdto"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const validMovesPrefix = "/valid_moves/"

// GameService is the part of *chess.Service the routes need.
type GameService interface {
	StartSession(ctx context.Context, player string) svc.SessionState
	ResetSession(ctx context.Context) svc.SessionState
	State() svc.SessionState
	LegalMovesFrom(square string) []string
	SubmitHumanMove(ctx context.Context, moveText, difficulty, player string) (svc.MoveResult, error)
	RenderBoard(ctx context.Context) ([]byte, error)
	EngineName() string
}

// LogReader returns the accumulated result log.
type LogReader interface {
	ReadAll() (string, error)
}

type Config struct {
	Service           GameService
	Logs              LogReader
	Messages          *msgcat.Catalog
	DefaultDifficulty string
	Logger            *zap.Logger
}

type Server struct {
	svc               GameService
	logs              LogReader
	msgs              *msgcat.Catalog
	defaultDifficulty string
	logger            *zap.Logger
	http              *fasthttp.Server
}

func New(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("httpapi: service is required")
	}
	if cfg.Logs == nil {
		return nil, errors.New("httpapi: log reader is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &Server{
		svc:               cfg.Service,
		logs:              cfg.Logs,
		msgs:              cfg.Messages,
		defaultDifficulty: cfg.DefaultDifficulty,
		logger:            cfg.Logger,
	}
	s.http = &fasthttp.Server{
		Handler:      s.Handler(),
		Name:         "webchess",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler routes requests by path and method.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		switch {
		case path == "/get_state":
			s.only(ctx, fasthttp.MethodGet, s.handleState)
		case path == "/start":
			s.only(ctx, fasthttp.MethodPost, s.handleStart)
		case path == "/end":
			s.only(ctx, fasthttp.MethodPost, s.handleEnd)
		case strings.HasPrefix(path, validMovesPrefix):
			s.only(ctx, fasthttp.MethodGet, s.handleValidMoves)
		case path == "/player_move":
			s.only(ctx, fasthttp.MethodPost, s.handleMove)
		case path == "/logs":
			s.only(ctx, fasthttp.MethodGet, s.handleLogs)
		case path == "/board.png":
			s.only(ctx, fasthttp.MethodGet, s.handleBoard)
		case path == "/healthz":
			s.only(ctx, fasthttp.MethodGet, s.handleHealth)
		default:
			ctx.Error(s.msgs.Text("http.not_found", map[string]any{"Path": path}, "Not found"), fasthttp.StatusNotFound)
		}
	}
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.http.Serve(ln) }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.http.ShutdownWithContext(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown incomplete", zap.Error(err))
		}
		return <-errCh
	}
}

// ListenAndServe binds addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.logger.Info("http listening", zap.String("addr", ln.Addr().String()))
	return s.Serve(ctx, ln)
}

func (s *Server) only(ctx *fasthttp.RequestCtx, method string, h fasthttp.RequestHandler) {
	if string(ctx.Method()) != method {
		ctx.Response.Header.Set("Allow", method)
		ctx.Error(fasthttp.StatusMessage(fasthttp.StatusMethodNotAllowed), fasthttp.StatusMethodNotAllowed)
		return
	}
	h(ctx)
}

func (s *Server) handleState(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, chesspresenter.ToStateResponse(s.svc.State()))
}

func (s *Server) handleStart(ctx *fasthttp.RequestCtx) {
	var req chessdto.StartRequest
	if !s.decodeBody(ctx, &req) {
		return
	}
	state := s.svc.StartSession(ctx, req.Player)
	writeJSON(ctx, fasthttp.StatusOK, chesspresenter.ToStartResponse(state))
}

func (s *Server) handleEnd(ctx *fasthttp.RequestCtx) {
	state := s.svc.ResetSession(ctx)
	writeJSON(ctx, fasthttp.StatusOK, chesspresenter.ToResetResponse(state))
}

func (s *Server) handleValidMoves(ctx *fasthttp.RequestCtx) {
	square := strings.TrimPrefix(string(ctx.Path()), validMovesPrefix)
	writeJSON(ctx, fasthttp.StatusOK, chessdto.ValidMovesResponse{Moves: s.svc.LegalMovesFrom(square)})
}

func (s *Server) handleMove(ctx *fasthttp.RequestCtx) {
	var req chessdto.MoveRequest
	if !s.decodeBody(ctx, &req) {
		return
	}
	difficulty := req.Difficulty
	if strings.TrimSpace(difficulty) == "" {
		difficulty = s.defaultDifficulty
	}
	res, err := s.svc.SubmitHumanMove(ctx, req.Move, difficulty, req.Player)
	if err != nil {
		s.logger.Debug("move rejected",
			zap.String("move", req.Move),
			zap.Error(err),
		)
	}
	writeJSON(ctx, fasthttp.StatusOK, chesspresenter.ToMoveResponse(res, err, s.msgs))
}

func (s *Server) handleLogs(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("text/plain; charset=utf-8")
	text, err := s.logs.ReadAll()
	switch {
	case err == nil:
		ctx.SetBodyString(text)
	case errors.Is(err, results.ErrNoGames):
		ctx.SetBodyString(s.msgs.Text("logs.empty", nil, "No games yet."))
	default:
		s.logger.Warn("result log unreadable", zap.Error(err))
		ctx.SetBodyString(s.msgs.Text("logs.read_error", map[string]any{"Error": err.Error()}, "Error reading log: "+err.Error()))
	}
}

func (s *Server) handleBoard(ctx *fasthttp.RequestCtx) {
	png, err := s.svc.RenderBoard(ctx)
	if err != nil {
		s.logger.Warn("board render failed", zap.Error(err))
		ctx.Error(s.msgs.Text("http.render_failed", nil, "Board image unavailable"), fasthttp.StatusServiceUnavailable)
		return
	}
	ctx.Response.Header.Set("Cache-Control", "no-store")
	ctx.SetContentType("image/png")
	ctx.SetBody(png)
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, chessdto.HealthResponse{Status: "ok", Engine: s.svc.EngineName()})
}

// decodeBody treats an empty body as an empty object.
func (s *Server) decodeBody(ctx *fasthttp.RequestCtx, v any) bool {
	body := ctx.PostBody()
	if len(strings.TrimSpace(string(body))) == 0 {
		return true
	}
	if err := json.Unmarshal(body, v); err != nil {
		msg := s.msgs.Text("http.bad_request", map[string]any{"Error": err.Error()}, "Invalid request body")
		writeJSON(ctx, fasthttp.StatusBadRequest, map[string]string{"status": chessdto.StatusError, "message": msg})
		return false
	}
	return true
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}
