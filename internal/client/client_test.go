package client

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/webchess/pkg/chessdto"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func serve(t *testing.T, h fasthttp.RequestHandler) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: h}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })
	return NewClient("http://webchess/",
		WithDial(func(string) (net.Conn, error) { return ln.Dial() }),
		WithTimeout(2*time.Second),
	)
}

func writeJSON(ctx *fasthttp.RequestCtx, v any) {
	body, _ := json.Marshal(v)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func TestMoveSendsRequestBody(t *testing.T) {
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != "/player_move" || !ctx.IsPost() {
			ctx.Error("unexpected route", fasthttp.StatusNotFound)
			return
		}
		var req chessdto.MoveRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			ctx.Error(err.Error(), fasthttp.StatusBadRequest)
			return
		}
		ai := "e7e5"
		writeJSON(ctx, chessdto.MoveResponse{Status: chessdto.StatusOK, AI: &ai, FEN: req.Move + "/" + req.Difficulty})
	})

	resp, err := c.Move(context.Background(), chessdto.MoveRequest{Move: "e2e4", Difficulty: "hard"})
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if resp.Status != chessdto.StatusOK || resp.AI == nil || *resp.AI != "e7e5" || resp.FEN != "e2e4/hard" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestValidMovesEscapesSquare(t *testing.T) {
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		writeJSON(ctx, chessdto.ValidMovesResponse{Moves: []string{string(ctx.Path())}})
	})
	resp, err := c.ValidMoves(context.Background(), " e2 ")
	if err != nil {
		t.Fatalf("ValidMoves: %v", err)
	}
	if len(resp.Moves) != 1 || resp.Moves[0] != "/valid_moves/e2" {
		t.Fatalf("unexpected path: %v", resp.Moves)
	}
}

func TestLogsReturnsPlainText(t *testing.T) {
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString("No games yet.")
	})
	text, err := c.Logs(context.Background())
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if text != "No games yet." {
		t.Fatalf("logs = %q", text)
	}
}

func TestRetriesIdempotentRequestsOnServerError(t *testing.T) {
	var calls atomic.Int32
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		if calls.Add(1) < 3 {
			ctx.Error("warming up", fasthttp.StatusServiceUnavailable)
			return
		}
		writeJSON(ctx, chessdto.HealthResponse{Status: "ok", Engine: "random"})
	})
	health, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Engine != "random" || calls.Load() != 3 {
		t.Fatalf("engine=%q calls=%d", health.Engine, calls.Load())
	}
}

func TestDoesNotRetryMutations(t *testing.T) {
	var calls atomic.Int32
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.Error("boom", fasthttp.StatusServiceUnavailable)
	})
	_, err := c.Start(context.Background(), "Alice")
	var domainErr chessdto.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != fasthttp.StatusServiceUnavailable {
		t.Fatalf("expected DomainError 503, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("mutations must not be retried, calls=%d", calls.Load())
	}
}

func TestHeaderProvider(t *testing.T) {
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		writeJSON(ctx, chessdto.StateResponse{FEN: string(ctx.Request.Header.Peek("X-Player"))})
	})
	WithHeaderProvider(func() map[string]string {
		return map[string]string{"X-Player": "Alice", " ": "ignored"}
	})(c)
	state, err := c.State(context.Background())
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.FEN != "Alice" {
		t.Fatalf("header not forwarded: %q", state.FEN)
	}
}
