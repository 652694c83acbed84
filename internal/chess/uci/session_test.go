package uci_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/park285/webchess/internal/chess/uci"
	"github.com/park285/webchess/internal/chess/uci/ucitest"
)

var testOptions = uci.Options{Threads: 1, HashMB: 16, MultiPV: 2, SkillLevel: 20}

func TestSessionSearchCollectsCandidates(t *testing.T) {
	path := ucitest.Script(t,
		"info depth 8 multipv 2 score cp -12 pv d7d5 e4d5",
		"info depth 8 multipv 1 score cp 18 pv e7e5 g1f3",
		"bestmove e7e5 ponder g1f3",
	)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := uci.NewSession(ctx, path, testOptions, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer session.Close()

	resp, err := session.Search(ctx, uci.SearchRequest{
		FEN:    "startpos",
		Moves:  []string{"e2e4"},
		Limits: uci.Limits{MoveTimeMillis: 100},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.BestMove != "e7e5" {
		t.Fatalf("best move = %q, want e7e5", resp.BestMove)
	}
	if len(resp.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(resp.Candidates))
	}
	if resp.Candidates[0].Move != "e7e5" || resp.Candidates[0].EvalCP != 18 {
		t.Fatalf("multipv 1 should sort first, got %+v", resp.Candidates[0])
	}
	if resp.Candidates[1].Move != "d7d5" || resp.Candidates[1].EvalCP != -12 {
		t.Fatalf("unexpected second candidate %+v", resp.Candidates[1])
	}
}

func TestSessionSearchRequiresLimits(t *testing.T) {
	path := ucitest.Script(t, "bestmove e7e5")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := uci.NewSession(ctx, path, testOptions, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer session.Close()

	if _, err := session.Search(ctx, uci.SearchRequest{FEN: "startpos"}); !errors.Is(err, uci.ErrNoSearchLimits) {
		t.Fatalf("expected ErrNoSearchLimits, got %v", err)
	}
}

func TestNewSessionRejectsInvalidOptions(t *testing.T) {
	path := ucitest.Script(t)
	if _, err := uci.NewSession(context.Background(), path, uci.Options{HashMB: 16, MultiPV: 1, SkillLevel: 42}, nil); err == nil {
		t.Fatalf("expected skill level validation error")
	}
	if _, err := uci.NewSession(context.Background(), path, uci.Options{HashMB: 0, MultiPV: 1}, nil); err == nil {
		t.Fatalf("expected hash validation error")
	}
}

func TestNewSessionFailsOnDeadEngine(t *testing.T) {
	path := ucitest.Broken(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := uci.NewSession(ctx, path, testOptions, nil); err == nil {
		t.Fatalf("expected handshake failure")
	}
}

func TestPoolProbeAndReuse(t *testing.T) {
	path := ucitest.Script(t, "info depth 1 score cp 5 pv e7e5", "bestmove e7e5")
	pool, err := uci.NewPool(uci.PoolConfig{BinaryPath: path, PerTierSize: 1})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Probe(ctx, testOptions); err != nil {
		t.Fatalf("Probe: %v", err)
	}

	first, err := pool.Acquire(ctx, testOptions)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	pool.Release(first, nil)

	second, err := pool.Acquire(ctx, testOptions)
	if err != nil {
		t.Fatalf("Acquire again: %v", err)
	}
	if first != second {
		t.Fatalf("expected idle session to be reused")
	}
	pool.Release(second, errors.New("search failed"))

	third, err := pool.Acquire(ctx, testOptions)
	if err != nil {
		t.Fatalf("Acquire after discard: %v", err)
	}
	if third == second {
		t.Fatalf("discarded session must not be handed out again")
	}
	pool.Release(third, nil)
}

func TestPoolRejectsMissingBinary(t *testing.T) {
	_, err := uci.NewPool(uci.PoolConfig{BinaryPath: "/nonexistent/stockfish-for-tests"})
	if !errors.Is(err, uci.ErrBinaryNotFound) {
		t.Fatalf("expected ErrBinaryNotFound, got %v", err)
	}
	if _, err := uci.NewPool(uci.PoolConfig{}); !errors.Is(err, uci.ErrBinaryNotFound) {
		t.Fatalf("expected ErrBinaryNotFound for empty path, got %v", err)
	}
}
