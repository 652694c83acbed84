package chess

import (
	"context"
	"errors"
)

var (
	ErrEngineUnavailable = errors.New("chess engine unavailable")
	ErrEngineTimeout     = errors.New("chess engine timeout")
	ErrEngineNoMove      = errors.New("chess engine returned no move")
	ErrEngineIllegalMove = errors.New("chess engine returned an illegal move")
	ErrNoLegalMoves      = errors.New("no legal moves")
)

// Request describes the position a MoveSource must answer.
// StartFEN plus Moves replays the game; FEN is the resulting position and
// Legal its legal moves in UCI notation.
type Request struct {
	Tier     Tier
	StartFEN string
	Moves    []string
	FEN      string
	Legal    []string
}

// MoveSource picks one move in UCI notation for the side to move.
type MoveSource interface {
	Name() string
	SelectMove(ctx context.Context, req Request) (string, error)
}

// Prober is implemented by sources that can check they are usable before
// the first request.
type Prober interface {
	Probe(ctx context.Context) error
}

func containsMove(legal []string, move string) bool {
	for _, mv := range legal {
		if mv == move {
			return true
		}
	}
	return false
}
