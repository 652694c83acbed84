package chess

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	probeTimeout = 5 * time.Second
	searchBuffer = 2 * time.Second
)

// Selection is the outcome of one policy decision. PrimaryErr records why
// the primary source was skipped or rejected, if it was.
type Selection struct {
	Move       string
	Source     string
	Fallback   bool
	PrimaryErr error
}

// Policy asks the primary source for a move and falls back to a uniform
// random choice whenever the primary is unusable or answers badly.
type Policy struct {
	primary   MoveSource
	fallback  MoveSource
	available bool
	logger    *zap.Logger
}

// NewPolicy probes primary once; a failed probe disables it for the life of
// the policy. A nil primary means fallback only.
func NewPolicy(ctx context.Context, primary MoveSource, fallback MoveSource, logger *zap.Logger) *Policy {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fallback == nil {
		fallback = NewRandomSource()
	}
	p := &Policy{primary: primary, fallback: fallback, logger: logger}
	if primary == nil {
		return p
	}

	p.available = true
	if prober, ok := primary.(Prober); ok {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		if err := prober.Probe(probeCtx); err != nil {
			p.available = false
			logger.Warn("primary move source unavailable, using fallback only",
				zap.String("source", primary.Name()),
				zap.String("fallback", fallback.Name()),
				zap.Error(err),
			)
		}
	}
	return p
}

// ActiveSource names the source that answers normal requests.
func (p *Policy) ActiveSource() string {
	if p.available {
		return p.primary.Name()
	}
	return p.fallback.Name()
}

func (p *Policy) PrimaryAvailable() bool { return p.available }

// Select returns ErrNoLegalMoves when req.Legal is empty; every other
// failure is absorbed into the fallback.
func (p *Policy) Select(ctx context.Context, req Request) (Selection, error) {
	if len(req.Legal) == 0 {
		return Selection{}, ErrNoLegalMoves
	}

	var primaryErr error
	if p.available {
		move, err := p.askPrimary(ctx, req)
		if err == nil {
			return Selection{Move: move, Source: p.primary.Name()}, nil
		}
		primaryErr = err
		p.reportEngineFailure(req, err)
	}

	move, err := p.fallback.SelectMove(ctx, req)
	if err != nil {
		return Selection{}, err
	}
	if !containsMove(req.Legal, move) {
		return Selection{}, fmt.Errorf("fallback %s returned %q: %w", p.fallback.Name(), move, ErrEngineIllegalMove)
	}
	return Selection{
		Move:       move,
		Source:     p.fallback.Name(),
		Fallback:   true,
		PrimaryErr: primaryErr,
	}, nil
}

func (p *Policy) askPrimary(ctx context.Context, req Request) (string, error) {
	searchCtx, cancel := context.WithTimeout(ctx, req.Tier.ThinkTime()+searchBuffer)
	defer cancel()

	move, err := p.primary.SelectMove(searchCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrEngineTimeout) {
			return "", fmt.Errorf("%w: %v", ErrEngineTimeout, err)
		}
		return "", err
	}
	if move == "" {
		return "", ErrEngineNoMove
	}
	if !containsMove(req.Legal, move) {
		return "", fmt.Errorf("%w: %s", ErrEngineIllegalMove, move)
	}
	return move, nil
}

func (p *Policy) reportEngineFailure(req Request, err error) {
	kind := "unavailable"
	switch {
	case errors.Is(err, ErrEngineTimeout):
		kind = "timeout"
	case errors.Is(err, ErrEngineIllegalMove):
		kind = "illegal_move"
	case errors.Is(err, ErrEngineNoMove):
		kind = "no_move"
	}
	p.logger.Warn("primary move source failed, using fallback",
		zap.String("source", p.primary.Name()),
		zap.String("kind", kind),
		zap.String("tier", string(req.Tier)),
		zap.String("fen", req.FEN),
		zap.Error(err),
	)
}
