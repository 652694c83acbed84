package chess

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/park285/webchess/internal/chess/uci"
	"go.uber.org/zap"
)

type EngineConfig struct {
	BinaryPath  string
	PerTierSize int
	Logger      *zap.Logger
}

// Engine is the UCI-backed MoveSource.
type Engine struct {
	pool   *uci.Pool
	randMu sync.Mutex
	rand   *rand.Rand
	logger *zap.Logger
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := uci.NewPool(uci.PoolConfig{
		BinaryPath:  cfg.BinaryPath,
		PerTierSize: cfg.PerTierSize,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return &Engine{
		pool:   pool,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
	}, nil
}

func (e *Engine) Name() string { return "stockfish" }

// Probe spawns one process for the default tier and completes the handshake.
func (e *Engine) Probe(ctx context.Context) error {
	if err := e.pool.Probe(ctx, optionsFromPreset(PresetFor(DefaultTier))); err != nil {
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return nil
}

type EvaluateRequest struct {
	Tier  Tier
	FEN   string
	Moves []string
}

type EvaluateResult struct {
	Preset         DifficultyPreset
	Duration       time.Duration
	Candidates     []Candidate
	Chosen         Candidate
	EngineBestMove string
}

func (e *Engine) Evaluate(ctx context.Context, req EvaluateRequest) (EvaluateResult, error) {
	preset := PresetFor(req.Tier)
	if err := ValidatePreset(preset); err != nil {
		return EvaluateResult{}, err
	}

	session, err := e.pool.Acquire(ctx, optionsFromPreset(preset))
	if err != nil {
		return EvaluateResult{}, mapEngineError(err)
	}
	var releaseErr error
	defer func() {
		e.pool.Release(session, releaseErr)
	}()

	if err := session.NewGame(ctx); err != nil {
		releaseErr = err
		return EvaluateResult{}, mapEngineError(err)
	}

	searchStart := time.Now()
	resp, err := session.Search(ctx, uci.SearchRequest{
		FEN:    req.FEN,
		Moves:  req.Moves,
		Limits: limitsFromPreset(preset),
	})
	if err != nil {
		releaseErr = err
		return EvaluateResult{}, mapEngineError(err)
	}
	dur := time.Since(searchStart)

	candidates := convertCandidates(resp.Candidates)
	if len(candidates) == 0 && resp.BestMove != "" {
		candidates = []Candidate{{Move: resp.BestMove, Principal: []string{resp.BestMove}}}
	}
	if len(candidates) == 0 {
		return EvaluateResult{}, ErrEngineNoMove
	}

	chosen, err := SelectCandidate(preset, candidates, e.random())
	if err != nil {
		return EvaluateResult{}, err
	}

	return EvaluateResult{
		Preset:         preset,
		Duration:       dur,
		Candidates:     candidates,
		Chosen:         chosen,
		EngineBestMove: resp.BestMove,
	}, nil
}

func (e *Engine) SelectMove(ctx context.Context, req Request) (string, error) {
	result, err := e.Evaluate(ctx, EvaluateRequest{
		Tier:  req.Tier,
		FEN:   req.StartFEN,
		Moves: req.Moves,
	})
	if err != nil {
		return "", err
	}
	e.logger.Debug("engine search complete",
		zap.String("tier", string(result.Preset.Tier)),
		zap.String("chosen", result.Chosen.Move),
		zap.String("best", result.EngineBestMove),
		zap.Int("eval_cp", result.Chosen.EvalCP),
		zap.Int("candidates", len(result.Candidates)),
		zap.Duration("duration", result.Duration),
	)
	return strings.ToLower(result.Chosen.Move), nil
}

func (e *Engine) random() *rand.Rand {
	e.randMu.Lock()
	seed := e.rand.Int63()
	e.randMu.Unlock()
	return rand.New(rand.NewSource(seed))
}

func (e *Engine) SetRandomSeed(seed int64) {
	e.randMu.Lock()
	e.rand = rand.New(rand.NewSource(seed))
	e.randMu.Unlock()
}

func (e *Engine) Close() error {
	if e.pool == nil {
		return nil
	}
	return e.pool.Close()
}

func convertCandidates(in []uci.Candidate) []Candidate {
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		if c.Move == "" {
			continue
		}
		out = append(out, Candidate{
			Move:      c.Move,
			EvalCP:    c.EvalCP,
			Principal: append([]string(nil), c.Principal...),
		})
	}
	return out
}

func mapEngineError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrEngineTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
}
