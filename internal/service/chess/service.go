package chess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
	"github.com/google/uuid"
	corechess "github.com/park285/webchess/internal/chess"
	"github.com/park285/webchess/internal/domain"
	"github.com/park285/webchess/internal/results"
	"github.com/park285/webchess/pkg/chessdto"
	"go.uber.org/zap"
)

var (
	ErrInvalidInput  = errors.New("missing move")
	ErrMalformedMove = errors.New("malformed move")
	ErrIllegalMove   = errors.New("illegal move")
	ErrGameOver      = errors.New("game is already over")
	ErrNoRenderer    = errors.New("board renderer not configured")
)

const (
	DefaultPlayer  = "Guest"
	startPosition  = "startpos"
	persistTimeout = 2 * time.Second
)

// MoveSelector picks the opponent's reply. *corechess.Policy satisfies it.
type MoveSelector interface {
	Select(ctx context.Context, req corechess.Request) (corechess.Selection, error)
	ActiveSource() string
}

// Notifier receives an event after every state change.
type Notifier interface {
	Publish(ev chessdto.Event)
}

type MoveStatus string

const (
	StatusOK       MoveStatus = "ok"
	StatusFinished MoveStatus = "finished"
)

type SessionState struct {
	SessionUUID string
	FEN         string
	Turn        string
	GameOver    bool
	Player      string
	Difficulty  string
	Moves       []string
	Outcome     string
	Method      string
}

// MoveResult describes one accepted human move. AIMove is empty when the
// game ended on the human move or no reply could be produced. Record holds
// the log text of a finished game.
type MoveResult struct {
	Status    MoveStatus
	HumanMove string
	AIMove    string
	AISource  string
	Fallback  bool
	FEN       string
	Outcome   string
	Record    string
}

type Config struct {
	Policy   MoveSelector
	Sink     results.Sink
	Store    SessionStore
	Renderer BoardRenderer
	Notifier Notifier
	Logger   *zap.Logger
}

// Service coordinates the single live game. Every operation holds mu for
// its whole duration, including the synchronous engine reply.
type Service struct {
	mu       sync.Mutex
	policy   MoveSelector
	sink     results.Sink
	store    SessionStore
	renderer BoardRenderer
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time

	game        *nchess.Game
	startFEN    string
	moves       []string
	sessionUUID string
	player      string
	difficulty  string
	startedAt   time.Time
	updatedAt   time.Time
	lastMove    *MoveHighlight
}

var ecoBook = sync.OnceValue(opening.NewBookECO)

func NewService(cfg Config) (*Service, error) {
	if cfg.Policy == nil {
		return nil, fmt.Errorf("move selection policy is required")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("result sink is required")
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &Service{
		policy:   cfg.Policy,
		sink:     cfg.Sink,
		store:    cfg.Store,
		renderer: cfg.Renderer,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
		now:      time.Now,
	}
	s.resetLocked("")
	return s, nil
}

// SetNotifier replaces the event receiver; nil disables publication.
func (s *Service) SetNotifier(n Notifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

// EngineName reports which move source currently answers.
func (s *Service) EngineName() string {
	return s.policy.ActiveSource()
}

// Restore resumes the game saved in the session store, if any.
func (s *Service) Restore(ctx context.Context) error {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}
	game, err := replaySession(snap.StartFEN, snap.Moves)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.game = game
	s.startFEN = snap.StartFEN
	if s.startFEN == "" {
		s.startFEN = startPosition
	}
	s.moves = append([]string(nil), snap.Moves...)
	s.sessionUUID = snap.SessionUUID
	if s.sessionUUID == "" {
		s.sessionUUID = uuid.NewString()
	}
	s.player = snap.Player
	s.difficulty = snap.Difficulty
	s.startedAt = snap.StartedAt
	s.updatedAt = snap.UpdatedAt
	s.lastMove = lastMoveOf(game)

	s.logger.Info("chess session restored",
		zap.String("session_uuid", s.sessionUUID),
		zap.String("player", s.player),
		zap.Int("move_count", len(s.moves)),
		zap.String("fen", game.FEN()),
	)
	return nil
}

func (s *Service) StartSession(ctx context.Context, player string) SessionState {
	name := strings.TrimSpace(player)
	if name == "" {
		name = DefaultPlayer
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked(name)
	s.logger.Info("chess session started",
		zap.String("session_uuid", s.sessionUUID),
		zap.String("player", name),
	)
	s.persistLocked(ctx)
	s.publishLocked(chessdto.Event{Type: chessdto.EventStart, Status: chessdto.StatusStarted, Player: name})
	return s.stateLocked()
}

func (s *Service) ResetSession(ctx context.Context) SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.sessionUUID
	s.resetLocked("")
	s.logger.Info("chess session reset",
		zap.String("previous_session_uuid", previous),
		zap.String("session_uuid", s.sessionUUID),
	)
	s.persistLocked(ctx)
	s.publishLocked(chessdto.Event{Type: chessdto.EventReset, Status: chessdto.StatusReset})
	return s.stateLocked()
}

func (s *Service) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Moves returns the UCI moves played since the last start or reset.
func (s *Service) Moves() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.moves...)
}

// LegalMovesFrom lists the UCI moves starting on square. Malformed squares
// yield an empty list.
func (s *Service) LegalMovesFrom(square string) []string {
	out := []string{}
	sq, ok := parseSquare(square)
	if !ok {
		return out
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, mv := range s.game.ValidMoves() {
		if mv.S1() == sq {
			out = append(out, mv.String())
		}
	}
	return out
}

// SubmitHumanMove validates and applies one human move, then the automated
// reply when the game continues. The returned FEN is always the current
// position, also on error.
func (s *Service) SubmitHumanMove(ctx context.Context, moveText, difficulty, player string) (MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := MoveResult{FEN: s.game.FEN()}
	text := strings.ToLower(strings.TrimSpace(moveText))
	if text == "" {
		return res, ErrInvalidInput
	}
	if s.game.Outcome() != nchess.NoOutcome {
		return res, ErrGameOver
	}

	if !isUCISyntax(text) {
		return res, malformed(s.game, text)
	}
	if !isLegal(s.game, text) {
		return res, ErrIllegalMove
	}
	move, err := nchess.UCINotation{}.Decode(s.game.Position(), text)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrMalformedMove, err)
	}
	if err := s.game.Move(move, nil); err != nil {
		return res, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	s.moves = append(s.moves, text)
	s.lastMove = &MoveHighlight{From: move.S1(), To: move.S2()}
	s.difficulty = corechess.NormalizeLabel(difficulty)
	s.updatedAt = s.now()
	res.HumanMove = text
	playerName := s.resolvePlayer(player)

	if s.game.Outcome() != nchess.NoOutcome {
		return s.finishLocked(ctx, res, playerName), nil
	}

	req := corechess.Request{
		Tier:     corechess.ParseTier(s.difficulty),
		StartFEN: s.startFEN,
		Moves:    append([]string(nil), s.moves...),
		FEN:      s.game.FEN(),
		Legal:    legalMoves(s.game),
	}
	sel, err := s.policy.Select(ctx, req)
	if err != nil {
		s.logger.Warn("no automated move available",
			zap.String("session_uuid", s.sessionUUID),
			zap.String("fen", req.FEN),
			zap.Error(err),
		)
		return s.continueLocked(ctx, res), nil
	}

	s.logOpeningLabel(sel)
	if err := s.applyUCI(sel.Move); err != nil {
		s.logger.Error("automated move rejected by rules engine",
			zap.String("move", sel.Move),
			zap.String("source", sel.Source),
			zap.Error(err),
		)
		return s.continueLocked(ctx, res), nil
	}
	res.AIMove = sel.Move
	res.AISource = sel.Source
	res.Fallback = sel.Fallback

	if s.game.Outcome() != nchess.NoOutcome {
		return s.finishLocked(ctx, res, playerName), nil
	}
	return s.continueLocked(ctx, res), nil
}

// RenderBoard draws the current position with the last move highlighted.
func (s *Service) RenderBoard(ctx context.Context) ([]byte, error) {
	if s.renderer == nil {
		return nil, ErrNoRenderer
	}
	s.mu.Lock()
	board := s.game.Position().Board()
	opts := RenderOptions{
		Highlight: s.lastMove,
		Caption:   s.captionLocked(),
		Status:    s.statusLineLocked(),
	}
	s.mu.Unlock()
	return s.renderer.RenderPNG(ctx, board, opts)
}

func (s *Service) resetLocked(player string) {
	now := s.now()
	s.game = nchess.NewGame()
	s.startFEN = startPosition
	s.moves = nil
	s.sessionUUID = uuid.NewString()
	s.player = player
	s.difficulty = ""
	s.startedAt = now
	s.updatedAt = now
	s.lastMove = nil
}

func (s *Service) applyUCI(text string) error {
	move, err := nchess.UCINotation{}.Decode(s.game.Position(), text)
	if err != nil {
		return err
	}
	if !isLegal(s.game, text) {
		return fmt.Errorf("%w: %s", ErrIllegalMove, text)
	}
	if err := s.game.Move(move, nil); err != nil {
		return err
	}
	s.moves = append(s.moves, text)
	s.lastMove = &MoveHighlight{From: move.S1(), To: move.S2()}
	return nil
}

func (s *Service) continueLocked(ctx context.Context, res MoveResult) MoveResult {
	res.Status = StatusOK
	res.FEN = s.game.FEN()
	s.persistLocked(ctx)
	s.publishLocked(chessdto.Event{
		Type:   chessdto.EventMove,
		Status: chessdto.StatusOK,
		Human:  res.HumanMove,
		AI:     res.AIMove,
	})
	return res
}

// finishLocked records the finished game. A sink failure is reported and
// never changes the result returned to the caller.
func (s *Service) finishLocked(ctx context.Context, res MoveResult, playerName string) MoveResult {
	ended := s.now()
	game := domain.GameResult{
		SessionUUID: s.sessionUUID,
		Player:      playerName,
		Difficulty:  s.difficulty,
		Result:      string(s.game.Outcome()),
		Method:      s.game.Method().String(),
		FinalFEN:    s.game.FEN(),
		MovesUCI:    append([]string(nil), s.moves...),
		MovesSAN:    sanMoves(s.game),
		StartedAt:   s.startedAt,
		EndedAt:     ended,
	}
	game.PGN = results.BuildPGN(game)

	if err := s.sink.Append(ctx, game); err != nil {
		s.reportSinkFailure(game, err)
	} else {
		s.logger.Info("chess game recorded",
			zap.String("session_uuid", game.SessionUUID),
			zap.String("result", game.Result),
			zap.String("method", game.Method),
			zap.Int("plies", len(game.MovesUCI)),
			zap.Duration("duration", game.Duration()),
		)
	}

	res.Status = StatusFinished
	res.FEN = game.FinalFEN
	res.Outcome = game.Result
	res.Record = results.FormatRecord(game)
	s.persistLocked(ctx)
	s.publishLocked(chessdto.Event{
		Type:   chessdto.EventMove,
		Status: chessdto.StatusFinished,
		Human:  res.HumanMove,
		AI:     res.AIMove,
		Result: results.Summary(game.Result),
	})
	return res
}

func (s *Service) reportSinkFailure(game domain.GameResult, err error) {
	s.logger.Warn("failed to record finished chess game",
		zap.String("session_uuid", game.SessionUUID),
		zap.String("result", game.Result),
		zap.Error(err),
	)
}

func (s *Service) persistLocked(ctx context.Context) {
	snap := &Snapshot{
		SessionUUID: s.sessionUUID,
		Player:      s.player,
		Difficulty:  s.difficulty,
		StartFEN:    s.startFEN,
		Moves:       append([]string{}, s.moves...),
		StartedAt:   s.startedAt,
		UpdatedAt:   s.updatedAt,
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.store.Save(saveCtx, snap); err != nil {
		s.logger.Warn("failed to persist chess session",
			zap.String("session_uuid", s.sessionUUID),
			zap.Error(err),
		)
	}
}

func (s *Service) publishLocked(ev chessdto.Event) {
	if s.notifier == nil {
		return
	}
	ev.FEN = s.game.FEN()
	if ev.Player == "" {
		ev.Player = s.player
	}
	ev.At = s.now()
	s.notifier.Publish(ev)
}

func (s *Service) stateLocked() SessionState {
	outcome := s.game.Outcome()
	return SessionState{
		SessionUUID: s.sessionUUID,
		FEN:         s.game.FEN(),
		Turn:        turnLabel(s.game),
		GameOver:    outcome != nchess.NoOutcome,
		Player:      s.player,
		Difficulty:  s.difficulty,
		Moves:       append([]string{}, s.moves...),
		Outcome:     string(outcome),
		Method:      s.game.Method().String(),
	}
}

// resolvePlayer prefers the name sent with the move, then the session
// identity, then the default.
func (s *Service) resolvePlayer(requested string) string {
	if name := strings.TrimSpace(requested); name != "" {
		return name
	}
	if s.player != "" {
		return s.player
	}
	return DefaultPlayer
}

func (s *Service) captionLocked() string {
	player := s.player
	if player == "" {
		player = DefaultPlayer
	}
	return fmt.Sprintf("%s vs %s (%s)", player, s.policy.ActiveSource(), corechess.NormalizeLabel(s.difficulty))
}

func (s *Service) statusLineLocked() string {
	if outcome := s.game.Outcome(); outcome != nchess.NoOutcome {
		return results.Summary(string(outcome))
	}
	if turnLabel(s.game) == "white" {
		return fmt.Sprintf("White to move, %d", len(s.moves)/2+1)
	}
	return fmt.Sprintf("Black to move, %d", len(s.moves)/2+1)
}

// logOpeningLabel logs the ECO classification after the reply is chosen.
func (s *Service) logOpeningLabel(sel corechess.Selection) {
	code, title := ecoFromGameMove(s.game, sel.Move)
	s.logger.Info("chess opening label",
		zap.String("eco_code", code),
		zap.String("eco_title", title),
		zap.String("source", sel.Source),
		zap.Bool("fallback", sel.Fallback),
		zap.String("difficulty", s.difficulty),
		zap.Int("ply", len(s.moves)+1),
		zap.String("move_uci", sel.Move),
	)
}

func ecoFromGameMove(game *nchess.Game, moveUCI string) (string, string) {
	g := game
	if mvText := strings.ToLower(strings.TrimSpace(moveUCI)); mvText != "" {
		clone := game.Clone()
		if mv, err := (nchess.UCINotation{}).Decode(clone.Position(), mvText); err == nil {
			if clone.Move(mv, nil) == nil {
				g = clone
			}
		}
	}
	book := ecoBook()
	if book == nil {
		return "", ""
	}
	if eco := book.Find(g.Moves()); eco != nil {
		return eco.Code(), eco.Title()
	}
	return "", ""
}

func replaySession(startFEN string, moves []string) (*nchess.Game, error) {
	game, err := newGameFrom(startFEN)
	if err != nil {
		return nil, err
	}
	notation := nchess.UCINotation{}
	for _, mv := range moves {
		text := strings.ToLower(strings.TrimSpace(mv))
		move, err := notation.Decode(game.Position(), text)
		if err != nil {
			return nil, fmt.Errorf("decode move %s: %w", mv, err)
		}
		if err := game.Move(move, nil); err != nil {
			return nil, fmt.Errorf("apply move %s: %w", mv, err)
		}
	}
	return game, nil
}

func newGameFrom(startFEN string) (*nchess.Game, error) {
	fen := strings.TrimSpace(startFEN)
	if fen == "" || fen == startPosition {
		return nchess.NewGame(), nil
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse start fen: %w", err)
	}
	return nchess.NewGame(opt), nil
}

func lastMoveOf(game *nchess.Game) *MoveHighlight {
	moves := game.Moves()
	if len(moves) == 0 {
		return nil
	}
	last := moves[len(moves)-1]
	return &MoveHighlight{From: last.S1(), To: last.S2()}
}

func legalMoves(game *nchess.Game) []string {
	valid := game.ValidMoves()
	out := make([]string, 0, len(valid))
	for _, mv := range valid {
		out = append(out, mv.String())
	}
	return out
}

func isLegal(game *nchess.Game, uci string) bool {
	for _, mv := range game.ValidMoves() {
		if mv.String() == uci {
			return true
		}
	}
	return false
}

func sanMoves(game *nchess.Game) []string {
	positions := game.Positions()
	moves := game.Moves()
	notation := nchess.AlgebraicNotation{}
	out := make([]string, 0, len(moves))
	for i, mv := range moves {
		if i < len(positions) {
			out = append(out, notation.Encode(positions[i], mv))
		}
	}
	return out
}

func turnLabel(game *nchess.Game) string {
	if game.Position().Turn() == nchess.White {
		return "white"
	}
	return "black"
}

// isUCISyntax accepts coordinate notation with an optional promotion piece.
func isUCISyntax(text string) bool {
	if len(text) != 4 && len(text) != 5 {
		return false
	}
	if _, ok := parseSquare(text[0:2]); !ok {
		return false
	}
	if _, ok := parseSquare(text[2:4]); !ok {
		return false
	}
	return len(text) == 4 || strings.ContainsRune("qrbn", rune(text[4]))
}

// malformed wraps the rules engine's parse message when it has one.
func malformed(game *nchess.Game, text string) error {
	if _, err := (nchess.UCINotation{}).Decode(game.Position(), text); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMove, err)
	}
	return fmt.Errorf("%w: invalid uci: %q", ErrMalformedMove, text)
}

func parseSquare(text string) (nchess.Square, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if len(t) != 2 || t[0] < 'a' || t[0] > 'h' || t[1] < '1' || t[1] > '8' {
		return nchess.NoSquare, false
	}
	return nchess.NewSquare(nchess.File(t[0]-'a'), nchess.Rank(t[1]-'1')), true
}
