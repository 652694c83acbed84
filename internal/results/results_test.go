package results

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/park285/webchess/internal/domain"
)

func sampleGame() domain.GameResult {
	return domain.GameResult{
		SessionUUID: "3f1c",
		Player:      "Alice",
		Difficulty:  "hard",
		Result:      "0-1",
		Method:      "Checkmate",
		FinalFEN:    "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3",
		MovesUCI:    []string{"f2f3", "e7e5", "g2g4", "d8h4"},
		MovesSAN:    []string{"f3", "e5", "g4", "Qh4#"},
		StartedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		EndedAt:     time.Date(2024, 5, 1, 12, 3, 4, 500000000, time.UTC),
	}
}

func TestOutcomeLabel(t *testing.T) {
	cases := map[string]string{
		"1-0":     "White wins",
		"0-1":     "Black wins",
		"1/2-1/2": "Draw",
		"*":       "Draw",
	}
	for code, want := range cases {
		if got := OutcomeLabel(code); got != want {
			t.Fatalf("OutcomeLabel(%q) = %q, want %q", code, got, want)
		}
	}
	if got := Summary("1-0"); got != "White wins (1-0)" {
		t.Fatalf("Summary = %q", got)
	}
}

func TestFormatRecordFieldOrder(t *testing.T) {
	got := FormatRecord(sampleGame())
	want := "Game ended at 2024-05-01 12:03:04.500000\n" +
		"Player: Alice\n" +
		"Difficulty: hard\n" +
		"Result: Black wins (0-1)\n" +
		"Final FEN: rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3\n" +
		strings.Repeat("-", 50) + "\n"
	if got != want {
		t.Fatalf("record mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestFileSinkCreatesDirectoryAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "logs", "results.txt")
	sink := NewFileSink(path)

	if _, err := sink.ReadAll(); !errors.Is(err, ErrNoGames) {
		t.Fatalf("expected ErrNoGames before first write, got %v", err)
	}

	ctx := context.Background()
	if err := sink.Append(ctx, sampleGame()); err != nil {
		t.Fatalf("Append: %v", err)
	}
	second := sampleGame()
	second.Player = "Bob"
	second.Result = "1/2-1/2"
	if err := sink.Append(ctx, second); err != nil {
		t.Fatalf("Append: %v", err)
	}

	text, err := sink.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if strings.Count(text, "Game ended at ") != 2 {
		t.Fatalf("expected two records, got:\n%s", text)
	}
	if !strings.Contains(text, "Player: Alice\n") || !strings.Contains(text, "Result: Draw (1/2-1/2)\n") {
		t.Fatalf("unexpected log contents:\n%s", text)
	}
	if strings.Index(text, "Alice") > strings.Index(text, "Bob") {
		t.Fatalf("records must be appended in order")
	}
}

func TestFileSinkWriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	sink := NewFileSink(filepath.Join(blocker, "results.txt"))
	if err := sink.Append(context.Background(), sampleGame()); !errors.Is(err, ErrLogWrite) {
		t.Fatalf("expected ErrLogWrite, got %v", err)
	}
}

func TestNewFileSinkDefaultPath(t *testing.T) {
	sink := NewFileSink("  ")
	if !strings.HasSuffix(sink.Path(), filepath.Join("webchess", "results.txt")) {
		t.Fatalf("default path = %q", sink.Path())
	}
}

type recordingSink struct {
	games []domain.GameResult
	err   error
}

func (r *recordingSink) Append(_ context.Context, g domain.GameResult) error {
	r.games = append(r.games, g)
	return r.err
}

func TestMultiAppendsToAllSinks(t *testing.T) {
	failing := &recordingSink{err: ErrLogWrite}
	ok := &recordingSink{}
	err := Multi{failing, nil, ok}.Append(context.Background(), sampleGame())
	if !errors.Is(err, ErrLogWrite) {
		t.Fatalf("expected joined ErrLogWrite, got %v", err)
	}
	if len(failing.games) != 1 || len(ok.games) != 1 {
		t.Fatalf("every sink must receive the record: %d/%d", len(failing.games), len(ok.games))
	}
}

func TestBuildPGN(t *testing.T) {
	pgn := BuildPGN(sampleGame())
	for _, want := range []string{
		"[White \"Alice\"]",
		"[Black \"engine (hard)\"]",
		"[Termination \"checkmate\"]",
		"[Result \"0-1\"]",
		"1. f3 e5 2. g4 Qh4# 0-1",
	} {
		if !strings.Contains(pgn, want) {
			t.Fatalf("pgn missing %q:\n%s", want, pgn)
		}
	}
}

func TestNewPostgresSinkRequiresURL(t *testing.T) {
	if _, err := NewPostgresSink(context.Background(), " "); err == nil {
		t.Fatalf("expected error for empty database url")
	}
}
