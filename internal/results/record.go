// Package results formats finished games and appends them to durable sinks.
package results

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/webchess/internal/domain"
)

var (
	ErrLogWrite = errors.New("result log write failed")
	ErrNoGames  = errors.New("no games recorded")
)

const (
	timestampLayout = "2006-01-02 15:04:05.000000"
	separator       = "--------------------------------------------------"
)

// Sink receives one record per finished game.
type Sink interface {
	Append(ctx context.Context, game domain.GameResult) error
}

// OutcomeLabel turns a PGN result code into the text shown to players.
func OutcomeLabel(code string) string {
	switch strings.TrimSpace(code) {
	case "1-0":
		return "White wins"
	case "0-1":
		return "Black wins"
	default:
		return "Draw"
	}
}

// Summary is the "<label> (<code>)" text used in records and responses.
func Summary(code string) string {
	return fmt.Sprintf("%s (%s)", OutcomeLabel(code), code)
}

// FormatRecord renders the text block appended to the result log.
func FormatRecord(game domain.GameResult) string {
	ended := game.EndedAt
	if ended.IsZero() {
		ended = time.Now()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Game ended at %s\n", ended.Format(timestampLayout))
	fmt.Fprintf(&b, "Player: %s\n", game.Player)
	fmt.Fprintf(&b, "Difficulty: %s\n", game.Difficulty)
	fmt.Fprintf(&b, "Result: %s\n", Summary(game.Result))
	fmt.Fprintf(&b, "Final FEN: %s\n", game.FinalFEN)
	b.WriteString(separator)
	b.WriteString("\n")
	return b.String()
}

// Multi appends to every sink in order and joins their failures.
type Multi []Sink

func (m Multi) Append(ctx context.Context, game domain.GameResult) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Append(ctx, game); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
