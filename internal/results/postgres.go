package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/webchess/internal/domain"
)

const createGamesTable = `CREATE TABLE IF NOT EXISTS webchess_results (
	session_uuid TEXT PRIMARY KEY,
	player       TEXT NOT NULL,
	difficulty   TEXT NOT NULL,
	result       TEXT NOT NULL,
	result_label TEXT NOT NULL,
	method       TEXT NOT NULL DEFAULT '',
	final_fen    TEXT NOT NULL,
	moves_uci    JSONB NOT NULL,
	pgn          TEXT NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	ended_at     TIMESTAMPTZ NOT NULL,
	duration_ms  BIGINT NOT NULL
)`

// PostgresSink stores each finished game as one row.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(ctx context.Context, databaseURL string) (*PostgresSink, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(pingCtx, createGamesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PostgresSink{db: db}, nil
}

func (p *PostgresSink) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func (p *PostgresSink) Append(ctx context.Context, game domain.GameResult) error {
	if p == nil || p.db == nil {
		return nil
	}
	movesUCI, err := json.Marshal(game.MovesUCI)
	if err != nil {
		return fmt.Errorf("%w: marshal moves: %v", ErrLogWrite, err)
	}
	pgn := game.PGN
	if pgn == "" {
		pgn = BuildPGN(game)
	}

	const q = `INSERT INTO webchess_results (
		session_uuid, player, difficulty, result, result_label, method,
		final_fen, moves_uci, pgn, started_at, ended_at, duration_ms
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8::jsonb,$9,$10,$11,$12)
	ON CONFLICT (session_uuid) DO NOTHING`

	_, err = p.db.ExecContext(ctx, q,
		game.SessionUUID,
		game.Player,
		game.Difficulty,
		game.Result,
		OutcomeLabel(game.Result),
		strings.TrimSpace(game.Method),
		game.FinalFEN,
		string(movesUCI),
		pgn,
		game.StartedAt,
		game.EndedAt,
		game.Duration().Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("%w: insert game: %v", ErrLogWrite, err)
	}
	return nil
}

// BuildPGN renders a PGN document from the SAN move list.
func BuildPGN(game domain.GameResult) string {
	var b strings.Builder
	date := game.EndedAt
	if date.IsZero() {
		date = time.Now()
	}
	result := strings.TrimSpace(game.Result)
	if result == "" {
		result = "*"
	}
	b.WriteString("[Event \"webchess\"]\n")
	b.WriteString("[Site \"local\"]\n")
	fmt.Fprintf(&b, "[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day())
	fmt.Fprintf(&b, "[White \"%s\"]\n", sanitizePGN(game.Player))
	fmt.Fprintf(&b, "[Black \"%s\"]\n", sanitizePGN("engine ("+game.Difficulty+")"))
	if strings.TrimSpace(game.Method) != "" {
		fmt.Fprintf(&b, "[Termination \"%s\"]\n", sanitizePGN(strings.ToLower(game.Method)))
	}
	fmt.Fprintf(&b, "[Result \"%s\"]\n\n", result)

	for i := 0; i < len(game.MovesSAN); i += 2 {
		fmt.Fprintf(&b, "%d. %s", i/2+1, strings.TrimSpace(game.MovesSAN[i]))
		if i+1 < len(game.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(game.MovesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(result)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
