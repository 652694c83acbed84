package domain

import "time"

// GameResult is everything recorded about a finished game.
type GameResult struct {
	SessionUUID string
	Player      string
	Difficulty  string
	Result      string
	Method      string
	FinalFEN    string
	MovesUCI    []string
	MovesSAN    []string
	PGN         string
	StartedAt   time.Time
	EndedAt     time.Time
}

// Duration is the wall time between the first and last move.
func (g GameResult) Duration() time.Duration {
	if g.StartedAt.IsZero() || g.EndedAt.Before(g.StartedAt) {
		return 0
	}
	return g.EndedAt.Sub(g.StartedAt)
}
