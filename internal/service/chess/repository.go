package chess

import (
	"context"
	"time"
)

// Snapshot is the persisted form of the single active game. The board is
// rebuilt by replaying Moves from StartFEN.
type Snapshot struct {
	SessionUUID string    `json:"session_uuid"`
	Player      string    `json:"player,omitempty"`
	Difficulty  string    `json:"difficulty,omitempty"`
	StartFEN    string    `json:"start_fen,omitempty"`
	Moves       []string  `json:"moves"`
	StartedAt   time.Time `json:"started_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SessionStore keeps the latest snapshot. Load returns nil, nil when
// nothing has been saved.
type SessionStore interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	Clear(ctx context.Context) error
}

func (s *Snapshot) clone() *Snapshot {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Moves = append([]string(nil), s.Moves...)
	return &cp
}
