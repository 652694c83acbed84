package chessdto

import "time"

const (
	EventStart = "start"
	EventReset = "reset"
	EventMove  = "move"
)

// Event is pushed to websocket subscribers after every state change.
type Event struct {
	Type   string    `json:"type"`
	FEN    string    `json:"fen"`
	Status string    `json:"status,omitempty"`
	Player string    `json:"player,omitempty"`
	Human  string    `json:"human,omitempty"`
	AI     string    `json:"ai,omitempty"`
	Result string    `json:"result,omitempty"`
	At     time.Time `json:"at"`
}
