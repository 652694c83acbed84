package chessdto

const (
	StatusStarted  = "started"
	StatusReset    = "reset"
	StatusOK       = "ok"
	StatusIllegal  = "illegal"
	StatusError    = "error"
	StatusFinished = "finished"
)

type MoveRequest struct {
	Move       string `json:"move"`
	Difficulty string `json:"difficulty,omitempty"`
	Player     string `json:"player,omitempty"`
}

// MoveResponse is the body of POST /player_move. AI is null unless the
// opponent replied in an ongoing game.
type MoveResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message,omitempty"`
	Result  string  `json:"result,omitempty"`
	AI      *string `json:"ai"`
	FEN     string  `json:"fen"`
}
