package chessdto

// StateResponse is the body of GET /get_state. Player is null until a
// game has been started with a name.
type StateResponse struct {
	FEN      string  `json:"fen"`
	Turn     string  `json:"turn"`
	GameOver bool    `json:"game_over"`
	Player   *string `json:"player"`
}

type StartRequest struct {
	Player string `json:"player,omitempty"`
}

type StartResponse struct {
	Status string `json:"status"`
	Player string `json:"player"`
	FEN    string `json:"fen"`
}

type ResetResponse struct {
	Status string `json:"status"`
	FEN    string `json:"fen"`
}

type ValidMovesResponse struct {
	Moves []string `json:"moves"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Engine string `json:"engine"`
}
