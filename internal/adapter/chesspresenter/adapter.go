package chesspresenter

import (
	"errors"

	"github.com/park285/webchess/internal/msgcat"
	svc "github.com/park285/webchess/internal/service/chess"
	"github.com/park285/webchess/pkg/chessdto"
)

func ToStateResponse(s svc.SessionState) chessdto.StateResponse {
	out := chessdto.StateResponse{
		FEN:      s.FEN,
		Turn:     s.Turn,
		GameOver: s.GameOver,
	}
	if s.Player != "" {
		player := s.Player
		out.Player = &player
	}
	return out
}

func ToStartResponse(s svc.SessionState) chessdto.StartResponse {
	return chessdto.StartResponse{
		Status: chessdto.StatusStarted,
		Player: s.Player,
		FEN:    s.FEN,
	}
}

func ToResetResponse(s svc.SessionState) chessdto.ResetResponse {
	return chessdto.ResetResponse{
		Status: chessdto.StatusReset,
		FEN:    s.FEN,
	}
}

// ToMoveResponse maps the outcome of SubmitHumanMove onto the wire body.
// Every rejection still carries the unchanged position.
func ToMoveResponse(res svc.MoveResult, err error, msgs *msgcat.Catalog) chessdto.MoveResponse {
	out := chessdto.MoveResponse{FEN: res.FEN}
	switch {
	case err == nil:
	case errors.Is(err, svc.ErrIllegalMove):
		out.Status = chessdto.StatusIllegal
		return out
	case errors.Is(err, svc.ErrInvalidInput):
		out.Status = chessdto.StatusError
		out.Message = msgs.Text("http.missing_move", nil, "Missing move")
		return out
	case errors.Is(err, svc.ErrGameOver):
		out.Status = chessdto.StatusError
		out.Message = msgs.Text("http.game_over", nil, err.Error())
		return out
	default:
		out.Status = chessdto.StatusError
		out.Message = msgs.Text("http.malformed_move", map[string]any{"Error": err.Error()}, err.Error())
		return out
	}

	if res.Status == svc.StatusFinished {
		out.Status = chessdto.StatusFinished
		out.Result = res.Record
		return out
	}
	out.Status = chessdto.StatusOK
	if res.AIMove != "" {
		ai := res.AIMove
		out.AI = &ai
	}
	return out
}
