package chesspresenter

import (
	"fmt"
	"strings"

	"github.com/park285/webchess/internal/msgcat"
	"github.com/park285/webchess/pkg/chessdto"
)

// Formatter renders chess DTOs into terminal text blocks.
type Formatter struct {
	msgs *msgcat.Catalog
}

func NewFormatter(msgs *msgcat.Catalog) *Formatter {
	return &Formatter{msgs: msgs}
}

func (f *Formatter) State(state chessdto.StateResponse) string {
	player := "-"
	if state.Player != nil && strings.TrimSpace(*state.Player) != "" {
		player = *state.Player
	}
	data := map[string]any{
		"Turn":     state.Turn,
		"Player":   player,
		"GameOver": state.GameOver,
		"FEN":      state.FEN,
	}
	return f.text("ctl.state", data, fmt.Sprintf("%s to move\n%s", state.Turn, state.FEN))
}

func (f *Formatter) Started(resp chessdto.StartResponse) string {
	data := map[string]any{"Player": resp.Player, "FEN": resp.FEN}
	return f.text("ctl.started", data, resp.FEN)
}

func (f *Formatter) Reset(resp chessdto.ResetResponse) string {
	return f.text("ctl.reset", map[string]any{"FEN": resp.FEN}, resp.FEN)
}

func (f *Formatter) Moves(resp chessdto.ValidMovesResponse) string {
	return f.text("ctl.moves", map[string]any{"Moves": resp.Moves}, strings.Join(resp.Moves, " "))
}

func (f *Formatter) Move(resp chessdto.MoveResponse) string {
	switch resp.Status {
	case chessdto.StatusOK:
		ai := ""
		if resp.AI != nil {
			ai = *resp.AI
		}
		return f.text("ctl.move_ok", map[string]any{"AI": ai, "FEN": resp.FEN}, resp.FEN)
	case chessdto.StatusIllegal:
		return f.text("ctl.move_illegal", map[string]any{"FEN": resp.FEN}, resp.FEN)
	case chessdto.StatusFinished:
		return f.text("ctl.move_finished", map[string]any{"Result": resp.Result, "FEN": resp.FEN}, resp.Result)
	default:
		return f.text("ctl.move_error", map[string]any{"Message": resp.Message, "FEN": resp.FEN}, resp.Message)
	}
}

func (f *Formatter) Event(ev chessdto.Event) string {
	data := map[string]any{
		"Type":   ev.Type,
		"FEN":    ev.FEN,
		"Human":  ev.Human,
		"AI":     ev.AI,
		"Result": ev.Result,
	}
	return f.text("ctl.event", data, ev.Type+" "+ev.FEN)
}

func (f *Formatter) text(key string, data map[string]any, fallback string) string {
	if f == nil {
		return fallback
	}
	return f.msgs.Text(key, data, fallback)
}
