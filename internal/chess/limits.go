package chess

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/park285/webchess/internal/chess/uci"
)

func BuildGoCommand(p DifficultyPreset) ([]string, error) {
	if err := ValidatePreset(p); err != nil {
		return nil, err
	}

	args := []string{"go"}
	if p.DepthCap > 0 {
		args = append(args, "depth", strconv.Itoa(p.DepthCap))
	}
	if p.MoveTimeMillis > 0 {
		args = append(args, "movetime", strconv.Itoa(p.MoveTimeMillis))
	}
	if len(args) == 1 {
		return nil, fmt.Errorf("preset %s does not define search limits", p.Tier)
	}
	return args, nil
}

func FormatGoCommand(p DifficultyPreset) (string, error) {
	args, err := BuildGoCommand(p)
	if err != nil {
		return "", err
	}
	return strings.Join(args, " "), nil
}

func optionsFromPreset(p DifficultyPreset) uci.Options {
	return uci.Options{
		Threads:    p.Threads,
		SkillLevel: p.SkillLevel,
		HashMB:     p.HashMB,
		MultiPV:    p.MultiPV,
		Elo:        p.Elo,
	}
}

func limitsFromPreset(p DifficultyPreset) uci.Limits {
	return uci.Limits{
		Depth:          p.DepthCap,
		MoveTimeMillis: p.MoveTimeMillis,
	}
}
