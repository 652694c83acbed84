package chess

import (
	"fmt"
	"strings"
	"time"
)

// Tier is a difficulty label chosen by the player.
type Tier string

const (
	TierEasy   Tier = "easy"
	TierMedium Tier = "medium"
	TierHard   Tier = "hard"
)

const DefaultTier = TierMedium

// ParseTier maps any label onto a known tier; unknown or empty labels play as medium.
func ParseTier(label string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(label))) {
	case TierEasy:
		return TierEasy
	case TierHard:
		return TierHard
	default:
		return TierMedium
	}
}

// NormalizeLabel is the difficulty text recorded for a game: trimmed,
// lowercased, and "medium" when empty.
func NormalizeLabel(label string) string {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return string(DefaultTier)
	}
	return l
}

// ThinkTime is the search budget handed to the engine for this tier.
func (t Tier) ThinkTime() time.Duration {
	return time.Duration(PresetFor(t).MoveTimeMillis) * time.Millisecond
}

type DifficultyPreset struct {
	Tier             Tier
	SkillLevel       int
	Elo              int
	Threads          int
	HashMB           int
	MoveTimeMillis   int
	DepthCap         int
	MultiPV          int
	PrimaryChoices   int
	CandidateWeights []float64
	EvalNoise        int
}

const defaultThreads = 1

var DefaultPresets = map[Tier]DifficultyPreset{
	TierEasy: {
		Tier:             TierEasy,
		SkillLevel:       3,
		Elo:              1350,
		Threads:          defaultThreads,
		HashMB:           16,
		MoveTimeMillis:   100,
		MultiPV:          3,
		PrimaryChoices:   3,
		CandidateWeights: []float64{0.6, 0.25, 0.15},
		EvalNoise:        40,
	},
	TierMedium: {
		Tier:             TierMedium,
		SkillLevel:       10,
		Elo:              1800,
		Threads:          defaultThreads,
		HashMB:           32,
		MoveTimeMillis:   500,
		MultiPV:          2,
		PrimaryChoices:   2,
		CandidateWeights: []float64{0.85, 0.15},
	},
	TierHard: {
		Tier:             TierHard,
		SkillLevel:       20,
		Threads:          defaultThreads,
		HashMB:           64,
		MoveTimeMillis:   1500,
		MultiPV:          1,
		PrimaryChoices:   1,
		CandidateWeights: []float64{1},
	},
}

// PresetFor returns a copy of the preset for t, falling back to medium.
func PresetFor(t Tier) DifficultyPreset {
	p, ok := DefaultPresets[t]
	if !ok {
		p = DefaultPresets[DefaultTier]
	}
	p.CandidateWeights = append([]float64(nil), p.CandidateWeights...)
	return p
}

func ValidatePreset(p DifficultyPreset) error {
	switch {
	case p.SkillLevel < 0 || p.SkillLevel > 20:
		return fmt.Errorf("skill level %d out of range 0-20", p.SkillLevel)
	case p.Threads <= 0:
		return fmt.Errorf("threads must be > 0: %d", p.Threads)
	case p.HashMB <= 0:
		return fmt.Errorf("hash size must be > 0: %d", p.HashMB)
	case p.MultiPV <= 0:
		return fmt.Errorf("multipv must be > 0: %d", p.MultiPV)
	case p.PrimaryChoices <= 0:
		return fmt.Errorf("primary choices must be > 0: %d", p.PrimaryChoices)
	case p.PrimaryChoices > p.MultiPV:
		return fmt.Errorf("primary choices (%d) must not exceed multipv (%d)", p.PrimaryChoices, p.MultiPV)
	case len(p.CandidateWeights) < p.PrimaryChoices:
		return fmt.Errorf("candidate weights (%d) must cover primary choices (%d)", len(p.CandidateWeights), p.PrimaryChoices)
	case p.Elo < 0:
		return fmt.Errorf("elo must be >= 0: %d", p.Elo)
	}

	sum := 0.0
	for i := 0; i < p.PrimaryChoices; i++ {
		w := p.CandidateWeights[i]
		if w < 0 {
			return fmt.Errorf("candidate weight at index %d is negative: %f", i, w)
		}
		sum += w
	}
	if sum == 0 {
		return fmt.Errorf("candidate weights sum to zero")
	}
	if p.MoveTimeMillis < 0 {
		return fmt.Errorf("move time must be >= 0: %d", p.MoveTimeMillis)
	}
	if p.DepthCap < 0 {
		return fmt.Errorf("depth cap must be >= 0: %d", p.DepthCap)
	}
	if p.EvalNoise < 0 {
		return fmt.Errorf("eval noise must be >= 0: %d", p.EvalNoise)
	}
	return nil
}
