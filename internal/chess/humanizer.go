package chess

import (
	"errors"
	"math"
	"math/rand"
)

var errNoCandidates = errors.New("no candidates to choose from")

type Candidate struct {
	Move      string
	EvalCP    int
	Principal []string
}

// SelectCandidate draws one of the preset's primary lines using its weights.
// Lower tiers therefore sometimes play the second or third engine choice.
func SelectCandidate(p DifficultyPreset, candidates []Candidate, r *rand.Rand) (Candidate, error) {
	if len(candidates) == 0 {
		return Candidate{}, errNoCandidates
	}
	if err := ValidatePreset(p); err != nil {
		return Candidate{}, err
	}

	primaryLimit := p.PrimaryChoices
	if primaryLimit > len(candidates) {
		primaryLimit = len(candidates)
	}

	totalWeight := 0.0
	for i := 0; i < primaryLimit; i++ {
		totalWeight += p.CandidateWeights[i]
	}
	if totalWeight == 0 {
		return candidates[0], nil
	}

	threshold := r.Float64() * totalWeight
	index := 0
	for i := 0; i < primaryLimit; i++ {
		threshold -= p.CandidateWeights[i]
		if threshold <= 0 {
			index = i
			break
		}
	}

	choice := candidates[index]
	if p.EvalNoise > 0 {
		offset := r.Intn(2*p.EvalNoise+1) - p.EvalNoise
		choice.EvalCP = saturatingAdd(choice.EvalCP, offset)
	}
	return choice, nil
}

func saturatingAdd(a, b int) int {
	sum := int64(a) + int64(b)
	if sum > math.MaxInt {
		return math.MaxInt
	}
	if sum < math.MinInt {
		return math.MinInt
	}
	return int(sum)
}
