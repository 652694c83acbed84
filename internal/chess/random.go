package chess

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// RandomSource picks uniformly among the legal moves.
type RandomSource struct {
	mu   sync.Mutex
	rand *rand.Rand
}

func NewRandomSource() *RandomSource {
	return &RandomSource{rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (r *RandomSource) Name() string { return "random" }

func (r *RandomSource) SelectMove(_ context.Context, req Request) (string, error) {
	if len(req.Legal) == 0 {
		return "", ErrNoLegalMoves
	}
	r.mu.Lock()
	idx := r.rand.Intn(len(req.Legal))
	r.mu.Unlock()
	return req.Legal[idx], nil
}

func (r *RandomSource) SetRandomSeed(seed int64) {
	r.mu.Lock()
	r.rand = rand.New(rand.NewSource(seed))
	r.mu.Unlock()
}
