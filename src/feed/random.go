package feed

import (
	"math/rand"
	"time"
)

// Random is the perturbation source: uniform values in [0, 1).
type Random interface {
	Float64() float64
}

// NewSeededRandom returns a deterministic source for replays and tests.
func NewSeededRandom(seed int64) Random {
	return rand.New(rand.NewSource(seed))
}

func NewRandom() Random {
	return NewSeededRandom(time.Now().UnixNano())
}
