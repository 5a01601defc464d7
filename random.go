package server

import (
	"hash/fnv"
	"math/rand"
)

// deterministicSeedValue derives a stable numeric seed for one labeled random
// stream, so replays of the same root seed place stand-ins identically.
func deterministicSeedValue(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

func newDeterministicRNG(rootSeed, label string) *rand.Rand {
	return rand.New(rand.NewSource(deterministicSeedValue(rootSeed, label)))
}

func (e *Encounter) randomFloat() float64 {
	if e != nil && e.rng != nil {
		return e.rng.Float64()
	}
	return rand.Float64()
}

// randomJitter returns a value in [-max, max].
func (e *Encounter) randomJitter(max float64) float64 {
	if max <= 0 {
		return 0
	}
	return (e.randomFloat()*2 - 1) * max
}
