package exam

import (
	"math/rand"
	"time"
)

// Source is the randomness used by every shuffling step of an assembly run.
// A Source is not safe for concurrent use; give each run its own.
type Source interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewSource returns a Source seeded from the wall clock plus jitter.
// Two runs on the same bank are expected to differ.
func NewSource() Source {
	jitter := rand.Int63n(1_000_000) + 1
	return rand.New(rand.NewSource(time.Now().UnixNano() + jitter))
}

// NewSeededSource returns a deterministic Source for tests and replays.
func NewSeededSource(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}

// shuffled returns a shuffled copy of in.
func shuffled[T any](in []T, rng Source) []T {
	out := append([]T(nil), in...)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
