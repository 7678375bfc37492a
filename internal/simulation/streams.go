package simulation

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

const golden = 0x9e3779b97f4a7c15

// Streams hands out one independent random substream per path.
// The substream for path i depends only on (seed, i), so a run is
// reproducible regardless of how paths are scheduled across workers.
type Streams struct {
	seed uint64
}

// NewStreams creates substreams rooted at seed.
func NewStreams(seed uint64) Streams {
	return Streams{seed: seed}
}

// Seed returns the root seed.
func (s Streams) Seed() uint64 {
	return s.seed
}

// PathSeed returns the seed of the substream for path index.
// It is element index+1 of the SplitMix64 sequence started at the root seed.
func (s Streams) PathSeed(index int) uint64 {
	return splitMix64(s.seed + uint64(index+1)*golden)
}

// Source returns a fresh PCG source for path index.
func (s Streams) Source(index int) rand.Source {
	return rand.NewSource(s.PathSeed(index))
}

// Normal returns a standard normal sampler backed by the path's substream.
func (s Streams) Normal(index int) distuv.Normal {
	return distuv.Normal{Mu: 0, Sigma: 1, Src: s.Source(index)}
}

// RandomSeed draws a root seed from the operating system's CSPRNG.
func RandomSeed() (uint64, error) {
	var b [8]byte
	if _, err := cryptorand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("draw random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func splitMix64(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
