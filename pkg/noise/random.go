package noise

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// newSource builds an independent random source for one model
// invocation. Every randomized model calls this with the seed it was
// given, so concurrent invocations never share generator state and a
// batch is reproducible regardless of scheduling.
func newSource(seed uint64) rand.Source {
	return rand.NewSource(seed)
}

// normal returns a zero-mean normal distribution with the given
// standard deviation drawing from src.
func normal(sigma float64, src rand.Source) distuv.Normal {
	return distuv.Normal{Mu: 0, Sigma: sigma, Src: src}
}

// DeriveSeed produces the sub-stream seed for the job at the given
// index of a batch started with base seed. SplitMix64 finalization
// keeps neighbouring indices uncorrelated.
func DeriveSeed(base uint64, index int) uint64 {
	z := base + uint64(index)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
