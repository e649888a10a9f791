package collectors

import (
	"math/rand/v2"
	"sync"
)

// Random is a goroutine-safe wrapper over an injected generator so mock
// collectors are reproducible under a fixed seed.
type Random struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandom wraps r, or a randomly seeded PCG generator when r is nil.
func NewRandom(r *rand.Rand) *Random {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Random{r: r}
}

// Seeded returns a deterministic generator for tests and replays.
func Seeded(seed uint64) *Random {
	return NewRandom(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// IntRange returns a uniform integer in [lo, hi].
func (g *Random) IntRange(lo, hi int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo + g.r.IntN(hi-lo+1)
}

// Uniform returns a uniform float in [lo, hi).
func (g *Random) Uniform(lo, hi float64) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo + g.r.Float64()*(hi-lo)
}

func (g *Random) Pick(items []string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return items[g.r.IntN(len(items))]
}

// Sample returns n distinct items in random order.
func (g *Random) Sample(items []string, n int) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := append([]string(nil), items...)
	g.r.Shuffle(len(cp), func(i, j int) { cp[i], cp[j] = cp[j], cp[i] })
	if n > len(cp) {
		n = len(cp)
	}
	return cp[:n]
}
