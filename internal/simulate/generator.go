package simulate

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/lineup/internal/domain/player"
)

// generator produces reproducible random players and pools.
type generator struct {
	rng *rand.Rand
}

func newGenerator(seed uint64) *generator {
	return &generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// rating returns a random valid rating in half steps.
func (g *generator) rating() float64 {
	steps := int((player.MaxRating - player.MinRating) / player.RatingStep)
	return player.MinRating + float64(g.rng.IntN(steps+1))*player.RatingStep
}

// players returns n roster records with random ratings. Roughly half carry
// a stamina rating.
func (g *generator) players(n int) []player.RawPlayer {
	out := make([]player.RawPlayer, n)
	for i := range out {
		raw := player.RawPlayer{
			ID:   "sim-" + uuid.NewString(),
			Name: fmt.Sprintf("Sim Player %d", i+1),
			PositionSkills: map[string]float64{
				string(player.Goalkeeper): g.rating(),
				string(player.Defender):   g.rating(),
				string(player.Midfielder): g.rating(),
				string(player.Forward):    g.rating(),
			},
		}
		if g.rng.IntN(2) == 0 {
			s := g.rating()
			raw.Stamina = &s
		}
		out[i] = raw
	}
	return out
}

// pool picks between lo and hi distinct ids from ids, in random order.
func (g *generator) pool(ids []string, lo, hi int) []string {
	hi = min(hi, len(ids))
	lo = min(max(lo, 0), hi)
	n := lo
	if hi > lo {
		n += g.rng.IntN(hi - lo + 1)
	}
	perm := g.rng.Perm(len(ids))
	out := make([]string, n)
	for i := range out {
		out[i] = ids[perm[i]]
	}
	return out
}
