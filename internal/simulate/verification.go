package simulate

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/okian/lineup/internal/domain/balance"
	"github.com/okian/lineup/internal/domain/player"
)

// ErrViolation marks a result that breaks a balancing guarantee.
var ErrViolation = errors.New("balancing guarantee violated")

// Verify checks a balancing result against the pool it was built from:
// every player is placed exactly once, team sizes differ by at most one,
// and the two best goalkeepers lead team A and team B.
func Verify(pool []player.Player, res balance.MatchResult) error {
	if err := verifyCoverage(pool, res); err != nil {
		return err
	}
	if d := len(res.TeamA.Players) - len(res.TeamB.Players); d < -1 || d > 1 {
		return fmt.Errorf("%w: team sizes %d and %d", ErrViolation, len(res.TeamA.Players), len(res.TeamB.Players))
	}
	return verifyKeepers(pool, res)
}

func verifyCoverage(pool []player.Player, res balance.MatchResult) error {
	want := make(map[string]int, len(pool))
	for _, p := range pool {
		want[p.ID]++
	}
	placed := slices.Concat(res.TeamA.Players, res.TeamB.Players)
	if len(placed) != len(pool) {
		return fmt.Errorf("%w: %d players placed from a pool of %d", ErrViolation, len(placed), len(pool))
	}
	for _, p := range placed {
		if want[p.ID] == 0 {
			return fmt.Errorf("%w: player %s placed twice or not in the pool", ErrViolation, p.ID)
		}
		want[p.ID]--
	}
	return nil
}

// verifyKeepers compares ratings rather than ids so equal keepers may be
// seeded in either order.
func verifyKeepers(pool []player.Player, res balance.MatchResult) error {
	if len(pool) == 0 {
		return nil
	}
	ratings := make([]float64, len(pool))
	for i, p := range pool {
		ratings[i] = p.PositionSkills.Goalkeeper
	}
	slices.SortFunc(ratings, func(a, b float64) int { return cmp.Compare(b, a) })

	if len(res.TeamA.Players) == 0 || res.TeamA.Players[0].PositionSkills.Goalkeeper != ratings[0] {
		return fmt.Errorf("%w: team A is not led by the best goalkeeper", ErrViolation)
	}
	if len(pool) > 1 && (len(res.TeamB.Players) == 0 || res.TeamB.Players[0].PositionSkills.Goalkeeper != ratings[1]) {
		return fmt.Errorf("%w: team B is not led by the second goalkeeper", ErrViolation)
	}
	return nil
}
