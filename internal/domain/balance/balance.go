// Package balance splits a player pool into two teams of comparable strength.
//
// The split is a greedy heuristic: the two best goalkeepers anchor opposite
// teams, then outfield players are placed one at a time, strongest first,
// onto whichever side keeps sizes level and currently has the lower total.
// Generate is pure and safe for concurrent use.
package balance

import (
	"cmp"
	"math"
	"slices"

	"github.com/okian/lineup/internal/domain/player"
)

// Blend weights used when stamina takes part in balancing decisions.
const (
	SkillWeight   = 0.7
	StaminaWeight = 0.3
)

// Default team labels.
const (
	DefaultTeamA = "Team 1"
	DefaultTeamB = "Team 2"
)

// keeperSlots is how many goalkeepers are seeded before the field pass.
const keeperSlots = 2

// Team is one side of a generated match.
type Team struct {
	Name         string          `json:"name"`
	Players      []player.Player `json:"players"`
	TotalSkill   float64         `json:"total_skill"`
	AverageSkill float64         `json:"average_skill"`
}

// MatchResult is the output of one balancing run.
type MatchResult struct {
	TeamA           Team    `json:"team_a"`
	TeamB           Team    `json:"team_b"`
	SkillDifference float64 `json:"skill_difference"`
}

// Clone returns a copy whose player lists share no memory with r.
func (r MatchResult) Clone() MatchResult {
	c := r
	c.TeamA.Players = clonePlayers(r.TeamA.Players)
	c.TeamB.Players = clonePlayers(r.TeamB.Players)
	return c
}

func clonePlayers(ps []player.Player) []player.Player {
	if ps == nil {
		return nil
	}
	out := make([]player.Player, len(ps))
	for i, p := range ps {
		out[i] = p.Clone()
	}
	return out
}

// Option configures a Generate call.
type Option func(*options)

type options struct {
	nameA string
	nameB string
}

// WithTeamNames overrides the default team labels. Empty names are ignored.
func WithTeamNames(a, b string) Option {
	return func(o *options) {
		if a != "" {
			o.nameA = a
		}
		if b != "" {
			o.nameB = b
		}
	}
}

// CalculateTeamStats summarizes players into a Team.
func CalculateTeamStats(players []player.Player, name string) Team {
	var total float64
	for _, p := range players {
		total += p.Skill
	}
	t := Team{
		Name:       name,
		Players:    players,
		TotalSkill: player.Round(total, 2),
	}
	if len(players) > 0 {
		t.AverageSkill = player.Round(total/float64(len(players)), 2)
	}
	return t
}

// EffectiveSkill is the rating compared during balancing. It blends in
// stamina only when asked to and when the player has a stamina rating.
func EffectiveSkill(p player.Player, useStamina bool) float64 {
	if !useStamina || p.Stamina == nil {
		return p.Skill
	}
	return SkillWeight*p.Skill + StaminaWeight*(*p.Stamina)
}

// Generate partitions players into two teams. It never fails and never
// mutates its input; every player must carry all four position ratings.
func Generate(players []player.Player, useStamina bool, opts ...Option) MatchResult {
	o := options{nameA: DefaultTeamA, nameB: DefaultTeamB}
	for _, opt := range opts {
		opt(&o)
	}

	if len(players) == 0 {
		return MatchResult{
			TeamA: CalculateTeamStats([]player.Player{}, o.nameA),
			TeamB: CalculateTeamStats([]player.Player{}, o.nameB),
		}
	}

	a, b, field := allocateKeepers(players, useStamina)
	balanceField(a, b, field, useStamina)

	teamA := CalculateTeamStats(a.players, o.nameA)
	teamB := CalculateTeamStats(b.players, o.nameB)
	return MatchResult{
		TeamA:           teamA,
		TeamB:           teamB,
		SkillDifference: player.Round(math.Abs(teamA.TotalSkill-teamB.TotalSkill), 2),
	}
}

// side accumulates one team's members and effective-skill total.
type side struct {
	players []player.Player
	total   float64
}

func (s *side) add(p player.Player, useStamina bool) {
	s.players = append(s.players, p)
	s.total += EffectiveSkill(p, useStamina)
}

// allocateKeepers seeds the best goalkeeper on A and the runner-up on B.
// The remaining players are returned as field players.
func allocateKeepers(pool []player.Player, useStamina bool) (a, b *side, field []player.Player) {
	ranked := slices.Clone(pool)
	slices.SortStableFunc(ranked, func(x, y player.Player) int {
		return cmp.Compare(y.PositionSkills.Goalkeeper, x.PositionSkills.Goalkeeper)
	})

	capacity := len(pool)/2 + 1
	a = &side{players: make([]player.Player, 0, capacity)}
	b = &side{players: make([]player.Player, 0, capacity)}

	n := min(keeperSlots, len(ranked))
	keepers := ranked[:n]
	a.add(keepers[0], useStamina)
	if n > 1 {
		b.add(keepers[1], useStamina)
	}
	return a, b, ranked[n:]
}

// balanceField places field players in a single pass, strongest first.
// Size parity wins over skill; equal totals go to A.
func balanceField(a, b *side, field []player.Player, useStamina bool) {
	ordered := slices.Clone(field)
	slices.SortStableFunc(ordered, func(x, y player.Player) int {
		return cmp.Compare(y.FieldSkill(), x.FieldSkill())
	})

	for _, p := range ordered {
		switch {
		case len(a.players) < len(b.players):
			a.add(p, useStamina)
		case len(b.players) < len(a.players):
			b.add(p, useStamina)
		case a.total <= b.total:
			a.add(p, useStamina)
		default:
			b.add(p, useStamina)
		}
	}
}
