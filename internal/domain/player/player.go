// Package player defines the roster record consumed by the balancing engine.
package player

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// Rating bounds and granularity.
const (
	MinRating  = 0.0
	MaxRating  = 10.0
	RatingStep = 0.5
)

// Position is one of the four fixed playing positions.
type Position string

const (
	Goalkeeper Position = "goalkeeper"
	Defender   Position = "defender"
	Midfielder Position = "midfielder"
	Forward    Position = "forward"
)

// Positions returns every position in canonical order.
func Positions() []Position {
	return []Position{Goalkeeper, Defender, Midfielder, Forward}
}

// Valid reports whether p is one of the four known positions.
func (p Position) Valid() bool {
	switch p {
	case Goalkeeper, Defender, Midfielder, Forward:
		return true
	}
	return false
}

// Skills holds one rating per position. All four are always present.
type Skills struct {
	Goalkeeper float64 `json:"goalkeeper"`
	Defender   float64 `json:"defender"`
	Midfielder float64 `json:"midfielder"`
	Forward    float64 `json:"forward"`
}

// Of returns the rating for pos, or 0 for an unknown position.
func (s Skills) Of(pos Position) float64 {
	switch pos {
	case Goalkeeper:
		return s.Goalkeeper
	case Defender:
		return s.Defender
	case Midfielder:
		return s.Midfielder
	case Forward:
		return s.Forward
	}
	return 0
}

// Set returns a copy of s with pos rated r.
func (s Skills) Set(pos Position, r float64) Skills {
	switch pos {
	case Goalkeeper:
		s.Goalkeeper = r
	case Defender:
		s.Defender = r
	case Midfielder:
		s.Midfielder = r
	case Forward:
		s.Forward = r
	}
	return s
}

// Player is a participant available for selection.
type Player struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	PositionSkills Skills     `json:"position_skills"`
	Skill          float64    `json:"skill"`
	Positions      []Position `json:"positions"`
	Stamina        *float64   `json:"stamina,omitempty"`
	CreatedAt      time.Time  `json:"created_at,omitzero"`
	UpdatedAt      time.Time  `json:"updated_at,omitzero"`
}

// New builds a Player and computes its derived fields.
func New(id, name string, skills Skills, stamina *float64) Player {
	p := Player{
		ID:             id,
		Name:           name,
		PositionSkills: skills,
	}
	if stamina != nil {
		v := *stamina
		p.Stamina = &v
	}
	p.Refresh()
	return p
}

// Refresh recomputes Skill and Positions from PositionSkills.
func (p *Player) Refresh() {
	p.Skill = DeriveSkill(p.PositionSkills)
	p.Positions = DerivePositions(p.PositionSkills)
}

// Clone returns a copy that shares no memory with p.
func (p Player) Clone() Player {
	c := p
	c.Positions = slices.Clone(p.Positions)
	if p.Stamina != nil {
		v := *p.Stamina
		c.Stamina = &v
	}
	return c
}

// FieldSkill is the mean of the three outfield ratings.
func (p Player) FieldSkill() float64 {
	s := p.PositionSkills
	return (s.Defender + s.Midfielder + s.Forward) / 3
}

// DeriveSkill returns the mean of all four ratings rounded to one decimal.
func DeriveSkill(s Skills) float64 {
	sum := s.Goalkeeper + s.Defender + s.Midfielder + s.Forward
	return Round(sum/4, 1)
}

// DerivePositions returns every position sharing the maximum rating.
func DerivePositions(s Skills) []Position {
	best := math.Inf(-1)
	for _, pos := range Positions() {
		best = math.Max(best, s.Of(pos))
	}
	out := make([]Position, 0, 1)
	for _, pos := range Positions() {
		if s.Of(pos) == best {
			out = append(out, pos)
		}
	}
	return out
}

// Round rounds x half away from zero to the given number of decimals.
func Round(x float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(x*pow) / pow
}

// Validate checks the record shape the engine assumes.
func (p Player) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidPlayer)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidPlayer)
	}
	for _, pos := range Positions() {
		if err := checkRating(string(pos), p.PositionSkills.Of(pos)); err != nil {
			return err
		}
	}
	if p.Stamina != nil {
		if err := checkRating("stamina", *p.Stamina); err != nil {
			return err
		}
	}
	if p.Skill != DeriveSkill(p.PositionSkills) {
		return fmt.Errorf("%w: skill %.1f does not match position ratings", ErrInvalidPlayer, p.Skill)
	}
	return nil
}

func checkRating(field string, r float64) error {
	if math.IsNaN(r) || r < MinRating || r > MaxRating {
		return fmt.Errorf("%w: %s rating %v out of range [%v, %v]", ErrInvalidPlayer, field, r, MinRating, MaxRating)
	}
	if math.Mod(r, RatingStep) != 0 {
		return fmt.Errorf("%w: %s rating %v is not a multiple of %v", ErrInvalidPlayer, field, r, RatingStep)
	}
	return nil
}
