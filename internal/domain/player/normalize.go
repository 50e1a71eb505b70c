package player

import (
	"fmt"
	"math"
	"strings"
)

// DefaultRating fills position ratings absent from older records.
const DefaultRating = 1.0

// RawPlayer is a loosely shaped roster record as it arrives from clients or
// older stored data. Normalize turns it into a Player.
type RawPlayer struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	PositionSkills map[string]float64 `json:"position_skills,omitempty"`
	Stamina        *float64           `json:"stamina,omitempty"`

	// Legacy shape: one flat rating plus the positions it applied to.
	Skill     *float64 `json:"skill,omitempty"`
	Position  string   `json:"position,omitempty"`
	Positions []string `json:"positions,omitempty"`
}

var positionAliases = map[string]Position{
	"goalkeeper": Goalkeeper,
	"gk":         Goalkeeper,
	"arquero":    Goalkeeper,
	"defender":   Defender,
	"def":        Defender,
	"defensa":    Defender,
	"midfielder": Midfielder,
	"mid":        Midfielder,
	"medio":      Midfielder,
	"forward":    Forward,
	"fwd":        Forward,
	"ofensa":     Forward,
}

// ParsePosition resolves a position name or alias, case-insensitively.
func ParsePosition(s string) (Position, error) {
	pos, ok := positionAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: unknown position %q", ErrInvalidPlayer, s)
	}
	return pos, nil
}

// Normalize fills missing ratings, migrates the legacy flat-skill shape,
// recomputes derived fields and validates the result.
func Normalize(raw RawPlayer) (Player, error) {
	skills, err := normalizeSkills(raw)
	if err != nil {
		return Player{}, err
	}
	var stamina *float64
	if raw.Stamina != nil {
		v := snap(*raw.Stamina)
		stamina = &v
	}
	p := New(strings.TrimSpace(raw.ID), strings.TrimSpace(raw.Name), skills, stamina)
	if err := p.Validate(); err != nil {
		return Player{}, err
	}
	return p, nil
}

func normalizeSkills(raw RawPlayer) (Skills, error) {
	filled := map[Position]bool{}
	var s Skills
	for key, r := range raw.PositionSkills {
		pos, err := ParsePosition(key)
		if err != nil {
			return Skills{}, err
		}
		s = s.Set(pos, snap(r))
		filled[pos] = true
	}

	if len(filled) == 0 && raw.Skill != nil {
		return legacySkills(raw)
	}

	for _, pos := range Positions() {
		if !filled[pos] {
			s = s.Set(pos, DefaultRating)
		}
	}
	return s, nil
}

// legacySkills spreads a flat rating over the positions it was given for.
// Unlisted positions get DefaultRating; with no positions listed all four
// take the flat rating.
func legacySkills(raw RawPlayer) (Skills, error) {
	flat := snap(*raw.Skill)
	names := raw.Positions
	if raw.Position != "" {
		names = append([]string{raw.Position}, names...)
	}
	if len(names) == 0 {
		return Skills{Goalkeeper: flat, Defender: flat, Midfielder: flat, Forward: flat}, nil
	}
	s := Skills{Goalkeeper: DefaultRating, Defender: DefaultRating, Midfielder: DefaultRating, Forward: DefaultRating}
	for _, name := range names {
		pos, err := ParsePosition(name)
		if err != nil {
			return Skills{}, err
		}
		s = s.Set(pos, flat)
	}
	return s, nil
}

// snap rounds r to the nearest rating step.
func snap(r float64) float64 {
	return math.Round(r/RatingStep) * RatingStep
}
