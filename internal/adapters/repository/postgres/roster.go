package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/okian/lineup/internal/adapters/repository"
	"github.com/okian/lineup/internal/domain/player"
)

var _ repository.RosterStore = (*Roster)(nil)

// Roster is a RosterStore backed by the players table.
type Roster struct {
	db *DB
}

// NewRoster returns a roster on db.
func NewRoster(db *DB) *Roster {
	return &Roster{db: db}
}

const playerColumns = `id, name, skill, positions, position_skills, stamina, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (player.Player, error) {
	var (
		p         player.Player
		positions []string
		skills    []byte
		stamina   *float64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Skill, pq.Array(&positions), &skills, &stamina, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return player.Player{}, err
	}
	if err := json.Unmarshal(skills, &p.PositionSkills); err != nil {
		return player.Player{}, fmt.Errorf("decode position_skills for %s: %w", p.ID, err)
	}
	p.Positions = make([]player.Position, len(positions))
	for i, s := range positions {
		p.Positions[i] = player.Position(s)
	}
	p.Stamina = stamina
	return p, nil
}

func (r *Roster) List(ctx context.Context) ([]player.Player, error) {
	defer observe("postgres_roster", "list", time.Now())
	rows, err := r.db.db.QueryContext(ctx, `SELECT `+playerColumns+` FROM players ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := []player.Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, translate(rows.Err())
}

func (r *Roster) Get(ctx context.Context, id string) (player.Player, error) {
	defer observe("postgres_roster", "get", time.Now())
	p, err := scanPlayer(r.db.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
	return p, translate(err)
}

// playerArgs returns the insert arguments for p in playerColumns order.
func playerArgs(p player.Player) ([]any, error) {
	skills, err := json.Marshal(p.PositionSkills)
	if err != nil {
		return nil, err
	}
	positions := make([]string, len(p.Positions))
	for i, pos := range p.Positions {
		positions[i] = string(pos)
	}
	now := time.Now().UTC()
	created, updated := p.CreatedAt, p.UpdatedAt
	if created.IsZero() {
		created = now
	}
	if updated.IsZero() {
		updated = now
	}
	return []any{p.ID, p.Name, p.Skill, pq.Array(positions), skills, p.Stamina, created, updated}, nil
}

// Create inserts p. A taken id surfaces as repository.ErrConflict.
func (r *Roster) Create(ctx context.Context, p player.Player) error {
	defer observe("postgres_roster", "create", time.Now())
	args, err := playerArgs(p)
	if err != nil {
		return err
	}
	_, err = r.db.db.ExecContext(ctx, `
		INSERT INTO players (`+playerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, args...)
	return translate(err)
}

func (r *Roster) Put(ctx context.Context, p player.Player) error {
	defer observe("postgres_roster", "put", time.Now())
	args, err := playerArgs(p)
	if err != nil {
		return err
	}
	_, err = r.db.db.ExecContext(ctx, `
		INSERT INTO players (`+playerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			skill = EXCLUDED.skill,
			positions = EXCLUDED.positions,
			position_skills = EXCLUDED.position_skills,
			stamina = EXCLUDED.stamina,
			updated_at = EXCLUDED.updated_at`, args...)
	return translate(err)
}

func (r *Roster) Delete(ctx context.Context, id string) error {
	defer observe("postgres_roster", "delete", time.Now())
	res, err := r.db.db.ExecContext(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	return affected(res)
}

func (r *Roster) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.db.QueryRowContext(ctx, `SELECT count(*) FROM players`).Scan(&n)
	return n, translate(err)
}
