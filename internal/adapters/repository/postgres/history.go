package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/okian/lineup/internal/adapters/repository"
	"github.com/okian/lineup/internal/domain/model"
)

var _ repository.HistoryStore = (*History)(nil)

// History is a HistoryStore backed by the matches table.
type History struct {
	db *DB
}

// NewHistory returns a history on db.
func NewHistory(db *DB) *History {
	return &History{db: db}
}

const matchColumns = `id, "timestamp", team_a, team_b, skill_difference`

func scanMatch(row rowScanner) (model.SavedMatch, error) {
	var (
		m            model.SavedMatch
		teamA, teamB []byte
	)
	if err := row.Scan(&m.ID, &m.Timestamp, &teamA, &teamB, &m.SkillDifference); err != nil {
		return model.SavedMatch{}, err
	}
	if err := json.Unmarshal(teamA, &m.TeamA); err != nil {
		return model.SavedMatch{}, fmt.Errorf("decode team_a for %s: %w", m.ID, err)
	}
	if err := json.Unmarshal(teamB, &m.TeamB); err != nil {
		return model.SavedMatch{}, fmt.Errorf("decode team_b for %s: %w", m.ID, err)
	}
	return m, nil
}

func encodeTeams(m model.SavedMatch) ([]byte, []byte, error) {
	a, err := json.Marshal(m.TeamA)
	if err != nil {
		return nil, nil, err
	}
	b, err := json.Marshal(m.TeamB)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func (h *History) Save(ctx context.Context, m model.SavedMatch) error {
	defer observe("postgres_history", "save", time.Now())
	a, b, err := encodeTeams(m)
	if err != nil {
		return err
	}
	_, err = h.db.db.ExecContext(ctx,
		`INSERT INTO matches (`+matchColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.Timestamp, a, b, m.SkillDifference)
	return translate(err)
}

func (h *History) Update(ctx context.Context, m model.SavedMatch) error {
	defer observe("postgres_history", "update", time.Now())
	a, b, err := encodeTeams(m)
	if err != nil {
		return err
	}
	res, err := h.db.db.ExecContext(ctx,
		`UPDATE matches SET "timestamp" = $2, team_a = $3, team_b = $4, skill_difference = $5 WHERE id = $1`,
		m.ID, m.Timestamp, a, b, m.SkillDifference)
	if err != nil {
		return translate(err)
	}
	return affected(res)
}

func (h *History) Get(ctx context.Context, id string) (model.SavedMatch, error) {
	defer observe("postgres_history", "get", time.Now())
	m, err := scanMatch(h.db.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id))
	return m, translate(err)
}

func (h *History) List(ctx context.Context, f model.HistoryFilter) ([]model.SavedMatch, error) {
	defer observe("postgres_history", "list", time.Now())
	var (
		query strings.Builder
		args  []any
	)
	query.WriteString(`SELECT ` + matchColumns + ` FROM matches`)
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		fmt.Fprintf(&query, ` WHERE "timestamp" >= $%d`, len(args))
	}
	query.WriteString(` ORDER BY "timestamp" DESC, id`)
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&query, ` LIMIT $%d`, len(args))
	}

	rows, err := h.db.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := []model.SavedMatch{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, translate(rows.Err())
}

func (h *History) Delete(ctx context.Context, id string) error {
	defer observe("postgres_history", "delete", time.Now())
	res, err := h.db.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	return affected(res)
}

func (h *History) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	defer observe("postgres_history", "delete_before", time.Now())
	res, err := h.db.db.ExecContext(ctx, `DELETE FROM matches WHERE "timestamp" < $1`, cutoff)
	if err != nil {
		return 0, translate(err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (h *History) Count(ctx context.Context) (int, error) {
	var n int
	err := h.db.db.QueryRowContext(ctx, `SELECT count(*) FROM matches`).Scan(&n)
	return n, translate(err)
}
