package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/blackwell-systems/cceval/internal/score"
)

// Evaluation is one stored report with its headline values lifted into
// columns.
type Evaluation struct {
	ID             string        `json:"id"`
	SessionID      string        `json:"session_id"`
	ProjectPath    string        `json:"project_path,omitempty"`
	GeneratedAt    time.Time     `json:"generated_at"`
	Overall        float64       `json:"overall"`
	Grade          string        `json:"grade"`
	FirstCompleted bool          `json:"first_completed"`
	Prompts        int           `json:"prompts"`
	TotalLines     int           `json:"total_lines"`
	Report         *score.Report `json:"report,omitempty"`
}

// timeLayout has fixed-width fractions so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const evaluationColumns = "id, session_id, project_path, generated_at, overall, grade, first_completed, prompts, total_lines, report"

// InsertEvaluation stores a report. Reports are immutable, so inserting the
// same report ID twice is an error.
func (db *DB) InsertEvaluation(ctx context.Context, r *score.Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report %s: %w", r.ID, err)
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO evaluations (`+evaluationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, r.ProjectPath, r.GeneratedAt.UTC().Format(timeLayout),
		r.Overall, r.Grade(), r.Completion.FirstCompleted, r.Interactions.Count,
		r.Quality.TotalLines, string(payload),
	)
	if err != nil {
		return fmt.Errorf("inserting report %s: %w", r.ID, err)
	}
	return nil
}

// Observe stores the report; it lets the DB receive every evaluation.
func (db *DB) Observe(ctx context.Context, r *score.Report) error {
	return db.InsertEvaluation(ctx, r)
}

// ListEvaluations returns stored evaluations, newest first. A non-empty
// sessionID restricts the list to that session; limit <= 0 means no limit.
func (db *DB) ListEvaluations(ctx context.Context, limit int, sessionID string) ([]Evaluation, error) {
	query := `SELECT ` + evaluationColumns + ` FROM evaluations`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	// ULIDs sort by creation time, breaking ties within a timestamp.
	query += ` ORDER BY generated_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// GetEvaluation returns the evaluation with the given report ID, or nil if
// none exists.
func (db *DB) GetEvaluation(ctx context.Context, id string) (*Evaluation, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+evaluationColumns+` FROM evaluations WHERE id = ?`, id)
	e, err := scanEvaluation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// LatestForSession returns the most recent evaluation of a session, or nil.
func (db *DB) LatestForSession(ctx context.Context, sessionID string) (*Evaluation, error) {
	list, err := db.ListEvaluations(ctx, 1, sessionID)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvaluation(s scanner) (*Evaluation, error) {
	var (
		e           Evaluation
		generatedAt string
		payload     string
	)
	if err := s.Scan(&e.ID, &e.SessionID, &e.ProjectPath, &generatedAt, &e.Overall, &e.Grade,
		&e.FirstCompleted, &e.Prompts, &e.TotalLines, &payload); err != nil {
		return nil, err
	}
	e.GeneratedAt, _ = time.Parse(timeLayout, generatedAt)
	if payload != "" {
		var r score.Report
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decoding report %s: %w", e.ID, err)
		}
		e.Report = &r
	}
	return &e, nil
}
