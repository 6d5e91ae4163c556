package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/abhisek/skillpath/internal/question"
)

// QuestionRepo persists the question bank and serves it as a question.Catalog.
type QuestionRepo struct {
	db *sql.DB
}

var _ question.Catalog = (*QuestionRepo)(nil)

// Import upserts qs by id.
func (r *QuestionRepo) Import(ctx context.Context, qs []question.Question) error {
	return r.write(ctx, qs, false)
}

// Replace swaps the stored bank for qs in one transaction.
func (r *QuestionRepo) Replace(qs []question.Question) error {
	return r.write(context.Background(), qs, true)
}

func (r *QuestionRepo) write(ctx context.Context, qs []question.Question, truncate bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if truncate {
		if _, err := tx.ExecContext(ctx, `DELETE FROM questions`); err != nil {
			return fmt.Errorf("clear questions: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO questions (id, skill, prompt, options, answer)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			skill = excluded.skill, prompt = excluded.prompt,
			options = excluded.options, answer = excluded.answer`)
	if err != nil {
		return fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	for _, q := range qs {
		if q.Skill == "" {
			return fmt.Errorf("question %d has no skill", q.ID)
		}
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode options of question %d: %w", q.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, q.ID, q.Skill, q.Prompt, string(opts), q.CorrectAnswer); err != nil {
			return fmt.Errorf("save question %d: %w", q.ID, err)
		}
	}
	return tx.Commit()
}

// List returns stored questions ordered by id, optionally limited to skill.
func (r *QuestionRepo) List(ctx context.Context, skill string) ([]question.Question, error) {
	query := `SELECT id, skill, prompt, options, answer FROM questions`
	var args []any
	if skill != "" {
		query += ` WHERE skill = ?`
		args = append(args, skill)
	}
	return r.query(ctx, query+` ORDER BY id`, args...)
}

// Count returns the number of stored questions.
func (r *QuestionRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}

func (r *QuestionRepo) QuestionsFor(ctx context.Context, skill string, exclude question.Excluded) ([]question.Question, error) {
	all, err := r.List(ctx, skill)
	if err != nil {
		return nil, err
	}
	if exclude == nil {
		return all, nil
	}
	out := all[:0]
	for _, q := range all {
		if !exclude.Contains(q.ID) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *QuestionRepo) FindByID(ctx context.Context, id int) (question.Question, error) {
	qs, err := r.query(ctx, `SELECT id, skill, prompt, options, answer FROM questions WHERE id = ?`, id)
	if err != nil {
		return question.Question{}, err
	}
	if len(qs) == 0 {
		return question.Question{}, fmt.Errorf("id %d: %w", id, question.ErrNotFound)
	}
	return qs[0], nil
}

func (r *QuestionRepo) query(ctx context.Context, query string, args ...any) ([]question.Question, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []question.Question
	for rows.Next() {
		var (
			q    question.Question
			opts string
		)
		if err := rows.Scan(&q.ID, &q.Skill, &q.Prompt, &opts, &q.CorrectAnswer); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
			return nil, fmt.Errorf("decode options of question %d: %w", q.ID, err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
