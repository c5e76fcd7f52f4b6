package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"pdfinsight/internal/pipeline"
)

// PostgresRepo is the durable Store used when ENABLE_POSTGRES is set.
// Results are stored as JSONB; transitions are validated inside a
// transaction so concurrent writers cannot skip a state.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Create(ctx context.Context, j *Job) error {
	query := `INSERT INTO jobs (id, status, error, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, j.ID, string(j.Status), j.Error, j.CreatedAt)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Job, error) {
	j := &Job{}
	var status string
	var result []byte
	query := `SELECT id, status, error, result, created_at FROM jobs WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&j.ID, &status, &j.Error, &result, &j.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	j.Status = Status(status)
	if len(result) > 0 {
		var res pipeline.Result
		if err := json.Unmarshal(result, &res); err != nil {
			return nil, fmt.Errorf("decoding stored result: %w", err)
		}
		j.Result = &res
	}
	return j, nil
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, id string, status Status) error {
	return r.transition(ctx, id, status, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE jobs SET status = $2 WHERE id = $1`, id, string(status))
		return err
	})
}

func (r *PostgresRepo) Complete(ctx context.Context, id string, result *pipeline.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return r.transition(ctx, id, StatusCompleted, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE jobs SET status = $2, result = $3 WHERE id = $1`,
			id, string(StatusCompleted), payload)
		return err
	})
}

func (r *PostgresRepo) Fail(ctx context.Context, id, reason string) error {
	return r.transition(ctx, id, StatusFailed, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE jobs SET status = $2, error = $3, result = NULL WHERE id = $1`,
			id, string(StatusFailed), reason)
		return err
	})
}

func (r *PostgresRepo) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}

// transition loads the current status under a row lock, validates the state
// machine, and applies the update within the same transaction.
func (r *PostgresRepo) transition(ctx context.Context, id string, to Status, apply func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if !CanTransition(Status(current), to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, to)
	}

	if err := apply(tx); err != nil {
		return err
	}
	return tx.Commit()
}
