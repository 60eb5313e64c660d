package pg

import (
	"context"
	"errors"
	"time"

	"cip-service/internal/application"
	"cip-service/internal/domain"
	"cip-service/internal/infrastructure/logx"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type RunRepo struct{ db *DB }

func NewRunRepo(db *DB) *RunRepo { return &RunRepo{db: db} }

var _ application.RunRepo = (*RunRepo)(nil)

const runColumns = `id::text, source, range_start, range_end, status, error, row_count, flagged_count, requested_at, updated_at`

func dateArg(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (r *RunRepo) CreateQueued(ctx context.Context, src domain.SourceKind, rng domain.DateRange, idem *string) (string, error) {
	id := uuid.NewString()
	const ins = `
        INSERT INTO cip_runs(id, source, range_start, range_end, status, idempotency_key)
        VALUES ($1, $2, $3, $4, 'queued', $5)`
	log := logx.L().With(
		zap.String("repo", "run"),
		zap.String("operation", "CreateQueued"),
		zap.String("sql", ins),
		zap.String("id", id),
		zap.String("range", rng.String()),
	)
	log.Info("sql.exec_start")
	tag, err := r.db.conn(ctx).Exec(ctx, ins, id, string(src), dateArg(rng.Start), dateArg(rng.End), idem)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			log.Warn("sql.exec_conflict")
			return "", application.ErrConflict
		}
		log.Error("sql.exec_failed", zap.Error(err))
		return "", err
	}
	log.Info("sql.exec_success", zap.Int64("rows_affected", tag.RowsAffected()))
	return id, nil
}

func scanRun(row pgx.Row) (domain.Run, error) {
	var out domain.Run
	var src, status string
	var start, end *time.Time
	if err := row.Scan(&out.ID, &src, &start, &end, &status, &out.Error, &out.Rows, &out.Flagged, &out.RequestedAt, &out.UpdatedAt); err != nil {
		return domain.Run{}, err
	}
	out.Source = domain.SourceKind(src)
	if start != nil {
		out.Range.Start = domain.TruncateDay(*start)
	}
	if end != nil {
		out.Range.End = domain.TruncateDay(*end)
	}
	switch status {
	case "queued":
		out.Status = domain.RunStatusQueued
	case "processing":
		out.Status = domain.RunStatusProcessing
	case "done":
		out.Status = domain.RunStatusDone
	default:
		out.Status = domain.RunStatusFailed
	}
	return out, nil
}

func (r *RunRepo) GetByID(ctx context.Context, id string) (domain.Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Run{}, application.ErrNotFound
	}
	q := `SELECT ` + runColumns + ` FROM cip_runs WHERE id=$1`
	log := logx.L().With(
		zap.String("repo", "run"),
		zap.String("operation", "GetByID"),
		zap.String("id", id),
	)
	log.Info("sql.query_start")
	out, err := scanRun(r.db.conn(ctx).QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		log.Info("sql.query_no_rows")
		return domain.Run{}, application.ErrNotFound
	}
	if err != nil {
		log.Error("sql.query_failed", zap.Error(err))
		return domain.Run{}, err
	}
	log.Info("sql.query_success", zap.String("status", string(out.Status)))
	return out, nil
}

func (r *RunRepo) UpdateStatus(ctx context.Context, id string, st domain.RunStatus, errMsg *string) error {
	const up = `
        UPDATE cip_runs
        SET status=$2, error=$3, updated_at=NOW()
        WHERE id=$1`
	log := logx.L().With(
		zap.String("repo", "run"),
		zap.String("operation", "UpdateStatus"),
		zap.String("id", id),
		zap.String("status", string(st)),
	)
	if errMsg != nil {
		log = log.With(zap.String("error", *errMsg))
	}
	log.Info("sql.exec_start")
	tag, err := r.db.conn(ctx).Exec(ctx, up, id, string(st), errMsg)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		log.Warn("sql.exec_no_rows")
		return application.ErrNotFound
	}
	log.Info("sql.exec_success", zap.Int64("rows_affected", tag.RowsAffected()))
	return nil
}

func (r *RunRepo) Complete(ctx context.Context, id string, rows, flagged int) error {
	const up = `
        UPDATE cip_runs
        SET status='done', error=NULL, row_count=$2, flagged_count=$3, updated_at=NOW()
        WHERE id=$1`
	log := logx.L().With(
		zap.String("repo", "run"),
		zap.String("operation", "Complete"),
		zap.String("id", id),
		zap.Int("rows", rows),
		zap.Int("flagged", flagged),
	)
	tag, err := r.db.conn(ctx).Exec(ctx, up, id, rows, flagged)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		log.Warn("sql.exec_no_rows")
		return application.ErrNotFound
	}
	log.Info("sql.exec_success")
	return nil
}

// ClaimQueued moves up to limit queued runs to processing, oldest first. Concurrent
// workers never claim the same run.
func (r *RunRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.Run, error) {
	q := `
      WITH cte AS (
        SELECT id
        FROM cip_runs
        WHERE status = 'queued'
        ORDER BY requested_at
        LIMIT $1
        FOR UPDATE SKIP LOCKED
      )
      UPDATE cip_runs c
      SET status = 'processing', updated_at = NOW()
      FROM cte
      WHERE c.id = cte.id
      RETURNING c.id::text, c.source, c.range_start, c.range_end, c.status, c.error,
                c.row_count, c.flagged_count, c.requested_at, c.updated_at`
	rows, err := r.db.conn(ctx).Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
