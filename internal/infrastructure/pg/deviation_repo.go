package pg

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"cip-service/internal/application"
	"cip-service/internal/domain"
	"cip-service/internal/infrastructure/logx"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type DeviationRepo struct{ db *DB }

func NewDeviationRepo(db *DB) *DeviationRepo { return &DeviationRepo{db: db} }

var _ application.DeviationRepo = (*DeviationRepo)(nil)

// Replace upserts every cell of dev; NaN is stored as NULL.
func (r *DeviationRepo) Replace(ctx context.Context, runID string, dev *domain.Table) error {
	const up = `
        INSERT INTO cip_deviations(obs_date, currency, bps, run_id)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (obs_date, currency) DO UPDATE
          SET bps=EXCLUDED.bps, run_id=EXCLUDED.run_id`
	log := logx.L().With(
		zap.String("repo", "deviation"),
		zap.String("operation", "Replace"),
		zap.String("run_id", runID),
		zap.Int("rows", dev.Len()),
	)
	b := &pgx.Batch{}
	for _, c := range domain.Currencies {
		vals, ok := dev.Column(c.DeviationColumn())
		if !ok {
			continue
		}
		for i, v := range vals {
			v := v
			var bps *float64
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				bps = &v
			}
			b.Queue(up, dev.Date(i), string(c), bps, runID)
		}
	}
	log.Info("sql.batch_start", zap.Int("statements", b.Len()))
	res := r.db.conn(ctx).SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		if _, err := res.Exec(); err != nil {
			_ = res.Close()
			log.Error("sql.batch_failed", zap.Int("statement", i), zap.Error(err))
			return fmt.Errorf("store deviations: %w", err)
		}
	}
	if err := res.Close(); err != nil {
		return err
	}
	log.Info("sql.batch_success")
	return nil
}

// Range returns the stored deviations inside rng as a table with the eight deviation
// columns; cells without a stored value are NaN.
func (r *DeviationRepo) Range(ctx context.Context, rng domain.DateRange) (*domain.Table, error) {
	const q = `
        SELECT obs_date, currency, bps
        FROM cip_deviations
        WHERE ($1::date IS NULL OR obs_date >= $1)
          AND ($2::date IS NULL OR obs_date <= $2)
        ORDER BY obs_date, currency`
	rows, err := r.db.conn(ctx).Query(ctx, q, dateArg(rng.Start), dateArg(rng.End))
	if err != nil {
		logx.L().Error("sql.query_failed", zap.String("repo", "deviation"), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var points []domain.DeviationPoint
	for rows.Next() {
		var p domain.DeviationPoint
		var ccy string
		if err := rows.Scan(&p.Date, &ccy, &p.BPS); err != nil {
			return nil, err
		}
		p.Currency = domain.Currency(ccy)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return PointsToTable(points)
}

// PointsToTable pivots deviation points into a deviation table.
func PointsToTable(points []domain.DeviationPoint) (*domain.Table, error) {
	pos := map[time.Time]int{}
	var dates []time.Time
	for _, p := range points {
		d := domain.TruncateDay(p.Date)
		if _, ok := pos[d]; !ok {
			pos[d] = 0
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	for i, d := range dates {
		pos[d] = i
	}
	cols := make(map[domain.Currency][]float64, len(domain.Currencies))
	for _, c := range domain.Currencies {
		v := make([]float64, len(dates))
		for i := range v {
			v[i] = math.NaN()
		}
		cols[c] = v
	}
	for _, p := range points {
		col, ok := cols[p.Currency]
		if !ok || p.BPS == nil {
			continue
		}
		col[pos[domain.TruncateDay(p.Date)]] = *p.BPS
	}
	t, err := domain.NewTable(dates)
	if err != nil {
		return nil, err
	}
	for _, c := range domain.Currencies {
		if err := t.Set(c.DeviationColumn(), cols[c]); err != nil {
			return nil, err
		}
	}
	return t, nil
}
