package memstore_test

import (
	"context"
	"math"
	"testing"
	"time"

	"cip-service/internal/application"
	"cip-service/internal/domain"
	"cip-service/internal/infrastructure/memstore"

	"github.com/stretchr/testify/require"
)

func TestRunRepo_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewRunRepo()
	key := "k1"

	id, err := repo.CreateQueued(ctx, domain.SourceTerminal, domain.DateRange{}, &key)
	require.NoError(t, err)
	_, err = repo.CreateQueued(ctx, domain.SourceTerminal, domain.DateRange{}, &key)
	require.ErrorIs(t, err, application.ErrConflict)

	claimed, err := repo.ClaimQueued(ctx, 5)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.Equal(t, id, claimed[0].ID)
	require.Equal(t, domain.RunStatusProcessing, claimed[0].Status)

	claimed, err = repo.ClaimQueued(ctx, 5)
	require.NoError(t, err)
	require.Empty(t, claimed)

	require.NoError(t, repo.Complete(ctx, id, 10, 1))
	run, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.RunStatusDone, run.Status)
	require.Equal(t, 10, run.Rows)

	require.ErrorIs(t, repo.UpdateStatus(ctx, "missing", domain.RunStatusFailed, nil), application.ErrNotFound)
}

func TestDeviationRepo_ReplaceOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewDeviationRepo()
	d0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d1 := d0.AddDate(0, 0, 1)

	write := func(dates []time.Time, v float64) {
		tbl, err := domain.NewTable(dates)
		require.NoError(t, err)
		vals := make([]float64, len(dates))
		for i := range vals {
			vals[i] = v
		}
		require.NoError(t, tbl.Set(domain.CHF.DeviationColumn(), vals))
		require.NoError(t, repo.Replace(ctx, "run", tbl))
	}
	write([]time.Time{d0, d1}, 1)
	write([]time.Time{d1}, 2)

	got, err := repo.Range(ctx, domain.DateRange{})
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	chf, _ := got.Column(domain.CHF.DeviationColumn())
	require.Equal(t, []float64{1, 2}, chf)
	sek, _ := got.Column(domain.SEK.DeviationColumn())
	require.True(t, math.IsNaN(sek[0]))
}
