package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cip-service/internal/cip"
	"cip-service/internal/domain"

	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, p *Pipeline) string {
	t.Helper()
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestPipeline_RunCounters(t *testing.T) {
	p := New()
	p.RunFinished(domain.RunStatusDone, 2*time.Second)
	p.RunFinished(domain.RunStatusFailed, time.Second)
	p.RunFinished(domain.RunStatusDone, time.Second)

	body := scrape(t, p)
	require.Contains(t, body, `cip_runs_total{status="done"} 2`)
	require.Contains(t, body, `cip_runs_total{status="failed"} 1`)
	require.Contains(t, body, `cip_run_duration_seconds_count 3`)
}

func TestPipeline_Filtered(t *testing.T) {
	p := New()
	p.Filtered(cip.FilterReport{"CIP_AUD_ln": 3, "CIP_JPY_ln": 1, "other": 5})

	body := scrape(t, p)
	require.Contains(t, body, `cip_outliers_flagged_total{currency="AUD"} 3`)
	require.Contains(t, body, `cip_outliers_flagged_total{currency="JPY"} 1`)
	require.NotContains(t, body, `currency="other"`)
}
