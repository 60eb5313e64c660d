package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cip-service/internal/application"
	"cip-service/internal/cip"
	"cip-service/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Server struct {
	svc      *application.CIPService
	ping     func(ctx context.Context) error
	metrics  http.Handler
	validate *validator.Validate
}

func NewServer(svc *application.CIPService) *Server {
	return &Server{svc: svc, validate: validator.New()}
}

// SetReadyCheck installs the dependency probe behind /readyz.
func (s *Server) SetReadyCheck(fn func(ctx context.Context) error) { s.ping = fn }

// SetMetrics mounts h on /metrics.
func (s *Server) SetMetrics(h http.Handler) { s.metrics = h }

type runRequest struct {
	Start string `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End   string `json:"end" validate:"omitempty,datetime=2006-01-02"`
}

type runResponse struct {
	RunID string `json:"run_id"`
}

type runDetails struct {
	RunID     string    `json:"run_id"`
	Source    string    `json:"source"`
	Start     string    `json:"start,omitempty"`
	End       string    `json:"end,omitempty"`
	Status    string    `json:"status"`
	Error     *string   `json:"error,omitempty"`
	Rows      int       `json:"rows"`
	Flagged   int       `json:"flagged"`
	UpdatedAt time.Time `json:"updated_at"`
}

type deviationRow struct {
	Date   string                   `json:"date"`
	Values map[string]domain.Number `json:"values"`
}

type deviationsResponse struct {
	Columns []string       `json:"columns"`
	Rows    []deviationRow `json:"rows"`
}

type statisticsResponse struct {
	Statistics *cip.Statistics `json:"statistics"`
	Insights   cip.Insights    `json:"insights"`
}

func (s *Server) RequestRun(w http.ResponseWriter, r *http.Request) {
	var body runRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(body); err != nil {
		badRequest(w, "start and end must be YYYY-MM-DD")
		return
	}
	rng, err := domain.ParseDateRange(body.Start, body.End)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var idem *string
	if k := r.Header.Get("X-Idempotency-Key"); k != "" {
		idem = &k
	}
	id, err := s.svc.RequestRun(r.Context(), rng, idem)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, runResponse{RunID: id})
}

func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.svc.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := runDetails{
		RunID:     run.ID,
		Source:    string(run.Source),
		Status:    string(run.Status),
		Error:     run.Error,
		Rows:      run.Rows,
		Flagged:   run.Flagged,
		UpdatedAt: run.UpdatedAt,
	}
	if !run.Range.Start.IsZero() {
		resp.Start = run.Range.Start.Format(domain.DateLayout)
	}
	if !run.Range.End.IsZero() {
		resp.End = run.Range.End.Format(domain.DateLayout)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) GetDeviations(w http.ResponseWriter, r *http.Request) {
	rng, ok := queryRange(w, r)
	if !ok {
		return
	}
	dev, err := s.svc.Deviations(r.Context(), rng)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := deviationsResponse{Columns: dev.Columns(), Rows: make([]deviationRow, dev.Len())}
	for i := range resp.Rows {
		row := deviationRow{Date: dev.Date(i).Format(domain.DateLayout), Values: make(map[string]domain.Number, len(resp.Columns))}
		for _, c := range resp.Columns {
			vals, _ := dev.Column(c)
			row.Values[c] = domain.Number(vals[i])
		}
		resp.Rows[i] = row
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) GetStatistics(w http.ResponseWriter, r *http.Request) {
	rng, ok := queryRange(w, r)
	if !ok {
		return
	}
	st, err := s.svc.Statistics(r.Context(), rng)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statisticsResponse{Statistics: st, Insights: st.Insights()})
}

func queryRange(w http.ResponseWriter, r *http.Request) (domain.DateRange, bool) {
	rng, err := domain.ParseDateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		badRequest(w, fmt.Sprintf("invalid range: %v", err))
		return domain.DateRange{}, false
	}
	return rng, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrNotFound):
		writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	case errors.Is(err, application.ErrConflict):
		writeError(w, http.StatusConflict, "duplicate idempotency key")
	case errors.Is(err, application.ErrBadRequest):
		badRequest(w, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

type errorEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorEnvelope{Code: status, Message: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg)
}
