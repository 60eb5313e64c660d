package httpserver

import (
	"context"
	"net/http"
	"time"

	"cip-service/internal/infrastructure/logx"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	headerRequestID = "X-Request-ID"
	headerTraceID   = "X-Trace-Id"
)

type ctxKey struct{}

// reqMeta carries the correlation ids of one request.
type reqMeta struct {
	requestID string
	traceID   string
}

func metaFrom(ctx context.Context) reqMeta {
	m, _ := ctx.Value(ctxKey{}).(reqMeta)
	return m
}

func headerOrNew(r *http.Request, name string) string {
	if v := r.Header.Get(name); v != "" {
		return v
	}
	return uuid.NewString()
}

// correlate echoes or mints the request and trace ids.
func correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := reqMeta{
			requestID: headerOrNew(r, headerRequestID),
			traceID:   headerOrNew(r, headerTraceID),
		}
		w.Header().Set(headerRequestID, m.requestID)
		w.Header().Set(headerTraceID, m.traceID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, m)))
	})
}

func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logx.L().Error("http.panic_recovered",
					zap.Any("error", rec),
					zap.String("request_id", metaFrom(r.Context()).requestID))
				writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(sr, r)
		m := metaFrom(r.Context())
		logx.L().Info("http.request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sr.status),
			zap.Int("bytes", sr.bytes),
			zap.String("request_id", m.requestID),
			zap.String("trace_id", m.traceID),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
