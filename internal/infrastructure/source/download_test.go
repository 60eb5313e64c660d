package source_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cip-service/internal/domain"
	"cip-service/internal/infrastructure/httpx"
	"cip-service/internal/infrastructure/source"

	"github.com/stretchr/testify/require"
)

type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func serving(body []byte) *httpx.Client {
	return &httpx.Client{HTTP: &http.Client{Timeout: 2 * time.Second, Transport: rtFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewReader(body)), Header: make(http.Header), Request: r}, nil
	})}}
}

func TestDownloadWorkbook(t *testing.T) {
	book, err := os.ReadFile(writeBook(t, defaultBook()))
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "data_manual", "CIP_2025.xlsx")
	abs, err := source.DownloadWorkbook(context.Background(), serving(book), "http://example.com/CIP_2025.xlsx", target, nil)
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(abs))

	saved, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, book, saved)
}

func TestDownloadWorkbook_RejectsNonWorkbook(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out.xlsx")
	_, err := source.DownloadWorkbook(context.Background(), serving([]byte("<html>404</html>")), "http://example.com/x", target, nil)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "not a workbook"))
	_, statErr := os.Stat(target)
	require.True(t, os.IsNotExist(statErr))
}

func TestDownloadWorkbook_RejectsIncompleteWorkbook(t *testing.T) {
	b := defaultBook()
	b.skipOIS = true
	book, err := os.ReadFile(writeBook(t, b))
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "out.xlsx")
	_, err = source.DownloadWorkbook(context.Background(), serving(book), "http://example.com/x", target, nil)
	require.ErrorIs(t, err, domain.ErrDataUnavailable)
	_, statErr := os.Stat(target)
	require.True(t, os.IsNotExist(statErr))
}
