package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cip-service/internal/domain"
	"cip-service/internal/infrastructure/httpx"

	"go.uber.org/zap"
)

// DownloadWorkbook fetches the workbook at url and writes it to path, creating parent
// directories. The body must parse as a complete quote workbook before anything is written.
func DownloadWorkbook(ctx context.Context, client *httpx.Client, url, path string, log *zap.Logger) (string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if client == nil {
		client = &httpx.Client{}
	}
	body, err := client.Download(ctx, url, httpx.Zap(log))
	if err != nil {
		return "", fmt.Errorf("download workbook: %w", err)
	}
	q, err := ReadReader(bytes.NewReader(body), domain.DateRange{}, log)
	if err != nil {
		return "", fmt.Errorf("download workbook: not a workbook: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create target dir: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write workbook: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	log.Info("workbook.saved", zap.String("path", abs), zap.Int("bytes", len(body)), zap.Int("rows", q.Len()))
	return abs, nil
}
