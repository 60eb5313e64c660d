package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"cip-service/internal/domain"
)

// WriteTableCSV writes t with a leading Date column. Missing values are empty cells.
func WriteTableCSV(w io.Writer, t *domain.Table) error {
	cw := csv.NewWriter(w)
	cols := t.Columns()
	if err := cw.Write(append([]string{"Date"}, cols...)); err != nil {
		return err
	}
	series := make([][]float64, len(cols))
	for j, c := range cols {
		series[j], _ = t.Column(c)
	}
	rec := make([]string, len(cols)+1)
	for i := 0; i < t.Len(); i++ {
		rec[0] = t.Date(i).Format(domain.DateLayout)
		for j := range cols {
			rec[j+1] = formatFloat(series[j][i])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTableCSVFile writes t to path, creating parent directories.
func WriteTableCSVFile(path string, t *domain.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteTableCSV(f, t); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
