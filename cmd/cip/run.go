package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cip-service/internal/application"
	"cip-service/internal/bootstrap"
	"cip-service/internal/cip"
	"cip-service/internal/domain"
	"cip-service/internal/infrastructure/export"
	"cip-service/internal/infrastructure/logx"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	quotesFile     = "quotes.csv"
	spotFile       = "quotes_spot.csv"
	forwardFile    = "quotes_forward.csv"
	ratesFile      = "quotes_rates.csv"
	deviationsFile = "cip_deviations.csv"
	cleanFile      = "cip_deviations_clean.csv"
	statsFile      = "cip_statistics.xlsx"
)

type runFlags struct {
	start, end string
	source     string
	outDir     string
	noWrite    bool
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch quotes, compute and clean deviations, and write the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.start != "" {
				cfg.StartDate = f.start
			}
			if f.end != "" {
				cfg.EndDate = f.end
			}
			if f.source != "" {
				cfg.Source = f.source
			}
			if f.outDir != "" {
				cfg.OutputDir = f.outDir
			}
			rng, err := domain.ParseDateRange(cfg.StartDate, cfg.EndDate)
			if err != nil {
				return err
			}

			svc, cleanup, err := bootstrap.InitPipeline(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := svc.Compute(cmd.Context(), rng)
			if err != nil {
				return err
			}
			st, err := cip.Aggregate(res.Clean)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), rng, res, st)
			if f.noWrite {
				return nil
			}
			return writeOutputs(cfg.OutputDir, res, st)
		},
	}
	cmd.Flags().StringVar(&f.start, "start", "", "first date, YYYY-MM-DD (default START_DATE)")
	cmd.Flags().StringVar(&f.end, "end", "", "last date, YYYY-MM-DD (default END_DATE)")
	cmd.Flags().StringVar(&f.source, "source", "", "spreadsheet or terminal (default SOURCE)")
	cmd.Flags().StringVar(&f.outDir, "out", "", "output directory (default OUTPUT_DIR)")
	cmd.Flags().BoolVar(&f.noWrite, "no-write", false, "print the summary only")
	return cmd
}

func printSummary(w io.Writer, rng domain.DateRange, res *application.Result, st *cip.Statistics) {
	fmt.Fprintf(w, "range      %s\n", rng)
	fmt.Fprintf(w, "dates      %d\n", res.Deviations.Len())
	fmt.Fprintf(w, "flagged    %d\n\n", res.Report.Total())

	fmt.Fprintf(w, "%-6s %6s %8s %8s %10s %10s %10s %10s\n", "ccy", "raw", "flagged", "count", "mean", "std", "min", "max")
	for _, col := range st.Columns {
		s := st.Overall[col]
		c, _ := domain.CurrencyOfDeviation(col)
		fmt.Fprintf(w, "%-6s %6d %8d %8d %10.2f %10.2f %10.2f %10.2f\n",
			c, res.Deviations.CountValid(col), res.Report[col], s.Count,
			s.Mean.Float(), s.Std.Float(), s.Min.Float(), s.Max.Float())
	}

	in := st.Insights()
	if in.MostPositive != "" {
		fmt.Fprintf(w, "\nlargest positive mean deviation: %s (%.2f bps)\n", in.MostPositive, in.MostPositiveMean.Float())
		fmt.Fprintf(w, "largest negative mean deviation: %s (%.2f bps)\n", in.MostNegative, in.MostNegativeMean.Float())
	}
}

func writeOutputs(dir string, res *application.Result, st *cip.Statistics) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	spot, fwd, rates, err := cip.Pieces(res.Quotes)
	if err != nil {
		return err
	}
	tables := []struct {
		name string
		t    *domain.Table
	}{
		{quotesFile, res.Quotes},
		{spotFile, spot},
		{forwardFile, fwd},
		{ratesFile, rates},
		{deviationsFile, res.Deviations},
		{cleanFile, res.Clean},
	}
	for _, tb := range tables {
		if err := export.WriteTableCSVFile(filepath.Join(dir, tb.name), tb.t); err != nil {
			return err
		}
	}
	if err := export.WriteStatisticsWorkbook(filepath.Join(dir, statsFile), st); err != nil {
		return err
	}
	logx.L().Info("outputs.written", zap.String("dir", dir))
	return nil
}
