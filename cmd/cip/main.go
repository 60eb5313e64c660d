// Command cip runs the CIP deviation pipeline once from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cip-service/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Set via -ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

var cfg config.Config

func init() { _ = godotenv.Load() }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cip",
		Short:         "Covered interest parity deviations for the G10 currencies against USD",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = config.Load()
		},
	}
	root.AddCommand(newRunCmd(), newDownloadCmd(), versionCmd)
	return root
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cip %s (%s)\n", version, commit)
	},
}
