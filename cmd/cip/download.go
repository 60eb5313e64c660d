package main

import (
	"context"
	"fmt"
	"net/http"

	infraconfig "cip-service/internal/infrastructure/config"
	"cip-service/internal/infrastructure/httpx"
	"cip-service/internal/infrastructure/logx"
	"cip-service/internal/infrastructure/source"

	"github.com/spf13/cobra"
)

func newDownloadCmd() *cobra.Command {
	var url, path string
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the quote workbook to WORKBOOK_PATH",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = cfg.WorkbookURL
			}
			if path == "" {
				path = cfg.WorkbookPath
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), infraconfig.DefaultDownloadTimeout)
			defer cancel()

			client := &httpx.Client{HTTP: &http.Client{Timeout: infraconfig.DefaultDownloadTimeout}}
			abs, err := source.DownloadWorkbook(ctx, client, url, path, logx.L())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), abs)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "workbook URL (default WORKBOOK_URL)")
	cmd.Flags().StringVar(&path, "path", "", "destination path (default WORKBOOK_PATH)")
	return cmd
}
