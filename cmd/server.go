/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/historyguide/apiserver/config"
	"github.com/historyguide/apiserver/internal/logging"
	"github.com/historyguide/apiserver/internal/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the History Guide backend server",
	Long: `Starts the History Guide backend server. Usage:

	historyguide server
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()
		logger := logging.New(os.Stdout, cfg.LogLevel)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv, err := server.New(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to start server", "error", err)
			os.Exit(1)
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			if err != nil {
				logger.Error("server error", "error", err)
				os.Exit(1)
			}
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown failed", "error", err)
				os.Exit(1)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
