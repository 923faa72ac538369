package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"examen/internal/cache"
	"examen/internal/gateway"
)

var resetRemote bool

// resetCmd clears the locally cached session. With --remote it also tells
// the backend to discard today's saved answers and start a fresh exam.
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the cached session (and optionally the backend's)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cache.Open(cfg.Cache.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open session cache: %w", err)
		}
		defer c.Close()
		if err := c.Clear(); err != nil {
			return err
		}
		logger.Info("local session cache cleared", zap.String("path", cfg.Cache.DatabasePath))
		fmt.Println("Local session cleared.")

		if !resetRemote {
			return nil
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		gw := gateway.NewHTTPClient(cfg.Gateway.BaseURL, cfg.GatewayTimeout())
		if err := gw.StartNew(ctx); err != nil {
			return fmt.Errorf("failed to reset backend exam: %w", err)
		}
		fmt.Println("Backend exam reset.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetRemote, "remote", false, "also start a new exam on the backend")
}
