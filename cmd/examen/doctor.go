package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"examen/internal/cache"
	"examen/internal/gateway"
)

// doctorCmd verifies that the front end can run: the backend must pass its
// self-check and the local session cache must be openable. Both checks run
// concurrently.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check backend and local cache health",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		gw := gateway.NewHTTPClient(cfg.Gateway.BaseURL, cfg.GatewayTimeout())

		var report gateway.HealthReport
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			report, err = gw.Health(gctx)
			if err != nil {
				return fmt.Errorf("backend unreachable at %s: %w", cfg.Gateway.BaseURL, err)
			}
			return nil
		})
		g.Go(func() error {
			c, err := cache.Open(cfg.Cache.DatabasePath)
			if err != nil {
				return fmt.Errorf("session cache unusable at %s: %w", cfg.Cache.DatabasePath, err)
			}
			return c.Close()
		})

		if err := g.Wait(); err != nil {
			logger.Error("health check failed", zap.Error(err))
			return err
		}

		if report.Status != "ok" {
			fmt.Printf("Backend reports %q:\n", report.Status)
			for _, e := range report.Errors {
				fmt.Printf("  - %s\n", e)
			}
			return fmt.Errorf("backend is not healthy")
		}

		logger.Info("health check passed",
			zap.String("backend", cfg.Gateway.BaseURL),
			zap.String("cache", cfg.Cache.DatabasePath))
		fmt.Println("Backend: ok")
		fmt.Println("Session cache: ok")
		return nil
	},
}
