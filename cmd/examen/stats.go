package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"examen/cmd/examen/ui"
	"examen/internal/gateway"
)

const maxBarWidth = 30

// statsCmd fetches the backend's aggregated progress statistics and renders
// the last week as a textual chart. All aggregation happens in the backend;
// this command only displays it.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show examination progress statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		gw := gateway.NewHTTPClient(cfg.Gateway.BaseURL, cfg.GatewayTimeout())
		report, err := gw.Progress(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch progress data: %w", err)
		}

		fmt.Print(renderProgress(report))
		return nil
	},
}

func renderProgress(report gateway.ProgressReport) string {
	var b strings.Builder

	b.WriteString("Last 7 days\n\n")
	maxCount := 1
	for _, d := range report.ChartData {
		if d.Sins > maxCount {
			maxCount = d.Sins
		}
		if d.Virtues > maxCount {
			maxCount = d.Virtues
		}
	}
	for _, d := range report.ChartData {
		sins := d.Sins * maxBarWidth / maxCount
		virtues := d.Virtues * maxBarWidth / maxCount
		b.WriteString(fmt.Sprintf("%-4s falls    %s %d\n", d.Day, ui.Bar(sins, ui.ChartSins), d.Sins))
		b.WriteString(fmt.Sprintf("     virtues  %s %d\n", ui.Bar(virtues, ui.ChartVirtues), d.Virtues))
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Total sessions:    %d\n", report.Summary.TotalSessions))
	b.WriteString(fmt.Sprintf("Consecutive days:  %d\n", report.Summary.ConsecutiveDays))
	b.WriteString(fmt.Sprintf("Daily improvement: %d%%\n", report.Summary.DailyImprovement))
	return b.String()
}
