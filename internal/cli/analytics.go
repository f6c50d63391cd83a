package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tradelog/internal/analytics"
	apperrors "tradelog/internal/errors"
)

// addAnalyticsCommands adds the analytics command.
func addAnalyticsCommands(rootCmd *cobra.Command, app *App) {
	var windowName string

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Performance analytics",
		Long:  "Compute win rate, profit factor, and per-group breakdowns over the recorded trades.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Local == nil {
				return apperrors.NewStoreError("analytics", "trade", fmt.Errorf("local store unavailable"))
			}

			trades := app.Local.Trades()
			window := analytics.ParseWindow(windowName)
			snapshot := analytics.Compute(trades, window, time.Now().UTC())
			streaks := analytics.ComputeStreaks(trades)

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"window":    string(window),
					"analytics": snapshot,
					"streaks":   streaks,
				})
			}

			renderReport(output, string(window), snapshot, streaks)
			return nil
		},
	}

	cmd.Flags().StringVar(&windowName, "window", "all", "aggregation window (all, week, month)")
	rootCmd.AddCommand(cmd)
}
