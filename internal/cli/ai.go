package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tradelog/internal/ai"
	apperrors "tradelog/internal/errors"
	"tradelog/internal/models"
)

// addAICommands adds the AI analysis command group.
func addAICommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "ai",
		Short: "AI trade-strategy analysis",
		Long:  "Request strategy analyses from the backend, with an offline fallback, and manage saved analyses.",
	}

	cmd.AddCommand(newAIAnalyzeCmd(app))
	cmd.AddCommand(newAIListCmd(app))
	cmd.AddCommand(newAIDeleteCmd(app))

	rootCmd.AddCommand(cmd)
}

func newAIAnalyzeCmd(app *App) *cobra.Command {
	var (
		tradeType string
		save      bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <instrument>",
		Short: "Analyze an instrument",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			instrument := strings.TrimSpace(args[0])
			if instrument == "" {
				return apperrors.NewValidationError("instrument", instrument, "instrument is required")
			}

			analysis := app.Analyzer.Analyze(cmd.Context(), instrument, tradeType)

			if save {
				if app.Local == nil {
					return apperrors.NewStoreError("save", "analysis", fmt.Errorf("local store unavailable"))
				}
				if analysis.ID == "" {
					analysis.ID = uuid.NewString()
				}
				if err := app.Local.SaveAnalysis(*analysis); err != nil {
					return err
				}
			}

			if output.IsJSON() {
				return output.JSON(analysis)
			}

			renderAnalysis(output, analysis)
			if save {
				output.Println()
				output.Success("✓ Analysis saved (ID %s)", analysis.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tradeType, "type", "Buy", "trade type (Buy or Sell)")
	cmd.Flags().BoolVar(&save, "save", false, "save the analysis locally")
	return cmd
}

func renderAnalysis(output *Output, a *models.Analysis) {
	output.Bold("%s — %s", a.Instrument, a.TradeType)
	if strings.Contains(a.RiskWarning, ai.DemoMarker) {
		output.Warning("Offline analysis (demo mode)")
	}
	output.Println()

	output.Info("Fundamental bias")
	output.Printf("  %s\n", a.FundamentalBias)
	output.Info("Technical bias")
	output.Printf("  %s\n", a.TechnicalBias)
	output.Info("Market context")
	output.Printf("  %s\n", a.MarketContext)
	output.Println()

	output.Bold("Levels")
	output.Printf("  Entry zone:  %s\n", a.EntryZone)
	output.Printf("  Stop loss:   %s\n", output.Red(a.StopLoss))
	output.Printf("  Take profit: %s\n", output.Green(a.TakeProfit))
	output.Println()

	output.Bold("Plan")
	for _, line := range strings.Split(a.Plan, "\n") {
		output.Printf("  %s\n", line)
	}
	output.Println()
	output.Dim("%s", a.RiskWarning)
}

func newAIListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Local == nil {
				return apperrors.NewStoreError("list", "analysis", fmt.Errorf("local store unavailable"))
			}

			analyses := app.Local.Analyses()
			if output.IsJSON() {
				return output.JSON(analyses)
			}
			if len(analyses) == 0 {
				output.Info("No saved analyses. Use 'tradelog ai analyze --save' to keep one.")
				return nil
			}

			table := NewTable(output, "SAVED", "INSTRUMENT", "TYPE", "ENTRY ZONE", "ID")
			for _, a := range analyses {
				table.AddRow(
					a.CreatedAt.Format(time.RFC3339),
					a.Instrument,
					a.TradeType,
					a.EntryZone,
					a.ID,
				)
			}
			table.Render()
			return nil
		},
	}
}

func newAIDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <analysis-id>",
		Short: "Delete a saved analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Local == nil {
				return apperrors.NewStoreError("delete", "analysis", fmt.Errorf("local store unavailable"))
			}

			if err := app.Local.DeleteAnalysis(args[0]); err != nil {
				if apperrors.Is(err, apperrors.ErrAnalysisNotFound) {
					output.Error("No saved analysis with ID %s", args[0])
				}
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": args[0]})
			}
			output.Success("✓ Analysis deleted")
			return nil
		},
	}
}
