package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tradelog/internal/analytics"
	apperrors "tradelog/internal/errors"
	"tradelog/internal/logging"
	"tradelog/internal/models"
	"tradelog/pkg/utils"
)

// addJournalCommands adds the trade journal command group.
func addJournalCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Trade journal",
		Long:  "Record, list, summarize, and export journal trades.",
	}

	cmd.AddCommand(newJournalAddCmd(app))
	cmd.AddCommand(newJournalListCmd(app))
	cmd.AddCommand(newJournalDeleteCmd(app))
	cmd.AddCommand(newJournalReportCmd(app))
	cmd.AddCommand(newJournalExportCmd(app))
	cmd.AddCommand(newJournalNoteCmd(app))

	rootCmd.AddCommand(cmd)
}

func newJournalAddCmd(app *App) *cobra.Command {
	var (
		instrument string
		direction  string
		entryPrice float64
		exitPrice  float64
		pnl        float64
		strategy   string
		psychology string
		dateStr    string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a trade",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Local == nil {
				return apperrors.NewStoreError("add", "trade", fmt.Errorf("local store unavailable"))
			}

			if instrument == "" {
				return apperrors.NewValidationError("instrument", instrument, "instrument is required")
			}
			dir := models.Direction(direction)
			if dir != models.Buy && dir != models.Sell {
				return apperrors.NewValidationError("direction", direction, "must be Buy or Sell")
			}
			if entryPrice <= 0 {
				return apperrors.NewValidationError("entry", entryPrice, "entry price must be positive")
			}

			date := time.Now().UTC()
			if dateStr != "" {
				parsed, err := time.Parse("2006-01-02", dateStr)
				if err != nil {
					return apperrors.NewValidationError("date", dateStr, "expected YYYY-MM-DD")
				}
				date = parsed
			}

			trade := models.Trade{
				ID:         uuid.NewString(),
				Instrument: instrument,
				Direction:  dir,
				EntryPrice: entryPrice,
				Date:       date,
				Strategy:   strategy,
				Psychology: psychology,
				CreatedAt:  time.Now().UTC(),
			}
			if cmd.Flags().Changed("exit") {
				trade.ExitPrice = &exitPrice
			}
			if cmd.Flags().Changed("pnl") {
				trade.ProfitLoss = &pnl
			}

			if err := app.Local.AddTrade(trade); err != nil {
				return err
			}
			logging.LogTrade(app.Logger, trade.Instrument, string(trade.Direction), trade.PnL(), trade.Closed())

			if output.IsJSON() {
				return output.JSON(trade)
			}
			if trade.Closed() {
				output.Success("✓ Recorded %s %s, P&L %s", trade.Instrument, trade.Direction, output.FormatPnL(trade.PnL()))
			} else {
				output.Success("✓ Recorded open %s %s at %s", trade.Instrument, trade.Direction, utils.FormatPrice(trade.EntryPrice))
			}
			output.Dim("ID: %s", trade.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&instrument, "instrument", "", "instrument, e.g. EUR/USD")
	cmd.Flags().StringVar(&direction, "direction", "Buy", "trade direction (Buy or Sell)")
	cmd.Flags().Float64Var(&entryPrice, "entry", 0, "entry price")
	cmd.Flags().Float64Var(&exitPrice, "exit", 0, "exit price")
	cmd.Flags().Float64Var(&pnl, "pnl", 0, "realized P&L (omit for an open trade)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "strategy label")
	cmd.Flags().StringVar(&psychology, "psychology", "", "psychology note")
	cmd.Flags().StringVar(&dateStr, "date", "", "trade date (YYYY-MM-DD, default today)")
	cmd.MarkFlagRequired("instrument")
	cmd.MarkFlagRequired("entry")

	return cmd
}

func newJournalListCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Local == nil {
				return apperrors.NewStoreError("list", "trade", fmt.Errorf("local store unavailable"))
			}

			trades := app.Local.Trades()
			if limit > 0 && len(trades) > limit {
				trades = trades[:limit]
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}
			if len(trades) == 0 {
				output.Info("No trades recorded yet. Use 'tradelog journal add' to record one.")
				return nil
			}

			table := NewTable(output, "DATE", "INSTRUMENT", "DIR", "ENTRY", "P&L", "STRATEGY")
			for _, t := range trades {
				pnlCell := output.ColoredString(ColorDim, "open")
				if t.Closed() {
					pnlCell = output.FormatPnL(t.PnL())
				}
				table.AddRow(
					t.Date.Format("02-Jan-2006"),
					t.Instrument,
					string(t.Direction),
					utils.FormatPrice(t.EntryPrice),
					pnlCell,
					utils.Truncate(t.Strategy, 24),
				)
			}
			table.Render()
			output.Dim("%d trade(s)", len(trades))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of trades to show")
	return cmd
}

func newJournalDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <trade-id>",
		Short: "Delete a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Local == nil {
				return apperrors.NewStoreError("delete", "trade", fmt.Errorf("local store unavailable"))
			}

			if err := app.Local.DeleteTrade(args[0]); err != nil {
				if apperrors.Is(err, apperrors.ErrTradeNotFound) {
					output.Error("No trade with ID %s", args[0])
				}
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": args[0]})
			}
			output.Success("✓ Trade deleted")
			return nil
		},
	}
}

func newJournalReportCmd(app *App) *cobra.Command {
	var windowName string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Performance report",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Local == nil {
				return apperrors.NewStoreError("report", "trade", fmt.Errorf("local store unavailable"))
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
	return cmd
}

func renderReport(output *Output, window string, s analytics.Snapshot, streaks analytics.Streaks) {
	output.Bold("Performance (%s)", window)
	output.Printf("  Trades:        %d (%d wins / %d losses)\n", s.TotalTrades, s.WinCount, s.LossCount)
	output.Printf("  Win rate:      %s\n", utils.FormatRate(s.WinRate))
	if s.ProfitFactor >= analytics.ProfitFactorCap {
		output.Printf("  Profit factor: %s\n", output.Green("999+ (no losses)"))
	} else {
		output.Printf("  Profit factor: %.2f\n", s.ProfitFactor)
	}
	output.Printf("  Net P&L:       %s\n", output.FormatPnL(s.NetPnL))
	output.Printf("  Win streak:    %d (best %d)\n", streaks.Current, streaks.Best)

	renderGroups(output, "By instrument", s.ByInstrument)
	renderGroups(output, "By strategy", s.ByStrategy)
	renderGroups(output, "By psychology", s.ByPsychology)
}

func renderGroups(output *Output, title string, groups []analytics.GroupStat) {
	if len(groups) == 0 {
		return
	}
	output.Println()
	output.Bold(title)
	table := NewTable(output, "GROUP", "TRADES", "WINS", "NET P&L")
	for _, g := range groups {
		table.AddRow(
			utils.Truncate(g.Key, 24),
			fmt.Sprintf("%d", g.Trades),
			fmt.Sprintf("%d", g.Wins),
			output.FormatPnL(g.PnL),
		)
	}
	table.Render()
}

func newJournalNoteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Free-form journal notes",
	}

	var (
		tradeID string
		mood    string
		tags    []string
	)
	add := &cobra.Command{
		Use:   "add <text>",
		Short: "Write a journal note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Local == nil {
				return apperrors.NewStoreError("add", "journal entry", fmt.Errorf("local store unavailable"))
			}

			now := time.Now().UTC()
			entry := models.JournalEntry{
				ID:        uuid.NewString(),
				TradeID:   tradeID,
				Date:      now,
				Content:   strings.Join(args, " "),
				Tags:      tags,
				Mood:      mood,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := app.Local.SaveJournalEntry(entry); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(entry)
			}
			output.Success("✓ Note saved")
			output.Dim("ID: %s", entry.ID)
			return nil
		},
	}
	add.Flags().StringVar(&tradeID, "trade", "", "trade ID the note refers to")
	add.Flags().StringVar(&mood, "mood", "", "mood label, e.g. calm, anxious")
	add.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List journal notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Local == nil {
				return apperrors.NewStoreError("list", "journal entry", fmt.Errorf("local store unavailable"))
			}

			entries := app.Local.JournalEntries()
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}

			if output.IsJSON() {
				return output.JSON(entries)
			}
			if len(entries) == 0 {
				output.Info("No notes yet. Use 'tradelog journal note add' to write one.")
				return nil
			}
			for _, e := range entries {
				output.Bold("%s", e.Date.Format("02-Jan-2006 15:04"))
				if e.Mood != "" || len(e.Tags) > 0 {
					output.Dim("mood: %s  tags: %s", e.Mood, strings.Join(e.Tags, ", "))
				}
				output.Println(e.Content)
				output.Println()
			}
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 0, "maximum number of notes to show")

	cmd.AddCommand(add)
	cmd.AddCommand(list)
	return cmd
}

func newJournalExportCmd(app *App) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export trades to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Local == nil {
				return apperrors.NewStoreError("export", "trade", fmt.Errorf("local store unavailable"))
			}

			trades := app.Local.Trades()
			if len(trades) == 0 {
				output.Info("No trades to export.")
				return nil
			}

			if outPath == "" {
				outPath = fmt.Sprintf("trades-%s.csv", time.Now().Format("2006-01-02"))
			}

			f, err := os.Create(outPath)
			if err != nil {
				return apperrors.Wrap(err, "creating export file")
			}
			defer f.Close()

			if err := gocsv.MarshalFile(&trades, f); err != nil {
				return apperrors.Wrap(err, "writing CSV")
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"file": outPath, "count": len(trades)})
			}
			output.Success("✓ Exported %d trade(s) to %s", len(trades), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "output file (default trades-<date>.csv)")
	return cmd
}
