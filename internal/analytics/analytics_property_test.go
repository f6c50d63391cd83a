package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"tradelog/internal/models"
)

// Property: the snapshot never contains NaN/Inf, the profit factor is
// non-negative, and it equals the sentinel iff losses are zero while
// wins are positive.
func TestProperty_SnapshotInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	instruments := []string{"EUR/USD", "GBP/USD", "USD/JPY", "XAU/USD", "NAS100"}
	strategies := []string{"breakout", "reversal", "trend", "news"}

	pnlGen := gen.Float64Range(-500, 500)
	countGen := gen.IntRange(0, 40)

	properties.Property("profit factor sign and sentinel", prop.ForAll(
		func(count int, seedPnl float64) bool {
			now := time.Now()
			trades := make([]models.Trade, 0, count)
			for i := 0; i < count; i++ {
				// Deterministic spread of P&L values derived from the seed.
				p := seedPnl * float64(i%7-3)
				trades = append(trades, models.Trade{
					ID:         "t",
					Instrument: instruments[i%len(instruments)],
					Direction:  models.Buy,
					EntryPrice: 1,
					ProfitLoss: &p,
					Date:       now.Add(-time.Duration(i) * time.Hour),
					Strategy:   strategies[i%len(strategies)],
				})
			}

			snap := Compute(trades, WindowAll, now)

			for _, v := range []float64{snap.WinRate, snap.ProfitFactor, snap.TotalProfit, snap.TotalLoss} {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return false
				}
			}
			if snap.ProfitFactor < 0 {
				return false
			}

			atSentinel := snap.ProfitFactor == ProfitFactorCap
			shouldSentinel := snap.TotalLoss == 0 && snap.TotalProfit > 0
			// A genuine ratio can only collide with the sentinel when
			// losses are non-zero, which shouldSentinel excludes.
			if shouldSentinel != atSentinel && snap.TotalLoss == 0 {
				return false
			}
			if snap.TotalLoss == 0 && snap.TotalProfit == 0 && snap.ProfitFactor != 0 {
				return false
			}
			return true
		},
		countGen,
		pnlGen,
	))

	properties.Property("win rate bounded and counts consistent", prop.ForAll(
		func(count int, seedPnl float64) bool {
			now := time.Now()
			trades := make([]models.Trade, 0, count)
			for i := 0; i < count; i++ {
				p := seedPnl + float64(i*13%101) - 50
				trades = append(trades, models.Trade{
					ID:         "t",
					Instrument: instruments[i%len(instruments)],
					Direction:  models.Sell,
					EntryPrice: 1,
					ProfitLoss: &p,
					Date:       now,
					Strategy:   strategies[i%len(strategies)],
				})
			}

			snap := Compute(trades, WindowAll, now)

			if snap.WinRate < 0 || snap.WinRate > 100 {
				return false
			}
			if snap.WinCount+snap.LossCount > snap.TotalTrades {
				return false
			}

			groupTotal := 0
			for _, g := range snap.ByInstrument {
				groupTotal += g.Trades
			}
			return groupTotal == snap.TotalTrades
		},
		countGen,
		pnlGen,
	))

	properties.Property("snapshot is deterministic", prop.ForAll(
		func(count int, seedPnl float64) bool {
			now := time.Now()
			trades := make([]models.Trade, 0, count)
			for i := 0; i < count; i++ {
				p := seedPnl * float64(i%5-2)
				trades = append(trades, models.Trade{
					ID:         "t",
					Instrument: instruments[i%len(instruments)],
					Direction:  models.Buy,
					EntryPrice: 1,
					ProfitLoss: &p,
					Date:       now.Add(-time.Duration(i) * time.Minute),
					Strategy:   strategies[i%len(strategies)],
				})
			}

			a := Compute(trades, WindowWeek, now)
			b := Compute(trades, WindowWeek, now)

			if a.TotalTrades != b.TotalTrades || a.WinRate != b.WinRate || a.ProfitFactor != b.ProfitFactor {
				return false
			}
			if len(a.ByInstrument) != len(b.ByInstrument) {
				return false
			}
			for i := range a.ByInstrument {
				if a.ByInstrument[i] != b.ByInstrument[i] {
					return false
				}
			}
			return true
		},
		countGen,
		pnlGen,
	))

	properties.TestingRun(t)
}
