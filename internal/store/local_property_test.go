package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"tradelog/internal/models"
)

// Property: for any analysis, saving it and then deleting it by ID
// leaves the saved-analyses list exactly as it was before the save.
func TestProperty_AnalysisSaveDeleteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s, err := OpenLocalStore(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenLocalStore: %v", err)
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	instrumentGen := gen.OneConstOf("EUR/USD", "GBP/USD", "USD/JPY", "XAU/USD", "NAS100")
	tradeTypeGen := gen.OneConstOf("Buy", "Sell")

	counter := 0
	properties.Property("save then delete restores prior state", prop.ForAll(
		func(instrument, tradeType string) bool {
			counter++
			before := len(s.Analyses())

			analysis := models.Analysis{
				ID:              fmt.Sprintf("a-%d", counter),
				Instrument:      instrument,
				TradeType:       tradeType,
				FundamentalBias: "neutral",
				TechnicalBias:   "neutral",
				MarketContext:   "rangebound",
				Plan:            "wait",
				EntryZone:       "1.0000 - 1.0100",
				StopLoss:        "0.9900",
				TakeProfit:      "1.0300",
				RiskWarning:     "test",
				CreatedAt:       time.Now().UTC(),
			}

			if err := s.SaveAnalysis(analysis); err != nil {
				t.Logf("SaveAnalysis: %v", err)
				return false
			}
			if len(s.Analyses()) != before+1 {
				t.Logf("save did not grow the list")
				return false
			}
			if err := s.DeleteAnalysis(analysis.ID); err != nil {
				t.Logf("DeleteAnalysis: %v", err)
				return false
			}
			return len(s.Analyses()) == before
		},
		instrumentGen,
		tradeTypeGen,
	))

	properties.TestingRun(t)
}
