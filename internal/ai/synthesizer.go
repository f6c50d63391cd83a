// Package ai provides the trade-strategy analysis client, its
// deterministic local fallback, and the server-side provider clients.
package ai

import (
	"fmt"
	"strings"
	"time"

	"tradelog/internal/models"
	"tradelog/pkg/utils"
)

// DemoMarker is embedded in the risk warning of every synthesized
// analysis. It is a display concern; callers must not rely on it
// beyond string containment.
const DemoMarker = "[demo mode]"

// LiveMarker tags analyses that came back from the remote service.
const LiveMarker = "[live analysis]"

// Offset multipliers applied to the instrument's pip size.
const (
	entryZonePips   = 50  // half-width of the suggested entry zone
	stopLossPips    = 200 // distance below base price
	takeProfit1Pips = 300
	takeProfit2Pips = 500
)

// basePrices anchors synthetic levels per instrument.
var basePrices = map[string]float64{
	"EUR/USD": 1.0850,
	"GBP/USD": 1.2650,
	"USD/JPY": 149.50,
	"AUD/USD": 0.6550,
	"USD/CAD": 1.3550,
	"USD/CHF": 0.8850,
	"NZD/USD": 0.6050,
	"EUR/JPY": 161.50,
	"GBP/JPY": 189.00,
	"XAU/USD": 2350.00,
	"XAG/USD": 27.50,
	"US30":    39500,
	"NAS100":  18200,
	"SPX500":  5200,
}

// cannedText holds per-instrument bias/context copy for offline
// answers.
var cannedText = map[string]struct {
	fundamental string
	technical   string
	context     string
}{
	"EUR/USD": {
		fundamental: "Diverging rate paths between the ECB and the Fed keep the pair rangebound; watch eurozone CPI prints.",
		technical:   "Price is consolidating between well-tested horizontal levels with momentum flattening on the daily.",
		context:     "Liquidity is concentrated around the London/New York overlap; expect the cleanest moves there.",
	},
	"GBP/USD": {
		fundamental: "Sticky UK services inflation keeps the BoE cautious while US data stays firm.",
		technical:   "Higher lows on the daily suggest accumulation, but the pair remains below its prior swing high.",
		context:     "Cable tends to overshoot on UK data releases; size positions accordingly.",
	},
	"USD/JPY": {
		fundamental: "The policy gap between the Fed and the BoJ still favors the dollar, tempered by intervention risk at elevated levels.",
		technical:   "The uptrend is intact above the rising daily trendline; pullbacks have been shallow.",
		context:     "Verbal intervention from Japanese officials can cause sharp retracements without warning.",
	},
	"XAU/USD": {
		fundamental: "Central-bank buying and real-yield expectations continue to anchor gold demand.",
		technical:   "Gold holds above its breakout shelf; dips toward the prior range top keep getting bought.",
		context:     "Gold is sensitive to US yield moves around FOMC communication windows.",
	},
	"NAS100": {
		fundamental: "Index direction is dominated by mega-cap earnings and rate expectations.",
		technical:   "The index trades above its 20-day average with breadth narrowing, a trend-with-caution picture.",
		context:     "Expect outsized moves around US CPI and major tech earnings dates.",
	},
}

// Synthesizer produces deterministic substitute analyses from the
// static lookup tables plus the request parameters.
type Synthesizer struct {
	now func() time.Time
}

// NewSynthesizer creates a synthesizer using the real clock.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{now: time.Now}
}

// PipSize returns the conventional price increment for the
// instrument's class: JPY-quoted pairs 0.01, gold 0.1, silver 0.01,
// index futures 1, everything else 0.0001.
func PipSize(instrument string) float64 {
	up := strings.ToUpper(strings.TrimSpace(instrument))
	switch {
	case strings.Contains(up, "XAU"):
		return 0.1
	case strings.Contains(up, "XAG"):
		return 0.01
	case strings.HasSuffix(up, "JPY"):
		return 0.01
	}
	for _, idx := range []string{"US30", "NAS100", "SPX500", "GER40", "UK100"} {
		if up == idx {
			return 1
		}
	}
	return 0.0001
}

// BasePrice returns the anchor price for the instrument, or 1.0 when
// the instrument is not in the table.
func BasePrice(instrument string) float64 {
	if p, ok := basePrices[normalize(instrument)]; ok {
		return p
	}
	return 1.0
}

func normalize(instrument string) string {
	return strings.ToUpper(strings.TrimSpace(instrument))
}

// Synthesize builds the substitute analysis. Given the same
// instrument and trade type the numeric levels are identical on every
// call; only the embedded timestamp text varies.
func (s *Synthesizer) Synthesize(instrument, tradeType string) *models.Analysis {
	key := normalize(instrument)
	base := BasePrice(key)
	pip := PipSize(key)

	entryLow := base - entryZonePips*pip
	entryHigh := base + entryZonePips*pip
	stop := base - stopLossPips*pip
	target1 := base + takeProfit1Pips*pip
	target2 := base + takeProfit2Pips*pip

	text, known := cannedText[key]
	if !known {
		text.fundamental = fmt.Sprintf("No curated fundamental view for %s; treat the macro backdrop as neutral until confirmed.", instrument)
		text.technical = fmt.Sprintf("%s levels are derived from the default pricing model; validate against a live chart before acting.", instrument)
		text.context = fmt.Sprintf("Session liquidity for %s is unverified in offline mode.", instrument)
	}

	plan := fmt.Sprintf(
		"1. Wait for %s price to enter the %s - %s zone.\n"+
			"2. Confirm momentum in the %s direction on a lower timeframe.\n"+
			"3. Place the stop at %s.\n"+
			"4. Scale out at %s, leave a runner toward %s.",
		instrument,
		utils.FormatPrice(entryLow), utils.FormatPrice(entryHigh),
		strings.ToLower(tradeType),
		utils.FormatPrice(stop),
		utils.FormatPrice(target1), utils.FormatPrice(target2),
	)

	return &models.Analysis{
		Instrument:      instrument,
		TradeType:       tradeType,
		FundamentalBias: text.fundamental,
		TechnicalBias:   text.technical,
		MarketContext:   text.context,
		Plan:            plan,
		EntryZone:       fmt.Sprintf("%s - %s", utils.FormatPrice(entryLow), utils.FormatPrice(entryHigh)),
		StopLoss:        utils.FormatPrice(stop),
		TakeProfit:      utils.FormatPrice(target1),
		RiskWarning: fmt.Sprintf(
			"%s Synthesized locally at %s because the remote analysis service was unavailable. Levels are template-derived, not market data.",
			DemoMarker, s.now().UTC().Format(time.RFC3339),
		),
		CreatedAt: s.now().UTC(),
	}
}
