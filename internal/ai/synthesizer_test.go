package ai

import (
	"strings"
	"testing"
)

func TestSynthesizeEURUSDLevels(t *testing.T) {
	s := NewSynthesizer()
	a := s.Synthesize("EUR/USD", "Buy")

	if a.EntryZone != "1.0800 - 1.0900" {
		t.Errorf("EntryZone = %q, want %q", a.EntryZone, "1.0800 - 1.0900")
	}
	if a.StopLoss != "1.0650" {
		t.Errorf("StopLoss = %q, want %q", a.StopLoss, "1.0650")
	}
	if a.TakeProfit != "1.1150" {
		t.Errorf("TakeProfit = %q, want %q", a.TakeProfit, "1.1150")
	}
	if !strings.Contains(a.Plan, "1.1350") {
		t.Errorf("Plan should mention the second target 1.1350, got %q", a.Plan)
	}
	if !strings.Contains(a.RiskWarning, DemoMarker) {
		t.Errorf("RiskWarning missing provenance marker: %q", a.RiskWarning)
	}
}

func TestSynthesizeDeterministic(t *testing.T) {
	s := NewSynthesizer()
	a := s.Synthesize("GBP/USD", "Sell")
	b := s.Synthesize("GBP/USD", "Sell")

	if a.EntryZone != b.EntryZone || a.StopLoss != b.StopLoss || a.TakeProfit != b.TakeProfit {
		t.Errorf("levels differ across calls: %+v vs %+v", a, b)
	}
	if a.FundamentalBias != b.FundamentalBias || a.TechnicalBias != b.TechnicalBias {
		t.Errorf("bias text differs across calls")
	}
}

func TestSynthesizeUnknownInstrument(t *testing.T) {
	s := NewSynthesizer()
	a := s.Synthesize("FOO/BAR", "Buy")

	if !a.Complete() {
		t.Fatalf("synthesized analysis incomplete: %+v", a)
	}
	if !strings.Contains(a.FundamentalBias, "FOO/BAR") {
		t.Errorf("generic text should interpolate the instrument name, got %q", a.FundamentalBias)
	}
	// Default base price 1.0, default FX pip 0.0001.
	if a.StopLoss != "0.9800" {
		t.Errorf("StopLoss = %q, want %q", a.StopLoss, "0.9800")
	}
}

func TestPipSizeClasses(t *testing.T) {
	cases := map[string]float64{
		"EUR/USD": 0.0001,
		"USD/JPY": 0.01,
		"EUR/JPY": 0.01,
		"XAU/USD": 0.1,
		"XAG/USD": 0.01,
		"US30":    1,
		"NAS100":  1,
		"AUD/NZD": 0.0001,
	}
	for instrument, want := range cases {
		if got := PipSize(instrument); got != want {
			t.Errorf("PipSize(%s) = %v, want %v", instrument, got, want)
		}
	}
}
