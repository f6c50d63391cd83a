package models

import "time"

// Analysis represents one AI-generated trade strategy suggestion.
// All seven text fields are required for a result to be considered
// well-formed; a response missing any of them is treated as a failure
// by the analysis client.
type Analysis struct {
	ID              string    `json:"id,omitempty"`
	Instrument      string    `json:"instrument,omitempty"`
	TradeType       string    `json:"tradeType,omitempty"`
	FundamentalBias string    `json:"fundamentalBias"`
	TechnicalBias   string    `json:"technicalBias"`
	MarketContext   string    `json:"marketContext"`
	Plan            string    `json:"plan"`
	EntryZone       string    `json:"entryZone"`
	StopLoss        string    `json:"stopLoss"`
	TakeProfit      string    `json:"takeProfit"`
	RiskWarning     string    `json:"riskWarning"`
	CreatedAt       time.Time `json:"createdAt,omitempty"`
}

// Complete reports whether all seven required analysis fields are
// present.
func (a *Analysis) Complete() bool {
	return a.FundamentalBias != "" &&
		a.TechnicalBias != "" &&
		a.MarketContext != "" &&
		a.Plan != "" &&
		a.EntryZone != "" &&
		a.StopLoss != "" &&
		a.TakeProfit != ""
}

// DailyStrategy is the response payload of the daily-strategy
// endpoint.
type DailyStrategy struct {
	Date      string `json:"date"`
	Bias      string `json:"bias"`
	Focus     string `json:"focus"`
	KeyLevels string `json:"keyLevels"`
	Notes     string `json:"notes"`
	Source    string `json:"source"`
}
