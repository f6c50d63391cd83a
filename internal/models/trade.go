package models

import "time"

// Direction represents the side of a trade.
type Direction string

const (
	Buy  Direction = "Buy"
	Sell Direction = "Sell"
)

// Trade represents one completed or open position in the journal.
// ProfitLoss is nil while the position is open; a trade without a
// ProfitLoss never enters win/loss aggregation.
type Trade struct {
	ID         string    `json:"id" csv:"id"`
	Instrument string    `json:"instrument" csv:"instrument"`
	Direction  Direction `json:"direction" csv:"direction"`
	EntryPrice float64   `json:"entryPrice" csv:"entry_price"`
	ExitPrice  *float64  `json:"exitPrice,omitempty" csv:"exit_price"`
	ProfitLoss *float64  `json:"profitLoss,omitempty" csv:"profit_loss"`
	Date       time.Time `json:"date" csv:"date"`
	Strategy   string    `json:"strategy" csv:"strategy"`
	Psychology string    `json:"psychology,omitempty" csv:"psychology"`
	CreatedAt  time.Time `json:"createdAt,omitempty" csv:"-"`
}

// Closed reports whether the trade has a realized P&L.
func (t *Trade) Closed() bool {
	return t.ProfitLoss != nil
}

// PnL returns the realized P&L, or 0 for an open trade.
func (t *Trade) PnL() float64 {
	if t.ProfitLoss == nil {
		return 0
	}
	return *t.ProfitLoss
}

// JournalEntry represents a free-form trading journal entry.
type JournalEntry struct {
	ID        string    `json:"id"`
	TradeID   string    `json:"tradeId,omitempty"`
	Date      time.Time `json:"date"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	Mood      string    `json:"mood,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
