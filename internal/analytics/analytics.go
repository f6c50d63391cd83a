// Package analytics derives summary statistics from the trade list.
// The snapshot is a pure function of its inputs: it holds no identity
// and is recomputed from scratch on every call, never mutated in place.
package analytics

import (
	"sort"
	"time"

	"tradelog/internal/models"
)

// Window selects the time filter applied before aggregation.
type Window string

const (
	WindowAll   Window = "all"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
)

// ProfitFactorCap is the sentinel returned when total losses are zero
// and total wins are positive.
const ProfitFactorCap = 999

// ParseWindow maps a user-supplied window name to a Window, falling
// back to WindowAll for anything unrecognized.
func ParseWindow(s string) Window {
	switch Window(s) {
	case WindowWeek:
		return WindowWeek
	case WindowMonth:
		return WindowMonth
	default:
		return WindowAll
	}
}

// Duration returns the window length, or 0 for WindowAll.
func (w Window) Duration() time.Duration {
	switch w {
	case WindowWeek:
		return 7 * 24 * time.Hour
	case WindowMonth:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// GroupStat accumulates per-group statistics.
type GroupStat struct {
	Key    string  `json:"key"`
	Trades int     `json:"trades"`
	Wins   int     `json:"wins"`
	PnL    float64 `json:"pnl"`
}

// Snapshot is the derived aggregate over a filtered trade list.
type Snapshot struct {
	TotalTrades  int     `json:"totalTrades"`
	WinCount     int     `json:"winCount"`
	LossCount    int     `json:"lossCount"`
	WinRate      float64 `json:"winRate"`
	TotalProfit  float64 `json:"totalProfit"`
	TotalLoss    float64 `json:"totalLoss"` // magnitude of summed losses
	NetPnL       float64 `json:"netPnl"`
	ProfitFactor float64 `json:"profitFactor"`

	ByInstrument []GroupStat `json:"byInstrument"`
	ByStrategy   []GroupStat `json:"byStrategy"`
	ByPsychology []GroupStat `json:"byPsychology"`
}

// Compute aggregates the given trades over the window ending at now.
// A trade is included iff its date falls within [now-window, now],
// inclusive of the lower bound; WindowAll includes everything.
// Trades without a realized P&L count toward TotalTrades and group
// trade counts but never toward wins, losses, or the win rate.
func Compute(trades []models.Trade, window Window, now time.Time) Snapshot {
	snap := Snapshot{}

	instruments := newGrouper()
	strategies := newGrouper()
	moods := newGrouper()

	cutoff := time.Time{}
	if d := window.Duration(); d > 0 {
		cutoff = now.Add(-d)
	}

	for i := range trades {
		t := &trades[i]
		if window != WindowAll {
			if t.Date.Before(cutoff) || t.Date.After(now) {
				continue
			}
		}

		snap.TotalTrades++

		win := false
		pnl := 0.0
		if t.Closed() {
			pnl = t.PnL()
			switch {
			case pnl > 0:
				snap.WinCount++
				snap.TotalProfit += pnl
				win = true
			case pnl < 0:
				snap.LossCount++
				snap.TotalLoss += -pnl
			}
			// Zero P&L trades are neither wins nor losses.
		}

		instruments.add(t.Instrument, win, pnl)
		strategies.add(t.Strategy, win, pnl)
		if t.Psychology != "" {
			moods.add(t.Psychology, win, pnl)
		}
	}

	snap.NetPnL = snap.TotalProfit - snap.TotalLoss

	if denom := snap.WinCount + snap.LossCount; denom > 0 {
		snap.WinRate = float64(snap.WinCount) / float64(denom) * 100
	}

	switch {
	case snap.TotalLoss > 0:
		snap.ProfitFactor = snap.TotalProfit / snap.TotalLoss
	case snap.TotalProfit > 0:
		snap.ProfitFactor = ProfitFactorCap
	default:
		snap.ProfitFactor = 0
	}

	snap.ByInstrument = instruments.sorted()
	snap.ByStrategy = strategies.sorted()
	snap.ByPsychology = moods.sorted()

	return snap
}

// Streaks describes consecutive-win runs over the closed trades in
// date order.
type Streaks struct {
	Current int `json:"current"`
	Best    int `json:"best"`
}

// ComputeStreaks walks closed trades in chronological order and
// tracks the current and best win streaks. Zero-P&L trades break a
// streak the same way losses do.
func ComputeStreaks(trades []models.Trade) Streaks {
	ordered := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Closed() {
			ordered = append(ordered, t)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	var s Streaks
	for _, t := range ordered {
		if t.PnL() > 0 {
			s.Current++
			if s.Current > s.Best {
				s.Best = s.Current
			}
		} else {
			s.Current = 0
		}
	}
	return s
}

// grouper accumulates stats per key while preserving first-seen order
// until the final sort.
type grouper struct {
	order []string
	stats map[string]*GroupStat
}

func newGrouper() *grouper {
	return &grouper{stats: make(map[string]*GroupStat)}
}

func (g *grouper) add(key string, win bool, pnl float64) {
	st, ok := g.stats[key]
	if !ok {
		st = &GroupStat{Key: key}
		g.stats[key] = st
		g.order = append(g.order, key)
	}
	st.Trades++
	if win {
		st.Wins++
	}
	st.PnL += pnl
}

// sorted returns the groups sorted by descending summed P&L. The sort
// is stable over first-seen order so equal-P&L groups keep a
// deterministic ordering.
func (g *grouper) sorted() []GroupStat {
	out := make([]GroupStat, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, *g.stats[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PnL > out[j].PnL
	})
	return out
}
