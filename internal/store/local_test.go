package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "tradelog/internal/errors"
	"tradelog/internal/models"
)

func openTestStore(t *testing.T, seed map[string]interface{}) (*LocalStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")

	if seed != nil {
		raw, err := json.Marshal(seed)
		if err != nil {
			t.Fatalf("marshal seed: %v", err)
		}
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			t.Fatalf("write seed: %v", err)
		}
	}

	s, err := OpenLocalStore(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenLocalStore: %v", err)
	}
	return s, path
}

func sampleTrades() []models.Trade {
	pnl := 125.0
	return []models.Trade{
		{
			ID:         "t1",
			Instrument: "EUR/USD",
			Direction:  models.Buy,
			EntryPrice: 1.0850,
			ProfitLoss: &pnl,
			Date:       time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
			Strategy:   "Breakout",
		},
	}
}

func rawKeys(t *testing.T, path string) map[string]json.RawMessage {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read data file: %v", err)
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("decode data file: %v", err)
	}
	return data
}

func TestMigrateFromTradeJournalTrades(t *testing.T) {
	s, path := openTestStore(t, map[string]interface{}{
		"tradeJournalTrades": sampleTrades(),
	})

	trades := s.Trades()
	if len(trades) != 1 || trades[0].ID != "t1" {
		t.Fatalf("migrated trades = %+v", trades)
	}

	data := rawKeys(t, path)
	if _, ok := data["tradeJournalTrades"]; ok {
		t.Error("legacy key survived the migration")
	}
	if _, ok := data[KeyTrades]; !ok {
		t.Error("canonical key missing after migration")
	}
}

func TestMigrateFromShortLegacyKey(t *testing.T) {
	s, path := openTestStore(t, map[string]interface{}{
		"trades": sampleTrades(),
	})

	if got := s.Trades(); len(got) != 1 {
		t.Fatalf("expected 1 migrated trade, got %d", len(got))
	}
	if _, ok := rawKeys(t, path)["trades"]; ok {
		t.Error("legacy key survived the migration")
	}
}

func TestCanonicalKeyWinsOverLegacy(t *testing.T) {
	canonical := sampleTrades()
	legacy := sampleTrades()
	legacy[0].ID = "legacy"

	s, path := openTestStore(t, map[string]interface{}{
		KeyTrades:            canonical,
		"tradeJournalTrades": legacy,
	})

	trades := s.Trades()
	if len(trades) != 1 || trades[0].ID != "t1" {
		t.Fatalf("canonical data should win, got %+v", trades)
	}
	if _, ok := rawKeys(t, path)["tradeJournalTrades"]; ok {
		t.Error("legacy key should be dropped even when canonical exists")
	}
}

func TestMalformedLegacyDataDiscarded(t *testing.T) {
	s, _ := openTestStore(t, map[string]interface{}{
		"tradeJournalTrades": "not an array",
	})

	if got := s.Trades(); len(got) != 0 {
		t.Fatalf("malformed legacy data should yield empty list, got %+v", got)
	}
}

func TestMalformedFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte("{{{{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := OpenLocalStore(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenLocalStore should not fail on a corrupt file: %v", err)
	}
	if got := s.Trades(); len(got) != 0 {
		t.Fatalf("corrupt file should yield empty list, got %+v", got)
	}
}

func TestAddAndDeleteTrade(t *testing.T) {
	s, _ := openTestStore(t, nil)

	trade := sampleTrades()[0]
	if err := s.AddTrade(trade); err != nil {
		t.Fatalf("AddTrade: %v", err)
	}
	if got := s.Trades(); len(got) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(got))
	}

	if err := s.DeleteTrade("t1"); err != nil {
		t.Fatalf("DeleteTrade: %v", err)
	}
	if got := s.Trades(); len(got) != 0 {
		t.Fatalf("expected empty list after delete, got %d", len(got))
	}

	if err := s.DeleteTrade("t1"); !apperrors.Is(err, apperrors.ErrTradeNotFound) {
		t.Errorf("deleting missing trade should return ErrTradeNotFound, got %v", err)
	}
}

func TestTradesPersistAcrossReopen(t *testing.T) {
	s, path := openTestStore(t, nil)
	if err := s.AddTrade(sampleTrades()[0]); err != nil {
		t.Fatalf("AddTrade: %v", err)
	}

	reopened, err := OpenLocalStore(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.Trades(); len(got) != 1 || got[0].Instrument != "EUR/USD" {
		t.Fatalf("reopened trades = %+v", got)
	}
}

func TestSaveAnalysisRequiresID(t *testing.T) {
	s, _ := openTestStore(t, nil)

	err := s.SaveAnalysis(models.Analysis{Instrument: "EUR/USD"})
	var verr *apperrors.ValidationError
	if !apperrors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestJournalEntriesOrderedNewestFirst(t *testing.T) {
	s, _ := openTestStore(t, nil)

	older := models.JournalEntry{ID: "j1", Date: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), Content: "first"}
	newer := models.JournalEntry{ID: "j2", Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Content: "second"}

	if err := s.SaveJournalEntry(older); err != nil {
		t.Fatalf("SaveJournalEntry: %v", err)
	}
	if err := s.SaveJournalEntry(newer); err != nil {
		t.Fatalf("SaveJournalEntry: %v", err)
	}

	entries := s.JournalEntries()
	if len(entries) != 2 || entries[0].ID != "j2" {
		t.Fatalf("entries = %+v", entries)
	}
}
