package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	apperrors "tradelog/internal/errors"
	"tradelog/internal/models"
)

// Storage keys inside the local data file. KeyTrades is the canonical
// key; the legacy keys are read once at open, migrated under the
// canonical key, and never consulted again.
const (
	KeyTrades   = "trades.v1"
	KeyAnalyses = "analyses.v1"
	KeyJournal  = "journal.v1"
)

// legacyTradeKeys lists the historical trade keys in precedence order.
var legacyTradeKeys = []string{"tradeJournalTrades", "trades"}

// LocalStore is the client-side persistence layer: a single JSON file
// keyed like a browser's key/value storage. Reads of missing or
// malformed entries yield empty collections, never errors; only write
// failures surface.
type LocalStore struct {
	path string
	mu   sync.RWMutex
	data map[string]json.RawMessage
	log  zerolog.Logger
}

// OpenLocalStore loads (or creates) the local data file at path and
// performs the one-time legacy key migration.
func OpenLocalStore(path string, log zerolog.Logger) (*LocalStore, error) {
	s := &LocalStore{
		path: path,
		data: make(map[string]json.RawMessage),
		log:  log.With().Str("component", "local_store").Logger(),
	}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run, start empty.
	case err != nil:
		return nil, apperrors.NewStoreError("open", "local file", err)
	default:
		if jsonErr := json.Unmarshal(raw, &s.data); jsonErr != nil {
			// A corrupt file must not brick the journal. Start over
			// and let the next write replace it.
			s.log.Warn().Err(jsonErr).Str("path", path).Msg("Local data file is malformed, starting empty")
			s.data = make(map[string]json.RawMessage)
		}
	}

	if err := s.migrateLegacyTrades(); err != nil {
		return nil, err
	}

	return s, nil
}

// migrateLegacyTrades moves trades stored under a historical key to
// the canonical key. Runs at most once per file: after the write-back
// the legacy keys are gone. When both the canonical and a legacy key
// exist, the canonical data wins and the legacy keys are dropped.
func (s *LocalStore) migrateLegacyTrades() error {
	_, hasCanonical := s.data[KeyTrades]

	var migratedFrom string
	dropped := false
	for _, key := range legacyTradeKeys {
		raw, ok := s.data[key]
		if !ok {
			continue
		}
		if !hasCanonical && migratedFrom == "" {
			var trades []models.Trade
			if err := json.Unmarshal(raw, &trades); err != nil {
				s.log.Warn().Err(err).Str("key", key).Msg("Legacy trade data is malformed, discarding")
			} else {
				s.data[KeyTrades] = raw
				migratedFrom = key
			}
		}
		delete(s.data, key)
		dropped = true
	}

	if !dropped {
		return nil
	}

	if migratedFrom != "" {
		s.log.Info().Str("from", migratedFrom).Str("to", KeyTrades).Msg("Migrated legacy trade data")
	}
	return s.flush()
}

// flush writes the full data map to disk atomically. Caller must hold
// the write lock (or be single-threaded, as during open).
func (s *LocalStore) flush() error {
	payload, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return apperrors.NewStoreError("flush", "local file", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperrors.NewStoreError("flush", "local dir", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return apperrors.NewStoreError("flush", "local file", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return apperrors.NewStoreError("flush", "local file", err)
	}
	return nil
}

// getList decodes the named key into out. Missing or malformed data
// leaves out untouched.
func (s *LocalStore) getList(key string, out interface{}) {
	raw, ok := s.data[key]
	if !ok {
		return
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Stored data is malformed, treating as empty")
	}
}

func (s *LocalStore) setList(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewStoreError("encode", key, err)
	}
	s.data[key] = raw
	return s.flush()
}

// ============================================================================
// Trades
// ============================================================================

// Trades returns all stored trades, newest first.
func (s *LocalStore) Trades() []models.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var trades []models.Trade
	s.getList(KeyTrades, &trades)
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Date.After(trades[j].Date)
	})
	return trades
}

// SaveTrades replaces the stored trade list.
func (s *LocalStore) SaveTrades(trades []models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setList(KeyTrades, trades)
}

// AddTrade appends a trade to the stored list.
func (s *LocalStore) AddTrade(trade models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var trades []models.Trade
	s.getList(KeyTrades, &trades)
	trades = append(trades, trade)
	return s.setList(KeyTrades, trades)
}

// DeleteTrade removes a trade by ID. Returns ErrTradeNotFound when no
// trade matches.
func (s *LocalStore) DeleteTrade(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var trades []models.Trade
	s.getList(KeyTrades, &trades)

	kept := trades[:0]
	found := false
	for _, t := range trades {
		if t.ID == id {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	if !found {
		return apperrors.ErrTradeNotFound
	}
	return s.setList(KeyTrades, kept)
}

// ============================================================================
// Saved Analyses
// ============================================================================

// Analyses returns all saved analyses, newest first.
func (s *LocalStore) Analyses() []models.Analysis {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var analyses []models.Analysis
	s.getList(KeyAnalyses, &analyses)
	sort.SliceStable(analyses, func(i, j int) bool {
		return analyses[i].CreatedAt.After(analyses[j].CreatedAt)
	})
	return analyses
}

// SaveAnalysis appends a saved analysis.
func (s *LocalStore) SaveAnalysis(analysis models.Analysis) error {
	if analysis.ID == "" {
		return apperrors.NewValidationError("id", analysis.ID, "analysis id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var analyses []models.Analysis
	s.getList(KeyAnalyses, &analyses)
	analyses = append(analyses, analysis)
	return s.setList(KeyAnalyses, analyses)
}

// DeleteAnalysis removes a saved analysis by ID. Returns
// ErrAnalysisNotFound when no analysis matches.
func (s *LocalStore) DeleteAnalysis(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var analyses []models.Analysis
	s.getList(KeyAnalyses, &analyses)

	kept := analyses[:0]
	found := false
	for _, a := range analyses {
		if a.ID == id {
			found = true
			continue
		}
		kept = append(kept, a)
	}
	if !found {
		return apperrors.ErrAnalysisNotFound
	}
	return s.setList(KeyAnalyses, kept)
}

// ============================================================================
// Journal Entries
// ============================================================================

// JournalEntries returns all stored journal entries, newest first.
func (s *LocalStore) JournalEntries() []models.JournalEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []models.JournalEntry
	s.getList(KeyJournal, &entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	return entries
}

// SaveJournalEntry appends a journal entry.
func (s *LocalStore) SaveJournalEntry(entry models.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []models.JournalEntry
	s.getList(KeyJournal, &entries)
	entries = append(entries, entry)
	return s.setList(KeyJournal, entries)
}

// Path returns the location of the backing file.
func (s *LocalStore) Path() string {
	return s.path
}

// String describes the store for diagnostics.
func (s *LocalStore) String() string {
	return fmt.Sprintf("LocalStore(%s)", s.path)
}
