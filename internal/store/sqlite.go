package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "tradelog/internal/errors"
	"tradelog/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT,
		password_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		refresh_token TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		access_expires DATETIME NOT NULL,
		refresh_expires DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		instrument TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL,
		profit_loss REAL,
		date DATETIME NOT NULL,
		strategy TEXT,
		psychology TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		instrument TEXT NOT NULL,
		trade_type TEXT NOT NULL,
		fundamental_bias TEXT NOT NULL,
		technical_bias TEXT NOT NULL,
		market_context TEXT NOT NULL,
		plan TEXT NOT NULL,
		entry_zone TEXT NOT NULL,
		stop_loss TEXT NOT NULL,
		take_profit TEXT NOT NULL,
		risk_warning TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_refresh ON sessions(refresh_token);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
	CREATE INDEX IF NOT EXISTS idx_trades_user ON trades(user_id);
	CREATE INDEX IF NOT EXISTS idx_trades_date ON trades(date);
	CREATE INDEX IF NOT EXISTS idx_trades_instrument ON trades(instrument);
	CREATE INDEX IF NOT EXISTS idx_analyses_user ON analyses(user_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Users Methods
// ============================================================================

// CreateUser inserts a new user. Returns ErrEmailTaken if the email is
// already registered.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, user.ID, strings.ToLower(user.Email), user.Name, passwordHash, user.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperrors.ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user and their password hash by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, string, error) {
	var u models.User
	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, COALESCE(name, ''), password_hash, created_at
		FROM users WHERE email = ?
	`, strings.ToLower(email)).Scan(&u.ID, &u.Email, &u.Name, &hash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, "", apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}
	return &u, hash, nil
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, COALESCE(name, ''), created_at FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrDataNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// ============================================================================
// Sessions Methods
// ============================================================================

// SaveSession persists an issued token pair.
func (s *SQLiteStore) SaveSession(ctx context.Context, session *models.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions (token, refresh_token, user_id, access_expires, refresh_expires, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, session.Token, session.RefreshToken, session.UserID, session.AccessExpires, session.RefreshExpires, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSessionByToken retrieves a session by its access token.
func (s *SQLiteStore) GetSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	return s.getSession(ctx, "token", token)
}

// GetSessionByRefreshToken retrieves a session by its refresh token.
func (s *SQLiteStore) GetSessionByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	return s.getSession(ctx, "refresh_token", refreshToken)
}

func (s *SQLiteStore) getSession(ctx context.Context, column, value string) (*models.Session, error) {
	var sess models.Session
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT token, refresh_token, user_id, access_expires, refresh_expires, created_at
		FROM sessions WHERE %s = ?
	`, column), value).Scan(&sess.Token, &sess.RefreshToken, &sess.UserID, &sess.AccessExpires, &sess.RefreshExpires, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &sess, nil
}

// DeleteSession removes a session by access token.
func (s *SQLiteStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteSessionsForUser removes all sessions belonging to a user.
func (s *SQLiteStore) DeleteSessionsForUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}

// ============================================================================
// Trades Methods
// ============================================================================

// SaveTrade saves a trade for the given user.
func (s *SQLiteStore) SaveTrade(ctx context.Context, userID string, trade *models.Trade) error {
	var exitPrice, profitLoss interface{}
	if trade.ExitPrice != nil {
		exitPrice = *trade.ExitPrice
	}
	if trade.ProfitLoss != nil {
		profitLoss = *trade.ProfitLoss
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO trades (id, user_id, instrument, direction, entry_price, exit_price, profit_loss, date, strategy, psychology, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, trade.ID, userID, trade.Instrument, trade.Direction, trade.EntryPrice, exitPrice, profitLoss, trade.Date, trade.Strategy, trade.Psychology, trade.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save trade: %w", err)
	}
	return nil
}

// GetTrades retrieves a user's trades, most recent first.
func (s *SQLiteStore) GetTrades(ctx context.Context, userID string, filter TradeFilter) ([]models.Trade, error) {
	query := `
		SELECT id, instrument, direction, entry_price, exit_price, profit_loss, date, COALESCE(strategy, ''), COALESCE(psychology, ''), created_at
		FROM trades WHERE user_id = ?`
	args := []interface{}{userID}

	if filter.Instrument != "" {
		query += " AND instrument = ?"
		args = append(args, filter.Instrument)
	}
	if filter.Strategy != "" {
		query += " AND strategy = ?"
		args = append(args, filter.Strategy)
	}
	if !filter.StartDate.IsZero() {
		query += " AND date >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND date <= ?"
		args = append(args, filter.EndDate)
	}

	query += " ORDER BY date DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		var exitPrice, profitLoss sql.NullFloat64

		if err := rows.Scan(&t.ID, &t.Instrument, &t.Direction, &t.EntryPrice, &exitPrice, &profitLoss, &t.Date, &t.Strategy, &t.Psychology, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		if exitPrice.Valid {
			v := exitPrice.Float64
			t.ExitPrice = &v
		}
		if profitLoss.Valid {
			v := profitLoss.Float64
			t.ProfitLoss = &v
		}
		trades = append(trades, t)
	}

	return trades, rows.Err()
}

// DeleteTrade removes a trade. Returns ErrTradeNotFound when the trade
// does not exist or belongs to another user.
func (s *SQLiteStore) DeleteTrade(ctx context.Context, userID, tradeID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM trades WHERE id = ? AND user_id = ?
	`, tradeID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperrors.ErrTradeNotFound
	}
	return nil
}

// ============================================================================
// Saved Analyses Methods
// ============================================================================

// SaveAnalysis persists a saved analysis for the given user.
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, userID string, analysis *models.Analysis) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO analyses (id, user_id, instrument, trade_type, fundamental_bias, technical_bias, market_context, plan, entry_zone, stop_loss, take_profit, risk_warning, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, analysis.ID, userID, analysis.Instrument, analysis.TradeType, analysis.FundamentalBias, analysis.TechnicalBias, analysis.MarketContext, analysis.Plan, analysis.EntryZone, analysis.StopLoss, analysis.TakeProfit, analysis.RiskWarning, analysis.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

// GetAnalyses retrieves a user's saved analyses, most recent first.
func (s *SQLiteStore) GetAnalyses(ctx context.Context, userID string, limit int) ([]models.Analysis, error) {
	query := `
		SELECT id, instrument, trade_type, fundamental_bias, technical_bias, market_context, plan, entry_zone, stop_loss, take_profit, risk_warning, created_at
		FROM analyses WHERE user_id = ? ORDER BY created_at DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var analyses []models.Analysis
	for rows.Next() {
		var a models.Analysis
		if err := rows.Scan(&a.ID, &a.Instrument, &a.TradeType, &a.FundamentalBias, &a.TechnicalBias, &a.MarketContext, &a.Plan, &a.EntryZone, &a.StopLoss, &a.TakeProfit, &a.RiskWarning, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		analyses = append(analyses, a)
	}

	return analyses, rows.Err()
}

// DeleteAnalysis removes a saved analysis. Returns ErrAnalysisNotFound
// when it does not exist or belongs to another user.
func (s *SQLiteStore) DeleteAnalysis(ctx context.Context, userID, analysisID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM analyses WHERE id = ? AND user_id = ?
	`, analysisID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperrors.ErrAnalysisNotFound
	}
	return nil
}
