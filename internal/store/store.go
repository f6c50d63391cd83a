// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"tradelog/internal/models"
)

// DataStore defines the interface for server-side persistence.
type DataStore interface {
	// Users
	CreateUser(ctx context.Context, user *models.User, passwordHash string) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, string, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Sessions
	SaveSession(ctx context.Context, session *models.Session) error
	GetSessionByToken(ctx context.Context, token string) (*models.Session, error)
	GetSessionByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteSessionsForUser(ctx context.Context, userID string) error

	// Trades
	SaveTrade(ctx context.Context, userID string, trade *models.Trade) error
	GetTrades(ctx context.Context, userID string, filter TradeFilter) ([]models.Trade, error)
	DeleteTrade(ctx context.Context, userID, tradeID string) error

	// Saved analyses
	SaveAnalysis(ctx context.Context, userID string, analysis *models.Analysis) error
	GetAnalyses(ctx context.Context, userID string, limit int) ([]models.Analysis, error)
	DeleteAnalysis(ctx context.Context, userID, analysisID string) error

	// Lifecycle
	Close() error
}

// TradeFilter represents filters for querying trades.
type TradeFilter struct {
	Instrument string
	Strategy   string
	StartDate  time.Time
	EndDate    time.Time
	Limit      int
}
