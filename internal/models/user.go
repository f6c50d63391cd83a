package models

import "time"

// User represents a registered account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session represents an issued access/refresh token pair.
type Session struct {
	Token          string    `json:"token"`
	RefreshToken   string    `json:"refreshToken"`
	UserID         string    `json:"userId"`
	AccessExpires  time.Time `json:"accessExpires"`
	RefreshExpires time.Time `json:"refreshExpires"`
	CreatedAt      time.Time `json:"createdAt"`
}

// AccessValid reports whether the access token is still usable.
func (s *Session) AccessValid(now time.Time) bool {
	return now.Before(s.AccessExpires)
}

// RefreshValid reports whether the refresh token is still usable.
func (s *Session) RefreshValid(now time.Time) bool {
	return now.Before(s.RefreshExpires)
}
