package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "tradelog/internal/errors"
	"tradelog/internal/models"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		s.respondError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if len(req.Password) < 8 {
		s.respondError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to process password")
		return
	}

	user := &models.User{
		ID:        uuid.NewString(),
		Email:     req.Email,
		Name:      strings.TrimSpace(req.Name),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateUser(r.Context(), user, string(hash)); err != nil {
		if apperrors.Is(err, apperrors.ErrEmailTaken) {
			s.respondError(w, http.StatusConflict, "email already registered")
			return
		}
		s.log.Error().Err(err).Msg("Failed to create user")
		s.respondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]string{
		"message": "User registered successfully",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	user, hash, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	sess, err := s.issueSession(r, user.ID)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to issue session")
		s.respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Login successful",
		"token":        sess.Token,
		"refreshToken": sess.RefreshToken,
		"user":         user,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	old, err := s.store.GetSessionByRefreshToken(r.Context(), req.RefreshToken)
	if err != nil || !old.RefreshValid(time.Now()) {
		s.respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	// Rotate: the old pair is invalid the moment a new one exists.
	if err := s.store.DeleteSession(r.Context(), old.Token); err != nil {
		s.log.Error().Err(err).Msg("Failed to rotate session")
		s.respondError(w, http.StatusInternalServerError, "failed to refresh session")
		return
	}

	sess, err := s.issueSession(r, old.UserID)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to issue session")
		s.respondError(w, http.StatusInternalServerError, "failed to refresh session")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"message":      "Token refreshed",
		"token":        sess.Token,
		"refreshToken": sess.RefreshToken,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimPrefix(header, "Bearer ")
		if err := s.store.DeleteSession(r.Context(), token); err != nil {
			s.log.Warn().Err(err).Msg("Failed to delete session on logout")
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out",
	})
}

func (s *Server) issueSession(r *http.Request, uid string) (*models.Session, error) {
	now := time.Now().UTC()
	sess := &models.Session{
		Token:          uuid.NewString(),
		RefreshToken:   uuid.NewString(),
		UserID:         uid,
		AccessExpires:  now.Add(accessTokenTTL),
		RefreshExpires: now.Add(refreshTokenTTL),
		CreatedAt:      now,
	}
	if err := s.store.SaveSession(r.Context(), sess); err != nil {
		return nil, err
	}
	return sess, nil
}
