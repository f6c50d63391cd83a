package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "tradelog/internal/errors"
	"tradelog/internal/logging"
	"tradelog/internal/models"
)

// State is the gateway's authentication state.
type State string

const (
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
	StateRefreshing    State = "refreshing"
)

// Manager mediates all authenticated traffic to the backend. It holds
// the current token pair, attaches the bearer token to outgoing
// requests, and on a 401 performs exactly one refresh followed by one
// replay of the original request. Concurrent 401s share a single
// refresh via the refreshDone channel.
type Manager struct {
	baseURL string
	httpc   *http.Client
	vault   *Vault
	log     zerolog.Logger

	mu          sync.Mutex
	state       State
	session     *models.Session
	refreshDone chan struct{}
	refreshErr  error
}

// NewManager creates a session manager for the given backend. The
// vault is consulted for a previously stored session; a vault that
// cannot be read leaves the manager anonymous rather than failing.
func NewManager(baseURL string, timeout time.Duration, vault *Vault, log zerolog.Logger) *Manager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	m := &Manager{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		vault:   vault,
		log:     log.With().Str("component", "session").Logger(),
		state:   StateAnonymous,
	}

	if vault != nil {
		sess, err := vault.Load()
		switch {
		case err != nil:
			m.log.Warn().Err(err).Msg("Stored session unreadable, starting anonymous")
		case sess != nil:
			m.session = sess
			m.state = StateAuthenticated
			logging.LogSession(m.log, string(StateAnonymous), string(StateAuthenticated), "restored from vault")
		}
	}

	return m
}

// State returns the current gateway state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Token returns the current access token, or "" when anonymous.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.Token
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type loginResponse struct {
	Message      string       `json:"message"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	User         *models.User `json:"user,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Register creates a new account. The caller must log in afterwards.
func (m *Manager) Register(ctx context.Context, email, password, name string) (string, error) {
	var out messageResponse
	status, err := m.post(ctx, "/api/v1/auth/register", credentialsRequest{Email: email, Password: password, Name: name}, &out)
	if err != nil {
		return "", apperrors.NewSessionError("register", "request failed", err)
	}
	switch status {
	case http.StatusCreated, http.StatusOK:
		return out.Message, nil
	case http.StatusConflict:
		return "", apperrors.ErrEmailTaken
	default:
		return "", apperrors.NewSessionError("register", fmt.Sprintf("unexpected status %d: %s", status, out.Error), nil)
	}
}

// Login exchanges credentials for a token pair and stores it.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	var out loginResponse
	status, err := m.post(ctx, "/api/v1/auth/login", credentialsRequest{Email: email, Password: password}, &out)
	if err != nil {
		return apperrors.NewSessionError("login", "request failed", err)
	}
	if status == http.StatusUnauthorized {
		return apperrors.ErrInvalidCredentials
	}
	if status != http.StatusOK || out.Token == "" {
		return apperrors.NewSessionError("login", fmt.Sprintf("unexpected status %d", status), nil)
	}

	sess := &models.Session{
		Token:        out.Token,
		RefreshToken: out.RefreshToken,
		CreatedAt:    time.Now().UTC(),
	}
	if out.User != nil {
		sess.UserID = out.User.ID
	}

	m.mu.Lock()
	prev := m.state
	m.session = sess
	m.state = StateAuthenticated
	m.mu.Unlock()

	if m.vault != nil {
		if err := m.vault.Save(sess); err != nil {
			m.log.Warn().Err(err).Msg("Failed to persist session, it will not survive a restart")
		}
	}
	logging.LogSession(m.log, string(prev), string(StateAuthenticated), "login")
	return nil
}

// Logout invalidates the session server-side and always clears local
// state, even when the server call fails.
func (m *Manager) Logout(ctx context.Context) error {
	token := m.Token()
	if token == "" {
		return apperrors.ErrNotAuthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/v1/auth/logout", nil)
	if err == nil {
		req.Header.Set("Authorization", "Bearer "+token)
		if resp, doErr := m.httpc.Do(req); doErr == nil {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
		} else {
			m.log.Warn().Err(doErr).Msg("Server-side logout failed, clearing local session anyway")
		}
	}

	m.clearSession("logout")
	return nil
}

// CurrentUser fetches the authenticated user's profile.
func (m *Manager) CurrentUser(ctx context.Context) (*models.User, error) {
	var out struct {
		User *models.User `json:"user"`
	}
	if err := m.Do(ctx, http.MethodGet, "/api/v1/users/profile", nil, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, apperrors.NewSessionError("profile", "empty user in response", nil)
	}
	return out.User, nil
}

// Do performs an authenticated request. On a 401 it refreshes the
// token pair once and replays the request once; a second 401, or a
// failed refresh, surfaces as ErrSessionExpired.
func (m *Manager) Do(ctx context.Context, method, path string, body, out interface{}) error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return apperrors.ErrNotAuthenticated
	}
	token := m.session.Token
	m.mu.Unlock()

	status, err := m.roundTrip(ctx, method, path, token, body, out)
	if err != nil {
		return err
	}
	if status != http.StatusUnauthorized {
		return statusToError(status)
	}

	if err := m.refresh(ctx); err != nil {
		return apperrors.Wrap(apperrors.ErrSessionExpired, "token refresh failed")
	}

	status, err = m.roundTrip(ctx, method, path, m.Token(), body, out)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		m.clearSession("replay rejected")
		return apperrors.ErrSessionExpired
	}
	return statusToError(status)
}

// refresh exchanges the refresh token for a new pair. Only one refresh
// runs at a time; late arrivals wait on the in-flight one and share
// its outcome.
func (m *Manager) refresh(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateRefreshing {
		done := m.refreshDone
		m.mu.Unlock()
		select {
		case <-done:
			m.mu.Lock()
			err := m.refreshErr
			m.mu.Unlock()
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if m.session == nil {
		m.mu.Unlock()
		return apperrors.ErrNotAuthenticated
	}
	refreshToken := m.session.RefreshToken
	prev := m.state
	m.state = StateRefreshing
	done := make(chan struct{})
	m.refreshDone = done
	m.mu.Unlock()

	logging.LogSession(m.log, string(prev), string(StateRefreshing), "access token rejected")

	err := m.doRefresh(ctx, refreshToken)

	m.mu.Lock()
	m.refreshErr = err
	if err != nil {
		m.session = nil
		m.state = StateAnonymous
	} else {
		m.state = StateAuthenticated
	}
	m.mu.Unlock()
	close(done)

	if err != nil {
		if m.vault != nil {
			m.vault.Clear()
		}
		logging.LogSession(m.log, string(StateRefreshing), string(StateAnonymous), "refresh failed")
		return err
	}
	logging.LogSession(m.log, string(StateRefreshing), string(StateAuthenticated), "refresh succeeded")
	return nil
}

func (m *Manager) doRefresh(ctx context.Context, refreshToken string) error {
	var out loginResponse
	status, err := m.post(ctx, "/api/v1/auth/refresh", map[string]string{"refreshToken": refreshToken}, &out)
	if err != nil {
		return apperrors.NewSessionError("refresh", "request failed", err)
	}
	if status != http.StatusOK || out.Token == "" {
		return apperrors.NewSessionError("refresh", fmt.Sprintf("unexpected status %d", status), nil)
	}

	sess := &models.Session{
		Token:        out.Token,
		RefreshToken: out.RefreshToken,
		CreatedAt:    time.Now().UTC(),
	}

	m.mu.Lock()
	if m.session != nil {
		sess.UserID = m.session.UserID
	}
	m.session = sess
	m.mu.Unlock()

	if m.vault != nil {
		if saveErr := m.vault.Save(sess); saveErr != nil {
			m.log.Warn().Err(saveErr).Msg("Failed to persist refreshed session")
		}
	}
	return nil
}

func (m *Manager) clearSession(reason string) {
	m.mu.Lock()
	prev := m.state
	m.session = nil
	m.state = StateAnonymous
	m.mu.Unlock()

	if m.vault != nil {
		m.vault.Clear()
	}
	logging.LogSession(m.log, string(prev), string(StateAnonymous), reason)
}

// roundTrip performs one HTTP exchange, decoding a 2xx body into out.
func (m *Manager) roundTrip(ctx context.Context, method, path, token string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, apperrors.Wrap(err, "encoding request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, reader)
	if err != nil {
		return 0, apperrors.Wrap(err, "creating request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := m.httpc.Do(req)
	logging.LogAPICall(m.log, method, path, time.Since(start), err)
	if err != nil {
		return 0, apperrors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, apperrors.Wrap(err, "decoding response")
		}
		return resp.StatusCode, nil
	}

	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, nil
}

// post performs an unauthenticated JSON POST, decoding the body into
// out regardless of status so callers can read error messages.
func (m *Manager) post(ctx context.Context, path string, body, out interface{}) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, apperrors.Wrap(err, "encoding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, apperrors.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := m.httpc.Do(req)
	logging.LogAPICall(m.log, http.MethodPost, path, time.Since(start), err)
	if err != nil {
		return 0, apperrors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if out != nil {
		// Best effort, error payloads are JSON too.
		json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out)
	}
	return resp.StatusCode, nil
}

func statusToError(status int) error {
	switch {
	case status >= 200 && status <= 299:
		return nil
	case status == http.StatusNotFound:
		return apperrors.ErrDataNotFound
	case status == http.StatusTooManyRequests:
		return apperrors.ErrRateLimited
	default:
		return fmt.Errorf("unexpected status %d", status)
	}
}
