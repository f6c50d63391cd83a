package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"tradelog/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return New(Config{
		Port:  0,
		Store: st,
		Log:   zerolog.Nop(),
	})
}

func doJSON(t *testing.T, s *Server, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func registerAndLogin(t *testing.T, s *Server) string {
	t.Helper()

	rec, _ := doJSON(t, s, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "trader@example.com",
		"password": "correcthorse",
		"name":     "Trader",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "trader@example.com",
		"password": "correcthorse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d body=%s", rec.Code, rec.Body.String())
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("login response missing token: %v", body)
	}
	return token
}

func TestHealthShape(t *testing.T) {
	s := newTestServer(t)
	rec, body := doJSON(t, s, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	for _, key := range []string{"status", "timestamp", "service"} {
		if _, ok := body[key]; !ok {
			t.Errorf("health response missing %q: %v", key, body)
		}
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v", body["status"])
	}
}

func TestBannerShape(t *testing.T) {
	s := newTestServer(t)
	rec, body := doJSON(t, s, http.MethodGet, "/api/v1/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["message"] == nil || body["version"] == nil {
		t.Errorf("banner = %v", body)
	}
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	rec, _ := doJSON(t, s, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "no-at-sign", "password": "correcthorse",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad email status = %d", rec.Code)
	}

	rec, _ = doJSON(t, s, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "a@b.com", "password": "short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("short password status = %d", rec.Code)
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s)

	rec, _ := doJSON(t, s, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "trader@example.com", "password": "correcthorse",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s)

	rec, _ := doJSON(t, s, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "trader@example.com", "password": "wrongwrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{
		"/api/v1/trades/",
		"/api/v1/users/profile",
		"/api/v1/users/dashboard",
		"/api/v1/analytics/overview",
		"/api/v1/analyses/",
	} {
		rec, _ := doJSON(t, s, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: status = %d, want 401", path, rec.Code)
		}
	}
}

func TestTradeLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s)

	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/trades/", token, map[string]interface{}{
		"instrument": "EUR/USD",
		"direction":  "Buy",
		"entryPrice": 1.0850,
		"profitLoss": 125.0,
		"strategy":   "Breakout",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}
	trade, _ := body["trade"].(map[string]interface{})
	id, _ := trade["id"].(string)
	if id == "" {
		t.Fatalf("created trade has no id: %v", body)
	}

	rec, body = doJSON(t, s, http.MethodGet, "/api/v1/trades/", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if count, _ := body["count"].(float64); count != 1 {
		t.Errorf("count = %v", body["count"])
	}

	rec, _ = doJSON(t, s, http.MethodDelete, "/api/v1/trades/"+id, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec, _ = doJSON(t, s, http.MethodDelete, "/api/v1/trades/"+id, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestTradeValidation(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s)

	cases := []map[string]interface{}{
		{"direction": "Buy", "entryPrice": 1.0},                             // no instrument
		{"instrument": "EUR/USD", "direction": "Hold", "entryPrice": 1.0},   // bad direction
		{"instrument": "EUR/USD", "direction": "Buy", "entryPrice": -1.0},   // bad price
	}
	for i, payload := range cases {
		rec, _ := doJSON(t, s, http.MethodPost, "/api/v1/trades/", token, payload)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("case %d: status = %d, want 400", i, rec.Code)
		}
	}
}

func TestAnalyticsOverviewWorkedExample(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s)

	for i, pnl := range []float64{125, -45, 230} {
		rec, _ := doJSON(t, s, http.MethodPost, "/api/v1/trades/", token, map[string]interface{}{
			"instrument": "EUR/USD",
			"direction":  "Buy",
			"entryPrice": 1.0850,
			"profitLoss": pnl,
			"id":         fmt.Sprintf("t%d", i),
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed trade %d: status = %d", i, rec.Code)
		}
	}

	rec, body := doJSON(t, s, http.MethodGet, "/api/v1/analytics/overview", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("overview status = %d", rec.Code)
	}

	if got := body["totalTrades"].(float64); got != 3 {
		t.Errorf("totalTrades = %v", got)
	}
	if got := body["winningTrades"].(float64); got != 2 {
		t.Errorf("winningTrades = %v", got)
	}
	if got := body["losingTrades"].(float64); got != 1 {
		t.Errorf("losingTrades = %v", got)
	}
	winRate := body["winRate"].(float64)
	if winRate < 66.6 || winRate > 66.7 {
		t.Errorf("winRate = %v", winRate)
	}
	pf := body["profitFactor"].(float64)
	if pf < 7.88 || pf > 7.89 {
		t.Errorf("profitFactor = %v", pf)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s)

	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "trader@example.com", "password": "correcthorse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}
	oldToken := body["token"].(string)
	refreshToken := body["refreshToken"].(string)

	rec, body = doJSON(t, s, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refreshToken": refreshToken,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d body=%s", rec.Code, rec.Body.String())
	}
	newToken := body["token"].(string)
	if newToken == "" || newToken == oldToken {
		t.Errorf("refresh should mint a new token, old=%q new=%q", oldToken, newToken)
	}

	// The rotated-out access token must be dead.
	rec, _ = doJSON(t, s, http.MethodGet, "/api/v1/users/profile", oldToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("old token after rotation: status = %d, want 401", rec.Code)
	}
	rec, _ = doJSON(t, s, http.MethodGet, "/api/v1/users/profile", newToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("new token status = %d, want 200", rec.Code)
	}

	// The old refresh token is single use.
	rec, _ = doJSON(t, s, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refreshToken": refreshToken,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("reused refresh token: status = %d, want 401", rec.Code)
	}
}

func TestLogoutInvalidatesToken(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s)

	rec, _ := doJSON(t, s, http.MethodPost, "/api/v1/auth/logout", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}

	rec, _ = doJSON(t, s, http.MethodGet, "/api/v1/users/profile", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("token after logout: status = %d, want 401", rec.Code)
	}
}

func TestDashboardShape(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s)

	rec, body := doJSON(t, s, http.MethodGet, "/api/v1/users/dashboard", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rec.Code)
	}
	data, _ := body["data"].(map[string]interface{})
	if data == nil {
		t.Fatalf("dashboard body = %v", body)
	}
	for _, key := range []string{"trades", "analytics", "streaks"} {
		if _, ok := data[key]; !ok {
			t.Errorf("dashboard data missing %q", key)
		}
	}
}

func TestAnalyzeWithoutProvidersSynthesizes(t *testing.T) {
	s := newTestServer(t)

	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/ai/analyze", "", map[string]string{
		"instrument": "EUR/USD",
		"tradeType":  "Buy",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze status = %d", rec.Code)
	}
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}
	analysis, _ := body["analysis"].(map[string]interface{})
	if analysis == nil {
		t.Fatalf("missing analysis: %v", body)
	}
	if analysis["entryZone"] != "1.0800 - 1.0900" {
		t.Errorf("entryZone = %v", analysis["entryZone"])
	}
	warning, _ := analysis["riskWarning"].(string)
	if !strings.Contains(warning, "[demo mode]") {
		t.Errorf("riskWarning = %q", warning)
	}
}

func TestAnalyzeRequiresInstrument(t *testing.T) {
	s := newTestServer(t)
	rec, _ := doJSON(t, s, http.MethodPost, "/api/v1/ai/analyze", "", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDailyStrategyFallback(t *testing.T) {
	s := newTestServer(t)

	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/ai/daily-strategy", "", map[string]string{})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	strategy, _ := body["strategy"].(map[string]interface{})
	if strategy == nil {
		t.Fatalf("missing strategy: %v", body)
	}
	if strategy["source"] != "local" {
		t.Errorf("source = %v", strategy["source"])
	}
	notes, _ := strategy["notes"].(string)
	if !strings.Contains(notes, "[demo mode]") {
		t.Errorf("notes = %q", notes)
	}
}

func TestAnalysesLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s)

	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/analyses/", token, map[string]string{
		"instrument":      "EUR/USD",
		"tradeType":       "Buy",
		"fundamentalBias": "bullish",
		"technicalBias":   "bullish",
		"marketContext":   "trending",
		"plan":            "buy dips",
		"entryZone":       "1.0800 - 1.0900",
		"stopLoss":        "1.0650",
		"takeProfit":      "1.1150",
		"riskWarning":     "size down",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("save status = %d body=%s", rec.Code, rec.Body.String())
	}
	saved, _ := body["analysis"].(map[string]interface{})
	id, _ := saved["id"].(string)
	if id == "" {
		t.Fatalf("saved analysis has no id")
	}

	rec, body = doJSON(t, s, http.MethodGet, "/api/v1/analyses/", token, nil)
	if rec.Code != http.StatusOK || body["count"].(float64) != 1 {
		t.Fatalf("list status=%d body=%v", rec.Code, body)
	}

	rec, _ = doJSON(t, s, http.MethodDelete, "/api/v1/analyses/"+id, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec, _ = doJSON(t, s, http.MethodDelete, "/api/v1/analyses/"+id, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestSaveAnalysisRejectsIncomplete(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s)

	rec, _ := doJSON(t, s, http.MethodPost, "/api/v1/analyses/", token, map[string]string{
		"instrument": "EUR/USD",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
