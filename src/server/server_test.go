package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"neotrade/src/database"
	"neotrade/src/feed"
	"neotrade/src/identity"
	"neotrade/src/insight"
	"neotrade/src/ledger"
	"neotrade/src/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	db, err := database.Open(database.Config{
		Driver:          "sqlite",
		DatabaseURLMain: "file:" + t.Name() + "?mode=memory&cache=shared",
		GormLogLevel:    1,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	gemini := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Nifty consolidating."}]}}]}`))
	}))
	t.Cleanup(gemini.Close)

	app, err := NewApp(Options{
		AppID:    "neotrade-neo-rules",
		DB:       db,
		Identity: &identity.Config{BcryptCost: bcrypt.MinCost},
		Feed:     &feed.Config{Watchlist: "GOLD (MCX):MCX:62450.00;NIFTY 50 (Index):INDEX:22453.20", Seed: 11},
		Ledger:   &ledger.Config{Notifier: "local"},
		Insight:  &insight.Config{BaseURL: gemini.URL, Model: "m", APIKey: "k"},
	})
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app
}

type apiClient struct {
	t     *testing.T
	base  string
	token string
}

func (c *apiClient) do(method, path, body string) (int, []byte) {
	c.t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, c.base+path, rdr)
	require.NoError(c.t, err)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, raw
}

func TestTerminalFlow(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(NewRouter(app, []string{"http://localhost:3000"}))
	defer srv.Close()

	c := &apiClient{t: t, base: srv.URL}

	status, body := c.do(http.MethodGet, "/healthcheck", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "OK", string(body))

	status, _ = c.do(http.MethodGet, "/positions", "")
	require.Equal(t, http.StatusUnauthorized, status)

	status, body = c.do(http.MethodPost, "/session", "")
	require.Equal(t, http.StatusCreated, status)
	var session struct {
		UserID string `json:"user_id"`
		Token  string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &session))
	require.NotEmpty(t, session.Token)
	c.token = session.Token

	status, _ = c.do(http.MethodPost, "/orders", `{"symbol":"GOLD (MCX)","side":"CALL","quantity":2}`)
	require.Equal(t, http.StatusCreated, status)

	status, body = c.do(http.MethodPost, "/orders/reverse", `{"symbol":"GOLD (MCX)","client_order_id":"rev-1"}`)
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = c.do(http.MethodGet, "/orders", "")
	require.Equal(t, http.StatusOK, status)
	var orders []model.Order
	require.NoError(t, json.Unmarshal(body, &orders))
	require.Len(t, orders, 3)
	assert.Equal(t, model.SidePut, orders[0].Side)
	assert.Equal(t, model.OrderStatusSquaredOff, orders[1].Status)
	assert.Equal(t, model.SideSell, orders[1].Side)
	assert.Equal(t, int64(2), orders[1].Quantity)
	assert.Equal(t, session.UserID, orders[0].UserID)

	status, body = c.do(http.MethodGet, "/positions", "")
	require.Equal(t, http.StatusOK, status)
	var holdings []model.Position
	require.NoError(t, json.Unmarshal(body, &holdings))
	require.Len(t, holdings, 1)
	assert.Equal(t, int64(-1), holdings[0].NetQuantity)
	require.NotNil(t, holdings[0].LastPrice)

	status, body = c.do(http.MethodGet, "/rules/GOLD%20(MCX)?profitLock=true", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"FOLLOWING"`)
	assert.Contains(t, string(body), `"LOCKED"`)

	status, _ = c.do(http.MethodPost, "/orders/reverse", `{"symbol":"NIFTY 50 (Index)"}`)
	assert.Equal(t, http.StatusConflict, status)

	status, body = c.do(http.MethodPost, "/insights", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"text":"Nifty consolidating."}`, string(body))

	status, body = c.do(http.MethodGet, "/ticks", "")
	require.Equal(t, http.StatusOK, status)
	var ticks []model.Tick
	require.NoError(t, json.Unmarshal(body, &ticks))
	require.Len(t, ticks, 2)
}

func TestGetConfigPrefersServerPort(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("SERVER_PORT", "9000")
	assert.Equal(t, "9000", GetConfig().Port)
}

func TestRouterAnswersCORSPreflight(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(NewRouter(app, []string{"http://localhost:3000"}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/orders", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	// browsers send the requested header names lowercased
	req.Header.Set("Access-Control-Request-Headers", "authorization")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "authorization", strings.ToLower(resp.Header.Get("Access-Control-Allow-Headers")))

	req.Header.Set("Origin", "http://evil.example")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()

	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}
