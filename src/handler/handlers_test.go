package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"neotrade/src/identity"
	"neotrade/src/ledger"
	"neotrade/src/model"
	"neotrade/src/rules"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSnapshots struct {
	orders []model.Order
	err    error
}

func (s *stubSnapshots) Snapshot(context.Context, model.Identity) ([]model.Order, error) {
	return s.orders, s.err
}

func order(symbol string, side model.Side, price string, qty int64) model.Order {
	return model.Order{Symbol: symbol, Side: side, Price: decimal.RequireFromString(price), Quantity: qty, Status: model.OrderStatusExecuted}
}

func TestPositionsHandler(t *testing.T) {
	snaps := &stubSnapshots{orders: []model.Order{
		order("GOLD (MCX)", model.SideCall, "50", 1),
		order("GOLD (MCX)", model.SideCall, "52", 1),
		order("X", model.SideBuy, "100", 1),
		order("X", model.SideSell, "110", 1),
	}}
	prices := staticPrices{"GOLD (MCX)": decimal.RequireFromString("55")}

	rr := httptest.NewRecorder()
	PositionsHandler(snaps, prices).ServeHTTP(rr, withAlice(httptest.NewRequest(http.MethodGet, "/positions", nil)))
	require.Equal(t, http.StatusOK, rr.Code)

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1, "flat X is not a holding")
	assert.Equal(t, "GOLD (MCX)", got[0]["symbol"])
}

func TestPositionsHandler_LedgerFailure(t *testing.T) {
	snaps := &stubSnapshots{err: &ledger.PersistenceError{Op: "snapshot", Err: errors.New("down")}}
	rr := httptest.NewRecorder()
	PositionsHandler(snaps, staticPrices{}).ServeHTTP(rr, withAlice(httptest.NewRequest(http.MethodGet, "/positions", nil)))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func rulesRequest(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("symbol", "GOLD (MCX)")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	return withAlice(req)
}

func TestRulesHandler(t *testing.T) {
	snaps := &stubSnapshots{orders: []model.Order{order("GOLD (MCX)", model.SidePut, "62450", 1)}}

	rr := httptest.NewRecorder()
	RulesHandler(snaps).ServeHTTP(rr, rulesRequest("/rules/GOLD?profitLock=true&lastExitPrice=62400.5"))
	require.Equal(t, http.StatusOK, rr.Code)

	var got rulesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "GOLD (MCX)", got.Symbol)
	assert.Equal(t, int64(-1), got.NetQuantity)
	require.Len(t, got.Rules, 4)
	assert.Equal(t, rules.StateActive, got.Rules[0].State)
	assert.Equal(t, rules.StateLocked, got.Rules[1].State)
	assert.Equal(t, rules.StateFollowing, got.Rules[2].State)
	assert.Equal(t, rules.StateWatching, got.Rules[3].State)

	rr = httptest.NewRecorder()
	RulesHandler(snaps).ServeHTTP(rr, rulesRequest("/rules/GOLD?lastExitPrice=abc"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

type stubInsighter struct {
	text   string
	err    error
	prompt string
}

func (s *stubInsighter) Insight(_ context.Context, _ model.Identity, prompt string) (string, error) {
	s.prompt = prompt
	return s.text, s.err
}

func TestInsightsHandler(t *testing.T) {
	svc := &stubInsighter{text: "Trend continuation favoured."}
	rr := httptest.NewRecorder()
	InsightsHandler(svc).ServeHTTP(rr, withAlice(httptest.NewRequest(http.MethodPost, "/insights", nil)))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"text":"Trend continuation favoured."}`, rr.Body.String())
	assert.Empty(t, svc.prompt)

	failing := &stubInsighter{err: errors.New("quota")}
	rr = httptest.NewRecorder()
	InsightsHandler(failing).ServeHTTP(rr,
		withAlice(httptest.NewRequest(http.MethodPost, "/insights", strings.NewReader(`{"prompt":"gold?"}`))))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "gold?", failing.prompt)
}

type stubResolver struct {
	grant *identity.Grant
	err   error
	cred  string
}

func (s *stubResolver) Resolve(_ context.Context, cred string) (*identity.Grant, error) {
	s.cred = cred
	return s.grant, s.err
}

func TestSessionHandler(t *testing.T) {
	anon := &stubResolver{grant: &identity.Grant{
		Identity:   model.Identity{Tenant: "t", UserID: "u1", Anonymous: true},
		Credential: "u1.secret",
	}}
	rr := httptest.NewRecorder()
	SessionHandler(anon).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/session", nil))

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"user_id":"u1","tenant":"t","anonymous":true,"token":"u1.secret"}`, rr.Body.String())
	assert.Empty(t, anon.cred)

	known := &stubResolver{grant: &identity.Grant{Identity: model.Identity{Tenant: "t", UserID: "u1"}}}
	req := httptest.NewRequest(http.MethodPost, "/session", nil)
	req.Header.Set("Authorization", "Bearer u1.secret")
	rr = httptest.NewRecorder()
	SessionHandler(known).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "u1.secret", known.cred)

	bad := &stubResolver{err: &identity.IdentityError{Reason: "mismatch", Err: identity.ErrInvalidCredential}}
	rr = httptest.NewRecorder()
	SessionHandler(bad).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/session", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

type stubTicks []model.Tick

func (s stubTicks) Snapshot() []model.Tick { return s }

func TestTicksHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	TicksHandler(stubTicks{{Symbol: "NIFTY 50 (Index)", Class: model.InstrumentClassIndex, Trend: model.TrendUp}}).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ticks", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got []model.Tick
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, model.InstrumentClassIndex, got[0].Class)
}
