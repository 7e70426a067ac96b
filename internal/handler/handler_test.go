package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/rmcmillan34/edge-journal/internal/config"
	"github.com/rmcmillan34/edge-journal/internal/db/dbtest"
	"github.com/rmcmillan34/edge-journal/internal/notify"
	"github.com/rmcmillan34/edge-journal/internal/playbook"
	gormrepository "github.com/rmcmillan34/edge-journal/internal/repository/gorm"
	"github.com/rmcmillan34/edge-journal/internal/service"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
}

type testAPI struct {
	engine *gin.Engine
	hub    *notify.Hub
}

func newAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := gormrepository.New(dbtest.Open(t).Gorm)
	hub := notify.NewHub(nil)
	settings := &service.SettingsService{Repo: store, Defaults: config.RulesDefault{
		MaxLossesRowDay:           3,
		MaxLosingDaysStreakWeek:   2,
		MaxLosingWeeksStreakMonth: 2,
		AlertsEnabled:             true,
		EnforcementMode:           "off",
	}}
	switches := &service.SystemSettingsService{Repo: store}
	g := &service.GuardrailService{Repo: store, Settings: settings, Switches: switches, Notifier: hub, Location: time.UTC}
	engine := NewEngine(Deps{
		DB: store,
		Playbooks: &service.PlaybookService{
			Repo:              store,
			Guardrail:         g,
			Settings:          settings,
			DefaultThresholds: playbook.DefaultThresholds(),
			DefaultSchedule:   playbook.DefaultRiskSchedule(),
		},
		Guardrail: g,
		Ledger:    &service.BreachLedger{Repo: store, Location: time.UTC},
		Settings:  settings,
		Switches:  switches,
		Accounts:  &service.AccountService{Repo: store},
		Trades:    &service.TradeService{Repo: store, Guardrail: g, Switches: switches},
		Hub:       hub,
		Auth:      config.AuthConfig{Disabled: true},
		Location:  time.UTC,
	})
	return &testAPI{engine: engine, hub: hub}
}

func (a *testAPI) do(t *testing.T, method, path string, body any, user uint64) (int, envelope) {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if user != 0 {
		req.Header.Set("X-User-ID", fmt.Sprint(user))
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

var templateBody = map[string]any{
	"name":                  "Setup",
	"purpose":               "pre",
	"template_max_risk_pct": 2.0,
	"schema": []map[string]any{
		{"key": "plan", "label": "Plan followed", "type": "boolean", "required": true},
		{"key": "confidence", "label": "Confidence", "type": "rating"},
	},
}

func TestHealth(t *testing.T) {
	api := newAPI(t)
	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	w = httptest.NewRecorder()
	api.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready"}`, w.Body.String())
}

func TestTemplateLifecycle(t *testing.T) {
	api := newAPI(t)

	code, env := api.do(t, http.MethodPost, "/api/v1/playbooks/templates", templateBody, 1)
	require.Equal(t, http.StatusCreated, code, env.Message)
	v1 := decode[service.TemplateRecord](t, env.Data)
	assert.Equal(t, 1, v1.Version)

	code, _ = api.do(t, http.MethodPost, "/api/v1/playbooks/templates", templateBody, 1)
	assert.Equal(t, http.StatusConflict, code)

	code, env = api.do(t, http.MethodPost, "/api/v1/playbooks/templates", map[string]any{"name": "", "purpose": "later"}, 1)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, env.Meta["problems"])

	code, env = api.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/playbooks/templates/%d", v1.ID), map[string]any{"description": "v2"}, 1)
	require.Equal(t, http.StatusCreated, code, env.Message)
	v2 := decode[service.TemplateRecord](t, env.Data)
	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, "v2", v2.Description)

	// another user cannot see it
	code, _ = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/playbooks/templates/%d", v1.ID), nil, 2)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = api.do(t, http.MethodGet, "/api/v1/playbooks/templates/abc", nil, 1)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = api.do(t, http.MethodGet, "/api/v1/playbooks/templates?purpose=pre", nil, 1)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]service.TemplateRecord](t, env.Data), 2)

	code, env = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/playbooks/templates/%d/clone", v1.ID), nil, 1)
	require.Equal(t, http.StatusCreated, code, env.Message)
	assert.Equal(t, "Setup (Copy)", decode[service.TemplateRecord](t, env.Data).Name)

	code, env = api.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/playbooks/templates/%d", v1.ID), nil, 1)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, decode[service.TemplateRecord](t, env.Data).IsActive)
}

func TestExportImport(t *testing.T) {
	api := newAPI(t)
	_, env := api.do(t, http.MethodPost, "/api/v1/playbooks/templates", templateBody, 1)
	v1 := decode[service.TemplateRecord](t, env.Data)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/playbooks/templates/%d/export", v1.ID), nil)
	api.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
	doc := w.Body.String()
	assert.Contains(t, doc, "name: Setup")

	code, env := api.do(t, http.MethodPost, "/api/v1/playbooks/templates/import", doc, 2)
	require.Equal(t, http.StatusCreated, code, env.Message)
	imported := decode[service.TemplateRecord](t, env.Data)
	assert.Equal(t, v1.Schema, imported.Schema)

	code, _ = api.do(t, http.MethodPost, "/api/v1/playbooks/templates/import", "", 2)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestQuickstarts(t *testing.T) {
	api := newAPI(t)
	code, env := api.do(t, http.MethodGet, "/api/v1/playbooks/quickstarts", nil, 1)
	require.Equal(t, http.StatusOK, code)
	items := decode[[]playbook.Quickstart](t, env.Data)
	require.NotEmpty(t, items)

	code, _ = api.do(t, http.MethodPost, "/api/v1/playbooks/quickstarts/"+items[0].Slug, nil, 1)
	assert.Equal(t, http.StatusCreated, code)
	code, _ = api.do(t, http.MethodPost, "/api/v1/playbooks/quickstarts/missing", nil, 1)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestEvaluatePreview(t *testing.T) {
	api := newAPI(t)
	code, env := api.do(t, http.MethodPost, "/api/v1/playbooks/evaluate", map[string]any{
		"schema":                []map[string]any{{"key": "a", "type": "boolean"}, {"key": "b", "type": "boolean"}},
		"template_max_risk_pct": 2.0,
		"intended_risk_pct":     0.5,
		"values":                map[string]any{"a": true, "b": true},
	}, 1)
	require.Equal(t, http.StatusOK, code, env.Message)
	eval := decode[playbook.Evaluation](t, env.Data)
	assert.Equal(t, 1.0, eval.ComplianceScore)
	assert.Equal(t, playbook.GradeA, eval.Grade)
	assert.InDelta(t, 2.0, *eval.RiskCapPct, 1e-9)
	assert.False(t, eval.Exceeded)
}

func TestResponsesAndBlockMode(t *testing.T) {
	api := newAPI(t)
	_, env := api.do(t, http.MethodPost, "/api/v1/playbooks/templates", templateBody, 1)
	tpl := decode[service.TemplateRecord](t, env.Data)

	code, env := api.do(t, http.MethodPost, "/api/v1/trades", map[string]any{
		"symbol": "es", "net_pnl": "12.5", "closed_at": "2024-03-05T15:00:00Z",
	}, 1)
	require.Equal(t, http.StatusCreated, code, env.Message)
	trade := decode[struct {
		Trade tradeDTO `json:"trade"`
	}](t, env.Data).Trade
	assert.Equal(t, "ES", trade.Symbol)

	path := fmt.Sprintf("/api/v1/trades/%d/playbook-responses", trade.ID)
	code, env = api.do(t, http.MethodPost, path, map[string]any{
		"template_id": tpl.ID,
		"values":      map[string]any{"plan": true, "confidence": 5},
	}, 1)
	require.Equal(t, http.StatusCreated, code, env.Message)
	saved := decode[service.SaveResult](t, env.Data)
	responseID := saved.Response.ID

	code, _ = api.do(t, http.MethodPut, "/api/v1/settings/trading-rules", map[string]any{
		"max_losses_row_day": 3, "enforcement_mode": "block", "alerts_enabled": true,
	}, 1)
	require.Equal(t, http.StatusOK, code)

	code, env = api.do(t, http.MethodPost, path, map[string]any{
		"template_id":       tpl.ID,
		"values":            map[string]any{"plan": false},
		"intended_risk_pct": 1.5,
	}, 1)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "risk_cap_exceeded", env.Meta["rule"])

	code, env = api.do(t, http.MethodGet, path, nil, 1)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]service.ResponseRecord](t, env.Data), 1)

	code, env = api.do(t, http.MethodGet, "/api/v1/breaches?scope=trade", nil, 1)
	require.Equal(t, http.StatusOK, code)
	breaches := decode[[]service.BreachRecord](t, env.Data)
	require.Len(t, breaches, 1)

	code, env = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/playbooks/grades?trade_ids=%d", trade.ID), nil, 1)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]playbook.Grade{fmt.Sprint(trade.ID): playbook.GradeA}, decode[map[string]playbook.Grade](t, env.Data))

	evPath := fmt.Sprintf("/api/v1/playbook-responses/%d/evidence", responseID)
	code, env = api.do(t, http.MethodPost, evPath, map[string]any{"field_key": "plan", "source_kind": "url", "url": "https://example.com/chart.png"}, 1)
	require.Equal(t, http.StatusCreated, code, env.Message)
	ev := decode[evidenceDTO](t, env.Data)
	code, env = api.do(t, http.MethodGet, evPath, nil, 1)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]evidenceDTO](t, env.Data), 1)
	code, _ = api.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", evPath, ev.ID), nil, 1)
	assert.Equal(t, http.StatusOK, code)
	code, _ = api.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", evPath, ev.ID), nil, 1)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestJournalResponses(t *testing.T) {
	api := newAPI(t)
	_, env := api.do(t, http.MethodPost, "/api/v1/playbooks/templates", templateBody, 1)
	tpl := decode[service.TemplateRecord](t, env.Data)

	code, _ := api.do(t, http.MethodGet, "/api/v1/journal/2024-03-05/instrument/NQ/playbook-response", nil, 1)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = api.do(t, http.MethodPost, "/api/v1/journal/2024-03-05/instrument/nq/playbook-responses", map[string]any{
		"template_id": tpl.ID, "values": map[string]any{"plan": true},
	}, 1)
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, env = api.do(t, http.MethodGet, "/api/v1/journal/2024-03-05/instrument/NQ/playbook-response", nil, 1)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "NQ", *decode[service.ResponseRecord](t, env.Data).Symbol)

	code, _ = api.do(t, http.MethodGet, "/api/v1/journal/03-05-2024/instrument/NQ/playbook-responses", nil, 1)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestScanGateAndAck(t *testing.T) {
	api := newAPI(t)
	code, _ := api.do(t, http.MethodPut, "/api/v1/settings/trading-rules", map[string]any{
		"max_losses_row_day": 2, "enforcement_mode": "block",
	}, 1)
	require.Equal(t, http.StatusOK, code)
	for _, at := range []string{"2024-03-05T09:00:00Z", "2024-03-05T10:00:00Z"} {
		code, env := api.do(t, http.MethodPost, "/api/v1/trades", map[string]any{"symbol": "ES", "net_pnl": "-1", "closed_at": at}, 1)
		require.Equal(t, http.StatusCreated, code, env.Message)
	}

	code, env := api.do(t, http.MethodPost, "/api/v1/guardrails/scan", map[string]any{"from": "2024-03-05", "to": "2024-03-05"}, 1)
	require.Equal(t, http.StatusOK, code, env.Message)
	report := decode[service.ScanReport](t, env.Data)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 1, report.Updated)

	code, _ = api.do(t, http.MethodPost, "/api/v1/guardrails/scan", map[string]any{"from": "yesterday"}, 1)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = api.do(t, http.MethodGet, "/api/v1/guardrails/gate?date=2024-03-05", nil, 1)
	require.Equal(t, http.StatusOK, code)
	gate := decode[service.GateDecision](t, env.Data)
	assert.False(t, gate.Allowed)
	require.Len(t, gate.Breaches, 1)

	code, env = api.do(t, http.MethodPost, "/api/v1/trades", map[string]any{"symbol": "ES", "net_pnl": "3", "closed_at": "2024-03-05T12:00:00Z"}, 1)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "loss_streak_day", env.Meta["rule"])

	code, _ = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/breaches/%d/ack", gate.Breaches[0].ID), nil, 2)
	assert.Equal(t, http.StatusNotFound, code)
	code, env = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/breaches/%d/ack", gate.Breaches[0].ID), nil, 1)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decode[service.BreachRecord](t, env.Data).Acknowledged)

	code, env = api.do(t, http.MethodGet, "/api/v1/breaches?acknowledged=false", nil, 1)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]service.BreachRecord](t, env.Data))

	code, _ = api.do(t, http.MethodGet, "/api/v1/breaches?start=2024-13-01", nil, 1)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAccountsAndRiskCap(t *testing.T) {
	api := newAPI(t)
	code, env := api.do(t, http.MethodPost, "/api/v1/accounts", map[string]any{"name": "Main", "account_max_risk_pct": 1.0}, 1)
	require.Equal(t, http.StatusCreated, code, env.Message)
	acct := decode[accountDTO](t, env.Data)

	path := fmt.Sprintf("/api/v1/accounts/%d/risk-cap", acct.ID)
	code, _ = api.do(t, http.MethodPut, path, map[string]any{"account_max_risk_pct": 150}, 1)
	assert.Equal(t, http.StatusBadRequest, code)
	code, env = api.do(t, http.MethodPut, path, map[string]any{"account_max_risk_pct": nil}, 1)
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, decode[accountDTO](t, env.Data).AccountMaxRiskPct)

	code, env = api.do(t, http.MethodGet, "/api/v1/accounts", nil, 1)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]accountDTO](t, env.Data), 1)
	code, env = api.do(t, http.MethodGet, "/api/v1/accounts", nil, 2)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]accountDTO](t, env.Data))
}

func TestSwitches(t *testing.T) {
	api := newAPI(t)
	code, env := api.do(t, http.MethodPut, "/api/v1/settings/switches/breach_alerts", map[string]any{"enabled": false}, 1)
	require.Equal(t, http.StatusOK, code)
	code, env = api.do(t, http.MethodGet, "/api/v1/settings/switches/breach_alerts", nil, 1)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, decode[map[string]any](t, env.Data)["enabled"])
	code, _ = api.do(t, http.MethodGet, "/api/v1/settings/switches/nope", nil, 1)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBreachStream(t *testing.T) {
	api := newAPI(t)
	srv := httptest.NewServer(api.engine)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/breaches/stream"
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: http.Header{"X-User-ID": []string{"7"}}})
	require.NoError(t, err)
	defer conn.CloseNow()

	require.Eventually(t, func() bool { return api.hub.Subscribers(7) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, api.hub.Publish(ctx, notify.Alert{BreachID: 3, UserID: 8, RuleKey: "other_user"}))
	require.NoError(t, api.hub.Publish(ctx, notify.Alert{BreachID: 9, UserID: 7, RuleKey: "loss_streak_day", DateOrWeek: "2024-03-05"}))

	var got notify.Alert
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	assert.Equal(t, uint64(9), got.BreachID)
	assert.Equal(t, "loss_streak_day", got.RuleKey)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "done"))
	require.Eventually(t, func() bool { return api.hub.Subscribers(7) == 0 }, 2*time.Second, 10*time.Millisecond)
}
