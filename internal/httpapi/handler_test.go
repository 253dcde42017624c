package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/wargame/internal/calculator"
	"github.com/mitchelldurbincs/wargame/internal/game/battle"
	"github.com/mitchelldurbincs/wargame/internal/game/rules"
	"github.com/mitchelldurbincs/wargame/internal/odds"
	"github.com/mitchelldurbincs/wargame/internal/testutil"
)

func newTestServer(t *testing.T, rs *rules.Ruleset) *httptest.Server {
	t.Helper()
	calc, err := calculator.New(rs, calculator.Options{
		RunCount:      50,
		MaxRunCount:   500,
		ProgressEvery: 10,
		Workers:       2,
		Timeout:       30 * time.Second,
	}, odds.NewMemoryCache(time.Minute, 0), nil, testutil.NopLogger())
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(calc, testutil.NopLogger()).Router())
	t.Cleanup(srv.Close)
	return srv
}

func postOdds(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/odds", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCalculateHandler(t *testing.T) {
	srv := newTestServer(t, rules.Classic())

	resp := postOdds(t, srv, `{"location":"Egypt","attacker":{"armour":20},"defender":{"infantry":1}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var out calculator.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, calculator.StatusOK, out.Status)
	require.NotNil(t, out.Result)
	assert.Equal(t, 50, out.Result.RunCount)
	assert.Equal(t, battle.WinnerAttacker, out.Result.Winner)
}

func TestCalculateHandler_LossSettings(t *testing.T) {
	srv := newTestServer(t, rules.Classic())

	resp := postOdds(t, srv, `{"attacker":{"infantry":2,"armour":1},"defender":{"infantry":2},`+
		`"estimator":"lanchester","attacker_order_of_losses":["armour"],`+
		`"keep_one_attacking_land_unit":true,"amphibious":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out calculator.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotNil(t, out.Result)
	assert.Equal(t, map[string]int{"infantry": 1}, out.Result.AttackerSurvivors)
	assert.Equal(t, 1.0, out.Result.AverageAttackerUnitsLeftWhenAttackerWon)
}

func TestCalculateHandler_Errors(t *testing.T) {
	srv := newTestServer(t, rules.Classic())

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `{"attacker":`, http.StatusBadRequest},
		{"unknown field", `{"attackers":{"infantry":1}}`, http.StatusBadRequest},
		{"unknown unit", `{"attacker":{"dragon":1},"defender":{"infantry":1}}`, http.StatusBadRequest},
		{"unknown estimator", `{"attacker":{"infantry":1},"defender":{"infantry":1},"estimator":"oracle"}`, http.StatusBadRequest},
		{"unknown type in order of losses", `{"attacker":{"infantry":1},"defender":{"infantry":1},"attacker_order_of_losses":["dragon"]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postOdds(t, srv, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestCalculateHandler_CouldNotCompute(t *testing.T) {
	srv := newTestServer(t, testutil.WithRules(func(rs *rules.Ruleset) { rs.MaxRounds = 0 }))

	resp := postOdds(t, srv, `{"attacker":{"infantry":1},"defender":{"infantry":1},"run_count":5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out calculator.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, calculator.StatusCouldNotCompute, out.Status)
	assert.Nil(t, out.Result)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, rules.Classic())

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/odds", http.StatusMethodNotAllowed},
		{http.MethodPut, "/api/odds", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/rules", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/api/stats", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/nowhere", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRulesAndStats(t *testing.T) {
	srv := newTestServer(t, rules.Classic())

	resp, err := http.Get(srv.URL + "/api/rules")
	require.NoError(t, err)
	defer resp.Body.Close()
	var info calculator.RulesInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "classic", info.Name)
	assert.NotEmpty(t, info.UnitTypes)

	postOdds(t, srv, `{"attacker":{"infantry":2},"defender":{"infantry":1},"estimator":"lanchester"}`)

	resp2, err := http.Get(srv.URL + "/api/stats")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var stats calculator.Stats
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&stats))
	require.Len(t, stats.Estimators, 1)
	assert.Equal(t, "lanchester", stats.Estimators[0].Name)
	assert.Equal(t, int64(1), stats.Estimators[0].Requests)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, rules.Classic())

	resp, err := http.Get(srv.URL + "/api/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/odds"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServeWS(t *testing.T) {
	srv := newTestServer(t, rules.Classic())
	conn := dialWS(t, srv)

	require.NoError(t, conn.WriteJSON(calculator.Request{
		Attacker: map[string]int{"infantry": 3, "armour": 1},
		Defender: map[string]int{"infantry": 3},
		RunCount: 100,
	}))

	var progress int
	for {
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		var msg calculator.StreamMessage
		require.NoError(t, conn.ReadJSON(&msg))

		if msg.Type == calculator.MessageProgress {
			progress++
			require.NotNil(t, msg.Progress)
			assert.True(t, msg.Progress.Partial)
			continue
		}
		require.Equal(t, calculator.MessageResult, msg.Type)
		require.NotNil(t, msg.Response)
		assert.Equal(t, calculator.StatusOK, msg.Response.Status)
		assert.Equal(t, 100, msg.Response.Result.RunCount)
		break
	}
	assert.LessOrEqual(t, progress, 10)
}

func TestServeWS_BadRequest(t *testing.T) {
	srv := newTestServer(t, rules.Classic())
	conn := dialWS(t, srv)

	require.NoError(t, conn.WriteJSON(calculator.Request{
		Attacker: map[string]int{"dragon": 3},
		Defender: map[string]int{"infantry": 3},
	}))

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var msg calculator.StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, calculator.MessageError, msg.Type)
	assert.Contains(t, msg.Error, "dragon")
}
