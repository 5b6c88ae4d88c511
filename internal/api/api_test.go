package api_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/skillmatch/internal/api"
	"github.com/mcoot/skillmatch/internal/api/handler"
	apimiddleware "github.com/mcoot/skillmatch/internal/api/middleware"
	"github.com/mcoot/skillmatch/internal/api/response"
	"github.com/mcoot/skillmatch/internal/config"
	"github.com/mcoot/skillmatch/internal/factory"
	"github.com/mcoot/skillmatch/internal/rating"
	"github.com/mcoot/skillmatch/internal/testutil"
)

const (
	testClientID     = "game-server"
	testClientSecret = "s3cret"
	testTokenSecret  = "player-token-secret-player-token"
)

func basicAuth(id, secret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(id+":"+secret))
}

// serverAuth is the Authorization header a game server sends
var serverAuth = []string{"Authorization", basicAuth(testClientID, testClientSecret)}

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithConfig(t, config.New())
}

func newTestServerWithConfig(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	app := factory.NewTestAppWithConfig(cfg)
	return &testServer{
		handler: app.Router(),
		app:     app,
	}
}

func newAuthTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithConfig(t, authConfig(t))
}

// newPlayerAuthTestServer also requires player sessions on the player routes
func newPlayerAuthTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := authConfig(t)
	cfg.Auth.PlayerTokenSecret = testTokenSecret
	return newTestServerWithConfig(t, cfg)
}

func authConfig(t *testing.T) *config.Config {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testClientSecret), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := config.New()
	cfg.Auth.ClientID = testClientID
	cfg.Auth.ClientSecretHash = string(hash)
	return cfg
}

// session asks for a player token the way a trusted backend would
func (ts *testServer) session(t *testing.T, playerID string) []string {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/sessions", map[string]string{"player_id": playerID}, serverAuth...)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	session := decode[response.Session](t, rr)
	require.Equal(t, playerID, session.PlayerID)
	return []string{"Authorization", "Bearer " + session.Token}
}

func (ts *testServer) request(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[handler.ErrorResponse](t, rr).Error.Code
}

// formMatch queues four players in eu and runs a cycle
func formMatch(t *testing.T, ts *testServer) response.Match {
	t.Helper()
	for _, id := range []string{"a", "b", "c", "d"} {
		rr := ts.request(http.MethodPost, "/api/v1/queue", map[string]string{"player_id": id, "region": "eu"})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}
	rr := ts.request(http.MethodPost, "/api/v1/matchmaking/cycle", nil, serverAuth...)
	require.Equal(t, http.StatusOK, rr.Code)
	result := decode[response.CycleResult](t, rr)
	require.Len(t, result.Matches, 1)
	return result.Matches[0]
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestCreateAndGetPlayer(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/players", map[string]string{"id": "alice", "region": "eu"})
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decode[response.Player](t, rr)
	assert.Equal(t, "alice", created.ID)
	assert.Equal(t, 1500.0, created.Rating)
	assert.Equal(t, 350.0, created.RD)
	assert.Equal(t, 0.06, created.Volatility)
	assert.Equal(t, "eu", created.Region)

	rr = ts.request(http.MethodGet, "/api/v1/players/alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.Equal(t, created, decode[response.Player](t, rr))
}

func TestCreatePlayerErrors(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/players", map[string]string{"region": "eu"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, handler.CodeInvalidRequest, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/players", map[string]string{"id": "alice"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/players", map[string]string{"id": "alice", "region": "eu"})
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = ts.request(http.MethodPost, "/api/v1/players", map[string]string{"id": "alice", "region": "us"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, handler.CodePlayerExists, errorCode(t, rr))

	rr = ts.request(http.MethodGet, "/api/v1/players/nobody", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, handler.CodePlayerNotFound, errorCode(t, rr))
}

func TestQueueJoinListLeave(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/queue", map[string]string{
		"player_id":     "alice",
		"region":        "eu",
		"connection_id": "conn-1",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	entry := decode[response.QueueEntry](t, rr)
	assert.Equal(t, "alice", entry.PlayerID)
	assert.Equal(t, "eu", entry.Region)
	assert.Equal(t, "conn-1", entry.ConnectionID)

	rr = ts.request(http.MethodPost, "/api/v1/queue", map[string]string{"player_id": "alice"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, handler.CodeAlreadyInQueue, errorCode(t, rr))

	rr = ts.request(http.MethodGet, "/api/v1/queue/eu", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	q := decode[response.Queue](t, rr)
	assert.Equal(t, "eu", q.Region)
	require.Len(t, q.Entries, 1)
	assert.Equal(t, "alice", q.Entries[0].PlayerID)

	rr = ts.request(http.MethodDelete, "/api/v1/queue/alice", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodDelete, "/api/v1/queue/alice", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, handler.CodeNotInQueue, errorCode(t, rr))

	rr = ts.request(http.MethodGet, "/api/v1/queue/eu", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[response.Queue](t, rr).Entries)
}

func TestQueueJoinUnknownPlayerWithoutRegion(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/queue", map[string]string{"player_id": "ghost"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, handler.CodeRegionNotSet, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/queue", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, handler.CodeInvalidRequest, errorCode(t, rr))
}

func TestCycleCreatesMatch(t *testing.T) {
	ts := newTestServer(t)

	m := formMatch(t, ts)
	assert.Equal(t, "eu", m.Region)
	assert.Len(t, m.Team1, 2)
	assert.Len(t, m.Team2, 2)
	assert.Empty(t, m.Outcome)

	rr := ts.request(http.MethodGet, "/api/v1/matches/"+m.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, m.ID, decode[response.Match](t, rr).ID)

	rr = ts.request(http.MethodGet, "/api/v1/players/a", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	p := decode[response.Player](t, rr)
	assert.True(t, p.InMatch)
	assert.Equal(t, m.ID, p.MatchID)

	rr = ts.request(http.MethodPost, "/api/v1/queue", map[string]string{"player_id": "a"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, handler.CodeAlreadyInMatch, errorCode(t, rr))
}

func TestCycleWithEmptyQueues(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/matchmaking/cycle", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[response.CycleResult](t, rr).Matches)
	assert.Contains(t, rr.Body.String(), `"matches":[]`)
}

func TestReadyAndResult(t *testing.T) {
	ts := newTestServer(t)
	m := formMatch(t, ts)

	rr := ts.request(http.MethodPost, "/api/v1/matches/"+m.ID+"/ready", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, handler.CodeInvalidServerAddr, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/matches/"+m.ID+"/ready", map[string]string{"server_addr": "10.0.0.5:7777"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "10.0.0.5:7777", decode[response.Match](t, rr).ServerAddr)

	rr = ts.request(http.MethodPost, "/api/v1/matches/"+m.ID+"/result", map[string]string{"result": "sideways"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, handler.CodeInvalidOutcome, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/matches/"+m.ID+"/result", map[string]string{"result": "home"})
	require.Equal(t, http.StatusOK, rr.Code)
	res := decode[response.Resolution](t, rr)
	assert.Equal(t, "team1", res.Match.Outcome)
	require.Len(t, res.Players, 4)

	winners := map[string]bool{}
	for _, e := range m.Team1 {
		winners[e.PlayerID] = true
	}
	for _, p := range res.Players {
		assert.False(t, p.InMatch)
		assert.Empty(t, p.ServerAddr)
		assert.Equal(t, 1, p.MatchesPlayed)
		if winners[p.ID] {
			assert.Greater(t, p.Rating, 1500.0)
		} else {
			assert.Less(t, p.Rating, 1500.0)
		}
	}

	rr = ts.request(http.MethodPost, "/api/v1/matches/"+m.ID+"/result", map[string]string{"result": "away"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, handler.CodeMatchNotFound, errorCode(t, rr))
}

func TestUnknownMatch(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/matches/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, handler.CodeMatchNotFound, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/matches/nope/result", map[string]string{"result": "draw"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestClientAuthGuardsCallbacks(t *testing.T) {
	ts := newAuthTestServer(t)
	m := formMatch(t, ts)
	readyPath := "/api/v1/matches/" + m.ID + "/ready"
	body := map[string]string{"server_addr": "10.0.0.5:7777"}

	rr := ts.request(http.MethodPost, readyPath, body)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, handler.CodeUnauthorized, errorCode(t, rr))

	rr = ts.request(http.MethodPost, readyPath, body, "Authorization", basicAuth(testClientID, "wrong"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodPost, readyPath, body, "Authorization", basicAuth("someone-else", testClientSecret))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodPost, readyPath, body, "Authorization", "not base64!")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodPost, readyPath, body, "Authorization", basicAuth(testClientID, testClientSecret))
	assert.Equal(t, http.StatusOK, rr.Code)

	// bare token without the Basic scheme
	token := base64.StdEncoding.EncodeToString([]byte(testClientID + ":" + testClientSecret))
	rr = ts.request(http.MethodPost, "/api/v1/matches/"+m.ID+"/result", map[string]string{"result": "draw"}, "Authorization", token)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestClientAuthLeavesPublicRoutesOpen(t *testing.T) {
	ts := newAuthTestServer(t)
	m := formMatch(t, ts)

	rr := ts.request(http.MethodGet, "/api/v1/matches/"+m.ID, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestClientAuthGuardsCycle(t *testing.T) {
	ts := newAuthTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/matchmaking/cycle", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/matchmaking/cycle", nil, serverAuth...)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSessionsNeedClientCredentials(t *testing.T) {
	ts := newPlayerAuthTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/sessions", map[string]string{"player_id": "alice"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/sessions", map[string]string{}, serverAuth...)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, handler.CodeInvalidRequest, errorCode(t, rr))

	// without a token secret there is nothing to issue
	rr = newAuthTestServer(t).request(http.MethodPost, "/api/v1/sessions", map[string]string{"player_id": "alice"}, serverAuth...)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPlayerRoutesNeedSession(t *testing.T) {
	ts := newPlayerAuthTestServer(t)

	for _, req := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/players"},
		{http.MethodGet, "/api/v1/players/alice"},
		{http.MethodPost, "/api/v1/queue"},
		{http.MethodDelete, "/api/v1/queue/alice"},
		{http.MethodGet, "/api/v1/queue/eu"},
		{http.MethodGet, "/api/v1/matches/m-1"},
	} {
		rr := ts.request(req.method, req.path, map[string]string{"player_id": "alice", "region": "eu"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code, req.path)
		assert.Equal(t, handler.CodeUnauthorized, errorCode(t, rr), req.path)
	}

	rr := ts.request(http.MethodGet, "/api/v1/queue/eu", nil, "Authorization", "Bearer forged")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// game-server credentials are not a player session
	rr = ts.request(http.MethodGet, "/api/v1/queue/eu", nil, serverAuth...)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestPlayerSessionActsOnlyForItsPlayer(t *testing.T) {
	ts := newPlayerAuthTestServer(t)
	alice := ts.session(t, "alice")
	bob := ts.session(t, "bob")

	// the id comes from the session when omitted
	rr := ts.request(http.MethodPost, "/api/v1/players", map[string]string{"region": "eu"}, alice...)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "alice", decode[response.Player](t, rr).ID)

	rr = ts.request(http.MethodPost, "/api/v1/players", map[string]string{"id": "alice", "region": "us"}, bob...)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, handler.CodeForbidden, errorCode(t, rr))

	rr = ts.request(http.MethodGet, "/api/v1/players/alice", nil, bob...)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = ts.request(http.MethodGet, "/api/v1/players/alice", nil, alice...)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/queue", map[string]string{"player_id": "alice"}, bob...)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = ts.request(http.MethodPost, "/api/v1/queue", map[string]string{}, alice...)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "alice", decode[response.QueueEntry](t, rr).PlayerID)

	rr = ts.request(http.MethodDelete, "/api/v1/queue/alice", nil, bob...)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/queue/eu", nil, bob...)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[response.Queue](t, rr).Entries, 1)

	rr = ts.request(http.MethodDelete, "/api/v1/queue/alice", nil, alice...)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestPlayerSessionExpires(t *testing.T) {
	ts := newPlayerAuthTestServer(t)
	alice := ts.session(t, "alice")

	rr := ts.request(http.MethodPost, "/api/v1/queue", map[string]string{"region": "eu"}, alice...)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	ts.app.MockClock.Advance(25 * time.Hour)
	rr = ts.request(http.MethodDelete, "/api/v1/queue/alice", nil, alice...)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, handler.CodeUnauthorized, errorCode(t, rr))
}

func TestSessionCookieAccepted(t *testing.T) {
	ts := newPlayerAuthTestServer(t)
	bearer := ts.session(t, "alice")
	token := strings.TrimPrefix(bearer[1], "Bearer ")

	rr := ts.request(http.MethodGet, "/api/v1/queue/eu", nil, "Cookie", "session="+token)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	ts.request(http.MethodGet, "/api/v1/players/nobody", nil)
	ts.request(http.MethodGet, "/api/v1/players/someone", nil)
	formMatch(t, ts)

	rr := ts.request(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `skillmatch_http_requests_total{method="GET",route="/api/v1/players/{id}",status_code="404"} 2`)
	assert.Contains(t, body, `skillmatch_queue_joins_total{region="eu"} 4`)
	assert.Contains(t, body, `skillmatch_matchmaking_matches_created_total{region="eu"} 1`)
}

func TestRecoveryReturnsJSON(t *testing.T) {
	// no controllers wired, so the handler panics
	router := api.NewRouter(api.RouterConfig{Logger: testutil.NopLogger()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/players/x", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, handler.CodeInternalError, errorCode(t, rr))
}

func TestRecoveryReportsSolverDivergence(t *testing.T) {
	r := mux.NewRouter()
	r.Use(apimiddleware.Recovery(testutil.NopLogger()))
	r.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic(fmt.Errorf("%w: refinement exceeded 5 iterations", rating.ErrSolverDiverged))
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "did not converge")
}
