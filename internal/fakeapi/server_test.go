package fakeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bnema/fleet-cli/internal/adapters/auth"
	"github.com/bnema/fleet-cli/internal/adapters/token"
	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var alice = Account{
	Username: "alice",
	Password: "secret",
	Profile:  domain.UserProfile{ID: "u-1", Email: "alice@example.com", Role: "admin", CustomerName: "Acme"},
}

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()

	if opts.Accounts == nil {
		opts.Accounts = []Account{alice}
	}
	s := New(opts)
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return s, srv
}

func endpointFor(srv *httptest.Server) auth.Endpoint {
	return auth.Endpoint{API: auth.DefaultAPI(srv.URL), HTTPClient: srv.Client()}
}

func login(t *testing.T, srv *httptest.Server) domain.TokenGrant {
	t.Helper()

	grant, err := endpointFor(srv).Login(context.Background(), domain.LoginCredentials{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	return grant
}

func call(t *testing.T, srv *httptest.Server, method string, path string, accessToken string, body any, header http.Header) (int, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	for key, values := range header {
		req.Header[key] = values
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, buf.Bytes()
}

func TestLoginIssuesDecodableTokens(t *testing.T) {
	s, srv := newTestServer(t, Options{})

	grant := login(t, srv)

	assert.Equal(t, 1, s.LoginCalls())
	assert.NotEmpty(t, grant.RefreshToken)
	require.NotNil(t, grant.User)
	assert.Equal(t, "alice", grant.User.Username)

	user, ok := token.DecodeUser(grant.AccessToken)
	require.True(t, ok)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, "Acme", user.CustomerName)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	_, srv := newTestServer(t, Options{})

	_, err := endpointFor(srv).Login(context.Background(), domain.LoginCredentials{Username: "alice", Password: "nope"})

	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "No active account")
}

func TestLongTokenFieldsWithoutUser(t *testing.T) {
	_, srv := newTestServer(t, Options{LongTokenFields: true, OmitUser: true})

	status, body := call(t, srv, http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "secret"}, nil)

	require.Equal(t, http.StatusOK, status)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Contains(t, payload, "access_token")
	assert.Contains(t, payload, "refresh_token")
	assert.NotContains(t, payload, "user")
}

func TestRefreshTokensAreSingleUse(t *testing.T) {
	s, srv := newTestServer(t, Options{})
	endpoint := endpointFor(srv)
	grant := login(t, srv)

	rotated, err := endpoint.Refresh(context.Background(), grant.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, grant.RefreshToken, rotated.RefreshToken)

	_, err = endpoint.Refresh(context.Background(), grant.RefreshToken)
	var failed *domain.RequestFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, http.StatusUnauthorized, failed.Status)
	assert.Equal(t, 2, s.RefreshCalls())
}

func TestLogoutRevokesRefreshTokens(t *testing.T) {
	_, srv := newTestServer(t, Options{})
	endpoint := endpointFor(srv)
	grant := login(t, srv)

	require.NoError(t, endpoint.Logout(context.Background(), grant.AccessToken))

	_, err := endpoint.Refresh(context.Background(), grant.RefreshToken)
	require.Error(t, err)
}

func TestMeReturnsProfile(t *testing.T) {
	_, srv := newTestServer(t, Options{})
	grant := login(t, srv)

	profile, err := endpointFor(srv).Me(context.Background(), grant.AccessToken)

	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", profile.Email)
}

func TestAccessTokensExpire(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s, srv := newTestServer(t, Options{Clock: clock, AccessTTL: time.Minute})
	grant := login(t, srv)

	status, _ := call(t, srv, http.MethodGet, "/devices/", grant.AccessToken, nil, nil)
	assert.Equal(t, http.StatusOK, status)

	clock.Advance(2 * time.Minute)
	status, body := call(t, srv, http.MethodGet, "/devices/", grant.AccessToken, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, string(body), "detail")

	fresh := login(t, srv)
	s.ExpireAccessTokens()
	status, _ = call(t, srv, http.MethodGet, "/devices/", fresh.AccessToken, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestMissingBearerIsRejected(t *testing.T) {
	_, srv := newTestServer(t, Options{})

	status, _ := call(t, srv, http.MethodGet, "/tickets/", "", nil, nil)

	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestListPaginatesAndFilters(t *testing.T) {
	s, srv := newTestServer(t, Options{})
	for i := 0; i < 5; i++ {
		s.Seed("devices", map[string]any{"serial": "SN" + string(rune('A'+i)), "status": 1, "customer_Name": "Acme"})
	}
	s.Seed("devices", map[string]any{"serial": "SNX", "status": 2, "customer_Name": "Globex"})
	grant := login(t, srv)

	status, body := call(t, srv, http.MethodGet, "/devices/?customer_Name=Acme&status=1&page=2&page_size=2", grant.AccessToken, nil, nil)
	require.Equal(t, http.StatusOK, status)

	var envelope struct {
		Data []map[string]any `json:"data"`
		Meta domain.ListMeta  `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	assert.Len(t, envelope.Data, 2)
	assert.Equal(t, "SNC", envelope.Data[0]["serial"])
	assert.Equal(t, 5, envelope.Meta.Total)
	assert.Equal(t, 3, envelope.Meta.TotalPages)
	assert.True(t, envelope.Meta.HasNext)
	assert.True(t, envelope.Meta.HasPrev)
	require.NotNil(t, envelope.Meta.NextPage)
	assert.Equal(t, 3, *envelope.Meta.NextPage)
}

func TestGPSListIsBareArray(t *testing.T) {
	s, srv := newTestServer(t, Options{})
	s.Seed("gps", map[string]any{"imei": "35000"})
	grant := login(t, srv)

	status, body := call(t, srv, http.MethodGet, "/gps/", grant.AccessToken, nil, nil)

	require.Equal(t, http.StatusOK, status)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(body, &rows))
	assert.Len(t, rows, 1)
}

func TestCreateReplaysIdempotencyKey(t *testing.T) {
	s, srv := newTestServer(t, Options{})
	grant := login(t, srv)
	header := http.Header{"Idempotency-Key": []string{"key-1"}}

	status1, body1 := call(t, srv, http.MethodPost, "/tickets/", grant.AccessToken, map[string]any{"title": "Bin stuck"}, header)
	status2, body2 := call(t, srv, http.MethodPost, "/tickets/", grant.AccessToken, map[string]any{"title": "Bin stuck"}, header)

	assert.Equal(t, http.StatusCreated, status1)
	assert.Equal(t, http.StatusCreated, status2)
	assert.JSONEq(t, string(body1), string(body2))

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Len(t, s.collections["tickets"].order, 1)
}

func TestDuplicateSerialIsRejected(t *testing.T) {
	s, srv := newTestServer(t, Options{})
	s.Seed("devices", map[string]any{"serial": "SN1"})
	grant := login(t, srv)

	status, body := call(t, srv, http.MethodPost, "/devices/", grant.AccessToken, map[string]any{"serial": "sn1"}, nil)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "serial already registered")
}

func TestUpdateMergesAndDeleteRemoves(t *testing.T) {
	s, srv := newTestServer(t, Options{})
	ids := s.Seed("plc", map[string]any{"serial": "P1", "firmware": "1.0"})
	grant := login(t, srv)
	path := "/plc/" + ids[0] + "/"

	status, body := call(t, srv, http.MethodPatch, path, grant.AccessToken, map[string]any{"firmware": "1.1"}, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"id":"`+ids[0]+`","serial":"P1","firmware":"1.1"}`, string(body))

	status, _ = call(t, srv, http.MethodDelete, path, grant.AccessToken, nil, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = call(t, srv, http.MethodGet, path, grant.AccessToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"detail":"Not found."}`, string(body))
}

func TestSearchAndStats(t *testing.T) {
	s, srv := newTestServer(t, Options{})
	s.Seed("devices",
		map[string]any{"serial": "NORTH-1", "status": 1},
		map[string]any{"serial": "NORTH-2", "status": 2},
		map[string]any{"serial": "SOUTH-1", "status": 1},
	)
	grant := login(t, srv)

	status, body := call(t, srv, http.MethodGet, "/devices/search/?q=north&limit=1", grant.AccessToken, nil, nil)
	require.Equal(t, http.StatusOK, status)
	var found struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &found))
	assert.Len(t, found.Data, 1)

	status, body = call(t, srv, http.MethodGet, "/devices/search/?q=nothing", grant.AccessToken, nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"data":[]}`, string(body))

	status, body = call(t, srv, http.MethodGet, "/devices/stats/", grant.AccessToken, nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"total":3,"by_status":{"1":2,"2":1}}`, string(body))
}

func TestHealthNeedsNoToken(t *testing.T) {
	_, srv := newTestServer(t, Options{})

	status, body := call(t, srv, http.MethodGet, "/health", "", nil, nil)

	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}
