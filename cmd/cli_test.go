package cmd

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/bnema/fleet-cli/internal/fakeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliEnv struct {
	home   string
	server *fakeapi.Server
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	server := fakeapi.New(fakeapi.Options{
		Accounts: []fakeapi.Account{{
			Username: "alice",
			Password: "secret",
			Profile:  domain.UserProfile{ID: "u-1", FirstName: "Alice", LastName: "Smith", Role: "dispatcher", CustomerName: "Acme"},
		}},
	})
	httpServer := httptest.NewServer(server)
	t.Cleanup(httpServer.Close)

	t.Setenv("FLEET_API_BASE_URL", httpServer.URL+"/")
	t.Setenv("FLEET_SESSION_STORE", "file")
	t.Setenv("FLEET_SCOPE_CUSTOMER", "")

	return &cliEnv{home: t.TempDir(), server: server}
}

func (e *cliEnv) login(t *testing.T) {
	t.Helper()

	stdout, _, err := executeCLI(t, e.home, "login", "-u", "alice", "--password", "secret")
	require.NoError(t, err)
	require.Contains(t, stdout, "Signed in as Alice Smith")
}

func TestLoginThenWhoami(t *testing.T) {
	env := newCLIEnv(t)
	env.login(t)

	stdout, _, err := executeCLI(t, env.home, "whoami")

	require.NoError(t, err)
	assert.Contains(t, stdout, "Alice Smith")
	assert.Contains(t, stdout, "username: alice")
	assert.Contains(t, stdout, "customer: Acme")
}

func TestLoginReadsPasswordFromStdin(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("HOME", env.home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader("secret\n"))
	root.SetArgs([]string{"login", "-u", "alice", "--password-stdin"})

	require.NoError(t, root.Execute())
	assert.Contains(t, stdout.String(), "Signed in as Alice Smith")
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newCLIEnv(t)

	_, _, err := executeCLI(t, env.home, "login", "-u", "alice", "--password", "wrong")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "Invalid username or password.")

	_, _, err = executeCLI(t, env.home, "whoami")
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestLoginRequiresUsername(t *testing.T) {
	env := newCLIEnv(t)

	_, _, err := executeCLI(t, env.home, "login", "--password", "secret")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "username" not set`)
}

func TestResourceCommandsRequireSignIn(t *testing.T) {
	env := newCLIEnv(t)

	_, _, err := executeCLI(t, env.home, "devices", "list", "--json")

	require.ErrorIs(t, err, domain.ErrNotAuthenticated)
	assert.Contains(t, err.Error(), "fleet login")
}

func TestDevicesListIsScopedToUserCustomer(t *testing.T) {
	env := newCLIEnv(t)
	env.server.Seed("devices",
		map[string]any{"serial": "bin-1", "status": 1, "customer_Name": "Acme"},
		map[string]any{"serial": "bin-2", "status": 1, "customer_Name": "Globex"},
	)
	env.login(t)

	stdout, _, err := executeCLI(t, env.home, "devices", "list", "--json")
	require.NoError(t, err)

	var out listOutput[domain.Device]
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out.Items, 1)
	assert.Equal(t, "BIN-1", out.Items[0].Serial)
	assert.Equal(t, 1, out.Pagination.Total)

	stdout, _, err = executeCLI(t, env.home, "devices", "list", "--json", "--customer", "Globex")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out.Items, 1)
	assert.Equal(t, "BIN-2", out.Items[0].Serial)
}

func TestDevicesListRendersTable(t *testing.T) {
	env := newCLIEnv(t)
	env.server.Seed("devices", map[string]any{"serial": "bin-1", "name": "Market", "status": 1, "customer_Name": "Acme"})
	env.login(t)

	stdout, _, err := executeCLI(t, env.home, "devices", "list")

	require.NoError(t, err)
	assert.Contains(t, stdout, "Devices")
	assert.Contains(t, stdout, "BIN-1")
	assert.Contains(t, stdout, "Market")
	assert.Contains(t, stdout, "1 of 1")
}

func TestExpiredAccessTokenIsRefreshedOnce(t *testing.T) {
	env := newCLIEnv(t)
	env.server.Seed("tickets", map[string]any{"title": "Lid jammed", "status": "open", "customer_Name": "Acme"})
	env.login(t)

	env.server.ExpireAccessTokens()

	stdout, _, err := executeCLI(t, env.home, "tickets", "list", "--json")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Lid jammed")
	assert.Equal(t, 1, env.server.RefreshCalls())

	_, _, err = executeCLI(t, env.home, "tickets", "list", "--json")
	require.NoError(t, err)
	assert.Equal(t, 1, env.server.RefreshCalls(), "rotated tokens are persisted")
}

func TestDeviceCreateUpdateDelete(t *testing.T) {
	env := newCLIEnv(t)
	env.login(t)

	stdout, _, err := executeCLI(t, env.home, "devices", "create", "--json", "--data", `{"name":"Harbor"}`, "--set", "serial=bin-9", "--set", "status=1")
	require.NoError(t, err)
	var created domain.Device
	require.NoError(t, json.Unmarshal([]byte(stdout), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "BIN-9", created.Serial)
	assert.Equal(t, 1, created.Status)

	stdout, _, err = executeCLI(t, env.home, "devices", "update", created.ID, "--json", "--set", "fill_level=140")
	require.NoError(t, err)
	var updated domain.Device
	require.NoError(t, json.Unmarshal([]byte(stdout), &updated))
	assert.Equal(t, "Harbor", updated.Name)
	assert.Equal(t, float64(100), updated.FillLevel)

	stdout, _, err = executeCLI(t, env.home, "devices", "delete", created.ID)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Deleted "+created.ID)

	_, _, err = executeCLI(t, env.home, "devices", "get", created.ID)
	var actionErr *domain.ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, "Not found.", actionErr.Message)
}

func TestDuplicateSerialSurfacesServerMessage(t *testing.T) {
	env := newCLIEnv(t)
	env.server.Seed("devices", map[string]any{"serial": "BIN-1", "customer_Name": "Acme"})
	env.login(t)

	_, _, err := executeCLI(t, env.home, "devices", "create", "--set", "serial=bin-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "serial already registered")
}

func TestSearchAndStatsCommands(t *testing.T) {
	env := newCLIEnv(t)
	env.server.Seed("devices",
		map[string]any{"serial": "NORTH-1", "status": 1, "customer_Name": "Acme"},
		map[string]any{"serial": "SOUTH-1", "status": 2, "customer_Name": "Acme"},
	)
	env.login(t)

	stdout, _, err := executeCLI(t, env.home, "devices", "search", "north", "--json")
	require.NoError(t, err)
	var found []domain.Device
	require.NoError(t, json.Unmarshal([]byte(stdout), &found))
	require.Len(t, found, 1)
	assert.Equal(t, "NORTH-1", found[0].Serial)

	stdout, _, err = executeCLI(t, env.home, "devices", "stats")
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":2,"by_status":{"1":1,"2":1}}`, stdout)
}

func TestSearchAndStatsFollowResourceConfiguration(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("HOME", env.home)
	root := newRootCmd()

	tests := []struct {
		args []string
		want string
	}{
		{args: []string{"devices", "search"}, want: "search"},
		{args: []string{"devices", "stats"}, want: "stats"},
		{args: []string{"users", "search"}, want: "search"},
		{args: []string{"tickets", "stats"}, want: "stats"},
		{args: []string{"tickets", "search"}, want: "tickets"},
		{args: []string{"plc", "search"}, want: "plc"},
		{args: []string{"gps", "stats"}, want: "gps"},
	}

	for _, tc := range tests {
		found, _, err := root.Find(tc.args)
		require.NoError(t, err)
		assert.Equal(t, tc.want, found.Name(), "%v", tc.args)
	}
}

func TestSessionStatusCheckAndLogout(t *testing.T) {
	env := newCLIEnv(t)
	env.login(t)

	stdout, _, err := executeCLI(t, env.home, "session", "status", "--json")
	require.NoError(t, err)
	var status sessionStatusOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &status))
	assert.True(t, status.Authenticated)
	require.NotNil(t, status.Scope)
	assert.Equal(t, "Acme", status.Scope.Value)
	assert.NotNil(t, status.TokenExpiresAt)

	stdout, _, err = executeCLI(t, env.home, "session", "check")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Session active.")

	stdout, _, err = executeCLI(t, env.home, "session", "refresh")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Session refreshed")

	stdout, _, err = executeCLI(t, env.home, "logout")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Signed out.")

	stdout, _, err = executeCLI(t, env.home, "session", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Not signed in.")
}

func TestVersionCommand(t *testing.T) {
	env := newCLIEnv(t)

	stdout, _, err := executeCLI(t, env.home, "version")

	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestInvalidConfigurationIsReported(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("FLEET_SESSION_STORE", "floppy")

	_, _, err := executeCLI(t, env.home, "whoami")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown store "floppy"`)
}

func TestBuildPayload(t *testing.T) {
	payload, err := buildPayload(`{"name":"Harbor","status":2}`, map[string]string{"status": "3", "note": "plain text", "online": "true"})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Harbor", "status": float64(3), "note": "plain text", "online": true}, payload)

	_, err = buildPayload(`[1,2]`, nil)
	assert.Error(t, err)

	payload, err = buildPayload("null", map[string]string{"a": "1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, payload)
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
