package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/botctl/internal/api/apitest"
	"github.com/felixgeelhaar/botctl/internal/errors"
	"github.com/felixgeelhaar/botctl/internal/exitcode"
	"github.com/felixgeelhaar/botctl/internal/tui"
)

type harness struct {
	t   *testing.T
	srv *apitest.Server
	dir string
}

// newHarness points botctl at a fake backend with a file session in a
// temporary directory.
func newHarness(t *testing.T) *harness {
	t.Helper()

	srv := apitest.New(t)
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("BOTCTL_CONFIG", filepath.Join(dir, "missing.yaml"))
	t.Setenv("BOTCTL_API_URL", srv.URL)
	t.Setenv("BOTCTL_SESSION_BACKEND", "file")
	t.Setenv("BOTCTL_SESSION_DIR", filepath.Join(dir, "sessions"))
	t.Setenv("BOTCTL_NO_PROMPT", "1")

	srv.AddUser(apitest.User{
		Username:      "alice",
		Email:         "alice@example.com",
		Password:      "correct-horse",
		OrgID:         1,
		OrgName:       "Acme",
		IsOrgOwner:    true,
		Plan:          "pro",
		EmailVerified: true,
	})
	srv.AddUser(apitest.User{
		Username:      "bob",
		Email:         "bob@example.com",
		Password:      "battery-staple",
		OrgID:         1,
		OrgName:       "Acme",
		Plan:          "pro",
		EmailVerified: true,
	})
	return &harness{t: t, srv: srv, dir: dir}
}

type result struct {
	stdout string
	stderr string
	err    error
}

func (r result) exitCode() int {
	return exitcode.DetermineExitCode(r.err)
}

func (h *harness) run(prompt tui.Prompter, args ...string) result {
	h.t.Helper()
	if prompt == nil {
		prompt = tui.NewScripted()
	}
	var out, errOut bytes.Buffer
	app := &App{In: bytes.NewReader(nil), Out: &out, Err: &errOut, Prompt: prompt}
	err := app.Run(context.Background(), args)
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func (h *harness) login(username, password string) {
	h.t.Helper()
	r := h.run(nil, "auth", "login", "-u", username, "--password", password)
	require.NoError(h.t, r.err, r.stderr)
}

func TestLogin(t *testing.T) {
	h := newHarness(t)

	prompt := tui.NewScripted("alice", "correct-horse")
	r := h.run(prompt, "auth", "login")
	require.NoError(t, r.err)
	assert.Equal(t, []string{"Username", "Password"}, prompt.Asked)
	assert.Contains(t, r.stderr, "Signed in as alice (Acme)")
	assert.Empty(t, r.stdout)

	r = h.run(nil, "auth", "status", "-o", "json")
	require.NoError(t, r.err)
	var profile map[string]any
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &profile))
	assert.Equal(t, "alice", profile["username"])
	assert.Equal(t, true, profile["is_org_owner"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newHarness(t)

	r := h.run(nil, "auth", "login", "-u", "alice", "--password", "wrong")
	require.Error(t, r.err)
	code, ok := errors.CodeOf(r.err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeAuthInvalid, code)
	assert.Equal(t, exitcode.AuthError, r.exitCode())

	r = h.run(nil, "auth", "status")
	assert.Equal(t, exitcode.AuthError, r.exitCode(), "no session after a failed login")
}

func TestLogin_PromptUnavailable(t *testing.T) {
	h := newHarness(t)

	r := h.run(nil, "auth", "login", "-u", "alice")
	require.Error(t, r.err)
	assert.Equal(t, exitcode.UsageError, r.exitCode())
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.login("alice", "correct-horse")

	r := h.run(nil, "auth", "logout")
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, "Signed out")

	r = h.run(nil, "bot", "list")
	assert.Equal(t, exitcode.AuthError, r.exitCode())
	code, _ := errors.CodeOf(r.err)
	assert.Equal(t, errors.ErrCodeAuthRequired, code)
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t)
	h.login("alice", "correct-horse")

	tests := []struct {
		name string
		args []string
	}{
		{"unknown subcommand", []string{"bot", "frobnicate"}},
		{"unknown flag", []string{"bot", "list", "--nope"}},
		{"bad id", []string{"bot", "get", "abc"}},
		{"missing id", []string{"datasource", "get"}},
		{"bad output", []string{"bot", "list", "-o", "xml"}},
		{"chat without message", []string{"chat", "send", "--bot", "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := h.run(nil, tt.args...)
			require.Error(t, r.err)
			assert.Equal(t, exitcode.UsageError, r.exitCode(), r.err.Error())
		})
	}
}

func TestValidationErrors(t *testing.T) {
	h := newHarness(t)
	h.login("alice", "correct-horse")

	r := h.run(nil, "bot", "create", "--name", "sales")
	require.Error(t, r.err)
	assert.Equal(t, exitcode.ValidationError, r.exitCode())

	for _, req := range h.srv.Requests() {
		assert.NotEqual(t, "/api/bots/", req.Path, "invalid input must not reach the API")
	}
}

func TestResourceFlow(t *testing.T) {
	h := newHarness(t)
	h.login("alice", "correct-horse")

	r := h.run(nil, "datasource", "create", "--name", "warehouse", "--engine", "sqlite", "--database", "/tmp/dw.db", "-o", "json")
	require.NoError(t, r.err, r.stderr)
	var ds struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &ds))
	require.NotZero(t, ds.ID)
	dsID := jsonID(ds.ID)

	r = h.run(nil, "datasource", "list")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "warehouse")

	r = h.run(nil, "datasource", "test", dsID)
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, "succeeded")

	r = h.run(nil, "bot", "create", "--name", "sales", "--data-source", dsID, "-o", "json")
	require.NoError(t, r.err, r.stderr)
	var bot struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &bot))
	botID := jsonID(bot.ID)

	r = h.run(nil, "chat", "send", "--bot", botID, "how", "many", "orders?")
	require.NoError(t, r.err, r.stderr)
	assert.Equal(t, "echo: how many orders?\n", r.stdout)
	assert.Contains(t, r.stderr, "--conversation")

	r = h.run(nil, "conversation", "list", "--bot", botID, "-o", "json")
	require.NoError(t, r.err)
	var convs []struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &convs))
	require.Len(t, convs, 1)
	convID := jsonID(convs[0].ID)

	r = h.run(nil, "conversation", "get", convID)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "echo: how many orders?")

	r = h.run(nil, "conversation", "rename", convID, "--title", "Orders")
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, `"Orders"`)

	// Declining the confirmation keeps the bot.
	r = h.run(tui.NewScripted("n"), "bot", "delete", botID)
	require.NoError(t, r.err)
	r = h.run(nil, "bot", "get", botID)
	require.NoError(t, r.err)

	r = h.run(nil, "bot", "delete", botID, "--yes")
	require.NoError(t, r.err)
	r = h.run(nil, "bot", "get", botID)
	require.Error(t, r.err)
	code, _ := errors.CodeOf(r.err)
	assert.Equal(t, errors.ErrCodeAPINotFound, code)
}

func TestDataSourceTest_Failure(t *testing.T) {
	h := newHarness(t)
	h.login("alice", "correct-horse")

	r := h.run(tui.NewScripted("s3cret"), "datasource", "create", "--name", "x", "--host", "unreachable.internal",
		"--database", "dw", "--username", "bot", "-o", "json")
	require.NoError(t, r.err, r.stderr)
	var ds struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &ds))

	r = h.run(nil, "datasource", "test", jsonID(ds.ID))
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "could not connect")
}

func TestOwnerOnlyCommands(t *testing.T) {
	h := newHarness(t)
	h.login("bob", "battery-staple")

	r := h.run(nil, "team", "add", "--email", "carol@example.com", "-u", "carol", "--password", "long-enough")
	require.Error(t, r.err)
	code, _ := errors.CodeOf(r.err)
	assert.Equal(t, errors.ErrCodeAuthNotOwner, code)
	assert.Equal(t, exitcode.AuthError, r.exitCode())

	r = h.run(nil, "billing", "change", "starter", "--yes")
	code, _ = errors.CodeOf(r.err)
	assert.Equal(t, errors.ErrCodeAuthNotOwner, code)

	for _, req := range h.srv.Requests() {
		assert.NotEqual(t, "POST /api/org/users/", req.Method+" "+req.Path)
		assert.NotEqual(t, "POST /api/billing/subscription/", req.Method+" "+req.Path)
	}

	r = h.run(nil, "team", "list")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "alice")
}

func TestTeamAdd(t *testing.T) {
	h := newHarness(t)
	h.login("alice", "correct-horse")

	prompt := tui.NewScripted("long-enough", "long-enough")
	r := h.run(prompt, "team", "add", "--email", "carol@example.com", "-u", "carol")
	require.NoError(t, r.err, r.stderr)
	assert.Equal(t, []string{"Initial password", "Confirm initial password"}, prompt.Asked)

	_, ok := h.srv.User("carol")
	assert.True(t, ok)
}

func TestBilling(t *testing.T) {
	h := newHarness(t)
	h.login("alice", "correct-horse")

	r := h.run(nil, "billing", "plans")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "$99/mo")
	assert.Contains(t, r.stdout, "Enterprise")

	prompt := tui.NewScripted("starter", "y")
	r = h.run(prompt, "billing", "change")
	require.NoError(t, r.err, r.stderr)
	assert.Equal(t, []string{"Choose a plan", "Switch to the Starter plan ($29/mo)?"}, prompt.Asked)

	r = h.run(nil, "billing", "subscription", "-o", "json")
	require.NoError(t, r.err)
	var sub map[string]any
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &sub))
	assert.Equal(t, "starter", sub["plan"])

	r = h.run(nil, "auth", "status", "-o", "json")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, `"plan": "starter"`)

	r = h.run(nil, "billing", "change", "platinum", "--yes")
	assert.Equal(t, exitcode.ValidationError, r.exitCode())
}

func TestBillingPlans_UpstreamFailure(t *testing.T) {
	h := newHarness(t)
	h.login("alice", "correct-horse")
	h.srv.FailNext("/api/billing/plans/", 1)

	// A 502 is not a missing endpoint; the error surfaces.
	r := h.run(nil, "billing", "plans")
	require.Error(t, r.err)
	code, _ := errors.CodeOf(r.err)
	assert.Equal(t, errors.ErrCodeAPIServer, code)
}

func TestExpiredSession(t *testing.T) {
	h := newHarness(t)
	h.login("alice", "correct-horse")
	h.srv.RevokeTokens()

	r := h.run(nil, "bot", "list")
	require.Error(t, r.err)
	code, _ := errors.CodeOf(r.err)
	assert.Equal(t, errors.ErrCodeAuthExpired, code)
	assert.Contains(t, r.stderr, "Your session has ended")
	assert.Contains(t, r.stderr, "botctl auth login")

	r = h.run(nil, "auth", "status")
	code, _ = errors.CodeOf(r.err)
	assert.Equal(t, errors.ErrCodeAuthRequired, code, "the rejected session is removed")

	r = h.run(nil, "auth", "login", "-u", "alice", "--password", "correct-horse")
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, "botctl bot list")

	r = h.run(nil, "auth", "login", "-u", "alice", "--password", "correct-horse")
	require.NoError(t, r.err)
	assert.NotContains(t, r.stderr, "botctl bot list", "the interrupted command is reported once")
}

func TestNetworkError(t *testing.T) {
	h := newHarness(t)
	t.Setenv("BOTCTL_API_URL", "http://127.0.0.1:1")

	r := h.run(nil, "auth", "login", "-u", "alice", "--password", "correct-horse")
	require.Error(t, r.err)
	assert.Equal(t, exitcode.NetworkError, r.exitCode())
}

func TestConfigCommands(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(h.dir, "conf", "config.yaml")

	r := h.run(nil, "--config", path, "config", "init")
	require.NoError(t, r.err)
	_, err := os.Stat(path)
	require.NoError(t, err)

	r = h.run(nil, "--config", path, "config", "init")
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "already exists")

	r = h.run(nil, "--config", path, "config", "init", "--force")
	require.NoError(t, r.err)

	r = h.run(nil, "--config", path, "config", "path")
	require.NoError(t, r.err)
	assert.Equal(t, path+"\n", r.stdout)

	t.Setenv("BOTCTL_SESSION_PASSPHRASE", "do-not-print")
	r = h.run(nil, "--config", path, "config", "show")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, h.srv.URL, "environment overrides the file")
	assert.NotContains(t, r.stdout, "do-not-print")

	r = h.run(nil, "config", "show", "-o", "json")
	require.NoError(t, r.err)
	assert.NotContains(t, r.stdout, "do-not-print")

	r = h.run(nil, "config", "show", "--env")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "BOTCTL_API_URL")
}

func TestInvalidConfig(t *testing.T) {
	h := newHarness(t)
	t.Setenv("BOTCTL_SESSION_BACKEND", "floppy")

	r := h.run(nil, "bot", "list")
	require.Error(t, r.err)
	assert.Equal(t, exitcode.ConfigError, r.exitCode())

	r = h.run(nil, "version")
	require.NoError(t, r.err, "version does not read configuration")
}

func TestVersion(t *testing.T) {
	h := newHarness(t)

	r := h.run(nil, "version")
	require.NoError(t, r.err)
	assert.Equal(t, "botctl dev\n", r.stdout)

	r = h.run(nil, "version", "--json")
	require.NoError(t, r.err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &info))
	assert.Equal(t, "dev", info["version"])
}

func TestMetricsTextfile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(h.dir, "metrics", "botctl.prom")
	t.Setenv("BOTCTL_METRICS_FILE", path)

	h.login("alice", "correct-horse")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `command="auth login"`)
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
