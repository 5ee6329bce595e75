package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/botctl/internal/api/apitest"
	"github.com/felixgeelhaar/botctl/internal/log"
	"github.com/felixgeelhaar/botctl/internal/session"
)

func newFakeClient(t *testing.T) (*Client, *apitest.Server, *session.Store) {
	t.Helper()
	srv := apitest.New(t)
	store := newStore(t)
	c, err := New(Config{BaseURL: srv.URL, Session: store, Logger: log.Discard()})
	require.NoError(t, err)
	return c, srv, store
}

func addOwner(srv *apitest.Server) apitest.User {
	return srv.AddUser(apitest.User{
		Username:      "alice",
		Email:         "a@x.com",
		Password:      "correct-horse",
		OrgID:         1,
		OrgName:       "Acme",
		IsOrgOwner:    true,
		Plan:          "pro",
		EmailVerified: true,
	})
}

func signIn(t *testing.T, c *Client) {
	t.Helper()
	_, err := c.Login(context.Background(), "alice", "correct-horse")
	require.NoError(t, err)
}

func TestLogin_StoresSession(t *testing.T) {
	c, srv, store := newFakeClient(t)
	addOwner(srv)

	resp, err := c.Login(context.Background(), "alice", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	token, ok := store.Token()
	assert.True(t, ok)
	assert.Equal(t, resp.Token, token)

	p, ok := store.Profile()
	require.True(t, ok)
	assert.True(t, p.IsOrgOwner)
	assert.Equal(t, "pro", p.PlanCode())
	assert.Equal(t, int64(1), *p.OrganizationID)
	assert.Equal(t, "Acme", *p.OrganizationName)

	last, _ := srv.LastRequest()
	assert.Empty(t, last.Authorization, "login is sent without a token")
	assert.Equal(t, "application/json", last.ContentType)
}

func TestLogin_Scenario(t *testing.T) {
	c, store, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login/", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"token":"abc","username":"alice","email":"a@x.com",` +
			`"organization":{"id":1,"name":"Acme"},"is_org_owner":true,"plan":"pro"}`))
	}))

	_, err := c.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	token, _ := store.Token()
	assert.Equal(t, "abc", token)
	p, ok := store.Profile()
	require.True(t, ok)
	assert.True(t, p.IsOrgOwner)
	assert.Equal(t, "pro", p.PlanCode())
}

func TestLogin_FlatOrganization(t *testing.T) {
	c, store, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token":"abc","username":"bob","email":"b@x.com",` +
			`"organization_id":7,"organization_name":"Beta","is_org_owner":false}`))
	}))

	_, err := c.Login(context.Background(), "bob", "pw")
	require.NoError(t, err)

	p, _ := store.Profile()
	assert.Equal(t, int64(7), *p.OrganizationID)
	assert.Equal(t, "Beta", *p.OrganizationName)
	assert.Nil(t, p.Plan)
}

func TestLogin_BadCredentials(t *testing.T) {
	c, srv, store := newFakeClient(t)
	addOwner(srv)

	_, err := c.Login(context.Background(), "alice", "wrong")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "invalid_credentials", apiErr.Code())
	assert.Equal(t, "Unable to log in with provided credentials.", apiErr.Message)

	_, ok := store.Token()
	assert.False(t, ok)
}

func TestLogin_Locked(t *testing.T) {
	c, srv, _ := newFakeClient(t)
	srv.AddUser(apitest.User{Username: "carol", Password: "pw", Locked: true})

	_, err := c.Login(context.Background(), "carol", "pw")
	assert.True(t, IsStatus(err, http.StatusLocked))
	assert.Equal(t, "account_locked", CodeOf(err))
}

func TestLogin_MissingToken(t *testing.T) {
	c, store, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"username":"alice"}`))
	}))

	_, err := c.Login(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, ErrNoToken)
	_, ok := store.Profile()
	assert.False(t, ok)
}

func TestRegister(t *testing.T) {
	c, srv, store := newFakeClient(t)

	resp, err := c.Register(context.Background(), RegisterRequest{Email: "d@x.com", Username: "dave", Password: "longenough"})
	require.NoError(t, err)
	assert.Equal(t, "dave", resp.Username)

	token, ok := store.Token()
	assert.True(t, ok)
	assert.Equal(t, resp.Token, token)

	p, _ := store.Profile()
	assert.False(t, p.EmailVerified)
	assert.True(t, p.IsOrgOwner)

	_, err = c.Register(context.Background(), RegisterRequest{Email: "d@x.com", Username: "dave", Password: "longenough"})
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, []string{"username: A user with that username already exists."}, apiErr.Details())

	_, found := srv.User("dave")
	assert.True(t, found)
}

func TestRegister_WithoutToken(t *testing.T) {
	c, store, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"username":"dave","email":"d@x.com","email_verified":false}`))
	}))

	resp, err := c.Register(context.Background(), RegisterRequest{Email: "d@x.com", Username: "dave", Password: "longenough"})
	require.NoError(t, err)
	assert.Empty(t, resp.Token)

	_, ok := store.Token()
	assert.False(t, ok)
	_, ok = store.Profile()
	assert.False(t, ok)
}

func TestLogout(t *testing.T) {
	c, srv, store := newFakeClient(t)
	addOwner(srv)
	signIn(t, c)
	token, _ := store.Token()

	require.NoError(t, c.Logout(context.Background()))
	_, ok := store.Token()
	assert.False(t, ok)
	_, ok = store.Profile()
	assert.False(t, ok)

	// The revoked token is no longer accepted.
	require.NoError(t, store.SetToken(context.Background(), token))
	_, err := c.ListBots(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLogout_ClearsEvenWhenCallFails(t *testing.T) {
	c, store, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	require.NoError(t, store.Begin(context.Background(), "abc", sampleProfile()))

	err := c.Logout(context.Background())
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
	_, ok := store.Token()
	assert.False(t, ok)
}

func TestCurrentUser_RefreshesProfile(t *testing.T) {
	c, srv, store := newFakeClient(t)
	addOwner(srv)
	signIn(t, c)

	stale := sampleProfile()
	stale.IsOrgOwner = false
	require.NoError(t, store.SetProfile(context.Background(), stale))

	p, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.True(t, p.IsOrgOwner)

	cached, _ := store.Profile()
	assert.Equal(t, *p, *cached)
}

func TestPasswordReset(t *testing.T) {
	c, srv, _ := newFakeClient(t)
	addOwner(srv)
	ctx := context.Background()

	require.NoError(t, c.RequestPasswordReset(ctx, "a@x.com"))

	status, err := c.ValidatePasswordReset(ctx, "nope")
	assert.Nil(t, status)
	assert.Equal(t, "token_invalid", CodeOf(err))

	token := srv.IssueResetToken("a@x.com", true)
	status, err = c.ValidatePasswordReset(ctx, token)
	require.NoError(t, err)
	assert.True(t, status.Valid)
	assert.True(t, status.MFARequired)
	assert.Equal(t, "a@x.com", status.Email)

	err = c.ConfirmPasswordReset(ctx, ConfirmPasswordResetRequest{Token: token, Password: "new-password", MFA: "000000"})
	assert.Equal(t, "invalid_mfa_code", CodeOf(err))

	err = c.ConfirmPasswordReset(ctx, ConfirmPasswordResetRequest{Token: token, Password: "new-password", MFA: apitest.MFACode})
	require.NoError(t, err)

	_, err = c.Login(ctx, "alice", "new-password")
	assert.NoError(t, err)
}

func TestVerifyEmail(t *testing.T) {
	c, srv, store := newFakeClient(t)
	ctx := context.Background()

	_, err := c.Register(ctx, RegisterRequest{Email: "d@x.com", Username: "dave", Password: "longenough"})
	require.NoError(t, err)

	err = c.VerifyEmail(ctx, "d@x.com", "000000")
	assert.Equal(t, "invalid_code", CodeOf(err))
	p, _ := store.Profile()
	assert.False(t, p.EmailVerified)

	require.NoError(t, c.ResendVerification(ctx, "d@x.com"))
	code := srv.VerificationCode("d@x.com")
	require.NotEmpty(t, code)

	require.NoError(t, c.VerifyEmail(ctx, "D@X.com", code))
	p, _ = store.Profile()
	assert.True(t, p.EmailVerified)

	u, _ := srv.User("dave")
	assert.True(t, u.EmailVerified)
}

func TestVerifyEmail_WithoutSession(t *testing.T) {
	c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"detail":"Email verified."}`))
	}))
	assert.NoError(t, c.VerifyEmail(context.Background(), "a@x.com", "123456"))
}

func TestUpdateOwnerPassword(t *testing.T) {
	c, srv, _ := newFakeClient(t)
	addOwner(srv)
	srv.AddUser(apitest.User{Username: "member", Password: "pw-member", OrgID: 1})
	signIn(t, c)
	ctx := context.Background()

	err := c.UpdateOwnerPassword(ctx, "wrong", "next-password")
	assert.Equal(t, "invalid_password", CodeOf(err))

	require.NoError(t, c.UpdateOwnerPassword(ctx, "correct-horse", "next-password"))
	u, _ := srv.User("alice")
	assert.Equal(t, "next-password", u.Password)

	_, err = c.Login(ctx, "member", "pw-member")
	require.NoError(t, err)
	err = c.UpdateOwnerPassword(ctx, "pw-member", "whatever1")
	assert.True(t, IsStatus(err, http.StatusForbidden))
	assert.Equal(t, "not_org_owner", CodeOf(err))
}

func TestDataSourcesAndBots(t *testing.T) {
	c, srv, _ := newFakeClient(t)
	addOwner(srv)
	signIn(t, c)
	ctx := context.Background()

	ds, err := c.CreateDataSource(ctx, DataSourceInput{Name: "warehouse", Engine: "postgresql", Host: "db", Port: 5432, Database: "sales"})
	require.NoError(t, err)
	assert.NotZero(t, ds.ID)

	list, err := c.ListDataSources(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "warehouse", list[0].Name)

	got, err := c.GetDataSource(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, "sales", got.Database)

	res, err := c.TestDataSourceConnection(ctx, ds.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)

	bad, err := c.CreateDataSource(ctx, DataSourceInput{Name: "broken", Engine: "mysql", Host: "unreachable.local", Database: "x"})
	require.NoError(t, err)
	res, err = c.TestDataSourceConnection(ctx, bad.ID)
	require.NoError(t, err)
	assert.False(t, res.Success)

	b, err := c.CreateBot(ctx, BotInput{Name: "Sales bot", DataSource: ds.ID, Temperature: 0.2, MaxTokens: 512, RowLimit: 100})
	require.NoError(t, err)

	bots, err := c.ListBots(ctx)
	require.NoError(t, err)
	require.Len(t, bots, 1)
	assert.Equal(t, b.ID, bots[0].ID)
	assert.Equal(t, 512, bots[0].MaxTokens)

	_, err = c.CreateBot(ctx, BotInput{Name: "orphan", DataSource: 9999, MaxTokens: 1, RowLimit: 1})
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, []string{"data_source: Invalid pk - object does not exist."}, apiErr.Details())

	require.NoError(t, c.DeleteBot(ctx, b.ID))
	_, err = c.GetBot(ctx, b.ID)
	assert.True(t, IsStatus(err, http.StatusNotFound))

	require.NoError(t, c.DeleteDataSource(ctx, ds.ID))
	err = c.DeleteDataSource(ctx, ds.ID)
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestChatAndConversations(t *testing.T) {
	c, srv, _ := newFakeClient(t)
	addOwner(srv)
	signIn(t, c)
	ctx := context.Background()

	ds, err := c.CreateDataSource(ctx, DataSourceInput{Name: "w", Engine: "sqlite", Database: "w.db"})
	require.NoError(t, err)
	b1, err := c.CreateBot(ctx, BotInput{Name: "one", DataSource: ds.ID, MaxTokens: 1, RowLimit: 1})
	require.NoError(t, err)
	b2, err := c.CreateBot(ctx, BotInput{Name: "two", DataSource: ds.ID, MaxTokens: 1, RowLimit: 1})
	require.NoError(t, err)

	first, err := c.SendChatMessage(ctx, ChatRequest{BotID: b1.ID, Message: "How many orders?"})
	require.NoError(t, err)
	assert.NotZero(t, first.ConversationID)
	assert.Equal(t, "user", first.UserMessage.Role)
	assert.Equal(t, "echo: How many orders?", first.AssistantMessage.Content)

	convID := first.ConversationID
	_, err = c.SendChatMessage(ctx, ChatRequest{BotID: b1.ID, Message: "And yesterday?", ConversationID: &convID})
	require.NoError(t, err)
	_, err = c.SendChatMessage(ctx, ChatRequest{BotID: b2.ID, Message: "Hi"})
	require.NoError(t, err)

	all, err := c.ListConversations(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	forBot, err := c.ListConversations(ctx, b1.ID)
	require.NoError(t, err)
	require.Len(t, forBot, 1)
	last, _ := srv.LastRequest()
	assert.Equal(t, "bot_id="+itoa(b1.ID), last.RawQuery)

	conv, err := c.GetConversation(ctx, convID)
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 4)

	renamed, err := c.RenameConversation(ctx, convID, "Orders")
	require.NoError(t, err)
	assert.Equal(t, "Orders", renamed.Title)

	require.NoError(t, c.DeleteConversation(ctx, convID))
	all, err = c.ListConversations(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestOrgUsers(t *testing.T) {
	c, srv, _ := newFakeClient(t)
	addOwner(srv)
	signIn(t, c)
	ctx := context.Background()

	u, err := c.CreateOrgUser(ctx, CreateOrgUserRequest{Email: "e@x.com", Username: "erin", Password: "longenough", FirstName: "Erin"})
	require.NoError(t, err)
	assert.Equal(t, "erin", u.Username)
	assert.False(t, u.IsOrgOwner)

	users, err := c.ListOrgUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = c.Login(ctx, "erin", "longenough")
	require.NoError(t, err)
	_, err = c.CreateOrgUser(ctx, CreateOrgUserRequest{Email: "f@x.com", Username: "frank", Password: "longenough"})
	assert.Equal(t, "not_org_owner", CodeOf(err))
}

func TestBilling(t *testing.T) {
	c, srv, store := newFakeClient(t)
	addOwner(srv)
	signIn(t, c)
	ctx := context.Background()

	plans, err := c.ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 4)
	assert.Equal(t, Price("29.00"), plans[1].Price)
	assert.Equal(t, Price("99"), plans[2].Price)
	assert.Equal(t, Price(""), plans[3].Price)
	require.NotNil(t, plans[2].Entitlements)
	assert.Equal(t, 25, *plans[2].Entitlements.MaxBots)

	sub, err := c.GetSubscription(ctx)
	require.NoError(t, err)
	assert.Equal(t, "free", sub.Plan)

	sub, err = c.UpdateSubscription(ctx, "starter")
	require.NoError(t, err)
	assert.Equal(t, "starter", sub.Plan)
	require.NotNil(t, sub.Entitlements)

	p, _ := store.Profile()
	assert.Equal(t, "starter", p.PlanCode())

	_, err = c.UpdateSubscription(ctx, "platinum")
	assert.Equal(t, "invalid_plan", CodeOf(err))
	p, _ = store.Profile()
	assert.Equal(t, "starter", p.PlanCode(), "failed change leaves the cached plan alone")
}

func TestUpdateSubscription_WithoutProfile(t *testing.T) {
	c, store, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"plan":"pro","status":"active"}`))
	}))
	require.NoError(t, store.SetToken(context.Background(), "abc"))

	sub, err := c.UpdateSubscription(context.Background(), "pro")
	require.NoError(t, err)
	assert.Equal(t, "pro", sub.Plan)
}

func TestRevokedTokenForcesLogout(t *testing.T) {
	c, srv, store := newFakeClient(t)
	addOwner(srv)
	signIn(t, c)

	srv.RevokeTokens()
	_, err := c.ListDataSources(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, ok := store.Token()
	assert.False(t, ok)

	// Subsequent calls go out unauthenticated.
	_, _ = c.ListBots(context.Background())
	last, _ := srv.LastRequest()
	assert.Empty(t, last.Authorization)
}

func TestProxyErrorPage(t *testing.T) {
	c, srv, _ := newFakeClient(t)
	addOwner(srv)
	signIn(t, c)

	srv.FailNext("/api/bots/", 1)
	_, err := c.ListBots(context.Background())

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "request failed with status 502 (Bad Gateway)", apiErr.Message)

	_, err = c.ListBots(context.Background())
	assert.NoError(t, err)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
