package apitest

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type dataSource struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Engine    string    `json:"engine"`
	Host      string    `json:"host,omitempty"`
	Port      int       `json:"port,omitempty"`
	Database  string    `json:"database,omitempty"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type bot struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	DataSource   int64     `json:"data_source"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Temperature  float64   `json:"temperature"`
	MaxTokens    int       `json:"max_tokens"`
	RowLimit     int       `json:"row_limit"`
	CreatedAt    time.Time `json:"created_at"`
}

type message struct {
	ID        int64     `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type conversation struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Bot       int64     `json:"bot"`
	Messages  []message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type subscription struct {
	Plan   string `json:"plan"`
	Status string `json:"status"`
}

var plans = []render.M{
	{"code": "free", "name": "Free", "price": "0.00", "currency": "USD", "interval": "month"},
	{"code": "starter", "name": "Starter", "price": "29.00", "currency": "USD", "interval": "month",
		"entitlements": render.M{"max_bots": 5, "max_datasources": 3, "monthly_messages": 2000}},
	{"code": "pro", "name": "Pro", "price": 99, "currency": "USD", "interval": "month",
		"entitlements": render.M{"max_bots": 25, "max_datasources": 10, "monthly_messages": 20000}},
	{"code": "enterprise", "name": "Enterprise", "price": nil},
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Data sources are served as a bare array.

func (s *Server) listDataSources(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]dataSource, 0, len(s.datasources))
	for _, id := range sortedKeys(s.datasources) {
		out = append(out, *s.datasources[id])
	}
	s.mu.Unlock()
	render.JSON(w, r, out)
}

func (s *Server) createDataSource(w http.ResponseWriter, r *http.Request) {
	var ds dataSource
	if err := render.DecodeJSON(r.Body, &ds); err != nil || ds.Name == "" {
		required(w, r, "name")
		return
	}

	s.mu.Lock()
	s.nextID++
	ds.ID = s.nextID
	ds.CreatedAt = time.Now().UTC()
	s.datasources[ds.ID] = &ds
	s.mu.Unlock()

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, ds)
}

func (s *Server) getDataSource(w http.ResponseWriter, r *http.Request) {
	id, _ := idParam(r)
	s.mu.Lock()
	ds, ok := s.datasources[id]
	s.mu.Unlock()
	if !ok {
		notFound(w, r)
		return
	}
	render.JSON(w, r, ds)
}

func (s *Server) deleteDataSource(w http.ResponseWriter, r *http.Request) {
	id, _ := idParam(r)
	s.mu.Lock()
	_, ok := s.datasources[id]
	delete(s.datasources, id)
	s.mu.Unlock()
	if !ok {
		notFound(w, r)
		return
	}
	render.NoContent(w, r)
}

func (s *Server) testDataSource(w http.ResponseWriter, r *http.Request) {
	id, _ := idParam(r)
	s.mu.Lock()
	ds, ok := s.datasources[id]
	s.mu.Unlock()
	if !ok {
		notFound(w, r)
		return
	}
	if strings.Contains(ds.Host, "unreachable") {
		render.JSON(w, r, render.M{"success": false, "message": "could not connect to " + ds.Host})
		return
	}
	render.JSON(w, r, render.M{"success": true, "message": "Connection successful"})
}

// Bots are served paginated.

func (s *Server) listBots(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]bot, 0, len(s.bots))
	for _, id := range sortedKeys(s.bots) {
		out = append(out, *s.bots[id])
	}
	s.mu.Unlock()
	render.JSON(w, r, render.M{"count": len(out), "next": nil, "previous": nil, "results": out})
}

func (s *Server) createBot(w http.ResponseWriter, r *http.Request) {
	var b bot
	if err := render.DecodeJSON(r.Body, &b); err != nil || b.Name == "" {
		required(w, r, "name")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.datasources[b.DataSource]; !ok {
		fail(w, r, http.StatusBadRequest, render.M{"data_source": []string{"Invalid pk - object does not exist."}})
		return
	}
	s.nextID++
	b.ID = s.nextID
	b.CreatedAt = time.Now().UTC()
	s.bots[b.ID] = &b

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, b)
}

func (s *Server) getBot(w http.ResponseWriter, r *http.Request) {
	id, _ := idParam(r)
	s.mu.Lock()
	b, ok := s.bots[id]
	s.mu.Unlock()
	if !ok {
		notFound(w, r)
		return
	}
	render.JSON(w, r, b)
}

func (s *Server) deleteBot(w http.ResponseWriter, r *http.Request) {
	id, _ := idParam(r)
	s.mu.Lock()
	_, ok := s.bots[id]
	delete(s.bots, id)
	s.mu.Unlock()
	if !ok {
		notFound(w, r)
		return
	}
	render.NoContent(w, r)
}

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	var botID int64
	if v := r.URL.Query().Get("bot_id"); v != "" {
		botID, _ = strconv.ParseInt(v, 10, 64)
	}

	s.mu.Lock()
	out := make([]conversation, 0, len(s.conversations))
	for _, id := range sortedKeys(s.conversations) {
		c := *s.conversations[id]
		if botID != 0 && c.Bot != botID {
			continue
		}
		c.Messages = nil
		out = append(out, c)
	}
	s.mu.Unlock()
	render.JSON(w, r, out)
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	id, _ := idParam(r)
	s.mu.Lock()
	c, ok := s.conversations[id]
	var out conversation
	if ok {
		out = *c
		out.Messages = append([]message(nil), c.Messages...)
	}
	s.mu.Unlock()
	if !ok {
		notFound(w, r)
		return
	}
	render.JSON(w, r, out)
}

func (s *Server) renameConversation(w http.ResponseWriter, r *http.Request) {
	id, _ := idParam(r)
	var req struct {
		Title string `json:"title"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.Title == "" {
		required(w, r, "title")
		return
	}

	s.mu.Lock()
	c, ok := s.conversations[id]
	var out conversation
	if ok {
		c.Title = req.Title
		c.UpdatedAt = time.Now().UTC()
		out = *c
		out.Messages = nil
	}
	s.mu.Unlock()
	if !ok {
		notFound(w, r)
		return
	}
	render.JSON(w, r, out)
}

func (s *Server) deleteConversation(w http.ResponseWriter, r *http.Request) {
	id, _ := idParam(r)
	s.mu.Lock()
	_, ok := s.conversations[id]
	delete(s.conversations, id)
	s.mu.Unlock()
	if !ok {
		notFound(w, r)
		return
	}
	render.NoContent(w, r)
}

func (s *Server) sendChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BotID          int64  `json:"bot_id"`
		Message        string `json:"message"`
		ConversationID *int64 `json:"conversation_id"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.Message == "" {
		required(w, r, "message")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bots[req.BotID]; !ok {
		notFound(w, r)
		return
	}

	now := time.Now().UTC()
	var c *conversation
	if req.ConversationID != nil {
		var ok bool
		if c, ok = s.conversations[*req.ConversationID]; !ok || c.Bot != req.BotID {
			notFound(w, r)
			return
		}
	} else {
		s.nextID++
		title := req.Message
		if len(title) > 40 {
			title = title[:40]
		}
		c = &conversation{ID: s.nextID, Title: title, Bot: req.BotID, CreatedAt: now}
		s.conversations[c.ID] = c
	}

	s.nextID++
	user := message{ID: s.nextID, Role: "user", Content: req.Message, CreatedAt: now}
	s.nextID++
	assistant := message{ID: s.nextID, Role: "assistant", Content: "echo: " + req.Message, CreatedAt: now}
	c.Messages = append(c.Messages, user, assistant)
	c.UpdatedAt = now

	render.JSON(w, r, render.M{
		"conversation_id":   c.ID,
		"user_message":      user,
		"assistant_message": assistant,
	})
}

func (s *Server) orgUserBody(u *User) render.M {
	return render.M{
		"id":             u.ID,
		"username":       u.Username,
		"email":          u.Email,
		"first_name":     u.FirstName,
		"last_name":      u.LastName,
		"user_type":      u.UserType,
		"is_org_owner":   u.IsOrgOwner,
		"email_verified": u.EmailVerified,
	}
}

func (s *Server) listOrgUsers(w http.ResponseWriter, r *http.Request) {
	me := s.current(r)

	s.mu.Lock()
	var members []*User
	for _, u := range s.users {
		if u.OrgID == me.OrgID {
			members = append(members, u)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	out := make([]render.M, 0, len(members))
	for _, u := range members {
		out = append(out, s.orgUserBody(u))
	}
	s.mu.Unlock()

	render.JSON(w, r, out)
}

func (s *Server) createOrgUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		Username  string `json:"username"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.Username == "" {
		required(w, r, "username")
		return
	}
	owner := s.current(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[req.Username]; exists {
		fail(w, r, http.StatusBadRequest, render.M{"username": []string{"A user with that username already exists."}})
		return
	}
	s.nextID++
	u := &User{
		ID:        s.nextID,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		UserType:  "member",
		OrgID:     owner.OrgID,
		OrgName:   owner.OrgName,
		Plan:      owner.Plan,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	s.users[u.Username] = u

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, s.orgUserBody(u))
}

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, plans)
}

func (s *Server) getSubscription(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sub := s.subscription
	s.mu.Unlock()
	render.JSON(w, r, s.subscriptionBody(sub))
}

func (s *Server) updateSubscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlanCode string `json:"plan_code"`
	}
	_ = render.DecodeJSON(r.Body, &req)

	known := false
	for _, p := range plans {
		if p["code"] == req.PlanCode {
			known = true
		}
	}
	if !known {
		fail(w, r, http.StatusBadRequest, render.M{"error": "invalid_plan", "detail": "Unknown plan."})
		return
	}
	owner := s.current(r)

	s.mu.Lock()
	s.subscription.Plan = req.PlanCode
	for _, u := range s.users {
		if u.OrgID == owner.OrgID {
			u.Plan = req.PlanCode
		}
	}
	sub := s.subscription
	s.mu.Unlock()

	render.JSON(w, r, s.subscriptionBody(sub))
}

func (s *Server) subscriptionBody(sub subscription) render.M {
	body := render.M{"plan": sub.Plan, "status": sub.Status, "cancel_at_period_end": false}
	for _, p := range plans {
		if p["code"] == sub.Plan {
			if e, ok := p["entitlements"]; ok {
				body["entitlements"] = e
			}
		}
	}
	return body
}
