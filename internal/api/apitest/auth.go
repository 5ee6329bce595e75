package apitest

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
)

type principal struct {
	username string
	token    string
}

func withUser(ctx context.Context, username, token string) context.Context {
	return context.WithValue(ctx, ctxKey{}, principal{username: username, token: token})
}

func (s *Server) current(r *http.Request) *User {
	p, ok := r.Context().Value(ctxKey{}).(principal)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[p.username]
}

func (s *Server) authBody(u *User, token string) render.M {
	body := render.M{
		"username":       u.Username,
		"email":          u.Email,
		"user_type":      u.UserType,
		"is_org_owner":   u.IsOrgOwner,
		"email_verified": u.EmailVerified,
	}
	if token != "" {
		body["token"] = token
	}
	if u.OrgID != 0 {
		body["organization"] = render.M{"id": u.OrgID, "name": u.OrgName}
	}
	if u.Plan != "" {
		body["plan"] = u.Plan
	}
	return body
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, render.M{"detail": "Malformed request."})
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.Username]
	if ok && u.Locked {
		s.mu.Unlock()
		fail(w, r, http.StatusLocked, render.M{"error": "account_locked", "detail": "Account locked."})
		return
	}
	if !ok || u.Password != req.Password {
		s.mu.Unlock()
		fail(w, r, http.StatusBadRequest, render.M{
			"error":            "invalid_credentials",
			"non_field_errors": []string{"Unable to log in with provided credentials."},
		})
		return
	}
	token := s.issueTokenLocked(u.Username)
	body := s.authBody(u, token)
	s.mu.Unlock()

	render.JSON(w, r, body)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.Username == "" {
		required(w, r, "username")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[req.Username]; exists {
		fail(w, r, http.StatusBadRequest, render.M{"username": []string{"A user with that username already exists."}})
		return
	}
	s.nextID++
	u := &User{
		ID:         s.nextID,
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		UserType:   "owner",
		OrgID:      s.nextID,
		OrgName:    req.Username + "'s organization",
		IsOrgOwner: true,
		Plan:       "free",
	}
	s.users[u.Username] = u
	s.codes[strings.ToLower(u.Email)] = fmt.Sprintf("%06d", s.nextID%1000000)

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, s.authBody(u, s.issueTokenLocked(u.Username)))
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	p := r.Context().Value(ctxKey{}).(principal)
	s.mu.Lock()
	delete(s.tokens, p.token)
	s.mu.Unlock()
	render.NoContent(w, r)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u := s.current(r)
	s.mu.Lock()
	body := s.authBody(u, "")
	s.mu.Unlock()
	render.JSON(w, r, body)
}

func (s *Server) requestReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.Email == "" {
		required(w, r, "email")
		return
	}
	// The response never reveals whether the address exists.
	render.JSON(w, r, render.M{"detail": "If the address exists, a reset link was sent."})
}

func (s *Server) validateReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	_ = render.DecodeJSON(r.Body, &req)

	s.mu.Lock()
	rt, ok := s.resets[req.Token]
	s.mu.Unlock()

	if !ok {
		fail(w, r, http.StatusBadRequest, render.M{"valid": false, "error": "token_invalid"})
		return
	}
	render.JSON(w, r, render.M{"valid": true, "email": rt.email, "mfa_required": rt.mfaRequired})
}

func (s *Server) confirmReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
		MFA      string `json:"mfa"`
	}
	_ = render.DecodeJSON(r.Body, &req)

	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.resets[req.Token]
	if !ok {
		fail(w, r, http.StatusBadRequest, render.M{"error": "token_invalid", "detail": "Reset link is invalid."})
		return
	}
	if rt.mfaRequired && req.MFA != MFACode {
		fail(w, r, http.StatusBadRequest, render.M{"error": "invalid_mfa_code", "detail": "The MFA code is incorrect."})
		return
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, rt.email) {
			u.Password = req.Password
		}
	}
	delete(s.resets, req.Token)
	render.JSON(w, r, render.M{"detail": "Password has been reset."})
}

func (s *Server) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	_ = render.DecodeJSON(r.Body, &req)

	s.mu.Lock()
	defer s.mu.Unlock()

	want, ok := s.codes[strings.ToLower(req.Email)]
	if !ok || want != req.Code {
		fail(w, r, http.StatusBadRequest, render.M{"error": "invalid_code", "detail": "Verification code is invalid."})
		return
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, req.Email) {
			u.EmailVerified = true
		}
	}
	delete(s.codes, strings.ToLower(req.Email))
	render.JSON(w, r, render.M{"detail": "Email verified."})
}

func (s *Server) resendVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	_ = render.DecodeJSON(r.Body, &req)

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(req.Email)
	if _, pending := s.codes[key]; !pending {
		for _, u := range s.users {
			if strings.EqualFold(u.Email, req.Email) && u.EmailVerified {
				fail(w, r, http.StatusBadRequest, render.M{"error": "already_verified", "detail": "Email is already verified."})
				return
			}
		}
	}
	s.nextID++
	s.codes[key] = fmt.Sprintf("%06d", s.nextID%1000000)
	render.JSON(w, r, render.M{"detail": "Verification code sent."})
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Current string `json:"currentPassword"`
		New     string `json:"newPassword"`
	}
	_ = render.DecodeJSON(r.Body, &req)
	u := s.current(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !u.EmailVerified {
		fail(w, r, http.StatusForbidden, render.M{"error": "email_not_verified", "detail": "Verify your email first."})
		return
	}
	if u.Password != req.Current {
		fail(w, r, http.StatusBadRequest, render.M{"error": "invalid_password", "detail": "Current password is incorrect."})
		return
	}
	u.Password = req.New
	render.NoContent(w, r)
}
