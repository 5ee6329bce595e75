package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/botctl/internal/session"
)

// Organization identifies the tenant a user belongs to.
type Organization struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AuthResponse is returned by login, registration and the current-user
// endpoint. Older backends send the organization flattened into
// organization_id and organization_name.
type AuthResponse struct {
	Token            string        `json:"token,omitempty"`
	Username         string        `json:"username"`
	Email            string        `json:"email"`
	UserType         string        `json:"user_type"`
	Organization     *Organization `json:"organization,omitempty"`
	OrganizationID   *int64        `json:"organization_id,omitempty"`
	OrganizationName *string       `json:"organization_name,omitempty"`
	IsOrgOwner       bool          `json:"is_org_owner"`
	Plan             *string       `json:"plan,omitempty"`
	EmailVerified    bool          `json:"email_verified"`
}

// Profile converts the response into the cached session profile.
func (r AuthResponse) Profile() session.Profile {
	p := session.Profile{
		Username:         r.Username,
		Email:            r.Email,
		UserType:         r.UserType,
		OrganizationID:   r.OrganizationID,
		OrganizationName: r.OrganizationName,
		IsOrgOwner:       r.IsOrgOwner,
		Plan:             r.Plan,
		EmailVerified:    r.EmailVerified,
	}
	if r.Organization != nil {
		id, name := r.Organization.ID, r.Organization.Name
		p.OrganizationID = &id
		p.OrganizationName = &name
	}
	return p.Clone()
}

// RegisterRequest is the sign-up form.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// ResetTokenStatus describes a password reset token.
type ResetTokenStatus struct {
	Valid       bool   `json:"valid"`
	Email       string `json:"email,omitempty"`
	MFARequired bool   `json:"mfa_required"`
}

// ConfirmPasswordResetRequest completes a password reset. MFA is only
// sent when the token requires it.
type ConfirmPasswordResetRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
	MFA      string `json:"mfa,omitempty" validate:"omitempty,numeric,len=6"`
}

// ErrNoToken is returned when a login succeeds without issuing a token.
var ErrNoToken = errors.New("api: backend did not issue a token")

// Login exchanges credentials for a token and starts a session.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	var resp AuthResponse
	body := map[string]string{"username": username, "password": password}
	if err := c.post(ctx, "/api/auth/login/", body, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, ErrNoToken
	}
	if err := c.session.Begin(ctx, resp.Token, resp.Profile()); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	return &resp, nil
}

// Register creates an account. The backend may hold back the token until
// the email address is verified; the session only starts when a token is
// returned.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.post(ctx, "/api/auth/register/", req, &resp); err != nil {
		return nil, err
	}
	if resp.Token != "" {
		if err := c.session.Begin(ctx, resp.Token, resp.Profile()); err != nil {
			return nil, fmt.Errorf("storing session: %w", err)
		}
	}
	return &resp, nil
}

// Logout tells the backend to revoke the token and clears the local
// session. The local session is cleared even when the call fails.
func (c *Client) Logout(ctx context.Context) error {
	callErr := c.post(ctx, "/api/auth/logout/", nil, nil)
	if err := c.session.Clear(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	if callErr != nil && !errors.Is(callErr, ErrUnauthenticated) {
		return callErr
	}
	return nil
}

// CurrentUser fetches the signed-in user and refreshes the cached
// profile.
func (c *Client) CurrentUser(ctx context.Context) (*session.Profile, error) {
	var resp AuthResponse
	if err := c.get(ctx, "/api/auth/me/", nil, &resp); err != nil {
		return nil, err
	}
	p := resp.Profile()
	if err := c.session.SetProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("storing profile: %w", err)
	}
	return &p, nil
}

// RequestPasswordReset asks the backend to email a reset link.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.post(ctx, "/api/auth/password-reset/", map[string]string{"email": email}, nil)
}

// ValidatePasswordReset checks a reset token before asking for a new
// password.
func (c *Client) ValidatePasswordReset(ctx context.Context, token string) (*ResetTokenStatus, error) {
	var status ResetTokenStatus
	if err := c.post(ctx, "/api/auth/password-reset/validate/", map[string]string{"token": token}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ConfirmPasswordReset sets the new password.
func (c *Client) ConfirmPasswordReset(ctx context.Context, req ConfirmPasswordResetRequest) error {
	return c.post(ctx, "/api/auth/password-reset/confirm/", req, nil)
}

// VerifyEmail submits the emailed verification code. When the cached
// profile belongs to the same address it is marked verified.
func (c *Client) VerifyEmail(ctx context.Context, email, code string) error {
	body := map[string]string{"email": email, "code": code}
	if err := c.post(ctx, "/api/auth/verify-email/", body, nil); err != nil {
		return err
	}

	p, ok := c.session.Profile()
	if !ok || !strings.EqualFold(p.Email, email) {
		return nil
	}
	verified := true
	if _, err := c.session.UpdateProfile(ctx, session.ProfilePatch{EmailVerified: &verified}); err != nil && !errors.Is(err, session.ErrNoProfile) {
		return fmt.Errorf("storing profile: %w", err)
	}
	return nil
}

// ResendVerification sends a new verification code.
func (c *Client) ResendVerification(ctx context.Context, email string) error {
	return c.post(ctx, "/api/auth/resend-verification/", map[string]string{"email": email}, nil)
}

// UpdateOwnerPassword changes the password of the signed-in org owner.
func (c *Client) UpdateOwnerPassword(ctx context.Context, current, next string) error {
	body := map[string]string{"currentPassword": current, "newPassword": next}
	return c.post(ctx, "/api/auth/account/password/", body, nil)
}
