package api

import "context"

// OrgUser is a member of the caller's organization.
type OrgUser struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	UserType      string `json:"user_type,omitempty"`
	IsOrgOwner    bool   `json:"is_org_owner"`
	EmailVerified bool   `json:"email_verified"`
}

// CreateOrgUserRequest adds a member. Only org owners may call it.
type CreateOrgUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

const orgUsersPath = "/api/org/users/"

// ListOrgUsers returns the organization's members.
func (c *Client) ListOrgUsers(ctx context.Context) ([]OrgUser, error) {
	var p page[OrgUser]
	if err := c.get(ctx, orgUsersPath, nil, &p); err != nil {
		return nil, err
	}
	return p.items(), nil
}

// CreateOrgUser adds a member to the organization.
func (c *Client) CreateOrgUser(ctx context.Context, req CreateOrgUserRequest) (*OrgUser, error) {
	var u OrgUser
	if err := c.post(ctx, orgUsersPath, req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
