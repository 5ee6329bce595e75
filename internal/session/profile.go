package session

// Profile is the cached snapshot of the signed-in principal.
//
// The profile is a cache, not a source of truth. IsOrgOwner and
// EmailVerified gate what the CLI offers, but the backend re-checks
// authorization on every call.
type Profile struct {
	Username         string  `json:"username"`
	Email            string  `json:"email"`
	UserType         string  `json:"user_type,omitempty"`
	OrganizationID   *int64  `json:"organization_id,omitempty"`
	OrganizationName *string `json:"organization_name,omitempty"`
	IsOrgOwner       bool    `json:"is_org_owner"`
	Plan             *string `json:"plan,omitempty"`
	EmailVerified    bool    `json:"email_verified"`
}

// ProfilePatch lists the fields to change in UpdateProfile.
// Nil fields are left untouched.
type ProfilePatch struct {
	Username         *string
	Email            *string
	UserType         *string
	OrganizationID   *int64
	OrganizationName *string
	IsOrgOwner       *bool
	Plan             *string
	EmailVerified    *bool
}

// Clone returns a deep copy of the profile.
func (p Profile) Clone() Profile {
	out := p
	if p.OrganizationID != nil {
		id := *p.OrganizationID
		out.OrganizationID = &id
	}
	if p.OrganizationName != nil {
		name := *p.OrganizationName
		out.OrganizationName = &name
	}
	if p.Plan != nil {
		plan := *p.Plan
		out.Plan = &plan
	}
	return out
}

// PlanCode returns the plan code or "" when absent.
func (p Profile) PlanCode() string {
	if p.Plan == nil {
		return ""
	}
	return *p.Plan
}

// Apply merges the patch into p and returns the result. p is not modified.
func (patch ProfilePatch) Apply(p Profile) Profile {
	out := p.Clone()
	if patch.Username != nil {
		out.Username = *patch.Username
	}
	if patch.Email != nil {
		out.Email = *patch.Email
	}
	if patch.UserType != nil {
		out.UserType = *patch.UserType
	}
	if patch.OrganizationID != nil {
		id := *patch.OrganizationID
		out.OrganizationID = &id
	}
	if patch.OrganizationName != nil {
		name := *patch.OrganizationName
		out.OrganizationName = &name
	}
	if patch.IsOrgOwner != nil {
		out.IsOrgOwner = *patch.IsOrgOwner
	}
	if patch.Plan != nil {
		plan := *patch.Plan
		out.Plan = &plan
	}
	if patch.EmailVerified != nil {
		out.EmailVerified = *patch.EmailVerified
	}
	return out
}
