package validate

// Login is the sign-in form.
type Login struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// NewPassword is a password entered twice.
type NewPassword struct {
	Password string `json:"password" validate:"required,min=8"`
	Confirm  string `json:"confirm" validate:"eqfield=Password"`
}

// PasswordChange is the owner password form.
type PasswordChange struct {
	Current string `json:"current_password" validate:"required"`
	New     string `json:"new_password" validate:"required,min=8,nefield=Current"`
	Confirm string `json:"confirm" validate:"eqfield=New"`
}

// EmailVerification is the verification code form.
type EmailVerification struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,numeric,len=6"`
}

// PlanChange selects a subscription plan.
type PlanChange struct {
	Plan string `json:"plan" validate:"required,plancode"`
}

// Email checks a single address.
func Email(addr string) error {
	return Struct(struct {
		Email string `json:"email" validate:"required,email"`
	}{addr})
}
