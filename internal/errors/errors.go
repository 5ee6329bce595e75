package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/botctl/internal/api"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Authentication errors (AUTH-001 to AUTH-099)
	ErrCodeAuthRequired         ErrorCode = "AUTH-001"
	ErrCodeAuthInvalid          ErrorCode = "AUTH-002"
	ErrCodeAuthExpired          ErrorCode = "AUTH-003"
	ErrCodeAuthLocked           ErrorCode = "AUTH-004"
	ErrCodeAuthMFAInvalid       ErrorCode = "AUTH-005"
	ErrCodeAuthResetToken       ErrorCode = "AUTH-006"
	ErrCodeAuthEmailUnverified  ErrorCode = "AUTH-007"
	ErrCodeAuthNotOwner         ErrorCode = "AUTH-008"
	ErrCodeAuthVerificationCode ErrorCode = "AUTH-009"

	// API errors (API-001 to API-099)
	ErrCodeAPIRejected    ErrorCode = "API-001"
	ErrCodeAPINotFound    ErrorCode = "API-002"
	ErrCodeAPIRateLimited ErrorCode = "API-003"
	ErrCodeAPIServer      ErrorCode = "API-004"
	ErrCodeAPIUnreachable ErrorCode = "API-005"
	ErrCodeAPIForbidden   ErrorCode = "API-006"

	// Validation errors (VAL-001 to VAL-099)
	ErrCodeValidation ErrorCode = "VAL-001"

	// Configuration errors (CFG-001 to CFG-099)
	ErrCodeConfigInvalid ErrorCode = "CFG-001"
	ErrCodeConfigRead    ErrorCode = "CFG-002"

	// Session storage errors (SES-001 to SES-099)
	ErrCodeSessionStorage ErrorCode = "SES-001"

	// Usage errors (USAGE-001 to USAGE-099)
	ErrCodeUsage ErrorCode = "USAGE-001"
)

// Category returns the prefix of the code, e.g. "AUTH".
func (c ErrorCode) Category() string {
	category, _, _ := strings.Cut(string(c), "-")
	return category
}

// BotctlError represents an enhanced error with code, suggestions, and documentation
type BotctlError struct {
	Code        ErrorCode
	Message     string
	Details     []string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *BotctlError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)

	// API errors are already summarized by Message.
	if e.Cause != nil && !isAPIError(e.Cause) && e.Cause.Error() != e.Message {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}

	for _, d := range e.Details {
		fmt.Fprintf(&b, "\n  - %s", d)
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			fmt.Fprintf(&b, "\n  • %s", suggestion)
		}
	}

	if e.DocsURL != "" {
		fmt.Fprintf(&b, "\n\nDocumentation: %s", e.DocsURL)
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *BotctlError) Unwrap() error {
	return e.Cause
}

// ErrorCode exposes the code to structured logging.
func (e *BotctlError) ErrorCode() string {
	return string(e.Code)
}

// New creates a new BotctlError
func New(code ErrorCode, message string) *BotctlError {
	return &BotctlError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new BotctlError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *BotctlError {
	return &BotctlError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *BotctlError) WithSuggestion(suggestion string) *BotctlError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *BotctlError) WithSuggestions(suggestions ...string) *BotctlError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDetails adds detail lines, typically field validation messages.
func (e *BotctlError) WithDetails(details ...string) *BotctlError {
	e.Details = append(e.Details, details...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *BotctlError) WithDocs(url string) *BotctlError {
	e.DocsURL = url
	return e
}

func isAPIError(err error) bool {
	var apiErr *api.Error
	return stderrors.As(err, &apiErr)
}

// CodeOf returns the code of the first BotctlError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var be *BotctlError
	if stderrors.As(err, &be) {
		return be.Code, true
	}
	return "", false
}

// Common error constructors for frequently used errors

// NewAuthRequiredError is returned when a command needs a session.
func NewAuthRequiredError() *BotctlError {
	return New(ErrCodeAuthRequired, "you are not signed in").
		WithSuggestion("Run 'botctl auth login' to sign in")
}

// NewNotOwnerError is returned before calling an owner-only endpoint.
func NewNotOwnerError(action string) *BotctlError {
	return New(ErrCodeAuthNotOwner, fmt.Sprintf("only the organization owner can %s", action)).
		WithSuggestion("Ask your organization owner to do this").
		WithSuggestion("Run 'botctl auth status' to see your role")
}

// NewValidationError reports client-side validation failures.
func NewValidationError(details ...string) *BotctlError {
	return New(ErrCodeValidation, "invalid input").WithDetails(details...)
}

// NewConfigInvalidError reports a configuration value that cannot be used.
func NewConfigInvalidError(details string) *BotctlError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", details)).
		WithSuggestion("Run 'botctl config show' to see the effective configuration").
		WithSuggestion("Run 'botctl config init' to write a fresh template")
}

// NewSessionStorageError reports a failure to read or write the session.
func NewSessionStorageError(cause error) *BotctlError {
	return Wrap(ErrCodeSessionStorage, "session storage failed", cause).
		WithSuggestion("Check permissions on the session directory (BOTCTL_SESSION_DIR)").
		WithSuggestion("For encrypted storage, check BOTCTL_SESSION_PASSPHRASE")
}

// NewUsageError reports invalid command usage.
func NewUsageError(cause error) *BotctlError {
	return Wrap(ErrCodeUsage, cause.Error(), cause).
		WithSuggestion("Run the command with --help to see its usage")
}

// structured maps backend error codes to CLI errors. Only the code drives
// the choice; the backend's message is shown as-is.
var structured = map[string]func(e *api.Error) *BotctlError{
	"invalid_mfa_code": func(e *api.Error) *BotctlError {
		return New(ErrCodeAuthMFAInvalid, "the MFA code is incorrect").
			WithSuggestion("Enter the current 6-digit code from your authenticator app")
	},
	"token_expired": func(e *api.Error) *BotctlError {
		return New(ErrCodeAuthResetToken, "the reset link has expired").
			WithSuggestion("Run 'botctl auth reset request' to get a new link")
	},
	"token_invalid": func(e *api.Error) *BotctlError {
		return New(ErrCodeAuthResetToken, "the reset link is invalid").
			WithSuggestion("Copy the whole token from the email").
			WithSuggestion("Run 'botctl auth reset request' to get a new link")
	},
	"invalid_credentials": func(e *api.Error) *BotctlError {
		return New(ErrCodeAuthInvalid, "invalid username or password").
			WithSuggestion("Run 'botctl auth reset request' if you forgot your password")
	},
	"account_locked": func(e *api.Error) *BotctlError {
		return New(ErrCodeAuthLocked, "the account is locked").
			WithSuggestion("Wait a few minutes before trying again").
			WithSuggestion("Reset your password with 'botctl auth reset request'")
	},
	"rate_limited": func(e *api.Error) *BotctlError {
		return New(ErrCodeAPIRateLimited, "too many requests").
			WithSuggestion("Wait a moment before trying again")
	},
	"email_not_verified": func(e *api.Error) *BotctlError {
		return New(ErrCodeAuthEmailUnverified, "your email address is not verified").
			WithSuggestion("Run 'botctl auth verify --code <code>' with the emailed code").
			WithSuggestion("Run 'botctl auth resend' to get a new code")
	},
	"not_org_owner": func(e *api.Error) *BotctlError {
		return New(ErrCodeAuthNotOwner, "only the organization owner can do this").
			WithSuggestion("Ask your organization owner to do this")
	},
	"invalid_code": func(e *api.Error) *BotctlError {
		return New(ErrCodeAuthVerificationCode, "the verification code is incorrect").
			WithSuggestion("Run 'botctl auth resend' to get a new code")
	},
}

// FromAPI converts errors returned by the api package into CLI errors
// with suggestions. Other errors are returned unchanged.
func FromAPI(err error) error {
	if err == nil {
		return nil
	}

	var transportErr *api.TransportError
	if stderrors.As(err, &transportErr) {
		return Wrap(ErrCodeAPIUnreachable, fmt.Sprintf("could not reach the API (%s %s)", transportErr.Method, transportErr.Path), err).
			WithSuggestion("Check the API URL with 'botctl config show'").
			WithSuggestion("Check your network connection")
	}

	var apiErr *api.Error
	if !stderrors.As(err, &apiErr) {
		return err
	}

	var out *BotctlError
	if build, ok := structured[apiErr.Code()]; ok {
		out = build(apiErr)
		out.Cause = err
	} else {
		out = fromStatus(apiErr)
		out.Cause = err
	}
	return out.WithDetails(apiErr.Details()...)
}

func fromStatus(e *api.Error) *BotctlError {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return New(ErrCodeAuthExpired, "your session has expired").
			WithSuggestion("Run 'botctl auth login' to sign in again")
	case e.StatusCode == http.StatusForbidden:
		return New(ErrCodeAPIForbidden, e.Message).
			WithSuggestion("Run 'botctl auth status' to check your role and plan")
	case e.StatusCode == http.StatusNotFound:
		return New(ErrCodeAPINotFound, e.Message).
			WithSuggestion("Check the ID; list resources to see what exists")
	case e.StatusCode == http.StatusLocked:
		return New(ErrCodeAuthLocked, e.Message).
			WithSuggestion("Wait a few minutes before trying again")
	case e.StatusCode == http.StatusTooManyRequests:
		return New(ErrCodeAPIRateLimited, e.Message).
			WithSuggestion("Wait a moment before trying again")
	case e.StatusCode >= 500:
		return New(ErrCodeAPIServer, e.Message).
			WithSuggestion("The backend failed; try again later")
	default:
		return New(ErrCodeAPIRejected, e.Message)
	}
}
