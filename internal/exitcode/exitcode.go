package exitcode

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/felixgeelhaar/botctl/internal/api"
	bterrors "github.com/felixgeelhaar/botctl/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// ConfigError indicates an unusable configuration
	ConfigError = 3

	// Interrupted indicates the command was cancelled by a signal
	Interrupted = 4

	// AuthError indicates an authentication or authorization failure
	AuthError = 5

	// NetworkError indicates a network connectivity issue
	NetworkError = 6

	// ValidationError indicates input rejected before or by the API
	ValidationError = 7
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	Exit(DetermineExitCode(err))
}

// DetermineExitCode picks the exit code from the types in err's chain.
// Messages are never inspected.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if code, ok := bterrors.CodeOf(err); ok {
		switch code.Category() {
		case "AUTH":
			return AuthError
		case "VAL":
			return ValidationError
		case "CFG":
			return ConfigError
		case "USAGE":
			return UsageError
		}
		if code == bterrors.ErrCodeAPIUnreachable {
			return NetworkError
		}
	}

	if errors.Is(err, context.Canceled) {
		return Interrupted
	}

	var transportErr *api.TransportError
	if errors.As(err, &transportErr) {
		return NetworkError
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return AuthError
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return ValidationError
		}
	}

	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case ConfigError:
		return "Configuration error"
	case Interrupted:
		return "Interrupted"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case ValidationError:
		return "Validation error"
	default:
		return "Unknown error"
	}
}
