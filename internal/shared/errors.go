package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication and access errors
	ErrAuthenticationFailed = fmt.Errorf("authentication failed")
	ErrNotAuthenticated     = fmt.Errorf("not authenticated")
	ErrAccessDenied         = fmt.Errorf("access denied")
	ErrNoActiveProject      = fmt.Errorf("no active project")

	// Document adapter errors
	ErrUnsupportedFormat = fmt.Errorf("unsupported document format")
	ErrCorruptDocument   = fmt.Errorf("corrupt document")

	// Dictionary errors
	ErrTypeMismatch   = fmt.Errorf("entity type mismatch")
	ErrUnknownToken   = fmt.Errorf("unknown token")
	ErrAmbiguousToken = fmt.Errorf("ambiguous token")
	ErrEntryInUse     = fmt.Errorf("dictionary entry appears in restored output")
	ErrWriteConflict  = fmt.Errorf("dictionary write conflict")

	// Detection errors
	ErrClassifierUnavailable = fmt.Errorf("span classifier unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
