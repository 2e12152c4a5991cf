package exitcode

import "errors"

// Exit codes for term-chat commands
const (
	Success   = 0
	Error     = 1
	Config    = 2   // missing or invalid configuration
	API       = 3   // the endpoint answered with an error
	Cancelled = 130 // 128 + SIGINT
)

// ExitError is an error that carries a specific exit code
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e ExitError) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e ExitError) Unwrap() error {
	return e.Err
}

// Convenience constructors
func ConfigError(err error) ExitError { return ExitError{Code: Config, Err: err} }
func APIError(err error) ExitError    { return ExitError{Code: API, Err: err} }
func Cancel() ExitError               { return ExitError{Code: Cancelled, Message: "cancelled"} }

// CodeOf returns the exit code for err: Success for nil, the carried code
// for an ExitError anywhere in the chain, Error otherwise.
func CodeOf(err error) int {
	if err == nil {
		return Success
	}
	var exitErr ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return Error
}
