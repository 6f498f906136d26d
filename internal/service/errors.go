package service

import "fmt"

// ValidationError attaches a request field and a user-facing message to
// one of the repository sentinels. errors.Is(err, repository.ErrXxx) keeps
// working through Unwrap.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Err: err}
}
