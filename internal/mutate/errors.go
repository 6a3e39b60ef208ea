package mutate

import (
	"errors"
	"fmt"
)

// ValidationError is raised before any local mutation; nothing needs rolling
// back when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}

// ConflictError reports that the server completed a call but declined to
// apply the operation (a delete answered cascaded=false). The optimistic
// change has already been reverted when the caller sees this.
type ConflictError struct {
	ID     string
	Reason string
}

func (e ConflictError) Error() string {
	if e.Reason == "" {
		return "server declined the operation"
	}
	return "server declined: " + e.Reason
}

func IsConflict(err error) bool {
	var c ConflictError
	return errors.As(err, &c)
}
