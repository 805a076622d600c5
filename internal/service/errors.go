package service

import (
	"errors"
	"fmt"
)

// ErrTargetNotFound means the ban target resolved to no known account. No
// record is created and no enforcement is attempted.
var ErrTargetNotFound = errors.New("ban target could not be resolved")

// InvalidArgumentError reports exactly which argument token failed
// validation, so the command surface can echo it back.
type InvalidArgumentError struct {
	Argument string
	Token    string
}

func (e *InvalidArgumentError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("invalid %s: value is required", e.Argument)
	}
	return fmt.Sprintf("invalid %s %q", e.Argument, e.Token)
}

// PersistenceError wraps a store failure. The ban was NOT recorded; callers
// must never report it as issued.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("ban was not recorded: %v", e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }
