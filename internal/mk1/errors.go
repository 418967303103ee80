package mk1

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrBadArgs       = errors.New("bad arguments")
	ErrRateLimited   = errors.New("rate limited")
	ErrNoPresets     = errors.New("no preset store configured")
)

// CommandError wraps a failure of one facade command.
type CommandError struct {
	Action string
	Err    error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Action, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

func cmdErr(action string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CommandError
	if errors.As(err, &ce) {
		return err
	}
	return &CommandError{Action: action, Err: err}
}
