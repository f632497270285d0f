package core

import "errors"

// Protocol errors. All of them are reported to the host as the same error frame.
var (
	ErrUnknownCommand     = errors.New("unknown command")
	ErrNotInitialized     = errors.New("not initialized")
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrCommandTimeout     = errors.New("command timed out mid-payload")

	errNoData = errors.New("no data")
)
