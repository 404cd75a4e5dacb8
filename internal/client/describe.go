package client

import (
	"errors"

	"github.com/desertthunder/botanica/internal/shared"
)

// Op names a controller operation for error reporting.
type Op int

const (
	OpLogin Op = iota
	OpLogout
	OpLoadMainData
	OpSaveMainData
	OpLoadList
	OpLoadDetail
	OpSaveJob
	OpDeleteJob
)

func (o Op) failure() string {
	switch o {
	case OpLogin:
		return "Login failed"
	case OpLogout:
		return "Error signing out on the server"
	case OpLoadMainData:
		return "Error loading data"
	case OpSaveMainData:
		return "Error saving data"
	case OpLoadList:
		return "Error loading jobs"
	case OpLoadDetail:
		return "Error loading job details"
	case OpSaveJob:
		return "Error saving job"
	case OpDeleteJob:
		return "Error deleting job"
	default:
		return "Error"
	}
}

// Status messages shown for outcomes that carry no backend message.
const (
	MsgSessionExpired = "Your session has expired. Please sign in again."
	MsgNotSignedIn    = "You are not signed in."
	MsgNoSelection    = "No job selected."
	MsgCancelled      = "Cancelled."
	MsgNoJobs         = "No saved jobs."
	MsgListLoaded     = "Job list loaded."
	MsgJobNotFound    = "Job not found."
	MsgSignedOut      = "Signed out."
)

// rejectedError is a 2xx response whose body reports failure.
type rejectedError struct {
	message string
	kind    error
}

func (e *rejectedError) Error() string {
	if e.message == "" {
		return e.kind.Error()
	}
	return e.kind.Error() + ": " + e.message
}

func (e *rejectedError) Unwrap() error { return e.kind }

// Describe turns an operation failure into the status message shown to the user.
func Describe(op Op, err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, shared.ErrSessionExpired):
		return MsgSessionExpired
	case errors.Is(err, shared.ErrNotAuthenticated):
		return MsgNotSignedIn
	case errors.Is(err, shared.ErrNoSelection):
		return MsgNoSelection
	case errors.Is(err, shared.ErrCancelled):
		return MsgCancelled
	}

	var rejected *rejectedError
	if errors.As(err, &rejected) && rejected.message != "" {
		return op.failure() + ": " + rejected.message
	}

	var be *shared.BackendError
	if errors.As(err, &be) && be.Message != "" {
		return op.failure() + ": " + be.Message
	}

	return op.failure() + ": " + err.Error()
}
