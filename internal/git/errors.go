package git

import (
	"fmt"
	"strings"
)

// MissingRefError is returned when a branch reference cannot be resolved
// to a revision. It names the exact remote+name that failed so the user
// can add the missing remote or branch.
type MissingRefError struct {
	Name   string
	Remote string
}

func (e *MissingRefError) Error() string {
	if e.Remote != "" {
		return fmt.Sprintf("branch %s could not be resolved on remote %s", e.Name, e.Remote)
	}
	return fmt.Sprintf("branch %s could not be resolved", e.Name)
}

// IsMissingRefError checks if an error is a MissingRefError
func IsMissingRefError(err error) bool {
	_, ok := err.(*MissingRefError)
	return ok
}

// MissingRemoteError is returned when a named remote is not configured in
// the repository.
type MissingRemoteError struct {
	Remote string
}

func (e *MissingRemoteError) Error() string {
	return fmt.Sprintf("no remote %s in the current repository", e.Remote)
}

// ConflictError is returned when a cherry-pick or patch application stops
// on conflicts. Paths lists the conflicted files.
type ConflictError struct {
	Hash  string
	Paths []string
	Err   error
}

func (e *ConflictError) Error() string {
	short := e.Hash
	if len(short) > 7 {
		short = short[:7]
	}
	if len(e.Paths) == 0 {
		return fmt.Sprintf("conflict while applying %s", short)
	}
	return fmt.Sprintf("conflict while applying %s: %s", short, strings.Join(e.Paths, ", "))
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// IsConflictError checks if an error is a ConflictError
func IsConflictError(err error) bool {
	_, ok := err.(*ConflictError)
	return ok
}
