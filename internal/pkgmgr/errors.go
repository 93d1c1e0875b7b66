package pkgmgr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoManager means detection found no supported package manager. The whole
// run aborts before any step executes.
var ErrNoManager = errors.New("no supported package manager found")

// ErrPrivilegeRequired means the active manager needs root, the process is
// not elevated, and no way to elevate (sudo) is available.
var ErrPrivilegeRequired = errors.New("package manager requires elevated privileges")

// NoCandidateError is returned by Install when every candidate package name
// failed. Attempts preserves the order tried; Last is the final underlying
// error, kept so the failure is reproducible from the log alone.
type NoCandidateError struct {
	Attempts []string
	Last     error
}

func (e *NoCandidateError) Error() string {
	return fmt.Sprintf("no installable candidate (tried %s): %v",
		strings.Join(e.Attempts, ", "), e.Last)
}

func (e *NoCandidateError) Unwrap() error { return e.Last }
