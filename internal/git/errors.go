package git

import (
	"errors"
	"fmt"
)

// ErrOutputLimit is returned when the captured output of a command
// would exceed the hard buffer ceiling.
var ErrOutputLimit = errors.New("git output limit exceeded")

// ExecError reports a command that ran and exited non-zero. The
// combined stdout+stderr text is the only diagnostic git gives us, so
// it is the error message.
type ExecError struct {
	Command Command
	Code    int
	Output  string
}

func (e *ExecError) Error() string {
	if e.Output != "" {
		return e.Output
	}
	return fmt.Sprintf("git %s exited with code %d", e.Command, e.Code)
}

// LaunchError reports a process that could not be started at all,
// distinct from one that ran and failed.
type LaunchError struct {
	Binary string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching %s: %v", e.Binary, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ParseError reports structured output that did not match the expected
// text format, distinct from the command itself failing.
type ParseError struct {
	Format string
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s output: %s (line %q)", e.Format, e.Reason, e.Line)
}
