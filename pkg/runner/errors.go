package runner

import (
	"fmt"
	"strings"
)

// ExternalCommandError is returned when the command exits non-zero. Lines
// holds every non-empty line it wrote to stderr, capitalized, in order.
type ExternalCommandError struct {
	Args     []string
	ExitCode int
	Lines    []string
}

func (e *ExternalCommandError) Error() string {
	if len(e.Lines) == 0 {
		return fmt.Sprintf("%s exited with status %d", strings.Join(e.Args, " "), e.ExitCode)
	}
	return strings.Join(e.Lines, "\n")
}
