package executor

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

type Status int8

const (
	StatusOK Status = iota
	StatusTimeout
	StatusExitError
	StatusLaunchError
)

// ErrNoTimeout is returned for commands without a wall-clock bound.
// Submitted code is untrusted; an unbounded execution is never allowed.
var ErrNoTimeout = errors.New("command has no timeout")

// Command is one isolated child-process execution. Argv is executed
// directly, without a shell.
type Command struct {
	Argv    []string
	Dir     string
	Stdin   []byte
	Timeout time.Duration
}

type Execution struct {
	Status   Status
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Executor runs a single command to completion. Implementations must
// enforce Command.Timeout and terminate the child forcibly when it
// elapses. A non-nil error means the executor itself broke; anything
// the child did wrong is reported through Execution.Status.
type Executor interface {
	Run(ctx context.Context, cmd Command) (*Execution, error)
}
