package executor

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ProcessExecutor runs commands as plain child processes. Each child
// gets its own process group so a timeout kills the whole tree, and
// when the executor runs as root it drops the child to an unprivileged
// uid/gid.
type ProcessExecutor struct {
	Uid uint32
	Gid uint32
}

func NewProcessExecutor(uid, gid uint32) *ProcessExecutor {
	// a uid without an explicit gid must not leave the child in root's
	// group
	if uid != 0 && gid == 0 {
		gid = uid
	}
	return &ProcessExecutor{Uid: uid, Gid: gid}
}

func (e *ProcessExecutor) Run(ctx context.Context, c Command) (*Execution, error) {
	if c.Timeout <= 0 {
		return nil, ErrNoTimeout
	}
	if len(c.Argv) == 0 {
		return nil, errors.New("empty argv")
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Dir = c.Dir
	cmd.Stdin = bytes.NewReader(c.Stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	attr := &syscall.SysProcAttr{Setpgid: true}
	if e.Uid != 0 && os.Geteuid() == 0 {
		attr.Credential = &syscall.Credential{Uid: e.Uid, Gid: e.Gid}
	}
	cmd.SysProcAttr = attr
	cmd.Cancel = func() error {
		// negative pid addresses the process group
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	// don't wait on pipes a grandchild may still hold open
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	res := &Execution{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			res.Status = StatusTimeout
			return res, nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.Status = StatusExitError
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		res.Status = StatusLaunchError
		res.Stderr = append(res.Stderr, err.Error()...)
		return res, nil
	}

	res.Status = StatusOK
	return res, nil
}
