package executor

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/criyle/go-sandbox/container"
	"github.com/criyle/go-sandbox/pkg/mount"
	"github.com/criyle/go-sandbox/pkg/rlimit"
	"github.com/criyle/go-sandbox/runner"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func init() {
	container.Init()
}

// SandboxExecutor runs each command inside a fresh namespaced container
// with the command's working directory bind mounted at /w. Linux only,
// needs root; selected explicitly via GITCATS_EXECUTOR=sandbox.
type SandboxExecutor struct {
	creds *credGen
}

func NewSandboxExecutor() (*SandboxExecutor, error) {
	if os.Geteuid() != 0 {
		return nil, errors.New("sandbox executor requires root privileges")
	}
	return &SandboxExecutor{creds: newCredGen()}, nil
}

func (e *SandboxExecutor) Run(ctx context.Context, c Command) (*Execution, error) {
	if c.Timeout <= 0 {
		return nil, ErrNoTimeout
	}
	if len(c.Argv) == 0 {
		return nil, errors.New("empty argv")
	}

	root, err := os.MkdirTemp("", "gitcats-box-")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create container root")
	}
	defer os.RemoveAll(root)

	env, err := e.buildContainer(root, c.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build container")
	}
	defer env.Destroy()

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open stdin pipe")
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open stdout pipe")
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open stderr pipe")
	}

	var stdout, stderr bytes.Buffer
	wg := &sync.WaitGroup{}
	wg.Add(2)
	go pipeSink(wg, stdoutR, &stdout)
	go pipeSink(wg, stderrR, &stderr)
	go func() {
		defer stdinW.Close()
		stdinW.Write(c.Stdin)
	}()

	rlims := rlimit.RLimits{
		CPU:      uint64(c.Timeout.Seconds()) + 1,
		CPUHard:  uint64(c.Timeout.Seconds()) + 2,
		Stack:    128 * 1024 * 1024,
		OpenFile: 2048,
	}

	start := time.Now()
	result := env.Execve(ctx, container.ExecveParam{
		Args:    c.Argv,
		Env:     []string{"PATH=/usr/local/bin:/usr/bin:/bin", "HOME=/w"},
		Files:   []uintptr{stdinR.Fd(), stdoutW.Fd(), stderrW.Fd()},
		RLimits: rlims.PrepareRLimit(),
	})
	stdinR.Close()
	stdoutW.Close()
	stderrW.Close()
	wg.Wait()
	stdoutR.Close()
	stderrR.Close()

	res := &Execution{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	switch {
	case ctx.Err() == context.DeadlineExceeded || result.Status == runner.StatusTimeLimitExceeded:
		res.Status = StatusTimeout
	case result.Status == runner.StatusNormal && result.ExitStatus == 0:
		res.Status = StatusOK
	case result.ExitStatus != 0:
		res.Status = StatusExitError
		res.ExitCode = result.ExitStatus
	default:
		res.Status = StatusLaunchError
		res.Stderr = append(res.Stderr, result.Error...)
	}

	slog.Debug("sandbox execution finished",
		"status", result.Status, "exitStatus", result.ExitStatus, "time", res.Duration)

	return res, nil
}

func (e *SandboxExecutor) buildContainer(root, workDir string) (container.Environment, error) {
	mb := mount.NewBuilder().
		WithBind("/bin", "bin", true).
		WithBind("/lib", "lib", true).
		WithBind("/lib64", "lib64", true).
		WithBind("/usr", "usr", true).
		WithBind("/etc/ld.so.cache", "/etc/ld.so.cache", true).
		WithProc().
		WithBind("/dev/null", "dev/null", false).
		WithTmpfs("tmp", "size=128m,nr_inodes=4k").
		WithBind(workDir, "w", false).
		FilterNotExist()

	cloneFlag := unix.CLONE_NEWIPC | unix.CLONE_NEWNET | unix.CLONE_NEWNS |
		unix.CLONE_NEWPID | unix.CLONE_NEWUSER | unix.CLONE_NEWUTS

	b := container.Builder{
		Root:          root,
		WorkDir:       "/w",
		Mounts:        mb.Mounts,
		Stderr:        os.Stderr,
		CredGenerator: e.creds,
		CloneFlags:    uintptr(cloneFlag),
	}
	return b.Build()
}

func pipeSink(wg *sync.WaitGroup, pipe *os.File, out io.Writer) {
	defer wg.Done()
	io.Copy(out, pipe)
}

type credGen struct {
	cur uint32
}

func newCredGen() *credGen {
	return &credGen{cur: 10000}
}

func (c *credGen) Get() syscall.Credential {
	n := atomic.AddUint32(&c.cur, 1)
	return syscall.Credential{
		Uid: n,
		Gid: n,
	}
}
