package runner

import (
	"bytes"
	"context"

	"github.com/pkg/errors"

	"github.com/s-will/GitCATS/internal/executor"
	"github.com/s-will/GitCATS/internal/repository/dto"
	"github.com/s-will/GitCATS/internal/repository/models"
)

type Runner interface {
	// Run executes one submission against its assignment's test cases
	// and returns exactly one outcome per case, in case order.
	Run(ctx context.Context, req *dto.RunRequest) (*dto.SubmissionResult, error)
}

// TestRunner compiles a submission at most once, then runs every test
// case in a fresh child process with the case input on stdin. The only
// state shared between cases is the compiled artifact on disk.
type TestRunner struct {
	exec executor.Executor
}

func NewTestRunner(exec executor.Executor) *TestRunner {
	return &TestRunner{exec: exec}
}

func (r *TestRunner) Run(ctx context.Context, req *dto.RunRequest) (*dto.SubmissionResult, error) {
	result := &dto.SubmissionResult{}

	if len(req.CompileArgv) > 0 {
		compiled, err := r.exec.Run(ctx, executor.Command{
			Argv:    req.CompileArgv,
			Dir:     req.Dir,
			Timeout: req.CompileTimeout,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "compile step for %s", req.Assignment)
		}
		if compiled.Status != executor.StatusOK {
			for i, tc := range req.Tests {
				result.Outcomes = append(result.Outcomes, models.TestOutcome{
					Assignment: req.Assignment,
					Case:       i,
					CaseName:   tc.Name,
					Verdict:    models.VerdictCompileError,
					Stderr:     compiled.Stderr,
				})
			}
			return result, nil
		}
	}

	for i, tc := range req.Tests {
		run, err := r.exec.Run(ctx, executor.Command{
			Argv:    req.CallArgv,
			Dir:     req.Dir,
			Stdin:   tc.Input,
			Timeout: req.CaseTimeout,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "test %s of %s", tc.Name, req.Assignment)
		}

		outcome := models.TestOutcome{
			Assignment: req.Assignment,
			Case:       i,
			CaseName:   tc.Name,
			Stdout:     run.Stdout,
			Stderr:     run.Stderr,
			Duration:   run.Duration,
		}
		switch run.Status {
		case executor.StatusTimeout:
			outcome.Verdict = models.VerdictTimeout
		case executor.StatusExitError, executor.StatusLaunchError:
			outcome.Verdict = models.VerdictRuntimeError
		default:
			if bytes.Equal(run.Stdout, tc.Expected) {
				outcome.Verdict = models.VerdictPass
			} else {
				outcome.Verdict = models.VerdictFail
			}
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	return result, nil
}
