package runner

import (
	"context"
	"testing"
	"time"

	"github.com/s-will/GitCATS/internal/executor"
	"github.com/s-will/GitCATS/internal/repository/dto"
	"github.com/s-will/GitCATS/internal/repository/models"
)

type fakeExecutor struct {
	calls  []executor.Command
	script func(c executor.Command) *executor.Execution
}

func (f *fakeExecutor) Run(_ context.Context, c executor.Command) (*executor.Execution, error) {
	f.calls = append(f.calls, c)
	return f.script(c), nil
}

func okWithStdout(out string) func(executor.Command) *executor.Execution {
	return func(executor.Command) *executor.Execution {
		return &executor.Execution{Status: executor.StatusOK, Stdout: []byte(out)}
	}
}

func request(tests ...models.TestCase) *dto.RunRequest {
	return &dto.RunRequest{
		Participant:    "alice",
		Assignment:     "hw1",
		Language:       "python",
		CallArgv:       []string{"python3", "alice-hw1.py"},
		Tests:          tests,
		CaseTimeout:    time.Second,
		CompileTimeout: time.Second,
	}
}

func TestTestRunner_PassAndMismatch(t *testing.T) {
	tests := []struct {
		name     string
		stdout   string
		expected string
		want     models.Verdict
	}{
		{"exact match passes", "7\n", "7\n", models.VerdictPass},
		{"wrong answer fails", "8\n", "7\n", models.VerdictFail},
		{"single missing trailing byte fails", "7", "7\n", models.VerdictFail},
		{"single extra trailing byte fails", "7\n\n", "7\n", models.VerdictFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{script: okWithStdout(tt.stdout)}
			r := NewTestRunner(exec)
			res, err := r.Run(context.Background(), request(models.TestCase{
				Name: "1", Input: []byte("3 4\n"), Expected: []byte(tt.expected),
			}))
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if len(res.Outcomes) != 1 {
				t.Fatalf("expected one outcome, got %d", len(res.Outcomes))
			}
			if res.Outcomes[0].Verdict != tt.want {
				t.Fatalf("verdict mismatch: expected %s, got %s", tt.want, res.Outcomes[0].Verdict)
			}
		})
	}
}

func TestTestRunner_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status executor.Status
		want   models.Verdict
	}{
		{"timeout", executor.StatusTimeout, models.VerdictTimeout},
		{"nonzero exit", executor.StatusExitError, models.VerdictRuntimeError},
		{"launch failure", executor.StatusLaunchError, models.VerdictRuntimeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{script: func(executor.Command) *executor.Execution {
				return &executor.Execution{Status: tt.status, Stderr: []byte("boom")}
			}}
			r := NewTestRunner(exec)
			res, err := r.Run(context.Background(), request(models.TestCase{Name: "1", Expected: []byte("x")}))
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if res.Outcomes[0].Verdict != tt.want {
				t.Fatalf("verdict mismatch: expected %s, got %s", tt.want, res.Outcomes[0].Verdict)
			}
			if string(res.Outcomes[0].Stderr) != "boom" {
				t.Fatalf("stderr not retained: %q", res.Outcomes[0].Stderr)
			}
		})
	}
}

func TestTestRunner_CompileFailureCoversEveryCase(t *testing.T) {
	exec := &fakeExecutor{script: func(executor.Command) *executor.Execution {
		return &executor.Execution{Status: executor.StatusExitError, ExitCode: 1, Stderr: []byte("syntax error")}
	}}
	r := NewTestRunner(exec)

	req := request(
		models.TestCase{Name: "1", Expected: []byte("a")},
		models.TestCase{Name: "2", Expected: []byte("b")},
		models.TestCase{Name: "3", Expected: []byte("c")},
	)
	req.CompileArgv = []string{"g++", "-o", "alice-hw1", "alice-hw1.cc"}

	res, err := r.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(res.Outcomes))
	}
	for i, o := range res.Outcomes {
		if o.Verdict != models.VerdictCompileError {
			t.Fatalf("case %d: expected compile-error, got %s", i, o.Verdict)
		}
		if o.Case != i {
			t.Fatalf("outcomes out of order: index %d carries case %d", i, o.Case)
		}
	}
	// only the compile step may have launched a process
	if len(exec.calls) != 1 {
		t.Fatalf("expected 1 process launch, got %d", len(exec.calls))
	}
}

func TestTestRunner_CompilesOnceAndRunsEachCaseFresh(t *testing.T) {
	exec := &fakeExecutor{script: okWithStdout("ok\n")}
	r := NewTestRunner(exec)

	req := request(
		models.TestCase{Name: "1", Input: []byte("a\n"), Expected: []byte("ok\n")},
		models.TestCase{Name: "2", Input: []byte("b\n"), Expected: []byte("ok\n")},
	)
	req.CompileArgv = []string{"g++", "-o", "alice-hw1", "alice-hw1.cc"}

	res, err := r.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(exec.calls) != 3 {
		t.Fatalf("expected compile + 2 runs, got %d launches", len(exec.calls))
	}
	if string(exec.calls[1].Stdin) != "a\n" || string(exec.calls[2].Stdin) != "b\n" {
		t.Fatalf("case inputs not delivered per process: %q, %q", exec.calls[1].Stdin, exec.calls[2].Stdin)
	}
	for _, o := range res.Outcomes {
		if o.Verdict != models.VerdictPass {
			t.Fatalf("expected pass, got %s", o.Verdict)
		}
	}
}
