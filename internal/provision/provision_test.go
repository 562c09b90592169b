package provision

import (
	"context"
	"reflect"
	"testing"

	"github.com/pkg/errors"

	"github.com/s-will/GitCATS/internal/executor"
	"github.com/s-will/GitCATS/internal/repository/models"
)

type fakeExecutor struct {
	calls  [][]string
	status executor.Status
}

func (f *fakeExecutor) Run(_ context.Context, c executor.Command) (*executor.Execution, error) {
	f.calls = append(f.calls, c.Argv)
	return &executor.Execution{Status: f.status, Stderr: []byte("conda said no")}, nil
}

var cpp = models.Language{Name: "c++11", Suffix: ".cc", Call: "./{name}", CondaInstall: "gxx_linux-64 make=4.2"}

func TestEnvName(t *testing.T) {
	if got := EnvName(cpp); got != "__gitcats-gxx_linux_64_make_4_2" {
		t.Fatalf("unexpected env name %q", got)
	}
}

func TestEnsureInstallsOncePerLanguage(t *testing.T) {
	exec := &fakeExecutor{status: executor.StatusOK}
	p := NewCondaProvisioner(exec, false, false)

	for i := 0; i < 3; i++ {
		if err := p.Ensure(context.Background(), cpp); err != nil {
			t.Fatalf("Ensure failed: %v", err)
		}
	}
	if len(exec.calls) != 1 {
		t.Fatalf("expected a single conda create, got %d calls", len(exec.calls))
	}
	want := []string{"conda", "create", "-y", "-n", "__gitcats-gxx_linux_64_make_4_2", "gxx_linux-64", "make=4.2"}
	if !reflect.DeepEqual(exec.calls[0], want) {
		t.Fatalf("conda create argv mismatch: %v", exec.calls[0])
	}
}

func TestEnsureFailureIsCachedAndTyped(t *testing.T) {
	exec := &fakeExecutor{status: executor.StatusExitError}
	p := NewCondaProvisioner(exec, false, false)

	first := p.Ensure(context.Background(), cpp)
	second := p.Ensure(context.Background(), cpp)
	if first == nil || second == nil {
		t.Fatal("expected provisioning errors")
	}
	var provErr *models.ProvisionError
	if !errors.As(first, &provErr) {
		t.Fatalf("expected ProvisionError, got %T", first)
	}
	if provErr.Language != "c++11" {
		t.Fatalf("wrong language in error: %s", provErr.Language)
	}
	if len(exec.calls) != 1 {
		t.Fatalf("failed install must not be retried, got %d calls", len(exec.calls))
	}
}

func TestEnsureSkipsLanguagesWithoutSpec(t *testing.T) {
	exec := &fakeExecutor{status: executor.StatusOK}
	p := NewCondaProvisioner(exec, false, false)
	if err := p.Ensure(context.Background(), models.Language{Name: "python", Call: "python3 {name}{suffix}"}); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if len(exec.calls) != 0 {
		t.Fatalf("language without install spec must not touch conda, got %d calls", len(exec.calls))
	}
}

func TestDisabledProvisionerDoesNothing(t *testing.T) {
	exec := &fakeExecutor{status: executor.StatusOK}
	p := NewCondaProvisioner(exec, true, false)
	if err := p.Ensure(context.Background(), cpp); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	argv := []string{"./alice-hw1"}
	if got := p.WrapArgv(cpp, argv); !reflect.DeepEqual(got, argv) {
		t.Fatalf("disabled provisioner must not wrap argv: %v", got)
	}
	if len(exec.calls) != 0 {
		t.Fatalf("expected no conda calls, got %d", len(exec.calls))
	}
}

func TestWrapArgv(t *testing.T) {
	p := NewCondaProvisioner(&fakeExecutor{status: executor.StatusOK}, false, false)
	got := p.WrapArgv(cpp, []string{"./alice-hw1"})
	want := []string{"conda", "run", "-n", "__gitcats-gxx_linux_64_make_4_2", "./alice-hw1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("wrap mismatch: %v", got)
	}
}

func TestCleanupRemovesOnlyCreatedEnvironments(t *testing.T) {
	exec := &fakeExecutor{status: executor.StatusOK}
	p := NewCondaProvisioner(exec, false, false)
	if err := p.Ensure(context.Background(), cpp); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	p.Cleanup(context.Background())
	if len(exec.calls) != 2 {
		t.Fatalf("expected create + remove, got %d calls", len(exec.calls))
	}
	want := []string{"conda", "env", "remove", "-y", "-n", "__gitcats-gxx_linux_64_make_4_2"}
	if !reflect.DeepEqual(exec.calls[1], want) {
		t.Fatalf("remove argv mismatch: %v", exec.calls[1])
	}
}

func TestCleanupKeepsEnvironmentsWhenAsked(t *testing.T) {
	exec := &fakeExecutor{status: executor.StatusOK}
	p := NewCondaProvisioner(exec, false, true)
	if err := p.Ensure(context.Background(), cpp); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	p.Cleanup(context.Background())
	if len(exec.calls) != 1 {
		t.Fatalf("keep-envs must skip removal, got %d calls", len(exec.calls))
	}
}
