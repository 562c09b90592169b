package models

import "time"

type Verdict string

const (
	VerdictPass         Verdict = "pass"
	VerdictFail         Verdict = "fail"
	VerdictCompileError Verdict = "compile-error"
	VerdictTimeout      Verdict = "timeout"
	VerdictRuntimeError Verdict = "runtime-error"
)

// TestOutcome records one test case execution. Stderr is diagnostic
// only; the verdict depends on stdout and the exit status alone.
type TestOutcome struct {
	Assignment string
	Case       int
	CaseName   string
	Verdict    Verdict
	Stdout     []byte
	Stderr     []byte
	Duration   time.Duration
}

type FailureReason string

const (
	// FailureInvalid marks a submission whose source file is missing.
	FailureInvalid FailureReason = "invalid"
	// FailureDependency marks submissions whose language environment
	// could not be provisioned. Distinct from a test failure.
	FailureDependency FailureReason = "dependency-failed"
)

// SubmissionFailure is a submission-level failure that produced no test
// outcomes but still fails the run.
type SubmissionFailure struct {
	Assignment string
	Language   string
	Reason     FailureReason
	Detail     string
}

// RunResult aggregates everything recorded for one participant's run.
// An empty result (nothing eligible to test) counts as a pass.
type RunResult struct {
	Participant string
	Outcomes    []TestOutcome
	Failures    []SubmissionFailure
}

func (r *RunResult) Passed() bool {
	if len(r.Failures) > 0 {
		return false
	}
	for _, o := range r.Outcomes {
		if o.Verdict != VerdictPass {
			return false
		}
	}
	return true
}
