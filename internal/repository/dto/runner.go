package dto

import (
	"time"

	"github.com/s-will/GitCATS/internal/repository/models"
)

// RunRequest carries everything the test runner needs for one
// submission: the assignment directory, the rendered command argvs and
// the ordered test cases. CompileArgv is empty for interpreted
// languages.
type RunRequest struct {
	Participant string
	Assignment  string
	Language    string
	Dir         string
	CompileArgv []string
	CallArgv    []string
	Tests       []models.TestCase
	// Per test case wall-clock limit
	CaseTimeout time.Duration
	// Limit for the one-off compile step
	CompileTimeout time.Duration
}

// SubmissionResult holds one outcome per test case, in test case order.
type SubmissionResult struct {
	Outcomes []models.TestOutcome
}
