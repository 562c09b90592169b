package mappers

import (
	"github.com/google/uuid"

	"github.com/s-will/GitCATS/internal/repository/models"
)

// RunResultToReport flattens a run result into the queue response
// shape. A request without an id gets a generated one so callers can
// always correlate.
func RunResultToReport(req *models.GradeRequest, participant string, result *models.RunResult) *models.GradeReport {
	report := &models.GradeReport{
		Id:          req.Id,
		Branch:      req.Branch,
		Participant: participant,
		Found:       true,
		Passed:      result.Passed(),
		Outcomes:    make([]models.OutcomeReport, 0, len(result.Outcomes)),
	}
	if report.Id == "" {
		report.Id = uuid.NewString()
	}
	for _, o := range result.Outcomes {
		report.Outcomes = append(report.Outcomes, models.OutcomeReport{
			Assignment:    o.Assignment,
			Case:          o.Case,
			CaseName:      o.CaseName,
			Verdict:       o.Verdict,
			Stderr:        string(o.Stderr),
			ExecutionTime: o.Duration.Milliseconds(),
		})
	}
	for _, f := range result.Failures {
		report.Failures = append(report.Failures, models.FailureReport{
			Assignment: f.Assignment,
			Language:   f.Language,
			Reason:     f.Reason,
			Detail:     f.Detail,
		})
	}
	return report
}

// NotFoundReport is the response for a branch that matches no
// registered participant: nothing to test, not a failure.
func NotFoundReport(req *models.GradeRequest) *models.GradeReport {
	id := req.Id
	if id == "" {
		id = uuid.NewString()
	}
	return &models.GradeReport{Id: id, Branch: req.Branch, Found: false, Passed: true}
}
