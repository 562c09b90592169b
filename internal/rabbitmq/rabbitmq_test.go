package rabbitmq

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/s-will/GitCATS/internal/repository/models"
)

func TestSendBeforeProducerReadyIsSafe(t *testing.T) {
	h := NewHandler(HandlerConfig{}, nil)
	// A delivery handled before the producer channel exists must be
	// dropped, not dereference a nil channel.
	h.send(&models.GradeReport{Id: "x", Branch: "alice"})

	h.Close()
	h.send(&models.GradeReport{Id: "x", Branch: "alice"})
}

func TestHandleMapsGradeOutcomes(t *testing.T) {
	passing := func(ctx context.Context, branch string) (string, *models.RunResult, bool, error) {
		return "alice", &models.RunResult{
			Participant: "alice",
			Outcomes:    []models.TestOutcome{{Assignment: "hw1", Case: 1, Verdict: models.VerdictPass}},
		}, true, nil
	}
	h := NewHandler(HandlerConfig{}, passing)
	report := h.handle(context.Background(), &models.GradeRequest{Id: "r1", Branch: "alice"})
	if !report.Found || !report.Passed {
		t.Fatalf("expected found passing report, got %+v", report)
	}
	if len(report.Outcomes) != 1 || report.Outcomes[0].Verdict != models.VerdictPass {
		t.Fatalf("unexpected outcomes: %+v", report.Outcomes)
	}

	missing := func(ctx context.Context, branch string) (string, *models.RunResult, bool, error) {
		return "", nil, false, nil
	}
	h = NewHandler(HandlerConfig{}, missing)
	report = h.handle(context.Background(), &models.GradeRequest{Id: "r2", Branch: "nobody"})
	if report.Found || !report.Passed {
		t.Fatalf("unknown branch must report found=false passed=true, got %+v", report)
	}

	failing := func(ctx context.Context, branch string) (string, *models.RunResult, bool, error) {
		return "", nil, false, errors.New("config broken")
	}
	h = NewHandler(HandlerConfig{}, failing)
	report = h.handle(context.Background(), &models.GradeRequest{Id: "r3", Branch: "alice"})
	if report.Passed || report.Error == "" {
		t.Fatalf("engine error must fail the report, got %+v", report)
	}
}
