// Package scheduler drives one grading run: it selects a participant's
// eligible submissions, provisions their language environments lazily
// and folds the runner's outcomes into a single result.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/s-will/GitCATS/internal/languages"
	"github.com/s-will/GitCATS/internal/provision"
	"github.com/s-will/GitCATS/internal/repository/dto"
	"github.com/s-will/GitCATS/internal/repository/models"
	"github.com/s-will/GitCATS/internal/runner"
)

type Options struct {
	// Root is the directory assignment dirs are relative to.
	Root           string
	CaseTimeout    time.Duration
	CompileTimeout time.Duration
}

type Scheduler struct {
	cfg    *models.Configuration
	reg    *languages.Registry
	prov   provision.Provisioner
	runner runner.Runner
	opts   Options
}

func New(cfg *models.Configuration, reg *languages.Registry, prov provision.Provisioner, run runner.Runner, opts Options) *Scheduler {
	return &Scheduler{cfg: cfg, reg: reg, prov: prov, runner: run, opts: opts}
}

// Run tests every non-checked submission of the participant. Checked
// submissions are skipped entirely and contribute no outcome; an empty
// eligible set is a passing run with zero outcomes.
func (s *Scheduler) Run(ctx context.Context, participant models.Participant) (*models.RunResult, error) {
	result := &models.RunResult{Participant: participant.Name}

	subs := s.eligible(participant)
	if len(subs) == 0 {
		slog.Info("no submissions to test", "participant", participant.Name)
		return result, nil
	}
	slog.Info("performing tests", "participant", participant.Name, "submissions", len(subs))

	for _, sub := range subs {
		lang, ok := s.reg.Lookup(sub.Language)
		if !ok {
			// validation guarantees this cannot happen
			return nil, &models.ConfigError{Reference: "language " + sub.Language, Reason: "not registered"}
		}
		asg, ok := s.cfg.Assignment(sub.Assignment)
		if !ok {
			return nil, &models.ConfigError{Reference: "assignment " + sub.Assignment, Reason: "not configured"}
		}

		dir := filepath.Join(s.opts.Root, asg.Dir)
		source := filepath.Join(dir, sub.Stem+lang.Suffix)
		if _, err := os.Stat(source); err != nil {
			slog.Warn("submission requires missing file",
				"participant", participant.Name, "assignment", asg.Name, "file", source)
			result.Failures = append(result.Failures, models.SubmissionFailure{
				Assignment: asg.Name,
				Language:   lang.Name,
				Reason:     models.FailureInvalid,
				Detail:     source,
			})
			continue
		}

		if err := s.prov.Ensure(ctx, lang); err != nil {
			slog.Error("environment provisioning failed",
				"language", lang.Name, "assignment", asg.Name, "error", err)
			result.Failures = append(result.Failures, models.SubmissionFailure{
				Assignment: asg.Name,
				Language:   lang.Name,
				Reason:     models.FailureDependency,
				Detail:     err.Error(),
			})
			continue
		}

		req := &dto.RunRequest{
			Participant:    participant.Name,
			Assignment:     asg.Name,
			Language:       lang.Name,
			Dir:            dir,
			CallArgv:       s.prov.WrapArgv(lang, s.reg.RenderCall(lang, sub.Stem)),
			Tests:          asg.Tests,
			CaseTimeout:    s.opts.CaseTimeout,
			CompileTimeout: s.opts.CompileTimeout,
		}
		if compile, ok := s.reg.RenderCompile(lang, sub.Stem); ok {
			req.CompileArgv = s.prov.WrapArgv(lang, compile)
		}

		subResult, err := s.runner.Run(ctx, req)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to run submission %s of %s", asg.Name, participant.Name)
		}
		result.Outcomes = append(result.Outcomes, subResult.Outcomes...)
	}

	s.logSummary(result)
	return result, nil
}

// eligible returns the participant's non-checked submissions ordered by
// assignment name, then document order.
func (s *Scheduler) eligible(participant models.Participant) []models.Submission {
	var subs []models.Submission
	for _, sub := range s.cfg.SubmissionsFor(participant.Name) {
		if sub.Checked {
			slog.Debug("skipping checked submission",
				"participant", participant.Name, "assignment", sub.Assignment)
			continue
		}
		subs = append(subs, sub)
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].Assignment < subs[j].Assignment
	})
	return subs
}

func (s *Scheduler) logSummary(result *models.RunResult) {
	if len(result.Outcomes) == 0 && len(result.Failures) == 0 {
		return
	}
	rows := []string{
		"",
		fmt.Sprintf("%-16s %-16s %-16s %-6s", "PARTICIPANT", "ASSIGNMENT", "TEST", "STATUS"),
	}
	for _, o := range result.Outcomes {
		rows = append(rows, fmt.Sprintf("%-16s %-16s %-16s %-6s",
			result.Participant, o.Assignment, o.CaseName, o.Verdict))
	}
	for _, f := range result.Failures {
		rows = append(rows, fmt.Sprintf("%-16s %-16s %-16s %-6s",
			result.Participant, f.Assignment, "*", f.Reason))
	}
	slog.Info("run summary" + strings.Join(rows, "\n    "))
	if result.Passed() {
		slog.Info("all required tests passed", "participant", result.Participant)
	} else {
		slog.Warn("some tests failed", "participant", result.Participant)
	}
}
