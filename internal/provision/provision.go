// Package provision installs language toolchains on demand through
// conda, one environment per install spec, at most once per run.
package provision

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/s-will/GitCATS/internal/executor"
	"github.com/s-will/GitCATS/internal/repository/models"
)

const installTimeout = 10 * time.Minute

var envSanitizer = regexp.MustCompile(`\W+`)

type Provisioner interface {
	// Ensure makes the language's environment available. Idempotent: a
	// repeated call for the same environment returns the cached result
	// without touching conda again.
	Ensure(ctx context.Context, lang models.Language) error
	// WrapArgv prefixes argv so it runs inside the language's
	// environment, when it has one.
	WrapArgv(lang models.Language, argv []string) []string
	Cleanup(ctx context.Context)
}

// EnvName derives the conda environment name for a language, replacing
// every non-word rune of the install spec with an underscore.
func EnvName(lang models.Language) string {
	return "__gitcats-" + envSanitizer.ReplaceAllString(lang.CondaInstall, "_")
}

type CondaProvisioner struct {
	exec executor.Executor
	// mirrors --skip-depends
	Disabled bool
	// keep environments after the run, for debugging
	KeepEnvs bool
	attempts map[string]error
}

func NewCondaProvisioner(exec executor.Executor, disabled, keepEnvs bool) *CondaProvisioner {
	return &CondaProvisioner{
		exec:     exec,
		Disabled: disabled,
		KeepEnvs: keepEnvs,
		attempts: make(map[string]error),
	}
}

func (p *CondaProvisioner) Ensure(ctx context.Context, lang models.Language) error {
	if p.Disabled || lang.CondaInstall == "" {
		return nil
	}
	env := EnvName(lang)
	if err, done := p.attempts[env]; done {
		return err
	}

	slog.Debug("setting up conda environment", "language", lang.Name, "env", env)
	argv := append([]string{"conda", "create", "-y", "-n", env}, strings.Fields(lang.CondaInstall)...)
	res, err := p.exec.Run(ctx, executor.Command{Argv: argv, Timeout: installTimeout})

	var outcome error
	switch {
	case err != nil:
		outcome = &models.ProvisionError{Language: lang.Name, Err: err}
	case res.Status != executor.StatusOK:
		outcome = &models.ProvisionError{
			Language: lang.Name,
			Err:      &installFailure{stderr: strings.TrimSpace(string(res.Stderr))},
		}
	}
	p.attempts[env] = outcome
	return outcome
}

func (p *CondaProvisioner) WrapArgv(lang models.Language, argv []string) []string {
	if p.Disabled || lang.CondaInstall == "" {
		return argv
	}
	return append([]string{"conda", "run", "-n", EnvName(lang)}, argv...)
}

// Cleanup removes every environment this run created.
func (p *CondaProvisioner) Cleanup(ctx context.Context) {
	if p.KeepEnvs {
		return
	}
	for env, err := range p.attempts {
		if err != nil {
			continue
		}
		slog.Debug("removing conda environment", "env", env)
		argv := []string{"conda", "env", "remove", "-y", "-n", env}
		if _, err := p.exec.Run(ctx, executor.Command{Argv: argv, Timeout: installTimeout}); err != nil {
			slog.Warn("failed to remove conda environment", "env", env, "error", err)
		}
	}
	p.attempts = make(map[string]error)
}

type installFailure struct {
	stderr string
}

func (e *installFailure) Error() string {
	if e.stderr == "" {
		return "conda create exited with an error"
	}
	return "conda create failed: " + e.stderr
}
