package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/s-will/GitCATS/internal/config"
	"github.com/s-will/GitCATS/internal/executor"
	"github.com/s-will/GitCATS/internal/fixtures"
	"github.com/s-will/GitCATS/internal/languages"
	"github.com/s-will/GitCATS/internal/provision"
	"github.com/s-will/GitCATS/internal/rabbitmq"
	"github.com/s-will/GitCATS/internal/repository/models"
	"github.com/s-will/GitCATS/internal/resolver"
	"github.com/s-will/GitCATS/internal/runner"
	"github.com/s-will/GitCATS/internal/scheduler"
)

var (
	flagParticipant string
	flagConfigDir   string
	flagRoot        string
	flagSkipDepends bool
	flagLogLevel    string
)

func setLogLevel(level string) {
	switch level {
	case "debug":
		slog.SetLogLoggerLevel(slog.LevelDebug)
	case "info":
		slog.SetLogLoggerLevel(slog.LevelInfo)
	case "warn":
		slog.SetLogLoggerLevel(slog.LevelWarn)
	case "error":
		slog.SetLogLoggerLevel(slog.LevelError)
	default:
		slog.SetLogLoggerLevel(slog.LevelInfo)
	}
}

func main() {
	root := &cobra.Command{
		Use:           "gitcats",
		Short:         "Git-based class assignment testing",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setLogLevel(flagLogLevel)
		},
	}
	root.PersistentFlags().StringVar(&flagLogLevel, "loglevel", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "directory with the yml configuration files")
	root.PersistentFlags().StringVar(&flagRoot, "root", "", "directory assignment dirs are relative to")
	root.PersistentFlags().BoolVar(&flagSkipDepends, "skip-depends", false, "skip installation of language dependencies")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Test the submissions of one participant's branch",
		RunE:  runGrading,
	}
	runCmd.Flags().StringVar(&flagParticipant, "participant", "", "branch identifier of the participant")
	runCmd.MarkFlagRequired("participant")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Consume grade requests from a queue",
		RunE:  runServe,
	}

	root.AddCommand(runCmd, serveCmd)

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

type engine struct {
	cfg      *models.Configuration
	sched    *scheduler.Scheduler
	prov     provision.Provisioner
	settings *config.Settings
}

func buildEngine(ctx context.Context) (*engine, error) {
	settings, err := config.NewSettings()
	if err != nil {
		return nil, err
	}
	if flagConfigDir != "" {
		settings.ConfigDir = flagConfigDir
	}
	if flagRoot != "" {
		settings.Root = flagRoot
	}

	store, err := buildStorage(settings)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(ctx, settings.ConfigDir, store)
	if err != nil {
		return nil, err
	}
	reg, err := languages.NewRegistry(cfg)
	if err != nil {
		return nil, err
	}
	exec, err := buildExecutor(settings)
	if err != nil {
		return nil, err
	}
	prov := provision.NewCondaProvisioner(exec, flagSkipDepends, settings.KeepEnvs)
	sched := scheduler.New(cfg, reg, prov, runner.NewTestRunner(exec), scheduler.Options{
		Root:           settings.Root,
		CaseTimeout:    settings.CaseTimeout,
		CompileTimeout: settings.CompileTimeout,
	})
	return &engine{cfg: cfg, sched: sched, prov: prov, settings: settings}, nil
}

func buildStorage(settings *config.Settings) (fixtures.Storage, error) {
	switch settings.FixtureStore {
	case "minio":
		return fixtures.NewMinioStorage(fixtures.MinioConfig{
			Url:      settings.MinIOHost,
			Login:    settings.MinIOLogin,
			Password: settings.MinIOPassword,
			Bucket:   settings.MinIOBucket,
		})
	default:
		return fixtures.NewLocalStorage(settings.Root), nil
	}
}

func buildExecutor(settings *config.Settings) (executor.Executor, error) {
	switch settings.Executor {
	case "sandbox":
		return executor.NewSandboxExecutor()
	default:
		return executor.NewProcessExecutor(settings.RunUid, settings.RunGid), nil
	}
}

// grade resolves one branch and runs its submissions. found is false
// when the branch names no registered participant.
func (e *engine) grade(ctx context.Context, branch string) (string, *models.RunResult, bool, error) {
	participant, found, err := resolver.Resolve(e.cfg, branch)
	if err != nil {
		return "", nil, false, err
	}
	if !found {
		return "", nil, false, nil
	}
	result, err := e.sched.Run(ctx, participant)
	if err != nil {
		return participant.Name, nil, true, err
	}
	return participant.Name, result, true, nil
}

func runGrading(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.prov.Cleanup(context.Background())

	name, result, found, err := eng.grade(ctx, flagParticipant)
	if err != nil {
		return err
	}
	if !found {
		slog.Info("branch does not name a registered participant; no tests are performed",
			"branch", flagParticipant)
		return nil
	}
	if !result.Passed() {
		return errors.Errorf("run for %s failed: there is still work to do", name)
	}
	slog.Info("you're all set", "participant", name)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.prov.Cleanup(context.Background())

	handler := rabbitmq.NewHandler(rabbitmq.HandlerConfig{
		Login:    eng.settings.RabbitMQUser,
		Password: eng.settings.RabbitMQPassword,
		Host:     eng.settings.RabbitMQHost,
		Port:     eng.settings.RabbitMQPort,
	}, eng.grade)
	if err := handler.Start(ctx); err != nil {
		return err
	}
	slog.Info("serving grade requests")
	<-ctx.Done()
	handler.Close()
	return nil
}
