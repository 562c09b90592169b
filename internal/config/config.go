package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"

	"github.com/s-will/GitCATS/internal/fixtures"
	"github.com/s-will/GitCATS/internal/repository/models"
)

// Settings is the runtime configuration, read from the environment.
// The four YAML documents describing participants, languages,
// assignments and submissions are loaded separately by Load.
type Settings struct {
	ConfigDir      string        `env:"GITCATS_CONFIG_DIR" env-default:"."`
	Root           string        `env:"GITCATS_ROOT" env-default:"."`
	CaseTimeout    time.Duration `env:"GITCATS_CASE_TIMEOUT" env-default:"10s"`
	CompileTimeout time.Duration `env:"GITCATS_COMPILE_TIMEOUT" env-default:"60s"`
	// process or sandbox
	Executor string `env:"GITCATS_EXECUTOR" env-default:"process"`
	// uid/gid submissions are dropped to when running as root
	RunUid   uint32 `env:"GITCATS_RUN_UID" env-default:"0"`
	RunGid   uint32 `env:"GITCATS_RUN_GID" env-default:"0"`
	KeepEnvs bool   `env:"GITCATS_KEEP_ENVS" env-default:"false"`

	// local or minio
	FixtureStore  string `env:"GITCATS_FIXTURES" env-default:"local"`
	MinIOHost     string `env:"MINIO_HOST" env-default:"127.0.0.1:9000"`
	MinIOLogin    string `env:"MINIO_LOGIN"`
	MinIOPassword string `env:"MINIO_PASSWORD"`
	MinIOBucket   string `env:"MINIO_BUCKET" env-default:"gitcats"`

	RabbitMQHost     string `env:"RABBIT_HOST" env-default:"127.0.0.1"`
	RabbitMQPort     int    `env:"RABBIT_PORT" env-default:"5672"`
	RabbitMQUser     string `env:"RABBIT_USER" env-default:"guest"`
	RabbitMQPassword string `env:"RABBIT_PASSWORD" env-default:"guest"`
}

func NewSettings() (*Settings, error) {
	cfg := &Settings{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to read settings")
	}
	return cfg, nil
}

// Each configuration file carries exactly one required top-level key.
// A nil slice/map after parsing means the key is absent (or misspelled)
// and the document must be rejected, not treated as empty.
type document interface {
	key() string
	present() bool
}

type participantsDoc struct {
	Participants []models.Participant `yaml:"participants"`
}

func (d *participantsDoc) key() string   { return "participants" }
func (d *participantsDoc) present() bool { return d.Participants != nil }

type languagesDoc struct {
	Languages map[string]models.Language `yaml:"languages"`
}

func (d *languagesDoc) key() string   { return "languages" }
func (d *languagesDoc) present() bool { return d.Languages != nil }

type testCaseRecord struct {
	Name       string `yaml:"name"`
	Input      string `yaml:"input"`
	InputFile  string `yaml:"input_file"`
	Output     string `yaml:"output"`
	OutputFile string `yaml:"output_file"`
}

type assignmentRecord struct {
	Name  string           `yaml:"name"`
	Dir   string           `yaml:"dir"`
	Tests []testCaseRecord `yaml:"tests"`
}

type assignmentsDoc struct {
	Assignments []assignmentRecord `yaml:"assignments"`
}

func (d *assignmentsDoc) key() string   { return "assignments" }
func (d *assignmentsDoc) present() bool { return d.Assignments != nil }

type submissionsDoc struct {
	Submissions []models.Submission `yaml:"submissions"`
}

func (d *submissionsDoc) key() string   { return "submissions" }
func (d *submissionsDoc) present() bool { return d.Submissions != nil }

// Load reads the four configuration documents from dir, materializes
// test case payloads through store, applies defaults and validates
// referential integrity. Any problem is fatal: no student code runs
// against a broken configuration.
func Load(ctx context.Context, dir string, store fixtures.Storage) (*models.Configuration, error) {
	var (
		participants participantsDoc
		langs        languagesDoc
		assignments  assignmentsDoc
		submissions  submissionsDoc
	)
	if err := readDocument(dir, "participants.yml", &participants); err != nil {
		return nil, err
	}
	if err := readDocument(dir, "languages.yml", &langs); err != nil {
		return nil, err
	}
	if err := readDocument(dir, "assignments.yml", &assignments); err != nil {
		return nil, err
	}
	if err := readDocument(dir, "submissions.yml", &submissions); err != nil {
		return nil, err
	}

	cfg := &models.Configuration{
		Participants: participants.Participants,
		Languages:    make(map[string]models.Language, len(langs.Languages)),
		Submissions:  submissions.Submissions,
	}

	for i, p := range cfg.Participants {
		if p.Branch == "" {
			cfg.Participants[i].Branch = p.Name
		}
	}
	for name, lang := range langs.Languages {
		lang.Name = name
		cfg.Languages[name] = lang
	}
	for _, rec := range assignments.Assignments {
		asg, err := materializeAssignment(ctx, rec, store)
		if err != nil {
			return nil, err
		}
		cfg.Assignments = append(cfg.Assignments, asg)
	}
	for i, s := range cfg.Submissions {
		if s.Stem == "" {
			cfg.Submissions[i].Stem = s.Participant + "-" + s.Assignment
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readDocument(dir, name string, doc document) error {
	path := filepath.Join(dir, name)
	if err := cleanenv.ReadConfig(path, doc); err != nil {
		return errors.Wrapf(err, "cannot read configuration file %s", path)
	}
	if !doc.present() {
		return &models.ConfigError{
			Reference: path,
			Reason:    "needs a " + doc.key() + " entry",
		}
	}
	return nil
}

func materializeAssignment(ctx context.Context, rec assignmentRecord, store fixtures.Storage) (models.Assignment, error) {
	asg := models.Assignment{Name: rec.Name, Dir: rec.Dir}
	for i, tc := range rec.Tests {
		name := tc.Name
		if name == "" {
			name = fmt.Sprint(i + 1)
		}
		materialized := models.TestCase{Name: name, Input: []byte(tc.Input)}
		if tc.InputFile != "" {
			data, err := store.Get(ctx, tc.InputFile)
			if err != nil {
				return asg, errors.Wrapf(err, "assignment %s test %s", rec.Name, name)
			}
			materialized.Input = data
		}
		switch {
		case tc.OutputFile != "":
			data, err := store.Get(ctx, tc.OutputFile)
			if err != nil {
				return asg, errors.Wrapf(err, "assignment %s test %s", rec.Name, name)
			}
			materialized.Expected = data
		case tc.Output != "":
			materialized.Expected = []byte(tc.Output)
		default:
			return asg, &models.ConfigError{
				Reference: "assignment " + rec.Name + " test " + name,
				Reason:    "missing expected output",
			}
		}
		asg.Tests = append(asg.Tests, materialized)
	}
	return asg, nil
}

func validate(cfg *models.Configuration) error {
	names := map[string]bool{}
	branches := map[string]bool{}
	for _, p := range cfg.Participants {
		if p.Name == "" {
			return &models.ConfigError{Reference: "participants", Reason: "participant without a name"}
		}
		if names[p.Name] {
			return &models.ConfigError{Reference: "participant " + p.Name, Reason: "duplicate name"}
		}
		if branches[p.Branch] {
			return &models.ConfigError{Reference: "participant " + p.Name, Reason: "duplicate branch " + p.Branch}
		}
		names[p.Name] = true
		branches[p.Branch] = true
	}

	assignments := map[string]bool{}
	for _, a := range cfg.Assignments {
		if a.Name == "" || a.Dir == "" {
			return &models.ConfigError{Reference: "assignment " + a.Name, Reason: "missing required name or dir"}
		}
		if assignments[a.Name] {
			return &models.ConfigError{Reference: "assignment " + a.Name, Reason: "duplicate name"}
		}
		assignments[a.Name] = true
	}

	for _, s := range cfg.Submissions {
		ref := fmt.Sprintf("submission %s/%s", s.Participant, s.Assignment)
		if !names[s.Participant] {
			return &models.ConfigError{Reference: ref, Reason: "unknown participant " + s.Participant}
		}
		if !assignments[s.Assignment] {
			return &models.ConfigError{Reference: ref, Reason: "unknown assignment " + s.Assignment}
		}
		if _, ok := cfg.Languages[s.Language]; !ok {
			return &models.ConfigError{Reference: ref, Reason: "unknown language " + s.Language}
		}
	}
	return nil
}
