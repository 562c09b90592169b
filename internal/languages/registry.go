// Package languages resolves language names to executable command
// argvs. Templates are validated when the registry is built, so an
// unknown language or a bad template can never surface mid-execution.
package languages

import (
	"regexp"
	"strings"

	"github.com/s-will/GitCATS/internal/repository/models"
)

var placeholderPattern = regexp.MustCompile(`\{[^{}]*\}`)

type Registry struct {
	langs map[string]models.Language
}

// NewRegistry validates every configured language and returns the
// lookup table. Validation failures are ConfigErrors: a missing call
// template, or a template referencing a placeholder other than {name}
// and {suffix}.
func NewRegistry(cfg *models.Configuration) (*Registry, error) {
	langs := make(map[string]models.Language, len(cfg.Languages))
	for name, lang := range cfg.Languages {
		if lang.Call == "" {
			return nil, &models.ConfigError{Reference: "language " + name, Reason: "missing call template"}
		}
		if err := validateTemplate(name, lang.Call); err != nil {
			return nil, err
		}
		if lang.Compile != "" {
			if err := validateTemplate(name, lang.Compile); err != nil {
				return nil, err
			}
		}
		lang.Name = name
		langs[name] = lang
	}
	return &Registry{langs: langs}, nil
}

func (r *Registry) Lookup(name string) (models.Language, bool) {
	l, ok := r.langs[name]
	return l, ok
}

// RenderCall substitutes the submission file stem into the language's
// call template and splits the result into an argv. There is no shell
// involved at any point.
func (r *Registry) RenderCall(lang models.Language, stem string) []string {
	return render(lang.Call, stem, lang.Suffix)
}

// RenderCompile renders the compile command, or reports ok=false for
// languages without a compile step.
func (r *Registry) RenderCompile(lang models.Language, stem string) ([]string, bool) {
	if lang.Compile == "" {
		return nil, false
	}
	return render(lang.Compile, stem, lang.Suffix), true
}

func render(tmpl, stem, suffix string) []string {
	rendered := strings.NewReplacer("{name}", stem, "{suffix}", suffix).Replace(tmpl)
	return strings.Fields(rendered)
}

func validateTemplate(lang, tmpl string) error {
	for _, ph := range placeholderPattern.FindAllString(tmpl, -1) {
		if ph != "{name}" && ph != "{suffix}" {
			return &models.ConfigError{
				Reference: "language " + lang,
				Reason:    "template references unknown placeholder " + ph,
			}
		}
	}
	return nil
}
