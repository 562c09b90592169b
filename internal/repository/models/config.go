package models

// Participant is a registered contributor. Branch is the git branch that
// maps to them and defaults to Name when the configuration omits it.
type Participant struct {
	Name   string `yaml:"name"`
	Branch string `yaml:"branch"`
}

// Language describes how submissions in one language are built and run.
// Call and Compile are command templates over the placeholders {name}
// (submission file stem) and {suffix}. Compile is optional, as is
// CondaInstall, the package spec installed before first use.
type Language struct {
	Name         string `yaml:"-"`
	Suffix       string `yaml:"suffix"`
	Call         string `yaml:"call"`
	Compile      string `yaml:"compile"`
	CondaInstall string `yaml:"conda-install"`
}

// TestCase holds fully materialized payloads. File references from the
// assignments document are resolved during load, so after load a test
// case is always plain bytes.
type TestCase struct {
	Name     string
	Input    []byte
	Expected []byte
}

type Assignment struct {
	Name  string
	Dir   string
	Tests []TestCase
}

// Submission links a participant to one solution file. Checked marks
// already reviewed work that must never be re-tested.
type Submission struct {
	Participant string `yaml:"participant"`
	Assignment  string `yaml:"assignment"`
	Language    string `yaml:"language"`
	Stem        string `yaml:"stem"`
	Checked     bool   `yaml:"checked"`
}

// Configuration is the validated, read-only view of the four
// configuration documents. It is constructed once per run and passed by
// reference; nothing mutates it afterwards.
type Configuration struct {
	Participants []Participant
	Languages    map[string]Language
	Assignments  []Assignment
	Submissions  []Submission
}

func (c *Configuration) Language(name string) (Language, bool) {
	l, ok := c.Languages[name]
	return l, ok
}

func (c *Configuration) Assignment(name string) (Assignment, bool) {
	for _, a := range c.Assignments {
		if a.Name == name {
			return a, true
		}
	}
	return Assignment{}, false
}

// SubmissionsFor returns the participant's submissions in document order.
func (c *Configuration) SubmissionsFor(participant string) []Submission {
	var subs []Submission
	for _, s := range c.Submissions {
		if s.Participant == participant {
			subs = append(subs, s)
		}
	}
	return subs
}
