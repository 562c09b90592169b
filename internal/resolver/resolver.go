// Package resolver maps an incoming branch identifier to a registered
// participant.
package resolver

import (
	"strings"

	"github.com/s-will/GitCATS/internal/repository/models"
)

// Delimiter separates the participant part of a branch name from a
// free-form suffix, as in "alice#retry".
const Delimiter = "#"

// Resolve strips an optional delimiter suffix from branch and matches
// the remainder exactly (case-sensitive) against each participant's
// branch name. A miss is not an error: the caller treats it as
// "nothing to test". Two participants sharing a branch name violate the
// uniqueness invariant and yield a ConfigError.
func Resolve(cfg *models.Configuration, branch string) (models.Participant, bool, error) {
	name, _, _ := strings.Cut(branch, Delimiter)

	var match models.Participant
	found := false
	for _, p := range cfg.Participants {
		if p.Branch != name {
			continue
		}
		if found {
			return models.Participant{}, false, &models.ConfigError{
				Reference: "branch " + name,
				Reason:    "matches more than one participant",
			}
		}
		match = p
		found = true
	}
	return match, found, nil
}
