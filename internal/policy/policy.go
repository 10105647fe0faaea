// Package policy implements branch-naming and commit-prefix rules.
package policy

import (
	"fmt"
	"regexp"
	"strings"
)

// CommitPrefix is the marker every commit made by the agent must carry.
const CommitPrefix = "[AI-AGENT]"

var (
	specialChars = regexp.MustCompile(`[^A-Z0-9\s_]`)
	whitespace   = regexp.MustCompile(`\s+`)
	underscores  = regexp.MustCompile(`_+`)
)

// NormalizeName uppercases a free-form name and collapses everything that
// is not alphanumeric into single underscores.
func NormalizeName(value string) string {
	upper := strings.ToUpper(strings.TrimSpace(value))
	upper = strings.ReplaceAll(upper, "-", "_")
	upper = specialChars.ReplaceAllString(upper, "")
	upper = whitespace.ReplaceAllString(upper, "_")
	upper = underscores.ReplaceAllString(upper, "_")
	return strings.Trim(upper, "_")
}

// BuildBranchName derives the work branch for a team and leader, e.g.
// ("RIFT Organisers", "Saiyam Kumar") → "RIFT_ORGANISERS_SAIYAM_KUMAR_AI_Fix".
func BuildBranchName(teamName, leaderName string) (string, error) {
	team := NormalizeName(teamName)
	leader := NormalizeName(leaderName)
	if team == "" || leader == "" {
		return "", fmt.Errorf("team name and leader name are required for branch naming")
	}
	return fmt.Sprintf("%s_%s_AI_Fix", team, leader), nil
}

// HasCommitPrefix reports whether the message already carries the marker.
func HasCommitPrefix(message string) bool {
	return strings.HasPrefix(message, CommitPrefix)
}

// EnsureCommitPrefix prepends the marker if absent. Applying it to an
// already-prefixed message is a no-op.
func EnsureCommitPrefix(message string) string {
	if HasCommitPrefix(message) {
		return message
	}
	return CommitPrefix + " " + message
}
