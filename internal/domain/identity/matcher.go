// Package identity decides whether a configured device name corresponds to a
// name discovered on the network. Discovery mangles names (case changes,
// escape leftovers, truncation), so the check is containment-based rather
// than exact.
package identity

import "strings"

// decorations are characters the discovery layer inserts or preserves
// cosmetically; both sides are compared with and without them.
var decorations = strings.NewReplacer(" ", "", "~", "")

// Matches reports whether configuredName corresponds to a discovered
// candidate. Tier one is case-insensitive containment in either the display
// name or the hostname; tier two retries after stripping decoration
// characters from both sides.
func Matches(configuredName, displayName, hostname string) bool {
	if configuredName == "" {
		return false
	}

	name := strings.ToLower(configuredName)
	if contains(strings.ToLower(displayName), name) || contains(strings.ToLower(hostname), name) {
		return true
	}

	stripped := decorations.Replace(name)
	if stripped == "" {
		return false
	}
	return contains(decorations.Replace(strings.ToLower(displayName)), stripped) ||
		contains(decorations.Replace(strings.ToLower(hostname)), stripped)
}

func contains(candidate, name string) bool {
	return candidate != "" && strings.Contains(candidate, name)
}

// MatchesAny reports whether any candidate matches. The result is existential
// and does not depend on candidate order.
func MatchesAny(configuredName string, candidates []Candidate) bool {
	for _, c := range candidates {
		if Matches(configuredName, c.DisplayName, c.Hostname) {
			return true
		}
	}
	return false
}

// Candidate is one discovered name pair offered for matching.
type Candidate struct {
	DisplayName string
	Hostname    string
}
