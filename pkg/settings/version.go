package settings

import (
	"strings"

	"golang.org/x/mod/semver"
)

// canonical adds the "v" prefix x/mod/semver expects.
func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// ValidVersion reports whether v is a semantic version, with or without a
// leading "v".
func ValidVersion(v string) bool {
	return semver.IsValid(canonical(v))
}

// VersionStale reports whether recorded is strictly older than running.
// Either side being empty or malformed yields false so a bad value is never
// rewritten by reconciliation.
func VersionStale(recorded, running string) bool {
	r, a := canonical(recorded), canonical(running)
	if !semver.IsValid(r) || !semver.IsValid(a) {
		return false
	}
	return semver.Compare(r, a) < 0
}
