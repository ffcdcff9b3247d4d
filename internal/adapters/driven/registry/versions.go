package registry

import (
	"slices"

	"github.com/Masterminds/semver/v3"

	"github.com/custodia-labs/connectorctl/internal/logger"
)

type parsedVersion struct {
	raw string
	v   *semver.Version
}

// parseVersions parses raw, dropping entries that are not valid versions.
func parseVersions(raw []string) []parsedVersion {
	out := make([]parsedVersion, 0, len(raw))
	for _, r := range raw {
		v, err := semver.NewVersion(r)
		if err != nil {
			logger.Debug("Ignoring invalid version '%s'", r)
			continue
		}
		out = append(out, parsedVersion{raw: r, v: v})
	}
	return out
}

// sortVersions returns raw in ascending precedence with duplicates removed.
// Prerelease versions are dropped unless prerelease is set.
func sortVersions(raw []string, prerelease bool) []string {
	parsed := parseVersions(raw)
	if !prerelease {
		parsed = slices.DeleteFunc(parsed, func(p parsedVersion) bool { return p.v.Prerelease() != "" })
	}

	slices.SortStableFunc(parsed, func(a, b parsedVersion) int { return a.v.Compare(b.v) })
	parsed = slices.CompactFunc(parsed, func(a, b parsedVersion) bool { return a.v.Equal(b.v) })

	out := make([]string, len(parsed))
	for i, p := range parsed {
		out[i] = p.raw
	}
	return out
}

// latestVersion returns the highest version in raw, or "" if none qualifies.
func latestVersion(raw []string, prerelease bool) string {
	sorted := sortVersions(raw, prerelease)
	if len(sorted) == 0 {
		return ""
	}
	return sorted[len(sorted)-1]
}

func validVersion(raw string) bool {
	_, err := semver.NewVersion(raw)
	return err == nil
}
