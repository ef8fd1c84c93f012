// Package version resolves the next semantic version from the
// previous release tag and a bump severity, and renders the
// name/tag templates of a rules file.
package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"release-draft-maker/internal/models"
)

// ParseTag parses a release tag as a semantic version. A leading "v"
// is accepted. An empty tag means no prior release and parses as 0.0.0.
func ParseTag(tag string) (*semver.Version, error) {
	if strings.TrimSpace(tag) == "" {
		return semver.New(0, 0, 0, "", ""), nil
	}
	v, err := semver.NewVersion(strings.TrimSpace(tag))
	if err != nil {
		return nil, fmt.Errorf("failed to parse previous tag %q: %w", tag, err)
	}
	return v, nil
}

// Resolve bumps the previous tag's version by the given severity.
func Resolve(prevTag string, sev models.Severity) (*semver.Version, error) {
	prev, err := ParseTag(prevTag)
	if err != nil {
		return nil, err
	}
	next := bump(prev, sev)
	return &next, nil
}

func bump(v *semver.Version, sev models.Severity) semver.Version {
	switch sev {
	case models.SeverityMajor:
		return v.IncMajor()
	case models.SeverityMinor:
		return v.IncMinor()
	default:
		return v.IncPatch()
	}
}

// Render substitutes the version placeholders in a name/tag template.
// $RESOLVED_VERSION is the version the severity actually resolved to;
// the $NEXT_*_VERSION placeholders are the three possible bumps of
// the previous tag.
func Render(tpl, prevTag string, resolved *semver.Version) (string, error) {
	prev, err := ParseTag(prevTag)
	if err != nil {
		return "", err
	}
	major := bump(prev, models.SeverityMajor)
	minor := bump(prev, models.SeverityMinor)
	patch := bump(prev, models.SeverityPatch)

	r := strings.NewReplacer(
		"$RESOLVED_VERSION", resolved.String(),
		"$NEXT_MAJOR_VERSION", major.String(),
		"$NEXT_MINOR_VERSION", minor.String(),
		"$NEXT_PATCH_VERSION", patch.String(),
	)
	return r.Replace(tpl), nil
}
