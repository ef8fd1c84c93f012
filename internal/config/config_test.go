package config

import (
	"errors"
	"testing"

	"release-draft-maker/internal/models"
)

var validRules = []byte(`
name-template: "v$RESOLVED_VERSION"
tag-template: "v$RESOLVED_VERSION"
categories:
  - title: "🚀 Features"
    labels: ["✏️ Feature"]
  - title: "🐛 Bug Fixes"
    labels: ["☢️ Bug"]
change-template: "* $TITLE (#$NUMBER) @$AUTHOR"
exclude-contributors: ["dependabot"]
version-resolver:
  major:
    labels: ["💥 Breaking"]
  minor:
    labels: ["✏️ Feature"]
  patch:
    labels: ["☢️ Bug"]
  default: patch
autolabeler:
  - label: "☢️ Bug"
    title: ["/fix/i", "/bug/i"]
  - label: "✏️ Feature"
    title: ["/^add /i", "/feature/i"]
    branch: ['/^feature\//']
`)

func TestParseValidRules(t *testing.T) {
	rs, err := Parse(validRules)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(rs.Categories) != 2 {
		t.Errorf("expected 2 categories, got %d", len(rs.Categories))
	}
	if len(rs.CompiledRules()) != 2 {
		t.Errorf("expected 2 compiled autolabel rules, got %d", len(rs.CompiledRules()))
	}

	if i, ok := rs.CategoryIndex("☢️ Bug"); !ok || i != 1 {
		t.Errorf("expected bug label in category 1, got %d (ok=%v)", i, ok)
	}
	if sev, ok := rs.SeverityFor("✏️ Feature"); !ok || sev != models.SeverityMinor {
		t.Errorf("expected feature label to resolve to minor, got %v (ok=%v)", sev, ok)
	}
	if sev, ok := rs.SeverityFor("💥 Breaking"); !ok || sev != models.SeverityMajor {
		t.Errorf("expected breaking label to resolve to major, got %v (ok=%v)", sev, ok)
	}
	if rs.DefaultSeverity() != models.SeverityPatch {
		t.Errorf("expected default severity patch, got %v", rs.DefaultSeverity())
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	rs, err := Parse([]byte(`
categories:
  - title: "Fixes"
    labels: ["bug"]
version-resolver:
  patch:
    labels: ["bug"]
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if rs.NameTemplate != DefaultNameTemplate {
		t.Errorf("expected default name template, got %q", rs.NameTemplate)
	}
	if rs.TagTemplate != DefaultTagTemplate {
		t.Errorf("expected default tag template, got %q", rs.TagTemplate)
	}
	if rs.ChangeTemplate != DefaultChangeTemplate {
		t.Errorf("expected default change template, got %q", rs.ChangeTemplate)
	}
	if rs.DefaultSeverity() != models.SeverityPatch {
		t.Errorf("expected default severity patch, got %v", rs.DefaultSeverity())
	}
}

func TestParseDuplicateLabelAcrossCategories(t *testing.T) {
	_, err := Parse([]byte(`
categories:
  - title: "Features"
    labels: ["enhancement"]
  - title: "Improvements"
    labels: ["enhancement"]
`))
	if !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig for duplicate label, got %v", err)
	}
}

func TestParseCategoryWithoutLabels(t *testing.T) {
	_, err := Parse([]byte(`
categories:
  - title: "Features"
    labels: []
`))
	if !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig for empty category, got %v", err)
	}
}

func TestParseUnmappedAutolabel(t *testing.T) {
	_, err := Parse([]byte(`
categories:
  - title: "Fixes"
    labels: ["bug"]
autolabeler:
  - label: "mystery"
    title: ["/x/"]
`))
	if !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig for unmapped autolabel label, got %v", err)
	}
}

func TestParseInvalidPattern(t *testing.T) {
	_, err := Parse([]byte(`
categories:
  - title: "Fixes"
    labels: ["bug"]
autolabeler:
  - label: "bug"
    title: ["/[unclosed/"]
`))
	if !errors.Is(err, ErrPattern) {
		t.Errorf("expected ErrPattern for invalid regex, got %v", err)
	}
}

func TestParseUnknownDefaultSeverity(t *testing.T) {
	_, err := Parse([]byte(`
version-resolver:
  default: gigantic
`))
	if !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig for unknown default severity, got %v", err)
	}
}

func TestCompilePatternSlashForm(t *testing.T) {
	re, err := compilePattern("/FIX/i")
	if err != nil {
		t.Fatalf("compilePattern failed: %v", err)
	}
	if !re.MatchString("hotfix for login") {
		t.Errorf("expected case-insensitive match for /FIX/i")
	}

	re, err = compilePattern("/fix/")
	if err != nil {
		t.Fatalf("compilePattern failed: %v", err)
	}
	if re.MatchString("FIX everything") {
		t.Errorf("expected /fix/ without flag to stay case-sensitive")
	}
}

func TestIsExcludedContributor(t *testing.T) {
	rs, err := Parse(validRules)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cases := []struct {
		author string
		want   bool
	}{
		{"dependabot", true},
		{"Dependabot", true},
		{"dependabot[bot]", true},
		{"alice", false},
	}
	for _, tc := range cases {
		if got := rs.IsExcludedContributor(tc.author); got != tc.want {
			t.Errorf("IsExcludedContributor(%q) = %v, want %v", tc.author, got, tc.want)
		}
	}
}
