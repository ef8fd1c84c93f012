package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"release-draft-maker/internal/models"
)

// Default templates applied when the rules file omits them
const (
	DefaultNameTemplate   = "v$RESOLVED_VERSION"
	DefaultTagTemplate    = "v$RESOLVED_VERSION"
	DefaultChangeTemplate = "* $TITLE (#$NUMBER) @$AUTHOR"
)

var (
	// ErrConfig indicates a structurally invalid rules file
	ErrConfig = errors.New("invalid rules configuration")
	// ErrPattern indicates an autolabel pattern that does not compile
	ErrPattern = errors.New("invalid autolabel pattern")
)

// Category maps a set of labels to one release-notes heading
type Category struct {
	Title  string   `yaml:"title"`
	Labels []string `yaml:"labels"`
}

// AutolabelRule attaches a label to changes whose title, body or
// branch matches one of the listed patterns
type AutolabelRule struct {
	Label  string   `yaml:"label"`
	Title  []string `yaml:"title"`
	Body   []string `yaml:"body"`
	Branch []string `yaml:"branch"`
}

// LabelList is one bucket of the version resolver
type LabelList struct {
	Labels []string `yaml:"labels"`
}

// VersionResolver maps labels to version-bump severities
type VersionResolver struct {
	Major   LabelList `yaml:"major"`
	Minor   LabelList `yaml:"minor"`
	Patch   LabelList `yaml:"patch"`
	Default string    `yaml:"default"`
}

// RuleSet is a loaded and validated rules file
type RuleSet struct {
	NameTemplate        string          `yaml:"name-template"`
	TagTemplate         string          `yaml:"tag-template"`
	ChangeTemplate      string          `yaml:"change-template"`
	Categories          []Category      `yaml:"categories"`
	ExcludeContributors []string        `yaml:"exclude-contributors"`
	Resolver            VersionResolver `yaml:"version-resolver"`
	Autolabeler         []AutolabelRule `yaml:"autolabeler"`

	// built during validation
	defaultSeverity models.Severity
	severityByLabel map[string]models.Severity
	categoryByLabel map[string]int
	compiled        []CompiledRule
}

// CompiledRule is an autolabel rule with its patterns compiled
type CompiledRule struct {
	Label  string
	Title  []*regexp.Regexp
	Body   []*regexp.Regexp
	Branch []*regexp.Regexp
}

// Load reads and validates a rules file
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates a rules document
func Parse(data []byte) (*RuleSet, error) {
	rs := &RuleSet{}
	if err := yaml.Unmarshal(data, rs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	rs.applyDefaults()
	if err := rs.validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

func (rs *RuleSet) applyDefaults() {
	if rs.NameTemplate == "" {
		rs.NameTemplate = DefaultNameTemplate
	}
	if rs.TagTemplate == "" {
		rs.TagTemplate = DefaultTagTemplate
	}
	if rs.ChangeTemplate == "" {
		rs.ChangeTemplate = DefaultChangeTemplate
	}
	if rs.Resolver.Default == "" {
		rs.Resolver.Default = "patch"
	}
}

// validate checks structural invariants and builds the lookup maps.
// Label matching is case-insensitive throughout.
func (rs *RuleSet) validate() error {
	sev, err := models.ParseSeverity(rs.Resolver.Default)
	if err != nil {
		return fmt.Errorf("%w: version-resolver default: %v", ErrConfig, err)
	}
	rs.defaultSeverity = sev

	// 1. Categories: every category needs a title and at least one
	// label, and no label may belong to two categories.
	rs.categoryByLabel = make(map[string]int)
	for i, cat := range rs.Categories {
		if cat.Title == "" {
			return fmt.Errorf("%w: category %d has no title", ErrConfig, i+1)
		}
		if len(cat.Labels) == 0 {
			return fmt.Errorf("%w: category %q has no labels", ErrConfig, cat.Title)
		}
		for _, label := range cat.Labels {
			key := labelKey(label)
			if key == "" {
				return fmt.Errorf("%w: category %q has an empty label", ErrConfig, cat.Title)
			}
			if prev, exists := rs.categoryByLabel[key]; exists && prev != i {
				return fmt.Errorf("%w: label %q appears in categories %q and %q",
					ErrConfig, label, rs.Categories[prev].Title, cat.Title)
			}
			rs.categoryByLabel[key] = i
		}
	}

	// 2. Version resolver: precedence is major > minor > patch, so a
	// label listed in several buckets keeps its highest severity.
	rs.severityByLabel = make(map[string]models.Severity)
	for _, label := range rs.Resolver.Patch.Labels {
		rs.severityByLabel[labelKey(label)] = models.SeverityPatch
	}
	for _, label := range rs.Resolver.Minor.Labels {
		rs.severityByLabel[labelKey(label)] = models.SeverityMinor
	}
	for _, label := range rs.Resolver.Major.Labels {
		rs.severityByLabel[labelKey(label)] = models.SeverityMajor
	}

	// 3. Autolabeler: every rule needs a label that maps to a category
	// or a severity, and every pattern must compile.
	rs.compiled = make([]CompiledRule, 0, len(rs.Autolabeler))
	for _, rule := range rs.Autolabeler {
		key := labelKey(rule.Label)
		if key == "" {
			return fmt.Errorf("%w: autolabel rule has no label", ErrConfig)
		}
		_, inCategory := rs.categoryByLabel[key]
		_, inResolver := rs.severityByLabel[key]
		if !inCategory && !inResolver {
			return fmt.Errorf("%w: autolabel label %q has no category or severity mapping",
				ErrConfig, rule.Label)
		}
		if len(rule.Title)+len(rule.Body)+len(rule.Branch) == 0 {
			return fmt.Errorf("%w: autolabel rule %q has no patterns", ErrConfig, rule.Label)
		}

		compiled := CompiledRule{Label: rule.Label}
		if compiled.Title, err = compilePatterns(rule.Label, rule.Title); err != nil {
			return err
		}
		if compiled.Body, err = compilePatterns(rule.Label, rule.Body); err != nil {
			return err
		}
		if compiled.Branch, err = compilePatterns(rule.Label, rule.Branch); err != nil {
			return err
		}
		rs.compiled = append(rs.compiled, compiled)
	}

	return nil
}

// slash-delimited pattern with optional trailing flags, e.g. /fix/i
var slashPattern = regexp.MustCompile(`^/(.*)/(i?)$`)

// compilePattern compiles one autolabel pattern. Patterns are plain Go
// regexes; the /.../i form used by hosted drafter configs is accepted
// and mapped onto the (?i) flag.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	expr := pattern
	if m := slashPattern.FindStringSubmatch(pattern); m != nil {
		expr = m[1]
		if m[2] == "i" {
			expr = "(?i)" + expr
		}
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrPattern, pattern, err)
	}
	return re, nil
}

func compilePatterns(label string, patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := compilePattern(p)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", label, err)
		}
		res = append(res, re)
	}
	return res, nil
}

func labelKey(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// CategoryIndex returns the index of the category the label belongs to
func (rs *RuleSet) CategoryIndex(label string) (int, bool) {
	i, ok := rs.categoryByLabel[labelKey(label)]
	return i, ok
}

// SeverityFor returns the severity mapped to the label
func (rs *RuleSet) SeverityFor(label string) (models.Severity, bool) {
	s, ok := rs.severityByLabel[labelKey(label)]
	return s, ok
}

// DefaultSeverity returns the fallback severity for unmatched changes
func (rs *RuleSet) DefaultSeverity() models.Severity {
	return rs.defaultSeverity
}

// CompiledRules returns the autolabel rules in configured order
func (rs *RuleSet) CompiledRules() []CompiledRule {
	return rs.compiled
}

// IsExcludedContributor reports whether the author should be left out
// of the credit list. Matching is case-insensitive and bot accounts
// ("name[bot]") are compared with and without the suffix.
func (rs *RuleSet) IsExcludedContributor(author string) bool {
	name := strings.ToLower(strings.TrimSpace(author))
	trimmed := strings.TrimSuffix(name, "[bot]")
	for _, ex := range rs.ExcludeContributors {
		exKey := strings.ToLower(strings.TrimSpace(ex))
		if name == exKey || trimmed == strings.TrimSuffix(exKey, "[bot]") {
			return true
		}
	}
	return false
}
