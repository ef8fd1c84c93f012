// Package classifier assigns labels, categories and version-bump
// severities to change records. All functions are pure: the outcome
// depends only on the rule set and the records passed in.
package classifier

import (
	"regexp"

	"release-draft-maker/internal/config"
	"release-draft-maker/internal/models"
)

// Autolabel returns the labels the autolabeler would add to the
// record, in configured rule order, skipping labels it already has.
func Autolabel(rs *config.RuleSet, rec models.ChangeRecord) []string {
	var added []string
	for _, rule := range rs.CompiledRules() {
		if rec.HasLabel(rule.Label) {
			continue
		}
		if matchAny(rule.Title, rec.Title) ||
			matchAny(rule.Body, rec.Body) ||
			matchAny(rule.Branch, rec.Branch) {
			added = append(added, rule.Label)
		}
	}
	return added
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	if s == "" {
		return false
	}
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Categorize returns the index of the category the record belongs to.
// When a record carries labels from several categories, the category
// that comes first in the configured order wins, so the result does
// not depend on label order.
func Categorize(rs *config.RuleSet, rec models.ChangeRecord) (int, bool) {
	best := -1
	for _, label := range rec.Labels {
		if i, ok := rs.CategoryIndex(label); ok {
			if best == -1 || i < best {
				best = i
			}
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// SeverityOf returns the highest severity mapped to any of the
// record's labels, or the rule set's default when none match.
func SeverityOf(rs *config.RuleSet, rec models.ChangeRecord) models.Severity {
	matched := false
	highest := models.SeverityPatch
	for _, label := range rec.Labels {
		if s, ok := rs.SeverityFor(label); ok {
			if !matched || s > highest {
				highest = s
			}
			matched = true
		}
	}
	if !matched {
		return rs.DefaultSeverity()
	}
	return highest
}

// Resolve returns the overall severity across all records: the
// maximum per-record severity, or the default for an empty set.
func Resolve(rs *config.RuleSet, recs []models.ChangeRecord) models.Severity {
	if len(recs) == 0 {
		return rs.DefaultSeverity()
	}
	resolved := models.SeverityPatch
	for _, rec := range recs {
		if s := SeverityOf(rs, rec); s > resolved {
			resolved = s
		}
	}
	return resolved
}
