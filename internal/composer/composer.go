// Package composer aggregates classified change records into a
// release draft and renders it as markdown.
package composer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"release-draft-maker/internal/classifier"
	"release-draft-maker/internal/config"
	"release-draft-maker/internal/models"
	"release-draft-maker/internal/version"
)

// Compose builds a release draft from the given records. Records are
// ordered by pull-request number before grouping so the output does
// not depend on input order.
func Compose(rs *config.RuleSet, recs []models.ChangeRecord, prevTag string) (*models.Draft, error) {
	ordered := make([]models.ChangeRecord, len(recs))
	copy(ordered, recs)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Number < ordered[j].Number
	})

	// Resolve the next version from the highest severity across all records
	sev := classifier.Resolve(rs, ordered)
	resolved, err := version.Resolve(prevTag, sev)
	if err != nil {
		return nil, err
	}

	name, err := version.Render(rs.NameTemplate, prevTag, resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to render name template: %w", err)
	}
	tag, err := version.Render(rs.TagTemplate, prevTag, resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to render tag template: %w", err)
	}

	draft := &models.Draft{
		Name:     name,
		Tag:      tag,
		Version:  resolved.String(),
		Severity: sev,
	}

	// Group rendered lines by category in configured order
	lines := make([][]string, len(rs.Categories))
	for _, rec := range ordered {
		line := RenderLine(rs.ChangeTemplate, rec)
		if i, ok := classifier.Categorize(rs, rec); ok {
			lines[i] = append(lines[i], line)
		} else {
			draft.Uncategorized = append(draft.Uncategorized, line)
		}
	}
	for i, cat := range rs.Categories {
		if len(lines[i]) == 0 {
			continue
		}
		draft.Sections = append(draft.Sections, models.DraftSection{
			Title: cat.Title,
			Lines: lines[i],
		})
	}

	draft.Contributors = contributors(rs, ordered)
	return draft, nil
}

// RenderLine renders one change line from the change template.
func RenderLine(tpl string, rec models.ChangeRecord) string {
	r := strings.NewReplacer(
		"$TITLE", rec.Title,
		"$NUMBER", strconv.Itoa(rec.Number),
		"$AUTHOR", rec.Author,
	)
	return r.Replace(tpl)
}

// contributors returns the unique credited authors, sorted, with
// excluded names filtered out.
func contributors(rs *config.RuleSet, recs []models.ChangeRecord) []string {
	seen := make(map[string]string)
	for _, rec := range recs {
		author := strings.TrimSpace(rec.Author)
		if author == "" || rs.IsExcludedContributor(author) {
			continue
		}
		// Dedup case-insensitively, keep the first spelling seen
		key := strings.ToLower(author)
		if _, ok := seen[key]; !ok {
			seen[key] = author
		}
	}

	names := make([]string, 0, len(seen))
	for _, name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Markdown renders the draft as a markdown document.
func Markdown(d *models.Draft) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", d.Name)
	fmt.Fprintf(&b, "Tag: %s\n", d.Tag)

	for _, sec := range d.Sections {
		fmt.Fprintf(&b, "\n## %s\n\n", sec.Title)
		for _, line := range sec.Lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	if len(d.Uncategorized) > 0 {
		b.WriteString("\n## Other Changes\n\n")
		for _, line := range d.Uncategorized {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	if len(d.Contributors) > 0 {
		b.WriteString("\n## Contributors\n\n")
		for i, name := range d.Contributors {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("@" + name)
		}
		b.WriteByte('\n')
	}

	return b.String()
}
