package importer

import (
	"errors"
	"regexp"
	"strings"
)

const (
	TitleMaxLen  = 512
	AuthorMaxLen = 39 // GitHub login limit
)

var (
	ErrEmptyTitle       = errors.New("change has an empty title")
	ErrTitleTooLong     = errors.New("change title is too long")
	ErrInvalidNumber    = errors.New("pull-request number must be positive")
	ErrEmptyAuthor      = errors.New("change has no author")
	ErrInvalidAuthor    = errors.New("author is not a valid account handle")
	ErrInvalidLabelName = errors.New("label name contains control characters")
)

// regex for valid account handles (letters, digits, single hyphens),
// with an optional [bot] suffix for machine accounts
var validAuthor = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,37}[a-zA-Z0-9])?(\[bot\])?$`)

// ValidateChange checks an ingested change record before it is stored.
// It returns an error if the pull-request number is not positive, the
// title is empty or oversized, or the author is missing or not a
// plausible account handle.
func ValidateChange(number int, title, author string) error {
	if number <= 0 {
		return ErrInvalidNumber
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	if len(title) > TitleMaxLen {
		return ErrTitleTooLong
	}

	author = strings.TrimSpace(author)
	if author == "" {
		return ErrEmptyAuthor
	}
	if len(author) > AuthorMaxLen+len("[bot]") || !validAuthor.MatchString(author) {
		return ErrInvalidAuthor
	}
	// Account handles never contain consecutive hyphens
	if strings.Contains(author, "--") {
		return ErrInvalidAuthor
	}

	return nil
}

// ValidateLabelName rejects label names that would corrupt the store
// or the rendered draft. Anything printable is allowed; labels often
// carry emoji prefixes.
func ValidateLabelName(name string) error {
	for _, r := range name {
		if r < ' ' && r != '\t' {
			return ErrInvalidLabelName
		}
	}
	return nil
}
