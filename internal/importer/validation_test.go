package importer

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateChange(t *testing.T) {
	cases := []struct {
		name   string
		number int
		title  string
		author string
		want   error
	}{
		{"valid", 42, "fix race in scheduler", "alice", nil},
		{"valid bot", 43, "bump deps", "dependabot[bot]", nil},
		{"zero number", 0, "fix", "alice", ErrInvalidNumber},
		{"negative number", -7, "fix", "alice", ErrInvalidNumber},
		{"empty title", 1, "   ", "alice", ErrEmptyTitle},
		{"long title", 1, strings.Repeat("x", TitleMaxLen+1), "alice", ErrTitleTooLong},
		{"empty author", 1, "fix", "", ErrEmptyAuthor},
		{"author with spaces", 1, "fix", "a b", ErrInvalidAuthor},
		{"author leading hyphen", 1, "fix", "-alice", ErrInvalidAuthor},
		{"author double hyphen", 1, "fix", "a--b", ErrInvalidAuthor},
		{"author too long", 1, "fix", strings.Repeat("a", AuthorMaxLen+6), ErrInvalidAuthor},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateChange(tc.number, tc.title, tc.author)
			if !errors.Is(err, tc.want) {
				t.Errorf("ValidateChange(%d, %q, %q) = %v, want %v",
					tc.number, tc.title, tc.author, err, tc.want)
			}
		})
	}
}

func TestValidateLabelName(t *testing.T) {
	if err := ValidateLabelName("☢️ Bug"); err != nil {
		t.Errorf("emoji label should be valid: %v", err)
	}
	if err := ValidateLabelName("bug\nfix"); !errors.Is(err, ErrInvalidLabelName) {
		t.Errorf("expected ErrInvalidLabelName for control character, got %v", err)
	}
}
