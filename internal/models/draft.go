package models

// DraftSection is one category heading with its rendered change lines
type DraftSection struct {
	Title string
	Lines []string
}

// Draft is a composed release draft ready for rendering
type Draft struct {
	Name          string
	Tag           string
	Version       string
	Severity      Severity
	Sections      []DraftSection
	Uncategorized []string
	Contributors  []string
}
