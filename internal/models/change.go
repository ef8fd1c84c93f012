package models

// ChangeRecord represents one merged change in the store
type ChangeRecord struct {
	ID     int64
	Number int // pull request number, unique
	Title  string
	Author string
	Branch string
	Body   string
	Labels []string
}

// HasLabel reports whether the record already carries the given label
func (c ChangeRecord) HasLabel(label string) bool {
	for _, l := range c.Labels {
		if l == label {
			return true
		}
	}
	return false
}
