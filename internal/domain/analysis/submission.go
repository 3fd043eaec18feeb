package analysis

import (
	"strings"
	"unicode/utf8"
)

const (
	minTitleLen       = 5
	maxTitleLen       = 255
	minDescriptionLen = 20
	maxDescriptionLen = 5000
	maxBudget         = 1_000_000_000
)

// Submission is what the submission boundary accepts.
type Submission struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	TargetSegment string   `json:"target_segment"`
	Budget        *float64 `json:"estimated_budget,omitempty"`
}

// Normalize trims text fields and upper-cases the category. Empty category becomes OTHER.
func (s Submission) Normalize() Submission {
	s.Title = strings.TrimSpace(s.Title)
	s.Description = strings.TrimSpace(s.Description)
	s.TargetSegment = strings.TrimSpace(s.TargetSegment)
	s.Category = strings.ToUpper(strings.TrimSpace(s.Category))
	if s.Category == "" {
		s.Category = string(CategoryOther)
	}
	return s
}

// Validate checks a normalized submission. It returns *ValidationError or nil.
func (s Submission) Validate() error {
	fields := map[string]string{}

	switch n := utf8.RuneCountInString(s.Title); {
	case n < minTitleLen:
		fields["title"] = "must be at least 5 characters long"
	case n > maxTitleLen:
		fields["title"] = "must be less than 255 characters"
	}
	switch n := utf8.RuneCountInString(s.Description); {
	case n < minDescriptionLen:
		fields["description"] = "must be at least 20 characters long"
	case n > maxDescriptionLen:
		fields["description"] = "must be less than 5000 characters"
	}
	if s.Budget != nil {
		if *s.Budget < 0 {
			fields["estimated_budget"] = "cannot be negative"
		} else if *s.Budget > maxBudget {
			fields["estimated_budget"] = "seems unreasonably high"
		}
	}
	if !categories[Category(s.Category)] {
		fields["category"] = "unknown category " + s.Category
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
