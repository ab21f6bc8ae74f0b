package models

// IssueCategory is the closed set of defect categories the detector emits.
type IssueCategory string

const (
	GenericPhrase    IssueCategory = "generic_phrase"
	Repetition       IssueCategory = "repetition"
	StructuralDrift  IssueCategory = "structural_drift"
	UnnaturalPattern IssueCategory = "unnatural_pattern"
	LengthViolation  IssueCategory = "length_violation"
)

// Severity ranks an issue. Only error-severity issues can block acceptance.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Issue is one detected defect, located within the draft it was found in.
// Issues are produced fresh on every validation pass and never carried over
// between drafts.
type Issue struct {
	Category    IssueCategory `json:"category"`
	Severity    Severity      `json:"severity"`
	Slot        string        `json:"slot,omitempty"` // empty for document-scope issues
	Offset      int           `json:"offset"`         // rune offset within the slot text, -1 if not positional
	Description string        `json:"description"`
}

// ValidationResult aggregates one validation pass over a section draft or a
// whole document. The previous pass's result is always discarded.
type ValidationResult struct {
	Score  float64 `json:"score"` // in [0,1]
	Issues []Issue `json:"issues"`
}

// HasCategory reports whether any issue of the given category was found.
func (r ValidationResult) HasCategory(cat IssueCategory) bool {
	for _, is := range r.Issues {
		if is.Category == cat {
			return true
		}
	}
	return false
}

// CountCategory returns the number of issues in the given category.
func (r ValidationResult) CountCategory(cat IssueCategory) int {
	var n int
	for _, is := range r.Issues {
		if is.Category == cat {
			n++
		}
	}
	return n
}
