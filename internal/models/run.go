package models

import (
	"strings"
	"time"
)

// DraftState tracks a section draft through the convergence loop.
type DraftState string

const (
	StateDraft     DraftState = "DRAFT"
	StateValidated DraftState = "VALIDATED"
	StateRepairing DraftState = "REPAIRING"
	StateAccepted  DraftState = "ACCEPTED"  // terminal
	StateExhausted DraftState = "EXHAUSTED" // terminal, best-scoring draft retained
	StateFailed    DraftState = "FAILED"    // terminal, fatal per-section error
)

// Terminal reports whether the state ends a section's loop.
func (s DraftState) Terminal() bool {
	return s == StateAccepted || s == StateExhausted || s == StateFailed
}

// SlotText is one filled template slot. Keeping the slot name with its text
// lets the detector verify ordering and lets the repair engine rewrite one
// slot without touching its neighbours.
type SlotText struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// SectionDraft is the mutable working copy of one section. It is created by
// the synthesizer, rewritten slot-by-slot by the repair engine, and frozen
// once it reaches a terminal state. Iterations only ever increases.
type SectionDraft struct {
	SectionID  string     `json:"sectionId"`
	Slots      []SlotText `json:"slots"`
	Iterations int        `json:"iterations"`
	State      DraftState `json:"state"`
	Facts      *FactModel `json:"-"`
}

// Text joins the slots in declared order into the section body.
func (d *SectionDraft) Text() string {
	parts := make([]string, len(d.Slots))
	for i, s := range d.Slots {
		parts[i] = s.Text
	}
	return strings.Join(parts, "\n")
}

// Clone returns a deep copy sharing the immutable fact snapshot.
func (d *SectionDraft) Clone() *SectionDraft {
	cp := *d
	cp.Slots = make([]SlotText, len(d.Slots))
	copy(cp.Slots, d.Slots)
	return &cp
}

// SectionResult is the terminal outcome of one section's loop: exactly one
// of accepted text, exhausted-with-best-effort text, or a fatal error.
type SectionResult struct {
	SectionID string
	State     DraftState
	Draft     *SectionDraft // nil when State == StateFailed
	Score     float64
	Issues    []Issue // issues of the final validation pass
	Err       error   // non-nil only when State == StateFailed
}

// GenerationRun owns one fact snapshot and one terminal result per requested
// section, plus the residual issues of the whole-document pass.
type GenerationRun struct {
	ID             string
	Facts          *FactModel
	Sections       []*SectionResult // in requested order
	ResidualIssues []Issue
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Section returns the result for a section id, or nil.
func (r *GenerationRun) Section(id string) *SectionResult {
	for _, s := range r.Sections {
		if s.SectionID == id {
			return s
		}
	}
	return nil
}

// AcceptedTexts returns the finalized texts keyed by section id, including
// best-effort texts of exhausted sections. This is the assembler hand-off.
func (r *GenerationRun) AcceptedTexts() map[string]string {
	out := make(map[string]string)
	for _, s := range r.Sections {
		if s.Draft != nil {
			out[s.SectionID] = s.Draft.Text()
		}
	}
	return out
}

// RunRecord is the Firestore representation of a generation run's lifecycle.
type RunRecord struct {
	RunID          string    `firestore:"runId,omitempty"`
	FactsObject    string    `firestore:"factsObject,omitempty"`
	Status         string    `firestore:"status,omitempty"`
	SectionCount   int       `firestore:"sectionCount,omitempty"`
	AcceptedCount  int       `firestore:"acceptedCount,omitempty"`
	ExhaustedCount int       `firestore:"exhaustedCount,omitempty"`
	FailedCount    int       `firestore:"failedCount,omitempty"`
	ResidualCount  int       `firestore:"residualCount,omitempty"`
	ErrorDetails   string    `firestore:"errorDetails,omitempty"`
	CreatedAt      time.Time `firestore:"createdAt,omitempty"`
	FinishedAt     time.Time `firestore:"finishedAt,omitempty"`
}
