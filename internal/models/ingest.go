package models

import "time"

// IngestRecord is the Firestore document tracking one hearing-sheet upload
// through validation, fact extraction, and hand-off to the generation
// workflow.
type IngestRecord struct {
	FileHash         string    `firestore:"fileHash,omitempty"`
	OriginalFilename string    `firestore:"originalFilename,omitempty"`
	Status           string    `firestore:"status,omitempty"`
	PageCount        int       `firestore:"pageCount,omitempty"`
	FactsObject      string    `firestore:"factsObject,omitempty"`
	MissingFields    []string  `firestore:"missingFields,omitempty"`
	ErrorDetails     string    `firestore:"errorDetails,omitempty"`
	CreatedAt        time.Time `firestore:"createdAt,omitempty"`
}
