package models

// These structs define the JSON payloads for HTTP requests and responses
// between the generation workflow and the worker Cloud Functions.

// GenerateRequest is the input for the plan-generator function.
type GenerateRequest struct {
	RunID       string   `json:"runId"`
	FactsObject string   `json:"factsObject"` // GCS object holding the FactModel JSON
	SectionIDs  []string `json:"sectionIds"`  // empty means all registered sections
	ExecutionID string   `json:"executionId"`
}

// GenerateResponse is the output of the plan-generator function.
type GenerateResponse struct {
	Status          string            `json:"status"`
	RunID           string            `json:"runId"`
	Accepted        []string          `json:"accepted"`
	Exhausted       []string          `json:"exhausted"`
	Failed          map[string]string `json:"failed,omitempty"` // section id -> error
	ResidualIssues  int               `json:"residualIssues"`
	ArtifactsPrefix string            `json:"artifactsPrefix"`
}

// IngestResponse reports the outcome of a hearing-sheet PDF ingestion.
type IngestResponse struct {
	Status        string   `json:"status"`
	FactsGCSUri   string   `json:"factsGcsUri"`
	PageCount     int      `json:"pageCount"`
	MissingFields []string `json:"missingFields,omitempty"`
}
