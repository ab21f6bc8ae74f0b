package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/shota9616/planforge/internal/models"
)

// RunStore persists generation run records in Firestore, one document per
// run, keyed by run id.
type RunStore struct {
	client     *firestore.Client
	collection string
}

func NewRunStore(client *firestore.Client, collection string) *RunStore {
	if collection == "" {
		collection = "generationRuns"
	}
	return &RunStore{client: client, collection: collection}
}

// Create registers a run in GENERATING state before the pipeline starts.
func (s *RunStore) Create(ctx context.Context, runID, factsObject string, sectionCount int) error {
	record := models.RunRecord{
		RunID:        runID,
		FactsObject:  factsObject,
		Status:       "GENERATING",
		SectionCount: sectionCount,
		CreatedAt:    time.Now(),
	}
	if _, err := s.client.Collection(s.collection).Doc(runID).Set(ctx, record); err != nil {
		return fmt.Errorf("failed to create run record: %w", err)
	}
	return nil
}

// Complete writes the final counts and status once the pipeline returns.
func (s *RunStore) Complete(ctx context.Context, run *models.GenerationRun) error {
	status := "COMPLETED"
	var errorDetails string
	accepted, exhausted, failed := 0, 0, 0
	for _, res := range run.Sections {
		switch res.State {
		case models.StateAccepted:
			accepted++
		case models.StateExhausted:
			exhausted++
		case models.StateFailed:
			failed++
			errorDetails = fmt.Sprintf("%s: %v", res.SectionID, res.Err)
		}
	}
	if failed == len(run.Sections) {
		status = "FAILED"
	} else if exhausted > 0 || failed > 0 {
		status = "COMPLETED_WITH_DEFECTS"
	}

	updates := []firestore.Update{
		{Path: "status", Value: status},
		{Path: "acceptedCount", Value: accepted},
		{Path: "exhaustedCount", Value: exhausted},
		{Path: "failedCount", Value: failed},
		{Path: "residualCount", Value: len(run.ResidualIssues)},
		{Path: "finishedAt", Value: run.FinishedAt},
	}
	if errorDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errorDetails})
	}
	if _, err := s.client.Collection(s.collection).Doc(run.ID).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to finalize run record: %w", err)
	}
	return nil
}

// Fail marks a run as failed before the pipeline produced any results.
func (s *RunStore) Fail(ctx context.Context, runID, details string) error {
	updates := []firestore.Update{
		{Path: "status", Value: "FAILED"},
		{Path: "errorDetails", Value: details},
		{Path: "finishedAt", Value: time.Now()},
	}
	if _, err := s.client.Collection(s.collection).Doc(runID).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to mark run as failed: %w", err)
	}
	return nil
}
