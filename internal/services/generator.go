package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/shota9616/planforge/internal/assemble"
	"github.com/shota9616/planforge/internal/backend"
	"github.com/shota9616/planforge/internal/config"
	"github.com/shota9616/planforge/internal/gcp"
	"github.com/shota9616/planforge/internal/models"
	"github.com/shota9616/planforge/internal/pipeline"
	"github.com/shota9616/planforge/internal/template"
)

// GeneratorConfig holds all configuration for the plan generator service.
type GeneratorConfig struct {
	ProjectID       string
	VertexAIRegion  string
	FactsBucket     string
	ArtifactsBucket string
	CollectionName  string
	// QualityConfigObject optionally names a YAML object in the facts bucket
	// that overrides the built-in quality configuration.
	QualityConfigObject string
}

// GeneratorFunction holds the dependencies for the generation logic.
type GeneratorFunction struct {
	storageClient *storage.Client
	vertexClient  *gcp.VertexClient
	runStore      *gcp.RunStore
	config        GeneratorConfig
}

func loadGeneratorConfig() (*GeneratorConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	factsBucket := gcp.GetEnv("FACTS_BUCKET", "")
	if factsBucket == "" {
		return nil, fmt.Errorf("FACTS_BUCKET environment variable must be set")
	}
	artifactsBucket := gcp.GetEnv("ARTIFACTS_BUCKET", "")
	if artifactsBucket == "" {
		return nil, fmt.Errorf("ARTIFACTS_BUCKET environment variable must be set")
	}

	return &GeneratorConfig{
		ProjectID:           projectID,
		VertexAIRegion:      gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		FactsBucket:         factsBucket,
		ArtifactsBucket:     artifactsBucket,
		CollectionName:      gcp.GetEnv("FIRESTORE_COLLECTION", "generationRuns"),
		QualityConfigObject: gcp.GetEnv("QUALITY_CONFIG_OBJECT", ""),
	}, nil
}

// NewGenerator creates a new GeneratorFunction instance.
func NewGenerator(ctx context.Context) (*GeneratorFunction, error) {
	cfg, err := loadGeneratorConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &GeneratorFunction{
		storageClient: storageClient,
		vertexClient:  vertexClient,
		runStore:      gcp.NewRunStore(firestoreClient, cfg.CollectionName),
		config:        *cfg,
	}, nil
}

// Process loads the fact snapshot, runs the generation pipeline, persists the
// run record and writes the artifacts.
func (f *GeneratorFunction) Process(ctx context.Context, req *models.GenerateRequest) (*models.GenerateResponse, error) {
	logCtx := slog.With("factsObject", req.FactsObject, "executionId", req.ExecutionID)
	logCtx.Info("Starting plan generation.")

	facts, err := f.loadFacts(ctx, req.FactsObject)
	if err != nil {
		logCtx.Error("Failed to load fact snapshot", "error", err)
		return nil, err
	}

	quality, err := f.loadQualityConfig(ctx)
	if err != nil {
		logCtx.Error("Failed to load quality configuration", "error", err)
		return nil, err
	}

	sectionIDs := req.SectionIDs
	if len(sectionIDs) == 0 {
		sectionIDs = template.SectionIDs()
	}

	// The record is created before generation starts; a crash mid-run
	// leaves a GENERATING record behind.
	runID := uuid.NewString()
	logCtx = logCtx.With("runId", runID)
	if err := f.runStore.Create(ctx, runID, req.FactsObject, len(sectionIDs)); err != nil {
		logCtx.Error("Failed to create run record", "error", err)
		return nil, err
	}

	p := pipeline.New(quality, f.rewriteBackend(), slog.Default())

	run, err := p.RunWithID(ctx, runID, facts, sectionIDs)
	if err != nil {
		logCtx.Error("Pipeline run aborted", "error", err)
		if storeErr := f.runStore.Fail(ctx, runID, err.Error()); storeErr != nil {
			logCtx.Error("CRITICAL: Failed to mark run as failed after a pipeline error.", "updateError", storeErr)
		}
		return nil, fmt.Errorf("pipeline run: %w", err)
	}

	writer := &assemble.BucketWriter{
		Bucket: f.storageClient.Bucket(f.config.ArtifactsBucket),
		Name:   f.config.ArtifactsBucket,
	}
	prefix, err := writer.Write(ctx, run)
	if err != nil {
		logCtx.Error("Failed to write artifacts", "error", err)
		if storeErr := f.runStore.Fail(ctx, run.ID, err.Error()); storeErr != nil {
			logCtx.Error("CRITICAL: Failed to mark run as failed after an artifact error.", "updateError", storeErr)
		}
		return nil, err
	}

	if err := f.runStore.Complete(ctx, run); err != nil {
		logCtx.Error("Failed to finalize run record", "error", err)
		return nil, err
	}

	resp := buildResponse(run, prefix)
	logCtx.Info("Plan generation complete.",
		"accepted", len(resp.Accepted), "exhausted", len(resp.Exhausted), "failed", len(resp.Failed))
	return resp, nil
}

func (f *GeneratorFunction) loadFacts(ctx context.Context, object string) (*models.FactModel, error) {
	data, err := gcp.ReadObject(ctx, f.storageClient.Bucket(f.config.FactsBucket), object)
	if err != nil {
		return nil, err
	}
	var facts models.FactModel
	if err := json.Unmarshal(data, &facts); err != nil {
		return nil, fmt.Errorf("failed to parse fact snapshot %s: %w", object, err)
	}
	return &facts, nil
}

func (f *GeneratorFunction) loadQualityConfig(ctx context.Context) (*config.Quality, error) {
	if f.config.QualityConfigObject == "" {
		return config.Default(), nil
	}
	data, err := gcp.ReadObject(ctx, f.storageClient.Bucket(f.config.FactsBucket), f.config.QualityConfigObject)
	if err != nil {
		return nil, err
	}
	return config.Parse(data)
}

const (
	backendAttempts       = 4
	backendBaseDelay      = 1 * time.Second
	backendAttemptTimeout = 50 * time.Second
)

func (f *GeneratorFunction) rewriteBackend() backend.Generator {
	inner := backend.NewVertexBackend(f.vertexClient)
	return backend.NewRetrying(inner, backendAttempts, backendBaseDelay, backendAttemptTimeout)
}

func buildResponse(run *models.GenerationRun, prefix string) *models.GenerateResponse {
	resp := &models.GenerateResponse{
		Status:          "success",
		RunID:           run.ID,
		ResidualIssues:  len(run.ResidualIssues),
		ArtifactsPrefix: prefix,
	}
	for _, res := range run.Sections {
		switch res.State {
		case models.StateAccepted:
			resp.Accepted = append(resp.Accepted, res.SectionID)
		case models.StateExhausted:
			resp.Exhausted = append(resp.Exhausted, res.SectionID)
		case models.StateFailed:
			if resp.Failed == nil {
				resp.Failed = make(map[string]string)
			}
			resp.Failed[res.SectionID] = res.Err.Error()
		}
	}
	if len(resp.Accepted) == 0 {
		resp.Status = "failed"
	}
	return resp
}
