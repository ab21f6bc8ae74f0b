package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"cloud.google.com/go/vertexai/genai"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"

	"github.com/shota9616/planforge/internal/gcp"
	"github.com/shota9616/planforge/internal/models"
	"github.com/shota9616/planforge/internal/template"
)

type IngestConfig struct {
	ProjectID        string
	VertexAIRegion   string
	FactsBucket      string
	CollectionName   string
	WorkflowID       string
	WorkflowLocation string
}

// IngestFunction turns an uploaded hearing-sheet PDF into a fact snapshot and
// hands it to the generation workflow.
type IngestFunction struct {
	storageClient    *storage.Client
	firestoreClient  *firestore.Client
	vertexClient     *gcp.VertexClient
	executionsClient *executions.Client
	config           IngestConfig
}

// GCSEvent is the CloudEvent payload for a finalized GCS object.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

func NewIngest(ctx context.Context) (*IngestFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	cfg := IngestConfig{
		ProjectID:        projectID,
		VertexAIRegion:   gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		FactsBucket:      gcp.GetEnv("FACTS_BUCKET", ""),
		CollectionName:   gcp.GetEnv("FIRESTORE_COLLECTION", "ingestedSheets"),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", "plan-generation-orchestrator"),
	}
	if cfg.FactsBucket == "" {
		return nil, fmt.Errorf("FACTS_BUCKET environment variable must be set")
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	executionsClient, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}

	f := &IngestFunction{
		storageClient:    storageClient,
		firestoreClient:  firestoreClient,
		vertexClient:     vertexClient,
		executionsClient: executionsClient,
		config:           cfg,
	}
	slog.Info("Ingest logic initialized.", "workflowId", cfg.WorkflowID)
	return f, nil
}

func (f *IngestFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new hearing sheet.")

	tempDir, err := os.MkdirTemp("", "fact-ingest-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePath := filepath.Join(tempDir, "source.pdf")
	if err := f.streamGCSObject(ctx, e.Bucket, e.Name, sourcePath); err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return err
	}

	fileHash, err := calculateFileHash(sourcePath)
	if err != nil {
		logCtx.Error("Failed to calculate file hash", "error", err)
		return fmt.Errorf("failed to calculate file hash: %w", err)
	}
	logCtx = logCtx.With("fileHash", fileHash)

	isDuplicate, docID, err := f.isDuplicate(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if isDuplicate {
		logCtx.Info("Duplicate hearing sheet detected. Skipping.", "existingDocId", docID)
		return nil
	}

	docRef, err := f.createInitialRecord(ctx, fileHash, e.Name)
	if err != nil {
		logCtx.Error("Failed to create initial Firestore record", "error", err)
		return err
	}
	logCtx = logCtx.With("documentId", docRef.ID)

	optimizedPath := filepath.Join(tempDir, "optimized.pdf")
	pageCount, err := f.optimizeAndPrepare(ctx, logCtx, docRef, sourcePath, optimizedPath)
	if err != nil {
		return err
	}

	sourceURI, err := f.uploadPages(ctx, logCtx, docRef, optimizedPath, pageCount)
	if err != nil {
		return err
	}

	facts, missing, err := f.extractFacts(ctx, logCtx, docRef, sourceURI)
	if err != nil {
		return err
	}

	factsObject, err := f.saveFacts(ctx, logCtx, docRef, facts, missing, pageCount)
	if err != nil {
		return err
	}

	if err := f.triggerWorkflow(ctx, logCtx, docRef, factsObject); err != nil {
		return err
	}

	logCtx.Info("Hand-off to generation workflow complete.", "factsObject", factsObject, "missingFields", len(missing))
	return nil
}

func (f *IngestFunction) isDuplicate(ctx context.Context, fileHash string) (bool, string, error) {
	docs, err := f.firestoreClient.Collection(f.config.CollectionName).Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return false, "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return true, docs[0].Ref.ID, nil
	}
	return false, "", nil
}

func (f *IngestFunction) createInitialRecord(ctx context.Context, fileHash, filename string) (*firestore.DocumentRef, error) {
	record := models.IngestRecord{
		FileHash:         fileHash,
		OriginalFilename: filename,
		Status:           "VALIDATING",
		CreatedAt:        time.Now(),
	}
	docRef, _, err := f.firestoreClient.Collection(f.config.CollectionName).Add(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingest record: %w", err)
	}
	return docRef, nil
}

func (f *IngestFunction) optimizeAndPrepare(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, source, optimized string) (int, error) {
	if err := optimizePDF(source, optimized); err != nil {
		return 0, f.handleError(ctx, logCtx, docRef, "failed to validate/optimize PDF", err)
	}
	pageCount, err := api.PageCountFile(optimized)
	if err != nil {
		return 0, f.handleError(ctx, logCtx, docRef, "failed to get page count", err)
	}
	if err := api.SplitFile(optimized, filepath.Dir(optimized), 1, nil); err != nil {
		return 0, f.handleError(ctx, logCtx, docRef, "failed to split PDF", err)
	}
	updates := []firestore.Update{
		{Path: "status", Value: "EXTRACTING"},
		{Path: "pageCount", Value: pageCount},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return 0, f.handleError(ctx, logCtx, docRef, "failed to update status to EXTRACTING", err)
	}
	logCtx.Info("PDF optimized and split locally.", "pageCount", pageCount)
	return pageCount, nil
}

// uploadPages stores the optimized source and its per-page splits under the
// record's prefix and returns the GCS URI of the whole document.
func (f *IngestFunction) uploadPages(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, optimizedPath string, pageCount int) (string, error) {
	sourceObject := fmt.Sprintf("%s/source.pdf", docRef.ID)
	if err := f.uploadFile(ctx, optimizedPath, sourceObject); err != nil {
		return "", f.handleError(ctx, logCtx, docRef, "failed to upload optimized PDF", err)
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(10)
	splitFileBase := strings.TrimSuffix(optimizedPath, filepath.Ext(optimizedPath))
	for i := 1; i <= pageCount; i++ {
		pageNumber := i
		localPath := fmt.Sprintf("%s_%d.pdf", splitFileBase, pageNumber)
		destObject := fmt.Sprintf("%s/pages/%05d.pdf", docRef.ID, pageNumber)
		eg.Go(func() error {
			if err := f.uploadFile(gctx, localPath, destObject); err != nil {
				return fmt.Errorf("page %d: %w", pageNumber, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return "", f.handleError(ctx, logCtx, docRef, "one or more pages failed to upload", err)
	}
	logCtx.Info("All pages uploaded.", "pageCount", pageCount)
	return fmt.Sprintf("gs://%s/%s", f.config.FactsBucket, sourceObject), nil
}

// extractFacts asks the extractor model for the structured facts and fills
// the industry-dependent defaults the sheet usually omits.
func (f *IngestFunction) extractFacts(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, sourceURI string) (*models.FactModel, []string, error) {
	filePart := genai.FileData{MIMEType: "application/pdf", FileURI: sourceURI}
	resp, err := f.vertexClient.ExtractorModel.GenerateContent(ctx, filePart, genai.Text(gcp.ExtractorUserPrompt))
	if err != nil {
		return nil, nil, f.handleError(ctx, logCtx, docRef, "failed to extract facts from PDF", err)
	}

	payload := gcp.ExtractText(resp)
	var facts models.FactModel
	if err := json.Unmarshal([]byte(payload), &facts); err != nil {
		return nil, nil, f.handleError(ctx, logCtx, docRef, "extractor returned invalid JSON", err)
	}

	if facts.Shortage.JobOpeningsRatio == 0 {
		facts.Shortage.JobOpeningsRatio = template.JobRatioFor(facts.Company.Industry)
	}
	if len(facts.Before) == 0 || len(facts.After) == 0 {
		facts.Before, facts.After = template.ProcessesFor(facts.Company.Industry)
		logCtx.Info("Applied industry default process tables.", "industry", facts.Company.Industry)
	}

	missing := facts.MissingFields(template.RequiredFacts())
	return &facts, missing, nil
}

func (f *IngestFunction) saveFacts(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, facts *models.FactModel, missing []string, pageCount int) (string, error) {
	data, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return "", f.handleError(ctx, logCtx, docRef, "failed to marshal fact snapshot", err)
	}

	factsObject := fmt.Sprintf("%s/facts.json", docRef.ID)
	bucketHandle := f.storageClient.Bucket(f.config.FactsBucket)
	if err := gcp.SaveToGCSAtomically(ctx, bucketHandle, factsObject, string(data)); err != nil {
		return "", f.handleError(ctx, logCtx, docRef, "failed to save fact snapshot", err)
	}

	updates := []firestore.Update{
		{Path: "status", Value: "EXTRACTED"},
		{Path: "factsObject", Value: factsObject},
		{Path: "missingFields", Value: missing},
		{Path: "pageCount", Value: pageCount},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return "", f.handleError(ctx, logCtx, docRef, "failed to update status to EXTRACTED", err)
	}
	return factsObject, nil
}

func (f *IngestFunction) triggerWorkflow(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, factsObject string) error {
	logCtx.Info("Triggering generation workflow.")
	payload := map[string]interface{}{
		"documentId":  docRef.ID,
		"factsObject": factsObject,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to marshal workflow payload", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", f.config.ProjectID, f.config.WorkflowLocation, f.config.WorkflowID),
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	if _, err := f.executionsClient.CreateExecution(ctx, req); err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to trigger workflow execution", err)
	}
	return nil
}

func (f *IngestFunction) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.updateStatus(ctx, docRef, "FAILED", fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s", fullError)
}

func (f *IngestFunction) updateStatus(ctx context.Context, docRef *firestore.DocumentRef, status, errDetails string) error {
	updates := []firestore.Update{
		{Path: "status", Value: status},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	_, err := docRef.Update(ctx, updates)
	return err
}

func (f *IngestFunction) streamGCSObject(ctx context.Context, bucket, object, destPath string) error {
	gcsReader, err := f.storageClient.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer gcsReader.Close()
	localFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file at %s: %w", destPath, err)
	}
	defer localFile.Close()
	if _, err := io.Copy(localFile, gcsReader); err != nil {
		return fmt.Errorf("failed to copy GCS object to local file: %w", err)
	}
	return nil
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}

func (f *IngestFunction) uploadFile(ctx context.Context, localPath, destObject string) error {
	const maxRetries = 4
	backoff := 1 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := func() error {
			localFileReader, err := os.Open(localPath)
			if err != nil {
				return fmt.Errorf("could not open local file %s: %w", localPath, err)
			}
			defer localFileReader.Close()

			writeCtx, cancel := context.WithTimeout(ctx, time.Second*50)
			defer cancel()

			gcsWriter := f.storageClient.Bucket(f.config.FactsBucket).Object(destObject).NewWriter(writeCtx)
			if _, err := io.Copy(gcsWriter, localFileReader); err != nil {
				_ = gcsWriter.Close()
				return fmt.Errorf("io.Copy to GCS failed: %w", err)
			}
			if err := gcsWriter.Close(); err != nil {
				return fmt.Errorf("failed to close GCS writer (finalize upload): %w", err)
			}
			return nil
		}()

		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn("Upload failed, will retry.",
			"gcsObject", destObject,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", destObject, "error", ctx.Err())
			return ctx.Err()
		}
	}
	return fmt.Errorf("upload for %s failed after all retries: %w", destObject, lastErr)
}

func calculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
