package gcp

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// --- Rewriter Model Prompts ---
const RewriterSystemPrompt = "あなたは中小企業の事業計画書を校正する編集者です。渡された文章の事実関係と数値を一切変えずに、指示された文体上の問題のみを修正してください。修正後の本文だけを返し、前置きや説明は付けないでください。"

// --- Fact Extractor Model Prompts ---
const ExtractorSystemPrompt = "You are a document analysis tool for Japanese subsidy applications. You extract structured business facts from hearing-sheet PDFs and output them as a single valid JSON object."
const ExtractorUserPrompt = `Analyze the provided PDF and extract the business facts into JSON.

Follow these rules precisely:
1. The output must be a single JSON object with the keys "company", "shortage", "saving", "equipment", "funding" and "params".
2. Monetary amounts are integers in yen. Hours and rates are numbers. Never invent a value: omit a key when the document does not state it.
3. "company" holds name, prefecture, industry, businessDescription, establishedDate, employeeCount, officerCount and fiscalYears (array of {label, revenue, operatingProfit}, oldest first).
4. "shortage" holds shortageTasks, recruitmentPeriod, overtimeHours, currentWorkers, desiredWorkers and jobOpeningsRatio.
5. "saving" holds currentHours, targetHours, reductionHours and reductionRate.
6. "equipment" holds name, category, manufacturer, model and features.
7. "funding" holds subsidyAmount, selfFunding and totalInvestment.
8. Output ONLY the JSON object. No text before or after it.`

// VertexClient holds the pre-configured generative models for our app.
type VertexClient struct {
	// RewriterModel rewrites flagged plan prose without touching its facts.
	RewriterModel *genai.GenerativeModel
	// ExtractorModel pulls structured facts out of hearing-sheet PDFs.
	ExtractorModel *genai.GenerativeModel
	baseClient     *genai.Client
}

// NewVertexClient creates a new client holding all necessary models.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	rewriterModel := baseClient.GenerativeModel("gemini-1.5-pro")
	rewriterModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(RewriterSystemPrompt)},
	}
	rewriterModel.GenerationConfig = genai.GenerationConfig{
		// Rewrites must be reproducible across repair iterations.
		Temperature: genai.Ptr[float32](0.0),
	}

	extractorModel := baseClient.GenerativeModel("gemini-1.5-pro")
	extractorModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ExtractorSystemPrompt)},
	}
	extractorModel.GenerationConfig = genai.GenerationConfig{
		// Force JSON output. This is a critical setting for this model.
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}
	extractorModel.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	return &VertexClient{
		RewriterModel:  rewriterModel,
		ExtractorModel: extractorModel,
		baseClient:     baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// ExtractText concatenates the text parts of a model response and strips any
// code fences the model wrapped around it.
func ExtractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}

	s := strings.TrimSpace(b.String())
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
