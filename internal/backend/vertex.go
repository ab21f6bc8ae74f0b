package backend

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"

	"github.com/shota9616/planforge/internal/gcp"
)

// VertexBackend serves completions from the Vertex AI rewriter model.
type VertexBackend struct {
	client *gcp.VertexClient
}

func NewVertexBackend(client *gcp.VertexClient) *VertexBackend {
	return &VertexBackend{client: client}
}

func (b *VertexBackend) Complete(ctx context.Context, req Request) (string, error) {
	model := b.client.RewriterModel
	if req.System != "" {
		// Shallow copy so the override does not leak into concurrent calls.
		m := *model
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
		model = &m
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("vertex generate content: %w", err)
	}

	text := gcp.ExtractText(resp)
	if text == "" {
		return "", fmt.Errorf("vertex returned an empty completion")
	}
	return text, nil
}
