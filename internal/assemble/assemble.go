// Package assemble renders generation runs into their deliverable artifacts:
// one markdown file per section, a master document, and an HTML preview.
package assemble

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/yuin/goldmark"

	"github.com/shota9616/planforge/internal/gcp"
	"github.com/shota9616/planforge/internal/models"
	"github.com/shota9616/planforge/internal/template"
)

// SectionDocument renders one section result as standalone markdown.
// Exhausted sections carry a review marker so a human editor can find them.
func SectionDocument(res *models.SectionResult) string {
	tpl, _ := template.Lookup(res.SectionID)
	var b strings.Builder
	fmt.Fprintf(&b, "## %s %s\n\n", res.SectionID, tpl.Title)
	if res.State == models.StateExhausted {
		fmt.Fprintf(&b, "> 要確認: 品質スコア %.2f で基準未達のまま出力された。\n\n", res.Score)
	}
	if res.Draft != nil {
		for _, slot := range res.Draft.Slots {
			b.WriteString(slot.Text)
			b.WriteString("\n\n")
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// MasterDocument concatenates every section that produced text, in requested
// order, with a residual-issue appendix when the final pass flagged anything.
func MasterDocument(run *models.GenerationRun) string {
	var b strings.Builder
	b.WriteString("# 事業計画書\n\n")
	for _, res := range run.Sections {
		if res.Draft == nil {
			continue
		}
		b.WriteString(SectionDocument(res))
		b.WriteString("\n")
	}
	if len(run.ResidualIssues) > 0 {
		b.WriteString("## 残存指摘事項\n\n")
		for _, is := range run.ResidualIssues {
			fmt.Fprintf(&b, "- [%s] %s\n", is.Category, is.Description)
		}
	}
	return b.String()
}

// HTMLPreview converts the master markdown into HTML.
func HTMLPreview(run *models.GenerationRun) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(MasterDocument(run)), &buf); err != nil {
		return "", fmt.Errorf("failed to render HTML preview: %w", err)
	}
	return buf.String(), nil
}

// DirWriter stores artifacts on the local filesystem, one directory per run.
type DirWriter struct {
	Root string
}

func (w *DirWriter) Write(_ context.Context, run *models.GenerationRun) (string, error) {
	dir := filepath.Join(w.Root, run.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	for _, res := range run.Sections {
		if res.Draft == nil {
			continue
		}
		path := filepath.Join(dir, res.SectionID+".md")
		if err := os.WriteFile(path, []byte(SectionDocument(res)), 0o644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "master.md"), []byte(MasterDocument(run)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write master document: %w", err)
	}
	html, err := HTMLPreview(run)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "preview.html"), []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("failed to write HTML preview: %w", err)
	}
	return dir, nil
}

// BucketWriter stores artifacts in a GCS bucket under the run id prefix.
// Writes are atomic: re-running an identical run never clobbers artifacts.
type BucketWriter struct {
	Bucket *storage.BucketHandle
	Name   string
}

func (w *BucketWriter) Write(ctx context.Context, run *models.GenerationRun) (string, error) {
	for _, res := range run.Sections {
		if res.Draft == nil {
			continue
		}
		object := fmt.Sprintf("%s/%s.md", run.ID, res.SectionID)
		if err := gcp.SaveToGCSAtomically(ctx, w.Bucket, object, SectionDocument(res)); err != nil {
			return "", err
		}
	}
	if err := gcp.SaveToGCSAtomically(ctx, w.Bucket, run.ID+"/master.md", MasterDocument(run)); err != nil {
		return "", err
	}
	html, err := HTMLPreview(run)
	if err != nil {
		return "", err
	}
	if err := gcp.SaveToGCSAtomically(ctx, w.Bucket, run.ID+"/preview.html", html); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s/", w.Name, run.ID), nil
}
