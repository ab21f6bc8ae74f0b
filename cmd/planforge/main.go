// planforge is the local CLI for the plan generation pipeline: it turns a
// fact snapshot into business-plan sections, or scores drafts without
// repairing them.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shota9616/planforge/internal/assemble"
	"github.com/shota9616/planforge/internal/backend"
	"github.com/shota9616/planforge/internal/config"
	"github.com/shota9616/planforge/internal/models"
	"github.com/shota9616/planforge/internal/pipeline"
	"github.com/shota9616/planforge/internal/quality"
	"github.com/shota9616/planforge/internal/synthesis"
	"github.com/shota9616/planforge/internal/template"
)

var (
	factsPath     string
	configPath    string
	outputDir     string
	sectionList   string
	targetScore   float64
	maxIterations int
	jsonOutput    bool
	verbose       bool
)

func main() {
	root := &cobra.Command{
		Use:          "planforge",
		Short:        "Generate and score business-plan sections from a fact snapshot",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&factsPath, "facts", "", "fact snapshot file (.json or .yaml)")
	root.PersistentFlags().StringVar(&configPath, "config", "", "quality configuration YAML (defaults built in)")
	root.PersistentFlags().StringVar(&sectionList, "sections", "", "comma-separated section ids (default: all)")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "machine-readable JSON output")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline progress")

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the full generate, validate, repair loop and write artifacts",
		RunE:  runGenerate,
	}
	generateCmd.Flags().StringVarP(&outputDir, "output", "o", "out", "artifact output directory")
	generateCmd.Flags().Float64Var(&targetScore, "target-score", 0, "override the acceptance threshold")
	generateCmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "override the repair budget")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Synthesize drafts and report their scores without repairing",
		RunE:  runValidate,
	}

	sectionsCmd := &cobra.Command{
		Use:   "sections",
		Short: "List the registered section templates",
		Run: func(cmd *cobra.Command, args []string) {
			for _, id := range template.SectionIDs() {
				tpl, _ := template.Lookup(id)
				fmt.Printf("%s\t%s\n", id, tpl.Title)
			}
		},
	}

	root.AddCommand(generateCmd, validateCmd, sectionsCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	facts, err := loadFacts()
	if err != nil {
		return err
	}
	cfg, err := loadQualityConfig()
	if err != nil {
		return err
	}

	p := pipeline.New(cfg, rewriteBackend(), logger())
	run, err := p.Run(cmd.Context(), facts, sections())
	if err != nil {
		return err
	}

	writer := &assemble.DirWriter{Root: outputDir}
	dir, err := writer.Write(cmd.Context(), run)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd, map[string]any{
			"runId":          run.ID,
			"artifacts":      dir,
			"sections":       summarize(run),
			"residualIssues": len(run.ResidualIssues),
		})
	}

	for _, res := range run.Sections {
		switch res.State {
		case models.StateFailed:
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tFAILED\t%v\n", res.SectionID, res.Err)
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tscore=%.2f\titerations=%d\n",
				res.SectionID, res.State, res.Score, res.Draft.Iterations)
		}
	}
	if len(run.ResidualIssues) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "residual issues: %d\n", len(run.ResidualIssues))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "artifacts written to %s\n", dir)
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	facts, err := loadFacts()
	if err != nil {
		return err
	}
	cfg, err := loadQualityConfig()
	if err != nil {
		return err
	}
	det := quality.New(cfg)

	type report struct {
		SectionID string         `json:"sectionId"`
		Score     float64        `json:"score"`
		Issues    []models.Issue `json:"issues,omitempty"`
		Error     string         `json:"error,omitempty"`
	}
	var reports []report

	for _, id := range sectionsOrAll() {
		tpl, ok := template.Lookup(id)
		if !ok {
			reports = append(reports, report{SectionID: id, Error: models.ErrUnknownSection.Error()})
			continue
		}
		draft, err := synthesis.Synthesize(facts, tpl)
		if err != nil {
			reports = append(reports, report{SectionID: id, Error: err.Error()})
			continue
		}
		res := det.Validate(draft, tpl)
		reports = append(reports, report{SectionID: id, Score: res.Score, Issues: res.Issues})
	}

	if jsonOutput {
		return printJSON(cmd, reports)
	}
	for _, r := range reports {
		if r.Error != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tERROR\t%s\n", r.SectionID, r.Error)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\tscore=%.2f\tissues=%d\n", r.SectionID, r.Score, len(r.Issues))
		for _, is := range r.Issues {
			fmt.Fprintf(cmd.OutOrStdout(), "\t[%s/%s] %s\n", is.Category, is.Severity, is.Description)
		}
	}
	return nil
}

func loadFacts() (*models.FactModel, error) {
	if factsPath == "" {
		return nil, fmt.Errorf("--facts is required")
	}
	data, err := os.ReadFile(factsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read facts file: %w", err)
	}
	var facts models.FactModel
	switch strings.ToLower(filepath.Ext(factsPath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &facts)
	default:
		err = json.Unmarshal(data, &facts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse facts file %s: %w", factsPath, err)
	}
	return &facts, nil
}

func loadQualityConfig() (*config.Quality, error) {
	var cfg *config.Quality
	if configPath == "" {
		cfg = config.Default()
	} else {
		var err error
		cfg, err = config.LoadFile(configPath)
		if err != nil {
			return nil, err
		}
	}
	if targetScore > 0 {
		cfg.QualityThreshold = targetScore
	}
	if maxIterations > 0 {
		cfg.MaxIterations = maxIterations
	}
	return cfg, nil
}

// rewriteBackend builds the optional model backend for repair rewrites. The
// CLI runs fully deterministic unless an OpenAI key is present.
func rewriteBackend() backend.Generator {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil
	}
	inner, err := backend.NewOpenAIBackend(apiKey, os.Getenv("OPENAI_MODEL"), os.Getenv("OPENAI_BASE_URL"))
	if err != nil {
		return nil
	}
	return backend.NewRetrying(inner, 4, time.Second, 50*time.Second)
}

func logger() *slog.Logger {
	if !verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func sections() []string {
	if sectionList == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(sectionList, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func sectionsOrAll() []string {
	if ids := sections(); len(ids) > 0 {
		return ids
	}
	return template.SectionIDs()
}

func summarize(run *models.GenerationRun) []map[string]any {
	var out []map[string]any
	for _, res := range run.Sections {
		entry := map[string]any{"sectionId": res.SectionID, "state": res.State}
		if res.Err != nil {
			entry["error"] = res.Err.Error()
		} else {
			entry["score"] = res.Score
			entry["iterations"] = res.Draft.Iterations
		}
		out = append(out, entry)
	}
	return out
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
