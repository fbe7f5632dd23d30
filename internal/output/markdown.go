// Package output writes the artifacts of an experiment run.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jkatofsky/plastering/internal/graph"
	"github.com/jkatofsky/plastering/internal/inferencer"
)

type Generator struct {
	outputDir string
}

func NewGenerator(outputDir string) *Generator {
	return &Generator{
		outputDir: outputDir,
	}
}

// Report is everything a run produced.
type Report struct {
	RunID           string
	Framework       string
	PriorFramework  string
	TargetBuilding  string
	SourceBuildings []string
	Started         time.Time
	Finished        time.Time
	TrainingSrcids  int
	History         []inferencer.HistoryEntry
	PriorHistory    []inferencer.HistoryEntry
	Final           inferencer.HistoryEntry
	Predictions     *graph.Graph
}

// Generate writes report.md, history.json and predictions.nt into
// <outputDir>/<run id>/ and returns their paths.
func (g *Generator) Generate(report Report) ([]string, error) {
	runDir := filepath.Join(g.outputDir, sanitizeFilename(report.RunID))
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	var files []string
	for _, write := range []func(string, Report) (string, error){
		g.writeReport,
		g.writeHistory,
		g.writePredictions,
	} {
		filename, err := write(runDir, report)
		if err != nil {
			return nil, err
		}
		files = append(files, filename)
	}
	return files, nil
}

func (g *Generator) writeReport(runDir string, report Report) (string, error) {
	filename := filepath.Join(runDir, "report.md")

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Run %s\n\n", report.RunID))
	sb.WriteString(fmt.Sprintf("**Framework:** %s\n", report.Framework))
	if report.PriorFramework != "" {
		sb.WriteString(fmt.Sprintf("**Prior:** %s\n", report.PriorFramework))
	}
	sb.WriteString(fmt.Sprintf("**Target building:** %s\n", report.TargetBuilding))
	if len(report.SourceBuildings) > 0 {
		sb.WriteString(fmt.Sprintf("**Source buildings:** %s\n", strings.Join(report.SourceBuildings, ", ")))
	}
	sb.WriteString(fmt.Sprintf("**Started:** %s\n", report.Started.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("**Duration:** %s\n\n", report.Finished.Sub(report.Started).Round(time.Millisecond)))

	final := report.Final.Metrics
	sb.WriteString("## Final Metrics\n\n")
	sb.WriteString(fmt.Sprintf("- **Training srcids:** %d\n", report.TrainingSrcids))
	sb.WriteString(fmt.Sprintf("- **Accuracy:** %.4f\n", final.Accuracy))
	sb.WriteString(fmt.Sprintf("- **F1:** %.4f\n", final.F1))
	sb.WriteString(fmt.Sprintf("- **Macro F1:** %.4f\n\n", final.MacroF1))

	if len(final.PerClass) > 0 {
		classes := append(final.PerClass[:0:0], final.PerClass...)
		sort.Slice(classes, func(i, j int) bool {
			if classes[i].Support != classes[j].Support {
				return classes[i].Support > classes[j].Support
			}
			return classes[i].Class < classes[j].Class
		})
		sb.WriteString("## Per Class\n\n")
		sb.WriteString("| Class | Support | Precision | Recall | F1 |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		for _, c := range classes {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.3f | %.3f | %.3f |\n", c.Class, c.Support, c.Precision, c.Recall, c.F1))
		}
		sb.WriteString("\n")
	}

	writeHistoryTable(&sb, "History", report.History)
	if len(report.PriorHistory) > 0 {
		writeHistoryTable(&sb, "Prior History", report.PriorHistory)
	}

	if err := os.WriteFile(filename, []byte(sb.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return filename, nil
}

func writeHistoryTable(sb *strings.Builder, title string, history []inferencer.HistoryEntry) {
	sb.WriteString(fmt.Sprintf("## %s\n\n", title))
	sb.WriteString("| Iteration | Training srcids | Accuracy | F1 | Macro F1 |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, entry := range history {
		sb.WriteString(fmt.Sprintf("| %d | %d | %.4f | %.4f | %.4f |\n",
			entry.Iteration, entry.TrainingSrcids, entry.Metrics.Accuracy, entry.Metrics.F1, entry.Metrics.MacroF1))
	}
	sb.WriteString("\n")
}

func (g *Generator) writeHistory(runDir string, report Report) (string, error) {
	filename := filepath.Join(runDir, "history.json")

	data, err := json.MarshalIndent(struct {
		RunID        string                    `json:"run_id"`
		History      []inferencer.HistoryEntry `json:"history"`
		PriorHistory []inferencer.HistoryEntry `json:"prior_history,omitempty"`
	}{report.RunID, report.History, report.PriorHistory}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode history: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write history: %w", err)
	}
	return filename, nil
}

func (g *Generator) writePredictions(runDir string, report Report) (string, error) {
	filename := filepath.Join(runDir, "predictions.nt")

	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("failed to create predictions file: %w", err)
	}
	defer file.Close()

	if report.Predictions != nil {
		if err := report.Predictions.WriteNTriples(file); err != nil {
			return "", err
		}
	}
	return filename, file.Close()
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

func sanitizeFilename(s string) string {
	result := strings.Trim(unsafeChars.ReplaceAllString(s, "-"), "-")
	if len(result) > 50 {
		result = result[:50]
	}
	if result == "" {
		result = "unnamed"
	}
	return strings.ToLower(result)
}
