package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/beamline/beamline/internal/models"
)

// Client is the generative backend used for report drafting and voice
// transcription. Implementations must be safe for concurrent use.
type Client interface {
	// Complete sends a prompt and returns the raw completion text.
	Complete(ctx context.Context, prompt string) (string, error)

	// Transcribe converts recorded audio to text.
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Report is a generated progress report for a project.
type Report struct {
	Summary   string   `json:"summary"`
	Risks     []string `json:"risks"`
	NextSteps []string `json:"next_steps"`
}

// ReportInput carries the project state a report is drafted from.
type ReportInput struct {
	Project   *models.Project
	Phases    []*models.Phase
	PunchOpen []*models.PunchListItem
	Activity  []*models.ActivityEntry
}

// Generator drafts progress reports through a Client.
type Generator struct {
	client Client
}

func NewGenerator(client Client) *Generator {
	return &Generator{client: client}
}

// GenerateProgressReport asks the model for a strict-JSON report. If the
// response is not valid JSON the raw text becomes the summary so a flaky
// model never fails the request.
func (g *Generator) GenerateProgressReport(ctx context.Context, in ReportInput) (*Report, error) {
	raw, err := g.client.Complete(ctx, buildReportPrompt(in))
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}

	return ParseReport(raw), nil
}

// Transcribe converts recorded audio to text through the same backend.
func (g *Generator) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	return g.client.Transcribe(ctx, audio, mimeType)
}

// ParseReport decodes the model output, falling back to raw text on
// malformed JSON.
func ParseReport(raw string) *Report {
	text := strings.TrimSpace(raw)

	// Models sometimes wrap JSON in a markdown fence despite instructions.
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	var report Report
	if err := json.Unmarshal([]byte(text), &report); err != nil || report.Summary == "" {
		report = Report{Summary: strings.TrimSpace(raw)}
	}
	// Absent lists serialize as [] rather than null.
	if report.Risks == nil {
		report.Risks = []string{}
	}
	if report.NextSteps == nil {
		report.NextSteps = []string{}
	}
	return &report
}

func buildReportPrompt(in ReportInput) string {
	var b strings.Builder

	b.WriteString("You are drafting a construction project progress report.\n")
	b.WriteString("Respond with ONLY a JSON object shaped as ")
	b.WriteString(`{"summary": string, "risks": [string], "next_steps": [string]}.` + "\n\n")

	if in.Project != nil {
		fmt.Fprintf(&b, "Project: %s (status %s)\n", in.Project.Name, in.Project.Status)
	}

	if len(in.Phases) > 0 {
		b.WriteString("\nPhases:\n")
		for _, p := range in.Phases {
			fmt.Fprintf(&b, "- %s: %s", p.Name, p.Status)
			if p.EndsOn != nil {
				fmt.Fprintf(&b, " (due %s)", p.EndsOn.Format("2006-01-02"))
			}
			b.WriteString("\n")
		}
	}

	if len(in.PunchOpen) > 0 {
		b.WriteString("\nOpen punch list items:\n")
		for _, item := range in.PunchOpen {
			fmt.Fprintf(&b, "- %s (%s)\n", item.Title, item.Status)
		}
	}

	if len(in.Activity) > 0 {
		b.WriteString("\nRecent activity:\n")
		for _, e := range in.Activity {
			fmt.Fprintf(&b, "- %s %s at %s\n", e.Action, e.EntityType, e.CreatedAt.Format(time.RFC3339))
		}
	}

	return b.String()
}
