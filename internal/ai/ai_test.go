package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamline/beamline/internal/models"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

type fakeClient struct {
	completion string
	transcript string
	err        error
	prompt     string
}

func (f *fakeClient) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.completion, f.err
}

func (f *fakeClient) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	return f.transcript, f.err
}

func TestParseReport(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Report
	}{
		{
			"plain json",
			`{"summary":"on track","risks":["rain"],"next_steps":["pour slab"]}`,
			Report{Summary: "on track", Risks: []string{"rain"}, NextSteps: []string{"pour slab"}},
		},
		{
			"json fence",
			"```json\n{\"summary\":\"on track\",\"risks\":[],\"next_steps\":[]}\n```",
			Report{Summary: "on track", Risks: []string{}, NextSteps: []string{}},
		},
		{
			"bare fence",
			"```\n{\"summary\":\"slipping\"}\n```",
			Report{Summary: "slipping", Risks: []string{}, NextSteps: []string{}},
		},
		{
			"not json falls back to raw",
			"The project is doing fine.",
			Report{Summary: "The project is doing fine.", Risks: []string{}, NextSteps: []string{}},
		},
		{
			"json without summary falls back",
			`{"risks":["weather"]}`,
			Report{Summary: `{"risks":["weather"]}`, Risks: []string{}, NextSteps: []string{}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseReport(tt.raw)
			assert.Equal(t, &tt.want, got)
		})
	}
}

func TestGenerateProgressReport(t *testing.T) {
	client := &fakeClient{completion: `{"summary":"framing done","risks":["inspection backlog"],"next_steps":["schedule electrical"]}`}
	gen := NewGenerator(client)

	ends := mustDate(t, "2026-04-01")
	report, err := gen.GenerateProgressReport(context.Background(), ReportInput{
		Project: &models.Project{Name: "Riverside Duplex", Status: models.ProjectActive},
		Phases: []*models.Phase{
			{Name: "Framing", Status: models.PhaseDone},
			{Name: "Electrical", Status: models.PhaseNotStarted, EndsOn: &ends},
		},
		PunchOpen: []*models.PunchListItem{{Title: "Seal window gap", Status: models.PunchOpen}},
	})
	require.NoError(t, err)

	assert.Equal(t, "framing done", report.Summary)
	assert.Equal(t, []string{"inspection backlog"}, report.Risks)

	assert.Contains(t, client.prompt, "Riverside Duplex")
	assert.Contains(t, client.prompt, "Framing: DONE")
	assert.Contains(t, client.prompt, "(due 2026-04-01)")
	assert.Contains(t, client.prompt, "Seal window gap")
}

func TestGenerateProgressReportError(t *testing.T) {
	gen := NewGenerator(&fakeClient{err: errors.New("quota exceeded")})

	_, err := gen.GenerateProgressReport(context.Background(), ReportInput{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "quota exceeded"))
}

func TestTranscribe(t *testing.T) {
	gen := NewGenerator(&fakeClient{transcript: "pour the footings friday"})

	text, err := gen.Transcribe(context.Background(), []byte("audio"), "audio/webm")
	require.NoError(t, err)
	assert.Equal(t, "pour the footings friday", text)
}
