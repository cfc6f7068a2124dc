package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/pipeline"
)

func TestGenerateSummary(t *testing.T) {
	now := time.Now().UTC()
	email := "hello@studio.example"

	leads := []*lead.Lead{
		{
			Username:     "a.studio",
			Status:       lead.StatusNew,
			Website:      "https://a.example",
			QualityScore: 8,
			EnrichedAt:   &now,
		},
		{
			Username:     "b.studio",
			Status:       lead.StatusContacted,
			ContactEmail: &email,
			QualityScore: 4,
		},
		{
			Username:     "c.studio",
			Status:       lead.StatusNew,
			QualityScore: 0,
		},
	}

	summary := GenerateSummary(leads)

	if summary.TotalLeads != 3 {
		t.Errorf("expected 3 total leads, got %d", summary.TotalLeads)
	}

	if summary.ByStatus["new"] != 2 {
		t.Errorf("expected 2 new leads, got %d", summary.ByStatus["new"])
	}

	if summary.ByStatus["contacted"] != 1 {
		t.Errorf("expected 1 contacted lead, got %d", summary.ByStatus["contacted"])
	}

	if summary.WithWebsite != 1 {
		t.Errorf("expected 1 lead with website, got %d", summary.WithWebsite)
	}

	if summary.WithContact != 1 {
		t.Errorf("expected 1 lead with contact, got %d", summary.WithContact)
	}

	if summary.Enriched != 1 {
		t.Errorf("expected 1 enriched lead, got %d", summary.Enriched)
	}

	if summary.AverageScore != 4.0 {
		t.Errorf("expected average score 4.0, got %v", summary.AverageScore)
	}

	if summary.HighestScore != 8 {
		t.Errorf("expected highest score 8, got %d", summary.HighestScore)
	}

	if summary.ScoreBuckets["8-10"] != 1 {
		t.Errorf("expected 1 lead in 8-10 bucket, got %d", summary.ScoreBuckets["8-10"])
	}

	if summary.ScoreBuckets["0-1"] != 1 {
		t.Errorf("expected 1 lead in 0-1 bucket, got %d", summary.ScoreBuckets["0-1"])
	}
}

func TestGenerateSummaryEmpty(t *testing.T) {
	summary := GenerateSummary(nil)
	if summary.TotalLeads != 0 {
		t.Errorf("expected 0 total leads, got %d", summary.TotalLeads)
	}
	if summary.AverageScore != 0 {
		t.Errorf("expected 0 average score, got %v", summary.AverageScore)
	}
}

func TestWriteJSON(t *testing.T) {
	summary := Summary{
		TotalLeads: 5,
	}
	var buf bytes.Buffer
	err := WriteJSON(&buf, summary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), `"TotalLeads": 5`) {
		t.Errorf("expected JSON to contain TotalLeads: 5")
	}
}

func TestWriteRunText(t *testing.T) {
	r := &pipeline.RunReport{
		StartedAt:      time.Now().UTC(),
		FinishedAt:     time.Now().UTC(),
		QueriesPlanned: 6,
		Discovered:     12,
		Inserted:       9,
		Updated:        3,
		Enriched:       8,
		Failures: []pipeline.RowFailure{
			{Username: "bad.row", Reason: "website enrichment unavailable"},
		},
	}

	var buf bytes.Buffer
	err := WriteRunText(&buf, r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Discovered:      12") {
		t.Errorf("expected text to contain discovered count, got:\n%s", out)
	}
	if !strings.Contains(out, "bad.row: website enrichment unavailable") {
		t.Errorf("expected text to contain failure line, got:\n%s", out)
	}
}

func TestWriteSummaryText(t *testing.T) {
	summary := Summary{
		TotalLeads:   10,
		WithWebsite:  4,
		AverageScore: 5.5,
		ByStatus:     map[string]int{"new": 7, "contacted": 3},
		ScoreBuckets: map[string]int{"5-7": 6},
	}

	var buf bytes.Buffer
	err := WriteSummaryText(&buf, summary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Total Leads:   10") {
		t.Errorf("expected text to contain total leads, got:\n%s", out)
	}
	if !strings.Contains(out, "new: 7") {
		t.Errorf("expected text to contain status counts, got:\n%s", out)
	}
	if !strings.Contains(out, "Average Score: 5.5") {
		t.Errorf("expected text to contain average score, got:\n%s", out)
	}
}
