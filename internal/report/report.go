package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"

	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/pipeline"
)

// Summary contains aggregated metrics about the lead funnel.
type Summary struct {
	TotalLeads   int
	ByStatus     map[string]int
	WithWebsite  int
	WithContact  int
	Enriched     int
	AverageScore float64
	HighestScore int
	ScoreBuckets map[string]int
}

// GenerateSummary processes a slice of leads to generate funnel metrics.
func GenerateSummary(leads []*lead.Lead) Summary {
	s := Summary{
		ByStatus:     make(map[string]int),
		ScoreBuckets: make(map[string]int),
	}

	if len(leads) == 0 {
		return s
	}

	total := 0
	for _, l := range leads {
		s.TotalLeads++
		s.ByStatus[string(l.Status)]++
		if l.Website != "" {
			s.WithWebsite++
		}
		if l.ContactEmail != nil || l.ContactPhone != nil || l.ContactWhatsApp != nil {
			s.WithContact++
		}
		if l.EnrichedAt != nil {
			s.Enriched++
		}
		total += l.QualityScore
		if l.QualityScore > s.HighestScore {
			s.HighestScore = l.QualityScore
		}
		s.ScoreBuckets[scoreBucket(l.QualityScore)]++
	}

	s.AverageScore = float64(total) / float64(len(leads))
	return s
}

func scoreBucket(score int) string {
	switch {
	case score >= 8:
		return "8-10"
	case score >= 5:
		return "5-7"
	case score >= 2:
		return "2-4"
	default:
		return "0-1"
	}
}

// WriteJSON writes v to the provided writer in indented JSON format.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteRunText writes a human-readable run report to the provided writer.
func WriteRunText(w io.Writer, r *pipeline.RunReport) error {
	const textTmpl = `Leadscout Run Report
--------------------
Time:            {{.StartedAt.Format "2006-01-02 15:04:05"}} - {{.FinishedAt.Format "2006-01-02 15:04:05"}}
Queries Planned: {{.QueriesPlanned}}
Discovered:      {{.Discovered}}
Inserted:        {{.Inserted}}
Updated:         {{.Updated}}
Contacts Found:  {{.ContactsFound}}
Enriched:        {{.Enriched}}

Row Failures: {{len .Failures}}
{{- range .Failures}}
  {{.Username}}: {{.Reason}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("runReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse run template: %w", err)
	}
	if err := t.Execute(w, r); err != nil {
		return fmt.Errorf("render run report: %w", err)
	}
	return nil
}

// WriteSummaryText writes a human-readable funnel summary to the provided writer.
func WriteSummaryText(w io.Writer, s Summary) error {
	const textTmpl = `Leadscout Funnel Summary
------------------------
Total Leads:   {{.TotalLeads}}
With Website:  {{.WithWebsite}}
With Contact:  {{.WithContact}}
Enriched:      {{.Enriched}}
Average Score: {{printf "%.1f" .AverageScore}}
Highest Score: {{.HighestScore}}

By Status:
{{- range $status, $count := .ByStatus}}
  {{$status}}: {{$count}}
{{- else}}
  None
{{- end}}

Score Buckets:
{{- range $bucket, $count := .ScoreBuckets}}
  {{$bucket}}: {{$count}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("summaryReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse summary template: %w", err)
	}
	if err := t.Execute(w, s); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	return nil
}
