package analysis

import (
	"strings"
	"time"

	"github.com/asase/envreport/pkg/metrics"
)

// FallbackLandHealthScore is reported whenever the model cannot be used.
const FallbackLandHealthScore = 6

// Report is the professional analysis shown on a report page.
type Report struct {
	Title           string `json:"title"`
	Timestamp       string `json:"timestamp"`
	Subject         string `json:"subject"`
	Assessment      string `json:"assessment"`
	SDG15Compliance string `json:"sdg_15_compliance"`
	Recommendations string `json:"recommendations"`
}

// Render formats the report as the sectioned text stored with a snapshot.
func (r Report) Render() string {
	var b strings.Builder
	b.WriteString(r.Title)
	b.WriteString("\n")
	b.WriteString(r.Timestamp)
	b.WriteString("\n")
	b.WriteString(r.Subject)
	for _, section := range []struct{ heading, body string }{
		{"Risk Assessment", r.Assessment},
		{"SDG 15 Compliance Analysis", r.SDG15Compliance},
		{"Recommendations", r.Recommendations},
	} {
		b.WriteString("\n\n")
		b.WriteString(section.heading)
		b.WriteString("\n")
		b.WriteString(section.body)
	}
	return b.String()
}

// Result is what the summarizer hands back to the pipeline.
type Result struct {
	LandHealthScore int
	Analysis        Report
	// Fallback is set when Analysis is the canned text.
	Fallback   bool
	TokenUsage *metrics.TokenUsage
}

// Config wires runtime knobs for the summarizer.
type Config struct {
	Model       string
	Temperature float32
	Timeout     time.Duration
}
