package analysis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/asase/envreport/internal/domain/environment"
)

// Reports are stamped in West Africa Time.
var wat = time.FixedZone("WAT", 60*60)

const (
	reportSubject = "ASSESSMENT OF IMMINENT RISKS AND LAND HEALTH (SDG 15)"

	systemPrompt = "You are an expert Environmental Geo-Analyst providing a professional risk assessment. Respond ONLY with a single valid JSON object and no surrounding prose."
)

func reportTitle(location, country string) string {
	return fmt.Sprintf("ENVIRONMENTAL ANALYSIS FOR: %s, %s", location, country)
}

func reportTimestamp(now time.Time) string {
	return now.In(wat).Format("January 02, 2006 at 15:04") + " WAT"
}

func buildPrompt(location, country string, signals environment.Signals, now time.Time) string {
	data, err := json.MarshalIndent(signals, "", "  ")
	if err != nil {
		data = []byte("{}")
	}
	local := now.In(wat)

	return fmt.Sprintf(`The current time is %s at %s WAT.
Analyze the following data for %s, %s:
%s

Your task is to produce two outputs:
1. An "Inferred Land Health Score" from 1-10, based on fusing the provided data.
2. A full, professional analysis text.

Provide a response ONLY in the following JSON format:
{
  "inferred_land_health_score": <integer>,
  "professional_analysis": {
    "title": %q,
    "timestamp": %q,
    "subject": %q,
    "assessment": "<Your detailed assessment of all risks, starting with the most severe. Be direct and data-driven.>",
    "sdg_15_compliance": "<Your analysis of the Land Health score, its causes based on the data, and how it relates to SDG 15.3 goals like land degradation neutrality.>",
    "recommendations": "<Provide one immediate-term safety/mitigation action and one long-term recommendation related to improving land health.>"
  }
}`,
		local.Format("Monday, January 2, 2006"), local.Format("15:04"),
		location, country, string(data),
		reportTitle(location, country), reportTimestamp(now), reportSubject,
	)
}

// fallbackResult is the canned analysis used when the model is unavailable.
func fallbackResult(location, country string, now time.Time) Result {
	return Result{
		LandHealthScore: FallbackLandHealthScore,
		Fallback:        true,
		Analysis: Report{
			Title:           reportTitle(location, country),
			Timestamp:       reportTimestamp(now),
			Subject:         reportSubject,
			Assessment:      fmt.Sprintf("Based on available data for %s, moderate environmental risks have been detected. Precipitation patterns suggest elevated flood risk, while air quality remains within acceptable parameters. Sample data indicates further analysis recommended.", location),
			SDG15Compliance: "Land health metrics show moderate compliance with SDG 15.3 targets. Vegetation indices within normal range, though continued monitoring advised.",
			Recommendations: "Immediate: Monitor weather patterns and prepare flood mitigation measures. Long-term: Implement sustainable land management practices and regular environmental monitoring.",
		},
	}
}
