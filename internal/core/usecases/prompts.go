package usecases

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samirrijal/wanderplan/internal/core/domain"
)

// DefaultRegion is the area drafts are constrained to when none is configured.
const DefaultRegion = "Fukuoka, Japan"

// outputFormat describes the JSON object the drafting service must return.
const outputFormat = `{
  "title": "string - a creative title for the plan",
  "spots": [
    {
      "name": "string - name of the place",
      "description": "string - short description and why it matches the request",
      "stayDuration": "number - recommended stay in minutes",
      "location": {
        "lat": "number - latitude",
        "lng": "number - longitude"
      },
      "address": "string - full address of the place",
      "placeId": "string - map place id, if known"
    }
  ],
  "totalDuration": "number - estimated total minutes including travel"
}`

// PromptBuilder renders instructions for the drafting service.
type PromptBuilder struct {
	Region string
}

// First renders the instruction for the first drafting attempt of a run.
func (b PromptBuilder) First(req domain.PlanRequest) string {
	region := b.region()
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a travel guide for %s.\n", region)
	sb.WriteString("Create a travel plan for the request below using real places found on the map.\n\n")
	sb.WriteString("Request:\n")
	fmt.Fprintf(&sb, "- Query (mood/interest): %q\n", req.Query)
	fmt.Fprintf(&sb, "- Transportation: %s\n", req.Transportation)
	fmt.Fprintf(&sb, "- Available time: %d minutes\n", req.DurationLimit)
	fmt.Fprintf(&sb, "- Return to start: %t\n", req.ReturnToStart)
	fmt.Fprintf(&sb, "- Starting location: latitude %s, longitude %s\n\n",
		formatCoord(req.StartingLocation.Lat), formatCoord(req.StartingLocation.Lng))
	sb.WriteString("Instructions:\n")
	fmt.Fprintf(&sb, "1. Only use real places in %s that match the query and are reasonably close to the starting location.\n", region)
	fmt.Fprintf(&sb, "2. Fit the plan into %d minutes: aim for 90%% to 100%% of the available time, counting travel between spots.\n", req.DurationLimit)
	sb.WriteString("3. Order the spots as a sensible route that STARTS FROM the starting location.\n")
	if req.ReturnToStart {
		sb.WriteString("4. The route ends back at the starting location; include that final trip in the total.\n")
	} else {
		sb.WriteString("4. The route ends at the last spot.\n")
	}
	sb.WriteString("\nIMPORTANT: Return ONLY a valid JSON object in this format:\n")
	sb.WriteString(outputFormat)
	sb.WriteString("\n")
	return sb.String()
}

// Corrective renders a retry instruction from the latest feedback entry.
// Earlier entries stay in the transcript for audit but do not drive the retry.
func (b PromptBuilder) Corrective(history domain.Transcript) string {
	last, _ := history.Last()
	var sb strings.Builder
	sb.WriteString("(User feedback / system instruction)\n")
	sb.WriteString(last.Text)
	sb.WriteString("\n\nFix the plan according to the instruction above.\n")
	sb.WriteString("Return ONLY a valid JSON object in this format:\n")
	sb.WriteString(outputFormat)
	sb.WriteString("\n")
	return sb.String()
}

func (b PromptBuilder) region() string {
	if strings.TrimSpace(b.Region) == "" {
		return DefaultRegion
	}
	return b.Region
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
