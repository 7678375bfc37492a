package verification

import (
	"fmt"
	"strings"

	"trs-pricer/internal/idhash"
)

// RenderMarkdown renders a verification report as markdown.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Replay Verification Report\n\n")
	sb.WriteString("| Metric | Count |\n")
	sb.WriteString("|--------|-------|\n")
	fmt.Fprintf(&sb, "| Total runs | %d |\n", r.TotalRuns)
	fmt.Fprintf(&sb, "| Matched | %d |\n", r.MatchedRuns)
	fmt.Fprintf(&sb, "| Divergent | %d |\n", r.DivergentRuns)
	fmt.Fprintf(&sb, "| Skipped | %d |\n\n", r.SkippedRuns)

	if len(r.Results) == 0 {
		sb.WriteString("No runs stored.\n")
		return sb.String()
	}

	sb.WriteString("## Runs\n\n")
	sb.WriteString("| Run | Ticker | Status | Stored NPV | Replayed NPV |\n")
	sb.WriteString("|-----|--------|--------|------------|--------------|\n")
	for _, res := range r.Results {
		fmt.Fprintf(&sb, "| %s | %s | %s | %.2f | %s |\n",
			idhash.ShortID(res.RunID), res.Ticker, status(res), res.StoredNPV, replayedNPV(res))
	}

	for _, res := range r.Results {
		if len(res.Divergences) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n### Divergences: %s\n\n", idhash.ShortID(res.RunID))
		sb.WriteString("| Field | Stored | Replayed |\n")
		sb.WriteString("|-------|--------|----------|\n")
		for _, d := range res.Divergences {
			fmt.Fprintf(&sb, "| %s | %v | %v |\n", d.Field, d.Expected, d.Actual)
		}
	}

	return sb.String()
}

func status(r RunVerification) string {
	switch {
	case r.Skipped != "":
		return "SKIPPED (" + r.Skipped + ")"
	case r.Match:
		return "MATCH"
	default:
		return "DIVERGED"
	}
}

func replayedNPV(r RunVerification) string {
	if r.Skipped != "" || (!r.Match && r.ReplayedNPV == 0) {
		return "-"
	}
	return fmt.Sprintf("%.2f", r.ReplayedNPV)
}
