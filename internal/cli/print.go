package cli

import (
	"fmt"

	"github.com/lorehound/lorehound/internal/engine"
)

// printResult renders a pipeline result in a terminal-friendly layout.
func printResult(result *engine.Result) {
	if result.AINotice != "" {
		fmt.Printf("note: AI extraction unavailable (%s)\n\n", result.AINotice)
	}

	if len(result.Candidates) == 0 {
		fmt.Println("No candidates detected.")
		return
	}

	fmt.Printf("Candidates (%d):\n", len(result.Candidates))
	for _, c := range result.Candidates {
		lane := "new"
		if ids, ok := result.Matches[c.ID]; ok {
			lane = fmt.Sprintf("existing → %v", ids)
		}
		fmt.Printf("  [%s] %-30s %s ×%d  (%s)\n",
			c.Kind, c.DisplayText, c.Confidence, c.Frequency, lane)
	}

	if len(result.Proximity) > 0 {
		fmt.Printf("\nProximity suggestions (%d):\n", len(result.Proximity))
		byID := make(map[string]string, len(result.Candidates))
		for _, c := range result.Candidates {
			byID[c.ID] = c.DisplayText
		}
		for _, p := range result.Proximity {
			fmt.Printf("  %s ↔ %s  [%s, %d chars]\n    %q\n",
				byID[p.AnchorID], byID[p.RelatedID], p.Confidence, p.Distance, p.Excerpt)
		}
	}

	if len(result.AIRelated) > 0 {
		fmt.Printf("\nAI-inferred relationships (%d):\n", len(result.AIRelated))
		for _, r := range result.AIRelated {
			fmt.Printf("  %s — %s — %s (%.2f)\n", r.Entity1, r.Relationship, r.Entity2, r.Confidence)
		}
	}
}
