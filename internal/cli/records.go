package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lorehound/lorehound/internal/entity"
	"github.com/lorehound/lorehound/internal/match"
)

// kindOrDefault maps a free-form kind string to the nearest supported kind.
func kindOrDefault(s string) entity.Kind {
	k, _ := entity.KindFromString(s)
	return k
}

var recordsTeamID string

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Manage the local record-summary snapshot used for matching",
}

var recordsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace a team's record snapshot from a JSON file",
	Long: `Import replaces the team's record-summary snapshot with the contents of a
JSON file shaped as [{"id": "...", "title": "...", "kind": "person|place|quest"}].
The snapshot is what lore_scan and scan --team match candidates against.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			exitErr("reading records file", err)
		}
		var records []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
			Kind  string `json:"kind"`
		}
		if err := json.Unmarshal(raw, &records); err != nil {
			exitErr("parsing records file", err)
		}

		summaries := make([]match.RecordSummary, 0, len(records))
		for _, r := range records {
			summaries = append(summaries, match.RecordSummary{
				ID:    r.ID,
				Title: r.Title,
				Kind:  kindOrDefault(r.Kind),
			})
		}

		cfg, err := resolveConfig("")
		if err != nil {
			exitErr("resolving config", err)
		}
		st, err := openStore(cfg)
		if err != nil {
			exitErr("opening store", err)
		}
		defer st.Close()

		if err := st.ReplaceRecords(context.Background(), recordsTeamID, summaries); err != nil {
			exitErr("replacing record snapshot", err)
		}
		fmt.Printf("Imported %d records for team %s\n", len(summaries), recordsTeamID)
	},
}

func init() {
	recordsCmd.PersistentFlags().StringVar(&recordsTeamID, "team", "", "Team scope (required)")
	recordsCmd.MarkPersistentFlagRequired("team")
	recordsCmd.AddCommand(recordsImportCmd)
	RootCmd.AddCommand(recordsCmd)
}
