package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lorehound/lorehound/internal/entity"
	"github.com/lorehound/lorehound/internal/match"
	"github.com/lorehound/lorehound/internal/session"
)

var (
	scanTeamID  string
	scanMinConf string
	scanJSON    bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [file]",
	Short: "Scan session notes for candidate entities",
	Long: `Scan reads session-note text from a file (or stdin when no file is given),
runs the detection pipeline, and prints the suggestions. With --team, results
are matched against that team's record snapshot and filtered through today's
session decisions.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		text, err := readInput(args)
		if err != nil {
			exitErr("reading input", err)
		}

		cfg, err := resolveConfig(scanMinConf)
		if err != nil {
			exitErr("resolving config", err)
		}
		minConf, err := entity.ParseConfidence(cfg.MinConfidence.Value)
		if err != nil {
			exitErr("parsing min confidence", err)
		}

		eng := buildEngine(cfg)
		ctx := context.Background()

		var (
			sess    *session.Store
			records []match.RecordSummary
		)
		st, err := openStore(cfg)
		if err != nil {
			exitErr("opening store", err)
		}
		defer st.Close()

		if scanTeamID != "" {
			sess, err = session.Open(st, scanTeamID, time.Now())
			if err != nil {
				exitErr("opening session", err)
			}
			recs, err := st.RecordsForTeam(ctx, scanTeamID)
			if err != nil {
				exitErr("loading record snapshot", err)
			}
			records = recs
		}

		blocks := []entity.Block{{ID: "text", Content: text}}
		result, err := eng.Suggest(ctx, blocks, records, sess)
		if err != nil {
			exitErr("scanning", err)
		}

		if minConf > entity.ConfidenceLow {
			kept := result.Candidates[:0]
			for _, c := range result.Candidates {
				if c.Confidence >= minConf {
					kept = append(kept, c)
				}
			}
			result.Candidates = kept
		}

		if scanJSON {
			payload, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				exitErr("encoding result", err)
			}
			fmt.Println(string(payload))
			return
		}

		printResult(result)
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanTeamID, "team", "", "Team scope for matching and session filtering")
	scanCmd.Flags().StringVar(&scanMinConf, "min-confidence", "", "Drop candidates below this tier (high|medium|low)")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print the raw JSON result")
	RootCmd.AddCommand(scanCmd)
}

func readInput(args []string) (string, error) {
	if len(args) == 1 {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
