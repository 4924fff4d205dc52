package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lorehound/lorehound/internal/entity"
	"github.com/lorehound/lorehound/internal/session"
)

var sessionTeamID string

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and edit today's review decisions for a team",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print today's decision state",
	Run: func(cmd *cobra.Command, args []string) {
		sess := mustOpenSession()
		payload, err := json.MarshalIndent(sess.State(), "", "  ")
		if err != nil {
			exitErr("encoding state", err)
		}
		fmt.Println(string(payload))
	},
}

var sessionDismissCmd = &cobra.Command{
	Use:   "dismiss <candidate-id>",
	Short: "Dismiss a candidate for today's session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sess := mustOpenSession()
		if err := sess.Dismiss(args[0]); err != nil {
			exitErr("dismissing candidate", err)
		}
	},
}

var sessionReclassifyCmd = &cobra.Command{
	Use:   "reclassify <candidate-id> <kind>",
	Short: "Override a candidate's kind (person|place|quest)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		sess := mustOpenSession()
		if err := sess.Reclassify(args[0], entity.Kind(args[1])); err != nil {
			exitErr("reclassifying candidate", err)
		}
	},
}

var sessionCreatedCmd = &cobra.Command{
	Use:   "created <candidate-id>",
	Short: "Mark a candidate as turned into a record",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sess := mustOpenSession()
		if err := sess.MarkCreated(args[0]); err != nil {
			exitErr("marking candidate created", err)
		}
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Wipe today's decisions for the team",
	Run: func(cmd *cobra.Command, args []string) {
		sess := mustOpenSession()
		if err := sess.Clear(); err != nil {
			exitErr("clearing session", err)
		}
	},
}

func init() {
	sessionCmd.PersistentFlags().StringVar(&sessionTeamID, "team", "", "Team scope (required)")
	sessionCmd.MarkPersistentFlagRequired("team")
	sessionCmd.AddCommand(sessionShowCmd, sessionDismissCmd, sessionReclassifyCmd, sessionCreatedCmd, sessionClearCmd)
	RootCmd.AddCommand(sessionCmd)
}

// mustOpenSession opens today's session store for the --team flag, exiting
// on failure. Opening also runs the retention sweep for that team.
func mustOpenSession() *session.Store {
	cfg, err := resolveConfig("")
	if err != nil {
		exitErr("resolving config", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		exitErr("opening store", err)
	}
	sess, err := session.Open(st, sessionTeamID, time.Now())
	if err != nil {
		exitErr("opening session", err)
	}
	return sess
}
