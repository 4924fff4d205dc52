// Package cli implements the lorehound CLI commands.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lorehound/lorehound/internal/ai"
	"github.com/lorehound/lorehound/internal/config"
	"github.com/lorehound/lorehound/internal/detect"
	"github.com/lorehound/lorehound/internal/engine"
	"github.com/lorehound/lorehound/internal/store"
)

// Version is the CLI version string, overridable at build time.
var Version = "0.1.0-dev"

var (
	configPath string
	dbPath     string
	aiEndpoint string
	aiModel    string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "lorehound",
	Short: "Entity suggestion engine for tabletop session notes",
	Long: `Lorehound scans free-text session notes and proposes candidate entities
(people, places, quests), matches them against existing records, and infers
likely relationships from textual proximity. Decisions (dismiss, reclassify,
create) are remembered per team and per day.`,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.lorehound/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: $LOREHOUND_DB or ~/.lorehound/lorehound.db)")
	RootCmd.PersistentFlags().StringVar(&aiEndpoint, "ai-endpoint", "", "AI extraction endpoint (empty = heuristic-only)")
	RootCmd.PersistentFlags().StringVar(&aiModel, "ai-model", "", "AI extraction model")

	RootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the lorehound version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lorehound %s\n", Version)
	},
}

// resolveConfig applies CLI flags over env and file configuration. minConf
// carries a per-command --min-confidence flag; commands without one pass "".
func resolveConfig(minConf string) (config.ResolvedConfig, error) {
	return config.Resolve(config.ResolveOptions{
		ConfigPath:       configPath,
		CLIDBPath:        dbPath,
		CLIAIEndpoint:    aiEndpoint,
		CLIAIModel:       aiModel,
		CLIMinConfidence: minConf,
	})
}

// openStore opens the SQLite store from resolved config.
func openStore(cfg config.ResolvedConfig) (*store.SQLiteStore, error) {
	return store.Open(cfg.DBPath.Value)
}

// buildEngine assembles the pipeline from resolved config: detector with any
// extra stopwords, and the AI extractor when an endpoint is configured.
func buildEngine(cfg config.ResolvedConfig) *engine.Engine {
	detector := detect.New(detect.WithStopwords(cfg.StoplistExtra...))

	var opts []engine.Option
	if cfg.AIEndpoint.Value != "" {
		opts = append(opts, engine.WithExtractor(ai.NewClient(ai.Config{
			Endpoint: cfg.AIEndpoint.Value,
			APIKey:   cfg.AIAPIKey.Value,
			Model:    cfg.AIModel.Value,
			Timeout:  30 * time.Second,
		})))
	}
	return engine.New(detector, opts...)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
