package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/lorehound/lorehound/internal/detect"
	"github.com/lorehound/lorehound/internal/engine"
	"github.com/lorehound/lorehound/internal/entity"
	"github.com/lorehound/lorehound/internal/match"
	"github.com/lorehound/lorehound/internal/proximity"
	"github.com/lorehound/lorehound/internal/worker"
)

var (
	watchTeamID  string
	watchMinConf string
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Re-scan a notes file as it is edited",
	Long: `Watch monitors a session-notes file and re-runs detection whenever it
changes. Edits are debounced, detection runs on a background worker, and
results from superseded edits are discarded — only the scan of the newest
content is printed.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveConfig(watchMinConf)
		if err != nil {
			exitErr("resolving config", err)
		}
		minConf, err := entity.ParseConfidence(cfg.MinConfidence.Value)
		if err != nil {
			exitErr("parsing min confidence", err)
		}
		quiet := worker.DefaultQuietPeriod
		if ms, err := strconv.Atoi(cfg.DebounceMS.Value); err == nil && ms > 0 {
			quiet = time.Duration(ms) * time.Millisecond
		}

		var records []match.RecordSummary
		if watchTeamID != "" {
			st, err := openStore(cfg)
			if err != nil {
				exitErr("opening store", err)
			}
			records, err = st.RecordsForTeam(context.Background(), watchTeamID)
			st.Close()
			if err != nil {
				exitErr("loading record snapshot", err)
			}
		}

		if err := runWatch(args[0], records, minConf, quiet); err != nil {
			exitErr("watching", err)
		}
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchTeamID, "team", "", "Team scope for matching against the record snapshot")
	watchCmd.Flags().StringVar(&watchMinConf, "min-confidence", "", "Drop candidates below this tier (high|medium|low)")
	RootCmd.AddCommand(watchCmd)
}

func runWatch(path string, records []match.RecordSummary, minConf entity.Confidence, quiet time.Duration) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	// Watch the directory, not the file: editors replace files on save and
	// a file-level watch dies on the first rename.
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	boundary := worker.New(detect.New())
	defer boundary.Close()
	debouncer := worker.NewDebouncer(quiet)
	defer debouncer.Stop()

	rescan := func() {
		raw, err := os.ReadFile(abs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: reading %s: %v\n", abs, err)
			return
		}
		pending := boundary.RequestText(string(raw), minConf)
		go func() {
			resp := <-pending.Result
			boundary.Apply(resp, func(entities []entity.Candidate, err error) {
				if err != nil {
					fmt.Fprintf(os.Stderr, "Warning: scan failed: %v\n", err)
					return
				}
				blocks := []entity.Block{{ID: "text", Content: string(raw)}}
				res := &engine.Result{
					Candidates: entities,
					Matches:    match.Match(entities, records),
					Proximity:  proximity.Suggest(entities, blocks),
				}
				fmt.Printf("\n--- %s @ %s ---\n", filepath.Base(abs), time.Now().Format("15:04:05"))
				printResult(res)
			})
		}()
	}

	rescan()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Name != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debouncer.Trigger(rescan)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Warning: watcher: %v\n", err)
		case <-sig:
			return nil
		}
	}
}
