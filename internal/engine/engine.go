// Package engine wires the suggestion pipeline end to end: detect → AI merge
// → record matching → proximity → session filtering, plus the accept path
// that hands candidates to the external record store.
package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/lorehound/lorehound/internal/ai"
	"github.com/lorehound/lorehound/internal/aimerge"
	"github.com/lorehound/lorehound/internal/detect"
	"github.com/lorehound/lorehound/internal/entity"
	"github.com/lorehound/lorehound/internal/match"
	"github.com/lorehound/lorehound/internal/proximity"
	"github.com/lorehound/lorehound/internal/session"
)

// NewRecord is the payload handed to the record store when a candidate is
// accepted.
type NewRecord struct {
	Title           string
	Kind            entity.Kind
	LinkedRecordIDs []string
}

// Backlink connects an accepted record back to a related one, with the
// proximity excerpt that justified the link.
type Backlink struct {
	SourceID string
	TargetID string
	Excerpt  string
}

// RecordCreator is the external record store collaborator. The engine only
// consumes it — after a human accepts a candidate.
type RecordCreator interface {
	CreateRecord(ctx context.Context, r NewRecord) (string, error)
	CreateBacklink(ctx context.Context, b Backlink) error
}

// Engine runs the full suggestion pipeline.
type Engine struct {
	detector  *detect.Detector
	extractor ai.Extractor  // optional; nil means heuristic-only
	records   RecordCreator // optional; required for Accept
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtractor enables the AI extraction collaborator.
func WithExtractor(x ai.Extractor) Option {
	return func(e *Engine) { e.extractor = x }
}

// WithRecordCreator enables the accept path.
func WithRecordCreator(rc RecordCreator) Option {
	return func(e *Engine) { e.records = rc }
}

// New creates an Engine around the given detector.
func New(d *detect.Detector, opts ...Option) *Engine {
	e := &Engine{detector: d}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is one full pipeline pass, ready for human review.
type Result struct {
	Candidates []entity.Candidate     `json:"candidates"`
	Matches    map[string][]string    `json:"matches"`
	Proximity  []proximity.Suggestion `json:"proximity"`
	AIRelated  []ai.Relationship      `json:"ai_relationships,omitempty"`
	// AINotice carries a dismissible message when the AI collaborator
	// failed; the heuristic results above are unaffected by it.
	AINotice string `json:"ai_notice,omitempty"`
}

// Suggest runs detection over the blocks, merges the optional AI extraction,
// matches against the record summaries, computes proximity suggestions, and
// filters out candidates the session has already resolved. A failure of the
// AI collaborator degrades to heuristic-only operation and is reported on
// Result.AINotice, never as an error.
func (e *Engine) Suggest(ctx context.Context, blocks []entity.Block, records []match.RecordSummary, sess *session.Store) (*Result, error) {
	candidates, err := e.detector.Detect(blocks)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	if e.extractor != nil {
		extraction, aiErr := e.extractor.Extract(ctx, joinBlocks(blocks))
		if aiErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: AI extraction failed, using heuristic detection only: %v\n", aiErr)
			res.AINotice = aiErr.Error()
		} else {
			candidates = aimerge.Merge(candidates, aimerge.NormalizeAI(extraction.Entities))
			entity.SortCandidates(candidates)
			res.AIRelated = extraction.Relationships
		}
	}

	if sess != nil {
		kept := candidates[:0]
		for _, c := range candidates {
			if sess.Hidden(c.ID) {
				continue
			}
			if kind, ok := sess.ReclassifiedKind(c.ID); ok {
				c.Kind = kind
			}
			kept = append(kept, c)
		}
		candidates = kept
	}

	res.Candidates = candidates
	res.Matches = match.Match(candidates, records)
	res.Proximity = proximity.Suggest(candidates, blocks)
	return res, nil
}

// Accept turns a reviewed candidate into a record via the external record
// store, marks it created in the session, and emits backlinks to the linked
// records using the given excerpt.
func (e *Engine) Accept(ctx context.Context, sess *session.Store, c entity.Candidate, linkedRecordIDs []string, excerpt string) (string, error) {
	if e.records == nil {
		return "", fmt.Errorf("no record store configured")
	}

	kind := c.Kind
	if sess != nil {
		if override, ok := sess.ReclassifiedKind(c.ID); ok {
			kind = override
		}
	}

	recordID, err := e.records.CreateRecord(ctx, NewRecord{
		Title:           c.DisplayText,
		Kind:            kind,
		LinkedRecordIDs: linkedRecordIDs,
	})
	if err != nil {
		return "", fmt.Errorf("creating record for %q: %w", c.DisplayText, err)
	}

	if sess != nil {
		if err := sess.MarkCreated(c.ID); err != nil {
			return recordID, fmt.Errorf("marking candidate created: %w", err)
		}
	}

	for _, target := range linkedRecordIDs {
		if err := e.records.CreateBacklink(ctx, Backlink{
			SourceID: recordID,
			TargetID: target,
			Excerpt:  excerpt,
		}); err != nil {
			return recordID, fmt.Errorf("creating backlink to %s: %w", target, err)
		}
	}
	return recordID, nil
}

// joinBlocks flattens block contents for the AI collaborator, which takes a
// single text payload.
func joinBlocks(blocks []entity.Block) string {
	out := ""
	for i, b := range blocks {
		if i > 0 {
			out += "\n\n"
		}
		out += b.Content
	}
	return out
}
