// Package match associates detected candidates with pre-existing records.
//
// Matching is advisory: a candidate with matches is routed to the "existing"
// review lane, one without to the "new" lane. Callers must treat map
// membership, not list emptiness, as the has-existing-match signal.
package match

import (
	"sort"
	"strings"

	"github.com/lorehound/lorehound/internal/entity"
)

// RecordSummary is the minimal shape of an existing record needed for
// matching: identifier, title, and record kind.
type RecordSummary struct {
	ID    string
	Title string
	Kind  entity.Kind
}

// match strength tiers, strongest first.
const (
	strengthExact = iota
	strengthCandidateInTitle
	strengthTitleInCandidate
)

type scoredMatch struct {
	recordID string
	strength int
	order    int // input order, for deterministic ties
}

// Match compares each candidate's normalized key against existing record
// titles: exact normalized match first, then case-insensitive containment in
// either direction. Kind-compatible records are considered first; a
// cross-kind exact match is still reported (kind detection is heuristic).
// Candidates with zero matches are absent from the returned map.
func Match(candidates []entity.Candidate, records []RecordSummary) map[string][]string {
	type rec struct {
		id    string
		key   string
		kind  entity.Kind
		order int
	}
	recs := make([]rec, 0, len(records))
	for i, r := range records {
		key := entity.Normalize(r.Title)
		if key == "" {
			continue
		}
		recs = append(recs, rec{id: r.ID, key: key, kind: r.Kind, order: i})
	}

	out := make(map[string][]string)
	for _, c := range candidates {
		var found []scoredMatch
		for _, r := range recs {
			strength := -1
			switch {
			case r.key == c.NormalizedKey:
				strength = strengthExact
			case r.kind == c.Kind && strings.Contains(r.key, c.NormalizedKey):
				strength = strengthCandidateInTitle
			case r.kind == c.Kind && strings.Contains(c.NormalizedKey, r.key):
				strength = strengthTitleInCandidate
			}
			if strength >= 0 {
				found = append(found, scoredMatch{recordID: r.id, strength: strength, order: r.order})
			}
		}
		if len(found) == 0 {
			continue
		}
		sort.SliceStable(found, func(i, j int) bool {
			if found[i].strength != found[j].strength {
				return found[i].strength < found[j].strength
			}
			return found[i].order < found[j].order
		})
		ids := make([]string, len(found))
		for i, f := range found {
			ids[i] = f.recordID
		}
		out[c.ID] = ids
	}
	return out
}
