// Package aimerge reconciles AI-extracted entities with the heuristic
// candidate set.
//
// AI candidates arrive in a different shape (free-form kind strings, numeric
// confidence, mention counts without offsets) and are normalized into the
// candidate model before the merge. The merge is idempotent and
// order-independent over the normalized-key set.
package aimerge

import (
	"github.com/lorehound/lorehound/internal/ai"
	"github.com/lorehound/lorehound/internal/entity"
)

// aiBlockID is the synthetic block for AI-sourced mentions, which lack
// precise offsets. It never names a source block, so synthesized mentions
// cannot contribute to proximity suggestions.
const aiBlockID = "ai"

// NormalizeAI converts collaborator entities to the candidate shape. The
// synthesized single mention spans the surface text at offset 0. Unrecognized
// kind strings collapse to the nearest supported kind.
func NormalizeAI(raw []ai.Entity) []entity.Candidate {
	out := make([]entity.Candidate, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, e := range raw {
		key := entity.Normalize(e.Name)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		// The reported mention count is advisory only: a single mention is
		// synthesized, and frequency must equal len(mentions).
		kind, _ := entity.KindFromString(e.Type)
		out = append(out, entity.Candidate{
			ID:            entity.CandidateID(key, kind),
			Kind:          kind,
			DisplayText:   e.Name,
			NormalizedKey: key,
			Confidence:    entity.ConfidenceFromScore(e.Confidence),
			Mentions: []entity.Mention{{
				BlockID: aiBlockID,
				Start:   0,
				End:     len(e.Name),
				Surface: e.Name,
			}},
			Frequency: 1,
		})
	}
	return out
}

// Merge unions the heuristic and AI candidate sets by normalized key.
//
// When both sources carry a key, the heuristic mention offsets are kept
// (needed for text highlighting) and confidence is upgraded to high when the
// AI source reports high confidence and the heuristic source did not.
// AI-only keys are admitted as new candidates. Result order follows the
// heuristic set, with AI-only additions appended in input order.
func Merge(heuristic, aiCands []entity.Candidate) []entity.Candidate {
	byKey := make(map[string]int, len(heuristic))
	out := make([]entity.Candidate, len(heuristic))
	copy(out, heuristic)
	for i, c := range out {
		byKey[c.NormalizedKey] = i
	}

	for _, a := range aiCands {
		i, ok := byKey[a.NormalizedKey]
		if !ok {
			byKey[a.NormalizedKey] = len(out)
			out = append(out, a)
			continue
		}
		// Confidence reconciliation is a max: an AI high upgrades a
		// heuristic medium/low, and the rule stays commutative.
		if a.Confidence > out[i].Confidence {
			out[i].Confidence = a.Confidence
		}
	}
	return out
}
