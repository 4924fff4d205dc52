// Package proximity infers likely relationships between detected candidates
// from how closely their mentions co-occur in the source text.
//
// For every unordered pair of candidates that share at least one block, the
// suggester computes the minimum character distance between any mention pair
// within that block and converts it to a confidence tier via fixed
// thresholds. Cross-block pairs are excluded. The all-pairs comparison is
// quadratic in candidate count per block — acceptable at tens of candidates
// per session.
package proximity

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lorehound/lorehound/internal/entity"
)

// Distance thresholds in characters between nearest mention spans.
const (
	// HighDistance is roughly one short clause.
	HighDistance = 80
	// MediumDistance is roughly one paragraph.
	MediumDistance = 300
)

// MaxExcerptLen clips context excerpts for human review.
const MaxExcerptLen = 160

// Suggestion is a co-occurrence hypothesis between two candidates. Pairs are
// symmetric: a suggestion is retrievable from either candidate as anchor.
type Suggestion struct {
	AnchorID   string            `json:"anchor_id"`
	RelatedID  string            `json:"related_id"`
	Distance   int               `json:"distance"`
	Confidence entity.Confidence `json:"confidence"`
	Excerpt    string            `json:"excerpt"`
}

// Suggest computes deduplicated proximity suggestions for all candidate
// pairs across the given blocks. Only mentions inside the given blocks are
// compared: a suggestion asserts co-occurrence in the source text, so
// mentions synthesized elsewhere (AI-sourced candidates carry one) never
// fabricate a pair. Results are ordered by ascending distance, then by
// anchor/related IDs for determinism.
func Suggest(candidates []entity.Candidate, blocks []entity.Block) []Suggestion {
	if len(candidates) < 2 {
		return nil
	}
	content := make(map[string]string, len(blocks))
	for _, b := range blocks {
		content[b.ID] = b.Content
	}

	var out []Suggestion
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if s, ok := closestPair(candidates[i], candidates[j], content); ok {
				out = append(out, s)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		if out[i].AnchorID != out[j].AnchorID {
			return out[i].AnchorID < out[j].AnchorID
		}
		return out[i].RelatedID < out[j].RelatedID
	})
	return out
}

// ForCandidate returns every suggestion involving id, rewritten so id is the
// anchor. Confidence and excerpt are preserved across the flip.
func ForCandidate(suggestions []Suggestion, id string) []Suggestion {
	var out []Suggestion
	for _, s := range suggestions {
		switch id {
		case s.AnchorID:
			out = append(out, s)
		case s.RelatedID:
			out = append(out, Suggestion{
				AnchorID:   s.RelatedID,
				RelatedID:  s.AnchorID,
				Distance:   s.Distance,
				Confidence: s.Confidence,
				Excerpt:    s.Excerpt,
			})
		}
	}
	return out
}

// closestPair finds the nearest same-block mention pair between a and b.
// Candidate IDs are canonically ordered in the result so A–B and B–A
// collapse to one record.
func closestPair(a, b entity.Candidate, content map[string]string) (Suggestion, bool) {
	bestDist := -1
	var bestA, bestB entity.Mention

	for _, ma := range a.Mentions {
		if _, known := content[ma.BlockID]; !known {
			continue
		}
		for _, mb := range b.Mentions {
			if ma.BlockID != mb.BlockID {
				continue
			}
			d := spanDistance(ma, mb)
			if bestDist < 0 || d < bestDist {
				bestDist = d
				bestA, bestB = ma, mb
			}
		}
	}
	if bestDist < 0 {
		return Suggestion{}, false
	}

	s := Suggestion{
		AnchorID:   a.ID,
		RelatedID:  b.ID,
		Distance:   bestDist,
		Confidence: tier(bestDist),
		Excerpt:    excerpt(content[bestA.BlockID], bestA, bestB),
	}
	if s.RelatedID < s.AnchorID {
		s.AnchorID, s.RelatedID = s.RelatedID, s.AnchorID
	}
	return s, true
}

// spanDistance is the character gap between two mention spans; overlapping
// spans have distance zero.
func spanDistance(a, b entity.Mention) int {
	if a.Start > b.Start {
		a, b = b, a
	}
	d := b.Start - a.End
	if d < 0 {
		return 0
	}
	return d
}

// tier converts a same-block distance to a confidence tier.
func tier(distance int) entity.Confidence {
	switch {
	case distance <= HighDistance:
		return entity.ConfidenceHigh
	case distance <= MediumDistance:
		return entity.ConfidenceMedium
	default:
		return entity.ConfidenceLow
	}
}

// excerpt returns the text spanning from the earlier mention's start to the
// later mention's end, clipped to MaxExcerptLen with ellipsis.
func excerpt(content string, a, b entity.Mention) string {
	if content == "" {
		return ""
	}
	start, end := a.Start, b.End
	if b.Start < a.Start {
		start = b.Start
	}
	if a.End > b.End {
		end = a.End
	}
	if start < 0 {
		start = 0
	}
	if end > len(content) {
		end = len(content)
	}
	if start >= end {
		return ""
	}
	text := content[start:end]
	if len(text) > MaxExcerptLen {
		// Back the cut off to a rune boundary so the clip never splits a
		// multi-byte character.
		cut := MaxExcerptLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = strings.TrimSpace(text[:cut]) + "…"
	}
	return text
}
