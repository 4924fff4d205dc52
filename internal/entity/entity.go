// Package entity defines the core candidate-entity model shared by the
// detection pipeline: kinds, confidence tiers, mentions, and the
// deterministic identity rules that keep repeated detection passes stable.
package entity

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a candidate entity.
type Kind string

const (
	KindPerson Kind = "person"
	KindPlace  Kind = "place"
	KindQuest  Kind = "quest"
)

// kindAliases maps external (AI-supplied) type strings to supported kinds.
// Unrecognized strings fall back to KindPerson — names are the most common
// thing upstream extractors emit.
var kindAliases = map[string]Kind{
	"person":    KindPerson,
	"npc":       KindPerson,
	"character": KindPerson,
	"pc":        KindPerson,
	"creature":  KindPerson,
	"place":     KindPlace,
	"location":  KindPlace,
	"region":    KindPlace,
	"city":      KindPlace,
	"town":      KindPlace,
	"landmark":  KindPlace,
	"site":      KindPlace,
	"quest":     KindQuest,
	"task":      KindQuest,
	"mission":   KindQuest,
	"objective": KindQuest,
	"goal":      KindQuest,
	"plot":      KindQuest,
}

// KindFromString maps a free-form kind string to the nearest supported kind.
// The bool reports whether the string was recognized.
func KindFromString(s string) (Kind, bool) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return KindPerson, false
	}
	return k, true
}

// IsValid reports whether k is one of the supported kinds.
func (k Kind) IsValid() bool {
	return k == KindPerson || k == KindPlace || k == KindQuest
}

// Priority orders kinds for display: quests first, then people, then places.
func (k Kind) Priority() int {
	switch k {
	case KindQuest:
		return 3
	case KindPerson:
		return 2
	case KindPlace:
		return 1
	}
	return 0
}

// Confidence is an ordinal quality tier, not a calibrated probability.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

// String returns the wire form of the confidence tier.
func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	default:
		return "low"
	}
}

// ParseConfidence parses a wire-form confidence string.
func ParseConfidence(s string) (Confidence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return ConfidenceHigh, nil
	case "medium":
		return ConfidenceMedium, nil
	case "low":
		return ConfidenceLow, nil
	}
	return ConfidenceLow, fmt.Errorf("unknown confidence %q", s)
}

// MarshalJSON encodes the confidence as its wire string ("high", "medium", "low").
func (c Confidence) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// UnmarshalJSON decodes a wire-form confidence string.
func (c *Confidence) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseConfidence(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ConfidenceFromScore converts a numeric 0–1 score (AI collaborator shape)
// to an ordinal tier.
func ConfidenceFromScore(score float64) Confidence {
	switch {
	case score >= 0.8:
		return ConfidenceHigh
	case score >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Block is one unit of session-note content with its own offset space.
type Block struct {
	ID      string
	Content string
}

// Mention records a single occurrence of a candidate within a block.
// Offsets are byte offsets into the block's content.
type Mention struct {
	BlockID string `json:"block_id"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Surface string `json:"surface"`
}

// Candidate is a detected mention cluster proposed as a potential record.
// Candidates are recomputed fresh on every detection pass and never persisted.
type Candidate struct {
	ID            string     `json:"id"`
	Kind          Kind       `json:"kind"`
	DisplayText   string     `json:"display_text"`
	NormalizedKey string     `json:"normalized_key"`
	Confidence    Confidence `json:"confidence"`
	Mentions      []Mention  `json:"mentions"`
	Frequency     int        `json:"frequency"`
}

// Normalize lower-cases s and collapses runs of whitespace to single spaces.
// This is the canonical key form for deduplication and cross-run identity.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// CandidateID derives a stable identifier from the normalized key and kind,
// so repeated detections on the same content produce the same id.
func CandidateID(normalizedKey string, kind Kind) string {
	h := sha256.New()
	h.Write([]byte(normalizedKey))
	h.Write([]byte{0}) // separator
	h.Write([]byte(kind))
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}

// SortCandidates orders candidates by descending frequency, then by kind
// priority (quest > person > place), then by normalized key for determinism.
func SortCandidates(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Frequency != cands[j].Frequency {
			return cands[i].Frequency > cands[j].Frequency
		}
		if pi, pj := cands[i].Kind.Priority(), cands[j].Kind.Priority(); pi != pj {
			return pi > pj
		}
		return cands[i].NormalizedKey < cands[j].NormalizedKey
	})
}
