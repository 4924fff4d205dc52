// Package detect implements heuristic candidate-entity detection over
// free-text session notes.
//
// The detector applies ordered surface-pattern families per kind — honorific
// and multi-word names for people, article/landmark phrases for places,
// obligation and modal verb phrases for quests — then consolidates raw
// mentions by normalized key into one candidate per distinct surface form.
// It is rule-based by contract: confidence tiers come from which pattern
// family fired, never from a statistical model.
package detect

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lorehound/lorehound/internal/entity"
)

// MinInputLength is the threshold below which detection is skipped entirely.
// Fragments shorter than this carry no extractable signal.
const MinInputLength = 10

// ErrMalformedInput reports a contract violation by the caller (nil blocks,
// empty or duplicate block IDs). It is never shown to end users.
var ErrMalformedInput = errors.New("detect: malformed input")

// Detector runs the pattern families and consolidation rules.
type Detector struct {
	person   []*namePattern
	place    []*namePattern
	quest    []*namePattern
	stoplist map[string]struct{}
	minConf  confidenceTag
}

// Option configures a Detector.
type Option func(*Detector)

// WithStopwords adds extra words to the suppression stoplist.
func WithStopwords(words ...string) Option {
	return func(d *Detector) {
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				d.stoplist[w] = struct{}{}
			}
		}
	}
}

// WithMinConfidence drops candidates below the given tier.
func WithMinConfidence(c entity.Confidence) Option {
	return func(d *Detector) {
		d.minConf = confidenceTag(c)
	}
}

// New creates a Detector with all pattern families and the default stoplist.
func New(opts ...Option) *Detector {
	d := &Detector{
		person:   initPersonPatterns(),
		place:    initPlacePatterns(),
		quest:    initQuestPatterns(),
		stoplist: buildStoplist(nil),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// rawMention is a single pattern hit before consolidation.
type rawMention struct {
	blockID       string
	blockIndex    int
	start, end    int
	surface       string
	kind          kindTag
	confidence    confidenceTag
	specificity   int
	pattern       string
	sentenceStart bool
}

// DetectText runs detection on a single unstructured string. The synthetic
// block ID "text" is used for all mention offsets.
func (d *Detector) DetectText(text string) ([]entity.Candidate, error) {
	return d.Detect([]entity.Block{{ID: "text", Content: text}})
}

// Detect scans the given blocks and returns consolidated candidates sorted
// by descending frequency, then kind priority (quest > person > place).
//
// Each block is an independent offset space for mention recording, but
// entity identity merges across all blocks. Input whose total content is
// shorter than MinInputLength yields an empty result.
func (d *Detector) Detect(blocks []entity.Block) ([]entity.Candidate, error) {
	if blocks == nil {
		return nil, fmt.Errorf("%w: nil blocks", ErrMalformedInput)
	}
	seen := make(map[string]struct{}, len(blocks))
	total := 0
	for _, b := range blocks {
		if b.ID == "" {
			return nil, fmt.Errorf("%w: empty block id", ErrMalformedInput)
		}
		if _, dup := seen[b.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate block id %q", ErrMalformedInput, b.ID)
		}
		seen[b.ID] = struct{}{}
		total += len(strings.TrimSpace(b.Content))
	}
	if total < MinInputLength {
		return []entity.Candidate{}, nil
	}

	var raw []rawMention
	for i, b := range blocks {
		raw = append(raw, d.scanBlock(b, i)...)
	}

	raw = resolveOverlaps(raw)
	raw = d.filterSentenceStarts(raw)

	cands := d.consolidate(raw)
	entity.SortCandidates(cands)
	return cands, nil
}

// scanBlock runs every pattern family against one block.
func (d *Detector) scanBlock(b entity.Block, blockIndex int) []rawMention {
	var out []rawMention
	for _, fam := range [][]*namePattern{d.person, d.place, d.quest} {
		for _, p := range fam {
			out = append(out, matchPattern(p, b, blockIndex)...)
		}
	}
	return out
}

// matchPattern collects every hit of one pattern in one block, trimming
// leading articles from person/place surfaces so "The Silverwood Forest"
// and "Silverwood Forest" consolidate to one identity.
func matchPattern(p *namePattern, b entity.Block, blockIndex int) []rawMention {
	idxs := p.regex.FindAllStringSubmatchIndex(b.Content, -1)
	if idxs == nil {
		return nil
	}
	out := make([]rawMention, 0, len(idxs))
	for _, m := range idxs {
		gi := p.group * 2
		start, end := m[gi], m[gi+1]
		if start < 0 || end <= start {
			continue
		}
		surface := b.Content[start:end]
		name, conf, spec := p.name, p.confidence, p.specificity
		if p.kind != tagQuest {
			surface, start = trimLeadingArticle(surface, start)
			if surface == "" {
				continue
			}
			// "The Shambles" matched as a multi-word name trims down to a
			// single token; what remains is only bare-token evidence.
			if name == "multiword_name" && !strings.ContainsRune(surface, ' ') {
				name, conf, spec = "bare_name", confMedium, specificityBare
			}
		}
		out = append(out, rawMention{
			blockID:       b.ID,
			blockIndex:    blockIndex,
			start:         start,
			end:           start + len(surface),
			surface:       surface,
			kind:          p.kind,
			confidence:    conf,
			specificity:   spec,
			pattern:       name,
			sentenceStart: atSentenceStart(b.Content, start),
		})
	}
	return out
}

// trimLeadingArticle strips a leading "The "/"A "/"An " token, returning the
// adjusted surface and start offset.
func trimLeadingArticle(surface string, start int) (string, int) {
	sp := strings.IndexByte(surface, ' ')
	if sp <= 0 {
		return surface, start
	}
	if leadingArticles[strings.ToLower(surface[:sp])] {
		return surface[sp+1:], start + sp + 1
	}
	return surface, start
}

// atSentenceStart reports whether offset sits at the beginning of the block
// or immediately after sentence-ending punctuation.
func atSentenceStart(content string, offset int) bool {
	i := offset - 1
	for i >= 0 && (content[i] == ' ' || content[i] == '\t') {
		i--
	}
	if i < 0 {
		return true
	}
	switch content[i] {
	case '.', '!', '?', '\n', '"':
		return true
	}
	return false
}

// resolveOverlaps keeps, per kind, the longest match for each overlapping
// span within a block; shorter sub-matches are discarded. Equal-length
// overlaps are won by the more specific pattern. Overlaps across kinds are
// kept: the same span matched as two kinds is a kind collision, resolved
// during consolidation.
func resolveOverlaps(raw []rawMention) []rawMention {
	byKind := make(map[kindTag][]rawMention)
	for _, m := range raw {
		byKind[m.kind] = append(byKind[m.kind], m)
	}
	var out []rawMention
	for _, k := range []kindTag{tagPerson, tagPlace, tagQuest} {
		out = append(out, resolveKindOverlaps(byKind[k])...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].blockIndex != out[j].blockIndex {
			return out[i].blockIndex < out[j].blockIndex
		}
		return out[i].start < out[j].start
	})
	return out
}

func resolveKindOverlaps(raw []rawMention) []rawMention {
	sort.SliceStable(raw, func(i, j int) bool {
		if raw[i].blockIndex != raw[j].blockIndex {
			return raw[i].blockIndex < raw[j].blockIndex
		}
		li, lj := raw[i].end-raw[i].start, raw[j].end-raw[j].start
		if li != lj {
			return li > lj
		}
		if raw[i].specificity != raw[j].specificity {
			return raw[i].specificity > raw[j].specificity
		}
		return raw[i].start < raw[j].start
	})

	kept := make([]rawMention, 0, len(raw))
	for _, m := range raw {
		overlapped := false
		for _, k := range kept {
			if k.blockIndex == m.blockIndex && m.start < k.end && k.start < m.end {
				overlapped = true
				break
			}
		}
		if !overlapped {
			kept = append(kept, m)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].blockIndex != kept[j].blockIndex {
			return kept[i].blockIndex < kept[j].blockIndex
		}
		return kept[i].start < kept[j].start
	})
	return kept
}

// filterSentenceStarts drops bare single-token matches at sentence starts
// unless the same normalized key also appears mid-sentence somewhere in the
// input. Sentence capitalization alone is not evidence of a name.
func (d *Detector) filterSentenceStarts(raw []rawMention) []rawMention {
	proven := make(map[string]bool)
	for _, m := range raw {
		if m.pattern != "bare_name" || !m.sentenceStart {
			proven[entity.Normalize(m.surface)] = true
		}
	}
	out := raw[:0]
	for _, m := range raw {
		if m.pattern == "bare_name" && m.sentenceStart && !proven[entity.Normalize(m.surface)] {
			continue
		}
		out = append(out, m)
	}
	return out
}

// keyGroup accumulates mentions for one normalized key during consolidation.
type keyGroup struct {
	mentions     []rawMention
	kindCount    map[kindTag]int
	kindSpec     map[kindTag]int
	surfaceCount map[string]int
	firstSurface string
}

// consolidate groups raw mentions by normalized key and emits one candidate
// per key. Kind collisions prefer the kind with more supporting mentions,
// tie-broken by pattern specificity.
func (d *Detector) consolidate(raw []rawMention) []entity.Candidate {
	groups := make(map[string]*keyGroup)
	var order []string

	for _, m := range raw {
		key := entity.Normalize(m.surface)
		if key == "" {
			continue
		}
		if _, stopped := d.stoplist[key]; stopped {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &keyGroup{
				kindCount:    make(map[kindTag]int),
				kindSpec:     make(map[kindTag]int),
				surfaceCount: make(map[string]int),
				firstSurface: m.surface,
			}
			groups[key] = g
			order = append(order, key)
		}
		g.mentions = append(g.mentions, m)
		g.kindCount[m.kind]++
		if m.specificity > g.kindSpec[m.kind] {
			g.kindSpec[m.kind] = m.specificity
		}
		g.surfaceCount[m.surface]++
	}

	cands := make([]entity.Candidate, 0, len(groups))
	for _, key := range order {
		g := groups[key]
		kind := g.winningKind()
		conf := confLow
		for _, m := range g.mentions {
			if m.kind == kind && m.confidence > conf {
				conf = m.confidence
			}
		}
		if conf < d.minConf {
			continue
		}

		// The same span may have been matched once per kind; a candidate
		// records each text occurrence exactly once.
		type span struct {
			blockID    string
			start, end int
		}
		seen := make(map[span]struct{}, len(g.mentions))
		mentions := make([]entity.Mention, 0, len(g.mentions))
		for _, m := range g.mentions {
			s := span{m.blockID, m.start, m.end}
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			mentions = append(mentions, entity.Mention{
				BlockID: m.blockID,
				Start:   m.start,
				End:     m.end,
				Surface: m.surface,
			})
		}

		ek := exportKind(kind)
		cands = append(cands, entity.Candidate{
			ID:            entity.CandidateID(key, ek),
			Kind:          ek,
			DisplayText:   g.displayText(),
			NormalizedKey: key,
			Confidence:    entity.Confidence(conf),
			Mentions:      mentions,
			Frequency:     len(mentions),
		})
	}
	return cands
}

// winningKind picks the kind with the most supporting mentions, tie-broken
// by pattern specificity.
func (g *keyGroup) winningKind() kindTag {
	best := tagPerson
	bestCount, bestSpec := -1, -1
	for _, k := range []kindTag{tagQuest, tagPerson, tagPlace} {
		c, ok := g.kindCount[k]
		if !ok {
			continue
		}
		if c > bestCount || (c == bestCount && g.kindSpec[k] > bestSpec) {
			best, bestCount, bestSpec = k, c, g.kindSpec[k]
		}
	}
	return best
}

// displayText returns the most frequent surface form, first-seen on ties.
func (g *keyGroup) displayText() string {
	best, bestCount := g.firstSurface, 0
	for _, m := range g.mentions {
		if c := g.surfaceCount[m.surface]; c > bestCount {
			best, bestCount = m.surface, c
		}
	}
	return best
}

func exportKind(k kindTag) entity.Kind {
	switch k {
	case tagPlace:
		return entity.KindPlace
	case tagQuest:
		return entity.KindQuest
	default:
		return entity.KindPerson
	}
}
