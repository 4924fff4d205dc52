package detect

import (
	"errors"
	"reflect"
	"testing"

	"github.com/lorehound/lorehound/internal/entity"
)

func detectOne(t *testing.T, d *Detector, text string) []entity.Candidate {
	t.Helper()
	cands, err := d.DetectText(text)
	if err != nil {
		t.Fatalf("DetectText(%q) error: %v", text, err)
	}
	return cands
}

func findCandidate(cands []entity.Candidate, key string) (entity.Candidate, bool) {
	for _, c := range cands {
		if c.NormalizedKey == key {
			return c, true
		}
	}
	return entity.Candidate{}, false
}

func TestDetectSessionLine(t *testing.T) {
	d := New()
	cands := detectOne(t, d, "Lord Blackwood entered the Silverwood Forest. They must find the artifact.")

	if len(cands) != 3 {
		t.Fatalf("Expected 3 candidates, got %d: %+v", len(cands), cands)
	}

	// Equal frequency, so kind priority orders quest > person > place.
	expected := []struct {
		kind       entity.Kind
		display    string
		confidence entity.Confidence
	}{
		{entity.KindQuest, "find the artifact", entity.ConfidenceHigh},
		{entity.KindPerson, "Lord Blackwood", entity.ConfidenceHigh},
		{entity.KindPlace, "Silverwood Forest", entity.ConfidenceHigh},
	}
	for i, want := range expected {
		got := cands[i]
		if got.Kind != want.kind {
			t.Errorf("candidate %d: expected kind %q, got %q", i, want.kind, got.Kind)
		}
		if got.DisplayText != want.display {
			t.Errorf("candidate %d: expected display %q, got %q", i, want.display, got.DisplayText)
		}
		if got.Confidence != want.confidence {
			t.Errorf("candidate %d: expected confidence %v, got %v", i, want.confidence, got.Confidence)
		}
		if got.ID != entity.CandidateID(got.NormalizedKey, got.Kind) {
			t.Errorf("candidate %d: ID %q not derived from key %q and kind %q", i, got.ID, got.NormalizedKey, got.Kind)
		}
	}
}

func TestDetectShortInput(t *testing.T) {
	d := New()
	for _, text := range []string{"", "Hi.", "Kira bye"} {
		cands, err := d.DetectText(text)
		if err != nil {
			t.Fatalf("DetectText(%q) error: %v", text, err)
		}
		if len(cands) != 0 {
			t.Errorf("DetectText(%q): expected no candidates, got %d", text, len(cands))
		}
		if cands == nil {
			t.Errorf("DetectText(%q): expected empty slice, got nil", text)
		}
	}
}

func TestDetectMalformedInput(t *testing.T) {
	d := New()
	cases := []struct {
		name   string
		blocks []entity.Block
	}{
		{"nil blocks", nil},
		{"empty block id", []entity.Block{{ID: "", Content: "Lord Blackwood arrived."}}},
		{"duplicate block ids", []entity.Block{
			{ID: "b1", Content: "Lord Blackwood arrived."},
			{ID: "b1", Content: "Lady Vane left."},
		}},
	}
	for _, tc := range cases {
		_, err := d.Detect(tc.blocks)
		if !errors.Is(err, ErrMalformedInput) {
			t.Errorf("%s: expected ErrMalformedInput, got %v", tc.name, err)
		}
	}
}

func TestDetectFrequencyMatchesMentions(t *testing.T) {
	d := New()
	cands := detectOne(t, d, "We toasted Kira at dinner. Later we saw Kira near the Silverwood Forest. They must find the artifact.")

	if len(cands) == 0 {
		t.Fatal("Expected candidates from multi-sentence input")
	}
	for _, c := range cands {
		if c.Frequency != len(c.Mentions) {
			t.Errorf("candidate %q: frequency %d != %d mentions", c.NormalizedKey, c.Frequency, len(c.Mentions))
		}
		if c.Frequency < 1 {
			t.Errorf("candidate %q: frequency %d < 1", c.NormalizedKey, c.Frequency)
		}
	}

	kira, ok := findCandidate(cands, "kira")
	if !ok {
		t.Fatal("Expected candidate for key \"kira\"")
	}
	if kira.Frequency != 2 {
		t.Errorf("kira: expected frequency 2, got %d", kira.Frequency)
	}
	if kira.Kind != entity.KindPerson {
		t.Errorf("kira: expected kind person, got %q", kira.Kind)
	}
}

func TestDetectDeterministic(t *testing.T) {
	d := New()
	text := "Captain Mira Vane led us to the Ironhold Keep. We need to recover the stolen ledger before dawn."

	first := detectOne(t, d, text)
	second := detectOne(t, d, text)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Detection not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestDetectMultiBlockMerge(t *testing.T) {
	d := New()
	blocks := []entity.Block{
		{ID: "b1", Content: "Kira spoke with Mira Vane."},
		{ID: "b2", Content: "She nodded at Kira again."},
	}
	cands, err := d.Detect(blocks)
	if err != nil {
		t.Fatalf("Detect error: %v", err)
	}

	kira, ok := findCandidate(cands, "kira")
	if !ok {
		t.Fatalf("Expected merged candidate for key \"kira\", got %+v", cands)
	}
	if kira.Frequency != 2 {
		t.Fatalf("kira: expected frequency 2 across blocks, got %d", kira.Frequency)
	}
	// Offsets stay block-relative.
	wantMentions := []entity.Mention{
		{BlockID: "b1", Start: 0, End: 4, Surface: "Kira"},
		{BlockID: "b2", Start: 14, End: 18, Surface: "Kira"},
	}
	if !reflect.DeepEqual(kira.Mentions, wantMentions) {
		t.Errorf("kira mentions: expected %+v, got %+v", wantMentions, kira.Mentions)
	}

	if _, ok := findCandidate(cands, "mira vane"); !ok {
		t.Error("Expected candidate for key \"mira vane\"")
	}
}

func TestDetectSentenceStartSuppression(t *testing.T) {
	d := New()

	// A capitalized sentence opener with no mid-sentence support is not a
	// name.
	cands := detectOne(t, d, "Torchlight flickered and went out. Darkness pressed in.")
	if len(cands) != 0 {
		t.Errorf("Expected no candidates, got %+v", cands)
	}

	// A mid-sentence occurrence proves the key and rescues the opener.
	cands = detectOne(t, d, "Varric grinned. A grin from Varric meant trouble.")
	varric, ok := findCandidate(cands, "varric")
	if !ok {
		t.Fatalf("Expected candidate for key \"varric\", got %+v", cands)
	}
	if varric.Frequency != 2 {
		t.Errorf("varric: expected both occurrences counted, got %d", varric.Frequency)
	}
}

func TestDetectStoplist(t *testing.T) {
	text := "We rested. Meanwhile, Ravencrest watched from the hills, and Ravencrest waited."

	d := New()
	if _, ok := findCandidate(detectOne(t, d, text), "ravencrest"); !ok {
		t.Fatal("Expected candidate for key \"ravencrest\" without extra stopwords")
	}
	if _, ok := findCandidate(detectOne(t, d, text), "meanwhile"); ok {
		t.Error("Default stoplist should suppress \"meanwhile\"")
	}

	d = New(WithStopwords("Ravencrest"))
	if _, ok := findCandidate(detectOne(t, d, text), "ravencrest"); ok {
		t.Error("WithStopwords should suppress \"ravencrest\"")
	}
}

func TestDetectOverlapLongestWins(t *testing.T) {
	d := New()
	cands := detectOne(t, d, "They visited the Ironhold Keep together.")

	keep, ok := findCandidate(cands, "ironhold keep")
	if !ok {
		t.Fatalf("Expected candidate for key \"ironhold keep\", got %+v", cands)
	}
	if keep.Kind != entity.KindPlace {
		t.Errorf("ironhold keep: expected kind place, got %q", keep.Kind)
	}
	if keep.Confidence != entity.ConfidenceHigh {
		t.Errorf("ironhold keep: expected high confidence, got %v", keep.Confidence)
	}
	for _, sub := range []string{"ironhold", "keep"} {
		if _, ok := findCandidate(cands, sub); ok {
			t.Errorf("Sub-span %q should have been absorbed by the longer match", sub)
		}
	}
}

func TestDetectKindCollision(t *testing.T) {
	d := New()

	// Three person-pattern hits against one place-pattern hit: mention
	// count wins.
	cands := detectOne(t, d, "Kira laughed. We toasted Kira at dinner. We entered the Kira.")
	kira, ok := findCandidate(cands, "kira")
	if !ok {
		t.Fatalf("Expected candidate for key \"kira\", got %+v", cands)
	}
	if kira.Kind != entity.KindPerson {
		t.Errorf("kira: expected kind person, got %q", kira.Kind)
	}
	if kira.Frequency != 3 {
		t.Errorf("kira: expected frequency 3, got %d", kira.Frequency)
	}

	// One hit each: the article is place evidence and breaks the tie.
	cands = detectOne(t, d, "The Shambles sprawled below us.")
	shambles, ok := findCandidate(cands, "shambles")
	if !ok {
		t.Fatalf("Expected candidate for key \"shambles\", got %+v", cands)
	}
	if shambles.Kind != entity.KindPlace {
		t.Errorf("shambles: expected kind place, got %q", shambles.Kind)
	}
}

func TestDetectLeadingArticleIdentity(t *testing.T) {
	d := New()
	cands := detectOne(t, d, "We camped in Silverwood Forest. The Silverwood Forest loomed.")

	forest, ok := findCandidate(cands, "silverwood forest")
	if !ok {
		t.Fatalf("Expected candidate for key \"silverwood forest\", got %+v", cands)
	}
	if forest.Frequency != 2 {
		t.Errorf("silverwood forest: expected both article forms merged, got frequency %d", forest.Frequency)
	}
	if forest.Kind != entity.KindPlace {
		t.Errorf("silverwood forest: expected kind place, got %q", forest.Kind)
	}
	for _, m := range forest.Mentions {
		if m.Surface != "Silverwood Forest" {
			t.Errorf("Expected article-trimmed surface, got %q", m.Surface)
		}
	}
}

func TestDetectMinConfidence(t *testing.T) {
	text := "We toasted Kira at dinner near the Silverwood Forest."

	d := New()
	cands := detectOne(t, d, text)
	if _, ok := findCandidate(cands, "kira"); !ok {
		t.Fatal("Expected medium-confidence candidate without a floor")
	}

	d = New(WithMinConfidence(entity.ConfidenceHigh))
	cands = detectOne(t, d, text)
	if _, ok := findCandidate(cands, "kira"); ok {
		t.Error("High floor should drop the medium-confidence candidate")
	}
	if _, ok := findCandidate(cands, "silverwood forest"); !ok {
		t.Error("High floor should keep the high-confidence candidate")
	}
}

func TestDetectQuestClauses(t *testing.T) {
	d := New()
	cases := []struct {
		text string
		key  string
	}{
		{"The party was tasked with guarding the northern gate.", "guarding the northern gate"},
		{"She asked the party to deliver a sealed letter.", "deliver a sealed letter"},
		{"We need to recover the stolen ledger.", "recover the stolen ledger"},
	}
	for _, tc := range cases {
		cands := detectOne(t, d, tc.text)
		got, ok := findCandidate(cands, tc.key)
		if !ok {
			t.Errorf("DetectText(%q): expected quest key %q, got %+v", tc.text, tc.key, cands)
			continue
		}
		if got.Kind != entity.KindQuest {
			t.Errorf("DetectText(%q): expected kind quest, got %q", tc.text, got.Kind)
		}
	}
}
