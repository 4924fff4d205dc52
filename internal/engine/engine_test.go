package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lorehound/lorehound/internal/ai"
	"github.com/lorehound/lorehound/internal/detect"
	"github.com/lorehound/lorehound/internal/entity"
	"github.com/lorehound/lorehound/internal/match"
	"github.com/lorehound/lorehound/internal/session"
)

type fakeExtractor struct {
	extraction *ai.Extraction
	err        error
	calls      int
}

func (f *fakeExtractor) Extract(ctx context.Context, text string) (*ai.Extraction, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.extraction, nil
}

type fakeRecordStore struct {
	records   []NewRecord
	backlinks []Backlink
	createErr error
}

func (f *fakeRecordStore) CreateRecord(ctx context.Context, r NewRecord) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.records = append(f.records, r)
	return fmt.Sprintf("rec-%d", len(f.records)), nil
}

func (f *fakeRecordStore) CreateBacklink(ctx context.Context, b Backlink) error {
	f.backlinks = append(f.backlinks, b)
	return nil
}

var sessionBlocks = []entity.Block{
	{ID: "b1", Content: "Lord Blackwood entered the Silverwood Forest. They must find the artifact."},
}

func newSession(t *testing.T) *session.Store {
	t.Helper()
	s, err := session.Open(session.NewMemKV(), "team-1", time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("session.Open error: %v", err)
	}
	return s
}

func TestSuggestHeuristicOnly(t *testing.T) {
	e := New(detect.New())
	res, err := e.Suggest(context.Background(), sessionBlocks, nil, nil)
	if err != nil {
		t.Fatalf("Suggest error: %v", err)
	}
	if len(res.Candidates) != 3 {
		t.Fatalf("Expected 3 candidates, got %d", len(res.Candidates))
	}
	if res.AINotice != "" {
		t.Errorf("Expected no AI notice without an extractor, got %q", res.AINotice)
	}
	if len(res.Proximity) == 0 {
		t.Error("Expected proximity suggestions for co-occurring candidates")
	}
}

func TestSuggestMatchesRecords(t *testing.T) {
	e := New(detect.New())
	records := []match.RecordSummary{
		{ID: "r1", Title: "Lord Blackwood", Kind: entity.KindPerson},
	}
	res, err := e.Suggest(context.Background(), sessionBlocks, records, nil)
	if err != nil {
		t.Fatalf("Suggest error: %v", err)
	}

	blackwoodID := entity.CandidateID("lord blackwood", entity.KindPerson)
	if got := res.Matches[blackwoodID]; len(got) != 1 || got[0] != "r1" {
		t.Errorf("Expected match to r1, got %v", res.Matches)
	}
}

func TestSuggestMergesAIExtraction(t *testing.T) {
	x := &fakeExtractor{extraction: &ai.Extraction{
		Entities: []ai.Entity{
			{Name: "The Whispering Shadow", Type: "npc", Confidence: 0.9},
		},
		Relationships: []ai.Relationship{
			{Entity1: "Lord Blackwood", Entity2: "Silverwood Forest", Relationship: "traveled to", Confidence: 0.8},
		},
	}}
	e := New(detect.New(), WithExtractor(x))

	res, err := e.Suggest(context.Background(), sessionBlocks, nil, nil)
	if err != nil {
		t.Fatalf("Suggest error: %v", err)
	}
	if x.calls != 1 {
		t.Errorf("Expected one extractor call, got %d", x.calls)
	}
	if len(res.Candidates) != 4 {
		t.Fatalf("Expected 3 heuristic + 1 AI candidate, got %d", len(res.Candidates))
	}
	found := false
	for _, c := range res.Candidates {
		if c.NormalizedKey == "the whispering shadow" {
			found = true
		}
	}
	if !found {
		t.Error("Expected the AI-only candidate in the merged set")
	}
	if len(res.AIRelated) != 1 {
		t.Errorf("Expected 1 AI relationship, got %d", len(res.AIRelated))
	}
}

func TestSuggestAIOnlyCandidatesNoProximity(t *testing.T) {
	x := &fakeExtractor{extraction: &ai.Extraction{
		Entities: []ai.Entity{
			{Name: "The Whispering Shadow", Type: "npc", Confidence: 0.9},
			{Name: "Emberfall Citadel", Type: "location", Confidence: 0.85},
		},
	}}
	e := New(detect.New(), WithExtractor(x))

	res, err := e.Suggest(context.Background(), sessionBlocks, nil, nil)
	if err != nil {
		t.Fatalf("Suggest error: %v", err)
	}

	// The AI-only candidates never appear in the source text; proximity is
	// a claim about textual co-occurrence, so they must not pair with
	// anything — least of all each other.
	shadowID := entity.CandidateID("the whispering shadow", entity.KindPerson)
	citadelID := entity.CandidateID("emberfall citadel", entity.KindPlace)
	for _, s := range res.Proximity {
		for _, id := range []string{shadowID, citadelID} {
			if s.AnchorID == id || s.RelatedID == id {
				t.Errorf("AI-only candidate in proximity suggestion: %+v", s)
			}
		}
		if s.Excerpt == "" {
			t.Errorf("Suggestion without a source-text excerpt: %+v", s)
		}
	}
	if len(res.Proximity) == 0 {
		t.Error("Expected the heuristic candidates to still pair")
	}
}

func TestSuggestAIFailureDegrades(t *testing.T) {
	x := &fakeExtractor{err: errors.New("endpoint unreachable")}
	e := New(detect.New(), WithExtractor(x))

	res, err := e.Suggest(context.Background(), sessionBlocks, nil, nil)
	if err != nil {
		t.Fatalf("AI failure must not fail the pipeline: %v", err)
	}
	if len(res.Candidates) != 3 {
		t.Errorf("Expected heuristic candidates intact, got %d", len(res.Candidates))
	}
	if res.AINotice == "" {
		t.Error("Expected a dismissible AI notice")
	}
	if len(res.AIRelated) != 0 {
		t.Errorf("Expected no AI relationships on failure, got %v", res.AIRelated)
	}
}

func TestSuggestSessionFiltering(t *testing.T) {
	e := New(detect.New())
	sess := newSession(t)

	blackwoodID := entity.CandidateID("lord blackwood", entity.KindPerson)
	questID := entity.CandidateID("find the artifact", entity.KindQuest)
	forestID := entity.CandidateID("silverwood forest", entity.KindPlace)

	if err := sess.Dismiss(blackwoodID); err != nil {
		t.Fatalf("Dismiss error: %v", err)
	}
	if err := sess.MarkCreated(questID); err != nil {
		t.Fatalf("MarkCreated error: %v", err)
	}
	if err := sess.Reclassify(forestID, entity.KindQuest); err != nil {
		t.Fatalf("Reclassify error: %v", err)
	}

	res, err := e.Suggest(context.Background(), sessionBlocks, nil, sess)
	if err != nil {
		t.Fatalf("Suggest error: %v", err)
	}
	if len(res.Candidates) != 1 {
		t.Fatalf("Expected dismissed and created candidates hidden, got %+v", res.Candidates)
	}
	got := res.Candidates[0]
	if got.NormalizedKey != "silverwood forest" {
		t.Errorf("Expected the remaining candidate, got %q", got.NormalizedKey)
	}
	if got.Kind != entity.KindQuest {
		t.Errorf("Expected reclassified kind applied, got %q", got.Kind)
	}
}

func TestAccept(t *testing.T) {
	rs := &fakeRecordStore{}
	e := New(detect.New(), WithRecordCreator(rs))
	sess := newSession(t)

	c := entity.Candidate{
		ID:            entity.CandidateID("lord blackwood", entity.KindPerson),
		Kind:          entity.KindPerson,
		DisplayText:   "Lord Blackwood",
		NormalizedKey: "lord blackwood",
	}

	recordID, err := e.Accept(context.Background(), sess, c, []string{"r7"}, "Lord Blackwood entered")
	if err != nil {
		t.Fatalf("Accept error: %v", err)
	}
	if recordID != "rec-1" {
		t.Errorf("Expected rec-1, got %q", recordID)
	}
	if len(rs.records) != 1 || rs.records[0].Title != "Lord Blackwood" || rs.records[0].Kind != entity.KindPerson {
		t.Errorf("Unexpected record payload: %+v", rs.records)
	}
	if len(rs.backlinks) != 1 || rs.backlinks[0].TargetID != "r7" || rs.backlinks[0].SourceID != "rec-1" {
		t.Errorf("Unexpected backlinks: %+v", rs.backlinks)
	}
	if !sess.IsCreated(c.ID) {
		t.Error("Accept should mark the candidate created")
	}
}

func TestAcceptHonorsReclassification(t *testing.T) {
	rs := &fakeRecordStore{}
	e := New(detect.New(), WithRecordCreator(rs))
	sess := newSession(t)

	c := entity.Candidate{
		ID:          entity.CandidateID("shambles", entity.KindPerson),
		Kind:        entity.KindPerson,
		DisplayText: "Shambles",
	}
	if err := sess.Reclassify(c.ID, entity.KindPlace); err != nil {
		t.Fatalf("Reclassify error: %v", err)
	}

	if _, err := e.Accept(context.Background(), sess, c, nil, ""); err != nil {
		t.Fatalf("Accept error: %v", err)
	}
	if rs.records[0].Kind != entity.KindPlace {
		t.Errorf("Expected reclassified kind on the new record, got %q", rs.records[0].Kind)
	}
}

func TestAcceptErrors(t *testing.T) {
	e := New(detect.New())
	if _, err := e.Accept(context.Background(), nil, entity.Candidate{}, nil, ""); err == nil {
		t.Error("Expected error without a record store")
	}

	rs := &fakeRecordStore{createErr: errors.New("upstream down")}
	e = New(detect.New(), WithRecordCreator(rs))
	sess := newSession(t)
	c := entity.Candidate{ID: "c1", DisplayText: "Kira", Kind: entity.KindPerson}
	if _, err := e.Accept(context.Background(), sess, c, nil, ""); err == nil {
		t.Error("Expected error when record creation fails")
	}
	if sess.IsCreated("c1") {
		t.Error("Failed creation must not mark the candidate created")
	}
}
