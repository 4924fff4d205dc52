package match

import (
	"reflect"
	"testing"

	"github.com/lorehound/lorehound/internal/entity"
)

func candidate(key string, kind entity.Kind) entity.Candidate {
	return entity.Candidate{
		ID:            entity.CandidateID(key, kind),
		Kind:          kind,
		DisplayText:   key,
		NormalizedKey: key,
		Frequency:     1,
	}
}

func TestMatchExact(t *testing.T) {
	c := candidate("mira vane", entity.KindPerson)
	records := []RecordSummary{
		{ID: "r1", Title: "Mira Vane", Kind: entity.KindPerson},
		{ID: "r2", Title: "Silverwood Forest", Kind: entity.KindPlace},
	}

	got := Match([]entity.Candidate{c}, records)
	want := map[string][]string{c.ID: {"r1"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Match: expected %v, got %v", want, got)
	}
}

func TestMatchNormalizesTitles(t *testing.T) {
	c := candidate("mira vane", entity.KindPerson)
	records := []RecordSummary{
		{ID: "r1", Title: "  MIRA   Vane ", Kind: entity.KindPerson},
	}

	got := Match([]entity.Candidate{c}, records)
	if !reflect.DeepEqual(got[c.ID], []string{"r1"}) {
		t.Errorf("Expected whitespace/case-folded title to match, got %v", got)
	}
}

func TestMatchContainment(t *testing.T) {
	cases := []struct {
		name   string
		key    string
		kind   entity.Kind
		title  string
		rkind  entity.Kind
		expect bool
	}{
		{"candidate in title", "blackwood", entity.KindPerson, "Lord Blackwood the Elder", entity.KindPerson, true},
		{"title in candidate", "lord blackwood", entity.KindPerson, "Blackwood", entity.KindPerson, true},
		{"cross-kind containment excluded", "blackwood", entity.KindPerson, "Blackwood Keep", entity.KindPlace, false},
		{"cross-kind exact still reported", "blackwood", entity.KindPerson, "Blackwood", entity.KindPlace, true},
		{"no relation", "mira vane", entity.KindPerson, "Silverwood Forest", entity.KindPlace, false},
	}
	for _, tc := range cases {
		c := candidate(tc.key, tc.kind)
		got := Match([]entity.Candidate{c}, []RecordSummary{{ID: "r1", Title: tc.title, Kind: tc.rkind}})
		_, matched := got[c.ID]
		if matched != tc.expect {
			t.Errorf("%s: expected matched=%v, got %v", tc.name, tc.expect, got)
		}
	}
}

func TestMatchStrengthOrdering(t *testing.T) {
	c := candidate("blackwood", entity.KindPerson)
	records := []RecordSummary{
		{ID: "weak", Title: "Lord Blackwood the Elder", Kind: entity.KindPerson},
		{ID: "exact", Title: "Blackwood", Kind: entity.KindPerson},
	}

	got := Match([]entity.Candidate{c}, records)
	want := []string{"exact", "weak"}
	if !reflect.DeepEqual(got[c.ID], want) {
		t.Errorf("Expected exact match first, got %v", got[c.ID])
	}
}

func TestMatchUnmatchedAbsent(t *testing.T) {
	c := candidate("kira", entity.KindPerson)
	got := Match([]entity.Candidate{c}, []RecordSummary{
		{ID: "r1", Title: "Silverwood Forest", Kind: entity.KindPlace},
	})
	if _, ok := got[c.ID]; ok {
		t.Errorf("Unmatched candidate should be absent from the map, got %v", got)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty map, got %v", got)
	}
}

func TestMatchSkipsBlankTitles(t *testing.T) {
	c := candidate("kira", entity.KindPerson)
	got := Match([]entity.Candidate{c}, []RecordSummary{
		{ID: "r1", Title: "   ", Kind: entity.KindPerson},
		{ID: "r2", Title: "Kira", Kind: entity.KindPerson},
	})
	if !reflect.DeepEqual(got[c.ID], []string{"r2"}) {
		t.Errorf("Blank titles should be skipped, got %v", got)
	}
}
