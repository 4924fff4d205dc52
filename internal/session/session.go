// Package session tracks a reviewer's per-(team, calendar-day) decisions
// over suggested candidates: dismissed, reclassified, and already turned
// into records.
//
// State is durable across reloads, keyed so it never leaks across teams or
// across days, and expires after a retention window. Corrupt or
// version-mismatched persisted state resets to empty rather than erroring —
// losing review decisions is recoverable, crashing the review surface is not.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/lorehound/lorehound/internal/entity"
)

const (
	// SchemaVersion tags the persisted shape; any mismatch invalidates the
	// whole record (fail safe to empty, never partial-parse).
	SchemaVersion = 1

	// RetentionDays is the sweep window for stale session keys.
	RetentionDays = 7

	keyPrefix = "suggestions:"
	dayFormat = "2006-01-02"
)

// persistedState is the on-disk shape under suggestions:{team}:{YYYY-MM-DD}.
type persistedState struct {
	Version      int         `json:"version"`
	Dismissed    []string    `json:"dismissed"`
	Reclassified [][2]string `json:"reclassified"`
	Created      []string    `json:"created"`
	Timestamp    int64       `json:"timestamp"`
}

// Store is the decision log for one (teamID, sessionDate) scope. It is not
// safe for concurrent use: mutations happen only on the interactive path in
// response to explicit user actions.
type Store struct {
	kv     KV
	teamID string
	day    string
	now    func() time.Time

	dismissed    map[string]struct{}
	reclassified map[string]entity.Kind
	created      map[string]struct{}
}

// Key returns the persistence key for a team and day.
func Key(teamID string, day time.Time) string {
	return keyPrefix + teamID + ":" + day.Format(dayFormat)
}

// Open loads (or initializes) the store for the given team and session date,
// then sweeps that team's expired keys. Unreadable or version-mismatched
// persisted state resets to empty; Open never fails on corrupt data.
func Open(kv KV, teamID string, day time.Time) (*Store, error) {
	if teamID == "" {
		return nil, fmt.Errorf("session: empty team id")
	}
	s := &Store{
		kv:           kv,
		teamID:       teamID,
		day:          day.Format(dayFormat),
		now:          time.Now,
		dismissed:    make(map[string]struct{}),
		reclassified: make(map[string]entity.Kind),
		created:      make(map[string]struct{}),
	}
	s.load()
	if err := s.sweep(day); err != nil {
		return nil, err
	}
	return s, nil
}

// load restores state from the KV, resetting to empty on any failure.
func (s *Store) load() {
	raw, ok, err := s.kv.Get(s.key())
	if err != nil || !ok {
		return
	}
	var st persistedState
	if jsonErr := json.Unmarshal(raw, &st); jsonErr != nil || st.Version != SchemaVersion {
		fmt.Fprintf(os.Stderr, "Warning: resetting corrupt session state for %s\n", s.key())
		return
	}
	for _, id := range st.Dismissed {
		s.dismissed[id] = struct{}{}
	}
	for _, id := range st.Created {
		s.created[id] = struct{}{}
	}
	for _, pair := range st.Reclassified {
		if kind := entity.Kind(pair[1]); kind.IsValid() {
			s.reclassified[pair[0]] = kind
		}
	}
}

func (s *Store) key() string {
	return keyPrefix + s.teamID + ":" + s.day
}

// Dismiss records that the reviewer rejected a candidate. Dismissing a
// candidate that already produced a record is a no-op: created is permanent.
func (s *Store) Dismiss(id string) error {
	if _, done := s.created[id]; done {
		return nil
	}
	s.dismissed[id] = struct{}{}
	return s.persist()
}

// Reclassify records a kind override for a candidate; last write wins.
func (s *Store) Reclassify(id string, kind entity.Kind) error {
	if !kind.IsValid() {
		return fmt.Errorf("session: invalid kind %q", kind)
	}
	s.reclassified[id] = kind
	return s.persist()
}

// MarkCreated records that a candidate produced a record. The candidate is
// permanently filtered from future views of this session; a prior dismissal
// is cleared so an id lives in at most one of dismissed/created.
func (s *Store) MarkCreated(id string) error {
	delete(s.dismissed, id)
	s.created[id] = struct{}{}
	return s.persist()
}

// IsDismissed reports whether the candidate was dismissed.
func (s *Store) IsDismissed(id string) bool {
	_, ok := s.dismissed[id]
	return ok
}

// ReclassifiedKind returns the reviewer's kind override, if any.
func (s *Store) ReclassifiedKind(id string) (entity.Kind, bool) {
	k, ok := s.reclassified[id]
	return k, ok
}

// IsCreated reports whether the candidate already produced a record.
func (s *Store) IsCreated(id string) bool {
	_, ok := s.created[id]
	return ok
}

// Hidden reports whether the candidate should be filtered from review:
// dismissed or already created.
func (s *Store) Hidden(id string) bool {
	return s.IsDismissed(id) || s.IsCreated(id)
}

// State is a read-only view of the decision log.
type State struct {
	Dismissed    []string               `json:"dismissed"`
	Reclassified map[string]entity.Kind `json:"reclassified"`
	Created      []string               `json:"created"`
}

// State returns a snapshot of all decisions in this scope.
func (s *Store) State() State {
	re := make(map[string]entity.Kind, len(s.reclassified))
	for id, k := range s.reclassified {
		re[id] = k
	}
	return State{
		Dismissed:    sortedKeys(s.dismissed),
		Reclassified: re,
		Created:      sortedKeys(s.created),
	}
}

// Clear wipes all decisions for this scope.
func (s *Store) Clear() error {
	s.dismissed = make(map[string]struct{})
	s.reclassified = make(map[string]entity.Kind)
	s.created = make(map[string]struct{})
	return s.kv.Delete(s.key())
}

// persist writes the full decision set in one atomic Set. Every mutating
// call goes through here — no partial writes.
func (s *Store) persist() error {
	st := persistedState{
		Version:   SchemaVersion,
		Dismissed: sortedKeys(s.dismissed),
		Created:   sortedKeys(s.created),
		Timestamp: s.now().UnixMilli(),
	}
	for id, kind := range s.reclassified {
		st.Reclassified = append(st.Reclassified, [2]string{id, string(kind)})
	}
	sort.Slice(st.Reclassified, func(i, j int) bool {
		return st.Reclassified[i][0] < st.Reclassified[j][0]
	})

	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding session state: %w", err)
	}
	if err := s.kv.Set(s.key(), raw); err != nil {
		return fmt.Errorf("persisting session state: %w", err)
	}
	return nil
}

// sweep removes this team's keys whose encoded date is unparseable or older
// than the retention window. It never touches another team's keys.
func (s *Store) sweep(today time.Time) error {
	prefix := keyPrefix + s.teamID + ":"
	keys, err := s.kv.Keys(prefix)
	if err != nil {
		return fmt.Errorf("listing session keys: %w", err)
	}
	// Compare calendar days, not instants: a key from exactly
	// RetentionDays ago is still within the window.
	midnight, err := time.Parse(dayFormat, today.Format(dayFormat))
	if err != nil {
		return fmt.Errorf("normalizing sweep date: %w", err)
	}
	cutoff := midnight.AddDate(0, 0, -RetentionDays)
	for _, k := range keys {
		datePart := strings.TrimPrefix(k, prefix)
		day, parseErr := time.Parse(dayFormat, datePart)
		if parseErr != nil || day.Before(cutoff) {
			if delErr := s.kv.Delete(k); delErr != nil {
				return fmt.Errorf("sweeping session key %s: %w", k, delErr)
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
