// Package worker owns the pattern detector off the interactive path.
//
// The boundary is a goroutine-plus-channel actor: callers submit detection
// requests and receive a deferred response. Requests carry a strictly
// increasing sequence number; a response is applied only if its sequence
// equals the latest dispatched one — all earlier in-flight responses are
// dropped unread. There is no cancellation signal to in-flight work:
// computation already running finishes and is discarded, trading a little
// wasted work for a race-free lifecycle.
package worker

import (
	"crypto/sha256"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	gocache "github.com/patrickmn/go-cache"

	"github.com/lorehound/lorehound/internal/detect"
	"github.com/lorehound/lorehound/internal/entity"
)

// cache tuning for memoized detection results.
const (
	cacheTTL     = 5 * time.Minute
	cacheSweep   = 10 * time.Minute
	requestDepth = 16
)

// DetectionFailed reports a recovered detector panic. It is surfaced on the
// response instead of crashing the worker.
type DetectionFailed struct {
	Message string
}

func (e *DetectionFailed) Error() string {
	return fmt.Sprintf("detection failed: %s", e.Message)
}

// Response is the worker's answer to one detection request.
type Response struct {
	ID       string
	Seq      uint64
	Entities []entity.Candidate
	Err      error
}

// Pending is the caller's handle on an in-flight request. The result channel
// is buffered and receives exactly one Response.
type Pending struct {
	ID     string
	Seq    uint64
	Result <-chan Response
}

type job struct {
	id      string
	seq     uint64
	blocks  []entity.Block
	minConf entity.Confidence
	out     chan Response
}

// Boundary runs detection on a dedicated goroutine and enforces the
// stale-result discard contract.
type Boundary struct {
	detector *detect.Detector
	jobs     chan job
	results  *gocache.Cache
	seq      atomic.Uint64

	entropyMu sync.Mutex
	entropy   *rand.Rand

	closeOnce sync.Once
	closed    chan struct{}
}

// New starts a Boundary around the given detector.
func New(d *detect.Detector) *Boundary {
	b := &Boundary{
		detector: d,
		jobs:     make(chan job, requestDepth),
		results:  gocache.New(cacheTTL, cacheSweep),
		entropy:  rand.New(rand.NewSource(time.Now().UnixNano())),
		closed:   make(chan struct{}),
	}
	go b.run()
	return b
}

// Close shuts down the worker goroutine. Pending requests still receive a
// response before the goroutine exits.
func (b *Boundary) Close() {
	b.closeOnce.Do(func() { close(b.jobs) })
	<-b.closed
}

// RequestDetection dispatches a detection request and returns its handle.
// Dispatching bumps the latest sequence number, implicitly superseding every
// earlier in-flight request.
func (b *Boundary) RequestDetection(blocks []entity.Block, minConf entity.Confidence) Pending {
	seq := b.seq.Add(1)
	out := make(chan Response, 1)
	j := job{
		id:      b.newRequestID(),
		seq:     seq,
		blocks:  blocks,
		minConf: minConf,
		out:     out,
	}
	b.jobs <- j
	return Pending{ID: j.id, Seq: seq, Result: out}
}

// RequestText is RequestDetection over a single unstructured string.
func (b *Boundary) RequestText(text string, minConf entity.Confidence) Pending {
	return b.RequestDetection([]entity.Block{{ID: "text", Content: text}}, minConf)
}

// Latest returns the most recently dispatched sequence number.
func (b *Boundary) Latest() uint64 {
	return b.seq.Load()
}

// IsLatest reports whether seq is the newest dispatched request. Responses
// failing this check are stale and must be dropped silently.
func (b *Boundary) IsLatest(seq uint64) bool {
	return seq == b.seq.Load()
}

// Apply invokes fn with the response payload only if the response is still
// the latest; it reports whether fn ran. Stale responses are discarded
// unread — not an error.
func (b *Boundary) Apply(resp Response, fn func(entities []entity.Candidate, err error)) bool {
	if !b.IsLatest(resp.Seq) {
		return false
	}
	fn(resp.Entities, resp.Err)
	return true
}

func (b *Boundary) run() {
	defer close(b.closed)
	for j := range b.jobs {
		// Skip the detector entirely for requests already superseded at
		// pickup time; the response still has to be delivered so the
		// caller's channel receives exactly one value.
		if !b.IsLatest(j.seq) {
			j.out <- Response{ID: j.id, Seq: j.seq}
			continue
		}
		entities, err := b.detectSafe(j)
		j.out <- Response{ID: j.id, Seq: j.seq, Entities: entities, Err: err}
	}
}

// detectSafe runs the detector with panic recovery and result memoization.
func (b *Boundary) detectSafe(j job) (entities []entity.Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			entities = nil
			err = &DetectionFailed{Message: fmt.Sprint(r)}
		}
	}()

	key := contentKey(j.blocks, j.minConf)
	if cached, ok := b.results.Get(key); ok {
		// Hand out a copy: callers filter result slices in place, and the
		// cached value must stay intact for later hits.
		return copyCandidates(cached.([]entity.Candidate)), nil
	}

	entities, err = b.detector.Detect(j.blocks)
	if err != nil {
		return nil, err
	}
	if j.minConf > entity.ConfidenceLow {
		filtered := entities[:0]
		for _, c := range entities {
			if c.Confidence >= j.minConf {
				filtered = append(filtered, c)
			}
		}
		entities = filtered
	}
	b.results.Set(key, copyCandidates(entities), gocache.DefaultExpiration)
	return entities, nil
}

func copyCandidates(cands []entity.Candidate) []entity.Candidate {
	out := make([]entity.Candidate, len(cands))
	copy(out, cands)
	return out
}

// contentKey hashes the request content so identical text served twice within
// the TTL reuses the memoized result.
func contentKey(blocks []entity.Block, minConf entity.Confidence) string {
	h := sha256.New()
	for _, blk := range blocks {
		h.Write([]byte(blk.ID))
		h.Write([]byte{0})
		h.Write([]byte(blk.Content))
		h.Write([]byte{0})
	}
	h.Write([]byte(minConf.String()))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// newRequestID mints a ULID for request correlation.
func (b *Boundary) newRequestID() string {
	b.entropyMu.Lock()
	defer b.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), b.entropy).String()
}
