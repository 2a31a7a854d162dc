package ingest

import "sync"

// StreamStats tracks per-service ingestion counters, including the
// receiver-side sequence gap estimate for audio. Sequence numbers are assigned
// by the sender; gaps are counted, never repaired.
type StreamStats struct {
	mu       sync.Mutex
	streams  uint64
	messages uint64
	bytes    uint64
	gaps     uint64
	lastSeq  uint32
	haveSeq  bool
}

// StatsSnapshot is a point-in-time copy of StreamStats for the status endpoint.
type StatsSnapshot struct {
	Streams  uint64 `json:"streams"`
	Messages uint64 `json:"messages"`
	Bytes    uint64 `json:"bytes"`
	Gaps     uint64 `json:"gaps"`
}

// StreamStarted records a new producer stream and resets gap tracking, since
// sequence numbers restart per robot session.
func (s *StreamStats) StreamStarted() {
	s.mu.Lock()
	s.streams++
	s.haveSeq = false
	s.mu.Unlock()
}

// MessageReceived records one ingested message of n payload bytes.
func (s *StreamStats) MessageReceived(n int) {
	s.mu.Lock()
	s.messages++
	s.bytes += uint64(n)
	s.mu.Unlock()
}

// ObserveSequence updates the loss estimate from a sender-assigned sequence
// number. Out-of-order arrivals are ignored rather than recounted.
func (s *StreamStats) ObserveSequence(seq uint32) {
	s.mu.Lock()
	if s.haveSeq && seq > s.lastSeq+1 {
		s.gaps += uint64(seq - s.lastSeq - 1)
	}
	if !s.haveSeq || seq > s.lastSeq {
		s.lastSeq = seq
		s.haveSeq = true
	}
	s.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (s *StreamStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		Streams:  s.streams,
		Messages: s.messages,
		Bytes:    s.bytes,
		Gaps:     s.gaps,
	}
}
