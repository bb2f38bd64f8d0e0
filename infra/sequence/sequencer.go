package sequence

import "sync/atomic"

// Sequencer issues strictly monotonic sequence numbers for accepted
// instructions. The numbers key outbox entries, so no two instructions
// may ever share one within a process lifetime.
type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer that will issue start+1 first.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next sequence number.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued sequence number.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}
