package ledger

import "sync/atomic"

// Sequencer provides monotonically increasing event ids.
type Sequencer struct{ n atomic.Uint64 }

// Next returns the next event id.
func (s *Sequencer) Next() uint64 { return s.n.Add(1) }
