package bridge

import (
	"sync"
	"sync/atomic"
)

// Transport carries envelopes between the host and the sandbox. Sends never
// block and never fail loudly: when a buffer is full the envelope is dropped
// and a counter incremented. Receivers drain the channels returned by
// Commands and Events; both are closed by Close.
type Transport interface {
	// SendCommand queues a host→sandbox envelope. Returns false on drop.
	SendCommand(env Envelope) bool
	// SendEvent queues a sandbox→host envelope. Returns false on drop.
	SendEvent(env Envelope) bool
	// Commands is the sandbox-side receive channel.
	Commands() <-chan Envelope
	// Events is the host-side receive channel.
	Events() <-chan Envelope
	// Close shuts both directions down. Idempotent.
	Close()
}

// InProc is the in-process Transport used when host and sandbox share an
// address space. Both directions use the same bounded buffer size.
type InProc struct {
	commands chan Envelope
	events   chan Envelope

	// mu serializes senders against Close so nothing sends on a closed
	// channel. Senders hold the read side; Close holds the write side.
	mu     sync.RWMutex
	closed bool

	droppedCommands atomic.Int64
	droppedEvents   atomic.Int64
}

// DefaultBuffer is the per-direction queue depth when none is given. Deep
// enough to absorb a pointer-move burst between two event-loop turns.
const DefaultBuffer = 64

// NewInProc creates an in-process transport with the given per-direction
// buffer. Non-positive sizes fall back to DefaultBuffer.
func NewInProc(buffer int) *InProc {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &InProc{
		commands: make(chan Envelope, buffer),
		events:   make(chan Envelope, buffer),
	}
}

// SendCommand queues an envelope for the sandbox. Drops on overflow or after
// Close and returns false.
func (t *InProc) SendCommand(env Envelope) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return false
	}
	select {
	case t.commands <- env:
		return true
	default:
		t.droppedCommands.Add(1)
		return false
	}
}

// SendEvent queues an envelope for the host. Drops on overflow or after
// Close and returns false.
func (t *InProc) SendEvent(env Envelope) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return false
	}
	select {
	case t.events <- env:
		return true
	default:
		t.droppedEvents.Add(1)
		return false
	}
}

// Commands returns the sandbox-side receive channel.
func (t *InProc) Commands() <-chan Envelope { return t.commands }

// Events returns the host-side receive channel.
func (t *InProc) Events() <-chan Envelope { return t.events }

// Close closes both channels. Receivers drain until the channel closes.
// Idempotent.
func (t *InProc) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	close(t.commands)
	close(t.events)
}

// Dropped reports how many envelopes were discarded per direction.
func (t *InProc) Dropped() (commands, events int64) {
	return t.droppedCommands.Load(), t.droppedEvents.Load()
}
