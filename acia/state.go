package acia

/*
State shared between the memory-mapped debug serial port (CPU side)
and the Telnet bridge task (socket side). The two sides never share
the bus lock; everything here is guarded by the state's own mutex so
the ACIA device can touch it from inside a bus dispatch without
deadlocking.
*/

import "sync"

// queueCap bounds the transmit and receive mailboxes. The hardware
// FIFO is tiny; eight bytes matches it and keeps a wedged client from
// buffering unbounded output.
const queueCap = 8

// telnetIAC introduces a Telnet option sequence on the inbound stream.
const telnetIAC = 255

type telnetState int

const (
	telnetData telnetState = iota
	telnetOptionName
	telnetOptionValue
)

// ring is a small saturating FIFO: pushes to a full ring are dropped.
type ring struct {
	buf  [queueCap]byte
	head int
	n    int
}

func (r *ring) push(c byte) bool {
	if r.n == queueCap {
		return false
	}
	r.buf[(r.head+r.n)%queueCap] = c
	r.n++
	return true
}

func (r *ring) pop() (byte, bool) {
	if r.n == 0 {
		return 0, false
	}
	c := r.buf[r.head]
	r.head = (r.head + 1) % queueCap
	r.n--
	return c, true
}

func (r *ring) clear() {
	r.head = 0
	r.n = 0
}

// State is the mailbox between the ACIA device and the network
// bridge. Created once at startup and lives for the process lifetime;
// connected toggles per client session. The cond plays the role of
// the transmit-side waker.
type State struct {
	mu        sync.Mutex
	cond      *sync.Cond
	ts        telnetState
	connected bool
	tx        ring
	rx        ring
}

// NewState returns a disconnected state with empty queues.
func NewState() *State {
	s := &State{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Connected reports whether a client session is active.
func (s *State) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// PushTx queues one byte for the network side and wakes any writer
// blocked waiting to drain it.
func (s *State) PushTx(c byte) {
	s.mu.Lock()
	s.tx.push(c)
	s.mu.Unlock()
	s.cond.Signal()
}

// PopRx dequeues one received byte, if any.
func (s *State) PopRx() (byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rx.pop()
}

// RxPending reports whether received data is waiting.
func (s *State) RxPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rx.n > 0
}

// TxEmpty reports whether the transmit queue has drained.
func (s *State) TxEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.n == 0
}

// Clear drops both queues. This is the ACIA soft reset.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tx.clear()
	s.rx.clear()
}

// connect marks a client session active and resets the Telnet filter.
func (s *State) connect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	s.ts = telnetData
}

// disconnect ends the session and releases any blocked writer.
func (s *State) disconnect() {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	s.cond.Broadcast()
}

// waitTx blocks until a transmit byte is available or the connection
// drops. The second return is false once disconnected.
func (s *State) waitTx() (byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if !s.connected {
			return 0, false
		}
		if c, ok := s.tx.pop(); ok {
			return c, true
		}
		s.cond.Wait()
	}
}

// feed runs one inbound byte through the minimal Telnet option
// filter. The three bytes of an IAC option sequence are consumed and
// discarded, not interpreted; everything else lands in the receive
// queue.
func (s *State) feed(c byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.ts {
	case telnetData:
		if c == telnetIAC {
			s.ts = telnetOptionName
		} else {
			s.rx.push(c)
		}
	case telnetOptionName:
		s.ts = telnetOptionValue
	case telnetOptionValue:
		s.ts = telnetData
	}
}
