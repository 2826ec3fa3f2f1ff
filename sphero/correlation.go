package sphero

import (
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/moffa90/go-sphero/protocol"
)

// result is delivered exactly once on a pendingRequest's done channel.
type result struct {
	frame *protocol.Frame
	err   error
}

// pendingRequest is a command waiting for its synchronous response.
type pendingRequest struct {
	seq      byte
	command  string
	sentAt   time.Time
	deadline time.Time
	done     chan result
}

// completion describes what happened to an incoming response.
type completion int

const (
	completed completion = iota
	droppedLate
	droppedUnexpected
)

func (c completion) String() string {
	switch c {
	case completed:
		return "completed"
	case droppedLate:
		return "late"
	default:
		return "unexpected"
	}
}

// correlationTable maps sequence numbers to pending requests.
//
// Whoever removes an entry from the map (complete, expire or failAll) is the
// only one allowed to send on its done channel. The lock is held for map
// operations only.
type correlationTable struct {
	mu      sync.Mutex
	pending map[byte]*pendingRequest
	expired *cache.Cache
}

func newCorrelationTable(lateWindow time.Duration) *correlationTable {
	return &correlationTable{
		pending: make(map[byte]*pendingRequest),
		expired: cache.New(lateWindow, 2*lateWindow),
	}
}

func seqKey(seq byte) string {
	return strconv.Itoa(int(seq))
}

// register inserts a pending request for seq.
func (t *correlationTable) register(seq byte, command string, timeout time.Duration) (*pendingRequest, error) {
	now := time.Now()
	req := &pendingRequest{
		seq:      seq,
		command:  command,
		sentAt:   now,
		deadline: now.Add(timeout),
		done:     make(chan result, 1),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.pending[seq]; exists {
		return nil, &DuplicateRegistrationError{Sequence: seq}
	}
	t.pending[seq] = req
	t.expired.Delete(seqKey(seq))

	return req, nil
}

// complete hands f to the request waiting on its sequence number.
func (t *correlationTable) complete(f *protocol.Frame) (*pendingRequest, completion) {
	t.mu.Lock()
	req, ok := t.pending[f.Sequence]
	if ok {
		delete(t.pending, f.Sequence)
	}
	t.mu.Unlock()

	if !ok {
		key := seqKey(f.Sequence)
		if _, late := t.expired.Get(key); late {
			t.expired.Delete(key)
			return nil, droppedLate
		}
		return nil, droppedUnexpected
	}

	req.done <- result{frame: f}
	return req, completed
}

// expire removes req if it is still pending. It returns false when another
// path already removed it, in which case a result is on req.done.
func (t *correlationTable) expire(req *pendingRequest) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cur, ok := t.pending[req.seq]; !ok || cur != req {
		return false
	}
	delete(t.pending, req.seq)
	t.expired.SetDefault(seqKey(req.seq), req.command)

	return true
}

// failAll completes every pending request with err and returns how many
// there were.
func (t *correlationTable) failAll(err error) int {
	t.mu.Lock()
	pending := t.pending
	t.pending = make(map[byte]*pendingRequest)
	t.mu.Unlock()

	for _, req := range pending {
		req.done <- result{err: err}
	}
	return len(pending)
}

func (t *correlationTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
