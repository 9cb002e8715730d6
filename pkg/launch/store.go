package launch

import "sync"

// Listener receives the next launch timestamp in Unix milliseconds.
type Listener func(ts int64)

// subscription serializes deliveries to one listener and drops any value
// older than the last one it delivered.
type subscription struct {
	fn Listener

	mu   sync.Mutex
	seen uint64
}

func (sub *subscription) deliver(seq uint64, ts int64) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if seq <= sub.seen {
		return
	}
	sub.seen = seq
	sub.fn(ts)
}

// Store is a publish/subscribe holder for the next launch timestamp.
// It is safe for concurrent use. Listeners are invoked without the store
// lock held, so they may read the Store or subscribe; a listener must not
// call SetNext. Each listener sees timestamps in the order they were set,
// never an older one after a newer one.
type Store struct {
	mu      sync.Mutex
	next    int64
	hasNext bool
	seq     uint64
	nextID  uint64
	subs    map[uint64]*subscription
	order   []uint64
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{subs: make(map[uint64]*subscription)}
}

// Next returns the stored timestamp. ok is false until a producer has set
// one.
func (s *Store) Next() (ts int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next, s.hasNext
}

// SetNext stores ts and notifies the listeners subscribed at the time of
// the call, in subscription order. Listeners added while notifying are not
// called for this timestamp.
func (s *Store) SetNext(ts int64) {
	s.mu.Lock()
	s.next = ts
	s.hasNext = true
	s.seq++
	seq := s.seq
	subs := make([]*subscription, 0, len(s.order))
	for _, id := range s.order {
		subs = append(subs, s.subs[id])
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(seq, ts)
	}
}

// Subscribe adds fn. If a timestamp is already stored, fn is called with it
// once before Subscribe returns, unless a newer one reached fn first. The
// returned function removes exactly this subscription and is safe to call
// more than once.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	sub := &subscription{fn: fn}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = sub
	s.order = append(s.order, id)
	ts, ok, seq := s.next, s.hasNext, s.seq
	s.mu.Unlock()

	if ok {
		sub.deliver(seq, ts)
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, exists := s.subs[id]; !exists {
			return
		}
		delete(s.subs, id)
		for i, cur := range s.order {
			if cur == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
