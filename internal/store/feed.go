package store

import (
	"bytes"
	"encoding/json"
	"sort"
	"sync"

	"github.com/lox/toptrumps/internal/doctree"
)

// Subscriber runs a callback on its own goroutine, delivering pushed values
// one at a time in the order they were pushed. Push never blocks.
type Subscriber struct {
	fn      func(json.RawMessage)
	mu      sync.Mutex
	pending []json.RawMessage
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewSubscriber starts a delivery goroutine for fn.
func NewSubscriber(fn func(json.RawMessage)) *Subscriber {
	s := &Subscriber{
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

// Push queues v for delivery.
func (s *Subscriber) Push(v json.RawMessage) {
	s.mu.Lock()
	s.pending = append(s.pending, v)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Close stops delivery. Values still queued are dropped.
func (s *Subscriber) Close() {
	s.once.Do(func() { close(s.done) })
}

// Done is closed once the subscriber has been closed.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

func (s *Subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.pending) == 0 {
				s.mu.Unlock()
				break
			}
			v := s.pending[0]
			s.pending = s.pending[1:]
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			default:
			}
			s.fn(v)
		}
	}
}

// Feed fans committed changes out to path subscribers. Backends call
// Publish in commit order, and each subscriber sees values in that order.
// A subscriber is not called again when its value did not change.
type Feed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*feedEntry
}

type feedEntry struct {
	path string
	last json.RawMessage
	sub  *Subscriber
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[int]*feedEntry)}
}

// Add registers fn on path and queues initial as its first value. It
// returns a function removing the subscription.
func (f *Feed) Add(path string, initial json.RawMessage, fn func(json.RawMessage)) func() {
	sub := NewSubscriber(fn)
	sub.Push(initial)

	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.subs[id] = &feedEntry{path: doctree.Clean(path), last: initial, sub: sub}
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
		sub.Close()
	}
}

// Publish delivers the new value of every subscription related to one of
// the changed paths. read returns the value now stored at a path.
func (f *Feed) Publish(changed []string, read func(path string) json.RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]int, 0, len(f.subs))
	for id := range f.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		e := f.subs[id]
		if !touches(e.path, changed) {
			continue
		}
		v := read(e.path)
		if bytes.Equal(v, e.last) {
			continue
		}
		e.last = v
		e.sub.Push(v)
	}
}

// Len returns the number of live subscriptions.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close ends every subscription.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, e := range f.subs {
		e.sub.Close()
		delete(f.subs, id)
	}
}

func touches(path string, changed []string) bool {
	for _, c := range changed {
		if doctree.Related(path, c) {
			return true
		}
	}
	return false
}
