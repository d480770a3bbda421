package bridge

import "sync"

// outcome is a resolved correlated response.
type outcome[T any] struct {
	val T
	err error
}

// slot is the single stashed correlation slot for one query kind. Arming
// it again before the previous response lands supersedes the earlier
// waiter; at most one request per kind is meaningfully in flight.
type slot[T any] struct {
	mu sync.Mutex
	id string
	ch chan outcome[T]
}

// arm registers a new pending request and returns its result channel. Any
// previous waiter is failed with ErrSuperseded.
func (s *slot[T]) arm(id string) <-chan outcome[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch != nil {
		var zero T
		s.ch <- outcome[T]{val: zero, err: ErrSuperseded}
	}

	ch := make(chan outcome[T], 1)
	s.id = id
	s.ch = ch
	return ch
}

// resolve delivers a response to the pending waiter. Returns false when no
// request is pending.
func (s *slot[T]) resolve(val T, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch == nil {
		return false
	}
	s.ch <- outcome[T]{val: val, err: err}
	s.id = ""
	s.ch = nil
	return true
}

// fail delivers an error to the pending waiter, if any.
func (s *slot[T]) fail(err error) bool {
	var zero T
	return s.resolve(zero, err)
}
