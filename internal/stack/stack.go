// Package stack provides a bounded LIFO used for slot and command list
// free lists.
package stack

// Stack is a fixed-capacity LIFO backed by a slice.
type Stack[T any] struct {
	items []T
}

// New returns an empty stack that holds at most capacity items.
func New[T any](capacity int) *Stack[T] {
	return &Stack[T]{items: make([]T, 0, capacity)}
}

// Push adds v. It returns false when the stack is full.
func (s *Stack[T]) Push(v T) bool {
	if len(s.items) == cap(s.items) {
		return false
	}
	s.items = append(s.items, v)
	return true
}

// Pop removes and returns the top item.
func (s *Stack[T]) Pop() (T, bool) {
	var zero T
	n := len(s.items)
	if n == 0 {
		return zero, false
	}
	v := s.items[n-1]
	s.items[n-1] = zero
	s.items = s.items[:n-1]
	return v, true
}

// Peek returns the top item without removing it.
func (s *Stack[T]) Peek() (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}
	return s.items[len(s.items)-1], true
}

// Len returns the number of items.
func (s *Stack[T]) Len() int { return len(s.items) }

// Cap returns the capacity.
func (s *Stack[T]) Cap() int { return cap(s.items) }

// Empty reports whether the stack has no items.
func (s *Stack[T]) Empty() bool { return len(s.items) == 0 }

// Full reports whether Push would fail.
func (s *Stack[T]) Full() bool { return len(s.items) == cap(s.items) }

// Each calls fn for every item from bottom to top.
func (s *Stack[T]) Each(fn func(T)) {
	for _, v := range s.items {
		fn(v)
	}
}

// Clear removes all items.
func (s *Stack[T]) Clear() {
	clear(s.items)
	s.items = s.items[:0]
}
