// Package scratch provides FIFO and LIFO views built from a snapshot of a
// record sequence. Draining a view never touches the source it was built from.
// Neither type is safe for concurrent use.
package scratch

// Queue hands elements back in insertion order
type Queue[T any] struct {
	items []T
}

// NewQueue creates a queue holding a copy of items
func NewQueue[T any](items []T) *Queue[T] {
	return &Queue[T]{items: snapshot(items)}
}

// Dequeue removes and returns the front element. ok is false once empty.
func (q *Queue[T]) Dequeue() (item T, ok bool) {
	if len(q.items) == 0 {
		return item, false
	}
	item = q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}

// Peek returns the front element without removing it
func (q *Queue[T]) Peek() (item T, ok bool) {
	if len(q.items) == 0 {
		return item, false
	}
	return cloneItem(q.items[0]), true
}

// Len is the number of queued elements
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Head returns up to n elements from the front, without removing them
func (q *Queue[T]) Head(n int) []T {
	return head(q.items, n)
}

// Drain dequeues everything, returning elements in removal order
func (q *Queue[T]) Drain() []T {
	out := make([]T, 0, len(q.items))
	for {
		item, ok := q.Dequeue()
		if !ok {
			return out
		}
		out = append(out, item)
	}
}

// Stack hands elements back most recent first
type Stack[T any] struct {
	items []T
}

// NewStack creates a stack holding a copy of items; the last item is on top
func NewStack[T any](items []T) *Stack[T] {
	return &Stack[T]{items: snapshot(items)}
}

// Push adds an element on top
func (s *Stack[T]) Push(item T) {
	s.items = append(s.items, cloneItem(item))
}

// Pop removes and returns the top element. ok is false once empty.
func (s *Stack[T]) Pop() (item T, ok bool) {
	if len(s.items) == 0 {
		return item, false
	}
	last := len(s.items) - 1
	item = s.items[last]
	var zero T
	s.items[last] = zero
	s.items = s.items[:last]
	return item, true
}

// Peek returns the top element without removing it
func (s *Stack[T]) Peek() (item T, ok bool) {
	if len(s.items) == 0 {
		return item, false
	}
	return cloneItem(s.items[len(s.items)-1]), true
}

// Len is the number of stacked elements
func (s *Stack[T]) Len() int {
	return len(s.items)
}

// Head returns up to n elements from the bottom of the stack
func (s *Stack[T]) Head(n int) []T {
	return head(s.items, n)
}

// Drain pops everything, returning elements in removal order
func (s *Stack[T]) Drain() []T {
	out := make([]T, 0, len(s.items))
	for {
		item, ok := s.Pop()
		if !ok {
			return out
		}
		out = append(out, item)
	}
}

// Cloner is implemented by element types that hold references. Queues and
// stacks deep-copy such elements on the way in and out.
type Cloner[T any] interface {
	Clone() T
}

func cloneItem[T any](item T) T {
	if c, ok := any(item).(Cloner[T]); ok {
		return c.Clone()
	}
	return item
}

func snapshot[T any](items []T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = cloneItem(item)
	}
	return out
}

func head[T any](items []T, n int) []T {
	if n > len(items) {
		n = len(items)
	}
	if n < 0 {
		n = 0
	}
	return snapshot(items[:n])
}
