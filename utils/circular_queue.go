package utils

import (
	"iter"

	"github.com/oomph-ac/locomotion/oerror"
)

// CircularQueue is a fixed-capacity FIFO that overwrites its oldest element once full.
type CircularQueue[T any] struct {
	items []T
	head  int
	tail  int
	size  int
}

// NewCircularQueue returns an empty queue able to hold capacity elements. If propagate is non-nil, the
// backing slots are pre-filled with its results so that pointer-typed elements can be reused.
func NewCircularQueue[T any](capacity int, propagate func() T) *CircularQueue[T] {
	queue := &CircularQueue[T]{
		items: make([]T, capacity),
	}
	if propagate != nil {
		for index := range queue.items {
			queue.items[index] = propagate()
		}
	}
	return queue
}

// Get returns the element at logical position index (0 = oldest), or an error if out of range.
func (q *CircularQueue[T]) Get(index int) (T, error) {
	var zero T
	if index < 0 || index >= q.size {
		return zero, oerror.New("circularqueue: get out of range")
	}
	return q.items[(q.head+index)%len(q.items)], nil
}

// Set sets the element at logical position index (0 = oldest), or returns an error if out of range.
func (q *CircularQueue[T]) Set(index int, item T) error {
	if index < 0 || index >= q.size {
		return oerror.New("circularqueue: set out of range")
	}
	q.items[(q.head+index)%len(q.items)] = item
	return nil
}

// Latest returns the most recently appended element.
func (q *CircularQueue[T]) Latest() (item T, ok bool) {
	if q.size == 0 {
		return item, false
	}
	return q.items[(q.tail-1+len(q.items))%len(q.items)], true
}

// Iter yields the elements from oldest to newest.
func (q *CircularQueue[T]) Iter() iter.Seq[T] {
	return func(yield func(T) bool) {
		for index := range q.size {
			if !yield(q.items[(q.head+index)%len(q.items)]) {
				return
			}
		}
	}
}

// Backward yields the elements from newest to oldest together with their logical position.
func (q *CircularQueue[T]) Backward() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for index := q.size - 1; index >= 0; index-- {
			if !yield(index, q.items[(q.head+index)%len(q.items)]) {
				return
			}
		}
	}
}

// Len returns the number of elements currently held.
func (q *CircularQueue[T]) Len() int {
	return q.size
}

// Cap returns the maximum number of items the queue can hold.
func (q *CircularQueue[T]) Cap() int {
	return len(q.items)
}

// Clear drops every element without releasing the backing storage.
func (q *CircularQueue[T]) Clear() {
	q.head, q.tail, q.size = 0, 0, 0
}

// Pop removes and returns the oldest element. The boolean ok is false if the
// queue is empty.
func (q *CircularQueue[T]) Pop() (item T, ok bool) {
	if q.size == 0 {
		return item, false
	}
	item = q.items[q.head]
	q.head = (q.head + 1) % len(q.items)
	q.size--
	return item, true
}

// Append appends an item or returns an error if the queue has zero capacity.
func (q *CircularQueue[T]) Append(item T) error {
	if len(q.items) == 0 {
		return oerror.New("circularqueue: append on zero-capacity queue")
	}

	q.items[q.tail] = item
	// A full buffer drops the oldest element located at head.
	if q.size == len(q.items) {
		q.head = (q.head + 1) % len(q.items)
	} else {
		q.size++
	}
	q.tail = (q.tail + 1) % len(q.items)
	return nil
}
