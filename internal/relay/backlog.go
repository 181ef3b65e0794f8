package relay

import (
	"sync"
)

// Backlog is a thread-safe LIFO holding area that automatically doubles
// its capacity when it reaches 70% full. Pop returns the most recently
// pushed item first.
type Backlog[T any] struct {
	mu       sync.Mutex
	buf      []T
	count    int
	capacity int

	// Stats
	totalPushed int64
	totalPopped int64
	resizeCount int
}

// NewBacklog creates a new backlog with the given initial capacity.
func NewBacklog[T any](initialCapacity int) *Backlog[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	return &Backlog[T]{
		buf:      make([]T, initialCapacity),
		capacity: initialCapacity,
	}
}

// Push adds an item on top of the backlog. Grows the storage if at 70%
// capacity.
func (b *Backlog[T]) Push(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Check if we need to grow (at or above 70% capacity after adding this item)
	threshold := (b.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if b.count+1 >= threshold {
		b.grow()
	}

	b.buf[b.count] = item
	b.count++
	b.totalPushed++
}

// Pop removes and returns the most recently pushed item.
// Returns the zero value and false if the backlog is empty.
func (b *Backlog[T]) Pop() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		var zero T
		return zero, false
	}

	b.count--
	item := b.buf[b.count]
	var zero T
	b.buf[b.count] = zero // Clear reference for GC
	b.totalPopped++

	return item, true
}

// Len returns the current number of items in the backlog.
func (b *Backlog[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the current capacity of the backlog.
func (b *Backlog[T]) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity
}

// Stats returns backlog statistics.
func (b *Backlog[T]) Stats() BacklogStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BacklogStats{
		Count:       b.count,
		Capacity:    b.capacity,
		TotalPushed: b.totalPushed,
		TotalPopped: b.totalPopped,
		ResizeCount: b.resizeCount,
	}
}

// BacklogStats contains backlog statistics.
type BacklogStats struct {
	Count       int
	Capacity    int
	TotalPushed int64
	TotalPopped int64
	ResizeCount int
}

// grow doubles the storage capacity. Must be called with lock held.
func (b *Backlog[T]) grow() {
	newCapacity := b.capacity * 2
	newBuf := make([]T, newCapacity)
	copy(newBuf, b.buf[:b.count])

	b.buf = newBuf
	b.capacity = newCapacity
	b.resizeCount++
}
