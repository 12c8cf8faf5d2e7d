// Package pool provides the hot-path allocation primitives of the simulator:
// a chunked slab (Arena) that hands out generation-checked handles, and an
// intrusive doubly-linked List whose links live inside the arena slots.
//
// Handles are plain values. Holding one never pins memory and a handle that
// outlived its slot is detected instead of silently aliasing the next tenant.
package pool

const (
	chunkBits = 10
	chunkSize = 1 << chunkBits // Slots per chunk
	chunkMask = chunkSize - 1
)

// Handle addresses a slot in an Arena. The zero Handle is nil.
type Handle struct {
	index uint32
	gen   uint32
}

// IsNil reports whether the handle refers to nothing.
func (h Handle) IsNil() bool { return h.gen == 0 }

// Index returns the slot index (for logging).
func (h Handle) Index() uint32 { return h.index }

type slot[T any] struct {
	val      T
	gen      uint32 // Current generation, 0 = never used
	nextFree uint32 // index+1 of the next free slot, 0 = end of list
	inUse    bool
}

// Arena is a growable slab of T. Slots are stored in fixed-size chunks so a
// *T obtained from Get stays valid across later Alloc calls.
// Not safe for concurrent use: it belongs to the single simulation thread.
type Arena[T any] struct {
	chunks   []*[chunkSize]slot[T]
	freeHead uint32 // index+1, 0 = empty
	next     uint32 // First never-used slot
	live     int
}

// NewArena creates an arena with room for at least capacity slots before it
// has to grow.
func NewArena[T any](capacity int) *Arena[T] {
	a := &Arena[T]{}
	for len(a.chunks)*chunkSize < capacity {
		a.chunks = append(a.chunks, new([chunkSize]slot[T]))
	}
	return a
}

func (a *Arena[T]) slot(index uint32) *slot[T] {
	return &a.chunks[index>>chunkBits][index&chunkMask]
}

// Alloc returns a zeroed slot and its handle. O(1); grows by one chunk when
// the free list and the current chunks are exhausted.
func (a *Arena[T]) Alloc() (Handle, *T) {
	var index uint32
	if a.freeHead != 0 {
		index = a.freeHead - 1
		s := a.slot(index)
		a.freeHead = s.nextFree
		s.nextFree = 0
	} else {
		index = a.next
		if int(index) >= len(a.chunks)*chunkSize {
			a.chunks = append(a.chunks, new([chunkSize]slot[T]))
		}
		a.next++
	}

	s := a.slot(index)
	if s.gen == 0 {
		s.gen = 1
	}
	s.inUse = true
	a.live++
	return Handle{index: index, gen: s.gen}, &s.val
}

// Free returns the slot to the free list and bumps its generation so every
// outstanding copy of h becomes stale. Reports false for a stale or nil handle.
func (a *Arena[T]) Free(h Handle) bool {
	s := a.lookup(h)
	if s == nil {
		return false
	}
	var zero T
	s.val = zero
	s.inUse = false
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.nextFree = a.freeHead
	a.freeHead = h.index + 1
	a.live--
	return true
}

// Get returns the value behind h, or nil if h is nil or stale.
func (a *Arena[T]) Get(h Handle) *T {
	s := a.lookup(h)
	if s == nil {
		return nil
	}
	return &s.val
}

// Valid reports whether h refers to a live slot.
func (a *Arena[T]) Valid(h Handle) bool {
	return a.lookup(h) != nil
}

func (a *Arena[T]) lookup(h Handle) *slot[T] {
	if h.gen == 0 || h.index >= a.next {
		return nil
	}
	s := a.slot(h.index)
	if !s.inUse || s.gen != h.gen {
		return nil
	}
	return s
}

// Len returns the number of live slots.
func (a *Arena[T]) Len() int { return a.live }

// Cap returns the number of slots available without growing.
func (a *Arena[T]) Cap() int { return len(a.chunks) * chunkSize }
