package pool

// Links is embedded by every type that can be a List member. A value can be
// linked into one List at a time.
type Links struct {
	prev Handle
	next Handle
}

func (l *Links) links() *Links { return l }

// Linker is satisfied by pointers to types embedding Links.
type Linker interface {
	links() *Links
}

// List is an intrusive doubly-linked list of arena handles. It owns no
// memory: link fields live in the member slots, so PushBack and Remove are
// O(1) and never allocate.
type List[T any, P interface {
	*T
	Linker
}] struct {
	head Handle
	tail Handle
	n    int
}

func node[T any, P interface {
	*T
	Linker
}](a *Arena[T], h Handle) *Links {
	return P(a.Get(h)).links()
}

// Front returns the first handle, or a nil Handle.
func (l *List[T, P]) Front() Handle { return l.head }

// Back returns the last handle, or a nil Handle.
func (l *List[T, P]) Back() Handle { return l.tail }

// Len returns the number of members.
func (l *List[T, P]) Len() int { return l.n }

// Empty reports whether the list has no members.
func (l *List[T, P]) Empty() bool { return l.n == 0 }

// Next returns the handle after h, or a nil Handle.
func (l *List[T, P]) Next(a *Arena[T], h Handle) Handle {
	return node[T, P](a, h).next
}

// Prev returns the handle before h, or a nil Handle.
func (l *List[T, P]) Prev(a *Arena[T], h Handle) Handle {
	return node[T, P](a, h).prev
}

// PushBack appends h.
func (l *List[T, P]) PushBack(a *Arena[T], h Handle) {
	n := node[T, P](a, h)
	n.prev = l.tail
	n.next = Handle{}
	if l.tail.IsNil() {
		l.head = h
	} else {
		node[T, P](a, l.tail).next = h
	}
	l.tail = h
	l.n++
}

// InsertBefore links h immediately before mark, which must be a member.
func (l *List[T, P]) InsertBefore(a *Arena[T], h, mark Handle) {
	m := node[T, P](a, mark)
	n := node[T, P](a, h)
	n.next = mark
	n.prev = m.prev
	if m.prev.IsNil() {
		l.head = h
	} else {
		node[T, P](a, m.prev).next = h
	}
	m.prev = h
	l.n++
}

// Remove unlinks h, which must be a member.
func (l *List[T, P]) Remove(a *Arena[T], h Handle) {
	n := node[T, P](a, h)
	if n.prev.IsNil() {
		l.head = n.next
	} else {
		node[T, P](a, n.prev).next = n.next
	}
	if n.next.IsNil() {
		l.tail = n.prev
	} else {
		node[T, P](a, n.next).prev = n.prev
	}
	n.prev = Handle{}
	n.next = Handle{}
	l.n--
}
