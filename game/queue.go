package game

// Queue is a double buffered event queue. Events pushed while the current generation is being processed land in
// the next generation, so an event never observes the effects of events queued after it in the same tick.
type Queue struct {
	current []Event
	next    []Event
}

func NewQueue() *Queue {
	return &Queue{
		current: make([]Event, 0),
		next:    make([]Event, 0),
	}
}

// Push appends events to the next generation.
func (q *Queue) Push(events ...Event) {
	q.next = append(q.next, events...)
}

// Pop removes the oldest event of the current generation.
func (q *Queue) Pop() (Event, bool) {
	if len(q.current) == 0 {
		return nil, false
	}
	ev := q.current[0]
	q.current[0] = nil
	q.current = q.current[1:]
	return ev, true
}

// Swap promotes the next generation once the current one is drained. It reports whether a swap happened.
func (q *Queue) Swap() bool {
	if len(q.current) > 0 {
		return false
	}
	q.current, q.next = q.next, q.current[:0]
	return true
}

func (q *Queue) CurrentLen() int {
	return len(q.current)
}

func (q *Queue) NextLen() int {
	return len(q.next)
}

func (q *Queue) Len() int {
	return len(q.current) + len(q.next)
}

func (q *Queue) Clear() {
	q.current = q.current[:0]
	q.next = q.next[:0]
}
