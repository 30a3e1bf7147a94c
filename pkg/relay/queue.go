package relay

// Queue is a fixed-capacity FIFO ring buffer with an overflow policy.
// It is not safe for concurrent use; the owning Subscription serializes access.
type Queue struct {
	buf     []Message
	head    int // index of the oldest message
	count   int
	policy  QueuePolicy
	dropped int // capacity drops since the last pop
}

// NewQueue creates a queue. Capacity below one is raised to one.
func NewQueue(capacity int, policy QueuePolicy) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		buf:    make([]Message, capacity),
		policy: policy,
	}
}

// Push enqueues msg and returns how many messages were dropped (0 or 1).
func (q *Queue) Push(msg Message) int {
	if q.count == len(q.buf) {
		if q.policy == PolicyDropNew {
			q.dropped++
			return 1
		}
		q.buf[q.head] = Message{}
		q.head = (q.head + 1) % len(q.buf)
		q.count--
		q.dropped++
		q.buf[(q.head+q.count)%len(q.buf)] = msg
		q.count++
		return 1
	}

	q.buf[(q.head+q.count)%len(q.buf)] = msg
	q.count++
	return 0
}

// PopUpTo removes up to n oldest messages. n <= 0 means all of them.
// It returns the drop counter accumulated since the previous pop, which is
// reset, and the number of messages left.
func (q *Queue) PopUpTo(n int) (msgs []Message, dropped int, remaining int) {
	if n <= 0 || n > q.count {
		n = q.count
	}

	msgs = make([]Message, n)
	for i := 0; i < n; i++ {
		msgs[i] = q.buf[q.head]
		q.buf[q.head] = Message{}
		q.head = (q.head + 1) % len(q.buf)
	}
	q.count -= n

	dropped = q.dropped
	q.dropped = 0
	return msgs, dropped, q.count
}

// Resize changes capacity and policy in place. When the new capacity is below
// the current length the new policy decides what is trimmed: drop-old evicts
// the oldest, drop-new discards the newest. Trimmed messages count as drops.
func (q *Queue) Resize(capacity int, policy QueuePolicy) int {
	if capacity < 1 {
		capacity = 1
	}
	q.policy = policy
	if capacity == len(q.buf) {
		return 0
	}

	retained := make([]Message, q.count)
	for i := 0; i < q.count; i++ {
		retained[i] = q.buf[(q.head+i)%len(q.buf)]
	}

	trimmed := 0
	if len(retained) > capacity {
		trimmed = len(retained) - capacity
		if policy == PolicyDropNew {
			retained = retained[:capacity]
		} else {
			retained = retained[trimmed:]
		}
	}

	q.buf = make([]Message, capacity)
	copy(q.buf, retained)
	q.head = 0
	q.count = len(retained)
	q.dropped += trimmed
	return trimmed
}

// Len returns the number of queued messages.
func (q *Queue) Len() int { return q.count }

// Cap returns the capacity.
func (q *Queue) Cap() int { return len(q.buf) }

// Policy returns the overflow policy.
func (q *Queue) Policy() QueuePolicy { return q.policy }

// Dropped returns the drop counter without resetting it.
func (q *Queue) Dropped() int { return q.dropped }
