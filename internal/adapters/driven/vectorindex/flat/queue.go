package flat

import "container/heap"

var _ heap.Interface = (*maxQueue)(nil)

// candidate is one scored gallery position.
type candidate struct {
	position int
	distance float32
}

// worse reports whether a ranks after b: larger distance, or equal
// distance and later insertion position.
func worse(a, b candidate) bool {
	if a.distance != b.distance {
		return a.distance > b.distance
	}
	return a.position > b.position
}

// maxQueue keeps the worst retained candidate at the top so it can be
// evicted when a better one arrives.
type maxQueue []candidate

func (q maxQueue) Len() int           { return len(q) }
func (q maxQueue) Less(i, j int) bool { return worse(q[i], q[j]) }
func (q maxQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *maxQueue) Push(x any) {
	*q = append(*q, x.(candidate))
}

func (q *maxQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// offer adds c if fewer than k candidates are held or c beats the worst.
func (q *maxQueue) offer(c candidate, k int) {
	if q.Len() < k {
		heap.Push(q, c)
		return
	}
	if worse((*q)[0], c) {
		(*q)[0] = c
		heap.Fix(q, 0)
	}
}

// drain empties the queue, returning candidates best first.
func (q *maxQueue) drain() []candidate {
	out := make([]candidate, q.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(q).(candidate)
	}
	return out
}
