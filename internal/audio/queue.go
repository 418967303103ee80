package audio

import "container/heap"

// timedAction runs fn on the render thread once the clock reaches at.
type timedAction struct {
	at  int64
	seq uint64
	fn  func()
}

type actionQueue []timedAction

func (q actionQueue) Len() int { return len(q) }

func (q actionQueue) Less(i, j int) bool {
	if q[i].at == q[j].at {
		return q[i].seq < q[j].seq
	}
	return q[i].at < q[j].at
}

func (q actionQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *actionQueue) Push(x any) { *q = append(*q, x.(timedAction)) }

func (q *actionQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// flush runs every action due at or before pos.
func (q *actionQueue) flush(pos int64) {
	for q.Len() > 0 && (*q)[0].at <= pos {
		a := heap.Pop(q).(timedAction)
		a.fn()
	}
}
