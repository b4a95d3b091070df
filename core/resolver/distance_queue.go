package resolver

import "container/heap"

// DistanceQueue is a min-priority queue of node distances for shortest
// path relaxation.
//
// Lowering the distance of a queued node pushes a new entry and marks the
// previous one stale; stale entries are skipped on Pop. A node popped once
// is settled and ignored by later pushes.
type DistanceQueue struct {
	entries distanceHeap
	pending map[NodeID]int
	settled map[NodeID]bool
}

type distanceEntry struct {
	id       NodeID
	distance int
}

// NewDistanceQueue creates an empty queue.
func NewDistanceQueue() *DistanceQueue {
	return &DistanceQueue{
		pending: make(map[NodeID]int),
		settled: make(map[NodeID]bool),
	}
}

// Push queues a node at the given distance.
//
// Returns false when the node is settled or already queued at a distance
// lower than or equal to the given one.
func (q *DistanceQueue) Push(id NodeID, distance int) bool {
	if q.settled[id] {
		return false
	}
	if current, ok := q.pending[id]; ok && current <= distance {
		return false
	}

	q.pending[id] = distance
	heap.Push(&q.entries, distanceEntry{id: id, distance: distance})
	return true
}

// Pop removes the node with the lowest distance and settles it.
// Ties are broken by ascending node handle.
func (q *DistanceQueue) Pop() (NodeID, int, bool) {
	for q.entries.Len() > 0 {
		entry := heap.Pop(&q.entries).(distanceEntry)

		current, ok := q.pending[entry.id]
		if !ok || current != entry.distance {
			continue // stale
		}

		delete(q.pending, entry.id)
		q.settled[entry.id] = true
		return entry.id, entry.distance, true
	}

	return 0, 0, false
}

// Distance returns the queued distance of a node that has not been popped yet.
func (q *DistanceQueue) Distance(id NodeID) (int, bool) {
	d, ok := q.pending[id]
	return d, ok
}

// Len returns the number of queued nodes, stale entries excluded.
func (q *DistanceQueue) Len() int {
	return len(q.pending)
}

// distanceHeap implements heap.Interface.
type distanceHeap []distanceEntry

func (h distanceHeap) Len() int { return len(h) }

func (h distanceHeap) Less(i, j int) bool {
	if h[i].distance != h[j].distance {
		return h[i].distance < h[j].distance
	}
	return h[i].id < h[j].id
}

func (h distanceHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *distanceHeap) Push(x any) {
	*h = append(*h, x.(distanceEntry))
}

func (h *distanceHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]
	return entry
}
