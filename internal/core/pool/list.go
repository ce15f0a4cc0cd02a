package pool

// IndexList is an order-independent set of slot indices.
// Push, Pop and Remove are O(1); Remove swaps the last element into the hole.
type IndexList struct {
	items []Index
	pos   []int32 // slot → position in items, -1 when absent
}

func NewIndexList(capacity int) IndexList {
	l := IndexList{
		items: make([]Index, 0, capacity),
		pos:   make([]int32, capacity),
	}
	for i := range l.pos {
		l.pos[i] = -1
	}
	return l
}

func (l *IndexList) Len() int { return len(l.items) }

// At returns the i-th element. Order is unspecified and changes on Remove.
func (l *IndexList) At(i int) Index { return l.items[i] }

func (l *IndexList) Contains(idx Index) bool {
	return idx >= 0 && int(idx) < len(l.pos) && l.pos[idx] >= 0
}

// Push appends idx. Returns false if it is already present.
func (l *IndexList) Push(idx Index) bool {
	if l.Contains(idx) {
		return false
	}
	l.pos[idx] = int32(len(l.items))
	l.items = append(l.items, idx)
	return true
}

// Pop removes and returns the last element.
func (l *IndexList) Pop() (Index, bool) {
	n := len(l.items)
	if n == 0 {
		return NoIndex, false
	}
	idx := l.items[n-1]
	l.items = l.items[:n-1]
	l.pos[idx] = -1
	return idx, true
}

// Remove deletes idx by swapping the last element into its position.
func (l *IndexList) Remove(idx Index) bool {
	if !l.Contains(idx) {
		return false
	}
	at := l.pos[idx]
	last := len(l.items) - 1
	moved := l.items[last]
	l.items[at] = moved
	l.pos[moved] = at
	l.items = l.items[:last]
	l.pos[idx] = -1
	return true
}
