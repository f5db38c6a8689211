package media

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
)

// NoSelection is the current index of a queue with nothing selected.
const NoSelection = -1

// Snapshot is the persisted session state: the queue contents and the selected index.
type Snapshot struct {
	Items        []Item `json:"media_list"`
	CurrentIndex int    `json:"current_index"`
}

// EmptySnapshot returns a snapshot with no items and nothing selected.
func EmptySnapshot() Snapshot {
	return Snapshot{Items: []Item{}, CurrentIndex: NoSelection}
}

// Current returns the selected item of the snapshot, if any.
func (s Snapshot) Current() (Item, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Items) {
		return Item{}, false
	}
	return s.Items[s.CurrentIndex], true
}

// IndexOf returns the position of the item with the given identity, or NoSelection.
func (s Snapshot) IndexOf(id string) int {
	_, index, ok := lo.FindIndexOf(s.Items, func(item Item) bool {
		return item.ID == id
	})
	if !ok {
		return NoSelection
	}
	return index
}

// Queue is the ordered playback queue. It keeps -1 <= current < Len() at all times.
// A Queue is not safe for concurrent use; the session runtime is its only writer.
type Queue struct {
	items   []Item
	current int
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{current: NoSelection}
}

func (q *Queue) Len() int {
	return len(q.items)
}

// At returns the item at index.
func (q *Queue) At(index int) (Item, bool) {
	if index < 0 || index >= len(q.items) {
		return Item{}, false
	}
	return q.items[index], true
}

// CurrentIndex returns the selected index or NoSelection.
func (q *Queue) CurrentIndex() int {
	return q.current
}

// Current returns the selected item, if any.
func (q *Queue) Current() (Item, bool) {
	return q.At(q.current)
}

// Append adds items to the end of the queue. It reports whether the queue was empty before.
func (q *Queue) Append(items ...Item) (wasEmpty bool) {
	wasEmpty = len(q.items) == 0
	q.items = append(q.items, items...)
	return wasEmpty
}

// Select marks index as current. NoSelection clears the selection.
func (q *Queue) Select(index int) bool {
	if index != NoSelection && (index < 0 || index >= len(q.items)) {
		return false
	}
	q.current = index
	return true
}

// RemoveResult describes the effect of a removal on the selection.
type RemoveResult struct {
	// Removed is the number of items actually removed.
	Removed int

	// RemovedCurrent is set when the selected item was among the removed ones.
	// The queue selection is then cleared.
	RemovedCurrent bool

	// Replacement is the index the caller should load next when RemovedCurrent is set:
	// the item that shifted into the vacated position, else the last item,
	// else NoSelection when the queue became empty.
	Replacement int
}

// Remove deletes the items at the given indices. Duplicate and out of range indices are ignored.
// When the selected item survives, the selection follows it to its new position.
func (q *Queue) Remove(indices ...int) RemoveResult {
	valid := lo.Uniq(lo.Filter(indices, func(i int, _ int) bool {
		return i >= 0 && i < len(q.items)
	}))
	sort.Sort(sort.Reverse(sort.IntSlice(valid)))

	result := RemoveResult{Removed: len(valid), Replacement: NoSelection}
	if len(valid) == 0 {
		return result
	}

	current := q.current
	removedBefore := 0
	for _, index := range valid {
		switch {
		case index == q.current:
			result.RemovedCurrent = true
		case index < q.current:
			removedBefore++
		}
		q.items = append(q.items[:index], q.items[index+1:]...)
	}

	if !result.RemovedCurrent {
		if current != NoSelection {
			q.current = current - removedBefore
		}
		return result
	}

	q.current = NoSelection
	if len(q.items) > 0 {
		result.Replacement = min(current-removedBefore, len(q.items)-1)
	}
	return result
}

// Snapshot returns a copy of the queue contents and selection.
func (q *Queue) Snapshot() Snapshot {
	items := make([]Item, len(q.items))
	copy(items, q.items)
	return Snapshot{Items: items, CurrentIndex: q.current}
}

// Restore replaces the queue contents with a snapshot. An out of range index clears the selection.
func (q *Queue) Restore(s Snapshot) {
	q.items = make([]Item, len(s.Items))
	copy(q.items, s.Items)

	q.current = s.CurrentIndex
	if q.current < 0 || q.current >= len(q.items) {
		q.current = NoSelection
	}
}

// Match is a queue entry matching a filter query.
type Match struct {
	Index int
	Item  Item
}

// Filter returns the entries whose name fuzzily matches query, in queue order.
// An empty query matches everything.
func (q *Queue) Filter(query string) []Match {
	return lo.FilterMap(q.items, func(item Item, index int) (Match, bool) {
		if query != "" && !fuzzy.MatchNormalizedFold(query, item.Name) {
			return Match{}, false
		}
		return Match{Index: index, Item: item}, true
	})
}
