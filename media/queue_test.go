package media

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func items(names ...string) []Item {
	out := make([]Item, len(names))
	for i, name := range names {
		out[i] = NewItem(name, "/m/"+name, LocalVideo)
	}
	return out
}

func queueOf(current int, names ...string) *Queue {
	q := NewQueue()
	q.Append(items(names...)...)
	q.Select(current)
	return q
}

func TestQueueAppendSelect(t *testing.T) {
	Convey("Given an empty queue", t, func() {
		q := NewQueue()
		So(q.CurrentIndex(), ShouldEqual, NoSelection)

		Convey("Append reports whether it was empty", func() {
			So(q.Append(items("a.mp4")...), ShouldBeTrue)
			So(q.Append(items("b.mp4")...), ShouldBeFalse)
			So(q.Len(), ShouldEqual, 2)
		})

		Convey("Select rejects out of range indices", func() {
			q.Append(items("a.mp4")...)
			So(q.Select(1), ShouldBeFalse)
			So(q.Select(0), ShouldBeTrue)
			So(q.Select(NoSelection), ShouldBeTrue)
			So(q.CurrentIndex(), ShouldEqual, NoSelection)
		})
	})
}

func TestQueueRemove(t *testing.T) {
	Convey("Given a queue with a selection", t, func() {
		Convey("Removing before the current item shifts the selection", func() {
			q := queueOf(2, "a", "b", "c", "d")
			res := q.Remove(0)
			So(res.RemovedCurrent, ShouldBeFalse)
			So(q.CurrentIndex(), ShouldEqual, 1)
			current, _ := q.Current()
			So(current.Name, ShouldEqual, "c")
		})

		Convey("Removing after the current item keeps the selection", func() {
			q := queueOf(1, "a", "b", "c")
			q.Remove(2)
			So(q.CurrentIndex(), ShouldEqual, 1)
		})

		Convey("Removing the current item prefers the item that shifted into its slot", func() {
			q := queueOf(1, "a", "b", "c")
			res := q.Remove(1)
			So(res.RemovedCurrent, ShouldBeTrue)
			So(q.CurrentIndex(), ShouldEqual, NoSelection)
			So(res.Replacement, ShouldEqual, 1)
			next, _ := q.At(res.Replacement)
			So(next.Name, ShouldEqual, "c")
		})

		Convey("Removing the current last item falls back to the new last item", func() {
			q := queueOf(2, "a", "b", "c")
			res := q.Remove(2)
			So(res.Replacement, ShouldEqual, 1)
		})

		Convey("Removing the only item leaves an empty queue with no selection", func() {
			q := queueOf(0, "a")
			res := q.Remove(0)
			So(res.RemovedCurrent, ShouldBeTrue)
			So(res.Replacement, ShouldEqual, NoSelection)
			So(q.Len(), ShouldEqual, 0)
			So(q.CurrentIndex(), ShouldEqual, NoSelection)
		})

		Convey("Multiple indices in any order with duplicates", func() {
			q := queueOf(3, "a", "b", "c", "d", "e")
			res := q.Remove(4, 0, 0, 2, 9, -1)
			So(res.Removed, ShouldEqual, 3)
			So(res.RemovedCurrent, ShouldBeFalse)
			current, _ := q.Current()
			So(current.Name, ShouldEqual, "d")
			So(q.CurrentIndex(), ShouldEqual, 1)
		})

		Convey("Removing the current item together with earlier ones", func() {
			q := queueOf(2, "a", "b", "c", "d")
			res := q.Remove(0, 2)
			So(res.RemovedCurrent, ShouldBeTrue)
			next, _ := q.At(res.Replacement)
			So(next.Name, ShouldEqual, "d")
		})

		Convey("The index invariant holds for every single removal", func() {
			for current := -1; current < 5; current++ {
				for index := 0; index < 5; index++ {
					q := queueOf(current, "a", "b", "c", "d", "e")
					res := q.Remove(index)
					So(q.CurrentIndex(), ShouldBeGreaterThanOrEqualTo, NoSelection)
					So(q.CurrentIndex(), ShouldBeLessThan, q.Len())
					So(res.Replacement, ShouldBeLessThan, q.Len())
				}
			}
		})
	})
}

func TestQueueSnapshot(t *testing.T) {
	Convey("Given a queue", t, func() {
		q := queueOf(1, "a", "b")

		Convey("Snapshots are copies", func() {
			s := q.Snapshot()
			s.Items[0] = NewItem("x", "/x", LocalAudio)
			first, _ := q.At(0)
			So(first.Name, ShouldEqual, "a")
			So(s.CurrentIndex, ShouldEqual, 1)
			So(s.IndexOf(q.Snapshot().Items[1].ID), ShouldEqual, 1)
		})

		Convey("Restore clamps an invalid selection", func() {
			q.Restore(Snapshot{Items: items("a"), CurrentIndex: 4})
			So(q.CurrentIndex(), ShouldEqual, NoSelection)
		})
	})
}

func TestQueueFilter(t *testing.T) {
	Convey("Given named entries", t, func() {
		q := queueOf(0, "Daft Punk - One More Time.mp3", "lecture.mp4", "Punk Rock.flac")

		Convey("Fuzzy matching keeps queue positions", func() {
			matches := q.Filter("punk")
			So(matches, ShouldHaveLength, 2)
			So(matches[0].Index, ShouldEqual, 0)
			So(matches[1].Index, ShouldEqual, 2)
		})

		Convey("An empty query matches everything", func() {
			So(q.Filter(""), ShouldHaveLength, 3)
		})
	})
}
