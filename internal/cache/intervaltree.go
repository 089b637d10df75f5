package cache

import "sort"

// IntervalTree answers point-overlap queries over transcripts using a sorted
// slice with a suffix-max array. It is immutable once built.
type IntervalTree struct {
	intervals []interval
	maxEnd    []int64 // maxEnd[i] = max(end) for intervals[i:]
}

type interval struct {
	start      int64
	end        int64
	transcript *Transcript
}

// BuildIntervalTree creates an interval tree from a slice of transcripts.
// Each transcript's span is extended by upstream bases on its 5' side so
// that lookups also return transcripts the position lies upstream of.
func BuildIntervalTree(transcripts []*Transcript, upstream int64) *IntervalTree {
	if len(transcripts) == 0 {
		return &IntervalTree{}
	}

	intervals := make([]interval, len(transcripts))
	for i, t := range transcripts {
		iv := interval{start: t.Start, end: t.End, transcript: t}
		if t.IsReverseStrand() {
			iv.end += upstream
		} else {
			iv.start = max(1, iv.start-upstream)
		}
		intervals[i] = iv
	}

	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].start < intervals[j].start
	})

	maxEnd := make([]int64, len(intervals))
	maxEnd[len(intervals)-1] = intervals[len(intervals)-1].end
	for i := len(intervals) - 2; i >= 0; i-- {
		maxEnd[i] = max(intervals[i].end, maxEnd[i+1])
	}

	return &IntervalTree{intervals: intervals, maxEnd: maxEnd}
}

// FindOverlaps returns all transcripts whose extended range contains pos,
// ordered by ascending start.
func (t *IntervalTree) FindOverlaps(pos int64) []*Transcript {
	if len(t.intervals) == 0 {
		return nil
	}

	// Candidates are [0, hi): every interval starting at or before pos.
	hi := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].start > pos
	})

	var result []*Transcript
	for i := hi - 1; i >= 0; i-- {
		if t.maxEnd[i] < pos {
			break
		}
		if t.intervals[i].end >= pos {
			result = append(result, t.intervals[i].transcript)
		}
	}

	// Scan ran backwards.
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result
}

// Len returns the number of intervals in the tree.
func (t *IntervalTree) Len() int {
	return len(t.intervals)
}
