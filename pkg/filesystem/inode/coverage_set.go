package inode

// byteInterval is a half-open range of byte offsets.
type byteInterval struct {
	start uint64
	end   uint64
}

// CoverageSet records which byte ranges of a non-materialized file have
// been delivered to the kernel's page cache. Once the entire blob has
// been delivered, the in-memory copy of the blob no longer serves any
// purpose and can be released.
//
// The set is a sorted list of disjoint half-open intervals. It is not
// thread-safe; callers access it under the inode state lock.
type CoverageSet struct {
	intervals []byteInterval
}

// Add inserts the interval [start, end), coalescing it with any
// intervals it touches or overlaps. Empty intervals are ignored.
func (cs *CoverageSet) Add(start, end uint64) {
	if start >= end {
		return
	}

	// Find the run of existing intervals that touch [start, end).
	first := 0
	for first < len(cs.intervals) && cs.intervals[first].end < start {
		first++
	}
	last := first
	for last < len(cs.intervals) && cs.intervals[last].start <= end {
		if cs.intervals[last].start < start {
			start = cs.intervals[last].start
		}
		if cs.intervals[last].end > end {
			end = cs.intervals[last].end
		}
		last++
	}

	cs.intervals = append(cs.intervals[:first], append(
		[]byteInterval{{start: start, end: end}},
		cs.intervals[last:]...)...)
}

// IsFullyCovered returns whether the set covers [0, sizeBytes) in its
// entirety. A file of size zero is always fully covered.
func (cs *CoverageSet) IsFullyCovered(sizeBytes uint64) bool {
	if sizeBytes == 0 {
		return true
	}
	return len(cs.intervals) == 1 &&
		cs.intervals[0].start == 0 &&
		cs.intervals[0].end >= sizeBytes
}

// IsEmpty returns whether no ranges have been recorded.
func (cs *CoverageSet) IsEmpty() bool {
	return len(cs.intervals) == 0
}

// Clear drops all recorded ranges.
func (cs *CoverageSet) Clear() {
	cs.intervals = nil
}
