package dataset

import "stealthcompany.com/labmerge/internal/exam"

type keyedRecord struct {
	key    string
	record exam.Record
}

type segment struct {
	lo, hi int
}

// SortRecords orders records by case-folded patient name with a three-way
// partition sort. The pivot of each segment is its middle element; the less,
// equal and greater buckets keep their input order, so records with equal
// names stay in merge order. Segments are kept on an explicit stack instead
// of recursing. The input slice is not modified.
func SortRecords(records []exam.Record) []exam.Record {
	items := make([]keyedRecord, len(records))
	for i, r := range records {
		items[i] = keyedRecord{key: r.PatientKey(), record: r}
	}

	scratch := make([]keyedRecord, len(items))
	stack := []segment{{lo: 0, hi: len(items)}}
	for len(stack) > 0 {
		seg := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seg.hi-seg.lo <= 1 {
			continue
		}

		part := items[seg.lo:seg.hi]
		pivot := part[len(part)/2].key

		buf := scratch[:0]
		for _, it := range part {
			if it.key < pivot {
				buf = append(buf, it)
			}
		}
		less := len(buf)
		for _, it := range part {
			if it.key == pivot {
				buf = append(buf, it)
			}
		}
		equal := len(buf) - less
		for _, it := range part {
			if it.key > pivot {
				buf = append(buf, it)
			}
		}
		copy(part, buf)

		stack = append(stack,
			segment{lo: seg.lo, hi: seg.lo + less},
			segment{lo: seg.lo + less + equal, hi: seg.hi},
		)
	}

	sorted := make([]exam.Record, len(items))
	for i, it := range items {
		sorted[i] = it.record
	}
	return sorted
}

// IsSortedByPatient reports whether records are in non-decreasing folded name order
func IsSortedByPatient(records []exam.Record) bool {
	for i := 1; i < len(records); i++ {
		if records[i].PatientKey() < records[i-1].PatientKey() {
			return false
		}
	}
	return true
}
