package dataset

import "stealthcompany.com/labmerge/internal/exam"

// Sequential returns every record whose patient name matches name,
// ignoring case, in input order
func Sequential(records []exam.Record, name string) []exam.Record {
	target := exam.FoldName(name)

	var matches []exam.Record
	for _, r := range records {
		if r.PatientKey() == target {
			matches = append(matches, r)
		}
	}
	return matches
}

// Binary finds the run of records for name in records sorted by folded
// patient name. The input order is not checked; unsorted input gives
// wrong answers.
//
// The result starts at the record the search hit, followed by its left
// neighbours nearest first, then its right neighbours nearest first.
func Binary(records []exam.Record, name string) []exam.Record {
	target := exam.FoldName(name)

	lo, hi := 0, len(records)-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		current := records[mid].PatientKey()

		switch {
		case current == target:
			matches := []exam.Record{records[mid]}
			for i := mid - 1; i >= 0 && records[i].PatientKey() == target; i-- {
				matches = append(matches, records[i])
			}
			for i := mid + 1; i < len(records) && records[i].PatientKey() == target; i++ {
				matches = append(matches, records[i])
			}
			return matches
		case target > current:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}

	return nil
}
