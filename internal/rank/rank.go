// Package rank computes the two comparative rank orderings over a full run of
// canonical records: rank within {college x course} and rank within {course}
// across all colleges. Both are dense 1..N assignments ordered by CGPA
// descending.
package rank

import (
	"fmt"
	"sort"

	"examresults/internal/record"
)

// Assign fills CollegeRank and UniversityRank on every record in place.
//
// Ordering contract:
//   - Within a partition, CGPA descending.
//   - Equal CGPAs keep their relative input order (stable sort, no secondary
//     key). This tie-break is part of the published behavior, not an accident.
//   - A nil CGPA sorts after every numeric CGPA and still receives the next
//     rank positions, so every record ends up with exactly one value per rank
//     field. Topper materialization excludes nil-CGPA rows separately.
//
// The two orderings are independent: moving a student between colleges never
// changes anyone's university rank.
func Assign(records []*record.Record) {
	byCollege := partition(records, func(r *record.Record) string {
		return fmt.Sprintf("%s\x00%d", r.CollegeCode, r.CourseCode)
	})
	for _, group := range byCollege {
		orderByCGPA(group)
		for i, r := range group {
			r.CollegeRank = i + 1
		}
	}

	byCourse := partition(records, func(r *record.Record) string {
		return fmt.Sprintf("%d", r.CourseCode)
	})
	for _, group := range byCourse {
		orderByCGPA(group)
		for i, r := range group {
			r.UniversityRank = i + 1
		}
	}
}

// partition groups records by key, preserving input order within each group.
func partition(records []*record.Record, key func(*record.Record) string) map[string][]*record.Record {
	out := make(map[string][]*record.Record)
	for _, r := range records {
		k := key(r)
		out[k] = append(out[k], r)
	}
	return out
}

func orderByCGPA(group []*record.Record) {
	sort.SliceStable(group, func(i, j int) bool {
		return cgpaLess(group[j].CGPA, group[i].CGPA)
	})
}

// cgpaLess orders nil before any number so that, reversed, nil CGPAs land at
// the bottom of each partition.
func cgpaLess(a, b *float64) bool {
	switch {
	case a == nil:
		return b != nil
	case b == nil:
		return false
	default:
		return *a < *b
	}
}
