// Package record defines the canonical exam record and the normalizer that
// produces it from raw JSONL input.
//
// The input files come from a scraper and are loosely structured: field names
// vary between generations of the feed, numeric fields arrive as strings, and
// score fields carry sentinel markers ("AB" absent, "NE" not eligible) where a
// number is expected. Everything shape-related is repaired here so the rest of
// the pipeline only ever sees canonical records.
package record

// ExamPeriod describes the examination session a result set belongs to.
// One row is persisted per run, taken from the first record.
type ExamPeriod struct {
	AcademicYear string
	Semester     int
	ExamMonth    string
	ExamYear     int
}

// Subject is one normalized subject result (theory or practical).
type Subject struct {
	Code string
	Name string

	// ESE and IA are the external/internal score components. Nil means the
	// source value carried no digits at all (absent, or a sentinel).
	ESE *int64
	IA  *int64

	// Total keeps the raw text form because the feed uses non-numeric
	// sentinels ("NE", "AB") where a number is expected. Numeric comparison
	// happens in SQL via CAST at query time.
	Total *string

	Grade  string
	Credit float64

	// Status is the sentinel text ("AB", "NE", ...) observed in a score
	// field, empty for clean rows.
	Status string
}

// Record is one student's canonical exam record, ready for ranking and
// persistence. Identity key is RegistrationNo.
type Record struct {
	RegistrationNo string
	Name           string
	FatherName     string
	MotherName     string

	CollegeCode string
	CollegeName string
	City        string

	CourseCode int
	CourseName string

	Exam ExamPeriod

	// CGPA is the ranking metric. Nil when the source value is absent or
	// unparseable; such records rank after every numeric CGPA.
	CGPA    *float64
	SGPA    *float64
	Remarks string

	// CollegeRank and UniversityRank are assigned by the rank package over
	// the full record set. Rank values present in the input are ignored.
	CollegeRank    int
	UniversityRank int

	Theory    []Subject
	Practical []Subject
}
