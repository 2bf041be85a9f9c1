package record

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Normalization errors. ErrInvalidJSON marks a line that is not valid JSON
// (ParseError); the remaining sentinels mark structurally valid records that
// miss a required field with no usable fallback (ValidationError). Callers
// classify with errors.Is and keep separate counters.
var (
	ErrInvalidJSON         = errors.New("invalid json")
	ErrMissingRegistration = errors.New("missing registration number")
	ErrMissingCollegeCode  = errors.New("missing college code")
	ErrNoCourseCode        = errors.New("course code absent and not derivable")
)

// Field synonym fallbacks, in priority order. Older feed generations used
// reg_no/rollno and reused course_* keys inside subject entries.
var (
	registrationPaths = []string{"student.registration_no", "student.reg_no", "student.rollno"}
	subjectCodeKeys   = []string{"subject_code", "course_code"}
	subjectNameKeys   = []string{"subject_name", "course_name"}
)

// Exam period defaults applied when the first record carries no exam block.
const (
	defaultAcademicYear = "2024"
	defaultSemester     = 1
	defaultExamMonth    = "May"
	defaultExamYear     = 2025
)

// Parse normalizes one raw JSONL line into a canonical Record.
//
// It tolerates every field shape observed in the feed: string-or-number codes,
// "Name, City" college fields, score values with trailing note markers ("20*")
// and sentinel markers ("AB", "NE"). It returns an error only for invalid JSON
// or for a record whose identity cannot be established.
func Parse(line []byte) (*Record, error) {
	if !gjson.ValidBytes(line) {
		return nil, ErrInvalidJSON
	}
	root := gjson.ParseBytes(line)

	regNo := firstString(root, registrationPaths...)
	if regNo == "" {
		return nil, ErrMissingRegistration
	}

	collegeCode := strings.TrimSpace(root.Get("student.college.college_code").String())
	if collegeCode == "" {
		return nil, fmt.Errorf("%s: %w", regNo, ErrMissingCollegeCode)
	}
	collegeName, city := splitCollegeName(root.Get("student.college.college_name").String())
	if c := strings.TrimSpace(root.Get("student.college.city").String()); c != "" {
		city = c
	}

	courseCode, err := coerceCourseCode(root.Get("student.course.course_code"), regNo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", regNo, err)
	}

	rec := &Record{
		RegistrationNo: regNo,
		Name:           strings.TrimSpace(root.Get("student.name").String()),
		FatherName:     strings.TrimSpace(root.Get("student.father_name").String()),
		MotherName:     strings.TrimSpace(root.Get("student.mother_name").String()),
		CollegeCode:    collegeCode,
		CollegeName:    collegeName,
		City:           city,
		CourseCode:     courseCode,
		CourseName:     strings.TrimSpace(root.Get("student.course.course_name").String()),
		Exam:           examPeriod(root.Get("exam")),
		CGPA:           floatOrNil(root.Get("performance.cgpa")),
		SGPA:           floatOrNil(root.Get("performance.sgpa")),
		Theory:         subjects(root.Get("subjects.theory")),
		Practical:      subjects(root.Get("subjects.practical")),
	}

	rec.Remarks = strings.TrimSpace(root.Get("performance.remarks").String())
	if rec.Remarks == "" {
		rec.Remarks = deriveRemarks(rec.CGPA, rec.Theory, rec.Practical)
	}

	return rec, nil
}

// coerceCourseCode coerces the course code to an integer, accepting both
// string and number forms. When absent it is derived from the registration
// number.
//
// Positional contract: registration numbers embed the course code in the
// digits at positions 3-5 (1-indexed). Example: "24101103001" -> course 101.
// This is a documented assumption about the university's numbering format,
// not an implementation detail.
func coerceCourseCode(v gjson.Result, regNo string) (int, error) {
	switch v.Type {
	case gjson.Number:
		return int(v.Int()), nil
	case gjson.String:
		if n, err := strconv.Atoi(strings.TrimSpace(v.String())); err == nil {
			return n, nil
		}
	}
	if len(regNo) >= 5 {
		if n, err := strconv.Atoi(regNo[2:5]); err == nil {
			return n, nil
		}
	}
	return 0, ErrNoCourseCode
}

// splitCollegeName splits a combined "Name, City" college field on the first
// comma. Without a comma the city is empty.
func splitCollegeName(s string) (name, city string) {
	name, city, _ = strings.Cut(s, ",")
	return strings.TrimSpace(name), strings.TrimSpace(city)
}

func examPeriod(v gjson.Result) ExamPeriod {
	p := ExamPeriod{
		AcademicYear: strings.TrimSpace(v.Get("academic_year").String()),
		Semester:     int(v.Get("semester").Int()),
		ExamMonth:    strings.TrimSpace(v.Get("exam_month").String()),
		ExamYear:     int(v.Get("exam_year").Int()),
	}
	if p.AcademicYear == "" {
		p.AcademicYear = defaultAcademicYear
	}
	if p.Semester == 0 {
		p.Semester = defaultSemester
	}
	if p.ExamMonth == "" {
		p.ExamMonth = defaultExamMonth
	}
	if p.ExamYear == 0 {
		p.ExamYear = defaultExamYear
	}
	return p
}

func subjects(arr gjson.Result) []Subject {
	if !arr.IsArray() {
		return nil
	}
	var out []Subject
	arr.ForEach(func(_, v gjson.Result) bool {
		code := firstKey(v, subjectCodeKeys...)
		if code == "" {
			return true
		}
		s := Subject{
			Code:   code,
			Name:   firstKey(v, subjectNameKeys...),
			Grade:  strings.TrimSpace(v.Get("grade").String()),
			Credit: v.Get("credit").Float(),
		}
		var st string
		s.ESE, st = coerceScore(v.Get("ese"))
		if st != "" {
			s.Status = st
		}
		s.IA, st = coerceScore(v.Get("ia"))
		if st != "" && s.Status == "" {
			s.Status = st
		}
		if t := v.Get("total"); t.Exists() && t.Type != gjson.Null {
			raw := t.String()
			s.Total = &raw
		}
		out = append(out, s)
		return true
	})
	return out
}

// coerceScore applies the single score-coercion policy for ese/ia fields:
//
//	42        -> 42
//	"42"      -> 42
//	"20*"     -> 20      (trailing note marker stripped)
//	"AB","NE" -> nil, status = sentinel text
//	absent    -> nil
//
// Unparseable input yields nil, never an error.
func coerceScore(v gjson.Result) (*int64, string) {
	switch v.Type {
	case gjson.Number:
		n := v.Int()
		return &n, ""
	case gjson.String:
		raw := strings.TrimSpace(v.String())
		digits := stripNonDigits(raw)
		if digits == "" {
			return nil, raw
		}
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return nil, raw
		}
		return &n, ""
	default:
		return nil, ""
	}
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// floatOrNil parses CGPA/SGPA values. Zero is a valid grade-point value and is
// kept; only absent or unparseable input becomes nil.
func floatOrNil(v gjson.Result) *float64 {
	switch v.Type {
	case gjson.Number:
		f := v.Float()
		return &f
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// Pass thresholds for remarks derivation. A theory subject requires ese >= 25
// and total >= 35; practicals carry half the total weight.
const (
	passESE            = 25.0
	passTotalTheory    = 35.0
	passTotalPractical = 17.5
)

// deriveRemarks computes the four-tier remarks value used when the feed does
// not supply one: CGPA below 5.0 is "Fail" outright, otherwise the count of
// failing subjects decides between "PASS", "Paper Back" (exactly one) and
// "FAIL". A subject with a sentinel score counts as failing.
func deriveRemarks(cgpa *float64, theory, practical []Subject) string {
	if cgpa != nil && *cgpa < 5.0 {
		return "Fail"
	}

	failing := 0
	for _, s := range theory {
		if subjectFails(s, passTotalTheory) {
			failing++
		}
	}
	for _, s := range practical {
		if subjectFails(s, passTotalPractical) {
			failing++
		}
	}

	switch failing {
	case 0:
		return "PASS"
	case 1:
		return "Paper Back"
	default:
		return "FAIL"
	}
}

func subjectFails(s Subject, passTotal float64) bool {
	if s.ESE == nil || float64(*s.ESE) < passESE {
		return true
	}
	t := totalValue(s.Total)
	return t == nil || *t < passTotal
}

// totalValue extracts a numeric value from the raw total text for threshold
// checks. Sentinels and empty totals yield nil.
func totalValue(total *string) *float64 {
	if total == nil {
		return nil
	}
	raw := strings.TrimSpace(*total)
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return &f
	}
	digits := stripNonDigits(raw)
	if digits == "" {
		return nil
	}
	f, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return nil
	}
	return &f
}

func firstString(root gjson.Result, paths ...string) string {
	for _, p := range paths {
		if s := strings.TrimSpace(root.Get(p).String()); s != "" {
			return s
		}
	}
	return ""
}

func firstKey(v gjson.Result, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(v.Get(k).String()); s != "" {
			return s
		}
	}
	return ""
}
