package record

import (
	"errors"
	"strings"
	"testing"
)

func TestCoerceScore_PolicyTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		json       string
		want       int64
		wantNil    bool
		wantStatus string
	}{
		{name: "clean_int", json: `{"ese": 42}`, want: 42},
		{name: "numeric_string", json: `{"ese": "42"}`, want: 42},
		{name: "trailing_marker", json: `{"ese": "20*"}`, want: 20},
		{name: "embedded_noise", json: `{"ese": " 2 0 "}`, want: 20},
		{name: "absent_sentinel", json: `{"ese": "AB"}`, wantNil: true, wantStatus: "AB"},
		{name: "not_eligible_sentinel", json: `{"ese": "NE"}`, wantNil: true, wantStatus: "NE"},
		{name: "empty_string", json: `{"ese": ""}`, wantNil: true},
		{name: "null", json: `{"ese": null}`, wantNil: true},
		{name: "missing", json: `{}`, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Parse([]byte(`{
				"student": {"registration_no": "24101103001",
					"college": {"college_code": "103", "college_name": "X"},
					"course": {"course_code": 101}},
				"performance": {"cgpa": 8.0, "remarks": "PASS"},
				"subjects": {"theory": [` + mergeSubject(tt.json) + `]}
			}`))
			if err != nil {
				t.Fatalf("Parse() err=%v", err)
			}
			if len(rec.Theory) != 1 {
				t.Fatalf("got %d theory subjects, want 1", len(rec.Theory))
			}
			s := rec.Theory[0]
			if tt.wantNil {
				if s.ESE != nil {
					t.Fatalf("ese=%d, want nil", *s.ESE)
				}
			} else {
				if s.ESE == nil || *s.ESE != tt.want {
					t.Fatalf("ese=%v, want %d", s.ESE, tt.want)
				}
			}
			if s.Status != tt.wantStatus {
				t.Fatalf("status=%q, want %q", s.Status, tt.wantStatus)
			}
		})
	}
}

// mergeSubject injects a subject_code into the per-case subject fragment.
func mergeSubject(fragment string) string {
	inner := strings.TrimSuffix(strings.TrimPrefix(fragment, "{"), "}")
	if strings.TrimSpace(inner) == "" {
		return `{"subject_code": "100102"}`
	}
	return `{"subject_code": "100102", ` + inner + `}`
}

func TestParse_FullRecord(t *testing.T) {
	t.Parallel()

	line := `{
		"exam": {"academic_year": "2024-25", "semester": 1, "exam_month": "December", "exam_year": 2024},
		"student": {
			"registration_no": "24101103001",
			"name": "A STUDENT",
			"father_name": "A FATHER",
			"mother_name": "A MOTHER",
			"college": {"college_code": 103, "college_name": "GOVT ENGINEERING COLLEGE, PATNA"},
			"course": {"course_code": "101", "course_name": "CIVIL ENGINEERING"}
		},
		"performance": {"cgpa": "8.5", "sgpa": 8.25, "remarks": "PASS"},
		"subjects": {
			"theory": [{"subject_code": "100102", "subject_name": "MATHEMATICS-I", "ese": "54", "ia": 28, "total": 82, "grade": "A", "credit": 4}],
			"practical": [{"subject_code": "100108P", "subject_name": "PHYSICS LAB", "ese": 38, "ia": 18, "total": "NE", "grade": "F", "credit": 1.5}]
		}
	}`

	rec, err := Parse([]byte(line))
	if err != nil {
		t.Fatalf("Parse() err=%v", err)
	}

	if rec.RegistrationNo != "24101103001" {
		t.Errorf("registration_no=%q", rec.RegistrationNo)
	}
	if rec.CollegeCode != "103" {
		t.Errorf("college_code=%q, want coerced string %q", rec.CollegeCode, "103")
	}
	if rec.CollegeName != "GOVT ENGINEERING COLLEGE" || rec.City != "PATNA" {
		t.Errorf("college split got (%q, %q)", rec.CollegeName, rec.City)
	}
	if rec.CourseCode != 101 {
		t.Errorf("course_code=%d, want 101 coerced from string", rec.CourseCode)
	}
	if rec.CGPA == nil || *rec.CGPA != 8.5 {
		t.Errorf("cgpa=%v, want 8.5 parsed from string", rec.CGPA)
	}
	if rec.SGPA == nil || *rec.SGPA != 8.25 {
		t.Errorf("sgpa=%v, want 8.25", rec.SGPA)
	}
	if rec.Exam.AcademicYear != "2024-25" || rec.Exam.Semester != 1 || rec.Exam.ExamMonth != "December" || rec.Exam.ExamYear != 2024 {
		t.Errorf("exam period=%+v", rec.Exam)
	}

	if len(rec.Theory) != 1 || len(rec.Practical) != 1 {
		t.Fatalf("subjects theory=%d practical=%d", len(rec.Theory), len(rec.Practical))
	}
	th := rec.Theory[0]
	if th.ESE == nil || *th.ESE != 54 || th.IA == nil || *th.IA != 28 {
		t.Errorf("theory scores ese=%v ia=%v", th.ESE, th.IA)
	}
	if th.Total == nil || *th.Total != "82" {
		t.Errorf("theory total=%v, want raw text %q", th.Total, "82")
	}
	pr := rec.Practical[0]
	if pr.Total == nil || *pr.Total != "NE" {
		t.Errorf("practical total=%v, want sentinel kept verbatim", pr.Total)
	}
}

func TestParse_FieldFallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		line    string
		wantReg string
		wantErr error
	}{
		{
			name:    "reg_no_synonym",
			line:    `{"student": {"reg_no": "24101103002", "college": {"college_code": "103"}, "course": {"course_code": 101}}, "performance": {}, "subjects": {}}`,
			wantReg: "24101103002",
		},
		{
			name:    "rollno_synonym",
			line:    `{"student": {"rollno": "24101103003", "college": {"college_code": "103"}, "course": {"course_code": 101}}, "performance": {}, "subjects": {}}`,
			wantReg: "24101103003",
		},
		{
			name:    "no_registration",
			line:    `{"student": {"college": {"college_code": "103"}}, "performance": {}, "subjects": {}}`,
			wantErr: ErrMissingRegistration,
		},
		{
			name:    "no_college_code",
			line:    `{"student": {"registration_no": "24101103004", "college": {}}, "performance": {}, "subjects": {}}`,
			wantErr: ErrMissingCollegeCode,
		},
		{
			name:    "invalid_json",
			line:    `{"student": nope}`,
			wantErr: ErrInvalidJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Parse([]byte(tt.line))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err=%v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() err=%v", err)
			}
			if rec.RegistrationNo != tt.wantReg {
				t.Fatalf("registration_no=%q, want %q", rec.RegistrationNo, tt.wantReg)
			}
		})
	}
}

func TestParse_CourseCodeDerivedFromRegistration(t *testing.T) {
	t.Parallel()

	// Digits at positions 3-5 of the registration number carry the course
	// code when the course block is missing.
	line := `{"student": {"registration_no": "24105103009", "college": {"college_code": "103"}}, "performance": {}, "subjects": {}}`
	rec, err := Parse([]byte(line))
	if err != nil {
		t.Fatalf("Parse() err=%v", err)
	}
	if rec.CourseCode != 105 {
		t.Fatalf("course_code=%d, want 105 from registration positions 3-5", rec.CourseCode)
	}

	short := `{"student": {"registration_no": "24", "college": {"college_code": "103"}}, "performance": {}, "subjects": {}}`
	if _, err := Parse([]byte(short)); !errors.Is(err, ErrNoCourseCode) {
		t.Fatalf("err=%v, want ErrNoCourseCode for underivable registration", err)
	}
}

func TestSplitCollegeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		wantName string
		wantCity string
	}{
		{"GOVT ENGINEERING COLLEGE, PATNA", "GOVT ENGINEERING COLLEGE", "PATNA"},
		{"NO CITY COLLEGE", "NO CITY COLLEGE", ""},
		{"A, B, C", "A", "B, C"},
		{"", "", ""},
	}
	for _, tt := range tests {
		name, city := splitCollegeName(tt.in)
		if name != tt.wantName || city != tt.wantCity {
			t.Errorf("splitCollegeName(%q) = (%q, %q), want (%q, %q)", tt.in, name, city, tt.wantName, tt.wantCity)
		}
	}
}

func TestDeriveRemarks(t *testing.T) {
	t.Parallel()

	cgpa := func(f float64) *float64 { return &f }
	pass := Subject{ESE: i64(50), Total: str("80")}
	failESE := Subject{ESE: i64(10), Total: str("40")}
	sentinel := Subject{Total: str("NE")}

	tests := []struct {
		name      string
		cgpa      *float64
		theory    []Subject
		practical []Subject
		want      string
	}{
		{name: "low_cgpa_fail", cgpa: cgpa(4.9), theory: []Subject{pass}, want: "Fail"},
		{name: "all_pass", cgpa: cgpa(8.0), theory: []Subject{pass, pass}, want: "PASS"},
		{name: "one_back_paper", cgpa: cgpa(6.0), theory: []Subject{pass, failESE}, want: "Paper Back"},
		{name: "multiple_fail", cgpa: cgpa(6.0), theory: []Subject{failESE, sentinel}, want: "FAIL"},
		{name: "sentinel_counts_as_failing", cgpa: cgpa(7.0), theory: []Subject{pass}, practical: []Subject{sentinel}, want: "Paper Back"},
		{name: "practical_half_threshold", cgpa: cgpa(7.0), practical: []Subject{{ESE: i64(30), Total: str("18")}}, want: "PASS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveRemarks(tt.cgpa, tt.theory, tt.practical); got != tt.want {
				t.Fatalf("deriveRemarks() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse_SuppliedRemarksWin(t *testing.T) {
	t.Parallel()

	line := `{"student": {"registration_no": "24101103001", "college": {"college_code": "103"}, "course": {"course_code": 101}}, "performance": {"cgpa": 2.0, "remarks": "WITHHELD"}, "subjects": {}}`
	rec, err := Parse([]byte(line))
	if err != nil {
		t.Fatalf("Parse() err=%v", err)
	}
	if rec.Remarks != "WITHHELD" {
		t.Fatalf("remarks=%q, want feed value kept", rec.Remarks)
	}
}

func TestReadAll_CountsAndSkips(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		`{"student": {"registration_no": "24101103001", "college": {"college_code": "103"}, "course": {"course_code": 101}}, "performance": {"cgpa": 8.0}, "subjects": {}}`,
		``,
		`not json at all`,
		`{"student": {"college": {"college_code": "103"}}, "performance": {}, "subjects": {}}`,
		`{"student": {"registration_no": "24101103002", "college": {"college_code": "103"}, "course": {"course_code": 101}}, "performance": {"cgpa": 7.0}, "subjects": {}}`,
	}, "\n")

	var reported []int
	records, stats, err := ReadAll(strings.NewReader(input), func(line int, err error) {
		reported = append(reported, line)
	})
	if err != nil {
		t.Fatalf("ReadAll() err=%v", err)
	}

	if len(records) != 2 {
		t.Fatalf("records=%d, want 2", len(records))
	}
	if stats.Records != 2 || stats.ParseErrors != 1 || stats.ValidationErrors != 1 {
		t.Fatalf("stats=%+v", stats)
	}
	if stats.Lines != 4 {
		t.Fatalf("lines=%d, want 4 (blank line not counted)", stats.Lines)
	}
	if len(reported) != 2 || reported[0] != 3 || reported[1] != 4 {
		t.Fatalf("reported lines=%v, want [3 4]", reported)
	}
	if records[0].RegistrationNo != "24101103001" || records[1].RegistrationNo != "24101103002" {
		t.Fatalf("input order not preserved: %s, %s", records[0].RegistrationNo, records[1].RegistrationNo)
	}
}

func i64(n int64) *int64 { return &n }

func str(s string) *string { return &s }
