package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// topperLimit caps leaderboard responses to keep payload size bounded.
const topperLimit = 500

// StudentResult is the full lookup payload for one student: identity,
// performance, per-subject rows, and the cohort per-subject maxima the front
// end renders as comparison bars. University is filled by the API layer.
type StudentResult struct {
	University  string      `json:"university"`
	Student     StudentInfo `json:"student"`
	Performance Performance `json:"performance"`
	Subjects    SubjectSets `json:"subjects"`
	Toppers     TopperSets  `json:"toppers"`
}

type StudentInfo struct {
	Name           string      `json:"name"`
	RegistrationNo string      `json:"registration_no"`
	FatherName     *string     `json:"father_name"`
	MotherName     *string     `json:"mother_name"`
	College        CollegeInfo `json:"college"`
	Course         CourseInfo  `json:"course"`
}

type CollegeInfo struct {
	CollegeCode string  `json:"college_code"`
	CollegeName *string `json:"college_name"`
	City        *string `json:"city"`
}

type CourseInfo struct {
	CourseCode int     `json:"course_code"`
	CourseName *string `json:"course_name"`
}

type Performance struct {
	CGPA              *float64 `json:"cgpa"`
	SGPA1st           *float64 `json:"sgpa_1st"`
	Remarks           *string  `json:"remarks"`
	OverallBranchRank *int     `json:"overall_branch_rank"`
	CollegeBranchRank *int     `json:"college_branch_rank"`
}

type SubjectSets struct {
	Theory    []SubjectRow `json:"theory"`
	Practical []SubjectRow `json:"practical"`
}

type SubjectRow struct {
	ID             int64   `json:"id"`
	RegistrationNo string  `json:"registration_no"`
	SubjectCode    string  `json:"subject_code"`
	SubjectName    string  `json:"subject_name"`
	ESE            *int64  `json:"ese"`
	IA             *int64  `json:"ia"`
	Total          *string `json:"total"`
	Grade          *string `json:"grade"`
	Credit         float64 `json:"credit"`
}

type TopperSets struct {
	Theory    []SubjectMax `json:"theory"`
	Practical []SubjectMax `json:"practical"`
}

// SubjectMax is the maximum total in the student's (college, course) cohort
// for one subject. Non-numeric totals ("NE", "AB") coerce to the lowest
// possible value via CAST, a deliberate policy: a cohort where everyone is
// absent reports max 0, not an error or a missing row.
type SubjectMax struct {
	SubjectCode string `json:"subject_code"`
	MaxTotal    *int64 `json:"max_total"`
}

const studentSQL = `
	SELECT s.registration_no, s.name, s.father_name, s.mother_name,
	       s.college_code, s.course_code,
	       s.cgpa, s.sgpa_1st, s.remarks, s.overall_branch_rank, s.college_branch_rank,
	       cm.college_name, cm.city, c.course_name
	FROM students s
	LEFT JOIN college_mapping cm ON s.college_code = cm.college_code
	LEFT JOIN course_mapping c ON s.course_code = c.course_code
	WHERE s.registration_no = ?`

const subjectRowsSQL = `
	SELECT id, registration_no, subject_code, subject_name, ese, ia, total, grade, credit
	FROM %s WHERE registration_no = ? ORDER BY id`

const subjectMaxSQL = `
	SELECT t.subject_code, MAX(CAST(t.total AS INTEGER)) AS max_total
	FROM %s t
	JOIN students s ON t.registration_no = s.registration_no
	WHERE s.college_code = ? AND s.course_code = ?
	GROUP BY t.subject_code
	ORDER BY t.subject_code`

// Student fetches one student's full record by registration number, plus the
// cohort subject maxima for their (college, course) group. Returns
// ErrNotFound when the registration number has no row.
func (d *DB) Student(ctx context.Context, regNo string) (*StudentResult, error) {
	var (
		res        StudentResult
		collegeRnk sql.NullInt64
		overallRnk sql.NullInt64
	)

	row := d.sql.QueryRowContext(ctx, studentSQL, regNo)
	err := row.Scan(
		&res.Student.RegistrationNo,
		&res.Student.Name,
		&res.Student.FatherName,
		&res.Student.MotherName,
		&res.Student.College.CollegeCode,
		&res.Student.Course.CourseCode,
		&res.Performance.CGPA,
		&res.Performance.SGPA1st,
		&res.Performance.Remarks,
		&overallRnk,
		&collegeRnk,
		&res.Student.College.CollegeName,
		&res.Student.College.City,
		&res.Student.Course.CourseName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("student %s: %w", regNo, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select student %s: %w", regNo, err)
	}
	res.Performance.OverallBranchRank = intPtr(overallRnk)
	res.Performance.CollegeBranchRank = intPtr(collegeRnk)

	if res.Subjects.Theory, err = d.subjectRows(ctx, "theory_subjects", regNo); err != nil {
		return nil, err
	}
	if res.Subjects.Practical, err = d.subjectRows(ctx, "practical_subjects", regNo); err != nil {
		return nil, err
	}

	collegeCode := res.Student.College.CollegeCode
	courseCode := res.Student.Course.CourseCode
	if res.Toppers.Theory, err = d.subjectMaxima(ctx, "theory_subjects", collegeCode, courseCode); err != nil {
		return nil, err
	}
	if res.Toppers.Practical, err = d.subjectMaxima(ctx, "practical_subjects", collegeCode, courseCode); err != nil {
		return nil, err
	}

	return &res, nil
}

func (d *DB) subjectRows(ctx context.Context, table, regNo string) ([]SubjectRow, error) {
	rows, err := d.sql.QueryContext(ctx, fmt.Sprintf(subjectRowsSQL, table), regNo)
	if err != nil {
		return nil, fmt.Errorf("select %s for %s: %w", table, regNo, err)
	}
	defer rows.Close()

	out := []SubjectRow{}
	for rows.Next() {
		var r SubjectRow
		if err := rows.Scan(&r.ID, &r.RegistrationNo, &r.SubjectCode, &r.SubjectName,
			&r.ESE, &r.IA, &r.Total, &r.Grade, &r.Credit); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) subjectMaxima(ctx context.Context, table, collegeCode string, courseCode int) ([]SubjectMax, error) {
	rows, err := d.sql.QueryContext(ctx, fmt.Sprintf(subjectMaxSQL, table), collegeCode, courseCode)
	if err != nil {
		return nil, fmt.Errorf("select %s maxima: %w", table, err)
	}
	defer rows.Close()

	out := []SubjectMax{}
	for rows.Next() {
		var m SubjectMax
		if err := rows.Scan(&m.SubjectCode, &m.MaxTotal); err != nil {
			return nil, fmt.Errorf("scan %s maxima: %w", table, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SimulatedRank answers "what would my rank be with this CGPA" against the
// persisted, unmodified data set. Stored ranks are never touched.
type SimulatedRank struct {
	CollegeRank int `json:"simulated_college_rank"`
	OverallRank int `json:"simulated_overall_rank"`
}

// SimulateRank returns 1 + count of students strictly exceeding cgpa within
// the (college, course) group, and 1 + the same count within the course
// across all colleges. A CGPA equal to existing values therefore shares their
// best position rather than slotting below them.
func (d *DB) SimulateRank(ctx context.Context, collegeCode string, courseCode int, cgpa float64) (*SimulatedRank, error) {
	var higherInCollege int
	err := d.sql.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM students
		WHERE college_code = ? AND course_code = ? AND CAST(cgpa AS REAL) > ?`,
		collegeCode, courseCode, cgpa).Scan(&higherInCollege)
	if err != nil {
		return nil, fmt.Errorf("count college cohort: %w", err)
	}

	var higherOverall int
	err = d.sql.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM students
		WHERE course_code = ? AND CAST(cgpa AS REAL) > ?`,
		courseCode, cgpa).Scan(&higherOverall)
	if err != nil {
		return nil, fmt.Errorf("count course cohort: %w", err)
	}

	return &SimulatedRank{
		CollegeRank: higherInCollege + 1,
		OverallRank: higherOverall + 1,
	}, nil
}

// CollegeTopperRow is one materialized leaderboard entry scoped to a
// (college, course) group, joined with display names.
type CollegeTopperRow struct {
	ID             int64   `json:"id"`
	RegistrationNo string  `json:"registration_no"`
	Name           string  `json:"name"`
	CollegeCode    string  `json:"college_code"`
	CourseCode     int     `json:"course_code"`
	CGPA           float64 `json:"cgpa"`
	Rank           int     `json:"rank_in_college_branch"`
	CollegeName    string  `json:"college_name"`
	City           *string `json:"city"`
	CourseName     string  `json:"course_name"`
}

// BranchTopperRow is one leaderboard entry scoped to a course across all
// colleges.
type BranchTopperRow struct {
	ID             int64   `json:"id"`
	RegistrationNo string  `json:"registration_no"`
	Name           string  `json:"name"`
	CollegeCode    string  `json:"college_code"`
	CourseCode     int     `json:"course_code"`
	CGPA           float64 `json:"cgpa"`
	Rank           int     `json:"overall_rank"`
	CollegeName    string  `json:"college_name"`
	City           *string `json:"city"`
	CourseName     string  `json:"course_name"`
}

// CollegeToppers lists the college-scoped leaderboard ordered by college,
// course, then rank, capped at 500 rows.
func (d *DB) CollegeToppers(ctx context.Context) ([]CollegeTopperRow, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT ct.id, ct.registration_no, ct.name, ct.college_code, ct.course_code,
		       ct.cgpa, ct.rank_in_college_branch, cm.college_name, cm.city, c.course_name
		FROM college_topper ct
		JOIN college_mapping cm ON ct.college_code = cm.college_code
		JOIN course_mapping c ON ct.course_code = c.course_code
		ORDER BY ct.college_code, ct.course_code, ct.rank_in_college_branch
		LIMIT ?`, topperLimit)
	if err != nil {
		return nil, fmt.Errorf("select college toppers: %w", err)
	}
	defer rows.Close()

	out := []CollegeTopperRow{}
	for rows.Next() {
		var r CollegeTopperRow
		if err := rows.Scan(&r.ID, &r.RegistrationNo, &r.Name, &r.CollegeCode, &r.CourseCode,
			&r.CGPA, &r.Rank, &r.CollegeName, &r.City, &r.CourseName); err != nil {
			return nil, fmt.Errorf("scan college topper: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// BranchToppers lists the course-scoped leaderboard ordered by course then
// rank, capped at 500 rows.
func (d *DB) BranchToppers(ctx context.Context) ([]BranchTopperRow, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT bt.id, bt.registration_no, bt.name, bt.college_code, bt.course_code,
		       bt.cgpa, bt.overall_rank, cm.college_name, cm.city, c.course_name
		FROM branch_topper bt
		JOIN college_mapping cm ON bt.college_code = cm.college_code
		JOIN course_mapping c ON bt.course_code = c.course_code
		ORDER BY bt.course_code, bt.overall_rank
		LIMIT ?`, topperLimit)
	if err != nil {
		return nil, fmt.Errorf("select branch toppers: %w", err)
	}
	defer rows.Close()

	out := []BranchTopperRow{}
	for rows.Next() {
		var r BranchTopperRow
		if err := rows.Scan(&r.ID, &r.RegistrationNo, &r.Name, &r.CollegeCode, &r.CourseCode,
			&r.CGPA, &r.Rank, &r.CollegeName, &r.City, &r.CourseName); err != nil {
			return nil, fmt.Errorf("scan branch topper: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
