package store

import (
	"context"
	"database/sql"
	"fmt"

	"examresults/internal/record"
)

// DefaultBatchSize matches the chunk size the load was tuned with; one
// transaction per ~500 buffered rows keeps SQLite commit overhead negligible
// without holding large write transactions open.
const DefaultBatchSize = 500

const (
	insertExamPeriodSQL = `INSERT INTO exam_period (academic_year, semester, exam_month, exam_year) VALUES (?, ?, ?, ?)`
	insertCollegeSQL    = `INSERT OR IGNORE INTO college_mapping (college_code, college_name, city) VALUES (?, ?, ?)`
	insertCourseSQL     = `INSERT OR IGNORE INTO course_mapping (course_code, course_name) VALUES (?, ?)`
	insertSubjectSQL    = `INSERT OR IGNORE INTO subject_mapping (subject_code, subject_name, subject_type) VALUES (?, ?, ?)`

	insertStudentSQL = `INSERT OR REPLACE INTO students
		(registration_no, name, father_name, mother_name, college_code, course_code,
		 exam_period_id, cgpa, sgpa_1st, remarks, overall_branch_rank, college_branch_rank)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	insertTheorySQL    = `INSERT OR IGNORE INTO theory_subjects (registration_no, subject_code, subject_name, ese, ia, total, grade, credit) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	insertPracticalSQL = `INSERT OR IGNORE INTO practical_subjects (registration_no, subject_code, subject_name, ese, ia, total, grade, credit) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
)

// LoadStats counts what one Loader wrote.
type LoadStats struct {
	Students      int
	TheoryRows    int
	PracticalRows int
	Batches       int
}

// Loader materializes canonical records into the schema with buffered,
// transactional writes.
//
// Semantics:
//   - Reference tables (college, course, subject) are written at most once
//     per key per run, on first encounter; first-seen display values win. The
//     dedup state lives on the Loader instance, never in package globals.
//   - Student rows use replace semantics per registration number.
//   - Subject rows are append-only; a duplicate (student, subject) pair is
//     silently ignored, first write wins.
//   - Fact rows flush inside one transaction whenever any buffer reaches the
//     batch size; the final partial buffer flushes on Close of the stream. A
//     failed flush rolls back that batch only.
//
// A Loader is single-writer by construction: the ingest pipeline is one
// sequential pass, and a flush completes before the next record is read.
type Loader struct {
	db        *sql.DB
	batchSize int

	seenColleges map[string]struct{}
	seenCourses  map[int]struct{}
	seenSubjects map[string]struct{}

	examPeriodID int64

	students  [][]any
	theory    [][]any
	practical [][]any

	stats LoadStats
}

// NewLoader returns a Loader writing to d. batchSize <= 0 selects
// DefaultBatchSize.
func NewLoader(d *DB, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Loader{
		db:           d.sql,
		batchSize:    batchSize,
		seenColleges: make(map[string]struct{}),
		seenCourses:  make(map[int]struct{}),
		seenSubjects: make(map[string]struct{}),
	}
}

// Add buffers one record and flushes synchronously when any buffer is full.
// Reference rows for unseen colleges/courses/subjects are written immediately.
func (l *Loader) Add(ctx context.Context, rec *record.Record) error {
	if err := l.ensureExamPeriod(ctx, rec); err != nil {
		return err
	}
	if err := l.ensureReferences(ctx, rec); err != nil {
		return err
	}

	l.students = append(l.students, []any{
		rec.RegistrationNo,
		rec.Name,
		nullIfEmpty(rec.FatherName),
		nullIfEmpty(rec.MotherName),
		rec.CollegeCode,
		rec.CourseCode,
		l.examPeriodID,
		nullableFloat(rec.CGPA),
		nullableFloat(rec.SGPA),
		nullIfEmpty(rec.Remarks),
		nullIfZero(rec.UniversityRank),
		nullIfZero(rec.CollegeRank),
	})

	for _, s := range rec.Theory {
		l.theory = append(l.theory, subjectRow(rec.RegistrationNo, s))
	}
	for _, s := range rec.Practical {
		l.practical = append(l.practical, subjectRow(rec.RegistrationNo, s))
	}

	if len(l.students) >= l.batchSize || len(l.theory) >= l.batchSize || len(l.practical) >= l.batchSize {
		return l.Flush(ctx)
	}
	return nil
}

// Flush commits all buffered fact rows in a single transaction. Call once
// after the last Add for the final partial batch. A flush error means the
// batch rolled back; previously committed batches remain durable.
func (l *Loader) Flush(ctx context.Context) error {
	if len(l.students) == 0 && len(l.theory) == 0 && len(l.practical) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := execBuffered(ctx, tx, insertStudentSQL, l.students); err != nil {
		return fmt.Errorf("insert students: %w", err)
	}
	if err := execBuffered(ctx, tx, insertTheorySQL, l.theory); err != nil {
		return fmt.Errorf("insert theory subjects: %w", err)
	}
	if err := execBuffered(ctx, tx, insertPracticalSQL, l.practical); err != nil {
		return fmt.Errorf("insert practical subjects: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	l.stats.Students += len(l.students)
	l.stats.TheoryRows += len(l.theory)
	l.stats.PracticalRows += len(l.practical)
	l.stats.Batches++

	l.students = l.students[:0]
	l.theory = l.theory[:0]
	l.practical = l.practical[:0]
	return nil
}

// Stats reports committed row counts. Buffered-but-unflushed rows are not
// included.
func (l *Loader) Stats() LoadStats { return l.stats }

// ensureExamPeriod inserts the single per-run exam period row from the first
// record's exam metadata (the normalizer applies defaults for absent fields).
func (l *Loader) ensureExamPeriod(ctx context.Context, rec *record.Record) error {
	if l.examPeriodID != 0 {
		return nil
	}
	res, err := l.db.ExecContext(ctx, insertExamPeriodSQL,
		rec.Exam.AcademicYear, rec.Exam.Semester, rec.Exam.ExamMonth, rec.Exam.ExamYear)
	if err != nil {
		return fmt.Errorf("insert exam period: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("exam period id: %w", err)
	}
	l.examPeriodID = id
	return nil
}

func (l *Loader) ensureReferences(ctx context.Context, rec *record.Record) error {
	if _, ok := l.seenColleges[rec.CollegeCode]; !ok {
		if _, err := l.db.ExecContext(ctx, insertCollegeSQL, rec.CollegeCode, rec.CollegeName, rec.City); err != nil {
			return fmt.Errorf("insert college %s: %w", rec.CollegeCode, err)
		}
		l.seenColleges[rec.CollegeCode] = struct{}{}
	}

	if _, ok := l.seenCourses[rec.CourseCode]; !ok {
		if _, err := l.db.ExecContext(ctx, insertCourseSQL, rec.CourseCode, rec.CourseName); err != nil {
			return fmt.Errorf("insert course %d: %w", rec.CourseCode, err)
		}
		l.seenCourses[rec.CourseCode] = struct{}{}
	}

	// A subject code seen with conflicting types across records keeps its
	// first-seen type; there is no reconciliation.
	for _, s := range rec.Theory {
		if err := l.ensureSubject(ctx, s, "THEORY"); err != nil {
			return err
		}
	}
	for _, s := range rec.Practical {
		if err := l.ensureSubject(ctx, s, "PRACTICAL"); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) ensureSubject(ctx context.Context, s record.Subject, subjectType string) error {
	if _, ok := l.seenSubjects[s.Code]; ok {
		return nil
	}
	if _, err := l.db.ExecContext(ctx, insertSubjectSQL, s.Code, s.Name, subjectType); err != nil {
		return fmt.Errorf("insert subject %s: %w", s.Code, err)
	}
	l.seenSubjects[s.Code] = struct{}{}
	return nil
}

func execBuffered(ctx context.Context, tx *sql.Tx, query string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return err
		}
	}
	return nil
}

func subjectRow(regNo string, s record.Subject) []any {
	return []any{
		regNo,
		s.Code,
		s.Name,
		nullableInt(s.ESE),
		nullableInt(s.IA),
		nullableStr(s.Total),
		nullIfEmpty(s.Grade),
		s.Credit,
	}
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullableInt(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}

func nullableStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
