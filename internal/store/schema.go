package store

// schemaSQL is the full relational schema. The store is rebuilt from scratch
// on every ingest run, so there is no migration path: drop the file, recreate
// the schema, reload.
//
// Column notes:
//   - theory_subjects.total / practical_subjects.total are TEXT because the
//     feed uses sentinel markers ("NE", "AB") where a number is expected.
//     Numeric comparison happens via CAST at query time.
//   - students.overall_branch_rank / college_branch_rank hold the ranks
//     computed in-process before loading.
const schemaSQL = `
CREATE TABLE exam_period (
    exam_period_id INTEGER PRIMARY KEY AUTOINCREMENT,
    academic_year TEXT NOT NULL,
    semester INTEGER NOT NULL,
    exam_month TEXT NOT NULL,
    exam_year INTEGER NOT NULL
);

CREATE TABLE college_mapping (
    college_code TEXT PRIMARY KEY,
    college_name TEXT NOT NULL,
    city TEXT
);

CREATE TABLE course_mapping (
    course_code INTEGER PRIMARY KEY,
    course_name TEXT NOT NULL
);

CREATE TABLE subject_mapping (
    subject_code TEXT PRIMARY KEY,
    subject_name TEXT NOT NULL,
    subject_type TEXT CHECK(subject_type IN ('THEORY','PRACTICAL'))
);

CREATE TABLE students (
    registration_no TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    father_name TEXT,
    mother_name TEXT,
    college_code TEXT NOT NULL,
    course_code INTEGER NOT NULL,
    exam_period_id INTEGER DEFAULT 1,
    cgpa REAL,
    sgpa_1st REAL,
    remarks TEXT,
    overall_branch_rank INTEGER,
    college_branch_rank INTEGER,
    FOREIGN KEY (college_code) REFERENCES college_mapping(college_code),
    FOREIGN KEY (course_code) REFERENCES course_mapping(course_code),
    FOREIGN KEY (exam_period_id) REFERENCES exam_period(exam_period_id)
);

CREATE TABLE theory_subjects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    registration_no TEXT NOT NULL,
    subject_code TEXT,
    subject_name TEXT,
    ese INTEGER,
    ia INTEGER,
    total TEXT,
    grade TEXT,
    credit REAL,
    UNIQUE(registration_no, subject_code),
    FOREIGN KEY (registration_no) REFERENCES students(registration_no)
);

CREATE TABLE practical_subjects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    registration_no TEXT NOT NULL,
    subject_code TEXT,
    subject_name TEXT,
    ese INTEGER,
    ia INTEGER,
    total TEXT,
    grade TEXT,
    credit REAL,
    UNIQUE(registration_no, subject_code),
    FOREIGN KEY (registration_no) REFERENCES students(registration_no)
);

CREATE TABLE college_topper (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    registration_no TEXT,
    name TEXT,
    college_code TEXT,
    course_code INTEGER,
    cgpa REAL,
    rank_in_college_branch INTEGER,
    FOREIGN KEY (college_code) REFERENCES college_mapping(college_code),
    FOREIGN KEY (course_code) REFERENCES course_mapping(course_code)
);

CREATE TABLE branch_topper (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    registration_no TEXT,
    name TEXT,
    college_code TEXT,
    course_code INTEGER,
    cgpa REAL,
    overall_rank INTEGER,
    FOREIGN KEY (college_code) REFERENCES college_mapping(college_code),
    FOREIGN KEY (course_code) REFERENCES course_mapping(course_code)
);

CREATE INDEX idx_student_college ON students(college_code);
CREATE INDEX idx_student_course ON students(course_code);
CREATE INDEX idx_student_cgpa ON students(course_code, cgpa DESC);
CREATE INDEX idx_theory_reg ON theory_subjects(registration_no);
CREATE INDEX idx_practical_reg ON practical_subjects(registration_no);
`
