package store

import (
	"context"
	"fmt"
)

// Topper leaderboards are full rebuilds over the persisted students table:
// truncate, then re-rank with a window function. Only rows with a numeric
// CGPA participate. Must run strictly after the loader's final flush.
const (
	rebuildCollegeTopperSQL = `
		INSERT INTO college_topper (registration_no, name, college_code, course_code, cgpa, rank_in_college_branch)
		SELECT
			registration_no,
			name,
			college_code,
			course_code,
			cgpa,
			ROW_NUMBER() OVER (PARTITION BY college_code, course_code ORDER BY CAST(cgpa AS REAL) DESC) AS rank
		FROM students
		WHERE cgpa IS NOT NULL
		ORDER BY college_code, course_code, cgpa DESC`

	rebuildBranchTopperSQL = `
		INSERT INTO branch_topper (registration_no, name, college_code, course_code, cgpa, overall_rank)
		SELECT
			registration_no,
			name,
			college_code,
			course_code,
			cgpa,
			ROW_NUMBER() OVER (PARTITION BY course_code ORDER BY CAST(cgpa AS REAL) DESC) AS rank
		FROM students
		WHERE cgpa IS NOT NULL
		ORDER BY course_code, cgpa DESC`
)

// RebuildToppers regenerates both derived leaderboard tables from the
// students table. The delete and insert for each table run in one
// transaction so readers never observe a half-built leaderboard.
func (d *DB) RebuildToppers(ctx context.Context) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin topper rebuild: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, step := range []struct {
		name       string
		truncate   string
		rebuildSQL string
	}{
		{"college_topper", `DELETE FROM college_topper`, rebuildCollegeTopperSQL},
		{"branch_topper", `DELETE FROM branch_topper`, rebuildBranchTopperSQL},
	} {
		if _, err := tx.ExecContext(ctx, step.truncate); err != nil {
			return fmt.Errorf("truncate %s: %w", step.name, err)
		}
		if _, err := tx.ExecContext(ctx, step.rebuildSQL); err != nil {
			return fmt.Errorf("rebuild %s: %w", step.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit topper rebuild: %w", err)
	}
	return nil
}
