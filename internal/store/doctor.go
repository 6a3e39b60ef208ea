package store

import (
	"context"
	"fmt"
)

type DoctorIssueLevel string

const (
	DoctorIssueLevelError DoctorIssueLevel = "error"
	DoctorIssueLevelWarn  DoctorIssueLevel = "warn"
)

type DoctorIssue struct {
	Level   DoctorIssueLevel `json:"level"`
	Code    string           `json:"code"`
	Message string           `json:"message"`
}

type DoctorReport struct {
	Path      string        `json:"path"`
	Integrity string        `json:"integrity"`
	Courses   int           `json:"courses"`
	UIStates  int           `json:"uiStates"`
	Issues    []DoctorIssue `json:"issues"`
}

func (r DoctorReport) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Level == DoctorIssueLevelError {
			return true
		}
	}
	return false
}

// Doctor validates the local state database: sqlite integrity, plus a scan
// for snapshot rows whose course header is missing (an interrupted pull).
func (s Store) Doctor(ctx context.Context) DoctorReport {
	report := DoctorReport{Path: s.Path}
	fail := func(code string, err error) DoctorReport {
		report.Issues = append(report.Issues, DoctorIssue{
			Level:   DoctorIssueLevelError,
			Code:    code,
			Message: err.Error(),
		})
		return report
	}

	db, err := s.open(ctx)
	if err != nil {
		return fail("open", err)
	}
	defer db.Close()

	if err := db.QueryRowContext(ctx, `PRAGMA integrity_check;`).Scan(&report.Integrity); err != nil {
		return fail("integrity", err)
	}
	if report.Integrity != "ok" {
		report.Issues = append(report.Issues, DoctorIssue{
			Level:   DoctorIssueLevelError,
			Code:    "integrity",
			Message: "sqlite integrity_check: " + report.Integrity,
		})
	}

	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snap_courses`).Scan(&report.Courses); err != nil {
		return fail("count", err)
	}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ui_state`).Scan(&report.UIStates); err != nil {
		return fail("count", err)
	}

	var orphans int
	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM snap_projects p
		WHERE NOT EXISTS (SELECT 1 FROM snap_courses c WHERE c.id = p.course_id)`).Scan(&orphans)
	if err != nil {
		return fail("orphans", err)
	}
	if orphans > 0 {
		report.Issues = append(report.Issues, DoctorIssue{
			Level:   DoctorIssueLevelWarn,
			Code:    "orphan-projects",
			Message: fmt.Sprintf("%d snapshot projects without a course header; re-run `chalk pull`", orphans),
		})
	}

	return report
}
