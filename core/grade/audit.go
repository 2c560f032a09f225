package grade

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/user"
)

const (
	defaultHistoryLimit = 10
	weeklySnapshotCount = 8
)

// GenerateAuditReport returns the grades as they existed at req.SnapshotTime (now when zero) and records
// the access in an AuditLog. Only department heads may generate it; others are rejected before any read.
//
// The snapshot is the predicate created_at <= snapshot_time, not a multi-version read: a grade updated after
// the snapshot time is reported with its current score. The read and the audit log insert share one transaction.
func (svc *Service) GenerateAuditReport(ctx context.Context, actor user.User, req AuditRequest) (AuditReport, error) {
	if err := user.RequireDepartmentHead(actor); err != nil {
		return AuditReport{}, err
	}

	snapshot := req.SnapshotTime.UTC()
	if req.SnapshotTime.IsZero() {
		snapshot = core.NowFunc()
	}
	filter := QueryFilter{
		CourseID:     req.CourseID,
		CreatedAtMax: snapshot,
		CreatedFrom:  req.CreatedFrom,
		CreatedTo:    req.CreatedTo,
	}

	var report AuditReport
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		grades, err := svc.repo.QueryGrades(ctx, filter, tx)
		if err != nil {
			return errors.Wrap(err, "querying snapshot grades")
		}

		log, err := svc.repo.CreateAuditLog(ctx, AuditLog{
			AccessedBy:     actor.ID,
			SnapshotTime:   snapshot,
			AccessedAt:     core.NowFunc(),
			ReportType:     ReportTypeGradeAudit,
			FiltersApplied: auditFilters(req),
			RecordsCount:   len(grades),
		}, tx)
		if err != nil {
			return errors.Wrap(err, "creating audit log")
		}

		if grades == nil {
			grades = []Grade{}
		}
		report = AuditReport{
			SnapshotTime: snapshot,
			Grades:       grades,
			Summary:      summarize(grades),
			AuditLog:     log,
		}
		return nil
	})
	if err != nil {
		if core.IsPersistenceError(err) {
			return AuditReport{}, err
		}
		return AuditReport{}, core.NewPersistenceError(err)
	}

	svc.logger.Info(
		fmt.Sprintf("grade audit report generated: %d records at %s", report.Summary.TotalGrades, snapshot.Format(time.RFC3339)),
		actor,
	)
	return report, nil
}

// HistoricalSnapshots returns actor's own previous audit logs, newest first.
func (svc *Service) HistoricalSnapshots(ctx context.Context, actor user.User, limit int) ([]AuditLog, error) {
	if err := user.RequireDepartmentHead(actor); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return svc.repo.QueryAuditLogs(ctx, AuditLogFilter{AccessedBy: actor.ID, Limit: limit})
}

// WeeklySnapshotTimes returns the ends (Sunday 23:59:59.999999 UTC) of the last 8 weeks, newest first.
// The first one is the most recent Sunday on or before now.
func WeeklySnapshotTimes(now time.Time) []time.Time {
	now = now.UTC()
	y, m, d := now.Date()
	lastSunday := time.Date(y, m, d, 23, 59, 59, 999999000, time.UTC).AddDate(0, 0, -int(now.Weekday()))

	times := make([]time.Time, 0, weeklySnapshotCount)
	for i := 0; i < weeklySnapshotCount; i++ {
		times = append(times, lastSunday.AddDate(0, 0, -7*i))
	}
	return times
}

func auditFilters(req AuditRequest) map[string]interface{} {
	filters := map[string]interface{}{
		"course_id":  nil,
		"date_range": nil,
	}
	if req.CourseID != "" {
		filters["course_id"] = req.CourseID
	}
	if !req.CreatedFrom.IsZero() || !req.CreatedTo.IsZero() {
		dateRange := map[string]interface{}{"start": nil, "end": nil}
		if !req.CreatedFrom.IsZero() {
			dateRange["start"] = req.CreatedFrom.UTC().Format(time.RFC3339Nano)
		}
		if !req.CreatedTo.IsZero() {
			dateRange["end"] = req.CreatedTo.UTC().Format(time.RFC3339Nano)
		}
		filters["date_range"] = dateRange
	}
	return filters
}

func summarize(grades []Grade) AuditSummary {
	summary := AuditSummary{TotalGrades: len(grades)}
	if len(grades) == 0 {
		return summary
	}

	students := make(map[string]struct{})
	courses := make(map[string]struct{})
	var total int
	for _, g := range grades {
		students[g.StudentID] = struct{}{}
		courses[g.CourseID] = struct{}{}
		total += g.Score
	}
	summary.TotalStudents = len(students)
	summary.TotalCourses = len(courses)
	summary.AverageScore = core.Round(float64(total)/float64(len(grades)), 2)
	return summary
}
