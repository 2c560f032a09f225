package boiledrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/attendance"
	"github.com/trezcool/alama/core/grade"
)

// statsRepository runs the aggregate queries of the dashboards as raw sqlboiler queries.
type statsRepository struct {
	db *sqlx.DB
}

var (
	// interface compliance checks
	_ grade.StatsRepository      = (*statsRepository)(nil)
	_ attendance.StatsRepository = (*statsRepository)(nil)
)

func NewStatsRepository(db *sqlx.DB) *statsRepository {
	return &statsRepository{db: db}
}

func (repo statsRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.db
}

type courseStatsRow struct {
	CourseID     string  `boil:"course_id"`
	CourseCode   string  `boil:"course_code"`
	CourseName   string  `boil:"course_name"`
	AverageScore float64 `boil:"average_score"`
	StudentCount int     `boil:"student_count"`
	GradeCount   int     `boil:"grade_count"`
}

func (repo statsRepository) CourseGradeStats(ctx context.Context, instructorID string, exec ...core.DBExecutor) ([]grade.CourseStats, error) {
	q := repo.db.Rebind(`SELECT c.id AS course_id, c.code AS course_code, c.name AS course_name,
		COALESCE(AVG(g.score), 0) AS average_score,
		COUNT(DISTINCT g.student_id) AS student_count,
		COUNT(g.id) AS grade_count
		FROM courses c
		LEFT JOIN grades g ON g.course_id = c.id
		WHERE c.instructor_id = ?
		GROUP BY c.id, c.code, c.name
		ORDER BY c.code`)

	var rows []courseStatsRow
	if err := queries.Raw(q, instructorID).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "computing course grade stats")
	}

	stats := make([]grade.CourseStats, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, grade.CourseStats(row))
	}
	return stats, nil
}

type courseTallyRow struct {
	CourseID   string `boil:"course_id"`
	CourseCode string `boil:"course_code"`
	CourseName string `boil:"course_name"`
	Present    int    `boil:"present"`
	Absent     int    `boil:"absent"`
	Late       int    `boil:"late"`
}

func (repo statsRepository) CourseTallies(ctx context.Context, exec ...core.DBExecutor) ([]attendance.CourseTally, error) {
	q := repo.db.Rebind(`SELECT c.id AS course_id, c.code AS course_code, c.name AS course_name,
		COALESCE(SUM(CASE WHEN a.status = ? THEN 1 ELSE 0 END), 0) AS present,
		COALESCE(SUM(CASE WHEN a.status = ? THEN 1 ELSE 0 END), 0) AS absent,
		COALESCE(SUM(CASE WHEN a.status = ? THEN 1 ELSE 0 END), 0) AS late
		FROM courses c
		LEFT JOIN attendance a ON a.course_id = c.id
		GROUP BY c.id, c.code, c.name
		ORDER BY c.code`)

	var rows []courseTallyRow
	err := queries.Raw(q, string(attendance.StatusPresent), string(attendance.StatusAbsent), string(attendance.StatusLate)).
		Bind(ctx, repo.getExec(exec), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "counting attendance")
	}

	tallies := make([]attendance.CourseTally, 0, len(rows))
	for _, row := range rows {
		tallies = append(tallies, attendance.CourseTally{
			CourseID:   row.CourseID,
			CourseCode: row.CourseCode,
			CourseName: row.CourseName,
			Tally:      attendance.Tally{Present: row.Present, Absent: row.Absent, Late: row.Late},
		})
	}
	return tallies, nil
}
