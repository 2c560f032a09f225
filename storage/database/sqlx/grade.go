package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/grade"
	"github.com/trezcool/alama/core/user"
)

type (
	gradeRow struct {
		ID                  string    `db:"id"`
		StudentID           string    `db:"student_id"`
		CourseID            string    `db:"course_id"`
		LearningOutcomeID   string    `db:"learning_outcome_id"`
		Score               int       `db:"score"`
		CreatedAt           time.Time `db:"created_at"`
		UpdatedAt           time.Time `db:"updated_at"`
		StudentUsername     string    `db:"student_username"`
		StudentFirstName    string    `db:"student_first_name"`
		StudentLastName     string    `db:"student_last_name"`
		CourseCode          string    `db:"course_code"`
		CourseName          string    `db:"course_name"`
		LearningOutcomeCode string    `db:"lo_code"`
	}

	auditLogRow struct {
		ID             string    `db:"id"`
		AccessedBy     string    `db:"accessed_by"`
		SnapshotTime   time.Time `db:"snapshot_time"`
		AccessedAt     time.Time `db:"accessed_at"`
		ReportType     string    `db:"report_type"`
		FiltersApplied null.JSON `db:"filters_applied"`
		RecordsCount   int       `db:"records_count"`
	}
)

const (
	gradeSelect = `SELECT g.id, g.student_id, g.course_id, g.learning_outcome_id, g.score, g.created_at, g.updated_at,
	u.username AS student_username, u.first_name AS student_first_name, u.last_name AS student_last_name,
	c.code AS course_code, c.name AS course_name, lo.code AS lo_code
	FROM grades g
	JOIN users u ON u.id = g.student_id
	JOIN courses c ON c.id = g.course_id
	JOIN learning_outcomes lo ON lo.id = g.learning_outcome_id`

	auditLogColumns = "id, accessed_by, snapshot_time, accessed_at, report_type, filters_applied, records_count"
)

type gradeRepository struct {
	repository
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *sqlx.DB) *gradeRepository {
	return &gradeRepository{repository{db: db}}
}

func (repo gradeRepository) unboil(row gradeRow) grade.Grade {
	student := user.User{Username: row.StudentUsername, FirstName: row.StudentFirstName, LastName: row.StudentLastName}
	return grade.Grade{
		ID:                  row.ID,
		StudentID:           row.StudentID,
		CourseID:            row.CourseID,
		LearningOutcomeID:   row.LearningOutcomeID,
		Score:               row.Score,
		CreatedAt:           row.CreatedAt.UTC(),
		UpdatedAt:           row.UpdatedAt.UTC(),
		StudentUsername:     row.StudentUsername,
		StudentName:         student.FullName(),
		CourseCode:          row.CourseCode,
		CourseName:          row.CourseName,
		LearningOutcomeCode: row.LearningOutcomeCode,
	}
}

func (repo gradeRepository) boilAuditLog(log grade.AuditLog) (auditLogRow, error) {
	row := auditLogRow{
		ID:           log.ID,
		AccessedBy:   log.AccessedBy,
		SnapshotTime: log.SnapshotTime.UTC(),
		AccessedAt:   log.AccessedAt.UTC(),
		ReportType:   log.ReportType,
		RecordsCount: log.RecordsCount,
	}
	if log.FiltersApplied != nil {
		data, err := json.Marshal(log.FiltersApplied)
		if err != nil {
			return auditLogRow{}, err
		}
		row.FiltersApplied = null.JSONFrom(data)
	}
	return row, nil
}

func (repo gradeRepository) unboilAuditLog(row auditLogRow) (grade.AuditLog, error) {
	log := grade.AuditLog{
		ID:           row.ID,
		AccessedBy:   row.AccessedBy,
		SnapshotTime: row.SnapshotTime.UTC(),
		AccessedAt:   row.AccessedAt.UTC(),
		ReportType:   row.ReportType,
		RecordsCount: row.RecordsCount,
	}
	if row.FiltersApplied.Valid {
		if err := row.FiltersApplied.Unmarshal(&log.FiltersApplied); err != nil {
			return grade.AuditLog{}, err
		}
	}
	return log, nil
}

// trapNoRowsErr maps the "no rows" err to grade.ErrNotFound
func (repo gradeRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return grade.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo gradeRepository) CreateGrade(ctx context.Context, g grade.Grade, exec ...core.DBExecutor) (grade.Grade, error) {
	g.ID = uuid.New().String()
	q := `INSERT INTO grades (id, student_id, course_id, learning_outcome_id, score, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	err := repo.execute(ctx, repo.getExec(exec), q,
		g.ID, g.StudentID, g.CourseID, g.LearningOutcomeID, g.Score, g.CreatedAt.UTC(), g.UpdatedAt.UTC())
	if err != nil {
		return grade.Grade{}, errors.Wrap(err, "inserting grade")
	}
	return repo.GetGrade(ctx, grade.GetFilter{ID: g.ID}, exec...)
}

func (repo gradeRepository) GetGrade(ctx context.Context, filter grade.GetFilter, exec ...core.DBExecutor) (grade.Grade, error) {
	var (
		q    string
		args []interface{}
	)
	switch {
	case filter.ID != "":
		q = gradeSelect + " WHERE g.id = ?"
		args = []interface{}{filter.ID}
	case filter.Key != grade.Key{}:
		q = gradeSelect + " WHERE g.student_id = ? AND g.course_id = ? AND g.learning_outcome_id = ?"
		args = []interface{}{filter.Key.StudentID, filter.Key.CourseID, filter.Key.LearningOutcomeID}
	default:
		return grade.Grade{}, grade.ErrNotFound
	}

	var row gradeRow
	if err := repo.selectOne(ctx, repo.getExec(exec), &row, q, args...); err != nil {
		return grade.Grade{}, repo.trapNoRowsErr(err, "finding grade")
	}
	return repo.unboil(row), nil
}

func (repo gradeRepository) UpdateGrade(ctx context.Context, g grade.Grade, exec ...core.DBExecutor) (grade.Grade, error) {
	q := "UPDATE grades SET score = ?, updated_at = ? WHERE id = ?"
	if err := repo.execute(ctx, repo.getExec(exec), q, g.Score, g.UpdatedAt.UTC(), g.ID); err != nil {
		return grade.Grade{}, errors.Wrap(err, "updating grade")
	}
	return repo.GetGrade(ctx, grade.GetFilter{ID: g.ID}, exec...)
}

func (repo gradeRepository) QueryGrades(ctx context.Context, filter grade.QueryFilter, exec ...core.DBExecutor) ([]grade.Grade, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.StudentID != "" {
		conds = append(conds, "g.student_id = ?")
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conds = append(conds, "g.course_id = ?")
		args = append(args, filter.CourseID)
	}
	if filter.InstructorID != "" {
		conds = append(conds, "c.instructor_id = ?")
		args = append(args, filter.InstructorID)
	}
	if !filter.CreatedAtMax.IsZero() {
		conds = append(conds, "g.created_at <= ?")
		args = append(args, filter.CreatedAtMax.UTC())
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, "g.created_at >= ?")
		args = append(args, filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, "g.created_at <= ?")
		args = append(args, filter.CreatedTo.UTC())
	}

	q := gradeSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY c.code, u.username, lo.code"

	var rows []gradeRow
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	grades := make([]grade.Grade, 0, len(rows))
	for _, row := range rows {
		grades = append(grades, repo.unboil(row))
	}
	return grades, nil
}

func (repo gradeRepository) CreateAuditLog(ctx context.Context, log grade.AuditLog, exec ...core.DBExecutor) (grade.AuditLog, error) {
	log.ID = uuid.New().String()
	if log.ReportType == "" {
		log.ReportType = grade.ReportTypeGradeAudit
	}
	row, err := repo.boilAuditLog(log)
	if err != nil {
		return grade.AuditLog{}, errors.Wrap(err, "encoding audit log filters")
	}

	q := "INSERT INTO grade_audit_logs (" + auditLogColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?)"
	err = repo.execute(ctx, repo.getExec(exec), q,
		row.ID, row.AccessedBy, row.SnapshotTime, row.AccessedAt, row.ReportType,
		null.NewString(string(row.FiltersApplied.JSON), row.FiltersApplied.Valid), row.RecordsCount)
	if err != nil {
		return grade.AuditLog{}, errors.Wrap(err, "inserting audit log")
	}
	return log, nil
}

func (repo gradeRepository) QueryAuditLogs(ctx context.Context, filter grade.AuditLogFilter, exec ...core.DBExecutor) ([]grade.AuditLog, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.AccessedBy != "" {
		conds = append(conds, "accessed_by = ?")
		args = append(args, filter.AccessedBy)
	}

	q := "SELECT " + auditLogColumns + " FROM grade_audit_logs"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY accessed_at DESC"
	if filter.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var rows []auditLogRow
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying audit logs")
	}
	logs := make([]grade.AuditLog, 0, len(rows))
	for _, row := range rows {
		log, err := repo.unboilAuditLog(row)
		if err != nil {
			return nil, errors.Wrap(err, "decoding audit log filters")
		}
		logs = append(logs, log)
	}
	return logs, nil
}
