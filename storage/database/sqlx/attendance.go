package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/attendance"
)

type attendanceRow struct {
	ID         string    `db:"id"`
	StudentID  string    `db:"student_id"`
	CourseID   string    `db:"course_id"`
	Date       time.Time `db:"date"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
	CourseCode string    `db:"course_code"`
	CourseName string    `db:"course_name"`
}

const attendanceSelect = `SELECT a.id, a.student_id, a.course_id, a.date, a.status, a.created_at, a.updated_at,
	c.code AS course_code, c.name AS course_name
	FROM attendance a
	JOIN courses c ON c.id = a.course_id`

type attendanceRepository struct {
	repository
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{repository{db: db}}
}

func (repo attendanceRepository) unboil(row attendanceRow) attendance.Record {
	return attendance.Record{
		ID:         row.ID,
		StudentID:  row.StudentID,
		CourseID:   row.CourseID,
		Date:       core.TruncateDate(row.Date),
		Status:     attendance.Status(row.Status),
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
		CourseCode: row.CourseCode,
		CourseName: row.CourseName,
	}
}

func (repo attendanceRepository) GetAttendance(ctx context.Context, key attendance.Key, exec ...core.DBExecutor) (attendance.Record, error) {
	var row attendanceRow
	q := attendanceSelect + " WHERE a.student_id = ? AND a.course_id = ? AND a.date = ?"
	err := repo.selectOne(ctx, repo.getExec(exec), &row, q, key.StudentID, key.CourseID, core.TruncateDate(key.Date))
	if err != nil {
		if err == sql.ErrNoRows {
			return attendance.Record{}, attendance.ErrNotFound
		}
		return attendance.Record{}, errors.Wrap(err, "finding attendance")
	}
	return repo.unboil(row), nil
}

func (repo attendanceRepository) CreateAttendance(ctx context.Context, rec attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	rec.ID = uuid.New().String()
	rec.Date = core.TruncateDate(rec.Date)
	q := `INSERT INTO attendance (id, student_id, course_id, date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	err := repo.execute(ctx, repo.getExec(exec), q,
		rec.ID, rec.StudentID, rec.CourseID, rec.Date, string(rec.Status), rec.CreatedAt.UTC(), rec.UpdatedAt.UTC())
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "inserting attendance")
	}
	return rec, nil
}

func (repo attendanceRepository) UpdateAttendance(ctx context.Context, rec attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	q := "UPDATE attendance SET status = ?, updated_at = ? WHERE id = ?"
	if err := repo.execute(ctx, repo.getExec(exec), q, string(rec.Status), rec.UpdatedAt.UTC(), rec.ID); err != nil {
		return attendance.Record{}, errors.Wrap(err, "updating attendance")
	}
	return rec, nil
}

func (repo attendanceRepository) QueryAttendance(ctx context.Context, filter attendance.QueryFilter, exec ...core.DBExecutor) ([]attendance.Record, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.StudentID != "" {
		conds = append(conds, "a.student_id = ?")
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conds = append(conds, "a.course_id = ?")
		args = append(args, filter.CourseID)
	}
	if !filter.Date.IsZero() {
		conds = append(conds, "a.date = ?")
		args = append(args, core.TruncateDate(filter.Date))
	}

	q := attendanceSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY c.code, a.date DESC"

	var rows []attendanceRow
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, repo.unboil(row))
	}
	return records, nil
}
