package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/course"
	"github.com/trezcool/alama/core/user"
)

type (
	courseRow struct {
		ID           string `db:"id"`
		Code         string `db:"code"`
		Name         string `db:"name"`
		InstructorID string `db:"instructor_id"`
	}

	learningOutcomeRow struct {
		ID          string `db:"id"`
		CourseID    string `db:"course_id"`
		Code        string `db:"code"`
		Description string `db:"description"`
	}

	programOutcomeRow struct {
		ID          string `db:"id"`
		Code        string `db:"code"`
		Description string `db:"description"`
	}

	rateRow struct {
		ID                         string `db:"id"`
		LearningOutcomeID          string `db:"learning_outcome_id"`
		ProgramOutcomeID           string `db:"program_outcome_id"`
		Percentage                 int    `db:"percentage"`
		CourseID                   string `db:"course_id"`
		LearningOutcomeCode        string `db:"lo_code"`
		LearningOutcomeDescription string `db:"lo_description"`
		ProgramOutcomeCode         string `db:"po_code"`
		ProgramOutcomeDescription  string `db:"po_description"`
	}
)

const rateSelect = `SELECT cr.id, cr.learning_outcome_id, cr.program_outcome_id, cr.percentage, lo.course_id,
	lo.code AS lo_code, lo.description AS lo_description, po.code AS po_code, po.description AS po_description
	FROM contribution_rates cr
	JOIN learning_outcomes lo ON lo.id = cr.learning_outcome_id
	JOIN program_outcomes po ON po.id = cr.program_outcome_id`

type courseRepository struct {
	repository
	users *userRepository
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{repository: repository{db: db}, users: NewUserRepository(db)}
}

func (repo courseRepository) unboilCourse(row courseRow) course.Course {
	return course.Course{ID: row.ID, Code: row.Code, Name: row.Name, InstructorID: row.InstructorID}
}

func (repo courseRepository) unboilRate(row rateRow) course.ContributionRate {
	return course.ContributionRate{
		ID:                         row.ID,
		LearningOutcomeID:          row.LearningOutcomeID,
		ProgramOutcomeID:           row.ProgramOutcomeID,
		Percentage:                 row.Percentage,
		CourseID:                   row.CourseID,
		LearningOutcomeCode:        row.LearningOutcomeCode,
		LearningOutcomeDescription: row.LearningOutcomeDescription,
		ProgramOutcomeCode:         row.ProgramOutcomeCode,
		ProgramOutcomeDescription:  row.ProgramOutcomeDescription,
	}
}

// trapNoRowsErr maps the "no rows" err to notFound
func (repo courseRepository) trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	crs.ID = uuid.New().String()
	q := "INSERT INTO courses (id, code, name, instructor_id) VALUES (?, ?, ?, ?)"
	if err := repo.execute(ctx, repo.getExec(exec), q, crs.ID, crs.Code, crs.Name, crs.InstructorID); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, filter course.GetFilter, exec ...core.DBExecutor) (course.Course, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.ID != "" {
		conds = append(conds, "id = ?")
		args = append(args, filter.ID)
	}
	if filter.Code != "" {
		conds = append(conds, "code = ?")
		args = append(args, filter.Code)
	}
	if filter.InstructorID != "" {
		conds = append(conds, "instructor_id = ?")
		args = append(args, filter.InstructorID)
	}
	if len(conds) == 0 {
		return course.Course{}, course.ErrCourseNotFound
	}

	var row courseRow
	q := "SELECT id, code, name, instructor_id FROM courses WHERE " + strings.Join(conds, " AND ")
	if err := repo.selectOne(ctx, repo.getExec(exec), &row, q, args...); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, course.ErrCourseNotFound, "finding course")
	}
	return repo.unboilCourse(row), nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter, exec ...core.DBExecutor) ([]course.Course, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.InstructorID != "" {
		conds = append(conds, "instructor_id = ?")
		args = append(args, filter.InstructorID)
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return []course.Course{}, nil
		}
		conds = append(conds, "id IN (?)")
		args = append(args, filter.IDs)
	}

	q := "SELECT id, code, name, instructor_id FROM courses"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY code"
	q, args, err := in(q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}

	var rows []courseRow
	if err = repo.selectAll(ctx, repo.getExec(exec), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, repo.unboilCourse(row))
	}
	return courses, nil
}

func (repo courseRepository) CreateLearningOutcome(ctx context.Context, lo course.LearningOutcome, exec ...core.DBExecutor) (course.LearningOutcome, error) {
	lo.ID = uuid.New().String()
	q := "INSERT INTO learning_outcomes (id, course_id, code, description) VALUES (?, ?, ?, ?)"
	if err := repo.execute(ctx, repo.getExec(exec), q, lo.ID, lo.CourseID, lo.Code, lo.Description); err != nil {
		return course.LearningOutcome{}, errors.Wrap(err, "inserting learning outcome")
	}
	return lo, nil
}

func (repo courseRepository) GetLearningOutcome(ctx context.Context, id string, exec ...core.DBExecutor) (course.LearningOutcome, error) {
	var row learningOutcomeRow
	q := "SELECT id, course_id, code, description FROM learning_outcomes WHERE id = ?"
	if err := repo.selectOne(ctx, repo.getExec(exec), &row, q, id); err != nil {
		return course.LearningOutcome{}, repo.trapNoRowsErr(err, course.ErrLearningOutcomeNotFound, "finding learning outcome")
	}
	return course.LearningOutcome(row), nil
}

func (repo courseRepository) QueryLearningOutcomes(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.LearningOutcome, error) {
	var rows []learningOutcomeRow
	q := "SELECT id, course_id, code, description FROM learning_outcomes WHERE course_id = ? ORDER BY code"
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying learning outcomes")
	}
	los := make([]course.LearningOutcome, 0, len(rows))
	for _, row := range rows {
		los = append(los, course.LearningOutcome(row))
	}
	return los, nil
}

func (repo courseRepository) CreateProgramOutcome(ctx context.Context, po course.ProgramOutcome, exec ...core.DBExecutor) (course.ProgramOutcome, error) {
	po.ID = uuid.New().String()
	q := "INSERT INTO program_outcomes (id, code, description) VALUES (?, ?, ?)"
	if err := repo.execute(ctx, repo.getExec(exec), q, po.ID, po.Code, po.Description); err != nil {
		return course.ProgramOutcome{}, errors.Wrap(err, "inserting program outcome")
	}
	return po, nil
}

func (repo courseRepository) GetProgramOutcome(ctx context.Context, id, code string, exec ...core.DBExecutor) (course.ProgramOutcome, error) {
	var (
		conds []string
		args  []interface{}
	)
	if id != "" {
		conds = append(conds, "id = ?")
		args = append(args, id)
	}
	if code != "" {
		conds = append(conds, "code = ?")
		args = append(args, code)
	}
	if len(conds) == 0 {
		return course.ProgramOutcome{}, course.ErrProgramOutcomeNotFound
	}

	var row programOutcomeRow
	q := "SELECT id, code, description FROM program_outcomes WHERE " + strings.Join(conds, " AND ")
	if err := repo.selectOne(ctx, repo.getExec(exec), &row, q, args...); err != nil {
		return course.ProgramOutcome{}, repo.trapNoRowsErr(err, course.ErrProgramOutcomeNotFound, "finding program outcome")
	}
	return course.ProgramOutcome(row), nil
}

func (repo courseRepository) QueryProgramOutcomes(ctx context.Context, exec ...core.DBExecutor) ([]course.ProgramOutcome, error) {
	var rows []programOutcomeRow
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows, "SELECT id, code, description FROM program_outcomes ORDER BY code"); err != nil {
		return nil, errors.Wrap(err, "querying program outcomes")
	}
	pos := make([]course.ProgramOutcome, 0, len(rows))
	for _, row := range rows {
		pos = append(pos, course.ProgramOutcome(row))
	}
	return pos, nil
}

func (repo courseRepository) SaveContributionRate(ctx context.Context, cr course.ContributionRate, exec ...core.DBExecutor) (course.ContributionRate, error) {
	exe := repo.getExec(exec)

	var row rateRow
	q := rateSelect + " WHERE cr.learning_outcome_id = ? AND cr.program_outcome_id = ?"
	err := repo.selectOne(ctx, exe, &row, q, cr.LearningOutcomeID, cr.ProgramOutcomeID)
	switch {
	case err == nil:
		cr.ID = row.ID
		q = "UPDATE contribution_rates SET percentage = ? WHERE id = ?"
		if err = repo.execute(ctx, exe, q, cr.Percentage, cr.ID); err != nil {
			return course.ContributionRate{}, errors.Wrap(err, "updating contribution rate")
		}
	case err == sql.ErrNoRows:
		cr.ID = uuid.New().String()
		q = "INSERT INTO contribution_rates (id, learning_outcome_id, program_outcome_id, percentage) VALUES (?, ?, ?, ?)"
		if err = repo.execute(ctx, exe, q, cr.ID, cr.LearningOutcomeID, cr.ProgramOutcomeID, cr.Percentage); err != nil {
			return course.ContributionRate{}, errors.Wrap(err, "inserting contribution rate")
		}
	default:
		return course.ContributionRate{}, errors.Wrap(err, "finding contribution rate")
	}

	if err = repo.selectOne(ctx, exe, &row, rateSelect+" WHERE cr.id = ?", cr.ID); err != nil {
		return course.ContributionRate{}, repo.trapNoRowsErr(err, course.ErrRateNotFound, "finding contribution rate")
	}
	return repo.unboilRate(row), nil
}

func (repo courseRepository) QueryContributionRates(ctx context.Context, filter course.RateFilter, exec ...core.DBExecutor) ([]course.ContributionRate, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.CourseIDs != nil {
		if len(filter.CourseIDs) == 0 {
			return []course.ContributionRate{}, nil
		}
		conds = append(conds, "lo.course_id IN (?)")
		args = append(args, filter.CourseIDs)
	}
	if filter.LearningOutcomeIDs != nil {
		if len(filter.LearningOutcomeIDs) == 0 {
			return []course.ContributionRate{}, nil
		}
		conds = append(conds, "cr.learning_outcome_id IN (?)")
		args = append(args, filter.LearningOutcomeIDs)
	}

	q := rateSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY po.code, lo.description"
	q, args, err := in(q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying contribution rates")
	}

	var rows []rateRow
	if err = repo.selectAll(ctx, repo.getExec(exec), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying contribution rates")
	}
	rates := make([]course.ContributionRate, 0, len(rows))
	for _, row := range rows {
		rates = append(rates, repo.unboilRate(row))
	}
	return rates, nil
}

func (repo courseRepository) QueryEnrolledStudents(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]user.User, error) {
	q := "SELECT " + userColumns + ` FROM users
		WHERE role = ? AND id IN (SELECT student_id FROM grades WHERE course_id = ?)
		ORDER BY first_name, last_name, username`

	var rows []userRow
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows, q, string(user.RoleStudent), courseID); err != nil {
		return nil, errors.Wrap(err, "querying enrolled students")
	}
	return repo.users.unboilSlice(rows), nil
}
