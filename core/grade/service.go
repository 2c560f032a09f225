package grade

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/course"
	"github.com/trezcool/alama/core/user"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("grade")
	ErrAuditNotFound = core.NewNotFoundError("grade audit log")

	errGradeExists  = errors.New("a grade already exists for this student and learning outcome")
	errInvalidScore = errors.New("score must be between 0 and 100")
)

type (
	Repository interface {
		CreateGrade(ctx context.Context, g Grade, exec ...core.DBExecutor) (Grade, error)
		GetGrade(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Grade, error)
		// UpdateGrade updates Score and UpdatedAt only.
		UpdateGrade(ctx context.Context, g Grade, exec ...core.DBExecutor) (Grade, error)
		// QueryGrades returns the grades matching filter, ordered by course code, student username
		// then learning outcome code.
		QueryGrades(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Grade, error)

		CreateAuditLog(ctx context.Context, log AuditLog, exec ...core.DBExecutor) (AuditLog, error)
		// QueryAuditLogs returns the matching audit logs, newest AccessedAt first.
		QueryAuditLogs(ctx context.Context, filter AuditLogFilter, exec ...core.DBExecutor) ([]AuditLog, error)
	}

	StatsRepository interface {
		// CourseGradeStats summarises the grades of every course taught by instructorID.
		CourseGradeStats(ctx context.Context, instructorID string, exec ...core.DBExecutor) ([]CourseStats, error)
	}

	Service struct {
		db         core.DB
		repo       Repository
		stats      StatsRepository
		courseRepo course.Repository
		usrRepo    user.Repository
		logger     core.Logger
	}
)

func NewService(
	db core.DB,
	repo Repository,
	stats StatsRepository,
	courseRepo course.Repository,
	usrRepo user.Repository,
	logger core.Logger,
) *Service {
	return &Service{
		db:         db,
		repo:       repo,
		stats:      stats,
		courseRepo: courseRepo,
		usrRepo:    usrRepo,
		logger:     logger,
	}
}

// EnterGrade records a new grade. The actor must teach the course, the learning outcome must belong to it
// and no grade may already exist for the (student, course, learning outcome) key.
func (svc *Service) EnterGrade(ctx context.Context, actor user.User, ng NewGrade) (Grade, error) {
	if err := user.RequireInstructor(actor); err != nil {
		return Grade{}, err
	}
	if err := checkScore(ng.Score); err != nil {
		return Grade{}, err
	}
	if _, err := svc.courseRepo.GetCourse(ctx, course.GetFilter{ID: ng.CourseID, InstructorID: actor.ID}); err != nil {
		if err == course.ErrCourseNotFound {
			return Grade{}, core.NewValidationError(err, core.FieldError{Field: "course_id", Error: "course not found"})
		}
		return Grade{}, errors.Wrap(err, "finding course")
	}

	var created Grade
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if _, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: ng.StudentID, Role: user.RoleStudent}, tx); err != nil {
			if err == user.ErrNotFound {
				return core.NewValidationError(err, core.FieldError{Field: "student_id", Error: "student not found"})
			}
			return errors.Wrap(err, "finding student")
		}

		lo, err := svc.courseRepo.GetLearningOutcome(ctx, ng.LearningOutcomeID, tx)
		if err != nil && err != course.ErrLearningOutcomeNotFound {
			return errors.Wrap(err, "finding learning outcome")
		}
		if err != nil || lo.CourseID != ng.CourseID {
			return core.NewValidationError(course.ErrLearningOutcomeNotFound, core.FieldError{
				Field: "learning_outcome_id", Error: "learning outcome does not belong to this course",
			})
		}

		key := Key{StudentID: ng.StudentID, CourseID: ng.CourseID, LearningOutcomeID: ng.LearningOutcomeID}
		if _, err = svc.repo.GetGrade(ctx, GetFilter{Key: key}, tx); err == nil {
			return core.NewValidationError(errGradeExists)
		} else if err != ErrNotFound {
			return errors.Wrap(err, "checking existing grade")
		}

		now := core.NowFunc()
		created, err = svc.repo.CreateGrade(ctx, Grade{
			StudentID:         ng.StudentID,
			CourseID:          ng.CourseID,
			LearningOutcomeID: ng.LearningOutcomeID,
			Score:             *ng.Score,
			CreatedAt:         now,
			UpdatedAt:         now,
		}, tx)
		return errors.Wrap(err, "creating grade")
	})
	if err != nil {
		return Grade{}, err
	}
	return created, nil
}

// UpdateScore changes the score of a grade in a course taught by actor. CreatedAt is left untouched.
func (svc *Service) UpdateScore(ctx context.Context, actor user.User, gradeID string, ug UpdateGrade) (Grade, error) {
	if err := user.RequireInstructor(actor); err != nil {
		return Grade{}, err
	}
	if err := checkScore(ug.Score); err != nil {
		return Grade{}, err
	}

	g, err := svc.repo.GetGrade(ctx, GetFilter{ID: gradeID})
	if err != nil {
		return Grade{}, err
	}
	if _, err = svc.courseRepo.GetCourse(ctx, course.GetFilter{ID: g.CourseID, InstructorID: actor.ID}); err != nil {
		if err == course.ErrCourseNotFound {
			return Grade{}, ErrNotFound // do not leak other instructors' grades
		}
		return Grade{}, errors.Wrap(err, "finding course")
	}

	g.Score = *ug.Score
	g.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateGrade(ctx, g)
}

// checkScore rejects a missing or out of range score.
func checkScore(score *int) error {
	if score == nil || *score < 0 || *score > 100 {
		return core.NewValidationError(errInvalidScore, core.FieldError{Field: "score", Error: errInvalidScore.Error()})
	}
	return nil
}

// StudentGrades returns actor's own grades.
func (svc *Service) StudentGrades(ctx context.Context, actor user.User) ([]Grade, error) {
	if err := user.RequireStudent(actor); err != nil {
		return nil, err
	}
	return svc.repo.QueryGrades(ctx, QueryFilter{StudentID: actor.ID})
}

// InstructorGrades returns the grades of every course taught by actor.
func (svc *Service) InstructorGrades(ctx context.Context, actor user.User) ([]Grade, error) {
	if err := user.RequireInstructor(actor); err != nil {
		return nil, err
	}
	return svc.repo.QueryGrades(ctx, QueryFilter{InstructorID: actor.ID})
}

// InstructorCourseStats returns per-course grade stats of actor's courses, best average first.
func (svc *Service) InstructorCourseStats(ctx context.Context, actor user.User) ([]CourseStats, error) {
	if err := user.RequireInstructor(actor); err != nil {
		return nil, err
	}
	stats, err := svc.stats.CourseGradeStats(ctx, actor.ID)
	if err != nil {
		return nil, errors.Wrap(err, "computing course grade stats")
	}
	SortCourseStats(stats)
	return stats, nil
}

// SortCourseStats rounds the averages of stats to 2 places and orders them best average first.
func SortCourseStats(stats []CourseStats) {
	for i := range stats {
		stats[i].AverageScore = core.Round(stats[i].AverageScore, 2)
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].AverageScore > stats[j].AverageScore })
}
