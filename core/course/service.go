package course

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/user"
)

var (
	// errors
	ErrCourseNotFound          = core.NewNotFoundError("course")
	ErrLearningOutcomeNotFound = core.NewNotFoundError("learning outcome")
	ErrProgramOutcomeNotFound  = core.NewNotFoundError("program outcome")
	ErrRateNotFound            = core.NewNotFoundError("contribution rate")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		GetCourse(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Course, error)
		// QueryCourses returns the courses matching filter, ordered by code.
		QueryCourses(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Course, error)

		CreateLearningOutcome(ctx context.Context, lo LearningOutcome, exec ...core.DBExecutor) (LearningOutcome, error)
		GetLearningOutcome(ctx context.Context, id string, exec ...core.DBExecutor) (LearningOutcome, error)
		// QueryLearningOutcomes returns the learning outcomes of a course, ordered by code.
		QueryLearningOutcomes(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]LearningOutcome, error)

		CreateProgramOutcome(ctx context.Context, po ProgramOutcome, exec ...core.DBExecutor) (ProgramOutcome, error)
		GetProgramOutcome(ctx context.Context, id, code string, exec ...core.DBExecutor) (ProgramOutcome, error)
		// QueryProgramOutcomes returns all program outcomes, ordered by code.
		QueryProgramOutcomes(ctx context.Context, exec ...core.DBExecutor) ([]ProgramOutcome, error)

		// SaveContributionRate inserts the rate, or updates the percentage of the existing (LO, PO) edge.
		SaveContributionRate(ctx context.Context, cr ContributionRate, exec ...core.DBExecutor) (ContributionRate, error)
		// QueryContributionRates returns the rates matching filter (all when empty),
		// ordered by program outcome code then learning outcome description.
		QueryContributionRates(ctx context.Context, filter RateFilter, exec ...core.DBExecutor) ([]ContributionRate, error)

		// QueryEnrolledStudents returns the students holding at least one grade in the course,
		// ordered by first name, last name then username.
		QueryEnrolledStudents(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]user.User, error)
	}

	Service struct {
		repo    Repository
		usrRepo user.Repository
	}
)

func NewService(repo Repository, usrRepo user.Repository) *Service {
	return &Service{repo: repo, usrRepo: usrRepo}
}

func (svc *Service) CreateCourse(ctx context.Context, actor user.User, nc NewCourse) (Course, error) {
	if err := user.RequireSuperuser(actor); err != nil {
		return Course{}, err
	}

	if _, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: nc.InstructorID, Role: user.RoleInstructor}); err != nil {
		if err == user.ErrNotFound {
			return Course{}, core.NewValidationError(err, core.FieldError{Field: "instructor_id", Error: "instructor not found"})
		}
		return Course{}, errors.Wrap(err, "finding instructor")
	}
	if _, err := svc.repo.GetCourse(ctx, GetFilter{Code: nc.Code}); err == nil {
		return Course{}, core.NewValidationError(nil, core.FieldError{Field: "code", Error: "a course with this code already exists"})
	} else if err != ErrCourseNotFound {
		return Course{}, errors.Wrap(err, "checking course code")
	}

	return svc.repo.CreateCourse(ctx, Course{Code: nc.Code, Name: nc.Name, InstructorID: nc.InstructorID})
}

func (svc *Service) CreateLearningOutcome(ctx context.Context, actor user.User, nlo NewLearningOutcome) (LearningOutcome, error) {
	if err := user.RequireSuperuser(actor); err != nil {
		return LearningOutcome{}, err
	}

	if _, err := svc.repo.GetCourse(ctx, GetFilter{ID: nlo.CourseID}); err != nil {
		return LearningOutcome{}, err
	}
	los, err := svc.repo.QueryLearningOutcomes(ctx, nlo.CourseID)
	if err != nil {
		return LearningOutcome{}, errors.Wrap(err, "querying learning outcomes")
	}
	for _, lo := range los {
		if lo.Code == nlo.Code {
			return LearningOutcome{}, core.NewValidationError(nil, core.FieldError{
				Field: "code", Error: "a learning outcome with this code already exists for this course",
			})
		}
	}

	return svc.repo.CreateLearningOutcome(ctx, LearningOutcome{CourseID: nlo.CourseID, Code: nlo.Code, Description: nlo.Description})
}

func (svc *Service) CreateProgramOutcome(ctx context.Context, actor user.User, npo NewProgramOutcome) (ProgramOutcome, error) {
	if err := user.RequireSuperuser(actor); err != nil {
		return ProgramOutcome{}, err
	}

	if _, err := svc.repo.GetProgramOutcome(ctx, "", npo.Code); err == nil {
		return ProgramOutcome{}, core.NewValidationError(nil, core.FieldError{Field: "code", Error: "a program outcome with this code already exists"})
	} else if err != ErrProgramOutcomeNotFound {
		return ProgramOutcome{}, errors.Wrap(err, "checking program outcome code")
	}

	return svc.repo.CreateProgramOutcome(ctx, ProgramOutcome{Code: npo.Code, Description: npo.Description})
}

func (svc *Service) SetContributionRate(ctx context.Context, actor user.User, ncr NewContributionRate) (ContributionRate, error) {
	if err := user.RequireSuperuser(actor); err != nil {
		return ContributionRate{}, err
	}

	if _, err := svc.repo.GetLearningOutcome(ctx, ncr.LearningOutcomeID); err != nil {
		return ContributionRate{}, err
	}
	if _, err := svc.repo.GetProgramOutcome(ctx, ncr.ProgramOutcomeID, ""); err != nil {
		return ContributionRate{}, err
	}

	return svc.repo.SaveContributionRate(ctx, ContributionRate{
		LearningOutcomeID: ncr.LearningOutcomeID,
		ProgramOutcomeID:  ncr.ProgramOutcomeID,
		Percentage:        ncr.Percentage,
	})
}

func (svc *Service) ProgramOutcomes(ctx context.Context) ([]ProgramOutcome, error) {
	return svc.repo.QueryProgramOutcomes(ctx)
}

// InstructorCourses returns the courses taught by actor.
func (svc *Service) InstructorCourses(ctx context.Context, actor user.User) ([]Course, error) {
	if err := user.RequireInstructor(actor); err != nil {
		return nil, err
	}
	return svc.repo.QueryCourses(ctx, QueryFilter{InstructorID: actor.ID})
}

// GetInstructorCourse returns the course if actor teaches it, ErrCourseNotFound otherwise.
func (svc *Service) GetInstructorCourse(ctx context.Context, actor user.User, courseID string) (Course, error) {
	if err := user.RequireInstructor(actor); err != nil {
		return Course{}, err
	}
	return svc.repo.GetCourse(ctx, GetFilter{ID: courseID, InstructorID: actor.ID})
}

// CourseLearningOutcomes returns the learning outcomes of a course taught by actor.
func (svc *Service) CourseLearningOutcomes(ctx context.Context, actor user.User, courseID string) ([]LearningOutcome, error) {
	if _, err := svc.GetInstructorCourse(ctx, actor, courseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryLearningOutcomes(ctx, courseID)
}

// EnrolledStudents returns the students graded in a course taught by actor.
func (svc *Service) EnrolledStudents(ctx context.Context, actor user.User, courseID string) ([]user.User, error) {
	if _, err := svc.GetInstructorCourse(ctx, actor, courseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryEnrolledStudents(ctx, courseID)
}
