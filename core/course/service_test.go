package course_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/course"
	"github.com/trezcool/alama/core/user"
	sqlxrepos "github.com/trezcool/alama/storage/database/sqlx"
	testutil "github.com/trezcool/alama/tests"
)

type fixture struct {
	svc        *course.Service
	repo       course.Repository
	admin      user.User
	instructor user.User
	other      user.User
	student    user.User
}

func setup(t *testing.T) fixture {
	t.Helper()

	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	repo := sqlxrepos.NewCourseRepository(db)

	f := fixture{svc: course.NewService(repo, usrRepo), repo: repo}
	f.admin = testutil.CreateUser(t, usrRepo, "Ada", "ada", "ada@x.io", "", user.RoleDepartmentHead, true)
	f.admin.IsSuperuser = true
	f.admin, _ = usrRepo.UpdateUser(context.Background(), f.admin)
	f.instructor = testutil.CreateUser(t, usrRepo, "Ivy", "ivy", "ivy@x.io", "", user.RoleInstructor, true)
	f.other = testutil.CreateUser(t, usrRepo, "Oscar", "oscar", "oscar@x.io", "", user.RoleInstructor, true)
	f.student = testutil.CreateUser(t, usrRepo, "Alice", "alice", "alice@x.io", "", user.RoleStudent, true)
	return f
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "want a validation error, got %v", err)
	require.NotEmpty(t, vErr.Fields)
	return vErr.Fields[0].Field
}

func TestService_CreateCourse(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	crs, err := f.svc.CreateCourse(ctx, f.admin, course.NewCourse{Code: "CS101", Name: "Intro", InstructorID: f.instructor.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, crs.ID)
	assert.Equal(t, "CS101 - Intro", crs.Label())

	_, err = f.svc.CreateCourse(ctx, f.admin, course.NewCourse{Code: "CS101", Name: "Again", InstructorID: f.instructor.ID})
	assert.Equal(t, "code", fieldOf(t, err))

	_, err = f.svc.CreateCourse(ctx, f.admin, course.NewCourse{Code: "CS102", Name: "Intro", InstructorID: f.student.ID})
	assert.Equal(t, "instructor_id", fieldOf(t, err))

	_, err = f.svc.CreateCourse(ctx, f.instructor, course.NewCourse{Code: "CS103", Name: "Intro", InstructorID: f.instructor.ID})
	assert.True(t, core.IsPermissionDenied(err))
}

func TestService_Outcomes(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	crs := testutil.CreateCourse(t, f.repo, "CS101", "Intro", f.instructor.ID)

	lo, err := f.svc.CreateLearningOutcome(ctx, f.admin, course.NewLearningOutcome{CourseID: crs.ID, Code: "LO1", Description: "Write programs"})
	require.NoError(t, err)
	_, err = f.svc.CreateLearningOutcome(ctx, f.admin, course.NewLearningOutcome{CourseID: crs.ID, Code: "LO1", Description: "Again"})
	assert.Equal(t, "code", fieldOf(t, err))
	_, err = f.svc.CreateLearningOutcome(ctx, f.admin, course.NewLearningOutcome{CourseID: "nope", Code: "LO1", Description: "x"})
	assert.Equal(t, course.ErrCourseNotFound, err)

	po, err := f.svc.CreateProgramOutcome(ctx, f.admin, course.NewProgramOutcome{Code: "PO1", Description: "Knowledge"})
	require.NoError(t, err)
	_, err = f.svc.CreateProgramOutcome(ctx, f.admin, course.NewProgramOutcome{Code: "PO1", Description: "Again"})
	assert.Equal(t, "code", fieldOf(t, err))

	t.Run("contribution rate is upserted", func(t *testing.T) {
		cr, err := f.svc.SetContributionRate(ctx, f.admin, course.NewContributionRate{LearningOutcomeID: lo.ID, ProgramOutcomeID: po.ID, Percentage: 40})
		require.NoError(t, err)
		cr2, err := f.svc.SetContributionRate(ctx, f.admin, course.NewContributionRate{LearningOutcomeID: lo.ID, ProgramOutcomeID: po.ID, Percentage: 70})
		require.NoError(t, err)
		assert.Equal(t, cr.ID, cr2.ID)
		assert.Equal(t, 70, cr2.Percentage)
		assert.Equal(t, crs.ID, cr2.CourseID)
		assert.Equal(t, 0.7, cr2.Weight())

		rates, err := f.repo.QueryContributionRates(ctx, course.RateFilter{})
		require.NoError(t, err)
		assert.Len(t, rates, 1)

		_, err = f.svc.SetContributionRate(ctx, f.admin, course.NewContributionRate{LearningOutcomeID: lo.ID, ProgramOutcomeID: "nope", Percentage: 10})
		assert.Equal(t, course.ErrProgramOutcomeNotFound, err)
	})

	t.Run("instructor scope", func(t *testing.T) {
		los, err := f.svc.CourseLearningOutcomes(ctx, f.instructor, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, []course.LearningOutcome{lo}, los)

		_, err = f.svc.CourseLearningOutcomes(ctx, f.other, crs.ID)
		assert.Equal(t, course.ErrCourseNotFound, err)

		courses, err := f.svc.InstructorCourses(ctx, f.instructor)
		require.NoError(t, err)
		assert.Equal(t, []course.Course{crs}, courses)

		_, err = f.svc.InstructorCourses(ctx, f.student)
		assert.True(t, core.IsPermissionDenied(err))
	})
}

func TestNewCourse_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	nc := course.NewCourse{Code: "  CS101 ", Name: " Intro ", InstructorID: "x"}
	require.NoError(t, nc.Validate(validate))
	assert.Equal(t, "CS101", nc.Code)
	assert.Equal(t, "Intro", nc.Name)

	assert.Error(t, (&course.NewCourse{Name: "Intro", InstructorID: "x"}).Validate(validate))
	assert.Error(t, (&course.NewContributionRate{LearningOutcomeID: "a", ProgramOutcomeID: "b", Percentage: 120}).Validate(validate))
}
