package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/attendance"
	"github.com/trezcool/alama/core/course"
	"github.com/trezcool/alama/core/grade"
	"github.com/trezcool/alama/core/user"
	"github.com/trezcool/alama/storage/database/sqlx"
	"github.com/trezcool/alama/tests"
)

func TestUserRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewUserRepository(db)
	ctx := context.Background()

	t0 := time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)
	alice := testutil.CreateUser(t, repo, "Alice", "alice", "alice@test.cd", "Pass1234!", user.RoleStudent, true, t0)
	bob := testutil.CreateUser(t, repo, "Bob", "bob", "", "", user.RoleInstructor, true, t0.Add(time.Hour))
	_ = testutil.CreateUser(t, repo, "Carl", "carl", "", "", user.RoleStudent, false, t0.Add(2*time.Hour))

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetUser(ctx, user.GetFilter{ID: alice.ID})
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)
		assert.Equal(t, t0, got.CreatedAt)
		assert.NoError(t, got.CheckPassword("Pass1234!"))

		got, err = repo.GetUser(ctx, user.GetFilter{UsernameOrEmail: "alice@test.cd"})
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)

		_, err = repo.GetUser(ctx, user.GetFilter{ID: alice.ID, Role: user.RoleInstructor})
		assert.Equal(t, user.ErrNotFound, err)
		_, err = repo.GetUser(ctx, user.GetFilter{ID: "not-a-uuid"})
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("uniqueness", func(t *testing.T) {
		assert.Equal(t, user.ErrUsernameExists, repo.CheckUsernameUniqueness(ctx, "alice", "other@test.cd", nil))
		assert.Equal(t, user.ErrEmailExists, repo.CheckUsernameUniqueness(ctx, "zoe", "alice@test.cd", nil))
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "alice", "alice@test.cd", []user.User{alice}))
		// empty emails never collide
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "zoe", "", nil))
	})

	t.Run("query", func(t *testing.T) {
		active := true
		got, err := repo.QueryUsers(ctx, &user.QueryFilter{Roles: []user.Role{user.RoleStudent}, IsActive: &active}, nil)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, alice.ID, got[0].ID)

		got, err = repo.QueryUsers(ctx, &user.QueryFilter{Search: "BO"}, nil)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, bob.ID, got[0].ID)

		got, err = repo.QueryUsers(ctx, &user.QueryFilter{CreatedFrom: t0.Add(30 * time.Minute)}, []core.DBOrdering{{Field: "created_at"}})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "carl", got[0].Username)
		assert.Equal(t, "bob", got[1].Username)
	})

	t.Run("update", func(t *testing.T) {
		bob.LastName = "Builder"
		bob.LastLogin = t0.Add(24 * time.Hour)
		_, err := repo.UpdateUser(ctx, bob)
		require.NoError(t, err)

		got, err := repo.GetUser(ctx, user.GetFilter{ID: bob.ID})
		require.NoError(t, err)
		assert.Equal(t, "Bob Builder", got.FullName())
		assert.Equal(t, bob.LastLogin, got.LastLogin)
	})
}

func TestCourseRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	repo := sqlxrepos.NewCourseRepository(db)
	gradeRepo := sqlxrepos.NewGradeRepository(db)
	ctx := context.Background()

	inst := testutil.CreateUser(t, usrRepo, "Ines", "ines", "", "", user.RoleInstructor, true)
	zed := testutil.CreateUser(t, usrRepo, "Zed", "zed", "", "", user.RoleStudent, true)
	amy := testutil.CreateUser(t, usrRepo, "Amy", "amy", "", "", user.RoleStudent, true)
	_ = testutil.CreateUser(t, usrRepo, "Ben", "ben", "", "", user.RoleStudent, true)

	math := testutil.CreateCourse(t, repo, "MATH101", "Calculus", inst.ID)
	cs := testutil.CreateCourse(t, repo, "CS101", "Programming", inst.ID)
	lo1 := testutil.CreateLearningOutcome(t, repo, math.ID, "LO1", "Solve equations")
	lo2 := testutil.CreateLearningOutcome(t, repo, math.ID, "LO2", "Apply calculus")
	lo3 := testutil.CreateLearningOutcome(t, repo, cs.ID, "LO1", "Write programs")
	po1 := testutil.CreateProgramOutcome(t, repo, "PO1", "Knowledge")
	po2 := testutil.CreateProgramOutcome(t, repo, "PO2", "Analysis")

	t.Run("courses", func(t *testing.T) {
		got, err := repo.QueryCourses(ctx, course.QueryFilter{InstructorID: inst.ID})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "CS101", got[0].Code)

		_, err = repo.GetCourse(ctx, course.GetFilter{ID: math.ID, InstructorID: zed.ID})
		assert.Equal(t, course.ErrCourseNotFound, err)

		got, err = repo.QueryCourses(ctx, course.QueryFilter{IDs: []string{math.ID}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, math, got[0])
	})

	t.Run("contribution rates", func(t *testing.T) {
		testutil.CreateContributionRate(t, repo, lo1.ID, po2.ID, 40)
		testutil.CreateContributionRate(t, repo, lo2.ID, po2.ID, 60)
		testutil.CreateContributionRate(t, repo, lo3.ID, po1.ID, 100)

		// saving the same edge updates it in place
		cr := testutil.CreateContributionRate(t, repo, lo1.ID, po2.ID, 50)
		assert.Equal(t, 50, cr.Percentage)
		assert.Equal(t, "PO2", cr.ProgramOutcomeCode)
		assert.Equal(t, math.ID, cr.CourseID)

		got, err := repo.QueryContributionRates(ctx, course.RateFilter{CourseIDs: []string{math.ID}})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Apply calculus", got[0].LearningOutcomeDescription)
		assert.Equal(t, "Solve equations", got[1].LearningOutcomeDescription)
		assert.Equal(t, 50, got[1].Percentage)

		all, err := repo.QueryContributionRates(ctx, course.RateFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "PO1", all[0].ProgramOutcomeCode)
	})

	t.Run("enrolled students", func(t *testing.T) {
		testutil.CreateGrade(t, gradeRepo, zed.ID, lo1, 70)
		testutil.CreateGrade(t, gradeRepo, amy.ID, lo2, 80)
		testutil.CreateGrade(t, gradeRepo, amy.ID, lo1, 90)

		got, err := repo.QueryEnrolledStudents(ctx, math.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "amy", got[0].Username)
		assert.Equal(t, "zed", got[1].Username)
	})
}

func TestGradeRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	repo := sqlxrepos.NewGradeRepository(db)
	ctx := context.Background()

	inst := testutil.CreateUser(t, usrRepo, "Ines", "ines", "", "", user.RoleInstructor, true)
	head := testutil.CreateUser(t, usrRepo, "Hank", "hank", "", "", user.RoleDepartmentHead, true)
	stud := testutil.CreateUser(t, usrRepo, "Sam", "sam", "", "", user.RoleStudent, true)
	crs := testutil.CreateCourse(t, courseRepo, "MATH101", "Calculus", inst.ID)
	lo1 := testutil.CreateLearningOutcome(t, courseRepo, crs.ID, "LO1", "Solve equations")
	lo2 := testutil.CreateLearningOutcome(t, courseRepo, crs.ID, "LO2", "Apply calculus")

	t0 := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	g1 := testutil.CreateGrade(t, repo, stud.ID, lo1, 80, t0)
	g2 := testutil.CreateGrade(t, repo, stud.ID, lo2, 60, t0.Add(48*time.Hour))

	t.Run("joined fields", func(t *testing.T) {
		got, err := repo.GetGrade(ctx, grade.GetFilter{Key: g1.Key()})
		require.NoError(t, err)
		assert.Equal(t, g1.ID, got.ID)
		assert.Equal(t, "sam", got.StudentUsername)
		assert.Equal(t, "Sam", got.StudentName)
		assert.Equal(t, "MATH101", got.CourseCode)
		assert.Equal(t, "LO1", got.LearningOutcomeCode)
	})

	t.Run("update keeps created_at", func(t *testing.T) {
		g2.Score = 75
		g2.UpdatedAt = t0.Add(72 * time.Hour)
		got, err := repo.UpdateGrade(ctx, g2)
		require.NoError(t, err)
		assert.Equal(t, 75, got.Score)
		assert.Equal(t, t0.Add(48*time.Hour), got.CreatedAt)
		assert.Equal(t, t0.Add(72*time.Hour), got.UpdatedAt)
	})

	t.Run("snapshot filter", func(t *testing.T) {
		got, err := repo.QueryGrades(ctx, grade.QueryFilter{CreatedAtMax: t0.Add(24 * time.Hour)})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, g1.ID, got[0].ID)

		got, err = repo.QueryGrades(ctx, grade.QueryFilter{CreatedAtMax: t0})
		require.NoError(t, err)
		assert.Len(t, got, 1, "created_at <= snapshot is inclusive")

		got, err = repo.QueryGrades(ctx, grade.QueryFilter{InstructorID: inst.ID})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "LO1", got[0].LearningOutcomeCode)
	})

	t.Run("audit logs", func(t *testing.T) {
		filters := map[string]interface{}{"course_id": crs.ID, "date_range": nil}
		for i := 0; i < 3; i++ {
			_, err := repo.CreateAuditLog(ctx, grade.AuditLog{
				AccessedBy:     head.ID,
				SnapshotTime:   t0,
				AccessedAt:     t0.Add(time.Duration(i) * time.Minute),
				FiltersApplied: filters,
				RecordsCount:   i,
			})
			require.NoError(t, err)
		}

		got, err := repo.QueryAuditLogs(ctx, grade.AuditLogFilter{AccessedBy: head.ID, Limit: 2})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 2, got[0].RecordsCount)
		assert.Equal(t, 1, got[1].RecordsCount)
		assert.Equal(t, grade.ReportTypeGradeAudit, got[0].ReportType)
		assert.Equal(t, filters, got[0].FiltersApplied)
	})
}

func TestAttendanceRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	repo := sqlxrepos.NewAttendanceRepository(db)
	ctx := context.Background()

	inst := testutil.CreateUser(t, usrRepo, "Ines", "ines", "", "", user.RoleInstructor, true)
	stud := testutil.CreateUser(t, usrRepo, "Sam", "sam", "", "", user.RoleStudent, true)
	math := testutil.CreateCourse(t, courseRepo, "MATH101", "Calculus", inst.ID)
	cs := testutil.CreateCourse(t, courseRepo, "CS101", "Programming", inst.ID)

	d1, d2 := testutil.Date(2024, time.March, 1), testutil.Date(2024, time.March, 2)
	rec := testutil.CreateAttendance(t, repo, stud.ID, math.ID, d1, attendance.StatusPresent)
	testutil.CreateAttendance(t, repo, stud.ID, math.ID, d2, attendance.StatusLate)
	testutil.CreateAttendance(t, repo, stud.ID, cs.ID, d1, attendance.StatusAbsent)

	got, err := repo.GetAttendance(ctx, attendance.Key{StudentID: stud.ID, CourseID: math.ID, Date: d1})
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, d1, got.Date)

	_, err = repo.GetAttendance(ctx, attendance.Key{StudentID: stud.ID, CourseID: cs.ID, Date: d2})
	assert.Equal(t, attendance.ErrNotFound, err)

	got.Status = attendance.StatusAbsent
	_, err = repo.UpdateAttendance(ctx, got)
	require.NoError(t, err)

	records, err := repo.QueryAttendance(ctx, attendance.QueryFilter{StudentID: stud.ID})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "CS101", records[0].CourseCode)
	assert.Equal(t, d2, records[1].Date, "newest date first")
	assert.Equal(t, attendance.StatusAbsent, records[2].Status)

	records, err = repo.QueryAttendance(ctx, attendance.QueryFilter{CourseID: math.ID, Date: d2})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, attendance.StatusLate, records[0].Status)
}
