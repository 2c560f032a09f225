package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/attendance"
	"github.com/trezcool/alama/core/course"
	"github.com/trezcool/alama/core/grade"
	"github.com/trezcool/alama/core/user"
	logsvc "github.com/trezcool/alama/services/logger"
	"github.com/trezcool/alama/storage/database"
)

// PrepareDB opens a migrated in-memory sqlite database, closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.Open(core.NewTestConfig())
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// NewValidator returns a validator with every custom rule and English translation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	user.LoadCommonPasswords(logsvc.NewNopLogger())
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	firstName, uname, email, pwd string,
	role user.Role,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := core.NowFunc()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		FirstName: firstName,
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo course.Repository, code, name, instructorID string) course.Course {
	t.Helper()

	crs, err := repo.CreateCourse(context.Background(), course.Course{Code: code, Name: name, InstructorID: instructorID})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateLearningOutcome(t *testing.T, repo course.Repository, courseID, code, description string) course.LearningOutcome {
	t.Helper()

	lo, err := repo.CreateLearningOutcome(context.Background(), course.LearningOutcome{
		CourseID:    courseID,
		Code:        code,
		Description: description,
	})
	if err != nil {
		t.Fatalf("CreateLearningOutcome() failed: %v", err)
	}
	return lo
}

func CreateProgramOutcome(t *testing.T, repo course.Repository, code, description string) course.ProgramOutcome {
	t.Helper()

	po, err := repo.CreateProgramOutcome(context.Background(), course.ProgramOutcome{Code: code, Description: description})
	if err != nil {
		t.Fatalf("CreateProgramOutcome() failed: %v", err)
	}
	return po
}

func CreateContributionRate(t *testing.T, repo course.Repository, loID, poID string, percentage int) course.ContributionRate {
	t.Helper()

	cr, err := repo.SaveContributionRate(context.Background(), course.ContributionRate{
		LearningOutcomeID: loID,
		ProgramOutcomeID:  poID,
		Percentage:        percentage,
	})
	if err != nil {
		t.Fatalf("CreateContributionRate() failed: %v", err)
	}
	return cr
}

func CreateGrade(t *testing.T, repo grade.Repository, studentID string, lo course.LearningOutcome, score int, createdAt ...time.Time) grade.Grade {
	t.Helper()

	tstamp := core.NowFunc()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	g, err := repo.CreateGrade(context.Background(), grade.Grade{
		StudentID:         studentID,
		CourseID:          lo.CourseID,
		LearningOutcomeID: lo.ID,
		Score:             score,
		CreatedAt:         tstamp,
		UpdatedAt:         tstamp,
	})
	if err != nil {
		t.Fatalf("CreateGrade() failed: %v", err)
	}
	return g
}

func CreateAttendance(t *testing.T, repo attendance.Repository, studentID, courseID string, date time.Time, status attendance.Status) attendance.Record {
	t.Helper()

	now := core.NowFunc()
	rec, err := repo.CreateAttendance(context.Background(), attendance.Record{
		StudentID: studentID,
		CourseID:  courseID,
		Date:      date,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateAttendance() failed: %v", err)
	}
	return rec
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
