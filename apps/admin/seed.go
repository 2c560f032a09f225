package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/attendance"
	"github.com/trezcool/alama/core/course"
	"github.com/trezcool/alama/core/grade"
	"github.com/trezcool/alama/core/user"
)

var errAlreadySeeded = errors.New("database already seeded")

type seedUser struct {
	uname, first, last string
	role               user.Role
}

var (
	seedUsers = []seedUser{
		{"head", "Helen", "Mbuyi", user.RoleDepartmentHead},
		{"instructor", "Ivan", "Kalala", user.RoleInstructor},
		{"student1", "Amani", "Ilunga", user.RoleStudent},
		{"student2", "Baraka", "Tshibanda", user.RoleStudent},
		{"student3", "Chance", "Mutombo", user.RoleStudent},
	}

	seedPOs = []course.ProgramOutcome{
		{Code: "PO1", Description: "Apply knowledge of computing and mathematics"},
		{Code: "PO2", Description: "Analyze a problem and define its requirements"},
		{Code: "PO3", Description: "Design and evaluate computing solutions"},
	}

	// course code -> LO code -> PO code -> percentage
	seedRates = map[string]map[string]map[string]int{
		"CS101": {
			"LO1": {"PO1": 60, "PO2": 40},
			"LO2": {"PO2": 50, "PO3": 50},
		},
		"CS201": {
			"LO1": {"PO1": 30, "PO3": 70},
			"LO2": {"PO2": 100},
		},
	}

	seedCourses = []course.Course{
		{Code: "CS101", Name: "Introduction to Programming"},
		{Code: "CS201", Name: "Data Structures"},
	}

	seedStatuses = []attendance.Status{attendance.StatusPresent, attendance.StatusLate, attendance.StatusAbsent}
)

// seed creates a small demo department. Every seeded user gets pwd.
func (cli *commandLine) seed(pwd string) error {
	ctx := context.Background()
	if _, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: seedUsers[0].uname}); err == nil {
		return errAlreadySeeded
	} else if err != user.ErrNotFound {
		return err
	}

	return core.RunInTx(ctx, cli.db, func(tx core.DBExecutor) error {
		now := core.NowFunc()

		var instructor user.User
		students := make([]user.User, 0, len(seedUsers))
		for _, su := range seedUsers {
			usr := user.User{
				Username:  su.uname,
				Email:     su.uname + "@alama.test",
				FirstName: su.first,
				LastName:  su.last,
				Role:      su.role,
				IsActive:  true,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := usr.SetPassword(pwd); err != nil {
				return err
			}
			usr, err := cli.usrRepo.CreateUser(ctx, usr, tx)
			if err != nil {
				return errors.Wrapf(err, "creating user %s", su.uname)
			}
			switch usr.Role {
			case user.RoleInstructor:
				instructor = usr
			case user.RoleStudent:
				students = append(students, usr)
			}
		}

		poIDs := make(map[string]string, len(seedPOs))
		for _, po := range seedPOs {
			created, err := cli.courseRepo.CreateProgramOutcome(ctx, po, tx)
			if err != nil {
				return errors.Wrapf(err, "creating program outcome %s", po.Code)
			}
			poIDs[po.Code] = created.ID
		}

		for ci, sc := range seedCourses {
			sc.InstructorID = instructor.ID
			crs, err := cli.courseRepo.CreateCourse(ctx, sc, tx)
			if err != nil {
				return errors.Wrapf(err, "creating course %s", sc.Code)
			}

			for _, loCode := range []string{"LO1", "LO2"} {
				lo, err := cli.courseRepo.CreateLearningOutcome(ctx, course.LearningOutcome{
					CourseID:    crs.ID,
					Code:        loCode,
					Description: fmt.Sprintf("%s outcome %s", crs.Name, loCode),
				}, tx)
				if err != nil {
					return errors.Wrapf(err, "creating learning outcome %s/%s", crs.Code, loCode)
				}
				for poCode, pct := range seedRates[crs.Code][loCode] {
					_, err = cli.courseRepo.SaveContributionRate(ctx, course.ContributionRate{
						LearningOutcomeID: lo.ID,
						ProgramOutcomeID:  poIDs[poCode],
						Percentage:        pct,
					}, tx)
					if err != nil {
						return errors.Wrapf(err, "creating contribution rate %s/%s", loCode, poCode)
					}
				}

				for si, st := range students {
					createdAt := now.AddDate(0, 0, -7*(si+1))
					_, err = cli.gradeRepo.CreateGrade(ctx, grade.Grade{
						StudentID:         st.ID,
						CourseID:          crs.ID,
						LearningOutcomeID: lo.ID,
						Score:             60 + (ci*13+si*11+len(loCode)*3)%40,
						CreatedAt:         createdAt,
						UpdatedAt:         createdAt,
					}, tx)
					if err != nil {
						return errors.Wrapf(err, "creating grade for %s", st.Username)
					}
				}
			}

			today := core.TruncateDate(now)
			for day := 1; day <= 5; day++ {
				date := today.AddDate(0, 0, -day)
				for si, st := range students {
					_, err = cli.attendanceRepo.CreateAttendance(ctx, attendance.Record{
						StudentID: st.ID,
						CourseID:  crs.ID,
						Date:      date,
						Status:    seedStatuses[(day+si+ci)%len(seedStatuses)],
						CreatedAt: now,
						UpdatedAt: now,
					}, tx)
					if err != nil {
						return errors.Wrapf(err, "creating attendance for %s", st.Username)
					}
				}
			}
		}
		return nil
	})
}
