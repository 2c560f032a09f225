package outcome

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/course"
	"github.com/trezcool/alama/core/grade"
	"github.com/trezcool/alama/core/user"
)

// Service loads the rows the score aggregations run on.
type Service struct {
	courseRepo course.Repository
	gradeRepo  grade.Repository
	gradeStats grade.StatsRepository
	usrRepo    user.Repository
}

func NewService(
	courseRepo course.Repository,
	gradeRepo grade.Repository,
	gradeStats grade.StatsRepository,
	usrRepo user.Repository,
) *Service {
	return &Service{
		courseRepo: courseRepo,
		gradeRepo:  gradeRepo,
		gradeStats: gradeStats,
		usrRepo:    usrRepo,
	}
}

// department holds every row needed for department wide aggregations.
type department struct {
	pos             []course.ProgramOutcome
	rates           []course.ContributionRate
	grades          []grade.Grade
	gradesByStudent map[string][]grade.Grade
}

func (svc *Service) loadOutcomes(ctx context.Context) ([]course.ProgramOutcome, []course.ContributionRate, error) {
	pos, err := svc.courseRepo.QueryProgramOutcomes(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying program outcomes")
	}
	rates, err := svc.courseRepo.QueryContributionRates(ctx, course.RateFilter{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying contribution rates")
	}
	return pos, rates, nil
}

func (svc *Service) loadDepartment(ctx context.Context) (department, error) {
	var (
		dept department
		err  error
	)
	if dept.pos, dept.rates, err = svc.loadOutcomes(ctx); err != nil {
		return department{}, err
	}

	students, err := svc.usrRepo.QueryUsers(ctx, &user.QueryFilter{Roles: []user.Role{user.RoleStudent}}, nil)
	if err != nil {
		return department{}, errors.Wrap(err, "querying students")
	}
	if dept.grades, err = svc.gradeRepo.QueryGrades(ctx, grade.QueryFilter{}); err != nil {
		return department{}, errors.Wrap(err, "querying grades")
	}

	dept.gradesByStudent = make(map[string][]grade.Grade, len(students))
	for _, st := range students {
		dept.gradesByStudent[st.ID] = []grade.Grade{}
	}
	for _, g := range dept.grades {
		if grades, ok := dept.gradesByStudent[g.StudentID]; ok {
			dept.gradesByStudent[g.StudentID] = append(grades, g)
		}
	}
	return dept, nil
}

func (dept department) averages() Scores {
	return DepartmentPOAverages(dept.pos, dept.rates, dept.gradesByStudent)
}

func (svc *Service) StudentDashboard(ctx context.Context, actor user.User) (StudentDashboard, error) {
	if err := user.RequireStudent(actor); err != nil {
		return StudentDashboard{}, err
	}
	pos, rates, err := svc.loadOutcomes(ctx)
	if err != nil {
		return StudentDashboard{}, err
	}
	grades, err := svc.gradeRepo.QueryGrades(ctx, grade.QueryFilter{StudentID: actor.ID})
	if err != nil {
		return StudentDashboard{}, errors.Wrap(err, "querying grades")
	}

	coursePOScores := AggregateCoursePOScores(grades, rates)
	withDistributions(coursePOScores, rates)

	return StudentDashboard{
		Grades:          grades,
		POScores:        StudentPOScores(pos, rates, grades),
		ProgramOutcomes: pos,
		CoursePOScores:  coursePOScores,
	}, nil
}

func (svc *Service) InstructorDashboard(ctx context.Context, actor user.User) (InstructorDashboard, error) {
	if err := user.RequireInstructor(actor); err != nil {
		return InstructorDashboard{}, err
	}
	courses, err := svc.courseRepo.QueryCourses(ctx, course.QueryFilter{InstructorID: actor.ID})
	if err != nil {
		return InstructorDashboard{}, errors.Wrap(err, "querying courses")
	}
	stats, err := svc.gradeStats.CourseGradeStats(ctx, actor.ID)
	if err != nil {
		return InstructorDashboard{}, errors.Wrap(err, "computing course stats")
	}
	grade.SortCourseStats(stats)

	ids := make([]string, 0, len(courses))
	for _, crs := range courses {
		ids = append(ids, crs.ID)
	}
	rates, err := svc.courseRepo.QueryContributionRates(ctx, course.RateFilter{CourseIDs: ids})
	if err != nil {
		return InstructorDashboard{}, errors.Wrap(err, "querying contribution rates")
	}
	grades, err := svc.gradeRepo.QueryGrades(ctx, grade.QueryFilter{InstructorID: actor.ID})
	if err != nil {
		return InstructorDashboard{}, errors.Wrap(err, "querying grades")
	}

	scores := AggregateCoursePOScores(grades, rates)
	withDistributions(scores, rates)
	return InstructorDashboard{
		Courses:        courses,
		CourseStats:    stats,
		CoursePOScores: scores,
	}, nil
}

func (svc *Service) HeadDashboard(ctx context.Context, actor user.User) (HeadDashboard, error) {
	if err := user.RequireDepartmentHead(actor); err != nil {
		return HeadDashboard{}, err
	}
	dept, err := svc.loadDepartment(ctx)
	if err != nil {
		return HeadDashboard{}, err
	}

	breakdown := AggregateCoursePOScores(dept.grades, dept.rates)
	withDistributions(breakdown, dept.rates)

	dash := HeadDashboard{
		DepartmentAverages:  dept.averages(),
		ProgramOutcomes:     dept.pos,
		TotalStudents:       len(dept.gradesByStudent),
		ProgramOutcomeCount: len(dept.pos),
		CoursePOBreakdown:   breakdown,
	}
	dash.summarizeDepartment()
	return dash, nil
}

func (svc *Service) DepartmentRadar(ctx context.Context, actor user.User) (DepartmentRadar, error) {
	if err := user.RequireDepartmentHead(actor); err != nil {
		return DepartmentRadar{}, err
	}
	dept, err := svc.loadDepartment(ctx)
	if err != nil {
		return DepartmentRadar{}, err
	}
	return NewDepartmentRadar(dept.pos, dept.averages()), nil
}

// CourseRadar returns course.ErrCourseNotFound for an unknown course.
func (svc *Service) CourseRadar(ctx context.Context, actor user.User, courseID string) (CourseRadar, error) {
	if err := user.RequireDepartmentHead(actor); err != nil {
		return CourseRadar{}, err
	}
	crs, err := svc.courseRepo.GetCourse(ctx, course.GetFilter{ID: courseID})
	if err != nil {
		if core.IsNotFound(err) {
			return CourseRadar{}, err
		}
		return CourseRadar{}, errors.Wrap(err, "finding course")
	}
	dept, err := svc.loadDepartment(ctx)
	if err != nil {
		return CourseRadar{}, err
	}

	var scores *CoursePOScores
	for _, cs := range AggregateCoursePOScores(dept.grades, dept.rates) {
		if cs.CourseID == crs.ID {
			cs := cs
			scores = &cs
			break
		}
	}
	return NewCourseRadar(crs, dept.pos, scores, dept.averages()), nil
}

func withDistributions(scores []CoursePOScores, rates []course.ContributionRate) {
	ids := make([]string, 0, len(scores))
	for _, cs := range scores {
		ids = append(ids, cs.CourseID)
	}
	dists := BuildCoursePODistributions(ids, rates)
	for i := range scores {
		scores[i].Distribution = dists[scores[i].CourseID]
	}
}
