package attendance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/course"
	"github.com/trezcool/alama/core/user"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("attendance record")

	errMissingDate = errors.New("date is required")
)

type (
	Repository interface {
		GetAttendance(ctx context.Context, key Key, exec ...core.DBExecutor) (Record, error)
		CreateAttendance(ctx context.Context, rec Record, exec ...core.DBExecutor) (Record, error)
		// UpdateAttendance updates Status and UpdatedAt only.
		UpdateAttendance(ctx context.Context, rec Record, exec ...core.DBExecutor) (Record, error)
		// QueryAttendance returns the matching records ordered by course code, then newest date first.
		QueryAttendance(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Record, error)
	}

	StatsRepository interface {
		// CourseTallies counts the attendance records of every course (courses without records included),
		// ordered by course code.
		CourseTallies(ctx context.Context, exec ...core.DBExecutor) ([]CourseTally, error)
	}

	Service struct {
		db         core.DB
		repo       Repository
		stats      StatsRepository
		courseRepo course.Repository
		usrRepo    user.Repository
		logger     core.Logger
	}

	// validation policy of a submission
	policy int

	entry struct {
		studentID string
		status    Status
	}
)

const (
	// allOrNothing rejects the whole batch on the first invalid entry
	allOrNothing policy = iota
	// skipInvalid drops invalid entries and applies the rest
	skipInvalid
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

// SubmitForm applies a batch submitted through the attendance form.
// Any unknown student or invalid status fails the whole batch with a *core.ValidationError and nothing is written.
func (svc *Service) SubmitForm(ctx context.Context, actor user.User, sub Submission) (Result, error) {
	return svc.submit(ctx, actor, sub, allOrNothing)
}

// Sync applies a batch pushed through the JSON sync API. Unknown students and invalid statuses are skipped.
func (svc *Service) Sync(ctx context.Context, actor user.User, sub Submission) (Result, error) {
	return svc.submit(ctx, actor, sub, skipInvalid)
}

// submit validates then upserts every entry of sub inside one transaction.
// A store failure at any point rolls back the whole batch and is returned as a *core.PersistenceError.
func (svc *Service) submit(ctx context.Context, actor user.User, sub Submission, pol policy) (Result, error) {
	if err := user.RequireInstructor(actor); err != nil {
		return Result{}, err
	}
	if _, err := svc.courseRepo.GetCourse(ctx, course.GetFilter{ID: sub.CourseID, InstructorID: actor.ID}); err != nil {
		if err == course.ErrCourseNotFound {
			return Result{}, err
		}
		return Result{}, errors.Wrap(err, "finding course")
	}
	if sub.Date.IsZero() {
		return Result{}, core.NewValidationError(errMissingDate, core.FieldError{Field: "date", Error: errMissingDate.Error()})
	}
	date := core.TruncateDate(sub.Date)

	var res Result
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		entries, skipped, err := svc.validEntries(ctx, sub.Entries, pol, tx)
		if err != nil {
			return err
		}
		res = Result{Skipped: skipped}

		for _, e := range entries {
			created, err := svc.upsert(ctx, Key{StudentID: e.studentID, CourseID: sub.CourseID, Date: date}, e.status, tx)
			if err != nil {
				return errors.Wrapf(err, "saving attendance of student %s", e.studentID)
			}
			if created {
				res.Created++
			} else {
				res.Updated++
			}
		}
		return nil
	})
	if err != nil {
		if core.IsValidationError(err) {
			return Result{}, err
		}
		svc.logger.Warn(fmt.Sprintf("attendance batch rolled back: %v", err), err, actor)
		if core.IsPersistenceError(err) {
			return Result{}, err
		}
		return Result{}, core.NewPersistenceError(err)
	}
	return res, nil
}

// validEntries resolves the entries of a batch, in student ID order. No write happens here.
func (svc *Service) validEntries(ctx context.Context, raw map[string]string, pol policy, tx core.DBExecutor) ([]entry, int, error) {
	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var skipped int
	seen := make(map[string]bool, len(ids))
	entries := make([]entry, 0, len(ids))
	for _, id := range ids {
		studentID := core.CleanString(id)
		if seen[studentID] {
			if pol == allOrNothing {
				return nil, 0, core.NewValidationError(
					fmt.Errorf("student %s submitted more than once", studentID),
					core.FieldError{Field: id, Error: "duplicate student"},
				)
			}
			skipped++
			continue
		}
		seen[studentID] = true

		status, ok := ParseStatus(raw[id])
		if !ok {
			if pol == allOrNothing {
				return nil, 0, core.NewValidationError(
					fmt.Errorf("invalid status %q for student %s", raw[id], id),
					core.FieldError{Field: id, Error: statusText},
				)
			}
			skipped++
			continue
		}

		if _, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: studentID, Role: user.RoleStudent}, tx); err != nil {
			if err != user.ErrNotFound {
				return nil, 0, errors.Wrap(err, "finding student")
			}
			if pol == allOrNothing {
				return nil, 0, core.NewValidationError(
					fmt.Errorf("student %s not found", id),
					core.FieldError{Field: id, Error: "student not found"},
				)
			}
			skipped++
			continue
		}
		entries = append(entries, entry{studentID: studentID, status: status})
	}
	return entries, skipped, nil
}

// upsert updates the record of key in place if it exists, inserts it otherwise. It reports whether it inserted.
func (svc *Service) upsert(ctx context.Context, key Key, status Status, tx core.DBExecutor) (bool, error) {
	now := core.NowFunc()

	rec, err := svc.repo.GetAttendance(ctx, key, tx)
	switch {
	case err == nil:
		rec.Status = status
		rec.UpdatedAt = now
		_, err = svc.repo.UpdateAttendance(ctx, rec, tx)
		return false, err
	case err == ErrNotFound:
		_, err = svc.repo.CreateAttendance(ctx, Record{
			StudentID: key.StudentID,
			CourseID:  key.CourseID,
			Date:      key.Date,
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		}, tx)
		return true, err
	default:
		return false, err
	}
}

// CourseDay returns the statuses already recorded for a course taught by actor on date, keyed by student ID.
func (svc *Service) CourseDay(ctx context.Context, actor user.User, courseID string, date time.Time) (map[string]Status, error) {
	if err := user.RequireInstructor(actor); err != nil {
		return nil, err
	}
	if _, err := svc.courseRepo.GetCourse(ctx, course.GetFilter{ID: courseID, InstructorID: actor.ID}); err != nil {
		return nil, err
	}

	records, err := svc.repo.QueryAttendance(ctx, QueryFilter{CourseID: courseID, Date: core.TruncateDate(date)})
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	statuses := make(map[string]Status, len(records))
	for _, r := range records {
		statuses[r.StudentID] = r.Status
	}
	return statuses, nil
}

// StudentSummary returns actor's own attendance, per course.
func (svc *Service) StudentSummary(ctx context.Context, actor user.User) (StudentSummary, error) {
	if err := user.RequireStudent(actor); err != nil {
		return StudentSummary{}, err
	}
	records, err := svc.repo.QueryAttendance(ctx, QueryFilter{StudentID: actor.ID})
	if err != nil {
		return StudentSummary{}, errors.Wrap(err, "querying attendance")
	}
	return Summarize(records), nil
}

// CourseAverages returns the present percentage of every course, for department heads.
func (svc *Service) CourseAverages(ctx context.Context, actor user.User) ([]CourseAverage, error) {
	if err := user.RequireDepartmentHead(actor); err != nil {
		return nil, err
	}
	tallies, err := svc.stats.CourseTallies(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "counting attendance")
	}

	avgs := make([]CourseAverage, 0, len(tallies))
	for _, ct := range tallies {
		avgs = append(avgs, CourseAverage{
			CourseID:   ct.CourseID,
			CourseCode: ct.CourseCode,
			CourseName: ct.CourseName,
			Tally:      ct.Tally,
			Average:    ct.Tally.PresentPercentage(),
		})
	}
	return avgs, nil
}
