package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/attendance"
	"github.com/trezcool/alama/core/course"
	"github.com/trezcool/alama/core/user"
	metricsvc "github.com/trezcool/alama/services/metrics"
)

type attendanceAPI struct {
	usrSvc        *user.Service
	courseSvc     *course.Service
	attendanceSvc *attendance.Service
	metrics       *metricsvc.Metrics
	validate      *validator.Validate
}

func newAttendanceAPI(opts *Options) *attendanceAPI {
	return &attendanceAPI{
		usrSvc:        opts.UserSvc,
		courseSvc:     opts.CourseSvc,
		attendanceSvc: opts.AttendanceSvc,
		metrics:       opts.Metrics,
		validate:      opts.Validate,
	}
}

type (
	// SyncRequest is the body of the JSON attendance sync.
	SyncRequest struct {
		Course         string            `json:"course" validate:"required"`
		Date           string            `json:"date" validate:"required,date"`
		AttendanceData map[string]string `json:"attendance_data" validate:"required"`
	}

	SubmissionResponse struct {
		Success bool `json:"success"`
		attendance.Result
	}

	StudentStatus struct {
		Student user.User         `json:"student"`
		Status  attendance.Status `json:"status,omitempty"`
	}

	CourseDayResponse struct {
		Course   course.Course   `json:"course"`
		Date     string          `json:"date"`
		Students []StudentStatus `json:"students"`
	}
)

func (sr *SyncRequest) Validate(validate *validator.Validate) error {
	sr.Course = core.CleanString(sr.Course)
	return validate.Struct(sr)
}

// courseDay lists the students graded in a course with their status on ?date= (today by default).
func (api *attendanceAPI) courseDay(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	date, err := queryTime(ctx, "date")
	if err != nil {
		return err
	}
	if date.IsZero() {
		date = core.NowFunc()
	}
	date = core.TruncateDate(date)

	c := ctx.Request().Context()
	crs, err := api.courseSvc.GetInstructorCourse(c, usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	students, err := api.courseSvc.EnrolledStudents(c, usr, crs.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrolled students")
	}
	statuses, err := api.attendanceSvc.CourseDay(c, usr, crs.ID, date)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}

	res := CourseDayResponse{Course: crs, Date: date.Format(core.DateLayout), Students: make([]StudentStatus, 0, len(students))}
	for _, s := range students {
		res.Students = append(res.Students, StudentStatus{Student: s, Status: statuses[s.ID]})
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *attendanceAPI) submitForm(ctx echo.Context) error {
	var data attendance.FormSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FormSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	date, _ := core.ParseDate(data.Date)

	return api.submit(ctx, attendance.Submission{CourseID: ctx.Param("id"), Date: date, Entries: data.Attendance}, true)
}

func (api *attendanceAPI) sync(ctx echo.Context) error {
	var data SyncRequest
	if err := ctx.Bind(&data); err != nil {
		return core.NewValidationError(errors.Wrap(err, "binding to SyncRequest"))
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	date, _ := core.ParseDate(data.Date)

	return api.submit(ctx, attendance.Submission{CourseID: data.Course, Date: date, Entries: data.AttendanceData}, false)
}

func (api *attendanceAPI) submit(ctx echo.Context, sub attendance.Submission, form bool) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var res attendance.Result
	if form {
		res, err = api.attendanceSvc.SubmitForm(ctx.Request().Context(), usr, sub)
	} else {
		res, err = api.attendanceSvc.Sync(ctx.Request().Context(), usr, sub)
	}
	if err != nil {
		return errors.Wrap(err, "submitting attendance")
	}

	if api.metrics != nil {
		api.metrics.AttendanceWritten(res.Created, res.Updated, res.Skipped)
	}
	ctx.Logger().Infof("attendance of %s on %s: %d created, %d updated, %d skipped",
		sub.CourseID, sub.Date.Format(core.DateLayout), res.Created, res.Updated, res.Skipped)
	return ctx.JSON(http.StatusOK, SubmissionResponse{Success: true, Result: res})
}
