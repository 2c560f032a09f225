package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/attendance"
	"github.com/trezcool/alama/core/grade"
	"github.com/trezcool/alama/core/outcome"
	"github.com/trezcool/alama/core/user"
	metricsvc "github.com/trezcool/alama/services/metrics"
)

type headAPI struct {
	usrSvc        *user.Service
	gradeSvc      *grade.Service
	outcomeSvc    *outcome.Service
	attendanceSvc *attendance.Service
	metrics       *metricsvc.Metrics
}

func registerHeadAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := headAPI{
		usrSvc:        opts.UserSvc,
		gradeSvc:      opts.GradeSvc,
		outcomeSvc:    opts.OutcomeSvc,
		attendanceSvc: opts.AttendanceSvc,
		metrics:       opts.Metrics,
	}

	hg := g.Group("/head", jwt, requireMiddleware(api.usrSvc, user.RequireDepartmentHead))
	hg.GET("/dashboard", api.dashboard)
	hg.GET("/attendance", api.attendance)
	hg.GET("/grade-audit", api.gradeAudit)
	hg.GET("/grade-audit/history", api.auditHistory)
	hg.GET("/grade-audit/weeks", api.auditWeeks)
	hg.GET("/radar/department", api.departmentRadar)
	hg.GET("/radar/course/:id", api.courseRadar)
}

func (api *headAPI) dashboard(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	dash, err := api.outcomeSvc.HeadDashboard(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "building department dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *headAPI) attendance(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	avgs, err := api.attendanceSvc.CourseAverages(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "computing attendance averages")
	}
	return ctx.JSON(http.StatusOK, avgs)
}

// gradeAudit reads snapshot_time, course, start and end from the query string.
func (api *headAPI) gradeAudit(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	req := grade.AuditRequest{CourseID: core.CleanString(ctx.QueryParam("course"))}
	if req.SnapshotTime, err = queryTime(ctx, "snapshot_time"); err != nil {
		return err
	}
	if req.CreatedFrom, err = queryTime(ctx, "start"); err != nil {
		return err
	}
	if req.CreatedTo, err = queryTime(ctx, "end"); err != nil {
		return err
	}
	if _, dErr := core.ParseDate(ctx.QueryParam("end")); dErr == nil {
		// a bare end date covers its whole day
		req.CreatedTo = req.CreatedTo.Add(24*time.Hour - time.Microsecond)
	}

	report, err := api.gradeSvc.GenerateAuditReport(ctx.Request().Context(), usr, req)
	if err != nil {
		return errors.Wrap(err, "generating grade audit report")
	}
	if api.metrics != nil {
		api.metrics.AuditReportGenerated(report.Summary.TotalGrades)
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *headAPI) auditHistory(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	limit, err := queryInt(ctx, "limit")
	if err != nil {
		return err
	}
	logs, err := api.gradeSvc.HistoricalSnapshots(ctx.Request().Context(), usr, limit)
	if err != nil {
		return errors.Wrap(err, "querying audit history")
	}
	if logs == nil {
		logs = []grade.AuditLog{}
	}
	return ctx.JSON(http.StatusOK, logs)
}

func (api *headAPI) auditWeeks(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, grade.WeeklySnapshotTimes(core.NowFunc()))
}

func (api *headAPI) departmentRadar(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	radar, err := api.outcomeSvc.DepartmentRadar(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "building department radar")
	}
	return ctx.JSON(http.StatusOK, radar)
}

func (api *headAPI) courseRadar(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	radar, err := api.outcomeSvc.CourseRadar(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building course radar")
	}
	return ctx.JSON(http.StatusOK, radar)
}
