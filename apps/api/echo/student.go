package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/attendance"
	"github.com/trezcool/alama/core/outcome"
	"github.com/trezcool/alama/core/user"
)

type studentAPI struct {
	usrSvc        *user.Service
	outcomeSvc    *outcome.Service
	attendanceSvc *attendance.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := studentAPI{
		usrSvc:        opts.UserSvc,
		outcomeSvc:    opts.OutcomeSvc,
		attendanceSvc: opts.AttendanceSvc,
	}

	sg := g.Group("/student", jwt, requireMiddleware(api.usrSvc, user.RequireStudent))
	sg.GET("/dashboard", api.dashboard)
	sg.GET("/attendance", api.attendance)
}

func (api *studentAPI) dashboard(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	dash, err := api.outcomeSvc.StudentDashboard(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "building student dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *studentAPI) attendance(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	summary, err := api.attendanceSvc.StudentSummary(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	return ctx.JSON(http.StatusOK, summary)
}
