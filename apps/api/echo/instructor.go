package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/course"
	"github.com/trezcool/alama/core/grade"
	"github.com/trezcool/alama/core/outcome"
	"github.com/trezcool/alama/core/user"
)

type instructorAPI struct {
	usrSvc     *user.Service
	courseSvc  *course.Service
	gradeSvc   *grade.Service
	outcomeSvc *outcome.Service
	validate   *validator.Validate
}

func registerInstructorAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := instructorAPI{
		usrSvc:     opts.UserSvc,
		courseSvc:  opts.CourseSvc,
		gradeSvc:   opts.GradeSvc,
		outcomeSvc: opts.OutcomeSvc,
		validate:   opts.Validate,
	}
	att := newAttendanceAPI(opts)

	ig := g.Group("/instructor", jwt, requireMiddleware(api.usrSvc, user.RequireInstructor))
	ig.GET("/dashboard", api.dashboard)
	ig.GET("/courses/:id/learning-outcomes", api.learningOutcomes)
	ig.POST("/grades", api.enterGrade)
	ig.PUT("/grades/:id", api.updateGrade)
	ig.GET("/courses/:id/attendance", att.courseDay)
	ig.POST("/courses/:id/attendance", att.submitForm)
	ig.POST("/attendance/sync", att.sync)
}

func (api *instructorAPI) dashboard(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	dash, err := api.outcomeSvc.InstructorDashboard(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "building instructor dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *instructorAPI) learningOutcomes(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	los, err := api.courseSvc.CourseLearningOutcomes(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying learning outcomes")
	}
	if los == nil {
		los = []course.LearningOutcome{}
	}
	return ctx.JSON(http.StatusOK, los)
}

func (api *instructorAPI) enterGrade(ctx echo.Context) error {
	var data grade.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	g, err := api.gradeSvc.EnterGrade(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "entering grade")
	}
	return ctx.JSON(http.StatusCreated, g)
}

func (api *instructorAPI) updateGrade(ctx echo.Context) error {
	var data grade.UpdateGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	g, err := api.gradeSvc.UpdateScore(ctx.Request().Context(), usr, core.CleanString(ctx.Param("id")), data)
	if err != nil {
		return errors.Wrap(err, "updating grade")
	}
	return ctx.JSON(http.StatusOK, g)
}
