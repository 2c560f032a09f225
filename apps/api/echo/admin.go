package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/course"
	"github.com/trezcool/alama/core/user"
)

type adminAPI struct {
	usrSvc    *user.Service
	courseSvc *course.Service
	validate  *validator.Validate
}

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := adminAPI{
		usrSvc:    opts.UserSvc,
		courseSvc: opts.CourseSvc,
		validate:  opts.Validate,
	}

	ag := g.Group("/admin", jwt, requireMiddleware(api.usrSvc, user.RequireSuperuser))
	ag.POST("/courses", api.createCourse)
	ag.POST("/learning-outcomes", api.createLearningOutcome)
	ag.GET("/program-outcomes", api.programOutcomes)
	ag.POST("/program-outcomes", api.createProgramOutcome)
	ag.PUT("/contribution-rates", api.setContributionRate)
}

func (api *adminAPI) createCourse(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	crs, err := api.courseSvc.CreateCourse(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *adminAPI) createLearningOutcome(ctx echo.Context) error {
	var data course.NewLearningOutcome
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLearningOutcome")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	lo, err := api.courseSvc.CreateLearningOutcome(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating learning outcome")
	}
	return ctx.JSON(http.StatusCreated, lo)
}

func (api *adminAPI) programOutcomes(ctx echo.Context) error {
	pos, err := api.courseSvc.ProgramOutcomes(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying program outcomes")
	}
	if pos == nil {
		pos = []course.ProgramOutcome{}
	}
	return ctx.JSON(http.StatusOK, pos)
}

func (api *adminAPI) createProgramOutcome(ctx echo.Context) error {
	var data course.NewProgramOutcome
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProgramOutcome")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	po, err := api.courseSvc.CreateProgramOutcome(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating program outcome")
	}
	return ctx.JSON(http.StatusCreated, po)
}

func (api *adminAPI) setContributionRate(ctx echo.Context) error {
	var data course.NewContributionRate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewContributionRate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	cr, err := api.courseSvc.SetContributionRate(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "setting contribution rate")
	}
	return ctx.JSON(http.StatusOK, cr)
}
