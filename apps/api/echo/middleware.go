package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/alama/core/user"
)

// requireMiddleware rejects requests whose user fails check, before any handler runs.
func requireMiddleware(svc *user.Service, check func(user.User) error) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return err
			}
			if err = check(usr); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}
