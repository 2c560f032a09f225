package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}

// queryTime parses an RFC 3339 timestamp or a YYYY-MM-DD date from the query string. Missing params are zero.
func queryTime(ctx echo.Context, name string) (time.Time, error) {
	val := core.CleanString(ctx.QueryParam(name))
	if val == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, val); err == nil {
		return t.UTC(), nil
	}
	if t, err := core.ParseDate(val); err == nil {
		return t, nil
	}
	return time.Time{}, core.NewValidationError(
		errors.Errorf("invalid %s %q", name, val),
		core.FieldError{Field: name, Error: "must be an RFC 3339 timestamp or a YYYY-MM-DD date"},
	)
}

func queryBool(ctx echo.Context, name string) (*bool, error) {
	val := core.CleanString(ctx.QueryParam(name))
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: name, Error: "must be a boolean"})
	}
	return &b, nil
}

func queryInt(ctx echo.Context, name string) (int, error) {
	val := core.CleanString(ctx.QueryParam(name))
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 0, core.NewValidationError(errors.Errorf("invalid %s %q", name, val), core.FieldError{Field: name, Error: "must be a positive integer"})
	}
	return n, nil
}
