package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-emis/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses the `ordering` query param; fields missing from `allowed` are skipped.
func (ord *Ordering) Bind(ctx echo.Context, allowed map[string]string) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	ord.Orderings = core.ParseOrdering(val, allowed)
}
