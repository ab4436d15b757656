package echoapi

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-emis/core/enrollment"
)

// wizardIDMiddleware answers 404 for wizard ids that cannot exist, before the store is hit.
func wizardIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if _, err := uuid.Parse(ctx.Param("id")); err != nil {
			return enrollment.ErrNotFound
		}
		return next(ctx)
	}
}
