package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-emis/core"
	"github.com/trezcool/masomo-emis/core/enrollment"
)

type (
	TuitionQuery struct {
		Grade  string                   `query:"grade" json:"grade" validate:"required"`
		Option enrollment.TuitionOption `query:"option" json:"option" validate:"required,tuition_option"`
	}

	AcknowledgementRequest struct {
		ConsentChecked bool   `json:"consent_checked"`
		Initials       string `json:"initials"`
	}

	EnrollmentQuery struct {
		Search string                      `query:"search" json:"search"`
		Grade  string                      `query:"grade" json:"grade" validate:"omitempty,grade"`
		Status enrollment.EnrollmentStatus `query:"status" json:"status" validate:"omitempty,oneof=PENDING ACTIVE"`
	}
)

type enrollmentApi struct {
	svc      *enrollment.Service
	registry EnrollmentLister
	validate *validator.Validate
}

func registerEnrollmentAPI(
	g *echo.Group,
	svc *enrollment.Service,
	registry EnrollmentLister,
	validate *validator.Validate,
) {
	api := enrollmentApi{
		svc:      svc,
		registry: registry,
		validate: validate,
	}

	g.GET("/grades", api.queryGrades)
	g.GET("/tuition", api.computeTuition)
	if registry != nil {
		g.GET("/enrollments", api.queryEnrollments)
	}

	wg := g.Group("/enrollment-wizards")
	wg.GET("/steps", api.querySteps)
	wg.POST("", api.start)

	// detail endpoints
	dg := wg.Group("/:id", wizardIDMiddleware)
	dg.GET("", api.retrieve)
	dg.PATCH("", api.update)
	dg.DELETE("", api.close)
	dg.POST("/next", api.next)
	dg.POST("/previous", api.previous)
	dg.POST("/steps/:index", api.jumpTo)
	dg.PUT("/acknowledgement", api.acknowledge)
	dg.POST("/submit", api.submit)
}

// Handlers

func (api *enrollmentApi) queryGrades(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, enrollment.Grades)
}

func (api *enrollmentApi) computeTuition(ctx echo.Context) error {
	var data TuitionQuery
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TuitionQuery")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enrollment.ComputeTuition(data.Grade, data.Option))
}

func (api *enrollmentApi) querySteps(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, enrollment.Steps.Steps())
}

func (api *enrollmentApi) start(ctx echo.Context) error {
	w, err := api.svc.Start(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "starting wizard")
	}
	return ctx.JSON(http.StatusCreated, w)
}

func (api *enrollmentApi) retrieve(ctx echo.Context) error {
	w, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting wizard")
	}
	return ctx.JSON(http.StatusOK, w)
}

func (api *enrollmentApi) update(ctx echo.Context) error {
	var data enrollment.FormPatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FormPatch")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	w, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating wizard")
	}
	return ctx.JSON(http.StatusOK, w)
}

func (api *enrollmentApi) close(ctx echo.Context) error {
	if err := api.svc.Close(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "closing wizard")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// next & previous answer the wizard as is when the move is not allowed.
func (api *enrollmentApi) next(ctx echo.Context) error {
	w, err := api.svc.Next(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "moving to next step")
	}
	return ctx.JSON(http.StatusOK, w)
}

func (api *enrollmentApi) previous(ctx echo.Context) error {
	w, err := api.svc.Previous(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "moving to previous step")
	}
	return ctx.JSON(http.StatusOK, w)
}

func (api *enrollmentApi) jumpTo(ctx echo.Context) error {
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "index", Error: "index must be an integer"})
	}

	w, err := api.svc.JumpTo(ctx.Request().Context(), ctx.Param("id"), index)
	if err != nil {
		return errors.Wrap(err, "jumping to step")
	}
	return ctx.JSON(http.StatusOK, w)
}

func (api *enrollmentApi) acknowledge(ctx echo.Context) error {
	var data AcknowledgementRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AcknowledgementRequest")
	}

	w, err := api.svc.Acknowledge(ctx.Request().Context(), ctx.Param("id"), data.ConsentChecked, data.Initials)
	if err != nil {
		return errors.Wrap(err, "acknowledging")
	}
	return ctx.JSON(http.StatusOK, w)
}

func (api *enrollmentApi) submit(ctx echo.Context) error {
	receipt, w, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		var subErr *enrollment.SubmitError
		if errors.As(err, &subErr) {
			return &submitFailure{err: subErr, wizard: w}
		}
		return errors.Wrap(err, "submitting enrollment")
	}
	return ctx.JSON(http.StatusCreated, receipt)
}

func (api *enrollmentApi) queryEnrollments(ctx echo.Context) error {
	var data EnrollmentQuery
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollmentQuery")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	var ord Ordering
	ord.Bind(ctx, enrollment.OrderingFields)

	filter := enrollment.QueryFilter{
		Search: core.CleanString(data.Search),
		Grade:  data.Grade,
		Status: data.Status,
	}
	enrs, err := api.registry.Enrollments(ctx.Request().Context(), filter, ord.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	return ctx.JSON(http.StatusOK, enrs)
}
