package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tulongph/tulong/core/schedule"
	"github.com/tulongph/tulong/core/user"
)

type scheduleApi struct {
	svc      schedule.ServiceInterface
	validate *validator.Validate
}

func registerScheduleAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc schedule.ServiceInterface, validate *validator.Validate) {
	api := scheduleApi{svc: svc, validate: validate}

	sg := g.Group("/schedules", jwt)
	sg.GET("", api.query)
	sg.POST("", api.create, roleMiddleware(user.RoleBarangay))
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update, roleMiddleware(user.RoleBarangay))
	sg.DELETE("/:id", api.cancel, roleMiddleware(user.RoleBarangay))
	sg.POST("/:id/remind", api.remind, roleMiddleware(user.RoleBarangay))
}

func (api *scheduleApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data schedule.NewSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchedule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sch, err := api.svc.Create(ctx.Request().Context(), claims.BarangayID, claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating schedule")
	}
	return ctx.JSON(http.StatusCreated, sch)
}

// query lists schedules scoped by role. Listing a single barangay first flips
// its past SCHEDULED rows to DISTRIBUTED.
func (api *scheduleApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	ordering := new(Ordering)
	ordering.Bind(ctx, "date", "title", "status", "created_at")

	reqCtx := ctx.Request().Context()
	var schs []schedule.Schedule

	if claims.IsAdmin() {
		filter := new(schedule.QueryFilter)
		if err := ctx.Bind(filter); err != nil {
			return ctx.JSON(http.StatusOK, []schedule.Schedule{})
		}
		if filter.BarangayID != "" {
			schs, err = api.svc.ListByBarangay(reqCtx, filter.BarangayID, ordering.Orderings)
		} else {
			schs, err = api.svc.Query(reqCtx, filter, ordering.Orderings)
		}
	} else {
		schs, err = api.svc.ListByBarangay(reqCtx, claims.BarangayID, ordering.Orderings)
	}
	if err != nil {
		return errors.Wrap(err, "querying schedules")
	}
	if schs == nil {
		schs = []schedule.Schedule{}
	}
	return ctx.JSON(http.StatusOK, schs)
}

// getScopedSchedule loads a schedule visible to the acting user; other
// tenants' schedules resolve as not-found.
func (api *scheduleApi) getScopedSchedule(ctx echo.Context) (schedule.Schedule, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "getting context claims")
	}

	sch, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return schedule.Schedule{}, trapNotFound(errors.Wrap(err, "finding schedule"), schedule.ErrNotFound)
	}
	if !claims.IsAdmin() && sch.BarangayID != claims.BarangayID {
		return schedule.Schedule{}, errHttpNotFound
	}
	return sch, nil
}

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	sch, err := api.getScopedSchedule(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *scheduleApi) update(ctx echo.Context) error {
	sch, err := api.getScopedSchedule(ctx)
	if err != nil {
		return err
	}

	var data schedule.UpdateSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchedule")
	}
	if err := data.Validate(sch, api.validate); err != nil {
		return err
	}

	sch, err = api.svc.Update(ctx.Request().Context(), sch.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating schedule")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *scheduleApi) cancel(ctx echo.Context) error {
	sch, err := api.getScopedSchedule(ctx)
	if err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err := api.svc.Cancel(ctx.Request().Context(), sch.ID, claims.Subject); err != nil {
		return errors.Wrap(err, "cancelling schedule")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *scheduleApi) remind(ctx echo.Context) error {
	sch, err := api.getScopedSchedule(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Remind(ctx.Request().Context(), sch.ID); err != nil {
		return errors.Wrap(err, "sending reminders")
	}
	return ctx.NoContent(http.StatusAccepted)
}
