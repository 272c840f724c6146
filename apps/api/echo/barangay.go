package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tulongph/tulong/core/barangay"
	"github.com/tulongph/tulong/core/user"
)

type barangayApi struct {
	svc      barangay.ServiceInterface
	validate *validator.Validate
}

func registerBarangayAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc barangay.ServiceInterface, validate *validator.Validate) {
	api := barangayApi{svc: svc, validate: validate}

	bg := g.Group("/barangays")

	// open so the registration form can list barangays
	bg.GET("", api.query)

	ag := bg.Group("", jwt)
	ag.POST("", api.create, roleMiddleware(user.RoleAdmin))
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update, roleMiddleware(user.RoleAdmin))
	ag.DELETE("/:id", api.deactivate, roleMiddleware(user.RoleAdmin))
	ag.POST("/:id/assign-manager", api.assignManager, roleMiddleware(user.RoleAdmin))
}

func (api *barangayApi) create(ctx echo.Context) error {
	var data barangay.NewBarangay
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBarangay")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	brgy, err := api.svc.Create(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating barangay")
	}
	return ctx.JSON(http.StatusCreated, brgy)
}

func (api *barangayApi) query(ctx echo.Context) error {
	filter := new(barangay.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []barangay.Barangay{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, "name", "code", "created_at")

	brgys, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying barangays")
	}
	if brgys == nil {
		brgys = []barangay.Barangay{}
	}
	return ctx.JSON(http.StatusOK, brgys)
}

func (api *barangayApi) retrieve(ctx echo.Context) error {
	brgy, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapNotFound(errors.Wrap(err, "finding barangay"), barangay.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, brgy)
}

func (api *barangayApi) update(ctx echo.Context) error {
	brgy, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapNotFound(errors.Wrap(err, "finding barangay"), barangay.ErrNotFound)
	}

	var data barangay.UpdateBarangay
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateBarangay")
	}
	if err := data.Validate(brgy, api.validate, api.svc); err != nil {
		return err
	}

	brgy, err = api.svc.Update(ctx.Request().Context(), brgy.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating barangay")
	}
	return ctx.JSON(http.StatusOK, brgy)
}

func (api *barangayApi) deactivate(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err := api.svc.Deactivate(ctx.Request().Context(), ctx.Param("id"), claims.Subject); err != nil {
		return trapNotFound(errors.Wrap(err, "deactivating barangay"), barangay.ErrNotFound)
	}
	return ctx.NoContent(http.StatusNoContent)
}

type AssignManagerRequest struct {
	UserID string `json:"user_id" validate:"required,uuid4"`
}

func (api *barangayApi) assignManager(ctx echo.Context) error {
	var data AssignManagerRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignManagerRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.AssignManager(ctx.Request().Context(), ctx.Param("id"), data.UserID, claims.Subject); err != nil {
		return trapNotFound(errors.Wrap(err, "assigning manager"), barangay.ErrNotFound, user.ErrNotFound)
	}
	return ctx.NoContent(http.StatusNoContent)
}
