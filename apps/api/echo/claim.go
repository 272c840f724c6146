package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tulongph/tulong/core/claim"
	"github.com/tulongph/tulong/core/family"
	"github.com/tulongph/tulong/core/schedule"
	"github.com/tulongph/tulong/core/user"
)

type claimApi struct {
	svc         claim.ServiceInterface
	userSvc     user.ServiceInterface
	familySvc   family.ServiceInterface
	scheduleSvc schedule.ServiceInterface
	validate    *validator.Validate
}

func registerClaimAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc claim.ServiceInterface,
	userSvc user.ServiceInterface,
	familySvc family.ServiceInterface,
	scheduleSvc schedule.ServiceInterface,
	validate *validator.Validate,
) {
	api := claimApi{svc: svc, userSvc: userSvc, familySvc: familySvc, scheduleSvc: scheduleSvc, validate: validate}

	cg := g.Group("/claims", jwt)
	cg.POST("", api.create, roleMiddleware(user.RoleResident, user.RoleBarangay))
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
}

func (api *claimApi) create(ctx echo.Context) error {
	var data claim.NewClaim
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClaim")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	c, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return trapNotFound(errors.Wrap(err, "creating claim"),
			user.ErrNotFound, family.ErrNotFound, schedule.ErrNotFound)
	}
	return ctx.JSON(http.StatusCreated, c)
}

// query lists claims scoped by role: admins filter freely, barangay officials
// are pinned to their tenant, residents to their own family.
func (api *claimApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(claim.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []claim.Claim{})
	}

	reqCtx := ctx.Request().Context()
	switch {
	case claims.IsBarangay():
		filter.BarangayID = claims.BarangayID
	case claims.IsResident():
		fam, err := api.familySvc.GetByHead(reqCtx, claims.Subject)
		if err != nil {
			return trapNotFound(errors.Wrap(err, "finding resident family"), family.ErrNotFound)
		}
		filter.FamilyID = fam.ID
	}

	cs, err := api.svc.Query(reqCtx, filter)
	if err != nil {
		return errors.Wrap(err, "querying claims")
	}
	if cs == nil {
		cs = []claim.Claim{}
	}
	return ctx.JSON(http.StatusOK, cs)
}

// retrieve masks claims outside the caller's scope as not found.
func (api *claimApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	reqCtx := ctx.Request().Context()
	c, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return trapNotFound(errors.Wrap(err, "finding claim"), claim.ErrNotFound)
	}

	switch {
	case claims.IsResident():
		fam, err := api.familySvc.GetByHead(reqCtx, claims.Subject)
		if err != nil {
			return trapNotFound(errors.Wrap(err, "finding resident family"), family.ErrNotFound)
		}
		if c.FamilyID != fam.ID {
			return errHttpNotFound
		}
	case claims.IsBarangay():
		sch, err := api.scheduleSvc.GetByID(reqCtx, c.ScheduleID)
		if err != nil {
			return trapNotFound(errors.Wrap(err, "finding claim schedule"), schedule.ErrNotFound)
		}
		if sch.BarangayID != claims.BarangayID {
			return errHttpNotFound
		}
	}
	return ctx.JSON(http.StatusOK, c)
}
