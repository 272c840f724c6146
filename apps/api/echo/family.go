package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tulongph/tulong/core/family"
	"github.com/tulongph/tulong/core/user"
)

type familyApi struct {
	svc      family.ServiceInterface
	userSvc  user.ServiceInterface
	validate *validator.Validate
}

func registerFamilyAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc family.ServiceInterface,
	userSvc user.ServiceInterface,
	validate *validator.Validate,
) {
	api := familyApi{svc: svc, userSvc: userSvc, validate: validate}

	fg := g.Group("/families", jwt)
	fg.GET("", api.query)
	fg.GET("/:id", api.retrieve)
	fg.PUT("/:id/classification", api.classify, roleMiddleware(user.RoleAdmin, user.RoleBarangay))
	fg.GET("/:id/members", api.members)
	fg.POST("/:id/members", api.addMember)

	mg := g.Group("/members", jwt)
	mg.PUT("/:id", api.updateMember)
	mg.DELETE("/:id", api.removeMember)
	mg.POST("/:id/verify", api.verifyMember, roleMiddleware(user.RoleBarangay))
}

// query returns families scoped by role: admins see all, barangay officials
// their own tenant, residents their own family.
func (api *familyApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(family.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []family.Family{})
	}
	switch {
	case claims.IsBarangay():
		filter.BarangayID = claims.BarangayID
	case claims.IsResident():
		filter.HeadID = claims.Subject
	}

	fams, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying families")
	}
	if fams == nil {
		fams = []family.Family{}
	}
	return ctx.JSON(http.StatusOK, fams)
}

// getScopedFamily loads a family the acting user may see; other tenants'
// families resolve as not-found.
func (api *familyApi) getScopedFamily(ctx echo.Context, id string) (family.Family, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return family.Family{}, errors.Wrap(err, "getting context claims")
	}

	fam, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return family.Family{}, trapNotFound(errors.Wrap(err, "finding family"), family.ErrNotFound)
	}

	switch {
	case claims.IsAdmin():
	case claims.IsBarangay():
		if fam.BarangayID != claims.BarangayID {
			return family.Family{}, errHttpNotFound
		}
	default:
		if fam.HeadID != claims.Subject {
			return family.Family{}, errHttpNotFound
		}
	}
	return fam, nil
}

func (api *familyApi) retrieve(ctx echo.Context) error {
	fam, err := api.getScopedFamily(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, fam)
}

type ClassifyRequest struct {
	Classification string `json:"classification" validate:"required,oneof=HIGH MIDDLE LOW UNCLASSIFIED"`
}

func (api *familyApi) classify(ctx echo.Context) error {
	fam, err := api.getScopedFamily(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	var data ClassifyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClassifyRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	fam, err = api.svc.Classify(ctx.Request().Context(), fam.ID, family.Classification(data.Classification), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "classifying family")
	}
	return ctx.JSON(http.StatusOK, fam)
}

func (api *familyApi) members(ctx echo.Context) error {
	fam, err := api.getScopedFamily(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	members, err := api.svc.Members(ctx.Request().Context(), fam.ID)
	if err != nil {
		return errors.Wrap(err, "querying family members")
	}
	if members == nil {
		members = []family.Member{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *familyApi) addMember(ctx echo.Context) error {
	fam, err := api.getScopedFamily(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	var data family.NewMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMember")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.AddMember(ctx.Request().Context(), fam.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding family member")
	}
	return ctx.JSON(http.StatusCreated, m)
}

// getScopedMember resolves a member through its family's scope.
func (api *familyApi) getScopedMember(ctx echo.Context, memberID string) (family.Member, error) {
	m, err := api.svc.GetMemberScoped(ctx.Request().Context(), memberID, "")
	if err != nil {
		return family.Member{}, trapNotFound(errors.Wrap(err, "finding family member"), family.ErrMemberNotFound)
	}
	if _, err = api.getScopedFamily(ctx, m.FamilyID); err != nil {
		return family.Member{}, errHttpNotFound
	}
	return m, nil
}

func (api *familyApi) updateMember(ctx echo.Context) error {
	m, err := api.getScopedMember(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	var data family.UpdateMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMember")
	}
	if err := data.Validate(m, api.validate); err != nil {
		return err
	}

	m, err = api.svc.UpdateMember(ctx.Request().Context(), m.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating family member")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *familyApi) removeMember(ctx echo.Context) error {
	m, err := api.getScopedMember(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err := api.svc.RemoveMember(ctx.Request().Context(), m.ID); err != nil {
		return errors.Wrap(err, "removing family member")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// verifyMember toggles one eligibility flag; members outside the official's
// barangay resolve as not-found.
func (api *familyApi) verifyMember(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data family.VerifyInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.Verify(ctx.Request().Context(), ctx.Param("id"), claims.BarangayID, data, claims.Subject)
	if err != nil {
		return trapNotFound(errors.Wrap(err, "verifying member"), family.ErrMemberNotFound)
	}
	return ctx.JSON(http.StatusOK, m)
}
