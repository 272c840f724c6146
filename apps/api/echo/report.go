package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/report"
	"github.com/tulongph/tulong/core/user"
)

type reportApi struct {
	svc      report.ServiceInterface
	validate *validator.Validate
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc report.ServiceInterface, validate *validator.Validate) {
	api := reportApi{svc: svc, validate: validate}

	rg := g.Group("/reports", jwt, roleMiddleware(user.RoleAdmin))
	rg.GET("/dashboard", api.dashboard)
	rg.GET("/claims", api.claims)
	rg.GET("/claims/export", api.exportClaims)
}

func (api *reportApi) dashboard(ctx echo.Context) error {
	dash, err := api.svc.Dashboard(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *reportApi) bindFilter(ctx echo.Context) (*report.ClaimsFilter, error) {
	filter := new(report.ClaimsFilter)
	if err := ctx.Bind(filter); err != nil {
		return nil, errors.Wrap(err, "binding to ClaimsFilter")
	}
	if err := filter.Validate(api.validate); err != nil {
		return nil, err
	}
	return filter, nil
}

func (api *reportApi) claims(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}

	rows, err := api.svc.Claims(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying claim rows")
	}
	if rows == nil {
		rows = []report.ClaimRow{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

// exportClaims streams the claims report as an xlsx download.
func (api *reportApi) exportClaims(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("claims-%s.xlsx", core.Today())
	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	res.WriteHeader(http.StatusOK)

	if err = api.svc.ExportClaimsXLSX(ctx.Request().Context(), filter, res); err != nil {
		return errors.Wrap(err, "exporting claims workbook")
	}
	return nil
}
