package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tulongph/tulong/core/notification"
	"github.com/tulongph/tulong/core/user"
)

type smsSettingsApi struct {
	svc      notification.SettingsServiceInterface
	validate *validator.Validate
}

func registerSMSSettingsAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc notification.SettingsServiceInterface,
	validate *validator.Validate,
) {
	api := smsSettingsApi{svc: svc, validate: validate}

	sg := g.Group("/settings/sms", jwt, roleMiddleware(user.RoleAdmin))
	sg.GET("", api.retrieve)
	sg.PUT("", api.update)
}

func (api *smsSettingsApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context())
	if err != nil {
		return trapNotFound(errors.Wrap(err, "finding sms settings"), notification.ErrSettingsNotFound)
	}
	return ctx.JSON(http.StatusOK, s)
}

// update replaces the active gateway credentials. The running dispatcher keeps
// its injected snapshot; new credentials apply on the next restart.
func (api *smsSettingsApi) update(ctx echo.Context) error {
	var data notification.UpdateSMSSettings
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSMSSettings")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	s, err := api.svc.Update(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "updating sms settings")
	}
	return ctx.JSON(http.StatusOK, s)
}
