package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tulongph/tulong/core/backup"
	"github.com/tulongph/tulong/core/user"
)

type backupApi struct {
	svc backup.ServiceInterface
}

func registerBackupAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc backup.ServiceInterface) {
	api := backupApi{svc: svc}

	bg := g.Group("/backups", jwt, roleMiddleware(user.RoleAdmin))
	bg.GET("", api.list)
	bg.POST("", api.create)
	bg.POST("/:name/restore", api.restore)
}

func (api *backupApi) list(ctx echo.Context) error {
	snaps, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing backups")
	}
	return ctx.JSON(http.StatusOK, snaps)
}

type CreateBackupRequest struct {
	Name string `json:"name"`
}

func (api *backupApi) create(ctx echo.Context) error {
	var data CreateBackupRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CreateBackupRequest")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	snap, err := api.svc.Create(ctx.Request().Context(), data.Name, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating backup")
	}
	return ctx.JSON(http.StatusCreated, snap)
}

func (api *backupApi) restore(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.Restore(ctx.Request().Context(), ctx.Param("name"), claims.Subject); err != nil {
		return trapNotFound(errors.Wrap(err, "restoring backup"), backup.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Backup restored"})
}
