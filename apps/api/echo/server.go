package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/audit"
	"github.com/tulongph/tulong/core/backup"
	"github.com/tulongph/tulong/core/barangay"
	"github.com/tulongph/tulong/core/claim"
	"github.com/tulongph/tulong/core/family"
	"github.com/tulongph/tulong/core/notification"
	"github.com/tulongph/tulong/core/report"
	"github.com/tulongph/tulong/core/schedule"
	"github.com/tulongph/tulong/core/user"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		DisableReqLogs bool

		UserSvc     user.ServiceInterface
		BarangaySvc barangay.ServiceInterface
		FamilySvc   family.ServiceInterface
		ScheduleSvc schedule.ServiceInterface
		ClaimSvc    claim.ServiceInterface
		ReportSvc   report.ServiceInterface
		BackupSvc   backup.ServiceInterface
		SettingsSvc notification.SettingsServiceInterface
		AuditSvc    *audit.Service

		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		deps       ServerDeps
		app        *echo.Echo
		errCh      chan error
		shutdownCh chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:       deps,
		app:        echo.New(),
		errCh:      make(chan error, 1),
		shutdownCh: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))

	registerUserAPI(v1, jwt, s.deps.UserSvc, s.deps.Validate, s.deps.Translator, conf)
	registerBarangayAPI(v1, jwt, s.deps.BarangaySvc, s.deps.Validate)
	registerFamilyAPI(v1, jwt, s.deps.FamilySvc, s.deps.UserSvc, s.deps.Validate)
	registerScheduleAPI(v1, jwt, s.deps.ScheduleSvc, s.deps.Validate)
	registerClaimAPI(v1, jwt, s.deps.ClaimSvc, s.deps.UserSvc, s.deps.FamilySvc, s.deps.ScheduleSvc, s.deps.Validate)
	registerReportAPI(v1, jwt, s.deps.ReportSvc, s.deps.Validate)
	registerBackupAPI(v1, jwt, s.deps.BackupSvc)
	registerSMSSettingsAPI(v1, jwt, s.deps.SettingsSvc, s.deps.Validate)
	registerUploadAPI(v1, jwt, conf)
	registerAuditAPI(v1, jwt, s.deps.AuditSvc)
}

func (s *server) Start() {
	address := s.deps.Conf.Server.Host + ":" + s.deps.Conf.Server.Port
	if err := s.app.Start(address); err != nil && err != http.ErrServerClosed {
		s.errCh <- err
	}
}

func (s *server) Errors() <-chan error { return s.errCh }

func (s *server) ShutdownSignal() <-chan os.Signal { return s.shutdownCh }

// SignalShutdown gracefully shuts the server down; used when an integrity
// issue is identified and the service needs to stop serving requests.
func (s *server) SignalShutdown() {
	s.shutdownCh <- syscall.SIGTERM
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Tulong API!")
}
