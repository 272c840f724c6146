package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register /debug/pprof handlers
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/tulongph/tulong/apps/api/echo"
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
	emailsvc "github.com/tulongph/tulong/services/email"
	logsvc "github.com/tulongph/tulong/services/logger"
	smssvc "github.com/tulongph/tulong/services/sms"
	"github.com/tulongph/tulong/storage/database"
	sqlxrepos "github.com/tulongph/tulong/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up repositories
	userRepo := sqlxrepos.NewUserRepository(db)
	barangayRepo := sqlxrepos.NewBarangayRepository(db)
	familyRepo := sqlxrepos.NewFamilyRepository(db)
	scheduleRepo := sqlxrepos.NewScheduleRepository(db)
	claimRepo := sqlxrepos.NewClaimRepository(db)
	auditRepo := sqlxrepos.NewAuditRepository(db)
	notificationRepo := sqlxrepos.NewNotificationRepository(db)
	reportRepo := sqlxrepos.NewReportRepository(db)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(logger, conf)
	}

	var smsSvc core.SMSService
	if conf.Debug {
		smsSvc = smssvc.NewConsoleService()
	} else {
		gwConf := notification.ActiveGatewayConfig(context.Background(), notificationRepo, conf)
		smsSvc = smssvc.NewGatewayService(gwConf, conf.SMS.Timeout)
	}

	auditSvc := audit.NewService(auditRepo)
	familySvc := family.NewService(familyRepo, auditSvc)
	usrSvc := user.NewService(db, userRepo, familySvc, auditSvc, mailSvc, smsSvc, logger, conf)
	barangaySvc := barangay.NewService(db, barangayRepo, usrSvc, auditSvc)
	dispatcher := notification.NewDispatcher(notificationRepo, smsSvc, logger, conf)
	scheduleSvc := schedule.NewService(scheduleRepo, dispatcher, auditSvc)
	claimSvc := claim.NewService(db, claimRepo, usrSvc, familySvc, scheduleSvc, auditSvc)
	reportSvc := report.NewService(reportRepo)
	backupSvc := backup.NewService(auditSvc, logger, conf)
	settingsSvc := notification.NewSettingsService(notificationRepo, auditSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err = http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:        conf,
			Logger:      logger,
			UserSvc:     usrSvc,
			BarangaySvc: barangaySvc,
			FamilySvc:   familySvc,
			ScheduleSvc: scheduleSvc,
			ClaimSvc:    claimSvc,
			ReportSvc:   reportSvc,
			BackupSvc:   backupSvc,
			SettingsSvc: settingsSvc,
			AuditSvc:    auditSvc,
			Validate:    validate,
			Translator:  translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db, conf); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
