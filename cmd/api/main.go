package main

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/pressly/goose/v3"

	"github.com/dvizioon/oxypass/internal/config"
	"github.com/dvizioon/oxypass/internal/logging"
	"github.com/dvizioon/oxypass/internal/moodle"
	"github.com/dvizioon/oxypass/internal/repository/postgres"
	"github.com/dvizioon/oxypass/internal/seed"
	"github.com/dvizioon/oxypass/internal/service"
	transporthttp "github.com/dvizioon/oxypass/internal/transport/http"
	"github.com/dvizioon/oxypass/internal/transport/mail"
	"github.com/dvizioon/oxypass/internal/util"
	"github.com/dvizioon/oxypass/migrations"
)

func main() {
	cfg := config.Load()

	if cfg.LogstashTCPAddr != "" {
		if writer, err := logging.NewLogstashWriter(cfg.LogstashTCPAddr); err != nil {
			log.Printf("logstash mirror disabled: %v", err)
		} else {
			defer writer.Close()
			log.SetOutput(io.MultiWriter(os.Stderr, writer))
		}
	}
	logger := log.Default()

	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("connect to database: %v", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		logger.Fatalf("set migration dialect: %v", err)
	}
	if err := goose.Up(db.DB, "."); err != nil {
		logger.Fatalf("apply migrations: %v", err)
	}

	auditingRepo := postgres.NewAuditingRepo(db)
	webServiceRepo := postgres.NewWebServiceRepo(db)
	templateRepo := postgres.NewEmailTemplateRepo(db)
	userRepo := postgres.NewUserRepo(db)

	moodleClient := moodle.NewClient(cfg.MoodleTimeout, cfg.MoodleInsecureTLS, logger)

	var mailer service.ResetMailSender
	switch cfg.MailDriver {
	case "gateway":
		mailer = mail.NewGatewaySender(cfg.MailGateway)
	default:
		mailer = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	}

	resetTokens := util.NewResetTokenManager(cfg.ResetSecret, cfg.ResetTokenTTL)
	sessionTokens := util.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL)

	resetSvc := service.NewResetService(auditingRepo, webServiceRepo, templateRepo, moodleClient, resetTokens, mailer, service.ResetConfig{
		FrontendBaseURL: cfg.FrontendBaseURL,
		ResetPath:       cfg.ResetPasswordPath,
		ServiceName:     cfg.ServiceName,
	}, logger)
	authSvc := service.NewAuthService(userRepo, sessionTokens, cfg.GoogleAudience, logger)
	webServiceSvc := service.NewWebServiceService(webServiceRepo)
	templateSvc := service.NewTemplateService(templateRepo)
	auditingSvc := service.NewAuditingService(auditingRepo)

	seeder := seed.New(userRepo, templateRepo, webServiceRepo, logger)
	if err := seeder.Run(context.Background(), cfg.SeedFile); err != nil {
		logger.Fatalf("seed: %v", err)
	}

	e := transporthttp.NewRouter(cfg.AllowOrigins)
	transporthttp.RegisterAuth(e, authSvc)
	transporthttp.RegisterMoodle(e, authSvc, resetSvc, webServiceSvc)
	transporthttp.RegisterWebServices(e, authSvc, webServiceSvc)
	transporthttp.RegisterTemplates(e, authSvc, templateSvc)
	transporthttp.RegisterAuditing(e, authSvc, auditingSvc)
	transporthttp.RegisterSwagger(e)

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
