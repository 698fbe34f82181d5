package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"campuspass/config"
	"campuspass/internal/adapters/auth"
	"campuspass/internal/adapters/email"
	"campuspass/internal/adapters/events"
	httpdelivery "campuspass/internal/delivery/http"
	"campuspass/internal/delivery/http/controllers"
	"campuspass/internal/delivery/http/middleware"
	"campuspass/internal/repository/postgres"
	"campuspass/internal/services"

	"golang.org/x/crypto/bcrypt"
)

// @title CampusPass API
// @version 1.0
// @description Visitor access backend: invitation links, live group occupancy and visitor directory.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("ping database", "err", err)
		os.Exit(1)
	}

	userRepo := postgres.NewUserRepository(db)
	invitationRepo := postgres.NewInvitationRepository(db)
	visitorRepo := postgres.NewVisitorRepository(db)
	groupRepo := postgres.NewGroupRepository(db)
	attendanceRepo := postgres.NewAttendanceRepository(db)

	hub := events.NewHub()

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:             cfg.AWSRegion,
			AccessKeyID:        cfg.AWSAccessKeyID,
			SecretAccessKey:    cfg.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.SESInsecureSkipVerify,
		},
	})
	if err != nil {
		logger.Error("create mailer", "err", err)
		os.Exit(1)
	}
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer())

	tokens := auth.NewJWTTokens(cfg.JWTSecret)
	hasher := auth.NewBcryptHasher(bcrypt.DefaultCost)
	tokenExpiry := time.Duration(cfg.TokenExpiryHours) * time.Hour

	authService := services.NewAuthService(userRepo, hasher, tokens, tokenExpiry)
	invitationService := services.NewInvitationService(invitationRepo, hub, emailService, cfg.PublicBaseURL, logger)
	visitorService := services.NewVisitorService(visitorRepo, attendanceRepo, hub)
	groupService := services.NewGroupService(groupRepo, hub)
	statsService := services.NewStatsService(groupRepo, attendanceRepo)

	authController := controllers.NewAuthController(logger, authService)
	invitationController := controllers.NewInvitationController(logger, invitationService)
	groupController := controllers.NewGroupController(logger, groupService, statsService, hub)
	visitorController := controllers.NewVisitorController(logger, visitorService)

	requireAuth := middleware.RequireAuth(tokens, logger)
	mux := httpdelivery.NewRouter(authController, invitationController, groupController, visitorController, requireAuth)

	var handler http.Handler = mux
	handler = middleware.CORS(cfg.CORSAllowedOrigins, handler)
	handler = middleware.LoggingMiddleware(logger, handler)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
