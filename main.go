package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dcode-github/realtor_listing/backend/account"
	"github.com/dcode-github/realtor_listing/backend/cache"
	"github.com/dcode-github/realtor_listing/backend/config"
	"github.com/dcode-github/realtor_listing/backend/listing"
	"github.com/dcode-github/realtor_listing/backend/mailer"
	"github.com/dcode-github/realtor_listing/backend/metrics"
	"github.com/dcode-github/realtor_listing/backend/middleware"
	"github.com/dcode-github/realtor_listing/backend/moderation"
	"github.com/dcode-github/realtor_listing/backend/repository"
	"github.com/dcode-github/realtor_listing/backend/routes"
	"github.com/dcode-github/realtor_listing/backend/scheduler"
	"github.com/dcode-github/realtor_listing/backend/storage"
	"github.com/dcode-github/realtor_listing/backend/utils"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

func loadEnv(log logrus.FieldLogger) {
	if err := godotenv.Load(); err != nil {
		log.WithError(err).Debug("No .env file loaded")
	}
}

func newBackend(cfg *config.Config) (storage.Backend, error) {
	if cfg.Storage.Driver == "ftp" {
		return storage.NewFTPBackend(storage.FTPConfig{
			Host:     cfg.Storage.FTP.Host,
			Port:     cfg.Storage.FTP.Port,
			User:     cfg.Storage.FTP.User,
			Password: cfg.Storage.FTP.Password,
			BaseURL:  cfg.Storage.BaseURL,
			Timeout:  cfg.Storage.FTP.Timeout,
		}), nil
	}
	return storage.NewLocalBackend(cfg.Storage.LocalDir, cfg.Storage.BaseURL)
}

func newMailer(cfg *config.Config, log logrus.FieldLogger) mailer.Mailer {
	if cfg.Mail.Driver == "sendgrid" {
		return mailer.NewSendGrid(cfg.Mail.APIKey, cfg.Mail.FromEmail, cfg.Mail.FromName, log)
	}
	return mailer.NewLogMailer(log)
}

func main() {
	bootLog := logrus.New()
	loadEnv(bootLog)

	cfg, err := config.Load()
	if err != nil {
		bootLog.WithError(err).Fatal("Failed to load configuration")
	}
	log := config.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := config.ConnectDB(ctx, cfg.Mongo.URI, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to the database")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		config.CloseDBConnection(closeCtx, client, log)
	}()
	db := client.Database(cfg.Mongo.Database)

	if err := repository.EnsureIndexes(ctx, db); err != nil {
		log.WithError(err).Fatal("Failed to create indexes")
	}
	if err := repository.BackfillDefaults(ctx, db, log); err != nil {
		log.WithError(err).Fatal("Failed to backfill defaults")
	}

	redisClient, err := config.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	backend, err := newBackend(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialise object storage")
	}
	m := metrics.New()
	gateway := storage.NewGateway(backend, log, m)
	defer func() {
		if err := gateway.Close(); err != nil {
			log.WithError(err).Warn("Error closing object storage")
		}
	}()

	properties := repository.NewPropertyRepository(db)
	realtors := repository.NewRealtorRepository(db)
	admins := repository.NewAdminRepository(db)

	pages := cache.NewListingCache(redisClient, cfg.Redis.CacheTTL, log)
	tokens := utils.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.SessionTTL)
	mail := newMailer(cfg, log)
	templates := mailer.Templates{ClientURL: cfg.Mail.ClientURL}

	listings := listing.NewManager(properties, gateway, pages, log)
	moderator := moderation.NewService(properties, realtors, listings, pages, log)
	realtorAccounts := account.NewRealtorService(realtors, listings, tokens, mail, templates, log)
	adminAccounts := account.NewAdminService(admins, tokens, mail, templates, log)

	if cfg.Admin.SeedEmail != "" {
		if err := adminAccounts.EnsureSuperAdmin(ctx, cfg.Admin.SeedEmail, cfg.Admin.SeedPassword); err != nil {
			log.WithError(err).Fatal("Failed to seed super admin")
		}
	}

	sweeper := scheduler.NewSweeper(gateway, cfg.Sweep.Spec, cfg.Sweep.MaxAge, log)
	if err := sweeper.Start(); err != nil {
		log.WithError(err).Fatal("Failed to start the temporary image sweeper")
	}

	router := mux.NewRouter()
	routes.Routes(router, routes.Deps{
		Auth:         middleware.NewAuthenticator(tokens, realtors, admins, log),
		LoginLimiter: middleware.NewRateLimiter(middleware.NewRedisCounter(redisClient), "login", cfg.Auth.LoginLimit, cfg.Auth.LoginWindow, log),
		Metrics:      m,
		Log:          log,
		Listings:     listings,
		Uploader:     gateway,
		Pages:        pages,
		Realtors:     realtorAccounts,
		Admins:       adminAccounts,
		Moderator:    moderator,
		Directory:    realtors,
	})
	if cfg.Storage.Driver == "local" {
		router.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.Storage.LocalDir))))
	}

	corsOptions := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:           ":" + cfg.Server.Port,
		Handler:        corsOptions.Handler(router),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("Server running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Error starting server")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error during server shutdown")
	}
	if err := sweeper.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("Sweeper did not stop cleanly")
	}
	log.Info("Server gracefully stopped")
}
