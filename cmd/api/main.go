package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/msbfinance/loan-office/internal/config"
	"github.com/msbfinance/loan-office/internal/handler"
	"github.com/msbfinance/loan-office/internal/integrations/objectstore"
	"github.com/msbfinance/loan-office/internal/integrations/ratefeed"
	"github.com/msbfinance/loan-office/internal/middleware"
	"github.com/msbfinance/loan-office/internal/notify"
	"github.com/msbfinance/loan-office/internal/repository"
	"github.com/msbfinance/loan-office/internal/service"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Object store client is built once and injected.
	objects, err := objectstore.NewClient(cfg)
	if err != nil {
		logger.Fatalf("Failed to init object store: %v", err)
	}

	// Notification transport per configuration.
	var transport notify.Transport
	switch cfg.MailMode {
	case "relay":
		transport = notify.NewRelayTransport(cfg)
	default:
		transport = notify.NewSMTPTransport(cfg)
	}
	dispatcher := notify.NewDispatcher(transport, cfg, logger)

	// Initialize layers
	repo := repository.NewRepository(db)
	svc, err := service.NewService(repo, objects, dispatcher, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to init service: %v", err)
	}
	h := handler.NewHandler(svc, logger)

	// Seed the default interest rate from the base-rate feed when enabled.
	// The configured flat rate stands on any failure.
	feed := ratefeed.NewClient(cfg, logger)
	if feed.Enabled() {
		if rate, err := feed.LendingRate(); err != nil {
			logger.Warnf("Rate feed unavailable, keeping configured rate %.2f%%: %v", cfg.DefaultInterestRate, err)
		} else {
			svc.SetInterestRate(rate)
		}
	}

	// Optional redis-backed idempotency on loan submission.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Fatalf("Failed to ping redis: %v", err)
		}
		cancel()
	}

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/auth/register", h.Register).Methods("POST")
	r.HandleFunc("/auth/login", h.Login).Methods("POST")

	// Authenticated user routes
	userRouter := r.PathPrefix("/user").Subrouter()
	userRouter.Use(middleware.Auth(cfg, repo))
	userRouter.HandleFunc("/me", h.Me).Methods("GET")
	userRouter.HandleFunc("/update-details", h.UpdateDetails).Methods("POST")
	userRouter.HandleFunc("/loans", h.ListLoans).Methods("GET")
	userRouter.HandleFunc("/upload-document", h.UploadDocument).Methods("POST")
	userRouter.HandleFunc("/documents", h.ListDocuments).Methods("GET")
	userRouter.HandleFunc("/documents/{id}/download", h.DownloadDocument).Methods("GET")
	userRouter.HandleFunc("/documents/{id}", h.DeleteDocument).Methods("DELETE")

	applyRouter := userRouter.NewRoute().Subrouter()
	applyRouter.Use(middleware.Idempotency(rdb, cfg.IdempotencyTTL, logger))
	applyRouter.HandleFunc("/apply-loan", h.ApplyLoan).Methods("POST")

	// Admin routes
	adminRouter := r.PathPrefix("/admin").Subrouter()
	adminRouter.Use(middleware.Auth(cfg, repo), middleware.AdminOnly)
	adminRouter.HandleFunc("/users", h.AdminListUsers).Methods("GET")
	adminRouter.HandleFunc("/loans", h.AdminListLoans).Methods("GET")
	adminRouter.HandleFunc("/loans/{id}", h.AdminSetLoanStatus).Methods("PATCH")
	adminRouter.HandleFunc("/documents", h.AdminListDocuments).Methods("GET")
	adminRouter.HandleFunc("/documents/{id}", h.AdminSetDocumentStatus).Methods("PATCH")

	// Scheduled pending-review reminder for the operator.
	if cfg.ReminderSchedule != "" {
		c := cron.New()
		_, err := c.AddFunc(cfg.ReminderSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			svc.SendPendingReviewReminder(ctx)
		})
		if err != nil {
			logger.Fatalf("Bad reminder schedule %q: %v", cfg.ReminderSchedule, err)
		}
		c.Start()
		defer c.Stop()
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
