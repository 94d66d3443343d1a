package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geoponto/internal/blob"
	"geoponto/internal/config"
	"geoponto/internal/handler"
	"geoponto/internal/i18n"
	"geoponto/internal/mattermost"
	"geoponto/internal/service"
	"geoponto/internal/session"
	"geoponto/internal/store"
)

func main() {
	cfg := config.Load()
	i18n.Init(cfg.DefaultLocale)
	loc := cfg.Location()

	// Connect to MongoDB
	db, err := store.NewMongoDB(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stores
	pointStore, err := store.NewPointStore(ctx, db)
	if err != nil {
		log.Fatalf("Failed to init point store: %v", err)
	}
	userStore, err := store.NewUserStore(ctx, db)
	if err != nil {
		log.Fatalf("Failed to init user store: %v", err)
	}
	companyStore := store.NewCompanyStore(db)

	// Company seed
	companySvc := service.NewCompanyService(companyStore)
	company, err := config.LoadCompany(cfg.CompanyFile)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("No company file at %s, using defaults", cfg.CompanyFile)
		company, err = config.DefaultCompany(), nil
	}
	if err != nil {
		log.Fatalf("Failed to load company: %v", err)
	}
	if err := companySvc.Seed(ctx, company); err != nil {
		log.Fatalf("Failed to seed company: %v", err)
	}

	// Optional integrations
	opts := service.PointOptions{Margin: cfg.GeofenceMargin, Location: loc}
	if cfg.S3Bucket != "" {
		s3Store, err := blob.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			log.Fatalf("Failed to init S3 store: %v", err)
		}
		opts.Blobs = s3Store
		log.Printf("Selfies are offloaded to s3://%s/%s", cfg.S3Bucket, cfg.S3Prefix)
	}
	if cfg.MattermostURL != "" && cfg.AlertBotToken != "" && cfg.AlertChannelID != "" {
		opts.Alerts = mattermost.NewClient(cfg.MattermostURL, cfg.AlertBotToken)
		opts.AlertChannel = cfg.AlertChannelID
		log.Printf("Geofence alerts go to channel %s", cfg.AlertChannelID)
	}

	// Services
	sessions := session.NewManager(userStore, cfg.JWTSecret, cfg.SessionTTL)
	pointSvc := service.NewPointService(pointStore, companySvc, opts)
	statsSvc := service.NewStatsService(pointStore, userStore, cfg.WorkStart, loc)
	exportSvc := service.NewExportService(pointStore, loc)

	// Routes
	auth := handler.NewAuth(sessions)
	mux := http.NewServeMux()
	handler.NewSessionHandler(sessions, auth).RegisterRoutes(mux)
	handler.NewPointHandler(pointSvc, auth).RegisterRoutes(mux)
	handler.NewCompanyHandler(companySvc, auth).RegisterRoutes(mux)
	handler.NewAdminHandler(statsSvc, exportSvc, auth, loc).RegisterRoutes(mux)

	// Health checks
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			log.Printf("ERROR readiness: %v", err)
			http.Error(w, "mongodb unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.LoggingMiddleware(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("GeoPonto server started on :%s (env: %s)", cfg.Port, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
}
