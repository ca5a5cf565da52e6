// ==============================================================================
// LOAN KYC SERVICE - cmd/server/main.go
// ==============================================================================
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"loanserve/internal/artifact"
	"loanserve/internal/extract"
	"loanserve/internal/handler"
	"loanserve/internal/kyc"
	"loanserve/internal/middleware"
	"loanserve/internal/notification"
	"loanserve/internal/repository/postgres"
	"loanserve/pkg/cache"
	"loanserve/pkg/config"
	"loanserve/pkg/logger"
	"loanserve/pkg/validator"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("kyc-service")

	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	// Connect to database
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
	}
	redisCache := cache.NewFromClient(redisClient)

	// Artifact storage
	store, err := artifact.NewStore(cfg.Storage.Root, log)
	if err != nil {
		log.Fatal("Failed to initialize artifact store", map[string]interface{}{"error": err.Error()})
	}

	// Extraction chain: OCR first, embedded text layer as fallback
	ocr := extract.NewTesseractEngine(cfg.Tools.TesseractBin, cfg.Tools.Timeout)
	engine := extract.NewEngine(log,
		extract.NewRasterOCRProvider(cfg.Tools.PdftoppmBin, ocr, cfg.Tools.Timeout, store.Scratch),
		extract.NewPDFTextProvider(),
	)
	decryptor := extract.NewQPDFDecryptor(cfg.Tools.QPDFBin, cfg.Tools.Timeout, log)

	// Repositories and services
	kycRepo := postgres.NewKycRepository(db)
	customerRepo := postgres.NewCustomerRepository(db)
	notifications := notification.NewService(log)
	kycService := kyc.NewService(kycRepo, customerRepo, store, decryptor, engine, notifications, log)

	// Handlers
	kycHandler := handler.NewKycHandler(kycService, redisCache, validator.New(), log, cfg.Storage.MaxUploadSize, cfg.Storage.SummaryTTL)
	eventsHandler := handler.NewEventsHandler(notifications, log)

	// Setup router
	r := mux.NewRouter()

	r.Use(middleware.CORS)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(log).Log)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery(log))

	r.HandleFunc("/health", healthCheck).Methods("GET")

	authMW := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Verification routes carry uploads and run external tools; they get a
	// larger body cap and a tighter rate limit than the read side.
	verify := r.PathPrefix("/api/v1/kyc").Subrouter()
	verify.Use(authMW.Authenticate)
	verify.Use(middleware.NewRateLimiter(redisClient, "verify", 10, time.Minute).Limit)
	verify.Use(middleware.BodyLimit(cfg.Storage.MaxUploadSize + (1 << 20)))
	verify.HandleFunc("/verify/aadhaar", kycHandler.VerifyAadhaar).Methods("POST")
	verify.HandleFunc("/verify/pan", kycHandler.VerifyPAN).Methods("POST")

	read := r.PathPrefix("/api/v1/kyc").Subrouter()
	read.Use(authMW.Authenticate)
	read.Use(middleware.NewRateLimiter(redisClient, "read", 60, time.Minute).Limit)
	read.HandleFunc("/summary", kycHandler.Summary).Methods("GET")
	read.HandleFunc("/history", kycHandler.History).Methods("GET")
	read.HandleFunc("/files/{fileID}", kycHandler.DownloadArtifact).Methods("GET")
	read.HandleFunc("/events", eventsHandler.Stream).Methods("GET")

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		log.Info("KYC service starting", map[string]interface{}{"port": cfg.Server.Port})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Server stopped", nil)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	_ = r
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"kyc"}`))
}
