package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gymdesk/membership-app/internal/api"
	"gymdesk/membership-app/internal/audit"
	"gymdesk/membership-app/internal/config"
	"gymdesk/membership-app/internal/invoice"
	"gymdesk/membership-app/internal/notification"
	"gymdesk/membership-app/internal/repository/mongo"
	"gymdesk/membership-app/internal/service"
	"gymdesk/membership-app/internal/storage"

	"github.com/gin-gonic/gin"
)

// @title Gym Membership API
// @version 1.0
// @description API for gym membership purchase, payment review, trainer assignment and lifecycle management.
// @contact.name API Support
// @contact.email support@example.com
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	log.Println("Starting Membership App Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	log.Println("Ensuring database indexes...")
	go func() { // Run index creation concurrently/in background
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureMembershipIndexes(ctx, appDB.Collection("memberships"))
		mongo.EnsurePaymentIndexes(ctx, appDB.Collection("membership_payments"))
		mongo.EnsureAddonIndexes(ctx, appDB.Collection("membership_addons"))
		mongo.EnsureAssignmentIndexes(ctx, appDB.Collection("trainer_assignments"))
		audit.EnsureAuditIndexes(ctx, appDB.Collection("audit_events"))
		log.Println("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	log.Println("Initializing file storage service...")
	fileStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
	}

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	userRepo := mongo.NewMongoUserRepository(appDB)
	membershipRepo := mongo.NewMongoMembershipRepository(appDB)
	paymentRepo := mongo.NewMongoPaymentRepository(appDB)
	addonRepo := mongo.NewMongoAddonRepository(appDB)
	assignmentRepo := mongo.NewMongoAssignmentRepository(appDB)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	auditSink := audit.NewMongoSink(appDB)
	notifier := notification.NewLogNotifier()
	invoiceGenerator := invoice.NewPDFGenerator(fileStorage)

	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	classifier := service.NewPaymentClassifier(paymentRepo, addonRepo, assignmentRepo)
	membershipService := service.NewMembershipService(membershipRepo, paymentRepo, addonRepo, assignmentRepo, fileStorage, notifier, auditSink)
	approvalService := service.NewApprovalService(membershipRepo, paymentRepo, addonRepo, assignmentRepo, userRepo, classifier, notifier, invoiceGenerator, auditSink)

	// --- Scheduled Grace Sweep ---
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go runSweepLoop(sweepCtx, membershipService, cfg.Sweep.Interval)

	// --- Initialize Gin Engine ---
	// gin.SetMode(gin.ReleaseMode) // Uncomment for production
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(router, cfg.JWT.Secret, authService, membershipService, approvalService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	stopSweep()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}

// runSweepLoop drives the periodic grace-period sweep until ctx is done.
// One pass runs immediately on startup so restarts never postpone overdue
// transitions by a full interval.
func runSweepLoop(ctx context.Context, memberships service.MembershipService, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	runOnce := func() {
		sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		report, err := memberships.RunGraceSweep(sweepCtx)
		if err != nil {
			log.Printf("ERROR: grace sweep failed: %v", err)
			return
		}
		log.Printf("Grace sweep: %d entered grace, %d milestones, %d expired, %d trainers in grace, %d trainers lapsed",
			report.EnteredGrace, report.MilestonesSent, report.Expired, report.TrainersInGrace, report.TrainersLapsed)
	}

	runOnce()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
