// Package main provides the main entry point for the branch ERP backend
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/openclerk/branch-erp/app/handlers"
	"github.com/openclerk/branch-erp/app/middleware"
	"github.com/openclerk/branch-erp/app/router"
	"github.com/openclerk/branch-erp/app/services"
	businessflow "github.com/openclerk/branch-erp/business_flow"
	"github.com/openclerk/branch-erp/config"
	"github.com/openclerk/branch-erp/models"
	"github.com/openclerk/branch-erp/repository"
	"github.com/openclerk/branch-erp/utils"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting branch ERP application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Setup graceful shutdown
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(
			&models.Branch{},
			&models.BranchCounter{},
			&models.User{},
			&models.UserSession{},
			&models.AuditLog{},
			&models.Loan{},
			&models.LoanPayment{},
		); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, cfg.Cache.CleanupInterval)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Seed bootstrap branches and the initial admin account
	if err := ensureSeedData(db, cfg); err != nil {
		return nil, err
	}

	// Initialize repositories
	branchRepo := repository.NewBranchRepository(db)
	counterRepo := repository.NewBranchCounterRepository(db)
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewUserSessionRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewLoanPaymentRepository(db)

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize flows
	authFlow := businessflow.NewAuthFlow(
		userRepo,
		sessionRepo,
		branchRepo,
		counterRepo,
		auditRepo,
		tokenService,
		db,
	)

	userFlow := businessflow.NewUserFlow(
		userRepo,
		branchRepo,
		counterRepo,
		auditRepo,
		db,
	)

	branchFlow := businessflow.NewBranchFlow(
		branchRepo,
		counterRepo,
		auditRepo,
		db,
	)

	loanFlow := businessflow.NewLoanFlow(
		loanRepo,
		paymentRepo,
		userRepo,
		branchRepo,
		auditRepo,
		db,
	)

	dashboardFlow := businessflow.NewDashboardFlow(
		branchRepo,
		counterRepo,
		userRepo,
		loanRepo,
		paymentRepo,
		rc,
		cfg.Cache.RedisPrefix,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authFlow)
	userHandler := handlers.NewUserHandler(userFlow)
	branchHandler := handlers.NewBranchHandler(branchFlow)
	loanHandler := handlers.NewLoanHandler(loanFlow)
	dashboardHandler := handlers.NewDashboardHandler(dashboardFlow)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService, userRepo)

	// Initialize router
	appRouter := router.NewFiberRouter(
		authHandler,
		userHandler,
		branchHandler,
		loanHandler,
		dashboardHandler,
		authMiddleware,
	)

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}

// ensureSeedData creates the configured branches and the initial admin account when missing
func ensureSeedData(db *gorm.DB, cfg *config.ProductionConfig) error {
	branchRepo := repository.NewBranchRepository(db)
	counterRepo := repository.NewBranchCounterRepository(db)
	userRepo := repository.NewUserRepository(db)

	for _, entry := range cfg.Seed.Branches {
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			return fmt.Errorf("invalid seed branch entry: %q", entry)
		}
		if err := ensureBranch(branchRepo, parts[0], parts[1], parts[2]); err != nil {
			return err
		}
	}

	if cfg.Seed.AdminEmail != "" && cfg.Seed.AdminPassword != "" {
		if err := ensureAdminUser(db, branchRepo, counterRepo, userRepo, cfg); err != nil {
			return err
		}
	}

	return nil
}

func ensureBranch(branchRepo repository.BranchRepository, code, name, address string) error {
	code = utils.NormalizeBranchCode(code)

	exists, err := branchRepo.ExistsByCode(context.Background(), code)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	branch := models.Branch{
		UUID:      uuid.New(),
		Code:      code,
		Name:      name,
		Address:   utils.ToPtr(address),
		IsActive:  utils.ToPtr(true),
		CreatedAt: utils.UTCNow(),
		UpdatedAt: utils.UTCNow(),
	}
	if err := branchRepo.Save(context.Background(), &branch); err != nil {
		return err
	}

	log.Printf("Seeded branch %s (%s)", code, name)
	return nil
}

func ensureAdminUser(
	db *gorm.DB,
	branchRepo repository.BranchRepository,
	counterRepo repository.BranchCounterRepository,
	userRepo repository.UserRepository,
	cfg *config.ProductionConfig,
) error {
	exists, err := userRepo.ExistsByEmail(context.Background(), cfg.Seed.AdminEmail)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	branch, err := branchRepo.ByCode(context.Background(), cfg.Seed.AdminBranch)
	if err != nil {
		return err
	}
	if branch == nil {
		return fmt.Errorf("seed admin branch %s not found", cfg.Seed.AdminBranch)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.Seed.AdminPassword), cfg.Security.BcryptCost)
	if err != nil {
		return err
	}

	// Counter increment and user insert share one transaction so a failed
	// insert does not consume a sequence number.
	return repository.WithTransaction(context.Background(), db, func(txCtx context.Context) error {
		sequence, err := counterRepo.Next(txCtx, branch.Code)
		if err != nil {
			return err
		}

		admin := models.User{
			UUID:         uuid.New(),
			UniqueID:     utils.FormatUniqueID(branch.Code, sequence),
			BranchID:     branch.ID,
			Role:         models.RoleAdmin,
			FirstName:    "System",
			LastName:     "Administrator",
			Mobile:       cfg.Seed.AdminMobile,
			Email:        cfg.Seed.AdminEmail,
			PasswordHash: string(hashedPassword),
			IsActive:     utils.ToPtr(true),
			CreatedAt:    utils.UTCNow(),
			UpdatedAt:    utils.UTCNow(),
		}
		if err := userRepo.Save(txCtx, &admin); err != nil {
			return err
		}

		log.Printf("Seeded admin account %s", admin.UniqueID)
		return nil
	})
}
