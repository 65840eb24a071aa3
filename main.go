package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minerfix-backend/audit"
	"minerfix-backend/backup"
	"minerfix-backend/config"
	"minerfix-backend/controllers"
	"minerfix-backend/database"
	"minerfix-backend/logger"
	"minerfix-backend/metrics"
	"minerfix-backend/middlewares"
	"minerfix-backend/repository"
	"minerfix-backend/routes"
	"minerfix-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	// ---- Database
	db, err := database.Connect(cfg.Database, logger.GormLevel(cfg.Log.Level), log)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}
	if err := database.Seed(db, cfg.Admin, log); err != nil {
		return err
	}

	// ---- Audit log
	var store audit.Store
	if cfg.Audit.Store == "file" {
		store = audit.NewFileStore(cfg.Audit.FilePath, cfg.Audit.MaxEntries)
	} else {
		store = audit.NewDBStore(db, cfg.Audit.MaxEntries)
	}
	auditLog := audit.NewLogger(store, log)

	backups, err := newBackupService(cfg.Backup, db, auditLog, log)
	if err != nil {
		return err
	}

	issuer, err := middlewares.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL)
	if err != nil {
		return err
	}

	handlers := wire(cfg, db, auditLog, backups, issuer)

	// ---- Fiber app with global error handler + body limit
	app := fiber.New(fiber.Config{
		ErrorHandler:          middlewares.NewErrorHandler(log),
		BodyLimit:             cfg.Server.BodyLimitMB * 1024 * 1024,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowCredentials: cfg.Server.AllowedOrigins != "*",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Server.RateLimitMax,
		Expiration: cfg.Server.RateLimitWindow,
	}))
	app.Use(metrics.Middleware())
	app.Use(middlewares.RequestLogger(log))
	app.Use(middlewares.ClientInfo())

	// ---- Unauthenticated
	app.Get("/metrics", metrics.Handler())
	app.Get("/api/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// ---- Routes
	routes.Register(app, handlers, issuer, db, log)

	// ---- Start
	errc := make(chan error, 1)
	go func() {
		log.Info("API server started", zap.Int("port", cfg.Server.Port))
		errc <- app.Listen(fmt.Sprintf(":%d", cfg.Server.Port))
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	auditLog.Log(context.Background(), audit.Event{
		Action:   audit.ActionSystemShutdown,
		Resource: "system",
		Category: audit.CategorySystem,
	})
	return app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout)
}

func newBackupService(cfg config.BackupConfig, db *gorm.DB, a *audit.Logger, log *zap.Logger) (*backup.Service, error) {
	var store backup.Store
	if cfg.MinIOEndpoint != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := backup.NewMinIOStore(ctx, backup.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			return nil, err
		}
		store = s
	} else {
		s, err := backup.NewDirStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		store = s
	}
	return backup.NewService(backup.NewGormSource(db), store, a, log), nil
}

func wire(cfg *config.Config, db *gorm.DB, auditLog *audit.Logger, backups *backup.Service, issuer *middlewares.TokenIssuer) routes.Handlers {
	tx := database.NewTransactor(db)

	customerRepo := repository.NewCustomerRepository(db)
	technicianRepo := repository.NewTechnicianRepository(db)
	minerModelRepo := repository.NewMinerModelRepository(db)
	workOrderRepo := repository.NewWorkOrderRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	userRepo := repository.NewUserRepository(db)

	invoices := services.NewInvoiceService(invoiceRepo, customerRepo, workOrderRepo, tx, auditLog, services.InvoiceDefaults{
		TaxRate:         decimal.NewFromFloat(cfg.Billing.DefaultTaxRate),
		PaymentTermDays: cfg.Billing.PaymentTermDays,
	})
	payments := services.NewPaymentService(paymentRepo, invoiceRepo, tx, auditLog)
	users := services.NewUserService(userRepo, roleRepo, auditLog)

	return routes.Handlers{
		Auth:        controllers.NewAuthController(users, issuer, cfg.Server.SecureCookies),
		Customers:   controllers.NewCustomerController(services.NewCustomerService(customerRepo, auditLog)),
		Technicians: controllers.NewTechnicianController(services.NewTechnicianService(technicianRepo, auditLog)),
		MinerModels: controllers.NewMinerModelController(services.NewMinerModelService(minerModelRepo, auditLog)),
		WorkOrders: controllers.NewWorkOrderController(
			services.NewWorkOrderService(workOrderRepo, customerRepo, technicianRepo, minerModelRepo, auditLog)),
		Invoices:  controllers.NewInvoiceController(invoices, payments),
		Roles:     controllers.NewRoleController(services.NewRoleService(roleRepo, permissionRepo, tx, auditLog)),
		Users:     controllers.NewUserController(users),
		Audit:     controllers.NewAuditController(auditLog),
		Dashboard: controllers.NewDashboardController(services.NewDashboardService(repository.NewStatsRepository(db), auditLog)),
		Backups:   controllers.NewBackupController(backups),
	}
}
