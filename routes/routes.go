package routes

import (
	"minerfix-backend/controllers"
	"minerfix-backend/middlewares"
	"minerfix-backend/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handlers bundles every controller mounted under /api.
type Handlers struct {
	Auth        *controllers.AuthController
	Customers   *controllers.CustomerController
	Technicians *controllers.TechnicianController
	MinerModels *controllers.MinerModelController
	WorkOrders  *controllers.WorkOrderController
	Invoices    *controllers.InvoiceController
	Roles       *controllers.RoleController
	Users       *controllers.UserController
	Audit       *controllers.AuditController
	Dashboard   *controllers.DashboardController
	Backups     *controllers.BackupController
}

// Register wires all HTTP routes.
func Register(app *fiber.App, h Handlers, issuer *middlewares.TokenIssuer, db *gorm.DB, log *zap.Logger) {
	api := app.Group("/api")
	can := middlewares.RequirePermission

	tx := middlewares.Tx(db, log)

	// Public auth endpoints
	api.Post("/auth/register", tx, h.Auth.Register)
	api.Post("/auth/login", tx, h.Auth.Login)

	// Protected endpoints (JWT auth)
	protected := api.Group("")
	protected.Use(middlewares.IsAuthenticated(issuer))

	// Idempotency guard FIRST so the stored response is written after commit
	protected.Use(middlewares.Idempotency(db, log))

	// Then the per-request transaction
	protected.Use(tx)

	protected.Post("/auth/logout", h.Auth.Logout)
	protected.Get("/auth/me", h.Auth.Me)

	// Customers
	protected.Get("/customers", can(models.PermCustomersView), h.Customers.List)
	protected.Post("/customers", can(models.PermCustomersCreate), h.Customers.Create)
	protected.Get("/customers/:id", can(models.PermCustomersView), h.Customers.Get)
	protected.Put("/customers/:id", can(models.PermCustomersUpdate), h.Customers.Update)
	protected.Delete("/customers/:id", can(models.PermCustomersDelete), h.Customers.Delete)

	// Technicians
	protected.Get("/technicians", can(models.PermTechniciansView), h.Technicians.List)
	protected.Post("/technicians", can(models.PermTechniciansCreate), h.Technicians.Create)
	protected.Get("/technicians/:id", can(models.PermTechniciansView), h.Technicians.Get)
	protected.Put("/technicians/:id", can(models.PermTechniciansUpdate), h.Technicians.Update)
	protected.Delete("/technicians/:id", can(models.PermTechniciansDelete), h.Technicians.Delete)

	// Miner models
	protected.Get("/miner-models", can(models.PermMinerModelsView), h.MinerModels.List)
	protected.Post("/miner-models", can(models.PermMinerModelsCreate), h.MinerModels.Create)
	protected.Get("/miner-models/:id", can(models.PermMinerModelsView), h.MinerModels.Get)
	protected.Put("/miner-models/:id", can(models.PermMinerModelsUpdate), h.MinerModels.Update)
	protected.Delete("/miner-models/:id", can(models.PermMinerModelsDelete), h.MinerModels.Delete)

	// Work orders
	protected.Get("/work-orders", can(models.PermWorkOrdersView), h.WorkOrders.List)
	protected.Post("/work-orders", can(models.PermWorkOrdersCreate), h.WorkOrders.Create)
	protected.Get("/work-orders/:id", can(models.PermWorkOrdersView), h.WorkOrders.Get)
	protected.Put("/work-orders/:id", can(models.PermWorkOrdersUpdate), h.WorkOrders.Update)
	protected.Patch("/work-orders/:id/status", can(models.PermWorkOrdersUpdate), h.WorkOrders.ChangeStatus)
	protected.Delete("/work-orders/:id", can(models.PermWorkOrdersDelete), h.WorkOrders.Delete)

	// Invoices and payments
	protected.Get("/invoices", can(models.PermInvoicesView), h.Invoices.List)
	protected.Post("/invoices", can(models.PermInvoicesCreate), h.Invoices.Create)
	protected.Get("/invoices/:id", can(models.PermInvoicesView), h.Invoices.Get)
	protected.Put("/invoices/:id", can(models.PermInvoicesUpdate), h.Invoices.Update)
	protected.Delete("/invoices/:id", can(models.PermInvoicesDelete), h.Invoices.Delete)
	protected.Post("/invoices/:id/send", can(models.PermInvoicesUpdate), h.Invoices.Send)
	protected.Post("/invoices/:id/cancel", can(models.PermInvoicesUpdate), h.Invoices.Cancel)
	protected.Get("/invoices/:id/payments", can(models.PermPaymentsView), h.Invoices.ListPayments)
	protected.Post("/invoices/:id/payments", can(models.PermPaymentsCreate), h.Invoices.CreatePayment)
	protected.Delete("/payments/:id", can(models.PermPaymentsDelete), h.Invoices.DeletePayment)

	// Roles and permissions
	roles := protected.Group("/roles", can(models.PermRolesManage))
	roles.Get("", h.Roles.List)
	roles.Post("", h.Roles.Create)
	roles.Get("/:id", h.Roles.Get)
	roles.Put("/:id", h.Roles.Update)
	roles.Delete("/:id", h.Roles.Delete)
	roles.Post("/:id/permissions/bulk", h.Roles.AssignPermissions)
	roles.Post("/:id/permissions", h.Roles.AssignPermission)
	roles.Put("/:id/permissions", h.Roles.ReplacePermissions)
	roles.Delete("/:id/permissions/:permissionId", h.Roles.RemovePermission)

	perms := protected.Group("/permissions", can(models.PermRolesManage))
	perms.Get("", h.Roles.ListPermissions)
	perms.Post("", h.Roles.CreatePermission)
	perms.Put("/:id", h.Roles.UpdatePermission)
	perms.Delete("/:id", h.Roles.DeletePermission)

	// Users
	protected.Get("/users", can(models.PermUsersManage), h.Users.List)
	protected.Patch("/users/:id/role", can(models.PermUsersManage), h.Users.ChangeRole)
	protected.Patch("/users/:id/status", can(models.PermUsersManage), h.Users.ChangeStatus)

	// Audit log
	protected.Get("/audit-logs", can(models.PermAuditView), h.Audit.List)
	protected.Get("/audit-logs/stats", can(models.PermAuditView), h.Audit.Stats)
	protected.Get("/audit-logs/export", can(models.PermAuditExport), h.Audit.Export)

	// Dashboard
	protected.Get("/dashboard/stats", can(models.PermDashboardView), h.Dashboard.Stats)

	// Backups
	protected.Get("/backups", can(models.PermBackupsManage), h.Backups.List)
	protected.Post("/backups", can(models.PermBackupsManage), h.Backups.Create)
	protected.Get("/backups/:name", can(models.PermBackupsManage), h.Backups.Download)
}
