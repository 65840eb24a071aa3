package models

// Permission codes checked by the route layer.
const (
	PermCustomersView   = "customers.view"
	PermCustomersCreate = "customers.create"
	PermCustomersUpdate = "customers.update"
	PermCustomersDelete = "customers.delete"

	PermTechniciansView   = "technicians.view"
	PermTechniciansCreate = "technicians.create"
	PermTechniciansUpdate = "technicians.update"
	PermTechniciansDelete = "technicians.delete"

	PermMinerModelsView   = "miner_models.view"
	PermMinerModelsCreate = "miner_models.create"
	PermMinerModelsUpdate = "miner_models.update"
	PermMinerModelsDelete = "miner_models.delete"

	PermWorkOrdersView   = "work_orders.view"
	PermWorkOrdersCreate = "work_orders.create"
	PermWorkOrdersUpdate = "work_orders.update"
	PermWorkOrdersDelete = "work_orders.delete"

	PermInvoicesView   = "invoices.view"
	PermInvoicesCreate = "invoices.create"
	PermInvoicesUpdate = "invoices.update"
	PermInvoicesDelete = "invoices.delete"

	PermPaymentsView   = "payments.view"
	PermPaymentsCreate = "payments.create"
	PermPaymentsDelete = "payments.delete"

	PermRolesManage   = "roles.manage"
	PermUsersManage   = "users.manage"
	PermAuditView     = "audit.view"
	PermAuditExport   = "audit.export"
	PermBackupsManage = "backups.manage"
	PermDashboardView = "dashboard.view"
)

// System role names.
const (
	RoleAdmin      = "ADMIN"
	RoleManager    = "MANAGER"
	RoleTechnician = "TECHNICIAN"
	RoleUser       = "USER"
)

// SystemPermissions lists every seeded permission. Resource and action are
// derived from the code.
var SystemPermissions = []string{
	PermCustomersView, PermCustomersCreate, PermCustomersUpdate, PermCustomersDelete,
	PermTechniciansView, PermTechniciansCreate, PermTechniciansUpdate, PermTechniciansDelete,
	PermMinerModelsView, PermMinerModelsCreate, PermMinerModelsUpdate, PermMinerModelsDelete,
	PermWorkOrdersView, PermWorkOrdersCreate, PermWorkOrdersUpdate, PermWorkOrdersDelete,
	PermInvoicesView, PermInvoicesCreate, PermInvoicesUpdate, PermInvoicesDelete,
	PermPaymentsView, PermPaymentsCreate, PermPaymentsDelete,
	PermRolesManage, PermUsersManage, PermAuditView, PermAuditExport,
	PermBackupsManage, PermDashboardView,
}

type SystemRole struct {
	Name        string
	DisplayName string
	Description string
	Permissions []string // nil means every system permission
}

var SystemRoles = []SystemRole{
	{
		Name:        RoleAdmin,
		DisplayName: "Administrator",
		Description: "Full access, including users, roles, audit and backups.",
	},
	{
		Name:        RoleManager,
		DisplayName: "Manager",
		Description: "Runs the shop: customers, work orders, invoices and payments.",
		Permissions: []string{
			PermCustomersView, PermCustomersCreate, PermCustomersUpdate, PermCustomersDelete,
			PermTechniciansView, PermTechniciansCreate, PermTechniciansUpdate, PermTechniciansDelete,
			PermMinerModelsView, PermMinerModelsCreate, PermMinerModelsUpdate, PermMinerModelsDelete,
			PermWorkOrdersView, PermWorkOrdersCreate, PermWorkOrdersUpdate, PermWorkOrdersDelete,
			PermInvoicesView, PermInvoicesCreate, PermInvoicesUpdate, PermInvoicesDelete,
			PermPaymentsView, PermPaymentsCreate, PermPaymentsDelete,
			PermAuditView, PermDashboardView,
		},
	},
	{
		Name:        RoleTechnician,
		DisplayName: "Technician",
		Description: "Works repair orders.",
		Permissions: []string{
			PermCustomersView, PermTechniciansView, PermMinerModelsView,
			PermWorkOrdersView, PermWorkOrdersCreate, PermWorkOrdersUpdate,
			PermDashboardView,
		},
	},
	{
		Name:        RoleUser,
		DisplayName: "User",
		Description: "Read-only access to shop data.",
		Permissions: []string{
			PermCustomersView, PermWorkOrdersView, PermInvoicesView, PermDashboardView,
		},
	},
}
