package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"minerfix-backend/audit"
	"minerfix-backend/models"
	"minerfix-backend/repository"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

// overlay applies a column -> value map the way a SQL UPDATE would, relying
// on json tags matching column names.
func overlay(dst any, fields map[string]any) error {
	raw, err := json.Marshal(dst)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	for k, v := range fields {
		m[k] = v
	}
	raw, err = json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

type fakeAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *fakeAuditor) Log(_ context.Context, ev audit.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
}

func (a *fakeAuditor) last() audit.Event {
	if len(a.events) == 0 {
		return audit.Event{}
	}
	return a.events[len(a.events)-1]
}

func (a *fakeAuditor) count(action string, status audit.Status) int {
	n := 0
	for _, ev := range a.events {
		st := ev.Status
		if st == "" {
			st = audit.StatusSuccess
		}
		if ev.Action == action && st == status {
			n++
		}
	}
	return n
}

// fakeTx runs fn inline. snapshot, when set, captures store state before fn
// and the returned func restores it when fn fails.
type fakeTx struct {
	calls    int
	snapshot func() (restore func())
}

func (t *fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	var restore func()
	if t.snapshot != nil {
		restore = t.snapshot()
	}
	err := fn(ctx)
	if err != nil && restore != nil {
		restore()
	}
	return err
}

// customers

type fakeCustomers struct {
	items      map[uint]*models.Customer
	workOrders map[uint]int64
	invoices   map[uint]int64
	nextID     uint
}

func newFakeCustomers(cs ...models.Customer) *fakeCustomers {
	f := &fakeCustomers{items: map[uint]*models.Customer{}, workOrders: map[uint]int64{}, invoices: map[uint]int64{}, nextID: 100}
	for i := range cs {
		c := cs[i]
		f.items[c.ID] = &c
	}
	return f
}

func (f *fakeCustomers) List(_ context.Context, _ repository.CustomerFilter) ([]models.Customer, int64, error) {
	var out []models.Customer
	for _, c := range f.items {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeCustomers) Get(_ context.Context, id uint) (*models.Customer, error) {
	c, ok := f.items[id]
	if !ok {
		return nil, repository.ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCustomers) Create(_ context.Context, c *models.Customer) error {
	f.nextID++
	c.ID = f.nextID
	cp := *c
	f.items[c.ID] = &cp
	return nil
}

func (f *fakeCustomers) UpdateFields(_ context.Context, id uint, fields map[string]any) error {
	c, ok := f.items[id]
	if !ok {
		return repository.ErrCustomerNotFound
	}
	return overlay(c, fields)
}

func (f *fakeCustomers) Delete(_ context.Context, id uint) error {
	if _, ok := f.items[id]; !ok {
		return repository.ErrCustomerNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeCustomers) References(_ context.Context, id uint) (int64, int64, error) {
	return f.workOrders[id], f.invoices[id], nil
}

// technicians

type fakeTechnicians struct {
	items      map[uint]*models.Technician
	workOrders map[uint]int64
	nextID     uint
}

func newFakeTechnicians(ts ...models.Technician) *fakeTechnicians {
	f := &fakeTechnicians{items: map[uint]*models.Technician{}, workOrders: map[uint]int64{}, nextID: 100}
	for i := range ts {
		t := ts[i]
		f.items[t.ID] = &t
	}
	return f
}

func (f *fakeTechnicians) List(_ context.Context, _ repository.TechnicianFilter) ([]models.Technician, int64, error) {
	var out []models.Technician
	for _, t := range f.items {
		out = append(out, *t)
	}
	return out, int64(len(out)), nil
}

func (f *fakeTechnicians) Get(_ context.Context, id uint) (*models.Technician, error) {
	t, ok := f.items[id]
	if !ok {
		return nil, repository.ErrTechnicianNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTechnicians) Create(_ context.Context, t *models.Technician) error {
	f.nextID++
	t.ID = f.nextID
	cp := *t
	f.items[t.ID] = &cp
	return nil
}

func (f *fakeTechnicians) UpdateFields(_ context.Context, id uint, fields map[string]any) error {
	t, ok := f.items[id]
	if !ok {
		return repository.ErrTechnicianNotFound
	}
	return overlay(t, fields)
}

func (f *fakeTechnicians) Delete(_ context.Context, id uint) error {
	if _, ok := f.items[id]; !ok {
		return repository.ErrTechnicianNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeTechnicians) CountWorkOrders(_ context.Context, id uint) (int64, error) {
	return f.workOrders[id], nil
}

// miner models

type fakeMinerModels struct {
	items  map[uint]*models.MinerModel
	nextID uint
}

func newFakeMinerModels(ms ...models.MinerModel) *fakeMinerModels {
	f := &fakeMinerModels{items: map[uint]*models.MinerModel{}, nextID: 100}
	for i := range ms {
		m := ms[i]
		f.items[m.ID] = &m
	}
	return f
}

func (f *fakeMinerModels) List(_ context.Context, _ repository.MinerModelFilter) ([]models.MinerModel, int64, error) {
	var out []models.MinerModel
	for _, m := range f.items {
		out = append(out, *m)
	}
	return out, int64(len(out)), nil
}

func (f *fakeMinerModels) Get(_ context.Context, id uint) (*models.MinerModel, error) {
	m, ok := f.items[id]
	if !ok {
		return nil, repository.ErrMinerModelNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMinerModels) Create(_ context.Context, m *models.MinerModel) error {
	for _, existing := range f.items {
		if strings.EqualFold(existing.Brand, m.Brand) && strings.EqualFold(existing.Model, m.Model) {
			return repository.ErrMinerModelExists
		}
	}
	f.nextID++
	m.ID = f.nextID
	cp := *m
	f.items[m.ID] = &cp
	return nil
}

func (f *fakeMinerModels) UpdateFields(_ context.Context, id uint, fields map[string]any) error {
	m, ok := f.items[id]
	if !ok {
		return repository.ErrMinerModelNotFound
	}
	return overlay(m, fields)
}

func (f *fakeMinerModels) Delete(_ context.Context, id uint) error {
	if _, ok := f.items[id]; !ok {
		return repository.ErrMinerModelNotFound
	}
	delete(f.items, id)
	return nil
}

// work orders

type fakeWorkOrders struct {
	items    map[uint]*models.WorkOrder
	invoices map[uint]int64
	nextID   uint
}

func newFakeWorkOrders(ws ...models.WorkOrder) *fakeWorkOrders {
	f := &fakeWorkOrders{items: map[uint]*models.WorkOrder{}, invoices: map[uint]int64{}, nextID: 100}
	for i := range ws {
		w := ws[i]
		f.items[w.ID] = &w
	}
	return f
}

func (f *fakeWorkOrders) List(_ context.Context, _ repository.WorkOrderFilter) ([]models.WorkOrder, int64, error) {
	var out []models.WorkOrder
	for _, w := range f.items {
		out = append(out, *w)
	}
	return out, int64(len(out)), nil
}

func (f *fakeWorkOrders) Get(_ context.Context, id uint) (*models.WorkOrder, error) {
	w, ok := f.items[id]
	if !ok {
		return nil, repository.ErrWorkOrderNotFound
	}
	cp := *w
	return &cp, nil
}

func (f *fakeWorkOrders) Create(_ context.Context, w *models.WorkOrder) error {
	f.nextID++
	w.ID = f.nextID
	cp := *w
	f.items[w.ID] = &cp
	return nil
}

func (f *fakeWorkOrders) Update(_ context.Context, w *models.WorkOrder) error {
	if _, ok := f.items[w.ID]; !ok {
		return repository.ErrWorkOrderNotFound
	}
	cp := *w
	f.items[w.ID] = &cp
	return nil
}

func (f *fakeWorkOrders) Delete(_ context.Context, id uint) error {
	if _, ok := f.items[id]; !ok {
		return repository.ErrWorkOrderNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeWorkOrders) CountInvoices(_ context.Context, id uint) (int64, error) {
	return f.invoices[id], nil
}

func (f *fakeWorkOrders) LastNumber(_ context.Context, prefix string) (string, error) {
	var numbers []string
	for _, w := range f.items {
		numbers = append(numbers, w.OrderNumber)
	}
	return highestWithPrefix(numbers, prefix), nil
}

// invoices

type fakeInvoices struct {
	items   map[uint]*models.Invoice
	nextID  uint
	locks   int
	payRefs map[uint]int64
}

func newFakeInvoices(invs ...models.Invoice) *fakeInvoices {
	f := &fakeInvoices{items: map[uint]*models.Invoice{}, nextID: 100, payRefs: map[uint]int64{}}
	for i := range invs {
		inv := copyInvoice(&invs[i])
		f.items[inv.ID] = inv
	}
	return f
}

func copyInvoice(inv *models.Invoice) *models.Invoice {
	cp := *inv
	cp.Items = append([]models.InvoiceItem(nil), inv.Items...)
	cp.Payments = append([]models.Payment(nil), inv.Payments...)
	return &cp
}

func (f *fakeInvoices) List(_ context.Context, _ repository.InvoiceFilter) ([]models.Invoice, int64, error) {
	var out []models.Invoice
	for _, inv := range f.items {
		out = append(out, *copyInvoice(inv))
	}
	return out, int64(len(out)), nil
}

func (f *fakeInvoices) Get(_ context.Context, id uint) (*models.Invoice, error) {
	inv, ok := f.items[id]
	if !ok {
		return nil, repository.ErrInvoiceNotFound
	}
	return copyInvoice(inv), nil
}

func (f *fakeInvoices) GetForUpdate(ctx context.Context, id uint) (*models.Invoice, error) {
	f.locks++
	return f.Get(ctx, id)
}

func (f *fakeInvoices) Create(_ context.Context, inv *models.Invoice) error {
	f.nextID++
	inv.ID = f.nextID
	f.items[inv.ID] = copyInvoice(inv)
	return nil
}

func (f *fakeInvoices) Update(_ context.Context, inv *models.Invoice) error {
	if _, ok := f.items[inv.ID]; !ok {
		return repository.ErrInvoiceNotFound
	}
	f.items[inv.ID] = copyInvoice(inv)
	return nil
}

func (f *fakeInvoices) SaveState(_ context.Context, inv *models.Invoice) error {
	stored, ok := f.items[inv.ID]
	if !ok {
		return repository.ErrInvoiceNotFound
	}
	stored.PaidAmount = inv.PaidAmount
	stored.BalanceAmount = inv.BalanceAmount
	stored.Status = inv.Status
	stored.SentAt = inv.SentAt
	return nil
}

func (f *fakeInvoices) Delete(_ context.Context, id uint) error {
	if _, ok := f.items[id]; !ok {
		return repository.ErrInvoiceNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeInvoices) CountPayments(_ context.Context, id uint) (int64, error) {
	return f.payRefs[id], nil
}

func (f *fakeInvoices) LastNumber(_ context.Context, prefix string) (string, error) {
	var numbers []string
	for _, inv := range f.items {
		numbers = append(numbers, inv.InvoiceNumber)
	}
	return highestWithPrefix(numbers, prefix), nil
}

func highestWithPrefix(numbers []string, prefix string) string {
	top := ""
	for _, n := range numbers {
		if strings.HasPrefix(n, prefix) && (len(n) > len(top) || (len(n) == len(top) && n > top)) {
			top = n
		}
	}
	return top
}

// payments

type fakePayments struct {
	items  map[uint]*models.Payment
	nextID uint
	// invoices, when set, keeps the payment reference counts in sync.
	invoices *fakeInvoices
}

func newFakePayments(inv *fakeInvoices) *fakePayments {
	return &fakePayments{items: map[uint]*models.Payment{}, invoices: inv}
}

func (f *fakePayments) ListByInvoice(_ context.Context, invoiceID uint) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range f.items {
		if p.InvoiceID == invoiceID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePayments) Get(_ context.Context, id uint) (*models.Payment, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePayments) Create(_ context.Context, p *models.Payment) error {
	f.nextID++
	p.ID = f.nextID
	cp := *p
	f.items[p.ID] = &cp
	if f.invoices != nil {
		f.invoices.payRefs[p.InvoiceID]++
	}
	return nil
}

func (f *fakePayments) Delete(_ context.Context, id uint) error {
	p, ok := f.items[id]
	if !ok {
		return repository.ErrPaymentNotFound
	}
	delete(f.items, id)
	if f.invoices != nil {
		f.invoices.payRefs[p.InvoiceID]--
	}
	return nil
}

// roles and permissions

type fakePermissions struct {
	items  map[uint]*models.Permission
	nextID uint
}

func newFakePermissions(ps ...models.Permission) *fakePermissions {
	f := &fakePermissions{items: map[uint]*models.Permission{}, nextID: 100}
	for i := range ps {
		p := ps[i]
		f.items[p.ID] = &p
	}
	return f
}

func (f *fakePermissions) List(_ context.Context, resource string) ([]models.Permission, error) {
	var out []models.Permission
	for _, p := range f.items {
		if resource == "" || p.Resource == resource {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakePermissions) Get(_ context.Context, id uint) (*models.Permission, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, repository.ErrPermissionNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePermissions) GetMany(_ context.Context, ids []uint) ([]models.Permission, error) {
	var out []models.Permission
	for _, id := range ids {
		if p, ok := f.items[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePermissions) Create(_ context.Context, p *models.Permission) error {
	for _, existing := range f.items {
		if existing.Name == p.Name {
			return repository.ErrPermissionNameTaken
		}
	}
	f.nextID++
	p.ID = f.nextID
	cp := *p
	f.items[p.ID] = &cp
	return nil
}

func (f *fakePermissions) Update(_ context.Context, p *models.Permission) error {
	cp := *p
	f.items[p.ID] = &cp
	return nil
}

func (f *fakePermissions) Delete(_ context.Context, id uint) error {
	delete(f.items, id)
	return nil
}

type fakeRoles struct {
	items     map[uint]*models.Role
	grants    map[uint]map[uint]bool
	users     map[uint]int64
	perms     *fakePermissions
	nextID    uint
	grantErr  error
	revokeAll int
}

func newFakeRoles(perms *fakePermissions, rs ...models.Role) *fakeRoles {
	f := &fakeRoles{
		items:  map[uint]*models.Role{},
		grants: map[uint]map[uint]bool{},
		users:  map[uint]int64{},
		perms:  perms,
		nextID: 100,
	}
	for i := range rs {
		r := rs[i]
		f.items[r.ID] = &r
		f.grants[r.ID] = map[uint]bool{}
	}
	return f
}

func (f *fakeRoles) grant(roleID uint, ids ...uint) {
	for _, id := range ids {
		f.grants[roleID][id] = true
	}
}

func (f *fakeRoles) granted(roleID uint) []uint {
	var out []uint
	for id := range f.grants[roleID] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// snapshot captures the grant table for fakeTx.
func (f *fakeRoles) snapshot() func() {
	saved := map[uint]map[uint]bool{}
	for rid, set := range f.grants {
		cp := map[uint]bool{}
		for k, v := range set {
			cp[k] = v
		}
		saved[rid] = cp
	}
	return func() { f.grants = saved }
}

func (f *fakeRoles) List(_ context.Context) ([]models.Role, error) {
	var out []models.Role
	for _, r := range f.items {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRoles) Get(_ context.Context, id uint) (*models.Role, error) {
	r, ok := f.items[id]
	if !ok {
		return nil, repository.ErrRoleNotFound
	}
	cp := *r
	cp.Permissions = nil
	for _, pid := range f.granted(id) {
		if p, ok := f.perms.items[pid]; ok {
			cp.Permissions = append(cp.Permissions, *p)
		}
	}
	return &cp, nil
}

func (f *fakeRoles) GetByName(ctx context.Context, name string) (*models.Role, error) {
	for id, r := range f.items {
		if r.Name == name {
			return f.Get(ctx, id)
		}
	}
	return nil, repository.ErrRoleNotFound
}

func (f *fakeRoles) Create(_ context.Context, r *models.Role) error {
	for _, existing := range f.items {
		if existing.Name == r.Name {
			return repository.ErrRoleNameTaken
		}
	}
	f.nextID++
	r.ID = f.nextID
	cp := *r
	f.items[r.ID] = &cp
	f.grants[r.ID] = map[uint]bool{}
	return nil
}

func (f *fakeRoles) Update(_ context.Context, r *models.Role) error {
	for id, existing := range f.items {
		if id != r.ID && existing.Name == r.Name {
			return repository.ErrRoleNameTaken
		}
	}
	cp := *r
	cp.Permissions = nil
	f.items[r.ID] = &cp
	return nil
}

func (f *fakeRoles) Delete(_ context.Context, id uint) error {
	if _, ok := f.items[id]; !ok {
		return repository.ErrRoleNotFound
	}
	delete(f.items, id)
	delete(f.grants, id)
	return nil
}

func (f *fakeRoles) CountUsers(_ context.Context, id uint) (int64, error) {
	return f.users[id], nil
}

func (f *fakeRoles) PermissionIDs(_ context.Context, roleID uint) ([]uint, error) {
	return f.granted(roleID), nil
}

func (f *fakeRoles) PermissionNames(_ context.Context, roleID uint) ([]string, error) {
	var out []string
	for _, id := range f.granted(roleID) {
		if p, ok := f.perms.items[id]; ok && p.IsActive {
			out = append(out, p.Name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeRoles) Grant(_ context.Context, roleID uint, ids []uint) error {
	for _, id := range ids {
		if f.grantErr != nil {
			return f.grantErr
		}
		f.grants[roleID][id] = true
	}
	return nil
}

func (f *fakeRoles) Revoke(_ context.Context, roleID, permissionID uint) (bool, error) {
	if !f.grants[roleID][permissionID] {
		return false, nil
	}
	delete(f.grants[roleID], permissionID)
	return true, nil
}

func (f *fakeRoles) RevokeAll(_ context.Context, roleID uint) error {
	f.revokeAll++
	f.grants[roleID] = map[uint]bool{}
	return nil
}

// users

type fakeUsers struct {
	items map[string]*models.User
	roles *fakeRoles
}

func newFakeUsers(roles *fakeRoles, us ...models.User) *fakeUsers {
	f := &fakeUsers{items: map[string]*models.User{}, roles: roles}
	for i := range us {
		u := us[i]
		f.items[u.Id] = &u
	}
	return f
}

func (f *fakeUsers) withRole(u *models.User) *models.User {
	cp := *u
	if r, ok := f.roles.items[u.RoleID]; ok {
		rc := *r
		cp.Role = &rc
	}
	return &cp
}

func (f *fakeUsers) List(_ context.Context, _ repository.UserFilter) ([]models.User, int64, error) {
	var out []models.User
	for _, u := range f.items {
		out = append(out, *f.withRole(u))
	}
	return out, int64(len(out)), nil
}

func (f *fakeUsers) Get(_ context.Context, id string) (*models.User, error) {
	u, ok := f.items[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return f.withRole(u), nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.items {
		if strings.EqualFold(u.Email, email) {
			return f.withRole(u), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	for _, existing := range f.items {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrEmailTaken
		}
	}
	if u.Id == "" {
		u.Id = "user-" + u.Email
	}
	cp := *u
	f.items[u.Id] = &cp
	return nil
}

func (f *fakeUsers) UpdateFields(_ context.Context, id string, fields map[string]any) error {
	u, ok := f.items[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if v, ok := fields["role_id"]; ok {
		u.RoleID = v.(uint)
	}
	if v, ok := fields["is_active"]; ok {
		u.IsActive = v.(bool)
	}
	return nil
}

func (f *fakeUsers) TouchLogin(_ context.Context, id string, at time.Time) error {
	u, ok := f.items[id]
	if !ok {
		return errors.New("missing user")
	}
	u.LastLoginAt = &at
	return nil
}
