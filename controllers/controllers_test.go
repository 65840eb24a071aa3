package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"minerfix-backend/middlewares"
	"minerfix-backend/models"
	"minerfix-backend/repository"
	"minerfix-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: middlewares.NewErrorHandler(zap.NewNop())})
}

func jsonRequest(method, target string, body any) *http.Request {
	var r io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return req
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

// Customers

type stubCustomers struct {
	CustomerService
	filter  repository.CustomerFilter
	created services.CustomerInput
	deleted uint
	getErr  error
}

func (s *stubCustomers) List(_ context.Context, f repository.CustomerFilter) (services.List[models.Customer], error) {
	s.filter = f
	return services.List[models.Customer]{Items: []models.Customer{{ID: 1, Name: "Hashpower GmbH"}}, Total: 1, Page: 1, PageSize: 20}, nil
}

func (s *stubCustomers) Get(_ context.Context, id uint) (*models.Customer, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &models.Customer{ID: id, Name: "Hashpower GmbH"}, nil
}

func (s *stubCustomers) Create(_ context.Context, in services.CustomerInput) (*models.Customer, error) {
	s.created = in
	return &models.Customer{ID: 7, Name: in.Name, Email: in.Email}, nil
}

func (s *stubCustomers) Delete(_ context.Context, id uint) error {
	s.deleted = id
	return nil
}

func customerApp(svc *stubCustomers) *fiber.App {
	app := newTestApp()
	h := NewCustomerController(svc)
	app.Get("/customers", h.List)
	app.Post("/customers", h.Create)
	app.Get("/customers/:id", h.Get)
	app.Delete("/customers/:id", h.Delete)
	return app
}

func TestCustomerListPassesFilter(t *testing.T) {
	svc := &stubCustomers{}
	resp, body := do(t, customerApp(svc), httptest.NewRequest(http.MethodGet, "/customers?search=%20hash%20&page=3&page_size=50", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hash", svc.filter.Search)
	assert.Equal(t, 3, svc.filter.Page.Page)
	assert.Equal(t, 50, svc.filter.Page.PageSize)
	assert.EqualValues(t, 1, body["total"])
}

func TestCustomerCreate(t *testing.T) {
	svc := &stubCustomers{}
	resp, body := do(t, customerApp(svc), jsonRequest(http.MethodPost, "/customers", map[string]any{
		"name":  "Blockwerk",
		"email": "ops@blockwerk.test",
	}))

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Blockwerk", svc.created.Name)
	assert.EqualValues(t, 7, body["id"])
}

func TestCustomerCreateValidation(t *testing.T) {
	resp, body := do(t, customerApp(&stubCustomers{}), jsonRequest(http.MethodPost, "/customers", map[string]any{
		"email": "not-an-email",
	}))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	fields, ok := body["fields"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "email")
}

func TestCustomerInvalidID(t *testing.T) {
	for _, id := range []string{"abc", "0", "-4"} {
		resp, body := do(t, customerApp(&stubCustomers{}), httptest.NewRequest(http.MethodGet, "/customers/"+id, nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, id)
		assert.Equal(t, "INVALID_ID", body["code"], id)
	}
}

func TestCustomerNotFound(t *testing.T) {
	svc := &stubCustomers{getErr: repository.ErrCustomerNotFound}
	resp, body := do(t, customerApp(svc), httptest.NewRequest(http.MethodGet, "/customers/9", nil))

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "CUSTOMER_NOT_FOUND", body["code"])
}

func TestCustomerDelete(t *testing.T) {
	svc := &stubCustomers{}
	resp, _ := do(t, customerApp(svc), httptest.NewRequest(http.MethodDelete, "/customers/12", nil))

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.EqualValues(t, 12, svc.deleted)
}

// Work orders

type stubWorkOrders struct {
	WorkOrderService
	filter repository.WorkOrderFilter
	change services.StatusChange
	input  services.WorkOrderInput
}

func (s *stubWorkOrders) Create(_ context.Context, in services.WorkOrderInput) (*models.WorkOrder, error) {
	s.input = in
	return &models.WorkOrder{ID: 1, CustomerID: in.CustomerID}, nil
}

func (s *stubWorkOrders) List(_ context.Context, f repository.WorkOrderFilter) (services.List[models.WorkOrder], error) {
	s.filter = f
	return services.List[models.WorkOrder]{Items: []models.WorkOrder{}}, nil
}

func (s *stubWorkOrders) ChangeStatus(_ context.Context, id uint, in services.StatusChange) (*models.WorkOrder, error) {
	s.change = in
	return &models.WorkOrder{ID: id, Status: models.WorkOrderStatus(in.Status)}, nil
}

func TestWorkOrderListFilters(t *testing.T) {
	svc := &stubWorkOrders{}
	app := newTestApp()
	app.Get("/work-orders", NewWorkOrderController(svc).List)

	resp, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/work-orders?status=in_progress&priority=high&customer_id=4&technician_id=x", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "IN_PROGRESS", svc.filter.Status)
	assert.Equal(t, "HIGH", svc.filter.Priority)
	assert.EqualValues(t, 4, svc.filter.CustomerID)
	assert.EqualValues(t, 0, svc.filter.TechnicianID)
}

func TestWorkOrderChangeStatus(t *testing.T) {
	svc := &stubWorkOrders{}
	app := newTestApp()
	app.Patch("/work-orders/:id/status", NewWorkOrderController(svc).ChangeStatus)

	resp, body := do(t, app, jsonRequest(http.MethodPatch, "/work-orders/5/status", map[string]any{"status": "COMPLETED"}))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "COMPLETED", svc.change.Status)
	assert.Equal(t, "COMPLETED", body["status"])

	resp, _ = do(t, app, jsonRequest(http.MethodPatch, "/work-orders/5/status", map[string]any{}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWorkOrderCreateAcceptsLowercasePriority(t *testing.T) {
	svc := &stubWorkOrders{}
	app := newTestApp()
	app.Post("/work-orders", NewWorkOrderController(svc).Create)

	resp, _ := do(t, app, jsonRequest(http.MethodPost, "/work-orders", map[string]any{
		"customer_id":         1,
		"problem_description": "no hashrate",
		"priority":            "urgent",
	}))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "urgent", svc.input.Priority)

	resp, body := do(t, app, jsonRequest(http.MethodPost, "/work-orders", map[string]any{
		"customer_id":         1,
		"problem_description": "no hashrate",
		"priority":            "asap",
	}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, map[string]any{"priority": "oneofci"}, body["fields"])
}

// Invoices and payments

type stubInvoices struct {
	InvoiceService
	sent, cancelled uint
	input           services.InvoiceInput
}

func (s *stubInvoices) Create(_ context.Context, in services.InvoiceInput) (*models.Invoice, error) {
	s.input = in
	return &models.Invoice{ID: 1, CustomerID: in.CustomerID}, nil
}

func (s *stubInvoices) Send(_ context.Context, id uint) (*models.Invoice, error) {
	s.sent = id
	return &models.Invoice{ID: id, Status: models.InvoiceSent}, nil
}

func (s *stubInvoices) Cancel(_ context.Context, id uint) (*models.Invoice, error) {
	s.cancelled = id
	return nil, services.ErrInvoiceHasPayments
}

type stubPayments struct {
	PaymentService
	invoiceID uint
	input     services.PaymentInput
	err       error
}

func (s *stubPayments) Create(_ context.Context, invoiceID uint, in services.PaymentInput) (*models.Payment, *models.Invoice, error) {
	s.invoiceID, s.input = invoiceID, in
	if s.err != nil {
		return nil, nil, s.err
	}
	return &models.Payment{ID: 1, InvoiceID: invoiceID, Amount: decimal.NewFromFloat(in.Amount)},
		&models.Invoice{ID: invoiceID, Status: models.InvoicePartial},
		nil
}

func invoiceApp(inv *stubInvoices, pay *stubPayments) *fiber.App {
	app := newTestApp()
	h := NewInvoiceController(inv, pay)
	app.Post("/invoices/:id/send", h.Send)
	app.Post("/invoices/:id/cancel", h.Cancel)
	app.Post("/invoices/:id/payments", h.CreatePayment)
	return app
}

func TestInvoiceSendAndCancel(t *testing.T) {
	inv := &stubInvoices{}
	app := invoiceApp(inv, &stubPayments{})

	resp, body := do(t, app, httptest.NewRequest(http.MethodPost, "/invoices/3/send", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, inv.sent)
	assert.Equal(t, string(models.InvoiceSent), body["status"])

	resp, body = do(t, app, httptest.NewRequest(http.MethodPost, "/invoices/3/cancel", nil))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVOICE_HAS_PAYMENTS", body["code"])
}

func TestCreatePayment(t *testing.T) {
	pay := &stubPayments{}
	resp, body := do(t, invoiceApp(&stubInvoices{}, pay), jsonRequest(http.MethodPost, "/invoices/8/payments", map[string]any{
		"amount":         1000,
		"payment_method": "BANK_TRANSFER",
	}))

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.EqualValues(t, 8, pay.invoiceID)
	assert.Equal(t, 1000.0, pay.input.Amount)
	assert.Contains(t, body, "payment")
	invoice, ok := body["invoice"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(models.InvoicePartial), invoice["status"])
}

func TestCreatePaymentRejected(t *testing.T) {
	pay := &stubPayments{err: services.ErrPaymentExceedsBalance}
	resp, body := do(t, invoiceApp(&stubInvoices{}, pay), jsonRequest(http.MethodPost, "/invoices/8/payments", map[string]any{
		"amount":         99999,
		"payment_method": "CASH",
	}))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "PAYMENT_EXCEEDS_BALANCE", body["code"])
}

func TestInvoiceCreateAcceptsLowercaseItemType(t *testing.T) {
	inv := &stubInvoices{}
	app := newTestApp()
	app.Post("/invoices", NewInvoiceController(inv, &stubPayments{}).Create)

	resp, _ := do(t, app, jsonRequest(http.MethodPost, "/invoices", map[string]any{
		"customer_id": 2,
		"items": []map[string]any{
			{"description": "PSU", "quantity": 1, "unit_price": 120, "type": "parts"},
			{"description": "Labour", "quantity": 1.5, "unit_price": 40, "type": "Service"},
		},
	}))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, inv.input.Items, 2)
	assert.Equal(t, "parts", inv.input.Items[0].Type)
}

func TestCreatePaymentAcceptsLowercaseMethod(t *testing.T) {
	pay := &stubPayments{}
	resp, _ := do(t, invoiceApp(&stubInvoices{}, pay), jsonRequest(http.MethodPost, "/invoices/8/payments", map[string]any{
		"amount":         50,
		"payment_method": "bank_transfer",
	}))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "bank_transfer", pay.input.PaymentMethod)
}

func TestCreatePaymentValidation(t *testing.T) {
	resp, _ := do(t, invoiceApp(&stubInvoices{}, &stubPayments{}), jsonRequest(http.MethodPost, "/invoices/8/payments", map[string]any{
		"amount":         0,
		"payment_method": "BITCOIN",
	}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
