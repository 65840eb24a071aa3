package controllers

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"minerfix-backend/apperror"
	"minerfix-backend/audit"
	"minerfix-backend/backup"
	"minerfix-backend/middlewares"
	"minerfix-backend/models"
	"minerfix-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Auth

type stubAuth struct {
	loggedOut bool
	meID      string
}

func (s *stubAuth) Register(_ context.Context, in services.RegisterInput) (*models.User, error) {
	return &models.User{Id: "u-new", Name: in.Name, Email: in.Email, IsActive: true}, nil
}

func (s *stubAuth) Login(_ context.Context, in services.LoginInput) (*services.Session, error) {
	if in.Password != "correct horse" {
		return nil, services.ErrInvalidCredentials
	}
	return &services.Session{
		User:        &models.User{Id: "u-1", Email: in.Email, Role: &models.Role{Name: models.RoleManager}},
		Permissions: []string{models.PermInvoicesView},
	}, nil
}

func (s *stubAuth) Logout(context.Context) { s.loggedOut = true }

func (s *stubAuth) Me(_ context.Context, id string) (*services.Session, error) {
	s.meID = id
	return &services.Session{User: &models.User{Id: id}, Permissions: []string{}}, nil
}

func authApp(t *testing.T, svc *stubAuth) (*fiber.App, *middlewares.TokenIssuer) {
	t.Helper()
	issuer, err := middlewares.NewTokenIssuer("controller-test-secret", time.Hour)
	require.NoError(t, err)

	app := newTestApp()
	h := NewAuthController(svc, issuer, true)
	app.Post("/auth/register", h.Register)
	app.Post("/auth/login", h.Login)
	app.Post("/auth/logout", middlewares.IsAuthenticated(issuer), h.Logout)
	app.Get("/auth/me", middlewares.IsAuthenticated(issuer), h.Me)
	return app, issuer
}

func cookieNamed(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegister(t *testing.T) {
	app, _ := authApp(t, &stubAuth{})

	resp, body := do(t, app, jsonRequest(http.MethodPost, "/auth/register", map[string]any{
		"name": "Dana", "email": "dana@minerfix.test", "password": "longenough", "password_confirm": "longenough",
	}))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "u-new", body["id"])
	assert.NotContains(t, body, "password")

	resp, _ = do(t, app, jsonRequest(http.MethodPost, "/auth/register", map[string]any{
		"name": "Dana", "email": "dana@minerfix.test", "password": "short",
	}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginIssuesTokenAndCookie(t *testing.T) {
	app, issuer := authApp(t, &stubAuth{})

	resp, body := do(t, app, jsonRequest(http.MethodPost, "/auth/login", map[string]any{
		"email": "ops@minerfix.test", "password": "correct horse",
	}))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, models.RoleManager, claims.Role)
	assert.Equal(t, []string{models.PermInvoicesView}, claims.Permissions)

	cookie := cookieNamed(resp, middlewares.CookieName)
	require.NotNil(t, cookie)
	assert.Equal(t, token, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
}

func TestLoginBadCredentials(t *testing.T) {
	app, _ := authApp(t, &stubAuth{})
	resp, body := do(t, app, jsonRequest(http.MethodPost, "/auth/login", map[string]any{
		"email": "ops@minerfix.test", "password": "wrong",
	}))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_CREDENTIALS", body["code"])
	assert.Nil(t, cookieNamed(resp, middlewares.CookieName))
}

func TestMeAndLogout(t *testing.T) {
	svc := &stubAuth{}
	app, issuer := authApp(t, svc)
	token, _, err := issuer.Issue("u-42", "tech@minerfix.test", models.RoleTechnician, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ := do(t, app, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "u-42", svc.meID)

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ = do(t, app, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, svc.loggedOut)
	cookie := cookieNamed(resp, middlewares.CookieName)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
}

// Roles

type stubRoles struct {
	RoleService
	replaced  []uint
	removed   [2]uint
	updateErr error
}

func (s *stubRoles) ReplacePermissions(_ context.Context, roleID uint, ids []uint) (*models.Role, error) {
	s.replaced = ids
	return &models.Role{ID: roleID}, nil
}

func (s *stubRoles) RemovePermission(_ context.Context, roleID, permissionID uint) error {
	s.removed = [2]uint{roleID, permissionID}
	return nil
}

func (s *stubRoles) Update(context.Context, uint, services.RolePatch) (*models.Role, error) {
	return nil, s.updateErr
}

func roleApp(svc *stubRoles) *fiber.App {
	app := newTestApp()
	h := NewRoleController(svc)
	app.Put("/roles/:id", h.Update)
	app.Put("/roles/:id/permissions", h.ReplacePermissions)
	app.Delete("/roles/:id/permissions/:permissionId", h.RemovePermission)
	return app
}

func TestReplacePermissionsAcceptsEmptyList(t *testing.T) {
	svc := &stubRoles{}
	resp, _ := do(t, roleApp(svc), jsonRequest(http.MethodPut, "/roles/10/permissions", map[string]any{"permission_ids": []uint{}}))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, svc.replaced)
	assert.Empty(t, svc.replaced)
}

func TestRemovePermissionReadsBothIDs(t *testing.T) {
	svc := &stubRoles{}
	resp, _ := do(t, roleApp(svc), httptest.NewRequest(http.MethodDelete, "/roles/10/permissions/3", nil))

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, [2]uint{10, 3}, svc.removed)
}

func TestSystemRoleUpdateIsForbidden(t *testing.T) {
	svc := &stubRoles{updateErr: services.ErrSystemRoleImmutable}
	resp, body := do(t, roleApp(svc), jsonRequest(http.MethodPut, "/roles/1", map[string]any{"display_name": "Boss"}))

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "SYSTEM_ROLE_IMMUTABLE", body["code"])
}

// Users

type stubUsers struct {
	UserService
	active *bool
}

func (s *stubUsers) SetActive(_ context.Context, id string, active bool) (*models.User, error) {
	s.active = &active
	return &models.User{Id: id, IsActive: active}, nil
}

func TestChangeStatusRequiresFlag(t *testing.T) {
	svc := &stubUsers{}
	app := newTestApp()
	app.Patch("/users/:id/status", NewUserController(svc).ChangeStatus)

	resp, _ := do(t, app, jsonRequest(http.MethodPatch, "/users/u-9/status", map[string]any{}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Nil(t, svc.active)

	resp, body := do(t, app, jsonRequest(http.MethodPatch, "/users/u-9/status", map[string]any{"is_active": false}))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, svc.active)
	assert.False(t, *svc.active)
	assert.Equal(t, false, body["is_active"])
}

// Audit

type stubAudit struct {
	filter audit.Filter
	logged []audit.Event
}

func (s *stubAudit) List(_ context.Context, f audit.Filter) ([]models.AuditLog, int64, error) {
	s.filter = f
	return []models.AuditLog{}, 0, nil
}

func (s *stubAudit) All(_ context.Context, f audit.Filter) ([]models.AuditLog, error) {
	s.filter = f
	return []models.AuditLog{
		{ID: "a1", Action: audit.ActionCreate, Resource: "invoice", ResourceID: "4", Status: "SUCCESS", Timestamp: time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)},
		{ID: "a2", Action: audit.ActionDelete, Resource: "payment", ResourceID: "2", Status: "SUCCESS", Timestamp: time.Date(2026, 10, 2, 8, 0, 0, 0, time.UTC)},
	}, nil
}

func (s *stubAudit) Stats(context.Context, audit.Filter) (audit.Stats, error) {
	return audit.Stats{}, nil
}

func (s *stubAudit) Log(_ context.Context, ev audit.Event) { s.logged = append(s.logged, ev) }

func auditApp(svc *stubAudit) *fiber.App {
	app := newTestApp()
	h := NewAuditController(svc)
	h.now = func() time.Time { return time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC) }
	app.Get("/audit-logs", h.List)
	app.Get("/audit-logs/export", h.Export)
	return app
}

func TestAuditListFilter(t *testing.T) {
	svc := &stubAudit{}
	resp, _ := do(t, auditApp(svc), httptest.NewRequest(http.MethodGet,
		"/audit-logs?action=delete&category=system&severity=CRITICAL&status=failed&from=2026-10-01&to=2026-10-15T23:59:59Z&page=2", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "DELETE", svc.filter.Action)
	assert.Equal(t, "SYSTEM", svc.filter.Category)
	assert.Equal(t, "critical", svc.filter.Severity)
	assert.Equal(t, "FAILED", svc.filter.Status)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), svc.filter.From)
	assert.Equal(t, 2, svc.filter.Page)
}

func TestAuditListRejectsBadDate(t *testing.T) {
	resp, body := do(t, auditApp(&stubAudit{}), httptest.NewRequest(http.MethodGet, "/audit-logs?from=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_DATE", body["code"])
}

func TestAuditExportCSV(t *testing.T) {
	svc := &stubAudit{}
	resp, err := auditApp(svc).Test(httptest.NewRequest(http.MethodGet, "/audit-logs/export?format=csv", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.True(t, strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), "text/csv"))
	assert.Equal(t, `attachment; filename="audit-logs-20261015-100000.csv"`, resp.Header.Get(fiber.HeaderContentDisposition))

	rows, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "a2", rows[2][0])

	require.Len(t, svc.logged, 1)
	assert.Equal(t, audit.ActionExport, svc.logged[0].Action)
	assert.Equal(t, 2, svc.logged[0].Details["count"])
}

func TestAuditExportRejectsUnknownFormat(t *testing.T) {
	svc := &stubAudit{}
	resp, body := do(t, auditApp(svc), httptest.NewRequest(http.MethodGet, "/audit-logs/export?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_FORMAT", body["code"])
	assert.Empty(t, svc.logged)
}

// Backups

type stubBackups struct {
	data []byte
}

func (s *stubBackups) Create(context.Context) (backup.Info, error) {
	return backup.Info{Name: "backup-20261015-100000.zip", Size: 512}, nil
}

func (s *stubBackups) List(context.Context) ([]backup.Info, error) {
	return []backup.Info{}, nil
}

func (s *stubBackups) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if name != "backup-20261015-100000.zip" {
		return nil, apperror.NotFound("BACKUP_NOT_FOUND", "backup not found")
	}
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func TestBackupCreateAndDownload(t *testing.T) {
	svc := &stubBackups{data: []byte("PK\x03\x04zip")}
	app := newTestApp()
	h := NewBackupController(svc)
	app.Post("/backups", h.Create)
	app.Get("/backups/:name", h.Download)

	resp, body := do(t, app, httptest.NewRequest(http.MethodPost, "/backups", nil))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "backup-20261015-100000.zip", body["name"])

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/backups/backup-20261015-100000.zip", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get(fiber.HeaderContentType))
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, svc.data, raw)

	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/backups/missing.zip", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
