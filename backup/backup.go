// Package backup writes ZIP archives holding one JSON document per table
// and keeps them in a directory or an S3-compatible bucket.
package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"time"

	"minerfix-backend/apperror"
	"minerfix-backend/audit"

	"go.uber.org/zap"
)

var (
	ErrNotFound    = apperror.NotFound("BACKUP_NOT_FOUND", "backup not found")
	ErrInvalidName = apperror.Validation("INVALID_BACKUP_NAME", "backup name is not valid")
)

var namePattern = regexp.MustCompile(`^backup-\d{8}-\d{6}\.zip$`)

// Table names a table to dump and the columns left out of the archive.
type Table struct {
	Name string
	Omit []string
}

// DefaultTables lists everything the application persists, parents first.
var DefaultTables = []Table{
	{Name: "permissions"},
	{Name: "roles"},
	{Name: "role_permissions"},
	{Name: "users", Omit: []string{"password"}},
	{Name: "customers"},
	{Name: "technicians"},
	{Name: "miner_models"},
	{Name: "work_orders"},
	{Name: "invoices"},
	{Name: "invoice_items"},
	{Name: "payments"},
	{Name: "audit_logs"},
}

// Info describes a stored archive.
type Info struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

type Store interface {
	Put(ctx context.Context, name string, r io.Reader, size int64) error
	List(ctx context.Context) ([]Info, error)
	// Open returns ErrNotFound when name does not exist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Source reads the rows of one table.
type Source interface {
	Rows(ctx context.Context, table string) ([]map[string]any, error)
}

type Auditor interface {
	Log(ctx context.Context, ev audit.Event)
}

type manifest struct {
	CreatedAt time.Time      `json:"created_at"`
	Tables    map[string]int `json:"tables"`
}

type Service struct {
	src    Source
	store  Store
	tables []Table
	audit  Auditor
	log    *zap.Logger
	now    func() time.Time
}

func NewService(src Source, store Store, a Auditor, log *zap.Logger) *Service {
	return &Service{src: src, store: store, tables: DefaultTables, audit: a, log: log, now: time.Now}
}

// Create dumps every table into a new archive and stores it.
func (s *Service) Create(ctx context.Context) (Info, error) {
	now := s.now().UTC()
	name := fmt.Sprintf("backup-%s.zip", now.Format("20060102-150405"))

	data, counts, err := s.archive(ctx, now)
	if err != nil {
		s.record(ctx, name, audit.StatusFailed, map[string]any{"error": err.Error()})
		return Info{}, apperror.Internal(err)
	}
	if err := s.store.Put(ctx, name, bytes.NewReader(data), int64(len(data))); err != nil {
		s.record(ctx, name, audit.StatusFailed, map[string]any{"error": err.Error()})
		return Info{}, apperror.Internal(fmt.Errorf("store backup: %w", err))
	}

	s.log.Info("backup created", zap.String("name", name), zap.Int("bytes", len(data)))
	s.record(ctx, name, audit.StatusSuccess, map[string]any{"tables": counts, "size": len(data)})
	return Info{Name: name, Size: int64(len(data)), CreatedAt: now}, nil
}

func (s *Service) archive(ctx context.Context, now time.Time) ([]byte, map[string]int, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	counts := make(map[string]int, len(s.tables))

	for _, t := range s.tables {
		rows, err := s.src.Rows(ctx, t.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("dump %s: %w", t.Name, err)
		}
		for _, row := range rows {
			for _, col := range t.Omit {
				delete(row, col)
			}
		}
		if rows == nil {
			rows = []map[string]any{}
		}
		if err := writeJSON(zw, t.Name+".json", now, rows); err != nil {
			return nil, nil, err
		}
		counts[t.Name] = len(rows)
	}

	if err := writeJSON(zw, "manifest.json", now, manifest{CreatedAt: now, Tables: counts}); err != nil {
		return nil, nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), counts, nil
}

func writeJSON(zw *zip.Writer, name string, modified time.Time, v any) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (s *Service) List(ctx context.Context) ([]Info, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if items == nil {
		items = []Info{}
	}
	return items, nil
}

// Open returns the archive for download. The caller closes it.
func (s *Service) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if !namePattern.MatchString(name) {
		return nil, ErrInvalidName
	}
	rc, err := s.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	s.record(ctx, name, audit.StatusSuccess, map[string]any{"download": true})
	return rc, nil
}

func (s *Service) record(ctx context.Context, name string, status audit.Status, details map[string]any) {
	s.audit.Log(ctx, audit.Event{
		Action:     audit.ActionExport,
		Resource:   "backup",
		ResourceID: name,
		Status:     status,
		Category:   audit.CategorySystem,
		Details:    details,
	})
}
