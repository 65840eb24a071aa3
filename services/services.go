// Package services holds the business rules. Services depend on small store
// interfaces satisfied by the repository package and record every mutation
// in the audit log.
package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"minerfix-backend/audit"
	"minerfix-backend/repository"
)

// Transactor runs fn atomically; ctx passed to fn carries the transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Auditor is the write side of audit.Logger.
type Auditor interface {
	Log(ctx context.Context, ev audit.Event)
}

// List is one page of results.
type List[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

func newList[T any](items []T, total int64, p repository.Page) List[T] {
	p = p.Normalize()
	if items == nil {
		items = []T{}
	}
	return List[T]{Items: items, Total: total, Page: p.Page, PageSize: p.PageSize}
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func recordChange(ctx context.Context, a Auditor, action, resource string, id uint, details map[string]any) {
	a.Log(ctx, audit.Event{
		Action:     action,
		Resource:   resource,
		ResourceID: idString(id),
		Status:     audit.StatusSuccess,
		Category:   audit.CategoryDataModification,
		Details:    details,
	})
}

// LastNumberFinder returns the highest document number starting with prefix,
// or "" when there is none.
type LastNumberFinder func(ctx context.Context, prefix string) (string, error)

// nextNumber builds the next date-encoded document number, e.g. WO-20261015-0003.
// Numbers follow the highest existing suffix, so deleted documents leave gaps
// instead of causing collisions.
func nextNumber(ctx context.Context, kind string, now time.Time, last LastNumberFinder) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", kind, now.Format("20060102"))
	top, err := last(ctx, prefix)
	if err != nil {
		return "", err
	}
	var n uint64
	if top != "" {
		n, err = strconv.ParseUint(strings.TrimPrefix(top, prefix), 10, 64)
		if err != nil {
			return "", fmt.Errorf("malformed document number %q: %w", top, err)
		}
	}
	return fmt.Sprintf("%s%04d", prefix, n+1), nil
}
