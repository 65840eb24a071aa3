// Package repository holds the GORM-backed data access for each aggregate.
// Every method resolves its connection through database.Conn so it joins the
// request transaction when one is open.
package repository

import (
	"context"
	"errors"

	"minerfix-backend/apperror"
	"minerfix-backend/database"

	"gorm.io/gorm"
)

var (
	ErrDuplicate = apperror.Conflict("DUPLICATE", "a record with the same unique value already exists")
	ErrInUse     = apperror.Conflict("IN_USE", "record is still referenced")
)

// Page is a 1-based page request.
type Page struct {
	Page     int
	PageSize int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.PageSize
}

func paginate(q *gorm.DB, p Page) *gorm.DB {
	p = p.Normalize()
	return q.Offset(p.Offset()).Limit(p.PageSize)
}

func like(s string) string {
	return "%" + s + "%"
}

// translate maps driver-level errors onto the application taxonomy.
// duplicate may be nil, in which case ErrDuplicate is used.
func translate(err error, notFound, duplicate *apperror.Error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil:
		return notFound.Wrap(err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		if duplicate == nil {
			duplicate = ErrDuplicate
		}
		return duplicate.Wrap(err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrInUse.Wrap(err)
	}
	return err
}

type base struct {
	db *gorm.DB
}

func (b base) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, b.db)
}

// lastNumber returns the highest document number in column starting with
// prefix, or "" when there is none. Inside a transaction it first takes an
// advisory lock on the prefix, held until commit, so concurrent creates
// number one after another.
func (b base) lastNumber(ctx context.Context, model any, column, prefix string) (string, error) {
	db := b.conn(ctx)
	if _, ok := database.TxFrom(ctx); ok {
		if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix).Error; err != nil {
			return "", err
		}
	}
	var numbers []string
	err := db.Model(model).
		Where(column+" LIKE ?", prefix+"%").
		Order("LENGTH(" + column + ") DESC").
		Order(column + " DESC").
		Limit(1).
		Pluck(column, &numbers).Error
	if err != nil || len(numbers) == 0 {
		return "", err
	}
	return numbers[0], nil
}
