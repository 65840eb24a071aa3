// Package billing holds the invoice money rules: totals, balance, status
// resolution and payment application. Every function is pure; callers
// supply "today" so results never depend on the wall clock.
package billing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"minerfix-backend/models"
)

var hundred = decimal.NewFromInt(100)

var (
	ErrNonPositiveAmount = errors.New("payment amount must be greater than zero")
	ErrExceedsBalance    = errors.New("payment amount exceeds invoice balance")
	ErrInvoiceCancelled  = errors.New("invoice is cancelled")
)

// Line is the part of an invoice item that takes part in the totals.
type Line struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

type Totals struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
}

// Round2 rounds half away from zero to cents, matching NUMERIC(12,2) columns.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineTotal is quantity × unit price in cents.
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return Round2(quantity.Mul(unitPrice))
}

// CalculateTotals never fails: a discount larger than subtotal+tax floors the
// total at zero instead of producing a negative invoice.
func CalculateTotals(lines []Line, taxRate, discount decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(LineTotal(l.Quantity, l.UnitPrice))
	}
	tax := Round2(subtotal.Mul(taxRate).Div(hundred))
	discount = Round2(discount)
	total := subtotal.Add(tax).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return Totals{
		Subtotal:       subtotal,
		TaxAmount:      tax,
		DiscountAmount: discount,
		TotalAmount:    total,
	}
}

// Balance is the amount still owed, floored at zero.
func Balance(total, paid decimal.Decimal) decimal.Decimal {
	b := total.Sub(paid)
	if b.IsNegative() {
		return decimal.Zero
	}
	return b
}

// ResolveStatus derives the invoice status from its money state. The rules are
// evaluated in order and the first match wins; an overdue invoice with a partial
// payment reports OVERDUE.
func ResolveStatus(dueDate time.Time, total, paid decimal.Decimal, current models.InvoiceStatus, today time.Time) models.InvoiceStatus {
	balance := Balance(total, paid)
	switch {
	case current == models.InvoiceCancelled:
		return models.InvoiceCancelled
	case balance.IsZero():
		return models.InvoicePaid
	case PastDue(dueDate, today):
		return models.InvoiceOverdue
	case paid.IsPositive() && balance.IsPositive():
		return models.InvoicePartial
	case current == models.InvoiceSent:
		return models.InvoiceSent
	default:
		return models.InvoiceDraft
	}
}

// PastDue compares calendar days in the due date's location. A zero due date is never past due.
func PastDue(dueDate, today time.Time) bool {
	if dueDate.IsZero() {
		return false
	}
	ty, tm, td := today.In(dueDate.Location()).Date()
	dy, dm, dd := dueDate.Date()
	return time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC).After(time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC))
}

// State is the financial slice of an invoice that payments touch.
type State struct {
	DueDate time.Time
	Total   decimal.Decimal
	Paid    decimal.Decimal
	Balance decimal.Decimal
	Status  models.InvoiceStatus
	// Sent survives every later status, so undoing payments on a sent
	// invoice never drops it back to DRAFT.
	Sent bool
}

// StateOf extracts the financial state of inv.
func StateOf(inv *models.Invoice) State {
	return State{
		DueDate: inv.DueDate,
		Total:   inv.TotalAmount,
		Paid:    inv.PaidAmount,
		Balance: Balance(inv.TotalAmount, inv.PaidAmount),
		Status:  inv.Status,
		Sent:    inv.SentAt != nil,
	}
}

// Apply copies st back onto inv.
func (st State) Apply(inv *models.Invoice) {
	inv.TotalAmount = st.Total
	inv.PaidAmount = st.Paid
	inv.BalanceAmount = st.Balance
	inv.Status = st.Status
}

// issuedStatus is the status ResolveStatus falls back to once no money rule
// matches: SENT for an invoice that has been sent, DRAFT otherwise.
func issuedStatus(current models.InvoiceStatus, sent bool) models.InvoiceStatus {
	switch {
	case current == models.InvoiceCancelled:
		return models.InvoiceCancelled
	case sent || current == models.InvoiceSent:
		return models.InvoiceSent
	default:
		return models.InvoiceDraft
	}
}

// ApplyPayment returns the state after paying amount. On error st is returned unchanged.
func ApplyPayment(st State, amount decimal.Decimal, today time.Time) (State, error) {
	if !amount.IsPositive() {
		return st, ErrNonPositiveAmount
	}
	if st.Status == models.InvoiceCancelled {
		return st, ErrInvoiceCancelled
	}
	if amount.GreaterThan(Balance(st.Total, st.Paid)) {
		return st, ErrExceedsBalance
	}
	next := st
	next.Paid = st.Paid.Add(amount)
	next.Balance = Balance(next.Total, next.Paid)
	next.Status = ResolveStatus(next.DueDate, next.Total, next.Paid, issuedStatus(st.Status, st.Sent), today)
	return next, nil
}

// ReversePayment undoes a previously applied payment. Paid never drops below zero.
func ReversePayment(st State, amount decimal.Decimal, today time.Time) State {
	next := st
	next.Paid = st.Paid.Sub(amount)
	if next.Paid.IsNegative() {
		next.Paid = decimal.Zero
	}
	next.Balance = Balance(next.Total, next.Paid)
	next.Status = ResolveStatus(next.DueDate, next.Total, next.Paid, issuedStatus(st.Status, st.Sent), today)
	return next
}

// Recalculate refreshes totals and rollups of inv from its items.
func Recalculate(inv *models.Invoice, today time.Time) {
	lines := make([]Line, 0, len(inv.Items))
	for i := range inv.Items {
		it := &inv.Items[i]
		it.TotalPrice = LineTotal(it.Quantity, it.UnitPrice)
		lines = append(lines, Line{Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	t := CalculateTotals(lines, inv.TaxRate, inv.DiscountAmount)
	inv.Subtotal = t.Subtotal
	inv.TaxAmount = t.TaxAmount
	inv.DiscountAmount = t.DiscountAmount
	inv.TotalAmount = t.TotalAmount
	inv.BalanceAmount = Balance(inv.TotalAmount, inv.PaidAmount)
	inv.Status = ResolveStatus(inv.DueDate, inv.TotalAmount, inv.PaidAmount, issuedStatus(inv.Status, inv.SentAt != nil), today)
}
