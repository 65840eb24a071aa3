package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentCheque       PaymentMethod = "CHEQUE"
	PaymentOther        PaymentMethod = "OTHER"
)

// Payment references its invoice; the invoice rollup fields are maintained by the payment service.
type Payment struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	InvoiceID     uint            `json:"invoice_id" gorm:"not null;index:idx_payments_invoice_paid_at,priority:1"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	PaymentDate   time.Time       `json:"payment_date" gorm:"index:idx_payments_invoice_paid_at,priority:2"`
	PaymentMethod PaymentMethod   `json:"payment_method" gorm:"size:20;not null"`
	Reference     string          `json:"reference" gorm:"size:100"`
	Notes         string          `json:"notes" gorm:"type:text"`
	CreatedByID   string          `json:"created_by_id" gorm:"size:36"`
	CreatedAt     time.Time       `json:"created_at"`
}
