package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "DRAFT"
	InvoiceSent      InvoiceStatus = "SENT"
	InvoicePaid      InvoiceStatus = "PAID"
	InvoiceOverdue   InvoiceStatus = "OVERDUE"
	InvoicePartial   InvoiceStatus = "PARTIAL"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
)

type ItemType string

const (
	ItemService ItemType = "SERVICE"
	ItemParts   ItemType = "PARTS"
)

// Invoice is the aggregation root for its items and payments.
// TotalAmount, PaidAmount, BalanceAmount and Status always move together.
type Invoice struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	InvoiceNumber string     `json:"invoice_number" gorm:"size:32;uniqueIndex;not null"`
	CustomerID    uint       `json:"customer_id" gorm:"not null;index"`
	Customer      *Customer  `json:"customer,omitempty" gorm:"foreignKey:CustomerID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	WorkOrderID   *uint      `json:"work_order_id" gorm:"index"`
	WorkOrder     *WorkOrder `json:"work_order,omitempty" gorm:"foreignKey:WorkOrderID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	IssueDate     time.Time  `json:"issue_date"`
	DueDate       time.Time  `json:"due_date"`

	Items          []InvoiceItem   `json:"items" gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	TaxRate        decimal.Decimal `json:"tax_rate" gorm:"type:numeric(5,2);not null;default:0"`
	Subtotal       decimal.Decimal `json:"subtotal" gorm:"type:numeric(12,2);not null;default:0"`
	TaxAmount      decimal.Decimal `json:"tax_amount" gorm:"type:numeric(12,2);not null;default:0"`
	DiscountAmount decimal.Decimal `json:"discount_amount" gorm:"type:numeric(12,2);not null;default:0"`
	TotalAmount    decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2);not null;default:0"`
	PaidAmount     decimal.Decimal `json:"paid_amount" gorm:"type:numeric(12,2);not null;default:0"`
	BalanceAmount  decimal.Decimal `json:"balance_amount" gorm:"type:numeric(12,2);not null;default:0"`

	Status   InvoiceStatus `json:"status" gorm:"size:20;not null;default:DRAFT;index"`
	SentAt   *time.Time    `json:"sent_at"`
	Notes    string        `json:"notes" gorm:"type:text"`
	Payments []Payment     `json:"payments,omitempty" gorm:"foreignKey:InvoiceID;constraint:OnDelete:RESTRICT"`

	CreatedByID string    `json:"created_by_id" gorm:"size:36"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type InvoiceItem struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	InvoiceID   uint            `json:"-" gorm:"not null;index"`
	Description string          `json:"description" gorm:"size:255;not null"`
	Quantity    decimal.Decimal `json:"quantity" gorm:"type:numeric(10,2);not null"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	TotalPrice  decimal.Decimal `json:"total_price" gorm:"type:numeric(12,2);not null"`
	Type        ItemType        `json:"type" gorm:"size:10;not null;default:SERVICE"`
}
