package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type WorkOrderStatus string

const (
	WorkOrderPending      WorkOrderStatus = "PENDING"
	WorkOrderInProgress   WorkOrderStatus = "IN_PROGRESS"
	WorkOrderWaitingParts WorkOrderStatus = "WAITING_PARTS"
	WorkOrderCompleted    WorkOrderStatus = "COMPLETED"
	WorkOrderCancelled    WorkOrderStatus = "CANCELLED"
)

type WorkOrderPriority string

const (
	PriorityLow    WorkOrderPriority = "LOW"
	PriorityMedium WorkOrderPriority = "MEDIUM"
	PriorityHigh   WorkOrderPriority = "HIGH"
	PriorityUrgent WorkOrderPriority = "URGENT"
)

var workOrderTransitions = map[WorkOrderStatus][]WorkOrderStatus{
	WorkOrderPending:      {WorkOrderInProgress, WorkOrderWaitingParts, WorkOrderCancelled},
	WorkOrderInProgress:   {WorkOrderWaitingParts, WorkOrderCompleted, WorkOrderCancelled},
	WorkOrderWaitingParts: {WorkOrderInProgress, WorkOrderCancelled},
}

// CanTransitionTo reports whether the status table allows moving to next.
// COMPLETED and CANCELLED are terminal.
func (s WorkOrderStatus) CanTransitionTo(next WorkOrderStatus) bool {
	for _, allowed := range workOrderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s WorkOrderStatus) Valid() bool {
	switch s {
	case WorkOrderPending, WorkOrderInProgress, WorkOrderWaitingParts, WorkOrderCompleted, WorkOrderCancelled:
		return true
	}
	return false
}

type WorkOrder struct {
	ID                 uint                `json:"id" gorm:"primaryKey"`
	OrderNumber        string              `json:"order_number" gorm:"size:32;uniqueIndex;not null"`
	CustomerID         uint                `json:"customer_id" gorm:"not null;index"`
	Customer           *Customer           `json:"customer,omitempty" gorm:"foreignKey:CustomerID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	TechnicianID       *uint               `json:"technician_id" gorm:"index"`
	Technician         *Technician         `json:"technician,omitempty" gorm:"foreignKey:TechnicianID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	MinerModelID       *uint               `json:"miner_model_id" gorm:"index"`
	MinerModel         *MinerModel         `json:"miner_model,omitempty" gorm:"foreignKey:MinerModelID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	SerialNumber       string              `json:"serial_number" gorm:"size:100"`
	ProblemDescription string              `json:"problem_description" gorm:"type:text;not null"`
	Diagnosis          string              `json:"diagnosis" gorm:"type:text"`
	Notes              string              `json:"notes" gorm:"type:text"`
	Status             WorkOrderStatus     `json:"status" gorm:"size:20;not null;default:PENDING;index"`
	Priority           WorkOrderPriority   `json:"priority" gorm:"size:10;not null;default:MEDIUM"`
	EstimatedCost      decimal.Decimal     `json:"estimated_cost" gorm:"type:numeric(12,2);not null;default:0"`
	ActualCost         decimal.NullDecimal `json:"actual_cost" gorm:"type:numeric(12,2)"`
	ReceivedDate       time.Time           `json:"received_date"`
	CompletedDate      *time.Time          `json:"completed_date"`
	CreatedByID        string              `json:"created_by_id" gorm:"size:36"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}
