package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a settled payment recorded by the billing integration.
type Payment struct {
	BaseModel
	PatientID     string          `gorm:"size:36;index" json:"patient"`
	AppointmentID *string         `gorm:"size:36" json:"appointment,omitempty"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaidAt        time.Time       `gorm:"index;not null" json:"paid_at"`
}
