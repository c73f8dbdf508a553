package models

import "time"

const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusCancelled = "cancelled"
)

const (
	OrderTypeTopup  = "topup"  // paid through a gateway callback
	OrderTypeManual = "manual" // created and completed by an operator
)

type Order struct {
	ID          uint   `gorm:"primarykey"`
	TradeNo     string `gorm:"uniqueIndex;type:varchar(32);not null"` // panel-side order number
	UserID      uint   `gorm:"index;not null"`
	TotalAmount int64  `gorm:"not null"` // minor currency units (cents)
	Status      string `gorm:"type:varchar(20);index;default:'pending'"`
	OrderType   string `gorm:"type:varchar(20);default:'topup'"`
	PaymentUUID string `gorm:"type:varchar(36);index"` // which payment channel was used
	CallbackNo  string `gorm:"type:varchar(64);index"` // transaction id from the gateway
	Remark      string `gorm:"type:varchar(255)"`
	PaidAt      *time.Time
	CompletedBy uint `gorm:"default:0"` // operator id for manual completion, 0 for gateway
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
