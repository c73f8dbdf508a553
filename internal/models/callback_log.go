package models

import (
	"time"

	"gorm.io/datatypes"
)

type CallbackStatus string

const (
	CallbackStatusReceived  CallbackStatus = "received"
	CallbackStatusHandled   CallbackStatus = "handled"
	CallbackStatusDuplicate CallbackStatus = "duplicate"
	CallbackStatusFailed    CallbackStatus = "failed"
)

// PaymentCallbackLog records every inbound gateway notification and how it
// was resolved. Raw params are kept verbatim for dispute handling.
type PaymentCallbackLog struct {
	ID            uint           `gorm:"primarykey"`
	PaymentUUID   string         `gorm:"type:varchar(36);index"`
	PaymentMethod string         `gorm:"type:varchar(50)"`
	TradeNo       string         `gorm:"type:varchar(32);index"`
	Params        datatypes.JSON `gorm:"type:json"`
	Status        CallbackStatus `gorm:"type:varchar(20);index;default:'received'"`
	Detail        string         `gorm:"type:varchar(255)"` // short outcome note, never raw errors from gateways
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
