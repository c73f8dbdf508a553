package payment

import "time"

type CreatePaymentChannelRequest struct {
	Name          string                 `json:"name" binding:"required"`
	PaymentMethod string                 `json:"payment_method" binding:"required"` // e.g. "epay"
	Config        map[string]interface{} `json:"config" binding:"required"`
	Enable        bool                   `json:"enable"`
}

type UpdatePaymentChannelRequest struct {
	Name   string                 `json:"name"`
	Config map[string]interface{} `json:"config"`
	Enable *bool                  `json:"enable"` // Pointer to allow false
}

type PaymentChannelResponse struct {
	ID            uint                   `json:"id"`
	UUID          string                 `json:"uuid"`
	Name          string                 `json:"name"`
	PaymentMethod string                 `json:"payment_method"`
	Config        map[string]interface{} `json:"config"`
	Enable        bool                   `json:"enable"`
	CreatedAt     string                 `json:"created_at"`
	UpdatedAt     string                 `json:"updated_at"`
}

// CallbackLogItem 回调日志列表项
type CallbackLogItem struct {
	ID            uint              `json:"id"`
	PaymentUUID   string            `json:"payment_uuid"`
	PaymentMethod string            `json:"payment_method"`
	TradeNo       string            `json:"trade_no,omitempty"`
	Params        map[string]string `json:"params"`
	Status        string            `json:"status"`
	Detail        string            `json:"detail,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// CallbackLogResponse 回调日志列表响应
type CallbackLogResponse struct {
	Callbacks []CallbackLogItem `json:"callbacks"`
	Total     int64             `json:"total"`
	Page      int               `json:"page"`
	Limit     int               `json:"limit"`
}
