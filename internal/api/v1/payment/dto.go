package payment

// CreatePaymentRequest 发起充值请求,金额为最小货币单位(分)
type CreatePaymentRequest struct {
	Amount            int64  `json:"amount" binding:"required,gt=0"`
	PaymentMethodUUID string `json:"payment_method_uuid" binding:"required"`
	PaymentChannel    string `json:"payment_channel" binding:"omitempty,oneof=alipay wxpay"`
	ReturnURL         string `json:"return_url" binding:"required"`
}

type CreatePaymentResponse struct {
	JumpURL string `json:"jump_url"`
	TradeNo string `json:"trade_no"`
}

type PaymentMethodResponse struct {
	UUID string `json:"uuid"`
	Type string `json:"type"` // e.g., "epay"
	Name string `json:"name"`
}
