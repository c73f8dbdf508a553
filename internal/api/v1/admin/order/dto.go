package order

import "time"

// CreateOrderRequest 创建手动订单请求,金额为最小货币单位(分)
type CreateOrderRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Remark string `json:"remark"`
}

// OrderListItem 订单列表项
type OrderListItem struct {
	ID          uint       `json:"id"`
	TradeNo     string     `json:"trade_no"`
	UserID      uint       `json:"user_id"`
	Amount      int64      `json:"amount"`
	Status      string     `json:"status"`
	OrderType   string     `json:"order_type"`
	PaymentUUID string     `json:"payment_uuid,omitempty"`
	CallbackNo  string     `json:"callback_no,omitempty"`
	Remark      string     `json:"remark,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CompletedBy uint       `json:"completed_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// OrderListResponse 订单列表响应
type OrderListResponse struct {
	Orders []OrderListItem `json:"orders"`
	Total  int64           `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}

// OrderDetailResponse 订单详情响应
type OrderDetailResponse struct {
	OrderListItem
	User *UserBrief `json:"user,omitempty"`
}

// UserBrief 用户简要信息
type UserBrief struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Balance  int64  `json:"balance"`
}
