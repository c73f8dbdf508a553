package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PalmTamino/Xboard/internal/database"
	"github.com/PalmTamino/Xboard/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 错误定义
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyPaid   = errors.New("order already paid")
	ErrOrderCancelled     = errors.New("order has been cancelled")
	ErrInvalidOrderStatus = errors.New("invalid order status for this operation")
)

// ReconcileOutcome describes what a verified gateway delivery did to its order.
type ReconcileOutcome int

const (
	// ReconcilePaid means this delivery won the pending→paid transition.
	ReconcilePaid ReconcileOutcome = iota
	// ReconcileAlreadyHandled means the order had already left pending;
	// the delivery is acknowledged without re-applying side effects.
	ReconcileAlreadyHandled
)

// OrderFilter 订单查询过滤条件
type OrderFilter struct {
	UserID    *uint
	Status    *string
	OrderType *string
	StartTime *time.Time
	EndTime   *time.Time
	MinAmount *int64
	MaxAmount *int64
	Page      int
	Limit     int
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	UserID      uint
	AmountMinor int64
	OrderType   string // "topup" or "manual"
	PaymentUUID string // 仅 topup 类型需要
	Remark      string
}

// CreateOrder 创建订单（通用方法）
func CreateOrder(req CreateOrderRequest) (*models.Order, error) {
	order := &models.Order{
		TradeNo:     strings.ReplaceAll(uuid.New().String(), "-", ""),
		UserID:      req.UserID,
		TotalAmount: req.AmountMinor,
		Status:      models.OrderStatusPending,
		OrderType:   req.OrderType,
		PaymentUUID: req.PaymentUUID,
		Remark:      req.Remark,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := database.DB.Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// CreateManualOrder 管理员创建手动订单
func CreateManualOrder(userID uint, amountMinor int64, remark string) (*models.Order, error) {
	return CreateOrder(CreateOrderRequest{
		UserID:      userID,
		AmountMinor: amountMinor,
		OrderType:   models.OrderTypeManual,
		Remark:      remark,
	})
}

// ReconcilePayment 将已验签的支付回调落到订单上
//
// The pending→paid transition is a single conditional update keyed on the
// current status, so concurrent deliveries of the same notification cannot
// both win: exactly one caller sees RowsAffected == 1 and applies the
// balance credit and audit record. Every other delivery for an existing
// order reports ReconcileAlreadyHandled and mutates nothing.
func ReconcilePayment(tradeNo, callbackNo string) (ReconcileOutcome, error) {
	outcome := ReconcileAlreadyHandled
	var order models.Order

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&models.Order{}).
			Where("trade_no = ? AND status = ?", tradeNo, models.OrderStatusPending).
			Updates(map[string]interface{}{
				"status":      models.OrderStatusPaid,
				"callback_no": callbackNo,
				"paid_at":     now,
				"updated_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			// Lost the transition: missing order or one already settled.
			if err := tx.First(&order, "trade_no = ?", tradeNo).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrOrderNotFound
				}
				return err
			}
			return nil
		}

		outcome = ReconcilePaid
		if err := tx.First(&order, "trade_no = ?", tradeNo).Error; err != nil {
			return err
		}
		return creditOrderAmount(tx, &order, 0, "system")
	})
	if err != nil {
		return ReconcileAlreadyHandled, err
	}

	if outcome == ReconcilePaid {
		// 通知运营,异步且不参与事务
		notifyOrderPaid(&order)
	}
	return outcome, nil
}

// CompleteOrder 管理员手动完成订单并充值
//
// Unlike the gateway path, an operator completing a settled order is a
// mistake worth surfacing, so already-paid and cancelled come back as
// errors instead of silent no-ops.
func CompleteOrder(tradeNo string, operatorID uint, operatorName string) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		// 1. 查询订单
		var order models.Order
		if err := tx.First(&order, "trade_no = ?", tradeNo).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		// 2. 检查订单状态
		if order.Status == models.OrderStatusPaid {
			return ErrOrderAlreadyPaid
		}
		if order.Status == models.OrderStatusCancelled {
			return ErrOrderCancelled
		}

		// 3. 条件更新订单状态,并发时只有一个赢家
		now := time.Now()
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
			Updates(map[string]interface{}{
				"status":       models.OrderStatusPaid,
				"paid_at":      now,
				"completed_by": operatorID,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOrderAlreadyPaid
		}

		order.Status = models.OrderStatusPaid
		order.PaidAt = &now
		order.CompletedBy = operatorID

		// 4. 充值并记账
		return creditOrderAmount(tx, &order, operatorID, operatorName)
	})
}

// creditOrderAmount 给订单对应用户入账并写交易记录
func creditOrderAmount(tx *gorm.DB, order *models.Order, operatorID uint, operatorName string) error {
	transactionType := models.TransactionTypeUserTopup
	reason := fmt.Sprintf("充值订单: %s", order.TradeNo)
	if order.OrderType == models.OrderTypeManual {
		transactionType = models.TransactionTypeManualTopup
		reason = fmt.Sprintf("管理员手动充值订单: %s", order.TradeNo)
		if order.Remark != "" {
			reason += fmt.Sprintf(" (%s)", order.Remark)
		}
	}

	_, err := applyBalanceChange(tx, order.UserID, order.TotalAmount,
		transactionType, reason, operatorName, operatorID)
	return err
}

// notifyOrderPaid 收款成功后推送运营通知
func notifyOrderPaid(order *models.Order) {
	var channel models.Payment
	if order.PaymentUUID != "" {
		if err := database.DB.First(&channel, "uuid = ?", order.PaymentUUID).Error; err != nil {
			zap.L().Warn("已支付订单找不到对应支付渠道",
				zap.String("trade_no", order.TradeNo),
				zap.String("payment_uuid", order.PaymentUUID),
				zap.Error(err))
		}
	}

	message := fmt.Sprintf("💰成功收款%.2f元\n———————————————\n支付接口:%s\n支付渠道:%s\n本站订单:`%s`",
		float64(order.TotalAmount)/100,
		channel.PaymentMethod,
		channel.Name,
		order.TradeNo)
	NotifyDisp.Dispatch(message)
}

// CancelOrder 取消订单
func CancelOrder(tradeNo string) error {
	var order models.Order
	if err := database.DB.First(&order, "trade_no = ?", tradeNo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}

	if order.Status != models.OrderStatusPending {
		return ErrInvalidOrderStatus
	}

	return database.DB.Model(&order).Updates(map[string]interface{}{
		"status":     models.OrderStatusCancelled,
		"updated_at": time.Now(),
	}).Error
}

// FindOrders 查询订单列表
func FindOrders(filter OrderFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := database.DB.Model(&models.Order{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.OrderType != nil {
		query = query.Where("order_type = ?", *filter.OrderType)
	}
	if filter.StartTime != nil {
		query = query.Where("created_at >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("created_at <= ?", *filter.EndTime)
	}
	if filter.MinAmount != nil {
		query = query.Where("total_amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("total_amount <= ?", *filter.MaxAmount)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Order("created_at desc").Limit(filter.Limit).Offset(offset).Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// GetOrderByTradeNo 根据交易号获取订单
func GetOrderByTradeNo(tradeNo string) (*models.Order, error) {
	var order models.Order
	if err := database.DB.First(&order, "trade_no = ?", tradeNo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}
