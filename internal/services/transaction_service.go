package services

import (
	"bytes"
	"crypto/hmac"
	"encoding/csv"
	"errors"
	"fmt"
	"time"

	"github.com/PalmTamino/Xboard/config"
	"github.com/PalmTamino/Xboard/internal/database"
	"github.com/PalmTamino/Xboard/internal/models"
	"gorm.io/gorm"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// TransactionFilter defines criteria for filtering transactions.
// Reason matches as a substring so admins can look up the rows behind
// an order by its trade number (topup reasons embed it).
type TransactionFilter struct {
	UserID    *uint
	Type      *models.TransactionType
	Operator  *string
	Reason    *string
	StartTime *time.Time
	EndTime   *time.Time
	MinAmount *int64
	MaxAmount *int64
	Page      int
	Limit     int
}

// transactionHashSecret 交易防篡改哈希所用密钥
func transactionHashSecret() string {
	cfg, _ := config.LoadConfig()
	if cfg != nil && cfg.JWTSecret != "" {
		return cfg.JWTSecret
	}
	return "default-secret"
}

// FindTransactions retrieves a paginated list of transactions with filtering
func FindTransactions(filter TransactionFilter) ([]models.Transaction, int64, error) {
	var transactions []models.Transaction
	var total int64

	query := database.DB.Model(&models.Transaction{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Operator != nil {
		query = query.Where("operator = ?", *filter.Operator)
	}
	if filter.Reason != nil {
		query = query.Where("reason LIKE ?", "%"+*filter.Reason+"%")
	}
	if filter.StartTime != nil {
		query = query.Where("created_at >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("created_at <= ?", *filter.EndTime)
	}
	if filter.MinAmount != nil {
		query = query.Where("amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("amount <= ?", *filter.MaxAmount)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Order("created_at desc").Limit(filter.Limit).Offset(offset).Find(&transactions).Error; err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}

// GenerateTransactionCSV generates a CSV file content for transactions
func GenerateTransactionCSV(transactions []models.Transaction) ([]byte, error) {
	b := &bytes.Buffer{}
	w := csv.NewWriter(b)

	// Write header
	header := []string{
		"ID", "Time", "User ID", "Type", "Amount",
		"Balance Before", "Balance After", "Reason",
		"Operator", "Hash",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	// Amounts are stored in minor units; export in major units.
	for _, t := range transactions {
		record := []string{
			fmt.Sprintf("%d", t.ID),
			t.CreatedAt.Format(time.RFC3339Nano),
			fmt.Sprintf("%d", t.UserID),
			string(t.Type),
			fmt.Sprintf("%.2f", float64(t.Amount)/100),
			fmt.Sprintf("%.2f", float64(t.BalanceBefore)/100),
			fmt.Sprintf("%.2f", float64(t.BalanceAfter)/100),
			t.Reason,
			t.Operator,
			t.Hash,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// VerifyTransaction 重新计算流水哈希,核对入库后是否被改动过
func VerifyTransaction(id uint) (*models.Transaction, bool, error) {
	var transaction models.Transaction
	if err := database.DB.First(&transaction, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrTransactionNotFound
		}
		return nil, false, err
	}

	expected := transaction.GenerateHash(transactionHashSecret())
	valid := hmac.Equal([]byte(expected), []byte(transaction.Hash))
	return &transaction, valid, nil
}
