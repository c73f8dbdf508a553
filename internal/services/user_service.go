package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/PalmTamino/Xboard/internal/database"
	"github.com/PalmTamino/Xboard/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUsernameTaken       = errors.New("username already exists")
	ErrOptimisticLock      = errors.New("data has been modified by another user, please refresh and try again")
	ErrInsufficientBalance = errors.New("balance cannot go negative")
)

// CreateUser 创建用户,密码以 bcrypt 存储
func CreateUser(username, password, role string) (*models.User, error) {
	var count int64
	if err := database.DB.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: username,
		Password: string(hashedPassword),
		Role:     role,
	}
	if err := database.DB.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func FindUserByID(userID uint) (models.User, error) {
	// Try cache
	cacheKey := fmt.Sprintf("user:%d", userID)
	if database.RedisClient != nil {
		val, err := database.RedisClient.Get(database.Ctx, cacheKey).Result()
		if err == nil {
			var user models.User
			if err := json.Unmarshal([]byte(val), &user); err == nil {
				return user, nil
			}
		}
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return user, err
	}

	// Set cache
	if database.RedisClient != nil {
		if data, err := json.Marshal(user); err == nil {
			database.RedisClient.Set(database.Ctx, cacheKey, data, time.Hour)
		}
	}

	return user, nil
}

// DropUserCache 余额等字段变更后清掉缓存
func DropUserCache(userID uint) {
	if database.RedisClient == nil {
		return
	}
	cacheKey := fmt.Sprintf("user:%d", userID)
	database.RedisClient.Del(database.Ctx, cacheKey)
}

// UserFilter 用户列表查询条件,用户名为模糊匹配
type UserFilter struct {
	Username *string
	Role     *string
	Page     int
	Limit    int
}

// FindUsers retrieves a paginated list of users.
func FindUsers(filter UserFilter) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	query := database.DB.Model(&models.User{})
	if filter.Username != nil {
		query = query.Where("username LIKE ?", "%"+*filter.Username+"%")
	}
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Order("id").Limit(filter.Limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// applyBalanceChange 在事务内变更用户余额并写入交易记录
//
// The version check makes concurrent balance writes for the same user
// mutually exclusive: the loser rolls back with ErrOptimisticLock and the
// caller may retry against fresh state.
func applyBalanceChange(tx *gorm.DB, userID uint, amountMinor int64, txType models.TransactionType, reason, operatorName string, operatorID uint) (*models.Transaction, error) {
	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	balanceBefore := user.Balance
	balanceAfter := balanceBefore + amountMinor
	if balanceAfter < 0 {
		return nil, ErrInsufficientBalance
	}

	res := tx.Model(&models.User{}).
		Where("id = ? AND version = ?", user.ID, user.Version).
		Updates(map[string]interface{}{
			"balance":    balanceAfter,
			"version":    user.Version + 1,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrOptimisticLock
	}

	// 余额变了,缓存作废(事务回滚时多清一次也无害)
	DropUserCache(user.ID)

	transaction := &models.Transaction{
		UserID:        user.ID,
		Amount:        amountMinor,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
		Reason:        reason,
		Operator:      operatorName,
		OperatorID:    operatorID,
		Type:          txType,
		// Truncated to the column precision so the hash still matches
		// after a round-trip through the database.
		CreatedAt: time.Now().Truncate(time.Millisecond),
	}
	transaction.Hash = transaction.GenerateHash(transactionHashSecret())

	if err := tx.Create(transaction).Error; err != nil {
		return nil, err
	}
	return transaction, nil
}

// AdjustUserBalance 管理员直接调整用户余额,金额可正可负
func AdjustUserBalance(userID uint, amountMinor int64, reason string, operatorID uint, operatorName string) (*models.Transaction, error) {
	if reason == "" {
		reason = "管理员余额调整"
	}

	var transaction *models.Transaction
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		transaction, err = applyBalanceChange(tx, userID, amountMinor,
			models.TransactionTypeAdminAdjustment, reason, operatorName, operatorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return transaction, nil
}
