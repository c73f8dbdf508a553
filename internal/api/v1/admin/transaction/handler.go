package transaction

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/PalmTamino/Xboard/internal/models"
	"github.com/PalmTamino/Xboard/internal/services"
	"github.com/PalmTamino/Xboard/internal/utils"
	"github.com/gin-gonic/gin"
)

// parseFilter 解析列表和导出共用的筛选参数
//
// In strict mode a malformed value answers 400 and returns false. Export
// runs lenient and just drops the bad value, a typo should not break a
// download an operator is waiting on.
func parseFilter(c *gin.Context, strict bool) (services.TransactionFilter, bool) {
	var filter services.TransactionFilter

	fail := func(msg string) bool {
		if strict {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, msg))
		}
		return strict
	}

	if userIDStr, exists := c.GetQuery("user_id"); exists {
		if userID, err := strconv.Atoi(userIDStr); err == nil {
			uid := uint(userID)
			filter.UserID = &uid
		} else if fail("Invalid user_id") {
			return filter, false
		}
	}

	if typeStr, exists := c.GetQuery("type"); exists {
		t := models.TransactionType(typeStr)
		filter.Type = &t
	}

	if operator, exists := c.GetQuery("operator"); exists {
		filter.Operator = &operator
	}

	// reason matches as a substring, e.g. a trade number
	if reason, exists := c.GetQuery("reason"); exists {
		filter.Reason = &reason
	}

	if startTimeStr, exists := c.GetQuery("start_time"); exists {
		if startTime, err := time.Parse(time.RFC3339, startTimeStr); err == nil {
			filter.StartTime = &startTime
		} else if fail("Invalid start_time format") {
			return filter, false
		}
	}

	if endTimeStr, exists := c.GetQuery("end_time"); exists {
		if endTime, err := time.Parse(time.RFC3339, endTimeStr); err == nil {
			filter.EndTime = &endTime
		} else if fail("Invalid end_time format") {
			return filter, false
		}
	}

	if minAmountStr, exists := c.GetQuery("min_amount"); exists {
		if minAmount, err := strconv.ParseInt(minAmountStr, 10, 64); err == nil {
			filter.MinAmount = &minAmount
		} else if fail("Invalid min_amount") {
			return filter, false
		}
	}

	if maxAmountStr, exists := c.GetQuery("max_amount"); exists {
		if maxAmount, err := strconv.ParseInt(maxAmountStr, 10, 64); err == nil {
			filter.MaxAmount = &maxAmount
		} else if fail("Invalid max_amount") {
			return filter, false
		}
	}

	return filter, true
}

// ListTransactions 查询交易流水,支持按用户、类型、操作人、时间和金额区间过滤
func ListTransactions(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid page number"))
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid limit number"))
		return
	}

	filter, ok := parseFilter(c, true)
	if !ok {
		return
	}
	filter.Page = page
	filter.Limit = limit

	transactions, total, err := services.FindTransactions(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to fetch transactions"))
		return
	}

	var items []TransactionListItem
	for _, t := range transactions {
		items = append(items, TransactionListItem{
			ID:            t.ID,
			CreatedAt:     t.CreatedAt,
			UserID:        t.UserID,
			Amount:        t.Amount,
			BalanceBefore: t.BalanceBefore,
			BalanceAfter:  t.BalanceAfter,
			Reason:        t.Reason,
			Operator:      t.Operator,
			Type:          t.Type,
			Hash:          t.Hash,
		})
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Transactions retrieved successfully", TransactionListResponse{
		Transactions: items,
		Total:        total,
		Page:         page,
		Limit:        limit,
	}))
}

// ExportTransactions 导出交易流水 CSV
func ExportTransactions(c *gin.Context) {
	filter, _ := parseFilter(c, false)
	filter.Page = 1
	filter.Limit = 10000 // Hard limit for safety

	transactions, _, err := services.FindTransactions(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to fetch transactions"))
		return
	}

	csvContent, err := services.GenerateTransactionCSV(transactions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to generate CSV"))
		return
	}

	filename := fmt.Sprintf("transactions_%s.csv", time.Now().Format("20060102150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv", csvContent)
}

// VerifyTransaction 校验单条流水的防篡改哈希
func VerifyTransaction(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid transaction ID"))
		return
	}

	transaction, valid, err := services.VerifyTransaction(uint(id))
	if err != nil {
		if err == services.ErrTransactionNotFound {
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, "Transaction not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to verify transaction"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Transaction verified", VerifyTransactionResponse{
		ID:    transaction.ID,
		Valid: valid,
		Hash:  transaction.Hash,
	}))
}
