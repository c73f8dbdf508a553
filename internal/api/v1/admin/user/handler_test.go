package user_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	adminUser "github.com/PalmTamino/Xboard/internal/api/v1/admin/user"
	"github.com/PalmTamino/Xboard/internal/database"
	"github.com/PalmTamino/Xboard/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB() {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.Migrator().DropTable(&models.User{}, &models.Transaction{})
	if err := db.AutoMigrate(&models.User{}, &models.Transaction{}); err != nil {
		panic("failed to migrate database")
	}

	database.DB = db
}

// setupRouter mounts the admin user routes with the given operator already
// authenticated, the way the admin middleware would leave it.
func setupRouter(operator *models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	grp := r.Group("/admin")
	if operator != nil {
		grp.Use(func(c *gin.Context) {
			c.Set("user", *operator)
			c.Next()
		})
	}
	adminUser.RegisterRoutes(grp)
	return r
}

func TestListUsers(t *testing.T) {
	setupTestDB()

	seed := []models.User{
		{Username: "alice", Password: "x", Role: "user", Balance: 1999, Version: 1},
		{Username: "bob", Password: "x", Role: "user", Balance: 0, Version: 1},
		{Username: "root_op", Password: "x", Role: "admin", Balance: 0, Version: 1},
	}
	for i := range seed {
		database.DB.Create(&seed[i])
	}

	r := setupRouter(nil)

	decode := func(t *testing.T, body []byte) adminUser.UserListResponse {
		t.Helper()
		var resp struct {
			Status int                        `json:"status"`
			Data   adminUser.UserListResponse `json:"data"`
		}
		assert.NoError(t, json.Unmarshal(body, &resp))
		return resp.Data
	}

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		check          func(t *testing.T, page adminUser.UserListResponse)
	}{
		{
			name:           "list all",
			query:          "",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, page adminUser.UserListResponse) {
				assert.Equal(t, int64(3), page.Total)
				assert.Len(t, page.Users, 3)
				assert.Equal(t, int64(1999), page.Users[0].Balance)
			},
		},
		{
			name:           "search by username fragment",
			query:          "?username=li",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, page adminUser.UserListResponse) {
				assert.Equal(t, int64(1), page.Total)
				assert.Equal(t, "alice", page.Users[0].Username)
			},
		},
		{
			name:           "filter by role",
			query:          "?role=admin",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, page adminUser.UserListResponse) {
				assert.Equal(t, int64(1), page.Total)
				assert.Equal(t, "root_op", page.Users[0].Username)
			},
		},
		{
			name:           "pagination",
			query:          "?page=2&limit=2",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, page adminUser.UserListResponse) {
				assert.Equal(t, int64(3), page.Total)
				assert.Len(t, page.Users, 1)
			},
		},
		{
			name:           "invalid page",
			query:          "?page=abc",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "/admin/users"+tt.query, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.check != nil {
				tt.check(t, decode(t, w.Body.Bytes()))
			}
		})
	}
}

func TestAdjustBalance(t *testing.T) {
	setupTestDB()

	admin := models.User{Username: "admin_op", Password: "x", Role: "admin", Version: 1}
	database.DB.Create(&admin)
	target := models.User{Username: "customer", Password: "x", Role: "user", Balance: 10000, Version: 1}
	database.DB.Create(&target)

	r := setupRouter(&admin)

	adjust := func(userID uint, payload string) *httptest.ResponseRecorder {
		req, _ := http.NewRequest(http.MethodPost,
			fmt.Sprintf("/admin/users/%d/balance", userID),
			bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	// Case 1: credit leaves an audited transaction naming the operator
	w := adjust(target.ID, `{"amount":5000,"reason":"活动补偿"}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated models.User
	database.DB.First(&updated, target.ID)
	assert.Equal(t, int64(15000), updated.Balance)

	var trans models.Transaction
	assert.NoError(t, database.DB.Where("user_id = ?", target.ID).First(&trans).Error)
	assert.Equal(t, models.TransactionTypeAdminAdjustment, trans.Type)
	assert.Equal(t, "admin_op", trans.Operator)
	assert.Equal(t, admin.ID, trans.OperatorID)
	assert.Equal(t, "活动补偿", trans.Reason)

	// Case 2: debit below zero is rejected and nothing changes
	w = adjust(target.ID, `{"amount":-99999}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	database.DB.First(&updated, target.ID)
	assert.Equal(t, int64(15000), updated.Balance)

	// Case 3: unknown user
	w = adjust(4242, `{"amount":100}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Case 4: missing amount
	w = adjust(target.ID, `{"reason":"no amount"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
