package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/PalmTamino/Xboard/internal/api/v1/auth"
	userRoutes "github.com/PalmTamino/Xboard/internal/api/v1/user"
	"github.com/PalmTamino/Xboard/internal/database"
	"github.com/PalmTamino/Xboard/internal/middleware"
	"github.com/PalmTamino/Xboard/internal/models"
	"github.com/PalmTamino/Xboard/internal/services"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB() {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.Migrator().DropTable(&models.User{})
	if err := db.AutoMigrate(&models.User{}); err != nil {
		panic("failed to migrate database")
	}

	database.DB = db
}

func setupTestRedis() *miniredis.Miniredis {
	mr, err := miniredis.Run()
	if err != nil {
		panic(err)
	}

	database.RedisClient = redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return mr
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	v1 := r.Group("/api/v1")
	auth.RegisterRoutes(v1)

	authorized := v1.Group("/")
	authorized.Use(middleware.AuthMiddleware())
	userRoutes.RegisterRoutes(authorized)
	return r
}

func TestLoginLogoutFlow(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()
	os.Setenv("JWT_SECRET", "test_secret")

	router := setupRouter()

	_, err := services.CreateUser("alice", "s3cret", "user")
	assert.NoError(t, err)

	// Case 1: wrong password
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(`{"username":"alice","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password")

	// Case 2: unknown user answers with the same message
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(`{"username":"mallory","password":"s3cret"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password")

	// Case 3: valid login returns a token
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(`{"username":"alice","password":"s3cret"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var loginResp struct {
		Status int                     `json:"status"`
		Data   userRoutes.UserResponse `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginResp))
	assert.Equal(t, "alice", loginResp.Data.Username)
	assert.NotEmpty(t, loginResp.Data.Token)
	token := loginResp.Data.Token

	// Case 4: the token opens the authenticated surface
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/v1/auth/user", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var meResp struct {
		Data userRoutes.UserResponse `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &meResp))
	assert.Equal(t, "alice", meResp.Data.Username)
	assert.Equal(t, int64(0), meResp.Data.Balance)

	// Case 5: logout revokes the token
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	denied, err := services.IsDenylisted(token)
	assert.NoError(t, err)
	assert.True(t, denied)

	// Case 6: the revoked token no longer works
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/v1/auth/user", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token has been revoked")
}

func TestLoginValidation(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()
	os.Setenv("JWT_SECRET", "test_secret")

	router := setupRouter()

	// Missing password
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(`{"username":"alice"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
