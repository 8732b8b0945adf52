package controllers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"creativesync-api/middlewares"
	"creativesync-api/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func adminRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gin.SetMode(gin.TestMode)
	ac := NewAdminController(db, testSecret)
	auth := middlewares.AuthMiddleware(testSecret)
	r := gin.New()
	r.POST("/api/admin/signup", ac.Signup)
	r.POST("/api/admin/login", ac.Login)
	r.GET("/api/admin/verify", auth, ac.Verify)
	return r, mock
}

func TestSignupMissingCredentials(t *testing.T) {
	r, mock := adminRouter(t)

	w := postJSON(r, "/api/admin/signup", map[string]string{"email": "a@b.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Email and password required")

	w = postJSON(r, "/api/admin/signup", map[string]string{"password": "secret"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignup(t *testing.T) {
	r, mock := adminRouter(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO admins")).
		WithArgs("isaac@creative.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	w := postJSON(r, "/api/admin/signup", map[string]string{
		"email":    "isaac@creative.com",
		"password": "creative-agency",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Admin signup successful")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin(t *testing.T) {
	r, mock := adminRouter(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("creative-agency"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("FROM admins WHERE email = ?")).
		WithArgs("isaac@creative.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash"}).
			AddRow(1, "isaac@creative.com", string(hash)))

	w := postJSON(r, "/api/admin/login", map[string]string{
		"email":    "isaac@creative.com",
		"password": "creative-agency",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Message string `json:"message"`
		Token   string `json:"token"`
		Session struct {
			AccessToken string `json:"access_token"`
			TokenType   string `json:"token_type"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Admin login successful", resp.Message)
	assert.Equal(t, resp.Token, resp.Session.AccessToken)
	assert.Equal(t, "bearer", resp.Session.TokenType)

	// 签发的token必须能通过校验
	claims, err := utils.ParseToken(testSecret, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.AdminID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPassword(t *testing.T) {
	r, mock := adminRouter(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("creative-agency"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("FROM admins WHERE email = ?")).
		WithArgs("isaac@creative.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash"}).
			AddRow(1, "isaac@creative.com", string(hash)))

	w := postJSON(r, "/api/admin/login", map[string]string{
		"email":    "isaac@creative.com",
		"password": "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid login credentials")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUnknownEmail(t *testing.T) {
	r, mock := adminRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM admins WHERE email = ?")).
		WithArgs("nobody@b.com").
		WillReturnError(sql.ErrNoRows)

	w := postJSON(r, "/api/admin/login", map[string]string{
		"email":    "nobody@b.com",
		"password": "whatever",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerify(t *testing.T) {
	r, mock := adminRouter(t)

	token, err := utils.GenerateToken(testSecret, 1, "isaac@creative.com")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("FROM admins WHERE id = ?")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).
			AddRow(1, "isaac@creative.com"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/verify", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "isaac@creative.com")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyNoToken(t *testing.T) {
	r, mock := adminRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/verify", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyDeletedAdmin(t *testing.T) {
	r, mock := adminRouter(t)

	token, err := utils.GenerateToken(testSecret, 9, "gone@b.com")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("FROM admins WHERE id = ?")).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/verify", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
