package controllers

import (
	"database/sql"
	"errors"
	"net/http"

	"creativesync-api/database"
	"creativesync-api/middlewares"
	"creativesync-api/models"
	"creativesync-api/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type AdminController struct {
	db        *sql.DB
	jwtSecret string
}

func NewAdminController(db *sql.DB, jwtSecret string) *AdminController {
	return &AdminController{db: db, jwtSecret: jwtSecret}
}

func (ac *AdminController) Signup(c *gin.Context) {
	defer func() {
		middlewares.RecordOperation("admin", "signup", c.Writer.Status() < 300)
	}()

	var creds models.AdminCredentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if creds.Email == "" || creds.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password required"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	result, err := ac.db.ExecContext(ctx,
		"INSERT INTO admins (email, password_hash) VALUES (?, ?)",
		creds.Email, string(hash),
	)
	if err != nil {
		if database.IsDuplicateEntry(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "User already registered"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, _ := result.LastInsertId()
	c.JSON(http.StatusOK, gin.H{
		"message": "Admin signup successful",
		"user":    models.AdminUser{ID: id, Email: creds.Email, Role: "admin"},
	})
}

func (ac *AdminController) Login(c *gin.Context) {
	defer func() {
		middlewares.RecordOperation("admin", "login", c.Writer.Status() < 300)
	}()

	var creds models.AdminCredentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if creds.Email == "" || creds.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password required"})
		return
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	var admin models.Admin
	err := ac.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash FROM admins WHERE email = ?", creds.Email,
	).Scan(&admin.ID, &admin.Email, &admin.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid login credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(creds.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid login credentials"})
		return
	}

	token, err := utils.GenerateToken(ac.jwtSecret, admin.ID, admin.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	user := models.AdminUser{ID: admin.ID, Email: admin.Email, Role: "admin"}
	c.JSON(http.StatusOK, gin.H{
		"message": "Admin login successful",
		"token":   token,
		"session": models.AdminSession{
			AccessToken: token,
			TokenType:   "bearer",
			ExpiresIn:   int64(utils.TokenTTL.Seconds()),
			User:        user,
		},
	})
}

// Verify 把token解析成用户。挂在AuthMiddleware之后，claims已在上下文里。
func (ac *AdminController) Verify(c *gin.Context) {
	adminID := c.GetInt64("adminID")

	ctx, cancel := dbCtx(c)
	defer cancel()

	var user models.AdminUser
	err := ac.db.QueryRowContext(ctx,
		"SELECT id, email FROM admins WHERE id = ?", adminID,
	).Scan(&user.ID, &user.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	user.Role = "admin"

	c.JSON(http.StatusOK, gin.H{"user": user})
}
