package controllers

import (
	"context"
	"database/sql"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"creativesync-api/middlewares"
	"creativesync-api/models"
	"creativesync-api/storage"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	db     *sql.DB
	images *storage.ImageStore
}

func NewSubmissionController(db *sql.DB, images *storage.ImageStore) *SubmissionController {
	return &SubmissionController{db: db, images: images}
}

// Create 公开投稿，multipart和JSON两种形式都接受。
// 旧版单图字段image和多图字段images都收，第一张落到image_url保持兼容。
func (sc *SubmissionController) Create(c *gin.Context) {
	defer func() {
		middlewares.RecordOperation("submission", "create", c.Writer.Status() < 300)
	}()

	var req models.CreateSubmissionRequest
	var uploaded []string

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		req = models.CreateSubmissionRequest{
			FullName:   c.PostForm("full_name"),
			Email:      c.PostForm("email"),
			Phone:      c.PostForm("phone"),
			Address:    c.PostForm("address"),
			Title:      c.PostForm("title"),
			Year:       c.PostForm("year"),
			Medium:     c.PostForm("medium"),
			Dimensions: c.PostForm("dimensions"),
			Price:      c.PostForm("price"),
		}

		if ok := sc.requireFields(c, req); !ok {
			return
		}

		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		files := append([]*multipart.FileHeader{}, form.File["image"]...)
		files = append(files, form.File["images"]...)

		if err := validateAll(files); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if len(files) > 0 {
			uctx, ucancel := uploadCtx(c)
			defer ucancel()
			uploaded, err = uploadAll(uctx, sc.images, files, "submissions")
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}
		req.ImageURLs = models.StringList(uploaded)
		if len(uploaded) > 0 {
			req.ImageURL = uploaded[0]
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if ok := sc.requireFields(c, req); !ok {
			return
		}
		// JSON形式下沿用客户端给的URL，保持旧接口兼容
		if req.ImageURL != "" && len(req.ImageURLs) == 0 {
			req.ImageURLs = models.StringList{req.ImageURL}
		}
		if req.ImageURL == "" && len(req.ImageURLs) > 0 {
			req.ImageURL = req.ImageURLs[0]
		}
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	result, err := sc.db.ExecContext(ctx, `
		INSERT INTO submissions (full_name, email, phone, address, title, year, medium,
		                         dimensions, price, image_url, image_urls, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, req.FullName, req.Email, req.Phone, req.Address, req.Title, req.Year, req.Medium,
		req.Dimensions, req.Price,
		sql.NullString{String: req.ImageURL, Valid: req.ImageURL != ""},
		req.ImageURLs, models.StatusPending)
	if err != nil {
		// 入库失败，回收本次上传的全部图片
		sc.deleteImages(uploaded)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	id, _ := result.LastInsertId()
	sub, err := sc.fetch(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, sub.Response())
}

func (sc *SubmissionController) List(c *gin.Context) {
	ctx, cancel := dbCtx(c)
	defer cancel()

	rows, err := sc.db.QueryContext(ctx, `
		SELECT id, full_name, email, phone, address, title, year, medium, dimensions,
		       price, image_url, image_urls, status, created_at
		FROM submissions
		ORDER BY created_at DESC
	`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer rows.Close()

	submissions := make([]models.SubmissionResponse, 0)
	for rows.Next() {
		var s models.Submission
		var phone, address, year, medium, dimensions, price sql.NullString
		if err := rows.Scan(&s.ID, &s.FullName, &s.Email, &phone, &address, &s.Title,
			&year, &medium, &dimensions, &price, &s.ImageURL, &s.ImageURLs,
			&s.Status, &s.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		s.Phone, s.Address, s.Year = phone.String, address.String, year.String
		s.Medium, s.Dimensions, s.Price = medium.String, dimensions.String, price.String
		submissions = append(submissions, s.Response())
	}

	c.JSON(http.StatusOK, submissions)
}

func (sc *SubmissionController) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	sub, err := sc.fetch(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sub.Response())
}

func (sc *SubmissionController) Delete(c *gin.Context) {
	defer func() {
		middlewares.RecordOperation("submission", "delete", c.Writer.Status() < 300)
	}()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	existing, err := sc.fetch(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result, err := sc.db.ExecContext(ctx, "DELETE FROM submissions WHERE id = ?", id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}

	// 单图字段和列表可能重复，DeleteMany会去重
	urls := append([]string{}, existing.ImageURLs...)
	if existing.ImageURL.Valid {
		urls = append(urls, existing.ImageURL.String)
	}
	sc.deleteImages(urls)

	c.JSON(http.StatusOK, gin.H{"message": "Submission deleted successfully"})
}

func (sc *SubmissionController) requireFields(c *gin.Context, req models.CreateSubmissionRequest) bool {
	if strings.TrimSpace(req.FullName) == "" || strings.TrimSpace(req.Email) == "" ||
		strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Full name, email, and title are required."})
		return false
	}
	return true
}

func (sc *SubmissionController) fetch(ctx context.Context, id int64) (models.Submission, error) {
	var s models.Submission
	var phone, address, year, medium, dimensions, price sql.NullString
	err := sc.db.QueryRowContext(ctx, `
		SELECT id, full_name, email, phone, address, title, year, medium, dimensions,
		       price, image_url, image_urls, status, created_at
		FROM submissions
		WHERE id = ?
	`, id).Scan(&s.ID, &s.FullName, &s.Email, &phone, &address, &s.Title,
		&year, &medium, &dimensions, &price, &s.ImageURL, &s.ImageURLs,
		&s.Status, &s.CreatedAt)
	if err != nil {
		return s, err
	}
	s.Phone, s.Address, s.Year = phone.String, address.String, year.String
	s.Medium, s.Dimensions, s.Price = medium.String, dimensions.String, price.String
	return s, nil
}

func (sc *SubmissionController) deleteImages(urls []string) {
	if len(urls) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()
	sc.images.DeleteMany(ctx, urls)
}
