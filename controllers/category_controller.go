package controllers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"creativesync-api/database"
	"creativesync-api/middlewares"
	"creativesync-api/models"
	"creativesync-api/storage"

	"github.com/gin-gonic/gin"
)

type CategoryController struct {
	db     *sql.DB
	images *storage.ImageStore
}

func NewCategoryController(db *sql.DB, images *storage.ImageStore) *CategoryController {
	return &CategoryController{db: db, images: images}
}

func (cc *CategoryController) List(c *gin.Context) {
	ctx, cancel := dbCtx(c)
	defer cancel()

	rows, err := cc.db.QueryContext(ctx, `
		SELECT id, name, image, created_at
		FROM categories
		ORDER BY created_at DESC
	`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer rows.Close()

	categories := make([]models.CategoryResponse, 0)
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Image, &cat.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		categories = append(categories, cat.Response())
	}

	c.JSON(http.StatusOK, categories)
}

func (cc *CategoryController) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
		return
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	cat, err := cc.fetch(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, cat.Response())
}

// ListProducts 某分类下的全部产品，附带分类摘要
func (cc *CategoryController) ListProducts(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
		return
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	rows, err := cc.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.description, p.price, p.category_id, p.image, p.images, p.size,
		       p.created_at, p.updated_at, c.name
		FROM products p
		JOIN categories c ON p.category_id = c.id
		WHERE p.category_id = ?
		ORDER BY p.created_at DESC
	`, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer rows.Close()

	products := make([]models.ProductResponse, 0)
	for rows.Next() {
		var p models.Product
		var catName string
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CategoryID,
			&p.Image, &p.Images, &p.Size, &p.CreatedAt, &p.UpdatedAt, &catName); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		products = append(products, p.Response(&models.CategoryRef{ID: id, Name: catName}))
	}

	c.JSON(http.StatusOK, products)
}

func (cc *CategoryController) Create(c *gin.Context) {
	defer func() {
		middlewares.RecordOperation("category", "create", c.Writer.Status() < 300)
	}()

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
		return
	}

	checkCtx, checkCancel := dbCtx(c)
	defer checkCancel()

	// 查重在前，唯一索引兜底并发窗口
	var existingID int64
	err := cc.db.QueryRowContext(checkCtx, "SELECT id FROM categories WHERE name = ?", name).Scan(&existingID)
	if err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category name already exists"})
		return
	}
	if !errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var imageURL string
	if fh, err := c.FormFile("image"); err == nil {
		uctx, ucancel := uploadCtx(c)
		defer ucancel()
		imageURL, err = cc.images.Upload(uctx, fh, "categories")
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, storage.ErrInvalidFile) || errors.Is(err, storage.ErrTooLarge) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
	}

	// 上传可能耗时，插入另起DB超时计时
	ctx, cancel := dbCtx(c)
	defer cancel()

	result, err := cc.db.ExecContext(ctx,
		"INSERT INTO categories (name, image) VALUES (?, ?)",
		name, sql.NullString{String: imageURL, Valid: imageURL != ""},
	)
	if err != nil {
		// 插入失败时回收已上传的图片
		if imageURL != "" {
			cc.deleteImage(imageURL)
		}
		if database.IsDuplicateEntry(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Category name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	id, _ := result.LastInsertId()
	cat, err := cc.fetch(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, cat.Response())
}

func (cc *CategoryController) Update(c *gin.Context) {
	defer func() {
		middlewares.RecordOperation("category", "update", c.Writer.Status() < 300)
	}()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
		return
	}

	checkCtx, checkCancel := dbCtx(c)
	defer checkCancel()

	existing, err := cc.fetch(checkCtx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// 不允许改成其它分类已占用的名称
	var otherID int64
	err = cc.db.QueryRowContext(checkCtx, "SELECT id FROM categories WHERE name = ? AND id <> ?", name, id).Scan(&otherID)
	if err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category name already exists"})
		return
	}
	if !errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	imageURL := existing.Image.String
	oldImage := ""
	newUploaded := false
	if fh, ferr := c.FormFile("image"); ferr == nil {
		uctx, ucancel := uploadCtx(c)
		defer ucancel()
		newURL, uerr := cc.images.Upload(uctx, fh, "categories")
		if uerr != nil {
			status := http.StatusInternalServerError
			if errors.Is(uerr, storage.ErrInvalidFile) || errors.Is(uerr, storage.ErrTooLarge) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": uerr.Error()})
			return
		}
		oldImage = existing.Image.String
		imageURL = newURL
		newUploaded = true
	}

	// 上传可能耗时，更新另起DB超时计时
	ctx, cancel := dbCtx(c)
	defer cancel()

	_, err = cc.db.ExecContext(ctx,
		"UPDATE categories SET name = ?, image = ? WHERE id = ?",
		name, sql.NullString{String: imageURL, Valid: imageURL != ""}, id,
	)
	if err != nil {
		if newUploaded {
			// 行没更新成功，回收新上传的图，保留旧图
			cc.deleteImage(imageURL)
		}
		if database.IsDuplicateEntry(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Category name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// 新图已提交，旧图此时才删
	if oldImage != "" {
		cc.deleteImage(oldImage)
	}

	cat, err := cc.fetch(ctx, id)
	if err != nil {
		// 期间被并发删除：UPDATE落空，新图成了孤儿
		if errors.Is(err, sql.ErrNoRows) {
			if newUploaded {
				cc.deleteImage(imageURL)
			}
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, cat.Response())
}

func (cc *CategoryController) Delete(c *gin.Context) {
	defer func() {
		middlewares.RecordOperation("category", "delete", c.Writer.Status() < 300)
	}()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
		return
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	existing, err := cc.fetch(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var productCount int
	if err := cc.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products WHERE category_id = ?", id,
	).Scan(&productCount); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if productCount > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete category: products are still using this category."})
		return
	}

	result, err := cc.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	if existing.Image.Valid && existing.Image.String != "" {
		cc.deleteImage(existing.Image.String)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}

func (cc *CategoryController) fetch(ctx context.Context, id int64) (models.Category, error) {
	var cat models.Category
	err := cc.db.QueryRowContext(ctx,
		"SELECT id, name, image, created_at FROM categories WHERE id = ?", id,
	).Scan(&cat.ID, &cat.Name, &cat.Image, &cat.CreatedAt)
	return cat, err
}

func (cc *CategoryController) deleteImage(url string) {
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()
	cc.images.Delete(ctx, url)
}
