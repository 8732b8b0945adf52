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

type ProductController struct {
	db     *sql.DB
	images *storage.ImageStore
}

func NewProductController(db *sql.DB, images *storage.ImageStore) *ProductController {
	return &ProductController{db: db, images: images}
}

func (pc *ProductController) List(c *gin.Context) {
	ctx, cancel := dbCtx(c)
	defer cancel()

	rows, err := pc.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.description, p.price, p.category_id, p.image, p.images, p.size,
		       p.created_at, p.updated_at, c.id, c.name
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		ORDER BY p.created_at DESC
	`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer rows.Close()

	products := make([]models.ProductResponse, 0)
	for rows.Next() {
		var p models.Product
		var catID sql.NullInt64
		var catName sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CategoryID,
			&p.Image, &p.Images, &p.Size, &p.CreatedAt, &p.UpdatedAt, &catID, &catName); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		products = append(products, p.Response(categoryRef(catID, catName)))
	}

	c.JSON(http.StatusOK, products)
}

func (pc *ProductController) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	p, ref, err := pc.fetch(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, p.Response(ref))
}

func (pc *ProductController) Create(c *gin.Context) {
	defer func() {
		middlewares.RecordOperation("product", "create", c.Writer.Status() < 300)
	}()

	name := strings.TrimSpace(c.PostForm("name"))
	price, perr := strconv.ParseFloat(c.PostForm("price"), 64)
	if name == "" || perr != nil || price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, image, and valid price are required."})
		return
	}

	size, err := models.NormalizeList(c.PostFormArray("size"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var categoryID sql.NullInt64
	if v := strings.TrimSpace(c.PostForm("category_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
			return
		}
		categoryID = sql.NullInt64{Int64: id, Valid: true}
	}

	// 主图必填
	primary, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, image, and valid price are required."})
		return
	}

	var additional []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		additional = form.File["additionalImages"]
	}

	files := append([]*multipart.FileHeader{primary}, additional...)
	if err := validateAll(files); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	uctx, ucancel := uploadCtx(c)
	defer ucancel()
	urls, err := uploadAll(uctx, pc.images, files, "products")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	imageURL, additionalURLs := urls[0], models.StringList(urls[1:])

	ctx, cancel := dbCtx(c)
	defer cancel()

	result, err := pc.db.ExecContext(ctx, `
		INSERT INTO products (name, description, price, category_id, image, images, size)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, name, c.PostForm("description"), price, categoryID, imageURL, additionalURLs, size)
	if err != nil {
		// 插入失败，整批图片回收
		pc.deleteImages(urls)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	id, _ := result.LastInsertId()
	p, ref, err := pc.fetch(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, p.Response(ref))
}

func (pc *ProductController) Update(c *gin.Context) {
	defer func() {
		middlewares.RecordOperation("product", "update", c.Writer.Status() < 300)
	}()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	checkCtx, checkCancel := dbCtx(c)
	defer checkCancel()

	existing, _, err := pc.fetch(checkCtx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
		return
	}

	price := existing.Price
	if v := c.PostForm("price"); v != "" {
		price, err = strconv.ParseFloat(v, 64)
		if err != nil || price <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Valid price is required"})
			return
		}
	}

	description := existing.Description
	if v, ok := c.GetPostForm("description"); ok {
		description = v
	}

	size := existing.Size
	if values, ok := c.GetPostFormArray("size"); ok {
		size, err = models.NormalizeList(values)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	categoryID := existing.CategoryID
	if v, ok := c.GetPostForm("category_id"); ok {
		categoryID = sql.NullInt64{}
		if v = strings.TrimSpace(v); v != "" {
			cid, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
				return
			}
			categoryID = sql.NullInt64{Int64: cid, Valid: true}
		}
	}

	// existingImages为客户端声明的保留集，缺省保留全部
	kept := existing.Images
	if v, ok := c.GetPostForm("existingImages"); ok {
		kept, err = models.NormalizeList([]string{v})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var newFiles []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		newFiles = form.File["additionalImages"]
	}
	newPrimary, primaryErr := c.FormFile("image")

	var toValidate []*multipart.FileHeader
	if primaryErr == nil {
		toValidate = append(toValidate, newPrimary)
	}
	toValidate = append(toValidate, newFiles...)
	if err := validateAll(toValidate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	uctx, ucancel := uploadCtx(c)
	defer ucancel()

	var uploaded []string
	newURLs, err := uploadAll(uctx, pc.images, newFiles, "products")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	uploaded = append(uploaded, newURLs...)

	// 主图只在收到新文件时替换：先传新图，行提交后才删旧图，
	// 避免出现没有任何主图的窗口
	imageURL := existing.Image
	oldPrimary := ""
	if primaryErr == nil {
		newURL, uerr := pc.images.Upload(uctx, newPrimary, "products")
		if uerr != nil {
			pc.deleteImages(uploaded)
			c.JSON(http.StatusInternalServerError, gin.H{"error": uerr.Error()})
			return
		}
		uploaded = append(uploaded, newURL)
		oldPrimary = existing.Image.String
		imageURL = sql.NullString{String: newURL, Valid: true}
	}

	finalImages, toDelete := reconcileImages(existing.Images, kept, newURLs)

	// 上传可能耗时，更新另起DB超时计时
	ctx, cancel := dbCtx(c)
	defer cancel()

	_, err = pc.db.ExecContext(ctx, `
		UPDATE products
		SET name = ?, description = ?, price = ?, category_id = ?, image = ?, images = ?, size = ?
		WHERE id = ?
	`, name, description, price, categoryID, imageURL, finalImages, size, id)
	if err != nil {
		pc.deleteImages(uploaded)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// 行已提交，再清理被移除的附图和被替换的旧主图
	cleanup := append([]string{}, toDelete...)
	if oldPrimary != "" {
		cleanup = append(cleanup, oldPrimary)
	}
	pc.deleteImages(cleanup)

	p, ref, err := pc.fetch(ctx, id)
	if err != nil {
		// 期间被并发删除：UPDATE落空，新上传的图成了孤儿
		if errors.Is(err, sql.ErrNoRows) {
			pc.deleteImages(uploaded)
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, p.Response(ref))
}

func (pc *ProductController) Delete(c *gin.Context) {
	defer func() {
		middlewares.RecordOperation("product", "delete", c.Writer.Status() < 300)
	}()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	existing, _, err := pc.fetch(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result, err := pc.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	urls := append([]string{}, existing.Images...)
	if existing.Image.Valid {
		urls = append(urls, existing.Image.String)
	}
	pc.deleteImages(urls)

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

func (pc *ProductController) fetch(ctx context.Context, id int64) (models.Product, *models.CategoryRef, error) {
	var p models.Product
	var catID sql.NullInt64
	var catName sql.NullString
	err := pc.db.QueryRowContext(ctx, `
		SELECT p.id, p.name, p.description, p.price, p.category_id, p.image, p.images, p.size,
		       p.created_at, p.updated_at, c.id, c.name
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CategoryID,
		&p.Image, &p.Images, &p.Size, &p.CreatedAt, &p.UpdatedAt, &catID, &catName)
	if err != nil {
		return p, nil, err
	}
	return p, categoryRef(catID, catName), nil
}

func (pc *ProductController) deleteImages(urls []string) {
	if len(urls) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()
	pc.images.DeleteMany(ctx, urls)
}

func categoryRef(id sql.NullInt64, name sql.NullString) *models.CategoryRef {
	if !id.Valid || !name.Valid {
		return nil
	}
	return &models.CategoryRef{ID: id.Int64, Name: name.String}
}

// reconcileImages 以保留集合入新上传项得到最终附图，同时给出落选的待删集。
// kept为空集时现有附图全部进入删除集。
func reconcileImages(current, kept models.StringList, added []string) (models.StringList, []string) {
	final := append(append(models.StringList{}, kept...), added...)
	return final, difference(current, kept)
}

// difference 返回current中不在kept里的URL
func difference(current, kept models.StringList) []string {
	keep := make(map[string]struct{}, len(kept))
	for _, url := range kept {
		keep[url] = struct{}{}
	}
	var out []string
	for _, url := range current {
		if _, ok := keep[url]; !ok {
			out = append(out, url)
		}
	}
	return out
}
