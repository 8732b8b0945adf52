package controllers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"creativesync-api/middlewares"
	"creativesync-api/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gin.SetMode(gin.TestMode)
	pc := NewProductController(db, nil)
	auth := middlewares.AuthMiddleware(testSecret)
	r := gin.New()
	r.GET("/api/products", pc.List)
	r.GET("/api/products/:id", pc.Get)
	r.POST("/api/products", auth, pc.Create)
	r.PUT("/api/products/:id", auth, pc.Update)
	r.DELETE("/api/products/:id", auth, pc.Delete)
	return r, mock
}

func productColumns() []string {
	return []string{"id", "name", "description", "price", "category_id", "image",
		"images", "size", "created_at", "updated_at", "cat_id", "cat_name"}
}

func TestCreateProductRequiresImage(t *testing.T) {
	r, mock := productRouter(t)

	body, contentType := multipartBody(t, map[string]string{"name": "Canvas", "price": "1500"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/products", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "image")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProductInvalidPrice(t *testing.T) {
	r, mock := productRouter(t)

	for _, price := range []string{"", "abc", "-5", "0"} {
		body, contentType := multipartBody(t, map[string]string{"name": "Canvas", "price": price})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/products", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+adminToken(t))
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "price=%q", price)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProductRejectsOversizeImage(t *testing.T) {
	r, mock := productRouter(t)

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	require.NoError(t, mw.WriteField("name", "Canvas"))
	require.NoError(t, mw.WriteField("price", "1500"))
	fw, err := mw.CreateFormFile("image", "big.bin")
	require.NoError(t, err)
	// 非图片Content-Type在上传前就被拒绝
	_, err = fw.Write([]byte("not an image"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/products", buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductEmbedsCategory(t *testing.T) {
	r, mock := productRouter(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM products p")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(productColumns()).
			AddRow(4, "Canvas", "A canvas print", 1500.0, 2,
				"https://res.cloudinary.com/demo/image/upload/v1/products/a.jpg",
				[]byte(`["https://res.cloudinary.com/demo/image/upload/v1/products/b.jpg"]`),
				[]byte(`["A2","A3"]`), now, now, 2, "Paintings"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/products/4", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	category, ok := resp["category"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Paintings", category["name"])
	assert.Equal(t, float64(2), category["id"])
	assert.Len(t, resp["size"], 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductWithoutCategory(t *testing.T) {
	r, mock := productRouter(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM products p")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(productColumns()).
			AddRow(5, "Sketch", "", 800.0, nil, nil, []byte(`[]`), []byte(`[]`), now, now, nil, nil))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/products/5", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp["category"])
	assert.Nil(t, resp["category_id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProductClearsRemovedImages(t *testing.T) {
	r, mock := productRouter(t)

	now := time.Now()
	primary := "https://res.cloudinary.com/demo/image/upload/v1/products/main.jpg"
	a := "https://res.cloudinary.com/demo/image/upload/v1/products/a.jpg"
	b := "https://res.cloudinary.com/demo/image/upload/v1/products/b.jpg"
	mock.ExpectQuery(regexp.QuoteMeta("FROM products p")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(productColumns()).
			AddRow(4, "Canvas", "A canvas print", 1500.0, nil, primary,
				[]byte(`["`+a+`","`+b+`"]`), []byte(`["A2"]`), now, now, nil, nil))
	// 保留集清空后，写回的images必须是空数组
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products")).
		WithArgs("Canvas", "A canvas print", 1500.0, nil, primary,
			[]byte(`[]`), []byte(`["A2"]`), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM products p")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(productColumns()).
			AddRow(4, "Canvas", "A canvas print", 1500.0, nil, primary,
				[]byte(`[]`), []byte(`["A2"]`), now, now, nil, nil))

	body, contentType := multipartBody(t, map[string]string{
		"name":           "Canvas",
		"existingImages": "[]",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/products/4", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp["images"], 0)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProductConcurrentlyDeleted(t *testing.T) {
	r, mock := productRouter(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM products p")).
		WithArgs(int64(6)).
		WillReturnRows(sqlmock.NewRows(productColumns()).
			AddRow(6, "Sketch", "", 800.0, nil, nil, []byte(`[]`), []byte(`[]`), now, now, nil, nil))
	// 读取和更新之间行被删掉，UPDATE落空，回读命中空行
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM products p")).
		WithArgs(int64(6)).
		WillReturnError(sql.ErrNoRows)

	body, contentType := multipartBody(t, map[string]string{"name": "Sketch"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/products/6", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Product not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProductPerPhaseTimeout(t *testing.T) {
	r, mock := productRouter(t)

	orig := dbTimeout
	dbTimeout = 60 * time.Millisecond
	defer func() { dbTimeout = orig }()

	// 读取和更新各自接近超时上限，合计超过单个窗口：
	// 更新阶段必须拿到自己的计时，不受前面阶段耗时影响
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM products p")).
		WithArgs(int64(6)).
		WillDelayFor(40 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows(productColumns()).
			AddRow(6, "Sketch", "", 800.0, nil, nil, []byte(`[]`), []byte(`[]`), now, now, nil, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products")).
		WillDelayFor(40 * time.Millisecond).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM products p")).
		WithArgs(int64(6)).
		WillReturnRows(sqlmock.NewRows(productColumns()).
			AddRow(6, "Sketch", "", 800.0, nil, nil, []byte(`[]`), []byte(`[]`), now, now, nil, nil))

	body, contentType := multipartBody(t, map[string]string{"name": "Sketch"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/products/6", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProductNotFound(t *testing.T) {
	r, mock := productRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products p")).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/products/99", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProductNoImages(t *testing.T) {
	r, mock := productRouter(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM products p")).
		WithArgs(int64(6)).
		WillReturnRows(sqlmock.NewRows(productColumns()).
			AddRow(6, "Sketch", "", 800.0, nil, nil, []byte(`[]`), []byte(`[]`), now, now, nil, nil))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products WHERE id = ?")).
		WithArgs(int64(6)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/products/6", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileImages(t *testing.T) {
	current := models.StringList{"a", "b", "c"}

	final, removed := reconcileImages(current, models.StringList{"b"}, []string{"d"})
	assert.Equal(t, models.StringList{"b", "d"}, final)
	assert.Equal(t, []string{"a", "c"}, removed)

	// 空保留集清空全部现有附图
	final, removed = reconcileImages(current, models.StringList{}, nil)
	assert.Empty(t, final)
	assert.Equal(t, []string{"a", "b", "c"}, removed)
}

func TestDifference(t *testing.T) {
	current := models.StringList{"a", "b", "c"}

	assert.Equal(t, []string{"a", "c"}, difference(current, models.StringList{"b"}))
	assert.Nil(t, difference(current, current))
	// 保留集为空时全部进入删除集
	assert.Equal(t, []string{"a", "b", "c"}, difference(current, models.StringList{}))
	assert.Nil(t, difference(nil, models.StringList{"x"}))
}
