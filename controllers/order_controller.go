package controllers

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"creativesync-api/middlewares"
	"creativesync-api/models"
	"creativesync-api/rabbitmq"
	"creativesync-api/utils"

	"github.com/gin-gonic/gin"
)

type OrderController struct {
	db *sql.DB
	mq *rabbitmq.RabbitMQ // 可为nil，未配置消息队列时跳过发布
}

func NewOrderController(db *sql.DB, mq *rabbitmq.RabbitMQ) *OrderController {
	return &OrderController{db: db, mq: mq}
}

// Create 公开下单。运费按county查表，总额一律服务端计算，
// 客户端传来的总额字段不被采信。
func (oc *OrderController) Create(c *gin.Context) {
	defer func() {
		middlewares.RecordOperation("order", "create", c.Writer.Status() < 300)
	}()

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.FullName = strings.TrimSpace(req.FullName)
	req.County = strings.TrimSpace(req.County)
	if req.FullName == "" || req.Phone == "" || req.Address == "" || req.City == "" ||
		req.County == "" || len(req.Items) == 0 || req.Subtotal <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	fee, ok := utils.FeeFor(req.County)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown county: " + req.County})
		return
	}
	total := req.Subtotal + fee

	ctx, cancel := dbCtx(c)
	defer cancel()

	result, err := oc.db.ExecContext(ctx, `
		INSERT INTO orders (full_name, email, phone, address, city, county, items,
		                    subtotal, delivery_fee, total_amount, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, req.FullName, req.Email, req.Phone, req.Address, req.City, req.County,
		req.Items, req.Subtotal, fee, total, models.StatusPending)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	orderID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	order, err := oc.fetch(ctx, orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, order)

	// 入库成功后发事件
	if oc.mq != nil {
		priority := 5      // 默认优先级
		if total > 10000 { // 大额订单高优先级
			priority = 9
		}

		if err := oc.mq.PublishOrderEvent(orderID, priority, "created"); err != nil {
			log.Printf("Failed to publish order created event: %v", err)
		}

		// 延迟事件（15分钟后检查支付状态）
		if err := oc.mq.PublishDelayedEvent(orderID, 15*time.Minute, "payment_check"); err != nil {
			log.Printf("Failed to publish delayed payment check event: %v", err)
		}
	}
}

func (oc *OrderController) List(c *gin.Context) {
	defer func() {
		middlewares.RecordOperation("order", "list", c.Writer.Status() < 300)
	}()

	ctx, cancel := dbCtx(c)
	defer cancel()

	rows, err := oc.db.QueryContext(ctx, `
		SELECT id, full_name, email, phone, address, city, county, items,
		       subtotal, delivery_fee, total_amount, status, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC
	`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	for rows.Next() {
		var order models.Order
		var email sql.NullString
		if err := rows.Scan(&order.ID, &order.FullName, &email, &order.Phone, &order.Address,
			&order.City, &order.County, &order.Items, &order.Subtotal, &order.DeliveryFee,
			&order.TotalAmount, &order.Status, &order.CreatedAt, &order.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		order.Email = email.String
		orders = append(orders, order)
	}

	c.JSON(http.StatusOK, orders)
}

func (oc *OrderController) Get(c *gin.Context) {
	defer func() {
		middlewares.RecordOperation("order", "details", c.Writer.Status() < 300)
	}()

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	order, err := oc.fetch(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, order)
}

// UpdateStatus 状态只接受枚举值，且必须是合法流转
func (oc *OrderController) UpdateStatus(c *gin.Context) {
	defer func() {
		middlewares.RecordOperation("order", "update_status", c.Writer.Status() < 300)
	}()

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status is required"})
		return
	}
	if !models.ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status: " + req.Status})
		return
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	var current string
	err = oc.db.QueryRowContext(ctx, "SELECT status FROM orders WHERE id = ?", orderID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if !models.CanTransition(current, req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot change status from " + current + " to " + req.Status})
		return
	}

	// WHERE带上旧状态，并发更新时只有一个能生效
	result, err := oc.db.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, updated_at = NOW()
		WHERE id = ? AND status = ?
	`, req.Status, orderID, current)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Order status changed concurrently, retry"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "order_id": orderID, "status": req.Status})

	if oc.mq != nil {
		priority := 5                             // 默认优先级
		if req.Status == models.StatusCancelled { // 取消订单高优先级
			priority = 8
		}

		if err := oc.mq.PublishOrderEvent(orderID, priority, "status_updated"); err != nil {
			log.Printf("Failed to publish order updated event: %v", err)
		}
	}
}

func (oc *OrderController) fetch(ctx context.Context, id int64) (models.Order, error) {
	var order models.Order
	var email sql.NullString
	err := oc.db.QueryRowContext(ctx, `
		SELECT id, full_name, email, phone, address, city, county, items,
		       subtotal, delivery_fee, total_amount, status, created_at, updated_at
		FROM orders
		WHERE id = ?
	`, id).Scan(&order.ID, &order.FullName, &email, &order.Phone, &order.Address,
		&order.City, &order.County, &order.Items, &order.Subtotal, &order.DeliveryFee,
		&order.TotalAmount, &order.Status, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return order, err
	}
	order.Email = email.String
	return order, nil
}
