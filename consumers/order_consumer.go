package consumers

import (
	"database/sql"
	"log"
	"strconv"
	"strings"

	"creativesync-api/config"
	"creativesync-api/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartOrderConsumer 消费订单事件队列和死信队列
func StartOrderConsumer(ch *amqp.Channel, cfg *config.Config, db *sql.DB) {
	msgs, err := ch.Consume(
		cfg.OrderQueue,
		"creativesync-api", // consumer tag
		false,              // auto-ack
		false,              // exclusive
		false,              // no-local
		false,              // no-wait
		nil,
	)
	if err != nil {
		log.Fatalf("Failed to register consumer: %v", err)
	}

	go func() {
		for msg := range msgs {
			processOrderMessage(msg, db)
		}
	}()

	dlqMsgs, err := ch.Consume(
		cfg.DeadLetterQueue,
		"creativesync-api-dlq", // consumer tag
		false,                  // auto-ack
		false,                  // exclusive
		false,                  // no-local
		false,                  // no-wait
		nil,
	)
	if err != nil {
		log.Printf("Failed to register DLQ consumer: %v", err)
		return
	}

	go func() {
		for msg := range dlqMsgs {
			processDeadLetterMessage(msg)
		}
	}()
}

func processOrderMessage(msg amqp.Delivery, db *sql.DB) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in message processing: %v", r)
		}
	}()

	parts := strings.Split(string(msg.Body), "|")
	if len(parts) < 2 {
		log.Printf("Invalid message format: %s", msg.Body)
		msg.Nack(false, false) // 拒绝消息，不重新入队
		return
	}

	orderID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		log.Printf("Invalid order ID: %s", parts[0])
		msg.Nack(false, false)
		return
	}

	eventType := parts[1]
	log.Printf("Processing order event: ID=%d, Type=%s", orderID, eventType)

	switch eventType {
	case "created":
		handleOrderCreated(orderID)
	case "status_updated":
		handleStatusUpdated(orderID, db)
	case "payment_check":
		handlePaymentCheck(orderID, db)
	default:
		log.Printf("Unknown event type: %s", eventType)
	}

	msg.Ack(false)
}

func processDeadLetterMessage(msg amqp.Delivery) {
	log.Printf("Received dead letter: %s", msg.Body)
	msg.Ack(false)
}

func handleOrderCreated(orderID int64) {
	// 实际业务逻辑：通知其他服务、发确认邮件等
	log.Printf("Handling order created: %d", orderID)
}

func handleStatusUpdated(orderID int64, db *sql.DB) {
	var status string
	err := db.QueryRow("SELECT status FROM orders WHERE id = ?", orderID).Scan(&status)
	if err != nil {
		log.Printf("Failed to get order status: %v", err)
		return
	}
	log.Printf("Handling status update for order %d: %s", orderID, status)
}

// handlePaymentCheck 延迟事件：下单后仍停留在pending的订单自动取消
func handlePaymentCheck(orderID int64, db *sql.DB) {
	var status string
	err := db.QueryRow("SELECT status FROM orders WHERE id = ?", orderID).Scan(&status)
	if err != nil {
		log.Printf("Failed to get order status: %v", err)
		return
	}

	if status == models.StatusPending {
		_, err := db.Exec(
			"UPDATE orders SET status = ?, updated_at = NOW() WHERE id = ? AND status = ?",
			models.StatusCancelled, orderID, models.StatusPending,
		)
		if err != nil {
			log.Printf("Failed to auto-cancel order %d: %v", orderID, err)
		} else {
			log.Printf("Auto-cancelled order %d due to non-payment", orderID)
		}
	}
}
