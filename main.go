package main

import (
	"log"
	"net/http"
	"time"

	"creativesync-api/config"
	"creativesync-api/consumers"
	"creativesync-api/controllers"
	"creativesync-api/database"
	"creativesync-api/middlewares"
	"creativesync-api/rabbitmq"
	"creativesync-api/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 加载配置
	cfg := config.LoadConfig()

	// 初始化数据库
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}
	defer db.Close()

	// 初始化图片存储
	if cfg.CloudinaryURL == "" {
		log.Fatal("CLOUDINARY_URL must be set")
	}
	images, err := storage.NewImageStore(cfg.CloudinaryURL)
	if err != nil {
		log.Fatalf("Image store initialization failed: %v", err)
	}

	// RabbitMQ可选，未配置时订单事件不发布
	var rmq *rabbitmq.RabbitMQ
	if cfg.RabbitMQURL != "" {
		rmq, err = rabbitmq.NewRabbitMQ(cfg)
		if err != nil {
			log.Fatalf("RabbitMQ initialization failed: %v", err)
		}
		defer rmq.Close()

		if err := rmq.SetupQueues(); err != nil {
			log.Fatalf("Failed to setup RabbitMQ queues: %v", err)
		}

		// 启动消息消费者
		go consumers.StartOrderConsumer(rmq.Channel, cfg, db)
	} else {
		log.Println("RABBITMQ_URL not set, order events disabled")
	}

	categoryController := controllers.NewCategoryController(db, images)
	productController := controllers.NewProductController(db, images)
	orderController := controllers.NewOrderController(db, rmq)
	submissionController := controllers.NewSubmissionController(db, images)
	adminController := controllers.NewAdminController(db, cfg.JWTSecret)

	// 创建Gin路由
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 应用Prometheus中间件
	r.Use(middlewares.PrometheusMiddleware())

	// 暴露Prometheus指标端点
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 健康检查端点
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	auth := middlewares.AuthMiddleware(cfg.JWTSecret)

	// 公开读接口
	api.GET("/categories", categoryController.List)
	api.GET("/categories/:id", categoryController.Get)
	api.GET("/categories/:id/products", categoryController.ListProducts)
	api.GET("/products", productController.List)
	api.GET("/products/:id", productController.Get)
	api.GET("/delivery-fees", controllers.GetDeliveryFees)
	api.GET("/submissions", submissionController.List)
	api.GET("/submissions/:id", submissionController.Get)

	// 公开写接口：下单与投稿
	api.POST("/orders", orderController.Create)
	api.POST("/submissions", submissionController.Create)

	// 管理端认证
	api.POST("/admin/signup", adminController.Signup)
	api.POST("/admin/login", adminController.Login)
	api.GET("/admin/verify", auth, adminController.Verify)

	// 管理端变更接口统一走token校验
	api.POST("/categories", auth, categoryController.Create)
	api.PUT("/categories/:id", auth, categoryController.Update)
	api.DELETE("/categories/:id", auth, categoryController.Delete)
	api.POST("/products", auth, productController.Create)
	api.PUT("/products/:id", auth, productController.Update)
	api.DELETE("/products/:id", auth, productController.Delete)
	api.GET("/orders", auth, orderController.List)
	api.GET("/orders/:id", auth, orderController.Get)
	api.PUT("/orders/:id", auth, orderController.UpdateStatus)
	api.DELETE("/submissions/:id", auth, submissionController.Delete)

	// 启动服务器
	addr := ":" + cfg.Port
	log.Printf("CreativeSync API starting on port %s", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
