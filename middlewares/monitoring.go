package middlewares

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creativesync_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "creativesync_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	resourceOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creativesync_resource_operations_total",
			Help: "Total number of resource operations",
		},
		[]string{"resource", "operation", "status"},
	)

	imageUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creativesync_image_uploads_total",
			Help: "Total number of image uploads",
		},
		[]string{"status"},
	)
)

// PrometheusMiddleware 收集 Prometheus 指标
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Inc()

		httpRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Observe(duration)
	}
}

// RecordOperation 记录资源操作指标
func RecordOperation(resource, operation string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	resourceOperations.WithLabelValues(resource, operation, status).Inc()
}

// RecordImageUpload 记录图片上传指标
func RecordImageUpload(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	imageUploads.WithLabelValues(status).Inc()
}
