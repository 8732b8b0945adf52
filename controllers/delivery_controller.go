package controllers

import (
	"net/http"

	"creativesync-api/utils"

	"github.com/gin-gonic/gin"
)

// GetDeliveryFees 返回完整的郡->运费表
func GetDeliveryFees(c *gin.Context) {
	c.JSON(http.StatusOK, utils.DeliveryFees())
}
