package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDeliveryFees(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/delivery-fees", GetDeliveryFees)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/delivery-fees", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var fees map[string]float64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fees))
	assert.Equal(t, 200.0, fees["Nairobi"])
	assert.Len(t, fees, 47)
}
