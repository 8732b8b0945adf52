package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeeFor(t *testing.T) {
	fee, ok := FeeFor("Nairobi")
	assert.True(t, ok)
	assert.Equal(t, 200.0, fee)

	fee, ok = FeeFor("Mombasa")
	assert.True(t, ok)
	assert.Equal(t, 500.0, fee)

	_, ok = FeeFor("Atlantis")
	assert.False(t, ok)

	// 大小写敏感，查表键必须精确匹配
	_, ok = FeeFor("nairobi")
	assert.False(t, ok)
}

func TestDeliveryFeesReturnsCopy(t *testing.T) {
	fees := DeliveryFees()
	assert.NotEmpty(t, fees)

	fees["Nairobi"] = 9999
	fee, ok := FeeFor("Nairobi")
	assert.True(t, ok)
	assert.Equal(t, 200.0, fee)
}

func TestAllCountiesCovered(t *testing.T) {
	assert.Len(t, DeliveryFees(), 47)
}
