package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "12.35", FormatMoney(decimal.RequireFromString("12.3456")))
	assert.Equal(t, "5.00", FormatMoney(decimal.NewFromInt(5)))
	assert.Equal(t, "-0.10", FormatMoney(decimal.RequireFromString("-0.1")))
	assert.Equal(t, "1.0", FormatWithPrecision(decimal.RequireFromString("0.96"), 1))
}
