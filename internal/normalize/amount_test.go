package normalize

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmountVariants(t *testing.T) {
	t.Run("nil amount", func(t *testing.T) {
		assert.Empty(t, AmountVariants(nil))
	})

	t.Run("thousands", func(t *testing.T) {
		v := int64(123456)
		got := AmountVariants(&v)
		assert.Contains(t, got, "1234.56")
		assert.Contains(t, got, "1234,56")
		assert.Contains(t, got, "1,234.56")
		assert.Contains(t, got, "1.234,56")
	})

	t.Run("sign ignored", func(t *testing.T) {
		neg := int64(-4999)
		pos := int64(4999)
		assert.Equal(t, AmountVariants(&pos), AmountVariants(&neg))
		assert.Contains(t, AmountVariants(&neg), "49.99")
	})

	t.Run("deduplicated", func(t *testing.T) {
		v := int64(1234)
		got := AmountVariants(&v)
		assert.Equal(t, []string{"12.34", "12,34"}, got)
	})

	t.Run("large amounts stay exact", func(t *testing.T) {
		v := int64(900719925474099393)
		got := AmountVariants(&v)
		assert.Contains(t, got, "9007199254740993.93")
		assert.Contains(t, got, "9,007,199,254,740,993.93")
		assert.Contains(t, got, "9.007.199.254.740.993,93")
	})

	t.Run("min int64", func(t *testing.T) {
		v := int64(math.MinInt64)
		got := AmountVariants(&v)
		assert.Contains(t, got, "92233720368547758.08")
		assert.Contains(t, got, "92,233,720,368,547,758.08")
		for _, s := range got {
			assert.False(t, strings.Contains(s, "-"), s)
		}
	})

	t.Run("zero cents", func(t *testing.T) {
		v := int64(5)
		assert.Contains(t, AmountVariants(&v), "0.05")
	})
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "-49.99", FormatAmount(-4999))
	assert.Equal(t, "1234.56", FormatAmount(123456))
	assert.Equal(t, "0.00", FormatAmount(0))
	assert.Equal(t, "-92233720368547758.08", FormatAmount(math.MinInt64))
}
