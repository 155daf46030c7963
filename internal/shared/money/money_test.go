package money_test

import (
	"testing"

	"github.com/msdp-platform/msdp-flexstaff/internal/shared/money"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	t.Run("uneven gross keeps the sum exact", func(t *testing.T) {
		fee, net := money.Split(1001, 1000)

		assert.Equal(t, int64(100), fee)
		assert.Equal(t, int64(901), net)
		assert.Equal(t, int64(1001), fee+net)
	})

	t.Run("fee rounds half up", func(t *testing.T) {
		fee, net := money.Split(1005, 1000)

		assert.Equal(t, int64(101), fee)
		assert.Equal(t, int64(904), net)
	})

	t.Run("sum holds across grosses and rates", func(t *testing.T) {
		for _, bps := range []int64{0, 1, 333, 1000, 1250, 9999, 10000} {
			for gross := int64(1); gross <= 5000; gross += 7 {
				fee, net := money.Split(gross, bps)
				assert.Equal(t, gross, fee+net)
				assert.GreaterOrEqual(t, fee, int64(0))
				assert.GreaterOrEqual(t, net, int64(0))
			}
		}
	})

	t.Run("zero gross", func(t *testing.T) {
		fee, net := money.Split(0, 1000)
		assert.Zero(t, fee)
		assert.Zero(t, net)
	})
}

func TestWorkedCentiHours(t *testing.T) {
	assert.Equal(t, int64(350), money.WorkedCentiHours(240, 30))
	assert.Equal(t, int64(800), money.WorkedCentiHours(480, 0))
	// 50 minutes is 0.8333h, rounded to 0.83
	assert.Equal(t, int64(83), money.WorkedCentiHours(50, 0))
	assert.Equal(t, int64(0), money.WorkedCentiHours(20, 45))
}

func TestAmountForHours(t *testing.T) {
	assert.Equal(t, int64(4375), money.AmountForHours(350, 1250))
	// 0.83h x 10.42 = 8.6486 -> 8.65
	assert.Equal(t, int64(865), money.AmountForHours(83, 1042))
	assert.Equal(t, int64(0), money.AmountForHours(0, 1250))
}

func TestParsePercent(t *testing.T) {
	bps, err := money.ParsePercent("10")
	assert.NoError(t, err)
	assert.Equal(t, int64(1000), bps)

	bps, err = money.ParsePercent(" 12.5 ")
	assert.NoError(t, err)
	assert.Equal(t, int64(1250), bps)

	_, err = money.ParsePercent("abc")
	assert.Error(t, err)

	_, err = money.ParsePercent("101")
	assert.Error(t, err)
}

func TestFormatPence(t *testing.T) {
	assert.Equal(t, "43.75", money.FormatPence(4375))
	assert.Equal(t, "0.05", money.FormatPence(5))
	assert.Equal(t, "-1.20", money.FormatPence(-120))
}
