// Package money holds the pence arithmetic shared by timesheets and
// settlement. All amounts are int64 minor units (GBP pence).
package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	CurrencyGBP = "gbp"

	basisPointsPerWhole = 10000
)

// WorkedCentiHours converts elapsed and break minutes into hundredths of an
// hour. Worked time is floored at zero when the break exceeds elapsed time.
func WorkedCentiHours(elapsedMinutes, breakMinutes int64) int64 {
	worked := elapsedMinutes - breakMinutes
	if worked < 0 {
		worked = 0
	}
	return divRoundHalfUp(worked*100, 60)
}

// AmountForHours returns centiHours x ratePence rounded half up to the penny.
func AmountForHours(centiHours, ratePence int64) int64 {
	if centiHours <= 0 || ratePence <= 0 {
		return 0
	}
	return divRoundHalfUp(centiHours*ratePence, 100)
}

// Split divides gross into the platform fee and the worker's share. The fee
// is rounded half up and the worker amount is the remainder, so the two
// parts always sum to gross.
func Split(gross, feeBasisPoints int64) (fee, net int64) {
	if gross <= 0 {
		return 0, 0
	}
	fee = divRoundHalfUp(gross*feeBasisPoints, basisPointsPerWhole)
	if fee > gross {
		fee = gross
	}
	return fee, gross - fee
}

// ParsePercent converts a percentage string such as "10" or "12.5" into
// basis points.
func ParsePercent(v string) (int64, error) {
	v = strings.TrimSpace(v)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid percentage %q: %w", v, err)
	}
	if f < 0 || f > 100 {
		return 0, fmt.Errorf("percentage %q out of range", v)
	}
	return int64(math.Round(f * 100)), nil
}

// CentiHoursToHours renders centi-hours as a 2-decimal number for responses.
func CentiHoursToHours(centi int64) float64 {
	return float64(centi) / 100
}

// FormatPence renders pence as pounds, e.g. 4375 -> "43.75".
func FormatPence(p int64) string {
	sign := ""
	if p < 0 {
		sign = "-"
		p = -p
	}
	return fmt.Sprintf("%s%d.%02d", sign, p/100, p%100)
}

func divRoundHalfUp(n, d int64) int64 {
	return (n + d/2) / d
}
