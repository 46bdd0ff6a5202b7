package domain

import (
	"fmt"
	"math"
	"strconv"
)

// Hours is a fixed-point duration in tenths of an hour.
// Sums over Hours never drift the way float sums do.
type Hours int64

// Hour is one hour.
const Hour Hours = 10

// HoursFromFloat rounds f to the nearest tenth of an hour.
func HoursFromFloat(f float64) Hours {
	return Hours(math.Round(f * 10))
}

// Tenths returns the raw number of tenths.
func (h Hours) Tenths() int64 {
	return int64(h)
}

// Float64 returns the hours as a float for display.
func (h Hours) Float64() float64 {
	return float64(h) / 10
}

// String formats the hours with one decimal, e.g. "7.5".
func (h Hours) String() string {
	return strconv.FormatFloat(h.Float64(), 'f', 1, 64)
}

// MarshalJSON encodes hours as a JSON number with one decimal.
func (h Hours) MarshalJSON() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalJSON decodes a JSON number, rounding to a tenth.
func (h *Hours) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid hours %s: %w", data, err)
	}
	*h = HoursFromFloat(f)
	return nil
}
