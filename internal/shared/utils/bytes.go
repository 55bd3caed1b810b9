package utils

import (
	"math"
	"strconv"
)

var byteUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FormatBytes renders a byte count in base-1024 units with at most two
// decimals, e.g. 1536 -> "1.5 KB". Zero and negative counts render as "0 Bytes".
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}

	value := float64(n)
	exp := 0
	for value >= 1024 && exp < len(byteUnits)-1 {
		value /= 1024
		exp++
	}

	rounded := math.Round(value*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + byteUnits[exp]
}

// FormatSpeed renders a transfer rate, e.g. "2.5 MB/s"
func FormatSpeed(bytesPerSec float64) string {
	if bytesPerSec <= 0 || math.IsNaN(bytesPerSec) || math.IsInf(bytesPerSec, 0) {
		return FormatBytes(0) + "/s"
	}
	return FormatBytes(int64(bytesPerSec)) + "/s"
}

// Percent returns round(done/total*100) clamped to [0,100], or 0 when the
// total is unknown.
func Percent(done, total int64) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	p := int(math.Round(float64(done) / float64(total) * 100))
	if p > 100 {
		return 100
	}
	return p
}
