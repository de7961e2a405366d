package format

import (
	"math"
	"math/big"
	"strings"
)

// DefaultSizeUnits is used by Size when no unit names are given.
var DefaultSizeUnits = []string{"bytes", "KB", "MB", "GB", "TB"}

// FullSizeUnits covers every SI prefix up to yotta.
var FullSizeUnits = []string{"bytes", "KB", "MB", "GB", "TB", "PB", "EB", "ZB", "YB"}

// sizeRoundingThreshold: magnitudes at or above it are printed without decimals.
const sizeRoundingThreshold = 99.995

// Size formats a byte count with a unit scaled by powers of 1000.
// units defaults to DefaultSizeUnits.
//
// Zero gives "0". Raw bytes, and magnitudes of at least 99.995, are printed
// without decimals; other magnitudes get two:
//
//	Size(999)    // "999 bytes"
//	Size(1000)   // "1.00 KB"
//	Size(999950) // "1000 KB"
//
// The unit index never goes past the last unit: larger values are expressed
// in the last unit. Values below one byte use the first unit.
func Size(value float64, units ...string) string {
	if len(units) == 0 {
		units = DefaultSizeUnits
	}
	if value == 0 {
		return "0"
	}

	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	}

	i := int(math.Floor(math.Log(value) / math.Log(1000)))
	if i < 0 {
		i = 0
	}
	if i > len(units)-1 {
		i = len(units) - 1
	}

	r := value / math.Pow(1000, float64(i))
	decimals := 2
	if r >= sizeRoundingThreshold || i == 0 {
		decimals = 0
	}

	return sign + toFixed(r, decimals) + " " + units[i]
}

// toFixed prints v >= 0 with the given decimals, rounding the exact binary
// value half up like Number.prototype.toFixed: 1.045 is stored as
// 1.04499999999999992894 and gives "1.04", 1.125 is exact and gives "1.13".
func toFixed(v float64, decimals int) string {
	pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	scaled := new(big.Float).SetPrec(256).SetFloat64(v)
	scaled.Mul(scaled, new(big.Float).SetInt(pow))
	scaled.Add(scaled, big.NewFloat(0.5))
	n, _ := scaled.Int(nil)

	digits := n.String()
	if decimals == 0 {
		return digits
	}
	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}
	return digits[:len(digits)-decimals] + "." + digits[len(digits)-decimals:]
}
