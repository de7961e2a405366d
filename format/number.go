// Package format provides the display helpers used by the viewer pages:
// digit grouping, human readable sizes and date stamps. FuncMap exposes them
// to html/template under the names used by the page scripts.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Number groups the digits of value in triplets from the right, separated by
// a single space: 1234567 gives "1 234 567".
//
// A space is inserted after every character whose remaining suffix is a run of
// digits of length 3, 6, 9 and so on. Signs and decimal points are treated
// like any other character, so -123 gives "- 123" and 1234.567 gives
// "1234. 567". Floats from 1e21 on are written in exponent notation, so
// 1e21 gives "1e+21" and 1e100 gives "1e+ 100".
func Number(value any) string {
	s := stringify(value)

	// trailing[i] is the number of consecutive digits from byte offset i to the end
	trailing := make([]int, len(s)+1)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] >= '0' && s[i] <= '9' {
			trailing[i] = trailing[i+1] + 1
		} else {
			trailing[i] = 0
		}
	}

	var b strings.Builder
	b.Grow(len(s) + len(s)/3)
	for i := 0; i < len(s); {
		_, size := utf8.DecodeRuneInString(s[i:])
		b.WriteString(s[i : i+size])
		i += size
		if rest := len(s) - i; rest > 0 && trailing[i] == rest && rest%3 == 0 {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return formatFloat(float64(v), 32)
	case float64:
		return formatFloat(v, 64)
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// formatFloat writes v the way Number#toString does: plain decimals, except
// exponent notation below 1e-6 and from 1e21 on ("1e+21", "1.5e-7").
func formatFloat(v float64, bitSize int) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	}
	if abs := math.Abs(v); abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(v, 'e', -1, bitSize)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(v, 'f', -1, bitSize)
}
