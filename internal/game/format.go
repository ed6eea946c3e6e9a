package game

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatAttributeValue renders a value the way the catalog's units read.
func FormatAttributeValue(attribute string, value float64) string {
	switch attribute {
	case "População":
		if value >= 1_000_000 {
			return fmt.Sprintf("%.1fM", value/1_000_000)
		}
		return fmt.Sprintf("%.0fK", value/1_000)
	case "Área", "Área Urbana":
		return groupThousands(value) + " km²"
	case "PIB":
		return fmt.Sprintf("$%.0fB", value/1_000)
	case "IDH":
		return fmt.Sprintf("%.3f", value/1_000)
	case "Altitude":
		return fmt.Sprintf("%.0fm", value)
	case "Fundação":
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return groupThousands(value)
	}
}

func groupThousands(value float64) string {
	if value != math.Trunc(value) {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	neg := value < 0
	digits := strconv.FormatInt(int64(math.Abs(value)), 10)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
