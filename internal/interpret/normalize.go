package interpret

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var trailingNumberPattern = regexp.MustCompile(`([\d,]+\.?\d*)$`)

// parseAmount strips grouping separators and a leading minus and parses what is
// left. Anything that is not a plain decimal afterwards is rejected.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimPrefix(s, "-")
	if s == "" || strings.HasPrefix(s, "-") {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// parseQty returns 1 for anything that is not a positive integer.
func parseQty(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// trailingAmount parses the number a line ends with, if any.
func trailingAmount(line string) (decimal.Decimal, bool) {
	m := trailingNumberPattern.FindStringSubmatch(line)
	if m == nil {
		return decimal.Zero, false
	}
	return parseAmount(m[1])
}

// isoDate renders year, month and day as YYYY-MM-DD with zero padding.
func isoDate(year, month, day string) string {
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	return fmt.Sprintf("%s-%02d-%02d", year, m, d)
}
