package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type PercentFormat string

const (
	// One decimal, at least two integer digits (05.0, 42.9, 100.0)
	PercentFormatDecimal PercentFormat = "decimal"
	// Truncated integer (5, 42, 100)
	PercentFormatInteger PercentFormat = "integer"
)

func ParsePercentFormat(raw string) (PercentFormat, error) {
	switch PercentFormat(raw) {
	case PercentFormatDecimal, PercentFormatInteger:
		return PercentFormat(raw), nil
	default:
		return "", fmt.Errorf("unknown percent format '%s'", raw)
	}
}

// Percent returns 100 * completed / total, or 0 when there are no milestones
func Percent(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(completed) / float64(total)
}

func (f PercentFormat) Format(percent float64) string {
	switch f {
	case PercentFormatInteger:
		return strconv.Itoa(int(percent))
	default:
		formatted := strconv.FormatFloat(percent, 'f', 1, 64)
		if strings.IndexByte(formatted, '.') == 1 {
			formatted = "0" + formatted
		}
		return formatted
	}
}
