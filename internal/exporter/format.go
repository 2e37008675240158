package exporter

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"retailetl/pkg/contracts/domain"
)

// formatDecimal writes the shortest exact form: 16, 0.75, 2.5.
func formatDecimal(d decimal.Decimal) string {
	return d.String()
}

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

func formatDate(t time.Time) string {
	return t.Format(domain.DateLayout)
}
