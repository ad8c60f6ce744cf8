// Package answer renders execution results as short markdown replies
package answer

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethpandaops/clickguard/pkg/gateway"
	"github.com/olekukonko/tablewriter"
)

// DefaultMaxRows is how many rows a table reply shows
const DefaultMaxRows = 20

// Messages
const (
	NoResults      = "No results found."
	NoDataForValue = "No data found"
)

// Formatter renders gateway results
type Formatter struct {
	maxRows int
}

// New creates a formatter showing at most maxRows table rows
func New(maxRows int) *Formatter {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	return &Formatter{maxRows: maxRows}
}

// Format renders res with the default row cap
func Format(res *gateway.Result) string {
	return New(DefaultMaxRows).Format(res)
}

// Format renders a single value as a scalar line and anything else as a
// markdown table. Every rendering of rows notes whether they came from cache.
func (f *Formatter) Format(res *gateway.Result) string {
	if res == nil || len(res.Rows) == 0 {
		return NoResults
	}

	note := sourceNote(res.FromCache)

	columns := res.Columns
	if len(columns) == 0 {
		columns = sortedKeys(res.Rows[0])
	}

	if len(res.Rows) == 1 && len(columns) == 1 {
		return fmt.Sprintf("**Result**: %s%s", formatScalar(res.Rows[0][columns[0]]), note)
	}

	total := res.RowCount
	if total < len(res.Rows) {
		total = len(res.Rows)
	}

	shown := res.Rows
	if len(shown) > f.maxRows {
		shown = shown[:f.maxRows]
	}

	var b strings.Builder

	fmt.Fprintf(&b, "**Query returned %d rows**%s\n\n", total, note)

	table := tablewriter.NewWriter(&b)
	table.SetHeader(columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")

	for _, row := range shown {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = formatCell(row[col])
		}

		table.Append(cells)
	}

	table.Render()

	out := strings.TrimRight(b.String(), "\n")

	if total > len(shown) {
		out += fmt.Sprintf("\n\n*Showing %d of %d rows*", len(shown), total)
	}

	return out
}

func sourceNote(fromCache bool) string {
	if fromCache {
		return "  (from cache)"
	}

	return "  (from database)"
}

// decimalValue matches arbitrary-precision decimals scanned by the native driver
type decimalValue interface {
	Float64() (float64, bool)
	String() string
}

// formatScalar renders numbers with thousands separators. Strings are shown
// as stored.
func formatScalar(v any) string {
	if v == nil {
		return NoDataForValue
	}

	switch n := v.(type) {
	case json.Number:
		return formatNumericString(n.String())
	case string:
		return n
	case int:
		return humanize.Comma(int64(n))
	case int8:
		return humanize.Comma(int64(n))
	case int16:
		return humanize.Comma(int64(n))
	case int32:
		return humanize.Comma(int64(n))
	case int64:
		return humanize.Comma(n)
	case uint8:
		return humanize.Comma(int64(n))
	case uint16:
		return humanize.Comma(int64(n))
	case uint32:
		return humanize.Comma(int64(n))
	case uint64:
		if n > math.MaxInt64 {
			return strconv.FormatUint(n, 10)
		}

		return humanize.Comma(int64(n))
	case float32:
		return formatFloat(float64(n))
	case float64:
		return formatFloat(n)
	case decimalValue:
		return formatNumericString(n.String())
	default:
		return fmt.Sprint(v)
	}
}

func formatNumericString(s string) string {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return humanize.Comma(i)
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return formatFloat(f)
	}

	return s
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return humanize.Comma(int64(f))
	}

	return humanize.Commaf(f)
}

// formatCell renders a table cell without separators
func formatCell(v any) string {
	var s string

	switch c := v.(type) {
	case nil:
		s = "NULL"
	case time.Time:
		s = c.Format(time.RFC3339)
	default:
		s = fmt.Sprint(c)
	}

	return strings.ReplaceAll(s, "|", `\|`)
}

func sortedKeys(row map[string]any) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
