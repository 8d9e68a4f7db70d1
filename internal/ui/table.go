package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/jar-ry/Snowflake-Data-Science/internal/snowflake"
)

// ResultPrinter renders query results and session details as text grids.
type ResultPrinter struct {
	useColor bool
	maxRows  int
}

// NewResultPrinter creates a printer. maxRows <= 0 prints every row.
func NewResultPrinter(useColor bool, maxRows int) *ResultPrinter {
	return &ResultPrinter{useColor: useColor, maxRows: maxRows}
}

// Result renders one statement's rows. Statements without a result set
// render as a one line summary.
func (p *ResultPrinter) Result(res *snowflake.Result) string {
	var buf strings.Builder

	if len(res.Columns) == 0 {
		buf.WriteString(p.dim("Statement executed successfully."))
		buf.WriteString("\n")
		return buf.String()
	}

	table := tablewriter.NewWriter(&buf)
	table.SetHeader(res.Columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	shown := res.Len()
	if p.maxRows > 0 && shown > p.maxRows {
		shown = p.maxRows
	}
	for _, row := range res.Rows[:shown] {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = p.cell(v)
		}
		table.Append(cells)
	}
	table.Render()

	if shown < res.Len() {
		buf.WriteString(p.dim(fmt.Sprintf("... %s not shown", rowCount(res.Len()-shown))))
		buf.WriteString("\n")
	}
	fmt.Fprintf(&buf, "%s\n", p.dim(rowCount(res.Len())))
	return buf.String()
}

// KeyValues renders ordered label/value pairs without borders.
func (p *ResultPrinter) KeyValues(pairs [][2]string) string {
	var buf strings.Builder

	table := tablewriter.NewWriter(&buf)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, kv := range pairs {
		value := kv[1]
		if value == "" {
			value = p.dim("-")
		}
		table.Append([]string{p.bold(kv[0]), value})
	}
	table.Render()
	return buf.String()
}

// Tag highlights a version tag.
func (p *ResultPrinter) Tag(tag string) string {
	if p.useColor {
		return color.GreenString(tag)
	}
	return tag
}

func (p *ResultPrinter) cell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return p.dim("NULL")
	case time.Time:
		return val.Format("2006-01-02 15:04:05.000 -0700")
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

func (p *ResultPrinter) dim(s string) string {
	if p.useColor {
		return color.New(color.Faint).Sprint(s)
	}
	return s
}

func (p *ResultPrinter) bold(s string) string {
	if p.useColor {
		return color.New(color.Bold).Sprint(s)
	}
	return s
}

func rowCount(n int) string {
	if n == 1 {
		return "1 row"
	}
	return fmt.Sprintf("%d rows", n)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
