package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// titleWidth wraps long titles so tables stay readable in a terminal.
const titleWidth = 48

// column describes one table column. Numeric columns align right; wide
// columns wrap at width runes.
type column struct {
	header string
	right  bool
	width  int
}

func col(header string) column      { return column{header: header} }
func numCol(header string) column   { return column{header: header, right: true} }
func titleCol(header string) column { return column{header: header, width: titleWidth} }

// renderTable draws rows under cols. Short rows are padded with blanks and
// extra cells are dropped.
func renderTable(cols []column, rows [][]string) string {
	if len(cols) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, 0, len(cols))
	configs := make([]table.ColumnConfig, 0, len(cols))
	for i, c := range cols {
		header = append(header, c.header)
		cfg := table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if c.right {
			cfg.Align = text.AlignRight
		}
		if c.width > 0 {
			cfg.WidthMax = c.width
			cfg.WidthMaxEnforcer = text.WrapSoft
		}
		configs = append(configs, cfg)
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, cells := range rows {
		row := make(table.Row, len(cols))
		for i := range row {
			row[i] = ""
			if i < len(cells) {
				row[i] = cells[i]
			}
		}
		tw.AppendRow(row)
	}
	return tw.Render()
}
