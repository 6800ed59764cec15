package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"mediatool/internal/workflow"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func renderSummary(s workflow.Summary) string {
	return renderTable(
		[]string{"Failed", "Modified", "Unchanged", "Skipped", "Total"},
		[][]string{{
			strconv.Itoa(s.Failed),
			strconv.Itoa(s.Modified),
			strconv.Itoa(s.Unchanged),
			strconv.Itoa(s.Skipped),
			strconv.Itoa(s.Total()),
		}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}

func renderFailures(failures []workflow.Failure) string {
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{f.Path, f.Reason})
	}
	return renderTable([]string{"Path", "Reason"}, rows, nil)
}
