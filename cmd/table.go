package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/MimeLyc/srt-line-translator/internal/subtitle"
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
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// printEntries parses src and writes its entries as a table. No service is contacted.
func printEntries(w io.Writer, src string) error {
	f, err := subtitle.NewReader(src).Read()
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(f.Lines))
	for _, line := range f.Lines {
		rows = append(rows, []string{
			fmt.Sprint(line.Index),
			subtitle.FormatTimestamp(line.StartTime),
			subtitle.FormatTimestamp(line.EndTime),
			line.Text,
		})
	}

	fmt.Fprintln(w, renderTable([]string{"#", "Start", "End", "Text"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))
	fmt.Fprintf(w, "%d entries, detected language: %s\n", len(f.Lines), f.Language)
	return nil
}
