package document

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
)

// summarySampleRows is how many rows a table summary quotes verbatim.
const summarySampleRows = 10

// Table is the first sheet of a spreadsheet upload. The first row is the
// header.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ParseTable reads a .csv or .xlsx upload. limit caps the number of data
// rows read; zero reads them all.
func ParseTable(filename string, content []byte, limit int) (*Table, error) {
	if len(content) == 0 {
		return nil, billingerrors.MalformedInput("uploaded file is empty")
	}

	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		records, err = readCSV(content, limit)
	case ".xlsx":
		records, err = readXLSX(content, limit)
	case ".xls":
		return nil, billingerrors.MalformedInput("legacy .xls workbooks are not supported; save the file as .xlsx or .csv")
	default:
		return nil, billingerrors.MalformedInput("unsupported file format; upload a .csv or .xlsx file")
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, billingerrors.MalformedInput("spreadsheet has no header row")
	}

	table := &Table{Columns: make([]string, len(records[0]))}
	for i, name := range records[0] {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		table.Columns[i] = name
	}
	for _, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		row := make([]string, len(table.Columns))
		copy(row, record)
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func readCSV(content []byte, limit int) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for limit <= 0 || len(records) <= limit {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, billingerrors.MalformedInput("unreadable CSV: " + err.Error())
		}
		records = append(records, record)
	}
	return records, nil
}

func readXLSX(content []byte, limit int) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, billingerrors.MalformedInput("unreadable Excel workbook: " + err.Error())
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, billingerrors.MalformedInput("workbook has no sheets")
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, billingerrors.MalformedInput("unreadable Excel sheet: " + err.Error())
	}
	defer rows.Close()

	var records [][]string
	for rows.Next() && (limit <= 0 || len(records) <= limit) {
		cols, err := rows.Columns()
		if err != nil {
			return nil, billingerrors.MalformedInput("unreadable Excel row: " + err.Error())
		}
		records = append(records, cols)
	}
	return records, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Records returns the first n rows keyed by column name.
func (t *Table) Records(n int) []map[string]string {
	if n <= 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	out := make([]map[string]string, 0, n)
	for _, row := range t.Rows[:n] {
		record := make(map[string]string, len(t.Columns))
		for i, col := range t.Columns {
			record[col] = row[i]
		}
		out = append(out, record)
	}
	return out
}

// ColumnStats describes one column of a table.
type ColumnStats struct {
	Name    string
	Type    string
	Count   int
	Numeric bool
	Mean    decimal.Decimal
	Min     decimal.Decimal
	Max     decimal.Decimal
}

// Stats infers a type per column and summarizes numeric columns. A column
// is numeric when every non-empty cell parses as a number.
func (t *Table) Stats() []ColumnStats {
	stats := make([]ColumnStats, len(t.Columns))
	for i, col := range t.Columns {
		s := ColumnStats{Name: col, Numeric: true}
		sum := decimal.Zero
		for _, row := range t.Rows {
			cell := strings.TrimSpace(row[i])
			if cell == "" {
				continue
			}
			s.Count++
			if !s.Numeric {
				continue
			}
			v, err := decimal.NewFromString(strings.ReplaceAll(cell, ",", ""))
			if err != nil {
				s.Numeric = false
				continue
			}
			if s.Count == 1 || v.LessThan(s.Min) {
				s.Min = v
			}
			if s.Count == 1 || v.GreaterThan(s.Max) {
				s.Max = v
			}
			sum = sum.Add(v)
		}
		switch {
		case s.Count == 0:
			s.Numeric = false
			s.Type = "empty"
		case s.Numeric:
			s.Type = "number"
			s.Mean = sum.Div(decimal.NewFromInt(int64(s.Count))).Round(4)
		default:
			s.Type = "text"
		}
		stats[i] = s
	}
	return stats
}

// Summary renders the table as text for a language model: columns, types,
// a sample of rows and a numeric summary.
func (t *Table) Summary(sampleRows int) string {
	if sampleRows <= 0 {
		sampleRows = summarySampleRows
	}
	stats := t.Stats()

	var b strings.Builder
	b.WriteString("Columns: " + strings.Join(t.Columns, ", ") + "\n")

	types := make([]string, len(stats))
	for i, s := range stats {
		types[i] = s.Name + "=" + s.Type
	}
	b.WriteString("Data Types: " + strings.Join(types, ", ") + "\n")
	b.WriteString("Rows: " + strconv.Itoa(len(t.Rows)) + "\n")

	b.WriteString("Sample Data:\n")
	w := csv.NewWriter(&b)
	_ = w.Write(t.Columns)
	n := sampleRows
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	for _, row := range t.Rows[:n] {
		_ = w.Write(row)
	}
	w.Flush()

	b.WriteString("Numeric Summary:\n")
	for _, s := range stats {
		if !s.Numeric {
			continue
		}
		fmt.Fprintf(&b, "%s: count=%d mean=%s min=%s max=%s\n",
			s.Name, s.Count, s.Mean.String(), s.Min.String(), s.Max.String())
	}
	return b.String()
}
