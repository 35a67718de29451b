package document

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
)

func TestExtractPlainText(t *testing.T) {
	e := NewExtractor(10)

	text, err := e.Extract("notes.TXT", []byte("  hello world, this is long  "))
	require.NoError(t, err)
	assert.Equal(t, "hello worl", text)

	text, err = e.Extract("readme.md", []byte("# Title"))
	require.NoError(t, err)
	assert.Equal(t, "# Title", text)
}

func TestExtractRejects(t *testing.T) {
	e := NewExtractor(0)

	_, err := e.Extract("a.txt", nil)
	assert.True(t, billingerrors.IsMalformedInput(err))

	_, err = e.Extract("a.docx", []byte("x"))
	assert.True(t, billingerrors.IsMalformedInput(err))

	_, err = e.Extract("a.pdf", []byte("not a pdf"))
	assert.True(t, billingerrors.IsMalformedInput(err))

	_, err = e.Extract("a.txt", []byte("   \n "))
	assert.True(t, billingerrors.IsMalformedInput(err))
}

func TestTruncateKeepsRunes(t *testing.T) {
	assert.Equal(t, "h", truncate("hé", 2))
	assert.Equal(t, "hé", truncate("hé", 3))
}

func TestRenderProducesPDF(t *testing.T) {
	out, err := NewRenderer().Render("First paragraph.\n\nSecond paragraph with café.")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	assert.Greater(t, len(out), 500)
}

const salesCSV = "\xef\xbb\xbfregion,sales\nnorth,120\nsouth,80\n,\neast,100\n"

func TestParseTableCSV(t *testing.T) {
	table, err := ParseTable("sales.csv", []byte(salesCSV), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "sales"}, table.Columns)
	require.Len(t, table.Rows, 3, "blank rows are skipped")

	stats := table.Stats()
	assert.Equal(t, "text", stats[0].Type)
	assert.Equal(t, "number", stats[1].Type)
	assert.Equal(t, "100", stats[1].Mean.String())
	assert.Equal(t, "80", stats[1].Min.String())
	assert.Equal(t, "120", stats[1].Max.String())

	summary := table.Summary(2)
	assert.Contains(t, summary, "Columns: region, sales")
	assert.Contains(t, summary, "Data Types: region=text, sales=number")
	assert.Contains(t, summary, "Rows: 3")
	assert.Contains(t, summary, "north,120\nsouth,80\n")
	assert.NotContains(t, summary, "east,100")
	assert.Contains(t, summary, "sales: count=3 mean=100 min=80 max=120")
}

func TestParseTableXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"month", "revenue"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"jan", 10}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"feb", 30}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := ParseTable("Book.XLSX", buf.Bytes(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"month", "revenue"}, table.Columns)
	assert.Equal(t, [][]string{{"jan", "10"}, {"feb", "30"}}, table.Rows)
	assert.Equal(t, "20", table.Stats()[1].Mean.String())
}

func TestParseTableRejects(t *testing.T) {
	_, err := ParseTable("old.xls", []byte("\xd0\xcf\x11\xe0"), 0)
	assert.True(t, billingerrors.IsMalformedInput(err))

	_, err = ParseTable("broken.xlsx", []byte("not a zip"), 0)
	assert.True(t, billingerrors.IsMalformedInput(err))

	_, err = ParseTable("empty.csv", nil, 0)
	assert.True(t, billingerrors.IsMalformedInput(err))
}

func TestExtractorSpreadsheetReads(t *testing.T) {
	e := NewExtractor(0)

	columns, rows, err := e.Preview("sales.csv", []byte(salesCSV), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "sales"}, columns)
	assert.Equal(t, []map[string]string{
		{"region": "north", "sales": "120"},
		{"region": "south", "sales": "80"},
	}, rows)

	sample, err := e.Sample("sales.csv", []byte(salesCSV), 1)
	require.NoError(t, err)
	assert.Contains(t, sample, "north,120")
	assert.NotContains(t, sample, "south,80")

	_, err = e.Sample("header.csv", []byte("region,sales\n"), 10)
	assert.True(t, billingerrors.IsMalformedInput(err))

	text, err := e.Extract("sales.csv", []byte(salesCSV))
	require.NoError(t, err)
	assert.Contains(t, text, "Numeric Summary:")
}

func TestExtractDOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>Quarterly</w:t></w:r><w:r><w:tab/><w:t xml:space="preserve">report</w:t></w:r></w:p>
<w:p><w:r><w:t>Revenue grew.</w:t></w:r></w:p>
</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	text, err := NewExtractor(0).Extract("report.docx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Quarterly\treport\nRevenue grew.", text)

	var empty bytes.Buffer
	zw = zip.NewWriter(&empty)
	_, err = zw.Create("word/styles.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = NewExtractor(0).Extract("styles.docx", empty.Bytes())
	assert.True(t, billingerrors.IsMalformedInput(err))
}
