package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSVWithBOMAndSemicolons(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, csvFile(
		"Branch Name;State;Branch Short Code",
		"Central;Karnataka;CEN",
		";;",
		"North;\"Tamil Nadu\"",
	)...)

	parsed, err := NewTabularParser().Parse(context.Background(), "branches.csv", data)

	require.NoError(t, err)
	assert.Equal(t, []string{"Branch Name", "State", "Branch Short Code"}, parsed.Headers)
	require.Len(t, parsed.Rows, 2)
	assert.Equal(t, 2, parsed.Rows[0].Number)
	assert.Equal(t, 4, parsed.Rows[1].Number)
	assert.Equal(t, []any{"North", "Tamil Nadu", nil}, parsed.Rows[1].Cells)
}

func TestParseLatin1CSV(t *testing.T) {
	data := []byte("Name,City\nJos\xe9,S\xe3o Paulo\n")

	parsed, err := NewTabularParser().Parse(context.Background(), "x.csv", data)

	require.NoError(t, err)
	assert.Equal(t, "José", parsed.Rows[0].Cells[0])
	assert.Equal(t, "São Paulo", parsed.Rows[0].Cells[1])
}

func TestParseWorkbookKeepsDateSerials(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Serial Number", "Warranty Start Date"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"SN1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	parsed, err := NewTabularParser().Parse(context.Background(), "equipment.xlsx", buf.Bytes())

	require.NoError(t, err)
	require.Len(t, parsed.Rows, 1)
	got, ok := ParseDate(parsed.Rows[0].Cells[1])
	require.True(t, ok)
	assert.Equal(t, "2024-01-01", FormatDate(got))
}

func TestParseRejectsUnsupported(t *testing.T) {
	p := NewTabularParser()

	_, err := p.Parse(context.Background(), "notes.pdf", []byte("%PDF-1.4"))
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = p.Parse(context.Background(), "old.xls", append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, 0, 0))
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = p.Parse(context.Background(), "empty.csv", []byte("  \n"))
	assert.ErrorIs(t, err, ErrEmptyFile)
}
