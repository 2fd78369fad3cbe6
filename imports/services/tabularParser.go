package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Parser turns an uploaded file into header-aligned rows.
type Parser interface {
	Parse(ctx context.Context, fileName string, data []byte) (*ParsedFile, error)
}

// TabularParser reads csv, xlsx and (where excelize can open them) xls files.
type TabularParser struct{}

func NewTabularParser() *TabularParser {
	return &TabularParser{}
}

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

func (p *TabularParser) Parse(ctx context.Context, fileName string, data []byte) (*ParsedFile, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	var (
		parsed *ParsedFile
		err    error
	)
	switch ext := strings.ToLower(filepath.Ext(fileName)); {
	case ext == ".xlsx" || bytes.HasPrefix(data, zipMagic):
		parsed, err = parseWorkbook(ctx, data)
	case ext == ".xls":
		// Legacy binary workbooks are not readable; some exporters write
		// csv or html under an .xls name, so fall back to csv for those.
		if bytes.HasPrefix(data, oleMagic) {
			return nil, fmt.Errorf("%w: legacy binary .xls workbooks must be re-saved as .xlsx or .csv", ErrUnsupportedFile)
		}
		parsed, err = parseDelimited(ctx, data)
	case ext == ".csv" || ext == "":
		parsed, err = parseDelimited(ctx, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, ext)
	}
	if err != nil {
		return nil, err
	}
	if len(parsed.Rows) == 0 {
		return nil, ErrEmptyFile
	}
	return parsed, nil
}

func parseWorkbook(ctx context.Context, data []byte) (*ParsedFile, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	// Raw values keep date cells as Excel serials instead of locale formatted text.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return buildParsedFile(ctx, rows)
}

func parseDelimited(ctx context.Context, data []byte) (*ParsedFile, error) {
	decoded, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
	}

	r := csv.NewReader(bytes.NewReader(decoded))
	r.Comma = sniffDelimiter(decoded)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
		}
		rows = append(rows, rec)
	}
	return buildParsedFile(ctx, rows)
}

// decodeText converts the upload to UTF-8, honouring a UTF-8 or UTF-16 BOM and
// falling back to Latin-1 for bytes that are not valid UTF-8.
func decodeText(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return data[3:], nil
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}), bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		out, _, err := transform.Bytes(dec, data)
		return out, err
	case utf8.Valid(data):
		return data, nil
	}
	out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
	return out, err
}

// sniffDelimiter picks the most frequent candidate delimiter on the header line.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t', '|'} {
		if c := bytes.Count(line, []byte(string(d))); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}

// buildParsedFile treats the first row as headers, pads short rows and drops
// fully blank ones. Row numbers stay aligned with the source sheet.
func buildParsedFile(ctx context.Context, rows [][]string) (*ParsedFile, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}
	if len(headers) == 0 {
		return nil, ErrEmptyFile
	}

	out := &ParsedFile{Headers: headers, Rows: make([]UploadRow, 0, len(rows)-1)}
	for i, rec := range rows[1:] {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		cells := make([]any, len(headers))
		blank := true
		for j := range headers {
			if j < len(rec) {
				cells[j] = rec[j]
				if strings.TrimSpace(rec[j]) != "" {
					blank = false
				}
			}
		}
		if blank {
			continue
		}
		out.Rows = append(out.Rows, UploadRow{Number: i + 2, Cells: cells})
	}
	return out, nil
}
