package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Options controls how files are read into a Table.
type Options struct {
	// MaxRows limits rows loaded; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, sniffs the header line among ',', ';', '\t'.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// Sheet selection for XLSX. SheetIndex is 1-based; both empty means the first sheet.
	SheetName  string
	SheetIndex int
}

// Load reads path according to its extension: .xlsx goes through the
// workbook reader, everything else is treated as delimited text.
func Load(path string, opt Options) (*Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return LoadXLSX(path, opt)
	}
	return LoadCSV(path, opt)
}

// LoadCSV reads a delimited text file.
func LoadCSV(path string, opt Options) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	if opt.Delimiter == 0 {
		opt.Delimiter = sniffDelimiter(path, data)
	}
	return ReadCSV(bytes.NewReader(data), filepath.Base(path), opt)
}

// ReadCSV reads delimited text from r. A zero delimiter means ','.
func ReadCSV(r io.Reader, name string, opt Options) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = opt.Delimiter
	if cr.Comma == 0 {
		cr.Comma = ','
	}

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return New(name), nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = append([]string(nil), header...)

	var records [][]string
	seen := 0
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", seen+1, err)
		}
		seen++
		if opt.MaxRows > 0 && len(records) >= opt.MaxRows {
			continue
		}
		records = append(records, rec)
	}
	t, err := FromRecords(name, header, records, opt)
	if err != nil {
		return nil, err
	}
	t.sourceRows = seen
	return t, nil
}

// FromRecords builds a Table from a header and string records. Short records
// are padded with empty cells. A column is numeric only when every row parses
// as a finite number; otherwise it is kept as strings.
func FromRecords(name string, header []string, records [][]string, opt Options) (*Table, error) {
	t := New(name)
	names := uniqueHeaders(header)
	for j, col := range names {
		raw := make([]string, len(records))
		for i, rec := range records {
			if j < len(rec) {
				raw[i] = strings.TrimSpace(rec[j])
			}
		}
		if vals, ok := parseAll(raw, opt); ok {
			if err := t.AddNumeric(col, vals); err != nil {
				return nil, err
			}
			continue
		}
		if err := t.AddCategorical(col, raw); err != nil {
			return nil, err
		}
	}
	t.sourceRows = len(records)
	return t, nil
}

func parseAll(raw []string, opt Options) ([]float64, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	out := make([]float64, len(raw))
	for i, s := range raw {
		v, ok := ParseNumber(s, opt.DecimalSeparator, opt.ThousandsSeparator)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// uniqueHeaders trims names, fills blanks, and suffixes repeats so every
// column can be addressed by name.
func uniqueHeaders(header []string) []string {
	out := make([]string, len(header))
	used := map[string]int{}
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if used[name] > 0 {
			base := name
			for n := 2; ; n++ {
				if cand := fmt.Sprintf("%s_%d", base, n); used[cand] == 0 {
					name = cand
					break
				}
			}
		}
		used[name]++
		out[i] = name
	}
	return out
}

// sniffDelimiter treats .tsv as tab separated; otherwise it picks the
// candidate that occurs most often on the first line.
func sniffDelimiter(path string, data []byte) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', 0
	for _, c := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(c))); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}
