package table

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrSheetNotFound is returned when a requested sheet name does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

// LoadXLSX reads one sheet of an .xlsx workbook. The sheet is chosen by
// opt.SheetName, then by the 1-based opt.SheetIndex, then the first sheet.
// The first row of the sheet is the header.
func LoadXLSX(p string, opt Options) (*Table, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer zr.Close()

	wb := workbook{files: &zr.Reader}
	sheet, err := wb.sheetPath(opt.SheetName, opt.SheetIndex)
	if err != nil {
		return nil, fmt.Errorf("workbook %s: %w", filepath.Base(p), err)
	}
	shared, err := wb.sharedStrings()
	if err != nil {
		return nil, fmt.Errorf("workbook %s: %w", filepath.Base(p), err)
	}
	data, err := wb.part(sheet)
	if err != nil {
		return nil, fmt.Errorf("workbook %s: %w", filepath.Base(p), err)
	}

	name := filepath.Base(p)
	var (
		header    []string
		records   [][]string
		seen      int
		gotHeader bool
	)
	err = forEachRow(data, shared, func(row []string) {
		if !gotHeader {
			header, gotHeader = row, true
			return
		}
		seen++
		if opt.MaxRows > 0 && len(records) >= opt.MaxRows {
			return
		}
		records = append(records, row)
	})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(header) == 0 {
		return New(name), nil
	}
	t, err := FromRecords(name, header, records, opt)
	if err != nil {
		return nil, err
	}
	t.sourceRows = seen
	return t, nil
}

// workbook gives access to the parts of an opened .xlsx archive.
type workbook struct {
	files *zip.Reader
}

type xlsxSheetEntry struct {
	Name    string `xml:"name,attr"`
	SheetID int    `xml:"sheetId,attr"`
	RelID   string `xml:"id,attr"`
}

type xlsxWorkbook struct {
	Sheets []xlsxSheetEntry `xml:"sheets>sheet"`
}

type xlsxRelationships struct {
	Items []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// xlsxText is a shared or inline string: plain text or a list of runs.
type xlsxText struct {
	Text string `xml:"t"`
	Runs []struct {
		Text string `xml:"t"`
	} `xml:"r"`
}

func (x xlsxText) String() string {
	if len(x.Runs) == 0 {
		return x.Text
	}
	var b strings.Builder
	b.WriteString(x.Text)
	for _, r := range x.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

type xlsxCell struct {
	Ref    string   `xml:"r,attr"`
	Type   string   `xml:"t,attr"`
	Value  string   `xml:"v"`
	Inline xlsxText `xml:"is"`
}

type xlsxRow struct {
	Cells []xlsxCell `xml:"c"`
}

// part returns the bytes of a zip entry, or nil when it is absent.
func (w workbook) part(name string) ([]byte, error) {
	for _, f := range w.files.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, nil
}

// decodePart unmarshals an optional XML part into v.
func (w workbook) decodePart(name string, v any) error {
	data, err := w.part(name)
	if err != nil || len(data) == 0 {
		return err
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// sheetPath resolves the worksheet part for a sheet name or 1-based index.
// Without a matching workbook entry the index falls back to the
// conventional xl/worksheets/sheetN.xml.
func (w workbook) sheetPath(name string, index int) (string, error) {
	var wb xlsxWorkbook
	if err := w.decodePart("xl/workbook.xml", &wb); err != nil {
		return "", err
	}
	var rels xlsxRelationships
	if err := w.decodePart("xl/_rels/workbook.xml.rels", &rels); err != nil {
		return "", err
	}
	targets := make(map[string]string, len(rels.Items))
	for _, r := range rels.Items {
		if r.ID != "" && r.Target != "" {
			targets[r.ID] = r.Target
		}
	}

	match := func(s xlsxSheetEntry) bool { return s.SheetID == max(index, 1) }
	if name != "" {
		match = func(s xlsxSheetEntry) bool { return strings.EqualFold(s.Name, name) }
	}
	for _, s := range wb.Sheets {
		if !match(s) {
			continue
		}
		if target, ok := targets[s.RelID]; ok {
			return normalizeRelPath(target), nil
		}
	}
	if name != "" {
		names := make([]string, len(wb.Sheets))
		for i, s := range wb.Sheets {
			names[i] = s.Name
		}
		return "", fmt.Errorf("%w: %q (available: %s)", ErrSheetNotFound, name, strings.Join(names, ", "))
	}
	return path.Join("xl", "worksheets", fmt.Sprintf("sheet%d.xml", max(index, 1))), nil
}

func (w workbook) sharedStrings() ([]string, error) {
	var sst struct {
		Items []xlsxText `xml:"si"`
	}
	if err := w.decodePart("xl/sharedStrings.xml", &sst); err != nil {
		return nil, err
	}
	out := make([]string, len(sst.Items))
	for i, it := range sst.Items {
		out[i] = it.String()
	}
	return out, nil
}

// forEachRow decodes the <row> elements of a worksheet one at a time and
// hands fn the cell texts, placed by column reference with gaps left empty.
func forEachRow(data []byte, shared []string, fn func([]string)) error {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "row" {
			continue
		}
		var row xlsxRow
		if err := dec.DecodeElement(&row, &se); err != nil {
			return err
		}
		fn(row.values(shared))
	}
}

func (r xlsxRow) values(shared []string) []string {
	var out []string
	for _, c := range r.Cells {
		col := colIndexFromRef(c.Ref)
		if col < 0 {
			col = len(out)
		}
		for len(out) <= col {
			out = append(out, "")
		}
		out[col] = c.text(shared)
	}
	return out
}

func (c xlsxCell) text(shared []string) string {
	switch c.Type {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(c.Value))
		if err != nil || i < 0 || i >= len(shared) {
			return ""
		}
		return shared[i]
	case "inlineStr":
		return c.Inline.String()
	}
	return c.Value
}

// colIndexFromRef converts refs like "C12" to a 0-based column index; -1
// when ref has no column letters.
func colIndexFromRef(ref string) int {
	idx := 0
	for _, c := range strings.ToUpper(ref) {
		if c < 'A' || c > 'Z' {
			break
		}
		idx = idx*26 + int(c-'A'+1)
	}
	return idx - 1
}

// normalizeRelPath converts relationship targets to zip entry names, which
// never carry a leading slash and always live under xl/.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
