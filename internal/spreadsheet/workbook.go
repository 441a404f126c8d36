// Package spreadsheet decodes legacy BIFF (.xls) workbooks and maps their
// rows onto structs by header name.
package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/extrame/xls"
)

var ErrNoSheets = errors.New("workbook has no sheets")
var ErrSheetNotFound = errors.New("sheet not found")

// Sheet is a decoded worksheet, every cell rendered as text.
// Trailing empty cells of a row are trimmed.
type Sheet struct {
	Name string
	Rows [][]string
}

// Workbook is the read side of a decoded spreadsheet file.
//
// note: fault injection point
type Workbook interface {
	// SheetNames lists sheet names in workbook order.
	SheetNames() []string
	Sheet(name string) (Sheet, error)
}

// FirstSheet returns the first sheet in workbook order.
func FirstSheet(wb Workbook) (Sheet, error) {
	names := wb.SheetNames()
	if len(names) == 0 {
		return Sheet{}, ErrNoSheets
	}
	return wb.Sheet(names[0])
}

// xlsWorkbook renders cells through extrame/xls, completed by a record scan
// for what it leaves out: boolean cells, cached formula results and rows
// without a ROW record.
type xlsWorkbook struct {
	wb      *xls.WorkBook
	stream  []byte
	offsets []uint32
}

// OpenXls decodes an in-memory BIFF8 workbook. Decoder panics on corrupt
// input are returned as errors.
func OpenXls(data []byte) (wb Workbook, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("open xls: empty file")
	}

	defer func() {
		if r := recover(); r != nil {
			wb = nil
			err = fmt.Errorf("open xls: decoder panic: %v", r)
		}
	}()

	decoded, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if decoded == nil {
		return nil, fmt.Errorf("open xls: no workbook")
	}

	stream, err := readWorkbookStream(data)
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}

	return xlsWorkbook{
		wb:      decoded,
		stream:  stream,
		offsets: sheetOffsets(stream),
	}, nil
}

func (w xlsWorkbook) SheetNames() (names []string) {
	defer func() {
		if r := recover(); r != nil {
			names = nil
		}
	}()

	for i := 0; i < w.wb.NumSheets(); i++ {
		sheet := w.wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		names = append(names, sheet.Name)
	}
	return names
}

func (w xlsWorkbook) Sheet(name string) (out Sheet, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = Sheet{}
			err = fmt.Errorf("read sheet %q: decoder panic: %v", name, r)
		}
	}()

	for i := 0; i < w.wb.NumSheets(); i++ {
		sheet := w.wb.GetSheet(i)
		if sheet == nil || sheet.Name != name {
			continue
		}
		if i >= len(w.offsets) {
			return Sheet{}, fmt.Errorf("read sheet %q: no BOUNDSHEET record", name)
		}

		cells, err := scanSheet(w.stream, w.offsets[i])
		if err != nil {
			return Sheet{}, fmt.Errorf("read sheet %q: %w", name, err)
		}
		return Sheet{Name: sheet.Name, Rows: renderRows(sheet, cells)}, nil
	}

	return Sheet{}, fmt.Errorf("read sheet %q: %w", name, ErrSheetNotFound)
}

func renderRows(sheet *xls.WorkSheet, cells sheetCells) [][]string {
	rows := make([][]string, 0, cells.maxRow+1)
	for r := 0; r <= cells.maxRow; r++ {
		last, ok := cells.lastCol[uint16(r)]
		if !ok {
			rows = append(rows, []string{})
			continue
		}

		row := sheetRow(sheet, r)
		text := make([]string, int(last)+1)
		for c := range text {
			if value, ok := cells.values[cellRef{row: uint16(r), col: uint16(c)}]; ok {
				text[c] = value
				continue
			}
			if row != nil {
				text[c] = row.Col(c)
			}
		}
		rows = append(rows, trimTrailingEmpty(text))
	}
	return rows
}

// sheetRow is sheet.Row, nil for a row extrame/xls never saw.
func sheetRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	// WorkSheet.Row dereferences the looked up row before returning it
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

func trimTrailingEmpty(cells []string) []string {
	end := len(cells)
	for end > 0 && strings.TrimSpace(cells[end-1]) == "" {
		end--
	}
	return cells[:end]
}
