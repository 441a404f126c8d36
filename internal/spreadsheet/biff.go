package spreadsheet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/extrame/ole2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// BIFF8 record ids read by the record scan.
const (
	recordFormula    = 0x0006
	recordEOF        = 0x000A
	recordBoundSheet = 0x0085
	recordMulRk      = 0x00BD
	recordMulBlank   = 0x00BE
	recordLabelSst   = 0x00FD
	recordBlank      = 0x0201
	recordNumber     = 0x0203
	recordLabel      = 0x0204
	recordBoolErr    = 0x0205
	recordString     = 0x0207
	recordRk         = 0x027E
)

var errNoWorkbookStream = errors.New("no Workbook stream in container")

type cellRef struct {
	row uint16
	col uint16
}

// sheetCells is what the record scan learns about one worksheet: the text of
// the cells extrame/xls cannot render (booleans and formula results) and the
// last column of every row that holds a cell.
type sheetCells struct {
	values  map[cellRef]string
	lastCol map[uint16]uint16
	maxRow  int
}

func newSheetCells() sheetCells {
	return sheetCells{
		values:  map[cellRef]string{},
		lastCol: map[uint16]uint16{},
		maxRow:  -1,
	}
}

func (s *sheetCells) extend(row, col uint16) {
	if last, ok := s.lastCol[row]; !ok || col > last {
		s.lastCol[row] = col
	}
	if int(row) > s.maxRow {
		s.maxRow = int(row)
	}
}

func (s *sheetCells) set(ref cellRef, value string) {
	s.values[ref] = value
	s.extend(ref.row, ref.col)
}

// readWorkbookStream extracts the BIFF record stream from its OLE2 container.
func readWorkbookStream(data []byte) ([]byte, error) {
	container, err := ole2.Open(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	dir, err := container.ListDir()
	if err != nil {
		return nil, err
	}

	var book, root *ole2.File
	for _, file := range dir {
		switch file.Name() {
		case "Workbook", "Book":
			book = file
		case "Root Entry":
			root = file
		}
	}
	if book == nil || root == nil {
		return nil, errNoWorkbookStream
	}

	// the stream reader runs to the end of the sector chain, not the stream
	stream := container.OpenFile(book, root)
	return io.ReadAll(io.LimitReader(stream, int64(book.Size)))
}

// walkRecords calls fn on every record from offset on, until fn returns
// false or the stream runs out.
func walkRecords(stream []byte, offset int, fn func(id uint16, body []byte) bool) {
	for offset >= 0 && offset+4 <= len(stream) {
		id := binary.LittleEndian.Uint16(stream[offset:])
		size := int(binary.LittleEndian.Uint16(stream[offset+2:]))
		start := offset + 4
		end := start + size
		if end > len(stream) {
			end = len(stream)
		}
		if !fn(id, stream[start:end]) {
			return
		}
		offset = end
	}
}

// sheetOffsets lists the stream offsets of the worksheets, in workbook order.
func sheetOffsets(stream []byte) []uint32 {
	var offsets []uint32
	walkRecords(stream, 0, func(id uint16, body []byte) bool {
		if id == recordBoundSheet && len(body) >= 4 {
			offsets = append(offsets, binary.LittleEndian.Uint32(body))
		}
		return id != recordEOF
	})
	return offsets
}

// scanSheet reads the worksheet substream starting at offset.
func scanSheet(stream []byte, offset uint32) (sheetCells, error) {
	if int64(offset) >= int64(len(stream)) {
		return sheetCells{}, fmt.Errorf("sheet offset %d beyond stream of %d bytes", offset, len(stream))
	}

	cells := newSheetCells()
	// a string formula result lives in the STRING record that follows it
	var pendingString *cellRef

	walkRecords(stream, int(offset), func(id uint16, body []byte) bool {
		if id == recordEOF {
			return false
		}
		if id == recordString {
			if pendingString != nil {
				cells.set(*pendingString, decodeStringRecord(body))
				pendingString = nil
			}
			return true
		}
		if len(body) < 4 {
			return true
		}

		ref := cellRef{
			row: binary.LittleEndian.Uint16(body[0:]),
			col: binary.LittleEndian.Uint16(body[2:]),
		}
		switch id {
		case recordBoolErr:
			if len(body) < 8 {
				return true
			}
			cells.set(ref, boolErrText(body[6], body[7]))
		case recordFormula:
			if len(body) < 14 {
				return true
			}
			text, isString := formulaResultText(body[6:14])
			cells.set(ref, text)
			if isString {
				pendingString = &ref
			}
		case recordMulRk, recordMulBlank:
			if len(body) >= 6 {
				cells.extend(ref.row, binary.LittleEndian.Uint16(body[len(body)-2:]))
			}
		case recordNumber, recordLabel, recordLabelSst, recordBlank, recordRk:
			cells.extend(ref.row, ref.col)
		}
		return true
	})

	return cells, nil
}

// boolErrText renders a BOOLERR cell, error values render empty.
func boolErrText(value byte, isError byte) string {
	if isError != 0 {
		return ""
	}
	return strconv.FormatBool(value != 0)
}

// formulaResultText renders the cached result of a FORMULA record. isString
// is true when the text comes in the next STRING record.
func formulaResultText(result []byte) (text string, isString bool) {
	if result[6] != 0xFF || result[7] != 0xFF {
		value := math.Float64frombits(binary.LittleEndian.Uint64(result))
		return strconv.FormatFloat(value, 'f', -1, 64), false
	}
	switch result[0] {
	case 0:
		return "", true
	case 1:
		return strconv.FormatBool(result[2] != 0), false
	default:
		// error or empty string
		return "", false
	}
}

// decodeStringRecord decodes the XLUnicodeString of a STRING record.
func decodeStringRecord(body []byte) string {
	if len(body) < 3 {
		return ""
	}
	count := int(binary.LittleEndian.Uint16(body))
	flags := body[2]
	chars := body[3:]

	if flags&0x01 != 0 {
		if len(chars) > count*2 {
			chars = chars[:count*2]
		}
		decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(chars)
		if err != nil {
			return ""
		}
		return string(decoded)
	}

	if len(chars) > count {
		chars = chars[:count]
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(chars)
	if err != nil {
		return ""
	}
	return string(decoded)
}
