package spreadsheet

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/cast"
)

var ErrNoHeader = errors.New("header row absent")
var ErrMissingColumn = errors.New("required column missing")
var ErrMissingValue = errors.New("required value missing")

// RowError describes why a data row could not be decoded.
type RowError struct {
	// Row is the 1-based row number in the sheet, header included.
	Row    int
	Column string
	Err    error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d, column %q: %s", e.Row, e.Column, e.Err.Error())
}

func (e RowError) Unwrap() error {
	return e.Err
}

type fieldBinding struct {
	header   string
	index    []int
	column   int
	optional bool
}

// RowDeserializer decodes the data rows of a sheet into T. The first row of
// the sheet is the header, T's fields are bound to columns through the `xls`
// struct tag, matched case-insensitively after trimming whitespace.
//
// Pointer fields are optional: an empty cell or an absent column leaves them
// nil. Every other field is required, an empty cell fails the row. An absent
// required column fails every row with ErrMissingColumn, it does not fail the
// deserializer itself.
type RowDeserializer[T any] struct {
	bindings []fieldBinding
	rows     [][]string
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

func NewRowDeserializer[T any](sheet Sheet) (*RowDeserializer[T], error) {
	if len(sheet.Rows) == 0 || len(sheet.Rows[0]) == 0 {
		return nil, ErrNoHeader
	}

	columns := map[string]int{}
	for i, header := range sheet.Rows[0] {
		key := normalizeHeader(header)
		if key == "" {
			continue
		}
		if _, exists := columns[key]; exists {
			continue
		}
		columns[key] = i
	}

	var zero T
	structType := reflect.TypeOf(zero)
	if structType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("deserialize into %s: not a struct", structType)
	}

	var bindings []fieldBinding
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		tag, ok := field.Tag.Lookup("xls")
		if !ok || tag == "-" || !field.IsExported() {
			continue
		}

		column, exists := columns[normalizeHeader(tag)]
		if !exists {
			column = -1
		}

		bindings = append(bindings, fieldBinding{
			header:   tag,
			index:    field.Index,
			column:   column,
			optional: field.Type.Kind() == reflect.Pointer,
		})
	}

	return &RowDeserializer[T]{
		bindings: bindings,
		rows:     sheet.Rows[1:],
	}, nil
}

// Len is the number of data rows, header excluded.
func (d *RowDeserializer[T]) Len() int {
	return len(d.rows)
}

// Row decodes the data row at index i, 0 being the first row after the header.
func (d *RowDeserializer[T]) Row(i int) (T, error) {
	var out T
	cells := d.rows[i]
	value := reflect.ValueOf(&out).Elem()

	for _, binding := range d.bindings {
		if binding.column < 0 {
			if binding.optional {
				continue
			}
			return out, RowError{Row: i + 2, Column: binding.header, Err: ErrMissingColumn}
		}

		cell := ""
		if binding.column < len(cells) {
			cell = strings.TrimSpace(cells[binding.column])
		}

		field := value.FieldByIndex(binding.index)
		if cell == "" {
			if binding.optional {
				continue
			}
			return out, RowError{Row: i + 2, Column: binding.header, Err: ErrMissingValue}
		}

		err := setField(field, cell)
		if err != nil {
			return out, RowError{Row: i + 2, Column: binding.header, Err: err}
		}
	}

	return out, nil
}

func setField(field reflect.Value, cell string) error {
	if field.Kind() == reflect.Pointer {
		inner := reflect.New(field.Type().Elem())
		err := setField(inner.Elem(), cell)
		if err != nil {
			return err
		}
		field.Set(inner)
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(cell)
	case reflect.Bool:
		v, err := cast.ToBoolE(cell)
		if err != nil {
			return err
		}
		field.SetBool(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := cast.ToInt64E(cell)
		if err != nil {
			return err
		}
		if field.OverflowInt(v) {
			return fmt.Errorf("%d overflows %s", v, field.Type())
		}
		field.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := cast.ToUint64E(cell)
		if err != nil {
			return err
		}
		if field.OverflowUint(v) {
			return fmt.Errorf("%d overflows %s", v, field.Type())
		}
		field.SetUint(v)
	case reflect.Float32, reflect.Float64:
		v, err := cast.ToFloat64E(cell)
		if err != nil {
			return err
		}
		field.SetFloat(v)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
