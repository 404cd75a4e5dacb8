package models

import (
	"fmt"
	"slices"
	"strconv"
)

// Field describes one entry of the main data record.
type Field struct {
	Key   string // wire key used by the backend
	Label string
	Long  bool // multi-line text
}

// DropdownKey is the wire key of the enumerated field.
const DropdownKey = "dropdown"

// MainDataFields lists every field of the main data record in display order.
var MainDataFields = []Field{
	{Key: "input1", Label: "Company name"},
	{Key: "input2", Label: "Short description"},
	{Key: "largeText", Label: "Long description", Long: true},
	{Key: "input3", Label: "Contact email"},
	{Key: "input4", Label: "Website"},
	{Key: "input5", Label: "Additional info"},
	{Key: DropdownKey, Label: "Settings"},
	{Key: "largeText2", Label: "Notes", Long: true},
	{Key: "largeText3", Label: "Extra notes", Long: true},
}

// MainData is the flat per-user record, keyed by [Field.Key].
type MainData map[string]string

// IsMainDataField reports whether key names a field of the record.
func IsMainDataField(key string) bool {
	return slices.ContainsFunc(MainDataFields, func(f Field) bool { return f.Key == key })
}

// NewMainData returns a record with every field present and empty.
func NewMainData() MainData {
	d := make(MainData, len(MainDataFields))
	for _, f := range MainDataFields {
		d[f.Key] = ""
	}
	return d
}

// NormalizeMainData builds a complete record from a decoded response.
//
// Missing and null fields become "", numbers and booleans are formatted, unknown keys are dropped.
func NormalizeMainData(raw map[string]any) MainData {
	d := NewMainData()
	for _, f := range MainDataFields {
		switch v := raw[f.Key].(type) {
		case nil:
		case string:
			d[f.Key] = v
		case float64:
			d[f.Key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			d[f.Key] = strconv.FormatBool(v)
		default:
			d[f.Key] = fmt.Sprint(v)
		}
	}
	return d
}

// Get returns the value for key or "".
func (d MainData) Get(key string) string {
	return d[key]
}

// Clone returns a complete copy of the record.
func (d MainData) Clone() MainData {
	c := NewMainData()
	for _, f := range MainDataFields {
		c[f.Key] = d[f.Key]
	}
	return c
}

// Validate checks that only known fields are set and that the dropdown holds an allowed option.
// An empty dropdown value is always allowed, as is any value when options is empty.
func (d MainData) Validate(options []string) error {
	for key := range d {
		if !IsMainDataField(key) {
			return fmt.Errorf("unknown field %q", key)
		}
	}

	v := d[DropdownKey]
	if v == "" || len(options) == 0 {
		return nil
	}
	if !slices.Contains(options, v) {
		return fmt.Errorf("dropdown value %q is not one of %v", v, options)
	}
	return nil
}
