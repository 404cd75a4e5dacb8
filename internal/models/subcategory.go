package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// PlaceholderID marks an unsaved job form and never names a stored job.
const PlaceholderID ID = "Nova"

// ID is an opaque server-assigned identifier.
//
// Backends return it either as a JSON string or as a number; both decode to the same string form.
type ID string

// UnmarshalJSON accepts strings, numbers and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Selectable reports whether id can name a stored job.
func (id ID) Selectable() bool {
	return strings.TrimSpace(string(id)) != "" && id != PlaceholderID
}

// Subcategory is a job record. The JSON form is the backend wire format.
type Subcategory struct {
	ID               ID     `json:"id,omitempty"`
	Name             string `json:"name"`
	ShortDescription string `json:"shortDescription"`
	LongDescription  string `json:"longDescription"`
	IsActive         bool   `json:"isActive"`
}

// Validate checks the fields the backend requires on save.
func (s Subcategory) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// IndexOf returns the position of id in subs, or -1.
func IndexOf(subs []Subcategory, id ID) int {
	for i, s := range subs {
		if s.ID == id {
			return i
		}
	}
	return -1
}
