package page

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON is an opaque JSON document stored in a nullable column.
type JSON json.RawMessage

// IsNull reports whether j holds no document.
func (j JSON) IsNull() bool { return len(j) == 0 || string(j) == "null" }

func (j JSON) MarshalJSON() ([]byte, error) {
	if j.IsNull() {
		return []byte("null"), nil
	}
	return []byte(j), nil
}

func (j *JSON) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*j = nil
		return nil
	}
	*j = append((*j)[:0], b...)
	return nil
}

// Value implements driver.Valuer.
func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements sql.Scanner.
func (j *JSON) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append(JSON(nil), v...)
	case string:
		*j = JSON(v)
	default:
		return fmt.Errorf("page: cannot scan %T into JSON", src)
	}
	return nil
}

// Markers is a nullable JSON string list (changes, partial_blocks).
type Markers []string

// Value implements driver.Valuer.  A nil list is stored as NULL.
func (m Markers) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *Markers) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("page: cannot scan %T into Markers", src)
	}
	if len(raw) == 0 || string(raw) == "null" {
		*m = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("page: markers: %w", err)
	}
	*m = out
	return nil
}

// Contains reports whether s is in m.
func (m Markers) Contains(s string) bool {
	for _, v := range m {
		if v == s {
			return true
		}
	}
	return false
}
