// Package models defines the backpack records exchanged with the server and
// kept in the client state.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID identifies a record. Server-assigned ids are integers on the wire;
// client-generated ids are uuids and travel as strings. The zero value means
// "no id".
type ID string

// IsZero reports whether id is empty.
func (id ID) IsZero() bool { return id == "" }

// IsLocal reports whether id was generated on the client and has not yet
// been replaced by a server id.
func (id ID) IsLocal() bool {
	return id != "" && !id.isNumeric()
}

func (id ID) isNumeric() bool {
	_, err := strconv.ParseUint(string(id), 10, 64)
	return err == nil
}

func (id ID) String() string { return string(id) }

func (id ID) MarshalJSON() ([]byte, error) {
	switch {
	case id == "":
		return []byte("null"), nil
	case id.isNumeric():
		return []byte(id), nil
	default:
		return json.Marshal(string(id))
	}
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("invalid id %s: %w", b, err)
		}
		*id = ID(n.String())
	}
	return nil
}

// ContainsID reports whether ids holds id.
func ContainsID(ids []ID, id ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
