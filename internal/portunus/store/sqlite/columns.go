package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/scandata"
)

// List and scan data columns are stored as JSON text.

func encodeList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeList(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func encodeObject(o scandata.Object) (string, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeObject(s string) (scandata.Object, error) {
	return scandata.Parse([]byte(s))
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isConstraintViolation(err error) bool {
	var se *moderncsqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// Connections without extended result codes only report the class.
		return strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return false
}

// jsonColumns collects decode errors so a row can be decoded in one pass
// and reported once.
type jsonColumns struct {
	err error
}

func (c *jsonColumns) list(name, s string) []string {
	v, err := decodeList(s)
	if err != nil && c.err == nil {
		c.err = fmt.Errorf("column %s: %w", name, err)
	}
	return v
}

func (c *jsonColumns) object(name, s string) scandata.Object {
	v, err := decodeObject(s)
	if err != nil && c.err == nil {
		c.err = fmt.Errorf("column %s: %w", name, err)
	}
	return v
}

func str(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
