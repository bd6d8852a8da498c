// Package rowmarshal normalizes a dialect-native *sql.Rows into a uniform
// slice of JSON-typed objects, per section 4.6. Type coercion is
// table-driven by the dialect type name reported by the driver; every
// coercion tolerates SQL NULL by mapping it to JSON null, never an error.
package rowmarshal

import (
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// kind is the JSON-representation bucket a dialect type name falls into.
type kind int

const (
	kindString kind = iota
	kindInt32
	kindInt64
	kindFloat64
	kindDecimalString
	kindBool
	kindDateString
	kindDateTimeString
	kindJSON
	kindFallback
)

// typeKind classifies a driver-reported database type name into a coercion
// bucket, per the table in section 4.6.
func typeKind(dbType string) kind {
	switch strings.ToUpper(dbType) {
	case "INT2", "INT4", "SMALLINT", "INT", "MEDIUMINT", "TINYINT":
		return kindInt32
	case "INT8", "BIGINT":
		return kindInt64
	case "FLOAT4", "FLOAT8", "FLOAT", "DOUBLE":
		return kindFloat64
	case "NUMERIC", "DECIMAL", "NEWDECIMAL":
		return kindDecimalString
	case "TEXT", "VARCHAR", "CHAR", "BPCHAR", "NAME", "LONGTEXT":
		return kindString
	case "BOOL":
		return kindBool
	case "DATE":
		return kindDateString
	case "TIMESTAMP", "TIMESTAMPTZ", "DATETIME":
		return kindDateTimeString
	case "JSON", "JSONB":
		return kindJSON
	default:
		return kindFallback
	}
}

// MarshalRows consumes the full result set and returns one JSON-ready
// object per row, column name to coerced value.
func MarshalRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		obj := make(map[string]any, len(cols))
		for i, c := range cols {
			obj[c.Name()] = coerce(raw[i], c.DatabaseTypeName())
		}
		out = append(out, obj)
	}
	return out, rows.Err()
}

// coerce converts one scanned cell into a JSON-safe value. v is nil when
// the underlying column was SQL NULL.
func coerce(v any, dbType string) any {
	if v == nil {
		return nil
	}

	switch typeKind(dbType) {
	case kindInt32:
		return asInt64(v)
	case kindInt64:
		return asInt64(v)
	case kindFloat64:
		return asFloat64(v)
	case kindDecimalString:
		return asString(v)
	case kindString:
		return asString(v)
	case kindBool:
		return asBool(v)
	case kindDateString:
		return asTimeString(v, "2006-01-02")
	case kindDateTimeString:
		return asTimeString(v, time.RFC3339)
	case kindJSON:
		return asRawJSON(v)
	default:
		return asFallbackString(v)
	}
}

func asBytes(v any) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return b, true
	case string:
		return []byte(b), true
	default:
		return nil, false
	}
}

func asString(v any) any {
	if b, ok := asBytes(v); ok {
		return string(b)
	}
	return v
}

func asInt64(v any) any {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	}
	if b, ok := asBytes(v); ok {
		if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
			return n
		}
	}
	return nil
}

func asFloat64(v any) any {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	}
	if b, ok := asBytes(v); ok {
		if f, err := strconv.ParseFloat(string(b), 64); err == nil {
			return f
		}
	}
	return nil
}

func asBool(v any) any {
	if b, ok := v.(bool); ok {
		return b
	}
	if b, ok := asBytes(v); ok {
		s := strings.ToLower(string(b))
		return s == "1" || s == "true" || s == "t"
	}
	return nil
}

func asTimeString(v any, outLayout string) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(outLayout)
	}
	if b, ok := asBytes(v); ok {
		s := string(b)
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(outLayout)
			}
		}
		return s
	}
	return nil
}

func asRawJSON(v any) any {
	b, ok := asBytes(v)
	if !ok {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(b, &decoded); err != nil {
		return nil
	}
	return decoded
}

// asFallbackString is the best-effort fallback for unrecognized dialect
// types: it never errors, returning nil if the value cannot be stringified.
func asFallbackString(v any) any {
	if b, ok := asBytes(v); ok {
		return string(b)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return s
	}
	return string(b)
}
