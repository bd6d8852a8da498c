package rowmarshal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerce_NullAlwaysMapsToNil(t *testing.T) {
	for _, dbType := range []string{"INT4", "BIGINT", "FLOAT8", "NUMERIC", "TEXT", "BOOL", "DATE", "TIMESTAMP", "JSONB", "SOME_UNKNOWN_TYPE"} {
		assert.Nil(t, coerce(nil, dbType), "dbType=%s", dbType)
	}
}

func TestCoerce_Integers(t *testing.T) {
	assert.Equal(t, int64(42), coerce(int64(42), "INT4"))
	assert.Equal(t, int64(42), coerce(int32(42), "SMALLINT"))
	assert.Equal(t, int64(42), coerce([]byte("42"), "TINYINT"))
	assert.Equal(t, int64(9223372036854775807), coerce(int64(9223372036854775807), "BIGINT"))
}

func TestCoerce_Floats(t *testing.T) {
	assert.Equal(t, 3.14, coerce(3.14, "FLOAT8"))
	assert.Equal(t, 3.14, coerce([]byte("3.14"), "DOUBLE"))
}

func TestCoerce_DecimalStaysString(t *testing.T) {
	got := coerce([]byte("12345678901234567890.123456789"), "NUMERIC")
	assert.Equal(t, "12345678901234567890.123456789", got)
	_, isString := got.(string)
	assert.True(t, isString, "decimal must preserve precision as a string, not a float")
}

func TestCoerce_Strings(t *testing.T) {
	assert.Equal(t, "hello", coerce([]byte("hello"), "VARCHAR"))
	assert.Equal(t, "hello", coerce("hello", "TEXT"))
}

func TestCoerce_Booleans(t *testing.T) {
	assert.Equal(t, true, coerce(true, "BOOL"))
	assert.Equal(t, true, coerce([]byte("1"), "BOOL"))
	assert.Equal(t, false, coerce([]byte("0"), "BOOL"))
}

func TestCoerce_Dates(t *testing.T) {
	assert.Equal(t, "2024-01-01", coerce([]byte("2024-01-01"), "DATE"))
	assert.Equal(t, "2024-01-01T12:30:00Z", coerce([]byte("2024-01-01T12:30:00Z"), "TIMESTAMPTZ"))
	assert.Equal(t, "2024-01-01T12:30:00Z", coerce([]byte("2024-01-01 12:30:00"), "DATETIME"))
}

func TestCoerce_JSONPassthrough(t *testing.T) {
	got := coerce([]byte(`{"a":1}`), "JSONB")
	m, ok := got.(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, float64(1), m["a"])
}

func TestCoerce_FallbackBestEffortNeverErrors(t *testing.T) {
	got := coerce([]byte("some-enum-value"), "MYSQL_ENUM")
	assert.Equal(t, "some-enum-value", got)
}

func TestTypeKind_Table(t *testing.T) {
	cases := map[string]kind{
		"INT2": kindInt32, "INT4": kindInt32, "SMALLINT": kindInt32, "INT": kindInt32, "MEDIUMINT": kindInt32, "TINYINT": kindInt32,
		"INT8": kindInt64, "BIGINT": kindInt64,
		"FLOAT4": kindFloat64, "FLOAT8": kindFloat64, "FLOAT": kindFloat64, "DOUBLE": kindFloat64,
		"NUMERIC": kindDecimalString, "DECIMAL": kindDecimalString, "NEWDECIMAL": kindDecimalString,
		"TEXT": kindString, "VARCHAR": kindString, "CHAR": kindString, "BPCHAR": kindString, "NAME": kindString, "LONGTEXT": kindString,
		"BOOL": kindBool,
		"DATE": kindDateString,
		"TIMESTAMP": kindDateTimeString, "TIMESTAMPTZ": kindDateTimeString, "DATETIME": kindDateTimeString,
		"JSON": kindJSON, "JSONB": kindJSON,
		"something_else": kindFallback,
	}
	for dbType, want := range cases {
		assert.Equalf(t, want, typeKind(dbType), "dbType=%s", dbType)
	}
}
