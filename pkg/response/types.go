package response

import (
	"fmt"
	"strings"
)

// ColumnType is the wire-level scalar type of a result column.
type ColumnType string

// Column types, named as the classic protocol names them.
const (
	TypeDecimal    ColumnType = "DECIMAL"
	TypeTiny       ColumnType = "TINY"
	TypeShort      ColumnType = "SHORT"
	TypeLong       ColumnType = "LONG"
	TypeFloat      ColumnType = "FLOAT"
	TypeDouble     ColumnType = "DOUBLE"
	TypeNull       ColumnType = "NULL"
	TypeTimestamp  ColumnType = "TIMESTAMP"
	TypeLongLong   ColumnType = "LONGLONG"
	TypeInt24      ColumnType = "INT24"
	TypeDate       ColumnType = "DATE"
	TypeTime       ColumnType = "TIME"
	TypeDateTime   ColumnType = "DATETIME"
	TypeYear       ColumnType = "YEAR"
	TypeVarchar    ColumnType = "VARCHAR"
	TypeBit        ColumnType = "BIT"
	TypeJSON       ColumnType = "JSON"
	TypeNewDecimal ColumnType = "NEWDECIMAL"
	TypeEnum       ColumnType = "ENUM"
	TypeSet        ColumnType = "SET"
	TypeTinyBlob   ColumnType = "TINY_BLOB"
	TypeMediumBlob ColumnType = "MEDIUM_BLOB"
	TypeLongBlob   ColumnType = "LONG_BLOB"
	TypeBlob       ColumnType = "BLOB"
	TypeVarString  ColumnType = "VAR_STRING"
	TypeString     ColumnType = "STRING"
	TypeGeometry   ColumnType = "GEOMETRY"
)

var allTypes = []ColumnType{
	TypeDecimal, TypeTiny, TypeShort, TypeLong, TypeFloat, TypeDouble, TypeNull,
	TypeTimestamp, TypeLongLong, TypeInt24, TypeDate, TypeTime, TypeDateTime,
	TypeYear, TypeVarchar, TypeBit, TypeJSON, TypeNewDecimal, TypeEnum, TypeSet,
	TypeTinyBlob, TypeMediumBlob, TypeLongBlob, TypeBlob, TypeVarString,
	TypeString, TypeGeometry,
}

// ParseColumnType parses a column type name. Matching ignores case and
// underscores, so "LONGBLOB" and "long_blob" are both TypeLongBlob.
func ParseColumnType(s string) (ColumnType, error) {
	name := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "_", "")
	for _, t := range allTypes {
		if strings.ReplaceAll(string(t), "_", "") == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown column type %q", s)
}

// IsInteger reports whether values of this type are integers.
func (t ColumnType) IsInteger() bool {
	switch t {
	case TypeTiny, TypeShort, TypeLong, TypeLongLong, TypeInt24, TypeYear, TypeBit:
		return true
	}
	return false
}

// IsNumeric reports whether values of this type are numbers.
func (t ColumnType) IsNumeric() bool {
	switch t {
	case TypeFloat, TypeDouble, TypeDecimal, TypeNewDecimal:
		return true
	}
	return t.IsInteger()
}

// Column describes one column of a result set.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Row is an ordered list of nullable cell values.
type Row []any
