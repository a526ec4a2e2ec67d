// Package meta derives and caches the statement-compilation metadata for
// declared entity types: tables, columns, key layout, keyspace descriptors,
// and the per-keyspace dependency graph between user-defined types.
package meta

import (
	"fmt"
	"strings"
)

// DataType represents a CQL wire data type.
type DataType int

const (
	TypeAscii DataType = iota
	TypeBigInt
	TypeBlob
	TypeBoolean
	TypeCounter
	TypeDate
	TypeDecimal
	TypeDouble
	TypeFloat
	TypeInet
	TypeInt
	TypeSmallInt
	TypeText
	TypeTime
	TypeTimestamp
	TypeTimeUUID
	TypeTinyInt
	TypeUUID
	TypeVarchar
	TypeVarInt
	TypeList
	TypeSet
	TypeMap
	TypeTuple
	TypeUDT
)

// String returns the CQL name of the data type.
func (d DataType) String() string {
	switch d {
	case TypeAscii:
		return "ascii"
	case TypeBigInt:
		return "bigint"
	case TypeBlob:
		return "blob"
	case TypeBoolean:
		return "boolean"
	case TypeCounter:
		return "counter"
	case TypeDate:
		return "date"
	case TypeDecimal:
		return "decimal"
	case TypeDouble:
		return "double"
	case TypeFloat:
		return "float"
	case TypeInet:
		return "inet"
	case TypeInt:
		return "int"
	case TypeSmallInt:
		return "smallint"
	case TypeText:
		return "text"
	case TypeTime:
		return "time"
	case TypeTimestamp:
		return "timestamp"
	case TypeTimeUUID:
		return "timeuuid"
	case TypeTinyInt:
		return "tinyint"
	case TypeUUID:
		return "uuid"
	case TypeVarchar:
		return "varchar"
	case TypeVarInt:
		return "varint"
	case TypeList:
		return "list"
	case TypeSet:
		return "set"
	case TypeMap:
		return "map"
	case TypeTuple:
		return "tuple"
	case TypeUDT:
		return "udt"
	default:
		return "unknown"
	}
}

// ParseDataType converts a catalog-reported type name to a DataType.
// Parameterized types (list<...>, set<...>, map<...>, frozen<...>) resolve
// to their outer constructor.
func ParseDataType(s string) (DataType, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if i := strings.IndexByte(s, '<'); i >= 0 {
		outer := s[:i]
		switch outer {
		case "list":
			return TypeList, nil
		case "set":
			return TypeSet, nil
		case "map":
			return TypeMap, nil
		case "tuple":
			return TypeTuple, nil
		case "frozen":
			inner := strings.TrimSuffix(s[i+1:], ">")
			return ParseDataType(inner)
		}
		return TypeUDT, nil
	}
	switch s {
	case "ascii":
		return TypeAscii, nil
	case "bigint":
		return TypeBigInt, nil
	case "blob":
		return TypeBlob, nil
	case "boolean":
		return TypeBoolean, nil
	case "counter":
		return TypeCounter, nil
	case "date":
		return TypeDate, nil
	case "decimal":
		return TypeDecimal, nil
	case "double":
		return TypeDouble, nil
	case "float":
		return TypeFloat, nil
	case "inet":
		return TypeInet, nil
	case "int":
		return TypeInt, nil
	case "smallint":
		return TypeSmallInt, nil
	case "text":
		return TypeText, nil
	case "time":
		return TypeTime, nil
	case "timestamp":
		return TypeTimestamp, nil
	case "timeuuid":
		return TypeTimeUUID, nil
	case "tinyint":
		return TypeTinyInt, nil
	case "uuid":
		return TypeUUID, nil
	case "varchar":
		return TypeVarchar, nil
	case "varint":
		return TypeVarInt, nil
	default:
		// Unparameterized user-defined types are reported by bare name.
		return TypeUDT, nil
	}
}

// TypeSpec is a complete column type: a base wire type plus element types
// for collections and the target entity for user-defined types.
type TypeSpec struct {
	Base   DataType
	Elem   *TypeSpec // list<Elem>, set<Elem>
	Key    *TypeSpec // map<Key, Value>
	Value  *TypeSpec // map<Key, Value>
	UDT    *EntityDecl
	Frozen bool
}

// CQLName renders the type as it appears in DDL.
func (t *TypeSpec) CQLName() string {
	var s string
	switch t.Base {
	case TypeList:
		s = fmt.Sprintf("list<%s>", t.Elem.CQLName())
	case TypeSet:
		s = fmt.Sprintf("set<%s>", t.Elem.CQLName())
	case TypeMap:
		s = fmt.Sprintf("map<%s, %s>", t.Key.CQLName(), t.Value.CQLName())
	case TypeUDT:
		s = t.UDT.Name
	default:
		s = t.Base.String()
	}
	if t.Frozen {
		return fmt.Sprintf("frozen<%s>", s)
	}
	return s
}

// IsCollection returns true for list, set, and map types.
func (t *TypeSpec) IsCollection() bool {
	return t.Base == TypeList || t.Base == TypeSet || t.Base == TypeMap
}

// ElementType returns the per-element type of a multi-key set column.
func (t *TypeSpec) ElementType() *TypeSpec {
	if t.Elem != nil {
		return t.Elem
	}
	return t
}

// Equal reports structural equality of two type specs. Frozen-ness is not
// part of the wire type identity.
func (t *TypeSpec) Equal(o *TypeSpec) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Base != o.Base {
		return false
	}
	if (t.UDT == nil) != (o.UDT == nil) {
		return false
	}
	if t.UDT != nil && t.UDT.Name != o.UDT.Name {
		return false
	}
	return t.Elem.Equal(o.Elem) && t.Key.Equal(o.Key) && t.Value.Equal(o.Value)
}

// Scalar returns a TypeSpec for a bare wire type.
func Scalar(d DataType) *TypeSpec { return &TypeSpec{Base: d} }

// ListOf returns a list<elem> TypeSpec.
func ListOf(elem *TypeSpec) *TypeSpec { return &TypeSpec{Base: TypeList, Elem: elem} }

// SetOf returns a set<elem> TypeSpec.
func SetOf(elem *TypeSpec) *TypeSpec { return &TypeSpec{Base: TypeSet, Elem: elem} }

// MapOf returns a map<key, value> TypeSpec.
func MapOf(key, value *TypeSpec) *TypeSpec {
	return &TypeSpec{Base: TypeMap, Key: key, Value: value}
}

// UDTOf returns a TypeSpec referencing another declared entity as an
// embedded user-defined type. UDT columns are always frozen.
func UDTOf(decl *EntityDecl) *TypeSpec {
	return &TypeSpec{Base: TypeUDT, UDT: decl, Frozen: true}
}

// KeyKind classifies a column's role in the primary key.
type KeyKind int

const (
	KeyNone KeyKind = iota
	KeyPartition
	KeyClustering
)

// String returns the catalog name for the key kind.
func (k KeyKind) String() string {
	switch k {
	case KeyPartition:
		return "partition_key"
	case KeyClustering:
		return "clustering"
	default:
		return "regular"
	}
}

// Order is a clustering direction.
type Order int

const (
	Ascending Order = iota
	Descending
)

// String returns the CQL form of the order.
func (o Order) String() string {
	if o == Descending {
		return "DESC"
	}
	return "ASC"
}
