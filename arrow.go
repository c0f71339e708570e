// Licensed under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package parqbridge

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// SchemaToArrow converts a logical schema to the equivalent arrow schema.
// Timestamps map to microsecond precision and decimals to 128-bit storage,
// matching the canonical row encoding.
func SchemaToArrow(sc *Schema) (*arrow.Schema, error) {
	fields := make([]arrow.Field, sc.NumFields())
	for i, f := range sc.Fields() {
		af, err := fieldToArrow(f)
		if err != nil {
			return nil, err
		}
		fields[i] = af
	}

	return arrow.NewSchema(fields, nil), nil
}

func fieldToArrow(f NestedField) (arrow.Field, error) {
	dt, err := TypeToArrow(f.Type)
	if err != nil {
		return arrow.Field{}, err
	}

	return arrow.Field{Name: f.Name, Type: dt, Nullable: !f.Required}, nil
}

// TypeToArrow converts a logical type to the equivalent arrow type.
func TypeToArrow(t Type) (arrow.DataType, error) {
	switch typ := t.(type) {
	case BooleanType:
		return arrow.FixedWidthTypes.Boolean, nil
	case Int32Type:
		return arrow.PrimitiveTypes.Int32, nil
	case Int64Type:
		return arrow.PrimitiveTypes.Int64, nil
	case Float32Type:
		return arrow.PrimitiveTypes.Float32, nil
	case Float64Type:
		return arrow.PrimitiveTypes.Float64, nil
	case DateType:
		return arrow.FixedWidthTypes.Date32, nil
	case TimestampType:
		return &arrow.TimestampType{Unit: arrow.Microsecond}, nil
	case StringType:
		return arrow.BinaryTypes.String, nil
	case BinaryType:
		return arrow.BinaryTypes.Binary, nil
	case DecimalType:
		return &arrow.Decimal128Type{
			Precision: int32(typ.Precision()),
			Scale:     int32(typ.Scale()),
		}, nil
	case *StructType:
		fields := make([]arrow.Field, len(typ.FieldList))
		for i, f := range typ.FieldList {
			af, err := fieldToArrow(f)
			if err != nil {
				return nil, err
			}
			fields[i] = af
		}

		return arrow.StructOf(fields...), nil
	case *ListType:
		elem, err := TypeToArrow(typ.Element)
		if err != nil {
			return nil, err
		}

		return arrow.ListOfField(arrow.Field{
			Name: "element", Type: elem, Nullable: !typ.ElementRequired,
		}), nil
	case *MapType:
		key, err := TypeToArrow(typ.KeyType)
		if err != nil {
			return nil, err
		}
		value, err := TypeToArrow(typ.ValueType)
		if err != nil {
			return nil, err
		}

		mt := arrow.MapOf(key, value)
		mt.SetItemNullable(!typ.ValueRequired)

		return mt, nil
	}

	return nil, fmt.Errorf("%w: cannot convert %s to arrow type", ErrNotImplemented, t)
}

// SchemaFromArrow derives a logical schema from an arrow schema, typically
// one reconstructed from a file footer.
func SchemaFromArrow(sc *arrow.Schema) (*Schema, error) {
	fields := make([]NestedField, sc.NumFields())
	for i, f := range sc.Fields() {
		nf, err := fieldFromArrow(f)
		if err != nil {
			return nil, err
		}
		fields[i] = nf
	}

	return NewSchema(fields...), nil
}

func fieldFromArrow(f arrow.Field) (NestedField, error) {
	t, err := TypeFromArrow(f.Type)
	if err != nil {
		return NestedField{}, err
	}

	return NestedField{Name: f.Name, Type: t, Required: !f.Nullable}, nil
}

// TypeFromArrow maps an arrow type back onto the logical type system. Large
// variants and fixed-size binary collapse onto their plain counterparts;
// timestamps of any precision are treated as microsecond timestamps.
func TypeFromArrow(dt arrow.DataType) (Type, error) {
	switch dt := dt.(type) {
	case *arrow.BooleanType:
		return BooleanType{}, nil
	case *arrow.Int32Type:
		return Int32Type{}, nil
	case *arrow.Int64Type:
		return Int64Type{}, nil
	case *arrow.Float32Type:
		return Float32Type{}, nil
	case *arrow.Float64Type:
		return Float64Type{}, nil
	case *arrow.Date32Type:
		return DateType{}, nil
	case *arrow.TimestampType:
		return TimestampType{}, nil
	case *arrow.StringType, *arrow.LargeStringType:
		return StringType{}, nil
	case *arrow.BinaryType, *arrow.LargeBinaryType, *arrow.FixedSizeBinaryType:
		return BinaryType{}, nil
	case *arrow.Decimal128Type:
		return DecimalTypeOf(int(dt.Precision), int(dt.Scale)), nil
	case *arrow.StructType:
		fields := make([]NestedField, dt.NumFields())
		for i, f := range dt.Fields() {
			nf, err := fieldFromArrow(f)
			if err != nil {
				return nil, err
			}
			fields[i] = nf
		}

		return &StructType{FieldList: fields}, nil
	case *arrow.ListType:
		elem, err := TypeFromArrow(dt.Elem())
		if err != nil {
			return nil, err
		}

		return &ListType{
			Element:         elem,
			ElementRequired: !dt.ElemField().Nullable,
		}, nil
	case *arrow.LargeListType:
		elem, err := TypeFromArrow(dt.Elem())
		if err != nil {
			return nil, err
		}

		return &ListType{
			Element:         elem,
			ElementRequired: !dt.ElemField().Nullable,
		}, nil
	case *arrow.MapType:
		key, err := TypeFromArrow(dt.KeyType())
		if err != nil {
			return nil, err
		}
		value, err := TypeFromArrow(dt.ItemType())
		if err != nil {
			return nil, err
		}

		return &MapType{
			KeyType:       key,
			ValueType:     value,
			ValueRequired: !dt.ItemField().Nullable,
		}, nil
	}

	return nil, fmt.Errorf("%w: cannot convert arrow type %s", ErrNotImplemented, dt)
}
