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

package scan

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/parqbridge/parqbridge"
)

// unwrapFn extracts the canonical engine value at row i of a bound column.
// Binding happens once per column per batch; per-row work is a single
// closure call. Returned values never alias batch memory, so rows stay
// valid after the batch is released.
type unwrapFn func(i int) any

// RowsFromRecord materializes one decoded batch into rows of width slots,
// placing each projected column at its output ordinal.
func RowsFromRecord(rec arrow.Record, projs []ColumnProjection, width int) ([]parqbridge.Row, error) {
	if int(rec.NumCols()) != len(projs) {
		return nil, fmt.Errorf("%w: batch has %d columns, projection expects %d",
			parqbridge.ErrSchemaMismatch, rec.NumCols(), len(projs))
	}

	unwraps := make([]unwrapFn, len(projs))
	for j, p := range projs {
		fn, err := bindColumn(p.Field.Type, rec.Column(j))
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", p.Name, err)
		}
		unwraps[j] = fn
	}

	n := int(rec.NumRows())
	rows := make([]parqbridge.Row, n)
	for i := range n {
		row := make(parqbridge.Row, width)
		for j, p := range projs {
			row[p.OutputOrdinal] = unwraps[j](i)
		}
		rows[i] = row
	}

	return rows, nil
}

// bindColumn resolves the accessor for a column once, so the per-row path
// does no type switching.
func bindColumn(t parqbridge.Type, arr arrow.Array) (unwrapFn, error) {
	mismatch := func() error {
		return fmt.Errorf("%w: expected %s values, file has %s",
			parqbridge.ErrSchemaMismatch, t, arr.DataType())
	}

	nullable := func(fn unwrapFn) unwrapFn {
		return func(i int) any {
			if arr.IsNull(i) {
				return nil
			}

			return fn(i)
		}
	}

	switch typ := t.(type) {
	case parqbridge.BooleanType:
		a, ok := arr.(*array.Boolean)
		if !ok {
			return nil, mismatch()
		}

		return nullable(func(i int) any { return a.Value(i) }), nil
	case parqbridge.Int32Type:
		a, ok := arr.(*array.Int32)
		if !ok {
			return nil, mismatch()
		}

		return nullable(func(i int) any { return a.Value(i) }), nil
	case parqbridge.Int64Type:
		a, ok := arr.(*array.Int64)
		if !ok {
			return nil, mismatch()
		}

		return nullable(func(i int) any { return a.Value(i) }), nil
	case parqbridge.Float32Type:
		a, ok := arr.(*array.Float32)
		if !ok {
			return nil, mismatch()
		}

		return nullable(func(i int) any { return a.Value(i) }), nil
	case parqbridge.Float64Type:
		a, ok := arr.(*array.Float64)
		if !ok {
			return nil, mismatch()
		}

		return nullable(func(i int) any { return a.Value(i) }), nil
	case parqbridge.DateType:
		a, ok := arr.(*array.Date32)
		if !ok {
			return nil, mismatch()
		}

		return nullable(func(i int) any { return int32(a.Value(i)) }), nil
	case parqbridge.TimestampType:
		a, ok := arr.(*array.Timestamp)
		if !ok {
			return nil, mismatch()
		}

		return nullable(func(i int) any { return int64(a.Value(i)) }), nil
	case parqbridge.StringType:
		switch a := arr.(type) {
		case *array.String:
			return nullable(func(i int) any { return strings.Clone(a.Value(i)) }), nil
		case *array.LargeString:
			return nullable(func(i int) any { return strings.Clone(a.Value(i)) }), nil
		}

		return nil, mismatch()
	case parqbridge.BinaryType:
		switch a := arr.(type) {
		case *array.Binary:
			return nullable(func(i int) any { return bytes.Clone(a.Value(i)) }), nil
		case *array.LargeBinary:
			return nullable(func(i int) any { return bytes.Clone(a.Value(i)) }), nil
		case *array.FixedSizeBinary:
			return nullable(func(i int) any { return bytes.Clone(a.Value(i)) }), nil
		}

		return nil, mismatch()
	case parqbridge.DecimalType:
		a, ok := arr.(*array.Decimal128)
		if !ok {
			return nil, mismatch()
		}
		scale := typ.Scale()

		return nullable(func(i int) any {
			return parqbridge.Decimal{Val: a.Value(i), Scale: scale}
		}), nil
	case *parqbridge.StructType:
		a, ok := arr.(*array.Struct)
		if !ok {
			return nil, mismatch()
		}

		if a.NumField() != len(typ.FieldList) {
			return nil, mismatch()
		}

		subs := make([]unwrapFn, a.NumField())
		for j, f := range typ.FieldList {
			fn, err := bindColumn(f.Type, a.Field(j))
			if err != nil {
				return nil, err
			}
			subs[j] = fn
		}

		return nullable(func(i int) any {
			vals := make([]any, len(subs))
			for j, fn := range subs {
				vals[j] = fn(i)
			}

			return vals
		}), nil
	case *parqbridge.ListType:
		a, ok := arr.(*array.List)
		if !ok {
			return nil, mismatch()
		}

		elem, err := bindColumn(typ.Element, a.ListValues())
		if err != nil {
			return nil, err
		}

		return nullable(func(i int) any {
			start, end := a.ValueOffsets(i)
			vals := make([]any, 0, end-start)
			for k := start; k < end; k++ {
				vals = append(vals, elem(int(k)))
			}

			return vals
		}), nil
	case *parqbridge.MapType:
		a, ok := arr.(*array.Map)
		if !ok {
			return nil, mismatch()
		}

		keys, err := bindColumn(typ.KeyType, a.Keys())
		if err != nil {
			return nil, err
		}
		items, err := bindColumn(typ.ValueType, a.Items())
		if err != nil {
			return nil, err
		}

		return nullable(func(i int) any {
			start, end := a.ValueOffsets(i)
			entries := make([]parqbridge.KeyValue, 0, end-start)
			for k := start; k < end; k++ {
				entries = append(entries, parqbridge.KeyValue{
					Key:   keys(int(k)),
					Value: items(int(k)),
				})
			}

			return entries
		}), nil
	}

	return nil, fmt.Errorf("%w: cannot materialize %s columns", parqbridge.ErrNotImplemented, t)
}
