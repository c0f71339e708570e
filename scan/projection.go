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
	"cmp"
	"fmt"
	"slices"

	"github.com/parqbridge/parqbridge"
)

// ColumnProjection maps one requested column onto the physical layout of a
// file. Ordinal is the column's position in the physical schema, which can
// differ per file; OutputOrdinal is its slot in materialized rows, fixed by
// the requested schema.
type ColumnProjection struct {
	Name          string
	Ordinal       int
	OutputOrdinal int
	Field         parqbridge.NestedField
}

// PlanProjection resolves every requested column against the physical
// schema by name and returns the projections sorted by physical ordinal,
// the order in which decoded columns arrive. A requested column absent from
// the physical schema is a reconciliation failure, reported as
// ErrSchemaMismatch naming the column.
func PlanProjection(physical, requested *parqbridge.Schema, caseSensitive bool) ([]ColumnProjection, error) {
	projs := make([]ColumnProjection, 0, requested.NumFields())
	for out, rf := range requested.Fields() {
		var (
			pf  parqbridge.NestedField
			pos int
			ok  bool
		)

		if caseSensitive {
			pf, pos, ok = physical.FindFieldByName(rf.Name)
		} else {
			pf, pos, ok = physical.FindFieldByNameCaseInsensitive(rf.Name)
		}

		if !ok {
			return nil, fmt.Errorf("%w: column %s not found in file schema",
				parqbridge.ErrSchemaMismatch, rf.Name)
		}

		projs = append(projs, ColumnProjection{
			Name:          pf.Name,
			Ordinal:       pos,
			OutputOrdinal: out,
			Field:         pf,
		})
	}

	slices.SortFunc(projs, func(a, b ColumnProjection) int {
		return cmp.Compare(a.Ordinal, b.Ordinal)
	})

	return projs, nil
}

// leafCount returns the number of parquet leaf columns a logical type
// occupies in the flattened physical layout.
func leafCount(t parqbridge.Type) int {
	switch typ := t.(type) {
	case *parqbridge.StructType:
		n := 0
		for _, f := range typ.FieldList {
			n += leafCount(f.Type)
		}

		return n
	case *parqbridge.ListType:
		return leafCount(typ.Element)
	case *parqbridge.MapType:
		return leafCount(typ.KeyType) + leafCount(typ.ValueType)
	default:
		return 1
	}
}

// LeafColumnIndices expands top-level projections into the flat leaf column
// indices the storage reader expects.
func LeafColumnIndices(physical *parqbridge.Schema, projs []ColumnProjection) []int {
	offsets := make([]int, physical.NumFields()+1)
	for i, f := range physical.Fields() {
		offsets[i+1] = offsets[i] + leafCount(f.Type)
	}

	var leaves []int
	for _, p := range projs {
		for leaf := offsets[p.Ordinal]; leaf < offsets[p.Ordinal+1]; leaf++ {
			leaves = append(leaves, leaf)
		}
	}

	return leaves
}
