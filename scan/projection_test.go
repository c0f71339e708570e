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

package scan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parqbridge/parqbridge"
	"github.com/parqbridge/parqbridge/scan"
)

var physicalSchema = parqbridge.NewSchema(
	parqbridge.NestedField{Name: "id", Type: parqbridge.PrimitiveTypes.Int64, Required: true},
	parqbridge.NestedField{Name: "name", Type: parqbridge.PrimitiveTypes.String},
	parqbridge.NestedField{Name: "age", Type: parqbridge.PrimitiveTypes.Int32},
)

func TestPlanProjectionOrdinals(t *testing.T) {
	requested, err := physicalSchema.Select(true, "id", "age")
	require.NoError(t, err)

	projs, err := scan.PlanProjection(physicalSchema, requested, true)
	require.NoError(t, err)
	require.Len(t, projs, 2)

	assert.Equal(t, "id", projs[0].Name)
	assert.Equal(t, 0, projs[0].Ordinal)
	assert.Equal(t, 0, projs[0].OutputOrdinal)

	assert.Equal(t, "age", projs[1].Name)
	assert.Equal(t, 2, projs[1].Ordinal)
	assert.Equal(t, 1, projs[1].OutputOrdinal)
}

func TestPlanProjectionSortsByPhysicalOrdinal(t *testing.T) {
	// request order differs from file order; decode order wins
	requested, err := physicalSchema.Select(true, "age", "id")
	require.NoError(t, err)

	projs, err := scan.PlanProjection(physicalSchema, requested, true)
	require.NoError(t, err)
	require.Len(t, projs, 2)

	assert.Equal(t, "id", projs[0].Name)
	assert.Equal(t, 1, projs[0].OutputOrdinal)
	assert.Equal(t, "age", projs[1].Name)
	assert.Equal(t, 0, projs[1].OutputOrdinal)
}

func TestPlanProjectionPerFileOrdinals(t *testing.T) {
	// the same requested columns resolve to different ordinals in a file
	// written with a different column order
	reordered := parqbridge.NewSchema(
		parqbridge.NestedField{Name: "age", Type: parqbridge.PrimitiveTypes.Int32},
		parqbridge.NestedField{Name: "id", Type: parqbridge.PrimitiveTypes.Int64, Required: true},
	)

	requested, err := physicalSchema.Select(true, "id", "age")
	require.NoError(t, err)

	projs, err := scan.PlanProjection(reordered, requested, true)
	require.NoError(t, err)
	require.Len(t, projs, 2)

	assert.Equal(t, "age", projs[0].Name)
	assert.Equal(t, 0, projs[0].Ordinal)
	assert.Equal(t, 1, projs[0].OutputOrdinal)
	assert.Equal(t, "id", projs[1].Name)
	assert.Equal(t, 1, projs[1].Ordinal)
	assert.Equal(t, 0, projs[1].OutputOrdinal)
}

func TestPlanProjectionMissingColumn(t *testing.T) {
	requested := parqbridge.NewSchema(
		parqbridge.NestedField{Name: "salary", Type: parqbridge.PrimitiveTypes.Float64},
	)

	_, err := scan.PlanProjection(physicalSchema, requested, true)
	require.ErrorIs(t, err, parqbridge.ErrSchemaMismatch)
	assert.ErrorContains(t, err, "salary")
}

func TestPlanProjectionCaseInsensitive(t *testing.T) {
	requested := parqbridge.NewSchema(
		parqbridge.NestedField{Name: "ID", Type: parqbridge.PrimitiveTypes.Int64},
	)

	_, err := scan.PlanProjection(physicalSchema, requested, true)
	require.ErrorIs(t, err, parqbridge.ErrSchemaMismatch)

	projs, err := scan.PlanProjection(physicalSchema, requested, false)
	require.NoError(t, err)
	require.Len(t, projs, 1)
	assert.Equal(t, "id", projs[0].Name)
}

func TestLeafColumnIndices(t *testing.T) {
	nested := parqbridge.NewSchema(
		parqbridge.NestedField{Name: "id", Type: parqbridge.PrimitiveTypes.Int64},
		parqbridge.NestedField{
			Name: "address",
			Type: &parqbridge.StructType{FieldList: []parqbridge.NestedField{
				{Name: "street", Type: parqbridge.PrimitiveTypes.String},
				{Name: "zip", Type: parqbridge.PrimitiveTypes.Int32},
			}},
		},
		parqbridge.NestedField{
			Name: "attrs",
			Type: &parqbridge.MapType{
				KeyType:   parqbridge.PrimitiveTypes.String,
				ValueType: parqbridge.PrimitiveTypes.Double,
			},
		},
		parqbridge.NestedField{Name: "score", Type: parqbridge.PrimitiveTypes.Float64},
	)

	requested, err := nested.Select(true, "address", "score")
	require.NoError(t, err)

	projs, err := scan.PlanProjection(nested, requested, true)
	require.NoError(t, err)

	// id occupies leaf 0, address leaves 1-2, attrs leaves 3-4, score leaf 5
	assert.Equal(t, []int{1, 2, 5}, scan.LeafColumnIndices(nested, projs))
}
