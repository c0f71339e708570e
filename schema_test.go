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

package parqbridge_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parqbridge/parqbridge"
)

var tableSchemaNested = parqbridge.NewSchema(
	parqbridge.NestedField{Name: "id", Type: parqbridge.PrimitiveTypes.Int64, Required: true},
	parqbridge.NestedField{Name: "data", Type: parqbridge.PrimitiveTypes.String},
	parqbridge.NestedField{Name: "price", Type: parqbridge.DecimalTypeOf(18, 4)},
	parqbridge.NestedField{
		Name: "address",
		Type: &parqbridge.StructType{FieldList: []parqbridge.NestedField{
			{Name: "street", Type: parqbridge.PrimitiveTypes.String},
			{Name: "zip", Type: parqbridge.PrimitiveTypes.Int32, Required: true},
		}},
	},
	parqbridge.NestedField{
		Name: "tags",
		Type: &parqbridge.ListType{Element: parqbridge.PrimitiveTypes.String},
	},
	parqbridge.NestedField{
		Name: "attrs",
		Type: &parqbridge.MapType{
			KeyType:       parqbridge.PrimitiveTypes.String,
			ValueType:     parqbridge.PrimitiveTypes.Double,
			ValueRequired: true,
		},
	},
)

func TestSchemaFieldLookup(t *testing.T) {
	f, pos, ok := tableSchemaNested.FindFieldByName("price")
	require.True(t, ok)
	assert.Equal(t, 2, pos)
	assert.Equal(t, "decimal(18, 4)", f.Type.String())

	_, _, ok = tableSchemaNested.FindFieldByName("PRICE")
	assert.False(t, ok)

	f, pos, ok = tableSchemaNested.FindFieldByNameCaseInsensitive("PRICE")
	require.True(t, ok)
	assert.Equal(t, 2, pos)
	assert.Equal(t, "price", f.Name)
}

func TestSchemaSelect(t *testing.T) {
	sel, err := tableSchemaNested.Select(true, "data", "id")
	require.NoError(t, err)
	require.Equal(t, 2, sel.NumFields())
	assert.Equal(t, "data", sel.Field(0).Name)
	assert.Equal(t, "id", sel.Field(1).Name)

	_, err = tableSchemaNested.Select(true, "nonexistent")
	assert.ErrorIs(t, err, parqbridge.ErrSchemaMismatch)

	sel, err = tableSchemaNested.Select(false, "ID")
	require.NoError(t, err)
	assert.Equal(t, "id", sel.Field(0).Name)
}

func TestSchemaJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(tableSchemaNested)
	require.NoError(t, err)

	got := new(parqbridge.Schema)
	require.NoError(t, json.Unmarshal(data, got))
	assert.True(t, tableSchemaNested.Equals(got))
}

func TestTypeFromString(t *testing.T) {
	tests := []struct {
		str string
		typ parqbridge.Type
	}{
		{"boolean", parqbridge.PrimitiveTypes.Bool},
		{"int", parqbridge.PrimitiveTypes.Int32},
		{"long", parqbridge.PrimitiveTypes.Int64},
		{"float", parqbridge.PrimitiveTypes.Float32},
		{"double", parqbridge.PrimitiveTypes.Float64},
		{"date", parqbridge.PrimitiveTypes.Date},
		{"timestamp", parqbridge.PrimitiveTypes.Timestamp},
		{"string", parqbridge.PrimitiveTypes.String},
		{"binary", parqbridge.PrimitiveTypes.Binary},
		{"decimal(9, 2)", parqbridge.DecimalTypeOf(9, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			typ, err := parqbridge.TypeFromString(tt.str)
			require.NoError(t, err)
			assert.True(t, typ.Equals(tt.typ))
		})
	}

	_, err := parqbridge.TypeFromString("varchar(20)")
	assert.ErrorIs(t, err, parqbridge.ErrInvalidTypeString)
}

func TestSchemaEquality(t *testing.T) {
	s1 := parqbridge.NewSchema(
		parqbridge.NestedField{Name: "id", Type: parqbridge.PrimitiveTypes.Int64, Required: true},
	)
	s2 := parqbridge.NewSchema(
		parqbridge.NestedField{Name: "id", Type: parqbridge.PrimitiveTypes.Int64, Required: true},
	)
	s3 := parqbridge.NewSchema(
		parqbridge.NestedField{Name: "id", Type: parqbridge.PrimitiveTypes.Int32, Required: true},
	)

	assert.True(t, s1.Equals(s2))
	assert.False(t, s1.Equals(s3))
	assert.False(t, s1.Equals(nil))
}
