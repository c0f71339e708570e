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

	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parqbridge/parqbridge"
	iceio "github.com/parqbridge/parqbridge/io"
	"github.com/parqbridge/parqbridge/scan"
	"github.com/parqbridge/parqbridge/write"
)

var richSchema = parqbridge.NewSchema(
	parqbridge.NestedField{Name: "id", Type: parqbridge.PrimitiveTypes.Int64, Required: true},
	parqbridge.NestedField{Name: "flag", Type: parqbridge.PrimitiveTypes.Bool},
	parqbridge.NestedField{Name: "small", Type: parqbridge.PrimitiveTypes.Int32},
	parqbridge.NestedField{Name: "ratio", Type: parqbridge.PrimitiveTypes.Float32},
	parqbridge.NestedField{Name: "total", Type: parqbridge.PrimitiveTypes.Float64},
	parqbridge.NestedField{Name: "day", Type: parqbridge.PrimitiveTypes.Date},
	parqbridge.NestedField{Name: "at", Type: parqbridge.PrimitiveTypes.Timestamp},
	parqbridge.NestedField{Name: "note", Type: parqbridge.PrimitiveTypes.String},
	parqbridge.NestedField{Name: "blob", Type: parqbridge.PrimitiveTypes.Binary},
	parqbridge.NestedField{Name: "price", Type: parqbridge.DecimalTypeOf(9, 2)},
	parqbridge.NestedField{Name: "address", Type: &parqbridge.StructType{
		FieldList: []parqbridge.NestedField{
			{Name: "city", Type: parqbridge.PrimitiveTypes.String},
			{Name: "zips", Type: &parqbridge.ListType{Element: parqbridge.PrimitiveTypes.Int32}},
		},
	}},
	parqbridge.NestedField{Name: "tags", Type: &parqbridge.ListType{Element: parqbridge.PrimitiveTypes.String}},
	parqbridge.NestedField{Name: "attrs", Type: &parqbridge.MapType{
		KeyType: parqbridge.PrimitiveTypes.String, ValueType: parqbridge.PrimitiveTypes.Int64,
	}},
)

var richRows = []parqbridge.Row{
	{
		int64(1), true, int32(7), float32(0.5), float64(2.25),
		int32(19_000), int64(1_700_000_000_000_000),
		"first", []byte{0x1, 0x2, 0x3},
		parqbridge.Decimal{Val: decimal128.FromI64(1999), Scale: 2},
		[]any{"berlin", []any{int32(10115), int32(10117)}},
		[]any{"a", "b"},
		[]parqbridge.KeyValue{{Key: "visits", Value: int64(3)}, {Key: "errors", Value: int64(0)}},
	},
	{
		// every optional slot null
		int64(2), nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil,
	},
	{
		int64(3), false, int32(-1), float32(-0.25), float64(1e9),
		int32(0), int64(0),
		"", []byte{},
		parqbridge.Decimal{Val: decimal128.FromI64(-5), Scale: 2},
		// null field and empty list inside the struct
		[]any{nil, []any{}},
		[]any{},
		[]parqbridge.KeyValue{},
	},
	{
		int64(4), true, int32(42), float32(1), float64(-0.5),
		int32(-3), int64(-1),
		"zoë", []byte{0xff},
		parqbridge.Decimal{Val: decimal128.FromI64(100), Scale: 2},
		nil,
		[]any{nil, "c"},
		[]parqbridge.KeyValue{{Key: "n", Value: nil}},
	},
}

func TestScanAllTypesRoundTrip(t *testing.T) {
	w, err := write.NewTaskWriter(iceio.LocalFS{}, t.TempDir(), richSchema,
		write.TaskAttempt{JobID: uuid.New(), Bucket: -1}, nil)
	require.NoError(t, err)

	for _, row := range richRows {
		require.NoError(t, w.Write(row))
	}

	res, err := w.Close()
	require.NoError(t, err)
	require.Equal(t, int64(len(richRows)), res.Rows)

	s, err := scan.NewScanner(iceio.LocalFS{}, richSchema)
	require.NoError(t, err)

	rows := collectRows(t, s, scan.FileSplit{Path: res.Path})
	assert.Equal(t, richRows, rows)
}

func TestScanNestedProjection(t *testing.T) {
	w, err := write.NewTaskWriter(iceio.LocalFS{}, t.TempDir(), richSchema,
		write.TaskAttempt{JobID: uuid.New(), Bucket: -1}, nil)
	require.NoError(t, err)

	for _, row := range richRows {
		require.NoError(t, w.Write(row))
	}

	res, err := w.Close()
	require.NoError(t, err)

	requested, err := richSchema.Select(true, "id", "address", "attrs")
	require.NoError(t, err)

	s, err := scan.NewScanner(iceio.LocalFS{}, requested)
	require.NoError(t, err)

	rows := collectRows(t, s, scan.FileSplit{Path: res.Path})
	require.Len(t, rows, len(richRows))
	assert.Equal(t, parqbridge.Row{
		int64(1),
		[]any{"berlin", []any{int32(10115), int32(10117)}},
		[]parqbridge.KeyValue{{Key: "visits", Value: int64(3)}, {Key: "errors", Value: int64(0)}},
	}, rows[0])
	assert.Equal(t, parqbridge.Row{int64(2), nil, nil}, rows[1])
}
