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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parqbridge/parqbridge"
	iceio "github.com/parqbridge/parqbridge/io"
	"github.com/parqbridge/parqbridge/scan"
	"github.com/parqbridge/parqbridge/write"
)

var testRows = []parqbridge.Row{
	{int64(1), "alice", int32(30)},
	{int64(2), "bob", int32(25)},
	{int64(3), "amy", nil},
	{int64(4), "carol", int32(41)},
}

// writeTestFile serializes testRows into a fresh file and returns its path.
func writeTestFile(t *testing.T) string {
	t.Helper()

	w, err := write.NewTaskWriter(iceio.LocalFS{}, t.TempDir(), physicalSchema,
		write.TaskAttempt{JobID: uuid.New(), Bucket: -1}, nil)
	require.NoError(t, err)

	for _, row := range testRows {
		require.NoError(t, w.Write(row))
	}

	res, err := w.Close()
	require.NoError(t, err)
	require.True(t, res.FileCreated)
	require.Equal(t, int64(len(testRows)), res.Rows)

	return res.Path
}

func collectRows(t *testing.T, s *scan.Scanner, splits ...scan.FileSplit) []parqbridge.Row {
	t.Helper()

	var rows []parqbridge.Row
	for row, err := range s.Scan(context.Background(), splits...) {
		require.NoError(t, err)
		rows = append(rows, row)
	}

	return rows
}

func TestResolveSchema(t *testing.T) {
	path := writeTestFile(t)

	schema, err := scan.ResolveSchema(iceio.LocalFS{}, path)
	require.NoError(t, err)
	require.NotNil(t, schema)
	assert.True(t, physicalSchema.Equals(schema))
}

func TestResolveSchemaEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	schema, err := scan.ResolveSchema(iceio.LocalFS{}, path)
	require.NoError(t, err)
	assert.Nil(t, schema)
}

func TestResolveSchemaCorruptFooter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.parquet")
	require.NoError(t, os.WriteFile(path, []byte("this is not a column file at all"), 0o644))

	_, err := scan.ResolveSchema(iceio.LocalFS{}, path)
	require.ErrorIs(t, err, parqbridge.ErrCorruptFooter)
	assert.ErrorContains(t, err, path)
}

func TestScanRoundTrip(t *testing.T) {
	path := writeTestFile(t)

	s, err := scan.NewScanner(iceio.LocalFS{}, physicalSchema)
	require.NoError(t, err)

	rows := collectRows(t, s, scan.FileSplit{Path: path})
	assert.Equal(t, testRows, rows)
}

func TestScanProjectsRequestedColumns(t *testing.T) {
	path := writeTestFile(t)

	requested, err := physicalSchema.Select(true, "age", "id")
	require.NoError(t, err)

	s, err := scan.NewScanner(iceio.LocalFS{}, requested)
	require.NoError(t, err)

	rows := collectRows(t, s, scan.FileSplit{Path: path})
	require.Len(t, rows, len(testRows))
	// output slots follow the requested order, not the file order
	assert.Equal(t, parqbridge.Row{int32(30), int64(1)}, rows[0])
	assert.Equal(t, parqbridge.Row{nil, int64(3)}, rows[2])
}

func TestScanLikeFilterIsRefilteredNotPushed(t *testing.T) {
	path := writeTestFile(t)

	s, err := scan.NewScanner(iceio.LocalFS{}, physicalSchema,
		scan.WithFilter(parqbridge.Like(parqbridge.Reference("name"), "a%")))
	require.NoError(t, err)

	// nothing of a LIKE survives translation
	assert.False(t, s.Directive().UseIndexFilter)
	assert.Nil(t, s.Directive().Sarg)

	rows := collectRows(t, s, scan.FileSplit{Path: path})
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0][1])
	assert.Equal(t, "amy", rows[1][1])
}

func TestScanPushdownEquivalence(t *testing.T) {
	path := writeTestFile(t)
	filter := parqbridge.NewAnd(
		parqbridge.GreaterThan(parqbridge.Reference("id"), int64(1)),
		parqbridge.NotNull(parqbridge.Reference("age")))

	pushed, err := scan.NewScanner(iceio.LocalFS{}, physicalSchema,
		scan.WithFilter(filter))
	require.NoError(t, err)
	assert.True(t, pushed.Directive().UseIndexFilter)

	plain, err := scan.NewScanner(iceio.LocalFS{}, physicalSchema,
		scan.WithFilter(filter), scan.WithPushdown(false))
	require.NoError(t, err)
	assert.False(t, plain.Directive().UseIndexFilter)

	split := scan.FileSplit{Path: path}
	want := []parqbridge.Row{
		{int64(2), "bob", int32(25)},
		{int64(4), "carol", int32(41)},
	}
	assert.Equal(t, want, collectRows(t, pushed, split))
	assert.Equal(t, want, collectRows(t, plain, split))
}

func TestScanEmptyFileYieldsNoRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	s, err := scan.NewScanner(iceio.LocalFS{}, physicalSchema)
	require.NoError(t, err)

	assert.Empty(t, collectRows(t, s, scan.FileSplit{Path: path}))
}

func TestScanMultipleSplitsInOrder(t *testing.T) {
	first := writeTestFile(t)
	second := writeTestFile(t)

	s, err := scan.NewScanner(iceio.LocalFS{}, physicalSchema, scan.WithConcurrency(2))
	require.NoError(t, err)

	rows := collectRows(t, s,
		scan.FileSplit{Path: first},
		scan.FileSplit{Path: second})
	require.Len(t, rows, 2*len(testRows))
	assert.Equal(t, testRows, rows[:len(testRows)])
	assert.Equal(t, testRows, rows[len(testRows):])
}

func TestScanMissingRequestedColumn(t *testing.T) {
	path := writeTestFile(t)

	requested := parqbridge.NewSchema(
		parqbridge.NestedField{Name: "salary", Type: parqbridge.PrimitiveTypes.Float64},
	)

	s, err := scan.NewScanner(iceio.LocalFS{}, requested)
	require.NoError(t, err)

	var scanErr error
	for _, err := range s.Scan(context.Background(), scan.FileSplit{Path: path}) {
		if err != nil {
			scanErr = err

			break
		}
	}
	assert.ErrorIs(t, scanErr, parqbridge.ErrSchemaMismatch)
}

func TestNewScannerRequiresColumns(t *testing.T) {
	_, err := scan.NewScanner(iceio.LocalFS{}, nil)
	assert.ErrorIs(t, err, parqbridge.ErrInvalidArgument)

	_, err = scan.NewScanner(iceio.LocalFS{}, parqbridge.NewSchema())
	assert.ErrorIs(t, err, parqbridge.ErrInvalidArgument)
}

func TestScanSmallBatchesStreamInOrder(t *testing.T) {
	// one row per decoded batch; order must survive the batch-level
	// re-sequencing across concurrent splits
	first := writeTestFile(t)
	second := writeTestFile(t)

	s, err := scan.NewScanner(iceio.LocalFS{}, physicalSchema,
		scan.WithBatchSize(1), scan.WithConcurrency(2))
	require.NoError(t, err)

	rows := collectRows(t, s,
		scan.FileSplit{Path: first},
		scan.FileSplit{Path: second})
	require.Len(t, rows, 2*len(testRows))
	assert.Equal(t, testRows, rows[:len(testRows)])
	assert.Equal(t, testRows, rows[len(testRows):])
}

func TestScanEarlyStopMidBatchStream(t *testing.T) {
	// stopping between batches of one split must cancel the rest cleanly
	path := writeTestFile(t)

	s, err := scan.NewScanner(iceio.LocalFS{}, physicalSchema, scan.WithBatchSize(1))
	require.NoError(t, err)

	var seen int
	for _, err := range s.Scan(context.Background(), scan.FileSplit{Path: path}) {
		require.NoError(t, err)
		seen++
		if seen == 1 {
			break
		}
	}
	assert.Equal(t, 1, seen)
}

func TestScanEarlyStop(t *testing.T) {
	path := writeTestFile(t)

	s, err := scan.NewScanner(iceio.LocalFS{}, physicalSchema)
	require.NoError(t, err)

	var seen int
	for _, err := range s.Scan(context.Background(), scan.FileSplit{Path: path}) {
		require.NoError(t, err)
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}
