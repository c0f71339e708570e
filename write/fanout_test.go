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

package write_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parqbridge/parqbridge"
	iceio "github.com/parqbridge/parqbridge/io"
	"github.com/parqbridge/parqbridge/scan"
	"github.com/parqbridge/parqbridge/write"
)

func TestBucketedWriterRoutesByKey(t *testing.T) {
	dir := t.TempDir()

	bw, err := write.NewBucketedWriter(iceio.LocalFS{}, dir, writeSchema,
		write.TaskAttempt{Ordinal: 1, JobID: uuid.New()}, 4, []string{"id"}, nil)
	require.NoError(t, err)

	var input []parqbridge.Row
	for i := range 20 {
		row := parqbridge.Row{int64(i), fmt.Sprintf("name-%d", i)}
		input = append(input, row)
		require.NoError(t, bw.Write(row))
	}

	results, err := bw.Close()
	require.NoError(t, err)
	require.NotEmpty(t, results)

	var (
		total int64
		all   []parqbridge.Row
	)
	for _, res := range results {
		total += res.Rows

		s, err := scan.NewScanner(iceio.LocalFS{}, writeSchema)
		require.NoError(t, err)

		for row, err := range s.Scan(context.Background(), scan.FileSplit{Path: res.Path}) {
			require.NoError(t, err)
			all = append(all, row)

			// every row sits in the file of its key's bucket
			b, err := write.BucketOrdinal([]any{row[0]}, 4)
			require.NoError(t, err)
			assert.Contains(t, res.Path, fmt.Sprintf("-%05d", b))
		}
	}

	assert.Equal(t, int64(len(input)), total)
	assert.ElementsMatch(t, input, all)
}

func TestBucketedWriterEmptyBucketsLeaveNoFiles(t *testing.T) {
	dir := t.TempDir()

	bw, err := write.NewBucketedWriter(iceio.LocalFS{}, dir, writeSchema,
		write.TaskAttempt{JobID: uuid.New()}, 8, []string{"id"}, nil)
	require.NoError(t, err)

	// one key, so exactly one bucket receives rows
	require.NoError(t, bw.Write(parqbridge.Row{int64(42), "alice"}))
	require.NoError(t, bw.Write(parqbridge.Row{int64(42), "bob"}))

	results, err := bw.Close()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(2), results[0].Rows)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBucketedWriterValidation(t *testing.T) {
	dir := t.TempDir()
	attempt := write.TaskAttempt{JobID: uuid.New()}

	_, err := write.NewBucketedWriter(iceio.LocalFS{}, dir, writeSchema, attempt,
		0, []string{"id"}, nil)
	assert.ErrorIs(t, err, parqbridge.ErrInvalidArgument)

	_, err = write.NewBucketedWriter(iceio.LocalFS{}, dir, writeSchema, attempt,
		4, nil, nil)
	assert.ErrorIs(t, err, parqbridge.ErrInvalidArgument)

	_, err = write.NewBucketedWriter(iceio.LocalFS{}, dir, writeSchema, attempt,
		4, []string{"salary"}, nil)
	assert.ErrorIs(t, err, parqbridge.ErrSchemaMismatch)

	bw, err := write.NewBucketedWriter(iceio.LocalFS{}, dir, writeSchema, attempt,
		4, []string{"id"}, nil)
	require.NoError(t, err)

	err = bw.Write(parqbridge.Row{int64(1)})
	assert.ErrorIs(t, err, parqbridge.ErrInvalidArgument)

	results, err := bw.Close()
	require.NoError(t, err)
	assert.Empty(t, results)
}
