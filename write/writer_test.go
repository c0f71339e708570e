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
	"os"
	"testing"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parqbridge/parqbridge"
	iceio "github.com/parqbridge/parqbridge/io"
	"github.com/parqbridge/parqbridge/write"
)

var writeSchema = parqbridge.NewSchema(
	parqbridge.NestedField{Name: "id", Type: parqbridge.PrimitiveTypes.Int64, Required: true},
	parqbridge.NestedField{Name: "name", Type: parqbridge.PrimitiveTypes.String},
)

func TestDataFileName(t *testing.T) {
	jobID := uuid.MustParse("4fb3e261-b575-46a6-8f83-3e41a2555a0b")

	attempt := write.TaskAttempt{Ordinal: 7, JobID: jobID, Bucket: -1}
	assert.Equal(t,
		"part-r-00007-4fb3e261-b575-46a6-8f83-3e41a2555a0b.zstd.parquet",
		write.DataFileName(attempt, compress.Codecs.Zstd))

	// same attempt, same name
	assert.Equal(t,
		write.DataFileName(attempt, compress.Codecs.Zstd),
		write.DataFileName(attempt, compress.Codecs.Zstd))

	attempt.Bucket = 3
	assert.Equal(t,
		"part-r-00007-4fb3e261-b575-46a6-8f83-3e41a2555a0b-00003.gz.parquet",
		write.DataFileName(attempt, compress.Codecs.Gzip))

	// uncompressed output carries no codec extension
	attempt.Bucket = -1
	assert.Equal(t,
		"part-r-00007-4fb3e261-b575-46a6-8f83-3e41a2555a0b.parquet",
		write.DataFileName(attempt, compress.Codecs.Uncompressed))
}

func TestCodecFromName(t *testing.T) {
	assert.Equal(t, compress.Codecs.Snappy, write.CodecFromName("snappy"))
	assert.Equal(t, compress.Codecs.Gzip, write.CodecFromName("gzip"))
	assert.Equal(t, compress.Codecs.Zstd, write.CodecFromName("zstd"))
	assert.Equal(t, compress.Codecs.Brotli, write.CodecFromName("brotli"))
	assert.Equal(t, compress.Codecs.Lz4Raw, write.CodecFromName("lz4"))
	assert.Equal(t, compress.Codecs.Uncompressed, write.CodecFromName("unknown"))
}

func TestTaskWriterZeroRowsLeavesNoFile(t *testing.T) {
	dir := t.TempDir()

	w, err := write.NewTaskWriter(iceio.LocalFS{}, dir, writeSchema,
		write.TaskAttempt{JobID: uuid.New(), Bucket: -1}, nil)
	require.NoError(t, err)

	res, err := w.Close()
	require.NoError(t, err)
	assert.Equal(t, write.Result{}, res)

	_, err = os.Stat(w.Path())
	assert.True(t, os.IsNotExist(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTaskWriterWritesRows(t *testing.T) {
	w, err := write.NewTaskWriter(iceio.LocalFS{}, t.TempDir(), writeSchema,
		write.TaskAttempt{Ordinal: 2, JobID: uuid.New(), Bucket: -1}, nil)
	require.NoError(t, err)

	require.NoError(t, w.Write(parqbridge.Row{int64(1), "alice"}))
	require.NoError(t, w.Write(parqbridge.Row{int64(2), nil}))

	res, err := w.Close()
	require.NoError(t, err)
	assert.True(t, res.FileCreated)
	assert.Equal(t, int64(2), res.Rows)
	assert.Equal(t, w.Path(), res.Path)

	info, err := os.Stat(res.Path)
	require.NoError(t, err)
	assert.Equal(t, res.Bytes, info.Size())
	assert.Greater(t, res.Bytes, int64(0))
}

func TestTaskWriterRejectsMisshapenRow(t *testing.T) {
	dir := t.TempDir()

	w, err := write.NewTaskWriter(iceio.LocalFS{}, dir, writeSchema,
		write.TaskAttempt{JobID: uuid.New(), Bucket: -1}, nil)
	require.NoError(t, err)

	err = w.Write(parqbridge.Row{int64(1)})
	assert.ErrorIs(t, err, parqbridge.ErrInvalidArgument)

	err = w.Write(parqbridge.Row{"not a long", "alice"})
	require.ErrorIs(t, err, parqbridge.ErrBadCast)
	assert.ErrorContains(t, err, "id")

	// the failed row poisons the writer
	err = w.Write(parqbridge.Row{int64(2), "bob"})
	assert.ErrorIs(t, err, parqbridge.ErrBadCast)

	res, err := w.Close()
	require.NoError(t, err)
	assert.Equal(t, write.Result{}, res)

	// no row ever converted, so no file may exist
	_, err = os.Stat(w.Path())
	assert.True(t, os.IsNotExist(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTaskWriterBadRowAfterRowsFailsClose(t *testing.T) {
	w, err := write.NewTaskWriter(iceio.LocalFS{}, t.TempDir(), writeSchema,
		write.TaskAttempt{JobID: uuid.New(), Bucket: -1}, nil)
	require.NoError(t, err)

	require.NoError(t, w.Write(parqbridge.Row{int64(1), "alice"}))

	// fails on the second column, leaving a torn row in the builders
	err = w.Write(parqbridge.Row{int64(2), int32(7)})
	require.ErrorIs(t, err, parqbridge.ErrBadCast)
	assert.ErrorContains(t, err, "name")

	_, err = w.Close()
	assert.ErrorIs(t, err, parqbridge.ErrBadCast)
}

func TestTaskWriterCloseTwice(t *testing.T) {
	w, err := write.NewTaskWriter(iceio.LocalFS{}, t.TempDir(), writeSchema,
		write.TaskAttempt{JobID: uuid.New(), Bucket: -1}, nil)
	require.NoError(t, err)

	_, err = w.Close()
	require.NoError(t, err)

	_, err = w.Close()
	assert.ErrorIs(t, err, parqbridge.ErrInvalidArgument)

	err = w.Write(parqbridge.Row{int64(1), "alice"})
	assert.ErrorIs(t, err, parqbridge.ErrInvalidArgument)
}

func TestTaskWriterRequiresSchema(t *testing.T) {
	_, err := write.NewTaskWriter(iceio.LocalFS{}, t.TempDir(), nil,
		write.TaskAttempt{JobID: uuid.New(), Bucket: -1}, nil)
	assert.ErrorIs(t, err, parqbridge.ErrInvalidSchema)

	_, err = write.NewTaskWriter(iceio.LocalFS{}, t.TempDir(), parqbridge.NewSchema(),
		write.TaskAttempt{JobID: uuid.New(), Bucket: -1}, nil)
	assert.ErrorIs(t, err, parqbridge.ErrInvalidSchema)
}

func TestTaskWriterCompressionProperty(t *testing.T) {
	props := parqbridge.Properties{write.CompressionKey: "gzip"}

	w, err := write.NewTaskWriter(iceio.LocalFS{}, t.TempDir(), writeSchema,
		write.TaskAttempt{JobID: uuid.New(), Bucket: -1}, props)
	require.NoError(t, err)
	assert.Contains(t, w.Path(), ".gz.parquet")

	_, err = w.Close()
	require.NoError(t, err)
}

func TestBucketOrdinal(t *testing.T) {
	b1, err := write.BucketOrdinal([]any{int64(42), "us-east"}, 16)
	require.NoError(t, err)
	b2, err := write.BucketOrdinal([]any{int64(42), "us-east"}, 16)
	require.NoError(t, err)

	assert.Equal(t, b1, b2)
	assert.GreaterOrEqual(t, b1, 0)
	assert.Less(t, b1, 16)

	_, err = write.BucketOrdinal([]any{int64(1)}, 0)
	assert.ErrorIs(t, err, parqbridge.ErrInvalidArgument)

	_, err = write.BucketOrdinal([]any{struct{}{}}, 4)
	assert.ErrorIs(t, err, parqbridge.ErrInvalidArgument)

	// nil key values are hashable
	_, err = write.BucketOrdinal([]any{nil, "x"}, 4)
	assert.NoError(t, err)
}
