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

package manifest_test

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parqbridge/parqbridge"
	"github.com/parqbridge/parqbridge/manifest"
)

var manifestSchema = parqbridge.NewSchema(
	parqbridge.NestedField{Name: "id", Type: parqbridge.PrimitiveTypes.Int64, Required: true},
	parqbridge.NestedField{Name: "data", Type: parqbridge.PrimitiveTypes.String},
)

func TestManifestRoundTrip(t *testing.T) {
	jobID := uuid.New()
	files := []manifest.DataFile{
		{
			Path:          "warehouse/db/tbl/part-r-00000-" + jobID.String() + ".zstd.parquet",
			FileFormat:    "parquet",
			RecordCount:   100,
			FileSizeBytes: 4096,
			SplitOffsets:  []int64{4},
		},
		{
			Path:          "warehouse/db/tbl/part-r-00001-" + jobID.String() + ".zstd.parquet",
			FileFormat:    "parquet",
			Partition:     "region=emea",
			RecordCount:   250,
			FileSizeBytes: 9182,
			SplitOffsets:  []int64{4, 4500},
		},
	}

	var buf bytes.Buffer
	w, err := manifest.NewWriter(&buf, jobID, manifestSchema)
	require.NoError(t, err)

	for _, f := range files {
		require.NoError(t, w.Add(f))
	}
	assert.Equal(t, int64(2), w.Files())
	assert.Equal(t, int64(350), w.Rows())
	require.NoError(t, w.Close())

	m, err := manifest.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, jobID, m.JobID)
	require.NotNil(t, m.Schema)
	assert.True(t, manifestSchema.Equals(m.Schema))
	assert.Equal(t, files, m.Files)
}

func TestManifestWithoutSchema(t *testing.T) {
	jobID := uuid.New()

	var buf bytes.Buffer
	w, err := manifest.NewWriter(&buf, jobID, nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	m, err := manifest.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, jobID, m.JobID)
	assert.Nil(t, m.Schema)
	assert.Empty(t, m.Files)
}

func TestManifestAddAfterClose(t *testing.T) {
	var buf bytes.Buffer
	w, err := manifest.NewWriter(&buf, uuid.New(), nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Error(t, w.Add(manifest.DataFile{Path: "x"}))
	// closing again is a no-op
	assert.NoError(t, w.Close())
}

func TestManifestFileName(t *testing.T) {
	jobID := uuid.MustParse("4fb3e261-b575-46a6-8f83-3e41a2555a0b")
	assert.Equal(t,
		"manifest-4fb3e261-b575-46a6-8f83-3e41a2555a0b.avro",
		manifest.FileName(jobID))
}
