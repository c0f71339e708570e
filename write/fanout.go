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

package write

import (
	"errors"
	"fmt"

	"github.com/parqbridge/parqbridge"
	iceio "github.com/parqbridge/parqbridge/io"
)

// BucketedWriter fans one task's rows out across a fixed number of bucket
// files. Each row is routed by hashing its key columns with BucketOrdinal,
// so rows sharing a key always land in the same file. The per-bucket
// writers keep their lazy creation: buckets that receive no rows leave no
// files.
//
// Like TaskWriter, a BucketedWriter is owned by a single task and is not
// safe for concurrent use.
type BucketedWriter struct {
	writers []*TaskWriter
	keyPos  []int
	width   int
	key     []any
}

// NewBucketedWriter plans one bucket writer per ordinal in [0, numBuckets),
// all sharing the task attempt's ordinal and job id. The key columns are
// resolved against the schema here, once.
func NewBucketedWriter(fs iceio.WriteFileIO, dir string, schema *parqbridge.Schema,
	attempt TaskAttempt, numBuckets int, keyColumns []string, props parqbridge.Properties,
) (*BucketedWriter, error) {
	if schema == nil || schema.NumFields() == 0 {
		return nil, fmt.Errorf("%w: writer requires a non-empty schema",
			parqbridge.ErrInvalidSchema)
	}
	if numBuckets <= 0 {
		return nil, fmt.Errorf("%w: numBuckets must be positive, got %d",
			parqbridge.ErrInvalidArgument, numBuckets)
	}
	if len(keyColumns) == 0 {
		return nil, fmt.Errorf("%w: bucketed output needs at least one key column",
			parqbridge.ErrInvalidArgument)
	}

	keyPos := make([]int, len(keyColumns))
	for i, name := range keyColumns {
		_, pos, ok := schema.FindFieldByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown bucketing column '%s'",
				parqbridge.ErrSchemaMismatch, name)
		}
		keyPos[i] = pos
	}

	writers := make([]*TaskWriter, numBuckets)
	for b := range writers {
		a := attempt
		a.Bucket = b
		w, err := NewTaskWriter(fs, dir, schema, a, props)
		if err != nil {
			return nil, err
		}
		writers[b] = w
	}

	return &BucketedWriter{
		writers: writers,
		keyPos:  keyPos,
		width:   schema.NumFields(),
		key:     make([]any, len(keyPos)),
	}, nil
}

// Write routes one row to its bucket's writer.
func (bw *BucketedWriter) Write(row parqbridge.Row) error {
	if len(row) != bw.width {
		return fmt.Errorf("%w: row has %d values, schema has %d columns",
			parqbridge.ErrInvalidArgument, len(row), bw.width)
	}

	for i, pos := range bw.keyPos {
		bw.key[i] = row[pos]
	}

	b, err := BucketOrdinal(bw.key, len(bw.writers))
	if err != nil {
		return err
	}

	return bw.writers[b].Write(row)
}

// Close closes every bucket writer and returns the results of the buckets
// that created files, in bucket order.
func (bw *BucketedWriter) Close() ([]Result, error) {
	var (
		results []Result
		err     error
	)

	for _, w := range bw.writers {
		res, cerr := w.Close()
		err = errors.Join(err, cerr)
		if res.FileCreated {
			results = append(results, res)
		}
	}

	return results, err
}
