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

// Package manifest records the data files a write job produced as an Avro
// object container file. A coordinator commits the manifest after all tasks
// finish, so readers learn about a job's files atomically instead of
// listing the output directory.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/hamba/avro/v2"
	"github.com/hamba/avro/v2/ocf"

	"github.com/parqbridge/parqbridge"
)

const (
	jobIDKey       = "job-id"
	tableSchemaKey = "table-schema"
)

// DataFile describes one file a write task produced.
type DataFile struct {
	Path          string  `avro:"file_path"`
	FileFormat    string  `avro:"file_format"`
	Partition     string  `avro:"partition"`
	RecordCount   int64   `avro:"record_count"`
	FileSizeBytes int64   `avro:"file_size_in_bytes"`
	SplitOffsets  []int64 `avro:"split_offsets"`
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}

	return v
}

var fileSchema = must(avro.NewRecordSchema("data_file", "", []*avro.Field{
	must(avro.NewField("file_path", avro.NewPrimitiveSchema(avro.String, nil),
		avro.WithDoc("Location URI with FS scheme"))),
	must(avro.NewField("file_format", avro.NewPrimitiveSchema(avro.String, nil))),
	must(avro.NewField("partition", avro.NewPrimitiveSchema(avro.String, nil),
		avro.WithDoc("Canonical partition string, empty when unpartitioned"))),
	must(avro.NewField("record_count", avro.NewPrimitiveSchema(avro.Long, nil))),
	must(avro.NewField("file_size_in_bytes", avro.NewPrimitiveSchema(avro.Long, nil))),
	must(avro.NewField("split_offsets", avro.NewArraySchema(
		avro.NewPrimitiveSchema(avro.Long, nil)))),
}))

// FileName is the manifest name for a job, beside the job's data files.
func FileName(jobID uuid.UUID) string {
	return fmt.Sprintf("manifest-%s.avro", jobID)
}

// Writer appends data file records to an Avro container. Close must be
// called to flush the final block.
type Writer struct {
	enc    *ocf.Encoder
	closed bool

	files int64
	rows  int64
}

// NewWriter starts a manifest for a job. The table schema the job wrote
// with, when provided, is embedded in the container metadata so a reader
// can plan a scan from the manifest alone.
func NewWriter(out io.Writer, jobID uuid.UUID, schema *parqbridge.Schema) (*Writer, error) {
	md := map[string][]byte{jobIDKey: []byte(jobID.String())}
	if schema != nil {
		schemaJSON, err := json.Marshal(schema)
		if err != nil {
			return nil, err
		}
		md[tableSchemaKey] = schemaJSON
	}

	enc, err := ocf.NewEncoderWithSchema(fileSchema, out,
		ocf.WithSchemaMarshaler(ocf.FullSchemaMarshaler),
		ocf.WithEncoderSchemaCache(&avro.SchemaCache{}),
		ocf.WithMetadata(md),
		ocf.WithCodec(ocf.Deflate))
	if err != nil {
		return nil, err
	}

	return &Writer{enc: enc}, nil
}

func (w *Writer) Add(f DataFile) error {
	if w.closed {
		return errors.New("manifest: add to closed writer")
	}

	if err := w.enc.Encode(f); err != nil {
		return err
	}

	w.files++
	w.rows += f.RecordCount

	return nil
}

func (w *Writer) Files() int64 { return w.files }
func (w *Writer) Rows() int64  { return w.rows }

func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	return w.enc.Close()
}

// Manifest is a fully decoded manifest file.
type Manifest struct {
	JobID  uuid.UUID
	Schema *parqbridge.Schema
	Files  []DataFile
}

// Read decodes a manifest container, metadata included.
func Read(in io.Reader) (*Manifest, error) {
	dec, err := ocf.NewDecoder(in, ocf.WithDecoderSchemaCache(&avro.SchemaCache{}))
	if err != nil {
		return nil, err
	}

	m := &Manifest{}
	meta := dec.Metadata()
	if raw, ok := meta[jobIDKey]; ok {
		if m.JobID, err = uuid.Parse(string(raw)); err != nil {
			return nil, fmt.Errorf("manifest: invalid job id: %w", err)
		}
	}
	if raw, ok := meta[tableSchemaKey]; ok {
		m.Schema = new(parqbridge.Schema)
		if err := json.Unmarshal(raw, m.Schema); err != nil {
			return nil, fmt.Errorf("manifest: invalid table schema: %w", err)
		}
	}

	for dec.HasNext() {
		var f DataFile
		if err := dec.Decode(&f); err != nil {
			return nil, err
		}
		m.Files = append(m.Files, f)
	}

	return m, dec.Error()
}
