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

// Package scan implements the read path: resolving the schema a file
// actually carries, planning which columns to decode, eliminating row
// groups with column statistics and materializing the survivors as rows.
package scan

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/parqbridge/parqbridge"
	"github.com/parqbridge/parqbridge/internal"
	iceio "github.com/parqbridge/parqbridge/io"
)

// ResolveSchema reads the footer of the file at path and returns the schema
// the file itself declares. The footer is the sole authority: table
// metadata is never consulted.
//
// A zero-length file is a valid degenerate output of speculative task
// execution and yields a nil schema with no error. A non-empty file whose
// footer cannot be parsed yields ErrCorruptFooter naming the path.
func ResolveSchema(fs iceio.IO, path string) (sc *parqbridge.Schema, err error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}

	if info, serr := f.Stat(); serr == nil && info.Size() == 0 {
		return nil, f.Close()
	}

	rdr, err := file.NewParquetReader(f)
	if err != nil {
		f.Close()

		return nil, fmt.Errorf("%w: %s: %s", parqbridge.ErrCorruptFooter, path, err.Error())
	}
	defer internal.CheckedClose(rdr, &err)

	return schemaFromReader(rdr, path)
}

func schemaFromReader(rdr *file.Reader, path string) (*parqbridge.Schema, error) {
	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", parqbridge.ErrCorruptFooter, path, err.Error())
	}

	arrSchema, err := fr.Schema()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", parqbridge.ErrCorruptFooter, path, err.Error())
	}

	return parqbridge.SchemaFromArrow(arrSchema)
}

// openParquet opens path for scanning, distinguishing the empty-file case
// (nil reader, no error) from a corrupt footer.
func openParquet(fs iceio.IO, path string, mem memory.Allocator) (*file.Reader, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}

	if info, serr := f.Stat(); serr == nil && info.Size() == 0 {
		return nil, f.Close()
	}

	rdr, err := file.NewParquetReader(f,
		file.WithReadProps(parquet.NewReaderProperties(mem)))
	if err != nil {
		f.Close()

		return nil, fmt.Errorf("%w: %s: %s", parqbridge.ErrCorruptFooter, path, err.Error())
	}

	return rdr, nil
}
