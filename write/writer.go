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
	"path"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/parqbridge/parqbridge"
	"github.com/parqbridge/parqbridge/internal"
	iceio "github.com/parqbridge/parqbridge/io"
)

// Properties understood by the writer.
const (
	CompressionKey = "write.compression-codec"
	BatchSizeKey   = "write.batch-size"

	defaultCompression = "zstd"
	defaultBatchSize   = 1024
)

type writerState int

const (
	stateNotCreated writerState = iota
	stateCreated
	stateClosed
)

// Result summarizes a finished task writer.
type Result struct {
	// Path of the written file, empty when no file was created.
	Path string
	Rows int64
	// Bytes written to storage, including footer and metadata.
	Bytes       int64
	FileCreated bool
}

// TaskWriter serializes rows for one task attempt into a single column
// file. File creation is lazy: the file comes into existence once the first
// row has converted cleanly, and a writer closed with zero accepted rows
// leaves nothing behind. Tasks that filtered away all their input therefore
// produce no empty artifacts, and a creation failure surfaces on the first
// Write rather than at setup time.
//
// TaskWriter is not safe for concurrent use; each task owns its writer.
type TaskWriter struct {
	fs     iceio.WriteFileIO
	dir    string
	schema *parqbridge.Schema
	codec  compress.Compression
	name   string

	mem       memory.Allocator
	arrSchema *arrow.Schema
	builder   *array.RecordBuilder
	appenders []appendFn

	state     writerState
	counting  *internal.CountingWriter
	fw        iceio.FileWriter
	pw        *pqarrow.FileWriter
	buffered  int
	flushAt   int
	rowsTotal int64

	// writeErr is set when a row fails partway through conversion, leaving
	// the column builders torn; the writer refuses everything after it.
	writeErr error
}

// appendFn appends one canonical engine value to a column builder,
// resolved once per column at construction.
type appendFn func(v any) error

// NewTaskWriter plans a writer for one task attempt. The output file name
// is fixed here; no file is created until the first row arrives.
func NewTaskWriter(fs iceio.WriteFileIO, dir string, schema *parqbridge.Schema,
	attempt TaskAttempt, props parqbridge.Properties,
) (*TaskWriter, error) {
	if schema == nil || schema.NumFields() == 0 {
		return nil, fmt.Errorf("%w: writer requires a non-empty schema",
			parqbridge.ErrInvalidSchema)
	}

	arrSchema, err := parqbridge.SchemaToArrow(schema)
	if err != nil {
		return nil, err
	}

	codec := CodecFromName(props.Get(CompressionKey, defaultCompression))
	mem := memory.DefaultAllocator
	builder := array.NewRecordBuilder(mem, arrSchema)

	appenders := make([]appendFn, schema.NumFields())
	for i, f := range schema.Fields() {
		fn, err := buildAppender(f.Type, builder.Field(i))
		if err != nil {
			builder.Release()

			return nil, fmt.Errorf("column %s: %w", f.Name, err)
		}
		appenders[i] = fn
	}

	return &TaskWriter{
		fs:        fs,
		dir:       dir,
		schema:    schema,
		codec:     codec,
		name:      DataFileName(attempt, codec),
		mem:       mem,
		arrSchema: arrSchema,
		builder:   builder,
		appenders: appenders,
		flushAt:   props.GetInt(BatchSizeKey, defaultBatchSize),
	}, nil
}

// Path returns the full path the writer writes (or would write) to.
func (w *TaskWriter) Path() string { return path.Join(w.dir, w.name) }

// Write buffers one row. The row must have one slot per schema column; nil
// slots are nulls. The output file is created only once a row has been
// fully converted, so a task whose every row is rejected still leaves
// nothing behind.
func (w *TaskWriter) Write(row parqbridge.Row) error {
	if w.state == stateClosed {
		return fmt.Errorf("%w: writer for %s is closed", parqbridge.ErrInvalidArgument, w.name)
	}
	if w.writeErr != nil {
		return w.writeErr
	}

	if len(row) != len(w.appenders) {
		return fmt.Errorf("%w: row has %d values, schema has %d columns",
			parqbridge.ErrInvalidArgument, len(row), len(w.appenders))
	}

	for i, fn := range w.appenders {
		if err := fn(row[i]); err != nil {
			w.writeErr = fmt.Errorf("column %s: %w", w.schema.Field(i).Name, err)

			return w.writeErr
		}
	}

	if w.state == stateNotCreated {
		if err := w.create(); err != nil {
			w.writeErr = fmt.Errorf("creating %s: %w", w.Path(), err)

			return w.writeErr
		}
	}

	w.buffered++
	w.rowsTotal++
	if w.buffered >= w.flushAt {
		return w.flush()
	}

	return nil
}

func (w *TaskWriter) create() error {
	fw, err := w.fs.Create(w.Path())
	if err != nil {
		return err
	}

	counting := &internal.CountingWriter{W: fw}
	pw, err := pqarrow.NewFileWriter(w.arrSchema, counting,
		parquet.NewWriterProperties(
			parquet.WithCompression(w.codec),
			parquet.WithAllocator(w.mem)),
		pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		fw.Close()

		return err
	}

	w.fw, w.pw, w.counting = fw, pw, counting
	w.state = stateCreated

	return nil
}

func (w *TaskWriter) flush() error {
	if w.buffered == 0 {
		return nil
	}

	rec := w.builder.NewRecord()
	defer rec.Release()
	w.buffered = 0

	return w.pw.WriteBuffered(rec)
}

// Close finalizes the writer. When rows were written the footer is flushed
// and the result describes the file; when none were, no file exists and the
// result reflects that, even if rejected rows were attempted. A writer
// poisoned by a failed row after the file was created reports that failure
// here. Closing twice is an error.
func (w *TaskWriter) Close() (Result, error) {
	switch w.state {
	case stateClosed:
		return Result{}, fmt.Errorf("%w: writer for %s already closed",
			parqbridge.ErrInvalidArgument, w.name)
	case stateNotCreated:
		w.state = stateClosed
		w.builder.Release()

		return Result{}, nil
	}

	w.state = stateClosed
	if w.writeErr != nil {
		// the buffered rows sit in torn builders and cannot be flushed;
		// finalize what already reached storage and report the failure
		w.builder.Release()

		return Result{}, errors.Join(w.writeErr, w.pw.Close(), w.fw.Close())
	}

	err := w.flush()
	w.builder.Release()

	err = errors.Join(err, w.pw.Close())
	err = errors.Join(err, w.fw.Close())
	if err != nil {
		return Result{}, err
	}

	return Result{
		Path:        w.Path(),
		Rows:        w.rowsTotal,
		Bytes:       w.counting.Count,
		FileCreated: true,
	}, nil
}

// buildAppender resolves the value-to-builder conversion for a column once,
// mirroring the read path's one-time accessor binding.
func buildAppender(t parqbridge.Type, b array.Builder) (appendFn, error) {
	badCast := func(v any) error {
		return fmt.Errorf("%w: cannot serialize %T as %s", parqbridge.ErrBadCast, v, t)
	}

	nullable := func(fn func(v any) error) appendFn {
		return func(v any) error {
			if v == nil {
				b.AppendNull()

				return nil
			}

			return fn(v)
		}
	}

	switch typ := t.(type) {
	case parqbridge.BooleanType:
		bld, ok := b.(*array.BooleanBuilder)
		if !ok {
			return nil, badCast(b)
		}

		return nullable(func(v any) error {
			val, ok := v.(bool)
			if !ok {
				return badCast(v)
			}
			bld.Append(val)

			return nil
		}), nil
	case parqbridge.Int32Type:
		bld, ok := b.(*array.Int32Builder)
		if !ok {
			return nil, badCast(b)
		}

		return nullable(func(v any) error {
			val, ok := v.(int32)
			if !ok {
				return badCast(v)
			}
			bld.Append(val)

			return nil
		}), nil
	case parqbridge.Int64Type:
		bld, ok := b.(*array.Int64Builder)
		if !ok {
			return nil, badCast(b)
		}

		return nullable(func(v any) error {
			val, ok := v.(int64)
			if !ok {
				return badCast(v)
			}
			bld.Append(val)

			return nil
		}), nil
	case parqbridge.Float32Type:
		bld, ok := b.(*array.Float32Builder)
		if !ok {
			return nil, badCast(b)
		}

		return nullable(func(v any) error {
			val, ok := v.(float32)
			if !ok {
				return badCast(v)
			}
			bld.Append(val)

			return nil
		}), nil
	case parqbridge.Float64Type:
		bld, ok := b.(*array.Float64Builder)
		if !ok {
			return nil, badCast(b)
		}

		return nullable(func(v any) error {
			val, ok := v.(float64)
			if !ok {
				return badCast(v)
			}
			bld.Append(val)

			return nil
		}), nil
	case parqbridge.DateType:
		bld, ok := b.(*array.Date32Builder)
		if !ok {
			return nil, badCast(b)
		}

		return nullable(func(v any) error {
			val, ok := v.(int32)
			if !ok {
				return badCast(v)
			}
			bld.Append(arrow.Date32(val))

			return nil
		}), nil
	case parqbridge.TimestampType:
		bld, ok := b.(*array.TimestampBuilder)
		if !ok {
			return nil, badCast(b)
		}

		return nullable(func(v any) error {
			val, ok := v.(int64)
			if !ok {
				return badCast(v)
			}
			bld.Append(arrow.Timestamp(val))

			return nil
		}), nil
	case parqbridge.StringType:
		bld, ok := b.(*array.StringBuilder)
		if !ok {
			return nil, badCast(b)
		}

		return nullable(func(v any) error {
			val, ok := v.(string)
			if !ok {
				return badCast(v)
			}
			bld.Append(val)

			return nil
		}), nil
	case parqbridge.BinaryType:
		bld, ok := b.(*array.BinaryBuilder)
		if !ok {
			return nil, badCast(b)
		}

		return nullable(func(v any) error {
			val, ok := v.([]byte)
			if !ok {
				return badCast(v)
			}
			bld.Append(val)

			return nil
		}), nil
	case parqbridge.DecimalType:
		bld, ok := b.(*array.Decimal128Builder)
		if !ok {
			return nil, badCast(b)
		}
		scale := typ.Scale()

		return nullable(func(v any) error {
			val, ok := v.(parqbridge.Decimal)
			if !ok {
				return badCast(v)
			}
			if val.Scale != scale {
				return fmt.Errorf("%w: decimal scale %d does not match column scale %d",
					parqbridge.ErrBadCast, val.Scale, scale)
			}
			bld.Append(val.Val)

			return nil
		}), nil
	case *parqbridge.StructType:
		bld, ok := b.(*array.StructBuilder)
		if !ok {
			return nil, badCast(b)
		}

		subs := make([]appendFn, len(typ.FieldList))
		for i, f := range typ.FieldList {
			fn, err := buildAppender(f.Type, bld.FieldBuilder(i))
			if err != nil {
				return nil, err
			}
			subs[i] = fn
		}

		return nullable(func(v any) error {
			vals, ok := v.([]any)
			if !ok || len(vals) != len(subs) {
				return badCast(v)
			}
			bld.Append(true)
			for i, fn := range subs {
				if err := fn(vals[i]); err != nil {
					return err
				}
			}

			return nil
		}), nil
	case *parqbridge.ListType:
		bld, ok := b.(*array.ListBuilder)
		if !ok {
			return nil, badCast(b)
		}

		elem, err := buildAppender(typ.Element, bld.ValueBuilder())
		if err != nil {
			return nil, err
		}

		return nullable(func(v any) error {
			vals, ok := v.([]any)
			if !ok {
				return badCast(v)
			}
			bld.Append(true)
			for _, e := range vals {
				if err := elem(e); err != nil {
					return err
				}
			}

			return nil
		}), nil
	case *parqbridge.MapType:
		bld, ok := b.(*array.MapBuilder)
		if !ok {
			return nil, badCast(b)
		}

		key, err := buildAppender(typ.KeyType, bld.KeyBuilder())
		if err != nil {
			return nil, err
		}
		item, err := buildAppender(typ.ValueType, bld.ItemBuilder())
		if err != nil {
			return nil, err
		}

		return nullable(func(v any) error {
			entries, ok := v.([]parqbridge.KeyValue)
			if !ok {
				return badCast(v)
			}
			bld.Append(true)
			for _, kv := range entries {
				if err := key(kv.Key); err != nil {
					return err
				}
				if err := item(kv.Value); err != nil {
					return err
				}
			}

			return nil
		}), nil
	}

	return nil, fmt.Errorf("%w: cannot serialize %s columns", parqbridge.ErrNotImplemented, t)
}
