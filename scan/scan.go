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

package scan

import (
	"context"
	"fmt"
	"iter"
	"runtime"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/metadata"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"golang.org/x/sync/errgroup"

	"github.com/parqbridge/parqbridge"
	"github.com/parqbridge/parqbridge/internal"
	iceio "github.com/parqbridge/parqbridge/io"
	"github.com/parqbridge/parqbridge/sarg"
)

// FileSplit is the unit of scan work: a byte range of one file. A row group
// belongs to the split containing its midpoint, so splits that together
// cover a file read every row exactly once. A Length of zero or less claims
// the whole file.
type FileSplit struct {
	Path   string
	Start  int64
	Length int64
}

const defaultBatchSize = 1 << 17

// Scanner reads splits of self-describing column files and materializes
// them as rows of the requested schema. Each file's schema is re-resolved
// from its own footer, so files written before a column was added coexist
// with newer ones in a single scan.
type Scanner struct {
	fs        iceio.IO
	mem       memory.Allocator
	requested *parqbridge.Schema

	filter    parqbridge.BooleanExpression
	residual  *parqbridge.RowEvaluator
	directive sarg.Directive

	batchSize     int64
	concurrency   int
	pushdown      bool
	caseSensitive bool
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithFilter installs a filter expression. Whatever portion of it cannot be
// pushed down is re-applied row by row, so results are identical with
// pushdown on or off.
func WithFilter(expr parqbridge.BooleanExpression) Option {
	return func(s *Scanner) { s.filter = expr }
}

// WithPushdown toggles translation of the filter into a search argument for
// row-group elimination. Enabled by default.
func WithPushdown(enabled bool) Option {
	return func(s *Scanner) { s.pushdown = enabled }
}

func WithBatchSize(n int64) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithConcurrency(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithCaseSensitive(sensitive bool) Option {
	return func(s *Scanner) { s.caseSensitive = sensitive }
}

func WithAllocator(mem memory.Allocator) Option {
	return func(s *Scanner) { s.mem = mem }
}

// NewScanner binds a requested schema and options into a reusable scanner.
// The filter, when present, is translated once into the pushdown directive
// and bound once as the residual row filter.
func NewScanner(fs iceio.IO, requested *parqbridge.Schema, opts ...Option) (*Scanner, error) {
	if requested == nil || requested.NumFields() == 0 {
		return nil, fmt.Errorf("%w: scan requires at least one requested column",
			parqbridge.ErrInvalidArgument)
	}

	s := &Scanner{
		fs:            fs,
		mem:           memory.DefaultAllocator,
		requested:     requested,
		batchSize:     defaultBatchSize,
		concurrency:   runtime.GOMAXPROCS(0),
		pushdown:      true,
		caseSensitive: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.filter != nil {
		var err error
		s.directive, err = sarg.Translate(requested, s.filter, s.pushdown, s.caseSensitive)
		if err != nil {
			return nil, err
		}

		s.residual, err = parqbridge.NewRowEvaluator(requested, s.filter, s.caseSensitive)
		if err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Directive returns the pushdown directive the scanner computed from its
// filter, for inspection.
func (s *Scanner) Directive() sarg.Directive { return s.directive }

// enumeratedBatch carries one materialized batch of one split through the
// re-sequencing channel, or the error that ended its split.
type enumeratedBatch struct {
	Split internal.Enumerated[FileSplit]
	Rows  internal.Enumerated[[]parqbridge.Row]
	Err   error
}

// Scan lazily produces the rows of the given splits, in split order.
// Splits are processed concurrently and stream batch by batch, so the first
// rows arrive before any split has been fully decoded. Iteration stops at
// the first error; stopping early cancels the remaining work.
func (s *Scanner) Scan(ctx context.Context, splits ...FileSplit) iter.Seq2[parqbridge.Row, error] {
	return func(yield func(parqbridge.Row, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		results := make(chan enumeratedBatch, s.concurrency)

		var g errgroup.Group
		g.SetLimit(s.concurrency)
		go func() {
			defer close(results)
			for i, split := range splits {
				numbered := internal.Enumerated[FileSplit]{
					Value: split, Index: i, Last: i == len(splits)-1,
				}
				g.Go(func() error {
					err := s.scanSplit(ctx, numbered, results)
					if err != nil && ctx.Err() == nil {
						select {
						case results <- enumeratedBatch{Split: numbered, Err: err}:
						case <-ctx.Done():
						}
					}

					return err
				})
			}
			_ = g.Wait()
		}()

		isBeforeAny := func(b enumeratedBatch) bool { return b.Split.Index < 0 }

		// batches of one split pass in order; a batch of a later split waits
		// until the earlier split has sent its last batch. Errors jump the
		// queue so a failed split surfaces without waiting for its peers.
		ordered := internal.MakeSequencedChan(uint(s.concurrency), results,
			func(left, right *enumeratedBatch) bool {
				switch {
				case isBeforeAny(*left):
					return true
				case isBeforeAny(*right):
					return false
				case left.Err != nil || right.Err != nil:
					return true
				case left.Split.Index == right.Split.Index:
					return left.Rows.Index < right.Rows.Index
				default:
					return left.Split.Index < right.Split.Index
				}
			},
			func(prev, next *enumeratedBatch) bool {
				switch {
				case isBeforeAny(*prev):
					return next.Split.Index == 0 && next.Rows.Index == 0
				case next.Err != nil:
					return true
				case prev.Split.Index == next.Split.Index:
					return next.Rows.Index == prev.Rows.Index+1
				default:
					return next.Split.Index == prev.Split.Index+1 &&
						prev.Rows.Last && next.Rows.Index == 0
				}
			},
			enumeratedBatch{Split: internal.Enumerated[FileSplit]{Index: -1}})

		// the drain keeps the sequencer from blocking forever on a consumer
		// that stopped early
		defer func() {
			cancel()
			for range ordered {
			}
		}()

		for batch := range ordered {
			if batch.Err != nil {
				yield(nil, batch.Err)

				return
			}

			for _, row := range batch.Rows.Value {
				if !yield(row, nil) {
					return
				}
			}
		}
	}
}

// scanSplit reads one split: resolve the file's schema, plan the
// projection, pick the row groups the split owns and the statistics admit,
// then decode and stream the materialized batches to out. Every split sends
// exactly one batch marked Last, even when it holds no rows, so the
// sequencer can advance past it.
func (s *Scanner) scanSplit(ctx context.Context, split internal.Enumerated[FileSplit], out chan<- enumeratedBatch) (err error) {
	emitted := 0
	emit := func(rows []parqbridge.Row, last bool) error {
		batch := enumeratedBatch{Split: split,
			Rows: internal.Enumerated[[]parqbridge.Row]{Value: rows, Index: emitted, Last: last}}
		select {
		case out <- batch:
			emitted++

			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	rdr, err := openParquet(s.fs, split.Value.Path, s.mem)
	if err != nil {
		return err
	}
	if rdr == nil {
		// a zero-length file has no schema and no rows
		return emit(nil, true)
	}
	defer internal.CheckedClose(rdr, &err)

	physical, err := schemaFromReader(rdr, split.Value.Path)
	if err != nil {
		return err
	}

	projs, err := PlanProjection(physical, s.requested, s.caseSensitive)
	if err != nil {
		return fmt.Errorf("%s: %w", split.Value.Path, err)
	}

	rgFilter, err := NewRowGroupFilter(physical, s.directive, s.caseSensitive)
	if err != nil {
		return err
	}

	fileMeta := rdr.MetaData()
	rgList := make([]int, 0, fileMeta.NumRowGroups())
	for rg := range fileMeta.NumRowGroups() {
		rgMeta := fileMeta.RowGroup(rg)
		owned, err := splitOwnsRowGroup(split.Value, rgMeta)
		if err != nil {
			return err
		}
		if !owned {
			continue
		}

		if rgFilter != nil {
			match, err := rgFilter.TestRowGroup(rgMeta)
			if err != nil {
				return err
			}
			if !match {
				continue
			}
		}

		rgList = append(rgList, rg)
	}

	if len(rgList) == 0 {
		return emit(nil, true)
	}

	fr, err := pqarrow.NewFileReader(rdr,
		pqarrow.ArrowReadProperties{Parallel: true, BatchSize: s.batchSize}, s.mem)
	if err != nil {
		return err
	}

	rr, err := fr.GetRecordReader(ctx, LeafColumnIndices(physical, projs), rgList)
	if err != nil {
		return err
	}
	defer rr.Release()

	// one decoded batch is held back so the final one can carry the Last
	// marker
	var (
		pending []parqbridge.Row
		started bool
	)

	width := s.requested.NumFields()
	for rr.Next() {
		rec := rr.Record()
		batch, err := RowsFromRecord(rec, projs, width)
		if err != nil {
			return err
		}

		if s.residual != nil {
			kept := batch[:0]
			for _, row := range batch {
				keep, err := s.residual.Eval(row)
				if err != nil {
					return err
				}
				if keep {
					kept = append(kept, row)
				}
			}
			batch = kept
		}

		if started {
			if err := emit(pending, false); err != nil {
				return err
			}
		}
		pending, started = batch, true
	}

	if err := rr.Err(); err != nil {
		return err
	}

	return emit(pending, true)
}

// splitOwnsRowGroup applies midpoint ownership: the split whose byte range
// contains the middle byte of the row group's compressed data reads it.
func splitOwnsRowGroup(split FileSplit, rgMeta *metadata.RowGroupMetaData) (bool, error) {
	if split.Length <= 0 {
		return true, nil
	}

	first, err := rgMeta.ColumnChunk(0)
	if err != nil {
		return false, err
	}

	offset := first.DataPageOffset()
	if dictOffset := first.DictionaryPageOffset(); dictOffset > 0 && dictOffset < offset {
		offset = dictOffset
	}

	mid := offset + rgMeta.TotalCompressedSize()/2

	return mid >= split.Start && mid < split.Start+split.Length, nil
}
