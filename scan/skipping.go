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
	"fmt"

	"github.com/apache/arrow-go/v18/parquet/metadata"

	"github.com/parqbridge/parqbridge"
	"github.com/parqbridge/parqbridge/sarg"
)

const (
	rowsMightMatch, rowsCannotMatch = true, false
)

// RowGroupFilter answers "can any row of this row group match the search
// argument" from column chunk statistics. The logic is inclusive: a row
// group is eliminated only when the statistics prove no row can match, and
// any missing or undecodable statistic keeps the group.
type RowGroupFilter struct {
	root *sarg.Node

	// leaf column index per top-level physical column name
	leafIdx  map[string]int
	physical *parqbridge.Schema

	caseSensitive bool
}

// NewRowGroupFilter parses the directive against the file's physical
// schema. A directive with filtering disabled yields a nil filter, which
// keeps every row group.
func NewRowGroupFilter(physical *parqbridge.Schema, directive sarg.Directive, caseSensitive bool) (*RowGroupFilter, error) {
	if !directive.UseIndexFilter || directive.Sarg == nil {
		return nil, nil
	}

	root, err := sarg.Parse(directive.Sarg)
	if err != nil {
		return nil, err
	}

	leafIdx := make(map[string]int, physical.NumFields())
	next := 0
	for _, f := range physical.Fields() {
		if _, ok := f.Type.(parqbridge.PrimitiveType); ok {
			leafIdx[f.Name] = next
		}
		next += leafCount(f.Type)
	}

	return &RowGroupFilter{
		root:          root,
		leafIdx:       leafIdx,
		physical:      physical,
		caseSensitive: caseSensitive,
	}, nil
}

// TestRowGroup reports whether any row of the group might match.
func (f *RowGroupFilter) TestRowGroup(rgmeta *metadata.RowGroupMetaData) (bool, error) {
	if rgmeta.NumRows() == 0 {
		return rowsCannotMatch, nil
	}

	return f.eval(f.root, rgmeta)
}

func (f *RowGroupFilter) eval(n *sarg.Node, rgmeta *metadata.RowGroupMetaData) (bool, error) {
	switch n.Op {
	case sarg.OpAnd:
		for _, child := range n.Children {
			match, err := f.eval(child, rgmeta)
			if err != nil {
				return rowsMightMatch, err
			}
			if !match {
				return rowsCannotMatch, nil
			}
		}

		return rowsMightMatch, nil
	case sarg.OpOr:
		for _, child := range n.Children {
			match, err := f.eval(child, rgmeta)
			if err != nil {
				return rowsMightMatch, err
			}
			if match {
				return rowsMightMatch, nil
			}
		}

		return rowsCannotMatch, nil
	}

	return f.evalLeaf(n, rgmeta)
}

// columnStats fetches the statistics of the leaf column a node references.
// A nil result means the statistics cannot rule anything out.
func (f *RowGroupFilter) columnStats(n *sarg.Node, rgmeta *metadata.RowGroupMetaData) (metadata.TypedStatistics, error) {
	name := n.Column
	if !f.caseSensitive {
		pf, _, ok := f.physical.FindFieldByNameCaseInsensitive(name)
		if !ok {
			return nil, nil
		}
		name = pf.Name
	}

	idx, ok := f.leafIdx[name]
	if !ok {
		return nil, nil
	}

	colMeta, err := rgmeta.ColumnChunk(idx)
	if err != nil {
		return nil, err
	}

	if ok, err := colMeta.StatsSet(); !ok || err != nil {
		return nil, nil
	}

	stats, err := colMeta.Statistics()
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func (f *RowGroupFilter) evalLeaf(n *sarg.Node, rgmeta *metadata.RowGroupMetaData) (bool, error) {
	stats, err := f.columnStats(n, rgmeta)
	if err != nil || stats == nil {
		return rowsMightMatch, err
	}

	switch n.Op {
	case sarg.OpIsNull:
		if stats.HasNullCount() && stats.NullCount() == 0 {
			return rowsCannotMatch, nil
		}

		return rowsMightMatch, nil
	case sarg.OpNotNull:
		// NumValues counts the non-null values of the chunk
		if stats.NumValues() == 0 {
			return rowsCannotMatch, nil
		}

		return rowsMightMatch, nil
	}

	// the remaining operations compare against values; a chunk holding
	// only nulls cannot match any of them
	if stats.NumValues() == 0 {
		return rowsCannotMatch, nil
	}

	if !stats.HasMinMax() {
		return rowsMightMatch, nil
	}

	lower, err := parqbridge.LiteralFromBytes(n.Type, stats.EncodeMin())
	if err != nil {
		return rowsMightMatch, nil
	}

	upper, err := parqbridge.LiteralFromBytes(n.Type, stats.EncodeMax())
	if err != nil {
		return rowsMightMatch, nil
	}

	cmpLower := func(lit parqbridge.Literal) (int, error) { return parqbridge.CompareLiterals(lit, lower) }
	cmpUpper := func(lit parqbridge.Literal) (int, error) { return parqbridge.CompareLiterals(lit, upper) }

	switch n.Op {
	case sarg.OpEq:
		below, err := cmpLower(n.Value)
		if err != nil {
			return rowsMightMatch, nil
		}
		above, err := cmpUpper(n.Value)
		if err != nil {
			return rowsMightMatch, nil
		}

		if below < 0 || above > 0 {
			return rowsCannotMatch, nil
		}

		return rowsMightMatch, nil
	case sarg.OpLt:
		// rows can match only if some value is strictly below the literal
		if c, err := cmpLower(n.Value); err == nil && c <= 0 {
			return rowsCannotMatch, nil
		}

		return rowsMightMatch, nil
	case sarg.OpLtEq:
		if c, err := cmpLower(n.Value); err == nil && c < 0 {
			return rowsCannotMatch, nil
		}

		return rowsMightMatch, nil
	case sarg.OpGt:
		if c, err := cmpUpper(n.Value); err == nil && c >= 0 {
			return rowsCannotMatch, nil
		}

		return rowsMightMatch, nil
	case sarg.OpGtEq:
		if c, err := cmpUpper(n.Value); err == nil && c > 0 {
			return rowsCannotMatch, nil
		}

		return rowsMightMatch, nil
	case sarg.OpIn:
		for _, v := range n.Values {
			below, err := cmpLower(v)
			if err != nil {
				return rowsMightMatch, nil
			}
			above, err := cmpUpper(v)
			if err != nil {
				return rowsMightMatch, nil
			}

			if below >= 0 && above <= 0 {
				return rowsMightMatch, nil
			}
		}

		return rowsCannotMatch, nil
	}

	return rowsMightMatch, fmt.Errorf("%w: search argument operation %s",
		parqbridge.ErrNotImplemented, n.Op)
}
