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
	"github.com/parqbridge/parqbridge/internal"
	iceio "github.com/parqbridge/parqbridge/io"
)

// DefaultSplitSize is the target byte length of one split.
const DefaultSplitSize = 128 * 1024 * 1024

const packingLookback = 10

// PlanSplits stats each file and carves files larger than targetBytes into
// contiguous byte-range splits of at most targetBytes each. Row groups
// straddling a boundary are claimed by midpoint ownership at scan time, so
// the carved splits together read every row exactly once. A non-positive
// targetBytes falls back to DefaultSplitSize.
func PlanSplits(fs iceio.IO, paths []string, targetBytes int64) ([]FileSplit, error) {
	if targetBytes <= 0 {
		targetBytes = DefaultSplitSize
	}

	var splits []FileSplit
	for _, p := range paths {
		f, err := fs.Open(p)
		if err != nil {
			return nil, err
		}

		info, err := f.Stat()
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, err
		}

		size := info.Size()
		if size <= targetBytes {
			splits = append(splits, FileSplit{Path: p, Length: size})

			continue
		}

		for start := int64(0); start < size; start += targetBytes {
			length := min(targetBytes, size-start)
			splits = append(splits, FileSplit{Path: p, Start: start, Length: length})
		}
	}

	return splits, nil
}

// GroupSplits bin-packs splits into task groups whose summed byte lengths
// stay at or below targetBytes, so one task reads roughly one target's worth
// of data regardless of how uneven the input files are.
func GroupSplits(splits []FileSplit, targetBytes int64) [][]FileSplit {
	if targetBytes <= 0 {
		targetBytes = DefaultSplitSize
	}

	packer := internal.SlicePacker[FileSplit]{
		TargetWeight: targetBytes,
		Lookback:     packingLookback,
	}

	return packer.Pack(splits, func(s FileSplit) int64 {
		if s.Length <= 0 {
			// an unsized split claims a whole file; treat it as a full bin
			return targetBytes
		}

		return s.Length
	})
}
