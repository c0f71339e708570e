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
	"encoding/binary"
	"fmt"
	"math"

	"github.com/twmb/murmur3"

	"github.com/parqbridge/parqbridge"
)

// BucketOrdinal hashes a row's bucketing key values into a bucket in
// [0, numBuckets). The hash is murmur3 over a stable byte encoding of each
// value, so the same key always lands in the same bucket across jobs.
// A nil key value hashes as an empty byte marker.
func BucketOrdinal(key []any, numBuckets int) (int, error) {
	if numBuckets <= 0 {
		return 0, fmt.Errorf("%w: numBuckets must be positive, got %d",
			parqbridge.ErrInvalidArgument, numBuckets)
	}

	h := murmur3.New32()
	var scratch [8]byte
	for _, v := range key {
		switch val := v.(type) {
		case nil:
			h.Write([]byte{0})
		case bool:
			if val {
				h.Write([]byte{1})
			} else {
				h.Write([]byte{0})
			}
		case int32:
			binary.LittleEndian.PutUint32(scratch[:4], uint32(val))
			h.Write(scratch[:4])
		case int64:
			binary.LittleEndian.PutUint64(scratch[:], uint64(val))
			h.Write(scratch[:])
		case float32:
			binary.LittleEndian.PutUint32(scratch[:4], math.Float32bits(val))
			h.Write(scratch[:4])
		case float64:
			binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(val))
			h.Write(scratch[:])
		case string:
			h.Write([]byte(val))
		case []byte:
			h.Write(val)
		case parqbridge.Decimal:
			b := val.Val.BigInt().Bytes()
			h.Write(b)
		default:
			return 0, fmt.Errorf("%w: cannot bucket on %T values",
				parqbridge.ErrInvalidArgument, v)
		}
	}

	return int(h.Sum32() % uint32(numBuckets)), nil
}
