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

package parqbridge

// Row is a single materialized output row. Slot i holds the value of the
// i-th column of the schema the row was produced against, encoded as:
//
//	boolean           bool
//	int               int32
//	long              int64
//	float             float32
//	double            float64
//	date              int32 (days since epoch)
//	timestamp         int64 (microseconds since epoch)
//	string            string
//	binary            []byte
//	decimal(P, S)     Decimal
//	struct<...>       []any, one slot per subfield
//	list<E>           []any
//	map<K, V>         []KeyValue
//
// A nil slot is SQL NULL at any nesting depth.
type Row []any

// KeyValue is a single entry of a materialized map column. Entries preserve
// the order in which they were stored.
type KeyValue struct {
	Key   any
	Value any
}
