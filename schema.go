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

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Schema is an ordered sequence of named, typed columns. Column identity is
// the column name: a physical schema read from a file footer and a requested
// schema supplied by the engine are reconciled by name, never by position.
// A Schema is immutable once constructed.
type Schema struct {
	fields []NestedField

	byName      map[string]int
	byLowerName map[string]int
}

func NewSchema(fields ...NestedField) *Schema {
	s := &Schema{
		fields:      slices.Clone(fields),
		byName:      make(map[string]int, len(fields)),
		byLowerName: make(map[string]int, len(fields)),
	}

	for i, f := range fields {
		s.byName[f.Name] = i
		s.byLowerName[strings.ToLower(f.Name)] = i
	}

	return s
}

func (s *Schema) Fields() []NestedField { return slices.Clone(s.fields) }
func (s *Schema) NumFields() int        { return len(s.fields) }

// Field returns the field at the given ordinal, panicking if out of range.
func (s *Schema) Field(i int) NestedField { return s.fields[i] }

// FindFieldByName returns the field with the given name along with its
// zero-based ordinal position in the schema.
func (s *Schema) FindFieldByName(name string) (NestedField, int, bool) {
	i, ok := s.byName[name]
	if !ok {
		return NestedField{}, -1, false
	}

	return s.fields[i], i, true
}

// FindFieldByNameCaseInsensitive is like FindFieldByName, folding case.
// If two columns differ only by case, the last one wins.
func (s *Schema) FindFieldByNameCaseInsensitive(name string) (NestedField, int, bool) {
	i, ok := s.byLowerName[strings.ToLower(name)]
	if !ok {
		return NestedField{}, -1, false
	}

	return s.fields[i], i, true
}

func (s *Schema) Equals(other *Schema) bool {
	if other == nil {
		return false
	}

	if s == other {
		return true
	}

	return slices.EqualFunc(s.fields, other.fields, func(a, b NestedField) bool {
		return a.Equals(b)
	})
}

func (s *Schema) AsStruct() StructType { return StructType{FieldList: s.fields} }

func (s *Schema) String() string {
	var b strings.Builder
	b.WriteString("schema {")
	for _, f := range s.fields {
		b.WriteString("\n\t")
		b.WriteString(f.String())
	}
	b.WriteString("\n}")

	return b.String()
}

// Select returns a new schema containing only the named columns, in the
// order the names were given. A name that does not exist in the schema
// results in ErrSchemaMismatch.
func (s *Schema) Select(caseSensitive bool, names ...string) (*Schema, error) {
	selected := make([]NestedField, 0, len(names))
	for _, n := range names {
		var (
			f  NestedField
			ok bool
		)

		if caseSensitive {
			f, _, ok = s.FindFieldByName(n)
		} else {
			f, _, ok = s.FindFieldByNameCaseInsensitive(n)
		}

		if !ok {
			return nil, fmt.Errorf("%w: could not find column %s", ErrSchemaMismatch, n)
		}
		selected = append(selected, f)
	}

	return NewSchema(selected...), nil
}

func (s *Schema) MarshalJSON() ([]byte, error) {
	st := s.AsStruct()

	return json.Marshal(&st)
}

func (s *Schema) UnmarshalJSON(b []byte) error {
	var st StructType
	if err := json.Unmarshal(b, &st); err != nil {
		return err
	}

	*s = *NewSchema(st.FieldList...)

	return nil
}
