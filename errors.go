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

import "errors"

var (
	// ErrSchemaMismatch is returned when a requested column name does not
	// exist in the physical schema recorded in a file footer. It indicates
	// that the table metadata and the underlying data have diverged and is
	// never recovered locally.
	ErrSchemaMismatch = errors.New("requested schema does not match physical schema")

	// ErrCorruptFooter is returned when a non-empty file's footer cannot be
	// read or parsed. It is distinct from the valid empty-file state and
	// must never be silently treated as "no schema".
	ErrCorruptFooter = errors.New("corrupt or unreadable file footer")

	// ErrInvalidArgument is returned when an argument to a function or
	// operation is invalid or of the wrong type.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidTypeString is returned when parsing an unrecognized logical
	// type name.
	ErrInvalidTypeString = errors.New("invalid type string")

	// ErrInvalidSchema is returned for structurally invalid schemas.
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrBadCast is returned when a literal cannot be converted to the
	// requested logical type.
	ErrBadCast = errors.New("invalid literal cast")

	// ErrNotImplemented is returned for operations without an implementation
	// for the requested format or scheme.
	ErrNotImplemented = errors.New("not implemented")
)
