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
	"bytes"
	"cmp"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	"github.com/apache/arrow-go/v18/arrow/decimal128"
)

// Decimal is the engine's canonical in-memory encoding for decimal values:
// a 128-bit unscaled integer plus a scale.
type Decimal struct {
	Val   decimal128.Num
	Scale int
}

func (d Decimal) String() string { return d.Val.ToString(int32(d.Scale)) }

// LiteralType is the set of Go types that can be used as typed literal values.
type LiteralType interface {
	bool | int32 | int64 | float32 | float64 | string | []byte | Decimal
}

// Literal is a non-null literal value bound to a logical type. Null is
// represented by absence (a nil Literal), never by a literal variant.
type Literal interface {
	fmt.Stringer
	Type() Type
	// Any returns the canonical engine encoding of the value, matching the
	// encoding used for Row slots of the same logical type.
	Any() any
	Equals(Literal) bool
	// To converts the literal to the given logical type, applying only safe
	// promotions (int -> long, int/long -> float/double, float -> double).
	To(Type) (Literal, error)
}

// NewLiteral constructs a literal from a Go value. Date and timestamp
// literals carry the same underlying types as int/long and must be built
// directly as DateLiteral/TimestampLiteral.
func NewLiteral[T LiteralType](val T) Literal {
	switch v := any(val).(type) {
	case bool:
		return BoolLiteral(v)
	case int32:
		return Int32Literal(v)
	case int64:
		return Int64Literal(v)
	case float32:
		return Float32Literal(v)
	case float64:
		return Float64Literal(v)
	case string:
		return StringLiteral(v)
	case []byte:
		return BinaryLiteral(v)
	case Decimal:
		return DecimalLiteral(v)
	}
	panic("can't happen due to literal type constraint")
}

// LiteralFromAny builds a literal of the given logical type from a loosely
// typed value, e.g. a decoded JSON scalar. Integral values may arrive as
// float64 or int; they are narrowed according to the target type.
func LiteralFromAny(t Type, v any) (Literal, error) {
	badCast := func() error {
		return fmt.Errorf("%w: cannot create %s literal from %T", ErrBadCast, t, v)
	}

	asInt64 := func() (int64, bool) {
		switch n := v.(type) {
		case int:
			return int64(n), true
		case int32:
			return int64(n), true
		case int64:
			return n, true
		case float64:
			if n == math.Trunc(n) {
				return int64(n), true
			}
		}

		return 0, false
	}

	switch t.(type) {
	case BooleanType:
		if b, ok := v.(bool); ok {
			return BoolLiteral(b), nil
		}
	case Int32Type:
		if n, ok := asInt64(); ok {
			return Int32Literal(int32(n)), nil
		}
	case Int64Type:
		if n, ok := asInt64(); ok {
			return Int64Literal(n), nil
		}
	case DateType:
		if n, ok := asInt64(); ok {
			return DateLiteral(int32(n)), nil
		}
	case TimestampType:
		if n, ok := asInt64(); ok {
			return TimestampLiteral(n), nil
		}
	case Float32Type:
		switch n := v.(type) {
		case float32:
			return Float32Literal(n), nil
		case float64:
			return Float32Literal(float32(n)), nil
		}
	case Float64Type:
		switch n := v.(type) {
		case float32:
			return Float64Literal(float64(n)), nil
		case float64:
			return Float64Literal(n), nil
		}
	case StringType:
		if s, ok := v.(string); ok {
			return StringLiteral(s), nil
		}
	case BinaryType:
		switch b := v.(type) {
		case []byte:
			return BinaryLiteral(b), nil
		case string:
			return BinaryLiteral([]byte(b)), nil
		}
	case DecimalType:
		if d, ok := v.(Decimal); ok {
			return DecimalLiteral(d), nil
		}
	}

	return nil, badCast()
}

type BoolLiteral bool

func (b BoolLiteral) Type() Type     { return BooleanType{} }
func (b BoolLiteral) Any() any       { return bool(b) }
func (b BoolLiteral) String() string { return fmt.Sprintf("%t", bool(b)) }
func (b BoolLiteral) Equals(other Literal) bool {
	rhs, ok := other.(BoolLiteral)

	return ok && b == rhs
}

func (b BoolLiteral) To(t Type) (Literal, error) {
	if _, ok := t.(BooleanType); ok {
		return b, nil
	}

	return nil, fmt.Errorf("%w: boolean -> %s", ErrBadCast, t)
}

type Int32Literal int32

func (i Int32Literal) Type() Type     { return Int32Type{} }
func (i Int32Literal) Any() any       { return int32(i) }
func (i Int32Literal) String() string { return fmt.Sprintf("%d", int32(i)) }
func (i Int32Literal) Equals(other Literal) bool {
	rhs, ok := other.(Int32Literal)

	return ok && i == rhs
}

func (i Int32Literal) To(t Type) (Literal, error) {
	switch t.(type) {
	case Int32Type:
		return i, nil
	case Int64Type:
		return Int64Literal(i), nil
	case Float32Type:
		return Float32Literal(i), nil
	case Float64Type:
		return Float64Literal(i), nil
	case DateType:
		return DateLiteral(i), nil
	}

	return nil, fmt.Errorf("%w: int -> %s", ErrBadCast, t)
}

type Int64Literal int64

func (i Int64Literal) Type() Type     { return Int64Type{} }
func (i Int64Literal) Any() any       { return int64(i) }
func (i Int64Literal) String() string { return fmt.Sprintf("%d", int64(i)) }
func (i Int64Literal) Equals(other Literal) bool {
	rhs, ok := other.(Int64Literal)

	return ok && i == rhs
}

func (i Int64Literal) To(t Type) (Literal, error) {
	switch t.(type) {
	case Int32Type:
		if i > math.MaxInt32 || i < math.MinInt32 {
			return nil, fmt.Errorf("%w: long %d out of range for int", ErrBadCast, int64(i))
		}

		return Int32Literal(i), nil
	case Int64Type:
		return i, nil
	case Float32Type:
		return Float32Literal(i), nil
	case Float64Type:
		return Float64Literal(i), nil
	case TimestampType:
		return TimestampLiteral(i), nil
	}

	return nil, fmt.Errorf("%w: long -> %s", ErrBadCast, t)
}

type Float32Literal float32

func (f Float32Literal) Type() Type     { return Float32Type{} }
func (f Float32Literal) Any() any       { return float32(f) }
func (f Float32Literal) String() string { return fmt.Sprintf("%v", float32(f)) }
func (f Float32Literal) Equals(other Literal) bool {
	rhs, ok := other.(Float32Literal)

	return ok && f == rhs
}

func (f Float32Literal) To(t Type) (Literal, error) {
	switch t.(type) {
	case Float32Type:
		return f, nil
	case Float64Type:
		return Float64Literal(f), nil
	}

	return nil, fmt.Errorf("%w: float -> %s", ErrBadCast, t)
}

type Float64Literal float64

func (f Float64Literal) Type() Type     { return Float64Type{} }
func (f Float64Literal) Any() any       { return float64(f) }
func (f Float64Literal) String() string { return fmt.Sprintf("%v", float64(f)) }
func (f Float64Literal) Equals(other Literal) bool {
	rhs, ok := other.(Float64Literal)

	return ok && f == rhs
}

func (f Float64Literal) To(t Type) (Literal, error) {
	switch t.(type) {
	case Float32Type:
		return Float32Literal(f), nil
	case Float64Type:
		return f, nil
	}

	return nil, fmt.Errorf("%w: double -> %s", ErrBadCast, t)
}

type StringLiteral string

func (s StringLiteral) Type() Type     { return StringType{} }
func (s StringLiteral) Any() any       { return string(s) }
func (s StringLiteral) String() string { return string(s) }
func (s StringLiteral) Equals(other Literal) bool {
	rhs, ok := other.(StringLiteral)

	return ok && s == rhs
}

func (s StringLiteral) To(t Type) (Literal, error) {
	switch t.(type) {
	case StringType:
		return s, nil
	case BinaryType:
		return BinaryLiteral(s), nil
	}

	return nil, fmt.Errorf("%w: string -> %s", ErrBadCast, t)
}

type BinaryLiteral []byte

func (b BinaryLiteral) Type() Type     { return BinaryType{} }
func (b BinaryLiteral) Any() any       { return []byte(b) }
func (b BinaryLiteral) String() string { return fmt.Sprintf("%x", []byte(b)) }
func (b BinaryLiteral) Equals(other Literal) bool {
	rhs, ok := other.(BinaryLiteral)

	return ok && bytes.Equal(b, rhs)
}

func (b BinaryLiteral) To(t Type) (Literal, error) {
	if _, ok := t.(BinaryType); ok {
		return b, nil
	}

	return nil, fmt.Errorf("%w: binary -> %s", ErrBadCast, t)
}

// DateLiteral holds days since the unix epoch.
type DateLiteral int32

func (d DateLiteral) Type() Type     { return DateType{} }
func (d DateLiteral) Any() any       { return int32(d) }
func (d DateLiteral) String() string { return fmt.Sprintf("date(%d)", int32(d)) }
func (d DateLiteral) Equals(other Literal) bool {
	rhs, ok := other.(DateLiteral)

	return ok && d == rhs
}

func (d DateLiteral) To(t Type) (Literal, error) {
	switch t.(type) {
	case DateType:
		return d, nil
	case Int32Type:
		return Int32Literal(d), nil
	}

	return nil, fmt.Errorf("%w: date -> %s", ErrBadCast, t)
}

// TimestampLiteral holds microseconds since the unix epoch.
type TimestampLiteral int64

func (ts TimestampLiteral) Type() Type     { return TimestampType{} }
func (ts TimestampLiteral) Any() any       { return int64(ts) }
func (ts TimestampLiteral) String() string { return fmt.Sprintf("timestamp(%d)", int64(ts)) }
func (ts TimestampLiteral) Equals(other Literal) bool {
	rhs, ok := other.(TimestampLiteral)

	return ok && ts == rhs
}

func (ts TimestampLiteral) To(t Type) (Literal, error) {
	switch t.(type) {
	case TimestampType:
		return ts, nil
	case Int64Type:
		return Int64Literal(ts), nil
	}

	return nil, fmt.Errorf("%w: timestamp -> %s", ErrBadCast, t)
}

type DecimalLiteral Decimal

func (d DecimalLiteral) Type() Type     { return DecimalTypeOf(38, d.Scale) }
func (d DecimalLiteral) Any() any       { return Decimal(d) }
func (d DecimalLiteral) String() string { return Decimal(d).String() }
func (d DecimalLiteral) Equals(other Literal) bool {
	rhs, ok := other.(DecimalLiteral)

	return ok && d.Scale == rhs.Scale && d.Val == rhs.Val
}

func (d DecimalLiteral) To(t Type) (Literal, error) {
	if dt, ok := t.(DecimalType); ok && dt.Scale() == d.Scale {
		return d, nil
	}

	return nil, fmt.Errorf("%w: decimal(_, %d) -> %s", ErrBadCast, d.Scale, t)
}

// CompareLiterals compares two literals of compatible types, coercing the
// right-hand side to the type of the left. The result follows cmp.Compare
// conventions. NaN ordering follows Go's float comparisons.
func CompareLiterals(lhs, rhs Literal) (int, error) {
	rhs, err := rhs.To(lhs.Type())
	if err != nil {
		return 0, err
	}

	switch l := lhs.(type) {
	case BoolLiteral:
		r := rhs.(BoolLiteral)
		switch {
		case bool(l) == bool(r):
			return 0, nil
		case bool(l):
			return 1, nil
		default:
			return -1, nil
		}
	case Int32Literal:
		return cmp.Compare(l, rhs.(Int32Literal)), nil
	case Int64Literal:
		return cmp.Compare(l, rhs.(Int64Literal)), nil
	case Float32Literal:
		return cmp.Compare(l, rhs.(Float32Literal)), nil
	case Float64Literal:
		return cmp.Compare(l, rhs.(Float64Literal)), nil
	case StringLiteral:
		return cmp.Compare(l, rhs.(StringLiteral)), nil
	case BinaryLiteral:
		return bytes.Compare(l, []byte(rhs.(BinaryLiteral))), nil
	case DateLiteral:
		return cmp.Compare(l, rhs.(DateLiteral)), nil
	case TimestampLiteral:
		return cmp.Compare(l, rhs.(TimestampLiteral)), nil
	case DecimalLiteral:
		r := rhs.(DecimalLiteral)

		return l.Val.BigInt().Cmp(r.Val.BigInt()), nil
	}

	return 0, fmt.Errorf("%w: cannot compare %s literals", ErrInvalidArgument, lhs.Type())
}

// LiteralFromBytes decodes the plain binary single-value encoding used by
// the storage layer's column statistics: little-endian integers and floats,
// raw UTF-8 for strings, raw bytes for binary, and a big-endian two's
// complement unscaled integer for decimals.
func LiteralFromBytes(t Type, data []byte) (Literal, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: cannot decode literal from nil", ErrInvalidArgument)
	}

	sized := func(n int) error {
		if len(data) != n {
			return fmt.Errorf("%w: expected %d bytes for %s, got %d",
				ErrInvalidArgument, n, t, len(data))
		}

		return nil
	}

	switch typ := t.(type) {
	case BooleanType:
		if err := sized(1); err != nil {
			return nil, err
		}

		return BoolLiteral(data[0] != 0), nil
	case Int32Type:
		if err := sized(4); err != nil {
			return nil, err
		}

		return Int32Literal(binary.LittleEndian.Uint32(data)), nil
	case Int64Type:
		if err := sized(8); err != nil {
			return nil, err
		}

		return Int64Literal(binary.LittleEndian.Uint64(data)), nil
	case DateType:
		if err := sized(4); err != nil {
			return nil, err
		}

		return DateLiteral(binary.LittleEndian.Uint32(data)), nil
	case TimestampType:
		if err := sized(8); err != nil {
			return nil, err
		}

		return TimestampLiteral(binary.LittleEndian.Uint64(data)), nil
	case Float32Type:
		if err := sized(4); err != nil {
			return nil, err
		}

		return Float32Literal(math.Float32frombits(binary.LittleEndian.Uint32(data))), nil
	case Float64Type:
		if err := sized(8); err != nil {
			return nil, err
		}

		return Float64Literal(math.Float64frombits(binary.LittleEndian.Uint64(data))), nil
	case StringType:
		return StringLiteral(data), nil
	case BinaryType:
		return BinaryLiteral(data), nil
	case DecimalType:
		unscaled, err := bigEndianToDecimal(data)
		if err != nil {
			return nil, err
		}

		return DecimalLiteral(Decimal{Val: unscaled, Scale: typ.Scale()}), nil
	}

	return nil, fmt.Errorf("%w: cannot decode %s literal from bytes", ErrInvalidArgument, t)
}

// bigEndianToDecimal interprets buf as a big-endian two's complement
// unscaled decimal value of up to 16 bytes.
func bigEndianToDecimal(buf []byte) (decimal128.Num, error) {
	if len(buf) < 1 || len(buf) > 16 {
		return decimal128.Num{},
			fmt.Errorf("%w: invalid length for conversion to decimal: %d",
				ErrInvalidArgument, len(buf))
	}

	v := new(big.Int).SetBytes(buf)
	if buf[0]&0x80 != 0 {
		// negative value in two's complement
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(len(buf)*8)))
	}

	return decimal128.FromBigInt(v), nil
}
