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
	"fmt"
	"slices"
	"strings"
)

// Operation is an enum used for constructing predicates and expressions.
type Operation int

const (
	// relational operations
	OpTrue Operation = iota
	OpFalse
	OpIsNull
	OpNotNull
	OpEQ
	OpNEQ
	OpLT
	OpLTEQ
	OpGT
	OpGTEQ
	OpIn
	OpNotIn
	OpLike
	OpStartsWith
	// boolean operations
	OpNot
	OpAnd
	OpOr
)

func (op Operation) String() string {
	switch op {
	case OpTrue:
		return "True"
	case OpFalse:
		return "False"
	case OpIsNull:
		return "IsNull"
	case OpNotNull:
		return "NotNull"
	case OpEQ:
		return "Equal"
	case OpNEQ:
		return "NotEqual"
	case OpLT:
		return "LessThan"
	case OpLTEQ:
		return "LessThanEqual"
	case OpGT:
		return "GreaterThan"
	case OpGTEQ:
		return "GreaterThanEqual"
	case OpIn:
		return "In"
	case OpNotIn:
		return "NotIn"
	case OpLike:
		return "Like"
	case OpStartsWith:
		return "StartsWith"
	case OpNot:
		return "Not"
	case OpAnd:
		return "And"
	case OpOr:
		return "Or"
	default:
		return "<unknown operation>"
	}
}

// Negate returns the inverse operation, if one exists. Like and StartsWith
// have no inverse operation and are negated by wrapping in Not.
func (op Operation) Negate() Operation {
	switch op {
	case OpIsNull:
		return OpNotNull
	case OpNotNull:
		return OpIsNull
	case OpEQ:
		return OpNEQ
	case OpNEQ:
		return OpEQ
	case OpLT:
		return OpGTEQ
	case OpLTEQ:
		return OpGT
	case OpGT:
		return OpLTEQ
	case OpGTEQ:
		return OpLT
	case OpIn:
		return OpNotIn
	case OpNotIn:
		return OpIn
	default:
		panic("no negation for operation " + op.String())
	}
}

// BooleanExpression is an expression combining one or more column
// predicates. Expressions reference columns by name; binding to a concrete
// schema happens where the expression is consumed.
type BooleanExpression interface {
	fmt.Stringer
	Op() Operation
	Negate() BooleanExpression
	Equals(BooleanExpression) bool
}

// Reference is a named, as yet unbound, column reference.
type Reference string

func (r Reference) String() string { return fmt.Sprintf("Reference(name='%s')", string(r)) }

// AlwaysTrue is the boolean expression "True".
type AlwaysTrue struct{}

func (AlwaysTrue) String() string            { return "AlwaysTrue()" }
func (AlwaysTrue) Op() Operation             { return OpTrue }
func (AlwaysTrue) Negate() BooleanExpression { return AlwaysFalse{} }
func (AlwaysTrue) Equals(other BooleanExpression) bool {
	_, ok := other.(AlwaysTrue)

	return ok
}

// AlwaysFalse is the boolean expression "False".
type AlwaysFalse struct{}

func (AlwaysFalse) String() string            { return "AlwaysFalse()" }
func (AlwaysFalse) Op() Operation             { return OpFalse }
func (AlwaysFalse) Negate() BooleanExpression { return AlwaysTrue{} }
func (AlwaysFalse) Equals(other BooleanExpression) bool {
	_, ok := other.(AlwaysFalse)

	return ok
}

type NotExpr struct {
	child BooleanExpression
}

// NewNot creates a BooleanExpression representing a "Not" operation on the
// given argument. Simplifications are performed for double negation and for
// arguments which are themselves AlwaysTrue/AlwaysFalse.
func NewNot(child BooleanExpression) BooleanExpression {
	switch t := child.(type) {
	case NotExpr:
		return t.child
	case AlwaysTrue:
		return AlwaysFalse{}
	case AlwaysFalse:
		return AlwaysTrue{}
	}

	return NotExpr{child: child}
}

func (n NotExpr) String() string            { return fmt.Sprintf("Not(child=%s)", n.child) }
func (n NotExpr) Op() Operation             { return OpNot }
func (n NotExpr) Negate() BooleanExpression { return n.child }
func (n NotExpr) Child() BooleanExpression  { return n.child }
func (n NotExpr) Equals(other BooleanExpression) bool {
	rhs, ok := other.(NotExpr)

	return ok && n.child.Equals(rhs.child)
}

type AndExpr struct {
	left, right BooleanExpression
}

// NewAnd constructs an "And" boolean expression of the arguments, requiring
// at least two. Any AlwaysFalse argument collapses the whole conjunction;
// AlwaysTrue arguments are elided.
func NewAnd(left, right BooleanExpression, addl ...BooleanExpression) BooleanExpression {
	folded := newAnd(left, right)
	for _, a := range addl {
		folded = newAnd(folded, a)
	}

	return folded
}

func newAnd(left, right BooleanExpression) BooleanExpression {
	if left == nil || right == nil {
		panic(fmt.Errorf("%w: cannot construct And with nil arguments", ErrInvalidArgument))
	}

	switch {
	case left.Op() == OpFalse || right.Op() == OpFalse:
		return AlwaysFalse{}
	case left.Op() == OpTrue:
		return right
	case right.Op() == OpTrue:
		return left
	}

	return AndExpr{left: left, right: right}
}

func (a AndExpr) String() string {
	return fmt.Sprintf("And(left=%s, right=%s)", a.left, a.right)
}

func (a AndExpr) Op() Operation            { return OpAnd }
func (a AndExpr) Left() BooleanExpression  { return a.left }
func (a AndExpr) Right() BooleanExpression { return a.right }
func (a AndExpr) Negate() BooleanExpression {
	return NewOr(a.left.Negate(), a.right.Negate())
}

func (a AndExpr) Equals(other BooleanExpression) bool {
	rhs, ok := other.(AndExpr)
	if !ok {
		return false
	}

	return (a.left.Equals(rhs.left) && a.right.Equals(rhs.right)) ||
		(a.left.Equals(rhs.right) && a.right.Equals(rhs.left))
}

type OrExpr struct {
	left, right BooleanExpression
}

// NewOr constructs an "Or" boolean expression of the arguments, requiring
// at least two. Any AlwaysTrue argument collapses the whole disjunction;
// AlwaysFalse arguments are elided.
func NewOr(left, right BooleanExpression, addl ...BooleanExpression) BooleanExpression {
	folded := newOr(left, right)
	for _, a := range addl {
		folded = newOr(folded, a)
	}

	return folded
}

func newOr(left, right BooleanExpression) BooleanExpression {
	if left == nil || right == nil {
		panic(fmt.Errorf("%w: cannot construct Or with nil arguments", ErrInvalidArgument))
	}

	switch {
	case left.Op() == OpTrue || right.Op() == OpTrue:
		return AlwaysTrue{}
	case left.Op() == OpFalse:
		return right
	case right.Op() == OpFalse:
		return left
	}

	return OrExpr{left: left, right: right}
}

func (o OrExpr) String() string {
	return fmt.Sprintf("Or(left=%s, right=%s)", o.left, o.right)
}

func (o OrExpr) Op() Operation            { return OpOr }
func (o OrExpr) Left() BooleanExpression  { return o.left }
func (o OrExpr) Right() BooleanExpression { return o.right }
func (o OrExpr) Negate() BooleanExpression {
	return NewAnd(o.left.Negate(), o.right.Negate())
}

func (o OrExpr) Equals(other BooleanExpression) bool {
	rhs, ok := other.(OrExpr)
	if !ok {
		return false
	}

	return (o.left.Equals(rhs.left) && o.right.Equals(rhs.right)) ||
		(o.left.Equals(rhs.right) && o.right.Equals(rhs.left))
}

// Predicate is a boolean expression testing a single referenced column.
type Predicate interface {
	BooleanExpression
	Ref() Reference
}

// UnaryPredicate tests a column without a comparison value: IsNull, NotNull.
type UnaryPredicate struct {
	op  Operation
	ref Reference
}

func (u UnaryPredicate) String() string {
	return fmt.Sprintf("%s(term=%s)", u.op, u.ref)
}

func (u UnaryPredicate) Op() Operation { return u.op }
func (u UnaryPredicate) Ref() Reference { return u.ref }
func (u UnaryPredicate) Negate() BooleanExpression {
	return UnaryPredicate{op: u.op.Negate(), ref: u.ref}
}

func (u UnaryPredicate) Equals(other BooleanExpression) bool {
	rhs, ok := other.(UnaryPredicate)

	return ok && u.op == rhs.op && u.ref == rhs.ref
}

// IsNull creates a predicate matching rows where the column is null.
func IsNull(ref Reference) UnaryPredicate {
	return UnaryPredicate{op: OpIsNull, ref: ref}
}

// NotNull creates a predicate matching rows where the column is non-null.
func NotNull(ref Reference) UnaryPredicate {
	return UnaryPredicate{op: OpNotNull, ref: ref}
}

// LiteralPredicate compares a column against a single literal value.
type LiteralPredicate struct {
	op  Operation
	ref Reference
	lit Literal
}

func (l LiteralPredicate) String() string {
	return fmt.Sprintf("%s(term=%s, literal=%s)", l.op, l.ref, l.lit)
}

func (l LiteralPredicate) Op() Operation   { return l.op }
func (l LiteralPredicate) Ref() Reference  { return l.ref }
func (l LiteralPredicate) Literal() Literal { return l.lit }
func (l LiteralPredicate) Negate() BooleanExpression {
	switch l.op {
	case OpLike, OpStartsWith:
		return NotExpr{child: l}
	}

	return LiteralPredicate{op: l.op.Negate(), ref: l.ref, lit: l.lit}
}

func (l LiteralPredicate) Equals(other BooleanExpression) bool {
	rhs, ok := other.(LiteralPredicate)

	return ok && l.op == rhs.op && l.ref == rhs.ref && l.lit.Equals(rhs.lit)
}

func newLiteralPredicate(op Operation, ref Reference, lit Literal) LiteralPredicate {
	if lit == nil {
		panic(fmt.Errorf("%w: literal predicates require a non-nil literal; use IsNull for null tests",
			ErrInvalidArgument))
	}

	return LiteralPredicate{op: op, ref: ref, lit: lit}
}

// EqualTo creates an equality predicate. Null never equals anything; use
// IsNull to match nulls.
func EqualTo[T LiteralType](ref Reference, val T) LiteralPredicate {
	return newLiteralPredicate(OpEQ, ref, NewLiteral(val))
}

func NotEqualTo[T LiteralType](ref Reference, val T) LiteralPredicate {
	return newLiteralPredicate(OpNEQ, ref, NewLiteral(val))
}

func LessThan[T LiteralType](ref Reference, val T) LiteralPredicate {
	return newLiteralPredicate(OpLT, ref, NewLiteral(val))
}

func LessThanEqual[T LiteralType](ref Reference, val T) LiteralPredicate {
	return newLiteralPredicate(OpLTEQ, ref, NewLiteral(val))
}

func GreaterThan[T LiteralType](ref Reference, val T) LiteralPredicate {
	return newLiteralPredicate(OpGT, ref, NewLiteral(val))
}

func GreaterThanEqual[T LiteralType](ref Reference, val T) LiteralPredicate {
	return newLiteralPredicate(OpGTEQ, ref, NewLiteral(val))
}

// Like creates a pattern-match predicate using SQL LIKE semantics with the
// % wildcard.
func Like(ref Reference, pattern string) LiteralPredicate {
	return newLiteralPredicate(OpLike, ref, NewLiteral(pattern))
}

// StartsWith creates a prefix-match predicate on a string column.
func StartsWith(ref Reference, prefix string) LiteralPredicate {
	return newLiteralPredicate(OpStartsWith, ref, NewLiteral(prefix))
}

// NewPredicate constructs a literal predicate for an already-built Literal,
// for callers that construct literals dynamically.
func NewPredicate(op Operation, ref Reference, lit Literal) LiteralPredicate {
	switch op {
	case OpEQ, OpNEQ, OpLT, OpLTEQ, OpGT, OpGTEQ, OpLike, OpStartsWith:
	default:
		panic(fmt.Errorf("%w: operation %s requires different predicate type",
			ErrInvalidArgument, op))
	}

	return newLiteralPredicate(op, ref, lit)
}

// SetPredicate tests membership of a column value in a literal set.
type SetPredicate struct {
	op   Operation
	ref  Reference
	lits []Literal
}

func (s SetPredicate) String() string {
	strs := make([]string, len(s.lits))
	for i, l := range s.lits {
		strs[i] = l.String()
	}

	return fmt.Sprintf("%s(term=%s, {%s})", s.op, s.ref, strings.Join(strs, ", "))
}

func (s SetPredicate) Op() Operation      { return s.op }
func (s SetPredicate) Ref() Reference     { return s.ref }
func (s SetPredicate) Literals() []Literal { return slices.Clone(s.lits) }
func (s SetPredicate) Negate() BooleanExpression {
	return SetPredicate{op: s.op.Negate(), ref: s.ref, lits: s.lits}
}

func (s SetPredicate) Equals(other BooleanExpression) bool {
	rhs, ok := other.(SetPredicate)
	if !ok || s.op != rhs.op || s.ref != rhs.ref || len(s.lits) != len(rhs.lits) {
		return false
	}

	for i, l := range s.lits {
		if !l.Equals(rhs.lits[i]) {
			return false
		}
	}

	return true
}

// IsIn creates a set membership predicate. An empty set is AlwaysFalse and
// a singleton set simplifies to equality.
func IsIn[T LiteralType](ref Reference, vals ...T) BooleanExpression {
	switch len(vals) {
	case 0:
		return AlwaysFalse{}
	case 1:
		return EqualTo(ref, vals[0])
	}

	lits := make([]Literal, len(vals))
	for i, v := range vals {
		lits[i] = NewLiteral(v)
	}

	return SetPredicate{op: OpIn, ref: ref, lits: lits}
}

// NotIn creates a negated set membership predicate. An empty set is
// AlwaysTrue and a singleton set simplifies to inequality.
func NotIn[T LiteralType](ref Reference, vals ...T) BooleanExpression {
	switch len(vals) {
	case 0:
		return AlwaysTrue{}
	case 1:
		return NotEqualTo(ref, vals[0])
	}

	lits := make([]Literal, len(vals))
	for i, v := range vals {
		lits[i] = NewLiteral(v)
	}

	return SetPredicate{op: OpNotIn, ref: ref, lits: lits}
}

// NewSetPredicate constructs a set predicate for already-built Literals.
func NewSetPredicate(op Operation, ref Reference, lits []Literal) BooleanExpression {
	if op != OpIn && op != OpNotIn {
		panic(fmt.Errorf("%w: operation %s requires different predicate type",
			ErrInvalidArgument, op))
	}

	switch len(lits) {
	case 0:
		if op == OpIn {
			return AlwaysFalse{}
		}

		return AlwaysTrue{}
	case 1:
		eq := OpEQ
		if op == OpNotIn {
			eq = OpNEQ
		}

		return newLiteralPredicate(eq, ref, lits[0])
	}

	return SetPredicate{op: op, ref: ref, lits: slices.Clone(lits)}
}
