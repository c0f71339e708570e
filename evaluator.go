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
	"strings"
)

// RowEvaluator applies a boolean expression to materialized rows. It is the
// residual filter for predicates the storage layer could not evaluate
// itself: every predicate is re-checked row by row, so dropping a predicate
// from the pushed-down filter never changes query results.
//
// Column references are resolved against the schema once, at construction.
// Comparisons involving a null slot evaluate to false, matching SQL
// semantics for non-null-aware operators.
type RowEvaluator struct {
	schema        *Schema
	expr          BooleanExpression
	caseSensitive bool
}

// NewRowEvaluator binds expr to schema, verifying that every referenced
// column exists and that every literal is comparable to its column's type.
func NewRowEvaluator(schema *Schema, expr BooleanExpression, caseSensitive bool) (*RowEvaluator, error) {
	ev := &RowEvaluator{schema: schema, expr: expr, caseSensitive: caseSensitive}

	if _, err := VisitExpr(expr, &bindCheckVisitor{ev: ev}); err != nil {
		return nil, err
	}

	return ev, nil
}

// Eval reports whether the row satisfies the expression.
func (ev *RowEvaluator) Eval(row Row) (bool, error) {
	return VisitExpr(ev.expr, &rowMatchVisitor{ev: ev, row: row})
}

// EvaluateRow binds and evaluates expr against a single row. Callers
// filtering many rows should construct a RowEvaluator once instead.
func EvaluateRow(schema *Schema, expr BooleanExpression, row Row) (bool, error) {
	ev, err := NewRowEvaluator(schema, expr, true)
	if err != nil {
		return false, err
	}

	return ev.Eval(row)
}

func (ev *RowEvaluator) bind(ref Reference) (NestedField, int) {
	var (
		field NestedField
		pos   int
		ok    bool
	)

	if ev.caseSensitive {
		field, pos, ok = ev.schema.FindFieldByName(string(ref))
	} else {
		field, pos, ok = ev.schema.FindFieldByNameCaseInsensitive(string(ref))
	}

	if !ok {
		panic(fmt.Errorf("%w: could not bind reference '%s', caseSensitive=%t",
			ErrSchemaMismatch, string(ref), ev.caseSensitive))
	}

	return field, pos
}

// bindCheckVisitor walks an expression verifying that it can be bound,
// without evaluating anything.
type bindCheckVisitor struct {
	ev *RowEvaluator
}

func (bindCheckVisitor) VisitTrue() bool           { return true }
func (bindCheckVisitor) VisitFalse() bool          { return true }
func (bindCheckVisitor) VisitNot(child bool) bool  { return child }
func (bindCheckVisitor) VisitAnd(l, r bool) bool   { return l && r }
func (bindCheckVisitor) VisitOr(l, r bool) bool    { return l || r }
func (b bindCheckVisitor) VisitPredicate(pred Predicate) bool {
	field, _ := b.ev.bind(pred.Ref())

	switch p := pred.(type) {
	case LiteralPredicate:
		if _, err := p.lit.To(field.Type); err != nil {
			panic(err)
		}
	case SetPredicate:
		for _, lit := range p.lits {
			if _, err := lit.To(field.Type); err != nil {
				panic(err)
			}
		}
	}

	return true
}

type rowMatchVisitor struct {
	ev  *RowEvaluator
	row Row
}

func (rowMatchVisitor) VisitTrue() bool          { return true }
func (rowMatchVisitor) VisitFalse() bool         { return false }
func (rowMatchVisitor) VisitNot(child bool) bool { return !child }
func (rowMatchVisitor) VisitAnd(l, r bool) bool  { return l && r }
func (rowMatchVisitor) VisitOr(l, r bool) bool   { return l || r }

func (v rowMatchVisitor) VisitPredicate(pred Predicate) bool {
	field, pos := v.ev.bind(pred.Ref())
	if pos >= len(v.row) {
		panic(fmt.Errorf("%w: row has %d slots, reference '%s' is at ordinal %d",
			ErrInvalidArgument, len(v.row), pred.Ref(), pos))
	}

	val := v.row[pos]

	switch pred.Op() {
	case OpIsNull:
		return val == nil
	case OpNotNull:
		return val != nil
	}

	if val == nil {
		return false
	}

	lhs, err := LiteralFromAny(field.Type, val)
	if err != nil {
		panic(err)
	}

	switch p := pred.(type) {
	case LiteralPredicate:
		switch p.op {
		case OpLike:
			return matchLike(string(p.lit.(StringLiteral)), val.(string))
		case OpStartsWith:
			return strings.HasPrefix(val.(string), string(p.lit.(StringLiteral)))
		}

		c, err := CompareLiterals(lhs, p.lit)
		if err != nil {
			panic(err)
		}

		switch p.op {
		case OpEQ:
			return c == 0
		case OpNEQ:
			return c != 0
		case OpLT:
			return c < 0
		case OpLTEQ:
			return c <= 0
		case OpGT:
			return c > 0
		case OpGTEQ:
			return c >= 0
		}
	case SetPredicate:
		found := false
		for _, lit := range p.lits {
			c, err := CompareLiterals(lhs, lit)
			if err != nil {
				panic(err)
			}

			if c == 0 {
				found = true

				break
			}
		}

		if p.op == OpIn {
			return found
		}

		return !found
	}

	panic(fmt.Errorf("%w: row evaluation of %s", ErrNotImplemented, pred))
}

// matchLike implements SQL LIKE matching with the % (any run) and
// _ (any single character) wildcards, without escape support. Matching is
// per rune, so _ consumes one character rather than one byte.
func matchLike(pattern, s string) bool {
	// greedy two-pointer match with backtracking on %
	p, r := []rune(pattern), []rune(s)
	var (
		pi, si       int
		starP, starS = -1, 0
	)

	for si < len(r) {
		switch {
		case pi < len(p) && (p[pi] == '_' || p[pi] == r[si]):
			pi++
			si++
		case pi < len(p) && p[pi] == '%':
			starP, starS = pi, si
			pi++
		case starP >= 0:
			starS++
			pi, si = starP+1, starS
		default:
			return false
		}
	}

	for pi < len(p) && p[pi] == '%' {
		pi++
	}

	return pi == len(p)
}
