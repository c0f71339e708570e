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

package sarg

import (
	"encoding/json"

	"github.com/parqbridge/parqbridge"
)

// Translate converts an engine filter expression into a Directive for the
// storage layer. Translation is best-effort and must never widen what a
// node admits beyond what the original expression admits:
//
//   - untranslatable conjuncts of an And are dropped, since the remaining
//     conjuncts still admit a superset of the matching rows;
//   - an untranslatable disjunct poisons the entire Or, since dropping one
//     branch of a disjunction would wrongly eliminate rows;
//   - Not never appears after rewrite except around pattern predicates,
//     which are untranslatable anyway.
//
// When nothing survives translation, or enabled is false, the returned
// zero-value Directive disables index filtering entirely.
func Translate(schema *parqbridge.Schema, expr parqbridge.BooleanExpression, enabled, caseSensitive bool) (Directive, error) {
	if !enabled || expr == nil || expr.Op() == parqbridge.OpTrue {
		return Directive{}, nil
	}

	rewritten, err := parqbridge.RewriteNotExpr(expr)
	if err != nil {
		return Directive{}, err
	}

	root, err := parqbridge.VisitExpr(rewritten, &translateVisitor{
		schema:        schema,
		caseSensitive: caseSensitive,
	})
	if err != nil {
		return Directive{}, err
	}

	if root == nil {
		return Directive{}, nil
	}

	data, err := json.Marshal(root)
	if err != nil {
		return Directive{}, err
	}

	return Directive{Sarg: data, UseIndexFilter: true}, nil
}

// translateVisitor produces a search argument node per expression node,
// using nil to mean "not expressible as a search argument".
type translateVisitor struct {
	schema        *parqbridge.Schema
	caseSensitive bool
}

func (translateVisitor) VisitTrue() *Node  { return nil }
func (translateVisitor) VisitFalse() *Node { return nil }
func (translateVisitor) VisitNot(child *Node) *Node {
	return nil
}

func (translateVisitor) VisitAnd(left, right *Node) *Node {
	if left == nil {
		return right
	}

	if right == nil {
		return left
	}

	return combine(OpAnd, left, right)
}

func (translateVisitor) VisitOr(left, right *Node) *Node {
	if left == nil || right == nil {
		return nil
	}

	return combine(OpOr, left, right)
}

// combine flattens nested nodes of the same operation so that
// a AND b AND c serializes as one three-child node.
func combine(op Op, left, right *Node) *Node {
	children := make([]*Node, 0, 2)
	for _, n := range []*Node{left, right} {
		if n.Op == op {
			children = append(children, n.Children...)
		} else {
			children = append(children, n)
		}
	}

	return &Node{Op: op, Children: children}
}

func (t translateVisitor) VisitPredicate(pred parqbridge.Predicate) *Node {
	var (
		field parqbridge.NestedField
		ok    bool
	)

	if t.caseSensitive {
		field, _, ok = t.schema.FindFieldByName(string(pred.Ref()))
	} else {
		field, _, ok = t.schema.FindFieldByNameCaseInsensitive(string(pred.Ref()))
	}

	if !ok {
		return nil
	}

	if _, primitive := field.Type.(parqbridge.PrimitiveType); !primitive {
		return nil
	}

	leaf := &Node{Column: field.Name, Type: field.Type}

	switch p := pred.(type) {
	case parqbridge.UnaryPredicate:
		switch p.Op() {
		case parqbridge.OpIsNull:
			leaf.Op = OpIsNull
		case parqbridge.OpNotNull:
			leaf.Op = OpNotNull
		default:
			return nil
		}

		return leaf
	case parqbridge.LiteralPredicate:
		switch p.Op() {
		case parqbridge.OpEQ:
			leaf.Op = OpEq
		case parqbridge.OpLT:
			leaf.Op = OpLt
		case parqbridge.OpLTEQ:
			leaf.Op = OpLtEq
		case parqbridge.OpGT:
			leaf.Op = OpGt
		case parqbridge.OpGTEQ:
			leaf.Op = OpGtEq
		default:
			// NotEqual, Like and StartsWith cannot be answered from
			// min/max statistics
			return nil
		}

		lit, err := p.Literal().To(field.Type)
		if err != nil {
			return nil
		}
		leaf.Value = lit

		return leaf
	case parqbridge.SetPredicate:
		if p.Op() != parqbridge.OpIn {
			return nil
		}

		leaf.Op = OpIn
		for _, l := range p.Literals() {
			lit, err := l.To(field.Type)
			if err != nil {
				return nil
			}
			leaf.Values = append(leaf.Values, lit)
		}

		return leaf
	}

	return nil
}
