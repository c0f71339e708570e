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

// Package sarg implements the search argument handed to the storage layer
// for stripe and row-group elimination. A search argument is a deliberately
// small expression language: and/or combinations of leaf comparisons that
// can be answered from column min/max/null-count statistics alone. It is an
// optimization hint, never a correctness mechanism; rows it admits are
// always re-filtered by the engine.
package sarg

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/apache/arrow-go/v18/arrow/decimal128"

	"github.com/parqbridge/parqbridge"
)

// Op is the operation of a single search argument node.
type Op string

const (
	OpAnd     Op = "and"
	OpOr      Op = "or"
	OpEq      Op = "eq"
	OpLt      Op = "lt"
	OpLtEq    Op = "lteq"
	OpGt      Op = "gt"
	OpGtEq    Op = "gteq"
	OpIn      Op = "in"
	OpIsNull  Op = "isnull"
	OpNotNull Op = "notnull"
)

// Directive tells a reader whether and how to perform index-based filtering
// for one scan. The zero value disables filtering, which is always safe.
type Directive struct {
	// Sarg is the JSON-serialized search argument tree, nil when no
	// predicate could be translated.
	Sarg []byte
	// UseIndexFilter enables row-group elimination against Sarg.
	UseIndexFilter bool
}

// Node is one node of a search argument tree. Interior nodes carry only Op
// and Children; leaves carry the column name, its logical type and the
// comparison value(s).
type Node struct {
	Op       Op
	Column   string
	Type     parqbridge.Type
	Value    parqbridge.Literal
	Values   []parqbridge.Literal
	Children []*Node
}

// Parse decodes a serialized search argument produced by Translate.
func Parse(data []byte) (*Node, error) {
	n := &Node{}
	if err := json.Unmarshal(data, n); err != nil {
		return nil, fmt.Errorf("%w: malformed search argument: %s",
			parqbridge.ErrInvalidArgument, err.Error())
	}

	return n, nil
}

type nodeJSON struct {
	Op       Op                `json:"op"`
	Column   string            `json:"column,omitempty"`
	Type     string            `json:"type,omitempty"`
	Value    json.RawMessage   `json:"value,omitempty"`
	Values   []json.RawMessage `json:"values,omitempty"`
	Children []*Node           `json:"children,omitempty"`
}

func (n *Node) MarshalJSON() ([]byte, error) {
	aux := nodeJSON{Op: n.Op, Column: n.Column, Children: n.Children}
	if n.Type != nil {
		aux.Type = n.Type.Type()
	}

	var err error
	if n.Value != nil {
		if aux.Value, err = encodeLiteral(n.Value); err != nil {
			return nil, err
		}
	}

	for _, lit := range n.Values {
		raw, err := encodeLiteral(lit)
		if err != nil {
			return nil, err
		}
		aux.Values = append(aux.Values, raw)
	}

	return json.Marshal(&aux)
}

func (n *Node) UnmarshalJSON(b []byte) error {
	var aux nodeJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	n.Op, n.Column, n.Children = aux.Op, aux.Column, aux.Children

	if aux.Type != "" {
		t, err := parqbridge.TypeFromString(aux.Type)
		if err != nil {
			return err
		}
		n.Type = t
	}

	var err error
	if aux.Value != nil {
		if n.Value, err = decodeLiteral(n.Type, aux.Value); err != nil {
			return err
		}
	}

	for _, raw := range aux.Values {
		lit, err := decodeLiteral(n.Type, raw)
		if err != nil {
			return err
		}
		n.Values = append(n.Values, lit)
	}

	return nil
}

// encodeLiteral renders a literal as a JSON scalar: booleans and numbers
// natively, binary as base64, decimals as the decimal string form so that
// no precision is lost in transit.
func encodeLiteral(lit parqbridge.Literal) (json.RawMessage, error) {
	switch v := lit.Any().(type) {
	case parqbridge.Decimal:
		return json.Marshal(v.Val.BigInt().String())
	case []byte:
		return json.Marshal(base64.StdEncoding.EncodeToString(v))
	default:
		return json.Marshal(v)
	}
}

func decodeLiteral(t parqbridge.Type, raw json.RawMessage) (parqbridge.Literal, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: search argument leaf with value but no type",
			parqbridge.ErrInvalidArgument)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	switch typ := t.(type) {
	case parqbridge.DecimalType:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: decimal value must be a string, got %T",
				parqbridge.ErrInvalidArgument, v)
		}

		unscaled, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("%w: invalid decimal value %q",
				parqbridge.ErrInvalidArgument, s)
		}

		return parqbridge.NewLiteral(parqbridge.Decimal{
			Val:   decimal128.FromBigInt(unscaled),
			Scale: typ.Scale(),
		}), nil
	case parqbridge.BinaryType:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: binary value must be base64, got %T",
				parqbridge.ErrInvalidArgument, v)
		}

		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, err
		}

		return parqbridge.NewLiteral(data), nil
	}

	if num, ok := v.(json.Number); ok {
		switch t.(type) {
		case parqbridge.Float32Type, parqbridge.Float64Type:
			f, err := num.Float64()
			if err != nil {
				return nil, err
			}
			v = f
		default:
			i, err := num.Int64()
			if err != nil {
				return nil, err
			}
			v = i
		}
	}

	return parqbridge.LiteralFromAny(t, v)
}
