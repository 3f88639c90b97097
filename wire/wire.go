// Package wire provides a compact MessagePack encoding of filter trees for
// service-to-service transport, with optional ZStandard compression for
// large filter payloads.
package wire

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tablegrid-io/filter-go"
)

// Node kinds in the wire form.
const (
	kindCondition = "condition"
	kindGroup     = "group"
)

// node is the wire shape of a tree node.
type node struct {
	Kind       string `msgpack:"kind"`
	FieldID    string `msgpack:"field_id,omitempty"`
	Operator   string `msgpack:"operator,omitempty"`
	Value      any    `msgpack:"value"`
	RangeStart string `msgpack:"range_start,omitempty"`
	RangeEnd   string `msgpack:"range_end,omitempty"`
	HasRange   bool   `msgpack:"has_range,omitempty"`
	Combinator string `msgpack:"combinator,omitempty"`
	Children   []node `msgpack:"children,omitempty"`
}

// Encode serializes a tree into MessagePack format.
// An absent (nil) tree encodes to an empty payload.
func Encode(t filter.Tree) ([]byte, error) {
	if t == nil {
		return []byte{}, nil
	}
	data, err := msgpack.Marshal(toNode(t))
	if err != nil {
		return nil, fmt.Errorf("wire: failed to encode tree: %w", err)
	}
	return data, nil
}

// Decode deserializes MessagePack data into a tree.
// Empty data decodes to an absent tree.
func Decode(data []byte) (filter.Tree, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var n node
	if err := msgpack.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("wire: failed to decode tree: %w", err)
	}
	t, err := fromNode(n)
	if err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}
	return t, nil
}

func toNode(t filter.Tree) node {
	switch v := t.(type) {
	case *filter.Condition:
		n := node{
			Kind:     kindCondition,
			FieldID:  v.FieldID,
			Operator: string(v.Operator),
		}
		if dr, ok := v.Value.(filter.DateRange); ok {
			n.HasRange = true
			n.RangeStart = dr.Start
			n.RangeEnd = dr.End
		} else {
			n.Value = v.Value
		}
		return n
	case *filter.Group:
		n := node{
			Kind:       kindGroup,
			Combinator: string(v.Combinator),
			Children:   make([]node, 0, len(v.Children)),
		}
		for _, child := range v.Children {
			n.Children = append(n.Children, toNode(child))
		}
		return n
	default:
		return node{}
	}
}

func fromNode(n node) (filter.Tree, error) {
	switch n.Kind {
	case kindCondition:
		value := n.Value
		if n.HasRange {
			value = filter.DateRange{Start: n.RangeStart, End: n.RangeEnd}
		}
		return &filter.Condition{
			FieldID:  n.FieldID,
			Operator: filter.Operator(n.Operator),
			Value:    value,
		}, nil
	case kindGroup:
		comb := filter.Combinator(n.Combinator)
		if comb != filter.CombinatorAnd && comb != filter.CombinatorOr {
			return nil, fmt.Errorf("invalid combinator %q", n.Combinator)
		}
		children := make([]filter.Tree, 0, len(n.Children))
		for i, child := range n.Children {
			c, err := fromNode(child)
			if err != nil {
				return nil, fmt.Errorf("child %d: %w", i, err)
			}
			children = append(children, c)
		}
		return &filter.Group{Combinator: comb, Children: children}, nil
	default:
		return nil, fmt.Errorf("unknown node kind %q", n.Kind)
	}
}
