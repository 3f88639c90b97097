package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Parse decodes the JSON wire form of a tree, as authored by a filter UI.
//
// A condition is an object with "field_id", "operator" and "value"; a group
// is an object with "operator" (AND/OR) and "children". The two are
// distinguished by the presence of "children" at the wire boundary only;
// the in-memory model stays a tagged union. Empty input and JSON null both
// decode to an absent tree.
//
// Error conditions:
//   - Invalid JSON syntax
//   - A node that is neither condition- nor group-shaped
//   - A group with a combinator other than AND or OR
//
// Unknown operator strings parse successfully; how they behave is decided
// by the consumer's UnknownOperatorMode.
func Parse(data []byte) (Tree, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	t, err := parseNode(data)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	return t, nil
}

// rawNode is the intermediate structure for two-phase parsing.
type rawNode struct {
	FieldID  *string           `json:"field_id"`
	Operator string            `json:"operator"`
	Value    json.RawMessage   `json:"value"`
	Children []json.RawMessage `json:"children"`
}

func parseNode(data json.RawMessage) (Tree, error) {
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid node: %w", err)
	}

	if raw.Children != nil {
		return parseGroup(raw)
	}
	if raw.FieldID != nil {
		return parseCondition(raw)
	}
	return nil, fmt.Errorf("node is neither a condition nor a group")
}

func parseGroup(raw rawNode) (*Group, error) {
	comb := Combinator(raw.Operator)
	if comb != CombinatorAnd && comb != CombinatorOr {
		return nil, fmt.Errorf("invalid group combinator %q", raw.Operator)
	}

	children := make([]Tree, 0, len(raw.Children))
	for i, child := range raw.Children {
		node, err := parseNode(child)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		children = append(children, node)
	}
	return &Group{Combinator: comb, Children: children}, nil
}

func parseCondition(raw rawNode) (*Condition, error) {
	op := Operator(raw.Operator)
	value, err := parseValue(op, raw.Value)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", *raw.FieldID, err)
	}
	return &Condition{FieldID: *raw.FieldID, Operator: op, Value: value}, nil
}

// parseValue decodes a condition value. The {start, end} pair of a
// date_range decodes to DateRange; a scalar supplied there is kept as-is
// and degrades to a single-point comparison downstream.
func parseValue(op Operator, data json.RawMessage) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}

	if op == OpDateRange {
		var dr DateRange
		if err := json.Unmarshal(data, &dr); err == nil && (dr.Start != "" || dr.End != "") {
			return dr, nil
		}
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("invalid value: %w", err)
	}
	return v, nil
}

// Encode produces the JSON wire form of a tree. An absent tree encodes to
// JSON null. Encode and Parse round-trip.
func Encode(t Tree) ([]byte, error) {
	data, err := json.Marshal(encodeNode(t))
	if err != nil {
		return nil, fmt.Errorf("filter: encode: %w", err)
	}
	return data, nil
}

type jsonCondition struct {
	FieldID  string   `json:"field_id"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

type jsonGroup struct {
	Operator Combinator `json:"operator"`
	Children []any      `json:"children"`
}

func encodeNode(t Tree) any {
	switch n := t.(type) {
	case *Condition:
		return jsonCondition{FieldID: n.FieldID, Operator: n.Operator, Value: n.Value}
	case *Group:
		children := make([]any, 0, len(n.Children))
		for _, child := range n.Children {
			children = append(children, encodeNode(child))
		}
		return jsonGroup{Operator: n.Combinator, Children: children}
	default:
		return nil
	}
}
