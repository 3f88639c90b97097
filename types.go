package filter

// Combinator joins the children of a group.
type Combinator string

const (
	CombinatorAnd Combinator = "AND"
	CombinatorOr  Combinator = "OR"
)

// Operator identifies a condition's comparison operation.
type Operator string

const (
	// Scalar operators
	OpEqual       Operator = "equal"
	OpNotEqual    Operator = "not_equal"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpIsEmpty     Operator = "is_empty"
	OpIsNotEmpty  Operator = "is_not_empty"

	// Ordering operators
	OpGreaterThan        Operator = "greater_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThan           Operator = "less_than"
	OpLessThanOrEqual    Operator = "less_than_or_equal"

	// Date operators
	OpDateEqual      Operator = "date_equal"
	OpDateBefore     Operator = "date_before"
	OpDateAfter      Operator = "date_after"
	OpDateOnOrBefore Operator = "date_on_or_before"
	OpDateOnOrAfter  Operator = "date_on_or_after"
	OpDateRange      Operator = "date_range"
	OpDateToday      Operator = "date_today"
	OpDateNextDays   Operator = "date_next_days"

	// Relationship operators. Recognized but not compiled or evaluated;
	// see Compile for details.
	OpHas         Operator = "has"
	OpDoesNotHave Operator = "does_not_have"
)

// TokenToday is the dynamic value token substituted with today's date-only
// string at compile/evaluation time. It is never resolved when a tree is
// built, so a long-lived filter definition always means "today" at the
// moment it runs.
const TokenToday = "__TODAY__"

// DateRange is the {start, end} value pair used with OpDateRange.
// Start and End are date-only strings (YYYY-MM-DD).
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// FieldType is the declared type of a field, used for type-aware operator
// dispatch when a directory is supplied to Compile or Evaluate.
type FieldType string

const (
	FieldTypeText         FieldType = "text"
	FieldTypeLongText     FieldType = "long_text"
	FieldTypeNumber       FieldType = "number"
	FieldTypeBoolean      FieldType = "boolean"
	FieldTypeDate         FieldType = "date"
	FieldTypeSingleSelect FieldType = "single_select"
	FieldTypeMultiSelect  FieldType = "multi_select"
	FieldTypeLink         FieldType = "link"
)

// FieldTypes maps a field identifier to its declared type.
// Fields absent from the directory use scalar semantics.
type FieldTypes map[string]FieldType

// Tree is a Boolean filter expression: a single Condition, a Group, or nil
// (absent, which matches everything). Use a type switch over *Condition and
// *Group to walk a tree.
type Tree interface {
	// treeNode is a marker method to prevent external implementation.
	treeNode()
}

// Condition is a leaf node: one field/operator/value comparison.
// FieldID is an opaque key; the model is untyped with respect to field
// semantics until a FieldTypes directory is consulted.
type Condition struct {
	FieldID  string
	Operator Operator
	Value    any
}

// Group is an internal node combining children with AND or OR.
// A group with no children is vacuously true regardless of its combinator,
// so a cleared filter never hides all data.
type Group struct {
	Combinator Combinator
	Children   []Tree
}

func (*Condition) treeNode() {}
func (*Group) treeNode()     {}

// NewCondition builds a leaf comparison node.
func NewCondition(fieldID string, op Operator, value any) *Condition {
	return &Condition{FieldID: fieldID, Operator: op, Value: value}
}

// NewGroup builds an internal node from the given children.
func NewGroup(comb Combinator, children ...Tree) *Group {
	return &Group{Combinator: comb, Children: children}
}

// UnknownOperatorMode selects how Compile and Evaluate treat an operator
// outside the closed enumeration.
type UnknownOperatorMode int

const (
	// FailOpen ignores the condition: the evaluator treats it as true, the
	// compiler as a no-op. This is the safe-by-default behavior.
	FailOpen UnknownOperatorMode = iota

	// FailClosed rejects the whole filter. CompileE and EvaluateE return an
	// UnknownOperatorError; the error-less Compile returns the builder
	// unchanged and Evaluate returns false. Recommended for production
	// query compilation.
	FailClosed
)

// UnknownOperatorError reports an operator outside the closed enumeration
// under FailClosed mode.
type UnknownOperatorError struct {
	FieldID  string
	Operator Operator
}

func (e *UnknownOperatorError) Error() string {
	return "filter: unknown operator " + string(e.Operator) + " on field " + e.FieldID
}
