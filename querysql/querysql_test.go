package querysql

import (
	"testing"
	"time"

	"github.com/tablegrid-io/filter-go"
)

func utcOptions() *Options {
	return &Options{Location: time.UTC}
}

func TestEncodeSimpleEquality(t *testing.T) {
	tree := filter.NewCondition("status", filter.OpEqual, "Published")

	enc := NewEncoder(nil)
	sql := enc.EncodeTree(tree)

	expected := "status = 'Published'"
	if sql != expected {
		t.Errorf("expected '%s', got '%s'", expected, sql)
	}
}

func TestEncodeScalarOperators(t *testing.T) {
	tests := []struct {
		op       filter.Operator
		value    any
		expected string
	}{
		{filter.OpEqual, 42, "col = 42"},
		{filter.OpNotEqual, 42, "col <> 42"},
		{filter.OpGreaterThan, 42, "col > 42"},
		{filter.OpGreaterThanOrEqual, 42, "col >= 42"},
		{filter.OpLessThan, 42, "col < 42"},
		{filter.OpLessThanOrEqual, 42, "col <= 42"},
		{filter.OpContains, "ann", "col ILIKE '%ann%'"},
		{filter.OpNotContains, "ann", "col NOT ILIKE '%ann%'"},
		{filter.OpIsEmpty, nil, "(col IS NULL OR col = '')"},
		{filter.OpIsNotEmpty, nil, "(col IS NOT NULL AND col <> '')"},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			enc := NewEncoder(nil)
			sql := enc.EncodeTree(filter.NewCondition("col", tt.op, tt.value))
			if sql != tt.expected {
				t.Errorf("expected '%s', got '%s'", tt.expected, sql)
			}
		})
	}
}

func TestEncodeAndGroup(t *testing.T) {
	tree := filter.NewGroup(filter.CombinatorAnd,
		filter.NewCondition("age", filter.OpGreaterThan, 18),
		filter.NewCondition("age", filter.OpLessThan, 65),
	)

	enc := NewEncoder(nil)
	sql := enc.EncodeTree(tree)

	expected := "(age > 18 AND age < 65)"
	if sql != expected {
		t.Errorf("expected '%s', got '%s'", expected, sql)
	}
}

func TestEncodeOrWithNestedAnd(t *testing.T) {
	// SQL expresses A OR (B AND C) faithfully at any depth, unlike the
	// remote-builder mini-language.
	tree := filter.NewGroup(filter.CombinatorOr,
		filter.NewCondition("a", filter.OpEqual, "1"),
		filter.NewGroup(filter.CombinatorAnd,
			filter.NewCondition("b", filter.OpEqual, "2"),
			filter.NewCondition("c", filter.OpEqual, "3"),
		),
	)

	enc := NewEncoder(nil)
	sql := enc.EncodeTree(tree)

	expected := "(a = '1' OR (b = '2' AND c = '3'))"
	if sql != expected {
		t.Errorf("expected '%s', got '%s'", expected, sql)
	}
}

func TestEncodeEmptyTree(t *testing.T) {
	enc := NewEncoder(nil)
	if sql := enc.EncodeTree(nil); sql != "" {
		t.Errorf("expected empty string for absent tree, got '%s'", sql)
	}
	if sql := enc.EncodeTree(filter.NewGroup(filter.CombinatorAnd)); sql != "" {
		t.Errorf("expected empty string for empty group, got '%s'", sql)
	}
}

func TestEncodeUnsupportedRules(t *testing.T) {
	unsupported := filter.NewCondition("links", filter.OpHas, "rec1")
	supported := filter.NewCondition("status", filter.OpEqual, "Published")

	// AND: skip unsupported children, keep others.
	enc := NewEncoder(nil)
	sql := enc.EncodeTree(filter.NewGroup(filter.CombinatorAnd, supported, unsupported))
	if expected := "status = 'Published'"; sql != expected {
		t.Errorf("expected '%s', got '%s'", expected, sql)
	}

	// OR: if any child is unsupported, skip the entire OR.
	sql = enc.EncodeTree(filter.NewGroup(filter.CombinatorOr, supported, unsupported))
	if sql != "" {
		t.Errorf("expected entire OR to be skipped, got '%s'", sql)
	}
}

func TestEncodeStringEscaping(t *testing.T) {
	tree := filter.NewCondition("name", filter.OpEqual, "O'Brien")

	enc := NewEncoder(nil)
	sql := enc.EncodeTree(tree)

	expected := "name = 'O''Brien'"
	if sql != expected {
		t.Errorf("expected '%s', got '%s'", expected, sql)
	}
}

func TestEncodeIdentifierQuoting(t *testing.T) {
	tests := []struct {
		field    string
		expected string
	}{
		{"status", "status = '1'"},
		{"select", `"select" = '1'`},
		{"weird name", `"weird name" = '1'`},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			enc := NewEncoder(nil)
			sql := enc.EncodeTree(filter.NewCondition(tt.field, filter.OpEqual, "1"))
			if sql != tt.expected {
				t.Errorf("expected '%s', got '%s'", tt.expected, sql)
			}
		})
	}
}

func TestEncodeColumnMapping(t *testing.T) {
	enc := NewEncoder(&Options{
		ColumnMapping: map[string]string{"user_id": "uid"},
	})
	sql := enc.EncodeTree(filter.NewCondition("user_id", filter.OpEqual, 7))
	if expected := "uid = 7"; sql != expected {
		t.Errorf("expected '%s', got '%s'", expected, sql)
	}
}

func TestEncodeColumnExpressions(t *testing.T) {
	// Expression mapping takes precedence over name mapping.
	enc := NewEncoder(&Options{
		ColumnMapping:     map[string]string{"full_name": "fname"},
		ColumnExpressions: map[string]string{"full_name": "CONCAT(first_name, ' ', last_name)"},
	})
	sql := enc.EncodeTree(filter.NewCondition("full_name", filter.OpContains, "ann"))
	if expected := "CONCAT(first_name, ' ', last_name) ILIKE '%ann%'"; sql != expected {
		t.Errorf("expected '%s', got '%s'", expected, sql)
	}
}

func TestEncodeMultiSelectField(t *testing.T) {
	enc := NewEncoder(&Options{
		FieldTypes: filter.FieldTypes{"tags": filter.FieldTypeMultiSelect},
	})

	tests := []struct {
		op       filter.Operator
		value    any
		expected string
	}{
		{filter.OpContains, "urgent", "list_contains(tags, 'urgent')"},
		{filter.OpNotContains, "urgent", "NOT list_contains(tags, 'urgent')"},
		{filter.OpIsEmpty, nil, "(tags IS NULL OR len(tags) = 0)"},
		{filter.OpIsNotEmpty, nil, "(tags IS NOT NULL AND len(tags) > 0)"},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			sql := enc.EncodeTree(filter.NewCondition("tags", tt.op, tt.value))
			if sql != tt.expected {
				t.Errorf("expected '%s', got '%s'", tt.expected, sql)
			}
		})
	}
}

func TestEncodeBooleanField(t *testing.T) {
	enc := NewEncoder(&Options{
		FieldTypes: filter.FieldTypes{"done": filter.FieldTypeBoolean},
	})

	sql := enc.EncodeTree(filter.NewCondition("done", filter.OpEqual, "true"))
	if expected := "done = TRUE"; sql != expected {
		t.Errorf("expected '%s', got '%s'", expected, sql)
	}

	sql = enc.EncodeTree(filter.NewCondition("done", filter.OpNotEqual, true))
	if expected := "done = FALSE"; sql != expected {
		t.Errorf("expected '%s', got '%s'", expected, sql)
	}
}

func TestEncodeDateEqual(t *testing.T) {
	enc := NewEncoder(utcOptions())
	sql := enc.EncodeTree(filter.NewCondition("created", filter.OpDateEqual, "2024-03-10"))

	expected := "(created >= TIMESTAMP '2024-03-10 00:00:00' AND created < TIMESTAMP '2024-03-11 00:00:00')"
	if sql != expected {
		t.Errorf("expected '%s', got '%s'", expected, sql)
	}
}

func TestEncodeDateComparisons(t *testing.T) {
	enc := NewEncoder(utcOptions())

	tests := []struct {
		op       filter.Operator
		expected string
	}{
		{filter.OpDateBefore, "created < TIMESTAMP '2024-03-10 00:00:00'"},
		{filter.OpDateAfter, "created >= TIMESTAMP '2024-03-11 00:00:00'"},
		{filter.OpDateOnOrBefore, "created < TIMESTAMP '2024-03-11 00:00:00'"},
		{filter.OpDateOnOrAfter, "created >= TIMESTAMP '2024-03-10 00:00:00'"},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			sql := enc.EncodeTree(filter.NewCondition("created", tt.op, "2024-03-10"))
			if sql != tt.expected {
				t.Errorf("expected '%s', got '%s'", tt.expected, sql)
			}
		})
	}
}

func TestEncodeDateNextDays(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	enc := NewEncoder(&Options{Location: time.UTC, Now: func() time.Time { return now }})

	sql := enc.EncodeTree(filter.NewCondition("due", filter.OpDateNextDays, 2))
	expected := "(due >= TIMESTAMP '2024-03-10 00:00:00' AND due < TIMESTAMP '2024-03-13 00:00:00')"
	if sql != expected {
		t.Errorf("expected '%s', got '%s'", expected, sql)
	}

	if sql := enc.EncodeTree(filter.NewCondition("due", filter.OpDateNextDays, -1)); sql != "" {
		t.Errorf("expected no-op for negative n, got '%s'", sql)
	}
}

func TestEncodeTodayToken(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	enc := NewEncoder(&Options{Location: time.UTC, Now: func() time.Time { return now }})

	sql := enc.EncodeTree(filter.NewCondition("due", filter.OpDateEqual, filter.TokenToday))
	expected := "(due >= TIMESTAMP '2024-03-10 00:00:00' AND due < TIMESTAMP '2024-03-11 00:00:00')"
	if sql != expected {
		t.Errorf("expected '%s', got '%s'", expected, sql)
	}
}

func TestEncodeUnknownOperator(t *testing.T) {
	enc := NewEncoder(nil)
	if sql := enc.EncodeTree(filter.NewCondition("f", filter.Operator("frobnicate"), 1)); sql != "" {
		t.Errorf("expected unknown operator to encode to nothing, got '%s'", sql)
	}
}
