package filter

import "testing"

func TestNormalizeAbsent(t *testing.T) {
	g := Normalize(nil)
	if g.Combinator != CombinatorAnd {
		t.Errorf("expected AND combinator, got %s", g.Combinator)
	}
	if len(g.Children) != 0 {
		t.Errorf("expected no children, got %d", len(g.Children))
	}
}

func TestNormalizeCondition(t *testing.T) {
	c := NewCondition("status", OpEqual, "Published")
	g := Normalize(c)

	if g.Combinator != CombinatorAnd {
		t.Errorf("expected AND combinator, got %s", g.Combinator)
	}
	if len(g.Children) != 1 {
		t.Fatalf("expected singleton group, got %d children", len(g.Children))
	}
	if g.Children[0] != Tree(c) {
		t.Errorf("expected condition to be preserved")
	}
}

func TestNormalizeGroupPreserved(t *testing.T) {
	nested := NewGroup(CombinatorOr,
		NewCondition("tag", OpEqual, "a"),
		NewGroup(CombinatorAnd,
			NewCondition("x", OpEqual, "1"),
			NewCondition("y", OpEqual, "2"),
		),
	)

	g := Normalize(nested)
	if g != nested {
		t.Errorf("expected group to be returned as-is")
	}
	// Nesting is meaningful and must survive normalization.
	if _, ok := g.Children[1].(*Group); !ok {
		t.Errorf("expected nested group to be preserved")
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	trees := []Tree{
		nil,
		NewCondition("status", OpEqual, "Published"),
		NewGroup(CombinatorOr, NewCondition("tag", OpEqual, "a")),
		NewGroup(CombinatorAnd),
	}

	for _, tree := range trees {
		once := Normalize(tree)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("normalize is not idempotent for %#v", tree)
		}
	}
}
