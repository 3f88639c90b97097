package wire

import (
	"testing"

	"github.com/tablegrid-io/filter-go"
)

func TestRoundTripCondition(t *testing.T) {
	original := filter.NewCondition("status", filter.OpEqual, "Published")

	data, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	restored, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	c, ok := restored.(*filter.Condition)
	if !ok {
		t.Fatalf("expected condition, got %#v", restored)
	}
	if c.FieldID != "status" || c.Operator != filter.OpEqual || c.Value != "Published" {
		t.Errorf("unexpected condition %#v", c)
	}
}

func TestRoundTripNestedGroups(t *testing.T) {
	original := filter.NewGroup(filter.CombinatorAnd,
		filter.NewCondition("status", filter.OpEqual, "Published"),
		filter.NewGroup(filter.CombinatorOr,
			filter.NewCondition("tag", filter.OpEqual, "a"),
			filter.NewCondition("tag", filter.OpEqual, "b"),
		),
	)

	data, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	restored, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	g, ok := restored.(*filter.Group)
	if !ok {
		t.Fatalf("expected group, got %#v", restored)
	}
	if g.Combinator != filter.CombinatorAnd || len(g.Children) != 2 {
		t.Fatalf("unexpected root %#v", g)
	}
	nested, ok := g.Children[1].(*filter.Group)
	if !ok {
		t.Fatalf("expected nested group to survive round trip")
	}
	if nested.Combinator != filter.CombinatorOr || len(nested.Children) != 2 {
		t.Errorf("unexpected nested group %#v", nested)
	}
}

func TestRoundTripDateRange(t *testing.T) {
	original := filter.NewCondition("created", filter.OpDateRange,
		filter.DateRange{Start: "2024-03-10", End: "2024-03-12"})

	data, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	restored, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	dr, ok := restored.(*filter.Condition).Value.(filter.DateRange)
	if !ok {
		t.Fatalf("expected DateRange to survive round trip")
	}
	if dr.Start != "2024-03-10" || dr.End != "2024-03-12" {
		t.Errorf("unexpected range %#v", dr)
	}
}

func TestRoundTripAbsent(t *testing.T) {
	data, err := Encode(nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty payload for absent tree, got %d bytes", len(data))
	}

	restored, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if restored != nil {
		t.Errorf("expected absent tree, got %#v", restored)
	}
}

func TestDecodeMalformedPayload(t *testing.T) {
	if _, err := Decode([]byte("not msgpack at all")); err == nil {
		t.Errorf("expected error for malformed payload")
	}
}

func TestCompressorRoundTrip(t *testing.T) {
	comp, err := NewCompressor()
	if err != nil {
		t.Fatalf("NewCompressor failed: %v", err)
	}
	defer comp.Close()

	decomp, err := NewDecompressor()
	if err != nil {
		t.Fatalf("NewDecompressor failed: %v", err)
	}
	defer decomp.Close()

	original := filter.NewGroup(filter.CombinatorOr,
		filter.NewCondition("tag", filter.OpEqual, "a"),
		filter.NewCondition("tag", filter.OpEqual, "b"),
	)

	compressed, err := comp.EncodeTree(original)
	if err != nil {
		t.Fatalf("EncodeTree failed: %v", err)
	}
	restored, err := decomp.DecodeTree(compressed)
	if err != nil {
		t.Fatalf("DecodeTree failed: %v", err)
	}

	g, ok := restored.(*filter.Group)
	if !ok {
		t.Fatalf("expected group, got %#v", restored)
	}
	if g.Combinator != filter.CombinatorOr || len(g.Children) != 2 {
		t.Errorf("unexpected group %#v", g)
	}
}

func TestCompressorAbsentTree(t *testing.T) {
	comp, err := NewCompressor()
	if err != nil {
		t.Fatalf("NewCompressor failed: %v", err)
	}
	defer comp.Close()

	compressed, err := comp.EncodeTree(nil)
	if err != nil {
		t.Fatalf("EncodeTree failed: %v", err)
	}
	if len(compressed) != 0 {
		t.Errorf("expected empty payload, got %d bytes", len(compressed))
	}
}
