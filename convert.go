package filter

import (
	"sort"
	"strconv"
)

// ConditionRow is the persisted form of a single filter condition.
// Rows with an empty GroupID are ungrouped and combine with implicit AND.
type ConditionRow struct {
	ID        string
	ViewID    string
	FieldName string
	Operator  Operator
	Value     any
	GroupID   string
	Order     int
}

// GroupRow is the persisted form of a filter group.
type GroupRow struct {
	ID         string
	ViewID     string
	Combinator Combinator
	Order      int
}

// ToTree assembles a tree from persisted rows. Ungrouped condition rows form
// one synthetic top-level AND group; each group row (by order index) becomes
// a group node whose children are its condition rows (by order index). A
// single resulting top-level node is returned directly, multiple nodes are
// wrapped in an enclosing AND group, and no rows at all yield nil.
func ToTree(conds []ConditionRow, groups []GroupRow) Tree {
	byGroup := make(map[string][]ConditionRow)
	var ungrouped []ConditionRow
	for _, c := range conds {
		if c.GroupID == "" {
			ungrouped = append(ungrouped, c)
			continue
		}
		byGroup[c.GroupID] = append(byGroup[c.GroupID], c)
	}

	var top []Tree
	if len(ungrouped) > 0 {
		top = append(top, &Group{Combinator: CombinatorAnd, Children: conditionNodes(ungrouped)})
	}

	ordered := make([]GroupRow, len(groups))
	copy(ordered, groups)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	for _, g := range ordered {
		top = append(top, &Group{Combinator: g.Combinator, Children: conditionNodes(byGroup[g.ID])})
	}

	switch len(top) {
	case 0:
		return nil
	case 1:
		return top[0]
	default:
		return &Group{Combinator: CombinatorAnd, Children: top}
	}
}

// conditionNodes maps sorted condition rows to leaf nodes, field_name to
// field_id 1:1.
func conditionNodes(rows []ConditionRow) []Tree {
	ordered := make([]ConditionRow, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	nodes := make([]Tree, 0, len(ordered))
	for _, r := range ordered {
		nodes = append(nodes, &Condition{FieldID: r.FieldName, Operator: r.Operator, Value: r.Value})
	}
	return nodes
}

// ToDBFormat converts a tree to persistable rows for the given view.
//
// A group is materialized as a stored row only if it has more than one
// child, contains a nested group, or its combinator is OR; a trivial
// single-child AND group is inlined as an ungrouped condition. Generated
// group rows carry placeholder IDs ("temp-0", "temp-1", ...): the caller
// performing the insert must write the group rows first and rewrite each
// condition's GroupID to the real identifier before inserting conditions.
//
// The conversion is lossy beyond one level of nesting below the top groups:
// conditions of deeper groups are flattened into their nearest materialized
// ancestor. This is a documented limitation of the flat relational shape,
// not an accident.
func ToDBFormat(t Tree, viewID string) ([]GroupRow, []ConditionRow) {
	root := Normalize(t)

	// A root AND group is implicit in the flat shape; its children are
	// stored directly. An OR root must itself be materialized.
	topLevel := root.Children
	if root.Combinator == CombinatorOr && len(root.Children) > 0 {
		topLevel = []Tree{root}
	}

	var groups []GroupRow
	var conds []ConditionRow
	nextTemp := 0
	ungroupedOrder := 0

	for _, child := range topLevel {
		switch n := child.(type) {
		case *Condition:
			conds = append(conds, conditionRow(n, viewID, "", ungroupedOrder))
			ungroupedOrder++
		case *Group:
			if !materializeGroup(n) {
				if len(n.Children) == 0 {
					continue
				}
				// Single-child AND group: inline as an ungrouped condition.
				if c, ok := n.Children[0].(*Condition); ok {
					conds = append(conds, conditionRow(c, viewID, "", ungroupedOrder))
					ungroupedOrder++
				}
				continue
			}
			id := "temp-" + strconv.Itoa(nextTemp)
			nextTemp++
			groups = append(groups, GroupRow{
				ID:         id,
				ViewID:     viewID,
				Combinator: n.Combinator,
				Order:      len(groups),
			})
			for i, c := range flattenConditions(n) {
				conds = append(conds, conditionRow(c, viewID, id, i))
			}
		}
	}

	return groups, conds
}

// materializeGroup reports whether a group needs its own stored row.
func materializeGroup(g *Group) bool {
	if len(g.Children) > 1 || g.Combinator == CombinatorOr {
		return true
	}
	for _, child := range g.Children {
		if _, ok := child.(*Group); ok {
			return true
		}
	}
	return false
}

// flattenConditions collects every leaf condition under g in stored child
// order, collapsing deeper nesting into the flat approximation.
func flattenConditions(g *Group) []*Condition {
	var out []*Condition
	for _, child := range g.Children {
		switch n := child.(type) {
		case *Condition:
			out = append(out, n)
		case *Group:
			out = append(out, flattenConditions(n)...)
		}
	}
	return out
}

func conditionRow(c *Condition, viewID, groupID string, order int) ConditionRow {
	return ConditionRow{
		ViewID:    viewID,
		FieldName: c.FieldID,
		Operator:  c.Operator,
		Value:     c.Value,
		GroupID:   groupID,
		Order:     order,
	}
}

// FromSimpleList wraps a flat list of ad hoc criteria in a single group
// using the supplied combinator. Used when filters come from lightweight
// configuration rather than stored rows.
func FromSimpleList(conds []*Condition, comb Combinator) Tree {
	if len(conds) == 0 {
		return nil
	}
	children := make([]Tree, 0, len(conds))
	for _, c := range conds {
		children = append(children, c)
	}
	return &Group{Combinator: comb, Children: children}
}
