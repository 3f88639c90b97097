package filter

// Normalize canonicalizes any tree into a group-rooted shape:
//   - nil becomes an empty AND group (vacuously true downstream)
//   - a bare condition is wrapped in a singleton AND group
//   - a group is returned as-is; nested groups are meaningful and are
//     never flattened
//
// Normalize is idempotent.
func Normalize(t Tree) *Group {
	switch n := t.(type) {
	case nil:
		return &Group{Combinator: CombinatorAnd}
	case *Condition:
		return &Group{Combinator: CombinatorAnd, Children: []Tree{n}}
	case *Group:
		return n
	default:
		// Tree is sealed; no other implementations exist.
		return &Group{Combinator: CombinatorAnd}
	}
}
