// Package filter provides a canonical Boolean tree model for row-filtering
// criteria, together with the two consumers of that model: a compiler that
// translates a tree into calls on a remote query builder, and an evaluator
// that applies a tree directly to an in-memory record.
//
// The package is pure: it performs no I/O, holds no state between calls,
// and is safe to use from any number of goroutines.
//
// # Trees
//
// A filter is a Tree: a single Condition, a Group combining children with
// AND or OR, or nil (absent, which matches everything):
//
//	tree := filter.NewGroup(filter.CombinatorAnd,
//	    filter.NewCondition("status", filter.OpEqual, "Published"),
//	    filter.NewCondition("age", filter.OpGreaterThan, 18),
//	)
//
// Normalize canonicalizes any tree into a group-rooted shape before
// compilation or evaluation; both consumers do this internally.
//
// # Evaluating rows
//
// Evaluate applies a tree to a key→value row:
//
//	ok := filter.Evaluate(map[string]any{"status": "Published", "age": 30}, tree, nil)
//
// Pass EvalOptions to supply a field-type directory, a custom accessor for
// rows whose storage keys differ from field IDs, a fixed clock, or
// fail-closed unknown-operator handling.
//
// # Compiling queries
//
// Compile drives any implementation of the QueryBuilder capability:
//
//	qb = filter.Compile(qb, tree, &filter.CompileOptions{
//	    FieldTypes: filter.FieldTypes{"tags": filter.FieldTypeMultiSelect},
//	})
//
// AND groups chain conjunctive calls onto the builder; OR groups are
// serialized into one disjunctive expression string ("field.op.value"
// terms joined by commas, with and(...)/or(...) wrapping for one-level
// nested groups). For backends reached over SQL, the querysql subpackage
// encodes a tree into a WHERE clause with full nesting support.
//
// # Dates
//
// Date operators work on date-only values (YYYY-MM-DD). A date-only value
// is resolved into a half-open instant range covering the calendar day;
// LocalDayRange and UTCDayRange make the calendar choice explicit. The
// dynamic value TokenToday ("__TODAY__") is substituted with today's date
// at compile/evaluation time, never when the tree is built.
//
// # Persistence
//
// Trees are ephemeral. The persisted form is flat relational rows:
// ToTree assembles a tree from ConditionRow/GroupRow slices, and
// ToDBFormat converts a tree back, generating placeholder group IDs
// ("temp-0", ...) that the caller rewrites to real identifiers after
// inserting the group rows. Parse and Encode carry trees over JSON, and
// the wire subpackage provides a compact MessagePack form.
package filter
