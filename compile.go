package filter

import (
	"strconv"
	"strings"
	"time"
)

// QueryBuilder is the remote query-building capability consumed by Compile.
// Chained per-field calls are implicitly conjoined by the remote builder;
// Or submits one raw disjunctive expression string in the builder's
// mini-language ("field.op.value" terms joined by commas, with "and(...)"
// and "or(...)" wrapping for compound terms).
type QueryBuilder interface {
	Eq(field string, value any) QueryBuilder
	Neq(field string, value any) QueryBuilder
	Gt(field string, value any) QueryBuilder
	Gte(field string, value any) QueryBuilder
	Lt(field string, value any) QueryBuilder
	Lte(field string, value any) QueryBuilder

	// Ilike applies a case-insensitive pattern match ('%' wildcards).
	Ilike(field, pattern string) QueryBuilder

	// Is compares against null or a boolean.
	Is(field string, value any) QueryBuilder

	// Contains applies array containment for multi-valued fields.
	Contains(field string, values []string) QueryBuilder

	// Not negates a single raw operator application.
	Not(field, operator string, value any) QueryBuilder

	// Or applies one disjunctive expression string.
	Or(expression string) QueryBuilder
}

// CompileOptions configures compilation. A nil options value uses the
// defaults: no field-type directory, local calendar days, the wall clock,
// and fail-open unknown-operator handling.
type CompileOptions struct {
	// FieldTypes enables type-aware operator dispatch. Fields absent from
	// the directory use scalar semantics.
	FieldTypes FieldTypes

	// Location is the calendar used to resolve date-only values.
	// Nil means time.Local.
	Location *time.Location

	// Now supplies the clock used to resolve TokenToday and the
	// date_today/date_next_days windows. Nil means time.Now.
	Now func() time.Time

	// UnknownOperators selects fail-open (default) or fail-closed handling.
	UnknownOperators UnknownOperatorMode
}

func (o *CompileOptions) location() *time.Location {
	if o == nil || o.Location == nil {
		return time.Local
	}
	return o.Location
}

func (o *CompileOptions) now() time.Time {
	if o == nil || o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func (o *CompileOptions) fieldType(fieldID string) FieldType {
	if o == nil || o.FieldTypes == nil {
		return ""
	}
	return o.FieldTypes[fieldID]
}

func (o *CompileOptions) failClosed() bool {
	return o != nil && o.UnknownOperators == FailClosed
}

// Compile translates a tree into calls on the remote query builder and
// returns the builder. An empty or absent tree returns the builder
// unchanged (no-op means match-all). Unknown operators are skipped.
func Compile(qb QueryBuilder, t Tree, opts *CompileOptions) QueryBuilder {
	out, err := CompileE(qb, t, opts)
	if err != nil {
		return qb
	}
	return out
}

// CompileE is Compile with an error channel: under FailClosed options an
// unknown operator aborts compilation with an UnknownOperatorError instead
// of degrading to a no-op.
func CompileE(qb QueryBuilder, t Tree, opts *CompileOptions) (QueryBuilder, error) {
	return compileGroup(qb, Normalize(t), opts)
}

func compileGroup(qb QueryBuilder, g *Group, opts *CompileOptions) (QueryBuilder, error) {
	if len(g.Children) == 0 {
		return qb, nil
	}

	if g.Combinator == CombinatorAnd {
		// Each child chains onto the same builder; the builder's own
		// default-AND semantics conjoin them.
		var err error
		for _, child := range g.Children {
			switch n := child.(type) {
			case *Condition:
				qb, err = applyCondition(qb, n, opts)
			case *Group:
				qb, err = compileGroup(qb, n, opts)
			}
			if err != nil {
				return qb, err
			}
		}
		return qb, nil
	}

	// OR group: serialize children into one disjunctive expression. A group
	// nested directly inside the OR becomes a wrapped and(...)/or(...)
	// term, so one level of nesting compiles faithfully; anything deeper
	// cannot be expressed in the mini-language and is skipped.
	//
	// A vacuously true child (a group with no conditions anywhere under
	// it) makes the whole disjunction match everything, so no expression
	// is submitted at all. Dropping just that child would tighten the
	// filter relative to in-memory evaluation.
	for _, child := range g.Children {
		if sub, ok := child.(*Group); ok && vacuousGroup(sub) {
			return qb, nil
		}
	}
	var terms []string
	for _, child := range g.Children {
		switch n := child.(type) {
		case *Condition:
			term, err := conditionTerm(n, opts)
			if err != nil {
				return qb, err
			}
			if term != "" {
				terms = append(terms, term)
			}
		case *Group:
			term, err := groupTerm(n, opts)
			if err != nil {
				return qb, err
			}
			if term != "" {
				terms = append(terms, term)
			}
		}
	}
	if len(terms) == 0 {
		return qb, nil
	}
	return qb.Or(strings.Join(terms, ",")), nil
}

// vacuousGroup reports whether a group holds no conditions at any depth,
// meaning it evaluates true for every row.
func vacuousGroup(g *Group) bool {
	for _, child := range g.Children {
		sub, ok := child.(*Group)
		if !ok || !vacuousGroup(sub) {
			return false
		}
	}
	return true
}

// applyCondition compiles one condition as chained builder calls,
// dispatching on the field's declared type when a directory is supplied.
func applyCondition(qb QueryBuilder, c *Condition, opts *CompileOptions) (QueryBuilder, error) {
	value := resolveToday(c.Value, opts.now(), opts.location())

	switch opts.fieldType(c.FieldID) {
	case FieldTypeMultiSelect:
		if q, ok := applyMultiSelect(qb, c, value); ok {
			return q, nil
		}
	case FieldTypeBoolean:
		if q, ok := applyBoolean(qb, c, value); ok {
			return q, nil
		}
	}

	switch c.Operator {
	case OpEqual:
		return qb.Eq(c.FieldID, value), nil
	case OpNotEqual:
		return qb.Neq(c.FieldID, value), nil
	case OpContains:
		return qb.Ilike(c.FieldID, "%"+valueString(value)+"%"), nil
	case OpNotContains:
		return qb.Not(c.FieldID, "ilike", "%"+valueString(value)+"%"), nil
	case OpIsEmpty:
		return qb.Or(c.FieldID + ".is.null," + c.FieldID + ".eq."), nil
	case OpIsNotEmpty:
		return qb.Not(c.FieldID, "is", nil).Neq(c.FieldID, ""), nil
	case OpGreaterThan:
		return qb.Gt(c.FieldID, value), nil
	case OpGreaterThanOrEqual:
		return qb.Gte(c.FieldID, value), nil
	case OpLessThan:
		return qb.Lt(c.FieldID, value), nil
	case OpLessThanOrEqual:
		return qb.Lte(c.FieldID, value), nil
	case OpDateEqual, OpDateBefore, OpDateAfter, OpDateOnOrBefore, OpDateOnOrAfter,
		OpDateRange, OpDateToday, OpDateNextDays:
		return applyDate(qb, c, value, opts), nil
	case OpHas, OpDoesNotHave:
		// Cross-record relationship existence needs a relationship-aware
		// subquery; until that exists the builder is returned unchanged.
		return qb, nil
	default:
		if opts.failClosed() {
			return qb, &UnknownOperatorError{FieldID: c.FieldID, Operator: c.Operator}
		}
		return qb, nil
	}
}

// applyMultiSelect handles the operators with array semantics on
// multi-valued selection fields. Operators without array semantics fall
// through to scalar handling (ok=false).
func applyMultiSelect(qb QueryBuilder, c *Condition, value any) (QueryBuilder, bool) {
	switch c.Operator {
	case OpEqual, OpContains:
		return qb.Contains(c.FieldID, []string{valueString(value)}), true
	case OpNotEqual, OpNotContains:
		return qb.Not(c.FieldID, "cs", "{"+valueString(value)+"}"), true
	case OpIsEmpty:
		return qb.Or(c.FieldID + ".is.null," + c.FieldID + ".eq.{}"), true
	case OpIsNotEmpty:
		return qb.Not(c.FieldID, "is", nil).Neq(c.FieldID, "{}"), true
	default:
		return qb, false
	}
}

// applyBoolean coerces string/boolean value representations before
// equality on boolean fields. Uncoercible values fall through to scalar
// handling (ok=false).
func applyBoolean(qb QueryBuilder, c *Condition, value any) (QueryBuilder, bool) {
	b, ok := coerceBool(value)
	if !ok {
		return qb, false
	}
	switch c.Operator {
	case OpEqual:
		return qb.Is(c.FieldID, b), true
	case OpNotEqual:
		return qb.Is(c.FieldID, !b), true
	default:
		return qb, false
	}
}

// applyDate compiles a date operator as chained calls. Date-only values
// resolve through local-day boundary resolution; any other value is
// compared raw, letting the remote store interpret it.
func applyDate(qb QueryBuilder, c *Condition, value any, opts *CompileOptions) QueryBuilder {
	loc := opts.location()

	switch c.Operator {
	case OpDateToday:
		r := TodayRange(opts.now(), loc)
		return qb.Gte(c.FieldID, instantString(r.Start)).Lt(c.FieldID, instantString(r.End))
	case OpDateNextDays:
		n, ok := coerceInt(value)
		if !ok || n < 0 {
			return qb // no-op filter
		}
		r, _ := NextDaysRange(opts.now(), n, loc)
		return qb.Gte(c.FieldID, instantString(r.Start)).Lt(c.FieldID, instantString(r.End))
	case OpDateRange:
		dr, ok := value.(DateRange)
		if !ok {
			// Value-shape mismatch degrades to a single-point comparison.
			return dateComparison(qb, c.FieldID, OpDateEqual, value, loc)
		}
		start, okStart := LocalDayRange(dr.Start, loc)
		end, okEnd := LocalDayRange(dr.End, loc)
		if !okStart || !okEnd {
			return qb
		}
		return qb.Gte(c.FieldID, instantString(start.Start)).Lt(c.FieldID, instantString(end.End))
	default:
		return dateComparison(qb, c.FieldID, c.Operator, value, loc)
	}
}

func dateComparison(qb QueryBuilder, field string, op Operator, value any, loc *time.Location) QueryBuilder {
	day, isDay := value.(string)
	if !isDay || !IsDayString(day) {
		// Raw comparison on non date-only values.
		switch op {
		case OpDateEqual:
			return qb.Eq(field, value)
		case OpDateBefore:
			return qb.Lt(field, value)
		case OpDateAfter:
			return qb.Gt(field, value)
		case OpDateOnOrBefore:
			return qb.Lte(field, value)
		case OpDateOnOrAfter:
			return qb.Gte(field, value)
		}
		return qb
	}

	r, _ := LocalDayRange(day, loc)
	switch op {
	case OpDateEqual:
		return qb.Gte(field, instantString(r.Start)).Lt(field, instantString(r.End))
	case OpDateBefore:
		return qb.Lt(field, instantString(r.Start))
	case OpDateAfter:
		return qb.Gte(field, instantString(r.End))
	case OpDateOnOrBefore:
		return qb.Lt(field, instantString(r.End))
	case OpDateOnOrAfter:
		return qb.Gte(field, instantString(r.Start))
	}
	return qb
}

// groupTerm serializes a group nested inside an OR as one wrapped term.
// The mini-language cannot nest wrappers, so children that are themselves
// groups are skipped here.
func groupTerm(g *Group, opts *CompileOptions) (string, error) {
	var terms []string
	for _, child := range g.Children {
		c, ok := child.(*Condition)
		if !ok {
			continue
		}
		term, err := conditionTerm(c, opts)
		if err != nil {
			return "", err
		}
		if term != "" {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return "", nil
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	wrap := "and"
	if g.Combinator == CombinatorOr {
		wrap = "or"
	}
	return wrap + "(" + strings.Join(terms, ",") + ")", nil
}

// conditionTerm serializes one condition in the mini-language. An empty
// string means the condition contributes no term (fail-open skip or an
// intentionally uncompiled operator).
func conditionTerm(c *Condition, opts *CompileOptions) (string, error) {
	value := resolveToday(c.Value, opts.now(), opts.location())
	f := c.FieldID

	if opts.fieldType(f) == FieldTypeMultiSelect {
		if term, ok := multiSelectTerm(c, value); ok {
			return term, nil
		}
	}
	if opts.fieldType(f) == FieldTypeBoolean {
		if b, ok := coerceBool(value); ok {
			switch c.Operator {
			case OpEqual:
				return f + ".is." + strconv.FormatBool(b), nil
			case OpNotEqual:
				return f + ".is." + strconv.FormatBool(!b), nil
			}
		}
	}

	switch c.Operator {
	case OpEqual:
		return f + ".eq." + termValue(value), nil
	case OpNotEqual:
		return f + ".neq." + termValue(value), nil
	case OpContains:
		return f + ".ilike.*" + valueString(value) + "*", nil
	case OpNotContains:
		return f + ".not.ilike.*" + valueString(value) + "*", nil
	case OpIsEmpty:
		return "or(" + f + ".is.null," + f + ".eq.)", nil
	case OpIsNotEmpty:
		return "and(" + f + ".not.is.null," + f + ".neq.)", nil
	case OpGreaterThan:
		return f + ".gt." + termValue(value), nil
	case OpGreaterThanOrEqual:
		return f + ".gte." + termValue(value), nil
	case OpLessThan:
		return f + ".lt." + termValue(value), nil
	case OpLessThanOrEqual:
		return f + ".lte." + termValue(value), nil
	case OpDateEqual, OpDateBefore, OpDateAfter, OpDateOnOrBefore, OpDateOnOrAfter,
		OpDateRange, OpDateToday, OpDateNextDays:
		return dateTerm(c, value, opts), nil
	case OpHas, OpDoesNotHave:
		return "", nil
	default:
		if opts.failClosed() {
			return "", &UnknownOperatorError{FieldID: f, Operator: c.Operator}
		}
		return "", nil
	}
}

func multiSelectTerm(c *Condition, value any) (string, bool) {
	f := c.FieldID
	switch c.Operator {
	case OpEqual, OpContains:
		return f + ".cs.{" + valueString(value) + "}", true
	case OpNotEqual, OpNotContains:
		return f + ".not.cs.{" + valueString(value) + "}", true
	case OpIsEmpty:
		return "or(" + f + ".is.null," + f + ".eq.{})", true
	case OpIsNotEmpty:
		return "and(" + f + ".not.is.null," + f + ".neq.{})", true
	default:
		return "", false
	}
}

func dateTerm(c *Condition, value any, opts *CompileOptions) string {
	f := c.FieldID
	loc := opts.location()

	rangeTerm := func(r DayRange) string {
		return "and(" + f + ".gte." + instantString(r.Start) + "," + f + ".lt." + instantString(r.End) + ")"
	}

	switch c.Operator {
	case OpDateToday:
		return rangeTerm(TodayRange(opts.now(), loc))
	case OpDateNextDays:
		n, ok := coerceInt(value)
		if !ok || n < 0 {
			return ""
		}
		r, _ := NextDaysRange(opts.now(), n, loc)
		return rangeTerm(r)
	case OpDateRange:
		dr, ok := value.(DateRange)
		if !ok {
			return dateCompareTerm(f, OpDateEqual, value, loc)
		}
		start, okStart := LocalDayRange(dr.Start, loc)
		end, okEnd := LocalDayRange(dr.End, loc)
		if !okStart || !okEnd {
			return ""
		}
		return rangeTerm(DayRange{Start: start.Start, End: end.End})
	default:
		return dateCompareTerm(f, c.Operator, value, loc)
	}
}

func dateCompareTerm(f string, op Operator, value any, loc *time.Location) string {
	day, isDay := value.(string)
	if !isDay || !IsDayString(day) {
		switch op {
		case OpDateEqual:
			return f + ".eq." + termValue(value)
		case OpDateBefore:
			return f + ".lt." + termValue(value)
		case OpDateAfter:
			return f + ".gt." + termValue(value)
		case OpDateOnOrBefore:
			return f + ".lte." + termValue(value)
		case OpDateOnOrAfter:
			return f + ".gte." + termValue(value)
		}
		return ""
	}

	r, _ := LocalDayRange(day, loc)
	switch op {
	case OpDateEqual:
		return "and(" + f + ".gte." + instantString(r.Start) + "," + f + ".lt." + instantString(r.End) + ")"
	case OpDateBefore:
		return f + ".lt." + instantString(r.Start)
	case OpDateAfter:
		return f + ".gte." + instantString(r.End)
	case OpDateOnOrBefore:
		return f + ".lt." + instantString(r.End)
	case OpDateOnOrAfter:
		return f + ".gte." + instantString(r.Start)
	}
	return ""
}

// instantString formats a range bound for the remote store.
func instantString(t time.Time) string {
	return t.Format(time.RFC3339)
}

// termValue renders a value for a mini-language term, quoting strings that
// would collide with the term syntax.
func termValue(v any) string {
	s := valueString(v)
	if strings.ContainsAny(s, ",().") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}

// valueString renders a value as its plain string form.
func valueString(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return ""
	}
}

// coerceBool accepts boolean values and their common string encodings.
func coerceBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(x) {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
	}
	return false, false
}

// coerceInt accepts integral values and their string/float encodings.
func coerceInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x != x || x != float64(int(x)) {
			return 0, false
		}
		return int(x), true
	case string:
		n, err := strconv.Atoi(x)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
