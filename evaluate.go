package filter

import (
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// EvalOptions configures evaluation. A nil options value uses the defaults:
// direct key lookup, local calendar days, the wall clock, and fail-open
// unknown-operator handling.
type EvalOptions struct {
	// FieldTypes enables type-aware dispatch, mirroring Compile. Fields
	// absent from the directory use scalar semantics.
	FieldTypes FieldTypes

	// Accessor resolves a field's value from the row when the logical
	// field key differs from the storage key. Nil means row[fieldID].
	Accessor func(row map[string]any, fieldID string) any

	// Location is the calendar used to resolve date-only values.
	// Nil means time.Local.
	Location *time.Location

	// Now supplies the clock used to resolve TokenToday and the
	// date_today/date_next_days windows. Nil means time.Now.
	Now func() time.Time

	// UnknownOperators selects fail-open (default) or fail-closed handling.
	UnknownOperators UnknownOperatorMode
}

func (o *EvalOptions) location() *time.Location {
	if o == nil || o.Location == nil {
		return time.Local
	}
	return o.Location
}

func (o *EvalOptions) now() time.Time {
	if o == nil || o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func (o *EvalOptions) fieldValue(row map[string]any, fieldID string) any {
	if o != nil && o.Accessor != nil {
		return o.Accessor(row, fieldID)
	}
	return row[fieldID]
}

func (o *EvalOptions) fieldType(fieldID string) FieldType {
	if o == nil || o.FieldTypes == nil {
		return ""
	}
	return o.FieldTypes[fieldID]
}

func (o *EvalOptions) failClosed() bool {
	return o != nil && o.UnknownOperators == FailClosed
}

// Evaluate applies a tree to a single in-memory row. Pure and synchronous:
// no I/O, no shared state. An empty or absent tree, and any group with no
// children, is vacuously true. Unknown operators evaluate as true.
func Evaluate(row map[string]any, t Tree, opts *EvalOptions) bool {
	ok, err := EvaluateE(row, t, opts)
	if err != nil {
		return false
	}
	return ok
}

// EvaluateE is Evaluate with an error channel: under FailClosed options an
// unknown operator aborts evaluation with an UnknownOperatorError instead
// of treating the condition as true.
func EvaluateE(row map[string]any, t Tree, opts *EvalOptions) (bool, error) {
	return evalGroup(row, Normalize(t), opts)
}

func evalGroup(row map[string]any, g *Group, opts *EvalOptions) (bool, error) {
	if len(g.Children) == 0 {
		return true, nil
	}

	// Children are evaluated eagerly in stored order; AND/OR are
	// commutative here so short-circuiting would be an optimization only.
	all, any := true, false
	for _, child := range g.Children {
		var ok bool
		var err error
		switch n := child.(type) {
		case *Condition:
			ok, err = evalCondition(row, n, opts)
		case *Group:
			ok, err = evalGroup(row, n, opts)
		}
		if err != nil {
			return false, err
		}
		all = all && ok
		any = any || ok
	}

	if g.Combinator == CombinatorOr {
		return any, nil
	}
	return all, nil
}

func evalCondition(row map[string]any, c *Condition, opts *EvalOptions) (bool, error) {
	cell := opts.fieldValue(row, c.FieldID)
	value := resolveToday(c.Value, opts.now(), opts.location())

	switch opts.fieldType(c.FieldID) {
	case FieldTypeMultiSelect:
		if ok, handled := evalMultiSelect(cell, c.Operator, value); handled {
			return ok, nil
		}
	case FieldTypeBoolean:
		if ok, handled := evalBoolean(cell, c.Operator, value); handled {
			return ok, nil
		}
	}

	switch c.Operator {
	case OpEqual:
		return looseEqual(cell, value), nil
	case OpNotEqual:
		return !looseEqual(cell, value), nil
	case OpContains:
		return containsFold(cell, value), nil
	case OpNotContains:
		return !containsFold(cell, value), nil
	case OpIsEmpty:
		return isEmptyValue(cell), nil
	case OpIsNotEmpty:
		return !isEmptyValue(cell), nil
	case OpGreaterThan:
		a, b := coerceFloat(cell), coerceFloat(value)
		return a > b, nil
	case OpGreaterThanOrEqual:
		a, b := coerceFloat(cell), coerceFloat(value)
		return a >= b, nil
	case OpLessThan:
		a, b := coerceFloat(cell), coerceFloat(value)
		return a < b, nil
	case OpLessThanOrEqual:
		a, b := coerceFloat(cell), coerceFloat(value)
		return a <= b, nil
	case OpDateEqual, OpDateBefore, OpDateAfter, OpDateOnOrBefore, OpDateOnOrAfter,
		OpDateRange, OpDateToday, OpDateNextDays:
		return evalDate(cell, c.Operator, value, opts), nil
	case OpHas, OpDoesNotHave:
		// Relationship traversal is not evaluated client-side; matches the
		// compiler's no-op so both consumers agree.
		return true, nil
	default:
		if opts.failClosed() {
			return false, &UnknownOperatorError{FieldID: c.FieldID, Operator: c.Operator}
		}
		return true, nil
	}
}

// evalMultiSelect handles the operators with array semantics on
// multi-valued selection fields, matching the compiler's array
// containment. Operators without array semantics fall through to scalar
// handling (handled=false); emptiness works on lists unchanged.
func evalMultiSelect(cell any, op Operator, value any) (bool, bool) {
	switch op {
	case OpEqual, OpContains:
		return listHas(cell, value), true
	case OpNotEqual, OpNotContains:
		return !listHas(cell, value), true
	default:
		return false, false
	}
}

// evalBoolean coerces string/boolean value representations before
// equality on boolean fields, matching the compiler's dispatch. An
// uncoercible condition value falls through to scalar handling; an
// uncoercible cell matches neither truth value.
func evalBoolean(cell any, op Operator, value any) (bool, bool) {
	b, ok := coerceBool(value)
	if !ok {
		return false, false
	}
	cb, cellOK := coerceBool(cell)
	switch op {
	case OpEqual:
		return cellOK && cb == b, true
	case OpNotEqual:
		return cellOK && cb != b, true
	default:
		return false, false
	}
}

// listHas reports whether a list cell contains the value, comparing by
// plain string form. A scalar cell is treated as a single-element list.
func listHas(cell, value any) bool {
	if cell == nil {
		return false
	}
	want := valueString(value)
	rv := reflect.ValueOf(cell)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if valueString(rv.Index(i).Interface()) == want {
				return true
			}
		}
		return false
	}
	return valueString(cell) == want
}

// evalDate compares the cell against the day bounds derived from the
// condition value, using the same local-day resolution as the compiler so
// client-side evaluation and remote filtering agree.
func evalDate(cell any, op Operator, value any, opts *EvalOptions) bool {
	loc := opts.location()

	switch op {
	case OpDateToday:
		t, ok := coerceTime(cell, loc)
		return ok && TodayRange(opts.now(), loc).Contains(t)
	case OpDateNextDays:
		n, okN := coerceInt(value)
		if !okN || n < 0 {
			return true // no-op filter
		}
		r, _ := NextDaysRange(opts.now(), n, loc)
		t, ok := coerceTime(cell, loc)
		return ok && r.Contains(t)
	case OpDateRange:
		dr, okRange := value.(DateRange)
		if !okRange {
			return evalDate(cell, OpDateEqual, value, opts)
		}
		start, okStart := LocalDayRange(dr.Start, loc)
		end, okEnd := LocalDayRange(dr.End, loc)
		if !okStart || !okEnd {
			return false
		}
		t, ok := coerceTime(cell, loc)
		return ok && DayRange{Start: start.Start, End: end.End}.Contains(t)
	}

	t, ok := coerceTime(cell, loc)
	if !ok {
		return false
	}

	day, isDay := value.(string)
	if !isDay || !IsDayString(day) {
		ref, okRef := coerceTime(value, loc)
		if !okRef {
			return false
		}
		switch op {
		case OpDateEqual:
			return t.Equal(ref)
		case OpDateBefore:
			return t.Before(ref)
		case OpDateAfter:
			return t.After(ref)
		case OpDateOnOrBefore:
			return !t.After(ref)
		case OpDateOnOrAfter:
			return !t.Before(ref)
		}
		return false
	}

	r, _ := LocalDayRange(day, loc)
	switch op {
	case OpDateEqual:
		return r.Contains(t)
	case OpDateBefore:
		return t.Before(r.Start)
	case OpDateAfter:
		return !t.Before(r.End)
	case OpDateOnOrBefore:
		return t.Before(r.End)
	case OpDateOnOrAfter:
		return !t.Before(r.Start)
	}
	return false
}

// looseEqual compares numerically when both sides coerce to numbers,
// otherwise by plain string form.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	fa, fb := coerceFloat(a), coerceFloat(b)
	if !math.IsNaN(fa) && !math.IsNaN(fb) {
		return fa == fb
	}
	return valueString(a) == valueString(b)
}

// containsFold performs a case-insensitive substring test.
func containsFold(cell, value any) bool {
	if cell == nil {
		return false
	}
	return strings.Contains(strings.ToLower(valueString(cell)), strings.ToLower(valueString(value)))
}

// isEmptyValue reports whether a cell is empty: nil, an empty string, or an
// empty slice/map. One shared definition serves both consumers.
func isEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	}
	return false
}

// coerceFloat converts a value to float64, yielding NaN for non-numeric
// input so that all ordering comparisons against it evaluate false.
func coerceFloat(v any) float64 {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// coerceTime converts a cell to an instant. Strings accept RFC 3339 (with
// or without fractional seconds), the common space-separated timestamp
// form, and bare date-only values resolved in loc; numbers are Unix
// seconds.
func coerceTime(v any, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
			if t, err := time.ParseInLocation(layout, x, loc); err == nil {
				return t, true
			}
		}
		if t, err := time.ParseInLocation(dayLayout, x, loc); err == nil {
			return t, true
		}
		return time.Time{}, false
	case int:
		return time.Unix(int64(x), 0).In(loc), true
	case int64:
		return time.Unix(x, 0).In(loc), true
	case float64:
		sec, frac := math.Modf(x)
		return time.Unix(int64(sec), int64(frac*1e9)).In(loc), true
	default:
		return time.Time{}, false
	}
}
