// Package querysql encodes filter trees to SQL WHERE-clause text for
// backends reached over SQL rather than a remote query builder. Unlike the
// remote-builder compiler, the encoding supports arbitrary AND/OR nesting.
package querysql

import (
	"strconv"
	"strings"
	"time"

	"github.com/tablegrid-io/filter-go"
)

// Options configures encoding behavior.
type Options struct {
	// ColumnMapping maps field IDs to target column names.
	// Fields not in the map use their IDs as column names.
	ColumnMapping map[string]string

	// ColumnExpressions maps field IDs to SQL expressions.
	// Takes precedence over ColumnMapping.
	// Use for computed columns or complex transformations.
	ColumnExpressions map[string]string

	// FieldTypes enables type-aware operator dispatch.
	FieldTypes filter.FieldTypes

	// Location is the calendar used to resolve date-only values.
	// Nil means time.Local.
	Location *time.Location

	// Now supplies the clock for TokenToday and the date_today and
	// date_next_days windows. Nil means time.Now.
	Now func() time.Time
}

// Encoder encodes filter trees to SQL condition text.
type Encoder struct {
	opts *Options
}

// NewEncoder creates a SQL encoder.
// If opts is nil, default options are used.
func NewEncoder(opts *Options) *Encoder {
	if opts == nil {
		opts = &Options{}
	}
	return &Encoder{opts: opts}
}

// EncodeTree converts a tree to a WHERE clause body.
// Returns the condition portion without the "WHERE" keyword.
// Returns empty string if nothing can be encoded (match-all).
func (e *Encoder) EncodeTree(t filter.Tree) string {
	return e.encodeGroup(filter.Normalize(t))
}

// encodeGroup encodes AND/OR groups.
//
// Unsupported children follow the fail-open rules:
//   - For AND: skip unsupported children, keep others
//   - For OR: if any child is unsupported, skip the entire OR
//
// This produces the widest possible filter, which is safe because callers
// apply the authoritative evaluation elsewhere.
func (e *Encoder) encodeGroup(g *filter.Group) string {
	var parts []string
	for _, child := range g.Children {
		var encoded string
		switch n := child.(type) {
		case *filter.Condition:
			encoded = e.encodeCondition(n)
		case *filter.Group:
			encoded = e.encodeGroup(n)
		}
		if encoded != "" {
			parts = append(parts, encoded)
		}
	}

	if g.Combinator == filter.CombinatorOr && len(parts) != len(g.Children) {
		return ""
	}

	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return parts[0]
	}

	op := " AND "
	if g.Combinator == filter.CombinatorOr {
		op = " OR "
	}
	return "(" + strings.Join(parts, op) + ")"
}

// encodeCondition encodes one condition, dispatching on the field's
// declared type. Returns empty string for unsupported operators.
func (e *Encoder) encodeCondition(c *filter.Condition) string {
	col := e.column(c.FieldID)
	value := e.resolveToday(c.Value)

	switch e.fieldType(c.FieldID) {
	case filter.FieldTypeMultiSelect:
		if sql, ok := e.encodeMultiSelect(col, c.Operator, value); ok {
			return sql
		}
	case filter.FieldTypeBoolean:
		if sql, ok := e.encodeBoolean(col, c.Operator, value); ok {
			return sql
		}
	}

	switch c.Operator {
	case filter.OpEqual:
		return col + " = " + formatValue(value)
	case filter.OpNotEqual:
		return col + " <> " + formatValue(value)
	case filter.OpContains:
		return col + " ILIKE " + quoteLiteral("%"+plainString(value)+"%")
	case filter.OpNotContains:
		return col + " NOT ILIKE " + quoteLiteral("%"+plainString(value)+"%")
	case filter.OpIsEmpty:
		return "(" + col + " IS NULL OR " + col + " = '')"
	case filter.OpIsNotEmpty:
		return "(" + col + " IS NOT NULL AND " + col + " <> '')"
	case filter.OpGreaterThan:
		return col + " > " + formatValue(value)
	case filter.OpGreaterThanOrEqual:
		return col + " >= " + formatValue(value)
	case filter.OpLessThan:
		return col + " < " + formatValue(value)
	case filter.OpLessThanOrEqual:
		return col + " <= " + formatValue(value)
	case filter.OpDateEqual, filter.OpDateBefore, filter.OpDateAfter,
		filter.OpDateOnOrBefore, filter.OpDateOnOrAfter,
		filter.OpDateRange, filter.OpDateToday, filter.OpDateNextDays:
		return e.encodeDate(col, c.Operator, value)
	case filter.OpHas, filter.OpDoesNotHave:
		// Relationship existence needs a subquery design; not encoded.
		return ""
	default:
		return ""
	}
}

func (e *Encoder) encodeMultiSelect(col string, op filter.Operator, value any) (string, bool) {
	switch op {
	case filter.OpEqual, filter.OpContains:
		return "list_contains(" + col + ", " + quoteLiteral(plainString(value)) + ")", true
	case filter.OpNotEqual, filter.OpNotContains:
		return "NOT list_contains(" + col + ", " + quoteLiteral(plainString(value)) + ")", true
	case filter.OpIsEmpty:
		return "(" + col + " IS NULL OR len(" + col + ") = 0)", true
	case filter.OpIsNotEmpty:
		return "(" + col + " IS NOT NULL AND len(" + col + ") > 0)", true
	default:
		return "", false
	}
}

func (e *Encoder) encodeBoolean(col string, op filter.Operator, value any) (string, bool) {
	b, ok := coerceBool(value)
	if !ok {
		return "", false
	}
	switch op {
	case filter.OpEqual:
		return col + " = " + formatBool(b), true
	case filter.OpNotEqual:
		return col + " = " + formatBool(!b), true
	default:
		return "", false
	}
}

func (e *Encoder) encodeDate(col string, op filter.Operator, value any) string {
	loc := e.location()

	between := func(r filter.DayRange) string {
		return "(" + col + " >= " + formatTimestamp(r.Start) + " AND " + col + " < " + formatTimestamp(r.End) + ")"
	}

	switch op {
	case filter.OpDateToday:
		return between(filter.TodayRange(e.now(), loc))
	case filter.OpDateNextDays:
		n, ok := coerceInt(value)
		if !ok || n < 0 {
			return ""
		}
		r, _ := filter.NextDaysRange(e.now(), n, loc)
		return between(r)
	case filter.OpDateRange:
		dr, ok := value.(filter.DateRange)
		if !ok {
			return e.encodeDate(col, filter.OpDateEqual, value)
		}
		start, okStart := filter.LocalDayRange(dr.Start, loc)
		end, okEnd := filter.LocalDayRange(dr.End, loc)
		if !okStart || !okEnd {
			return ""
		}
		return between(filter.DayRange{Start: start.Start, End: end.End})
	}

	day, isDay := value.(string)
	if !isDay || !filter.IsDayString(day) {
		switch op {
		case filter.OpDateEqual:
			return col + " = " + formatValue(value)
		case filter.OpDateBefore:
			return col + " < " + formatValue(value)
		case filter.OpDateAfter:
			return col + " > " + formatValue(value)
		case filter.OpDateOnOrBefore:
			return col + " <= " + formatValue(value)
		case filter.OpDateOnOrAfter:
			return col + " >= " + formatValue(value)
		}
		return ""
	}

	r, _ := filter.LocalDayRange(day, loc)
	switch op {
	case filter.OpDateEqual:
		return between(r)
	case filter.OpDateBefore:
		return col + " < " + formatTimestamp(r.Start)
	case filter.OpDateAfter:
		return col + " >= " + formatTimestamp(r.End)
	case filter.OpDateOnOrBefore:
		return col + " < " + formatTimestamp(r.End)
	case filter.OpDateOnOrAfter:
		return col + " >= " + formatTimestamp(r.Start)
	}
	return ""
}

// column resolves a field ID to its SQL form, applying expression and name
// mappings in that precedence order.
func (e *Encoder) column(fieldID string) string {
	if e.opts.ColumnExpressions != nil {
		if expr, ok := e.opts.ColumnExpressions[fieldID]; ok {
			return expr
		}
	}
	name := fieldID
	if e.opts.ColumnMapping != nil {
		if mapped, ok := e.opts.ColumnMapping[fieldID]; ok {
			name = mapped
		}
	}
	return quoteIdentifier(name)
}

func (e *Encoder) fieldType(fieldID string) filter.FieldType {
	if e.opts.FieldTypes == nil {
		return ""
	}
	return e.opts.FieldTypes[fieldID]
}

func (e *Encoder) location() *time.Location {
	if e.opts.Location == nil {
		return time.Local
	}
	return e.opts.Location
}

func (e *Encoder) now() time.Time {
	if e.opts.Now == nil {
		return time.Now()
	}
	return e.opts.Now()
}

func (e *Encoder) resolveToday(value any) any {
	switch v := value.(type) {
	case string:
		if v == filter.TokenToday {
			return filter.Today(e.now(), e.location())
		}
	case filter.DateRange:
		if v.Start == filter.TokenToday {
			v.Start = filter.Today(e.now(), e.location())
		}
		if v.End == filter.TokenToday {
			v.End = filter.Today(e.now(), e.location())
		}
		return v
	}
	return value
}

// formatValue formats a value as a SQL literal.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quoteLiteral(x)
	case bool:
		return formatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return formatTimestamp(x)
	default:
		return quoteLiteral(plainString(v))
	}
}

func formatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func formatTimestamp(t time.Time) string {
	return "TIMESTAMP '" + t.UTC().Format("2006-01-02 15:04:05") + "'"
}

// plainString renders a value as its bare string form for use inside
// patterns and list literals.
func plainString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return formatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}

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

func coerceInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x != float64(int(x)) {
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
