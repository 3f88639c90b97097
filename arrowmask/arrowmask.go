// Package arrowmask applies filter trees to Arrow records in memory. It
// bridges the row evaluator to columnar data: each record row is projected
// into a key→value view and evaluated, producing a boolean mask or a new
// record containing only the matching rows.
package arrowmask

import (
	"fmt"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"

	"github.com/tablegrid-io/filter-go"
)

// Mask evaluates a tree against every row of rec. The returned slice has
// one entry per row: true if the row matches. Column names are the field
// IDs unless the options carry an accessor that remaps them.
//
// Supported column types: STRING, LARGE_STRING, INT32, INT64, FLOAT64,
// BOOL, TIMESTAMP, DATE32, and LIST<STRING> (multi-valued selections).
// Columns of other types are rejected with an error.
func Mask(rec arrow.Record, t filter.Tree, opts *filter.EvalOptions) ([]bool, error) {
	readers, err := columnReaders(rec)
	if err != nil {
		return nil, err
	}

	names := make([]string, rec.Schema().NumFields())
	for i, f := range rec.Schema().Fields() {
		names[i] = f.Name
	}

	mask := make([]bool, rec.NumRows())
	row := make(map[string]any, len(names))
	for i := range mask {
		for j, name := range names {
			row[name] = readers[j](i)
		}
		mask[i] = filter.Evaluate(row, t, opts)
	}
	return mask, nil
}

// Filter returns a new record holding only the rows matched by the tree.
// The caller owns the returned record and must Release it.
func Filter(mem memory.Allocator, rec arrow.Record, t filter.Tree, opts *filter.EvalOptions) (arrow.Record, error) {
	mask, err := Mask(rec, t, opts)
	if err != nil {
		return nil, err
	}

	builder := array.NewRecordBuilder(mem, rec.Schema())
	defer builder.Release()

	for i, keep := range mask {
		if !keep {
			continue
		}
		for j := 0; j < int(rec.NumCols()); j++ {
			if err := appendValue(builder.Field(j), rec.Column(j), i); err != nil {
				return nil, fmt.Errorf("arrowmask: column %s: %w", rec.Schema().Field(j).Name, err)
			}
		}
	}

	return builder.NewRecord(), nil
}

// columnReaders builds one per-row value reader per column.
func columnReaders(rec arrow.Record) ([]func(i int) any, error) {
	readers := make([]func(i int) any, rec.NumCols())
	for j := 0; j < int(rec.NumCols()); j++ {
		name := rec.Schema().Field(j).Name
		reader, err := columnReader(rec.Column(j))
		if err != nil {
			return nil, fmt.Errorf("arrowmask: column %s: %w", name, err)
		}
		readers[j] = reader
	}
	return readers, nil
}

func columnReader(col arrow.Array) (func(i int) any, error) {
	switch a := col.(type) {
	case *array.String:
		return nullable(a, func(i int) any { return a.Value(i) }), nil
	case *array.LargeString:
		return nullable(a, func(i int) any { return a.Value(i) }), nil
	case *array.Int32:
		return nullable(a, func(i int) any { return int64(a.Value(i)) }), nil
	case *array.Int64:
		return nullable(a, func(i int) any { return a.Value(i) }), nil
	case *array.Float64:
		return nullable(a, func(i int) any { return a.Value(i) }), nil
	case *array.Boolean:
		return nullable(a, func(i int) any { return a.Value(i) }), nil
	case *array.Timestamp:
		toTime, err := a.DataType().(*arrow.TimestampType).GetToTimeFunc()
		if err != nil {
			return nil, fmt.Errorf("timestamp conversion: %w", err)
		}
		return nullable(a, func(i int) any { return toTime(a.Value(i)) }), nil
	case *array.Date32:
		return nullable(a, func(i int) any { return a.Value(i).ToTime() }), nil
	case *array.List:
		values, ok := a.ListValues().(*array.String)
		if !ok {
			return nil, fmt.Errorf("unsupported list value type %s", a.ListValues().DataType())
		}
		return nullable(a, func(i int) any {
			start, end := a.ValueOffsets(i)
			out := make([]string, 0, end-start)
			for k := start; k < end; k++ {
				out = append(out, values.Value(int(k)))
			}
			return out
		}), nil
	default:
		return nil, fmt.Errorf("unsupported column type %s", col.DataType())
	}
}

func nullable(col arrow.Array, value func(i int) any) func(i int) any {
	return func(i int) any {
		if col.IsNull(i) {
			return nil
		}
		return value(i)
	}
}

// appendValue copies row i of col into the matching record builder field.
func appendValue(fb array.Builder, col arrow.Array, i int) error {
	if col.IsNull(i) {
		fb.AppendNull()
		return nil
	}

	switch a := col.(type) {
	case *array.String:
		fb.(*array.StringBuilder).Append(a.Value(i))
	case *array.LargeString:
		fb.(*array.LargeStringBuilder).Append(a.Value(i))
	case *array.Int32:
		fb.(*array.Int32Builder).Append(a.Value(i))
	case *array.Int64:
		fb.(*array.Int64Builder).Append(a.Value(i))
	case *array.Float64:
		fb.(*array.Float64Builder).Append(a.Value(i))
	case *array.Boolean:
		fb.(*array.BooleanBuilder).Append(a.Value(i))
	case *array.Timestamp:
		fb.(*array.TimestampBuilder).Append(a.Value(i))
	case *array.Date32:
		fb.(*array.Date32Builder).Append(a.Value(i))
	case *array.List:
		lb := fb.(*array.ListBuilder)
		vb := lb.ValueBuilder().(*array.StringBuilder)
		values := a.ListValues().(*array.String)
		lb.Append(true)
		start, end := a.ValueOffsets(i)
		for k := start; k < end; k++ {
			vb.Append(values.Value(int(k)))
		}
	default:
		return fmt.Errorf("unsupported column type %s", col.DataType())
	}
	return nil
}
