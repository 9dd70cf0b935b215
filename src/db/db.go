package db

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"git.handmade.network/hmn/syllabus/src/logging"
	"git.handmade.network/hmn/syllabus/src/oops"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Returned by the single-row helpers when the query produced no rows.
var NotFound = errors.New("not found")

var typeMap = pgtype.NewMap()

/*
Runs the query and maps every row to a T. The type argument cannot be
inferred. T is either a struct with `db` tags, used with the $columns
placeholder, or a single column type like int, string, or time.Time.
*/
func Query[T any](ctx context.Context, conn ConnOrTx, query string, args ...any) ([]*T, error) {
	it, err := QueryIterator[T](ctx, conn, query, args...)
	if err != nil {
		return nil, err
	}
	return it.ToSlice()
}

// Like Query, but returns NotFound when there are no rows.
func QueryOne[T any](ctx context.Context, conn ConnOrTx, query string, args ...any) (*T, error) {
	it, err := QueryIterator[T](ctx, conn, query, args...)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	if row, ok := it.Next(); ok {
		return row, nil
	}
	if err := it.rows.Err(); err != nil {
		return nil, err
	}
	return nil, NotFound
}

func QueryScalar[T any](ctx context.Context, conn ConnOrTx, query string, args ...any) ([]T, error) {
	rows, err := Query[T](ctx, conn, query, args...)
	if err != nil {
		return nil, err
	}
	values := make([]T, len(rows))
	for i, row := range rows {
		values[i] = *row
	}
	return values, nil
}

func QueryOneScalar[T any](ctx context.Context, conn ConnOrTx, query string, args ...any) (T, error) {
	row, err := QueryOne[T](ctx, conn, query, args...)
	if err != nil {
		var zero T
		return zero, err
	}
	return *row, nil
}

// The caller must Close the iterator, or drain it with ToSlice.
func QueryIterator[T any](ctx context.Context, conn ConnOrTx, query string, args ...any) (*Iterator[T], error) {
	m := mappingFor(reflect.TypeOf((*T)(nil)).Elem())

	rows, err := conn.Query(ctx, m.expand(query), args...)
	if err != nil {
		return nil, err
	}

	it := &Iterator[T]{
		mapping: m,
		rows:    rows,
		closed:  make(chan struct{}, 1),
	}

	// An abandoned request must not keep holding a pooled connection.
	if done := ctx.Done(); done != nil {
		go func() {
			select {
			case <-done:
				it.Close()
			case <-it.closed:
			}
		}()
	}

	return it, nil
}

// One selected column and where its value goes in the destination struct.
type column struct {
	// Tag names from the outermost struct inwards, including any prefix.
	name []string
	path []int
}

// The table-qualified name used in place of $columns. Nested structs are
// expected to come from a join aliased by the outer names joined with "_".
func (c column) qualifiedName() string {
	last := len(c.name) - 1
	if last == 0 {
		return c.name[0]
	}
	return strings.Join(c.name[:last], "_") + "." + c.name[last]
}

// How rows map onto one destination type.
type rowMapping struct {
	dest   reflect.Type
	scalar bool

	// Nil for scalars.
	columns []column
}

var mappings sync.Map // reflect.Type -> *rowMapping

func mappingFor(t reflect.Type) *rowMapping {
	if m, ok := mappings.Load(t); ok {
		return m.(*rowMapping)
	}

	m := &rowMapping{dest: t, scalar: typeIsQueryable(t)}
	if !m.scalar && t.Kind() == reflect.Struct {
		m.columns = structColumns(t, nil, nil)
	}
	actual, _ := mappings.LoadOrStore(t, m)
	return actual.(*rowMapping)
}

var reColumnsPlaceholder = regexp.MustCompile(`\$columns({(.*?)})?`)

// Replaces $columns, or $columns{prefix}, with the mapped column list.
func (m *rowMapping) expand(query string) string {
	match := reColumnsPlaceholder.FindStringSubmatch(query)
	if match == nil {
		return query
	}
	if m.dest.Kind() != reflect.Struct {
		panic("$columns can only be used when querying into a struct")
	}

	cols := m.columns
	if prefix := match[2]; prefix != "" {
		cols = structColumns(m.dest, nil, []string{prefix})
	}

	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.qualifiedName()
	}
	return reColumnsPlaceholder.ReplaceAllString(query, strings.Join(names, ", "))
}

// Collects the tagged fields of t, recursing into tagged struct fields.
// Embedded fields are skipped.
func structColumns(t reflect.Type, parentPath []int, parentName []string) []column {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		panic(fmt.Errorf("can only map struct fields to columns, got type '%v' (under '%v')", t, parentName))
	}

	var cols []column
	for _, field := range reflect.VisibleFields(t) {
		tag := field.Tag.Get("db")
		if tag == "" || len(field.Index) > 1 {
			continue
		}

		path := append(append([]int{}, parentPath...), field.Index...)
		name := append(append([]string{}, parentName...), tag)

		ft := field.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		switch {
		case typeIsQueryable(ft):
			cols = append(cols, column{name: name, path: path})
		case ft.Kind() == reflect.Struct:
			cols = append(cols, structColumns(ft, path, name)...)
		default:
			panic(fmt.Errorf("field '%s' in type %s has invalid type '%s'", field.Name, t, field.Type))
		}
	}
	return cols
}

/*
Whether a Go type can hold a single column value. Structs never do, except the
ones pgx knows how to decode. Named ints and strings are accepted so that enum
types like

	type Kind string

can be tagged directly.
*/
func typeIsQueryable(t reflect.Type) bool {
	switch t {
	case reflect.TypeOf(uuid.UUID{}), reflect.TypeOf(time.Time{}):
		return true
	}
	if _, ok := typeMap.TypeForValue(reflect.New(t).Elem().Interface()); ok {
		return true
	}
	return t.Kind() == reflect.Int || t.Kind() == reflect.String
}

type Iterator[T any] struct {
	mapping *rowMapping
	rows    pgx.Rows
	closed  chan struct{}
}

func (it *Iterator[T]) Next() (*T, bool) {
	if !it.rows.Next() {
		it.Close()
		return nil, false
	}

	vals, err := it.rows.Values()
	if err != nil {
		panic(oops.New(err, "failed to read row values"))
	}

	result := new(T)
	dest := reflect.ValueOf(result)
	if it.mapping.scalar {
		if len(vals) != 1 {
			panic(fmt.Errorf("tried to query a scalar value, but got %v values in the row", len(vals)))
		}
		if vals[0] != nil {
			assign(dest.Elem(), reflect.ValueOf(vals[0]))
		}
		return result, true
	}

	if len(vals) != len(it.mapping.columns) {
		panic(fmt.Errorf("query returned %d columns but %v maps %d", len(vals), it.mapping.dest, len(it.mapping.columns)))
	}
	for i, val := range vals {
		if val != nil {
			it.setColumn(dest, i, val)
		}
	}
	return result, true
}

func (it *Iterator[T]) setColumn(dest reflect.Value, i int, val any) {
	col := it.mapping.columns[i]
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Str("column", strings.Join(col.name, ".")).
				Interface("value", val).
				Str("value type", fmt.Sprintf("%T", val)).
				Msg("failed to map column")
			panic(fmt.Errorf("panic while setting column '%s': %v", strings.Join(col.name, "."), r))
		}
	}()

	field, _ := fieldAt(dest, col.path)
	if field.Kind() == reflect.Ptr {
		field.Set(reflect.New(field.Type().Elem()))
		field = field.Elem()
	}

	v := reflect.ValueOf(val)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	assign(field, v)
}

func assign(dest, value reflect.Value) {
	switch {
	case dest.Kind() >= reflect.Int && dest.Kind() <= reflect.Int64:
		dest.SetInt(value.Int())
	case value.Type().AssignableTo(dest.Type()):
		dest.Set(value)
	default:
		// e.g. pgx hands back uuids as [16]byte
		dest.Set(value.Convert(dest.Type()))
	}
}

func (it *Iterator[T]) Close() {
	it.rows.Close()
	select {
	case it.closed <- struct{}{}:
	default:
	}
}

// Reads all remaining rows and closes the iterator.
func (it *Iterator[T]) ToSlice() ([]*T, error) {
	defer it.Close()

	var result []*T
	for row, ok := it.Next(); ok; row, ok = it.Next() {
		result = append(result, row)
	}
	if err := it.rows.Err(); err != nil {
		return nil, oops.New(err, "error while iterating through db results")
	}
	return result, nil
}

// Walks a field path from a struct pointer, allocating nil struct pointers on
// the way.
func fieldAt(structPtr reflect.Value, path []int) (reflect.Value, reflect.StructField) {
	if len(path) == 0 {
		panic(oops.New(nil, "can't follow an empty path"))
	}
	if structPtr.Kind() != reflect.Ptr || structPtr.Elem().Kind() != reflect.Struct {
		panic(oops.New(nil, "expected a pointer to a struct; got value of type %s", structPtr.Type()))
	}

	val := structPtr
	var field reflect.StructField
	for _, i := range path {
		if val.Kind() == reflect.Ptr {
			if val.IsNil() {
				val.Set(reflect.New(val.Type().Elem()))
			}
			val = val.Elem()
		}
		field = val.Type().Field(i)
		val = val.Field(i)
	}
	return val, field
}
