package db

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructColumns(t *testing.T) {
	type CustomInt int
	type S struct {
		I   int        `db:"I"`
		PI  *int       `db:"PI"`
		CI  CustomInt  `db:"CI"`
		PCI *CustomInt `db:"PCI"`
		B   bool       `db:"B"`
		PB  *bool      `db:"PB"`

		NoTag int
	}
	type Nested struct {
		S  S  `db:"S"`
		PS *S `db:"PS"`

		NoTag S
	}

	cols := structColumns(reflect.TypeOf(Nested{}), nil, nil)

	var joined []string
	var paths [][]int
	for _, col := range cols {
		joined = append(joined, strings.Join(col.name, "."))
		paths = append(paths, col.path)
	}
	assert.Equal(t, []string{
		"S.I", "S.PI",
		"S.CI", "S.PCI",
		"S.B", "S.PB",
		"PS.I", "PS.PI",
		"PS.CI", "PS.PCI",
		"PS.B", "PS.PB",
	}, joined)
	assert.Equal(t, [][]int{
		{0, 0}, {0, 1}, {0, 2}, {0, 3}, {0, 4}, {0, 5},
		{1, 0}, {1, 1}, {1, 2}, {1, 3}, {1, 4}, {1, 5},
	}, paths)

	testStruct := Nested{}
	for i, path := range paths {
		val, field := fieldAt(reflect.ValueOf(&testStruct), path)
		assert.True(t, val.IsValid())
		assert.True(t, strings.Contains(joined[i], field.Name))
	}
	assert.NotNil(t, testStruct.PS, "following a path through a nil pointer should allocate it")
}

func TestExpandColumns(t *testing.T) {
	type Asset struct {
		ID       uuid.UUID `db:"id"`
		Filename string    `db:"filename"`
	}
	type Row struct {
		ID       int       `db:"id"`
		Name     *string   `db:"display_name"`
		Modified time.Time `db:"time_modified"`
		Asset    *Asset    `db:"asset"`
	}

	t.Run("no placeholder", func(t *testing.T) {
		m := mappingFor(reflect.TypeOf(0))
		assert.True(t, m.scalar)
		assert.Equal(t, "SELECT id FROM syllabus", m.expand("SELECT id FROM syllabus"))
	})
	t.Run("plain columns", func(t *testing.T) {
		m := mappingFor(reflect.TypeOf(Row{}))
		assert.False(t, m.scalar)
		assert.Len(t, m.columns, 5)
		assert.Equal(t, "SELECT id, display_name, time_modified, asset.id, asset.filename FROM syllabus", m.expand("SELECT $columns FROM syllabus"))
	})
	t.Run("prefixed columns", func(t *testing.T) {
		m := mappingFor(reflect.TypeOf(Row{}))
		assert.Equal(t, "SELECT s.id, s.display_name, s.time_modified, s_asset.id, s_asset.filename FROM syllabus AS s", m.expand("SELECT $columns{s} FROM syllabus AS s"))
	})
	t.Run("cached", func(t *testing.T) {
		assert.Same(t, mappingFor(reflect.TypeOf(Row{})), mappingFor(reflect.TypeOf(Row{})))
	})
	t.Run("non-struct with placeholder", func(t *testing.T) {
		assert.Panics(t, func() {
			mappingFor(reflect.TypeOf(0)).expand("SELECT $columns FROM syllabus")
		})
	})
}

func TestQueryable(t *testing.T) {
	type Kind int
	type Level string
	type NotAColumn struct {
		X int
	}

	assert.True(t, typeIsQueryable(reflect.TypeOf(0)))
	assert.True(t, typeIsQueryable(reflect.TypeOf("")))
	assert.True(t, typeIsQueryable(reflect.TypeOf(Kind(0))))
	assert.True(t, typeIsQueryable(reflect.TypeOf(Level(""))))
	assert.True(t, typeIsQueryable(reflect.TypeOf(time.Time{})))
	assert.True(t, typeIsQueryable(reflect.TypeOf(uuid.UUID{})))
	assert.False(t, typeIsQueryable(reflect.TypeOf(NotAColumn{})))
}

func TestAssign(t *testing.T) {
	type Kind int

	var k Kind
	assign(reflect.ValueOf(&k).Elem(), reflect.ValueOf(int32(2)))
	assert.Equal(t, Kind(2), k)

	var id uuid.UUID
	raw := [16]byte{1, 2, 3}
	assign(reflect.ValueOf(&id).Elem(), reflect.ValueOf(raw))
	assert.Equal(t, uuid.UUID(raw), id)

	var s string
	assign(reflect.ValueOf(&s).Elem(), reflect.ValueOf("hello"))
	assert.Equal(t, "hello", s)
}

func TestGetQueryName(t *testing.T) {
	name, ok := GetQueryName(`
		---- Fetch syllabi for course
		SELECT 1
	`)
	require.True(t, ok)
	assert.Equal(t, "Fetch syllabi for course", name)

	_, ok = GetQueryName("SELECT 1")
	assert.False(t, ok)
}
