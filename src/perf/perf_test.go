package perf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlocks(t *testing.T) {
	rp := MakeNewRequestPerf("GET [^/syllabus$]", "GET", "/syllabus")

	outer := rp.StartBlock("MIDDLEWARE", "Load common data")
	inner := rp.StartBlock("SQL", "Fetch syllabi")
	inner.End()
	assert.False(t, rp.Blocks[1].End.IsZero())
	assert.True(t, rp.Blocks[0].End.IsZero())

	outer.End()
	rp.Checkpoint("SYLLABUS", "Selected record")
	rp.StartBlock("TEMPLATE", "syllabus.html")
	rp.EndRequest()

	assert.Len(t, rp.Blocks, 4)
	for _, b := range rp.Blocks {
		assert.False(t, b.End.IsZero())
	}
	assert.GreaterOrEqual(t, rp.DurationMs(), 0.0)
}

func TestNilPerfIsSafe(t *testing.T) {
	var rp *RequestPerf
	assert.NotPanics(t, func() {
		rp.StartBlock("SQL", "anything").End()
		rp.Checkpoint("a", "b")
		rp.EndRequest()
	})
	assert.Nil(t, ExtractPerf(context.Background()))
}

func TestLinesIndentNestedBlocks(t *testing.T) {
	rp := MakeNewRequestPerf("GET [^/syllabus$]", "GET", "/syllabus")
	outer := rp.StartBlock("MIDDLEWARE", "Load common data")
	rp.StartBlock("SQL", "Fetch session").End()
	outer.End()
	rp.Checkpoint("SYLLABUS", "Selected record")
	rp.EndRequest()

	lines := rp.Lines()
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], " [MIDDLEWARE] Load common data")
	assert.Contains(t, lines[1], "   [SQL] Fetch session")
	assert.Contains(t, lines[2], "[SYLLABUS] Selected record")
}
