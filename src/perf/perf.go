/*
Package perf records how long the parts of a request take. A nil
*RequestPerf is valid and records nothing, so handlers never need to check.
*/
package perf

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type RequestPerf struct {
	Route  string
	Path   string // the path actually matched
	Method string
	Start  time.Time
	End    time.Time
	Blocks []PerfBlock
}

func MakeNewRequestPerf(route string, method string, path string) *RequestPerf {
	return &RequestPerf{
		Route:  route,
		Path:   path,
		Method: method,
		Start:  time.Now(),
	}
}

// Closes any blocks still open and stops the clock.
func (rp *RequestPerf) EndRequest() {
	if rp == nil {
		return
	}
	now := time.Now()
	for i := range rp.Blocks {
		if rp.Blocks[i].open() {
			rp.Blocks[i].End = now
		}
	}
	rp.End = now
}

// A zero-length block, marking that something happened.
func (rp *RequestPerf) Checkpoint(category, description string) {
	if rp == nil {
		return
	}
	now := time.Now()
	rp.Blocks = append(rp.Blocks, PerfBlock{Start: now, End: now, Category: category, Description: description})
}

func (rp *RequestPerf) StartBlock(category, description string) *BlockHandle {
	if rp == nil {
		return nil
	}
	rp.Blocks = append(rp.Blocks, PerfBlock{Start: time.Now(), Category: category, Description: description})
	return &BlockHandle{rp: rp, idx: len(rp.Blocks) - 1}
}

// Ends the most recently started block that is still open. Reports whether
// there was one.
func (rp *RequestPerf) EndBlock() bool {
	if rp == nil {
		return false
	}
	for i := len(rp.Blocks) - 1; i >= 0; i-- {
		if rp.Blocks[i].open() {
			rp.Blocks[i].End = time.Now()
			return true
		}
	}
	return false
}

func (rp *RequestPerf) DurationMs() float64 {
	return ms(rp.End.Sub(rp.Start))
}

/*
One line per block, indented by nesting, e.g.

	[   1] At      0.31ms   [SQL] Fetch course (0.2100ms)
*/
func (rp *RequestPerf) Lines() []string {
	lines := make([]string, 0, len(rp.Blocks))
	var enclosing []time.Time // end times of the blocks containing the current one
	for i, block := range rp.Blocks {
		for len(enclosing) > 0 && block.End.After(enclosing[len(enclosing)-1]) {
			enclosing = enclosing[:len(enclosing)-1]
		}
		lines = append(lines, fmt.Sprintf("[%4d] At %9.2fms %s[%s] %s (%.4fms)",
			i, ms(block.Start.Sub(rp.Start)), strings.Repeat("  ", len(enclosing)),
			block.Category, block.Description, block.DurationMs()))
		enclosing = append(enclosing, block.End)
	}
	return lines
}

type BlockHandle struct {
	rp  *RequestPerf
	idx int
}

func (b *BlockHandle) End() {
	if b == nil {
		return
	}
	if block := &b.rp.Blocks[b.idx]; block.open() {
		block.End = time.Now()
	}
}

type PerfBlock struct {
	Start       time.Time
	End         time.Time
	Category    string
	Description string
}

func (pb *PerfBlock) open() bool {
	return pb.End.IsZero()
}

func (pb *PerfBlock) Duration() time.Duration {
	return pb.End.Sub(pb.Start)
}

func (pb *PerfBlock) DurationMs() float64 {
	return ms(pb.Duration())
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type perfContextKey struct{}

var PerfContextKey = perfContextKey{}

// May return nil.
func ExtractPerf(ctx context.Context) *RequestPerf {
	p, _ := ctx.Value(PerfContextKey).(*RequestPerf)
	return p
}
