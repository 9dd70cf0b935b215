package db

import (
	"context"
	"strings"

	"git.handmade.network/hmn/syllabus/src/logging"
	"git.handmade.network/hmn/syllabus/src/perf"
	zerologadapter "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/tracelog"
)

// Logs every query through zerolog and records it as a block in the request's
// perf record, if the context carries one.
func newTracer(level tracelog.LogLevel) pgx.QueryTracer {
	return tracers{
		&tracelog.TraceLog{
			Logger:   zerologadapter.NewLogger(*logging.GlobalLogger()),
			LogLevel: level,
		},
		perfTracer{},
	}
}

type tracers []pgx.QueryTracer

func (ts tracers) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	for _, t := range ts {
		ctx = t.TraceQueryStart(ctx, conn, data)
	}
	return ctx
}

func (ts tracers) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	for _, t := range ts {
		t.TraceQueryEnd(ctx, conn, data)
	}
}

const queryNameMarker = "---- "

/*
Finds the name of a query in a leading comment line, for perf output:

	---- Fetch syllabi for course
	SELECT ...
*/
func GetQueryName(sql string) (string, bool) {
	_, after, found := strings.Cut(sql, queryNameMarker)
	if !found {
		return "", false
	}
	name, _, found := strings.Cut(after, "\n")
	return name, found
}

type perfBlockKey struct{}

type perfTracer struct{}

func (perfTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	name, ok := GetQueryName(data.SQL)
	if !ok {
		name = "Unknown query"
	}
	block := perf.ExtractPerf(ctx).StartBlock("SQL", name)
	return context.WithValue(ctx, perfBlockKey{}, block)
}

func (perfTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	if block, ok := ctx.Value(perfBlockKey{}).(*perf.BlockHandle); ok {
		block.End()
	}
}
