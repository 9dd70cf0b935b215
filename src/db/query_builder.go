package db

import (
	"fmt"
	"strconv"
	"strings"
)

/*
QueryBuilder assembles a query from chunks whose arguments are written as $?.
Each $? is numbered in the order it was added, so optional filters can be
appended without counting placeholders by hand:

	var qb db.QueryBuilder
	qb.Add(`SELECT $columns FROM course WHERE TRUE`)
	if len(ids) > 0 {
		qb.Add(`AND id = ANY($?)`, ids)
	}
	db.Query[models.Course](ctx, conn, qb.String(), qb.Args()...)
*/
type QueryBuilder struct {
	sql  strings.Builder
	args []any
}

func (qb *QueryBuilder) Add(sql string, args ...any) {
	if n := strings.Count(sql, "$?"); n != len(args) {
		panic(fmt.Errorf("query chunk has %d placeholders but got %d arguments", n, len(args)))
	}

	for _, arg := range args {
		qb.args = append(qb.args, arg)
		sql = strings.Replace(sql, "$?", "$"+strconv.Itoa(len(qb.args)), 1)
	}

	qb.sql.WriteString(sql)
	qb.sql.WriteString("\n")
}

func (qb *QueryBuilder) String() string {
	return qb.sql.String()
}

func (qb *QueryBuilder) Args() []any {
	return qb.args
}
