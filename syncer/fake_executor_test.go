package syncer

import (
	"context"
	"strings"

	"github.com/hatlonely/schemax/ddl"
	"github.com/hatlonely/schemax/executor"
)

// fakeExecutor 记录收到的语句，按 failOn 中的子串返回错误
type fakeExecutor struct {
	engine  string
	tables  map[string][]executor.Column
	rows    map[string]*executor.Rows
	failOn  []string
	queries []string
	noLink  bool
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		engine: "mysql",
		tables: map[string][]executor.Column{},
		rows:   map[string]*executor.Rows{},
	}
}

func (f *fakeExecutor) withTable(name string, columns ...string) *fakeExecutor {
	cs := make([]executor.Column, 0, len(columns))
	for _, c := range columns {
		cs = append(cs, executor.Column{Name: c, Type: "varchar(64)"})
	}
	f.tables[name] = cs
	return f
}

func (f *fakeExecutor) failing(substr ...string) *fakeExecutor {
	f.failOn = append(f.failOn, substr...)
	return f
}

func (f *fakeExecutor) check(query string) error {
	if f.noLink {
		return executor.ErrNoLink
	}
	for _, s := range f.failOn {
		if strings.Contains(query, s) {
			return &fakeError{msg: "rejected: " + s}
		}
	}
	return nil
}

type fakeError struct{ msg string }

func (e *fakeError) Error() string { return e.msg }

func (f *fakeExecutor) Engine() string { return f.engine }

func (f *fakeExecutor) Exec(_ context.Context, query string) (executor.Result, error) {
	f.queries = append(f.queries, query)
	if err := f.check(query); err != nil {
		return executor.Result{}, err
	}
	return executor.Result{AffectedRows: 1, LastInsertID: int64(len(f.queries))}, nil
}

func (f *fakeExecutor) Query(_ context.Context, query string) (*executor.Rows, error) {
	f.queries = append(f.queries, query)
	if err := f.check(query); err != nil {
		return nil, err
	}
	if rows, ok := f.rows[query]; ok {
		return rows, nil
	}
	return &executor.Rows{}, nil
}

func (f *fakeExecutor) DescribeColumns(_ context.Context, table string) ([]executor.Column, error) {
	if f.noLink {
		return nil, executor.ErrNoLink
	}
	return f.tables[table], nil
}

func (f *fakeExecutor) TableExists(_ context.Context, table string) (bool, error) {
	if f.noLink {
		return false, executor.ErrNoLink
	}
	_, ok := f.tables[table]
	return ok, nil
}

func (f *fakeExecutor) Escape(raw string) string { return ddl.MySQLEscaper{}.Escape(raw) }

func (f *fakeExecutor) Begin(context.Context) error { return f.check("BEGIN") }
func (f *fakeExecutor) Commit() error                 { return f.check("COMMIT") }
func (f *fakeExecutor) Rollback() error               { return f.check("ROLLBACK") }
func (f *fakeExecutor) Close() error                  { return nil }

// statements 不含查询类语句
func (f *fakeExecutor) statements() []string {
	var stmts []string
	for _, q := range f.queries {
		if !strings.HasPrefix(q, "SELECT") {
			stmts = append(stmts, q)
		}
	}
	return stmts
}
