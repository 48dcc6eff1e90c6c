package executor

import (
	"context"

	"github.com/hatlonely/schemax/ddl"
)

// NoLinkExecutor 没有连接的执行器，所有数据库操作都返回 ErrNoLink
type NoLinkExecutor struct {
	engine  string
	escaper ddl.Escaper
}

func NewNoLinkExecutor(engine string) *NoLinkExecutor {
	engine = NormalizeEngine(engine)
	var escaper ddl.Escaper = ddl.MySQLEscaper{}
	if engine == "sqlite3" {
		escaper = ddl.StandardEscaper{}
	}
	return &NoLinkExecutor{engine: engine, escaper: escaper}
}

func (e *NoLinkExecutor) Engine() string {
	return e.engine
}

func (e *NoLinkExecutor) Exec(ctx context.Context, query string) (Result, error) {
	return Result{}, ErrNoLink
}

func (e *NoLinkExecutor) Query(ctx context.Context, query string) (*Rows, error) {
	return nil, ErrNoLink
}

func (e *NoLinkExecutor) DescribeColumns(ctx context.Context, table string) ([]Column, error) {
	return nil, ErrNoLink
}

func (e *NoLinkExecutor) TableExists(ctx context.Context, table string) (bool, error) {
	return false, ErrNoLink
}

func (e *NoLinkExecutor) Escape(raw string) string {
	return e.escaper.Escape(raw)
}

func (e *NoLinkExecutor) Begin(ctx context.Context) error {
	return ErrNoLink
}

func (e *NoLinkExecutor) Commit() error {
	return ErrNoLink
}

func (e *NoLinkExecutor) Rollback() error {
	return ErrNoLink
}

func (e *NoLinkExecutor) Close() error {
	return nil
}
