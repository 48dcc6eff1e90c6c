package syncer

import (
	"context"
	"fmt"

	"github.com/hatlonely/schemax/ddl"
	"github.com/hatlonely/schemax/errstack"
	"github.com/hatlonely/schemax/executor"
	"github.com/hatlonely/schemax/macro"
	"github.com/pkg/errors"
)

// Exec 展开宏后执行语句，失败时记录 QueryFailed 或 NoLink
func (s *Syncer) Exec(ctx context.Context, query string) (executor.Result, error) {
	return s.execQuery(ctx, query, 1)
}

// QueryRows 返回全部行，每行是列名到值的映射
func (s *Syncer) QueryRows(ctx context.Context, query string) ([]map[string]any, error) {
	rows, err := s.query(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	return rows.Maps(), nil
}

// QueryAssoc 以 key 列的值为键返回全部行，key 列不存在时返回错误
func (s *Syncer) QueryAssoc(ctx context.Context, query string, key string) (map[string]map[string]any, error) {
	rows, err := s.query(ctx, query, 1)
	if err != nil {
		return nil, err
	}

	assoc := make(map[string]map[string]any, rows.Len())
	for _, row := range rows.Maps() {
		v, ok := row[key]
		if !ok {
			return nil, errors.Errorf("column %s not found in result", key)
		}
		assoc[fmt.Sprint(v)] = row
	}
	return assoc, nil
}

// QueryRow 返回第一行，没有结果时返回 nil
func (s *Syncer) QueryRow(ctx context.Context, query string) (map[string]any, error) {
	rows, err := s.query(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if rows.Len() == 0 {
		return nil, nil
	}
	return rows.Maps()[0], nil
}

// QueryCol 返回某一列的全部值，column 为空时取第一列
func (s *Syncer) QueryCol(ctx context.Context, query string, column string) ([]any, error) {
	rows, err := s.query(ctx, query, 1)
	if err != nil {
		return nil, err
	}

	idx, err := columnIndex(rows, column)
	if err != nil {
		return nil, err
	}
	values := make([]any, 0, rows.Len())
	for _, row := range rows.Values {
		values = append(values, row[idx])
	}
	return values, nil
}

// QueryOne 返回第一行第一列的值，没有结果时返回 nil
func (s *Syncer) QueryOne(ctx context.Context, query string) (any, error) {
	rows, err := s.query(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if rows.Len() == 0 || len(rows.Columns) == 0 {
		return nil, nil
	}
	return rows.Values[0][0], nil
}

// IsDuplicated 检查表中某个字段是否已经存在该值
func (s *Syncer) IsDuplicated(ctx context.Context, value string, field string, table string) (bool, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s LIMIT 1",
		ddl.QuoteIdentifier(field), macro.Table(table), ddl.QuoteIdentifier(field), ddl.Literal(s.escaper, value))

	rows, err := s.query(ctx, query, 1)
	if err != nil {
		return false, err
	}
	return rows.Len() > 0, nil
}

// SetCharset 切换连接字符集
func (s *Syncer) SetCharset(ctx context.Context, charset string) error {
	_, err := s.execQuery(ctx, "SET NAMES "+ddl.Literal(s.escaper, charset), 1)
	return err
}

// Escape 转义原始文本
func (s *Syncer) Escape(raw string) string {
	return s.escaper.Escape(raw)
}

func (s *Syncer) Begin(ctx context.Context) error {
	if err := s.exec.Begin(ctx); err != nil {
		return s.fail(err, "", "START TRANSACTION", 1)
	}
	return nil
}

func (s *Syncer) Commit() error {
	if err := s.exec.Commit(); err != nil {
		return s.fail(err, "", "COMMIT", 1)
	}
	return nil
}

func (s *Syncer) Rollback() error {
	if err := s.exec.Rollback(); err != nil {
		return s.fail(err, "", "ROLLBACK", 1)
	}
	return nil
}

func (s *Syncer) execQuery(ctx context.Context, query string, skip int) (executor.Result, error) {
	rewritten := s.rewriter.Rewrite(query)
	result, err := s.exec.Exec(ctx, rewritten)
	if err != nil {
		return executor.Result{}, s.fail(err, "", rewritten, skip+1)
	}
	return result, nil
}

func (s *Syncer) query(ctx context.Context, query string, skip int) (*executor.Rows, error) {
	rewritten := s.rewriter.Rewrite(query)
	rows, err := s.exec.Query(ctx, rewritten)
	if err != nil {
		return nil, s.fail(err, "", rewritten, skip+1)
	}
	return rows, nil
}

// fail 记录查询失败，调用位置为 skip 层之上的调用者
func (s *Syncer) fail(err error, table string, query string, skip int) *errstack.Record {
	r := &errstack.Record{Kind: errstack.KindQueryFailed, Table: table, Query: query, Cause: err, Detail: err.Error()}
	if errors.Is(err, executor.ErrNoLink) {
		r.Kind = errstack.KindNoLink
	}
	return s.stack.Push(skip+1, r)
}

func columnIndex(rows *executor.Rows, column string) (int, error) {
	if len(rows.Columns) == 0 {
		return 0, errors.New("result has no columns")
	}
	if column == "" {
		return 0, nil
	}
	for i, c := range rows.Columns {
		if c == column {
			return i, nil
		}
	}
	return 0, errors.Errorf("column %s not found in result", column)
}
