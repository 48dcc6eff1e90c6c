package syncer

import (
	"context"

	"github.com/hatlonely/schemax/ddl"
	"github.com/hatlonely/schemax/errstack"
	"github.com/hatlonely/schemax/executor"
	"github.com/hatlonely/schemax/schema"
	"github.com/pkg/errors"
)

// liveColumns 线上的列，随变更语句同步更新
type liveColumns struct {
	order   []string
	columns map[string]executor.Column
}

func newLiveColumns(columns []executor.Column) *liveColumns {
	l := &liveColumns{columns: make(map[string]executor.Column, len(columns))}
	for _, c := range columns {
		l.order = append(l.order, c.Name)
		l.columns[c.Name] = c
	}
	return l
}

func (l *liveColumns) has(name string) bool {
	_, ok := l.columns[name]
	return ok
}

func (l *liveColumns) add(name string) {
	if !l.has(name) {
		l.order = append(l.order, name)
	}
	l.columns[name] = executor.Column{Name: name}
}

func (l *liveColumns) remove(name string) {
	delete(l.columns, name)
	for i, v := range l.order {
		if v == name {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

func (l *liveColumns) rename(from string, to string) {
	c := l.columns[from]
	c.Name = to
	delete(l.columns, from)
	l.columns[to] = c
	for i, v := range l.order {
		if v == from {
			l.order[i] = to
		}
	}
}

// AlterTable 先按顺序执行变更规则，再补齐缺失的字段和多语言列
//
// 任何一条语句失败都会中断整个调用。表不存在时返回 ErrTableMissing，不记录错误栈。
func (s *Syncer) AlterTable(ctx context.Context, t *schema.Table) (*TableResult, error) {
	ctx = s.ensureRunID(ctx)
	res := &TableResult{Table: t.Name}

	unlock, err := s.lock(ctx, t.Name)
	if err != nil {
		res.State = StateFailed
		return res, s.stack.AddDepth(0, errstack.KindExecute, err.Error(), t.Name, err)
	}
	defer unlock()

	physical := s.physicalName(t.Name)
	exists, err := s.exec.TableExists(ctx, physical)
	if err != nil {
		res.State = StateFailed
		return res, s.fail(err, t.Name, "", 0)
	}
	if !exists {
		res.State = StateMissing
		return res, errors.Wrapf(ErrTableMissing, "table %s", t.Name)
	}

	described, err := s.exec.DescribeColumns(ctx, physical)
	if err != nil {
		res.State = StateFailed
		return res, s.fail(err, t.Name, "", 0)
	}
	live := newLiveColumns(described)

	for _, rule := range t.AlterRules {
		stmt, err := s.ruleStatement(t.Name, rule, live)
		if err != nil {
			res.State = StateFailed
			return res, s.stack.AddDepth(0, errstack.KindTableAlter, err.Error(), t.Name, err)
		}
		if err := s.alter(ctx, t.Name, stmt, res); err != nil {
			return res, err
		}

		switch r := rule.(type) {
		case schema.RenameField:
			live.rename(r.Target, r.NewName)
		case schema.DeleteField:
			live.remove(r.Target)
		}
	}

	// 新的普通字段追加到末尾
	for _, f := range t.Fields {
		if f.MultiLingual || live.has(f.Name) {
			continue
		}
		fragment, err := ddl.BuildField(f, s.escaper)
		if err != nil {
			res.State = StateFailed
			return res, s.stack.AddDepth(0, errstack.KindInvalidFieldSpec, err.Error(), t.Name, err)
		}
		if err := s.alter(ctx, t.Name, ddl.AddColumn(t.Name, f.Name, fragment, ddl.PositionNone), res); err != nil {
			return res, err
		}
		live.add(f.Name)
	}

	// 多语言字段缺失的语言列放在前一个物理列之后
	for i, f := range t.Fields {
		if !f.MultiLingual {
			continue
		}
		fragment, err := ddl.BuildField(f, s.escaper)
		if err != nil {
			res.State = StateFailed
			return res, s.stack.AddDepth(0, errstack.KindInvalidFieldSpec, err.Error(), t.Name, err)
		}
		for j, lang := range s.langs.Languages {
			column := s.langs.Column(f.Name, lang)
			if live.has(column) {
				continue
			}
			pos := s.position(t, i, j, live)
			if err := s.alter(ctx, t.Name, ddl.AddColumn(t.Name, column, fragment, pos), res); err != nil {
				return res, err
			}
			live.add(column)
		}
	}

	res.State = StateUnchanged
	if len(res.Statements) > 0 {
		res.State = StateAltered
	}
	s.logger.InfoContext(ctx, "table altered",
		"runId", RunID(ctx),
		"table", t.Name,
		"state", res.State.String(),
		"statements", len(res.Statements),
	)
	return res, nil
}

// position 计算第 i 个字段第 j 种语言列的位置
func (s *Syncer) position(t *schema.Table, i int, j int, live *liveColumns) ddl.Position {
	if !supportsPosition(s.exec.Engine()) {
		return ddl.PositionNone
	}

	var anchor string
	switch {
	case j > 0:
		anchor = s.langs.Column(t.Fields[i].Name, s.langs.Languages[j-1])
	case i == 0:
		return ddl.First()
	default:
		prev := t.Fields[i-1]
		anchor = prev.Name
		if prev.MultiLingual && len(s.langs.Languages) > 0 {
			anchor = s.langs.Column(prev.Name, s.langs.Languages[len(s.langs.Languages)-1])
		}
	}

	if !live.has(anchor) {
		return ddl.PositionNone
	}
	return ddl.After(anchor)
}

// supportsPosition sqlite 的 ADD COLUMN 不支持 FIRST 和 AFTER
func supportsPosition(engine string) bool {
	return engine != "sqlite3"
}

func (s *Syncer) ruleStatement(table string, rule schema.AlterRule, live *liveColumns) (string, error) {
	switch r := rule.(type) {
	case schema.RenameField:
		c, ok := live.columns[r.Target]
		if !ok {
			return "", errors.Errorf("rename-field: column %s not found", r.Target)
		}
		return ddl.ChangeColumn(table, r.Target, r.NewName, ddl.LiveDefinition(c.Type, c.Extra, c.Default, c.Nullable, s.escaper)), nil
	case schema.DeleteField:
		return ddl.DropColumn(table, r.Target), nil
	case schema.ModifyField:
		if r.Field == nil {
			return "", errors.Errorf("alter-field %s: missing field", r.Target)
		}
		fragment, err := ddl.BuildField(r.Field, s.escaper)
		if err != nil {
			return "", errors.WithMessagef(err, "alter-field %s", r.Target)
		}
		return ddl.ModifyColumn(table, r.Target, fragment), nil
	case schema.DropIndex:
		return ddl.DropIndex(table, r.Target), nil
	default:
		return "", errors.Wrapf(schema.ErrUnknownAlterRule, "%T", rule)
	}
}

// alter 执行一条必须成功的变更语句
func (s *Syncer) alter(ctx context.Context, table string, stmt string, res *TableResult) error {
	_, rewritten, err := s.run(ctx, table, stmt)
	res.Statements = append(res.Statements, rewritten)
	if err != nil {
		res.State = StateFailed
		return s.stack.AddQuery(errstack.KindTableAlter, err, table, rewritten)
	}
	return nil
}
