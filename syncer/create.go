package syncer

import (
	"context"

	"github.com/hatlonely/schemax/ddl"
	"github.com/hatlonely/schemax/errstack"
	"github.com/hatlonely/schemax/schema"
	"github.com/pkg/errors"
)

// CreateTable 建表，然后创建索引并写入种子数据
//
// 表已存在、没有字段、建表失败时中断并返回错误；索引和种子数据的失败只记录，不中断。
func (s *Syncer) CreateTable(ctx context.Context, t *schema.Table) (*TableResult, error) {
	ctx = s.ensureRunID(ctx)
	res := &TableResult{Table: t.Name}

	if len(t.Fields) == 0 {
		res.State = StateNoFields
		return res, s.stack.Add(errstack.KindNoTableFields, "", t.Name)
	}

	unlock, err := s.lock(ctx, t.Name)
	if err != nil {
		res.State = StateFailed
		return res, s.stack.AddDepth(0, errstack.KindExecute, err.Error(), t.Name, err)
	}
	defer unlock()

	exists, err := s.exec.TableExists(ctx, s.physicalName(t.Name))
	if err != nil {
		res.State = StateFailed
		return res, s.fail(err, t.Name, "", 0)
	}
	if exists {
		res.State = StateExists
		return res, s.stack.Add(errstack.KindTableExists, "", t.Name)
	}

	stmt, err := ddl.CreateTable(t, s.langs, s.escaper)
	if err != nil {
		res.State = StateFailed
		return res, s.stack.AddDepth(0, errstack.KindInvalidFieldSpec, err.Error(), t.Name, err)
	}

	_, rewritten, err := s.run(ctx, t.Name, stmt)
	res.Statements = append(res.Statements, rewritten)
	if err != nil {
		res.State = StateFailed
		return res, s.stack.AddQuery(errstack.KindTableCreate, err, t.Name, rewritten)
	}
	res.State = StateCreated

	multi := t.MultiLingualFields()
	for _, idx := range t.Indexes {
		stmts, err := ddl.PlanIndex(t.Name, idx, multi, s.langs)
		if err != nil {
			res.Failures = append(res.Failures, s.stack.AddDepth(0, errstack.KindIndexCreate, err.Error(), t.Name, err))
			continue
		}
		for _, stmt := range stmts {
			_, rewritten, err := s.run(ctx, t.Name, stmt)
			res.Statements = append(res.Statements, rewritten)
			if err != nil {
				res.Failures = append(res.Failures, s.stack.AddQuery(errstack.KindIndexCreate, err, t.Name, rewritten))
			}
		}
	}

	seed, _ := s.seed(ctx, t, multi)
	res.Seed = seed
	for _, row := range seed.Rows {
		if row.Statement != "" {
			res.Statements = append(res.Statements, row.Statement)
		}
		if r, ok := row.Err.(*errstack.Record); ok {
			res.Failures = append(res.Failures, r)
		}
	}

	s.logger.InfoContext(ctx, "table created",
		"runId", RunID(ctx),
		"table", t.Name,
		"statements", len(res.Statements),
		"failures", len(res.Failures),
	)
	return res, nil
}

// Seed 写入种子数据，每行独立执行，一行失败不影响后续行
func (s *Syncer) Seed(ctx context.Context, t *schema.Table, multi map[string]bool) (*SeedResult, error) {
	ctx = s.ensureRunID(ctx)
	if multi == nil {
		multi = t.MultiLingualFields()
	}
	return s.seed(ctx, t, multi)
}

func (s *Syncer) seed(ctx context.Context, t *schema.Table, multi map[string]bool) (*SeedResult, error) {
	res := &SeedResult{Rows: make([]*RowOutcome, 0, len(t.Data))}

	var errs error
	for i, row := range t.Data {
		outcome := &RowOutcome{Index: i}
		res.Rows = append(res.Rows, outcome)

		stmt, err := ddl.PlanSeedRow(t, row, multi, s.langs, s.escaper)
		if err != nil {
			outcome.Err = s.stack.AddDepth(0, errstack.KindInsertData, errors.WithMessagef(err, "row %d", i).Error(), t.Name, err)
			res.Failed++
			errs = appendErr(errs, outcome.Err)
			continue
		}

		result, rewritten, err := s.run(ctx, t.Name, stmt)
		outcome.Statement = rewritten
		outcome.Result = result
		if err != nil {
			outcome.Err = s.stack.AddQuery(errstack.KindInsertData, err, t.Name, rewritten)
			res.Failed++
			errs = appendErr(errs, outcome.Err)
			continue
		}
		res.Inserted++
	}
	return res, errs
}
