package syncer

import (
	"context"
	"fmt"

	"github.com/hatlonely/schemax/errstack"
	"github.com/hatlonely/schemax/executor"
	"github.com/hatlonely/schemax/schema"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// CreateTables 创建描述中的全部表，每个表都会处理，错误合并返回
func (s *Syncer) CreateTables(ctx context.Context, db *schema.Database) (*RunResult, error) {
	return s.each(ctx, db, "create", s.CreateTable)
}

// AlterTables 变更描述中的全部表，不存在的表返回 ErrTableMissing
func (s *Syncer) AlterTables(ctx context.Context, db *schema.Database) (*RunResult, error) {
	return s.each(ctx, db, "alter", s.AlterTable)
}

// Sync 不存在的表新建，已存在的表变更，可以重复执行
func (s *Syncer) Sync(ctx context.Context, db *schema.Database) (*RunResult, error) {
	return s.each(ctx, db, "sync", func(ctx context.Context, t *schema.Table) (*TableResult, error) {
		exists, err := s.exec.TableExists(ctx, s.physicalName(t.Name))
		if err != nil {
			return &TableResult{Table: t.Name, State: StateFailed}, s.fail(err, t.Name, "", 0)
		}
		if exists {
			return s.AlterTable(ctx, t)
		}
		return s.CreateTable(ctx, t)
	})
}

func (s *Syncer) each(ctx context.Context, db *schema.Database, action string, fn func(context.Context, *schema.Table) (*TableResult, error)) (*RunResult, error) {
	ctx = s.ensureRunID(ctx)
	run := &RunResult{RunID: RunID(ctx)}

	if err := s.checkEngine(db); err != nil {
		return run, err
	}

	s.logger.InfoContext(ctx, "run started", "runId", run.RunID, "action", action, "tables", len(db.Tables))

	var errs error
	for _, t := range db.Tables {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, "run canceled"))
			break
		}
		res, err := fn(ctx, t)
		run.Tables = append(run.Tables, res)
		errs = appendErr(errs, err)
	}

	s.logger.InfoContext(ctx, "run finished",
		"runId", run.RunID,
		"action", action,
		"tables", len(run.Tables),
		"errors", len(multierr.Errors(errs)),
	)
	return run, errs
}

// checkEngine 描述声明的引擎与执行器不一致时中断
func (s *Syncer) checkEngine(db *schema.Database) error {
	if db.Engine == "" {
		return nil
	}
	want := executor.NormalizeEngine(db.Engine)
	if got := s.exec.Engine(); want != got {
		return s.stack.AddDepth(1, errstack.KindEngineMismatch, fmt.Sprintf("schema declares %s, executor is %s", want, got), "", nil)
	}
	return nil
}

func appendErr(errs error, err error) error {
	if err == nil {
		return errs
	}
	return multierr.Append(errs, err)
}
