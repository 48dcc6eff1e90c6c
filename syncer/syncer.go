// Package syncer 把数据库结构描述同步到线上数据库
//
// 所有语句都以宏的形式生成，经过 macro.Rewriter 展开后交给 executor.Executor 执行。
// 失败记录在 errstack.Stack 中，调用方可以同时检查返回值和错误栈。
package syncer

import (
	"context"
	"time"

	"github.com/hatlonely/schemax/ddl"
	"github.com/hatlonely/schemax/errstack"
	"github.com/hatlonely/schemax/executor"
	"github.com/hatlonely/schemax/journal"
	"github.com/hatlonely/schemax/lock"
	"github.com/hatlonely/schemax/log"
	"github.com/hatlonely/schemax/macro"
	"github.com/hatlonely/schemax/ref"
	"github.com/hatlonely/schemax/schema"
	"github.com/hatlonely/schemax/uid"
)

type Options struct {
	// Prefix 表名前缀
	Prefix string `cfg:"prefix"`

	// Database 库名，为空时 TABLE 宏不带库名
	Database string `cfg:"database"`

	Languages schema.LanguageSet `cfg:"languages"`

	// DisableBacktrace 关闭错误记录的调用位置采集
	DisableBacktrace bool `cfg:"disableBacktrace"`

	Logger      log.Logger      `cfg:"-"`
	Locker      lock.Locker     `cfg:"-"`
	Journal     journal.Journal `cfg:"-"`
	IDGenerator uid.Generator   `cfg:"-"`
}

type Syncer struct {
	exec     executor.Executor
	rewriter *macro.Rewriter
	escaper  ddl.Escaper
	langs    schema.LanguageSet
	prefix   string

	stack   *errstack.Stack
	logger  log.Logger
	locker  lock.Locker
	journal journal.Journal
	ids     uid.Generator
}

// New 创建 Syncer，未指定的 Logger、Locker、Journal 使用默认实现
func New(exec executor.Executor, options *Options) *Syncer {
	if options == nil {
		options = &Options{}
	}

	s := &Syncer{
		exec:     exec,
		rewriter: macro.NewRewriter(options.Prefix, options.Database, options.Languages),
		escaper:  ddl.EscaperFunc(exec.Escape),
		langs:    options.Languages,
		prefix:   options.Prefix,
		stack:    errstack.NewStack().SetBacktrace(!options.DisableBacktrace),
		logger:   options.Logger,
		locker:   options.Locker,
		journal:  options.Journal,
		ids:      options.IDGenerator,
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.locker == nil {
		s.locker = lock.NewLocalLocker()
	}
	if s.journal == nil {
		s.journal = journal.NewMemoryJournal()
	}
	if s.ids == nil {
		s.ids = uid.NewUUIDGeneratorWithOptions(&uid.UUIDOptions{Version: "v7", WithHyphens: true})
	}
	s.logger = s.logger.WithGroup("syncer")

	return s
}

// Connect 按 TypeOptions 创建执行器后创建 Syncer
// 创建失败时记录 Connection 错误，返回的 Syncer 后续所有操作记录 NoLink
func Connect(execOptions *ref.TypeOptions, options *Options) (*Syncer, error) {
	exec, err := executor.NewExecutorWithOptions(execOptions)
	if err == nil {
		return New(exec, options), nil
	}

	engine := "mysql"
	if execOptions != nil {
		if m, ok := execOptions.Options.(map[string]any); ok {
			if driver, ok := m["driver"].(string); ok && driver != "" {
				engine = driver
			}
		}
	}

	s := New(executor.NewNoLinkExecutor(engine), options)
	s.logger.Error("connect failed", "error", err.Error())
	return s, s.stack.AddDepth(1, errstack.KindConnection, err.Error(), "", err)
}

// Errors 错误栈，只追加，直到调用 Clear
func (s *Syncer) Errors() *errstack.Stack {
	return s.stack
}

func (s *Syncer) Rewriter() *macro.Rewriter {
	return s.rewriter
}

func (s *Syncer) Executor() executor.Executor {
	return s.exec
}

func (s *Syncer) Journal() journal.Journal {
	return s.journal
}

type runIDKey struct{}

// WithRunID 为 ctx 绑定 run id，同一次运行的日志和语句日志共享这个 id
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID 返回 ctx 上的 run id
func RunID(ctx context.Context) string {
	runID, _ := ctx.Value(runIDKey{}).(string)
	return runID
}

func (s *Syncer) ensureRunID(ctx context.Context) context.Context {
	if RunID(ctx) != "" {
		return ctx
	}
	return WithRunID(ctx, s.ids.Generate())
}

// physicalName 线上的表名，用于存在性检查和列信息查询
func (s *Syncer) physicalName(table string) string {
	return s.prefix + table
}

// run 展开宏并执行一条内部语句，写入语句日志，不记录错误栈
func (s *Syncer) run(ctx context.Context, table string, query string) (executor.Result, string, error) {
	rewritten := s.rewriter.Rewrite(query)
	result, err := s.exec.Exec(ctx, rewritten)

	entry := &journal.Entry{
		RunID:     RunID(ctx),
		Table:     table,
		Statement: rewritten,
		Success:   err == nil,
		Time:      time.Now(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if jerr := s.journal.Append(entry); jerr != nil {
		s.logger.WarnContext(ctx, "append journal failed", "table", table, "error", jerr.Error())
	}

	if err != nil {
		s.logger.WarnContext(ctx, "statement failed", "runId", entry.RunID, "table", table, "query", rewritten, "error", err.Error())
	} else {
		s.logger.DebugContext(ctx, "statement executed", "runId", entry.RunID, "table", table, "query", rewritten, "affectedRows", result.AffectedRows)
	}
	return result, rewritten, err
}

func (s *Syncer) lock(ctx context.Context, table string) (func(), error) {
	return s.locker.Lock(ctx, s.rewriter.TableName(table))
}
