package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hatlonely/schemax/cfg"
	"github.com/hatlonely/schemax/errstack"
	"github.com/hatlonely/schemax/executor"
	"github.com/hatlonely/schemax/journal"
	"github.com/hatlonely/schemax/lock"
	"github.com/hatlonely/schemax/log"
	"github.com/hatlonely/schemax/ref"
	"github.com/hatlonely/schemax/schema"
	"github.com/hatlonely/schemax/syncer"
	"github.com/hatlonely/schemax/uid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

var errFailures = errors.New("synchronization finished with errors")

// Options 命令行的配置文件结构
//
//	executor:
//	  type: SQLExecutor
//	  options: {driver: mysql, host: localhost, database: shop}
//	syncer:
//	  prefix: app_
//	  database: shop
//	  languages: {languages: [en, de], current: en}
//	schema: schema.xml
type Options struct {
	Executor    *ref.TypeOptions `cfg:"executor"`
	Syncer      syncer.Options   `cfg:"syncer"`
	Logger      *ref.TypeOptions `cfg:"logger"`
	Lock        *ref.TypeOptions `cfg:"lock"`
	Journal     *ref.TypeOptions `cfg:"journal"`
	IDGenerator *ref.TypeOptions `cfg:"idGenerator"`
	// Schema 描述文件路径，可以被 --schema 覆盖
	Schema string `cfg:"schema"`
}

// LoadOptions 加载配置文件，path 为空时只读取环境变量
func LoadOptions(path string) (*Options, error) {
	var options Options
	if path == "" {
		raw := map[string]any{}
		cfg.OverlayEnv(raw, typeOfOptions, envPrefix)
		if err := cfg.Unmarshal(raw, &options); err != nil {
			return nil, err
		}
		return &options, nil
	}

	if err := cfg.LoadWithOptions(&cfg.Options{Path: path, EnvPrefix: envPrefix}, &options); err != nil {
		return nil, err
	}
	return &options, nil
}

type app struct {
	logger  log.Logger
	exec    executor.Executor
	journal journal.Journal
	syncer  *syncer.Syncer
}

func newApp(options *Options) (*app, error) {
	if options.Executor == nil || options.Executor.Type == "" {
		return nil, errors.New("executor type is required")
	}

	logger, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, err
	}

	locker, err := lock.NewLockerWithOptions(options.Lock)
	if err != nil {
		return nil, err
	}

	ids, err := uid.NewGeneratorWithOptions(options.IDGenerator)
	if err != nil {
		return nil, err
	}

	j, err := journal.NewJournalWithOptions(options.Journal)
	if err != nil {
		return nil, err
	}

	syncerOptions := options.Syncer
	syncerOptions.Logger = logger
	syncerOptions.Locker = locker
	syncerOptions.Journal = j
	syncerOptions.IDGenerator = ids

	// 连接失败时仍然返回 app，错误已记录在错误栈中
	s, err := syncer.Connect(options.Executor, &syncerOptions)
	return &app{
		logger:  logger,
		exec:    s.Executor(),
		journal: j,
		syncer:  s,
	}, err
}

// run 执行一次同步，打印每张表的结果和错误栈，错误栈非空时返回 errFailures
func (a *app) run(ctx context.Context, action string, db *schema.Database, stdout io.Writer, stderr io.Writer) error {
	a.syncer.Errors().Clear()

	var (
		result *syncer.RunResult
		err    error
	)
	switch action {
	case "create":
		result, err = a.syncer.CreateTables(ctx, db)
	case "alter":
		result, err = a.syncer.AlterTables(ctx, db)
	case "sync":
		result, err = a.syncer.Sync(ctx, db)
	default:
		return errors.Errorf("unknown action %s", action)
	}

	if result != nil {
		printResult(stdout, result)
	}
	if printErrors(stderr, a.syncer.Errors()) {
		return errFailures
	}
	return err
}

// printErrors 打印错误栈中的全部记录，没有记录时返回 false
func printErrors(w io.Writer, stack *errstack.Stack) bool {
	if stack.Len() == 0 {
		return false
	}
	fmt.Fprintln(w, stack.Join("\n"))
	return true
}

func printResult(w io.Writer, result *syncer.RunResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run %s\n", result.RunID)
	for _, t := range result.Tables {
		line := fmt.Sprintf("%s\t%s\t%d statements", t.Table, t.State, len(t.Statements))
		if t.Seed != nil {
			line += fmt.Sprintf("\t%d/%d rows", t.Seed.Inserted, len(t.Seed.Rows))
		}
		fmt.Fprintln(tw, line)
	}
	_ = tw.Flush()
}

func (a *app) Close() error {
	return multierr.Combine(a.exec.Close(), a.journal.Close())
}
