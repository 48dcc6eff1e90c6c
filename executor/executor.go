package executor

import (
	"context"
	"strings"

	"github.com/hatlonely/schemax/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegister("github.com/hatlonely/schemax/executor", "SQLExecutor", NewSQLExecutorWithOptions)
	ref.MustRegister("github.com/hatlonely/schemax/executor", "GormExecutor", NewGormExecutorWithOptions)
	ref.MustRegister("github.com/hatlonely/schemax/executor", "ObservableExecutor", NewObservableExecutorWithOptions)
}

var (
	ErrNoLink        = errors.New("no database link")
	ErrNoTransaction = errors.New("no active transaction")
	ErrInTransaction = errors.New("transaction already started")
)

// Executor 执行器，负责把语句发给具体的数据库
type Executor interface {
	// Engine 引擎标识，已规范化
	Engine() string

	Exec(ctx context.Context, query string) (Result, error)
	Query(ctx context.Context, query string) (*Rows, error)

	// DescribeColumns 按物理顺序返回表的列信息
	DescribeColumns(ctx context.Context, table string) ([]Column, error)
	TableExists(ctx context.Context, table string) (bool, error)

	// Escape 转义原始文本，结果可以放进单引号字面量
	Escape(raw string) string

	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	Close() error
}

// Result 一次写操作的结果，LastInsertID 只在影响行数大于 0 时有值
type Result struct {
	AffectedRows int64
	LastInsertID int64
}

// Column 线上表的一列
type Column struct {
	Name     string
	Type     string
	Nullable bool
	// Default 为 nil 表示没有默认值
	Default *string
	Extra   string
}

// Rows 查询结果，[]byte 已转换为 string
type Rows struct {
	Columns []string
	Values  [][]any
}

// Maps 把每一行转换为列名到值的映射
func (r *Rows) Maps() []map[string]any {
	if r == nil {
		return nil
	}
	maps := make([]map[string]any, 0, len(r.Values))
	for _, values := range r.Values {
		m := make(map[string]any, len(r.Columns))
		for i, column := range r.Columns {
			m[column] = values[i]
		}
		maps = append(maps, m)
	}
	return maps
}

func (r *Rows) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Values)
}

// NewExecutorWithOptions 根据 TypeOptions 创建任意已注册的执行器
func NewExecutorWithOptions(options *ref.TypeOptions) (Executor, error) {
	if options == nil {
		return nil, errors.New("executor options is nil")
	}
	namespace := options.Namespace
	if namespace == "" {
		namespace = "github.com/hatlonely/schemax/executor"
	}

	exec, err := ref.NewWithOptions[Executor](&ref.TypeOptions{
		Namespace: namespace,
		Type:      options.Type,
		Options:   options.Options,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create executor")
	}
	return exec, nil
}

// NormalizeEngine 统一引擎别名
func NormalizeEngine(engine string) string {
	switch e := strings.ToLower(strings.TrimSpace(engine)); e {
	case "mysqli", "mariadb", "tidb":
		return "mysql"
	case "sqlite":
		return "sqlite3"
	default:
		return e
	}
}
