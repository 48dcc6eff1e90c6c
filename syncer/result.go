package syncer

import (
	"github.com/hatlonely/schemax/errstack"
	"github.com/hatlonely/schemax/executor"
	"github.com/pkg/errors"
)

var ErrTableMissing = errors.New("table does not exist")

// State 一个表在一次调用后的状态
type State int

const (
	StateUnknown State = iota
	// StateCreated 建表成功，索引和种子数据可能部分失败
	StateCreated
	// StateExists 建表时表已存在
	StateExists
	// StateNoFields 描述中没有字段
	StateNoFields
	// StateAltered 执行了至少一条变更语句
	StateAltered
	// StateUnchanged 表结构已经和描述一致
	StateUnchanged
	// StateMissing 变更时表不存在
	StateMissing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateExists:
		return "exists"
	case StateNoFields:
		return "no-fields"
	case StateAltered:
		return "altered"
	case StateUnchanged:
		return "unchanged"
	case StateMissing:
		return "missing"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TableResult 一次建表或变更调用的结果
type TableResult struct {
	Table string
	State State
	// Statements 按顺序执行过的语句，已展开宏
	Statements []string
	// Failures 不中断流程的失败，如索引和种子数据
	Failures []*errstack.Record
	Seed     *SeedResult
}

// OK 建表或变更成功，不考虑 Failures
func (r *TableResult) OK() bool {
	return r.State == StateCreated || r.State == StateAltered || r.State == StateUnchanged
}

// RowOutcome 一行种子数据的结果
type RowOutcome struct {
	Index     int
	Statement string
	Result    executor.Result
	Err       error
}

type SeedResult struct {
	Rows     []*RowOutcome
	Inserted int
	Failed   int
}

// RunResult 一次多表运行的结果
type RunResult struct {
	RunID  string
	Tables []*TableResult
}

func (r *RunResult) Table(name string) *TableResult {
	for _, t := range r.Tables {
		if t.Table == name {
			return t
		}
	}
	return nil
}
