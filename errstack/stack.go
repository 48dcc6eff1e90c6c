package errstack

import (
	"runtime"
	"strings"
	"sync"
)

// Stack 只追加的错误记录栈，Clear 之前记录不会被修改或删除
type Stack struct {
	mu        sync.RWMutex
	records   []*Record
	backtrace bool
}

func NewStack() *Stack {
	return &Stack{backtrace: true}
}

// SetBacktrace 开启或关闭调用位置采集，关闭后使用 unknown file 占位
func (s *Stack) SetBacktrace(on bool) *Stack {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backtrace = on
	return s
}

func (s *Stack) Backtrace() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backtrace
}

// Add 追加一条记录，调用位置取 Add 的调用者
func (s *Stack) Add(kind Kind, detail string, table string) *Record {
	return s.add(&Record{Kind: kind, Detail: detail, Table: table}, 2)
}

// AddQuery 追加一条带语句和底层错误的记录
func (s *Stack) AddQuery(kind Kind, cause error, table string, query string) *Record {
	r := &Record{Kind: kind, Table: table, Query: query, Cause: cause}
	if cause != nil {
		r.Detail = cause.Error()
	}
	return s.add(r, 2)
}

// AddDepth 与 Add 相同，skip 为相对于调用者额外跳过的栈帧数
func (s *Stack) AddDepth(skip int, kind Kind, detail string, table string, cause error) *Record {
	return s.add(&Record{Kind: kind, Detail: detail, Table: table, Cause: cause}, skip+2)
}

// Push 追加调用方构造好的记录，skip 为相对于调用者额外跳过的栈帧数
func (s *Stack) Push(skip int, r *Record) *Record {
	return s.add(r, skip+2)
}

func (s *Stack) add(r *Record, skip int) *Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.File, r.Line = stubFile, stubLine
	if s.backtrace {
		if _, file, line, ok := runtime.Caller(skip); ok {
			r.File, r.Line = file, line
		}
	}

	s.records = append(s.records, r)
	return r
}

// Last 返回最近一条记录
func (s *Stack) Last() (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return nil, false
	}
	return s.records[len(s.records)-1], true
}

// Records 按追加顺序返回所有记录的副本
func (s *Stack) Records() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*Record, len(s.records))
	copy(records, s.records)
	return records
}

// Join 用 sep 拼接所有记录的完整信息
func (s *Stack) Join(sep string) string {
	return s.join(sep, (*Record).Error)
}

// JoinPlain 用 sep 拼接所有记录的无位置信息
func (s *Stack) JoinPlain(sep string) string {
	return s.join(sep, (*Record).Plain)
}

func (s *Stack) join(sep string, format func(*Record) string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := make([]string, 0, len(s.records))
	for _, r := range s.records {
		messages = append(messages, format(r))
	}
	return strings.Join(messages, sep)
}

func (s *Stack) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}
