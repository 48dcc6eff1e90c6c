package errstack

import (
	"github.com/pkg/errors"
)

// Kind 错误类别
type Kind int

const (
	KindConnection Kind = iota + 1
	KindNoLink
	KindExecute
	KindQueryFailed
	KindEngineMismatch
	KindNoTableFields
	KindTableExists
	KindInvalidFieldSpec
	KindTableCreate
	KindTableAlter
	KindIndexCreate
	KindInsertData
)

var (
	ErrConnection       = errors.New("connection error")
	ErrNoLink           = errors.New("no database link")
	ErrExecute          = errors.New("execute error")
	ErrQueryFailed      = errors.New("query failed")
	ErrEngineMismatch   = errors.New("database engine mismatch")
	ErrNoTableFields    = errors.New("table has no fields")
	ErrTableExists      = errors.New("table exists")
	ErrInvalidFieldSpec = errors.New("invalid field spec")
	ErrTableCreate      = errors.New("table create error")
	ErrTableAlter       = errors.New("table alter error")
	ErrIndexCreate      = errors.New("index create error")
	ErrInsertData       = errors.New("insert data error")
)

type kindInfo struct {
	name     string
	sentinel error
	// 占位符：{origin} 调用位置，{detail} 详细信息，{table} 表名
	template string
}

var kindInfos = map[Kind]kindInfo{
	KindConnection: {
		name:     "Connection",
		sentinel: ErrConnection,
		template: "connection error{origin}: {detail}",
	},
	KindNoLink: {
		name:     "NoLink",
		sentinel: ErrNoLink,
		template: "cannot execute query, no database link{origin}",
	},
	KindExecute: {
		name:     "Execute",
		sentinel: ErrExecute,
		template: "cannot execute SQL-query{origin}: {detail}",
	},
	KindQueryFailed: {
		name:     "QueryFailed",
		sentinel: ErrQueryFailed,
		template: "query failed{origin}: {detail}",
	},
	KindEngineMismatch: {
		name:     "EngineMismatch",
		sentinel: ErrEngineMismatch,
		template: "cannot perform action{origin}, database engine mismatch: {detail}",
	},
	KindNoTableFields: {
		name:     "NoTableFields",
		sentinel: ErrNoTableFields,
		template: "table has no fields{origin}, omitting table: `{table}`",
	},
	KindTableExists: {
		name:     "TableExists",
		sentinel: ErrTableExists,
		template: "can't create table{origin}, table exists: `{table}`",
	},
	KindInvalidFieldSpec: {
		name:     "InvalidFieldSpec",
		sentinel: ErrInvalidFieldSpec,
		template: "invalid field specification{origin}: {detail} (table: {table})",
	},
	KindTableCreate: {
		name:     "TableCreate",
		sentinel: ErrTableCreate,
		template: "can't create table{origin}: {detail} (table: {table})",
	},
	KindTableAlter: {
		name:     "TableAlter",
		sentinel: ErrTableAlter,
		template: "can't alter table{origin}: {detail} (table: {table})",
	},
	KindIndexCreate: {
		name:     "IndexCreate",
		sentinel: ErrIndexCreate,
		template: "can't create table indexes{origin}: {detail} (table: {table})",
	},
	KindInsertData: {
		name:     "InsertData",
		sentinel: ErrInsertData,
		template: "unable to pre-populate table{origin}: {detail} (table: {table})",
	},
}

func (k Kind) String() string {
	if info, ok := kindInfos[k]; ok {
		return info.name
	}
	return "Unknown"
}

// Sentinel 返回类别对应的哨兵错误，可配合 errors.Is 使用
func (k Kind) Sentinel() error {
	if info, ok := kindInfos[k]; ok {
		return info.sentinel
	}
	return nil
}
