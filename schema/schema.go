package schema

import (
	"strings"
)

// Database 一份声明式描述的根节点
type Database struct {
	// Engine 目标数据库引擎，与执行器的引擎比对
	Engine string   `validate:"required"`
	Tables []*Table `validate:"dive,required"`
}

// TableOptions 表级选项
type TableOptions struct {
	Engine    string
	Charset   string
	Collation string
}

// Table 一张表的期望结构
type Table struct {
	Name       string `validate:"required,max=64"`
	Options    TableOptions
	Fields     []*Field `validate:"dive,required"`
	Indexes    []*Index `validate:"dive,required"`
	AlterRules []AlterRule
	Data       []*Row `validate:"dive,required"`
}

// Sign 符号标记
type Sign int

const (
	SignUnset Sign = iota
	SignSigned
	SignUnsigned
)

// Field 字段描述
type Field struct {
	Name   string `validate:"required,max=64"`
	Type   string
	Length string
	// Default 为 nil 表示没有默认值
	Default       *string
	Charset       string
	Collation     string
	PrimaryKey    bool
	AutoIncrement bool
	Nullable      bool
	Sign          Sign `validate:"min=0,max=2"`
	Zerofill      bool
	Binary        bool
	// MultiLingual 每种语言一个物理列
	MultiLingual bool
	Comment      string
}

// IndexKind 索引类型
type IndexKind string

const (
	IndexPlain    IndexKind = "index"
	IndexUnique   IndexKind = "unique"
	IndexFulltext IndexKind = "fulltext"
	IndexSpatial  IndexKind = "spatial"
)

// Keyword 返回 CREATE 语句中的索引关键字
func (k IndexKind) Keyword() string {
	if k == IndexPlain || k == "" {
		return "INDEX"
	}
	return strings.ToUpper(string(k)) + " INDEX"
}

// IndexColumn 组合索引中的一列
type IndexColumn struct {
	Field  string `validate:"required"`
	Length int    `validate:"min=0"`
}

// Index 索引描述，Field 与 Group 二选一
type Index struct {
	Kind   IndexKind `validate:"omitempty,oneof=index unique fulltext spatial"`
	Name   string
	Field  string
	Length int           `validate:"min=0"`
	Group  []IndexColumn `validate:"dive"`
}

// IsGroup 是否为组合索引
func (i *Index) IsGroup() bool {
	return len(i.Group) > 0
}

// IndexName 单列索引未命名时使用字段名
func (i *Index) IndexName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Field
}

// Value 种子数据中的一个值，Name 为空表示按位置匹配
type Value struct {
	Name string
	Text string
}

// Row 一行种子数据
type Row struct {
	Values []Value
}

// RowMode 种子行模式
type RowMode int

const (
	RowNamed RowMode = iota + 1
	RowPositional
)

// Mode 按第一个值决定模式，并要求所有值模式一致
func (r *Row) Mode() (RowMode, error) {
	if len(r.Values) == 0 {
		return 0, ErrEmptyRow
	}

	named := r.Values[0].Name != ""
	for _, v := range r.Values[1:] {
		if (v.Name != "") != named {
			return 0, ErrMixedRow
		}
	}

	if named {
		return RowNamed, nil
	}
	return RowPositional, nil
}

// FieldNames 按声明顺序返回字段名
func (t *Table) FieldNames() []string {
	names := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		names = append(names, f.Name)
	}
	return names
}

// MultiLingualFields 多语言字段名集合
func (t *Table) MultiLingualFields() map[string]bool {
	fields := map[string]bool{}
	for _, f := range t.Fields {
		if f.MultiLingual {
			fields[f.Name] = true
		}
	}
	return fields
}

// Field 按名字查找字段
func (t *Table) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Table 按名字查找表
func (d *Database) Table(name string) *Table {
	for _, t := range d.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}
