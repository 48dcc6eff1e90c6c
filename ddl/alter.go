package ddl

import (
	"github.com/hatlonely/schemax/macro"
)

type positionKind int

const (
	positionNone positionKind = iota
	positionFirst
	positionAfter
)

// Position ADD COLUMN 的位置子句
type Position struct {
	kind   positionKind
	column string
}

// PositionNone 追加到末尾
var PositionNone = Position{}

func First() Position {
	return Position{kind: positionFirst}
}

func After(column string) Position {
	return Position{kind: positionAfter, column: column}
}

func (p Position) String() string {
	switch p.kind {
	case positionFirst:
		return "FIRST"
	case positionAfter:
		return "AFTER " + QuoteIdentifier(p.column)
	default:
		return ""
	}
}

func (p Position) IsNone() bool {
	return p.kind == positionNone
}

func AddColumn(table string, column string, fragment string, pos Position) string {
	stmt := "ALTER TABLE " + macro.Table(table) + " ADD " + QuoteIdentifier(column) + " " + fragment
	if !pos.IsNone() {
		stmt += " " + pos.String()
	}
	return stmt
}

func ModifyColumn(table string, column string, fragment string) string {
	return "ALTER TABLE " + macro.Table(table) + " MODIFY COLUMN " + QuoteIdentifier(column) + " " + fragment
}

func ChangeColumn(table string, from string, to string, definition string) string {
	return "ALTER TABLE " + macro.Table(table) + " CHANGE COLUMN " + QuoteIdentifier(from) + " " + QuoteIdentifier(to) + " " + definition
}

func DropColumn(table string, column string) string {
	return "ALTER TABLE " + macro.Table(table) + " DROP COLUMN " + QuoteIdentifier(column)
}

func DropIndex(table string, index string) string {
	return "DROP INDEX " + QuoteIdentifier(index) + " ON " + macro.Table(table)
}
