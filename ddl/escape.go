package ddl

import (
	"strings"
)

// Escaper 将原始文本转换为可以放进单引号字面量的文本
type Escaper interface {
	Escape(raw string) string
}

// MySQLEscaper 与 mysql_real_escape_string 相同的转义规则
type MySQLEscaper struct{}

var mysqlReplacer = strings.NewReplacer(
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	`\`, `\\`,
	"'", `\'`,
	`"`, `\"`,
	"\x1a", `\Z`,
)

func (MySQLEscaper) Escape(raw string) string {
	return mysqlReplacer.Replace(raw)
}

// StandardEscaper 标准 SQL 转义，单引号加倍
type StandardEscaper struct{}

func (StandardEscaper) Escape(raw string) string {
	return strings.ReplaceAll(raw, "'", "''")
}

// EscaperFunc 适配普通函数
type EscaperFunc func(raw string) string

func (f EscaperFunc) Escape(raw string) string {
	return f(raw)
}

// Literal 转义并加单引号
func Literal(esc Escaper, raw string) string {
	return "'" + esc.Escape(raw) + "'"
}

// QuoteIdentifier 反引号包裹标识符
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
