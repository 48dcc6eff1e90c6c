package ddl

import (
	"strings"

	"github.com/hatlonely/schemax/macro"
	"github.com/hatlonely/schemax/schema"
	"github.com/pkg/errors"
)

// Column 展开多语言字段后的一个物理列
type Column struct {
	Name     string
	Field    *schema.Field
	Fragment string
}

// Columns 按声明顺序展开表的全部物理列
func Columns(t *schema.Table, langs schema.LanguageSet, esc Escaper) ([]Column, error) {
	columns := make([]Column, 0, len(t.Fields))
	for _, f := range t.Fields {
		fragment, err := BuildField(f, esc)
		if err != nil {
			return nil, err
		}
		if !f.MultiLingual {
			columns = append(columns, Column{Name: f.Name, Field: f, Fragment: fragment})
			continue
		}
		for _, name := range langs.Columns(f.Name) {
			columns = append(columns, Column{Name: name, Field: f, Fragment: fragment})
		}
	}
	return columns, nil
}

// CreateTable 生成 CREATE TABLE 语句，表名使用 TABLE 宏
func CreateTable(t *schema.Table, langs schema.LanguageSet, esc Escaper) (string, error) {
	columns, err := Columns(t, langs, esc)
	if err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", errors.Wrapf(ErrInvalidFieldSpec, "table %s: no columns to create", t.Name)
	}

	definitions := make([]string, 0, len(columns))
	for _, c := range columns {
		definitions = append(definitions, QuoteIdentifier(c.Name)+" "+c.Fragment)
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(macro.Table(t.Name))
	sb.WriteString(" (\n\t")
	sb.WriteString(strings.Join(definitions, ",\n\t"))
	sb.WriteString("\n)")
	if t.Options.Engine != "" {
		sb.WriteString(" ENGINE = " + t.Options.Engine)
	}
	if t.Options.Charset != "" {
		sb.WriteString(" DEFAULT CHARSET = " + t.Options.Charset)
	}
	if t.Options.Collation != "" {
		sb.WriteString(" DEFAULT COLLATE = " + t.Options.Collation)
	}
	return sb.String(), nil
}
