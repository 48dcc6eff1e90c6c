package ddl

import (
	"strconv"
	"strings"

	"github.com/hatlonely/schemax/macro"
	"github.com/hatlonely/schemax/schema"
	"github.com/pkg/errors"
)

var ErrInvalidIndex = errors.New("invalid index")

// PlanIndex 生成一个索引描述对应的 CREATE INDEX 语句
//
// 单列索引引用多语言字段时，每种语言生成一个独立索引，索引名和列名都加语言后缀。
// 组合索引包含多语言字段时同样按语言展开，每个组合只包含同一种语言的列。
func PlanIndex(table string, idx *schema.Index, multi map[string]bool, langs schema.LanguageSet) ([]string, error) {
	if idx == nil {
		return nil, errors.Wrap(ErrInvalidIndex, "index is nil")
	}
	switch idx.Kind {
	case "", schema.IndexPlain, schema.IndexUnique, schema.IndexFulltext, schema.IndexSpatial:
	default:
		return nil, errors.Wrapf(ErrInvalidIndex, "unknown index kind %s", idx.Kind)
	}

	if idx.IsGroup() {
		return planGroupIndex(table, idx, multi, langs)
	}

	if idx.Field == "" {
		return nil, errors.Wrap(ErrInvalidIndex, "index has neither field nor group")
	}

	name := idx.IndexName()
	if !multi[idx.Field] {
		return []string{createIndex(idx.Kind, name, table, []string{indexColumn(idx.Field, idx.Length)})}, nil
	}

	stmts := make([]string, 0, len(langs.Languages))
	for _, lang := range langs.Languages {
		stmts = append(stmts, createIndex(
			idx.Kind,
			langs.Column(name, lang),
			table,
			[]string{indexColumn(langs.Column(idx.Field, lang), idx.Length)},
		))
	}
	return stmts, nil
}

func planGroupIndex(table string, idx *schema.Index, multi map[string]bool, langs schema.LanguageSet) ([]string, error) {
	if idx.Name == "" {
		return nil, errors.Wrap(ErrInvalidIndex, "group index requires a name")
	}

	hasMulti := false
	for _, c := range idx.Group {
		if multi[c.Field] {
			hasMulti = true
			break
		}
	}

	if !hasMulti {
		columns := make([]string, 0, len(idx.Group))
		for _, c := range idx.Group {
			columns = append(columns, indexColumn(c.Field, c.Length))
		}
		return []string{createIndex(idx.Kind, idx.Name, table, columns)}, nil
	}

	stmts := make([]string, 0, len(langs.Languages))
	for _, lang := range langs.Languages {
		columns := make([]string, 0, len(idx.Group))
		for _, c := range idx.Group {
			field := c.Field
			if multi[field] {
				field = langs.Column(field, lang)
			}
			columns = append(columns, indexColumn(field, c.Length))
		}
		stmts = append(stmts, createIndex(idx.Kind, langs.Column(idx.Name, lang), table, columns))
	}
	return stmts, nil
}

func createIndex(kind schema.IndexKind, name string, table string, columns []string) string {
	return "CREATE " + kind.Keyword() + " " + QuoteIdentifier(name) + " ON " + macro.Table(table) + " (" + strings.Join(columns, ", ") + ")"
}

func indexColumn(field string, length int) string {
	if length > 0 {
		return QuoteIdentifier(field) + "(" + strconv.Itoa(length) + ")"
	}
	return QuoteIdentifier(field)
}
