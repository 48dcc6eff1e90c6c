// Package macro 展开查询文本中的 TABLE(name)、LANG(name)、LANG_ALL(name) 宏
package macro

import (
	"regexp"
	"strings"

	"github.com/hatlonely/schemax/schema"
)

var (
	langAllPattern = regexp.MustCompile(`\bLANG_ALL\((\w+)\)`)
	langPattern    = regexp.MustCompile(`\bLANG\((\w+)\)`)
	tablePattern   = regexp.MustCompile(`\bTABLE\(([\w-]+)\)`)
)

// Rewriter 宏展开器，不做任何 I/O，输出只取决于输入和自身配置
type Rewriter struct {
	Prefix    string
	Database  string
	Languages schema.LanguageSet
}

func NewRewriter(prefix string, database string, languages schema.LanguageSet) *Rewriter {
	return &Rewriter{Prefix: prefix, Database: database, Languages: languages}
}

// Rewrite 展开文本中的全部宏，未识别的内容原样保留
func (r *Rewriter) Rewrite(text string) string {
	if text == "" {
		return text
	}

	// LANG_ALL 展开为变长列表，需要在单宏替换之前处理
	text = langAllPattern.ReplaceAllStringFunc(text, func(token string) string {
		return r.expandLangAll(langAllPattern.FindStringSubmatch(token)[1])
	})

	suffix := r.Languages.Suffix()
	text = langPattern.ReplaceAllStringFunc(text, func(token string) string {
		return quote(langPattern.FindStringSubmatch(token)[1] + suffix)
	})

	text = tablePattern.ReplaceAllStringFunc(text, func(token string) string {
		return r.TableName(tablePattern.FindStringSubmatch(token)[1])
	})

	return text
}

// TableName 返回带库名和前缀的表名
func (r *Rewriter) TableName(name string) string {
	table := quote(r.Prefix + name)
	if r.Database == "" {
		return table
	}
	return quote(r.Database) + "." + table
}

func (r *Rewriter) expandLangAll(field string) string {
	columns := make([]string, 0, len(r.Languages.Languages)+1)
	for _, lang := range r.Languages.Languages {
		column := quote(r.Languages.Column(field, lang))
		columns = append(columns, column)
		if lang == r.Languages.Current {
			columns = append(columns, column+" AS '"+field+"_current'")
		}
	}
	return strings.Join(columns, ", ")
}

func quote(identifier string) string {
	return "`" + strings.ReplaceAll(identifier, "`", "``") + "`"
}

// Table 生成 TABLE 宏
func Table(name string) string {
	return "TABLE(" + name + ")"
}

// Lang 生成 LANG 宏
func Lang(name string) string {
	return "LANG(" + name + ")"
}

// LangAll 生成 LANG_ALL 宏
func LangAll(name string) string {
	return "LANG_ALL(" + name + ")"
}
