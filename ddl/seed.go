package ddl

import (
	"strings"

	"github.com/hatlonely/schemax/macro"
	"github.com/hatlonely/schemax/schema"
	"github.com/pkg/errors"
)

var (
	ErrTooManyValues = errors.New("row has more values than the table has fields")
	ErrEmptyRow      = errors.New("row has no columns to insert")
)

// PlanSeed 为每一行种子数据生成一条 INSERT 语句，任何一行不合法时整体失败
func PlanSeed(t *schema.Table, multi map[string]bool, langs schema.LanguageSet, esc Escaper) ([]string, error) {
	stmts := make([]string, 0, len(t.Data))
	for i, row := range t.Data {
		stmt, err := PlanSeedRow(t, row, multi, langs, esc)
		if err != nil {
			return nil, errors.WithMessagef(err, "table %s: row %d", t.Name, i)
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// PlanSeedRow 生成一行种子数据的 INSERT 语句
//
// 命名模式生成 INSERT ... SET，多语言字段对每种语言赋相同的值；
// 位置模式按字段声明顺序取前 N 个字段生成 INSERT ... VALUES。
func PlanSeedRow(t *schema.Table, row *schema.Row, multi map[string]bool, langs schema.LanguageSet, esc Escaper) (string, error) {
	mode, err := row.Mode()
	if err != nil {
		return "", err
	}

	if mode == schema.RowNamed {
		assignments := make([]string, 0, len(row.Values))
		for _, v := range row.Values {
			literal := Literal(esc, v.Text)
			for _, column := range physicalColumns(v.Name, multi, langs) {
				assignments = append(assignments, QuoteIdentifier(column)+" = "+literal)
			}
		}
		if len(assignments) == 0 {
			return "", errors.Wrapf(ErrEmptyRow, "no assignments, languages %v", langs.Languages)
		}
		return "INSERT INTO " + macro.Table(t.Name) + " SET " + strings.Join(assignments, ", "), nil
	}

	names := t.FieldNames()
	if len(row.Values) > len(names) {
		return "", errors.Wrapf(ErrTooManyValues, "%d values for %d fields", len(row.Values), len(names))
	}

	columns := make([]string, 0, len(row.Values))
	values := make([]string, 0, len(row.Values))
	for i, v := range row.Values {
		literal := Literal(esc, v.Text)
		for _, column := range physicalColumns(names[i], multi, langs) {
			columns = append(columns, QuoteIdentifier(column))
			values = append(values, literal)
		}
	}
	if len(columns) == 0 {
		return "", errors.Wrapf(ErrEmptyRow, "no columns, languages %v", langs.Languages)
	}
	return "INSERT INTO " + macro.Table(t.Name) + " (" + strings.Join(columns, ", ") + ") VALUES (" + strings.Join(values, ", ") + ")", nil
}

func physicalColumns(name string, multi map[string]bool, langs schema.LanguageSet) []string {
	if multi[name] {
		return langs.Columns(name)
	}
	return []string{name}
}
