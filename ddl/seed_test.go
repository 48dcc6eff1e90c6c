package ddl

import (
	"testing"

	"github.com/hatlonely/schemax/schema"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPlanSeed(t *testing.T) {
	Convey("PlanSeed", t, func() {
		table := &schema.Table{
			Name: "users",
			Fields: []*schema.Field{
				{Name: "id", Type: "int"},
				{Name: "name", Type: "varchar", Length: "32", MultiLingual: true},
				{Name: "email", Type: "varchar", Length: "64"},
			},
		}
		multi := table.MultiLingualFields()
		langs := schema.NewLanguageSet("en", "en", "de")

		Convey("命名模式，多语言字段对每种语言赋相同的值", func() {
			table.Data = []*schema.Row{{Values: []schema.Value{
				{Name: "id", Text: "1"},
				{Name: "name", Text: "O'Brien"},
			}}}
			stmts, err := PlanSeed(table, multi, langs, MySQLEscaper{})
			So(err, ShouldBeNil)
			So(stmts, ShouldResemble, []string{
				"INSERT INTO TABLE(users) SET `id` = '1', `name_en` = 'O\\'Brien', `name_de` = 'O\\'Brien'",
			})
		})

		Convey("位置模式只插入前 N 个字段", func() {
			table.Fields[1].MultiLingual = false
			table.Data = []*schema.Row{{Values: []schema.Value{{Text: "1"}, {Text: "bob"}}}}
			stmts, err := PlanSeed(table, table.MultiLingualFields(), langs, MySQLEscaper{})
			So(err, ShouldBeNil)
			So(stmts, ShouldResemble, []string{
				"INSERT INTO TABLE(users) (`id`, `name`) VALUES ('1', 'bob')",
			})
		})

		Convey("位置模式的多语言字段按语言展开", func() {
			table.Data = []*schema.Row{{Values: []schema.Value{{Text: "1"}, {Text: "bob"}}}}
			stmts, err := PlanSeed(table, multi, langs, StandardEscaper{})
			So(err, ShouldBeNil)
			So(stmts, ShouldResemble, []string{
				"INSERT INTO TABLE(users) (`id`, `name_en`, `name_de`) VALUES ('1', 'bob', 'bob')",
			})
		})

		Convey("多行各自一条语句", func() {
			table.Data = []*schema.Row{
				{Values: []schema.Value{{Text: "1"}}},
				{Values: []schema.Value{{Name: "email", Text: "a@b.c"}}},
			}
			stmts, err := PlanSeed(table, multi, langs, MySQLEscaper{})
			So(err, ShouldBeNil)
			So(len(stmts), ShouldEqual, 2)
			So(stmts[1], ShouldEqual, "INSERT INTO TABLE(users) SET `email` = 'a@b.c'")
		})

		Convey("混合模式被拒绝", func() {
			table.Data = []*schema.Row{{Values: []schema.Value{{Text: "1"}, {Name: "email", Text: "x"}}}}
			_, err := PlanSeed(table, multi, langs, MySQLEscaper{})
			So(errors.Is(err, schema.ErrMixedRow), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "row 0")
		})

		Convey("值多于字段", func() {
			table.Data = []*schema.Row{{Values: []schema.Value{{Text: "1"}, {Text: "2"}, {Text: "3"}, {Text: "4"}}}}
			_, err := PlanSeed(table, multi, langs, MySQLEscaper{})
			So(errors.Is(err, ErrTooManyValues), ShouldBeTrue)
		})

		Convey("多语言字段在语言列表为空时没有可插入的列", func() {
			only := &schema.Table{
				Name:   "t",
				Fields: []*schema.Field{{Name: "title", Type: "varchar", Length: "32", MultiLingual: true}},
				Data: []*schema.Row{
					{Values: []schema.Value{{Name: "title", Text: "x"}}},
				},
			}
			_, err := PlanSeed(only, only.MultiLingualFields(), schema.LanguageSet{}, MySQLEscaper{})
			So(errors.Is(err, ErrEmptyRow), ShouldBeTrue)

			only.Data = []*schema.Row{{Values: []schema.Value{{Text: "x"}}}}
			_, err = PlanSeed(only, only.MultiLingualFields(), schema.LanguageSet{}, MySQLEscaper{})
			So(errors.Is(err, ErrEmptyRow), ShouldBeTrue)
		})

		Convey("没有种子数据", func() {
			stmts, err := PlanSeed(table, multi, langs, MySQLEscaper{})
			So(err, ShouldBeNil)
			So(stmts, ShouldBeEmpty)
		})
	})
}
