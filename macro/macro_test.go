package macro

import (
	"testing"

	"github.com/hatlonely/schemax/schema"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
)

func TestRewrite(t *testing.T) {
	Convey("Rewriter.Rewrite", t, func() {
		r := NewRewriter("shop_", "app", schema.NewLanguageSet("de", "en", "de"))

		Convey("TABLE 展开为带库名和前缀的表名", func() {
			So(r.Rewrite("SELECT * FROM TABLE(users)"), ShouldEqual, "SELECT * FROM `app`.`shop_users`")
			So(r.Rewrite("TABLE(user-sessions)"), ShouldEqual, "`app`.`shop_user-sessions`")
		})

		Convey("LANG 展开为当前语言的列", func() {
			So(r.Rewrite("SELECT LANG(title) FROM t"), ShouldEqual, "SELECT `title_de` FROM t")
		})

		Convey("没有当前语言时 LANG 不加后缀", func() {
			r.Languages.Current = ""
			So(r.Rewrite("LANG(title)"), ShouldEqual, "`title`")
		})

		Convey("LANG_ALL 展开为全部语言并为当前语言加别名", func() {
			So(r.Rewrite("LANG_ALL(title)"), ShouldEqual, "`title_en`, `title_de`, `title_de` AS 'title_current'")
		})

		Convey("多个宏混合", func() {
			got := r.Rewrite("SELECT `id`, LANG_ALL(title), LANG(body) FROM TABLE(posts) WHERE LANG(title) != ''")
			So(got, ShouldEqual, "SELECT `id`, `title_en`, `title_de`, `title_de` AS 'title_current', `body_de` FROM `app`.`shop_posts` WHERE `title_de` != ''")
		})

		Convey("未识别的内容原样保留", func() {
			So(r.Rewrite("SELECT LANG() FROM TABLE(a b) WHERE MYTABLE(x)"), ShouldEqual, "SELECT LANG() FROM TABLE(a b) WHERE MYTABLE(x)")
			So(r.Rewrite(""), ShouldEqual, "")
		})

		Convey("没有库名时只输出表名", func() {
			r.Database = ""
			So(r.Rewrite("TABLE(users)"), ShouldEqual, "`shop_users`")
		})

		Convey("结果不再包含可识别的宏", func() {
			got := r.Rewrite(Table("a") + " " + Lang("b") + " " + LangAll("c"))
			So(tablePattern.MatchString(got), ShouldBeFalse)
			So(langPattern.MatchString(got), ShouldBeFalse)
			So(langAllPattern.MatchString(got), ShouldBeFalse)
		})
	})
}

func TestRewriteDeterministic(t *testing.T) {
	r := NewRewriter("p_", "db", schema.NewLanguageSet("en", "en", "fr", "de"))
	text := "INSERT INTO TABLE(t) SELECT LANG_ALL(name), LANG(name) FROM TABLE(s)"

	first := r.Rewrite(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, r.Rewrite(text))
	}
	assert.Equal(t, "INSERT INTO `db`.`p_t` SELECT `name_en`, `name_en` AS 'name_current', `name_fr`, `name_de`, `name_en` FROM `db`.`p_s`", first)
}

func TestTokenHelpers(t *testing.T) {
	assert.Equal(t, "TABLE(users)", Table("users"))
	assert.Equal(t, "LANG(title)", Lang("title"))
	assert.Equal(t, "LANG_ALL(title)", LangAll("title"))
}
