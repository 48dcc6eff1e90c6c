package syncer

import (
	"context"
	"testing"

	"github.com/hatlonely/schemax/errstack"
	"github.com/hatlonely/schemax/executor"
	"github.com/hatlonely/schemax/log"
	"github.com/hatlonely/schemax/schema"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/multierr"
)

func strPtr(s string) *string {
	return &s
}

func newPostTable() *schema.Table {
	return &schema.Table{
		Name:    "post",
		Options: schema.TableOptions{Engine: "InnoDB"},
		Fields: []*schema.Field{
			{Name: "id", Type: "int", Length: "11", PrimaryKey: true, AutoIncrement: true, Sign: schema.SignUnsigned},
			{Name: "title", Type: "varchar", Length: "64", Default: strPtr(""), MultiLingual: true},
			{Name: "email", Type: "varchar", Length: "128", Nullable: true},
		},
		Indexes: []*schema.Index{
			{Kind: schema.IndexUnique, Field: "email"},
			{Field: "title", Length: 10},
		},
		Data: []*schema.Row{
			{Values: []schema.Value{{Text: "1"}, {Text: "hello"}}},
		},
	}
}

func newTestSyncer(exec executor.Executor, langs ...string) *Syncer {
	return New(exec, &Options{
		Prefix:    "app_",
		Database:  "shop",
		Languages: schema.NewLanguageSet("de", langs...),
		Logger:    log.Discard(),
	})
}

func TestCreateTable(t *testing.T) {
	Convey("测试 CreateTable", t, func() {
		ctx := context.Background()
		exec := newFakeExecutor()
		s := newTestSyncer(exec, "en", "de")

		Convey("建表、创建索引、写入种子数据", func() {
			res, err := s.CreateTable(ctx, newPostTable())
			So(err, ShouldBeNil)
			So(res.State, ShouldEqual, StateCreated)
			So(res.OK(), ShouldBeTrue)
			So(res.Failures, ShouldBeEmpty)
			So(exec.statements(), ShouldResemble, []string{
				"CREATE TABLE `shop`.`app_post` (\n" +
					"\t`id` int(11) PRIMARY KEY UNSIGNED NOT NULL AUTO_INCREMENT,\n" +
					"\t`title_en` varchar(64) DEFAULT '' NOT NULL,\n" +
					"\t`title_de` varchar(64) DEFAULT '' NOT NULL,\n" +
					"\t`email` varchar(128) NULL\n" +
					") ENGINE = InnoDB",
				"CREATE UNIQUE INDEX `email` ON `shop`.`app_post` (`email`)",
				"CREATE INDEX `title_en` ON `shop`.`app_post` (`title_en`(10))",
				"CREATE INDEX `title_de` ON `shop`.`app_post` (`title_de`(10))",
				"INSERT INTO `shop`.`app_post` (`id`, `title_en`, `title_de`) VALUES ('1', 'hello', 'hello')",
			})
			So(res.Statements, ShouldResemble, exec.statements())
			So(res.Seed.Inserted, ShouldEqual, 1)
			So(res.Seed.Failed, ShouldEqual, 0)
			So(s.Errors().Len(), ShouldEqual, 0)

			entries, err := s.Journal().List("post")
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 5)
			So(entries[0].RunID, ShouldNotBeEmpty)
			So(entries[4].RunID, ShouldEqual, entries[0].RunID)
			So(entries[4].Success, ShouldBeTrue)
		})

		Convey("没有字段时失败且不发出任何语句", func() {
			res, err := s.CreateTable(ctx, &schema.Table{Name: "empty"})
			So(errors.Is(err, errstack.ErrNoTableFields), ShouldBeTrue)
			So(res.State, ShouldEqual, StateNoFields)
			So(exec.queries, ShouldBeEmpty)
			last, ok := s.Errors().Last()
			So(ok, ShouldBeTrue)
			So(last.Kind, ShouldEqual, errstack.KindNoTableFields)
			So(last.Table, ShouldEqual, "empty")
		})

		Convey("表已存在时失败且不发出后续语句", func() {
			exec.withTable("app_post", "id")
			res, err := s.CreateTable(ctx, newPostTable())
			So(errors.Is(err, errstack.ErrTableExists), ShouldBeTrue)
			So(res.State, ShouldEqual, StateExists)
			So(exec.queries, ShouldBeEmpty)

			_, err = s.CreateTable(ctx, newPostTable())
			So(errors.Is(err, errstack.ErrTableExists), ShouldBeTrue)
			So(s.Errors().Len(), ShouldEqual, 2)
		})

		Convey("建表失败时不创建索引和种子数据", func() {
			exec.failing("CREATE TABLE")
			res, err := s.CreateTable(ctx, newPostTable())
			So(errors.Is(err, errstack.ErrTableCreate), ShouldBeTrue)
			So(res.State, ShouldEqual, StateFailed)
			So(exec.statements(), ShouldHaveLength, 1)

			last, _ := s.Errors().Last()
			So(last.Query, ShouldStartWith, "CREATE TABLE `shop`.`app_post`")
			So(last.Detail, ShouldEqual, "rejected: CREATE TABLE")
		})

		Convey("一种语言的索引失败不影响其他语言的索引和种子数据", func() {
			exec.failing("`title_en`(10)")
			res, err := s.CreateTable(ctx, newPostTable())
			So(err, ShouldBeNil)
			So(res.State, ShouldEqual, StateCreated)
			So(exec.statements(), ShouldHaveLength, 5)
			So(res.Failures, ShouldHaveLength, 1)
			So(res.Failures[0].Kind, ShouldEqual, errstack.KindIndexCreate)
			So(res.Seed.Inserted, ShouldEqual, 1)
		})

		Convey("一行种子数据失败不影响后续行", func() {
			table := newPostTable()
			table.Data = []*schema.Row{
				{Values: []schema.Value{{Text: "1"}, {Text: "bad"}}},
				{Values: []schema.Value{{Name: "id", Text: "2"}, {Text: "mixed"}}},
				{Values: []schema.Value{{Name: "id", Text: "3"}, {Name: "title", Text: "it's"}}},
			}
			exec.failing("'bad'")

			res, err := s.CreateTable(ctx, table)
			So(err, ShouldBeNil)
			So(res.Seed.Inserted, ShouldEqual, 1)
			So(res.Seed.Failed, ShouldEqual, 2)
			So(errors.Is(res.Seed.Rows[1].Err, schema.ErrMixedRow), ShouldBeTrue)
			So(res.Seed.Rows[2].Statement, ShouldEqual, "INSERT INTO `shop`.`app_post` SET `id` = '3', `title_en` = 'it\\'s', `title_de` = 'it\\'s'")
			So(res.Failures, ShouldHaveLength, 2)
			for _, r := range res.Failures {
				So(r.Kind, ShouldEqual, errstack.KindInsertData)
			}
		})

		Convey("类型缺失时记录 InvalidFieldSpec", func() {
			table := &schema.Table{Name: "bad", Fields: []*schema.Field{{Name: "x"}}}
			_, err := s.CreateTable(ctx, table)
			So(errors.Is(err, errstack.ErrInvalidFieldSpec), ShouldBeTrue)
			So(exec.statements(), ShouldBeEmpty)
		})

		Convey("没有连接时记录 NoLink", func() {
			exec.noLink = true
			_, err := s.CreateTable(ctx, newPostTable())
			So(errors.Is(err, errstack.ErrNoLink), ShouldBeTrue)
		})
	})
}

func TestAlterTable(t *testing.T) {
	Convey("测试 AlterTable", t, func() {
		ctx := context.Background()
		exec := newFakeExecutor()

		Convey("缺失的语言列按语言顺序依次放在前一列之后", func() {
			s := newTestSyncer(exec, "en", "de", "fr")
			exec.withTable("app_post", "id", "title_en", "email")

			res, err := s.AlterTable(ctx, newPostTable())
			So(err, ShouldBeNil)
			So(res.State, ShouldEqual, StateAltered)
			So(exec.statements(), ShouldResemble, []string{
				"ALTER TABLE `shop`.`app_post` ADD `title_de` varchar(64) DEFAULT '' NOT NULL AFTER `title_en`",
				"ALTER TABLE `shop`.`app_post` ADD `title_fr` varchar(64) DEFAULT '' NOT NULL AFTER `title_de`",
			})
		})

		Convey("第一种语言的列放在前一个字段的最后一列之后，第一个字段用 FIRST", func() {
			s := newTestSyncer(exec, "en", "de")
			exec.withTable("app_doc", "id", "name_en", "name_de")
			table := &schema.Table{
				Name: "doc",
				Fields: []*schema.Field{
					{Name: "code", Type: "char", Length: "4", MultiLingual: true},
					{Name: "id", Type: "int"},
					{Name: "name", Type: "varchar", Length: "32", MultiLingual: true},
					{Name: "body", Type: "text", MultiLingual: true},
				},
			}

			_, err := s.AlterTable(ctx, table)
			So(err, ShouldBeNil)
			So(exec.statements(), ShouldResemble, []string{
				"ALTER TABLE `shop`.`app_doc` ADD `code_en` char(4) NOT NULL FIRST",
				"ALTER TABLE `shop`.`app_doc` ADD `code_de` char(4) NOT NULL AFTER `code_en`",
				"ALTER TABLE `shop`.`app_doc` ADD `body_en` text NOT NULL AFTER `name_de`",
				"ALTER TABLE `shop`.`app_doc` ADD `body_de` text NOT NULL AFTER `body_en`",
			})
		})

		Convey("新的普通字段追加到末尾", func() {
			s := newTestSyncer(exec, "en", "de")
			exec.withTable("app_post", "id", "title_en", "title_de")

			res, err := s.AlterTable(ctx, newPostTable())
			So(err, ShouldBeNil)
			So(res.Statements, ShouldResemble, []string{
				"ALTER TABLE `shop`.`app_post` ADD `email` varchar(128) NULL",
			})
		})

		Convey("结构一致时不发出语句", func() {
			s := newTestSyncer(exec, "en", "de")
			exec.withTable("app_post", "id", "title_en", "title_de", "email")

			res, err := s.AlterTable(ctx, newPostTable())
			So(err, ShouldBeNil)
			So(res.State, ShouldEqual, StateUnchanged)
			So(exec.statements(), ShouldBeEmpty)
		})

		Convey("变更规则按顺序执行，重命名沿用线上列定义", func() {
			s := newTestSyncer(exec, "en", "de")
			exec.tables["app_user"] = []executor.Column{
				{Name: "id", Type: "int(11) unsigned", Extra: "auto_increment"},
				{Name: "name", Type: "varchar(32)", Default: strPtr("x")},
				{Name: "age", Type: "int(11)", Default: strPtr("0"), Nullable: true},
				{Name: "old", Type: "text"},
			}
			table := &schema.Table{
				Name: "user",
				Fields: []*schema.Field{
					{Name: "id", Type: "int", Length: "11", Sign: schema.SignUnsigned, AutoIncrement: true, PrimaryKey: true},
					{Name: "nick", Type: "varchar", Length: "32"},
					{Name: "years", Type: "int", Length: "11", Nullable: true},
				},
				AlterRules: []schema.AlterRule{
					schema.RenameField{Target: "name", NewName: "nick"},
					schema.RenameField{Target: "age", NewName: "years"},
					schema.DeleteField{Target: "old"},
					schema.ModifyField{Target: "nick", Field: &schema.Field{Name: "nick", Type: "varchar", Length: "64", Comment: "nick name"}},
					schema.DropIndex{Target: "idx_name"},
				},
			}

			res, err := s.AlterTable(ctx, table)
			So(err, ShouldBeNil)
			So(res.State, ShouldEqual, StateAltered)
			So(exec.statements(), ShouldResemble, []string{
				"ALTER TABLE `shop`.`app_user` CHANGE COLUMN `name` `nick` varchar(32) DEFAULT 'x' NOT NULL",
				"ALTER TABLE `shop`.`app_user` CHANGE COLUMN `age` `years` int(11) DEFAULT 0 NULL",
				"ALTER TABLE `shop`.`app_user` DROP COLUMN `old`",
				"ALTER TABLE `shop`.`app_user` MODIFY COLUMN `nick` varchar(64) NOT NULL COMMENT 'nick name'",
				"DROP INDEX `idx_name` ON `shop`.`app_user`",
			})
		})

		Convey("变更规则失败时中断后续规则和新增列", func() {
			s := newTestSyncer(exec, "en", "de", "fr")
			exec.withTable("app_post", "id", "title_en", "legacy")
			exec.failing("DROP COLUMN")
			table := newPostTable()
			table.AlterRules = []schema.AlterRule{
				schema.DeleteField{Target: "legacy"},
				schema.DropIndex{Target: "idx_legacy"},
			}

			res, err := s.AlterTable(ctx, table)
			So(errors.Is(err, errstack.ErrTableAlter), ShouldBeTrue)
			So(res.State, ShouldEqual, StateFailed)
			So(res.OK(), ShouldBeFalse)
			So(exec.statements(), ShouldResemble, []string{
				"ALTER TABLE `shop`.`app_post` DROP COLUMN `legacy`",
			})
		})

		Convey("新增列失败时中断", func() {
			s := newTestSyncer(exec, "en", "de", "fr")
			exec.withTable("app_post", "id", "title_en", "email")
			exec.failing("`title_de`")

			_, err := s.AlterTable(ctx, newPostTable())
			So(errors.Is(err, errstack.ErrTableAlter), ShouldBeTrue)
			So(exec.statements(), ShouldHaveLength, 1)
		})

		Convey("重命名不存在的列时中断", func() {
			s := newTestSyncer(exec, "en")
			exec.withTable("app_post", "id")
			table := newPostTable()
			table.AlterRules = []schema.AlterRule{schema.RenameField{Target: "nope", NewName: "x"}}

			_, err := s.AlterTable(ctx, table)
			So(errors.Is(err, errstack.ErrTableAlter), ShouldBeTrue)
			So(exec.statements(), ShouldBeEmpty)
		})

		Convey("表不存在时返回 ErrTableMissing 且不记录错误", func() {
			s := newTestSyncer(exec, "en")
			res, err := s.AlterTable(ctx, newPostTable())
			So(errors.Is(err, ErrTableMissing), ShouldBeTrue)
			So(res.State, ShouldEqual, StateMissing)
			So(s.Errors().Len(), ShouldEqual, 0)
		})

		Convey("sqlite 不指定列位置", func() {
			exec.engine = "sqlite3"
			s := newTestSyncer(exec, "en", "de")
			exec.withTable("app_post", "id", "title_en", "email")

			_, err := s.AlterTable(ctx, newPostTable())
			So(err, ShouldBeNil)
			So(exec.statements(), ShouldResemble, []string{
				"ALTER TABLE `shop`.`app_post` ADD `title_de` varchar(64) DEFAULT '' NOT NULL",
			})
		})
	})
}

func TestRun(t *testing.T) {
	Convey("测试多表运行", t, func() {
		ctx := context.Background()
		exec := newFakeExecutor()
		s := newTestSyncer(exec, "en", "de")

		db := &schema.Database{
			Engine: "mysqli",
			Tables: []*schema.Table{
				newPostTable(),
				{Name: "empty"},
				{Name: "tag", Fields: []*schema.Field{{Name: "id", Type: "int"}}},
			},
		}

		Convey("引擎不一致时不处理任何表", func() {
			exec.engine = "sqlite3"
			res, err := s.CreateTables(ctx, db)
			So(errors.Is(err, errstack.ErrEngineMismatch), ShouldBeTrue)
			So(res.Tables, ShouldBeEmpty)
			So(exec.queries, ShouldBeEmpty)
		})

		Convey("CreateTables 处理每个表并合并错误", func() {
			res, err := s.CreateTables(ctx, db)
			So(err, ShouldNotBeNil)
			So(multierr.Errors(err), ShouldHaveLength, 1)
			So(errors.Is(err, errstack.ErrNoTableFields), ShouldBeTrue)
			So(res.Tables, ShouldHaveLength, 3)
			So(res.Table("post").State, ShouldEqual, StateCreated)
			So(res.Table("empty").State, ShouldEqual, StateNoFields)
			So(res.Table("tag").State, ShouldEqual, StateCreated)
			So(res.RunID, ShouldNotBeEmpty)

			entries, _ := s.Journal().List("tag")
			So(entries[0].RunID, ShouldEqual, res.RunID)
		})

		Convey("AlterTables 对不存在的表返回 ErrTableMissing", func() {
			exec.withTable("app_post", "id", "title_en", "title_de", "email")
			db.Tables = db.Tables[:1:1]
			db.Tables = append(db.Tables, &schema.Table{Name: "tag", Fields: []*schema.Field{{Name: "id", Type: "int"}}})

			res, err := s.AlterTables(ctx, db)
			So(errors.Is(err, ErrTableMissing), ShouldBeTrue)
			So(res.Table("post").State, ShouldEqual, StateUnchanged)
			So(res.Table("tag").State, ShouldEqual, StateMissing)
		})

		Convey("Sync 新建不存在的表，变更已存在的表", func() {
			exec.withTable("app_post", "id", "title_en", "email")
			db.Tables = []*schema.Table{newPostTable(), {Name: "tag", Fields: []*schema.Field{{Name: "id", Type: "int"}}}}

			res, err := s.Sync(ctx, db)
			So(err, ShouldBeNil)
			So(res.Table("post").State, ShouldEqual, StateAltered)
			So(res.Table("tag").State, ShouldEqual, StateCreated)
			So(exec.statements(), ShouldResemble, []string{
				"ALTER TABLE `shop`.`app_post` ADD `title_de` varchar(64) DEFAULT '' NOT NULL AFTER `title_en`",
				"CREATE TABLE `shop`.`app_tag` (\n\t`id` int NOT NULL\n)",
			})
		})

		Convey("ctx 取消后停止处理", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			res, err := s.Sync(cctx, db)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(res.Tables, ShouldBeEmpty)
		})
	})
}
