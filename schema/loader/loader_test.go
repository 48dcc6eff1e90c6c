package loader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hatlonely/schemax/log"
	"github.com/hatlonely/schemax/ref"
	"github.com/hatlonely/schemax/schema"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

const xmlSchema = `<?xml version="1.0" encoding="UTF-8"?>
<database type="mysql">
  <tables>
    <table name="post">
      <options>
        <engine>InnoDB</engine>
        <charset>utf8mb4</charset>
        <collate>utf8mb4_general_ci</collate>
      </options>
      <fields>
        <field>
          <name>id</name>
          <type>int</type>
          <length-values>11</length-values>
          <primary-key/>
          <autoincrement/>
          <unsigned/>
        </field>
        <field>
          <name>title</name>
          <type>varchar</type>
          <length-values>255</length-values>
          <default></default>
          <multi-lingual/>
        </field>
        <field>
          <name>body</name>
          <type>text</type>
          <null/>
          <comment>post body</comment>
        </field>
      </fields>
      <indexes>
        <unique>
          <field name="uk_title" field="title" length="10"/>
        </unique>
        <index>
          <index-group group-name="g_id_title">
            <field field="id"/>
            <field field="title" length="8"/>
          </index-group>
        </index>
      </indexes>
      <alter-rules>
        <rename-field target="caption" value="title"/>
        <delete-field target="legacy"/>
        <alter-field target="body">
          <name>body</name>
          <type>mediumtext</type>
        </alter-field>
        <drop-index target="old_index"/>
      </alter-rules>
      <data>
        <row>
          <field>1</field>
          <field>hello</field>
        </row>
        <row>
          <field name="title">it's</field>
        </row>
      </data>
    </table>
  </tables>
</database>`

const yamlSchema = `
engine: mysql
tables:
  - name: post
    options:
      engine: InnoDB
      charset: utf8mb4
      collate: utf8mb4_general_ci
    fields:
      - {name: id, type: int, length: 11, primaryKey: true, autoIncrement: true, unsigned: true}
      - {name: title, type: varchar, length: 255, default: "", multiLingual: true}
      - {name: body, type: text, "null": true, comment: post body}
    indexes:
      - {kind: unique, name: uk_title, field: title, length: 10}
      - {name: g_id_title, group: [{field: id}, {field: title, length: 8}]}
    rules:
      - rename: {target: caption, to: title}
      - delete: legacy
      - modify: {target: body, field: {name: body, type: mediumtext}}
      - dropIndex: {target: old_index}
    data:
      - [1, hello]
      - [{name: title, value: "it's"}]
`

const jsonSchema = `{
  "engine": "mysql",
  "tables": [{
    "name": "post",
    "options": {"engine": "InnoDB", "charset": "utf8mb4", "collate": "utf8mb4_general_ci"},
    "fields": [
      {"name": "id", "type": "int", "length": 11, "primaryKey": true, "autoIncrement": true, "unsigned": true},
      {"name": "title", "type": "varchar", "length": "255", "default": "", "multiLingual": true},
      {"name": "body", "type": "text", "null": true, "comment": "post body"}
    ],
    "indexes": [
      {"kind": "unique", "name": "uk_title", "field": "title", "length": 10},
      {"name": "g_id_title", "group": [{"field": "id"}, {"field": "title", "length": 8}]}
    ],
    "rules": [
      {"rename-field": {"target": "caption", "to": "title"}},
      {"delete-field": {"target": "legacy"}},
      {"alter-field": {"target": "body", "field": {"name": "body", "type": "mediumtext"}}},
      {"drop-index": {"target": "old_index"}}
    ],
    "data": [[1, "hello"], [{"name": "title", "value": "it's"}]]
  }]
}`

const tomlSchema = `
engine = "mysql"

[[tables]]
name = "post"
rules = [
  { rename = { target = "caption", to = "title" } },
  { delete = "legacy" },
  { modify = { target = "body", field = { name = "body", type = "mediumtext" } } },
  { dropIndex = { target = "old_index" } },
]
data = [[1, "hello"], [{ name = "title", value = "it's" }]]

[tables.options]
engine = "InnoDB"
charset = "utf8mb4"
collate = "utf8mb4_general_ci"

[[tables.fields]]
name = "id"
type = "int"
length = "11"
primaryKey = true
autoIncrement = true
unsigned = true

[[tables.fields]]
name = "title"
type = "varchar"
length = "255"
default = ""
multiLingual = true

[[tables.fields]]
name = "body"
type = "text"
null = true
comment = "post body"

[[tables.indexes]]
kind = "unique"
name = "uk_title"
field = "title"
length = 10

[[tables.indexes]]
name = "g_id_title"
group = [{ field = "id" }, { field = "title", length = 8 }]
`

func assertPostSchema(db *schema.Database) {
	So(db.Engine, ShouldEqual, "mysql")
	So(db.Tables, ShouldHaveLength, 1)

	t := db.Table("post")
	So(t, ShouldNotBeNil)
	So(t.Options, ShouldResemble, schema.TableOptions{Engine: "InnoDB", Charset: "utf8mb4", Collation: "utf8mb4_general_ci"})

	So(t.FieldNames(), ShouldResemble, []string{"id", "title", "body"})
	id := t.Field("id")
	So(id.Type, ShouldEqual, "int")
	So(id.Length, ShouldEqual, "11")
	So(id.PrimaryKey, ShouldBeTrue)
	So(id.AutoIncrement, ShouldBeTrue)
	So(id.Sign, ShouldEqual, schema.SignUnsigned)
	So(id.Default, ShouldBeNil)

	title := t.Field("title")
	So(title.MultiLingual, ShouldBeTrue)
	So(title.Default, ShouldNotBeNil)
	So(*title.Default, ShouldEqual, "")

	body := t.Field("body")
	So(body.Nullable, ShouldBeTrue)
	So(body.Comment, ShouldEqual, "post body")

	So(t.Indexes, ShouldHaveLength, 2)
	So(*t.Indexes[0], ShouldResemble, schema.Index{Kind: schema.IndexUnique, Name: "uk_title", Field: "title", Length: 10})
	So(t.Indexes[1].Kind, ShouldEqual, schema.IndexPlain)
	So(t.Indexes[1].Name, ShouldEqual, "g_id_title")
	So(t.Indexes[1].Group, ShouldResemble, []schema.IndexColumn{{Field: "id"}, {Field: "title", Length: 8}})

	So(t.AlterRules, ShouldHaveLength, 4)
	So(t.AlterRules[0], ShouldResemble, schema.RenameField{Target: "caption", NewName: "title"})
	So(t.AlterRules[1], ShouldResemble, schema.DeleteField{Target: "legacy"})
	modify, ok := t.AlterRules[2].(schema.ModifyField)
	So(ok, ShouldBeTrue)
	So(modify.Target, ShouldEqual, "body")
	So(modify.Field.Type, ShouldEqual, "mediumtext")
	So(t.AlterRules[3], ShouldResemble, schema.DropIndex{Target: "old_index"})

	So(t.Data, ShouldHaveLength, 2)
	So(t.Data[0].Values, ShouldResemble, []schema.Value{{Text: "1"}, {Text: "hello"}})
	So(t.Data[1].Values, ShouldResemble, []schema.Value{{Name: "title", Text: "it's"}})
}

func TestDecoders(t *testing.T) {
	Convey("各种格式解码出相同的描述", t, func() {
		for _, c := range []struct {
			ext  string
			data string
		}{
			{"xml", xmlSchema},
			{"yaml", yamlSchema},
			{"json", jsonSchema},
			{"toml", tomlSchema},
		} {
			Convey(c.ext, func() {
				decoder, err := NewDecoder(c.ext)
				So(err, ShouldBeNil)
				db, err := decoder.Decode([]byte(c.data))
				So(err, ShouldBeNil)
				assertPostSchema(db)
			})
		}
	})

	Convey("不支持的扩展名", t, func() {
		_, err := NewDecoder(".ini")
		So(errors.Is(err, ErrUnsupportedFormat), ShouldBeTrue)
	})

	Convey("通过 ref 创建解码器", t, func() {
		decoder, err := NewDecoderWithOptions(&ref.TypeOptions{Type: "YamlDecoder"})
		So(err, ShouldBeNil)
		_, ok := decoder.(*YamlDecoder)
		So(ok, ShouldBeTrue)

		_, err = NewDecoderWithOptions(&ref.TypeOptions{Type: "Unknown"})
		So(err, ShouldNotBeNil)
	})
}

func TestDecodeErrors(t *testing.T) {
	Convey("未知的变更规则被拒绝", t, func() {
		_, err := NewXMLDecoder().Decode([]byte(`<database type="mysql"><tables><table name="t">
			<fields><field><name>a</name><type>int</type></field></fields>
			<alter-rules><truncate target="a"/></alter-rules></table></tables></database>`))
		So(errors.Is(err, schema.ErrUnknownAlterRule), ShouldBeTrue)

		_, err = NewYamlDecoder().Decode([]byte(`
engine: mysql
tables:
  - name: t
    fields: [{name: a, type: int}]
    rules: [{truncate: {target: a}}]
`))
		So(errors.Is(err, schema.ErrUnknownAlterRule), ShouldBeTrue)
	})

	Convey("混合命名和位置的种子行被拒绝", t, func() {
		_, err := NewJsonDecoder().Decode([]byte(`{"engine": "mysql", "tables": [{"name": "t",
			"fields": [{"name": "a", "type": "int"}, {"name": "b", "type": "int"}],
			"data": [[{"name": "a", "value": 1}, 2]]}]}`))
		So(errors.Is(err, schema.ErrMixedRow), ShouldBeTrue)
	})

	Convey("缺少根节点", t, func() {
		_, err := NewXMLDecoder().Decode([]byte(`<tables/>`))
		So(errors.Is(err, schema.ErrInvalidSchema), ShouldBeTrue)
	})

	Convey("索引长度不是数字", t, func() {
		_, err := NewXMLDecoder().Decode([]byte(`<database type="mysql"><tables><table name="t">
			<fields><field><name>a</name><type>int</type></field></fields>
			<indexes><index><field field="a" length="x"/></index></indexes></table></tables></database>`))
		So(errors.Is(err, schema.ErrInvalidSchema), ShouldBeTrue)
	})

	Convey("格式错误", t, func() {
		_, err := NewYamlDecoder().Decode([]byte("engine: [mysql"))
		So(err, ShouldNotBeNil)
		_, err = NewTomlDecoder().Decode([]byte("engine = "))
		So(err, ShouldNotBeNil)
		_, err = NewJsonDecoder().Decode([]byte("{"))
		So(err, ShouldNotBeNil)
	})
}

func TestLoadFile(t *testing.T) {
	Convey("按扩展名加载文件", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "schema.yml")
		So(os.WriteFile(path, []byte(yamlSchema), 0644), ShouldBeNil)

		db, err := LoadFile(path)
		So(err, ShouldBeNil)
		assertPostSchema(db)

		_, err = LoadFile(filepath.Join(dir, "missing.xml"))
		So(err, ShouldNotBeNil)
	})
}

func TestFileProvider(t *testing.T) {
	Convey("文件变更后重新加载", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "schema.json")
		So(os.WriteFile(path, []byte(`{"engine": "mysql", "tables": []}`), 0644), ShouldBeNil)

		provider, err := NewFileProviderWithOptions(&FileProviderOptions{FilePath: path, Logger: log.Discard()})
		So(err, ShouldBeNil)
		defer provider.Close()

		db, err := provider.Load()
		So(err, ShouldBeNil)
		So(db.Tables, ShouldBeEmpty)

		changes := make(chan *schema.Database, 4)
		provider.OnChange(func(db *schema.Database) error {
			changes <- db
			return nil
		})
		So(provider.Watch(), ShouldBeNil)

		time.Sleep(100 * time.Millisecond)
		So(os.WriteFile(path, []byte(jsonSchema), 0644), ShouldBeNil)

		select {
		case db := <-changes:
			So(db.Table("post"), ShouldNotBeNil)
		case <-time.After(2 * time.Second):
			So("timeout waiting for change", ShouldBeEmpty)
		}
	})

	Convey("指定解码器类型", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "schema.conf")
		So(os.WriteFile(path, []byte(yamlSchema), 0644), ShouldBeNil)

		provider, err := NewFileProviderWithOptions(&FileProviderOptions{
			FilePath: path,
			Decoder:  &ref.TypeOptions{Type: "YamlDecoder"},
			Logger:   log.Discard(),
		})
		So(err, ShouldBeNil)
		db, err := provider.Load()
		So(err, ShouldBeNil)
		assertPostSchema(db)
		So(provider.Close(), ShouldBeNil)
		So(provider.Close(), ShouldBeNil)
	})

	Convey("缺少文件路径", t, func() {
		_, err := NewFileProviderWithOptions(&FileProviderOptions{})
		So(err, ShouldNotBeNil)
	})
}
