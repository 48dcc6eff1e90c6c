package loader

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hatlonely/schemax/ref"
	"github.com/hatlonely/schemax/schema"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// document yaml/json/toml 共用的描述结构
//
//	engine: mysql
//	tables:
//	  - name: post
//	    options: {engine: InnoDB, charset: utf8mb4}
//	    fields:
//	      - {name: id, type: int, length: 11, primaryKey: true, autoIncrement: true}
//	      - {name: title, type: varchar, length: 255, default: "", multiLingual: true}
//	    indexes:
//	      - {kind: unique, field: title}
//	      - {name: g, group: [{field: id}, {field: title, length: 10}]}
//	    rules:
//	      - rename: {target: caption, to: title}
//	      - dropIndex: {target: old}
//	    data:
//	      - [1, hello]
//	      - [{name: id, value: 2}]
type document struct {
	Engine string           `cfg:"engine"`
	Tables []*tableDocument `cfg:"tables"`
}

type tableDocument struct {
	Name    string `cfg:"name"`
	Options struct {
		Engine  string `cfg:"engine"`
		Charset string `cfg:"charset"`
		Collate string `cfg:"collate"`
	} `cfg:"options"`
	Fields  []*fieldDocument `cfg:"fields"`
	Indexes []*indexDocument `cfg:"indexes"`
	Rules   []map[string]any `cfg:"rules"`
	Data    [][]any          `cfg:"data"`
}

type fieldDocument struct {
	Name          string  `cfg:"name"`
	Type          string  `cfg:"type"`
	Length        string  `cfg:"length"`
	Default       *string `cfg:"default"`
	Charset       string  `cfg:"charset"`
	Collate       string  `cfg:"collate"`
	PrimaryKey    bool    `cfg:"primaryKey"`
	AutoIncrement bool    `cfg:"autoIncrement"`
	Null          bool    `cfg:"null"`
	Signed        bool    `cfg:"signed"`
	Unsigned      bool    `cfg:"unsigned"`
	Zerofill      bool    `cfg:"zerofill"`
	Binary        bool    `cfg:"binary"`
	MultiLingual  bool    `cfg:"multiLingual"`
	Comment       string  `cfg:"comment"`
}

type indexDocument struct {
	Kind   string `cfg:"kind"`
	Name   string `cfg:"name"`
	Field  string `cfg:"field"`
	Length int    `cfg:"length"`
	Group  []struct {
		Field  string `cfg:"field"`
		Length int    `cfg:"length"`
	} `cfg:"group"`
}

type ruleDocument struct {
	Target string         `cfg:"target"`
	To     string         `cfg:"to"`
	Field  *fieldDocument `cfg:"field"`
}

// ruleTag 规则的键名，同时接受描述文件中的标签写法
func ruleTag(key string) (string, bool) {
	switch key {
	case "rename", schema.TagRenameField:
		return schema.TagRenameField, true
	case "delete", schema.TagDeleteField:
		return schema.TagDeleteField, true
	case "modify", schema.TagModifyField:
		return schema.TagModifyField, true
	case "dropIndex", schema.TagDropIndex:
		return schema.TagDropIndex, true
	}
	return "", false
}

func decodeDocument(raw map[string]any) (*schema.Database, error) {
	var doc document
	if err := ref.Decode(raw, &doc); err != nil {
		return nil, errors.Wrap(schema.ErrInvalidSchema, err.Error())
	}

	db := &schema.Database{Engine: doc.Engine}
	for _, td := range doc.Tables {
		if td == nil {
			return nil, errors.Wrap(schema.ErrInvalidSchema, "empty table entry")
		}
		table, err := td.table()
		if err != nil {
			return nil, errors.WithMessagef(err, "table %s", td.Name)
		}
		db.Tables = append(db.Tables, table)
	}

	return validated(db)
}

func (td *tableDocument) table() (*schema.Table, error) {
	t := &schema.Table{
		Name: td.Name,
		Options: schema.TableOptions{
			Engine:    td.Options.Engine,
			Charset:   td.Options.Charset,
			Collation: td.Options.Collate,
		},
	}

	for _, fd := range td.Fields {
		if fd == nil {
			return nil, errors.Wrap(schema.ErrInvalidSchema, "empty field entry")
		}
		t.Fields = append(t.Fields, fd.field())
	}

	for _, id := range td.Indexes {
		if id == nil {
			return nil, errors.Wrap(schema.ErrInvalidSchema, "empty index entry")
		}
		kind := schema.IndexKind(strings.ToLower(id.Kind))
		if kind == "" {
			kind = schema.IndexPlain
		}
		idx := &schema.Index{Kind: kind, Name: id.Name, Field: id.Field, Length: id.Length}
		for _, c := range id.Group {
			idx.Group = append(idx.Group, schema.IndexColumn{Field: c.Field, Length: c.Length})
		}
		t.Indexes = append(t.Indexes, idx)
	}

	for i, r := range td.Rules {
		rule, err := decodeRule(r)
		if err != nil {
			return nil, errors.WithMessagef(err, "rule %d", i)
		}
		t.AlterRules = append(t.AlterRules, rule)
	}

	for _, values := range td.Data {
		row := &schema.Row{}
		for _, v := range values {
			value, err := decodeValue(v)
			if err != nil {
				return nil, err
			}
			row.Values = append(row.Values, value)
		}
		t.Data = append(t.Data, row)
	}

	return t, nil
}

func (fd *fieldDocument) field() *schema.Field {
	f := &schema.Field{
		Name:          fd.Name,
		Type:          fd.Type,
		Length:        fd.Length,
		Default:       fd.Default,
		Charset:       fd.Charset,
		Collation:     fd.Collate,
		PrimaryKey:    fd.PrimaryKey,
		AutoIncrement: fd.AutoIncrement,
		Nullable:      fd.Null,
		Zerofill:      fd.Zerofill,
		Binary:        fd.Binary,
		MultiLingual:  fd.MultiLingual,
		Comment:       fd.Comment,
	}
	switch {
	case fd.Signed:
		f.Sign = schema.SignSigned
	case fd.Unsigned:
		f.Sign = schema.SignUnsigned
	}
	return f
}

// decodeRule 每条规则是只有一个键的 map，键为规则类型
func decodeRule(raw map[string]any) (schema.AlterRule, error) {
	if len(raw) != 1 {
		keys := make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, errors.Wrapf(schema.ErrUnknownAlterRule, "rule must have exactly one key, got %v", keys)
	}

	for key, payload := range raw {
		tag, ok := ruleTag(key)
		if !ok {
			return nil, errors.Wrapf(schema.ErrUnknownAlterRule, "[%s]", key)
		}

		var rd ruleDocument
		if target, ok := payload.(string); ok {
			rd.Target = target
		} else if err := ref.Decode(payload, &rd); err != nil {
			return nil, errors.Wrapf(schema.ErrInvalidSchema, "%s: %v", key, err)
		}

		switch tag {
		case schema.TagRenameField:
			return schema.RenameField{Target: rd.Target, NewName: rd.To}, nil
		case schema.TagDeleteField:
			return schema.DeleteField{Target: rd.Target}, nil
		case schema.TagModifyField:
			rule := schema.ModifyField{Target: rd.Target}
			if rd.Field != nil {
				rule.Field = rd.Field.field()
			}
			return rule, nil
		case schema.TagDropIndex:
			return schema.DropIndex{Target: rd.Target}, nil
		}
	}
	return nil, schema.ErrUnknownAlterRule
}

// decodeValue 标量按位置匹配，{name, value} 按字段名匹配
func decodeValue(v any) (schema.Value, error) {
	if m, ok := v.(map[string]any); ok {
		name, ok := m["name"]
		if !ok {
			return schema.Value{}, errors.Wrap(schema.ErrInvalidSchema, "named value requires name")
		}
		return schema.Value{Name: scalarText(name), Text: scalarText(m["value"])}, nil
	}
	if _, ok := v.([]any); ok {
		return schema.Value{}, errors.Wrap(schema.ErrInvalidSchema, "nested list is not a value")
	}
	return schema.Value{Text: scalarText(v)}, nil
}

func scalarText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		if x {
			return "1"
		}
		return "0"
	}
	return fmt.Sprint(v)
}

// YamlDecoder yaml 格式的描述文件
type YamlDecoder struct{}

func NewYamlDecoder() *YamlDecoder {
	return &YamlDecoder{}
}

func (d *YamlDecoder) Decode(data []byte) (*schema.Database, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to decode yaml")
	}
	return decodeDocument(raw)
}

// JsonDecoder json 格式的描述文件
type JsonDecoder struct{}

func NewJsonDecoder() *JsonDecoder {
	return &JsonDecoder{}
}

func (d *JsonDecoder) Decode(data []byte) (*schema.Database, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to decode json")
	}
	return decodeDocument(raw)
}

// TomlDecoder toml 格式的描述文件
type TomlDecoder struct{}

func NewTomlDecoder() *TomlDecoder {
	return &TomlDecoder{}
}

func (d *TomlDecoder) Decode(data []byte) (*schema.Database, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to decode toml")
	}
	return decodeDocument(raw)
}
