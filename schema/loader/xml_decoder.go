package loader

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/hatlonely/schemax/schema"
	"github.com/pkg/errors"
)

// XMLDecoder 解析 <database><tables><table>... 形式的描述文件
type XMLDecoder struct{}

func NewXMLDecoder() *XMLDecoder {
	return &XMLDecoder{}
}

func (d *XMLDecoder) Decode(data []byte) (*schema.Database, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse xml")
	}

	root := xmlquery.FindOne(doc, "/database")
	if root == nil {
		return nil, errors.Wrap(schema.ErrInvalidSchema, "missing <database> root")
	}

	db := &schema.Database{Engine: strings.TrimSpace(root.SelectAttr("type"))}
	for _, node := range xmlquery.Find(root, "tables/table") {
		table, err := d.decodeTable(node)
		if err != nil {
			return nil, err
		}
		db.Tables = append(db.Tables, table)
	}

	return validated(db)
}

func (d *XMLDecoder) decodeTable(node *xmlquery.Node) (*schema.Table, error) {
	table := &schema.Table{Name: strings.TrimSpace(node.SelectAttr("name"))}

	if options := xmlquery.FindOne(node, "options"); options != nil {
		table.Options = schema.TableOptions{
			Engine:    childText(options, "engine"),
			Charset:   childText(options, "charset"),
			Collation: childText(options, "collate"),
		}
	}

	for _, f := range xmlquery.Find(node, "fields/field") {
		table.Fields = append(table.Fields, decodeXMLField(f))
	}

	if indexes := xmlquery.FindOne(node, "indexes"); indexes != nil {
		for _, group := range elements(indexes) {
			idx, err := decodeXMLIndexes(group)
			if err != nil {
				return nil, errors.WithMessagef(err, "table %s", table.Name)
			}
			table.Indexes = append(table.Indexes, idx...)
		}
	}

	if rules := xmlquery.FindOne(node, "alter-rules"); rules != nil {
		for _, r := range elements(rules) {
			rule, err := decodeXMLRule(r)
			if err != nil {
				return nil, errors.WithMessagef(err, "table %s", table.Name)
			}
			table.AlterRules = append(table.AlterRules, rule)
		}
	}

	for _, r := range xmlquery.Find(node, "data/row") {
		row := &schema.Row{}
		for _, v := range elements(r) {
			row.Values = append(row.Values, schema.Value{
				Name: strings.TrimSpace(v.SelectAttr("name")),
				Text: v.InnerText(),
			})
		}
		table.Data = append(table.Data, row)
	}

	return table, nil
}

func decodeXMLField(node *xmlquery.Node) *schema.Field {
	f := &schema.Field{
		Name:          childText(node, "name"),
		Type:          childText(node, "type"),
		Length:        childText(node, "length-values"),
		Charset:       childText(node, "charset"),
		Collation:     childText(node, "collate"),
		Comment:       childText(node, "comment"),
		PrimaryKey:    hasChild(node, "primary-key"),
		AutoIncrement: hasChild(node, "autoincrement"),
		Nullable:      hasChild(node, "null"),
		Zerofill:      hasChild(node, "zerofill"),
		Binary:        hasChild(node, "binary"),
		MultiLingual:  hasChild(node, "multi-lingual"),
	}
	if def := xmlquery.FindOne(node, "default"); def != nil {
		text := def.InnerText()
		f.Default = &text
	}
	switch {
	case hasChild(node, "signed"):
		f.Sign = schema.SignSigned
	case hasChild(node, "unsigned"):
		f.Sign = schema.SignUnsigned
	}
	return f
}

func decodeXMLIndexes(node *xmlquery.Node) ([]*schema.Index, error) {
	kind := schema.IndexKind(node.Data)
	switch kind {
	case schema.IndexPlain, schema.IndexUnique, schema.IndexFulltext, schema.IndexSpatial:
	default:
		return nil, errors.Wrapf(schema.ErrInvalidSchema, "unknown index kind <%s>", node.Data)
	}

	var indexes []*schema.Index
	for _, child := range elements(node) {
		switch child.Data {
		case "field":
			length, err := attrInt(child, "length")
			if err != nil {
				return nil, err
			}
			indexes = append(indexes, &schema.Index{
				Kind:   kind,
				Name:   strings.TrimSpace(child.SelectAttr("name")),
				Field:  strings.TrimSpace(child.SelectAttr("field")),
				Length: length,
			})
		case "index-group":
			idx := &schema.Index{Kind: kind, Name: strings.TrimSpace(child.SelectAttr("group-name"))}
			for _, c := range xmlquery.Find(child, "field") {
				length, err := attrInt(c, "length")
				if err != nil {
					return nil, err
				}
				idx.Group = append(idx.Group, schema.IndexColumn{
					Field:  strings.TrimSpace(c.SelectAttr("field")),
					Length: length,
				})
			}
			indexes = append(indexes, idx)
		default:
			return nil, errors.Wrapf(schema.ErrInvalidSchema, "unexpected <%s> in <%s>", child.Data, node.Data)
		}
	}
	return indexes, nil
}

func decodeXMLRule(node *xmlquery.Node) (schema.AlterRule, error) {
	target := strings.TrimSpace(node.SelectAttr("target"))
	switch node.Data {
	case schema.TagRenameField:
		return schema.RenameField{Target: target, NewName: strings.TrimSpace(node.SelectAttr("value"))}, nil
	case schema.TagDeleteField:
		return schema.DeleteField{Target: target}, nil
	case schema.TagModifyField:
		return schema.ModifyField{Target: target, Field: decodeXMLField(node)}, nil
	case schema.TagDropIndex:
		return schema.DropIndex{Target: target}, nil
	}
	return nil, errors.Wrapf(schema.ErrUnknownAlterRule, "<%s>", node.Data)
}

func elements(node *xmlquery.Node) []*xmlquery.Node {
	var nodes []*xmlquery.Node
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			nodes = append(nodes, child)
		}
	}
	return nodes
}

func childText(node *xmlquery.Node, name string) string {
	if child := xmlquery.FindOne(node, name); child != nil {
		return strings.TrimSpace(child.InnerText())
	}
	return ""
}

func hasChild(node *xmlquery.Node, name string) bool {
	return xmlquery.FindOne(node, name) != nil
}

func attrInt(node *xmlquery.Node, name string) (int, error) {
	v := strings.TrimSpace(node.SelectAttr(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(schema.ErrInvalidSchema, "attribute %s=%q is not a number", name, v)
	}
	return n, nil
}
