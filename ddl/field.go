package ddl

import (
	"strings"

	"github.com/hatlonely/schemax/schema"
	"github.com/pkg/errors"
)

var ErrInvalidFieldSpec = errors.New("invalid field spec")

// BuildField 生成列定义片段，子句顺序固定，未声明可空时为 NOT NULL
func BuildField(f *schema.Field, esc Escaper) (string, error) {
	if f == nil {
		return "", errors.Wrap(ErrInvalidFieldSpec, "field is nil")
	}
	if strings.TrimSpace(f.Type) == "" {
		return "", errors.Wrapf(ErrInvalidFieldSpec, "field %s: type is required", f.Name)
	}

	parts := make([]string, 0, 12)

	typ := f.Type
	if f.Length != "" {
		typ += "(" + f.Length + ")"
	}
	parts = append(parts, typ)

	if f.Default != nil {
		parts = append(parts, "DEFAULT "+Literal(esc, *f.Default))
	}
	if f.Charset != "" {
		parts = append(parts, "CHARACTER SET "+f.Charset)
	}
	if f.Collation != "" {
		parts = append(parts, "COLLATE "+f.Collation)
	}
	if f.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	}
	switch f.Sign {
	case schema.SignSigned:
		parts = append(parts, "SIGNED")
	case schema.SignUnsigned:
		parts = append(parts, "UNSIGNED")
	}
	if f.Zerofill {
		parts = append(parts, "ZEROFILL")
	}
	if f.Binary {
		parts = append(parts, "BINARY")
	}
	if f.Nullable {
		parts = append(parts, "NULL")
	} else {
		parts = append(parts, "NOT NULL")
	}
	if f.AutoIncrement {
		parts = append(parts, "AUTO_INCREMENT")
	}
	if f.Comment != "" {
		parts = append(parts, "COMMENT "+Literal(esc, f.Comment))
	}

	return strings.Join(parts, " "), nil
}

// LiveDefinition 根据线上列信息还原列定义，用于 CHANGE COLUMN
func LiveDefinition(typ string, extra string, def *string, nullable bool, esc Escaper) string {
	parts := []string{typ}
	if extra != "" {
		parts = append(parts, extra)
	}
	if def != nil && *def != "" {
		parts = append(parts, "DEFAULT "+defaultLiteral(*def, esc))
	}
	if nullable {
		parts = append(parts, "NULL")
	} else {
		parts = append(parts, "NOT NULL")
	}
	return strings.Join(parts, " ")
}

// 数字和 CURRENT_TIMESTAMP 之类的表达式不加引号
func defaultLiteral(v string, esc Escaper) string {
	upper := strings.ToUpper(v)
	if upper == "NULL" || strings.HasPrefix(upper, "CURRENT_TIMESTAMP") {
		return v
	}
	if isNumeric(v) {
		return v
	}
	return Literal(esc, v)
}

func isNumeric(v string) bool {
	if v == "" {
		return false
	}
	dot := false
	for i, c := range v {
		switch {
		case c >= '0' && c <= '9':
		case c == '-' && i == 0 && len(v) > 1:
		case c == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return true
}
