package ddl

import (
	"testing"

	"github.com/hatlonely/schemax/schema"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func TestBuildField(t *testing.T) {
	tests := []struct {
		name  string
		field *schema.Field
		want  string
	}{
		{
			name:  "只有类型时默认 NOT NULL",
			field: &schema.Field{Name: "id", Type: "int"},
			want:  "int NOT NULL",
		},
		{
			name:  "主键自增无符号",
			field: &schema.Field{Name: "id", Type: "int", Length: "11", PrimaryKey: true, AutoIncrement: true, Sign: schema.SignUnsigned},
			want:  "int(11) PRIMARY KEY UNSIGNED NOT NULL AUTO_INCREMENT",
		},
		{
			name: "全部子句按固定顺序",
			field: &schema.Field{
				Name: "title", Type: "varchar", Length: "255", Default: strPtr("it's"),
				Charset: "utf8", Collation: "utf8_general_ci", Sign: schema.SignSigned,
				Zerofill: true, Binary: true, Nullable: true, Comment: "the \"title\"",
			},
			want: `varchar(255) DEFAULT 'it\'s' CHARACTER SET utf8 COLLATE utf8_general_ci SIGNED ZEROFILL BINARY NULL COMMENT 'the \"title\"'`,
		},
		{
			name:  "空字符串默认值",
			field: &schema.Field{Name: "memo", Type: "varchar", Length: "10", Default: strPtr("")},
			want:  "varchar(10) DEFAULT '' NOT NULL",
		},
		{
			name:  "精度",
			field: &schema.Field{Name: "price", Type: "decimal", Length: "10,2", Default: strPtr("0.00")},
			want:  "decimal(10,2) DEFAULT '0.00' NOT NULL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildField(tt.field, MySQLEscaper{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildFieldInvalid(t *testing.T) {
	_, err := BuildField(&schema.Field{Name: "id"}, MySQLEscaper{})
	assert.True(t, errors.Is(err, ErrInvalidFieldSpec))
	assert.Contains(t, err.Error(), "field id")

	_, err = BuildField(nil, MySQLEscaper{})
	assert.True(t, errors.Is(err, ErrInvalidFieldSpec))
}

func TestLiveDefinition(t *testing.T) {
	esc := MySQLEscaper{}
	assert.Equal(t, "int(11) auto_increment NOT NULL", LiveDefinition("int(11)", "auto_increment", nil, false, esc))
	assert.Equal(t, "varchar(32) DEFAULT 'guest' NULL", LiveDefinition("varchar(32)", "", strPtr("guest"), true, esc))
	assert.Equal(t, "int(11) DEFAULT 0 NOT NULL", LiveDefinition("int(11)", "", strPtr("0"), false, esc))
	assert.Equal(t, "timestamp DEFAULT CURRENT_TIMESTAMP NOT NULL", LiveDefinition("timestamp", "", strPtr("CURRENT_TIMESTAMP"), false, esc))
	assert.Equal(t, "varchar(8) NOT NULL", LiveDefinition("varchar(8)", "", strPtr(""), false, esc))
}

func TestEscaper(t *testing.T) {
	tests := []struct {
		raw      string
		mysql    string
		standard string
	}{
		{raw: "plain", mysql: "plain", standard: "plain"},
		{raw: "it's", mysql: `it\'s`, standard: "it''s"},
		{raw: `a\b`, mysql: `a\\b`, standard: `a\b`},
		{raw: "line\nbreak\r", mysql: `line\nbreak\r`, standard: "line\nbreak\r"},
		{raw: "nul\x00ctrl\x1a", mysql: `nul\0ctrl\Z`, standard: "nul\x00ctrl\x1a"},
		{raw: `"q"`, mysql: `\"q\"`, standard: `"q"`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.mysql, MySQLEscaper{}.Escape(tt.raw))
		assert.Equal(t, tt.standard, StandardEscaper{}.Escape(tt.raw))
	}

	upper := EscaperFunc(func(raw string) string { return raw + "!" })
	assert.Equal(t, "'x!'", Literal(upper, "x"))
	assert.Equal(t, "`a``b`", QuoteIdentifier("a`b"))
}
