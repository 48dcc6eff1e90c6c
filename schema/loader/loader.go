package loader

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hatlonely/schemax/ref"
	"github.com/hatlonely/schemax/schema"
	"github.com/pkg/errors"
)

const namespace = "github.com/hatlonely/schemax/schema/loader"

func init() {
	ref.MustRegister(namespace, "XMLDecoder", NewXMLDecoder)
	ref.MustRegister(namespace, "YamlDecoder", NewYamlDecoder)
	ref.MustRegister(namespace, "JsonDecoder", NewJsonDecoder)
	ref.MustRegister(namespace, "TomlDecoder", NewTomlDecoder)
	ref.MustRegister(namespace, "FileProvider", NewFileProviderWithOptions)
}

var ErrUnsupportedFormat = errors.New("unsupported schema format")

// Decoder 将描述文件的原始数据解码为 Database，解码结果已经过校验
type Decoder interface {
	Decode(data []byte) (*schema.Database, error)
}

func NewDecoderWithOptions(options *ref.TypeOptions) (Decoder, error) {
	if options == nil {
		return nil, errors.New("decoder options is nil")
	}
	if options.Namespace == "" {
		options.Namespace = namespace
	}
	decoder, err := ref.NewWithOptions[Decoder](options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.NewWithOptions failed")
	}
	return decoder, nil
}

// NewDecoder 根据文件扩展名选择解码器
func NewDecoder(ext string) (Decoder, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "xml":
		return NewXMLDecoder(), nil
	case "yaml", "yml":
		return NewYamlDecoder(), nil
	case "json":
		return NewJsonDecoder(), nil
	case "toml":
		return NewTomlDecoder(), nil
	}
	return nil, errors.Wrapf(ErrUnsupportedFormat, "extension [%s]", ext)
}

// LoadFile 读取并解码描述文件
func LoadFile(path string) (*schema.Database, error) {
	decoder, err := NewDecoder(filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read schema file")
	}

	db, err := decoder.Decode(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "decode %s failed", path)
	}
	return db, nil
}

func validated(db *schema.Database) (*schema.Database, error) {
	if err := db.Validate(); err != nil {
		return nil, err
	}
	return db, nil
}
