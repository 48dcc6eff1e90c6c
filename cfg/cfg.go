package cfg

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/hatlonely/schemax/cfg/def"
	"github.com/hatlonely/schemax/ref"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

var ErrUnsupportedFormat = errors.New("unsupported config format")

var validate = validator.New()

// Options 配置加载选项
type Options struct {
	Path string `validate:"required"`
	// EnvPrefix 非空时用环境变量 PREFIX_KEY_SUB 覆盖文件中的值
	EnvPrefix string
}

// Load 加载配置文件到 object，依次应用默认值、文件内容和校验
func Load(path string, object any) error {
	return LoadWithOptions(&Options{Path: path}, object)
}

func LoadWithOptions(options *Options, object any) error {
	if options == nil {
		return errors.New("options is nil")
	}
	if err := validate.Struct(options); err != nil {
		return errors.Wrap(err, "invalid options")
	}

	data, err := os.ReadFile(options.Path)
	if err != nil {
		return errors.Wrap(err, "failed to read config file")
	}

	raw, err := Decode(data, filepath.Ext(options.Path))
	if err != nil {
		return errors.WithMessagef(err, "decode %s failed", options.Path)
	}

	if options.EnvPrefix != "" {
		OverlayEnv(raw, reflect.TypeOf(object), options.EnvPrefix)
	}

	return Unmarshal(raw, object)
}

// Unmarshal 将 map 解码到 object，先设置 def 默认值，最后校验
func Unmarshal(raw map[string]any, object any) error {
	if err := def.SetDefaults(object); err != nil {
		return errors.WithMessage(err, "set defaults failed")
	}
	if err := ref.Decode(raw, object); err != nil {
		return errors.Wrap(err, "failed to decode config")
	}
	return Validate(object)
}

// Decode 按扩展名将配置数据解析为 map
func Decode(data []byte, ext string) (map[string]any, error) {
	raw := map[string]any{}
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, "failed to decode yaml")
		}
	case "json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, "failed to decode json")
		}
	case "toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, "failed to decode toml")
		}
	case "ini":
		return decodeIni(data)
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "extension [%s]", ext)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// decodeIni 分组名按 . 拆分为嵌套的 map
func decodeIni(data []byte) (map[string]any, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:         true,
		SpaceBeforeInlineComment: true,
	}, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode ini")
	}

	raw := map[string]any{}
	for _, section := range file.Sections() {
		var path []string
		if section.Name() != ini.DefaultSection {
			path = strings.Split(section.Name(), ".")
		}
		for _, key := range section.Keys() {
			setPath(raw, append(append([]string{}, path...), strings.Split(key.Name(), ".")...), key.Value())
		}
	}
	return raw, nil
}

// OverlayEnv 按结构体的 cfg tag 查找环境变量，找到的值写入 raw
func OverlayEnv(raw map[string]any, t reflect.Type, prefix string) {
	overlayEnv(raw, t, []string{strings.ToUpper(prefix)}, nil)
}

func overlayEnv(raw map[string]any, t reflect.Type, envPath []string, keyPath []string) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := strings.Split(field.Tag.Get("cfg"), ",")[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}

		keys := append(append([]string{}, keyPath...), name)
		envs := append(append([]string{}, envPath...), strings.ToUpper(name))

		ft := field.Type
		for ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		switch ft.Kind() {
		case reflect.Struct:
			overlayEnv(raw, ft, envs, keys)
		case reflect.Interface, reflect.Map, reflect.Func, reflect.Chan:
		default:
			if value, ok := os.LookupEnv(strings.Join(envs, "_")); ok {
				setPath(raw, keys, value)
			}
		}
	}
}

func setPath(raw map[string]any, path []string, value any) {
	m := raw
	for _, key := range path[:len(path)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[key] = next
		}
		m = next
	}
	m[path[len(path)-1]] = value
}

// Validate 按 validate tag 校验结构体，非结构体直接通过
func Validate(object any) error {
	rv := reflect.ValueOf(object)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	if err := validate.Struct(rv.Interface()); err != nil {
		return errors.Wrap(err, "validate config failed")
	}
	return nil
}
