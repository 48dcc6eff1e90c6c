package ref

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/hatlonely/schemax/cfg/def"
)

type constructor struct {
	originalFunc any
	newFunc      reflect.Value
	hasOptions   bool
	returnsError bool
}

func newConstructor(newFunc any) (*constructor, error) {
	funcValue := reflect.ValueOf(newFunc)
	if funcValue.Kind() != reflect.Func {
		return nil, fmt.Errorf("newFunc must be a function")
	}

	funcType := funcValue.Type()
	numIn := funcType.NumIn()
	numOut := funcType.NumOut()

	// 构造函数只允许 0 个或 1 个参数
	if numIn != 0 && numIn != 1 {
		return nil, fmt.Errorf("newFunc must have 0 or 1 input parameters, got %d", numIn)
	}

	if numOut != 1 && numOut != 2 {
		return nil, fmt.Errorf("newFunc must have 1 or 2 return values, got %d", numOut)
	}

	returnsError := false
	if numOut == 2 {
		errorInterface := reflect.TypeOf((*error)(nil)).Elem()
		if !funcType.Out(1).Implements(errorInterface) {
			return nil, fmt.Errorf("second return value must be error type")
		}
		returnsError = true
	}

	return &constructor{
		originalFunc: newFunc,
		newFunc:      funcValue,
		hasOptions:   numIn == 1,
		returnsError: returnsError,
	}, nil
}

func (c *constructor) new(options any) (any, error) {
	var args []reflect.Value

	if c.hasOptions {
		if options == nil {
			return nil, fmt.Errorf("constructor requires options but got nil")
		}

		converted, err := c.convertOptions(options)
		if err != nil {
			return nil, fmt.Errorf("failed to convert options: %w", err)
		}
		args = []reflect.Value{converted}
	}

	results := c.newFunc.Call(args)

	if c.returnsError {
		if errResult := results[1].Interface(); errResult != nil {
			if err, ok := errResult.(error); ok {
				return nil, err
			}
			return nil, fmt.Errorf("second return value is not an error")
		}
	}

	return results[0].Interface(), nil
}

// convertOptions 将配置文件解码出来的 map 转换为构造函数需要的参数类型
// 先按 def tag 填充默认值，再覆盖 map 中出现的字段，已经是目标类型的参数原样传入
func (c *constructor) convertOptions(options any) (reflect.Value, error) {
	paramType := c.newFunc.Type().In(0)
	value := reflect.ValueOf(options)
	if value.Type().AssignableTo(paramType) {
		return value, nil
	}

	if _, ok := options.(map[string]any); !ok {
		return reflect.Value{}, fmt.Errorf("cannot use %T as %v", options, paramType)
	}

	elemType := paramType
	if paramType.Kind() == reflect.Ptr {
		elemType = paramType.Elem()
	}
	target := reflect.New(elemType)
	if err := def.SetDefaults(target.Interface()); err != nil {
		return reflect.Value{}, fmt.Errorf("failed to set defaults: %w", err)
	}
	if err := Decode(options, target.Interface()); err != nil {
		return reflect.Value{}, err
	}

	if paramType.Kind() == reflect.Ptr {
		return target, nil
	}
	return target.Elem(), nil
}

// Decode 按照 cfg tag 将 map 解码到结构体，map 中出现的切片和 map 字段整体替换
func Decode(input any, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "cfg",
		WeaklyTypedInput: true,
		ZeroFields:       true,
		Result:           output,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(input)
}

var nameConstructorMap sync.Map

func isSameFunc(func1, func2 any) bool {
	if func1 == nil || func2 == nil {
		return func1 == func2
	}
	return reflect.ValueOf(func1).Pointer() == reflect.ValueOf(func2).Pointer()
}

func Register(namespace string, type_ string, newFunc any) error {
	key := namespace + ":" + type_

	if existingValue, ok := nameConstructorMap.Load(key); ok {
		if existing, ok := existingValue.(*constructor); ok {
			if isSameFunc(existing.originalFunc, newFunc) {
				return nil
			}
			return fmt.Errorf("constructor for %s:%s already registered with different function", namespace, type_)
		}
	}

	c, err := newConstructor(newFunc)
	if err != nil {
		return fmt.Errorf("failed to create constructor: %w", err)
	}

	nameConstructorMap.Store(key, c)
	return nil
}

// RegisterT 以类型的包路径和类型名作为 namespace 和 type 注册构造函数
func RegisterT[T any](newFunc any) error {
	pkgPath, typeName, err := typeKey[T]()
	if err != nil {
		return err
	}
	return Register(pkgPath, typeName, newFunc)
}

func MustRegister(namespace string, type_ string, newFunc any) {
	if err := Register(namespace, type_, newFunc); err != nil {
		panic(err)
	}
}

func MustRegisterT[T any](newFunc any) {
	if err := RegisterT[T](newFunc); err != nil {
		panic(err)
	}
}

// TypeOptions 组件的类型描述，通常来自配置文件
type TypeOptions struct {
	Namespace string `cfg:"namespace"`
	Type      string `cfg:"type"`
	Options   any    `cfg:"options"`
}

func New(namespace string, type_ string, options any) (any, error) {
	key := namespace + ":" + type_
	value, ok := nameConstructorMap.Load(key)
	if !ok {
		return nil, fmt.Errorf("constructor not found for %s:%s", namespace, type_)
	}

	c, ok := value.(*constructor)
	if !ok {
		return nil, fmt.Errorf("invalid constructor type for %s:%s", namespace, type_)
	}

	return c.new(options)
}

// NewWithOptions 根据 TypeOptions 创建组件并检查是否实现了接口 T
func NewWithOptions[T any](options *TypeOptions) (T, error) {
	var zero T
	if options == nil {
		return zero, fmt.Errorf("type options cannot be nil")
	}

	obj, err := New(options.Namespace, options.Type, options.Options)
	if err != nil {
		return zero, err
	}

	result, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("%s:%s does not implement %v", options.Namespace, options.Type, reflect.TypeOf((*T)(nil)).Elem())
	}
	return result, nil
}

func NewT[T any](options any) (T, error) {
	var t T
	pkgPath, typeName, err := typeKey[T]()
	if err != nil {
		return t, err
	}

	obj, err := New(pkgPath, typeName, options)
	if err != nil {
		return t, err
	}

	result, ok := obj.(T)
	if !ok {
		return t, fmt.Errorf("created object is not of type %T", t)
	}
	return result, nil
}

func typeKey[T any]() (string, string, error) {
	tType := reflect.TypeOf((*T)(nil)).Elem()
	for tType.Kind() == reflect.Ptr {
		tType = tType.Elem()
	}

	pkgPath := tType.PkgPath()
	typeName := tType.Name()
	if pkgPath == "" || typeName == "" {
		return "", "", fmt.Errorf("cannot determine package path or type name for type %v", tType)
	}
	return pkgPath, typeName, nil
}
