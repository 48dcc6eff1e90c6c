package log

import (
	"io"

	"github.com/hatlonely/schemax/log/logger"
	"github.com/hatlonely/schemax/ref"
	"github.com/pkg/errors"
)

type Logger = logger.Logger

var defaultLogger logger.Logger

func init() {
	ref.MustRegister("github.com/hatlonely/schemax/log/logger", "SLog", logger.NewSLogWithOptions)

	// 默认向终端输出 text 格式日志
	l, err := logger.NewSLogWithOptions(&logger.SLogOptions{
		Level:  "info",
		Format: "text",
	})
	if err != nil {
		panic("failed to initialize default logger: " + err.Error())
	}
	defaultLogger = l
}

func Default() Logger {
	return defaultLogger
}

// Discard 返回丢弃所有输出的日志器
func Discard() Logger {
	l, _ := logger.NewSLog(io.Discard, &logger.SLogOptions{Level: "error"})
	return l
}

// NewLoggerWithOptions 根据 TypeOptions 创建日志器，options 为空时返回默认日志器
func NewLoggerWithOptions(options *ref.TypeOptions) (Logger, error) {
	if options == nil || options.Type == "" {
		return Default(), nil
	}

	namespace := options.Namespace
	if namespace == "" {
		namespace = "github.com/hatlonely/schemax/log/logger"
	}

	l, err := ref.NewWithOptions[Logger](&ref.TypeOptions{
		Namespace: namespace,
		Type:      options.Type,
		Options:   options.Options,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create logger")
	}
	return l, nil
}
