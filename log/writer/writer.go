package writer

import (
	"io"

	"github.com/hatlonely/schemax/ref"
)

func init() {
	ref.MustRegister("github.com/hatlonely/schemax/log/writer", "ConsoleWriter", NewConsoleWriterWithOptions)
	ref.MustRegister("github.com/hatlonely/schemax/log/writer", "FileWriter", NewFileWriterWithOptions)
	ref.MustRegister("github.com/hatlonely/schemax/log/writer", "MultiWriter", NewMultiWriterWithOptions)
}

// Writer 日志输出器接口
type Writer interface {
	io.Writer
	io.Closer
}
