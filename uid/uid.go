// Package uid 生成同步运行的 run id
package uid

import (
	"github.com/hatlonely/schemax/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegister("github.com/hatlonely/schemax/uid", "UUIDGenerator", NewUUIDGeneratorWithOptions)
	ref.MustRegister("github.com/hatlonely/schemax/uid", "SeqGenerator", NewSeqGeneratorWithOptions)
}

// Generator 生成字符串 id，实现需要并发安全
type Generator interface {
	Generate() string
}

// NewGeneratorWithOptions options 为 nil 时返回 v7 的 UUIDGenerator
func NewGeneratorWithOptions(options *ref.TypeOptions) (Generator, error) {
	if options == nil {
		return NewUUIDGeneratorWithOptions(&UUIDOptions{Version: "v7", WithHyphens: true}), nil
	}
	namespace := options.Namespace
	if namespace == "" {
		namespace = "github.com/hatlonely/schemax/uid"
	}

	g, err := ref.NewWithOptions[Generator](&ref.TypeOptions{
		Namespace: namespace,
		Type:      options.Type,
		Options:   options.Options,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create id generator")
	}
	return g, nil
}
