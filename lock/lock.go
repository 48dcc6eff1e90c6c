package lock

import (
	"context"

	"github.com/hatlonely/schemax/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegister("github.com/hatlonely/schemax/lock", "LocalLocker", NewLocalLocker)
	ref.MustRegister("github.com/hatlonely/schemax/lock", "RedisLocker", NewRedisLockerWithOptions)
}

var ErrLockTimeout = errors.New("lock timeout")

// Locker 按 key 互斥，同一个表的结构变更不会并发执行
type Locker interface {
	// Lock 阻塞直到获得锁或 ctx 结束，返回的 unlock 可以重复调用
	Lock(ctx context.Context, key string) (func(), error)
}

// NewLockerWithOptions options 为 nil 时返回进程内的 LocalLocker
func NewLockerWithOptions(options *ref.TypeOptions) (Locker, error) {
	if options == nil {
		return NewLocalLocker(), nil
	}
	namespace := options.Namespace
	if namespace == "" {
		namespace = "github.com/hatlonely/schemax/lock"
	}

	locker, err := ref.NewWithOptions[Locker](&ref.TypeOptions{
		Namespace: namespace,
		Type:      options.Type,
		Options:   options.Options,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create locker")
	}
	return locker, nil
}
