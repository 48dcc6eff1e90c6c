package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisLockerOptions struct {
	// host:port 地址
	Endpoint string `cfg:"endpoint"`

	// 集群节点地址，设置后忽略 Endpoint
	Endpoints []string `cfg:"endpoints"`

	Username string `cfg:"username"`
	Password string `cfg:"password"`
	DB       int    `cfg:"db" def:"0"`

	// Prefix 锁 key 的前缀
	Prefix string `cfg:"prefix" def:"schemax:lock:"`

	// TTL 锁的过期时间，持有者异常退出后锁会自动释放
	TTL time.Duration `cfg:"ttl" def:"30s"`

	// RetryInterval 抢锁失败后的重试间隔
	RetryInterval time.Duration `cfg:"retryInterval" def:"100ms"`

	// Timeout 抢锁的最长等待时间，0 表示只受 ctx 控制
	Timeout time.Duration `cfg:"timeout" def:"0"`
}

// releaseScript 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker 基于 SET NX PX 的分布式锁
type RedisLocker struct {
	client        redis.UniversalClient
	prefix        string
	ttl           time.Duration
	retryInterval time.Duration
	timeout       time.Duration
}

func NewRedisLockerWithOptions(options *RedisLockerOptions) (*RedisLocker, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	var client redis.UniversalClient
	if len(options.Endpoints) > 0 {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    options.Endpoints,
			Username: options.Username,
			Password: options.Password,
		})
	} else {
		if options.Endpoint == "" {
			return nil, errors.New("endpoint is required")
		}
		client = redis.NewClient(&redis.Options{
			Addr:     options.Endpoint,
			Username: options.Username,
			Password: options.Password,
			DB:       options.DB,
		})
	}

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to ping redis")
	}

	return NewRedisLocker(client, options), nil
}

// NewRedisLocker 使用已有的客户端
func NewRedisLocker(client redis.UniversalClient, options *RedisLockerOptions) *RedisLocker {
	l := &RedisLocker{
		client:        client,
		prefix:        "schemax:lock:",
		ttl:           30 * time.Second,
		retryInterval: 100 * time.Millisecond,
	}
	if options != nil {
		if options.Prefix != "" {
			l.prefix = options.Prefix
		}
		if options.TTL > 0 {
			l.ttl = options.TTL
		}
		if options.RetryInterval > 0 {
			l.retryInterval = options.RetryInterval
		}
		l.timeout = options.Timeout
	}
	return l
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	redisKey := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, errors.Wrapf(err, "failed to acquire lock %s", key)
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.retryInterval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.Wrapf(ErrLockTimeout, "key %s: %v", key, ctx.Err())
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseScript.Run(context.Background(), l.client, []string{redisKey}, token)
		})
	}, nil
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}
