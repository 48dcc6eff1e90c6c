package journal

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"
)

type BoltJournalOptions struct {
	// Path 数据库文件路径，不存在时自动创建
	Path string `cfg:"path" validate:"required"`

	// Timeout 获取文件锁的等待时间，0 表示无限等待
	Timeout time.Duration `cfg:"timeout" def:"1s"`

	NoSync bool `cfg:"noSync"`
}

// BoltJournal 每个表一个 bucket，key 为大端序的自增序号，value 为 msgpack 编码的 Entry
type BoltJournal struct {
	db *bolt.DB
}

func NewBoltJournalWithOptions(options *BoltJournalOptions) (*BoltJournal, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if options.Path == "" {
		return nil, errors.New("path is required")
	}

	db, err := bolt.Open(options.Path, 0644, &bolt.Options{
		Timeout: options.Timeout,
		NoSync:  options.NoSync,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bolt db %s", options.Path)
	}

	return &BoltJournal{db: db}, nil
}

func (j *BoltJournal) Append(entry *Entry) error {
	if entry.Table == "" {
		return errors.New("entry table is empty")
	}

	value, err := msgpack.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "msgpack.Marshal failed")
	}

	return j.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(entry.Table))
		if err != nil {
			return errors.Wrapf(err, "failed to create bucket %s", entry.Table)
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return errors.Wrap(err, "bucket.NextSequence failed")
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return bucket.Put(key, value)
	})
}

func (j *BoltJournal) List(table string) ([]*Entry, error) {
	var entries []*Entry
	err := j.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(table))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, v []byte) error {
			var e Entry
			if err := msgpack.Unmarshal(v, &e); err != nil {
				return errors.Wrap(err, "msgpack.Unmarshal failed")
			}
			entries = append(entries, &e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (j *BoltJournal) Close() error {
	return j.db.Close()
}
