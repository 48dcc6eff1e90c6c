package journal

import (
	"time"

	"github.com/hatlonely/schemax/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegister("github.com/hatlonely/schemax/journal", "MemoryJournal", NewMemoryJournal)
	ref.MustRegister("github.com/hatlonely/schemax/journal", "BoltJournal", NewBoltJournalWithOptions)
}

// Entry 一条已执行的语句
type Entry struct {
	RunID     string    `msgpack:"runId" json:"runId"`
	Table     string    `msgpack:"table" json:"table"`
	Statement string    `msgpack:"statement" json:"statement"`
	Success   bool      `msgpack:"success" json:"success"`
	Error     string    `msgpack:"error,omitempty" json:"error,omitempty"`
	Time      time.Time `msgpack:"time" json:"time"`
}

// Journal 语句日志，按表保存追加顺序
type Journal interface {
	Append(entry *Entry) error
	List(table string) ([]*Entry, error)
	Close() error
}

// NewJournalWithOptions options 为 nil 时返回 MemoryJournal
func NewJournalWithOptions(options *ref.TypeOptions) (Journal, error) {
	if options == nil {
		return NewMemoryJournal(), nil
	}
	namespace := options.Namespace
	if namespace == "" {
		namespace = "github.com/hatlonely/schemax/journal"
	}

	j, err := ref.NewWithOptions[Journal](&ref.TypeOptions{
		Namespace: namespace,
		Type:      options.Type,
		Options:   options.Options,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create journal")
	}
	return j, nil
}
