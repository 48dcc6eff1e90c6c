package loader

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/hatlonely/schemax/log"
	"github.com/hatlonely/schemax/ref"
	"github.com/hatlonely/schemax/schema"
	"github.com/pkg/errors"
)

// FileProvider 从文件加载描述，并在文件变更后重新加载
type FileProvider struct {
	filePath string
	decoder  Decoder
	logger   log.Logger
	watcher  *fsnotify.Watcher
	mu       sync.RWMutex
	onChange []func(db *schema.Database) error
	done     chan struct{}
	once     sync.Once
}

type FileProviderOptions struct {
	FilePath string `cfg:"filePath" validate:"required"`
	// Decoder 为空时按扩展名选择
	Decoder *ref.TypeOptions `cfg:"decoder"`
	Logger  log.Logger       `cfg:"-"`
}

func NewFileProviderWithOptions(options *FileProviderOptions) (*FileProvider, error) {
	if options == nil || options.FilePath == "" {
		return nil, errors.New("file path is required")
	}

	absPath, err := filepath.Abs(options.FilePath)
	if err != nil {
		return nil, errors.Wrap(err, "invalid file path")
	}

	var decoder Decoder
	if options.Decoder != nil && options.Decoder.Type != "" {
		decoder, err = NewDecoderWithOptions(options.Decoder)
	} else {
		decoder, err = NewDecoder(filepath.Ext(absPath))
	}
	if err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &FileProvider{
		filePath: absPath,
		decoder:  decoder,
		logger:   logger.WithGroup("loader"),
		done:     make(chan struct{}),
	}, nil
}

func (p *FileProvider) Path() string {
	return p.filePath
}

// Load 读取并解码当前文件内容
func (p *FileProvider) Load() (*schema.Database, error) {
	data, err := os.ReadFile(p.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}
	db, err := p.decoder.Decode(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "decode %s failed", p.filePath)
	}
	return db, nil
}

// OnChange 注册变更回调，只有调用 Watch 之后才会触发
func (p *FileProvider) OnChange(fn func(db *schema.Database) error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.onChange = append(p.onChange, fn)
}

// Watch 监听文件所在目录，文件写入后重新解码并依次调用回调
// 解码失败的内容不会传给回调
func (p *FileProvider) Watch() error {
	var initErr error
	p.once.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			initErr = errors.Wrap(err, "failed to create file watcher")
			return
		}
		p.watcher = watcher

		go p.loop(watcher)

		// 编辑器常用替换文件的方式保存，监听目录才能收到事件
		if err := watcher.Add(filepath.Dir(p.filePath)); err != nil {
			initErr = errors.Wrap(err, "failed to add directory to watcher")
			return
		}
	})

	return initErr
}

func (p *FileProvider) loop(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.filePath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			p.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("watch schema file failed", "file", p.filePath, "error", err)
		case <-p.done:
			return
		}
	}
}

func (p *FileProvider) reload() {
	db, err := p.Load()
	if err != nil {
		p.logger.Warn("reload schema failed", "file", p.filePath, "error", err)
		return
	}

	p.mu.RLock()
	handlers := make([]func(db *schema.Database) error, len(p.onChange))
	copy(handlers, p.onChange)
	p.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		if err := handler(db); err != nil {
			p.logger.Error("schema change handler failed", "file", p.filePath, "error", err)
		}
	}
}

func (p *FileProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	default:
		close(p.done)
	}

	if p.watcher != nil {
		return p.watcher.Close()
	}
	return nil
}
