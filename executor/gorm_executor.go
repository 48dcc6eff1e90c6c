package executor

import (
	"context"
	"sync"

	"github.com/hatlonely/schemax/ddl"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GormOptions struct {
	Driver string `cfg:"driver" def:"mysql" validate:"omitempty,oneof=mysql sqlite sqlite3"`
	DSN    string `cfg:"dsn" validate:"required"`

	// LogLevel gorm 自身的日志级别：silent, error, warn, info
	LogLevel string `cfg:"logLevel" def:"silent"`
}

// GormExecutor 基于 gorm 的执行器，语句通过 ConnPool 原样执行
type GormExecutor struct {
	db      *gorm.DB
	engine  string
	escaper ddl.Escaper

	mu sync.Mutex
	tx *gorm.DB
}

func NewGormExecutorWithOptions(options *GormOptions) (*GormExecutor, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	config := &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(options.LogLevel)),
	}

	var db *gorm.DB
	var err error
	switch NormalizeEngine(options.Driver) {
	case "sqlite3":
		db, err = gorm.Open(sqlite.Open(options.DSN), config)
	case "mysql", "":
		db, err = gorm.Open(mysql.Open(options.DSN), config)
	default:
		return nil, errors.Errorf("unsupported driver: %s", options.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	return NewGormExecutorWithDB(db), nil
}

// NewGormExecutorWithDB 使用已有的 gorm 实例创建执行器
func NewGormExecutorWithDB(db *gorm.DB) *GormExecutor {
	engine := NormalizeEngine(db.Dialector.Name())

	var escaper ddl.Escaper = ddl.MySQLEscaper{}
	if engine == "sqlite3" {
		escaper = ddl.StandardEscaper{}
	}

	return &GormExecutor{
		db:      db,
		engine:  engine,
		escaper: escaper,
	}
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Silent
	}
}

func (e *GormExecutor) Engine() string {
	return e.engine
}

func (e *GormExecutor) session(ctx context.Context) (*gorm.DB, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db == nil {
		return nil, ErrNoLink
	}
	if e.tx != nil {
		return e.tx.WithContext(ctx), nil
	}
	return e.db.WithContext(ctx), nil
}

func (e *GormExecutor) Exec(ctx context.Context, query string) (Result, error) {
	db, err := e.session(ctx)
	if err != nil {
		return Result{}, err
	}
	return execResult(db.Statement.ConnPool.ExecContext(ctx, query))
}

func (e *GormExecutor) Query(ctx context.Context, query string) (*Rows, error) {
	db, err := e.session(ctx)
	if err != nil {
		return nil, err
	}
	return queryRows(ctx, db.Statement.ConnPool, query)
}

func (e *GormExecutor) TableExists(ctx context.Context, table string) (bool, error) {
	db, err := e.session(ctx)
	if err != nil {
		return false, err
	}
	return db.Migrator().HasTable(table), nil
}

func (e *GormExecutor) DescribeColumns(ctx context.Context, table string) ([]Column, error) {
	db, err := e.session(ctx)
	if err != nil {
		return nil, err
	}

	types, err := db.Migrator().ColumnTypes(table)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to describe table %s", table)
	}

	columns := make([]Column, 0, len(types))
	for _, t := range types {
		c := Column{Name: t.Name()}
		if typ, ok := t.ColumnType(); ok {
			c.Type = typ
		} else {
			c.Type = t.DatabaseTypeName()
		}
		if nullable, ok := t.Nullable(); ok {
			c.Nullable = nullable
		}
		if def, ok := t.DefaultValue(); ok {
			c.Default = &def
		}
		if autoIncrement, ok := t.AutoIncrement(); ok && autoIncrement {
			c.Extra = "auto_increment"
		}
		columns = append(columns, c)
	}
	return columns, nil
}

func (e *GormExecutor) Escape(raw string) string {
	return e.escaper.Escape(raw)
}

func (e *GormExecutor) Begin(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db == nil {
		return ErrNoLink
	}
	if e.tx != nil {
		return ErrInTransaction
	}
	tx := e.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "failed to begin transaction")
	}
	e.tx = tx
	return nil
}

func (e *GormExecutor) Commit() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tx == nil {
		return ErrNoTransaction
	}
	err := e.tx.Commit().Error
	e.tx = nil
	return errors.Wrap(err, "failed to commit transaction")
}

func (e *GormExecutor) Rollback() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tx == nil {
		return ErrNoTransaction
	}
	err := e.tx.Rollback().Error
	e.tx = nil
	return errors.Wrap(err, "failed to rollback transaction")
}

func (e *GormExecutor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db == nil {
		return nil
	}
	if e.tx != nil {
		e.tx.Rollback()
		e.tx = nil
	}
	sqlDB, err := e.db.DB()
	e.db = nil
	if err != nil {
		return errors.Wrap(err, "failed to get sql.DB")
	}
	return sqlDB.Close()
}
