package executor

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/hatlonely/schemax/ddl"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type SQLOptions struct {
	Driver   string `cfg:"driver" def:"mysql" validate:"omitempty,oneof=mysql sqlite3"`
	DSN      string `cfg:"dsn"`
	Host     string `cfg:"host" def:"localhost"`
	Port     string `cfg:"port" def:"3306"`
	Database string `cfg:"database"`
	Username string `cfg:"username"`
	Password string `cfg:"password"`
	Charset  string `cfg:"charset" def:"utf8mb4"`
	MaxConns int    `cfg:"maxConns" def:"10"`
	MaxIdle  int    `cfg:"maxIdle" def:"5"`

	// ConnMaxLifetime 连接最长复用时间，0 表示不限制
	ConnMaxLifetime time.Duration `cfg:"connMaxLifetime"`

	// PingTimeout 创建时检查连接的超时时间
	PingTimeout time.Duration `cfg:"pingTimeout" def:"5s"`
}

// conn *sql.DB 和 *sql.Tx 的公共部分
type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLExecutor 基于 database/sql 的执行器，支持 mysql 和 sqlite3
type SQLExecutor struct {
	db      *sql.DB
	driver  string
	escaper ddl.Escaper

	mu sync.Mutex
	tx *sql.Tx
}

func NewSQLExecutorWithOptions(options *SQLOptions) (*SQLExecutor, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	driver := NormalizeEngine(options.Driver)
	if driver == "" {
		driver = "mysql"
	}

	dsn := options.DSN
	if dsn == "" {
		switch driver {
		case "mysql":
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
				options.Username, options.Password, options.Host, options.Port, options.Database, options.Charset)
		case "sqlite3":
			dsn = options.Database
		default:
			return nil, errors.Errorf("unsupported driver: %s", options.Driver)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", driver)
	}

	if options.MaxConns > 0 {
		db.SetMaxOpenConns(options.MaxConns)
	}
	if options.MaxIdle > 0 {
		db.SetMaxIdleConns(options.MaxIdle)
	}
	if options.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(options.ConnMaxLifetime)
	}

	timeout := options.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to connect %s", driver)
	}

	return NewSQLExecutorWithDB(db, driver), nil
}

// NewSQLExecutorWithDB 使用已有的连接创建执行器
func NewSQLExecutorWithDB(db *sql.DB, driver string) *SQLExecutor {
	driver = NormalizeEngine(driver)

	var escaper ddl.Escaper = ddl.MySQLEscaper{}
	if driver == "sqlite3" {
		escaper = ddl.StandardEscaper{}
	}

	return &SQLExecutor{
		db:      db,
		driver:  driver,
		escaper: escaper,
	}
}

func (e *SQLExecutor) Engine() string {
	return e.driver
}

func (e *SQLExecutor) conn() (conn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db == nil {
		return nil, ErrNoLink
	}
	if e.tx != nil {
		return e.tx, nil
	}
	return e.db, nil
}

func (e *SQLExecutor) Exec(ctx context.Context, query string) (Result, error) {
	c, err := e.conn()
	if err != nil {
		return Result{}, err
	}
	return execResult(c.ExecContext(ctx, query))
}

func (e *SQLExecutor) Query(ctx context.Context, query string) (*Rows, error) {
	c, err := e.conn()
	if err != nil {
		return nil, err
	}
	return queryRows(ctx, c, query)
}

// likePattern 转义 LIKE 的通配符，表名按字面匹配
var likePattern = strings.NewReplacer(`\`, `\\`, `_`, `\_`, `%`, `\%`)

func (e *SQLExecutor) TableExists(ctx context.Context, table string) (bool, error) {
	c, err := e.conn()
	if err != nil {
		return false, err
	}

	var rows *Rows
	switch e.driver {
	case "sqlite3":
		rows, err = queryRows(ctx, c, "SELECT `name` FROM `sqlite_master` WHERE `type` = 'table' AND `name` = "+ddl.Literal(e.escaper, table))
	default:
		rows, err = queryRows(ctx, c, "SHOW TABLES LIKE "+ddl.Literal(e.escaper, likePattern.Replace(table)))
	}
	if err != nil {
		return false, err
	}
	return rows.Len() > 0, nil
}

func (e *SQLExecutor) DescribeColumns(ctx context.Context, table string) ([]Column, error) {
	c, err := e.conn()
	if err != nil {
		return nil, err
	}

	if e.driver == "sqlite3" {
		rows, err := queryRows(ctx, c, "PRAGMA table_info("+ddl.QuoteIdentifier(table)+")")
		if err != nil {
			return nil, err
		}
		return sqliteColumns(rows), nil
	}

	rows, err := queryRows(ctx, c, "SHOW COLUMNS FROM "+ddl.QuoteIdentifier(table))
	if err != nil {
		return nil, err
	}
	return mysqlColumns(rows), nil
}

func (e *SQLExecutor) Escape(raw string) string {
	return e.escaper.Escape(raw)
}

func (e *SQLExecutor) Begin(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db == nil {
		return ErrNoLink
	}
	if e.tx != nil {
		return ErrInTransaction
	}
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	e.tx = tx
	return nil
}

func (e *SQLExecutor) Commit() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tx == nil {
		return ErrNoTransaction
	}
	err := e.tx.Commit()
	e.tx = nil
	return errors.Wrap(err, "failed to commit transaction")
}

func (e *SQLExecutor) Rollback() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tx == nil {
		return ErrNoTransaction
	}
	err := e.tx.Rollback()
	e.tx = nil
	return errors.Wrap(err, "failed to rollback transaction")
}

func (e *SQLExecutor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db == nil {
		return nil
	}
	if e.tx != nil {
		_ = e.tx.Rollback()
		e.tx = nil
	}
	err := e.db.Close()
	e.db = nil
	return err
}

func execResult(res sql.Result, err error) (Result, error) {
	if err != nil {
		return Result{}, err
	}

	var result Result
	if n, err := res.RowsAffected(); err == nil {
		result.AffectedRows = n
	}
	if result.AffectedRows > 0 {
		if id, err := res.LastInsertId(); err == nil {
			result.LastInsertID = id
		}
	}
	return result, nil
}

func queryRows(ctx context.Context, c conn, query string) (*Rows, error) {
	rows, err := c.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// scanRows 扫描全部结果，[]byte 转换为 string
func scanRows(rows *sql.Rows) (*Rows, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &Rows{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Values = append(result.Values, values)
	}
	return result, rows.Err()
}

// mysqlColumns 解析 SHOW COLUMNS 的结果：Field, Type, Null, Key, Default, Extra
func mysqlColumns(rows *Rows) []Column {
	columns := make([]Column, 0, rows.Len())
	for _, m := range rows.Maps() {
		c := Column{
			Name:     toString(m["Field"]),
			Type:     toString(m["Type"]),
			Nullable: strings.EqualFold(toString(m["Null"]), "yes"),
			Extra:    toString(m["Extra"]),
		}
		if v := m["Default"]; v != nil {
			def := toString(v)
			c.Default = &def
		}
		columns = append(columns, c)
	}
	return columns
}

// sqliteColumns 解析 PRAGMA table_info 的结果：cid, name, type, notnull, dflt_value, pk
func sqliteColumns(rows *Rows) []Column {
	columns := make([]Column, 0, rows.Len())
	for _, m := range rows.Maps() {
		c := Column{
			Name:     toString(m["name"]),
			Type:     toString(m["type"]),
			Nullable: toString(m["notnull"]) == "0",
		}
		if v := m["dflt_value"]; v != nil {
			def := toString(v)
			c.Default = &def
		}
		if toString(m["pk"]) != "0" {
			c.Extra = "primary key"
		}
		columns = append(columns, c)
	}
	return columns
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(v)
	}
}
