package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/multierr"
)

// MemoryPath opens a private in-memory database. Tests use it.
const MemoryPath = ":memory:"

// Querier runs statements. A *Connection and the transaction handed to
// Transaction both implement it, so helpers work inside and outside one.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Connection is an open book database.
type Connection struct {
	db     *sql.DB
	dbPath string
}

// dsn builds the driver connection string. File books get foreign keys and
// WAL; the in-memory book is private to its single connection.
func dsn(dbPath string) string {
	if dbPath == MemoryPath {
		return "file::memory:"
	}
	return fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL", dbPath)
}

// Open opens the book database at dbPath, creating the file and its
// directory when missing, and installs the bookkeeping tables.
func Open(dbPath string) (*Connection, error) {
	if dbPath != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer per book; an in-memory database also dies with its connection
	sqlDB.SetMaxOpenConns(1)

	conn := &Connection{db: sqlDB, dbPath: dbPath}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := InitializeSchema(conn); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return conn, nil
}

// Close releases the database.
func (c *Connection) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Path returns the path the database was opened with.
func (c *Connection) Path() string {
	return c.dbPath
}

func (c *Connection) Query(query string, args ...any) (*sql.Rows, error) {
	return c.db.Query(query, args...)
}

func (c *Connection) QueryRow(query string, args ...any) *sql.Row {
	return c.db.QueryRow(query, args...)
}

func (c *Connection) Exec(query string, args ...any) (sql.Result, error) {
	return c.db.Exec(query, args...)
}

// Transaction runs fn in one transaction. An error or panic from fn rolls it
// back; the error returned by fn is kept so callers can match it.
func (c *Connection) Transaction(fn func(q Querier) error) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return multierr.Append(err, fmt.Errorf("failed to roll back: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
