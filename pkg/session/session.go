// Package session binds a book to one storage backend. It registers every
// business table, loads and saves the book, and for the row backends attaches
// the backend so that each committed edit is written through immediately.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/shunichi-ikebuchi/bizbook/pkg/boltbackend"
	"github.com/shunichi-ikebuchi/bizbook/pkg/business"
	"github.com/shunichi-ikebuchi/bizbook/pkg/config"
	"github.com/shunichi-ikebuchi/bizbook/pkg/db"
	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
	"github.com/shunichi-ikebuchi/bizbook/pkg/sqlbackend"
	"github.com/shunichi-ikebuchi/bizbook/pkg/xmlbackend"
)

// ErrNoBook is returned by operations that need a loaded or created book.
var ErrNoBook = errors.New("no book in session")

// Session owns one book and the backend it lives in.
type Session struct {
	kind string
	path string
	book *entity.Book

	xml  *xmlbackend.Backend
	conn *db.Connection
	sql  *sqlbackend.Backend
	bolt *boltbackend.Backend
}

// Open prepares a session for the book at path in the named backend.
// Database backends open their file right away.
func Open(kind, path string) (*Session, error) {
	s := &Session{kind: kind, path: path}

	switch kind {
	case config.BackendXML:
		s.xml = xmlbackend.New(path)
		registerXML(s.xml)
	case config.BackendSQLite:
		conn, err := db.Open(path)
		if err != nil {
			return nil, err
		}
		s.conn = conn
		s.sql = sqlbackend.New(conn)
		registerSQL(s.sql)
	case config.BackendBolt:
		store, err := boltbackend.OpenStore(path)
		if err != nil {
			return nil, err
		}
		s.bolt = boltbackend.New(store)
		registerBolt(s.bolt)
	default:
		return nil, fmt.Errorf("unsupported backend %q", kind)
	}

	slog.Debug("session opened", "backend", kind, "path", path)
	return s, nil
}

// The registration order is the load order: distribution lists come first
// so co-owners find them, and jobs come last so their owners exist.
func registerXML(be *xmlbackend.Backend) {
	xmlbackend.Register(be, business.DistribListTable)
	xmlbackend.Register(be, business.CustomerTable)
	xmlbackend.Register(be, business.EmployeeTable)
	xmlbackend.Register(be, business.VendorTable)
	xmlbackend.Register(be, business.CoOwnerTable)
	xmlbackend.Register(be, business.JobTable)
}

func registerSQL(be *sqlbackend.Backend) {
	sqlbackend.Register(be, business.DistribListTable)
	sqlbackend.Register(be, business.CustomerTable)
	sqlbackend.Register(be, business.EmployeeTable)
	sqlbackend.Register(be, business.VendorTable)
	sqlbackend.Register(be, business.CoOwnerTable)
	sqlbackend.Register(be, business.JobTable)
}

func registerBolt(be *boltbackend.Backend) {
	boltbackend.Register(be, business.DistribListTable)
	boltbackend.Register(be, business.CustomerTable)
	boltbackend.Register(be, business.EmployeeTable)
	boltbackend.Register(be, business.VendorTable)
	boltbackend.Register(be, business.CoOwnerTable)
	boltbackend.Register(be, business.JobTable)
}

// Kind returns the backend name.
func (s *Session) Kind() string {
	return s.kind
}

// Path returns the book location.
func (s *Session) Path() string {
	return s.path
}

// Book returns the session's book, nil before Load or Create.
func (s *Session) Book() *entity.Book {
	return s.book
}

// Create starts an empty book. Row backends get their tables created and
// are attached to the book.
func (s *Session) Create() (*entity.Book, error) {
	b := entity.NewBook()
	switch {
	case s.sql != nil:
		if err := s.sql.CreateTables(); err != nil {
			return nil, err
		}
		b.SetBackend(s.sql)
	case s.bolt != nil:
		if err := s.bolt.CreateBuckets(); err != nil {
			return nil, err
		}
		b.SetBackend(s.bolt)
	}
	s.book = b
	return b, nil
}

// Load reads the book from storage. A missing XML file is an error; empty
// databases load as empty books.
func (s *Session) Load() (*entity.Book, error) {
	b := entity.NewBook()
	switch {
	case s.xml != nil:
		if err := s.xml.Load(b); err != nil {
			return nil, err
		}
	case s.sql != nil:
		stats, err := s.sql.LoadAll(b)
		if err != nil {
			return nil, err
		}
		slog.Debug("book loaded", "rows", stats.Rows, "failed", stats.Failed, "dangling", stats.Dangling)
		b.SetBackend(s.sql)
	case s.bolt != nil:
		stats, err := s.bolt.LoadAll(b)
		if err != nil {
			return nil, err
		}
		slog.Debug("book loaded", "records", stats.Records, "failed", stats.Failed, "dangling", stats.Dangling)
		b.SetBackend(s.bolt)
	}
	s.book = b
	return b, nil
}

// Exists reports whether the book location already holds data.
func (s *Session) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && info.Size() > 0
}

// Save writes the whole book. Row backends replace their contents in one
// transaction so records destroyed while detached disappear as well.
func (s *Session) Save() error {
	if s.book == nil {
		return ErrNoBook
	}
	switch {
	case s.xml != nil:
		return s.xml.Save(s.book)
	case s.sql != nil:
		return s.sql.Sync(s.book)
	case s.bolt != nil:
		return s.bolt.Sync(s.book)
	}
	return nil
}

// SaveTo saves the session's book into dst's storage, leaving the book
// attached to this session's backend. The book is marked saved afterwards.
func (s *Session) SaveTo(dst *Session) error {
	if s.book == nil {
		return ErrNoBook
	}
	be := s.book.Backend()
	s.book.SetBackend(nil)
	defer s.book.SetBackend(be)

	dst.book = s.book
	err := dst.Save()
	dst.book = nil
	if err != nil {
		return fmt.Errorf("failed to save to %s: %w", dst.kind, err)
	}
	return nil
}

// Counts returns the number of live records per entity type.
func (s *Session) Counts() map[string]int {
	counts := make(map[string]int)
	if s.book == nil {
		return counts
	}
	for _, name := range s.book.TypeNames() {
		n := 0
		s.book.Collection(name).ForEach(func(e entity.Entity) {
			if !e.Instance().IsDestroying() {
				n++
			}
		})
		counts[name] = n
	}
	return counts
}

// StoredCounts returns the records per type held by a row backend. The XML
// backend keeps nothing between saves and returns nil.
func (s *Session) StoredCounts() (map[string]int, error) {
	switch {
	case s.sql != nil:
		return s.sql.Counts()
	case s.bolt != nil:
		return s.bolt.Counts()
	}
	return nil, nil
}

// DB returns the SQLite connection, nil for other backends.
func (s *Session) DB() *db.Connection {
	return s.conn
}

// Close detaches the book and releases the backend.
func (s *Session) Close() error {
	if s.book != nil {
		s.book.SetBackend(nil)
	}
	switch {
	case s.conn != nil:
		return s.conn.Close()
	case s.bolt != nil:
		return s.bolt.Store().Close()
	}
	return nil
}
