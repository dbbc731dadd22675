// Package pathutil provides centralized path management for book files.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default file names below the book root.
const (
	DefaultXMLFile  = "book.xml"
	DefaultDBFile   = "book.sqlite"
	DefaultBoltFile = "book.db"
	backupDir       = "backups"
)

// PathResolver manages the file paths of one book in each backend.
type PathResolver struct {
	root     string
	xmlPath  string
	dbPath   string
	boltPath string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// Root is the directory holding the book files (e.g., ~/books)
	Root string
	// XMLPath is the XML book file
	XMLPath string
	// DatabasePath is the SQLite book database
	DatabasePath string
	// BoltPath is the bbolt book database
	BoltPath string
}

// New creates a new PathResolver with the given configuration.
// Empty paths default to book.xml, book.sqlite and book.db inside Root.
func New(config Config) *PathResolver {
	p := &PathResolver{
		root:     config.Root,
		xmlPath:  config.XMLPath,
		dbPath:   config.DatabasePath,
		boltPath: config.BoltPath,
	}
	if p.xmlPath == "" {
		p.xmlPath = filepath.Join(p.root, DefaultXMLFile)
	}
	if p.dbPath == "" {
		p.dbPath = filepath.Join(p.root, DefaultDBFile)
	}
	if p.boltPath == "" {
		p.boltPath = filepath.Join(p.root, DefaultBoltFile)
	}
	return p
}

// FromEnv creates a PathResolver from environment variables.
// Expected environment variables:
//   - BIZBOOK_ROOT: Root directory for book files (required)
//   - BIZBOOK_XML_PATH, BIZBOOK_DB_PATH, BIZBOOK_BOLT_PATH: per backend overrides (optional)
func FromEnv() (*PathResolver, error) {
	root := os.Getenv("BIZBOOK_ROOT")
	if root == "" {
		return nil, fmt.Errorf("BIZBOOK_ROOT environment variable is required")
	}

	return New(Config{
		Root:         root,
		XMLPath:      os.Getenv("BIZBOOK_XML_PATH"),
		DatabasePath: os.Getenv("BIZBOOK_DB_PATH"),
		BoltPath:     os.Getenv("BIZBOOK_BOLT_PATH"),
	}), nil
}

// GetRoot returns the book root directory.
func (p *PathResolver) GetRoot() string {
	return p.root
}

// GetXMLPath returns the XML book file path.
func (p *PathResolver) GetXMLPath() string {
	return p.xmlPath
}

// GetDatabasePath returns the SQLite database path.
func (p *PathResolver) GetDatabasePath() string {
	return p.dbPath
}

// GetBoltPath returns the bbolt database path.
func (p *PathResolver) GetBoltPath() string {
	return p.boltPath
}

// GetBackendPath returns the book path for a backend name ("xml", "sqlite" or "bolt").
func (p *PathResolver) GetBackendPath(backend string) (string, error) {
	switch strings.ToLower(backend) {
	case "xml":
		return p.xmlPath, nil
	case "sqlite":
		return p.dbPath, nil
	case "bolt":
		return p.boltPath, nil
	}
	return "", fmt.Errorf("unknown backend: %s", backend)
}

// GetBackupPath returns the path a copy of filePath is saved to before it is
// overwritten. Backups go to {Root}/backups and carry a timestamp suffix.
// Example: backups/book.xml.20240131-235959
func (p *PathResolver) GetBackupPath(filePath string, at time.Time) string {
	name := fmt.Sprintf("%s.%s", filepath.Base(filePath), at.Format("20060102-150405"))
	return filepath.Join(p.root, backupDir, name)
}

// Backup copies filePath to its backup path. A missing file is not an error
// and yields an empty path.
func (p *PathResolver) Backup(filePath string, at time.Time) (string, error) {
	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	dst := p.GetBackupPath(filePath, at)
	if err := p.EnsureParentDir(dst); err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write backup %s: %w", dst, err)
	}
	return dst, nil
}

// EnsureDir creates a directory if it doesn't exist.
// It creates all parent directories as needed (like mkdir -p).
func (p *PathResolver) EnsureDir(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	return nil
}

// EnsureParentDir ensures the parent directory of a file exists.
func (p *PathResolver) EnsureParentDir(filePath string) error {
	return p.EnsureDir(filepath.Dir(filePath))
}

// FileExists checks if a file exists.
func (p *PathResolver) FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}
