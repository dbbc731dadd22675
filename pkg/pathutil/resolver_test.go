package pathutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	p := New(Config{Root: "/srv/books"})
	assert.Equal(t, "/srv/books", p.GetRoot())
	assert.Equal(t, filepath.Join("/srv/books", DefaultXMLFile), p.GetXMLPath())
	assert.Equal(t, filepath.Join("/srv/books", DefaultDBFile), p.GetDatabasePath())
	assert.Equal(t, filepath.Join("/srv/books", DefaultBoltFile), p.GetBoltPath())

	p = New(Config{Root: "/srv/books", DatabasePath: "/tmp/other.sqlite"})
	assert.Equal(t, "/tmp/other.sqlite", p.GetDatabasePath())
}

func TestGetBackendPath(t *testing.T) {
	p := New(Config{Root: "/srv/books"})
	tests := []struct {
		backend string
		want    string
		wantErr bool
	}{
		{"xml", p.GetXMLPath(), false},
		{"SQLite", p.GetDatabasePath(), false},
		{"bolt", p.GetBoltPath(), false},
		{"postgres", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			got, err := p.GetBackendPath(tt.backend)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("BIZBOOK_ROOT", "")
	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("BIZBOOK_ROOT", "/srv/books")
	t.Setenv("BIZBOOK_BOLT_PATH", "/var/lib/book.db")
	p, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/book.db", p.GetBoltPath())
}

func TestBackup(t *testing.T) {
	root := t.TempDir()
	p := New(Config{Root: root})
	at := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)

	dst, err := p.Backup(p.GetXMLPath(), at)
	require.NoError(t, err)
	assert.Empty(t, dst, "nothing to back up yet")

	require.NoError(t, os.WriteFile(p.GetXMLPath(), []byte("<gnc-v2/>"), 0644))
	dst, err = p.Backup(p.GetXMLPath(), at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "backups", "book.xml.20240131-235959"), dst)
	assert.True(t, p.FileExists(dst))
}
