package db

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *Connection {
	t.Helper()
	conn, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "book.sqlite")
	conn, err := Open(path)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, path, conn.Path())
	assert.FileExists(t, path)

	n, err := RowCount(conn, "versions")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTableVersions(t *testing.T) {
	conn := openTestDB(t)

	v, err := TableVersion(conn, "distriblists")
	require.NoError(t, err)
	assert.Zero(t, v, "absent table reports version 0")

	require.NoError(t, SetTableVersion(conn, "distriblists", 1))
	require.NoError(t, SetTableVersion(conn, "distriblists", 2))
	require.NoError(t, SetTableVersion(conn, "jobs", 1))

	v, err = TableVersion(conn, "distriblists")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	all, err := TableVersions(conn)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"distriblists": 2, "jobs": 1}, all)
}

func TestTableColumns(t *testing.T) {
	conn := openTestDB(t)

	cols, err := TableColumns(conn, "versions")
	require.NoError(t, err)
	assert.Equal(t, []string{"table_name", "table_version"}, cols)

	cols, err = TableColumns(conn, "missing")
	require.NoError(t, err)
	assert.Empty(t, cols)
}

func TestMetadata(t *testing.T) {
	conn := openTestDB(t)

	v, err := GetMetadata(conn, MetaBookGUID)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, SetMetadata(conn, MetaBookGUID, "a"))
	require.NoError(t, SetMetadata(conn, MetaBookGUID, "b"))

	v, err = GetMetadata(conn, MetaBookGUID)
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}

func TestTransaction(t *testing.T) {
	conn := openTestDB(t)
	errBoom := errors.New("boom")

	tests := []struct {
		name    string
		fn      func(Querier) error
		wantErr error
		want    int
	}{
		{
			name: "commit",
			fn:   func(tx Querier) error { return SetTableVersion(tx, "jobs", 1) },
			want: 1,
		},
		{
			name: "rollback",
			fn: func(tx Querier) error {
				if err := SetTableVersion(tx, "jobs", 5); err != nil {
					return err
				}
				return errBoom
			},
			wantErr: errBoom,
			want:    1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := conn.Transaction(tt.fn)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			v, err := TableVersion(conn, "jobs")
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestTransactionRollsBackOnPanic(t *testing.T) {
	conn := openTestDB(t)
	require.NoError(t, SetTableVersion(conn, "jobs", 1))

	assert.PanicsWithValue(t, "boom", func() {
		_ = conn.Transaction(func(tx Querier) error {
			if err := SetTableVersion(tx, "jobs", 9); err != nil {
				return err
			}
			panic("boom")
		})
	})

	v, err := TableVersion(conn, "jobs")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}
