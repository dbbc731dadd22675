package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// Metadata keys.
const (
	MetaBookGUID = "book_guid"
	MetaSavedAt  = "saved_at"
)

// TableVersion returns the stored schema version of a table, 0 when the
// table was never created.
func TableVersion(q Querier, table string) (int, error) {
	var version int
	err := q.QueryRow(`SELECT table_version FROM versions WHERE table_name = ?`, table).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get version of %s: %w", table, err)
	}
	return version, nil
}

// SetTableVersion records the schema version of a table.
func SetTableVersion(q Querier, table string, version int) error {
	query := `
		INSERT INTO versions (table_name, table_version)
		VALUES (?, ?)
		ON CONFLICT(table_name) DO UPDATE SET
			table_version = excluded.table_version
	`
	if _, err := q.Exec(query, table, version); err != nil {
		return fmt.Errorf("failed to set version of %s: %w", table, err)
	}
	return nil
}

// TableVersions returns every recorded table version.
func TableVersions(q Querier) (map[string]int, error) {
	rows, err := q.Query(`SELECT table_name, table_version FROM versions`)
	if err != nil {
		return nil, fmt.Errorf("failed to list table versions: %w", err)
	}
	defer rows.Close()

	versions := make(map[string]int)
	for rows.Next() {
		var name string
		var version int
		if err := rows.Scan(&name, &version); err != nil {
			return nil, fmt.Errorf("failed to scan table version: %w", err)
		}
		versions[name] = version
	}
	return versions, rows.Err()
}

// TableColumns returns the column names of a table in declaration order.
func TableColumns(q Querier, table string) ([]string, error) {
	rows, err := q.Query(fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// RowCount returns the number of rows in a table.
func RowCount(q Querier, table string) (int, error) {
	var n int
	if err := q.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %q", table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// GetMetadata retrieves a metadata value, empty when unset.
func GetMetadata(q Querier, key string) (string, error) {
	var value string
	err := q.QueryRow(`SELECT value FROM book_metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}
	return value, nil
}

// SetMetadata sets a metadata value.
func SetMetadata(q Querier, key, value string) error {
	query := `
		INSERT INTO book_metadata (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := q.Exec(query, key, value); err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}
	return nil
}
