// Package db provides the SQLite plumbing of a book database: the connection,
// per-table schema versions, open key/value slots and book metadata.
package db

// Schema defines the tables every book database carries. Record tables are
// created by the SQL backend from the column tables.
const Schema = `
-- Schema version of each record table
-- A missing row means the table has not been created yet
CREATE TABLE IF NOT EXISTS versions (
    table_name TEXT PRIMARY KEY NOT NULL,
    table_version INTEGER NOT NULL
);

-- Open key/value extension data of any record
CREATE TABLE IF NOT EXISTS slots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    obj_guid TEXT(32) NOT NULL,        -- owning record
    name TEXT(4096) NOT NULL,
    slot_type INTEGER NOT NULL,        -- entity.SlotKind
    int64_val BIGINT,
    string_val TEXT(4096),
    double_val REAL,
    numeric_val TEXT,
    guid_val TEXT(32),
    UNIQUE(obj_guid, name)
);

CREATE INDEX IF NOT EXISTS slots_guid_index
    ON slots(obj_guid);

-- Book metadata
-- Stores key-value metadata about the book, such as its GUID
CREATE TABLE IF NOT EXISTS book_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitializeSchema creates the bookkeeping tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	return nil
}
