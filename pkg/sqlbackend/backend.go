// Package sqlbackend stores a book in a SQLite database with one table per
// entity type. Tables, their upgrades, row encoding and the deferred parent
// pass are all driven by the colmap tables.
package sqlbackend

import (
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/multierr"

	"github.com/shunichi-ikebuchi/bizbook/pkg/colmap"
	"github.com/shunichi-ikebuchi/bizbook/pkg/db"
	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

// Backend maps registered tables onto a database connection. Attached to a
// book it also acts as the entity.Backend receiving every commit.
type Backend struct {
	conn    *db.Connection
	objects []object
	byType  map[string]object
	loading bool
}

// LoadStats summarizes one LoadAll call.
type LoadStats struct {
	Rows     int
	Failed   int
	Passes   int
	Dangling int
}

// New creates a backend on an open connection.
func New(conn *db.Connection) *Backend {
	return &Backend{conn: conn, byType: make(map[string]object)}
}

// Register adds a table. Tables are created, loaded and written in
// registration order.
func Register[T colmap.Record](be *Backend, t *colmap.Table[T]) {
	o := &tableObject[T]{table: t}
	be.objects = append(be.objects, o)
	be.byType[o.typeName()] = o
}

// Conn returns the underlying connection.
func (be *Backend) Conn() *db.Connection {
	return be.conn
}

// CreateTables creates missing tables and upgrades outdated ones.
func (be *Backend) CreateTables() error {
	for _, o := range be.objects {
		if err := o.create(be.conn); err != nil {
			return err
		}
	}
	return nil
}

// LoadAll reads every table into b. A failing query aborts the load, single
// bad rows are logged and skipped. Loaded records are clean, then each
// table's scrub runs with the backend live so repairs reach the database
// when the backend is attached to b.
func (be *Backend) LoadAll(b *entity.Book) (LoadStats, error) {
	var total LoadStats

	if err := be.CreateTables(); err != nil {
		return total, err
	}

	guid, err := db.GetMetadata(be.conn, db.MetaBookGUID)
	if err != nil {
		return total, err
	}
	if g, err := entity.ParseGUID(guid); err == nil {
		b.SetGUID(g)
	}

	be.loading = true
	b.SuspendEvents()
	for _, o := range be.objects {
		stats, err := o.load(b, be.conn)
		total.Rows += stats.rows
		total.Failed += stats.failed
		total.Passes += stats.passes
		total.Dangling += stats.dangling
		if err != nil {
			be.loading = false
			b.ResumeEvents()
			return total, err
		}
		slog.Debug("table loaded", "table", o.tableName(), "rows", stats.rows, "failed", stats.failed)
	}
	b.MarkSaved()
	be.loading = false

	for _, o := range be.objects {
		o.scrub(b)
	}
	b.ResumeEvents()

	return total, nil
}

// Write commits every record of b. A failing record does not stop the
// others; all failures are returned together. Records that were written
// are marked clean, and the whole book once nothing failed.
func (be *Backend) Write(b *entity.Book) error {
	written, err := be.write(be.conn, b)
	for _, rec := range written {
		rec.Instance().MarkClean()
	}
	if err != nil {
		return err
	}
	b.MarkSaved()
	return nil
}

func (be *Backend) write(q db.Querier, b *entity.Book) ([]entity.Entity, error) {
	var errs error
	var written []entity.Entity
	for _, o := range be.objects {
		for _, rec := range o.records(b) {
			if err := o.commit(q, rec); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			written = append(written, rec)
		}
	}

	errs = multierr.Append(errs, db.SetMetadata(q, db.MetaBookGUID, entity.GUIDString(b.GUID())))
	errs = multierr.Append(errs, db.SetMetadata(q, db.MetaSavedAt, time.Now().UTC().Format(time.RFC3339)))

	if errs != nil {
		slog.Error("book written with errors", "written", len(written), "failed", len(multierr.Errors(errs)))
		return written, fmt.Errorf("failed to write book: %w", errs)
	}
	slog.Debug("book written", "records", len(written))
	return written, nil
}

// Sync replaces the database contents with b in one transaction. Unlike
// Write it removes rows of records no longer in the book, and any failure
// rolls the whole replacement back.
func (be *Backend) Sync(b *entity.Book) error {
	if err := be.CreateTables(); err != nil {
		return err
	}
	err := be.conn.Transaction(func(tx db.Querier) error {
		for _, o := range be.objects {
			if _, err := tx.Exec(fmt.Sprintf("DELETE FROM slots WHERE obj_guid IN (SELECT guid FROM %s)", o.tableName())); err != nil {
				return fmt.Errorf("failed to clear slots of %s: %w", o.tableName(), err)
			}
			if _, err := tx.Exec("DELETE FROM " + o.tableName()); err != nil {
				return fmt.Errorf("failed to clear %s: %w", o.tableName(), err)
			}
		}
		_, err := be.write(tx, b)
		return err
	})
	if err != nil {
		return err
	}
	b.MarkSaved()
	return nil
}

// Commit implements entity.Backend. It is a no-op while LoadAll applies rows.
func (be *Backend) Commit(e entity.Entity) error {
	if be.loading {
		return nil
	}
	o, ok := be.byType[e.Instance().TypeName()]
	if !ok {
		return fmt.Errorf("no table registered for %s", e.Instance().TypeName())
	}
	return o.commit(be.conn, e)
}

// Delete implements entity.Backend.
func (be *Backend) Delete(e entity.Entity) error {
	if be.loading {
		return nil
	}
	o, ok := be.byType[e.Instance().TypeName()]
	if !ok {
		return fmt.Errorf("no table registered for %s", e.Instance().TypeName())
	}
	return o.remove(be.conn, e)
}

// Counts returns the stored row count of every registered table.
func (be *Backend) Counts() (map[string]int, error) {
	counts := make(map[string]int, len(be.objects))
	for _, o := range be.objects {
		n, err := db.RowCount(be.conn, o.tableName())
		if err != nil {
			return nil, err
		}
		counts[o.typeName()] = n
	}
	return counts, nil
}
