package sqlbackend

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/shunichi-ikebuchi/bizbook/pkg/colmap"
	"github.com/shunichi-ikebuchi/bizbook/pkg/db"
	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

// object is the type-erased view of one registered table.
type object interface {
	typeName() string
	tableName() string
	create(conn *db.Connection) error
	load(b *entity.Book, conn *db.Connection) (loadStats, error)
	commit(q db.Querier, e entity.Entity) error
	remove(q db.Querier, e entity.Entity) error
	records(b *entity.Book) []entity.Entity
	scrub(b *entity.Book)
}

type loadStats struct {
	rows     int
	failed   int
	passes   int
	dangling int
}

type tableObject[T colmap.Record] struct {
	table *colmap.Table[T]
}

func (o *tableObject[T]) typeName() string  { return o.table.TypeName }
func (o *tableObject[T]) tableName() string { return o.table.SQLName }

func (o *tableObject[T]) records(b *entity.Book) []entity.Entity {
	var out []entity.Entity
	for _, rec := range o.table.All(b) {
		out = append(out, rec)
	}
	return out
}

func (o *tableObject[T]) scrub(b *entity.Book) {
	if o.table.Scrub != nil {
		o.table.Scrub(b)
	}
}

// fieldDefault is the DEFAULT of a NOT NULL field of the given kind.
func fieldDefault(kind colmap.Kind) string {
	switch kind {
	case colmap.KindString, colmap.KindGUID, colmap.KindAddress:
		return "''"
	}
	return "0"
}

// fieldDDL returns the column definitions for c, one per physical field.
func fieldDDL[T any](c colmap.Column[T]) []string {
	var typ string
	dflt := fieldDefault(c.Kind)
	switch c.Kind {
	case colmap.KindString:
		typ = "TEXT"
		if c.Size > 0 {
			typ = fmt.Sprintf("TEXT(%d)", c.Size)
		}
	case colmap.KindInt, colmap.KindBool:
		typ = "INTEGER"
	case colmap.KindInt64, colmap.KindNumeric:
		typ = "BIGINT"
	case colmap.KindGUID:
		typ = "TEXT(32)"
	case colmap.KindOwner:
		return []string{c.Name + "_type INTEGER", c.Name + "_guid TEXT(32)"}
	case colmap.KindAddress:
		var out []string
		for _, f := range c.Fields() {
			out = append(out, f+" TEXT(1024)")
		}
		return out
	}

	var out []string
	for _, f := range c.Fields() {
		def := f + " " + typ
		switch {
		case c.Has(colmap.PrimaryKey):
			def += " PRIMARY KEY NOT NULL"
		case c.Has(colmap.NotNull):
			def += " NOT NULL DEFAULT " + dflt
		}
		out = append(out, def)
	}
	return out
}

func (o *tableObject[T]) createStatement(name string) string {
	var defs []string
	for _, c := range o.table.Columns {
		defs = append(defs, fieldDDL(c)...)
	}
	return fmt.Sprintf("CREATE TABLE %s (\n    %s\n)", name, strings.Join(defs, ",\n    "))
}

// create brings the table to the current version. Version 0 creates it,
// an older version rebuilds it keeping every column the two layouts share.
func (o *tableObject[T]) create(conn *db.Connection) error {
	t := o.table
	version, err := db.TableVersion(conn, t.SQLName)
	if err != nil {
		return err
	}

	switch {
	case version == t.Version:
		return nil
	case version > t.Version:
		return fmt.Errorf("table %s has version %d, newer than supported version %d", t.SQLName, version, t.Version)
	case version == 0:
		slog.Debug("creating table", "table", t.SQLName, "version", t.Version)
		return conn.Transaction(func(tx db.Querier) error {
			if _, err := tx.Exec(o.createStatement(t.SQLName)); err != nil {
				return fmt.Errorf("failed to create %s: %w", t.SQLName, err)
			}
			return db.SetTableVersion(tx, t.SQLName, t.Version)
		})
	}

	slog.Info("upgrading table", "table", t.SQLName, "from", version, "to", t.Version)
	return conn.Transaction(func(tx db.Querier) error {
		existing, err := db.TableColumns(tx, t.SQLName)
		if err != nil {
			return err
		}
		// Copy shared fields; NULLs in now NOT NULL fields take the default
		var common, selects []string
		for _, c := range t.Columns {
			for _, f := range c.Fields() {
				if !slices.Contains(existing, f) {
					continue
				}
				common = append(common, f)
				if c.Has(colmap.NotNull) && !c.Has(colmap.PrimaryKey) {
					selects = append(selects, fmt.Sprintf("COALESCE(%s, %s)", f, fieldDefault(c.Kind)))
				} else {
					selects = append(selects, f)
				}
			}
		}

		tmp := t.SQLName + "_new"
		stmts := []string{
			o.createStatement(tmp),
			fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
				tmp, strings.Join(common, ", "), strings.Join(selects, ", "), t.SQLName),
			fmt.Sprintf("DROP TABLE %s", t.SQLName),
			fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tmp, t.SQLName),
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("failed to upgrade %s: %w", t.SQLName, err)
			}
		}
		return db.SetTableVersion(tx, t.SQLName, t.Version)
	})
}

// load reads every row of the table into b. Rows are fetched with one
// SELECT *, applied through the column table and marked clean. Parents not
// yet in the book are resolved afterwards by a fixpoint over the pending list.
func (o *tableObject[T]) load(b *entity.Book, conn *db.Connection) (loadStats, error) {
	t := o.table
	var stats loadStats

	rows, err := fetchRows(conn, "SELECT * FROM "+t.SQLName)
	if err != nil {
		return stats, fmt.Errorf("failed to load %s: %w", t.SQLName, err)
	}

	key := t.Key()
	var pending *colmap.PendingParents[T]
	if t.Parent != nil {
		pending = colmap.NewPendingParents(t.Parent)
	}

	for _, r := range rows {
		stats.rows++
		kv, _, err := decodeFields(key.Kind, key.Fields(), r)
		if err != nil || kv.GUID == uuid.Nil {
			slog.Error("skipping row with invalid guid", "table", t.SQLName, "error", err)
			stats.failed++
			continue
		}

		rec := t.Adopt(b, kv.GUID)
		if err := o.apply(rec, r); err != nil {
			slog.Error("failed to load row", "table", t.SQLName, "guid", entity.GUIDString(kv.GUID), "error", err)
			stats.failed++
			rec.BeginEdit()
			rec.Instance().SetDestroying()
			rec.Instance().MarkDirty()
			rec.CommitEdit()
			continue
		}

		if pending != nil && !t.Parent.Has(rec) {
			parent := t.Parent.ReadParent(func(c colmap.Column[*colmap.ParentRef]) (colmap.Value, bool) {
				v, ok, err := decodeFields(c.Kind, c.Fields(), r)
				return v, ok && err == nil
			})
			if parent != kv.GUID {
				pending.Add(rec, parent)
			}
		}
		rec.Instance().MarkClean()
	}

	if pending != nil {
		passes, dangling := pending.Resolve()
		stats.passes = passes
		stats.dangling = len(dangling)
		for _, g := range dangling {
			slog.Warn("parent reference left dangling", "table", t.SQLName, "parent", entity.GUIDString(g))
		}
	}

	if err := loadSlots(conn, b, t.TypeName, t.SQLName, key.Name); err != nil {
		return stats, err
	}
	return stats, nil
}

func (o *tableObject[T]) apply(rec T, r row) error {
	rec.BeginEdit()
	defer rec.CommitEdit()
	for _, c := range o.table.Columns {
		if c.Set == nil || c.Has(colmap.PrimaryKey) {
			continue
		}
		v, ok, err := decodeFields(c.Kind, c.Fields(), r)
		if err != nil {
			return fmt.Errorf("column %s: %w", c.Name, err)
		}
		if ok {
			c.Set(rec, v)
		}
	}
	return nil
}

// commit upserts the record row and replaces its slots.
func (o *tableObject[T]) commit(q db.Querier, e entity.Entity) error {
	t := o.table
	rec, ok := e.(T)
	if !ok {
		return fmt.Errorf("%T is not a %s record", e, t.TypeName)
	}

	var fields []string
	var args []any
	for _, c := range t.Columns {
		vals, err := fieldArgs(c.Get(rec))
		if err != nil {
			return fmt.Errorf("column %s: %w", c.Name, err)
		}
		fields = append(fields, c.Fields()...)
		args = append(args, vals...)
	}

	key := t.Key().Fields()[0]
	var updates []string
	for _, f := range fields {
		if f != key {
			updates = append(updates, f+" = excluded."+f)
		}
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO UPDATE SET %s",
		t.SQLName,
		strings.Join(fields, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(fields)), ", "),
		key,
		strings.Join(updates, ", "),
	)
	if _, err := q.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to save %s %s: %w", t.TypeName, entity.GUIDString(e.Instance().GUID()), err)
	}
	return saveSlots(q, e.Instance().GUID(), e.Instance().Slots())
}

// remove deletes the record row and its slots.
func (o *tableObject[T]) remove(q db.Querier, e entity.Entity) error {
	t := o.table
	g := entity.GUIDString(e.Instance().GUID())
	if _, err := q.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", t.SQLName, t.Key().Fields()[0]), g); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", t.TypeName, g, err)
	}
	return deleteSlots(q, e.Instance().GUID())
}

// fetchRows runs query and returns every row keyed by column name.
func fetchRows(q db.Querier, query string, args ...any) ([]row, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := make(row, len(cols))
		for i, c := range cols {
			r[c] = vals[i]
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
