// Package boltbackend stores a book in a bbolt file. Every table gets a
// bucket of JSON documents keyed by record GUID; a meta bucket keeps the
// book GUID and the table versions.
package boltbackend

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/multierr"

	"github.com/shunichi-ikebuchi/bizbook/pkg/colmap"
	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

// Meta keys.
const (
	metaBookGUID = "book_guid"
	metaSavedAt  = "saved_at"
)

type object interface {
	typeName() string
	bucket() string
	version() int
	load(b *entity.Book, tx *bolt.Tx) (LoadStats, error)
	put(tx *bolt.Tx, e entity.Entity) error
	records(b *entity.Book) []entity.Entity
	scrub(b *entity.Book)
}

// LoadStats summarizes a LoadAll call.
type LoadStats struct {
	Records  int
	Failed   int
	Dangling int
}

func (s *LoadStats) add(o LoadStats) {
	s.Records += o.Records
	s.Failed += o.Failed
	s.Dangling += o.Dangling
}

// Backend maps registered tables onto a Store. It implements entity.Backend.
type Backend struct {
	store   *Store
	objects []object
	byType  map[string]object
	loading bool
}

// New creates a backend on an open store.
func New(store *Store) *Backend {
	return &Backend{store: store, byType: make(map[string]object)}
}

// Register adds a table.
func Register[T colmap.Record](be *Backend, t *colmap.Table[T]) {
	o := &tableObject[T]{table: t}
	be.objects = append(be.objects, o)
	be.byType[t.TypeName] = o
}

// Store returns the underlying store.
func (be *Backend) Store() *Store {
	return be.store
}

func versionKey(bucket string) string {
	return "version/" + bucket
}

// CreateBuckets creates missing buckets and records table versions. A bucket
// written by a newer version is rejected; older ones are bumped in place since
// documents carry only the fields they know.
func (be *Backend) CreateBuckets() error {
	return be.store.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket([]byte(BucketMeta))
		for _, o := range be.objects {
			if _, err := tx.CreateBucketIfNotExists([]byte(o.bucket())); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", o.bucket(), err)
			}

			stored := 0
			if raw := meta.Get([]byte(versionKey(o.bucket()))); raw != nil {
				n, err := strconv.Atoi(string(raw))
				if err != nil {
					return fmt.Errorf("invalid version of %s: %w", o.bucket(), err)
				}
				stored = n
			}
			switch {
			case stored > o.version():
				return fmt.Errorf("bucket %s has version %d, newer than supported version %d", o.bucket(), stored, o.version())
			case stored < o.version():
				if stored > 0 {
					slog.Info("upgrading bucket", "bucket", o.bucket(), "from", stored, "to", o.version())
				}
				if err := meta.Put([]byte(versionKey(o.bucket())), []byte(strconv.Itoa(o.version()))); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// LoadAll reads every bucket into b and runs the table scrubs.
func (be *Backend) LoadAll(b *entity.Book) (LoadStats, error) {
	var total LoadStats
	if err := be.CreateBuckets(); err != nil {
		return total, err
	}

	be.loading = true
	b.SuspendEvents()
	err := be.store.View(func(tx *bolt.Tx) error {
		if raw := tx.Bucket([]byte(BucketMeta)).Get([]byte(metaBookGUID)); raw != nil {
			if g, err := entity.ParseGUID(string(raw)); err == nil {
				b.SetGUID(g)
			}
		}
		for _, o := range be.objects {
			stats, err := o.load(b, tx)
			total.add(stats)
			if err != nil {
				return err
			}
		}
		return nil
	})
	be.loading = false
	if err != nil {
		b.ResumeEvents()
		return total, err
	}
	b.MarkSaved()

	for _, o := range be.objects {
		o.scrub(b)
	}
	b.ResumeEvents()
	return total, nil
}

// Write stores every record of b in one transaction. Records that fail to
// encode are skipped and reported together.
func (be *Backend) Write(b *entity.Book) error {
	if err := be.CreateBuckets(); err != nil {
		return err
	}
	var written []entity.Entity
	var errs error
	err := be.store.Update(func(tx *bolt.Tx) error {
		written, errs = be.write(tx, b)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write book: %w", err)
	}
	for _, rec := range written {
		rec.Instance().MarkClean()
	}
	if errs != nil {
		return fmt.Errorf("failed to write book: %w", errs)
	}
	b.MarkSaved()
	return nil
}

// Sync replaces the stored book with b. Any failure leaves the store as it was.
func (be *Backend) Sync(b *entity.Book) error {
	if err := be.CreateBuckets(); err != nil {
		return err
	}
	err := be.store.Update(func(tx *bolt.Tx) error {
		for _, o := range be.objects {
			if err := clearBucket(tx, o.bucket()); err != nil {
				return err
			}
		}
		_, err := be.write(tx, b)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to sync book: %w", err)
	}
	b.MarkSaved()
	return nil
}

func (be *Backend) write(tx *bolt.Tx, b *entity.Book) ([]entity.Entity, error) {
	var errs error
	var written []entity.Entity
	for _, o := range be.objects {
		for _, rec := range o.records(b) {
			if err := o.put(tx, rec); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			written = append(written, rec)
		}
	}
	errs = multierr.Append(errs, putString(tx, metaBookGUID, entity.GUIDString(b.GUID())))
	errs = multierr.Append(errs, putString(tx, metaSavedAt, time.Now().UTC().Format(time.RFC3339)))
	return written, errs
}

// Commit implements entity.Backend.
func (be *Backend) Commit(e entity.Entity) error {
	if be.loading {
		return nil
	}
	o, ok := be.byType[e.Instance().TypeName()]
	if !ok {
		return fmt.Errorf("no bucket registered for %s", e.Instance().TypeName())
	}
	return be.store.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(o.bucket())); err != nil {
			return err
		}
		return o.put(tx, e)
	})
}

// Delete implements entity.Backend.
func (be *Backend) Delete(e entity.Entity) error {
	if be.loading {
		return nil
	}
	o, ok := be.byType[e.Instance().TypeName()]
	if !ok {
		return fmt.Errorf("no bucket registered for %s", e.Instance().TypeName())
	}
	return be.store.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(o.bucket())) == nil {
			return nil
		}
		return deleteKey(tx, o.bucket(), entity.GUIDString(e.Instance().GUID()))
	})
}

// Counts returns the stored record count per type.
func (be *Backend) Counts() (map[string]int, error) {
	counts := make(map[string]int, len(be.objects))
	err := be.store.View(func(tx *bolt.Tx) error {
		for _, o := range be.objects {
			if bk := tx.Bucket([]byte(o.bucket())); bk != nil {
				counts[o.typeName()] = bk.Stats().KeyN
			}
		}
		return nil
	})
	return counts, err
}

type tableObject[T colmap.Record] struct {
	table *colmap.Table[T]
}

func (o *tableObject[T]) typeName() string { return o.table.TypeName }
func (o *tableObject[T]) bucket() string   { return o.table.SQLName }
func (o *tableObject[T]) version() int     { return o.table.Version }

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

func (o *tableObject[T]) put(tx *bolt.Tx, e entity.Entity) error {
	rec, ok := e.(T)
	if !ok {
		return fmt.Errorf("%T is not a %s record", e, o.table.TypeName)
	}
	doc := document{Fields: make(map[string]string)}
	for _, c := range o.table.Columns {
		if c.Has(colmap.PrimaryKey) {
			continue
		}
		putValue(doc.Fields, c.Fields(), c.Get(rec))
	}
	doc.Slots = encodeSlots(e.Instance().Slots())

	if err := putJSON(tx, o.bucket(), entity.GUIDString(e.Instance().GUID()), doc); err != nil {
		return fmt.Errorf("failed to save %s %s: %w", o.table.TypeName, entity.GUIDString(e.Instance().GUID()), err)
	}
	return nil
}

// load applies every document of the bucket. Documents come back in GUID
// order, so parents that sort later are linked by the pending pass.
func (o *tableObject[T]) load(b *entity.Book, tx *bolt.Tx) (LoadStats, error) {
	t := o.table
	var stats LoadStats

	entries, err := list(tx, o.bucket())
	if err != nil {
		return stats, err
	}

	var pending *colmap.PendingParents[T]
	if t.Parent != nil {
		pending = colmap.NewPendingParents(t.Parent)
	}

	for _, kv := range entries {
		stats.Records++
		g, err := entity.ParseGUID(string(kv[0]))
		if err != nil || g == uuid.Nil {
			slog.Error("skipping document with invalid key", "bucket", o.bucket(), "key", string(kv[0]))
			stats.Failed++
			continue
		}
		var doc document
		if err := json.Unmarshal(kv[1], &doc); err != nil {
			slog.Error("skipping malformed document", "bucket", o.bucket(), "guid", string(kv[0]), "error", err)
			stats.Failed++
			continue
		}

		rec := t.Adopt(b, g)
		if err := o.apply(rec, doc); err != nil {
			slog.Error("failed to load document", "bucket", o.bucket(), "guid", string(kv[0]), "error", err)
			stats.Failed++
			rec.BeginEdit()
			rec.Instance().SetDestroying()
			rec.CommitEdit()
			continue
		}

		if pending != nil && !t.Parent.Has(rec) {
			parent := t.Parent.ReadParent(func(c colmap.Column[*colmap.ParentRef]) (colmap.Value, bool) {
				v, ok, err := getValue(doc.Fields, c.Kind, c.Fields())
				return v, ok && err == nil
			})
			if parent != g {
				pending.Add(rec, parent)
			}
		}
		rec.Instance().MarkClean()
	}

	if pending != nil {
		_, dangling := pending.Resolve()
		stats.Dangling = len(dangling)
		for _, p := range dangling {
			slog.Warn("parent reference left dangling", "bucket", o.bucket(), "parent", entity.GUIDString(p))
		}
	}
	return stats, nil
}

func (o *tableObject[T]) apply(rec T, doc document) error {
	rec.BeginEdit()
	defer rec.CommitEdit()
	for _, c := range o.table.Columns {
		if c.Set == nil || c.Has(colmap.PrimaryKey) {
			continue
		}
		v, ok, err := getValue(doc.Fields, c.Kind, c.Fields())
		if err != nil {
			return fmt.Errorf("field %s: %w", c.Name, err)
		}
		if ok {
			c.Set(rec, v)
		}
	}
	return decodeSlots(rec.Instance().Slots(), doc.Slots)
}
