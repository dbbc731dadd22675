// Package xmlbackend stores a book as a single XML document.
//
// The document follows the gnc-v2 layout: a book node holding the book id,
// per type record counts and one node per record. Record nodes are produced
// from the same colmap tables the row backends use.
package xmlbackend

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/shunichi-ikebuchi/bizbook/pkg/colmap"
	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

const (
	rootTag      = "gnc-v2"
	bookTag      = "gnc:book"
	bookIDTag    = "book:id"
	countDataTag = "gnc:count-data"
	namespaceURI = "http://www.gnucash.org/XML/"
)

// Backend reads and writes XML book files.
type Backend struct {
	path    string
	objects []object
	byTag   map[string]object
}

// New creates a backend for the file at path. Tables must be registered
// before the first Load or Save.
func New(path string) *Backend {
	return &Backend{path: path, byTag: make(map[string]object)}
}

// Register adds a table. Records are written in registration order.
func Register[T colmap.Record](be *Backend, t *colmap.Table[T]) {
	o := newTableObject(t)
	be.objects = append(be.objects, o)
	be.byTag[o.tag()] = o
}

// Path returns the book file path.
func (be *Backend) Path() string {
	return be.path
}

// Load reads the book file into b.
func (be *Backend) Load(b *entity.Book) error {
	f, err := os.Open(be.path)
	if err != nil {
		return fmt.Errorf("failed to open book file: %w", err)
	}
	defer f.Close()

	return be.Read(bufio.NewReader(f), b)
}

// Save writes b to the book file. The file is replaced atomically and the
// book is marked saved on success.
func (be *Backend) Save(b *entity.Book) error {
	dir := filepath.Dir(be.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create book directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(be.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := be.Write(w, b); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush book file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close book file: %w", err)
	}
	if err := os.Rename(tmp.Name(), be.path); err != nil {
		return fmt.Errorf("failed to replace book file: %w", err)
	}

	b.MarkSaved()
	return nil
}

// errWriter remembers the first write error and swallows later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) Write(p []byte) (int, error) {
	if ew.err != nil {
		return 0, ew.err
	}
	n, err := ew.w.Write(p)
	ew.err = err
	return n, err
}

func (ew *errWriter) printf(format string, args ...any) {
	fmt.Fprintf(ew, format, args...)
}

func (be *Backend) namespaces() []string {
	ns := []string{"gnc", "book", "cd", slotPrefix, ownerPrefix, addressPrefix}
	for _, o := range be.objects {
		for _, p := range o.prefixes() {
			if !slices.Contains(ns, p) {
				ns = append(ns, p)
			}
		}
	}
	return ns
}

// Write streams the whole book to w. Writing stops at the first failed
// write and the error is returned.
func (be *Backend) Write(w io.Writer, b *entity.Book) error {
	ew := &errWriter{w: w}

	// Envelope
	ew.printf("<?xml version=\"1.0\" encoding=\"utf-8\" ?>\n<%s", rootTag)
	for _, p := range be.namespaces() {
		ew.printf("\n     xmlns:%s=\"%s%s\"", p, namespaceURI, p)
	}
	ew.printf(">\n")
	ew.printf("<%s cd:type=\"book\">1</%s>\n", countDataTag, countDataTag)
	ew.printf("<%s version=\"%s\">\n", bookTag, nodeVersion)
	ew.printf("<%s type=\"guid\">%s</%s>\n", bookIDTag, entity.GUIDString(b.GUID()), bookIDTag)

	// Counts, then records per table
	records := make([][]entity.Entity, len(be.objects))
	for i, o := range be.objects {
		records[i] = o.records(b)
		if n := len(records[i]); n > 0 {
			ew.printf("<%s cd:type=\"%s\">%d</%s>\n", countDataTag, o.typeName(), n, countDataTag)
		}
	}
	for i, o := range be.objects {
		for _, rec := range records[i] {
			if ew.err != nil {
				return fmt.Errorf("failed to write book: %w", ew.err)
			}
			doc := etree.NewDocument()
			doc.SetRoot(o.encode(rec))
			doc.Indent(2)
			doc.WriteTo(ew)
		}
	}

	ew.printf("</%s>\n</%s>\n", bookTag, rootTag)
	if ew.err != nil {
		return fmt.Errorf("failed to write book: %w", ew.err)
	}
	return nil
}

// Read loads every record of the document into b. Malformed records are
// logged and skipped; only an unreadable document is an error. Loaded
// records are clean, and each table's scrub runs afterwards.
func (be *Backend) Read(r io.Reader, b *entity.Book) error {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return fmt.Errorf("failed to parse book file: %w", err)
	}
	root := doc.Root()
	if root == nil || root.FullTag() != rootTag {
		return fmt.Errorf("not a book file: missing <%s> root", rootTag)
	}
	container := root.SelectElement(bookTag)
	if container == nil {
		container = root
	}

	b.SuspendEvents()
	defer b.ResumeEvents()

	expected := make(map[string]int)
	loaded := make(map[string]int)
	skipped := 0
	for _, el := range container.ChildElements() {
		switch el.FullTag() {
		case bookIDTag:
			g, err := entity.ParseGUID(strings.TrimSpace(el.Text()))
			if err != nil {
				slog.Error("invalid book id", "error", err)
				continue
			}
			b.SetGUID(g)
			continue
		case countDataTag:
			n, err := strconv.Atoi(strings.TrimSpace(el.Text()))
			if err == nil {
				expected[el.SelectAttrValue("cd:type", "")] = n
			}
			continue
		}

		o, ok := be.byTag[el.FullTag()]
		if !ok {
			slog.Warn("skipping unknown record", "tag", el.FullTag())
			continue
		}
		if err := o.decode(b, el); err != nil {
			slog.Error("failed to load record", "error", err)
			skipped++
			continue
		}
		loaded[o.typeName()]++
	}

	for _, o := range be.objects {
		if n, ok := expected[o.typeName()]; ok && n != loaded[o.typeName()] {
			slog.Warn("record count mismatch", "type", o.typeName(), "expected", n, "loaded", loaded[o.typeName()])
		}
	}

	b.MarkSaved()
	for _, o := range be.objects {
		o.scrub(b)
	}

	slog.Debug("book loaded", "records", loaded, "skipped", skipped)
	return nil
}
