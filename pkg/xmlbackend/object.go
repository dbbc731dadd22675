package xmlbackend

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/shunichi-ikebuchi/bizbook/pkg/colmap"
	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

// object is the type-erased view of one registered table.
type object interface {
	typeName() string
	tag() string
	prefixes() []string
	records(b *entity.Book) []entity.Entity
	encode(e entity.Entity) *etree.Element
	decode(b *entity.Book, el *etree.Element) error
	scrub(b *entity.Book)
}

type handler[T colmap.Record] func(rec T, el *etree.Element) error

// tableObject drives one colmap table through the XML node shape.
type tableObject[T colmap.Record] struct {
	table    *colmap.Table[T]
	handlers map[string]handler[T]
}

func newTableObject[T colmap.Record](t *colmap.Table[T]) *tableObject[T] {
	o := &tableObject[T]{table: t, handlers: make(map[string]handler[T])}
	o.buildHandlers()
	return o
}

func (o *tableObject[T]) typeName() string { return o.table.TypeName }
func (o *tableObject[T]) tag() string      { return o.table.XMLTag }

func (o *tableObject[T]) prefixes() []string {
	out := []string{o.table.XMLPrefix}
	for _, v := range o.table.Variants {
		out = append(out, v.Prefix)
	}
	return out
}

func (o *tableObject[T]) field(name string) string {
	return o.table.XMLPrefix + ":" + name
}

// xmlColumn reports whether a column is written among the plain fields.
func xmlColumn[T any](c colmap.Column[T]) bool {
	return !c.Has(colmap.PrimaryKey) && !c.Has(colmap.Structural) && !c.Has(colmap.Discriminant) && c.Variant == ""
}

func (o *tableObject[T]) records(b *entity.Book) []entity.Entity {
	var out []entity.Entity
	for _, rec := range o.table.All(b) {
		out = append(out, rec)
	}
	return out
}

// encode builds the record node: guid, plain fields in table order, links,
// the active variant and finally the slots.
func (o *tableObject[T]) encode(e entity.Entity) *etree.Element {
	rec := e.(T)
	t := o.table

	node := etree.NewElement(t.XMLTag)
	node.CreateAttr("version", t.XMLVersion)

	guid := node.CreateElement(o.field("guid"))
	guid.CreateAttr("type", "guid")
	guid.SetText(entity.GUIDString(rec.Instance().GUID()))

	for _, c := range t.Columns {
		if !xmlColumn(c) {
			continue
		}
		el := etree.NewElement(o.field(c.XMLName()))
		if encodeValue(el, c.Get(rec)) {
			node.AddChild(el)
		}
	}

	if t.SkipLinks == nil || !t.SkipLinks(rec) {
		for _, c := range t.Links {
			el := etree.NewElement(o.field(c.XMLName()))
			if encodeValue(el, c.Get(rec)) {
				node.AddChild(el)
			}
		}
	}

	for _, v := range t.Variants {
		if !v.Active(rec) {
			continue
		}
		sub := node.CreateElement(o.field(v.Name))
		for _, c := range t.Columns {
			if c.Variant != v.Name {
				continue
			}
			el := etree.NewElement(v.Prefix + ":" + c.XMLName())
			if encodeValue(el, c.Get(rec)) {
				sub.AddChild(el)
			}
		}
		break
	}

	encodeSlots(node, o.field("slots"), rec.Instance().Slots())
	return node
}

func (o *tableObject[T]) buildHandlers() {
	t := o.table

	o.handlers[o.field("guid")] = func(T, *etree.Element) error { return nil }

	for _, c := range t.Columns {
		if !xmlColumn(c) || c.Set == nil {
			continue
		}
		o.handlers[o.field(c.XMLName())] = columnHandler(c)
	}
	for _, c := range t.Links {
		if c.Set == nil {
			continue
		}
		o.handlers[o.field(c.XMLName())] = columnHandler(c)
	}

	for _, v := range t.Variants {
		sub := make(map[string]handler[T])
		for _, c := range t.Columns {
			if c.Variant == v.Name && c.Set != nil {
				sub[v.Prefix+":"+c.XMLName()] = columnHandler(c)
			}
		}
		o.handlers[o.field(v.Name)] = func(rec T, el *etree.Element) error {
			v.Select(rec)
			for _, child := range el.ChildElements() {
				h, ok := sub[child.FullTag()]
				if !ok {
					slog.Warn("skipping unknown element", "tag", child.FullTag(), "parent", el.FullTag())
					continue
				}
				if err := h(rec, child); err != nil {
					return err
				}
			}
			return nil
		}
	}

	o.handlers[o.field("slots")] = func(rec T, el *etree.Element) error {
		return decodeSlots(el, rec.Instance().Slots())
	}
}

func columnHandler[T colmap.Record](c colmap.Column[T]) handler[T] {
	return func(rec T, el *etree.Element) error {
		v, err := decodeValue(c.Kind, el)
		if err != nil {
			return fmt.Errorf("field %s: %w", c.Name, err)
		}
		c.Set(rec, v)
		return nil
	}
}

// decode parses one record node. The record is adopted by GUID first, so a
// placeholder created by an earlier forward reference is filled in place.
// A record that fails to parse is destroyed.
func (o *tableObject[T]) decode(b *entity.Book, node *etree.Element) error {
	guidEl := node.SelectElement(o.field("guid"))
	if guidEl == nil {
		return fmt.Errorf("%s without guid", o.table.XMLTag)
	}
	g, err := entity.ParseGUID(strings.TrimSpace(guidEl.Text()))
	if err != nil {
		return fmt.Errorf("%s has invalid guid: %w", o.table.XMLTag, err)
	}
	if g == uuid.Nil {
		return fmt.Errorf("%s has empty guid", o.table.XMLTag)
	}

	rec := o.table.Adopt(b, g)
	rec.BeginEdit()
	var failed error
	for _, child := range node.ChildElements() {
		h, ok := o.handlers[child.FullTag()]
		if !ok {
			slog.Warn("skipping unknown element", "tag", child.FullTag(), "parent", o.table.XMLTag)
			continue
		}
		if err := h(rec, child); err != nil {
			failed = err
			break
		}
	}
	if failed != nil {
		rec.Instance().SetDestroying()
		rec.Instance().MarkDirty()
	}
	rec.CommitEdit()
	if failed != nil {
		return fmt.Errorf("%s %s: %w", o.table.XMLTag, entity.GUIDString(g), failed)
	}
	return nil
}

func (o *tableObject[T]) scrub(b *entity.Book) {
	if o.table.Scrub != nil {
		o.table.Scrub(b)
	}
}
