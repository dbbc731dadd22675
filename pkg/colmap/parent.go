package colmap

import (
	"github.com/google/uuid"
)

// ParentRef receives the parent GUID read through a ParentLink's columns.
type ParentRef struct {
	GUID uuid.UUID
}

// ParentLink is the parent-guid-only mapping of a self-referencing table.
// Loaders read Columns into a ParentRef for records that Has reports as
// unparented and hand unresolved references to a PendingParents list.
type ParentLink[T any] struct {
	Columns []Column[*ParentRef]
	Has     func(T) bool
	// Resolve links child to the parent with the given GUID in both
	// directions. It returns false while the parent is not in the book.
	Resolve func(child T, parent uuid.UUID) bool
}

// ReadParent applies the parent-only columns. get returns the stored value of
// a column and false when the column is absent.
func (l *ParentLink[T]) ReadParent(get func(Column[*ParentRef]) (Value, bool)) uuid.UUID {
	ref := &ParentRef{}
	for _, c := range l.Columns {
		v, ok := get(c)
		if !ok || c.Set == nil {
			continue
		}
		c.Set(ref, v)
	}
	return ref.GUID
}

// ParentColumns returns the standard parent-only table for a column named name.
func ParentColumns(name string) []Column[*ParentRef] {
	return []Column[*ParentRef]{
		GUID(name, 0,
			func(r *ParentRef) uuid.UUID { return r.GUID },
			func(r *ParentRef, g uuid.UUID) { r.GUID = g }),
	}
}

type pendingParent[T any] struct {
	child  T
	parent uuid.UUID
}

// PendingParents collects (child, parent GUID) pairs during a bulk load.
type PendingParents[T any] struct {
	link  *ParentLink[T]
	items []pendingParent[T]
}

// NewPendingParents creates an empty list bound to link.
func NewPendingParents[T any](link *ParentLink[T]) *PendingParents[T] {
	return &PendingParents[T]{link: link}
}

// Add queues a child whose parent could not be linked yet.
func (p *PendingParents[T]) Add(child T, parent uuid.UUID) {
	if parent == uuid.Nil {
		return
	}
	p.items = append(p.items, pendingParent[T]{child: child, parent: parent})
}

// Len returns the number of unresolved pairs.
func (p *PendingParents[T]) Len() int {
	return len(p.items)
}

// Resolve scans the list until a full pass links nothing. It returns the number
// of passes made and the parent GUIDs that stayed dangling.
func (p *PendingParents[T]) Resolve() (passes int, dangling []uuid.UUID) {
	for len(p.items) > 0 {
		passes++
		progress := false
		remaining := p.items[:0]
		for _, item := range p.items {
			if p.link.Resolve(item.child, item.parent) {
				progress = true
				continue
			}
			remaining = append(remaining, item)
		}
		p.items = remaining
		if !progress {
			break
		}
	}
	for _, item := range p.items {
		dangling = append(dangling, item.parent)
	}
	return passes, dangling
}
