package entity

import (
	"log/slog"

	"github.com/google/uuid"
)

// Entity is implemented by every persistable business object.
type Entity interface {
	Instance() *Instance
}

// Instance is the identity and bookkeeping state embedded in every entity:
// GUID, owning book, edit nesting depth, dirty tracking and the extension frame.
type Instance struct {
	guid       uuid.UUID
	typeName   string
	book       *Book
	editLevel  int
	dirty      bool
	modified   bool
	infant     bool
	destroying bool
	slots      Frame
}

// Init assigns a fresh GUID and registers self in the book's collection for typeName.
func (i *Instance) Init(b *Book, typeName string, self Entity) {
	i.book = b
	i.typeName = typeName
	i.guid = NewGUID()
	i.infant = true
	b.Collection(typeName).insert(self)
}

// GUID returns the entity's identifier.
func (i *Instance) GUID() uuid.UUID {
	return i.guid
}

// SetGUID re-keys the entity. Loaders use it to give a new entity its persisted identity.
func (i *Instance) SetGUID(self Entity, g uuid.UUID) {
	if g == uuid.Nil || g == i.guid {
		return
	}
	col := i.book.Collection(i.typeName)
	col.remove(self)
	i.guid = g
	col.insert(self)
}

// Book returns the owning book.
func (i *Instance) Book() *Book {
	return i.book
}

// TypeName returns the entity type tag.
func (i *Instance) TypeName() string {
	return i.typeName
}

// Slots returns the extension frame.
func (i *Instance) Slots() *Frame {
	return &i.slots
}

// BeginEdit opens an edit window. It returns true for the outermost call only.
func (i *Instance) BeginEdit() bool {
	i.editLevel++
	return i.editLevel == 1
}

// CommitEdit closes an edit window. It returns true when the outermost window closed
// and the caller should finish the commit with CommitEditPart2.
func (i *Instance) CommitEdit() bool {
	if i.editLevel == 0 {
		slog.Error("commit without matching begin edit", "type", i.typeName, "guid", GUIDString(i.guid))
		return false
	}
	i.editLevel--
	return i.editLevel == 0
}

// EditLevel returns the current edit nesting depth.
func (i *Instance) EditLevel() int {
	return i.editLevel
}

// IsDirty reports whether the entity has changes not yet persisted.
func (i *Instance) IsDirty() bool {
	return i.dirty
}

// MarkDirty flags the entity as changed. A MODIFY event follows when the
// outermost edit window commits.
func (i *Instance) MarkDirty() {
	i.dirty = true
	i.modified = true
	if i.book != nil {
		i.book.Collection(i.typeName).dirty = true
	}
}

// MarkClean clears the dirty flag without emitting anything. Loaders call it
// because freshly loaded data reflects what is already stored.
func (i *Instance) MarkClean() {
	i.dirty = false
	i.modified = false
}

// IsInfant reports whether the entity was never committed.
func (i *Instance) IsInfant() bool {
	return i.infant
}

// IsDestroying reports whether the entity is scheduled for destruction at commit.
func (i *Instance) IsDestroying() bool {
	return i.destroying
}

// SetDestroying schedules destruction for the next outermost commit.
func (i *Instance) SetDestroying() {
	i.destroying = true
}

// Dispose removes self from its collection. Entity free functions call it last.
func (i *Instance) Dispose(self Entity) {
	if i.book == nil {
		return
	}
	i.book.Collection(i.typeName).remove(self)
	i.slots.Clear()
}

// CommitEditPart2 finishes an outermost commit. With a backend attached the
// entity is pushed to it, otherwise it stays dirty until the next save.
// Destroying entities are handed to onFree, the rest emit MODIFY when a
// field changed and then run onDone. A backend error goes to onError and
// cancels a pending destroy.
func CommitEditPart2(e Entity, onError func(error), onDone func(), onFree func()) bool {
	inst := e.Instance()
	b := inst.book

	if be := b.backend; be != nil {
		var err error
		switch {
		case inst.destroying:
			if !inst.infant {
				err = be.Delete(e)
			}
		case inst.dirty:
			err = be.Commit(e)
		}
		if err != nil {
			inst.destroying = false
			if onError != nil {
				onError(err)
			}
			return false
		}
		if !inst.destroying {
			inst.dirty = false
		}
	}
	inst.infant = false

	if inst.destroying {
		if onFree != nil {
			onFree()
		}
		return true
	}

	if inst.modified {
		inst.modified = false
		b.Emit(e, EventModify)
	}
	if onDone != nil {
		onDone()
	}
	return true
}
