package entity

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type thing struct {
	inst Instance
	name string
}

func (t *thing) Instance() *Instance { return &t.inst }

func newThing(b *Book) *thing {
	t := &thing{}
	t.inst.Init(b, "Thing", t)
	return t
}

func (t *thing) setName(name string) {
	t.inst.BeginEdit()
	t.name = name
	t.inst.MarkDirty()
	t.commit(nil)
}

func (t *thing) commit(onError func(error)) bool {
	if !t.inst.CommitEdit() {
		return false
	}
	return CommitEditPart2(t, onError, nil, func() { t.inst.Dispose(t) })
}

type fakeBackend struct {
	committed []Entity
	deleted   []Entity
	err       error
}

func (f *fakeBackend) Commit(e Entity) error {
	if f.err != nil {
		return f.err
	}
	f.committed = append(f.committed, e)
	return nil
}

func (f *fakeBackend) Delete(e Entity) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, e)
	return nil
}

func TestGUIDString(t *testing.T) {
	g := uuid.MustParse("0123456789abcdef0123456789abcdef")
	assert.Equal(t, "0123456789abcdef0123456789abcdef", GUIDString(g))
	assert.Equal(t, "", GUIDString(uuid.Nil))

	tests := []struct {
		name    string
		in      string
		want    uuid.UUID
		wantErr bool
	}{
		{"hex", "0123456789abcdef0123456789abcdef", g, false},
		{"dashed", "01234567-89ab-cdef-0123-456789abcdef", g, false},
		{"empty", "", uuid.Nil, false},
		{"garbage", "not-a-guid", uuid.Nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseGUID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNestedEditCommitsOnce(t *testing.T) {
	b := NewBook()
	be := &fakeBackend{}
	b.SetBackend(be)
	th := newThing(b)

	var events []EventKind
	b.RegisterHandler(func(e Entity, kind EventKind) { events = append(events, kind) })

	th.inst.BeginEdit()
	th.setName("inner")
	assert.Empty(t, be.committed, "inner commit does not reach the backend")
	assert.True(t, th.commit(nil))

	assert.Len(t, be.committed, 1)
	assert.Equal(t, []EventKind{EventModify}, events)
	assert.False(t, th.inst.IsDirty())
	assert.False(t, th.inst.IsInfant())
	assert.True(t, b.IsDirty(), "collection stays dirty until the book is saved")

	b.MarkSaved()
	assert.False(t, b.IsDirty())
}

func TestCommitWithoutBackendStaysDirty(t *testing.T) {
	b := NewBook()
	th := newThing(b)
	th.setName("x")

	assert.True(t, th.inst.IsDirty())
	assert.Equal(t, []Entity{th}, b.DirtyEntities())
}

func TestCommitWithoutBeginIsRejected(t *testing.T) {
	b := NewBook()
	th := newThing(b)
	assert.False(t, th.commit(nil))
	assert.Equal(t, 0, th.inst.EditLevel())
}

func TestBackendErrorCancelsDestroy(t *testing.T) {
	b := NewBook()
	th := newThing(b)
	th.setName("x")

	be := &fakeBackend{err: errors.New("disk full")}
	b.SetBackend(be)

	var got error
	th.inst.BeginEdit()
	th.inst.SetDestroying()
	assert.False(t, th.commit(func(err error) { got = err }))

	assert.EqualError(t, got, "disk full")
	assert.False(t, th.inst.IsDestroying())
	assert.Same(t, th, b.Lookup("Thing", th.inst.GUID()))
}

func TestDestroyDeletesFromBackend(t *testing.T) {
	b := NewBook()
	th := newThing(b)
	th.setName("x")

	be := &fakeBackend{}
	b.SetBackend(be)
	th.inst.BeginEdit()
	th.inst.SetDestroying()
	assert.True(t, th.commit(nil))

	assert.Equal(t, []Entity{th}, be.deleted)
	assert.Nil(t, b.Lookup("Thing", th.inst.GUID()))
}

func TestDestroyInfantSkipsBackend(t *testing.T) {
	b := NewBook()
	be := &fakeBackend{}
	b.SetBackend(be)
	th := newThing(b)

	th.inst.BeginEdit()
	th.inst.SetDestroying()
	assert.True(t, th.commit(nil))
	assert.Empty(t, be.deleted)
	assert.Equal(t, 0, b.Collection("Thing").Len())
}

func TestSetGUIDRekeys(t *testing.T) {
	b := NewBook()
	th := newThing(b)
	old := th.inst.GUID()
	g := NewGUID()

	th.inst.SetGUID(th, g)
	assert.Nil(t, b.Lookup("Thing", old))
	assert.Same(t, th, b.Lookup("Thing", g))

	th.inst.SetGUID(th, uuid.Nil)
	assert.Equal(t, g, th.inst.GUID())
}

func TestCollectionForEachToleratesRemoval(t *testing.T) {
	b := NewBook()
	for i := 0; i < 3; i++ {
		newThing(b)
	}
	col := b.Collection("Thing")
	visited := 0
	col.ForEach(func(e Entity) {
		visited++
		for _, other := range col.Sorted() {
			other.Instance().Dispose(other)
		}
	})
	assert.Equal(t, 1, visited)
	assert.Equal(t, 0, col.Len())
}

func TestSuspendEvents(t *testing.T) {
	b := NewBook()
	th := newThing(b)
	n := 0
	id := b.RegisterHandler(func(Entity, EventKind) { n++ })

	b.SuspendEvents()
	b.SuspendEvents()
	th.setName("a")
	b.ResumeEvents()
	th.setName("b")
	assert.Equal(t, 0, n)

	b.ResumeEvents()
	th.setName("c")
	assert.Equal(t, 1, n)

	b.UnregisterHandler(id)
	th.setName("d")
	assert.Equal(t, 1, n)
}

func TestStringCache(t *testing.T) {
	c := NewStringCache()
	c.Intern("roof")
	c.Intern("roof")
	assert.Equal(t, "", c.Intern(""))
	assert.Equal(t, 2, c.Refs("roof"))
	assert.Equal(t, 1, c.Len())

	assert.Equal(t, "garden", c.Replace("roof", "garden"))
	assert.Equal(t, 1, c.Refs("roof"))
	c.Release("roof")
	c.Release("missing")
	assert.Equal(t, 0, c.Refs("roof"))
	assert.Equal(t, 1, c.Len())
}

func TestSlots(t *testing.T) {
	g := NewGUID()
	tests := []struct {
		name string
		slot Slot
		text string
	}{
		{"integer", Int64Slot(-42), "-42"},
		{"double", DoubleSlot(1.5), "1.5"},
		{"numeric", NumericSlot(decimal.RequireFromString("12.75")), "12.75"},
		{"string", StringSlot("roof"), "roof"},
		{"guid", GUIDSlot(g), GUIDString(g)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.text, tt.slot.Text())
			kind, err := ParseSlotKind(tt.slot.Kind.String())
			require.NoError(t, err)
			got, err := ParseSlot(kind, tt.text)
			require.NoError(t, err)
			assert.True(t, tt.slot.Equal(got))
		})
	}

	_, err := ParseSlotKind("frame")
	assert.Error(t, err)
	_, err = ParseSlot(SlotInt64, "x")
	assert.Error(t, err)

	var f Frame
	_, ok := f.Get("a")
	assert.False(t, ok)
	f.Set("b", Int64Slot(1))
	f.Set("a", StringSlot("x"))
	assert.Equal(t, []string{"a", "b"}, f.Keys())
	assert.True(t, f.Delete("a"))
	assert.False(t, f.Delete("a"))
	f.Clear()
	assert.Equal(t, 0, f.Len())
}

func TestExtension(t *testing.T) {
	type counter struct{ n int }
	b := NewBook()
	Extension(b, func() *counter { return &counter{} }).n++
	assert.Equal(t, 1, Extension(b, func() *counter { return &counter{n: 100} }).n)
}
