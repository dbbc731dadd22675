package business

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

type eventLog struct {
	events []entity.EventKind
}

func recordEvents(b *entity.Book) *eventLog {
	l := &eventLog{}
	b.RegisterHandler(func(_ entity.Entity, kind entity.EventKind) {
		l.events = append(l.events, kind)
	})
	return l
}

func (l *eventLog) count(kind entity.EventKind) int {
	n := 0
	for _, k := range l.events {
		if k == kind {
			n++
		}
	}
	return n
}

func newSharesList(b *entity.Book, name string, total int) *DistributionList {
	dl := NewDistribList(b)
	dl.BeginEdit()
	dl.SetName(name)
	dl.SetType(DistribListTypeShares)
	dl.SetSharesLabelSettlement("Shares")
	dl.SetSharesTotal(total)
	dl.CommitEdit()
	return dl
}

func TestNewDistribListDefaults(t *testing.T) {
	b := entity.NewBook()
	events := recordEvents(b)

	dl := NewDistribList(b)
	require.NotNil(t, dl)

	assert.Equal(t, DistribListTypeShares, dl.Type())
	assert.Empty(t, dl.Name())
	assert.Zero(t, dl.Refcount())
	assert.False(t, dl.Invisible())
	assert.Nil(t, dl.Parent())
	assert.Nil(t, dl.Child())
	assert.Equal(t, 1, events.count(entity.EventCreate))
	assert.Same(t, dl, LookupDistribList(b, dl.GUID()))
	assert.Equal(t, []*DistributionList{dl}, DistribLists(b))
}

func TestNewDistribListWithoutBook(t *testing.T) {
	assert.Nil(t, NewDistribList(nil))
}

func TestSetterWithCurrentValueIsNoop(t *testing.T) {
	b := entity.NewBook()
	dl := newSharesList(b, "Roof Fund", 1000)
	dl.inst.MarkClean()
	events := recordEvents(b)

	dl.SetType(DistribListTypeShares)
	dl.SetName("Roof Fund")
	dl.SetSharesTotal(1000)

	assert.False(t, dl.IsDirty())
	assert.Zero(t, events.count(entity.EventModify))
}

func TestNestedEditEmitsOneModify(t *testing.T) {
	b := entity.NewBook()
	dl := NewDistribList(b)
	events := recordEvents(b)

	dl.BeginEdit()
	dl.SetName("Garden")
	dl.SetDescription("Garden upkeep")
	dl.SetType(DistribListTypePercentage)
	dl.SetPercentageTotal(100)
	assert.Zero(t, events.count(entity.EventModify))
	dl.CommitEdit()

	assert.Equal(t, 1, events.count(entity.EventModify))
	assert.True(t, dl.IsDirty())
}

func TestNilListIsSafe(t *testing.T) {
	var dl *DistributionList
	dl.SetName("x")
	dl.BeginEdit()
	dl.CommitEdit()
	dl.Destroy()
	dl.IncRef()
	dl.DecRef()

	assert.Empty(t, dl.Name())
	assert.Nil(t, dl.Parent())
	assert.Nil(t, dl.ReturnChild(true))
	assert.False(t, dl.IsDirty())
}

func TestSetParentMakesChildInvisible(t *testing.T) {
	b := entity.NewBook()
	parent := newSharesList(b, "Roof Fund", 1000)
	child := newSharesList(b, "Roof Fund", 1000)
	child.SetRefcount(4)

	child.SetParent(parent)

	assert.Same(t, parent, child.Parent())
	assert.True(t, child.Invisible())
	assert.Zero(t, child.Refcount())
	assert.Equal(t, []*DistributionList{child}, parent.Children())
	assert.Equal(t, []*DistributionList{parent}, DistribLists(b))
}

func TestDestroyChildUnlinksFromParent(t *testing.T) {
	b := entity.NewBook()
	parent := newSharesList(b, "Roof Fund", 1000)
	child := parent.ReturnChild(true)
	require.NotNil(t, child)
	require.Same(t, child, parent.Child())

	events := recordEvents(b)
	child.Destroy()

	assert.Nil(t, LookupDistribList(b, child.GUID()))
	assert.Empty(t, parent.Children())
	assert.Nil(t, parent.Child())
	assert.Equal(t, 1, events.count(entity.EventDestroy))
}

func TestDestroyParentOrphansChildren(t *testing.T) {
	b := entity.NewBook()
	parent := newSharesList(b, "Roof Fund", 1000)
	child := parent.ReturnChild(true)

	parent.Destroy()

	assert.Nil(t, child.Parent())
	assert.True(t, child.Invisible())
	assert.Empty(t, DistribLists(b))
}

func TestReturnChild(t *testing.T) {
	b := entity.NewBook()
	dl := newSharesList(b, "Roof Fund", 1000)

	assert.Nil(t, dl.ReturnChild(false))

	child := dl.ReturnChild(true)
	require.NotNil(t, child)
	assert.NotEqual(t, dl.GUID(), child.GUID())
	assert.False(t, DistribListsEqual(dl, child), "child is invisible")
	assert.Equal(t, dl.Name(), child.Name())
	assert.Equal(t, 1000, child.SharesTotal())
	assert.Same(t, dl, child.Parent())
	assert.True(t, child.Invisible())

	t.Run("existing child is reused", func(t *testing.T) {
		assert.Same(t, child, dl.ReturnChild(true))
		assert.Same(t, child, dl.ReturnChild(false))
	})

	t.Run("child returns itself", func(t *testing.T) {
		assert.Same(t, child, child.ReturnChild(true))
	})

	t.Run("edit forks a new child", func(t *testing.T) {
		dl.SetSharesTotal(2000)
		assert.Nil(t, dl.Child())

		next := dl.ReturnChild(true)
		require.NotNil(t, next)
		assert.NotSame(t, child, next)
		assert.Equal(t, 2000, next.SharesTotal())
		assert.Equal(t, 1000, child.SharesTotal())
		assert.Len(t, dl.Children(), 2)
	})
}

func TestInvisibleListReturnsItself(t *testing.T) {
	b := entity.NewBook()
	dl := newSharesList(b, "Old", 10)
	dl.MakeInvisible()

	assert.Same(t, dl, dl.ReturnChild(true))
	assert.Nil(t, dl.Child())
}

func TestRefcounting(t *testing.T) {
	b := entity.NewBook()
	dl := newSharesList(b, "Roof Fund", 1000)

	dl.IncRef()
	dl.IncRef()
	assert.EqualValues(t, 2, dl.Refcount())

	dl.DecRef()
	dl.DecRef()
	dl.DecRef()
	assert.Zero(t, dl.Refcount(), "underflow is ignored")

	child := dl.ReturnChild(true)
	child.IncRef()
	assert.Zero(t, child.Refcount())
}

func TestCompareAndEqual(t *testing.T) {
	b := entity.NewBook()
	a := newSharesList(b, "Alpha", 10)
	a2 := newSharesList(b, "Alpha", 10)
	z := newSharesList(b, "Zulu", 10)

	tests := []struct {
		name string
		x, y *DistributionList
		cmp  int
	}{
		{"nil first", nil, a, -1},
		{"nil last", a, nil, 1},
		{"both nil", nil, nil, 0},
		{"by name", a, z, -1},
		{"same name", a, a2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.cmp, sign(CompareDistribLists(tt.x, tt.y)))
		})
	}

	assert.True(t, DistribListsEqual(a, a2))
	assert.True(t, DistribListsEqual(nil, nil))
	assert.False(t, DistribListsEqual(a, nil))
	assert.False(t, DistribListsEqual(a, z))

	a2.SetSharesTotal(11)
	assert.False(t, DistribListsEqual(a, a2))
	assert.True(t, DistribListIsFamily(a, a2))
	assert.False(t, DistribListIsFamily(a, z))
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

func TestVisibleListStaysSorted(t *testing.T) {
	b := entity.NewBook()
	c := newSharesList(b, "Charlie", 1)
	a := newSharesList(b, "Alpha", 1)
	bravo := newSharesList(b, "Bravo", 1)

	assert.Equal(t, []*DistributionList{a, bravo, c}, DistribLists(b))

	a.SetName("Delta")
	assert.Equal(t, []*DistributionList{bravo, c, a}, DistribLists(b))
}

func TestLookupDistribListByName(t *testing.T) {
	b := entity.NewBook()
	dl := newSharesList(b, "Roof Fund", 1000)
	child := dl.ReturnChild(true)

	assert.Same(t, dl, LookupDistribListByName(b, "Roof Fund"))
	assert.NotSame(t, child, LookupDistribListByName(b, "Roof Fund"))
	assert.Nil(t, LookupDistribListByName(b, "Missing"))
	assert.Nil(t, LookupDistribListByName(nil, "Roof Fund"))
}

func TestParseDistribListType(t *testing.T) {
	tests := []struct {
		in      string
		want    DistribListType
		wantErr bool
	}{
		{"shares", DistribListTypeShares, false},
		{"PERCENTAGE", DistribListTypePercentage, false},
		{"", 0, false},
		{"thirds", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDistribListType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetParentReleasesOldSuccessor(t *testing.T) {
	b := entity.NewBook()
	a := newSharesList(b, "Roof Fund", 1000)
	c := a.ReturnChild(true)
	require.Same(t, c, a.Child())
	other := newSharesList(b, "Garden", 100)

	c.SetParent(other)

	assert.Nil(t, a.Child())
	assert.Empty(t, a.Children())
	assert.Equal(t, []*DistributionList{c}, other.Children())

	other.SetChild(c)
	c.SetParent(other)
	assert.Same(t, c, other.Child(), "relinking to the same parent keeps the successor")
}
