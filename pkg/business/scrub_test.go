package business

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

func TestScrubFoldsGrandchildren(t *testing.T) {
	b := entity.NewBook()
	root := newSharesList(b, "Roof Fund", 1000)
	child := root.ReturnChild(true)
	grandchild := newSharesList(b, "Roof Fund", 1000)
	grandchild.SetParent(child)
	child.SetChild(grandchild)

	co := NewCoOwner(b)
	co.distribList = grandchild.GUID()

	res := ScrubDistribLists(b)

	assert.Equal(t, 1, res.Repointed)
	assert.Equal(t, 1, res.Grandchild)
	assert.Nil(t, LookupDistribList(b, grandchild.GUID()))
	assert.Same(t, child, co.DistribList())
	assert.Nil(t, child.Child())
	assert.Empty(t, child.Children())
}

func TestScrubFillsTypelessChild(t *testing.T) {
	b := entity.NewBook()
	root := newSharesList(b, "Roof Fund", 1000)
	stub := newDistribListStub(b, entity.NewGUID())
	stub.SetParent(root)

	res := ScrubDistribLists(b)

	assert.Equal(t, 1, res.Repaired)
	assert.Equal(t, DistribListTypeShares, stub.Type())
	assert.Equal(t, "Roof Fund", stub.Name())
	assert.Equal(t, 1000, stub.SharesTotal())
}

func TestScrubDropsUnfilledPlaceholder(t *testing.T) {
	b := entity.NewBook()
	g := entity.NewGUID()
	stub := adoptDistribList(b, g)
	require.NotNil(t, stub)
	co := NewCoOwner(b)
	co.distribList = g

	res := ScrubDistribLists(b)

	assert.Equal(t, 1, res.Placeholder)
	assert.Nil(t, LookupDistribList(b, g))
	assert.Nil(t, co.DistribList())
	assert.Empty(t, DistribLists(b))
}

func TestScrubRecountsReferences(t *testing.T) {
	b := entity.NewBook()
	dl := newSharesList(b, "Roof Fund", 1000)
	dl.SetRefcount(7)
	for i := 0; i < 3; i++ {
		NewCoOwner(b).SetDistribList(dl)
	}
	dl.SetRefcount(7)

	res := ScrubDistribLists(b)

	assert.Equal(t, 1, res.Recounted)
	assert.EqualValues(t, 3, dl.Refcount())
	assert.True(t, res.Changed())

	assert.False(t, ScrubDistribLists(b).Changed())
}

func TestScrubEmptyBook(t *testing.T) {
	assert.False(t, ScrubDistribLists(entity.NewBook()).Changed())
	assert.False(t, ScrubDistribLists(nil).Changed())
}

func TestScrubFoldsLongChainToSeniorList(t *testing.T) {
	b := entity.NewBook()
	root := newSharesList(b, "Roof Fund", 1000)
	l1 := newSharesList(b, "Roof Fund", 1000)
	l1.SetParent(root)
	l2 := newSharesList(b, "Roof Fund", 1000)
	l2.SetParent(l1)
	l3 := newSharesList(b, "Roof Fund", 1000)
	l3.SetParent(l2)

	co := NewCoOwner(b)
	co.distribList = l3.GUID()

	res := ScrubDistribLists(b)

	assert.Equal(t, 2, res.Grandchild)
	assert.Equal(t, 1, res.Repointed)
	assert.Nil(t, LookupDistribList(b, l2.GUID()))
	assert.Nil(t, LookupDistribList(b, l3.GUID()))
	require.NotNil(t, co.DistribList())
	assert.Same(t, l1, co.DistribList())
	assert.Same(t, root, l1.Parent())
	assert.Empty(t, l1.Children())
	assert.Nil(t, l1.Child())
}

func TestScrubClearsChildLinkToDroppedPlaceholder(t *testing.T) {
	b := entity.NewBook()
	p := newSharesList(b, "Roof Fund", 1000)
	g := entity.NewGUID()
	p.SetChild(adoptDistribList(b, g))
	require.Equal(t, g, p.ChildGUID())

	res := ScrubDistribLists(b)

	assert.Equal(t, 1, res.Placeholder)
	assert.Nil(t, LookupDistribList(b, g))
	assert.Equal(t, uuid.Nil, p.ChildGUID())
	assert.False(t, ScrubDistribLists(b).Changed())
}
