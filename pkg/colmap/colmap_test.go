package colmap

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

type node struct {
	inst   entity.Instance
	name   string
	parent uuid.UUID
}

func (n *node) Instance() *entity.Instance { return &n.inst }
func (n *node) BeginEdit()                 { n.inst.BeginEdit() }
func (n *node) CommitEdit()                { n.inst.CommitEdit() }

func newNode(b *entity.Book, name string) *node {
	n := &node{name: name}
	n.inst.Init(b, "Node", n)
	return n
}

func nodeTable() *Table[*node] {
	return &Table[*node]{
		TypeName: "Node",
		SQLName:  "nodes",
		Columns: []Column[*node]{
			GUID("guid", PrimaryKey,
				func(n *node) uuid.UUID { return n.inst.GUID() }, nil),
			String("name", 64, NotNull,
				func(n *node) string { return n.name },
				func(n *node, s string) { n.name = s }),
		},
	}
}

func TestColumnFields(t *testing.T) {
	str := String[*node]("name", 64, NotNull, func(*node) string { return "" }, nil)
	num := Numeric[*node]("rate", 0, func(*node) decimal.Decimal { return decimal.Zero }, nil)
	own := Owner[*node]("owner", 0, func(*node) OwnerRef { return OwnerRef{} }, nil)
	addr := Address[*node]("addr", 0, func(*node) AddressValue { return AddressValue{} }, nil)

	assert.Equal(t, []string{"name"}, str.Fields())
	assert.Equal(t, []string{"rate_num", "rate_denom"}, num.Fields())
	assert.Equal(t, []string{"owner_type", "owner_guid"}, own.Fields())
	assert.Equal(t, []string{
		"addr_name", "addr_addr1", "addr_addr2", "addr_addr3",
		"addr_addr4", "addr_phone", "addr_fax", "addr_email",
	}, addr.Fields())

	assert.False(t, str.Nullable())
	assert.True(t, num.Nullable())
	assert.Nil(t, str.Set)
	assert.Equal(t, "label-settlement", String[*node]("label_settlement", 0, 0, func(*node) string { return "" }, nil).XMLName())
	assert.Equal(t, "shares", str.In("shares").Variant)
	assert.Empty(t, str.Variant)
}

func TestValueText(t *testing.T) {
	g := entity.NewGUID()
	tests := []struct {
		name string
		v    Value
		text string
	}{
		{"string", Value{Kind: KindString, Str: "Roof"}, "Roof"},
		{"int", Value{Kind: KindInt, Int: 100}, "100"},
		{"int64", Value{Kind: KindInt64, Int: -7}, "-7"},
		{"true", Value{Kind: KindBool, Bool: true}, "1"},
		{"false", Value{Kind: KindBool}, "0"},
		{"guid", Value{Kind: KindGUID, GUID: g}, entity.GUIDString(g)},
		{"nil guid", Value{Kind: KindGUID}, ""},
		{"numeric", Value{Kind: KindNumeric, Num: decimal.RequireFromString("0.25")}, "0.25"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.text, tt.v.Text())
			got, err := ParseText(tt.v.Kind, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.v.Text(), got.Text())
		})
	}
}

func TestParseTextErrors(t *testing.T) {
	tests := []struct {
		kind Kind
		text string
	}{
		{KindInt, "ten"},
		{KindBool, "yes"},
		{KindGUID, "zz"},
		{KindNumeric, "1/0x"},
		{KindOwner, ""},
		{KindAddress, ""},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			_, err := ParseText(tt.kind, tt.text)
			assert.Error(t, err)
		})
	}

	v, err := ParseText(KindNumeric, "")
	require.NoError(t, err)
	assert.True(t, v.Num.IsZero())
	assert.False(t, KindOwner.IsScalar())
	assert.True(t, KindNumeric.IsScalar())
}

func TestTableLookupAndAll(t *testing.T) {
	b := entity.NewBook()
	tbl := nodeTable()
	a := newNode(b, "a")
	gone := newNode(b, "gone")
	gone.inst.SetDestroying()

	got, ok := tbl.Lookup(b, a.inst.GUID())
	require.True(t, ok)
	assert.Same(t, a, got)
	_, ok = tbl.Lookup(b, entity.NewGUID())
	assert.False(t, ok)

	assert.Equal(t, []*node{a}, tbl.All(b))
	assert.Equal(t, "guid", tbl.Key().Name)
	c, ok := tbl.Column("name")
	require.True(t, ok)
	assert.Equal(t, 64, c.Size)
	_, ok = tbl.Column("missing")
	assert.False(t, ok)
}

func TestPendingParentsResolve(t *testing.T) {
	b := entity.NewBook()
	link := &ParentLink[*node]{
		Columns: ParentColumns("parent"),
		Has:     func(n *node) bool { return n.parent != uuid.Nil },
		Resolve: func(child *node, parent uuid.UUID) bool {
			p, ok := b.Lookup("Node", parent).(*node)
			if !ok {
				return false
			}
			// a parent that is still waiting for its own parent links later
			if p.name != "root" && p.parent == uuid.Nil {
				return false
			}
			child.parent = p.inst.GUID()
			return true
		},
	}

	root := newNode(b, "root")
	mid := newNode(b, "mid")
	leaf := newNode(b, "leaf")

	pending := NewPendingParents(link)
	pending.Add(leaf, mid.inst.GUID())
	pending.Add(mid, root.inst.GUID())
	pending.Add(root, uuid.Nil)
	missing := entity.NewGUID()
	orphan := newNode(b, "orphan")
	pending.Add(orphan, missing)
	assert.Equal(t, 3, pending.Len())

	passes, dangling := pending.Resolve()
	assert.Equal(t, 3, passes, "leaf links on the second pass, the third pass finds nothing")
	assert.Equal(t, []uuid.UUID{missing}, dangling)
	assert.Equal(t, mid.inst.GUID(), leaf.parent)
	assert.Equal(t, root.inst.GUID(), mid.parent)
	assert.Equal(t, uuid.Nil, orphan.parent)
	assert.Equal(t, 1, pending.Len())
}

func TestReadParent(t *testing.T) {
	link := &ParentLink[*node]{Columns: ParentColumns("parent")}
	g := entity.NewGUID()

	got := link.ReadParent(func(c Column[*ParentRef]) (Value, bool) {
		assert.Equal(t, "parent", c.Name)
		return Value{Kind: KindGUID, GUID: g}, true
	})
	assert.Equal(t, g, got)

	got = link.ReadParent(func(Column[*ParentRef]) (Value, bool) { return Value{}, false })
	assert.Equal(t, uuid.Nil, got)
}
