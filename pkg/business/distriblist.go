package business

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

// DistribListType selects how a distribution list splits amounts.
type DistribListType int

const (
	DistribListTypeShares DistribListType = iota + 1
	DistribListTypePercentage
)

// String returns the persisted name of the type.
func (t DistribListType) String() string {
	switch t {
	case DistribListTypeShares:
		return "shares"
	case DistribListTypePercentage:
		return "percentage"
	}
	return ""
}

// ParseDistribListType maps a persisted name back to a type. An empty name
// yields the zero type, which only placeholders carry.
func ParseDistribListType(s string) (DistribListType, error) {
	switch strings.ToLower(s) {
	case "shares":
		return DistribListTypeShares, nil
	case "percentage":
		return DistribListTypePercentage, nil
	case "":
		return 0, nil
	}
	return 0, fmt.Errorf("unknown distribution list type %q", s)
}

// DistributionList describes how settlements are split among the owners of
// one kind. Lists referenced by posted data are versioned copy-on-write:
// ReturnChild hands out an invisible, frozen child copy, and editing the
// visible list drops that child so the next request forks a fresh one.
type DistributionList struct {
	inst entity.Instance

	name            string
	desc            string
	typ             DistribListType
	percentageLabel string
	percentageTotal int
	sharesLabel     string
	sharesTotal     int
	ownerTypeName   string

	parent    uuid.UUID
	child     uuid.UUID
	children  []uuid.UUID
	refcount  int64
	invisible bool
}

type distribListBook struct {
	visible []*DistributionList
}

func distribListRegistry(b *entity.Book) *distribListBook {
	return entity.Extension(b, func() *distribListBook { return &distribListBook{} })
}

func (r *distribListBook) add(dl *DistributionList) {
	i := len(r.visible)
	for j, other := range r.visible {
		if CompareDistribLists(other, dl) > 0 {
			i = j
			break
		}
	}
	r.visible = slices.Insert(r.visible, i, dl)
}

func (r *distribListBook) remove(dl *DistributionList) {
	if i := slices.Index(r.visible, dl); i >= 0 {
		r.visible = slices.Delete(r.visible, i, i+1)
	}
}

func (r *distribListBook) resort() {
	slices.SortStableFunc(r.visible, CompareDistribLists)
}

// NewDistribList creates a shares list with empty labels and registers it in
// the book's visible list. It returns nil without a book.
func NewDistribList(b *entity.Book) *DistributionList {
	if b == nil {
		return nil
	}
	dl := &DistributionList{typ: DistribListTypeShares}
	dl.inst.Init(b, TypeDistribList, dl)
	distribListRegistry(b).add(dl)
	b.Emit(dl, entity.EventCreate)
	return dl
}

// newDistribListStub creates a typeless placeholder with a known GUID. Loaders
// use it for references met before the referenced list itself.
func newDistribListStub(b *entity.Book, g uuid.UUID) *DistributionList {
	dl := &DistributionList{}
	dl.inst.Init(b, TypeDistribList, dl)
	dl.inst.SetGUID(dl, g)
	distribListRegistry(b).add(dl)
	b.Emit(dl, entity.EventCreate)
	return dl
}

func adoptDistribList(b *entity.Book, g uuid.UUID) *DistributionList {
	if g == uuid.Nil {
		return nil
	}
	if dl := LookupDistribList(b, g); dl != nil {
		return dl
	}
	return newDistribListStub(b, g)
}

// LookupDistribList returns the list with the given GUID, or nil.
func LookupDistribList(b *entity.Book, g uuid.UUID) *DistributionList {
	dl, _ := b.Lookup(TypeDistribList, g).(*DistributionList)
	return dl
}

// LookupDistribListByName returns the first visible list called name, or nil.
func LookupDistribListByName(b *entity.Book, name string) *DistributionList {
	if b == nil {
		return nil
	}
	for _, dl := range distribListRegistry(b).visible {
		if dl.name == name {
			return dl
		}
	}
	return nil
}

// DistribLists returns the visible lists of the book sorted by CompareDistribLists.
func DistribLists(b *entity.Book) []*DistributionList {
	if b == nil {
		return nil
	}
	return slices.Clone(distribListRegistry(b).visible)
}

// Instance implements entity.Entity.
func (dl *DistributionList) Instance() *entity.Instance {
	return &dl.inst
}

// GUID returns the list identifier.
func (dl *DistributionList) GUID() uuid.UUID {
	if dl == nil {
		return uuid.Nil
	}
	return dl.inst.GUID()
}

// Book returns the owning book.
func (dl *DistributionList) Book() *entity.Book {
	if dl == nil {
		return nil
	}
	return dl.inst.Book()
}

// BeginEdit opens an edit bracket.
func (dl *DistributionList) BeginEdit() {
	if dl == nil {
		return
	}
	dl.inst.BeginEdit()
}

// CommitEdit closes an edit bracket. The outermost commit persists the list
// or, when Destroy was requested, frees it.
func (dl *DistributionList) CommitEdit() {
	if dl == nil || !dl.inst.CommitEdit() {
		return
	}
	entity.CommitEditPart2(dl, commitError(TypeDistribList, dl), nil, dl.free)
}

// Destroy removes the list at the outermost commit.
func (dl *DistributionList) Destroy() {
	if dl == nil {
		return
	}
	dl.BeginEdit()
	dl.inst.SetDestroying()
	dl.inst.MarkDirty()
	dl.CommitEdit()
}

func (dl *DistributionList) free() {
	b := dl.inst.Book()
	b.Emit(dl, entity.EventDestroy)

	releaseStrings(b, dl.name, dl.desc, dl.percentageLabel, dl.sharesLabel, dl.ownerTypeName)
	distribListRegistry(b).remove(dl)

	if parent := dl.Parent(); parent != nil {
		parent.removeChild(dl)
		if parent.child == dl.GUID() {
			parent.SetChild(nil)
		}
	}
	for _, g := range slices.Clone(dl.children) {
		if child := LookupDistribList(b, g); child != nil {
			child.SetParent(nil)
		}
	}
	dl.children = nil
	dl.inst.Dispose(dl)
}

// dropChild forgets the frozen successor once visible data changes.
func (dl *DistributionList) dropChild() {
	dl.child = uuid.Nil
}

func (dl *DistributionList) maybeResort() {
	if dl.parent != uuid.Nil || dl.invisible {
		return
	}
	distribListRegistry(dl.inst.Book()).resort()
}

// Name returns the list name.
func (dl *DistributionList) Name() string {
	if dl == nil {
		return ""
	}
	return dl.name
}

// SetName renames the list and keeps the visible list sorted.
func (dl *DistributionList) SetName(name string) {
	if dl == nil {
		return
	}
	setString(dl, &dl.name, name, dl.dropChild, dl.maybeResort)
}

// Description returns the list description.
func (dl *DistributionList) Description() string {
	if dl == nil {
		return ""
	}
	return dl.desc
}

// SetDescription changes the description and keeps the visible list sorted.
func (dl *DistributionList) SetDescription(desc string) {
	if dl == nil {
		return
	}
	setString(dl, &dl.desc, desc, dl.dropChild, dl.maybeResort)
}

// Type returns the split method.
func (dl *DistributionList) Type() DistribListType {
	if dl == nil {
		return 0
	}
	return dl.typ
}

// SetType changes the split method.
func (dl *DistributionList) SetType(t DistribListType) {
	if dl == nil {
		return
	}
	setValue(dl, &dl.typ, t, dl.dropChild)
}

// PercentageLabelSettlement returns the settlement label of a percentage list.
func (dl *DistributionList) PercentageLabelSettlement() string {
	if dl == nil {
		return ""
	}
	return dl.percentageLabel
}

// SetPercentageLabelSettlement sets the settlement label of a percentage list.
func (dl *DistributionList) SetPercentageLabelSettlement(label string) {
	if dl == nil {
		return
	}
	setString(dl, &dl.percentageLabel, label, dl.dropChild)
}

// PercentageTotal returns the total of a percentage list.
func (dl *DistributionList) PercentageTotal() int {
	if dl == nil {
		return 0
	}
	return dl.percentageTotal
}

// SetPercentageTotal sets the total of a percentage list.
func (dl *DistributionList) SetPercentageTotal(total int) {
	if dl == nil {
		return
	}
	setValue(dl, &dl.percentageTotal, total, dl.dropChild)
}

// SharesLabelSettlement returns the settlement label of a shares list.
func (dl *DistributionList) SharesLabelSettlement() string {
	if dl == nil {
		return ""
	}
	return dl.sharesLabel
}

// SetSharesLabelSettlement sets the settlement label of a shares list.
func (dl *DistributionList) SetSharesLabelSettlement(label string) {
	if dl == nil {
		return
	}
	setString(dl, &dl.sharesLabel, label, dl.dropChild)
}

// SharesTotal returns the number of shares a shares list distributes.
func (dl *DistributionList) SharesTotal() int {
	if dl == nil {
		return 0
	}
	return dl.sharesTotal
}

// SetSharesTotal sets the number of shares a shares list distributes.
func (dl *DistributionList) SetSharesTotal(total int) {
	if dl == nil {
		return
	}
	setValue(dl, &dl.sharesTotal, total, dl.dropChild)
}

// OwnerTypeName returns the entity type tag of the owners the list applies to.
func (dl *DistributionList) OwnerTypeName() string {
	if dl == nil {
		return ""
	}
	return dl.ownerTypeName
}

// SetOwnerTypeName sets the entity type tag of the owners the list applies to.
func (dl *DistributionList) SetOwnerTypeName(name string) {
	if dl == nil {
		return
	}
	setString(dl, &dl.ownerTypeName, name, dl.dropChild)
}

// Parent returns the list this one was forked from, or nil.
func (dl *DistributionList) Parent() *DistributionList {
	if dl == nil || dl.parent == uuid.Nil {
		return nil
	}
	return LookupDistribList(dl.inst.Book(), dl.parent)
}

// ParentGUID returns the parent identifier, uuid.Nil when there is none.
func (dl *DistributionList) ParentGUID() uuid.UUID {
	if dl == nil {
		return uuid.Nil
	}
	return dl.parent
}

// SetParent moves the list under parent. The list leaves its previous
// parent's children and stops being its successor, its refcount resets and
// a parented list becomes invisible.
func (dl *DistributionList) SetParent(parent *DistributionList) {
	if dl == nil {
		return
	}
	dl.BeginEdit()
	if old := dl.Parent(); old != nil && old != parent {
		old.removeChild(dl)
		if old.child == dl.GUID() && !old.inst.IsDestroying() {
			old.SetChild(nil)
		}
	}
	dl.parent = uuid.Nil
	if parent != nil {
		dl.parent = parent.GUID()
		parent.addChild(dl)
	}
	dl.refcount = 0
	if parent != nil {
		dl.MakeInvisible()
	}
	dl.inst.MarkDirty()
	dl.CommitEdit()
}

// Child returns the current mutable successor, or nil.
func (dl *DistributionList) Child() *DistributionList {
	if dl == nil || dl.child == uuid.Nil {
		return nil
	}
	return LookupDistribList(dl.inst.Book(), dl.child)
}

// ChildGUID returns the successor identifier, uuid.Nil when there is none.
func (dl *DistributionList) ChildGUID() uuid.UUID {
	if dl == nil {
		return uuid.Nil
	}
	return dl.child
}

// SetChild records child as the list's successor. child itself is not touched.
func (dl *DistributionList) SetChild(child *DistributionList) {
	if dl == nil {
		return
	}
	setValue(dl, &dl.child, child.GUID())
}

// Children returns every list whose parent is dl.
func (dl *DistributionList) Children() []*DistributionList {
	if dl == nil {
		return nil
	}
	out := make([]*DistributionList, 0, len(dl.children))
	for _, g := range dl.children {
		if c := LookupDistribList(dl.inst.Book(), g); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (dl *DistributionList) addChild(child *DistributionList) {
	if !slices.Contains(dl.children, child.GUID()) {
		dl.children = append(dl.children, child.GUID())
	}
}

func (dl *DistributionList) removeChild(child *DistributionList) {
	if i := slices.Index(dl.children, child.GUID()); i >= 0 {
		dl.children = slices.Delete(dl.children, i, i+1)
	}
}

// ReturnChild returns the list to attach to new data. A parented or invisible
// list is returned as is, an existing child is reused, and with makeNew a
// fresh child copy is forked. Without makeNew and no child it returns nil.
func (dl *DistributionList) ReturnChild(makeNew bool) *DistributionList {
	if dl == nil {
		return nil
	}
	if child := dl.Child(); child != nil {
		return child
	}
	if dl.parent != uuid.Nil || dl.invisible {
		return dl
	}
	if !makeNew {
		return nil
	}
	child := dl.copy()
	dl.SetChild(child)
	child.SetParent(dl)
	return child
}

func (dl *DistributionList) copy() *DistributionList {
	c := NewDistribList(dl.inst.Book())
	c.BeginEdit()
	c.SetName(dl.name)
	c.SetDescription(dl.desc)
	c.SetType(dl.typ)
	c.SetPercentageLabelSettlement(dl.percentageLabel)
	c.SetPercentageTotal(dl.percentageTotal)
	c.SetSharesLabelSettlement(dl.sharesLabel)
	c.SetSharesTotal(dl.sharesTotal)
	c.SetOwnerTypeName(dl.ownerTypeName)
	c.CommitEdit()
	return c
}

// Refcount returns how many records use the list.
func (dl *DistributionList) Refcount() int64 {
	if dl == nil {
		return 0
	}
	return dl.refcount
}

// SetRefcount overwrites the reference count. Loaders and the scrub pass use it.
func (dl *DistributionList) SetRefcount(n int64) {
	if dl == nil {
		return
	}
	setValue(dl, &dl.refcount, n)
}

// IncRef counts one more user. Parented and invisible lists keep no count.
func (dl *DistributionList) IncRef() {
	if dl == nil || dl.parent != uuid.Nil || dl.invisible {
		return
	}
	dl.BeginEdit()
	dl.refcount++
	dl.inst.MarkDirty()
	dl.CommitEdit()
}

// DecRef drops one user.
func (dl *DistributionList) DecRef() {
	if dl == nil || dl.parent != uuid.Nil || dl.invisible {
		return
	}
	if dl.refcount < 1 {
		slog.Warn("distribution list refcount underflow", "guid", entity.GUIDString(dl.GUID()), "name", dl.name)
		return
	}
	dl.BeginEdit()
	dl.refcount--
	dl.inst.MarkDirty()
	dl.CommitEdit()
}

// Invisible reports whether the list is hidden from the visible list.
func (dl *DistributionList) Invisible() bool {
	if dl == nil {
		return false
	}
	return dl.invisible
}

// MakeInvisible hides the list from listings and refcounting for good.
func (dl *DistributionList) MakeInvisible() {
	if dl == nil || dl.invisible {
		return
	}
	dl.BeginEdit()
	dl.invisible = true
	distribListRegistry(dl.inst.Book()).remove(dl)
	dl.inst.MarkDirty()
	dl.CommitEdit()
}

// IsDirty reports whether the list has unsaved changes.
func (dl *DistributionList) IsDirty() bool {
	if dl == nil {
		return false
	}
	return dl.inst.IsDirty()
}

// CompareDistribLists orders lists by name, then description. nil sorts first.
func CompareDistribLists(a, b *DistributionList) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if c := strings.Compare(a.name, b.name); c != 0 {
		return c
	}
	return strings.Compare(a.desc, b.desc)
}

// DistribListsEqual compares every visible field of two lists.
func DistribListsEqual(a, b *DistributionList) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		slog.Debug("distribution list compared with nil")
		return false
	}
	diffs := []struct {
		field string
		equal bool
	}{
		{"name", a.name == b.name},
		{"description", a.desc == b.desc},
		{"type", a.typ == b.typ},
		{"percentage_label_settlement", a.percentageLabel == b.percentageLabel},
		{"percentage_total", a.percentageTotal == b.percentageTotal},
		{"shares_label_settlement", a.sharesLabel == b.sharesLabel},
		{"shares_total", a.sharesTotal == b.sharesTotal},
		{"owner_type_name", a.ownerTypeName == b.ownerTypeName},
		{"invisible", a.invisible == b.invisible},
	}
	for _, d := range diffs {
		if !d.equal {
			slog.Debug("distribution lists differ", "field", d.field)
			return false
		}
	}
	return true
}

// DistribListIsFamily reports whether two lists are versions of the same
// logical list. Children inherit name and description from their parent.
func DistribListIsFamily(a, b *DistributionList) bool {
	return CompareDistribLists(a, b) == 0
}
