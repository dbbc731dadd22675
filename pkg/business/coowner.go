package business

import (
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

// CoOwner is a member of a co-ownership who takes part in settlements
// through a distribution list.
type CoOwner struct {
	inst entity.Instance

	id       string
	name     string
	notes    string
	active   bool
	currency string
	aptShare decimal.Decimal
	aptUnit  string
	discount decimal.Decimal
	credit   decimal.Decimal
	addr     Address
	shipAddr Address

	distribList uuid.UUID
}

// NewCoOwner creates an active co-owner. It returns nil without a book.
func NewCoOwner(b *entity.Book) *CoOwner {
	if b == nil {
		return nil
	}
	c := &CoOwner{active: true}
	c.inst.Init(b, TypeCoOwner, c)
	b.Emit(c, entity.EventCreate)
	return c
}

func adoptCoOwner(b *entity.Book, g uuid.UUID) *CoOwner {
	if c := LookupCoOwner(b, g); c != nil {
		return c
	}
	c := NewCoOwner(b)
	c.inst.SetGUID(c, g)
	return c
}

// LookupCoOwner returns the co-owner with the given GUID, or nil.
func LookupCoOwner(b *entity.Book, g uuid.UUID) *CoOwner {
	c, _ := b.Lookup(TypeCoOwner, g).(*CoOwner)
	return c
}

// CoOwners returns every co-owner of the book ordered by CompareCoOwners.
func CoOwners(b *entity.Book) []*CoOwner {
	var out []*CoOwner
	for _, e := range b.Collection(TypeCoOwner).Sorted() {
		out = append(out, e.(*CoOwner))
	}
	slices.SortStableFunc(out, CompareCoOwners)
	return out
}

// Instance implements entity.Entity.
func (c *CoOwner) Instance() *entity.Instance { return &c.inst }

// GUID returns the co-owner identifier.
func (c *CoOwner) GUID() uuid.UUID {
	if c == nil {
		return uuid.Nil
	}
	return c.inst.GUID()
}

// BeginEdit opens an edit bracket.
func (c *CoOwner) BeginEdit() {
	if c == nil {
		return
	}
	c.inst.BeginEdit()
}

// CommitEdit closes an edit bracket.
func (c *CoOwner) CommitEdit() {
	if c == nil || !c.inst.CommitEdit() {
		return
	}
	entity.CommitEditPart2(c, commitError(TypeCoOwner, c), nil, c.free)
}

// Destroy removes the co-owner at the outermost commit.
func (c *CoOwner) Destroy() {
	if c == nil {
		return
	}
	c.BeginEdit()
	c.inst.SetDestroying()
	c.inst.MarkDirty()
	c.CommitEdit()
}

func (c *CoOwner) free() {
	b := c.inst.Book()
	b.Emit(c, entity.EventDestroy)
	releaseStrings(b, c.id, c.name, c.notes, c.currency, c.aptUnit)
	if dl := c.DistribList(); dl != nil {
		dl.DecRef()
	}
	c.inst.Dispose(c)
}

// ID returns the user assigned co-owner number.
func (c *CoOwner) ID() string {
	if c == nil {
		return ""
	}
	return c.id
}

// SetID sets the user assigned co-owner number.
func (c *CoOwner) SetID(id string) {
	if c == nil {
		return
	}
	setString(c, &c.id, id)
}

// Name returns the co-owner's name.
func (c *CoOwner) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// SetName sets the co-owner's name.
func (c *CoOwner) SetName(name string) {
	if c == nil {
		return
	}
	setString(c, &c.name, name)
}

// Notes returns free form notes.
func (c *CoOwner) Notes() string {
	if c == nil {
		return ""
	}
	return c.notes
}

// SetNotes sets free form notes.
func (c *CoOwner) SetNotes(notes string) {
	if c == nil {
		return
	}
	setString(c, &c.notes, notes)
}

// Active reports whether the co-owner is in use.
func (c *CoOwner) Active() bool {
	if c == nil {
		return false
	}
	return c.active
}

// SetActive sets the active flag.
func (c *CoOwner) SetActive(active bool) {
	if c == nil {
		return
	}
	setValue(c, &c.active, active)
}

// Currency returns the ISO code settlements are made in.
func (c *CoOwner) Currency() string {
	if c == nil {
		return ""
	}
	return c.currency
}

// SetCurrency sets the ISO code settlements are made in.
func (c *CoOwner) SetCurrency(code string) {
	if c == nil {
		return
	}
	setString(c, &c.currency, strings.ToUpper(code))
}

// AptShare returns the co-owner's share in the property.
func (c *CoOwner) AptShare() decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}
	return c.aptShare
}

// SetAptShare sets the co-owner's share in the property.
func (c *CoOwner) SetAptShare(share decimal.Decimal) {
	if c == nil {
		return
	}
	setDecimal(c, &c.aptShare, share)
}

// AptUnit returns the unit designation.
func (c *CoOwner) AptUnit() string {
	if c == nil {
		return ""
	}
	return c.aptUnit
}

// SetAptUnit sets the unit designation.
func (c *CoOwner) SetAptUnit(unit string) {
	if c == nil {
		return
	}
	setString(c, &c.aptUnit, unit)
}

// Discount returns the discount percentage granted.
func (c *CoOwner) Discount() decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}
	return c.discount
}

// SetDiscount sets the discount percentage granted.
func (c *CoOwner) SetDiscount(d decimal.Decimal) {
	if c == nil {
		return
	}
	setDecimal(c, &c.discount, d)
}

// Credit returns the credit limit.
func (c *CoOwner) Credit() decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}
	return c.credit
}

// SetCredit sets the credit limit.
func (c *CoOwner) SetCredit(d decimal.Decimal) {
	if c == nil {
		return
	}
	setDecimal(c, &c.credit, d)
}

// Addr returns the billing address.
func (c *CoOwner) Addr() Address {
	if c == nil {
		return Address{}
	}
	return c.addr
}

// SetAddr replaces the billing address.
func (c *CoOwner) SetAddr(a Address) {
	if c == nil {
		return
	}
	setValue(c, &c.addr, a)
}

// ShipAddr returns the shipping address.
func (c *CoOwner) ShipAddr() Address {
	if c == nil {
		return Address{}
	}
	return c.shipAddr
}

// SetShipAddr replaces the shipping address.
func (c *CoOwner) SetShipAddr(a Address) {
	if c == nil {
		return
	}
	setValue(c, &c.shipAddr, a)
}

// DistribList returns the distribution list the co-owner settles through.
func (c *CoOwner) DistribList() *DistributionList {
	if c == nil || c.distribList == uuid.Nil {
		return nil
	}
	return LookupDistribList(c.inst.Book(), c.distribList)
}

// SetDistribList switches distribution lists, moving one reference from the
// old list to the new one.
func (c *CoOwner) SetDistribList(dl *DistributionList) {
	if c == nil || c.distribList == dl.GUID() {
		return
	}
	c.BeginEdit()
	if old := c.DistribList(); old != nil {
		old.DecRef()
	}
	c.distribList = dl.GUID()
	if dl != nil {
		dl.IncRef()
	}
	c.inst.MarkDirty()
	c.CommitEdit()
}

// IsDirty reports whether the co-owner has unsaved changes.
func (c *CoOwner) IsDirty() bool {
	if c == nil {
		return false
	}
	return c.inst.IsDirty()
}

// CompareCoOwners orders co-owners by id, then name.
func CompareCoOwners(a, b *CoOwner) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if r := strings.Compare(a.id, b.id); r != 0 {
		return r
	}
	return strings.Compare(a.name, b.name)
}

// CoOwnersEqual compares every persisted field of two co-owners.
func CoOwnersEqual(a, b *CoOwner) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.id == b.id &&
		a.name == b.name &&
		a.notes == b.notes &&
		a.active == b.active &&
		a.currency == b.currency &&
		a.aptShare.Equal(b.aptShare) &&
		a.aptUnit == b.aptUnit &&
		a.discount.Equal(b.discount) &&
		a.credit.Equal(b.credit) &&
		a.addr == b.addr &&
		a.shipAddr == b.shipAddr &&
		a.distribList == b.distribList
}
