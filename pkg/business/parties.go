package business

import (
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

// party holds the fields every simple owner kind shares. The embedding type
// passes itself as self so events and backend commits see the outer record.
type party struct {
	inst entity.Instance
	self editable

	id       string
	name     string
	notes    string
	active   bool
	currency string
	addr     Address

	onFree func()
}

func (p *party) init(b *entity.Book, typeName string, self editable) {
	p.self = self
	p.active = true
	p.inst.Init(b, typeName, self)
	b.Emit(self, entity.EventCreate)
}

// Instance implements entity.Entity.
func (p *party) Instance() *entity.Instance { return &p.inst }

// GUID returns the record identifier.
func (p *party) GUID() uuid.UUID { return p.inst.GUID() }

// BeginEdit opens an edit bracket.
func (p *party) BeginEdit() { p.inst.BeginEdit() }

// CommitEdit closes an edit bracket.
func (p *party) CommitEdit() {
	if !p.inst.CommitEdit() {
		return
	}
	entity.CommitEditPart2(p.self, commitError(p.inst.TypeName(), p.self), nil, p.free)
}

// Destroy removes the record at the outermost commit.
func (p *party) Destroy() {
	p.BeginEdit()
	p.inst.SetDestroying()
	p.inst.MarkDirty()
	p.CommitEdit()
}

func (p *party) free() {
	b := p.inst.Book()
	b.Emit(p.self, entity.EventDestroy)
	releaseStrings(b, p.id, p.name, p.notes, p.currency)
	if p.onFree != nil {
		p.onFree()
	}
	p.inst.Dispose(p.self)
}

// ID returns the user assigned number.
func (p *party) ID() string { return p.id }

// SetID sets the user assigned number.
func (p *party) SetID(id string) { setString(p, &p.id, id) }

// Name returns the display name.
func (p *party) Name() string { return p.name }

// SetName sets the display name.
func (p *party) SetName(name string) { setString(p, &p.name, name) }

// Notes returns free form notes.
func (p *party) Notes() string { return p.notes }

// SetNotes sets free form notes.
func (p *party) SetNotes(notes string) { setString(p, &p.notes, notes) }

// Active reports whether the record is in use.
func (p *party) Active() bool { return p.active }

// SetActive sets the active flag.
func (p *party) SetActive(active bool) { setValue(p, &p.active, active) }

// Currency returns the ISO code of the record's currency.
func (p *party) Currency() string { return p.currency }

// SetCurrency sets the ISO code of the record's currency.
func (p *party) SetCurrency(code string) { setString(p, &p.currency, strings.ToUpper(code)) }

// Addr returns the postal address.
func (p *party) Addr() Address { return p.addr }

// SetAddr replaces the postal address.
func (p *party) SetAddr(a Address) { setValue(p, &p.addr, a) }

// IsDirty reports whether the record has unsaved changes.
func (p *party) IsDirty() bool { return p.inst.IsDirty() }

func (p *party) equal(o *party) bool {
	return p.id == o.id &&
		p.name == o.name &&
		p.notes == o.notes &&
		p.active == o.active &&
		p.currency == o.currency &&
		p.addr == o.addr
}

func compareParties(a, b *party) int {
	if r := strings.Compare(a.id, b.id); r != 0 {
		return r
	}
	return strings.Compare(a.name, b.name)
}

func adoptParty[T editable](b *entity.Book, typeName string, g uuid.UUID, create func(*entity.Book) T) T {
	if t, ok := b.Lookup(typeName, g).(T); ok {
		return t
	}
	t := create(b)
	t.Instance().SetGUID(t, g)
	return t
}

func sortedParties[T any](b *entity.Book, typeName string, cmp func(a, b T) int) []T {
	var out []T
	for _, e := range b.Collection(typeName).Sorted() {
		if t, ok := e.(T); ok {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, cmp)
	return out
}

// Customer is a party invoiced by the book.
type Customer struct {
	party

	discount decimal.Decimal
	credit   decimal.Decimal
	shipAddr Address
}

// NewCustomer creates an active customer.
func NewCustomer(b *entity.Book) *Customer {
	if b == nil {
		return nil
	}
	c := &Customer{}
	c.init(b, TypeCustomer, c)
	return c
}

func adoptCustomer(b *entity.Book, g uuid.UUID) *Customer {
	return adoptParty(b, TypeCustomer, g, NewCustomer)
}

// LookupCustomer returns the customer with the given GUID, or nil.
func LookupCustomer(b *entity.Book, g uuid.UUID) *Customer {
	c, _ := b.Lookup(TypeCustomer, g).(*Customer)
	return c
}

// Customers returns every customer ordered by id, then name.
func Customers(b *entity.Book) []*Customer {
	return sortedParties(b, TypeCustomer, func(x, y *Customer) int { return compareParties(&x.party, &y.party) })
}

// Discount returns the discount percentage granted.
func (c *Customer) Discount() decimal.Decimal { return c.discount }

// SetDiscount sets the discount percentage granted.
func (c *Customer) SetDiscount(d decimal.Decimal) { setDecimal(c, &c.discount, d) }

// Credit returns the credit limit.
func (c *Customer) Credit() decimal.Decimal { return c.credit }

// SetCredit sets the credit limit.
func (c *Customer) SetCredit(d decimal.Decimal) { setDecimal(c, &c.credit, d) }

// ShipAddr returns the shipping address.
func (c *Customer) ShipAddr() Address { return c.shipAddr }

// SetShipAddr replaces the shipping address.
func (c *Customer) SetShipAddr(a Address) { setValue(c, &c.shipAddr, a) }

// CustomersEqual compares every persisted field of two customers.
func CustomersEqual(a, b *Customer) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.party.equal(&b.party) &&
		a.discount.Equal(b.discount) &&
		a.credit.Equal(b.credit) &&
		a.shipAddr == b.shipAddr
}

// Employee is a person whose work and expenses the book tracks.
type Employee struct {
	party

	username string
	rate     decimal.Decimal
}

// NewEmployee creates an active employee.
func NewEmployee(b *entity.Book) *Employee {
	if b == nil {
		return nil
	}
	e := &Employee{}
	e.onFree = func() { releaseStrings(b, e.username) }
	e.init(b, TypeEmployee, e)
	return e
}

func adoptEmployee(b *entity.Book, g uuid.UUID) *Employee {
	return adoptParty(b, TypeEmployee, g, NewEmployee)
}

// LookupEmployee returns the employee with the given GUID, or nil.
func LookupEmployee(b *entity.Book, g uuid.UUID) *Employee {
	e, _ := b.Lookup(TypeEmployee, g).(*Employee)
	return e
}

// Employees returns every employee ordered by id, then name.
func Employees(b *entity.Book) []*Employee {
	return sortedParties(b, TypeEmployee, func(x, y *Employee) int { return compareParties(&x.party, &y.party) })
}

// Username returns the login name.
func (e *Employee) Username() string { return e.username }

// SetUsername sets the login name.
func (e *Employee) SetUsername(u string) { setString(e, &e.username, u) }

// Rate returns the default hourly rate.
func (e *Employee) Rate() decimal.Decimal { return e.rate }

// SetRate sets the default hourly rate.
func (e *Employee) SetRate(r decimal.Decimal) { setDecimal(e, &e.rate, r) }

// EmployeesEqual compares every persisted field of two employees.
func EmployeesEqual(a, b *Employee) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.party.equal(&b.party) && a.username == b.username && a.rate.Equal(b.rate)
}

// Vendor is a party the book buys from.
type Vendor struct {
	party
}

// NewVendor creates an active vendor.
func NewVendor(b *entity.Book) *Vendor {
	if b == nil {
		return nil
	}
	v := &Vendor{}
	v.init(b, TypeVendor, v)
	return v
}

func adoptVendor(b *entity.Book, g uuid.UUID) *Vendor {
	return adoptParty(b, TypeVendor, g, NewVendor)
}

// LookupVendor returns the vendor with the given GUID, or nil.
func LookupVendor(b *entity.Book, g uuid.UUID) *Vendor {
	v, _ := b.Lookup(TypeVendor, g).(*Vendor)
	return v
}

// Vendors returns every vendor ordered by id, then name.
func Vendors(b *entity.Book) []*Vendor {
	return sortedParties(b, TypeVendor, func(x, y *Vendor) int { return compareParties(&x.party, &y.party) })
}

// VendorsEqual compares every persisted field of two vendors.
func VendorsEqual(a, b *Vendor) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.party.equal(&b.party)
}
