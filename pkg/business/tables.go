package business

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/shunichi-ikebuchi/bizbook/pkg/colmap"
	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

const (
	maxNameLen = 2048
	xmlVersion = "2.0.0"
)

const (
	variantShares     = "shares"
	variantPercentage = "percentage"
)

// DistribListTable maps distribution lists. Version 2 widened the totals to
// NOT NULL integers.
var DistribListTable = &colmap.Table[*DistributionList]{
	TypeName:   TypeDistribList,
	SQLName:    "distriblists",
	Version:    2,
	XMLTag:     "gnc:GncDistribList",
	XMLPrefix:  "distriblist",
	XMLVersion: xmlVersion,
	Columns: []colmap.Column[*DistributionList]{
		colmap.GUID("guid", colmap.PrimaryKey|colmap.NotNull, (*DistributionList).GUID, nil),
		colmap.String("name", maxNameLen, colmap.NotNull, (*DistributionList).Name, (*DistributionList).SetName),
		colmap.String("description", maxNameLen, colmap.NotNull, (*DistributionList).Description, (*DistributionList).SetDescription),
		colmap.String("owner_type_name", maxNameLen, colmap.NotNull, (*DistributionList).OwnerTypeName, (*DistributionList).SetOwnerTypeName),
		colmap.Int64("refcount", colmap.NotNull, (*DistributionList).Refcount, (*DistributionList).SetRefcount),
		colmap.Bool("invisible", colmap.NotNull, (*DistributionList).Invisible, func(dl *DistributionList, v bool) {
			if v {
				dl.MakeInvisible()
			}
		}),
		colmap.GUID("parent", colmap.Structural, (*DistributionList).ParentGUID, linkParentIfLoaded),
		colmap.String("type", maxNameLen, colmap.NotNull|colmap.Discriminant,
			func(dl *DistributionList) string { return dl.Type().String() },
			func(dl *DistributionList, s string) {
				t, err := ParseDistribListType(s)
				if err != nil {
					slog.Warn("ignoring distribution list type", "guid", entity.GUIDString(dl.GUID()), "error", err)
					return
				}
				dl.SetType(t)
			}),
		colmap.String("percentage_label_settlement", maxNameLen, 0,
			(*DistributionList).PercentageLabelSettlement, (*DistributionList).SetPercentageLabelSettlement).In(variantPercentage),
		colmap.Int("percentage_total", colmap.NotNull,
			(*DistributionList).PercentageTotal, (*DistributionList).SetPercentageTotal).In(variantPercentage),
		colmap.String("shares_label_settlement", maxNameLen, 0,
			(*DistributionList).SharesLabelSettlement, (*DistributionList).SetSharesLabelSettlement).In(variantShares),
		colmap.Int("shares_total", colmap.NotNull,
			(*DistributionList).SharesTotal, (*DistributionList).SetSharesTotal).In(variantShares),
	},
	Variants: []colmap.Variant[*DistributionList]{
		{
			Name:   variantPercentage,
			Prefix: "dl-percentage",
			Active: func(dl *DistributionList) bool { return dl.Type() == DistribListTypePercentage },
			Select: func(dl *DistributionList) { dl.SetType(DistribListTypePercentage) },
		},
		{
			Name:   variantShares,
			Prefix: "dl-shares",
			Active: func(dl *DistributionList) bool { return dl.Type() == DistribListTypeShares },
			Select: func(dl *DistributionList) { dl.SetType(DistribListTypeShares) },
		},
	},
	Links: []colmap.Column[*DistributionList]{
		colmap.GUID("child", 0, (*DistributionList).ChildGUID, func(dl *DistributionList, g uuid.UUID) {
			dl.SetChild(adoptDistribList(dl.Book(), g))
		}),
		colmap.GUID("parent", 0, (*DistributionList).ParentGUID, func(dl *DistributionList, g uuid.UUID) {
			if p := adoptDistribList(dl.Book(), g); p != nil && p != dl {
				dl.SetParent(p)
			}
		}),
	},
	SkipLinks: func(dl *DistributionList) bool { return dl.ChildGUID() == dl.GUID() },
	Parent: &colmap.ParentLink[*DistributionList]{
		Columns: colmap.ParentColumns("parent"),
		Has:     func(dl *DistributionList) bool { return dl.ParentGUID() != uuid.Nil },
		Resolve: func(dl *DistributionList, g uuid.UUID) bool {
			p := LookupDistribList(dl.Book(), g)
			if p == nil {
				return false
			}
			linkParent(dl, p)
			return true
		},
	},
	Adopt: adoptDistribList,
	Scrub: func(b *entity.Book) { ScrubDistribLists(b) },
}

// linkParentIfLoaded resolves a stored parent reference when the parent is
// already in the book. Row loaders queue the rest through the ParentLink.
func linkParentIfLoaded(dl *DistributionList, g uuid.UUID) {
	if g == uuid.Nil || g == dl.GUID() {
		return
	}
	if p := LookupDistribList(dl.Book(), g); p != nil {
		linkParent(dl, p)
	}
}

func linkParent(child, parent *DistributionList) {
	child.SetParent(parent)
	parent.SetChild(child)
}

// CoOwnerTable maps co-owners.
var CoOwnerTable = &colmap.Table[*CoOwner]{
	TypeName:   TypeCoOwner,
	SQLName:    "coowners",
	Version:    1,
	XMLTag:     "gnc:GncCoOwner",
	XMLPrefix:  "coowner",
	XMLVersion: xmlVersion,
	Columns: []colmap.Column[*CoOwner]{
		colmap.GUID("guid", colmap.PrimaryKey|colmap.NotNull, (*CoOwner).GUID, nil),
		colmap.String("id", maxNameLen, colmap.NotNull, (*CoOwner).ID, (*CoOwner).SetID),
		colmap.String("name", maxNameLen, colmap.NotNull, (*CoOwner).Name, (*CoOwner).SetName),
		colmap.String("notes", maxNameLen, colmap.NotNull, (*CoOwner).Notes, (*CoOwner).SetNotes),
		colmap.Bool("active", colmap.NotNull, (*CoOwner).Active, (*CoOwner).SetActive),
		colmap.String("currency", maxNameLen, colmap.NotNull, (*CoOwner).Currency, (*CoOwner).SetCurrency),
		colmap.Numeric("apt_share", 0, (*CoOwner).AptShare, (*CoOwner).SetAptShare),
		colmap.String("apt_unit", maxNameLen, 0, (*CoOwner).AptUnit, (*CoOwner).SetAptUnit),
		colmap.Numeric("discount", 0, (*CoOwner).Discount, (*CoOwner).SetDiscount),
		colmap.Numeric("credit", 0, (*CoOwner).Credit, (*CoOwner).SetCredit),
		addressColumn("addr", (*CoOwner).Addr, (*CoOwner).SetAddr),
		addressColumn("shipaddr", (*CoOwner).ShipAddr, (*CoOwner).SetShipAddr),
		colmap.GUID("distriblist", 0,
			func(c *CoOwner) uuid.UUID { return c.DistribList().GUID() },
			func(c *CoOwner, g uuid.UUID) { c.SetDistribList(adoptDistribList(c.inst.Book(), g)) }),
	},
	Adopt: adoptCoOwner,
}

// JobTable maps jobs. The owner-is-coowner flag travels in the slots.
var JobTable = &colmap.Table[*Job]{
	TypeName:   TypeJob,
	SQLName:    "jobs",
	Version:    1,
	XMLTag:     "gnc:GncJob",
	XMLPrefix:  "job",
	XMLVersion: xmlVersion,
	Columns: []colmap.Column[*Job]{
		colmap.GUID("guid", colmap.PrimaryKey|colmap.NotNull, (*Job).GUID, nil),
		colmap.String("id", maxNameLen, colmap.NotNull, (*Job).ID, (*Job).SetID),
		colmap.String("name", maxNameLen, colmap.NotNull, (*Job).Name, (*Job).SetName),
		colmap.String("reference", maxNameLen, colmap.NotNull, (*Job).Reference, (*Job).SetReference),
		colmap.Bool("active", colmap.NotNull, (*Job).Active, (*Job).SetActive),
		colmap.Numeric("rate", 0, (*Job).Rate, (*Job).SetRate),
		colmap.Owner("owner", 0,
			func(j *Job) colmap.OwnerRef { return j.Owner().ref() },
			func(j *Job, ref colmap.OwnerRef) { j.SetOwner(ownerFromRef(j.inst.Book(), ref)) }),
	},
	Adopt: adoptJob,
}

// CustomerTable maps customers.
var CustomerTable = &colmap.Table[*Customer]{
	TypeName:   TypeCustomer,
	SQLName:    "customers",
	Version:    1,
	XMLTag:     "gnc:GncCustomer",
	XMLPrefix:  "cust",
	XMLVersion: xmlVersion,
	Columns: append(partyColumns[*Customer](),
		colmap.Numeric("discount", 0, (*Customer).Discount, (*Customer).SetDiscount),
		colmap.Numeric("credit", 0, (*Customer).Credit, (*Customer).SetCredit),
		addressColumn("shipaddr", (*Customer).ShipAddr, (*Customer).SetShipAddr),
	),
	Adopt: adoptCustomer,
}

// EmployeeTable maps employees.
var EmployeeTable = &colmap.Table[*Employee]{
	TypeName:   TypeEmployee,
	SQLName:    "employees",
	Version:    1,
	XMLTag:     "gnc:GncEmployee",
	XMLPrefix:  "employee",
	XMLVersion: xmlVersion,
	Columns: append(partyColumns[*Employee](),
		colmap.String("username", maxNameLen, colmap.NotNull, (*Employee).Username, (*Employee).SetUsername),
		colmap.Numeric("rate", 0, (*Employee).Rate, (*Employee).SetRate),
	),
	Adopt: adoptEmployee,
}

// VendorTable maps vendors.
var VendorTable = &colmap.Table[*Vendor]{
	TypeName:   TypeVendor,
	SQLName:    "vendors",
	Version:    1,
	XMLTag:     "gnc:GncVendor",
	XMLPrefix:  "vendor",
	XMLVersion: xmlVersion,
	Columns:    partyColumns[*Vendor](),
	Adopt:      adoptVendor,
}

// partyRecord is the accessor set shared by customers, employees and vendors.
type partyRecord interface {
	colmap.Record
	ID() string
	SetID(string)
	Name() string
	SetName(string)
	Notes() string
	SetNotes(string)
	Active() bool
	SetActive(bool)
	Currency() string
	SetCurrency(string)
	Addr() Address
	SetAddr(Address)
}

func partyColumns[T partyRecord]() []colmap.Column[T] {
	return []colmap.Column[T]{
		colmap.GUID("guid", colmap.PrimaryKey|colmap.NotNull, func(t T) uuid.UUID { return t.Instance().GUID() }, nil),
		colmap.String("id", maxNameLen, colmap.NotNull, func(t T) string { return t.ID() }, func(t T, v string) { t.SetID(v) }),
		colmap.String("name", maxNameLen, colmap.NotNull, func(t T) string { return t.Name() }, func(t T, v string) { t.SetName(v) }),
		colmap.String("notes", maxNameLen, colmap.NotNull, func(t T) string { return t.Notes() }, func(t T, v string) { t.SetNotes(v) }),
		colmap.Bool("active", colmap.NotNull, func(t T) bool { return t.Active() }, func(t T, v bool) { t.SetActive(v) }),
		colmap.String("currency", maxNameLen, colmap.NotNull, func(t T) string { return t.Currency() }, func(t T, v string) { t.SetCurrency(v) }),
		addressColumn("addr", func(t T) Address { return t.Addr() }, func(t T, a Address) { t.SetAddr(a) }),
	}
}

func addressColumn[T any](name string, get func(T) Address, set func(T, Address)) colmap.Column[T] {
	return colmap.Address(name, 0,
		func(t T) colmap.AddressValue { return get(t).value() },
		func(t T, v colmap.AddressValue) { set(t, addressFromValue(v)) })
}
