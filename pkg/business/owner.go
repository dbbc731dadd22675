package business

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/shunichi-ikebuchi/bizbook/pkg/colmap"
	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

// OwnerType is the discriminant of an Owner.
type OwnerType int

// The numeric values are persisted by the SQL backend.
const (
	OwnerNone OwnerType = iota
	OwnerUndefined
	OwnerCustomer
	OwnerJob
	OwnerVendor
	OwnerEmployee
	OwnerCoOwner
)

var ownerTypeNames = map[OwnerType]string{
	OwnerCustomer: TypeCustomer,
	OwnerJob:      TypeJob,
	OwnerVendor:   TypeVendor,
	OwnerEmployee: TypeEmployee,
	OwnerCoOwner:  TypeCoOwner,
}

// String returns a readable name for log output.
func (t OwnerType) String() string {
	switch t {
	case OwnerNone:
		return "none"
	case OwnerUndefined:
		return "undefined"
	}
	return ownerTypeNames[t]
}

// TypeName returns the entity type tag of the payload, empty for none and undefined.
func (t OwnerType) TypeName() string {
	return ownerTypeNames[t]
}

// OwnerTypeFromTypeName maps an entity type tag to an owner type.
// Unknown tags yield OwnerUndefined.
func OwnerTypeFromTypeName(name string) OwnerType {
	if name == "" {
		return OwnerNone
	}
	for t, n := range ownerTypeNames {
		if n == name {
			return t
		}
	}
	return OwnerUndefined
}

// ParseOwnerType maps a short kind name such as "coowner" or "vendor", or an
// entity type tag, to an owner type.
func ParseOwnerType(name string) OwnerType {
	short := strings.ToLower(strings.TrimSpace(name))
	for t, n := range ownerTypeNames {
		if short == strings.ToLower(strings.TrimPrefix(n, "gnc")) {
			return t
		}
	}
	return OwnerTypeFromTypeName(name)
}

// ownerPayload is implemented by every record an Owner can point at.
type ownerPayload interface {
	entity.Entity
	Name() string
}

// Owner is the closed union of parties that can own a record: a co-owner,
// customer, employee, job or vendor. The zero Owner is OwnerNone.
type Owner struct {
	kind    OwnerType
	payload ownerPayload
}

func (o *Owner) init(kind OwnerType, p ownerPayload, isNil bool) {
	o.kind = kind
	o.payload = nil
	if !isNil {
		o.payload = p
	}
}

// InitCoOwner makes o refer to a co-owner.
func (o *Owner) InitCoOwner(c *CoOwner) { o.init(OwnerCoOwner, c, c == nil) }

// InitCustomer makes o refer to a customer.
func (o *Owner) InitCustomer(c *Customer) { o.init(OwnerCustomer, c, c == nil) }

// InitEmployee makes o refer to an employee.
func (o *Owner) InitEmployee(e *Employee) { o.init(OwnerEmployee, e, e == nil) }

// InitJob makes o refer to a job.
func (o *Owner) InitJob(j *Job) { o.init(OwnerJob, j, j == nil) }

// InitVendor makes o refer to a vendor.
func (o *Owner) InitVendor(v *Vendor) { o.init(OwnerVendor, v, v == nil) }

// InitUndefined marks o as referring to something of unknown kind.
func (o *Owner) InitUndefined() { o.init(OwnerUndefined, nil, true) }

// OwnerOf wraps a record in an Owner of the matching kind.
// Records that cannot own anything yield the zero Owner.
func OwnerOf(e entity.Entity) Owner {
	var o Owner
	switch v := e.(type) {
	case *CoOwner:
		o.InitCoOwner(v)
	case *Customer:
		o.InitCustomer(v)
	case *Employee:
		o.InitEmployee(v)
	case *Job:
		o.InitJob(v)
	case *Vendor:
		o.InitVendor(v)
	}
	return o
}

// Type returns the discriminant.
func (o Owner) Type() OwnerType {
	return o.kind
}

// CoOwner returns the payload when o refers to a co-owner.
func (o Owner) CoOwner() *CoOwner {
	if o.kind != OwnerCoOwner {
		return nil
	}
	c, _ := o.payload.(*CoOwner)
	return c
}

// Customer returns the payload when o refers to a customer.
func (o Owner) Customer() *Customer {
	if o.kind != OwnerCustomer {
		return nil
	}
	c, _ := o.payload.(*Customer)
	return c
}

// Employee returns the payload when o refers to an employee.
func (o Owner) Employee() *Employee {
	if o.kind != OwnerEmployee {
		return nil
	}
	e, _ := o.payload.(*Employee)
	return e
}

// Job returns the payload when o refers to a job.
func (o Owner) Job() *Job {
	if o.kind != OwnerJob {
		return nil
	}
	j, _ := o.payload.(*Job)
	return j
}

// Vendor returns the payload when o refers to a vendor.
func (o Owner) Vendor() *Vendor {
	if o.kind != OwnerVendor {
		return nil
	}
	v, _ := o.payload.(*Vendor)
	return v
}

// Entity returns the payload regardless of kind.
func (o Owner) Entity() entity.Entity {
	if o.payload == nil {
		return nil
	}
	return o.payload
}

// IsValid reports whether o refers to an actual record.
func (o Owner) IsValid() bool {
	return o.kind != OwnerNone && o.kind != OwnerUndefined && o.payload != nil
}

// GUID returns the payload identifier.
func (o Owner) GUID() uuid.UUID {
	if o.payload == nil {
		return uuid.Nil
	}
	return o.payload.Instance().GUID()
}

// Name returns the payload's display name.
func (o Owner) Name() string {
	if o.payload == nil {
		return ""
	}
	return o.payload.Name()
}

// EndOwner resolves a job owner to the party that owns the job.
// A job never owns a job, so the recursion ends after one step.
func (o Owner) EndOwner() Owner {
	if o.kind != OwnerJob {
		return o
	}
	j := o.Job()
	if j == nil {
		return Owner{}
	}
	return j.Owner().EndOwner()
}

// EndGUID returns the GUID of EndOwner.
func (o Owner) EndGUID() uuid.UUID {
	return o.EndOwner().GUID()
}

// OwnersEqual compares discriminants and payload identity.
func OwnersEqual(a, b Owner) bool {
	return a.kind == b.kind && a.payload == b.payload
}

// CompareOwners orders owners by display name, then by kind.
func CompareOwners(a, b Owner) int {
	if c := strings.Compare(a.Name(), b.Name()); c != 0 {
		return c
	}
	return int(a.kind) - int(b.kind)
}

func (o Owner) ref() colmap.OwnerRef {
	return colmap.OwnerRef{Type: int(o.kind), TypeName: o.kind.TypeName(), GUID: o.GUID()}
}

// ownerFromRef resolves a persisted owner reference, creating a placeholder
// for records not loaded yet.
func ownerFromRef(b *entity.Book, ref colmap.OwnerRef) Owner {
	kind := OwnerType(ref.Type)
	if ref.TypeName != "" {
		kind = OwnerTypeFromTypeName(ref.TypeName)
	}
	var o Owner
	if ref.GUID == uuid.Nil {
		if kind == OwnerUndefined {
			o.InitUndefined()
		}
		return o
	}
	switch kind {
	case OwnerCoOwner:
		o.InitCoOwner(adoptCoOwner(b, ref.GUID))
	case OwnerCustomer:
		o.InitCustomer(adoptCustomer(b, ref.GUID))
	case OwnerEmployee:
		o.InitEmployee(adoptEmployee(b, ref.GUID))
	case OwnerJob:
		o.InitJob(adoptJob(b, ref.GUID))
	case OwnerVendor:
		o.InitVendor(adoptVendor(b, ref.GUID))
	default:
		slog.Warn("unknown owner type", "type", ref.Type, "type_name", ref.TypeName, "guid", entity.GUIDString(ref.GUID))
		o.InitUndefined()
	}
	return o
}
