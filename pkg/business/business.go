// Package business implements the persistable business records of a
// co-ownership book: distribution lists, co-owners, jobs, the other owner
// kinds and the Owner union that refers to any of them.
//
// Every mutator follows the same contract: writing the current value is a
// no-op, anything else runs inside an edit bracket, marks the record dirty and
// yields one MODIFY event when the outermost bracket commits. Methods called
// on a nil DistributionList, CoOwner or Job do nothing and getters return
// zero values.
package business

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

// Entity type tags.
const (
	TypeDistribList = "gncDistribList"
	TypeCoOwner     = "gncCoOwner"
	TypeCustomer    = "gncCustomer"
	TypeEmployee    = "gncEmployee"
	TypeJob         = "gncJob"
	TypeVendor      = "gncVendor"
)

type editable interface {
	entity.Entity
	BeginEdit()
	CommitEdit()
}

// setString, setValue and setDecimal implement the mutator contract. The
// then hooks run inside the edit bracket after the assignment.
func setString(e editable, dst *string, v string, then ...func()) bool {
	if *dst == v {
		return false
	}
	e.BeginEdit()
	*dst = e.Instance().Book().Strings().Replace(*dst, v)
	finishSet(e, then)
	return true
}

func setValue[V comparable](e editable, dst *V, v V, then ...func()) bool {
	if *dst == v {
		return false
	}
	e.BeginEdit()
	*dst = v
	finishSet(e, then)
	return true
}

func setDecimal(e editable, dst *decimal.Decimal, v decimal.Decimal, then ...func()) bool {
	if dst.Equal(v) {
		return false
	}
	e.BeginEdit()
	*dst = v
	finishSet(e, then)
	return true
}

func finishSet(e editable, then []func()) {
	for _, fn := range then {
		fn()
	}
	e.Instance().MarkDirty()
	e.CommitEdit()
}

func releaseStrings(b *entity.Book, strs ...string) {
	cache := b.Strings()
	for _, s := range strs {
		cache.Release(s)
	}
}

func commitError(typeName string, e entity.Entity) func(error) {
	return func(err error) {
		slog.Error("failed to commit record",
			"type", typeName,
			"guid", entity.GUIDString(e.Instance().GUID()),
			"error", err,
		)
	}
}
