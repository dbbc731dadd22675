package business

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

// ScrubResult counts what a scrub pass changed.
type ScrubResult struct {
	Repointed   int
	Destroyed   int
	Repaired    int
	Recounted   int
	Grandchild  int
	Placeholder int
}

// Changed reports whether the pass touched anything.
func (r ScrubResult) Changed() bool {
	return r.Repointed+r.Destroyed+r.Repaired+r.Recounted > 0
}

func liveDistribLists(b *entity.Book) []*DistributionList {
	var out []*DistributionList
	for _, e := range b.Collection(TypeDistribList).Sorted() {
		if dl, ok := e.(*DistributionList); ok && !dl.inst.IsDestroying() {
			out = append(out, dl)
		}
	}
	return out
}

// ScrubDistribLists repairs the list chains of a freshly loaded book.
//
// Grandchildren are folded away: co-owners pointing at one move to the
// topmost list of its chain that still has a parent, and the grandchild is
// destroyed. Typeless placeholders inherit their parent's fields, or are
// destroyed when nothing ever filled them in. Successor links to destroyed
// lists are cleared. Finally the refcount of every visible list is set to
// the number of co-owners that use it.
func ScrubDistribLists(b *entity.Book) ScrubResult {
	var res ScrubResult
	if b == nil {
		return res
	}

	replace := make(map[uuid.UUID]*DistributionList)
	for _, dl := range liveDistribLists(b) {
		p := dl.Parent()
		if p == nil || p.Parent() == nil {
			continue
		}
		slog.Warn("distribution list has a grandparent",
			"guid", entity.GUIDString(dl.GUID()),
			"parent", entity.GUIDString(p.GUID()),
			"grandparent", entity.GUIDString(p.ParentGUID()),
		)
		replace[dl.GUID()] = seniorList(p)
	}

	for _, dl := range liveDistribLists(b) {
		if dl.typ != 0 || replace[dl.GUID()] != nil {
			continue
		}
		if p := dl.Parent(); p != nil {
			slog.Info("filling typeless distribution list from its parent", "guid", entity.GUIDString(dl.GUID()))
			dl.fillFrom(p)
			res.Repaired++
			continue
		}
		slog.Warn("dropping unfilled distribution list placeholder", "guid", entity.GUIDString(dl.GUID()))
		replace[dl.GUID()] = nil
	}

	for _, c := range CoOwners(b) {
		to, ok := replace[c.distribList]
		if !ok {
			continue
		}
		c.SetDistribList(to)
		res.Repointed++
	}

	for _, dl := range liveDistribLists(b) {
		if _, gone := replace[dl.GUID()]; gone {
			continue
		}
		if _, gone := replace[dl.child]; gone {
			dl.SetChild(nil)
		}
	}

	for g, to := range replace {
		dl := LookupDistribList(b, g)
		if dl == nil {
			continue
		}
		if to != nil {
			res.Grandchild++
		} else {
			res.Placeholder++
		}
		dl.Destroy()
		res.Destroyed++
	}

	counts := make(map[uuid.UUID]int64)
	for _, c := range CoOwners(b) {
		if c.distribList != uuid.Nil {
			counts[c.distribList]++
		}
	}
	for _, dl := range liveDistribLists(b) {
		if dl.parent != uuid.Nil || dl.invisible {
			continue
		}
		if n := counts[dl.GUID()]; dl.refcount != n {
			slog.Info("fixing distribution list refcount",
				"guid", entity.GUIDString(dl.GUID()),
				"stored", dl.refcount,
				"counted", n,
			)
			dl.SetRefcount(n)
			res.Recounted++
		}
	}
	return res
}

// seniorList walks up from p to the topmost list that has a parent but no
// grandparent. Lists below it are all folded away in the same pass.
func seniorList(p *DistributionList) *DistributionList {
	seen := map[uuid.UUID]bool{p.GUID(): true}
	for {
		up := p.Parent()
		if up == nil || up.Parent() == nil || seen[up.GUID()] {
			return p
		}
		seen[up.GUID()] = true
		p = up
	}
}

func (dl *DistributionList) fillFrom(p *DistributionList) {
	dl.BeginEdit()
	dl.SetName(p.name)
	dl.SetDescription(p.desc)
	dl.SetType(p.typ)
	dl.SetPercentageLabelSettlement(p.percentageLabel)
	dl.SetPercentageTotal(p.percentageTotal)
	dl.SetSharesLabelSettlement(p.sharesLabel)
	dl.SetSharesTotal(p.sharesTotal)
	dl.SetOwnerTypeName(p.ownerTypeName)
	dl.CommitEdit()
}
