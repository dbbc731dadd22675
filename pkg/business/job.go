package business

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

// slotOwnerIsCoOwner flags jobs owned by a co-owner. It lives in the
// extension frame rather than a column of its own.
const slotOwnerIsCoOwner = "owner-is-coowner"

// Job is a unit of work billed to an owner.
type Job struct {
	inst entity.Instance

	id        string
	name      string
	reference string
	active    bool
	rate      decimal.Decimal
	owner     Owner
}

// NewJob creates an active job without an owner. It returns nil without a book.
func NewJob(b *entity.Book) *Job {
	if b == nil {
		return nil
	}
	j := &Job{active: true}
	j.inst.Init(b, TypeJob, j)
	b.Emit(j, entity.EventCreate)
	return j
}

func adoptJob(b *entity.Book, g uuid.UUID) *Job {
	if j := LookupJob(b, g); j != nil {
		return j
	}
	j := NewJob(b)
	j.inst.SetGUID(j, g)
	return j
}

// LookupJob returns the job with the given GUID, or nil.
func LookupJob(b *entity.Book, g uuid.UUID) *Job {
	j, _ := b.Lookup(TypeJob, g).(*Job)
	return j
}

// Jobs returns every job of the book ordered by CompareJobs.
func Jobs(b *entity.Book) []*Job {
	var out []*Job
	for _, e := range b.Collection(TypeJob).Sorted() {
		out = append(out, e.(*Job))
	}
	slices.SortStableFunc(out, CompareJobs)
	return out
}

// Instance implements entity.Entity.
func (j *Job) Instance() *entity.Instance { return &j.inst }

// GUID returns the job identifier.
func (j *Job) GUID() uuid.UUID {
	if j == nil {
		return uuid.Nil
	}
	return j.inst.GUID()
}

// BeginEdit opens an edit bracket.
func (j *Job) BeginEdit() {
	if j == nil {
		return
	}
	j.inst.BeginEdit()
}

// CommitEdit closes an edit bracket.
func (j *Job) CommitEdit() {
	if j == nil || !j.inst.CommitEdit() {
		return
	}
	entity.CommitEditPart2(j, commitError(TypeJob, j), nil, j.free)
}

// Destroy removes the job at the outermost commit.
func (j *Job) Destroy() {
	if j == nil {
		return
	}
	j.BeginEdit()
	j.inst.SetDestroying()
	j.inst.MarkDirty()
	j.CommitEdit()
}

func (j *Job) free() {
	b := j.inst.Book()
	b.Emit(j, entity.EventDestroy)
	releaseStrings(b, j.id, j.name, j.reference)
	j.inst.Dispose(j)
}

// ID returns the user assigned job number.
func (j *Job) ID() string {
	if j == nil {
		return ""
	}
	return j.id
}

// SetID sets the user assigned job number.
func (j *Job) SetID(id string) {
	if j == nil {
		return
	}
	setString(j, &j.id, id)
}

// Name returns the job name.
func (j *Job) Name() string {
	if j == nil {
		return ""
	}
	return j.name
}

// SetName sets the job name.
func (j *Job) SetName(name string) {
	if j == nil {
		return
	}
	setString(j, &j.name, name)
}

// Reference returns the owner's reference for the job.
func (j *Job) Reference() string {
	if j == nil {
		return ""
	}
	return j.reference
}

// SetReference sets the owner's reference for the job.
func (j *Job) SetReference(ref string) {
	if j == nil {
		return
	}
	setString(j, &j.reference, ref)
}

// Active reports whether the job is open.
func (j *Job) Active() bool {
	if j == nil {
		return false
	}
	return j.active
}

// SetActive opens or closes the job.
func (j *Job) SetActive(active bool) {
	if j == nil {
		return
	}
	setValue(j, &j.active, active)
}

// Rate returns the default billing rate.
func (j *Job) Rate() decimal.Decimal {
	if j == nil {
		return decimal.Zero
	}
	return j.rate
}

// SetRate sets the default billing rate.
func (j *Job) SetRate(rate decimal.Decimal) {
	if j == nil {
		return
	}
	setDecimal(j, &j.rate, rate)
}

// Owner returns the party the job is billed to.
func (j *Job) Owner() Owner {
	if j == nil {
		return Owner{}
	}
	return j.owner
}

// SetOwner changes the party the job is billed to. Jobs cannot own jobs;
// such owners are rejected with a warning.
func (j *Job) SetOwner(o Owner) {
	if j == nil || OwnersEqual(j.owner, o) {
		return
	}
	if o.Type() == OwnerJob {
		slog.Warn("a job cannot be owned by a job", "job", entity.GUIDString(j.GUID()), "owner", entity.GUIDString(o.GUID()))
		return
	}
	j.BeginEdit()
	j.owner = o
	if o.Type() == OwnerCoOwner {
		j.inst.Slots().Set(slotOwnerIsCoOwner, entity.Int64Slot(1))
	} else {
		j.inst.Slots().Delete(slotOwnerIsCoOwner)
	}
	j.inst.MarkDirty()
	j.CommitEdit()
}

// OwnerIsCoOwner reports the extension flag kept alongside the owner.
func (j *Job) OwnerIsCoOwner() bool {
	if j == nil {
		return false
	}
	s, ok := j.inst.Slots().Get(slotOwnerIsCoOwner)
	return ok && s.Kind == entity.SlotInt64 && s.Int != 0
}

// IsDirty reports whether the job has unsaved changes.
func (j *Job) IsDirty() bool {
	if j == nil {
		return false
	}
	return j.inst.IsDirty()
}

// CompareJobs orders jobs by id, then name.
func CompareJobs(a, b *Job) int {
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

// JobsEqual compares every persisted field of two jobs.
func JobsEqual(a, b *Job) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.id == b.id &&
		a.name == b.name &&
		a.reference == b.reference &&
		a.active == b.active &&
		a.rate.Equal(b.rate) &&
		a.owner.Type() == b.owner.Type() &&
		a.owner.GUID() == b.owner.GUID() &&
		a.OwnerIsCoOwner() == b.OwnerIsCoOwner()
}
