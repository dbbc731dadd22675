package boltbackend

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/shunichi-ikebuchi/bizbook/pkg/business"
	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

func openTestBackend(t *testing.T) *Backend {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "book.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	be := New(store)
	Register(be, business.DistribListTable)
	Register(be, business.CustomerTable)
	Register(be, business.EmployeeTable)
	Register(be, business.VendorTable)
	Register(be, business.CoOwnerTable)
	Register(be, business.JobTable)
	return be
}

func TestWriteLoadRoundTrip(t *testing.T) {
	be := openTestBackend(t)

	b := entity.NewBook()
	dl := business.NewDistribList(b)
	dl.BeginEdit()
	dl.SetName("Roof Fund")
	dl.SetType(business.DistribListTypeShares)
	dl.SetSharesTotal(1000)
	dl.CommitEdit()
	child := dl.ReturnChild(true)

	co := business.NewCoOwner(b)
	co.BeginEdit()
	co.SetName("Flat 1")
	co.SetAptShare(decimal.RequireFromString("0.25"))
	co.SetAddr(business.Address{Addr1: "Main Street 1", Email: "flat1@example.com"})
	co.SetDistribList(dl)
	co.CommitEdit()

	job := business.NewJob(b)
	job.SetName("Roof")
	job.SetOwner(business.OwnerOf(co))

	require.NoError(t, be.Write(b))
	assert.False(t, b.IsDirty())

	loaded := entity.NewBook()
	stats, err := be.LoadAll(loaded)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Records)
	assert.Zero(t, stats.Failed)
	assert.Zero(t, stats.Dangling)
	assert.Equal(t, b.GUID(), loaded.GUID())

	gotDL := business.LookupDistribList(loaded, dl.GUID())
	gotChild := business.LookupDistribList(loaded, child.GUID())
	require.NotNil(t, gotDL)
	require.NotNil(t, gotChild)
	assert.True(t, business.DistribListsEqual(dl, gotDL))
	assert.Same(t, gotDL, gotChild.Parent())
	assert.Same(t, gotChild, gotDL.Child())
	assert.Equal(t, int64(1), gotDL.Refcount())

	gotCo := business.LookupCoOwner(loaded, co.GUID())
	require.NotNil(t, gotCo)
	assert.True(t, business.CoOwnersEqual(co, gotCo))
	assert.Equal(t, "0.25", gotCo.AptShare().String())
	assert.Equal(t, co.Addr(), gotCo.Addr())

	gotJob := business.LookupJob(loaded, job.GUID())
	require.NotNil(t, gotJob)
	assert.Same(t, gotCo, gotJob.Owner().CoOwner())
	assert.True(t, gotJob.OwnerIsCoOwner())

	assert.False(t, loaded.IsDirty())
}

func TestLoadAllSkipsMalformedDocuments(t *testing.T) {
	be := openTestBackend(t)
	require.NoError(t, be.CreateBuckets())

	good := entity.NewGUID()
	require.NoError(t, be.store.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket([]byte("vendors"))
		if err := bk.Put([]byte(entity.GUIDString(good)), []byte(`{"fields":{"name":"Roofers Ltd","active":"1"}}`)); err != nil {
			return err
		}
		if err := bk.Put([]byte(entity.GUIDString(entity.NewGUID())), []byte(`{not json`)); err != nil {
			return err
		}
		return bk.Put([]byte("bogus"), []byte(`{}`))
	}))

	loaded := entity.NewBook()
	stats, err := be.LoadAll(loaded)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Records)
	assert.Equal(t, 2, stats.Failed)

	v := business.LookupVendor(loaded, good)
	require.NotNil(t, v)
	assert.Equal(t, "Roofers Ltd", v.Name())
	assert.True(t, v.Active())
}

func TestAttachedBackendCommits(t *testing.T) {
	be := openTestBackend(t)
	require.NoError(t, be.CreateBuckets())
	b := entity.NewBook()
	b.SetBackend(be)

	v := business.NewVendor(b)
	v.SetName("Roofers Ltd")
	counts, err := be.Counts()
	require.NoError(t, err)
	assert.Equal(t, 1, counts[business.TypeVendor])

	v.Destroy()
	counts, err = be.Counts()
	require.NoError(t, err)
	assert.Zero(t, counts[business.TypeVendor])
}

func TestSyncReplacesContents(t *testing.T) {
	be := openTestBackend(t)
	b := entity.NewBook()
	keep := business.NewCustomer(b)
	keep.SetName("Keep")
	drop := business.NewCustomer(b)
	drop.SetName("Drop")
	require.NoError(t, be.Write(b))

	drop.Destroy()
	require.NoError(t, be.Sync(b))

	counts, err := be.Counts()
	require.NoError(t, err)
	assert.Equal(t, 1, counts[business.TypeCustomer])

	saved, err := be.Store().GetString(metaBookGUID)
	require.NoError(t, err)
	assert.Equal(t, entity.GUIDString(b.GUID()), saved)
}

func TestCreateBucketsRejectsNewerVersion(t *testing.T) {
	be := openTestBackend(t)
	require.NoError(t, be.Store().PutString(versionKey("distriblists"), "9"))

	err := be.CreateBuckets()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestGetStringNotFound(t *testing.T) {
	be := openTestBackend(t)
	_, err := be.Store().GetString("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
