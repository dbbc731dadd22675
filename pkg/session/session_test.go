package session

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/bizbook/pkg/business"
	"github.com/shunichi-ikebuchi/bizbook/pkg/config"
	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

func fill(b *entity.Book) (*business.DistributionList, *business.CoOwner) {
	dl := business.NewDistribList(b)
	dl.BeginEdit()
	dl.SetName("Roof Fund")
	dl.SetType(business.DistribListTypeShares)
	dl.SetSharesTotal(1000)
	dl.CommitEdit()

	co := business.NewCoOwner(b)
	co.BeginEdit()
	co.SetName("Flat 1")
	co.SetAptShare(decimal.RequireFromString("0.25"))
	co.SetDistribList(dl)
	co.CommitEdit()
	return dl, co
}

func TestSessionRoundTrip(t *testing.T) {
	for _, kind := range config.Backends {
		t.Run(kind, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "book."+kind)

			s, err := Open(kind, path)
			require.NoError(t, err)
			b, err := s.Create()
			require.NoError(t, err)
			dl, co := fill(b)
			require.NoError(t, s.Save())
			require.NoError(t, s.Close())
			assert.True(t, s.Exists())

			s, err = Open(kind, path)
			require.NoError(t, err)
			defer s.Close()
			loaded, err := s.Load()
			require.NoError(t, err)

			assert.Equal(t, b.GUID(), loaded.GUID())
			gotDL := business.LookupDistribList(loaded, dl.GUID())
			require.NotNil(t, gotDL)
			assert.True(t, business.DistribListsEqual(dl, gotDL))
			assert.Equal(t, int64(1), gotDL.Refcount())
			gotCo := business.LookupCoOwner(loaded, co.GUID())
			require.NotNil(t, gotCo)
			assert.Same(t, gotDL, gotCo.DistribList())

			counts := s.Counts()
			assert.Equal(t, 1, counts[business.TypeDistribList])
			assert.Equal(t, 1, counts[business.TypeCoOwner])
		})
	}
}

func TestRowBackendsWriteThrough(t *testing.T) {
	for _, kind := range []string{config.BackendSQLite, config.BackendBolt} {
		t.Run(kind, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "book."+kind)

			s, err := Open(kind, path)
			require.NoError(t, err)
			b, err := s.Create()
			require.NoError(t, err)
			fill(b)
			assert.Empty(t, b.DirtyEntities(), "commits reach storage without Save")
			require.NoError(t, s.Close())

			s, err = Open(kind, path)
			require.NoError(t, err)
			defer s.Close()
			loaded, err := s.Load()
			require.NoError(t, err)
			assert.Len(t, business.DistribLists(loaded), 1)
			assert.Len(t, business.CoOwners(loaded), 1)
		})
	}
}

func TestSaveTo(t *testing.T) {
	dir := t.TempDir()
	src, err := Open(config.BackendSQLite, filepath.Join(dir, "book.sqlite"))
	require.NoError(t, err)
	defer src.Close()
	b, err := src.Create()
	require.NoError(t, err)
	dl, _ := fill(b)

	dst, err := Open(config.BackendXML, filepath.Join(dir, "book.xml"))
	require.NoError(t, err)
	require.NoError(t, src.SaveTo(dst))
	assert.NotNil(t, b.Backend(), "source stays attached")

	loaded, err := dst.Load()
	require.NoError(t, err)
	assert.NotNil(t, business.LookupDistribList(loaded, dl.GUID()))
}

func TestSessionErrors(t *testing.T) {
	_, err := Open("postgres", "book")
	assert.Error(t, err)

	s, err := Open(config.BackendXML, filepath.Join(t.TempDir(), "missing.xml"))
	require.NoError(t, err)
	assert.ErrorIs(t, s.Save(), ErrNoBook)
	assert.False(t, s.Exists())
	_, err = s.Load()
	assert.Error(t, err)
	assert.Empty(t, s.Counts())
}

func TestStoredCounts(t *testing.T) {
	for _, kind := range config.Backends {
		t.Run(kind, func(t *testing.T) {
			s, err := Open(kind, filepath.Join(t.TempDir(), "book."+kind))
			require.NoError(t, err)
			defer s.Close()
			b, err := s.Create()
			require.NoError(t, err)
			fill(b)

			counts, err := s.StoredCounts()
			require.NoError(t, err)
			if kind == config.BackendXML {
				assert.Nil(t, counts)
				assert.Nil(t, s.DB())
				return
			}
			assert.Equal(t, 1, counts[business.TypeDistribList])
			assert.Equal(t, 1, counts[business.TypeCoOwner])
			assert.Equal(t, map[string]int{business.TypeDistribList: 1, business.TypeCoOwner: 1}, s.Counts())
		})
	}
}
