package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/bizbook/pkg/business"
	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

const sample = `
distribution_lists:
  - name: Roof Fund
    description: Roof repairs
    type: shares
    total: 1000
    label_settlement: Shares
    owner_type: coowner
  - name: Garden
    type: percentage
    total: 100

coowners:
  - id: "000001"
    name: Flat 1
    currency: eur
    apt_share: "0.25"
    apt_unit: 1A
    distribution_list: Roof Fund
    address:
      addr1: Main Street 1
      email: flat1@example.com

customers:
  - id: C1
    name: Acme
    discount: "2.5"

employees:
  - id: E1
    name: Pat
    username: pat
    rate: "40"

vendors:
  - id: V1
    name: Roofers Ltd
    inactive: true

jobs:
  - id: J1
    name: Roof
    rate: "12.75"
    owner:
      type: coowner
      id: "000001"
`

func TestImport(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)

	b := entity.NewBook()
	res, err := Import(b, f)
	require.NoError(t, err)
	assert.Equal(t, Result{DistribLists: 2, CoOwners: 1, Customers: 1, Employees: 1, Vendors: 1, Jobs: 1}, res)
	assert.Equal(t, 7, res.Total())

	roof := business.LookupDistribListByName(b, "Roof Fund")
	require.NotNil(t, roof)
	assert.Equal(t, business.DistribListTypeShares, roof.Type())
	assert.Equal(t, 1000, roof.SharesTotal())
	assert.Equal(t, business.TypeCoOwner, roof.OwnerTypeName())
	assert.Equal(t, int64(1), roof.Refcount())

	garden := business.LookupDistribListByName(b, "Garden")
	require.NotNil(t, garden)
	assert.Equal(t, 100, garden.PercentageTotal())

	cos := business.CoOwners(b)
	require.Len(t, cos, 1)
	co := cos[0]
	assert.Equal(t, "EUR", co.Currency())
	assert.Equal(t, "0.25", co.AptShare().String())
	assert.Equal(t, "Main Street 1", co.Addr().Addr1)
	assert.True(t, co.Active())
	assert.Same(t, roof, co.DistribList())

	vendors := business.Vendors(b)
	require.Len(t, vendors, 1)
	assert.False(t, vendors[0].Active())

	jobs := business.Jobs(b)
	require.Len(t, jobs, 1)
	assert.Same(t, co, jobs[0].Owner().CoOwner())
	assert.Equal(t, "12.75", jobs[0].Rate().String())
}

func TestImportRejectsInvalidFile(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing type",
			yaml: "distribution_lists:\n  - name: Roof Fund\n",
			want: "type must be shares or percentage",
		},
		{
			name: "unknown list",
			yaml: "coowners:\n  - id: \"1\"\n    distribution_list: Nowhere\n",
			want: "unknown distribution list",
		},
		{
			name: "bad decimal",
			yaml: "employees:\n  - id: E1\n    rate: lots\n",
			want: "employees[0].rate",
		},
		{
			name: "duplicate id",
			yaml: "vendors:\n  - id: V1\n  - id: V1\n",
			want: "duplicate id",
		},
		{
			name: "job owned by job",
			yaml: "jobs:\n  - id: J1\n    owner: {type: job, id: J0}\n",
			want: "cannot be owned by a job",
		},
		{
			name: "unknown owner",
			yaml: "jobs:\n  - id: J1\n    owner: {type: vendor, id: V9}\n",
			want: "unknown owner",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)

			b := entity.NewBook()
			_, err = Import(b, f)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, b.TypeNames(), "nothing is created")
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, f.DistribLists, 2)
	assert.Equal(t, "000001", f.CoOwners[0].ID)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("distribution_lists: [unclosed"))
	assert.Error(t, err)
}
