// Package seed imports business records from a YAML file into a book.
package seed

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/shunichi-ikebuchi/bizbook/pkg/business"
	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

// AddressSeed is an address in a seed file.
type AddressSeed struct {
	Name  string `yaml:"name"`
	Addr1 string `yaml:"addr1"`
	Addr2 string `yaml:"addr2"`
	Addr3 string `yaml:"addr3"`
	Addr4 string `yaml:"addr4"`
	Phone string `yaml:"phone"`
	Fax   string `yaml:"fax"`
	Email string `yaml:"email"`
}

// DistribListSeed describes a distribution list.
type DistribListSeed struct {
	Name            string `yaml:"name"`
	Description     string `yaml:"description"`
	Type            string `yaml:"type"`
	Total           int    `yaml:"total"`
	LabelSettlement string `yaml:"label_settlement"`
	OwnerType       string `yaml:"owner_type"`
}

// PartySeed holds the fields shared by every party kind.
type PartySeed struct {
	ID       string      `yaml:"id"`
	Name     string      `yaml:"name"`
	Notes    string      `yaml:"notes"`
	Currency string      `yaml:"currency"`
	Inactive bool        `yaml:"inactive"`
	Address  AddressSeed `yaml:"address"`
}

// CoOwnerSeed describes a co-owner.
type CoOwnerSeed struct {
	PartySeed   `yaml:",inline"`
	AptShare    string `yaml:"apt_share"`
	AptUnit     string `yaml:"apt_unit"`
	DistribList string `yaml:"distribution_list"`
}

// CustomerSeed describes a customer.
type CustomerSeed struct {
	PartySeed `yaml:",inline"`
	Discount  string `yaml:"discount"`
	Credit    string `yaml:"credit"`
}

// EmployeeSeed describes an employee.
type EmployeeSeed struct {
	PartySeed `yaml:",inline"`
	Username  string `yaml:"username"`
	Rate      string `yaml:"rate"`
}

// OwnerSeed refers to a party of the same file by kind and id.
type OwnerSeed struct {
	Type string `yaml:"type"`
	ID   string `yaml:"id"`
}

// JobSeed describes a job.
type JobSeed struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	Reference string    `yaml:"reference"`
	Rate      string    `yaml:"rate"`
	Inactive  bool      `yaml:"inactive"`
	Owner     OwnerSeed `yaml:"owner"`
}

// File represents the complete seed file.
type File struct {
	DistribLists []DistribListSeed `yaml:"distribution_lists"`
	CoOwners     []CoOwnerSeed     `yaml:"coowners"`
	Customers    []CustomerSeed    `yaml:"customers"`
	Employees    []EmployeeSeed    `yaml:"employees"`
	Vendors      []PartySeed       `yaml:"vendors"`
	Jobs         []JobSeed         `yaml:"jobs"`
}

// Result counts the records an import created.
type Result struct {
	DistribLists int
	CoOwners     int
	Customers    int
	Employees    int
	Vendors      int
	Jobs         int
}

// Total returns the number of records created.
func (r Result) Total() int {
	return r.DistribLists + r.CoOwners + r.Customers + r.Employees + r.Vendors + r.Jobs
}

// Load reads a seed file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes seed YAML.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &f, nil
}

// importer resolves references between records of one import.
type importer struct {
	b      *entity.Book
	owners map[string]business.Owner
}

// Import creates the records of f in b. Every value is validated before
// anything is created, so a bad file leaves the book untouched.
func Import(b *entity.Book, f *File) (Result, error) {
	var res Result
	if err := f.Validate(b); err != nil {
		return res, err
	}

	im := &importer{b: b, owners: make(map[string]business.Owner)}

	for _, s := range f.DistribLists {
		im.distribList(s)
		res.DistribLists++
	}
	for _, s := range f.Customers {
		im.customer(s)
		res.Customers++
	}
	for _, s := range f.Employees {
		im.employee(s)
		res.Employees++
	}
	for _, s := range f.Vendors {
		im.vendor(s)
		res.Vendors++
	}
	for _, s := range f.CoOwners {
		im.coOwner(s)
		res.CoOwners++
	}
	for _, s := range f.Jobs {
		im.job(s)
		res.Jobs++
	}

	slog.Info("seed imported", "records", res.Total())
	return res, nil
}

// Validate checks every value and cross reference of the file.
func (f *File) Validate(b *entity.Book) error {
	var problems []string
	bad := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}
	checkDecimal := func(what, s string) {
		if _, err := parseDecimal(s); err != nil {
			bad("%s: %v", what, err)
		}
	}

	lists := make(map[string]bool)
	for i, s := range f.DistribLists {
		if s.Name == "" {
			bad("distribution_lists[%d]: name is required", i)
		}
		if _, err := business.ParseDistribListType(s.Type); err != nil || s.Type == "" {
			bad("distribution_lists[%d]: type must be shares or percentage", i)
		}
		lists[s.Name] = true
	}

	ids := make(map[string]bool)
	party := func(kind string, i int, p PartySeed) {
		if p.ID == "" {
			bad("%s[%d]: id is required", kind, i)
		}
		key := ownerKey(kind, p.ID)
		if ids[key] {
			bad("%s[%d]: duplicate id %q", kind, i, p.ID)
		}
		ids[key] = true
	}
	for i, s := range f.CoOwners {
		party("coowner", i, s.PartySeed)
		checkDecimal(fmt.Sprintf("coowners[%d].apt_share", i), s.AptShare)
		if s.DistribList != "" && !lists[s.DistribList] && business.LookupDistribListByName(b, s.DistribList) == nil {
			bad("coowners[%d]: unknown distribution list %q", i, s.DistribList)
		}
	}
	for i, s := range f.Customers {
		party("customer", i, s.PartySeed)
		checkDecimal(fmt.Sprintf("customers[%d].discount", i), s.Discount)
		checkDecimal(fmt.Sprintf("customers[%d].credit", i), s.Credit)
	}
	for i, s := range f.Employees {
		party("employee", i, s.PartySeed)
		checkDecimal(fmt.Sprintf("employees[%d].rate", i), s.Rate)
	}
	for i, s := range f.Vendors {
		party("vendor", i, s)
	}
	for i, s := range f.Jobs {
		checkDecimal(fmt.Sprintf("jobs[%d].rate", i), s.Rate)
		if s.Owner.Type == "" {
			continue
		}
		kind := strings.ToLower(s.Owner.Type)
		if kind == "job" {
			bad("jobs[%d]: a job cannot be owned by a job", i)
			continue
		}
		if !ids[ownerKey(kind, s.Owner.ID)] {
			bad("jobs[%d]: unknown owner %s %q", i, s.Owner.Type, s.Owner.ID)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid seed file:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

func ownerKey(kind, id string) string {
	return strings.ToLower(kind) + "/" + id
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func decimalOrZero(s string) decimal.Decimal {
	d, _ := parseDecimal(s)
	return d
}

func (a AddressSeed) address() business.Address {
	return business.Address{
		Name:  a.Name,
		Addr1: a.Addr1,
		Addr2: a.Addr2,
		Addr3: a.Addr3,
		Addr4: a.Addr4,
		Phone: a.Phone,
		Fax:   a.Fax,
		Email: a.Email,
	}
}

func (im *importer) distribList(s DistribListSeed) {
	typ, _ := business.ParseDistribListType(s.Type)

	dl := business.NewDistribList(im.b)
	dl.BeginEdit()
	dl.SetName(s.Name)
	dl.SetDescription(s.Description)
	dl.SetType(typ)
	dl.SetOwnerTypeName(business.ParseOwnerType(s.OwnerType).TypeName())
	if typ == business.DistribListTypePercentage {
		dl.SetPercentageTotal(s.Total)
		dl.SetPercentageLabelSettlement(s.LabelSettlement)
	} else {
		dl.SetSharesTotal(s.Total)
		dl.SetSharesLabelSettlement(s.LabelSettlement)
	}
	dl.CommitEdit()
}

func (im *importer) coOwner(s CoOwnerSeed) {
	co := business.NewCoOwner(im.b)
	co.BeginEdit()
	co.SetID(s.ID)
	co.SetName(s.Name)
	co.SetNotes(s.Notes)
	co.SetCurrency(s.Currency)
	co.SetActive(!s.Inactive)
	co.SetAddr(s.Address.address())
	co.SetAptShare(decimalOrZero(s.AptShare))
	co.SetAptUnit(s.AptUnit)
	if s.DistribList != "" {
		co.SetDistribList(business.LookupDistribListByName(im.b, s.DistribList))
	}
	co.CommitEdit()
	im.owners[ownerKey("coowner", s.ID)] = business.OwnerOf(co)
}

func (im *importer) customer(s CustomerSeed) {
	c := business.NewCustomer(im.b)
	c.BeginEdit()
	applyParty(c, s.PartySeed)
	c.SetDiscount(decimalOrZero(s.Discount))
	c.SetCredit(decimalOrZero(s.Credit))
	c.CommitEdit()
	im.owners[ownerKey("customer", s.ID)] = business.OwnerOf(c)
}

func (im *importer) employee(s EmployeeSeed) {
	e := business.NewEmployee(im.b)
	e.BeginEdit()
	applyParty(e, s.PartySeed)
	e.SetUsername(s.Username)
	e.SetRate(decimalOrZero(s.Rate))
	e.CommitEdit()
	im.owners[ownerKey("employee", s.ID)] = business.OwnerOf(e)
}

func (im *importer) vendor(s PartySeed) {
	v := business.NewVendor(im.b)
	v.BeginEdit()
	applyParty(v, s)
	v.CommitEdit()
	im.owners[ownerKey("vendor", s.ID)] = business.OwnerOf(v)
}

func (im *importer) job(s JobSeed) {
	j := business.NewJob(im.b)
	j.BeginEdit()
	j.SetID(s.ID)
	j.SetName(s.Name)
	j.SetReference(s.Reference)
	j.SetRate(decimalOrZero(s.Rate))
	j.SetActive(!s.Inactive)
	if s.Owner.Type != "" {
		j.SetOwner(im.owners[ownerKey(s.Owner.Type, s.Owner.ID)])
	}
	j.CommitEdit()
}

type partySetter interface {
	SetID(string)
	SetName(string)
	SetNotes(string)
	SetCurrency(string)
	SetActive(bool)
	SetAddr(business.Address)
}

func applyParty(p partySetter, s PartySeed) {
	p.SetID(s.ID)
	p.SetName(s.Name)
	p.SetNotes(s.Notes)
	p.SetCurrency(s.Currency)
	p.SetActive(!s.Inactive)
	p.SetAddr(s.Address.address())
}
