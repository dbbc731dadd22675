package business

import "github.com/shunichi-ikebuchi/bizbook/pkg/colmap"

// Address is a postal and contact address attached to a party.
type Address struct {
	Name  string
	Addr1 string
	Addr2 string
	Addr3 string
	Addr4 string
	Phone string
	Fax   string
	Email string
}

// IsEmpty reports whether no part of the address is filled in.
func (a Address) IsEmpty() bool {
	return a == Address{}
}

func (a Address) value() colmap.AddressValue {
	return colmap.AddressValue{a.Name, a.Addr1, a.Addr2, a.Addr3, a.Addr4, a.Phone, a.Fax, a.Email}
}

func addressFromValue(v colmap.AddressValue) Address {
	return Address{
		Name:  v[0],
		Addr1: v[1],
		Addr2: v[2],
		Addr3: v[3],
		Addr4: v[4],
		Phone: v[5],
		Fax:   v[6],
		Email: v[7],
	}
}
