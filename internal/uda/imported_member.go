package uda

import "uda-connector/pkg/udamember"

// ImportedMember is one row of the organization membership export, bound
// to the export's column headers.
type ImportedMember struct {
	Id               uint64  `xls:"ID"`
	MembershipNumber *string `xls:"Membership Number"`
	Reserved         *string `xls:"Reserved"`
	FirstName        string  `xls:"First Name"`
	LastName         string  `xls:"Last Name"`
	BirthDate        string  `xls:"Birthday"`
	Address          string  `xls:"Address"`
	City             string  `xls:"City"`
	Region           *string `xls:"State"`
	PostalCode       string  `xls:"Zip"`
	CountryCode      string  `xls:"Country"`
	Phone            *string `xls:"Phone"`
	Email            string  `xls:"Email"`
	Club             *string `xls:"Club"`
	Confirmed        bool    `xls:"Confirmed"`
}

// maxCompetitorId bounds competitor ids, ids from it upwards belong to
// non-competitors who do not hold a membership.
const maxCompetitorId = 2000

func (m ImportedMember) IsCompetitor() bool {
	return m.Id < maxCompetitorId
}

// Member projects the row to the public member, personal details are dropped.
func (m ImportedMember) Member() udamember.Member {
	return udamember.New(
		m.Id,
		m.MembershipNumber,
		m.FirstName,
		m.LastName,
		m.Email,
		m.Club,
		m.Confirmed,
	)
}
