// Package udamember holds the member type handed out by the UDA connector.
package udamember

// Member is a competitor listed in the UDA organization membership export.
type Member struct {
	Id               uint64  `json:"id"`
	MembershipNumber *string `json:"membership_number"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	Email            string  `json:"email"`
	Club             *string `json:"club"`
	Confirmed        bool    `json:"confirmed"`
}

func New(
	id uint64,
	membershipNumber *string,
	firstName, lastName, email string,
	club *string,
	confirmed bool,
) Member {
	return Member{
		Id:               id,
		MembershipNumber: membershipNumber,
		FirstName:        firstName,
		LastName:         lastName,
		Email:            email,
		Club:             club,
		Confirmed:        confirmed,
	}
}

// FullName is the first name followed by the last name.
func (m Member) FullName() string {
	if m.LastName == "" {
		return m.FirstName
	}
	if m.FirstName == "" {
		return m.LastName
	}
	return m.FirstName + " " + m.LastName
}
