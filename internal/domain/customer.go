package domain

import "time"

type Customer struct {
	ID                   uint
	Name                 string
	Gender               string
	Birthdate            *time.Time
	Phone                string
	Address              string
	PostalCode           string
	Email                string
	PasswordHash         string
	TotalPizzasOrdered   int
	BirthdayPizzaClaimed bool
	IsAdmin              bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsBirthday compares month and day only.
func (c Customer) IsBirthday(today time.Time) bool {
	if c.Birthdate == nil {
		return false
	}
	return c.Birthdate.Month() == today.Month() && c.Birthdate.Day() == today.Day()
}

func (c Customer) BirthdayOfferAvailable(today time.Time) bool {
	return !c.BirthdayPizzaClaimed && c.IsBirthday(today)
}
