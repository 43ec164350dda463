package domain

import "time"

type LicenseClass string

const (
	LicenseClassNone       LicenseClass = "none"
	LicenseClassIndividual LicenseClass = "individual"
	LicenseClassTeam       LicenseClass = "team"
)

// Account - учетная запись покупателя. HasActiveLicense и LicenseClass
// пишет только синхронизатор кэша.
type Account struct {
	ID               string
	Email            string
	DisplayName      string
	HasActiveLicense bool
	LicenseClass     LicenseClass
	CreatedAt        time.Time
	UpdatedAt        *time.Time
}

// Name возвращает имя для писем и ответов; без display name - email.
func (a *Account) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Email
}
