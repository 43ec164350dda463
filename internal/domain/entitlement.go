package domain

import "time"

// Membership - активный грант вместе с его лицензией.
type Membership struct {
	Grant   *SeatGrant
	License *License
}

type Entitlement struct {
	HasAccess    bool
	Class        LicenseClass
	OwnedLicense *License
	Membership   *Membership
}

// NoEntitlement - ответ для неизвестных и неоплаченных аккаунтов.
func NoEntitlement() Entitlement {
	return Entitlement{Class: LicenseClassNone}
}

// ComputeEntitlement вычисляет доступ без обращений к хранилищу.
// Собственная активная лицензия важнее членства в чужой команде.
func ComputeEntitlement(owned *License, memberships []Membership, now time.Time) Entitlement {
	if owned.IsActive(now) {
		return Entitlement{
			HasAccess:    true,
			Class:        owned.Class,
			OwnedLicense: owned,
		}
	}

	for i := range memberships {
		m := memberships[i]
		if m.Grant == nil || m.Grant.Status != SeatStatusActive {
			continue
		}
		if !m.License.IsActive(now) {
			continue
		}
		return Entitlement{
			HasAccess:  true,
			Class:      LicenseClassTeam,
			Membership: &m,
		}
	}

	return NoEntitlement()
}

// OwnedLicenseView - лицензия владельца с участниками и приглашениями,
// которые занимают места.
type OwnedLicenseView struct {
	License *License
	Seats   []*SeatGrant
	Usage   SeatUsage
}

type MembershipDetail struct {
	Grant      *SeatGrant
	License    *License
	OwnerName  string
	OwnerEmail string
}
