package domain

import (
	"fmt"
	"time"
)

type LicenseStatus string

const (
	LicenseStatusActive   LicenseStatus = "active"
	LicenseStatusRefunded LicenseStatus = "refunded"
)

type License struct {
	ID                string
	OwnerAccountID    string
	Class             LicenseClass
	Status            LicenseStatus
	SeatCapacity      int
	ExternalPaymentID string
	PurchasedAt       time.Time
	ExpiresAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         *time.Time
}

// IsActive - лицензия не возвращена и не истекла. Пожизненные лицензии
// хранятся с ExpiresAt == nil.
func (l *License) IsActive(now time.Time) bool {
	if l == nil || l.Status != LicenseStatusActive {
		return false
	}
	return l.ExpiresAt == nil || now.Before(*l.ExpiresAt)
}

// ownerSeats - владелец занимает место, но не имеет строки SeatGrant.
const ownerSeats = 1

// SeatUsage - заполненность пула мест одной лицензии.
type SeatUsage struct {
	Capacity int
	Active   int
	Pending  int
}

// Occupied считает владельца, активных участников и непросроченные приглашения.
func (u SeatUsage) Occupied() int {
	return ownerSeats + u.Active + u.Pending
}

func (u SeatUsage) Available() int {
	if free := u.Capacity - u.Occupied(); free > 0 {
		return free
	}
	return 0
}

// CanInvite проверяется при создании приглашения.
func (u SeatUsage) CanInvite() bool {
	return u.Occupied() < u.Capacity
}

// CanActivate проверяется при принятии: приглашение уже учтено в Pending,
// поэтому сравниваются только активные участники.
func (u SeatUsage) CanActivate() bool {
	return ownerSeats+u.Active < u.Capacity
}

// MaxMembers - сколько строк SeatGrant помещается в лицензию.
func (u SeatUsage) MaxMembers() int {
	if m := u.Capacity - ownerSeats; m > 0 {
		return m
	}
	return 0
}

// CountSeats строит SeatUsage по грантам лицензии.
func CountSeats(license *License, grants []*SeatGrant, now time.Time) SeatUsage {
	usage := SeatUsage{Capacity: license.SeatCapacity}
	for _, g := range grants {
		if g.LicenseID != license.ID {
			continue
		}
		switch {
		case g.Status == SeatStatusActive:
			usage.Active++
		case g.IsPending(now):
			usage.Pending++
		}
	}
	return usage
}

// SeatPolicy сопоставляет класс лицензии и количество мест.
type SeatPolicy map[LicenseClass]int

func DefaultSeatPolicy() SeatPolicy {
	return SeatPolicy{
		LicenseClassIndividual: 1,
		LicenseClassTeam:       5,
	}
}

func (p SeatPolicy) CapacityFor(class LicenseClass) (int, error) {
	capacity, ok := p[class]
	if !ok {
		return 0, fmt.Errorf("no seat capacity configured for class %q", class)
	}
	if capacity < 1 {
		return 0, fmt.Errorf("seat capacity for class %q must be at least 1, got %d", class, capacity)
	}
	return capacity, nil
}

func (p SeatPolicy) Validate() error {
	for _, class := range []LicenseClass{LicenseClassIndividual, LicenseClassTeam} {
		if _, err := p.CapacityFor(class); err != nil {
			return err
		}
	}
	return nil
}
