package handler

import "github.com/bagdasarian/seatkeeper/internal/domain"

func domainLicenseToHTTP(license *domain.License) LicenseResponse {
	return LicenseResponse{
		LicenseID:    license.ID,
		OwnerID:      license.OwnerAccountID,
		Class:        string(license.Class),
		Status:       string(license.Status),
		SeatCapacity: license.SeatCapacity,
		PurchasedAt:  license.PurchasedAt,
		ExpiresAt:    license.ExpiresAt,
	}
}

func domainSeatToHTTP(grant *domain.SeatGrant) SeatResponse {
	return SeatResponse{
		MemberID:        grant.ID,
		LicenseID:       grant.LicenseID,
		InvitedEmail:    grant.InvitedEmail,
		AccountID:       grant.LinkedAccountID,
		Role:            string(grant.Role),
		Status:          string(grant.Status),
		InvitedAt:       grant.InvitedAt,
		InviteExpiresAt: grant.InviteExpiresAt,
		JoinedAt:        grant.JoinedAt,
	}
}

func domainEntitlementToHTTP(ent domain.Entitlement) EntitlementResponse {
	resp := EntitlementResponse{
		HasAccess: ent.HasAccess,
		Class:     string(ent.Class),
	}
	if ent.OwnedLicense != nil {
		license := domainLicenseToHTTP(ent.OwnedLicense)
		resp.OwnedLicense = &license
	}
	if ent.Membership != nil {
		resp.Membership = &MembershipResponse{
			Seat:    domainSeatToHTTP(ent.Membership.Grant),
			License: domainLicenseToHTTP(ent.Membership.License),
		}
	}
	return resp
}

func domainOwnedLicenseToHTTP(view *domain.OwnedLicenseView) OwnedLicenseResponse {
	seats := make([]SeatResponse, 0, len(view.Seats))
	for _, seat := range view.Seats {
		seats = append(seats, domainSeatToHTTP(seat))
	}

	return OwnedLicenseResponse{
		License: domainLicenseToHTTP(view.License),
		Seats:   seats,
		Usage: SeatUsageResponse{
			Capacity:  view.Usage.Capacity,
			Occupied:  view.Usage.Occupied(),
			Active:    view.Usage.Active,
			Pending:   view.Usage.Pending,
			Available: view.Usage.Available(),
		},
	}
}

func domainMembershipsToHTTP(details []domain.MembershipDetail) MembershipsResponse {
	memberships := make([]MembershipResponse, 0, len(details))
	for _, d := range details {
		memberships = append(memberships, MembershipResponse{
			Seat:       domainSeatToHTTP(d.Grant),
			License:    domainLicenseToHTTP(d.License),
			OwnerName:  d.OwnerName,
			OwnerEmail: d.OwnerEmail,
		})
	}
	return MembershipsResponse{Memberships: memberships}
}

func domainTemplatesToHTTP(purchases []*domain.TemplatePurchase) TemplatesResponse {
	templates := make([]TemplatePurchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		templates = append(templates, TemplatePurchaseResponse{
			TemplateID:  p.TemplateID,
			Status:      string(p.Status),
			PurchasedAt: p.PurchasedAt,
		})
	}
	return TemplatesResponse{Templates: templates}
}
