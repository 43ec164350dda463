package handler

import "time"

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type LicenseResponse struct {
	LicenseID    string     `json:"license_id"`
	OwnerID      string     `json:"owner_account_id"`
	Class        string     `json:"class"`
	Status       string     `json:"status"`
	SeatCapacity int        `json:"seat_capacity"`
	PurchasedAt  time.Time  `json:"purchased_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

type SeatResponse struct {
	MemberID        string     `json:"member_id"`
	LicenseID       string     `json:"license_id"`
	InvitedEmail    string     `json:"invited_email"`
	AccountID       *string    `json:"account_id,omitempty"`
	Role            string     `json:"role"`
	Status          string     `json:"status"`
	InvitedAt       time.Time  `json:"invited_at"`
	InviteExpiresAt *time.Time `json:"invite_expires_at,omitempty"`
	JoinedAt        *time.Time `json:"joined_at,omitempty"`
}

type MembershipResponse struct {
	Seat       SeatResponse    `json:"seat"`
	License    LicenseResponse `json:"license"`
	OwnerName  string          `json:"owner_name,omitempty"`
	OwnerEmail string          `json:"owner_email,omitempty"`
}

type EntitlementResponse struct {
	HasAccess    bool                `json:"has_access"`
	Class        string              `json:"class"`
	OwnedLicense *LicenseResponse    `json:"owned_license,omitempty"`
	Membership   *MembershipResponse `json:"membership,omitempty"`
}

type AccessResponse struct {
	Allowed bool `json:"allowed"`
}

type SeatUsageResponse struct {
	Capacity  int `json:"capacity"`
	Occupied  int `json:"occupied"`
	Active    int `json:"active"`
	Pending   int `json:"pending"`
	Available int `json:"available"`
}

type OwnedLicenseResponse struct {
	License LicenseResponse   `json:"license"`
	Seats   []SeatResponse    `json:"seats"`
	Usage   SeatUsageResponse `json:"usage"`
}

type MembershipsResponse struct {
	Memberships []MembershipResponse `json:"memberships"`
}

type TemplatePurchaseResponse struct {
	TemplateID  string    `json:"template_id"`
	Status      string    `json:"status"`
	PurchasedAt time.Time `json:"purchased_at"`
}

type TemplatesResponse struct {
	Templates []TemplatePurchaseResponse `json:"templates"`
}

type CreateInviteRequest struct {
	Email string `json:"email"`
}

type CreateInviteResponse struct {
	Seat      SeatResponse `json:"seat"`
	SignupURL string       `json:"signup_url"`
	AcceptURL string       `json:"accept_url"`
}

type AcceptInviteRequest struct {
	Token string `json:"token"`
}

type AcceptInviteResponse struct {
	Seat SeatResponse `json:"seat"`
}

type AutoAcceptResponse struct {
	AcceptedCount int      `json:"accepted_count"`
	OwnerNames    []string `json:"owner_names"`
}

type WebhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
}
