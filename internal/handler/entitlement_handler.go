package handler

import (
	"net/http"
	"strconv"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetEntitlement(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(r.Context())
	if !ok {
		h.handleError(w, r, domain.ErrUnauthenticated)
		return
	}

	ent, err := h.entitlementService.ResolveEntitlement(r.Context(), session.AccountID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, domainEntitlementToHTTP(ent))
}

// CheckAccess доступен без входа; gated по умолчанию true.
func (h *Handler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	gated := true
	if raw := r.URL.Query().Get("gated"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.handleError(w, r, domain.NewBadRequestError("gated must be true or false"))
			return
		}
		gated = parsed
	}

	var accountID string
	if session, ok := sessionFrom(r.Context()); ok {
		accountID = session.AccountID
	}

	allowed, err := h.entitlementService.CanAccessResource(r.Context(), accountID, gated)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AccessResponse{Allowed: allowed})
}

func (h *Handler) GetOwnedLicense(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(r.Context())
	if !ok {
		h.handleError(w, r, domain.ErrUnauthenticated)
		return
	}

	view, err := h.entitlementService.GetOwnedLicenseView(r.Context(), session.AccountID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, domainOwnedLicenseToHTTP(view))
}

func (h *Handler) ListMemberships(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(r.Context())
	if !ok {
		h.handleError(w, r, domain.ErrUnauthenticated)
		return
	}

	details, err := h.entitlementService.GetMembershipView(r.Context(), session.AccountID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, domainMembershipsToHTTP(details))
}

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(r.Context())
	if !ok {
		h.handleError(w, r, domain.ErrUnauthenticated)
		return
	}

	purchases, err := h.entitlementService.ListTemplatePurchases(r.Context(), session.AccountID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, domainTemplatesToHTTP(purchases))
}
