package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

func (h *Handler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(r.Context())
	if !ok {
		h.handleError(w, r, domain.ErrUnauthenticated)
		return
	}

	var req CreateInviteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	invite, err := h.inviteService.CreateInvite(r.Context(), chi.URLParam(r, "licenseID"), session.AccountID, req.Email)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateInviteResponse{
		Seat:      domainSeatToHTTP(invite.Grant),
		SignupURL: invite.SignupURL,
		AcceptURL: invite.AcceptURL,
	})
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(r.Context())
	if !ok {
		h.handleError(w, r, domain.ErrUnauthenticated)
		return
	}

	if err := h.inviteService.RemoveMember(r.Context(), chi.URLParam(r, "memberID"), session.AccountID); err != nil {
		h.handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(r.Context())
	if !ok {
		h.handleError(w, r, domain.ErrUnauthenticated)
		return
	}

	var req AcceptInviteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}
	if req.Token == "" {
		h.handleError(w, r, domain.NewBadRequestError("token is required"))
		return
	}

	if _, err := h.accountService.RegisterAccount(r.Context(), session.AccountID, session.Email, session.Name); err != nil {
		h.handleError(w, r, err)
		return
	}

	grant, err := h.inviteService.AcceptInvite(r.Context(), req.Token, session.AccountID, session.Email)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AcceptInviteResponse{Seat: domainSeatToHTTP(grant)})
}

// AutoAccept вызывается клиентом после входа или регистрации.
func (h *Handler) AutoAccept(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(r.Context())
	if !ok {
		h.handleError(w, r, domain.ErrUnauthenticated)
		return
	}

	if _, err := h.accountService.RegisterAccount(r.Context(), session.AccountID, session.Email, session.Name); err != nil {
		h.handleError(w, r, err)
		return
	}

	result, err := h.inviteService.AutoAcceptPendingInvites(r.Context(), session.AccountID, session.Email)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if result.AcceptedCount > 0 {
		h.logger.Info("pending invites auto-accepted",
			zap.String("account_id", session.AccountID),
			zap.Int("accepted", result.AcceptedCount),
		)
	}

	writeJSON(w, http.StatusOK, AutoAcceptResponse{
		AcceptedCount: result.AcceptedCount,
		OwnerNames:    result.OwnerNames,
	})
}
