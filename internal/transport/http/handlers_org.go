package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	orgmodels "credreg/internal/org/models"
	"credreg/pkg/chainctx"
	"credreg/pkg/domain"
)

// OrgService defines the interface for organization operations.
type OrgService interface {
	CreateOrganization(ctx context.Context, name string, admin domain.AccountID) (*orgmodels.Organization, error)
	Suspend(ctx context.Context, id domain.OrgID, caller domain.AccountID) error
	Unsuspend(ctx context.Context, id domain.OrgID, caller domain.AccountID) error
	SetAdmin(ctx context.Context, id domain.OrgID, newAdmin, caller domain.AccountID) error
	DelegateAccess(ctx context.Context, id domain.OrgID, to domain.AccountID, validUntil domain.BlockNumber, caller domain.AccountID) error
	Get(ctx context.Context, id domain.OrgID) (*orgmodels.Organization, error)
}

type orgHandler struct {
	orgs OrgService
}

func (h *orgHandler) register(r chi.Router) {
	r.Post("/orgs", h.handleCreate)
	r.Get("/orgs/{orgID}", h.handleGet)
	r.Post("/orgs/{orgID}/suspend", h.handleSuspend)
	r.Post("/orgs/{orgID}/unsuspend", h.handleUnsuspend)
	r.Put("/orgs/{orgID}/admin", h.handleSetAdmin)
	r.Post("/orgs/{orgID}/delegates", h.handleDelegate)
}

func (h *orgHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Admin string `json:"admin"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	admin := domain.AccountID(req.Admin)
	if admin.IsZero() {
		admin = chainctx.Caller(r.Context())
	}

	org, err := h.orgs.CreateOrganization(r.Context(), req.Name, admin)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

func (h *orgHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, err)
		return
	}
	org, err := h.orgs.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (h *orgHandler) handleSuspend(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.orgs.Suspend(r.Context(), id, chainctx.Caller(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *orgHandler) handleUnsuspend(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.orgs.Unsuspend(r.Context(), id, chainctx.Caller(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *orgHandler) handleSetAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Admin string `json:"admin"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.orgs.SetAdmin(r.Context(), id, domain.AccountID(req.Admin), chainctx.Caller(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *orgHandler) handleDelegate(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Account    string             `json:"account"`
		ValidUntil domain.BlockNumber `json:"valid_until"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.orgs.DelegateAccess(r.Context(), id, domain.AccountID(req.Account), req.ValidUntil, chainctx.Caller(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
