package httptransport

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/go-chi/chi/v5"

	didmodels "credreg/internal/did/models"
	"credreg/pkg/chainctx"
	"credreg/pkg/domain"
	dErrors "credreg/pkg/domain-errors"
)

// DIDService defines the interface for identity operations.
type DIDService interface {
	OwnerOf(ctx context.Context, identity domain.AccountID) (domain.AccountID, error)
	ChangeOwner(ctx context.Context, identity, newOwner, caller domain.AccountID) error
	AddDelegate(ctx context.Context, identity domain.AccountID, dtype string, delegate domain.AccountID, validity domain.BlockNumber, caller domain.AccountID) error
	RevokeDelegate(ctx context.Context, identity domain.AccountID, dtype string, delegate domain.AccountID, caller domain.AccountID) error
	Authorize(ctx context.Context, identity, caller domain.AccountID, purpose string) error
	AddAttribute(ctx context.Context, identity domain.AccountID, name string, value []byte, validity domain.BlockNumber, caller domain.AccountID) error
	RevokeAttribute(ctx context.Context, identity domain.AccountID, name string, caller domain.AccountID) error
	DeleteAttribute(ctx context.Context, identity domain.AccountID, name string, caller domain.AccountID) error
	ListActiveDelegates(ctx context.Context, identity domain.AccountID) ([]*didmodels.DelegateRecord, error)
	ListActiveAttributes(ctx context.Context, identity domain.AccountID) ([]*didmodels.AttributeRecord, error)
}

type didHandler struct {
	dids DIDService
}

func (h *didHandler) register(r chi.Router) {
	r.Get("/identities/{identity}/owner", h.handleOwner)
	r.Put("/identities/{identity}/owner", h.handleChangeOwner)
	r.Get("/identities/{identity}/delegates", h.handleListDelegates)
	r.Post("/identities/{identity}/delegates", h.handleAddDelegate)
	r.Post("/identities/{identity}/delegates/revoke", h.handleRevokeDelegate)
	r.Get("/identities/{identity}/authorize", h.handleAuthorize)
	r.Get("/identities/{identity}/attributes", h.handleListAttributes)
	r.Post("/identities/{identity}/attributes", h.handleAddAttribute)
	r.Post("/identities/{identity}/attributes/{name}/revoke", h.handleRevokeAttribute)
	r.Delete("/identities/{identity}/attributes/{name}", h.handleDeleteAttribute)
}

func (h *didHandler) handleOwner(w http.ResponseWriter, r *http.Request) {
	identity, err := domain.ParseAccountID(chi.URLParam(r, "identity"))
	if err != nil {
		writeError(w, err)
		return
	}
	owner, err := h.dids.OwnerOf(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.AccountID{"owner": owner})
}

func (h *didHandler) handleChangeOwner(w http.ResponseWriter, r *http.Request) {
	identity, err := domain.ParseAccountID(chi.URLParam(r, "identity"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Owner string `json:"owner"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.dids.ChangeOwner(r.Context(), identity, domain.AccountID(req.Owner), chainctx.Caller(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *didHandler) handleListDelegates(w http.ResponseWriter, r *http.Request) {
	identity, err := domain.ParseAccountID(chi.URLParam(r, "identity"))
	if err != nil {
		writeError(w, err)
		return
	}
	delegates, err := h.dids.ListActiveDelegates(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, delegates)
}

func (h *didHandler) handleAddDelegate(w http.ResponseWriter, r *http.Request) {
	identity, err := domain.ParseAccountID(chi.URLParam(r, "identity"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Type     string             `json:"type"`
		Delegate string             `json:"delegate"`
		Validity domain.BlockNumber `json:"validity"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.dids.AddDelegate(r.Context(), identity, req.Type, domain.AccountID(req.Delegate), req.Validity, chainctx.Caller(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *didHandler) handleRevokeDelegate(w http.ResponseWriter, r *http.Request) {
	identity, err := domain.ParseAccountID(chi.URLParam(r, "identity"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Type     string `json:"type"`
		Delegate string `json:"delegate"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.dids.RevokeDelegate(r.Context(), identity, req.Type, domain.AccountID(req.Delegate), chainctx.Caller(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAuthorize answers whether an account may act for the identity for
// a purpose. Exposed as a query so callers can test delegation without
// mutating anything.
func (h *didHandler) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	identity, err := domain.ParseAccountID(chi.URLParam(r, "identity"))
	if err != nil {
		writeError(w, err)
		return
	}
	account, err := domain.ParseAccountID(r.URL.Query().Get("account"))
	if err != nil {
		writeError(w, err)
		return
	}
	purpose := r.URL.Query().Get("purpose")

	if err := h.dids.Authorize(r.Context(), identity, account, purpose); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotAuthorized) {
			writeJSON(w, http.StatusOK, map[string]bool{"authorized": false})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"authorized": true})
}

func (h *didHandler) handleListAttributes(w http.ResponseWriter, r *http.Request) {
	identity, err := domain.ParseAccountID(chi.URLParam(r, "identity"))
	if err != nil {
		writeError(w, err)
		return
	}
	attrs, err := h.dids.ListActiveAttributes(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attrs)
}

func (h *didHandler) handleAddAttribute(w http.ResponseWriter, r *http.Request) {
	identity, err := domain.ParseAccountID(chi.URLParam(r, "identity"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Name     string             `json:"name"`
		Value    string             `json:"value"`
		Validity domain.BlockNumber `json:"validity"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	value, err := base64.StdEncoding.DecodeString(req.Value)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "attribute value must be base64"))
		return
	}
	if err := h.dids.AddAttribute(r.Context(), identity, req.Name, value, req.Validity, chainctx.Caller(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *didHandler) handleRevokeAttribute(w http.ResponseWriter, r *http.Request) {
	identity, err := domain.ParseAccountID(chi.URLParam(r, "identity"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.dids.RevokeAttribute(r.Context(), identity, chi.URLParam(r, "name"), chainctx.Caller(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *didHandler) handleDeleteAttribute(w http.ResponseWriter, r *http.Request) {
	identity, err := domain.ParseAccountID(chi.URLParam(r, "identity"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.dids.DeleteAttribute(r.Context(), identity, chi.URLParam(r, "name"), chainctx.Caller(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
