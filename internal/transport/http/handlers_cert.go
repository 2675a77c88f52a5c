package httptransport

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/go-chi/chi/v5"

	certmodels "credreg/internal/cert/models"
	certservice "credreg/internal/cert/service"
	"credreg/pkg/chainctx"
	"credreg/pkg/domain"
	dErrors "credreg/pkg/domain-errors"
)

// CertService defines the interface for certificate operations.
type CertService interface {
	DefineCertificate(ctx context.Context, orgID domain.OrgID, name string, caller domain.AccountID) (*certmodels.CertificateType, error)
	Issue(ctx context.Context, p certservice.IssueParams, caller domain.AccountID) (*certmodels.Credential, error)
	Revoke(ctx context.Context, key domain.CredentialKey, caller domain.AccountID) error
	Destroy(ctx context.Context, key domain.CredentialKey, caller domain.AccountID) error
	GetType(ctx context.Context, id domain.CertTypeID) (*certmodels.CertificateType, error)
	ListTypesByOrg(ctx context.Context, orgID domain.OrgID) ([]*certmodels.CertificateType, error)
	GetCredential(ctx context.Context, key domain.CredentialKey) (*certmodels.Credential, error)
	ListIssuedBy(ctx context.Context, orgID domain.OrgID) ([]*certmodels.Credential, error)
}

type certHandler struct {
	certs CertService
}

func (h *certHandler) register(r chi.Router) {
	r.Post("/orgs/{orgID}/cert-types", h.handleDefine)
	r.Get("/orgs/{orgID}/cert-types", h.handleListTypes)
	r.Get("/orgs/{orgID}/credentials", h.handleListIssued)
	r.Get("/cert-types/{certTypeID}", h.handleGetType)
	r.Post("/cert-types/{certTypeID}/credentials", h.handleIssue)
	r.Get("/cert-types/{certTypeID}/credentials/{owner}", h.handleGetCredential)
	r.Post("/cert-types/{certTypeID}/credentials/{owner}/revoke", h.handleRevoke)
	r.Post("/cert-types/{certTypeID}/credentials/{owner}/destroy", h.handleDestroy)
}

func (h *certHandler) handleDefine(w http.ResponseWriter, r *http.Request) {
	orgID, err := domain.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ct, err := h.certs.DefineCertificate(r.Context(), orgID, req.Name, chainctx.Caller(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ct)
}

func (h *certHandler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	orgID, err := domain.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, err)
		return
	}
	types, err := h.certs.ListTypesByOrg(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

func (h *certHandler) handleGetType(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCertTypeID(chi.URLParam(r, "certTypeID"))
	if err != nil {
		writeError(w, err)
		return
	}
	ct, err := h.certs.GetType(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ct)
}

func (h *certHandler) handleIssue(w http.ResponseWriter, r *http.Request) {
	certTypeID, err := domain.ParseCertTypeID(chi.URLParam(r, "certTypeID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Owner      string        `json:"owner"`
		Signature  string        `json:"signature"`
		Notes      string        `json:"notes"`
		Attachment string        `json:"attachment"`
		ValidUntil domain.Moment `json:"valid_until"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	signature, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "signature must be base64"))
		return
	}

	cred, err := h.certs.Issue(r.Context(), certservice.IssueParams{
		CertTypeID: certTypeID,
		Owner:      domain.AccountID(req.Owner),
		Signature:  signature,
		Notes:      req.Notes,
		Attachment: domain.ContentRef(req.Attachment),
		ValidUntil: req.ValidUntil,
	}, chainctx.Caller(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cred)
}

func (h *certHandler) handleGetCredential(w http.ResponseWriter, r *http.Request) {
	key, err := credentialKeyFromURL(r)
	if err != nil {
		writeError(w, err)
		return
	}
	cred, err := h.certs.GetCredential(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cred)
}

func (h *certHandler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	key, err := credentialKeyFromURL(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.certs.Revoke(r.Context(), key, chainctx.Caller(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *certHandler) handleDestroy(w http.ResponseWriter, r *http.Request) {
	key, err := credentialKeyFromURL(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.certs.Destroy(r.Context(), key, chainctx.Caller(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *certHandler) handleListIssued(w http.ResponseWriter, r *http.Request) {
	orgID, err := domain.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, err)
		return
	}
	creds, err := h.certs.ListIssuedBy(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, creds)
}

func credentialKeyFromURL(r *http.Request) (domain.CredentialKey, error) {
	certTypeID, err := domain.ParseCertTypeID(chi.URLParam(r, "certTypeID"))
	if err != nil {
		return domain.CredentialKey{}, err
	}
	owner, err := domain.ParseAccountID(chi.URLParam(r, "owner"))
	if err != nil {
		return domain.CredentialKey{}, err
	}
	return domain.CredentialKey{CertTypeID: certTypeID, Owner: owner}, nil
}
