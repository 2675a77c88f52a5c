package models

import (
	"time"

	"credreg/pkg/domain"
	dErrors "credreg/pkg/domain-errors"
)

// State is the credential lifecycle state. Transitions are monotone:
// Active may move to Revoked or Destroyed; both are terminal. No operation
// ever returns a credential to Active.
type State string

const (
	StateActive    State = "active"
	StateRevoked   State = "revoked"
	StateDestroyed State = "destroyed"
)

// GracePeriod is the extra retention window after a credential's
// ValidUntil before the sweeper physically purges the row. Three months of
// ledger time.
const GracePeriod = domain.Moment(90 * 24 * int64(time.Hour/time.Millisecond))

const NotesMaxLength = 1024

// Credential is an issued certificate bound to an owner account. At most
// one record per (CertTypeID, Owner) ever exists across the registry's
// history; the key stays spent even after termination.
type Credential struct {
	CertTypeID domain.CertTypeID `json:"cert_type_id"`
	Owner      domain.AccountID  `json:"owner"`
	IssuedAt   domain.Moment     `json:"issued_at"`
	IssuedBy   domain.OrgID      `json:"issued_by"`
	Signature  []byte            `json:"signature"`
	Notes      string            `json:"notes,omitempty"`
	Attachment domain.ContentRef `json:"attachment,omitempty"`
	// ValidUntil of zero means the credential never expires.
	ValidUntil domain.Moment `json:"valid_until,omitempty"`
	State      State         `json:"state"`
}

// NewCredential validates input bounds and constructs an Active record.
func NewCredential(
	certTypeID domain.CertTypeID,
	owner domain.AccountID,
	issuedBy domain.OrgID,
	signature []byte,
	notes string,
	attachment domain.ContentRef,
	validUntil domain.Moment,
	now domain.Moment,
) (*Credential, error) {
	if owner.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "credential owner is required")
	}
	if len(signature) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "credential signature is required")
	}
	if len(notes) > NotesMaxLength {
		return nil, dErrors.New(dErrors.CodeTooLong, "credential notes too long")
	}
	return &Credential{
		CertTypeID: certTypeID,
		Owner:      owner,
		IssuedAt:   now,
		IssuedBy:   issuedBy,
		Signature:  signature,
		Notes:      notes,
		Attachment: attachment,
		ValidUntil: validUntil,
		State:      StateActive,
	}, nil
}

func (c *Credential) Key() domain.CredentialKey {
	return domain.CredentialKey{CertTypeID: c.CertTypeID, Owner: c.Owner}
}

// CanRevoke checks the Active -> Revoked transition.
func (c *Credential) CanRevoke() error {
	if c.State != StateActive {
		return dErrors.Newf(dErrors.CodeInvalidState, "credential is %s, not active", c.State)
	}
	return nil
}

func (c *Credential) ApplyRevoke() { c.State = StateRevoked }

// CanDestroy checks the Active -> Destroyed transition. Destruction is the
// owner's self-service retirement, distinct from issuer revocation.
func (c *Credential) CanDestroy() error {
	if c.State != StateActive {
		return dErrors.Newf(dErrors.CodeInvalidState, "credential is %s, not active", c.State)
	}
	return nil
}

func (c *Credential) ApplyDestroy() { c.State = StateDestroyed }

// Expired reports whether the credential's validity plus the grace window
// has elapsed at the given ledger time.
func (c *Credential) Expired(now domain.Moment) bool {
	return c.ValidUntil != 0 && now > c.ValidUntil+GracePeriod
}

func (c *Credential) Clone() *Credential {
	out := *c
	out.Signature = append([]byte(nil), c.Signature...)
	return &out
}
