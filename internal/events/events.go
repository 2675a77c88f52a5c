// Package events defines the domain events the registry emits and the
// publishers that carry them to external indexers.
//
// Events carry identifiers only, never full record payloads: observers that
// need the record issue a read query against committed state.
package events

import (
	"context"

	"github.com/google/uuid"

	"credreg/pkg/domain"
)

type Type string

const (
	TypeOrgAdded        Type = "org.added"
	TypeOrgSuspended    Type = "org.suspended"
	TypeOrgUnsuspended  Type = "org.unsuspended"
	TypeOrgAdminChanged Type = "org.admin_changed"
	TypeOrgDelegated    Type = "org.delegated"

	TypeCertAdded     Type = "cert.added"
	TypeCertIssued    Type = "cert.issued"
	TypeCertRevoked   Type = "cert.revoked"
	TypeCertDestroyed Type = "cert.destroyed"
	TypeCertSwept     Type = "cert.swept"

	TypeDelegateAdded    Type = "did.delegate_added"
	TypeDelegateRevoked  Type = "did.delegate_revoked"
	TypeOwnerChanged     Type = "did.owner_changed"
	TypeAttributeAdded   Type = "did.attribute_added"
	TypeAttributeRevoked Type = "did.attribute_revoked"
	TypeAttributeDeleted Type = "did.attribute_deleted"
)

// Event is a minimal-payload domain event. Identifier fields not relevant
// to the event type stay zero and are omitted from the wire form.
type Event struct {
	ID         string             `json:"id"`
	Type       Type               `json:"type"`
	At         domain.Moment      `json:"at"`
	Block      domain.BlockNumber `json:"block,omitempty"`
	OrgID      domain.OrgID       `json:"org_id,omitempty"`
	CertTypeID domain.CertTypeID  `json:"cert_type_id,omitempty"`
	Account    domain.AccountID   `json:"account,omitempty"`
	Identity   domain.AccountID   `json:"identity,omitempty"`
}

// New stamps a fresh event with a unique ID.
func New(typ Type, at domain.Moment) Event {
	return Event{ID: uuid.NewString(), Type: typ, At: at}
}

// Publisher delivers emitted events to observers. Publishing happens after
// the state mutation committed; a delivery failure must not roll the
// transaction back, so implementations log and drop rather than error on
// broker trouble.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Discard is the no-op publisher used when no sink is configured.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
